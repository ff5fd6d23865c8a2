package domain

import "context"

// DesignRepository persists library records. List returns newest first.
type DesignRepository interface {
	Create(ctx context.Context, record *DesignRecord) error
	ListByUser(ctx context.Context, userID string) ([]DesignRecord, error)
	GetByID(ctx context.Context, userID, id string) (*DesignRecord, error)
	Delete(ctx context.Context, userID, id string) error
}
