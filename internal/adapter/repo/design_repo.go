package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/sqlinline"
)

// DefaultListLimit caps one library listing.
const DefaultListLimit = 200

// DesignRepositoryPG implements domain.DesignRepository on the marked-query runner.
type DesignRepositoryPG struct {
	sql   infra.SQLExecutor
	limit int
}

// NewDesignRepository constructs a new design repository instance.
func NewDesignRepository(sql infra.SQLExecutor) *DesignRepositoryPG {
	return &DesignRepositoryPG{sql: sql, limit: DefaultListLimit}
}

// Create inserts the record. The caller assigns ID and CreatedAt.
func (r *DesignRepositoryPG) Create(ctx context.Context, record *domain.DesignRecord) error {
	if record == nil {
		return fmt.Errorf("design record is required")
	}
	if _, err := uuid.Parse(record.ID); err != nil {
		return fmt.Errorf("design record id %q: %w", record.ID, err)
	}
	var metadata []byte
	if len(record.Metadata) > 0 {
		metadata = record.Metadata
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertDesignRecord,
		record.ID,
		record.UserID,
		string(record.Kind),
		record.Title,
		record.StorageKey,
		record.URL,
		record.MIME,
		record.Bytes,
		metadata,
		record.CreatedAt,
	)
	return err
}

// ListByUser returns the user's records, newest first.
func (r *DesignRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.DesignRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListDesignRecordsByUser, userID, r.limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DesignRecord, 0)
	for rows.Next() {
		rec, err := scanDesignRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID loads one record owned by userID.
func (r *DesignRepositoryPG) GetByID(ctx context.Context, userID, id string) (*domain.DesignRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: design %s", domain.ErrNotFound, id)
	}
	rec, err := scanDesignRecord(r.sql.QueryRow(ctx, sqlinline.QSelectDesignRecord, id, userID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("%w: design %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// Delete removes one record owned by userID.
func (r *DesignRepositoryPG) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: design %s", domain.ErrNotFound, id)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteDesignRecord, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: design %s", domain.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDesignRecord(row rowScanner) (domain.DesignRecord, error) {
	var (
		rec      domain.DesignRecord
		kind     string
		metadata []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &kind, &rec.Title, &rec.StorageKey, &rec.URL, &rec.MIME, &rec.Bytes, &metadata, &rec.CreatedAt); err != nil {
		return domain.DesignRecord{}, err
	}
	rec.Kind = domain.DesignKind(kind)
	if len(metadata) > 0 && string(metadata) != "{}" {
		rec.Metadata = json.RawMessage(metadata)
	}
	return rec, nil
}

var _ domain.DesignRepository = (*DesignRepositoryPG)(nil)
