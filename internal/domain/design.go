package domain

import (
	"encoding/json"
	"time"
)

// DesignKind separates finished designs from photoshoot (mockup) artifacts in a user's library.
type DesignKind string

const (
	DesignKindDesign     DesignKind = "design"
	DesignKindPhotoshoot DesignKind = "photoshoot"
)

// Valid reports whether k is a known kind.
func (k DesignKind) Valid() bool {
	return k == DesignKindDesign || k == DesignKindPhotoshoot
}

// DesignRecord is a saved library entry: metadata in the record store, bytes in object storage.
type DesignRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Kind       DesignKind      `json:"kind"`
	Title      string          `json:"title"`
	StorageKey string          `json:"storage_key"`
	URL        string          `json:"url"`
	MIME       string          `json:"mime"`
	Bytes      int64           `json:"bytes"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
