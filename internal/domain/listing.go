package domain

import "time"

// ListingDraft is what the user typed on the publish step. Theme, Locale and
// ProductTitle only feed the name suggestion when Name is left blank.
type ListingDraft struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Theme        string `json:"theme,omitempty"`
	Locale       string `json:"-"`
	ProductTitle string `json:"-"`
}

// ListingFile is one print file attached to the listing variant.
type ListingFile struct {
	URL          string `json:"url"`
	PlacementTag string `json:"placement_tag,omitempty"`
}

// Listing is the commerce listing created by one publish call. It is never mutated;
// publishing again creates a new one.
type Listing struct {
	ID           string        `json:"id"`
	ExternalID   string        `json:"external_id,omitempty"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	ThumbnailURL string        `json:"thumbnail_url"`
	VariantID    int64         `json:"variant_id"`
	Price        string        `json:"price"`
	Files        []ListingFile `json:"files"`
	CreatedAt    time.Time     `json:"created_at"`
}
