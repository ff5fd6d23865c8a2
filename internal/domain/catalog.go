package domain

import "slices"

// PlacementID names a print location on a product, e.g. "front" or "back".
type PlacementID string

// Product is the catalog product a design flow targets.
type Product struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	Image string `json:"image,omitempty"`
}

// Variant is a size/color SKU of a product together with its printable placements.
type Variant struct {
	ID         int64         `json:"id"`
	ProductID  int64         `json:"product_id"`
	Name       string        `json:"name"`
	Size       string        `json:"size,omitempty"`
	Color      string        `json:"color,omitempty"`
	ColorCode  string        `json:"color_code"`
	Price      string        `json:"price,omitempty"`
	Placements []PlacementID `json:"placements"`
}

// HasPlacement reports whether id is printable on the variant.
func (v Variant) HasPlacement(id PlacementID) bool {
	return slices.Contains(v.Placements, id)
}
