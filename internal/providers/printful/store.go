package printful

import (
	"context"
	"fmt"
	"net/http"
)

// SyncFile is a print file attached to a store variant. An empty Type marks the primary file.
type SyncFile struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// SyncVariant is one sellable variant of a store product.
type SyncVariant struct {
	VariantID   int64      `json:"variant_id"`
	RetailPrice string     `json:"retail_price,omitempty"`
	Files       []SyncFile `json:"files"`
}

// SyncProductRequest is the body of a store product creation.
type SyncProductRequest struct {
	SyncProduct struct {
		Name      string `json:"name"`
		Thumbnail string `json:"thumbnail,omitempty"`
	} `json:"sync_product"`
	SyncVariants []SyncVariant `json:"sync_variants"`
}

// SyncProduct is the created store product.
type SyncProduct struct {
	ID         int64
	ExternalID string
	Name       string
}

// CreateStoreProduct publishes a product to the connected store.
func (c *Client) CreateStoreProduct(ctx context.Context, req SyncProductRequest) (SyncProduct, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/store/products", nil, req)
	if err != nil {
		return SyncProduct{}, fmt.Errorf("create store product: %w", err)
	}
	result := envelope.Object("result")
	return SyncProduct{
		ID:         result.Int(0, "id"),
		ExternalID: result.String("", "external_id"),
		Name:       result.String(req.SyncProduct.Name, "name"),
	}, nil
}
