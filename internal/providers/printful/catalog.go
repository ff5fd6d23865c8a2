package printful

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"podstudio/internal/domain"
	"podstudio/internal/payload"
)

type variantEntry struct {
	variant domain.Variant
	product domain.Product
}

type printfileEntry struct {
	available []domain.PlacementID
	byVariant map[int64][]domain.PlacementID
}

// Variant returns the variant, its product, and the placements printable on it.
// Results are cached; catalog data changes rarely.
func (c *Client) Variant(ctx context.Context, variantID int64) (domain.Variant, domain.Product, error) {
	entry, ok := c.variants.Get(variantID)
	if !ok {
		envelope, err := c.do(ctx, http.MethodGet, "/products/variant/"+strconv.FormatInt(variantID, 10), nil, nil)
		if err != nil {
			return domain.Variant{}, domain.Product{}, fmt.Errorf("lookup variant %d: %w", variantID, err)
		}
		result := envelope.Object("result")
		if result == nil {
			return domain.Variant{}, domain.Product{}, fmt.Errorf("lookup variant %d: %w", variantID, domain.ErrNotFound)
		}
		entry = variantEntry{
			variant: parseVariant(result.Object("variant")),
			product: parseProduct(result.Object("product")),
		}
		if entry.variant.ProductID == 0 {
			entry.variant.ProductID = entry.product.ID
		}
		c.variants.Add(variantID, entry)
	}

	placements, err := c.placements(ctx, entry.variant.ProductID, variantID)
	if err != nil {
		return domain.Variant{}, domain.Product{}, err
	}
	v := entry.variant
	v.Placements = placements
	return v, entry.product, nil
}

// Product returns a catalog product with its variants. Variants carry no
// placements; use Variant for a fully populated one.
func (c *Client) Product(ctx context.Context, productID int64) (domain.Product, []domain.Variant, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(productID, 10), nil, nil)
	if err != nil {
		return domain.Product{}, nil, fmt.Errorf("lookup product %d: %w", productID, err)
	}
	result := envelope.Object("result")
	if result == nil {
		return domain.Product{}, nil, fmt.Errorf("lookup product %d: %w", productID, domain.ErrNotFound)
	}
	product := parseProduct(result.Object("product"))
	var variants []domain.Variant
	for _, raw := range result.Objects("variants") {
		v := parseVariant(raw)
		if v.ProductID == 0 {
			v.ProductID = product.ID
		}
		variants = append(variants, v)
	}
	return product, variants, nil
}

// placements lists the print locations of variantID, falling back to the
// product-wide list when the provider has no per-variant entry.
func (c *Client) placements(ctx context.Context, productID, variantID int64) ([]domain.PlacementID, error) {
	entry, ok := c.printfiles.Get(productID)
	if !ok {
		envelope, err := c.do(ctx, http.MethodGet, "/mockup-generator/printfiles/"+strconv.FormatInt(productID, 10), nil, nil)
		if err != nil {
			return nil, fmt.Errorf("lookup printfiles %d: %w", productID, err)
		}
		entry = parsePrintfiles(envelope.Object("result"))
		c.printfiles.Add(productID, entry)
	}
	if ids, ok := entry.byVariant[variantID]; ok && len(ids) > 0 {
		return slices.Clone(ids), nil
	}
	return slices.Clone(entry.available), nil
}

func parseVariant(obj payload.Object) domain.Variant {
	return domain.Variant{
		ID:        obj.Int(0, "id", "variant_id"),
		ProductID: obj.Int(0, "product_id", "productId"),
		Name:      obj.String("", "name", "title"),
		Size:      obj.String("", "size"),
		Color:     obj.String("", "color"),
		ColorCode: obj.String("#ffffff", "color_code", "colorCode", "hex"),
		Price:     obj.String("", "price", "retail_price"),
	}
}

func parseProduct(obj payload.Object) domain.Product {
	return domain.Product{
		ID:    obj.Int(0, "id", "product_id"),
		Title: obj.String("", "title", "model", "name"),
		Type:  obj.String("", "type", "type_name"),
		Image: obj.String("", "image", "thumbnail_url"),
	}
}

func parsePrintfiles(obj payload.Object) printfileEntry {
	entry := printfileEntry{byVariant: map[int64][]domain.PlacementID{}}
	entry.available = placementKeys(obj.Object("available_placements", "placements"))
	for _, vp := range obj.Objects("variant_printfiles") {
		id := vp.Int(0, "variant_id")
		if id == 0 {
			continue
		}
		entry.byVariant[id] = placementKeys(vp.Object("placements"))
	}
	return entry
}

// placementKeys returns the object's keys in sorted order.
func placementKeys(obj payload.Object) []domain.PlacementID {
	ids := make([]domain.PlacementID, 0, len(obj))
	for key := range obj {
		ids = append(ids, domain.PlacementID(key))
	}
	slices.Sort(ids)
	return ids
}
