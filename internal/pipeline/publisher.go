package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/providers/copywriter"
	"podstudio/internal/providers/printful"
)

// DefaultPlacements are the placement ids attached as the primary print file.
var DefaultPlacements = []domain.PlacementID{"default", "front"}

// StoreProvider creates commerce listings.
type StoreProvider interface {
	CreateStoreProduct(ctx context.Context, req printful.SyncProductRequest) (printful.SyncProduct, error)
}

type PublisherOptions struct {
	Copywriter copywriter.Copywriter
	Logger     *infra.Logger
}

// Publisher turns finished mockups into a store listing.
type Publisher struct {
	provider   StoreProvider
	copywriter copywriter.Copywriter
	logger     *infra.Logger
	now        func() time.Time
	newID      func() string
}

func NewPublisher(provider StoreProvider, opts PublisherOptions) *Publisher {
	cw := opts.Copywriter
	if cw == nil {
		cw = copywriter.NewStaticCopywriter()
	}
	return &Publisher{
		provider:   provider,
		copywriter: cw,
		logger:     infra.LoggerOrDiscard(opts.Logger),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Publish creates one listing. Each placement is paired with the mockup URL
// at the same position, or the first URL when there are fewer mockups than
// placements. A provider rejection fails with domain.ErrPublishRejected
// carrying the provider message.
func (p *Publisher) Publish(ctx context.Context, draft domain.ListingDraft, mockupURLs []string, variant domain.Variant, placements []domain.PlacementID) (domain.Listing, error) {
	if len(mockupURLs) == 0 {
		return domain.Listing{}, fmt.Errorf("%w: no mockups to publish", domain.ErrStageNotReady)
	}
	if len(placements) == 0 {
		placements = []domain.PlacementID{DefaultPlacements[0]}
	}

	if strings.TrimSpace(draft.Name) == "" {
		suggested, err := p.copywriter.Draft(ctx, copywriter.Request{
			ProductTitle: draft.ProductTitle,
			VariantName:  variant.Name,
			Color:        variant.Color,
			Placements:   placementStrings(placements),
			Hint:         draft.Theme,
			Locale:       draft.Locale,
		})
		if err != nil {
			return domain.Listing{}, fmt.Errorf("draft listing name: %w", err)
		}
		draft.Name = suggested.Name
		if draft.Description == "" {
			draft.Description = suggested.Description
		}
	}

	price := strings.TrimSpace(draft.Price)
	if price == "" {
		price = variant.Price
	}
	if price != "" {
		if _, err := strconv.ParseFloat(price, 64); err != nil {
			return domain.Listing{}, fmt.Errorf("%w: invalid price %q", domain.ErrPublishRejected, price)
		}
	}

	thumbnail := strings.TrimSpace(draft.ThumbnailURL)
	if thumbnail == "" {
		thumbnail = mockupURLs[0]
	}

	files := ListingFiles(mockupURLs, placements)
	req := printful.SyncProductRequest{}
	req.SyncProduct.Name = draft.Name
	req.SyncProduct.Thumbnail = thumbnail
	syncFiles := make([]printful.SyncFile, 0, len(files))
	for _, f := range files {
		syncFiles = append(syncFiles, printful.SyncFile{URL: f.URL, Type: f.PlacementTag})
	}
	req.SyncVariants = []printful.SyncVariant{{VariantID: variant.ID, RetailPrice: price, Files: syncFiles}}

	created, err := p.provider.CreateStoreProduct(ctx, req)
	if err != nil {
		var apiErr *printful.APIError
		if errors.As(err, &apiErr) {
			return domain.Listing{}, fmt.Errorf("%w: %s", domain.ErrPublishRejected, apiErr.Message)
		}
		return domain.Listing{}, err
	}

	listing := domain.Listing{
		ID:           p.newID(),
		Name:         draft.Name,
		Description:  draft.Description,
		ThumbnailURL: thumbnail,
		VariantID:    variant.ID,
		Price:        price,
		Files:        files,
		CreatedAt:    p.now().UTC(),
	}
	if created.ID != 0 {
		listing.ExternalID = strconv.FormatInt(created.ID, 10)
	}
	p.logger.Info().Str("listing_id", listing.ID).Str("external_id", listing.ExternalID).Int64("variant_id", variant.ID).Msg("publisher: listing created")
	return listing, nil
}

// ListingFiles pairs placements with mockup URLs by position. Default
// placements carry no tag; others are tagged with their id.
func ListingFiles(mockupURLs []string, placements []domain.PlacementID) []domain.ListingFile {
	files := make([]domain.ListingFile, 0, len(placements))
	for i, placement := range placements {
		url := mockupURLs[0]
		if i < len(mockupURLs) {
			url = mockupURLs[i]
		}
		file := domain.ListingFile{URL: url}
		if !slices.Contains(DefaultPlacements, placement) {
			file.PlacementTag = string(placement)
		}
		files = append(files, file)
	}
	return files
}

func placementStrings(ids []domain.PlacementID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
