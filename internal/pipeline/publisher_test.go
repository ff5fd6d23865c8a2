package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podstudio/internal/domain"
	"podstudio/internal/providers/copywriter"
	"podstudio/internal/providers/printful"
)

type recordingStore struct {
	requests []printful.SyncProductRequest
	err      error
}

func (s *recordingStore) CreateStoreProduct(ctx context.Context, req printful.SyncProductRequest) (printful.SyncProduct, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return printful.SyncProduct{}, s.err
	}
	return printful.SyncProduct{ID: 991, Name: req.SyncProduct.Name}, nil
}

type fixedCopywriter struct {
	got []copywriter.Request
}

func (f *fixedCopywriter) Draft(ctx context.Context, req copywriter.Request) (copywriter.Draft, error) {
	f.got = append(f.got, req)
	return copywriter.Draft{Name: "Suggested Name", Description: "Suggested description"}, nil
}

var teeVariant = domain.Variant{ID: 4012, ProductID: 71, Name: "Black / M", Color: "Black", Price: "12.95", Placements: []domain.PlacementID{"front", "back", "sleeve_left"}}

func TestListingFilesPairByPositionWithFallback(t *testing.T) {
	files := ListingFiles([]string{"M1", "M2"}, []domain.PlacementID{"front", "back", "sleeve_left"})

	assert.Equal(t, []domain.ListingFile{
		{URL: "M1"},
		{URL: "M2", PlacementTag: "back"},
		{URL: "M1", PlacementTag: "sleeve_left"},
	}, files)
}

func TestListingFilesDefaultPlacementIsUntagged(t *testing.T) {
	files := ListingFiles([]string{"M"}, []domain.PlacementID{"default"})
	assert.Equal(t, []domain.ListingFile{{URL: "M"}}, files)
}

func TestPublishBuildsProviderRequest(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, PublisherOptions{})

	listing, err := p.Publish(context.Background(),
		domain.ListingDraft{Name: "Sunset Tee", Price: "25.00"},
		[]string{"M1", "M2"}, teeVariant, []domain.PlacementID{"front", "back"})
	require.NoError(t, err)

	require.Len(t, store.requests, 1)
	req := store.requests[0]
	assert.Equal(t, "Sunset Tee", req.SyncProduct.Name)
	assert.Equal(t, "M1", req.SyncProduct.Thumbnail, "thumbnail defaults to the first mockup")
	require.Len(t, req.SyncVariants, 1)
	assert.Equal(t, int64(4012), req.SyncVariants[0].VariantID)
	assert.Equal(t, "25.00", req.SyncVariants[0].RetailPrice)
	assert.Equal(t, []printful.SyncFile{{URL: "M1"}, {URL: "M2", Type: "back"}}, req.SyncVariants[0].Files)

	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, "991", listing.ExternalID)
	assert.Equal(t, "M1", listing.ThumbnailURL)
	assert.Equal(t, int64(4012), listing.VariantID)
	assert.Len(t, listing.Files, 2)
}

func TestPublishFallsBackToVariantPrice(t *testing.T) {
	store := &recordingStore{}
	listing, err := NewPublisher(store, PublisherOptions{}).Publish(context.Background(),
		domain.ListingDraft{Name: "Tee"}, []string{"M"}, teeVariant, []domain.PlacementID{"front"})
	require.NoError(t, err)
	assert.Equal(t, "12.95", listing.Price)
}

func TestPublishDraftsNameWhenBlank(t *testing.T) {
	cw := &fixedCopywriter{}
	store := &recordingStore{}

	listing, err := NewPublisher(store, PublisherOptions{Copywriter: cw}).Publish(context.Background(),
		domain.ListingDraft{Theme: "sunset", Locale: "id", ProductTitle: "Unisex Tee"},
		[]string{"M"}, teeVariant, []domain.PlacementID{"front"})
	require.NoError(t, err)

	assert.Equal(t, "Suggested Name", listing.Name)
	assert.Equal(t, "Suggested description", listing.Description)
	require.Len(t, cw.got, 1)
	assert.Equal(t, copywriter.Request{
		ProductTitle: "Unisex Tee",
		VariantName:  "Black / M",
		Color:        "Black",
		Placements:   []string{"front"},
		Hint:         "sunset",
		Locale:       "id",
	}, cw.got[0])
}

func TestPublishRejectedCarriesProviderMessage(t *testing.T) {
	store := &recordingStore{err: &printful.APIError{StatusCode: 400, Code: 400, Message: "Store is not connected"}}

	_, err := NewPublisher(store, PublisherOptions{}).Publish(context.Background(),
		domain.ListingDraft{Name: "Tee"}, []string{"M"}, teeVariant, nil)

	assert.ErrorIs(t, err, domain.ErrPublishRejected)
	assert.Equal(t, "The store rejected this listing. Store is not connected", domain.UserMessage(err))
}

func TestPublishTransportErrorPropagates(t *testing.T) {
	store := &recordingStore{err: errors.Join(domain.ErrTransientIO, errors.New("timeout"))}

	_, err := NewPublisher(store, PublisherOptions{}).Publish(context.Background(),
		domain.ListingDraft{Name: "Tee"}, []string{"M"}, teeVariant, nil)

	assert.ErrorIs(t, err, domain.ErrTransientIO)
	assert.NotErrorIs(t, err, domain.ErrPublishRejected)
}

func TestPublishRequiresMockups(t *testing.T) {
	_, err := NewPublisher(&recordingStore{}, PublisherOptions{}).Publish(context.Background(),
		domain.ListingDraft{Name: "Tee"}, nil, teeVariant, nil)
	assert.ErrorIs(t, err, domain.ErrStageNotReady)
}

func TestPublishRejectsInvalidPrice(t *testing.T) {
	store := &recordingStore{}
	_, err := NewPublisher(store, PublisherOptions{}).Publish(context.Background(),
		domain.ListingDraft{Name: "Tee", Price: "cheap"}, []string{"M"}, teeVariant, nil)
	assert.ErrorIs(t, err, domain.ErrPublishRejected)
	assert.Empty(t, store.requests)
}
