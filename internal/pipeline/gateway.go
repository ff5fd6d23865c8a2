package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
)

// SaveMetadata describes a library entry.
type SaveMetadata struct {
	Kind  domain.DesignKind
	Title string
	Extra map[string]any
}

// Gateway stores finished designs and photoshoot images in the user's library.
type Gateway struct {
	artifacts *ArtifactStore
	repo      domain.DesignRepository
	logger    *infra.Logger
	now       func() time.Time
	newID     func() string
}

func NewGateway(artifacts *ArtifactStore, repo domain.DesignRepository, logger *infra.Logger) *Gateway {
	return &Gateway{
		artifacts: artifacts,
		repo:      repo,
		logger:    infra.LoggerOrDiscard(logger),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Save uploads the image bytes, then writes one record owned by userID. A
// record that cannot be written takes its uploaded object with it.
func (g *Gateway) Save(ctx context.Context, userID string, image domain.ImageRef, meta SaveMetadata) (domain.DesignRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.DesignRecord{}, domain.ErrUnauthorized
	}
	kind := meta.Kind
	if !kind.Valid() {
		kind = domain.DesignKindDesign
	}

	art, err := g.artifacts.Upload(ctx, image, fmt.Sprintf("library/%s/%s", userID, kind))
	if err != nil {
		return domain.DesignRecord{}, err
	}

	var metadata json.RawMessage
	if len(meta.Extra) > 0 {
		encoded, err := json.Marshal(meta.Extra)
		if err != nil {
			return domain.DesignRecord{}, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = encoded
	}

	record := domain.DesignRecord{
		ID:         g.newID(),
		UserID:     userID,
		Kind:       kind,
		Title:      strings.TrimSpace(meta.Title),
		StorageKey: art.Key,
		URL:        art.URL,
		MIME:       art.MIME,
		Bytes:      art.Size,
		Metadata:   metadata,
		CreatedAt:  g.now().UTC(),
	}
	if err := g.repo.Create(ctx, &record); err != nil {
		if delErr := g.artifacts.Delete(ctx, art.Key); delErr != nil {
			g.logger.Warn().Err(delErr).Str("key", art.Key).Msg("gateway: cleanup after failed save")
		}
		return domain.DesignRecord{}, fmt.Errorf("save design record: %w", err)
	}
	g.logger.Info().Str("design_id", record.ID).Str("kind", string(kind)).Msg("gateway: design saved")
	return record, nil
}

// List returns the user's records, newest first.
func (g *Gateway) List(ctx context.Context, userID string) ([]domain.DesignRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return g.repo.ListByUser(ctx, userID)
}

// Delete removes the stored object when the record names one, then the record.
// Object deletion failures are logged, never fatal.
func (g *Gateway) Delete(ctx context.Context, userID, id string) error {
	record, err := g.repo.GetByID(ctx, userID, id)
	switch {
	case err == nil && record != nil && record.StorageKey != "":
		if delErr := g.artifacts.Delete(ctx, record.StorageKey); delErr != nil {
			g.logger.Warn().Err(delErr).Str("design_id", id).Str("key", record.StorageKey).Msg("gateway: delete stored object")
		}
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		g.logger.Warn().Err(err).Str("design_id", id).Msg("gateway: lookup before delete")
	}
	return g.repo.Delete(ctx, userID, id)
}
