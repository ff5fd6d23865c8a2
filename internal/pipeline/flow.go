package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/session"
)

var errNoLibrary = errors.New("pipeline: no design library configured")

// Catalog resolves catalog selections.
type Catalog interface {
	Product(ctx context.Context, productID int64) (domain.Product, []domain.Variant, error)
	Variant(ctx context.Context, variantID int64) (domain.Variant, domain.Product, error)
}

type FlowDeps struct {
	Catalog    Catalog
	Compositor *Compositor
	Artifacts  *ArtifactStore
	Mockups    *MockupCoordinator
	Publisher  *Publisher
	Gateway    *Gateway
	Logger     *infra.Logger
}

// Flow runs pipeline steps against one session. Each step reads its input
// from a snapshot, runs without holding the session lock, and writes its
// result back only when it finishes. A second step on the same session fails
// with domain.ErrSessionBusy until the first returns.
type Flow struct {
	catalog    Catalog
	compositor *Compositor
	artifacts  *ArtifactStore
	mockups    *MockupCoordinator
	publisher  *Publisher
	gateway    *Gateway
	logger     *infra.Logger
}

func NewFlow(deps FlowDeps) *Flow {
	return &Flow{
		catalog:    deps.Catalog,
		compositor: deps.Compositor,
		artifacts:  deps.Artifacts,
		mockups:    deps.Mockups,
		publisher:  deps.Publisher,
		gateway:    deps.Gateway,
		logger:     infra.LoggerOrDiscard(deps.Logger),
	}
}

// SelectProduct looks the product up and selects it.
func (f *Flow) SelectProduct(ctx context.Context, sess *session.Session, productID int64) (session.State, error) {
	product, _, err := f.catalog.Product(ctx, productID)
	if err != nil {
		return sess.View(), err
	}
	return sess.Update(func(s *session.State) error {
		s.SetProduct(product)
		return nil
	})
}

// SelectVariant looks the variant up, with its placements, and selects it.
func (f *Flow) SelectVariant(ctx context.Context, sess *session.Session, variantID int64) (session.State, error) {
	variant, _, err := f.catalog.Variant(ctx, variantID)
	if err != nil {
		return sess.View(), err
	}
	return sess.Update(func(s *session.State) error {
		return s.SetVariant(variant)
	})
}

// SelectPlacements sets the print locations for the selected variant.
func (f *Flow) SelectPlacements(sess *session.Session, ids []domain.PlacementID) (session.State, error) {
	return sess.Update(func(s *session.State) error {
		return s.SetPlacements(ids)
	})
}

// SetSources replaces the source images the next generation reads.
func (f *Flow) SetSources(sess *session.Session, primary, secondary *domain.ImageRef) (session.State, error) {
	return sess.Update(func(s *session.State) error {
		return s.SetSources(primary, secondary)
	})
}

// Generate composes the source images into a new artifact.
func (f *Flow) Generate(ctx context.Context, sess *session.Session, guidance string) (session.State, error) {
	return f.run(sess, "generate", func(snap session.State) (func(*session.State), error) {
		if snap.Sources.Primary == nil {
			return nil, domain.ErrPrimaryRequired
		}
		art, err := f.compositor.Composite(ctx, *snap.Sources.Primary, snap.Sources.Secondary, guidance)
		if err != nil {
			return nil, err
		}
		return func(s *session.State) { s.SetArtifact(art) }, nil
	})
}

// Remix replaces the artifact with a variation of itself. On failure the
// current artifact is kept.
func (f *Flow) Remix(ctx context.Context, sess *session.Session, instruction string) (session.State, error) {
	return f.run(sess, "remix", func(snap session.State) (func(*session.State), error) {
		if snap.Artifact == nil {
			return nil, fmt.Errorf("%w: generate a design first", domain.ErrStageNotReady)
		}
		art, err := f.compositor.Remix(ctx, *snap.Artifact, instruction)
		if err != nil {
			return nil, err
		}
		return func(s *session.State) { s.SetArtifact(art) }, nil
	})
}

// RenderMockups uploads the artifact if needed, checks that it is reachable,
// and renders it onto every selected placement. An uploaded URL is kept even
// when the render fails so the step can be retried without re-uploading.
func (f *Flow) RenderMockups(ctx context.Context, sess *session.Session) (session.State, error) {
	return f.run(sess, "render", func(snap session.State) (func(*session.State), error) {
		switch {
		case snap.Artifact == nil:
			return nil, fmt.Errorf("%w: generate a design first", domain.ErrStageNotReady)
		case snap.Variant == nil:
			return nil, fmt.Errorf("%w: select a variant first", domain.ErrStageNotReady)
		case len(snap.Placements) == 0:
			return nil, fmt.Errorf("%w: select at least one placement", domain.ErrStageNotReady)
		}

		url := snap.ArtifactURL
		if url != "" {
			if err := f.artifacts.Probe(ctx, url); err != nil {
				f.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("flow: stored artifact unreachable; uploading again")
				url = ""
			}
		}
		uploaded := ""
		if url == "" {
			art, err := f.artifacts.UploadForRender(ctx, *snap.Artifact, "artifacts/"+sess.ID)
			if err != nil {
				return nil, err
			}
			url, uploaded = art.URL, art.URL
		}

		images := make(map[domain.PlacementID]string, len(snap.Placements))
		for _, id := range snap.Placements {
			images[id] = url
		}
		job, err := f.mockups.Render(ctx, snap.Variant.ProductID, snap.Variant.ID, images, snap.Placements...)
		apply := func(s *session.State) {
			if uploaded != "" {
				s.SetArtifactURL(uploaded)
			}
			// A cancelled wait leaves the job pending; only finished jobs are kept.
			switch {
			case err == nil:
				s.SetMockups(job)
			case job.Status.Terminal():
				s.RecordJob(job)
			}
		}
		return apply, err
	})
}

// Publish creates a store listing from the current mockups.
func (f *Flow) Publish(ctx context.Context, sess *session.Session, draft domain.ListingDraft) (session.State, error) {
	return f.run(sess, "publish", func(snap session.State) (func(*session.State), error) {
		if len(snap.MockupURLs) == 0 || snap.Variant == nil {
			return nil, fmt.Errorf("%w: render mockups first", domain.ErrStageNotReady)
		}
		if draft.ProductTitle == "" && snap.Product != nil {
			draft.ProductTitle = snap.Product.Title
		}
		listing, err := f.publisher.Publish(ctx, draft, snap.MockupURLs, *snap.Variant, snap.Placements)
		if err != nil {
			return nil, err
		}
		return func(s *session.State) { s.SetListing(listing) }, nil
	})
}

// Save stores the artifact (kind design) or every mockup (kind photoshoot)
// in the owner's library. It reads the session without locking it for the
// duration, so it may run alongside another step.
func (f *Flow) Save(ctx context.Context, sess *session.Session, kind domain.DesignKind, title string) ([]domain.DesignRecord, error) {
	if f.gateway == nil {
		return nil, errNoLibrary
	}
	snap := sess.View()
	extra := map[string]any{"session_id": sess.ID}
	if snap.Variant != nil {
		extra["variant_id"] = snap.Variant.ID
		extra["product_id"] = snap.Variant.ProductID
	}
	if len(snap.Placements) > 0 {
		extra["placements"] = snap.Placements
	}
	if title = strings.TrimSpace(title); title == "" && snap.Product != nil {
		title = snap.Product.Title
	}

	switch kind {
	case domain.DesignKindPhotoshoot:
		if len(snap.MockupURLs) == 0 {
			return nil, fmt.Errorf("%w: render mockups first", domain.ErrStageNotReady)
		}
		records := make([]domain.DesignRecord, 0, len(snap.MockupURLs))
		for i, u := range snap.MockupURLs {
			itemTitle := title
			if len(snap.MockupURLs) > 1 {
				itemTitle = fmt.Sprintf("%s #%d", title, i+1)
			}
			rec, err := f.gateway.Save(ctx, sess.UserID, domain.RemoteURL(u), SaveMetadata{Kind: kind, Title: itemTitle, Extra: extra})
			if err != nil {
				return records, err
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		if snap.Artifact == nil {
			return nil, fmt.Errorf("%w: generate a design first", domain.ErrStageNotReady)
		}
		rec, err := f.gateway.Save(ctx, sess.UserID, *snap.Artifact, SaveMetadata{Kind: domain.DesignKindDesign, Title: title, Extra: extra})
		if err != nil {
			return nil, err
		}
		return []domain.DesignRecord{rec}, nil
	}
}

// Reset discards every selection and result.
func (f *Flow) Reset(sess *session.Session) (session.State, error) {
	return sess.Update(func(s *session.State) error {
		s.Reset()
		return nil
	})
}

func (f *Flow) run(sess *session.Session, op string, step func(snap session.State) (func(*session.State), error)) (session.State, error) {
	snap, finish, err := sess.Begin(op)
	if err != nil {
		return sess.View(), err
	}
	defer finish(nil)

	apply, err := step(snap)
	finish(apply)
	if err != nil {
		f.logger.Warn().Err(err).Str("session_id", sess.ID).Str("step", op).Msg("flow: step failed")
		return sess.View(), err
	}
	f.logger.Info().Str("session_id", sess.ID).Str("step", op).Msg("flow: step completed")
	return sess.View(), nil
}
