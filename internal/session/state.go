// Package session holds the memory-resident state of design flows.
package session

import (
	"fmt"
	"maps"
	"slices"

	"podstudio/internal/domain"
)

// Sources are the user-supplied inspiration images.
type Sources struct {
	Primary   *domain.ImageRef `json:"primary,omitempty"`
	Secondary *domain.ImageRef `json:"secondary,omitempty"`
}

// State is the selection and artifact record of one design flow. Setters
// encode the invalidation rules so downstream results never outlive the
// inputs they were derived from. State does no I/O and no locking.
type State struct {
	Product     *domain.Product      `json:"product,omitempty"`
	Variant     *domain.Variant      `json:"variant,omitempty"`
	Placements  []domain.PlacementID `json:"placements"`
	Sources     Sources              `json:"sources"`
	Artifact    *domain.ImageRef     `json:"artifact,omitempty"`
	ArtifactURL string               `json:"artifact_url,omitempty"`
	MockupURLs  []string             `json:"mockup_urls"`
	LastJob     *domain.RenderJob    `json:"last_job,omitempty"`
	Listing     *domain.Listing      `json:"listing,omitempty"`
}

// SetProduct selects p. A variant from another product is dropped together
// with everything derived from it.
func (s *State) SetProduct(p domain.Product) {
	if s.Variant != nil && s.Variant.ProductID != p.ID {
		s.Variant = nil
		s.Placements = nil
		s.clearArtifact()
	}
	s.Product = &p
}

// SetVariant selects v, which must belong to the selected product. Switching
// to a different variant clears placements, the artifact and mockups. Re-setting
// the same variant only drops placements it no longer offers.
func (s *State) SetVariant(v domain.Variant) error {
	if s.Product == nil || v.ProductID != s.Product.ID {
		return fmt.Errorf("%w: variant %d", domain.ErrVariantMismatch, v.ID)
	}
	if s.Variant == nil || s.Variant.ID != v.ID {
		s.Placements = nil
		s.clearArtifact()
		s.Variant = &v
		return nil
	}
	s.Variant = &v
	kept := slices.DeleteFunc(slices.Clone(s.Placements), func(id domain.PlacementID) bool {
		return !v.HasPlacement(id)
	})
	if !slices.Equal(kept, s.Placements) {
		s.Placements = kept
		s.clearMockups()
	}
	return nil
}

// SetPlacements replaces the placement set. Duplicates collapse in first-seen
// order. A changed set clears mockups but keeps the artifact.
func (s *State) SetPlacements(ids []domain.PlacementID) error {
	if s.Variant == nil {
		return fmt.Errorf("%w: select a variant first", domain.ErrStageNotReady)
	}
	next := make([]domain.PlacementID, 0, len(ids))
	for _, id := range ids {
		if !s.Variant.HasPlacement(id) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidPlacement, id)
		}
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	if slices.Equal(next, s.Placements) {
		return nil
	}
	s.Placements = next
	s.clearMockups()
	return nil
}

// SetSources replaces the inspiration images. A new primary or secondary
// invalidates the artifact and mockups.
func (s *State) SetSources(primary, secondary *domain.ImageRef) error {
	if primary == nil {
		return domain.ErrPrimaryRequired
	}
	if err := primary.Validate(); err != nil {
		return err
	}
	if secondary != nil {
		if err := secondary.Validate(); err != nil {
			return err
		}
	}
	changed := !sameRef(s.Sources.Primary, primary) || !sameRef(s.Sources.Secondary, secondary)
	s.Sources = Sources{Primary: cloneRef(primary), Secondary: cloneRef(secondary)}
	if changed {
		s.clearArtifact()
	}
	return nil
}

// SetArtifact overwrites the current design and drops everything derived from the previous one.
func (s *State) SetArtifact(ref domain.ImageRef) {
	s.clearArtifact()
	s.Artifact = &ref
}

// SetArtifactURL records where the current artifact was uploaded.
func (s *State) SetArtifactURL(url string) {
	s.ArtifactURL = url
}

// SetMockups stores the result of a completed render job.
func (s *State) SetMockups(job domain.RenderJob) {
	s.MockupURLs = slices.Clone(job.ResultURLs)
	s.LastJob = cloneJob(&job)
	s.Listing = nil
}

// RecordJob keeps a failed or timed out job for inspection without touching mockups.
func (s *State) RecordJob(job domain.RenderJob) {
	s.LastJob = cloneJob(&job)
}

// SetListing records the listing created from the current mockups.
func (s *State) SetListing(l domain.Listing) {
	s.Listing = &l
}

// Reset restores every field to its zero value.
func (s *State) Reset() {
	*s = State{}
}

// Snapshot returns a deep copy safe to hand to renderers.
func (s *State) Snapshot() State {
	out := State{
		Placements:  slices.Clone(s.Placements),
		Sources:     Sources{Primary: cloneRef(s.Sources.Primary), Secondary: cloneRef(s.Sources.Secondary)},
		Artifact:    cloneRef(s.Artifact),
		ArtifactURL: s.ArtifactURL,
		MockupURLs:  slices.Clone(s.MockupURLs),
		LastJob:     cloneJob(s.LastJob),
	}
	if s.Product != nil {
		p := *s.Product
		out.Product = &p
	}
	if s.Variant != nil {
		v := *s.Variant
		v.Placements = slices.Clone(v.Placements)
		out.Variant = &v
	}
	if s.Listing != nil {
		l := *s.Listing
		l.Files = slices.Clone(l.Files)
		out.Listing = &l
	}
	return out
}

func (s *State) clearArtifact() {
	s.Artifact = nil
	s.ArtifactURL = ""
	s.clearMockups()
}

func (s *State) clearMockups() {
	s.MockupURLs = nil
	s.LastJob = nil
	s.Listing = nil
}

func sameRef(a, b *domain.ImageRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneRef(r *domain.ImageRef) *domain.ImageRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func cloneJob(j *domain.RenderJob) *domain.RenderJob {
	if j == nil {
		return nil
	}
	c := *j
	c.ResultURLs = slices.Clone(j.ResultURLs)
	c.Placements = maps.Clone(j.Placements)
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
