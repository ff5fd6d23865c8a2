package domain

import (
	"fmt"
	"time"
)

// RenderStatus is the lifecycle state of a mockup render job.
type RenderStatus string

const (
	RenderPending   RenderStatus = "pending"
	RenderCompleted RenderStatus = "completed"
	RenderFailed    RenderStatus = "failed"
	RenderTimedOut  RenderStatus = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s RenderStatus) Terminal() bool {
	return s == RenderCompleted || s == RenderFailed || s == RenderTimedOut
}

// RenderJob tracks one submission to the mockup provider.
type RenderJob struct {
	ID         string                 `json:"id"`
	ProductID  int64                  `json:"product_id"`
	VariantID  int64                  `json:"variant_id"`
	Placements map[PlacementID]string `json:"placements"`
	Status     RenderStatus           `json:"status"`
	ResultURLs []string               `json:"result_urls,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Attempts   int                    `json:"attempts"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// Transition moves the job forward. Terminal states are immutable.
func (j *RenderJob) Transition(to RenderStatus, detail string) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	if to == RenderPending {
		return nil
	}
	j.Status = to
	j.Error = detail
	now := time.Now().UTC()
	j.FinishedAt = &now
	return nil
}

// AddResultURL appends url unless it is already present, keeping first-seen order.
func (j *RenderJob) AddResultURL(url string) bool {
	for _, existing := range j.ResultURLs {
		if existing == url {
			return false
		}
	}
	j.ResultURLs = append(j.ResultURLs, url)
	return true
}
