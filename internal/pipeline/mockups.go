package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/providers/printful"
	"podstudio/internal/retry"
)

// CanvasPosition is the fixed print canvas every placement is rendered with.
var CanvasPosition = printful.Position{
	AreaWidth:  1800,
	AreaHeight: 2400,
	Width:      1800,
	Height:     1800,
	Top:        300,
	Left:       0,
}

// Provider task statuses.
const (
	taskCompleted = "completed"
	taskFailed    = "failed"
)

// MockupProvider runs asynchronous mockup renders.
type MockupProvider interface {
	CreateMockupTask(ctx context.Context, productID int64, req printful.MockupTaskRequest) (printful.TaskRef, error)
	MockupTask(ctx context.Context, taskKey string) (printful.TaskResult, error)
}

type CoordinatorOptions struct {
	PollInterval time.Duration
	PollAttempts int
	Sleep        func(ctx context.Context, d time.Duration) error
	Logger       *infra.Logger
}

// MockupCoordinator submits render jobs and polls them to a terminal state.
// It never cancels a provider job; giving up only stops polling.
type MockupCoordinator struct {
	provider MockupProvider
	interval time.Duration
	attempts int
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *infra.Logger
	now      func() time.Time
}

var (
	errTaskPending = errors.New("mockup task still pending")
	errPollSkipped = errors.New("mockup status poll skipped")
)

func NewMockupCoordinator(provider MockupProvider, opts CoordinatorOptions) *MockupCoordinator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	attempts := opts.PollAttempts
	if attempts <= 0 {
		attempts = 30
	}
	return &MockupCoordinator{
		provider: provider,
		interval: interval,
		attempts: attempts,
		sleep:    opts.Sleep,
		logger:   infra.LoggerOrDiscard(opts.Logger),
		now:      time.Now,
	}
}

// Submit creates one render task with a file per placement. Files follow
// order, which should be the placement order the mockups are later paired
// with; placements missing from order come after it sorted by id. A rejected
// call or a missing task key fails with domain.ErrJobSubmissionRejected.
func (m *MockupCoordinator) Submit(ctx context.Context, productID, variantID int64, placementImages map[domain.PlacementID]string, order ...domain.PlacementID) (domain.RenderJob, error) {
	if len(placementImages) == 0 {
		return domain.RenderJob{}, fmt.Errorf("%w: no placements to render", domain.ErrStageNotReady)
	}

	ids := submissionOrder(placementImages, order)

	req := printful.MockupTaskRequest{VariantIDs: []int64{variantID}}
	for _, id := range ids {
		req.Files = append(req.Files, printful.MockupFile{
			Placement: string(id),
			ImageURL:  placementImages[id],
			Position:  CanvasPosition,
		})
	}

	ref, err := m.provider.CreateMockupTask(ctx, productID, req)
	if err != nil {
		var apiErr *printful.APIError
		if errors.As(err, &apiErr) {
			return domain.RenderJob{}, fmt.Errorf("%w: %s", domain.ErrJobSubmissionRejected, apiErr.Message)
		}
		return domain.RenderJob{}, err
	}
	if ref.Key == "" {
		return domain.RenderJob{}, fmt.Errorf("%w: provider returned no task key", domain.ErrJobSubmissionRejected)
	}

	job := domain.RenderJob{
		ID:         ref.Key,
		ProductID:  productID,
		VariantID:  variantID,
		Placements: maps.Clone(placementImages),
		Status:     domain.RenderPending,
		CreatedAt:  m.now().UTC(),
	}
	m.logger.Info().Str("task_key", job.ID).Int64("variant_id", variantID).Int("files", len(ids)).Msg("mockups: task submitted")
	return job, nil
}

// AwaitCompletion polls job every interval for at most the configured number
// of attempts. Failed polls are skipped. The job is moved to its terminal
// status before returning.
func (m *MockupCoordinator) AwaitCompletion(ctx context.Context, job *domain.RenderJob) ([]string, error) {
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: task %s is already %s", domain.ErrInvalidTransition, job.ID, job.Status)
	}
	policy := retry.Policy{
		MaxAttempts: m.attempts,
		Delay:       m.interval,
		Sleep:       m.sleep,
		IsRetryable: func(err error) bool {
			return errors.Is(err, errTaskPending) || errors.Is(err, errPollSkipped)
		},
	}

	var urls []string
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		job.Attempts = attempt
		res, err := m.provider.MockupTask(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Debug().Err(err).Str("task_key", job.ID).Int("attempt", attempt).Msg("mockups: status poll failed; skipping")
			return fmt.Errorf("%w: %w", errPollSkipped, err)
		}
		switch res.Status {
		case taskCompleted:
			urls = FlattenMockups(res.Mockups)
			if len(urls) == 0 {
				return domain.ErrNoMockupsProduced
			}
			return nil
		case taskFailed:
			detail := res.Error
			if detail == "" {
				detail = "provider reported failure"
			}
			return fmt.Errorf("%w: %s", domain.ErrJobFailed, detail)
		default:
			return errTaskPending
		}
	})

	switch {
	case err == nil:
		for _, u := range urls {
			job.AddResultURL(u)
		}
		if err := job.Transition(domain.RenderCompleted, ""); err != nil {
			return nil, err
		}
		m.logger.Info().Str("task_key", job.ID).Int("mockups", len(urls)).Int("attempts", job.Attempts).Msg("mockups: task completed")
		return slices.Clone(job.ResultURLs), nil
	case errors.Is(err, retry.ErrExhausted):
		if terr := job.Transition(domain.RenderTimedOut, "polling gave up"); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("%w: task %s after %d polls", domain.ErrJobTimedOut, job.ID, job.Attempts)
	case errors.Is(err, domain.ErrJobFailed), errors.Is(err, domain.ErrNoMockupsProduced):
		if terr := job.Transition(domain.RenderFailed, err.Error()); terr != nil {
			return nil, terr
		}
		return nil, err
	default:
		return nil, err
	}
}

// Render submits and waits. The returned job reflects the final status even
// when an error is returned.
func (m *MockupCoordinator) Render(ctx context.Context, productID, variantID int64, placementImages map[domain.PlacementID]string, order ...domain.PlacementID) (domain.RenderJob, error) {
	job, err := m.Submit(ctx, productID, variantID, placementImages, order...)
	if err != nil {
		return domain.RenderJob{}, err
	}
	if _, err := m.AwaitCompletion(ctx, &job); err != nil {
		return job, err
	}
	return job, nil
}

func submissionOrder(placementImages map[domain.PlacementID]string, order []domain.PlacementID) []domain.PlacementID {
	ids := make([]domain.PlacementID, 0, len(placementImages))
	seen := make(map[domain.PlacementID]struct{}, len(placementImages))
	for _, id := range order {
		if _, ok := placementImages[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	var rest []domain.PlacementID
	for id := range placementImages {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

// FlattenMockups joins every primary and extra URL into one sequence, keeping
// the first occurrence of each exact string.
func FlattenMockups(mockups []printful.Mockup) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, m := range mockups {
		add(m.URL)
		for _, extra := range m.Extra {
			add(extra)
		}
	}
	return out
}
