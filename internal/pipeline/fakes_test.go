package pipeline

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/providers/genai"
	"podstudio/internal/providers/printful"
	"podstudio/internal/storage"
)

// scriptedGenerator answers GenerateImage from a list of outcomes; the last
// outcome repeats once the script runs out.
type scriptedGenerator struct {
	mu       sync.Mutex
	outcomes []genOutcome
	requests []genai.ImageRequest
}

type genOutcome struct {
	data []byte
	err  error
}

func (g *scriptedGenerator) GenerateImage(ctx context.Context, req genai.ImageRequest) (genai.ImageResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	out := g.outcomes[min(len(g.requests), len(g.outcomes))-1]
	if out.err != nil {
		return genai.ImageResult{}, out.err
	}
	return genai.ImageResult{Image: genai.InlineImage{MIME: "image/png", Data: out.data}}, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// scriptedProvider is a mockup provider whose polls follow a script.
type scriptedProvider struct {
	mu        sync.Mutex
	createErr error
	taskKey   string
	polls     []pollOutcome
	submitted []printful.MockupTaskRequest
	pollCalls int
	// echoFiles completes every poll with one mockup per submitted file,
	// in file order.
	echoFiles bool
	onPoll    func()
}

type pollOutcome struct {
	res printful.TaskResult
	err error
}

func (p *scriptedProvider) CreateMockupTask(ctx context.Context, productID int64, req printful.MockupTaskRequest) (printful.TaskRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, req)
	if p.createErr != nil {
		return printful.TaskRef{}, p.createErr
	}
	return printful.TaskRef{Key: p.taskKey, Status: "pending"}, nil
}

func (p *scriptedProvider) MockupTask(ctx context.Context, taskKey string) (printful.TaskResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollCalls++
	if p.onPoll != nil {
		p.onPoll()
	}
	if p.echoFiles {
		req := p.submitted[len(p.submitted)-1]
		mockups := make([]printful.Mockup, 0, len(req.Files))
		for _, f := range req.Files {
			mockups = append(mockups, printful.Mockup{Placement: f.Placement, URL: "mockup-of-" + f.Placement})
		}
		return printful.TaskResult{Status: "completed", Mockups: mockups}, nil
	}
	out := p.polls[min(p.pollCalls, len(p.polls))-1]
	return out.res, out.err
}

func pending() pollOutcome {
	return pollOutcome{res: printful.TaskResult{Status: "pending"}}
}

func transportError() pollOutcome {
	return pollOutcome{err: &printful.APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}}
}

func completed(mockups ...printful.Mockup) pollOutcome {
	return pollOutcome{res: printful.TaskResult{Status: "completed", Mockups: mockups}}
}

func failed(msg string) pollOutcome {
	return pollOutcome{res: printful.TaskResult{Status: "failed", Error: msg}}
}

// sleepRecorder replaces wall-clock waits.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.waits {
		sum += d
	}
	return sum
}

// memoryRepo is an in-memory DesignRepository.
type memoryRepo struct {
	mu        sync.Mutex
	records   map[string]domain.DesignRecord
	createErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]domain.DesignRecord{}}
}

func (r *memoryRepo) Create(ctx context.Context, record *domain.DesignRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.records[record.ID] = *record
	return nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string) ([]domain.DesignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DesignRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, userID, id string) (*domain.DesignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// servedFileStore is a FileStore whose base URL is a live static file server,
// standing in for a reachable public bucket.
func servedFileStore(t *testing.T) (*storage.FileStore, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	srv := httptest.NewServer(http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	t.Cleanup(srv.Close)
	store, err := storage.NewFileStore(dir, srv.URL+"/static")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return store, srv
}

func newTestArtifactStore(t *testing.T) (*ArtifactStore, *storage.FileStore, *httptest.Server) {
	t.Helper()
	store, srv := servedFileStore(t)
	resolver := imageref.NewResolver(imageref.Options{HTTPClient: srv.Client(), TempDir: t.TempDir()})
	arts := NewArtifactStore(store, resolver, ArtifactOptions{ProbeClient: srv.Client()})
	arts.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return arts, store, srv
}

func inlinePNG(payload string) domain.ImageRef {
	return domain.InlineBase64(base64.StdEncoding.EncodeToString([]byte(payload)), "image/png")
}

func placementsOf(files []printful.MockupFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Placement
	}
	return out
}
