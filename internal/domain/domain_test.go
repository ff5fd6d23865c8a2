package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestRenderJobTransitionsForwardOnly(t *testing.T) {
	job := &RenderJob{ID: "task-1", Status: RenderPending}
	if err := job.Transition(RenderPending, ""); err != nil {
		t.Fatalf("pending -> pending should be a no-op: %v", err)
	}
	if err := job.Transition(RenderCompleted, ""); err != nil {
		t.Fatalf("pending -> completed: %v", err)
	}
	if job.FinishedAt == nil {
		t.Fatal("finished_at should be set on terminal transition")
	}
	for _, to := range []RenderStatus{RenderPending, RenderFailed, RenderTimedOut, RenderCompleted} {
		if err := job.Transition(to, "late"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("completed -> %s: expected ErrInvalidTransition, got %v", to, err)
		}
	}
	if job.Status != RenderCompleted || job.Error != "" {
		t.Fatalf("terminal job mutated: %+v", job)
	}
}

func TestRenderJobAddResultURLSuppressesDuplicates(t *testing.T) {
	job := &RenderJob{}
	for _, u := range []string{"A", "B", "A", "C", "B"} {
		job.AddResultURL(u)
	}
	want := []string{"A", "B", "C"}
	if len(job.ResultURLs) != len(want) {
		t.Fatalf("result urls = %v, want %v", job.ResultURLs, want)
	}
	for i := range want {
		if job.ResultURLs[i] != want[i] {
			t.Fatalf("result urls = %v, want %v", job.ResultURLs, want)
		}
	}
}

func TestImageRefValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     ImageRef
		wantErr bool
	}{
		{name: "local file", ref: LocalFile("/tmp/a.png")},
		{name: "remote https", ref: RemoteURL("https://cdn.example.com/a.png")},
		{name: "inline", ref: InlineBase64("iVBORw0KGgo=", "image/png")},
		{name: "local without path", ref: ImageRef{Kind: ImageRefLocalFile}, wantErr: true},
		{name: "remote ftp", ref: RemoteURL("ftp://example.com/a.png"), wantErr: true},
		{name: "inline empty", ref: InlineBase64(" ", "image/png"), wantErr: true},
		{name: "unknown kind", ref: ImageRef{Kind: "s3"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ref.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidImageRef) {
				t.Fatalf("error should wrap ErrInvalidImageRef: %v", err)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	rejected := fmt.Errorf("%w: %w", ErrPublishRejected, errors.New("Invalid retail price"))
	if got := UserMessage(rejected); got != "The store rejected this listing. Invalid retail price" {
		t.Fatalf("UserMessage(publish) = %q", got)
	}
	timedOut := fmt.Errorf("%w: after 30 polls", ErrJobTimedOut)
	if got := UserMessage(timedOut); got != "Mockups are taking longer than expected. Please retry." {
		t.Fatalf("UserMessage(timeout) = %q", got)
	}
	if got := UserMessage(errors.New("boom")); got == "" {
		t.Fatal("unknown errors still need a message")
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("UserMessage(nil) = %q", got)
	}
}
