package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/providers/genai"
)

func newTestCompositor(gen ImageGenerator, sleeps *sleepRecorder) *Compositor {
	return NewCompositor(gen, imageref.NewResolver(imageref.Options{}), CompositorOptions{
		MaxAttempts: 10,
		RetryDelay:  2 * time.Second,
		Sleep:       sleeps.sleep,
	})
}

func TestCompositeRetriesTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{
		{err: domain.ErrTransientIO},
		{err: domain.ErrNoImageReturned},
		{data: []byte("design")},
	}}
	sleeps := &sleepRecorder{}

	ref, err := newTestCompositor(gen, sleeps).Composite(context.Background(), inlinePNG("src"), nil, "")
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps.waits)
	assert.Equal(t, domain.ImageRefInlineBase64, ref.Kind)
	decoded, err := base64.StdEncoding.DecodeString(ref.Data)
	require.NoError(t, err)
	assert.Equal(t, "design", string(decoded))
}

func TestCompositeFailsAfterExactlyMaxAttempts(t *testing.T) {
	last := errors.New("model said: try again later")
	gen := &scriptedGenerator{outcomes: []genOutcome{{err: errors.Join(domain.ErrNoImageReturned, last)}}}
	sleeps := &sleepRecorder{}

	_, err := newTestCompositor(gen, sleeps).Composite(context.Background(), inlinePNG("a"), nil, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorIs(t, err, last, "last cause is kept")
	assert.Equal(t, 10, gen.calls())
	assert.Len(t, sleeps.waits, 9)
}

func TestCompositeDoesNotRetryPermanentErrors(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{{err: errors.New("bad request shape")}}}

	_, err := newTestCompositor(gen, &sleepRecorder{}).Composite(context.Background(), inlinePNG("a"), nil, "")

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, 1, gen.calls())
}

func TestCompositeSelectsInstructionByArity(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{{data: []byte("ok")}}}
	c := newTestCompositor(gen, &sleepRecorder{})
	secondary := inlinePNG("b")

	_, err := c.Composite(context.Background(), inlinePNG("a"), nil, "")
	require.NoError(t, err)
	_, err = c.Composite(context.Background(), inlinePNG("a"), &secondary, "")
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	assert.Equal(t, SingleImageInstruction, gen.requests[0].Instruction)
	assert.Len(t, gen.requests[0].Images, 1)
	assert.Equal(t, MergeImagesInstruction, gen.requests[1].Instruction)
	require.Len(t, gen.requests[1].Images, 2)
	assert.Equal(t, "a", string(gen.requests[1].Images[0].Data), "primary stays first")
	assert.Equal(t, "b", string(gen.requests[1].Images[1].Data))
}

func TestInstructionForAppendsGuidance(t *testing.T) {
	got := InstructionFor(false, "  pastel colors ")
	assert.True(t, strings.HasPrefix(got, SingleImageInstruction))
	assert.True(t, strings.HasSuffix(got, "Additional guidance: pastel colors"))
	assert.Equal(t, MergeImagesInstruction, InstructionFor(true, ""))
}

func TestCompositeRejectsUnreadableSource(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{{data: []byte("ok")}}}

	_, err := newTestCompositor(gen, &sleepRecorder{}).Composite(context.Background(), domain.LocalFile("/does/not/exist.png"), nil, "")

	assert.ErrorIs(t, err, domain.ErrInvalidImageRef)
	assert.Equal(t, 0, gen.calls(), "nothing is sent when a source cannot be read")
}

func TestRemixIsNotRetried(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{{err: domain.ErrTransientIO}, {data: []byte("never")}}}

	_, err := newTestCompositor(gen, &sleepRecorder{}).Remix(context.Background(), inlinePNG("current"), "more blue")

	assert.ErrorIs(t, err, domain.ErrRemixFailed)
	assert.ErrorIs(t, err, domain.ErrTransientIO)
	assert.Equal(t, 1, gen.calls())
}

func TestRemixSendsOneImage(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []genOutcome{{data: []byte("remixed")}}}

	ref, err := newTestCompositor(gen, &sleepRecorder{}).Remix(context.Background(), inlinePNG("current"), "")
	require.NoError(t, err)

	require.Len(t, gen.requests, 1)
	assert.Equal(t, genai.ImageRequest{
		Images:      []genai.InlineImage{{MIME: "image/png", Data: []byte("current")}},
		Instruction: RemixInstruction,
	}, gen.requests[0])
	assert.NotEmpty(t, ref.Data)
}
