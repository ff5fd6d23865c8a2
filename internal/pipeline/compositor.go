// Package pipeline sequences one design flow: compose the artifact, store it,
// render mockups, then publish or save the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/infra"
	"podstudio/internal/providers/genai"
	"podstudio/internal/retry"
)

// Instructions sent with the source images, selected by how many are supplied.
const (
	SingleImageInstruction = "Create a well-composed design from the image, ready to be printed on a product. " +
		"Keep the main subject sharp and centered on a clean background, with no text, borders or mockup frames."
	MergeImagesInstruction = "Merge both images into one cohesive image, ready to be printed on a product. " +
		"Blend the subjects into a single balanced composition with a consistent style and palette, with no text or borders."
	RemixInstruction = "Create a fresh variation of this design while keeping its subject, palette and print-ready composition."
)

// ImageGenerator produces one image from inline images plus an instruction.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (genai.ImageResult, error)
}

// ImageResolver turns an ImageRef into bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, ref domain.ImageRef) (imageref.Resolved, error)
}

type CompositorOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	// Sleep replaces the wait between attempts; nil waits on the wall clock.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *infra.Logger
}

// Compositor merges source images into one design through the generative API.
type Compositor struct {
	generator ImageGenerator
	resolver  ImageResolver
	policy    retry.Policy
	logger    *infra.Logger
}

func NewCompositor(generator ImageGenerator, resolver ImageResolver, opts CompositorOptions) *Compositor {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	logger := infra.LoggerOrDiscard(opts.Logger)
	return &Compositor{
		generator: generator,
		resolver:  resolver,
		logger:    logger,
		policy: retry.Policy{
			MaxAttempts: attempts,
			Delay:       delay,
			IsRetryable: isTransientGeneration,
			Sleep:       opts.Sleep,
			OnRetry: func(attempt int, err error) {
				logger.Warn().Err(err).Int("attempt", attempt).Msg("compositor: attempt failed; retrying")
			},
		},
	}
}

// InstructionFor picks the instruction by arity and appends caller guidance.
func InstructionFor(dual bool, guidance string) string {
	base := SingleImageInstruction
	if dual {
		base = MergeImagesInstruction
	}
	if guidance = strings.TrimSpace(guidance); guidance != "" {
		return base + "\nAdditional guidance: " + guidance
	}
	return base
}

// Composite generates one design from primary and the optional secondary
// image. Transient failures are retried up to the configured ceiling;
// exhaustion fails with domain.ErrGenerationFailed carrying the last cause.
func (c *Compositor) Composite(ctx context.Context, primary domain.ImageRef, secondary *domain.ImageRef, guidance string) (domain.ImageRef, error) {
	sources := []domain.ImageRef{primary}
	if secondary != nil {
		sources = append(sources, *secondary)
	}
	images, err := c.resolveAll(ctx, sources)
	if err != nil {
		return domain.ImageRef{}, err
	}

	req := genai.ImageRequest{Images: images, Instruction: InstructionFor(secondary != nil, guidance)}
	var result genai.ImageResult
	err = c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		res, err := c.generator.GenerateImage(ctx, req)
		if err != nil {
			return err
		}
		if len(res.Image.Data) == 0 {
			return fmt.Errorf("%w: empty image data", domain.ErrNoImageReturned)
		}
		result = res
		return nil
	})
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	c.logger.Info().
		Int("sources", len(sources)).
		Int("bytes", len(result.Image.Data)).
		Msg("compositor: design generated")
	return imageref.Resolved{Data: result.Image.Data, MIME: result.Image.MIME}.Ref(), nil
}

// Remix sends the current artifact once with the instruction. Remix is
// user-driven, so failures surface immediately as domain.ErrRemixFailed.
func (c *Compositor) Remix(ctx context.Context, current domain.ImageRef, instruction string) (domain.ImageRef, error) {
	resolved, err := c.resolver.Resolve(ctx, current)
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("%w: %w", domain.ErrRemixFailed, err)
	}
	text := strings.TrimSpace(instruction)
	if text == "" {
		text = RemixInstruction
	}
	res, err := c.generator.GenerateImage(ctx, genai.ImageRequest{
		Images:      []genai.InlineImage{{MIME: resolved.MIME, Data: resolved.Data}},
		Instruction: text,
	})
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("%w: %w", domain.ErrRemixFailed, err)
	}
	if len(res.Image.Data) == 0 {
		return domain.ImageRef{}, fmt.Errorf("%w: %w", domain.ErrRemixFailed, domain.ErrNoImageReturned)
	}
	return imageref.Resolved{Data: res.Image.Data, MIME: res.Image.MIME}.Ref(), nil
}

// resolveAll resolves the sources concurrently, keeping their order.
func (c *Compositor) resolveAll(ctx context.Context, refs []domain.ImageRef) ([]genai.InlineImage, error) {
	images := make([]genai.InlineImage, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			resolved, err := c.resolver.Resolve(gctx, ref)
			if err != nil {
				return fmt.Errorf("resolve source %d: %w", i+1, err)
			}
			images[i] = genai.InlineImage{MIME: resolved.MIME, Data: resolved.Data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// isTransientGeneration covers transport failures, non-2xx answers and
// text-only responses. Caller cancellation is caught by the retry loop itself.
func isTransientGeneration(err error) bool {
	return errors.Is(err, domain.ErrTransientIO) || errors.Is(err, domain.ErrNoImageReturned)
}
