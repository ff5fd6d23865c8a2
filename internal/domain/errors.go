package domain

import (
	"errors"
	"strings"
)

// Pipeline error kinds. Callers wrap them together with the underlying cause,
// e.g. fmt.Errorf("%w: %w", ErrJobFailed, cause), so errors.Is matches the kind
// while the message still carries the provider detail.
var (
	ErrTransientIO           = errors.New("transient io failure")
	ErrNoImageReturned       = errors.New("no image returned")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrRemixFailed           = errors.New("remix failed")
	ErrArtifactNotAccessible = errors.New("artifact not accessible")
	ErrJobSubmissionRejected = errors.New("render job submission rejected")
	ErrJobFailed             = errors.New("render job failed")
	ErrJobTimedOut           = errors.New("render job timed out")
	ErrNoMockupsProduced     = errors.New("no mockups produced")
	ErrPublishRejected       = errors.New("publish rejected")
)

// Session and flow errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPrimaryRequired   = errors.New("primary source image is required")
	ErrVariantMismatch   = errors.New("variant does not belong to product")
	ErrInvalidPlacement  = errors.New("placement not available for variant")
	ErrInvalidImageRef   = errors.New("invalid image reference")
	ErrStageNotReady     = errors.New("previous step not completed")
	ErrSessionBusy       = errors.New("another operation is running for this design")
	ErrInvalidTransition = errors.New("invalid render job transition")
)

var userMessages = []struct {
	kind    error
	message string
}{
	{ErrSessionBusy, "Another step is still running for this design. Wait for it to finish and try again."},
	{ErrPrimaryRequired, "Add a main image before generating a design."},
	{ErrVariantMismatch, "The selected variant is not part of this product."},
	{ErrInvalidPlacement, "One of the selected print placements is not available for this variant."},
	{ErrInvalidImageRef, "One of the images could not be read."},
	{ErrStageNotReady, "Finish the previous step first."},
	{ErrGenerationFailed, "We could not generate a design from these images. Please try again."},
	{ErrRemixFailed, "The remix did not work this time. Your current design is unchanged."},
	{ErrArtifactNotAccessible, "The design was saved but is not reachable yet. Please retry the mockup step."},
	{ErrJobSubmissionRejected, "The mockup service rejected the request."},
	{ErrJobFailed, "The mockup service could not render this design."},
	{ErrJobTimedOut, "Mockups are taking longer than expected. Please retry."},
	{ErrNoMockupsProduced, "The mockup service returned no images. Please retry."},
	{ErrPublishRejected, "The store rejected this listing."},
	{ErrNotFound, "Not found."},
	{ErrUnauthorized, "Please sign in again."},
}

// UserMessage renders one human-readable message for a terminal failure.
// Provider-declared rejections keep the provider text after the generic sentence.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.kind == ErrPublishRejected || m.kind == ErrJobSubmissionRejected {
			if detail := detailAfter(err, m.kind); detail != "" {
				return m.message + " " + detail
			}
		}
		return m.message
	}
	return "Something went wrong. Please try again."
}

// detailAfter strips the "<kind>: " prefix produced by the wrapping convention.
func detailAfter(err, kind error) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if idx := strings.Index(msg, prefix); idx >= 0 {
		return strings.TrimSpace(msg[idx+len(prefix):])
	}
	return ""
}
