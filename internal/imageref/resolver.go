// Package imageref turns any domain.ImageRef into raw bytes plus a MIME type.
package imageref

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
)

// DefaultMaxBytes caps a single resolved image.
const DefaultMaxBytes = 20 << 20

// Resolved holds image bytes ready to be sent inline or uploaded.
type Resolved struct {
	Data []byte
	MIME string
}

// Base64 encodes the bytes with standard padding.
func (r Resolved) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}

// Ref converts the bytes back into an inline ImageRef.
func (r Resolved) Ref() domain.ImageRef {
	return domain.InlineBase64(r.Base64(), r.MIME)
}

// Options configures a Resolver.
type Options struct {
	HTTPClient *http.Client
	TempDir    string
	MaxBytes   int64
	Logger     *infra.Logger
}

// Resolver reads inline data as-is, local files from disk, and downloads remote
// URLs through a temporary file that is always removed afterwards.
type Resolver struct {
	httpClient *http.Client
	tempDir    string
	maxBytes   int64
	logger     *infra.Logger

	// tempCreated observes every temporary download path; tests use it to
	// verify cleanup.
	tempCreated func(path string)
}

func NewResolver(opts Options) *Resolver {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Resolver{
		httpClient: client,
		tempDir:    opts.TempDir,
		maxBytes:   maxBytes,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

// Resolve returns the bytes and MIME type behind ref.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageRef) (Resolved, error) {
	if err := ref.Validate(); err != nil {
		return Resolved{}, err
	}
	switch ref.Kind {
	case domain.ImageRefInlineBase64:
		return r.resolveInline(ref)
	case domain.ImageRefLocalFile:
		return r.resolveFile(ctx, ref)
	default:
		return r.resolveRemote(ctx, ref)
	}
}

func (r *Resolver) resolveInline(ref domain.ImageRef) (Resolved, error) {
	raw := strings.TrimSpace(ref.Data)
	mimeType := ref.MIME
	// Accept data URLs as well as bare base64.
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		header, encoded, found := strings.Cut(rest, ",")
		if !found {
			return Resolved{}, fmt.Errorf("%w: malformed data url", domain.ErrInvalidImageRef)
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		raw = encoded
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return Resolved{}, fmt.Errorf("%w: decode base64: %w", domain.ErrInvalidImageRef, err)
		}
	}
	if len(data) == 0 {
		return Resolved{}, fmt.Errorf("%w: empty image", domain.ErrInvalidImageRef)
	}
	return Resolved{Data: data, MIME: detectMIME(mimeType, "", data)}, nil
}

func (r *Resolver) resolveFile(ctx context.Context, ref domain.ImageRef) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}
	data, err := r.readLimited(ref.Path)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Data: data, MIME: detectMIME(ref.MIME, ref.Path, data)}, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, ref domain.ImageRef) (Resolved, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: %w", domain.ErrInvalidImageRef, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: download %s: %w", domain.ErrTransientIO, ref.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := domain.ErrInvalidImageRef
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.ErrTransientIO
		}
		return Resolved{}, fmt.Errorf("%w: download %s: status %d", kind, ref.URL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(r.tempDir, "imageref-*"+filepath.Ext(req.URL.Path))
	if err != nil {
		return Resolved{}, fmt.Errorf("imageref: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warn().Err(rmErr).Str("path", tmpPath).Msg("imageref: remove temp file")
		}
	}()
	if r.tempCreated != nil {
		r.tempCreated(tmpPath)
	}

	_, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, r.maxBytes+1))
	closeErr := tmp.Close()
	if copyErr != nil {
		return Resolved{}, fmt.Errorf("%w: download %s: %w", domain.ErrTransientIO, ref.URL, copyErr)
	}
	if closeErr != nil {
		return Resolved{}, fmt.Errorf("imageref: close temp file: %w", closeErr)
	}

	data, err := r.readLimited(tmpPath)
	if err != nil {
		return Resolved{}, err
	}
	mimeType := ref.MIME
	if mimeType == "" {
		mimeType = imageContentType(resp.Header.Get("Content-Type"))
	}
	r.logger.Debug().Str("url", ref.URL).Int("bytes", len(data)).Msg("imageref: downloaded remote image")
	return Resolved{Data: data, MIME: detectMIME(mimeType, req.URL.Path, data)}, nil
}

func (r *Resolver) readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImageRef, err)
	}
	if info.Size() > r.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidImageRef, r.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImageRef, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidImageRef)
	}
	return data, nil
}

// detectMIME prefers the declared type, then the file extension, then sniffing.
func detectMIME(declared, name string, data []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if byExt := imageContentType(mime.TypeByExtension(ext)); byExt != "" {
			return byExt
		}
	}
	sniffed := imageContentType(http.DetectContentType(data))
	if sniffed == "" {
		return "image/png"
	}
	return sniffed
}

// imageContentType strips parameters and drops non-image types.
func imageContentType(v string) string {
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	return mediaType
}

// ExtensionFor maps a MIME type to a file extension including the dot.
func ExtensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".png"
	}
}
