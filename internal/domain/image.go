package domain

import (
	"fmt"
	"strings"
)

// ImageRefKind discriminates the ImageRef union.
type ImageRefKind string

const (
	ImageRefLocalFile    ImageRefKind = "local-file"
	ImageRefRemoteURL    ImageRefKind = "remote-url"
	ImageRefInlineBase64 ImageRefKind = "inline-base64"
)

// ImageRef points at image bytes held on disk, behind a URL, or inline as base64.
type ImageRef struct {
	Kind ImageRefKind `json:"kind"`
	Path string       `json:"path,omitempty"`
	URL  string       `json:"url,omitempty"`
	Data string       `json:"data,omitempty"`
	MIME string       `json:"mime,omitempty"`
}

func LocalFile(path string) ImageRef {
	return ImageRef{Kind: ImageRefLocalFile, Path: path}
}

func RemoteURL(url string) ImageRef {
	return ImageRef{Kind: ImageRefRemoteURL, URL: url}
}

func InlineBase64(data, mime string) ImageRef {
	return ImageRef{Kind: ImageRefInlineBase64, Data: data, MIME: mime}
}

// Validate checks that the variant-specific field is populated.
func (r ImageRef) Validate() error {
	switch r.Kind {
	case ImageRefLocalFile:
		if strings.TrimSpace(r.Path) == "" {
			return fmt.Errorf("%w: local-file without path", ErrInvalidImageRef)
		}
	case ImageRefRemoteURL:
		u := strings.ToLower(strings.TrimSpace(r.URL))
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%w: remote-url must be http(s)", ErrInvalidImageRef)
		}
	case ImageRefInlineBase64:
		if strings.TrimSpace(r.Data) == "" {
			return fmt.Errorf("%w: inline-base64 without data", ErrInvalidImageRef)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidImageRef, r.Kind)
	}
	return nil
}

// String never includes inline data.
func (r ImageRef) String() string {
	switch r.Kind {
	case ImageRefLocalFile:
		return "file:" + r.Path
	case ImageRefRemoteURL:
		return r.URL
	case ImageRefInlineBase64:
		return fmt.Sprintf("inline:%s(%d chars)", r.MIME, len(r.Data))
	default:
		return "invalid"
	}
}
