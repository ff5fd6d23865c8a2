// Package printful is the HTTP client for the print-on-demand provider: catalog
// lookups, asynchronous mockup generation and store product creation.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/payload"
)

const defaultBaseURL = "https://api.printful.com"

// Options controls how the client is configured.
type Options struct {
	APIKey        string
	BaseURL       string
	StoreID       string
	RatePerMinute int
	CacheSize     int
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// Client wraps the provider REST API. Every call waits on a shared limiter
// sized to the account quota.
type Client struct {
	apiKey     string
	baseURL    string
	storeID    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *infra.Logger

	variants   *lru.Cache[int64, variantEntry]
	printfiles *lru.Cache[int64, printfileEntry]
}

// APIError is a rejected call. The message is whatever the provider put in
// error.message, or the result string when it answered with a bare message.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("printful: status %d", e.StatusCode)
	}
	return fmt.Sprintf("printful: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies the status so callers can match domain kinds.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= http.StatusInternalServerError:
		return domain.ErrTransientIO
	default:
		return nil
	}
}

// NewClient constructs a provider client with its limiter and catalog caches.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("printful: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	perMinute := opts.RatePerMinute
	if perMinute <= 0 {
		perMinute = 120
	}
	burst := perMinute / 12
	if burst < 1 {
		burst = 1
	}

	size := opts.CacheSize
	if size <= 0 {
		size = 512
	}
	variants, err := lru.New[int64, variantEntry](size)
	if err != nil {
		return nil, fmt.Errorf("printful: variant cache: %w", err)
	}
	printfiles, err := lru.New[int64, printfileEntry](size)
	if err != nil {
		return nil, fmt.Errorf("printful: printfile cache: %w", err)
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		storeID:    strings.TrimSpace(opts.StoreID),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		logger:     infra.LoggerOrDiscard(opts.Logger),
		variants:   variants,
		printfiles: printfiles,
	}, nil
}

// do sends one request and returns the decoded envelope. Transport failures
// wrap domain.ErrTransientIO; rejections come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (payload.Object, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("printful: marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("printful: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-Id", c.storeID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: printful %s %s: %w", domain.ErrTransientIO, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: printful read body: %w", domain.ErrTransientIO, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("printful: request")

	envelope, decodeErr := payload.Decode(data)
	code := int(envelope.Int(int64(resp.StatusCode), "code"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || code < 200 || code >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: code, Message: errorMessage(envelope, data)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: printful %s %s: %w", domain.ErrTransientIO, method, path, decodeErr)
	}
	return envelope, nil
}

// errorMessage reads {error:{message}}, {error:"..."} or {result:"..."}.
func errorMessage(envelope payload.Object, raw []byte) string {
	if envelope != nil {
		if nested := envelope.Object("error"); nested != nil {
			if msg := nested.String("", "message", "reason"); msg != "" {
				return msg
			}
		}
		if msg := envelope.String("", "error", "result", "message"); msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
