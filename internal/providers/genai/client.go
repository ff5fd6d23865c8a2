// Package genai talks to the Gemini generateContent REST endpoint for image
// composition. Requests carry inline images plus one text instruction.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/payload"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash-image"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a small REST facade over Gemini image generation.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// InlineImage is one image sent to or received from the model.
type InlineImage struct {
	MIME string
	Data []byte
}

// ImageRequest is one generateContent call: images first, then the instruction.
type ImageRequest struct {
	Images      []InlineImage
	Instruction string
}

// ImageResult is the first image the model returned plus any text it added.
type ImageResult struct {
	Image InlineImage
	Text  string
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. Callers may provide a nil HTTP client;
// one with a generous timeout is created since image generation is slow.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateImage sends one request and returns the first inline image found in
// the candidates. Transport and status failures wrap domain.ErrTransientIO;
// a response without any image wraps domain.ErrNoImageReturned and carries
// the text parts as diagnostic.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	if len(req.Images) == 0 {
		return ImageResult{}, errors.New("genai: at least one image is required")
	}

	parts := make([]geminiPart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MIME,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	if text := strings.TrimSpace(req.Instruction); text != "" {
		parts = append(parts, geminiPart{Text: text})
	}

	body := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	raw, err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), body)
	if err != nil {
		return ImageResult{}, err
	}

	result, err := parseImageResponse(raw)
	if err != nil {
		return ImageResult{}, err
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("inputs", len(req.Images)).
		Int("bytes", len(result.Image.Data)).
		Str("mime", result.Image.MIME).
		Msg("genai: image generated")

	return result, nil
}

func (c *Client) invokeGemini(ctx context.Context, path string, body any) ([]byte, error) {
	endpoint := c.baseURL + path
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("genai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: invoke gemini: %w", domain.ErrTransientIO, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read gemini response: %w", domain.ErrTransientIO, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			statusErr.Message = apiErr.Error.Message
		} else {
			statusErr.Message = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTransientIO, statusErr)
	}
	return data, nil
}

// parseImageResponse accepts both camelCase and snake_case part shapes.
func parseImageResponse(data []byte) (ImageResult, error) {
	obj, err := payload.Decode(data)
	if err != nil {
		return ImageResult{}, fmt.Errorf("%w: %w", domain.ErrTransientIO, err)
	}

	var texts []string
	for _, candidate := range obj.Objects("candidates") {
		content := candidate.Object("content")
		if content == nil {
			continue
		}
		for _, part := range content.Objects("parts") {
			if inline := part.Object("inlineData", "inline_data"); inline != nil {
				encoded := inline.String("", "data")
				if encoded == "" {
					continue
				}
				decoded, err := base64.StdEncoding.DecodeString(encoded)
				if err != nil || len(decoded) == 0 {
					continue
				}
				return ImageResult{
					Image: InlineImage{MIME: inline.String("image/png", "mimeType", "mime_type"), Data: decoded},
					Text:  strings.Join(texts, " "),
				}, nil
			}
			if text := strings.TrimSpace(part.String("", "text")); text != "" {
				texts = append(texts, text)
			}
		}
		if reason := candidate.String("", "finishReason", "finish_reason"); reason != "" && reason != "STOP" {
			texts = append(texts, "finish reason "+reason)
		}
	}
	if feedback := obj.Object("promptFeedback", "prompt_feedback"); feedback != nil {
		if reason := feedback.String("", "blockReason", "block_reason"); reason != "" {
			texts = append(texts, "blocked: "+reason)
		}
	}

	if len(texts) == 0 {
		return ImageResult{}, fmt.Errorf("%w: empty response", domain.ErrNoImageReturned)
	}
	return ImageResult{}, fmt.Errorf("%w: %s", domain.ErrNoImageReturned, strings.Join(texts, " "))
}
