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

	"github.com/rs/zerolog"

	"cinedolly/internal/infra"
)

// KeyFunc resolves the API key for each request so a re-selected key takes
// effect without rebuilding the client.
type KeyFunc func(ctx context.Context) (string, error)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	Keys       KeyFunc
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini long-running video endpoints.
type Client struct {
	keys       KeyFunc
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// VideoRequest is a single image-to-video generation.
type VideoRequest struct {
	Prompt         string
	ImageBytes     []byte
	ImageMIMEType  string
	NumberOfVideos int
	Resolution     string
	AspectRatio    string
}

// Operation is a long-running generation job.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *OperationResponse `json:"response,omitempty"`
}

// OperationError is the failure recorded on a finished operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// OperationResponse carries the generated samples once the operation is done.
type OperationResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []GeneratedVideo `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// GeneratedVideo is one generated sample.
type GeneratedVideo struct {
	Video *struct {
		URI string `json:"uri"`
	} `json:"video,omitempty"`
}

// VideoURIs returns one entry per generated sample, empty when a sample has
// no retrievable location.
func (op *Operation) VideoURIs() []string {
	if op == nil || op.Response == nil {
		return nil
	}
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	uris := make([]string, 0, len(samples))
	for _, sample := range samples {
		if sample.Video == nil {
			uris = append(uris, "")
			continue
		}
		uris = append(uris, strings.TrimSpace(sample.Video.URI))
	}
	return uris
}

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini status %d", e.StatusCode)
}

// NotFound reports whether the API said the addressed entity does not exist.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Status == "NOT_FOUND"
}

// ErrMissingAPIKey is returned when no key is selected.
var ErrMissingAPIKey = errors.New("gemini api key is not selected")

type predictInstance struct {
	Prompt string        `json:"prompt"`
	Image  *predictImage `json:"image,omitempty"`
}

type predictImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type predictLongRunningRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "veo-3.1-fast-generate-preview"
	}

	keys := opts.Keys
	if keys == nil {
		static := strings.TrimSpace(opts.APIKey)
		keys = func(context.Context) (string, error) { return static, nil }
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		keys:       keys,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// SubmitVideo starts a generation and returns the pending operation.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	if len(req.ImageBytes) == 0 {
		return nil, errors.New("genai: image bytes required")
	}
	payload := predictLongRunningRequest{
		Instances: []predictInstance{{
			Prompt: req.Prompt,
			Image: &predictImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.ImageBytes),
				MimeType:           req.ImageMIMEType,
			},
		}},
		Parameters: predictParameters{
			SampleCount: req.NumberOfVideos,
			Resolution:  req.Resolution,
			AspectRatio: req.AspectRatio,
		},
	}

	var op Operation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.model))
	if err := c.invokeGemini(ctx, http.MethodPost, path, payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, errors.New("genai: operation name missing from response")
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("operation", op.Name).
		Msg("genai: video operation submitted")
	return &op, nil
}

// GetOperation refreshes the state of an operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, errors.New("genai: operation name required")
	}
	var op Operation
	if err := c.invokeGemini(ctx, http.MethodGet, "/"+name, nil, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		op.Name = name
	}
	return &op, nil
}

// Download fetches a generated file. The file location is not pre-signed, so
// the active key is appended as a query parameter.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	target := strings.TrimSpace(uri)
	if target == "" {
		return nil, "", errors.New("genai: download uri required")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	key, err := c.keys(ctx)
	if err != nil {
		return fmt.Errorf("resolve api key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingAPIKey
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()
	return nil
}

func (c *Client) invokeGemini(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope geminiErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
