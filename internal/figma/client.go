package figma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mcptoolbox/internal/model"
)

const (
	DefaultBaseURL = "https://api.figma.com/v1"
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3

	tokenHeader = "X-Figma-Token"
)

const missingKeyMessage = "No Figma API key provided. Set the FIGMA_API_KEY environment variable."

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Retries is the number of extra attempts after a connection failure.
	Retries int
	Logger  *zap.Logger
}

// Client talks to the Figma REST API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	logger *zap.Logger
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		APIKey:  strings.TrimSpace(opts.APIKey),
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: newRetryTransport(http.DefaultTransport, retries, logger),
		},
		logger: logger,
	}
}

// Do sends one request and decodes the JSON object in the response. A nil
// body sends no payload. An empty response body decodes to an empty object.
func (c *Client) Do(ctx context.Context, method, path string, query *Query, body any) (map[string]any, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, model.NewToolError(model.KindConfig, missingKeyMessage, model.ErrMissingAPIKey)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path + query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &model.ProviderError{Code: "FIGMA_REQUEST", Message: "Request error: " + err.Error(), Cause: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &model.ProviderError{Code: "FIGMA_REQUEST", Message: "Request error: " + err.Error(), Cause: err}
	}
	req.Header.Set(tokenHeader, apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Code: "FIGMA_REQUEST", Message: "Request error: " + err.Error(), Retryable: true, Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ProviderError{Code: "FIGMA_REQUEST", Message: "Request error: " + err.Error(), Retryable: true, StatusCode: resp.StatusCode, Cause: err}
	}
	c.logger.Debug("figma request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, mapProviderError(resp.StatusCode, "Figma API error: "+errorDetail(resp.StatusCode, bodyBytes))
	}

	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(bodyBytes, &decoded); err != nil {
		return nil, &model.ProviderError{Code: "FIGMA_FAILED", Message: "Figma API error: invalid JSON response: " + err.Error(), StatusCode: resp.StatusCode, Cause: err}
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"result": decoded}, nil
}

// errorDetail picks the most useful message from a failed response: the
// "err" field, then "message", then the status line.
func errorDetail(statusCode int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"err", "message"} {
			if v, ok := parsed[key]; ok && v != nil {
				if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
					return s
				}
			}
		}
	}
	return fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode))
}

func mapProviderError(statusCode int, message string) error {
	pe := &model.ProviderError{
		Code:       "FIGMA_FAILED",
		Message:    message,
		Retryable:  false,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		pe.Code = "FIGMA_AUTH"
	case statusCode == http.StatusNotFound:
		pe.Code = "FIGMA_NOT_FOUND"
	case statusCode == http.StatusTooManyRequests:
		pe.Code = "FIGMA_RATE_LIMIT"
		pe.Retryable = true
	case statusCode >= http.StatusInternalServerError:
		pe.Retryable = true
	}

	return pe
}
