// Package ai calls the image classification, completion verification and
// speech transcription endpoints.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wastewatch/pkg/types"
)

// ErrUnavailable is returned when the endpoint for a call is not configured.
var ErrUnavailable = fmt.Errorf("%w: ai endpoint not configured", types.ErrUpstream)

type ClientConfig struct {
	ClassifyURL   string
	VerifyURL     string
	TranscribeURL string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	HTTPClient    *http.Client
}

type Client struct {
	classifyURL   string
	verifyURL     string
	transcribeURL string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	httpClient    *http.Client
	backoff       time.Duration
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &Client{
		classifyURL:   strings.TrimSpace(config.ClassifyURL),
		verifyURL:     strings.TrimSpace(config.VerifyURL),
		transcribeURL: strings.TrimSpace(config.TranscribeURL),
		apiKey:        strings.TrimSpace(config.APIKey),
		timeout:       config.Timeout,
		maxRetries:    config.MaxRetries,
		httpClient:    config.HTTPClient,
		backoff:       350 * time.Millisecond,
	}
}

// post sends payload to url and decodes the JSON response into out, retrying
// transport failures, 429 and 5xx with a linear backoff.
func (c *Client) post(ctx context.Context, name, url string, payload, out any) error {
	if url == "" {
		return ErrUnavailable
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		callErr := c.call(ctx, name, url, encoded, out)
		if callErr == nil {
			return nil
		}
		lastErr = callErr

		if !isRetryable(callErr) || attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * c.backoff
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s cancelled after %v: %w", types.ErrUpstream, name, lastErr, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%w: %w", types.ErrUpstream, lastErr)
}

func (c *Client) call(ctx context.Context, name, url string, payload []byte, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{name: name, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{name: name, err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 500 {
			message = message[:500]
		}
		return &httpError{Endpoint: name, StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	return nil
}

type httpError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

type transportError struct {
	name string
	err  error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.name, e.err)
}

func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}
