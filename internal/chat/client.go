// Package chat forwards natural-language questions to the external
// chat-with-data service and relays its answers.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
)

const (
	chatPath          = "/api/chat"
	maxResponseBytes  = 4 << 20
	defaultTimeout    = 30 * time.Second
	defaultRetryMax   = 2
	defaultRetryWait  = 200 * time.Millisecond
	defaultRetryLimit = 2 * time.Second
)

// Answer is the chat service reply: the SQL it generated, the rows it
// returned and an optional explanation.
type Answer struct {
	SQL     string          `json:"sql"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

type Client interface {
	SendQuery(ctx context.Context, query string) (*Answer, error)
}

type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// HTTPClient talks to the chat service over HTTP. Connection failures are
// retried with backoff; any HTTP response, successful or not, is final.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	} else if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = defaultRetryWait
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = defaultRetryLimit
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.CheckRetry = retryTransportErrors
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = slog.Default().With(log.FieldComponent, log.ComponentChat)

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  rc,
	}
}

// retryTransportErrors retries only when no response was received.
func retryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return false, nil
}

func (c *HTTPClient) SendQuery(ctx context.Context, query string) (*Answer, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode query").
			Mark(ierr.ErrSystem)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Chat service URL is invalid").
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentChat).ErrorContext(ctx, "Chat service unreachable",
			log.FieldError, err)
		return nil, ierr.WithError(err).
			WithHint("Chat service is unavailable").
			Mark(ierr.ErrUpstream)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read chat service response").
			Mark(ierr.ErrUpstream)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.FromContext(ctx).WithComponent(log.ComponentChat).WarnContext(ctx, "Chat service rejected query",
			log.FieldStatusCode, resp.StatusCode,
			"body", string(raw))
		return nil, ierr.WithError(&ierr.UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}).
			WithHint("Failed to process query").
			Mark(ierr.ErrUpstream)
	}

	var answer Answer
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&answer); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Chat service returned an invalid response").
			Mark(ierr.ErrUpstream)
	}
	if len(answer.Data) == 0 || bytes.Equal(answer.Data, []byte("null")) {
		answer.Data = json.RawMessage("[]")
	}
	return &answer, nil
}
