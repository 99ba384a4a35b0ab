package lakesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const conversationsPath = "/api/conversations"

// HTTPSyncer posts payloads as JSON to a knowledge-lake HTTP API.
type HTTPSyncer struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// HTTPOption configures an HTTPSyncer.
type HTTPOption func(*HTTPSyncer)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSyncer) {
		s.httpClient = client
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPSyncer) {
		s.logger = logger
	}
}

// NewHTTPSyncer creates a syncer for the API at baseURL.
func NewHTTPSyncer(baseURL string, opts ...HTTPOption) (*HTTPSyncer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("lake base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lake base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid lake base URL %q: scheme and host are required", baseURL)
	}
	s := &HTTPSyncer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "lake-http")
	return s, nil
}

// Sync posts payload to the conversations endpoint. Any non-2xx response
// is an error.
func (s *HTTPSyncer) Sync(ctx context.Context, payload *Payload) error {
	endpoint := s.baseURL + conversationsPath

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrSyncFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrSyncFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %w: %d %s", ErrSyncFailed, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	s.logger.Debug("conversation synced", "url", endpoint, "entities", len(payload.Entities),
		"relationships", len(payload.Relationships))
	return nil
}
