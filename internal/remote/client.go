// Package remote holds the synchronous HTTP clients one service uses to ask
// another a question on behalf of the caller. Every call forwards the
// caller's bearer token unmodified and runs under an explicit timeout.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every outbound call when OUTBOUND_TIMEOUT is unset.
const DefaultTimeout = 5 * time.Second

// maxBody caps how much of a downstream response is read.
const maxBody = 1 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ConfigFromEnv reads the base URL from urlKey and the shared OUTBOUND_TIMEOUT.
func ConfigFromEnv(urlKey, fallback string) Config {
	base := os.Getenv(urlKey)
	if base == "" {
		base = fallback
	}
	timeout := DefaultTimeout
	if d, err := time.ParseDuration(os.Getenv("OUTBOUND_TIMEOUT")); err == nil && d > 0 {
		timeout = d
	}
	return Config{BaseURL: strings.TrimRight(base, "/"), Timeout: timeout}
}

type client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func newClient(cfg Config, logger *zap.SugaredLogger) client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// response is a fully read downstream reply.
type response struct {
	status      int
	contentType string
	body        []byte
}

func (c client) get(ctx context.Context, path, bearer string) (*response, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("outbound call failed", "url", req.URL.String(), "err", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debugw("outbound call", "url", req.URL.String(), "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return &response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: body}, nil
}
