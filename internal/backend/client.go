// Package backend is the HTTP client of the work4u marketplace REST API.
package backend

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

	"github.com/sony/gobreaker"

	"github.com/redmonkez12/work4u/internal/logging"
)

// ErrUnavailable is returned without calling the backend while the circuit
// breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// Client calls the backend REST API. Profile calls and best-effort calls
// (analytics, login state) trip separate breakers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	bestEffort *gobreaker.CircuitBreaker
	logger     *logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker("backend", logger),
		bestEffort: newBreaker("backend-best-effort", logger),
		logger:     logger,
	}
}

func newBreaker(name string, logger *logging.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors mean the backend is up.
		IsSuccessful: func(err error) bool {
			code := StatusCode(err)
			return err == nil || (code > 0 && code < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Do sends a JSON request through the shared breaker; used by jobs.Client.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	return c.do(ctx, method, path, token, body, out)
}

// do sends a JSON request and decodes a JSON response into out. An empty
// token sends no Authorization header.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	return c.send(ctx, c.breaker, method, path, token, body, out)
}

// doBestEffort is do for calls whose failure callers swallow.
func (c *Client) doBestEffort(ctx context.Context, method, path, token string, body, out any) error {
	return c.send(ctx, c.bestEffort, method, path, token, body, out)
}

func (c *Client) send(ctx context.Context, breaker *gobreaker.CircuitBreaker, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	_, err = breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		return nil, c.handleResponse(resp, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// handleResponse decodes either the success body or an APIError
func (c *Client) handleResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewAPIError(resp.StatusCode, "failed to read error response body")
		}

		c.logger.Debug("backend returned non-2xx response",
			"status", resp.StatusCode,
			"path", resp.Request.URL.Path,
			"body", string(bodyBytes),
		)

		var apiErr APIError
		if err := json.Unmarshal(bodyBytes, &apiErr); err != nil || apiErr.Message == "" {
			message := strings.TrimSpace(string(bodyBytes))
			if message == "" {
				message = http.StatusText(resp.StatusCode)
			}
			return NewAPIError(resp.StatusCode, message)
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
