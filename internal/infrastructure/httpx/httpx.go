// Package httpx is a thin JSON/body client shared by all provider clients.
// It retries transient failures (network errors, 5xx) with a short bounded
// backoff and classifies terminal failures into the domain error taxonomy.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tmtresearch-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
)

type Client struct {
	HTTP      *http.Client
	UserAgent string
}

func New(timeout time.Duration) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: "tmtresearch-service/1.0",
	}
}

// DoJSON executes req and decodes the response body into out.
// Status mapping: 401/403 -> domain.ErrAuth, 429 -> domain.ErrRateLimit,
// other 4xx and exhausted 5xx/network retries -> domain.ErrTransport,
// undecodable body -> domain.ErrFormat.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	body, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode json: %v", domain.ErrFormat, err)
	}
	return nil
}

// DoBody executes req and returns the raw response body. Used for vendors
// that answer with CSV.
func (c *Client) DoBody(ctx context.Context, req *http.Request) ([]byte, error) {
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second

	var body []byte
	op := func() error {
		resp, err := httpc.Do(req.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrAuth, resp.StatusCode))
		case resp.StatusCode == http.StatusTooManyRequests:
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrRateLimit, resp.StatusCode))
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(exp, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
