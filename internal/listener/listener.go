// Package listener is the control-plane client for the external
// email-ingestion worker. It holds no state: every call is a live HTTP
// round-trip against the worker's /start, /stop and /status endpoints.
package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrUnreachable = errors.New("email listener unreachable")

// Reply carries the worker's response through to the caller, status
// code included, so the control routes can mirror it.
type Reply struct {
	StatusCode int
	Body       string
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Start(ctx context.Context) (Reply, error) {
	return c.get(ctx, "/start")
}

func (c *Client) Stop(ctx context.Context) (Reply, error) {
	return c.get(ctx, "/stop")
}

func (c *Client) Status(ctx context.Context) (Reply, error) {
	return c.get(ctx, "/status")
}

// get forwards the worker's JSON body and status verbatim so callers
// can hand both straight back to the frontend.
func (c *Client) get(ctx context.Context, path string) (Reply, error) {
	const op = "listener.get"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w: %w", op, ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w: %w", op, ErrUnreachable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return Reply{}, fmt.Errorf("%s: %w: worker returned %d", op, ErrUnreachable, resp.StatusCode)
	}

	return Reply{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
