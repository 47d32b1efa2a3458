package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrStatus marks a non-retryable HTTP status.
var ErrStatus = errors.New("unexpected status")

const maxBody = 4 << 20

type Client struct {
	HTTP  *http.Client
	Token string
	// MaxElapsed bounds the whole retry loop; zero means 3s.
	MaxElapsed time.Duration
}

// Do sends req, retrying network errors and 5xx responses with exponential
// backoff, and returns the body of the first 200 response.
func (c *Client) Do(ctx context.Context, req *http.Request, log *zap.Logger) ([]byte, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	req = req.WithContext(ctx)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second
	if c.MaxElapsed > 0 {
		exp.MaxElapsedTime = c.MaxElapsed
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Debug("httpx.retry", zap.String("url", req.URL.Redacted()), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			log.Debug("httpx.retry", zap.String("url", req.URL.Redacted()), zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w %d", ErrStatus, resp.StatusCode))
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return err
		}
		body = b
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(exp, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// DoJSON is Do followed by a JSON decode into out. Decode errors are not retried.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any, log *zap.Logger) error {
	body, err := c.Do(ctx, req, log)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
