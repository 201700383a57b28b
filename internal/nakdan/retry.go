package nakdan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Doer is the transport contract: anything that can execute an HTTP
// request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc suspends for d or until ctx is done. Injected so tests can
// record backoff delays without waiting them out.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay returns the suspension before retrying after a failed
// attempt: 0.5s, 1s, 2s, 4s, ... with no jitter and no cap.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(float64(500*time.Millisecond) * math.Pow(2, float64(attempt)))
}

// rawResult is the terminal success of the retry loop: the undecoded
// response body plus timing across all attempts.
type rawResult struct {
	body     []byte
	elapsed  time.Duration
	attempts int
}

// postWithRetry performs up to maxRetries+1 transport attempts, each
// bounded by c.attemptTimeout, with exponential backoff between failures.
// Non-200 status, timeout, connection error and unparseable JSON are all
// the same retryable failure; the cause is logged, never typed. Exhausting
// every attempt returns ok=false (no result), not an error value.
//
// The cache lock is never held here: backoff sleeps and network attempts
// are the only suspension points of a lookup and must not block other
// callers.
func (c *Client) postWithRetry(ctx context.Context, payload []byte, maxRetries int) (rawResult, bool) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	start := c.clock()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		body, err := c.attempt(ctx, payload)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("nakdan request succeeded after retry",
					"attempt", attempt+1, "max_attempts", maxRetries+1)
			}
			return rawResult{
				body:     body,
				elapsed:  c.clock().Sub(start),
				attempts: attempt + 1,
			}, true
		}

		c.logger.Warn("nakdan request failed",
			"attempt", attempt+1, "max_attempts", maxRetries+1, "error", err)

		if attempt < maxRetries {
			delay := backoffDelay(attempt)
			c.logger.Debug("waiting before retry", "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				c.logger.Warn("retry wait aborted", "error", err)
				return rawResult{}, false
			}
		}
	}

	c.logger.Error("all nakdan attempts failed", "attempts", maxRetries+1)
	return rawResult{}, false
}

// attempt performs one transport call with the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "text/plain;charset=UTF-8")

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nakdan api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("nakdan api returned an unparseable body")
	}
	return body, nil
}
