package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// retryPolicy controls exponential backoff for one upstream.
type retryPolicy struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// Upstream failures come back classified so callers can fold them into a
// location's failure reason without parsing message text.
var (
	errUpstreamBusy    = errors.New("upstream rate limited")
	errUpstreamDown    = errors.New("upstream server error")
	errUpstreamRefused = errors.New("upstream rejected request")
	errCircuitOpen     = errors.New("circuit breaker open")
)

// resilientClient wraps an HTTP client with retries, exponential backoff and
// a circuit breaker.
type resilientClient struct {
	client  *http.Client
	retry   retryPolicy
	circuit *gobreaker.CircuitBreaker
}

func newResilientClient(name string, client *http.Client, retry retryPolicy) *resilientClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &resilientClient{client: client, retry: retry, circuit: cb}
}

// do executes the request with the configured resilience. Rate limiting,
// server errors and transport failures are retried; a 4xx rejection is
// final, since retrying a request the upstream already refused only burns
// the location's timeout budget.
func (rc *resilientClient) do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := rc.circuit.Execute(func() (interface{}, error) {
			resp, execErr := rc.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, errUpstreamBusy
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUpstreamDown, resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUpstreamRefused, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		// Rejections are not transient; do not retry them.
		if errors.Is(err, errUpstreamRefused) {
			return nil, err
		}

		lastErr = err
		if attempt >= rc.retry.maxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := rc.retry.initialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if rc.retry.maxInterval > 0 && delay > rc.retry.maxInterval {
			delay = rc.retry.maxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}
