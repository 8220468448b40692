package fetch

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// RetryPolicy is a pure (attempt, error) -> next delay decision. attempt is
// zero-based: Next(0, err) asks whether a first retry is allowed.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy doubles from one second: 1s, 2s, 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Next returns the backoff before retry number attempt+1, or false to give
// up. Context cancellation and non-retryable errors always give up.
func (p RetryPolicy) Next(attempt int, err error) (time.Duration, bool) {
	if err == nil || attempt >= p.MaxRetries {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if !Retryable(err) {
		return 0, false
	}
	delay := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}

// statusError marks an HTTP status outcome so the policy can classify it.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "http status " + strconv.Itoa(e.code)
}

// Retryable reports whether the error is a transient failure worth another
// attempt: timeouts, connection resets, 5xx, and 429.
func Retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == 429
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
