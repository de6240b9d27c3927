package httputil

import (
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RetryTransport retries transient failures (network errors, 429, 5xx) with
// exponential backoff and jitter. Requests whose body cannot be replayed are
// sent once.
type RetryTransport struct {
	base   http.RoundTripper
	config RetryConfig
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

func NewRetryTransport(base http.RoundTripper, config RetryConfig) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	defaults := DefaultRetryConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier == 0 {
		config.Multiplier = defaults.Multiplier
	}

	return &RetryTransport{
		base:   base,
		config: config,
	}
}

// NewClient returns an http.Client with the given timeout whose transport
// retries with the default policy.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewRetryTransport(nil, DefaultRetryConfig()),
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	maxRetries := t.config.MaxRetries
	if !replayable {
		maxRetries = 0
	}

	var resp *http.Response
	var err error
	delay := t.config.InitialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			timer := time.NewTimer(applyJitter(delay))
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
			delay = min(time.Duration(float64(delay)*t.config.Multiplier), t.config.MaxDelay)

			attemptReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				attemptReq.Body = body
			}
		}

		resp, err = t.base.RoundTrip(attemptReq)
		if attempt == maxRetries || !shouldRetry(resp, err) {
			return resp, err
		}

		if resp != nil {
			_ = resp.Body.Close()
		}
	}

	return resp, err
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return true
		}
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return resp.StatusCode >= 500 && resp.StatusCode < 600
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}
