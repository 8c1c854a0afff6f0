package figma

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const retryBackoff = 200 * time.Millisecond

// retryTransport repeats a request when the connection fails. Responses,
// whatever their status, are returned as is.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

func newRetryTransport(base http.RoundTripper, retries int, logger *zap.Logger) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryTransport{base: base, retries: retries, backoff: retryBackoff, logger: logger}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			attemptReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attemptReq.Body = body
			}

			timer := time.NewTimer(t.backoff)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, errors.Join(lastErr, req.Context().Err())
			case <-timer.C:
			}
			t.logger.Debug("retrying figma request",
				zap.String("url", req.URL.Redacted()),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
