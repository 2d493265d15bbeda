package httpx

import (
	"context"
	"errors"
	"net"
)

// HTTPStatusCoder is implemented by transport errors that carry a status code.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsTransientError reports whether err looks like a temporary transport or
// upstream failure (timeouts, connection errors, 408/429/5xx).
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// IsAuthOrConfigStatus reports whether code points at a misconfigured caller
// (bad credentials, unknown model/endpoint) rather than a transient outage.
func IsAuthOrConfigStatus(code int) bool {
	return code == 400 || code == 401 || code == 403 || code == 404
}
