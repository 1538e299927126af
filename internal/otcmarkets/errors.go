package otcmarkets

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

var (
	// ErrProfileUnavailable is matched by every failure of the profile request
	ErrProfileUnavailable = errors.New("company profile unavailable")
	// ErrTransientNetwork is matched by failures worth retrying
	ErrTransientNetwork = errors.New("transient network failure")
	// ErrInvalidTicker is returned for symbols that are not 3-5 letters
	ErrInvalidTicker = errors.New("invalid ticker symbol")
)

// UpstreamError describes a failed OTC Markets request
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("otcmarkets %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("otcmarkets %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the sentinel kinds alongside the cause
func (e *UpstreamError) Unwrap() []error {
	errs := []error{ErrProfileUnavailable}
	if e.Transient {
		errs = append(errs, ErrTransientNetwork)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsTransient reports whether a transport error or status code is likely to clear on retry
func IsTransient(err error, statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
