package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ServiceError is returned when a remote service answers with a non-2xx status
// or a body that cannot be understood.
type ServiceError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error: status %d, body: %s", e.Service, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s API error: %s", e.Service, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *ServiceError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newStatusError(service string, resp *http.Response) *ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ServiceError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func newDecodeError(service string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Err:     fmt.Errorf("failed to decode response: %w", err),
	}
}

// IsServiceError reports whether err was produced by a remote service rather
// than by the network.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsTransient reports whether err is a rate limit, a 5xx or a network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
