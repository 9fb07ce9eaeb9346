package services

import (
	"net/http"
	"time"
)

func applyFuncOptions[T any](entity T, opts ...func(entity T) error) error {
	for _, opt := range opts {
		err := opt(entity)
		if err != nil {
			return err
		}
	}
	return nil
}

func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
