package storage

import (
	"context"
	"errors"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 50 * time.Millisecond
)

// RetryStorage wraps a Storage and retries transient failures with
// exponential backoff. ErrNotFound and context cancellation are never
// retried.
type RetryStorage struct {
	inner    Storage
	attempts int
	backoff  time.Duration
}

// WithRetry decorates s with the default retry policy.
func WithRetry(s Storage) *RetryStorage {
	return &RetryStorage{
		inner:    s,
		attempts: defaultRetryAttempts,
		backoff:  defaultRetryBackoff,
	}
}

func (s *RetryStorage) retry(ctx context.Context, op func() error) error {
	var err error
	backoff := s.backoff
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), err)
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = op(); err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return err
}

func (s *RetryStorage) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.retry(ctx, func() error {
		var err error
		data, err = s.inner.Read(ctx, path)
		return err
	})
	return data, err
}

func (s *RetryStorage) Write(ctx context.Context, path string, data []byte) error {
	return s.retry(ctx, func() error {
		return s.inner.Write(ctx, path, data)
	})
}

func (s *RetryStorage) Delete(ctx context.Context, path string) error {
	return s.retry(ctx, func() error {
		return s.inner.Delete(ctx, path)
	})
}

func (s *RetryStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := s.retry(ctx, func() error {
		var err error
		paths, err = s.inner.List(ctx, prefix)
		return err
	})
	return paths, err
}

func (s *RetryStorage) Exists(ctx context.Context, path string) (bool, error) {
	var ok bool
	err := s.retry(ctx, func() error {
		var err error
		ok, err = s.inner.Exists(ctx, path)
		return err
	})
	return ok, err
}
