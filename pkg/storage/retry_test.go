package storage

import (
	"context"
	"errors"
	"testing"
)

// flakyStorage fails each operation a fixed number of times before
// delegating to an in-memory map.
type flakyStorage struct {
	failures int
	calls    int
	data     map[string][]byte
	err      error
}

func (f *flakyStorage) tick() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyStorage) Read(_ context.Context, path string) ([]byte, error) {
	if err := f.tick(); err != nil {
		return nil, err
	}
	data, ok := f.data[path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *flakyStorage) Write(_ context.Context, path string, data []byte) error {
	if err := f.tick(); err != nil {
		return err
	}
	f.data[path] = data
	return nil
}

func (f *flakyStorage) Delete(_ context.Context, path string) error {
	if err := f.tick(); err != nil {
		return err
	}
	delete(f.data, path)
	return nil
}

func (f *flakyStorage) List(_ context.Context, prefix string) ([]string, error) {
	if err := f.tick(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *flakyStorage) Exists(_ context.Context, path string) (bool, error) {
	if err := f.tick(); err != nil {
		return false, err
	}
	_, ok := f.data[path]
	return ok, nil
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyStorage{
		failures: 2,
		data:     map[string][]byte{"k": []byte("v")},
		err:      errors.New("transient"),
	}
	store := WithRetry(inner)

	data, err := store.Read(context.Background(), "k")
	if err != nil {
		t.Fatalf("Read failed after retries: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("unexpected data: %q", data)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	wantErr := errors.New("still down")
	inner := &flakyStorage{failures: 10, data: map[string][]byte{}, err: wantErr}
	store := WithRetry(inner)

	if err := store.Write(context.Background(), "k", []byte("v")); !errors.Is(err, wantErr) {
		t.Errorf("expected the underlying error, got %v", err)
	}
	if inner.calls != defaultRetryAttempts {
		t.Errorf("expected %d attempts, got %d", defaultRetryAttempts, inner.calls)
	}
}

func TestRetryDoesNotRetryNotFound(t *testing.T) {
	inner := &flakyStorage{data: map[string][]byte{}}
	store := WithRetry(inner)

	if _, err := store.Read(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected a single attempt for ErrNotFound, got %d", inner.calls)
	}
}
