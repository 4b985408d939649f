package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/dispatch/internal/worker"
	"github.com/fieldops/dispatch/pkg/cerr"
	"github.com/fieldops/dispatch/pkg/storage"
)

const workersPrefix = "workers"

// YAMLRepository stores one YAML record per worker with the same
// version-checked update discipline as the task repository.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", workersPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, w *worker.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.storage.Exists(ctx, path(w.ID))
	if err != nil {
		return cerr.WrapStorageError("write", "worker", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "worker already exists", nil)
	}
	w.Version = 1
	return r.write(ctx, w)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*worker.Worker, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageError("read", "worker", err)
	}
	var w worker.Worker
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal worker: %w", err))
	}
	return &w, nil
}

func (r *YAMLRepository) List(ctx context.Context, filter worker.Filter, limit, offset int) ([]*worker.Worker, int, error) {
	paths, err := r.storage.List(ctx, workersPrefix)
	if err != nil {
		return nil, 0, cerr.WrapStorageError("read", "workers", err)
	}

	var all []*worker.Worker
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var w worker.Worker
		if err := yaml.Unmarshal(data, &w); err != nil {
			continue
		}
		if !filter.Matches(&w) {
			continue
		}
		all = append(all, &w)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *YAMLRepository) Update(ctx context.Context, w *worker.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.storage.Read(ctx, path(w.ID))
	if err != nil {
		return cerr.WrapStorageError("read", "worker", err)
	}
	var current worker.Worker
	if err := yaml.Unmarshal(data, &current); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal worker: %w", err))
	}
	if current.Version != w.Version {
		return cerr.NewError(cerr.Aborted,
			fmt.Sprintf("worker %s was modified concurrently", w.ID), nil)
	}
	w.Version++
	return r.write(ctx, w)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageError("delete", "worker", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, w *worker.Worker) error {
	data, err := yaml.Marshal(w)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal worker: %w", err))
	}
	if err := r.storage.Write(ctx, path(w.ID), data); err != nil {
		return cerr.WrapStorageError("write", "worker", err)
	}
	return nil
}
