package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/dispatch/internal/area"
	"github.com/fieldops/dispatch/pkg/cerr"
	"github.com/fieldops/dispatch/pkg/storage"
)

const areasPrefix = "areas"

type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", areasPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, a *area.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageError("write", "area", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "area already exists", nil)
	}
	a.Version = 1
	return r.write(ctx, a)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*area.Area, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageError("read", "area", err)
	}
	var a area.Area
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal area: %w", err))
	}
	return &a, nil
}

func (r *YAMLRepository) List(ctx context.Context, limit, offset int) ([]*area.Area, int, error) {
	paths, err := r.storage.List(ctx, areasPrefix)
	if err != nil {
		return nil, 0, cerr.WrapStorageError("read", "areas", err)
	}

	var all []*area.Area
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var a area.Area
		if err := yaml.Unmarshal(data, &a); err != nil {
			continue
		}
		all = append(all, &a)
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

func (r *YAMLRepository) Update(ctx context.Context, a *area.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.storage.Read(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageError("read", "area", err)
	}
	var current area.Area
	if err := yaml.Unmarshal(data, &current); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal area: %w", err))
	}
	if current.Version != a.Version {
		return cerr.NewError(cerr.Aborted,
			fmt.Sprintf("area %s was modified concurrently", a.ID), nil)
	}
	a.Version++
	return r.write(ctx, a)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageError("delete", "area", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, a *area.Area) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal area: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageError("write", "area", err)
	}
	return nil
}
