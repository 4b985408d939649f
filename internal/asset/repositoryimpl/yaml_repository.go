package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/dispatch/internal/asset"
	"github.com/fieldops/dispatch/pkg/cerr"
	"github.com/fieldops/dispatch/pkg/storage"
)

const assetsPrefix = "assets"

type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", assetsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, a *asset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageError("write", "asset", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "asset already exists", nil)
	}
	a.Version = 1
	return r.write(ctx, a)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*asset.Asset, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageError("read", "asset", err)
	}
	var a asset.Asset
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal asset: %w", err))
	}
	return &a, nil
}

func (r *YAMLRepository) List(ctx context.Context, limit, offset int) ([]*asset.Asset, int, error) {
	paths, err := r.storage.List(ctx, assetsPrefix)
	if err != nil {
		return nil, 0, cerr.WrapStorageError("read", "assets", err)
	}

	var all []*asset.Asset
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var a asset.Asset
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

func (r *YAMLRepository) Update(ctx context.Context, a *asset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.storage.Read(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageError("read", "asset", err)
	}
	var current asset.Asset
	if err := yaml.Unmarshal(data, &current); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal asset: %w", err))
	}
	if current.Version != a.Version {
		return cerr.NewError(cerr.Aborted,
			fmt.Sprintf("asset %s was modified concurrently", a.ID), nil)
	}
	a.Version++
	return r.write(ctx, a)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageError("delete", "asset", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, a *asset.Asset) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal asset: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageError("write", "asset", err)
	}
	return nil
}
