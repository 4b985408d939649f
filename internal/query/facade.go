package query

import (
	"context"

	"github.com/fieldops/dispatch/internal/area"
	"github.com/fieldops/dispatch/internal/asset"
	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
)

// TaskView is a task enriched with display names for its references.
// Names are resolved at read time; a dangling reference yields an empty
// name rather than an error.
type TaskView struct {
	task.Task
	AssignedToName string `json:"assignedToName,omitempty"`
	AreaName       string `json:"areaName,omitempty"`
	AssetName      string `json:"assetName,omitempty"`
}

// WorkerView is a worker enriched with its computed load.
type WorkerView struct {
	worker.Worker
	Load int `json:"load"`
}

// Facade serves all read paths. It never mutates anything; writes go
// through the lifecycle manager and the assignment engine.
type Facade struct {
	tasks   task.Repository
	workers worker.Repository
	areas   area.Repository
	assets  asset.Repository
}

func NewFacade(tasks task.Repository, workers worker.Repository, areas area.Repository, assets asset.Repository) *Facade {
	return &Facade{tasks: tasks, workers: workers, areas: areas, assets: assets}
}

// ListTasks applies the filter and page window and resolves reference
// names, deduplicating lookups across the page.
func (f *Facade) ListTasks(ctx context.Context, filter task.Filter, limit, offset int) ([]*TaskView, int, error) {
	items, total, err := f.tasks.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	names := newNameCache(f)
	views := make([]*TaskView, 0, len(items))
	for _, t := range items {
		views = append(views, names.taskView(ctx, t))
	}
	return views, total, nil
}

func (f *Facade) GetTask(ctx context.Context, id string) (*TaskView, error) {
	t, err := f.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return newNameCache(f).taskView(ctx, t), nil
}

func (f *Facade) ListWorkers(ctx context.Context, filter worker.Filter, limit, offset int) ([]*WorkerView, int, error) {
	items, total, err := f.workers.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*WorkerView, 0, len(items))
	for _, w := range items {
		views = append(views, &WorkerView{Worker: *w, Load: w.Load()})
	}
	return views, total, nil
}

func (f *Facade) GetWorker(ctx context.Context, id string) (*WorkerView, error) {
	w, err := f.workers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkerView{Worker: *w, Load: w.Load()}, nil
}

// nameCache memoizes reference lookups for the duration of one read.
type nameCache struct {
	f       *Facade
	workers map[string]string
	areas   map[string]string
	assets  map[string]string
}

func newNameCache(f *Facade) *nameCache {
	return &nameCache{
		f:       f,
		workers: map[string]string{},
		areas:   map[string]string{},
		assets:  map[string]string{},
	}
}

func (c *nameCache) taskView(ctx context.Context, t *task.Task) *TaskView {
	v := &TaskView{Task: *t}
	if t.AssignedTo != "" {
		v.AssignedToName = c.workerName(ctx, t.AssignedTo)
	}
	if t.AreaID != "" {
		v.AreaName = c.areaName(ctx, t.AreaID)
	}
	if t.AssetID != "" {
		v.AssetName = c.assetName(ctx, t.AssetID)
	}
	return v
}

func (c *nameCache) workerName(ctx context.Context, id string) string {
	if name, ok := c.workers[id]; ok {
		return name
	}
	// Lookup failures degrade to an empty name; the task itself is
	// still returned.
	name := ""
	if w, err := c.f.workers.Get(ctx, id); err == nil {
		name = w.Name
	}
	c.workers[id] = name
	return name
}

func (c *nameCache) areaName(ctx context.Context, id string) string {
	if name, ok := c.areas[id]; ok {
		return name
	}
	name := ""
	if a, err := c.f.areas.Get(ctx, id); err == nil {
		name = a.Name
	}
	c.areas[id] = name
	return name
}

func (c *nameCache) assetName(ctx context.Context, id string) string {
	if name, ok := c.assets[id]; ok {
		return name
	}
	name := ""
	if a, err := c.f.assets.Get(ctx, id); err == nil {
		name = a.Name
	}
	c.assets[id] = name
	return name
}
