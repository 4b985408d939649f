package query

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/area"
	arearepo "github.com/fieldops/dispatch/internal/area/repositoryimpl"
	"github.com/fieldops/dispatch/internal/asset"
	assetrepo "github.com/fieldops/dispatch/internal/asset/repositoryimpl"
	"github.com/fieldops/dispatch/internal/task"
	taskrepo "github.com/fieldops/dispatch/internal/task/repositoryimpl"
	"github.com/fieldops/dispatch/internal/worker"
	workerrepo "github.com/fieldops/dispatch/internal/worker/repositoryimpl"
	"github.com/fieldops/dispatch/pkg/storage"
)

func newFacade(t *testing.T) (*Facade, task.Repository, worker.Repository, area.Repository, asset.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	tasks := taskrepo.NewYAMLRepository(store)
	workers := workerrepo.NewYAMLRepository(store)
	areas := arearepo.NewYAMLRepository(store)
	assets := assetrepo.NewYAMLRepository(store)
	return NewFacade(tasks, workers, areas, assets), tasks, workers, areas, assets
}

func TestGetTaskResolvesNames(t *testing.T) {
	f, tasks, workers, areas, assets := newFacade(t)
	ctx := context.Background()
	now := time.Now()

	if err := workers.Create(ctx, &worker.Worker{
		ID: "W1", Name: "Ada",
		Availability: worker.Availability{Status: worker.Available},
		CreatedAt:    now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}
	if err := areas.Create(ctx, &area.Area{ID: "A1", Name: "North Yard", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("failed to create area: %v", err)
	}
	if err := assets.Create(ctx, &asset.Asset{ID: "AS1", Name: "Pump 7", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("failed to create asset: %v", err)
	}
	if err := tasks.Create(ctx, &task.Task{
		ID: "T1", Title: "Service pump", Type: "maintenance",
		Status: task.StatusInProgress, Priority: task.PriorityHigh,
		AssignedTo: "W1", AreaID: "A1", AssetID: "AS1",
		StartDate: now, EndDate: now.Add(time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	view, err := f.GetTask(ctx, "T1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if view.AssignedToName != "Ada" {
		t.Errorf("expected assignedToName Ada, got %q", view.AssignedToName)
	}
	if view.AreaName != "North Yard" {
		t.Errorf("expected areaName North Yard, got %q", view.AreaName)
	}
	if view.AssetName != "Pump 7" {
		t.Errorf("expected assetName Pump 7, got %q", view.AssetName)
	}
}

func TestGetTaskToleratesDanglingReference(t *testing.T) {
	f, tasks, _, _, _ := newFacade(t)
	ctx := context.Background()
	now := time.Now()

	if err := tasks.Create(ctx, &task.Task{
		ID: "T1", Title: "Orphaned", Type: "maintenance",
		Status: task.StatusInProgress, Priority: task.PriorityLow,
		AssignedTo: "gone",
		StartDate:  now, EndDate: now.Add(time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	view, err := f.GetTask(ctx, "T1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if view.AssignedToName != "" {
		t.Errorf("expected empty name for missing worker, got %q", view.AssignedToName)
	}
	if view.AssignedTo != "gone" {
		t.Errorf("expected the raw reference to survive, got %q", view.AssignedTo)
	}
}

func TestListWorkersComputesLoad(t *testing.T) {
	f, _, workers, _, _ := newFacade(t)
	ctx := context.Background()
	now := time.Now()

	if err := workers.Create(ctx, &worker.Worker{
		ID: "W1", Name: "Ada",
		Expertise:    []string{"electrical"},
		Availability: worker.Availability{Status: worker.Available},
		CurrentTasks: []string{"T1", "T2"},
		CreatedAt:    now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}
	if err := workers.Create(ctx, &worker.Worker{
		ID: "W2", Name: "Lin",
		Availability: worker.Availability{Status: worker.Unavailable},
		CreatedAt:    now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}

	views, total, err := f.ListWorkers(ctx, worker.Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("ListWorkers failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	byID := map[string]*WorkerView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	if byID["W1"].Load != 2 {
		t.Errorf("expected W1 load 2, got %d", byID["W1"].Load)
	}
	if byID["W2"].Load != 0 {
		t.Errorf("expected W2 load 0, got %d", byID["W2"].Load)
	}

	// Skill filter narrows the pool.
	skilled, total, err := f.ListWorkers(ctx, worker.Filter{Skill: "electrical"}, 0, 0)
	if err != nil {
		t.Fatalf("ListWorkers failed: %v", err)
	}
	if total != 1 || len(skilled) != 1 || skilled[0].ID != "W1" {
		t.Errorf("expected only W1 for the skill filter, got %d workers", len(skilled))
	}
}

func TestListTasksFilterByStatus(t *testing.T) {
	f, tasks, _, _, _ := newFacade(t)
	ctx := context.Background()
	now := time.Now()

	for i, status := range []task.Status{task.StatusPending, task.StatusCompleted} {
		if err := tasks.Create(ctx, &task.Task{
			ID: string(rune('A' + i)), Title: "t", Type: "maintenance",
			Status: status, Priority: task.PriorityMedium,
			StartDate: now, EndDate: now.Add(time.Hour),
			CreatedAt: now.Add(time.Duration(i) * time.Minute), UpdatedAt: now,
		}); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
	}

	views, total, err := f.ListTasks(ctx, task.Filter{Status: task.StatusPending}, 0, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if total != 1 || len(views) != 1 || views[0].Status != task.StatusPending {
		t.Errorf("expected a single pending task, got %d (total %d)", len(views), total)
	}
}
