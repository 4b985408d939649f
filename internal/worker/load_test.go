package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/worker"
	workerrepo "github.com/fieldops/dispatch/internal/worker/repositoryimpl"
	"github.com/fieldops/dispatch/pkg/cerr"
	"github.com/fieldops/dispatch/pkg/storage"
)

func newTracker(t *testing.T, loadCap int) (*worker.LoadTracker, worker.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	repo := workerrepo.NewYAMLRepository(store)
	return worker.NewLoadTracker(repo, func() int { return loadCap }), repo
}

func createWorker(t *testing.T, repo worker.Repository, id string) {
	t.Helper()
	now := time.Now()
	w := &worker.Worker{
		ID:           id,
		Name:         "Worker " + id,
		Availability: worker.Availability{Status: worker.Available},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), w); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}
}

func TestAcquireAndRelease(t *testing.T) {
	tracker, repo := newTracker(t, 2)
	createWorker(t, repo, "W1")
	ctx := context.Background()

	if err := tracker.Acquire(ctx, "W1", "T1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	// Re-acquiring the same slot is a no-op.
	if err := tracker.Acquire(ctx, "W1", "T1"); err != nil {
		t.Fatalf("idempotent Acquire failed: %v", err)
	}
	w, err := repo.Get(ctx, "W1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if w.Load() != 1 {
		t.Errorf("expected load 1, got %d", w.Load())
	}

	if err := tracker.Release(ctx, "W1", "T1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	// Releasing a slot the worker does not hold is a no-op.
	if err := tracker.Release(ctx, "W1", "T1"); err != nil {
		t.Fatalf("repeated Release failed: %v", err)
	}
	w, err = repo.Get(ctx, "W1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if w.Load() != 0 {
		t.Errorf("expected load 0, got %d", w.Load())
	}
}

func TestAcquireEnforcesCap(t *testing.T) {
	tracker, repo := newTracker(t, 2)
	createWorker(t, repo, "W1")
	ctx := context.Background()

	for _, taskID := range []string{"T1", "T2"} {
		if err := tracker.Acquire(ctx, "W1", taskID); err != nil {
			t.Fatalf("Acquire(%s) failed: %v", taskID, err)
		}
	}
	if err := tracker.Acquire(ctx, "W1", "T3"); !cerr.IsCode(err, cerr.ResourceExhausted) {
		t.Errorf("expected ResourceExhausted at the cap, got %v", err)
	}
}

func TestConcurrentAcquiresNeverExceedCap(t *testing.T) {
	const loadCap = 3
	const attempts = 20
	tracker, repo := newTracker(t, loadCap)
	createWorker(t, repo, "W1")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tracker.Acquire(ctx, "W1", fmt.Sprintf("T%d", i))
		}(i)
	}
	wg.Wait()

	acquired := 0
	for i, err := range errs {
		switch {
		case err == nil:
			acquired++
		case cerr.IsCode(err, cerr.ResourceExhausted):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if acquired != loadCap {
		t.Errorf("expected exactly %d successful acquires, got %d", loadCap, acquired)
	}

	w, err := repo.Get(ctx, "W1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if w.Load() != loadCap {
		t.Errorf("expected load %d, got %d", loadCap, w.Load())
	}
}

func TestSwapMovesSlot(t *testing.T) {
	tracker, repo := newTracker(t, 2)
	createWorker(t, repo, "W1")
	createWorker(t, repo, "W2")
	ctx := context.Background()

	if err := tracker.Acquire(ctx, "W1", "T1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := tracker.Swap(ctx, "W1", "W2", "T1"); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	w1, _ := repo.Get(ctx, "W1")
	w2, _ := repo.Get(ctx, "W2")
	if w1.HasTask("T1") {
		t.Error("expected W1 to no longer hold the slot")
	}
	if !w2.HasTask("T1") {
		t.Error("expected W2 to hold the slot")
	}
}

func TestSwapRestoresSlotWhenTargetFull(t *testing.T) {
	tracker, repo := newTracker(t, 1)
	createWorker(t, repo, "W1")
	createWorker(t, repo, "W2")
	ctx := context.Background()

	if err := tracker.Acquire(ctx, "W1", "T1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := tracker.Acquire(ctx, "W2", "T2"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := tracker.Swap(ctx, "W1", "W2", "T1"); !cerr.IsCode(err, cerr.ResourceExhausted) {
		t.Fatalf("expected ResourceExhausted from swap to a full worker, got %v", err)
	}
	w1, _ := repo.Get(ctx, "W1")
	if !w1.HasTask("T1") {
		t.Error("expected W1 to keep the slot after a failed swap")
	}
}

func TestCapFollowsActiveConfig(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	repo := workerrepo.NewYAMLRepository(store)
	loadCap := 2
	tracker := worker.NewLoadTracker(repo, func() int { return loadCap })
	createWorker(t, repo, "W1")
	ctx := context.Background()

	for _, taskID := range []string{"T1", "T2"} {
		if err := tracker.Acquire(ctx, "W1", taskID); err != nil {
			t.Fatalf("Acquire(%s) failed: %v", taskID, err)
		}
	}

	// Lowering the cap must bite immediately, even for a worker whose
	// load was legal under the previous value.
	loadCap = 1
	if err := tracker.Acquire(ctx, "W1", "T3"); !cerr.IsCode(err, cerr.ResourceExhausted) {
		t.Errorf("expected ResourceExhausted under the lowered cap, got %v", err)
	}
	if got := tracker.Cap(); got != 1 {
		t.Errorf("expected Cap() to report 1, got %d", got)
	}

	// Raising it frees slots without any restart.
	loadCap = 3
	if err := tracker.Acquire(ctx, "W1", "T3"); err != nil {
		t.Errorf("expected Acquire to succeed under the raised cap, got %v", err)
	}
}

func TestReleaseToleratesDeletedWorker(t *testing.T) {
	tracker, repo := newTracker(t, 2)
	createWorker(t, repo, "W1")
	ctx := context.Background()

	if err := tracker.Acquire(ctx, "W1", "T1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := repo.Delete(ctx, "W1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := tracker.Release(ctx, "W1", "T1"); err != nil {
		t.Errorf("expected Release of a deleted worker to be a no-op, got %v", err)
	}
}
