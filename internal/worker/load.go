package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldops/dispatch/pkg/cerr"
)

const loadCASAttempts = 3

// LoadTracker serializes all mutations of a worker's current_tasks set
// behind a per-worker mutex, independent of task-level locking. It is
// the only writer of that field, so the load cap holds even when one
// worker is contended by assignments of different tasks.
type LoadTracker struct {
	repo  Repository
	capFn func() int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLoadTracker builds a tracker that reads the cap through capFn on
// every check, so a hot-reloaded cap applies to scoring and slot
// enforcement alike.
func NewLoadTracker(repo Repository, capFn func() int) *LoadTracker {
	return &LoadTracker{
		repo:  repo,
		capFn: capFn,
		locks: make(map[string]*sync.Mutex),
	}
}

// Cap is the active maximum of concurrent tasks per worker.
func (lt *LoadTracker) Cap() int {
	return lt.capFn()
}

func (lt *LoadTracker) lock(workerID string) *sync.Mutex {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	m, ok := lt.locks[workerID]
	if !ok {
		m = &sync.Mutex{}
		lt.locks[workerID] = m
	}
	return m
}

// Acquire reserves a load slot on the worker for the task. It fails
// with ResourceExhausted when the worker is at the cap. Acquiring a
// slot the task already holds is a no-op.
func (lt *LoadTracker) Acquire(ctx context.Context, workerID, taskID string) error {
	m := lt.lock(workerID)
	m.Lock()
	defer m.Unlock()
	return lt.acquireLocked(ctx, workerID, taskID)
}

// Release frees the task's load slot on the worker. Releasing a slot
// the worker does not hold is a no-op.
func (lt *LoadTracker) Release(ctx context.Context, workerID, taskID string) error {
	m := lt.lock(workerID)
	m.Lock()
	defer m.Unlock()
	return lt.releaseLocked(ctx, workerID, taskID)
}

// Swap moves the task's slot from one worker to another. Both workers
// are locked in id order so concurrent swaps cannot deadlock; the old
// slot is restored if the new worker is at the cap.
func (lt *LoadTracker) Swap(ctx context.Context, oldWorkerID, newWorkerID, taskID string) error {
	if oldWorkerID == newWorkerID {
		return nil
	}
	first, second := oldWorkerID, newWorkerID
	if second < first {
		first, second = second, first
	}
	m1, m2 := lt.lock(first), lt.lock(second)
	m1.Lock()
	defer m1.Unlock()
	m2.Lock()
	defer m2.Unlock()

	if err := lt.acquireLocked(ctx, newWorkerID, taskID); err != nil {
		return err
	}
	if err := lt.releaseLocked(ctx, oldWorkerID, taskID); err != nil {
		// Roll the new slot back so the task never holds two.
		if rbErr := lt.releaseLocked(ctx, newWorkerID, taskID); rbErr != nil {
			return cerr.NewError(cerr.Internal, "server error",
				fmt.Errorf("failed to roll back load slot on %s after release of %s failed: %w", newWorkerID, oldWorkerID, rbErr))
		}
		return err
	}
	return nil
}

// acquireLocked assumes the caller holds the worker's mutex. The CAS
// retry absorbs conflicts with concurrent profile updates, which do not
// go through the tracker.
func (lt *LoadTracker) acquireLocked(ctx context.Context, workerID, taskID string) error {
	var err error
	for attempt := 0; attempt < loadCASAttempts; attempt++ {
		var w *Worker
		w, err = lt.repo.Get(ctx, workerID)
		if err != nil {
			return err
		}
		if w.HasTask(taskID) {
			return nil
		}
		if loadCap := lt.capFn(); w.Load() >= loadCap {
			return cerr.NewError(cerr.ResourceExhausted,
				fmt.Sprintf("worker %s is at the load cap (%d)", workerID, loadCap), nil)
		}
		w.CurrentTasks = append(w.CurrentTasks, taskID)
		w.UpdatedAt = time.Now()
		if err = lt.repo.Update(ctx, w); err == nil {
			return nil
		}
		if !cerr.IsCode(err, cerr.Aborted) {
			return err
		}
	}
	return err
}

func (lt *LoadTracker) releaseLocked(ctx context.Context, workerID, taskID string) error {
	var err error
	for attempt := 0; attempt < loadCASAttempts; attempt++ {
		var w *Worker
		w, err = lt.repo.Get(ctx, workerID)
		if err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return nil
			}
			return err
		}
		if !w.HasTask(taskID) {
			return nil
		}
		kept := w.CurrentTasks[:0]
		for _, id := range w.CurrentTasks {
			if id != taskID {
				kept = append(kept, id)
			}
		}
		w.CurrentTasks = kept
		w.UpdatedAt = time.Now()
		if err = lt.repo.Update(ctx, w); err == nil {
			return nil
		}
		if !cerr.IsCode(err, cerr.Aborted) {
			return err
		}
	}
	return err
}
