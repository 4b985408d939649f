package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/sourcegraph/conc/iter"

	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/internal/scoring"
	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
	"github.com/fieldops/dispatch/pkg/cerr"
)

// ErrNoEligibleWorker is the normal "nothing to assign to" outcome: no
// state was mutated and the caller may retry later.
var ErrNoEligibleWorker = task.ErrNoEligibleWorker

// Engine ranks candidate workers for a pending task and commits the
// winning assignment. Exclusivity comes from two independent scopes:
// the task repository's version check (at most one commit per task) and
// the load tracker's per-worker mutex (the cap holds across tasks).
type Engine struct {
	tasks     task.Repository
	workers   worker.Repository
	loads     *worker.LoadTracker
	lifecycle *task.Manager
	scores    *scoring.Provider
	bus       *eventbus.Bus
}

func NewEngine(tasks task.Repository, workers worker.Repository, loads *worker.LoadTracker, lifecycle *task.Manager, scores *scoring.Provider, bus *eventbus.Bus) *Engine {
	return &Engine{
		tasks:     tasks,
		workers:   workers,
		loads:     loads,
		lifecycle: lifecycle,
		scores:    scores,
		bus:       bus,
	}
}

type candidate struct {
	worker *worker.Worker
	score  float64
}

// Assign picks the most suitable worker for a pending task and binds it
// atomically. Returns ErrNoEligibleWorker when no worker qualifies.
func (e *Engine) Assign(ctx context.Context, taskID string) (*task.Task, error) {
	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusPending {
		if t.Status == task.StatusInProgress {
			return nil, cerr.NewError(cerr.FailedPrecondition,
				fmt.Sprintf("task %s is already assigned", taskID), nil)
		}
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("task %s is %s and cannot be assigned", taskID, t.Status), nil)
	}

	ranked, err := e.rank(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNoEligibleWorker
	}

	for _, c := range ranked {
		if err := ctx.Err(); err != nil {
			return nil, cerr.NewError(cerr.Canceled, "assignment cancelled", err)
		}
		if err := e.loads.Acquire(ctx, c.worker.ID, t.ID); err != nil {
			if cerr.IsCode(err, cerr.ResourceExhausted) {
				// Filled up between scoring and locking; next candidate.
				continue
			}
			return nil, err
		}

		// From the first write on, the sequence must complete or fully
		// roll back even if the request context is cancelled.
		commitCtx := context.WithoutCancel(ctx)
		updated, err := e.lifecycle.CommitAssignment(commitCtx, t.ID, t.Version, c.worker.ID)
		if err != nil {
			if rbErr := e.loads.Release(commitCtx, c.worker.ID, t.ID); rbErr != nil {
				slog.Error("failed to roll back load slot after assignment abort",
					"task_id", t.ID, "worker_id", c.worker.ID, "error", rbErr)
			}
			return nil, err
		}

		e.bus.PublishNew(eventbus.EventTypeTaskAssigned, t.ID, map[string]string{
			"worker_id": c.worker.ID,
			"score":     strconv.FormatFloat(c.score, 'f', 4, 64),
		})
		return updated, nil
	}
	return nil, ErrNoEligibleWorker
}

// Reassign binds a task to an explicitly chosen worker, bypassing
// scoring but not the exclusivity and load-cap checks. On an in-progress
// task the old worker's slot is released and the new one acquired as a
// single locked exchange.
func (e *Engine) Reassign(ctx context.Context, taskID, workerID string) (*task.Task, error) {
	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	w, err := e.workers.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if w.Availability.Status == worker.Unavailable {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("worker %s is unavailable", workerID), nil)
	}

	switch t.Status {
	case task.StatusPending:
		if err := e.loads.Acquire(ctx, workerID, t.ID); err != nil {
			return nil, err
		}
		commitCtx := context.WithoutCancel(ctx)
		updated, err := e.lifecycle.CommitAssignment(commitCtx, t.ID, t.Version, workerID)
		if err != nil {
			if rbErr := e.loads.Release(commitCtx, workerID, t.ID); rbErr != nil {
				slog.Error("failed to roll back load slot after reassignment abort",
					"task_id", t.ID, "worker_id", workerID, "error", rbErr)
			}
			return nil, err
		}
		e.publishReassigned(t.ID, "", workerID)
		return updated, nil

	case task.StatusInProgress:
		oldWorkerID := t.AssignedTo
		if oldWorkerID == workerID {
			return t, nil
		}
		commitCtx := context.WithoutCancel(ctx)
		if err := e.loads.Swap(commitCtx, oldWorkerID, workerID, t.ID); err != nil {
			return nil, err
		}
		updated, err := e.lifecycle.CommitReassignment(commitCtx, t.ID, t.Version, workerID)
		if err != nil {
			if rbErr := e.loads.Swap(commitCtx, workerID, oldWorkerID, t.ID); rbErr != nil {
				slog.Error("failed to roll back load swap after reassignment abort",
					"task_id", t.ID, "worker_id", workerID, "error", rbErr)
			}
			return nil, err
		}
		e.publishReassigned(t.ID, oldWorkerID, workerID)
		return updated, nil

	default:
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("task %s is %s and cannot be reassigned", taskID, t.Status), nil)
	}
}

// rank loads the candidate pool, scores it concurrently, and orders it
// deterministically: score desc, then current load asc, then id asc.
func (e *Engine) rank(ctx context.Context, t *task.Task) ([]candidate, error) {
	all, _, err := e.workers.List(ctx, worker.Filter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	cfg := e.scores.Config()
	pool := make([]*worker.Worker, 0, len(all))
	for _, w := range all {
		if w.Availability.Status == worker.Unavailable {
			continue
		}
		if w.Load() >= cfg.LoadCap {
			// Hard exclusion at the cap, not just a penalty.
			continue
		}
		pool = append(pool, w)
	}

	ranked := iter.Map(pool, func(w **worker.Worker) candidate {
		return candidate{worker: *w, score: scoring.Score(*w, t, cfg)}
	})
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].worker.Load() != ranked[j].worker.Load() {
			return ranked[i].worker.Load() < ranked[j].worker.Load()
		}
		return ranked[i].worker.ID < ranked[j].worker.ID
	})
	return ranked, nil
}

func (e *Engine) publishReassigned(taskID, oldWorkerID, newWorkerID string) {
	e.bus.PublishNew(eventbus.EventTypeTaskReassigned, taskID, map[string]string{
		"old_worker_id": oldWorkerID,
		"worker_id":     newWorkerID,
	})
}
