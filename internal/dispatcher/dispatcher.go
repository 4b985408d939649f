package dispatcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/pkg/cerr"
)

// Dispatcher listens for newly created tasks and tries to assign them
// immediately. Assignment failures are expected here (no eligible
// worker, races with manual assignment) and are logged, not retried;
// the task stays pending and can be assigned through the API.
type Dispatcher struct {
	bus      *eventbus.Bus
	assigner task.Assigner
}

func New(bus *eventbus.Bus, assigner task.Assigner) *Dispatcher {
	return &Dispatcher{bus: bus, assigner: assigner}
}

// Start consumes task.created events until ctx is cancelled. Call it in
// its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	subID, events := d.bus.Subscribe(256)
	defer d.bus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != eventbus.EventTypeTaskCreated {
				continue
			}
			d.tryAssign(ctx, event.ResourceID)
		}
	}
}

func (d *Dispatcher) tryAssign(ctx context.Context, taskID string) {
	assigned, err := d.assigner.Assign(ctx, taskID)
	if err != nil {
		switch {
		case errors.Is(err, task.ErrNoEligibleWorker):
			slog.Warn("no eligible worker for new task", "task_id", taskID)
		case cerr.IsCode(err, cerr.Aborted), cerr.IsCode(err, cerr.FailedPrecondition):
			// Someone else assigned or moved the task first.
			slog.Debug("auto-assignment lost to a concurrent update",
				"task_id", taskID, "error", err)
		default:
			slog.Error("auto-assignment failed", "task_id", taskID, "error", err)
		}
		return
	}
	slog.Info("auto-assigned task",
		"task_id", assigned.ID, "worker_id", assigned.AssignedTo)
}
