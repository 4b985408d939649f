package task

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fieldops/dispatch/internal/area"
	"github.com/fieldops/dispatch/internal/asset"
	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/internal/worker"
	"github.com/fieldops/dispatch/pkg/cerr"
)

// Manager enforces the task state machine. Every write goes through the
// repository's version-checked update, and terminal transitions release
// the assigned worker's load slot before returning.
type Manager struct {
	repo   Repository
	areas  area.Repository
	assets asset.Repository
	loads  *worker.LoadTracker
	bus    *eventbus.Bus
}

func NewManager(repo Repository, areas area.Repository, assets asset.Repository, loads *worker.LoadTracker, bus *eventbus.Bus) *Manager {
	return &Manager{
		repo:   repo,
		areas:  areas,
		assets: assets,
		loads:  loads,
		bus:    bus,
	}
}

func (m *Manager) Create(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	if req.Title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task title cannot be empty", nil)
	}
	if req.Type == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task type cannot be empty", nil)
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, cerr.NewError(cerr.InvalidArgument, "start and end dates are required", nil)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, cerr.NewError(cerr.InvalidArgument, "end date must not precede start date", nil)
	}
	if req.AreaID != "" {
		if _, err := m.areas.Get(ctx, req.AreaID); err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return nil, cerr.NewError(cerr.InvalidArgument,
					fmt.Sprintf("area %s does not exist", req.AreaID), err)
			}
			return nil, err
		}
	}
	if req.AssetID != "" {
		if _, err := m.assets.Get(ctx, req.AssetID); err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return nil, cerr.NewError(cerr.InvalidArgument,
					fmt.Sprintf("asset %s does not exist", req.AssetID), err)
			}
			return nil, err
		}
	}

	now := time.Now()
	t := &Task{
		ID:             ulid.Make().String(),
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Subtype:        req.Subtype,
		Status:         StatusPending,
		Priority:       priority,
		RequiredSkills: req.RequiredSkills,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Progress:       0,
		AreaID:         req.AreaID,
		AssetID:        req.AssetID,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	m.bus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, map[string]string{
		"priority": string(t.Priority),
		"type":     t.Type,
	})
	return t, nil
}

// Update applies a PATCH. A version race surfaces as Aborted so the
// caller can retry idempotently; lifecycle violations surface as
// FailedPrecondition and leave state unchanged.
func (m *Manager) Update(ctx context.Context, id string, req *UpdateTaskRequest) (*Task, error) {
	t, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateUpdate(t, req); err != nil {
		return nil, err
	}

	oldStatus := t.Status
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Progress != nil {
		t.Progress = *req.Progress
	}
	t.UpdatedAt = time.Now()

	if err := m.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	// The slot release must be observable before the caller sees the
	// transition, and must run even if the request context is gone.
	if t.Status != oldStatus && t.Status.Terminal() && t.AssignedTo != "" {
		if err := m.loads.Release(context.WithoutCancel(ctx), t.AssignedTo, t.ID); err != nil {
			return nil, err
		}
	}

	if t.Status != oldStatus {
		m.bus.PublishNew(eventbus.EventTypeTaskStatusChanged, t.ID, map[string]string{
			"old_status": string(oldStatus),
			"new_status": string(t.Status),
		})
	} else {
		m.bus.PublishNew(eventbus.EventTypeTaskUpdated, t.ID, nil)
	}
	return t, nil
}

// CommitAssignment performs the Pending -> InProgress transition on
// behalf of the assignment engine. expectedVersion is the version the
// engine ranked against; any interleaved write aborts the commit.
func (m *Manager) CommitAssignment(ctx context.Context, taskID string, expectedVersion int64, workerID string) (*Task, error) {
	t, err := m.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Version != expectedVersion || t.Status != StatusPending {
		return nil, cerr.NewError(cerr.Aborted,
			fmt.Sprintf("task %s was modified concurrently", taskID), nil)
	}
	t.Status = StatusInProgress
	t.AssignedTo = workerID
	t.UpdatedAt = time.Now()
	if err := m.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	m.bus.PublishNew(eventbus.EventTypeTaskStatusChanged, t.ID, map[string]string{
		"old_status": string(StatusPending),
		"new_status": string(StatusInProgress),
		"worker_id":  workerID,
	})
	return t, nil
}

// CommitReassignment swaps assigned_to on an in-progress task.
func (m *Manager) CommitReassignment(ctx context.Context, taskID string, expectedVersion int64, workerID string) (*Task, error) {
	t, err := m.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Version != expectedVersion || t.Status != StatusInProgress {
		return nil, cerr.NewError(cerr.Aborted,
			fmt.Sprintf("task %s was modified concurrently", taskID), nil)
	}
	t.AssignedTo = workerID
	t.UpdatedAt = time.Now()
	if err := m.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a task record. Live tasks cannot be deleted; cancel
// them first so assignments stay referentially sound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	t, err := m.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !t.Status.Terminal() {
		return cerr.NewError(cerr.FailedPrecondition,
			"only completed or cancelled tasks can be deleted", nil)
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.bus.PublishNew(eventbus.EventTypeTaskDeleted, id, nil)
	return nil
}

func validateUpdate(t *Task, req *UpdateTaskRequest) error {
	if t.Status.Terminal() {
		return cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("task %s is %s and cannot be modified", t.ID, t.Status), nil)
	}
	if req.Status != nil {
		to := *req.Status
		switch {
		case to == t.Status:
			// no-op
		case to == StatusInProgress:
			return cerr.NewError(cerr.FailedPrecondition,
				"tasks enter IN_PROGRESS through assignment, not a status patch", nil)
		case !t.Status.CanTransitionTo(to):
			return cerr.NewError(cerr.FailedPrecondition,
				fmt.Sprintf("transition from %s to %s is not allowed", t.Status, to), nil)
		case to == StatusCompleted && (req.Progress == nil || *req.Progress != 100):
			return cerr.NewError(cerr.FailedPrecondition,
				"completing a task requires progress 100 in the same update", nil)
		}
	}
	if req.Progress != nil {
		p := *req.Progress
		if p < 0 || p > 100 {
			return cerr.NewError(cerr.InvalidArgument, "progress must be between 0 and 100", nil)
		}
		switch t.Status {
		case StatusPending:
			if p != 0 {
				return cerr.NewError(cerr.FailedPrecondition,
					"progress is fixed at 0 while a task is pending", nil)
			}
		case StatusInProgress:
			if p < t.Progress {
				return cerr.NewError(cerr.FailedPrecondition,
					fmt.Sprintf("progress cannot decrease (%d -> %d)", t.Progress, p), nil)
			}
			if p == 100 && (req.Status == nil || *req.Status != StatusCompleted) {
				return cerr.NewError(cerr.FailedPrecondition,
					"progress 100 requires completing the task in the same update", nil)
			}
		}
	}
	return nil
}
