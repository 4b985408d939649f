package task

import (
	"context"
	"time"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status     Status
	Priority   Priority
	AssignedTo string
	AreaID     string
	// From/To select tasks whose scheduling window intersects the range.
	From time.Time
	To   time.Time
}

func (f Filter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.AreaID != "" && t.AreaID != f.AreaID {
		return false
	}
	if !f.From.IsZero() && t.EndDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.StartDate.After(f.To) {
		return false
	}
	return true
}

// Repository persists tasks. Update is a compare-and-swap on Version
// and fails with an Aborted error when a concurrent writer won.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Task, int, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
