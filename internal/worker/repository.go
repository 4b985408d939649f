package worker

import "context"

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Skill        string
	Availability AvailabilityStatus
}

func (f Filter) Matches(w *Worker) bool {
	if f.Skill != "" && !w.HasSkill(f.Skill) {
		return false
	}
	if f.Availability != "" && w.Availability.Status != f.Availability {
		return false
	}
	return true
}

// Repository persists workers. Update is a compare-and-swap on Version
// and fails with an Aborted error when a concurrent writer won.
type Repository interface {
	Create(ctx context.Context, w *Worker) error
	Get(ctx context.Context, id string) (*Worker, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Worker, int, error)
	Update(ctx context.Context, w *Worker) error
	Delete(ctx context.Context, id string) error
}
