package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/pkg/cerr"
)

// Server exposes the worker write endpoints. Reads are served by the
// query package.
type Server struct {
	repo Repository
	bus  *eventbus.Bus
}

func NewServer(repo Repository, bus *eventbus.Bus) *Server {
	return &Server{repo: repo, bus: bus}
}

func (s *Server) Register(r chi.Router) {
	r.Post("/workers", s.create)
	r.Patch("/workers/{workerID}", s.update)
	r.Delete("/workers/{workerID}", s.delete)
}

func (s *Server) create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name is required", nil)
		return
	}
	if req.ExperienceYears < 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "experienceYears must not be negative", nil)
		return
	}

	availability := Availability{Status: Available}
	if req.Availability != nil {
		availability = *req.Availability
	}
	if err := validateAvailability(availability); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	now := time.Now().UTC()
	w := &Worker{
		ID:              ulid.Make().String(),
		Name:            req.Name,
		Expertise:       req.Expertise,
		Availability:    availability,
		ExperienceYears: req.ExperienceYears,
		CurrentTasks:    []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.PublishNew(eventbus.EventTypeWorkerCreated, w.ID, nil)
	cerr.SetCreated(ctx, w)
}

func (s *Server) update(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	updated, err := s.applyUpdate(ctx, chi.URLParam(r, "workerID"), &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.PublishNew(eventbus.EventTypeWorkerUpdated, updated.ID, nil)
	cerr.SetJSONResponse(ctx, updated)
}

func (s *Server) applyUpdate(ctx context.Context, id string, req *UpdateWorkerRequest) (*Worker, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, cerr.NewError(cerr.InvalidArgument, "name must not be empty", nil)
		}
		w.Name = *req.Name
	}
	if req.Expertise != nil {
		w.Expertise = *req.Expertise
	}
	if req.Availability != nil {
		if err := validateAvailability(*req.Availability); err != nil {
			return nil, err
		}
		w.Availability = *req.Availability
	}
	if req.ExperienceYears != nil {
		if *req.ExperienceYears < 0 {
			return nil, cerr.NewError(cerr.InvalidArgument, "experienceYears must not be negative", nil)
		}
		w.ExperienceYears = *req.ExperienceYears
	}
	w.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Server) delete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "workerID")
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if w.Load() > 0 {
		// Deleting a worker with in-progress tasks would orphan them.
		// Reassign or finish the tasks first.
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition,
			fmt.Sprintf("worker %s has %d tasks in progress", id, w.Load()), nil)
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.PublishNew(eventbus.EventTypeWorkerDeleted, id, nil)
	cerr.SetJSONResponse(ctx, map[string]string{"id": id})
}

func validateAvailability(a Availability) error {
	if _, err := ParseAvailabilityStatus(string(a.Status)); err != nil {
		return cerr.NewError(cerr.InvalidArgument, err.Error(), err)
	}
	for _, win := range a.Windows {
		if !win.To.After(win.From) {
			return cerr.NewError(cerr.InvalidArgument, "availability window must end after it starts", nil)
		}
	}
	return nil
}
