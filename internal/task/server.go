package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/dispatch/pkg/cerr"
)

// Assigner is the slice of the assignment engine the task endpoints
// need. Declared here so the engine package can import this one without
// a cycle.
type Assigner interface {
	Assign(ctx context.Context, taskID string) (*Task, error)
	Reassign(ctx context.Context, taskID, workerID string) (*Task, error)
}

// ErrNoEligibleWorker must be returned (or wrapped) by Assigner
// implementations when no worker qualifies, so the endpoint can map it
// to a precondition failure instead of a server error.
var ErrNoEligibleWorker = errors.New("no eligible worker")

// Server exposes the task write endpoints. Reads are served by the
// query package.
type Server struct {
	manager  *Manager
	assigner Assigner
}

func NewServer(manager *Manager, assigner Assigner) *Server {
	return &Server{manager: manager, assigner: assigner}
}

func (s *Server) Register(r chi.Router) {
	r.Post("/tasks", s.create)
	r.Patch("/tasks/{taskID}", s.update)
	r.Delete("/tasks/{taskID}", s.delete)
	r.Post("/tasks/{taskID}/assign", s.assign)
	r.Post("/tasks/{taskID}/reassign", s.reassign)
}

func (s *Server) create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	created, err := s.manager.Create(ctx, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetCreated(ctx, created)
}

func (s *Server) update(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	updated, err := s.manager.Update(ctx, chi.URLParam(r, "taskID"), &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, updated)
}

func (s *Server) delete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.manager.Delete(ctx, chi.URLParam(r, "taskID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"id": chi.URLParam(r, "taskID")})
}

func (s *Server) assign(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assigned, err := s.assigner.Assign(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		if errors.Is(err, ErrNoEligibleWorker) {
			cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "no eligible worker", err)
			return
		}
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, assigned)
}

func (s *Server) reassign(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.WorkerID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "workerId is required", nil)
		return
	}
	reassigned, err := s.assigner.Reassign(ctx, chi.URLParam(r, "taskID"), req.WorkerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, reassigned)
}
