package query

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
	"github.com/fieldops/dispatch/pkg/cerr"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Server exposes the read endpoints. All task and worker reads live
// here so list filtering and name resolution stay in one place.
type Server struct {
	facade *Facade
}

func NewServer(facade *Facade) *Server {
	return &Server{facade: facade}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/{taskID}", s.getTask)
	r.Get("/workers", s.listWorkers)
	r.Get("/workers/{workerID}", s.getWorker)
}

func (s *Server) listTasks(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter task.Filter
	if raw := q.Get("status"); raw != "" {
		status, err := task.ParseStatus(raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), err)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("priority"); raw != "" {
		priority, err := task.ParsePriority(raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), err)
			return
		}
		filter.Priority = priority
	}
	filter.AssignedTo = q.Get("assignedTo")
	filter.AreaID = q.Get("areaId")
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid from timestamp", err)
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid to timestamp", err)
			return
		}
		filter.To = to
	}

	limit, offset, err := parsePage(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	views, total, err := s.facade.ListTasks(ctx, filter, limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, views)
	cerr.SetPagination(ctx, total, limit, offset)
}

func (s *Server) getTask(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.facade.GetTask(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) listWorkers(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter worker.Filter
	filter.Skill = q.Get("skill")
	if raw := q.Get("availability"); raw != "" {
		status, err := worker.ParseAvailabilityStatus(raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), err)
			return
		}
		filter.Availability = status
	}

	limit, offset, err := parsePage(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	views, total, err := s.facade.ListWorkers(ctx, filter, limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, views)
	cerr.SetPagination(ctx, total, limit, offset)
}

func (s *Server) getWorker(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.facade.GetWorker(ctx, chi.URLParam(r, "workerID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, cerr.NewError(cerr.InvalidArgument, "invalid limit", err)
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, cerr.NewError(cerr.InvalidArgument, "invalid offset", err)
		}
	}
	return limit, offset, nil
}
