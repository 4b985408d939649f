package asset

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/fieldops/dispatch/pkg/cerr"
)

type CreateAssetRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"assetType"`
	SerialNumber string `json:"serialNumber"`
}

type UpdateAssetRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Type         *string `json:"assetType"`
	SerialNumber *string `json:"serialNumber"`
}

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Register(r chi.Router) {
	r.Post("/assets", s.create)
	r.Get("/assets", s.list)
	r.Get("/assets/{assetID}", s.get)
	r.Patch("/assets/{assetID}", s.update)
	r.Delete("/assets/{assetID}", s.delete)
}

func (s *Server) create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name is required", nil)
		return
	}
	now := time.Now().UTC()
	a := &Asset{
		ID:           ulid.Make().String(),
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		SerialNumber: req.SerialNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetCreated(ctx, a)
}

func (s *Server) list(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := pageParams(r)
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, items)
	cerr.SetPagination(ctx, total, limit, offset)
}

func (s *Server) get(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.repo.Get(ctx, chi.URLParam(r, "assetID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) update(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	a, err := s.repo.Get(ctx, chi.URLParam(r, "assetID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name must not be empty", nil)
			return
		}
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.SerialNumber != nil {
		a.SerialNumber = *req.SerialNumber
	}
	a.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) delete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "assetID")
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"id": id})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
