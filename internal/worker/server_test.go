package worker_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/internal/worker"
	workerrepo "github.com/fieldops/dispatch/internal/worker/repositoryimpl"
	"github.com/fieldops/dispatch/pkg/cerr"
	"github.com/fieldops/dispatch/pkg/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newTestRouter(t *testing.T) (http.Handler, worker.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	repo := workerrepo.NewYAMLRepository(store)
	srv := worker.NewServer(repo, eventbus.New())

	r := chi.NewRouter()
	r.Use(cerr.NewEnvelopeChiMiddleware())
	srv.Register(r)
	return r, repo
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestCreateWorkerEndpoint(t *testing.T) {
	h, repo := newTestRouter(t)

	rec, env := doJSON(t, h, http.MethodPost, "/workers",
		`{"name":"Ada","expertise":["electrical"],"experienceYears":8}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got error %s", env.Error)
	}

	var created worker.Worker
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if created.Name != "Ada" || created.Availability.Status != worker.Available {
		t.Errorf("unexpected worker: %+v", created)
	}

	stored, err := repo.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("worker not persisted: %v", err)
	}
	if stored.ExperienceYears != 8 {
		t.Errorf("expected experience 8, got %v", stored.ExperienceYears)
	}
}

func TestCreateWorkerValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"expertise":["x"]}`},
		{"negative experience", `{"name":"Ada","experienceYears":-1}`},
		{"unknown availability status", `{"name":"Ada","availability":{"status":"SOMETIMES"}}`},
		{"inverted window", `{"name":"Ada","availability":{"status":"LIMITED","windows":[{"from":"2026-03-02T00:00:00Z","to":"2026-03-01T00:00:00Z"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, h, http.MethodPost, "/workers", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
			if env.Success || env.Error != "INVALID_ARGUMENT" {
				t.Errorf("expected INVALID_ARGUMENT envelope, got %+v", env)
			}
		})
	}
}

func TestDeleteWorkerRefusedWhileLoaded(t *testing.T) {
	h, repo := newTestRouter(t)
	now := time.Now()
	if err := repo.Create(context.Background(), &worker.Worker{
		ID: "W1", Name: "Busy",
		Availability: worker.Availability{Status: worker.Available},
		CurrentTasks: []string{"T1"},
		CreatedAt:    now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}

	rec, env := doJSON(t, h, http.MethodDelete, "/workers/W1", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if env.Error != "FAILED_PRECONDITION" {
		t.Errorf("expected FAILED_PRECONDITION, got %s", env.Error)
	}

	// Still there.
	if _, err := repo.Get(context.Background(), "W1"); err != nil {
		t.Errorf("worker should not have been deleted: %v", err)
	}
}

func TestDeleteIdleWorker(t *testing.T) {
	h, repo := newTestRouter(t)
	now := time.Now()
	if err := repo.Create(context.Background(), &worker.Worker{
		ID: "W1", Name: "Idle",
		Availability: worker.Availability{Status: worker.Available},
		CreatedAt:    now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}

	rec, env := doJSON(t, h, http.MethodDelete, "/workers/W1", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected success, got %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := repo.Get(context.Background(), "W1"); !cerr.IsCode(err, cerr.NotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestPatchUnknownWorker(t *testing.T) {
	h, _ := newTestRouter(t)
	rec, env := doJSON(t, h, http.MethodPatch, "/workers/missing", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if env.Error != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", env.Error)
	}
}
