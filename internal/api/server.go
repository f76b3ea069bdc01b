// Package api wires the HTTP surface: submission, status queries, artifact
// downloads, and operational endpoints. Routing and request parsing live
// here; all job semantics stay in the orchestrator.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
	"a11y-checker/internal/orchestrator"
	"a11y-checker/internal/ratelimit"
	"a11y-checker/internal/storage"
	"a11y-checker/internal/telemetry"
)

// Server exposes the checker API.
type Server struct {
	cfg     config.Config
	orch    *orchestrator.Orchestrator
	objects storage.ObjectStore
	limiter ratelimit.Limiter
}

// New constructs the API server.
func New(cfg config.Config, orch *orchestrator.Orchestrator, objects storage.ObjectStore, limiter ratelimit.Limiter) *Server {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &Server{
		cfg:     cfg,
		orch:    orch,
		objects: objects,
		limiter: limiter,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/analyze", s.handleSubmit)
	r.Get("/api/status/{jobID}", s.handleStatus)
	r.Get("/api/download/*", s.handleDownload)
	r.Get("/api/jobs", s.handleListJobs)
	r.Mount("/metrics", telemetry.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.Jobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"jobs":      len(jobs),
	})
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.limiter.Allow(r.Context(), clientKey(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "rate limit error")
		return
	}
	if !allowed {
		telemetry.RateLimitRejects.Inc()
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	declaredType := r.FormValue("type")

	var resources []orchestrator.Resource
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["file"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes))
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			resources = append(resources, orchestrator.Resource{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	jobID, err := s.orch.Submit(r.Context(), resources, declaredType)
	if err != nil {
		if models.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

type statusResponse struct {
	Status  string            `json:"status"`
	Stages  map[string]string `json:"stages"`
	Results []models.Artifact `json:"results"`
	Error   *string           `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, err := s.orch.Job(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  job.Status,
		Stages:  job.Stages,
		Results: job.Results,
		Error:   job.Error,
	})
}

// handleDownload streams an artifact. The owning container comes from the
// record written at upload time, never from parsing the key.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	art, err := s.orch.Artifact(r.Context(), key)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := s.objects.Get(r.Context(), art.Container, art.Key)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeFor(art.Name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type jobSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	FileType  string    `json:"fileType"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.Jobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobSummary{
			ID:        job.ID,
			Status:    job.Status,
			FileType:  job.FileType,
			Filename:  job.Filename,
			CreatedAt: job.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func clientKey(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
