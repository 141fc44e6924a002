package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/services"
)

type Server struct {
	payloads   repository.PayloadRepository
	updateSvc  *services.UpdateService
	historySvc *services.RunHistoryService
	authSecret string
}

func NewServer(payloads repository.PayloadRepository, updateSvc *services.UpdateService, historySvc *services.RunHistoryService) *Server {
	return &Server{
		payloads:   payloads,
		updateSvc:  updateSvc,
		historySvc: historySvc,
	}
}

// SetAuthSecret enables bearer-token auth on mutating routes. With an
// empty secret the routes stay open.
func (s *Server) SetAuthSecret(secret string) {
	s.authSecret = secret
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.listTags)
			r.Get("/{tag}/iovs", s.listIOVs)
			r.Get("/{tag}/payload", s.getPayload)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Get("/{id}", s.getRun)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/updates", s.applyUpdate)
			r.Delete("/updates/guard", s.resetGuard)
		})
		r.Post("/egamma/filter", s.filterCandidates)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// storeError maps repository errors onto status codes: unknown
// tags/runs are 404, an unreachable conditions store is 503.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
