package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// listRuns returns update-run records with pagination. A tag query
// narrows the listing to one tag, a status query to one outcome.
// GET /api/runs?tag=T&status=failed&limit=20&offset=0
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	tag := r.URL.Query().Get("tag")
	status := r.URL.Query().Get("status")

	var (
		runs  []*trigbits.RunRecord
		total int
		err   error
	)
	if tag != "" {
		runs, total, err = s.historySvc.ListRuns(r.Context(), tag, limit, offset)
	} else {
		runs, total, err = s.historySvc.ListAllRuns(r.Context(), limit, offset, status)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if runs == nil {
		runs = []*trigbits.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": total,
	})
}

// getRun returns a single update-run record.
// GET /api/runs/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.historySvc.GetRun(r.Context(), id)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// parsePagination extracts limit and offset query parameters with defaults.
func parsePagination(r *http.Request) (int, int) {
	limit := 20
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
