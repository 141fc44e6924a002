package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/services"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// applyUpdate runs an update spec against the conditions store and
// returns the run record.
// POST /api/updates
func (s *Server) applyUpdate(w http.ResponseWriter, r *http.Request) {
	var spec trigbits.UpdateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := s.updateSvc.Run(r.Context(), &spec)
	if err != nil {
		var cfgErr *trigbits.ConfigError
		var valErrs validator.ValidationErrors
		switch {
		case errors.Is(err, services.ErrAlreadyApplied):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, repository.ErrDuplicateIOV):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.As(err, &cfgErr), errors.As(err, &valErrs):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, repository.ErrUnavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// resetGuard clears the once-per-session guard so tags can be updated
// again without restarting the server.
// DELETE /api/updates/guard
func (s *Server) resetGuard(w http.ResponseWriter, r *http.Request) {
	s.updateSvc.ResetGuard()
	w.WriteHeader(http.StatusNoContent)
}
