package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// listTags returns all known tags.
// GET /api/tags
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.payloads.Tags(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// iovInfo is one row of a tag's interval-of-validity history.
type iovInfo struct {
	SinceRun   uint64    `json:"since_run"`
	PayloadID  string    `json:"payload_id"`
	InsertedAt time.Time `json:"inserted_at"`
}

// listIOVs returns the version history of a tag, oldest first.
// GET /api/tags/{tag}/iovs
func (s *Server) listIOVs(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	history, err := s.payloads.History(r.Context(), tag)
	if err != nil {
		storeError(w, err)
		return
	}

	iovs := make([]iovInfo, 0, len(history))
	for _, p := range history {
		iovs = append(iovs, iovInfo{
			SinceRun:   p.SinceRun,
			PayloadID:  p.PayloadID.String(),
			InsertedAt: p.InsertedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": tag, "iovs": iovs})
}

// getPayload returns the decoded trigger-bit map current at a run.
// GET /api/tags/{tag}/payload?run=N (default: latest)
func (s *Server) getPayload(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	run := uint64(math.MaxInt64)
	if v := r.URL.Query().Get("run"); v != "" {
		n, err := strconv.ParseUint(v, 10, 63)
		if err != nil {
			http.Error(w, "invalid run number", http.StatusBadRequest)
			return
		}
		run = n
	}

	p, err := s.payloads.CurrentAt(r.Context(), tag, run)
	if err != nil {
		storeError(w, err)
		return
	}

	lists := make(map[string][]string, len(p.Bits.TrigMap))
	for name, encoded := range p.Bits.TrigMap {
		lists[name] = trigbits.DecomposePaths(encoded)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tag":         tag,
		"since_run":   p.SinceRun,
		"payload_id":  p.PayloadID.String(),
		"inserted_at": p.InsertedAt,
		"lists":       lists,
	})
}
