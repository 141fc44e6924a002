package api

import (
	"encoding/json"
	"net/http"

	"github.com/TrT-TOT/trigcond/internal/egamma"
)

// filterRequest carries one emulation request. Omitted cuts fall back
// to the standard displaced-e/gamma selection.
type filterRequest struct {
	Cuts       *egamma.Cuts       `json:"cuts,omitempty"`
	Candidates []egamma.Candidate `json:"candidates"`
	Tracks     []egamma.Track     `json:"tracks,omitempty"`
}

// filterCandidates emulates the displaced-e/gamma filter decision for
// a set of candidates and tracks.
// POST /api/egamma/filter
func (s *Server) filterCandidates(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cuts := egamma.DefaultCuts()
	if req.Cuts != nil {
		cuts = *req.Cuts
	}

	filter, err := egamma.NewFilter(cuts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := filter.Apply(req.Candidates, req.Tracks)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if result.Passed == nil {
		result.Passed = []egamma.Candidate{}
	}
	writeJSON(w, http.StatusOK, result)
}
