package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

func postUpdate(t *testing.T, srv *Server, spec trigbits.UpdateSpec) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/updates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestAPI_ApplyUpdate(t *testing.T) {
	srv, payloads := newTestServer()
	seedTag(t, payloads, "TestTbl", 1, trigbits.TriggerMap{"alca1": "path1,path2"})

	w := postUpdate(t, srv, trigbits.UpdateSpec{
		Tag:      "TestTbl",
		FirstRun: 100,
		Add:      []trigbits.AddList{{ListName: "alca2", Paths: []string{"pathA"}}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", w.Code, w.Body.String())
	}

	var record trigbits.RunRecord
	json.Unmarshal(w.Body.Bytes(), &record)
	if record.Status != trigbits.RunStatusSuccess {
		t.Errorf("status: got %s, want success", record.Status)
	}
	if record.Added != 1 {
		t.Errorf("added: got %d, want 1", record.Added)
	}

	// The run shows up in the audit listing.
	req := httptest.NewRequest("GET", "/api/runs", nil)
	lw := httptest.NewRecorder()
	srv.Handler().ServeHTTP(lw, req)
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(lw.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("total runs: got %d, want 1", resp.Total)
	}

	// And individually by ID.
	req = httptest.NewRequest("GET", "/api/runs/"+record.ID, nil)
	gw := httptest.NewRecorder()
	srv.Handler().ServeHTTP(gw, req)
	if gw.Code != http.StatusOK {
		t.Fatalf("get run status: got %d, want 200", gw.Code)
	}
}

func TestAPI_ApplyUpdate_GuardConflict(t *testing.T) {
	srv, payloads := newTestServer()
	seedTag(t, payloads, "TestTbl", 1, trigbits.TriggerMap{"alca1": "p"})

	spec := trigbits.UpdateSpec{
		Tag:      "TestTbl",
		FirstRun: 100,
		Add:      []trigbits.AddList{{ListName: "alca2", Paths: []string{"q"}}},
	}
	if w := postUpdate(t, srv, spec); w.Code != http.StatusCreated {
		t.Fatalf("first update: got %d, want 201: %s", w.Code, w.Body.String())
	}

	w := postUpdate(t, srv, trigbits.UpdateSpec{
		Tag:      "TestTbl",
		FirstRun: 200,
		Add:      []trigbits.AddList{{ListName: "alca3", Paths: []string{"r"}}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("second update: got %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestAPI_ResetGuard(t *testing.T) {
	srv, payloads := newTestServer()
	seedTag(t, payloads, "TestTbl", 1, trigbits.TriggerMap{"alca1": "p"})

	spec := trigbits.UpdateSpec{
		Tag:      "TestTbl",
		FirstRun: 100,
		Add:      []trigbits.AddList{{ListName: "alca2", Paths: []string{"q"}}},
	}
	if w := postUpdate(t, srv, spec); w.Code != http.StatusCreated {
		t.Fatalf("first update: got %d, want 201", w.Code)
	}

	req := httptest.NewRequest("DELETE", "/api/updates/guard", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("reset guard: got %d, want 204", w.Code)
	}

	next := trigbits.UpdateSpec{
		Tag:      "TestTbl",
		FirstRun: 200,
		Add:      []trigbits.AddList{{ListName: "alca3", Paths: []string{"r"}}},
	}
	if pw := postUpdate(t, srv, next); pw.Code != http.StatusCreated {
		t.Fatalf("update after reset: got %d, want 201: %s", pw.Code, pw.Body.String())
	}
}

func TestAPI_ApplyUpdate_ConfigError(t *testing.T) {
	srv, _ := newTestServer()

	w := postUpdate(t, srv, trigbits.UpdateSpec{
		Tag:        "TestTbl",
		FirstRun:   1,
		StartEmpty: true,
		Add: []trigbits.AddList{
			{ListName: "x", Paths: []string{"p"}},
			{ListName: "x", Paths: []string{"p"}},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "already in map") {
		t.Errorf("body does not explain the error: %s", w.Body.String())
	}
}

func TestAPI_ApplyUpdate_ValidationError(t *testing.T) {
	srv, _ := newTestServer()
	w := postUpdate(t, srv, trigbits.UpdateSpec{FirstRun: 100}) // no tag
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestAPI_ApplyUpdate_MissingBase(t *testing.T) {
	srv, _ := newTestServer()
	w := postUpdate(t, srv, trigbits.UpdateSpec{
		Tag:      "NoSuchTbl",
		FirstRun: 100,
		Add:      []trigbits.AddList{{ListName: "a", Paths: []string{"p"}}},
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestAPI_ApplyUpdate_DuplicateIOV(t *testing.T) {
	srv, _ := newTestServer()

	spec := trigbits.UpdateSpec{
		Tag:        "TestTbl",
		FirstRun:   100,
		StartEmpty: true,
		Add:        []trigbits.AddList{{ListName: "a", Paths: []string{"p"}}},
	}
	if w := postUpdate(t, srv, spec); w.Code != http.StatusCreated {
		t.Fatalf("first update: got %d, want 201", w.Code)
	}

	req := httptest.NewRequest("DELETE", "/api/updates/guard", nil)
	rw := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rw, req)

	again := trigbits.UpdateSpec{
		Tag:        "TestTbl",
		FirstRun:   100,
		StartEmpty: true,
		Add:        []trigbits.AddList{{ListName: "b", Paths: []string{"q"}}},
	}
	if w := postUpdate(t, srv, again); w.Code != http.StatusConflict {
		t.Fatalf("duplicate IOV: got %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestAPI_ApplyUpdate_InvalidBody(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest("POST", "/api/updates", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}
