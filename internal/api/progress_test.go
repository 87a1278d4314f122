package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/montecarlo/internal/engine"
	"github.com/seantiz/montecarlo/internal/model"
)

func TestProgressWithoutEngine(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/v1/progress", "/v1/moves", "/v1/report"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestGetProgress(t *testing.T) {
	e := newTestEngine(t, 0)
	if _, err := e.Run(context.Background(), 4, 5, nil, true); err != nil {
		t.Fatalf("Run: %v", err)
	}

	srv := newTestServerWithEngine(t, e)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/progress")
	if err != nil {
		t.Fatalf("GET /v1/progress: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var p engine.Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.RunID != e.RunID() {
		t.Errorf("RunID = %q, want %q", p.RunID, e.RunID())
	}
	if p.Phase != model.PhaseFinished {
		t.Errorf("Phase = %q, want %q", p.Phase, model.PhaseFinished)
	}
	if p.Percent != 100 {
		t.Errorf("Percent = %d, want 100", p.Percent)
	}
	if p.ConfigID != 20 {
		t.Errorf("ConfigID = %d, want 20", p.ConfigID)
	}
	if p.NMeasures != 4 {
		t.Errorf("NMeasures = %d, want 4", p.NMeasures)
	}
}

func TestListMoves(t *testing.T) {
	e := newTestEngine(t, 0)
	if _, err := e.Run(context.Background(), 2, 3, nil, false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	srv := newTestServerWithEngine(t, e)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/moves")
	if err != nil {
		t.Fatalf("GET /v1/moves: %v", err)
	}
	defer resp.Body.Close()

	var moves []moveResponse
	if err := json.NewDecoder(resp.Body).Decode(&moves); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("got %d moves, want 1", len(moves))
	}
	if moves[0].Name != "always" || moves[0].AcceptanceRate != 1 {
		t.Errorf("move = %+v, want always at rate 1", moves[0])
	}
}

func TestHealthzIncludesRunID(t *testing.T) {
	e := newTestEngine(t, 0)
	srv := newTestServerWithEngine(t, e)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != e.RunID() {
		t.Errorf("run_id = %q, want %q", body.RunID, e.RunID())
	}
}
