package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/puppilot/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v0/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Sails != 0 || stats.Jobs != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv, st := newTestServerWith(t)
	ctx := context.Background()

	// Record finished sails directly in the store.
	for i := range 3 {
		r := &model.SailRecord{
			ID: model.NewID(), Status: model.SailCreated, Total: 1, MaxParallel: 1,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.CreateSail(ctx, r); err != nil {
			t.Fatalf("CreateSail: %v", err)
		}
		if err := st.MarkSailProcessing(ctx, r.ID); err != nil {
			t.Fatalf("created→processing: %v", err)
		}
		status := model.JobSuccess
		if i == 2 {
			status = model.JobError
		}
		jobs := []model.JobRecord{{Index: 0, RoutineID: "org.example.a", Status: status, DurationMS: 100}}
		if err := st.FinishSail(ctx, r.ID, 1, jobs); err != nil {
			t.Fatalf("FinishSail: %v", err)
		}
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v0/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Sails != 3 || stats.Jobs != 3 {
		t.Errorf("sails/jobs = %d/%d, want 3/3", stats.Sails, stats.Jobs)
	}
	if stats.ByStatus["success"] != 2 {
		t.Errorf("byStatus[success] = %d, want 2", stats.ByStatus["success"])
	}
	if stats.ByStatus["error"] != 1 {
		t.Errorf("byStatus[error] = %d, want 1", stats.ByStatus["error"])
	}
	if stats.AvgDurationMS != 100 {
		t.Errorf("avgDurationMs = %f, want 100", stats.AvgDurationMS)
	}
}
