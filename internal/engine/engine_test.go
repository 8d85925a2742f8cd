package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seantiz/puppilot/internal/browser/browsertest"
	"github.com/seantiz/puppilot/internal/engine"
	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
	"github.com/seantiz/puppilot/internal/routine/builtin"
	"github.com/seantiz/puppilot/internal/store"
)

// testRoutine builds a routine with the given id that runs fn.
func testRoutine(id string, fn func(ctx context.Context, s routine.Sailer) (routine.Result, error)) routine.Routine {
	return routine.Func(routine.Meta{ID: id, DisplayName: id, Version: "1.0.0"}, fn)
}

func okRoutine(id string, delay time.Duration) routine.Routine {
	return testRoutine(id, func(ctx context.Context, _ routine.Sailer) (routine.Result, error) {
		select {
		case <-time.After(delay):
			return routine.Success(id), nil
		case <-ctx.Done():
			return routine.Result{}, ctx.Err()
		}
	})
}

type testEnv struct {
	eng     *engine.Engine
	store   *store.SQLiteStore
	catalog *routine.Catalog
	browser *browsertest.Browser
}

func newTestEngine(t *testing.T, routines ...routine.Routine) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	catalog := routine.NewCatalog()
	for _, r := range routines {
		if err := catalog.Register(r); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	b := &browsertest.Browser{Titles: map[string]string{builtin.DefaultVisitURL: "Example Domain"}}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	eng := engine.New(catalog, b, s, engine.Config{MaxParallelRoutine: 2}, logger)
	t.Cleanup(eng.Close)

	return &testEnv{eng: eng, store: s, catalog: catalog, browser: b}
}

func TestSailHappyPath(t *testing.T) {
	env := newTestEngine(t, okRoutine("org.example.a", 10*time.Millisecond), okRoutine("org.example.b", 0))
	ctx := context.Background()

	id, err := env.eng.Sail(ctx, []string{"org.example.a", "org.example.b"})
	if err != nil {
		t.Fatalf("Sail: %v", err)
	}
	if id == "" {
		t.Fatal("empty sail id")
	}

	env.eng.Wait()

	snap, err := env.eng.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.Status != model.SailCompleted || snap.Done != 2 || snap.Total != 2 {
		t.Errorf("snapshot = %+v, want completed 2/2", snap)
	}

	rec, err := env.store.GetSail(ctx, id)
	if err != nil {
		t.Fatalf("GetSail: %v", err)
	}
	if rec.Status != model.SailCompleted {
		t.Errorf("stored status = %q, want completed", rec.Status)
	}
	if len(rec.Jobs) != 2 {
		t.Fatalf("stored %d jobs, want 2", len(rec.Jobs))
	}
	if rec.Jobs[0].RoutineID != "org.example.a" || rec.Jobs[0].Status != model.JobSuccess {
		t.Errorf("job 0 = %+v", rec.Jobs[0])
	}
	if rec.Jobs[0].DurationMS < 10 {
		t.Errorf("job 0 duration = %dms, want >= 10", rec.Jobs[0].DurationMS)
	}
}

func TestSailRejectsBadRequests(t *testing.T) {
	env := newTestEngine(t, okRoutine("org.example.a", 0))
	ctx := context.Background()

	if _, err := env.eng.Sail(ctx, nil); !errors.Is(err, engine.ErrNoRoutines) {
		t.Errorf("empty Sail error = %v, want ErrNoRoutines", err)
	}
	if _, err := env.eng.Sail(ctx, []string{"org.example.a", "org.example.missing"}); !errors.Is(err, routine.ErrNotFound) {
		t.Errorf("unknown Sail error = %v, want routine.ErrNotFound", err)
	}
	if got := env.eng.List(); len(got) != 0 {
		t.Errorf("rejected requests created sails: %v", got)
	}
}

func TestStatusUnknownSail(t *testing.T) {
	env := newTestEngine(t)

	_, err := env.eng.Status(context.Background(), "nope")
	if !errors.Is(err, engine.ErrSailNotFound) {
		t.Errorf("Status error = %v, want ErrSailNotFound", err)
	}
}

func TestStatusFallsBackToStore(t *testing.T) {
	env := newTestEngine(t, okRoutine("org.example.a", 0))
	ctx := context.Background()

	id, err := env.eng.Sail(ctx, []string{"org.example.a"})
	if err != nil {
		t.Fatalf("Sail: %v", err)
	}
	env.eng.Wait()

	// A fresh engine over the same store has never seen the sail.
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	other := engine.New(env.catalog, env.browser, env.store, engine.Config{}, logger)
	t.Cleanup(other.Close)

	if other.Known(id) {
		t.Fatal("fresh engine claims to know the sail")
	}
	snap, err := other.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := model.JobState{Status: model.JobSuccess, Message: "org.example.a"}
	if snap.Status != model.SailCompleted || snap.Done != 1 || snap.Jobs[0] != want {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestListInCreationOrder(t *testing.T) {
	env := newTestEngine(t, okRoutine("org.example.a", 0))
	ctx := context.Background()

	var ids []string
	for range 3 {
		id, err := env.eng.Sail(ctx, []string{"org.example.a"})
		if err != nil {
			t.Fatalf("Sail: %v", err)
		}
		ids = append(ids, id)
	}
	env.eng.Wait()

	list := env.eng.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d sails, want 3", len(list))
	}
	for i, s := range list {
		if s.ID != ids[i] {
			t.Errorf("list[%d] = %s, want %s", i, s.ID, ids[i])
		}
		if s.Status != model.SailCompleted {
			t.Errorf("list[%d] status = %s", i, s.Status)
		}
	}

	history, total, err := env.eng.History(ctx, 10, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 || len(history) != 3 {
		t.Errorf("History = %d records, total %d, want 3/3", len(history), total)
	}
}

func TestEventsStreamUntilCompletion(t *testing.T) {
	gate := make(chan struct{})
	gated := testRoutine("org.example.gated", func(context.Context, routine.Sailer) (routine.Result, error) {
		<-gate
		return routine.Success("released"), nil
	})
	env := newTestEngine(t, gated)

	id, err := env.eng.Sail(context.Background(), []string{"org.example.gated"})
	if err != nil {
		t.Fatalf("Sail: %v", err)
	}
	ch, unsub := env.eng.Broker().Subscribe(id)
	defer unsub()
	close(gate)

	var last engine.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				if last.Job.Status != model.JobSuccess || last.Done != 1 || last.Total != 1 {
					t.Errorf("last event = %+v, want the terminal slot", last)
				}
				return
			}
			if ev.SailID != id || ev.RoutineID != "org.example.gated" {
				t.Errorf("unexpected event %+v", ev)
			}
			last = ev
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func TestBuiltinsRunAgainstBrowserAndStore(t *testing.T) {
	env := newTestEngine(t)
	if err := builtin.Register(env.catalog, builtin.Options{}); err != nil {
		t.Fatalf("builtin.Register: %v", err)
	}
	ctx := context.Background()

	for range 2 {
		if _, err := env.eng.Sail(ctx, []string{builtin.VisitID, builtin.CheckinID}); err != nil {
			t.Fatalf("Sail: %v", err)
		}
		env.eng.Wait()
	}

	if n := env.browser.OpenPages(); n != 0 {
		t.Errorf("%d pages left open", n)
	}
	if n := len(env.browser.Pages()); n != 2 {
		t.Errorf("opened %d pages, want 2", n)
	}

	var count int
	ok, err := env.store.KV(routine.StoreName(builtin.CheckinID)).Get(ctx, "count", &count)
	if err != nil || !ok {
		t.Fatalf("Get count: ok=%v err=%v", ok, err)
	}
	if count != 2 {
		t.Errorf("checkin count = %d, want 2", count)
	}

	stats, err := env.eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Sails != 2 || stats.CountByStatus["success"] != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCloseCancelsRunningSails(t *testing.T) {
	started := make(chan struct{})
	blocking := testRoutine("org.example.blocking", func(ctx context.Context, _ routine.Sailer) (routine.Result, error) {
		close(started)
		<-ctx.Done()
		return routine.Result{}, ctx.Err()
	})
	env := newTestEngine(t, blocking)
	ctx := context.Background()

	id, err := env.eng.Sail(ctx, []string{"org.example.blocking"})
	if err != nil {
		t.Fatalf("Sail: %v", err)
	}
	<-started

	done := make(chan struct{})
	go func() {
		env.eng.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	rec, err := env.store.GetSail(ctx, id)
	if err != nil {
		t.Fatalf("GetSail: %v", err)
	}
	if rec.Status != model.SailCompleted || len(rec.Jobs) != 1 || rec.Jobs[0].Status != model.JobError {
		t.Errorf("stored sail = %+v", rec)
	}

	if _, err := env.eng.Sail(ctx, []string{"org.example.blocking"}); !errors.Is(err, engine.ErrClosed) {
		t.Errorf("Sail after Close error = %v, want ErrClosed", err)
	}
}
