// testserver starts a Puppilot API server with a fake browser and stub
// routines for E2E testing.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/seantiz/puppilot/internal/api"
	"github.com/seantiz/puppilot/internal/browser/browsertest"
	"github.com/seantiz/puppilot/internal/engine"
	"github.com/seantiz/puppilot/internal/routine"
	"github.com/seantiz/puppilot/internal/routine/builtin"
	"github.com/seantiz/puppilot/internal/store"
)

// stubRoutine sleeps for delay and then reports result, or fails with err.
type stubRoutine struct {
	meta   routine.Meta
	delay  time.Duration
	result routine.Result
	err    error
}

func (s *stubRoutine) Meta() routine.Meta { return s.meta }

func (s *stubRoutine) Start(ctx context.Context, _ routine.Sailer) (routine.Result, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return routine.Result{}, ctx.Err()
	}
	return s.result, s.err
}

func stubMeta(id, name string, limit time.Duration) routine.Meta {
	return routine.Meta{ID: id, DisplayName: name, Version: "0.0.1", Author: "testserver", TimeLimit: limit}
}

func main() {
	addr := ":8080"
	if v := os.Getenv("PUPPILOT_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	fake := &browsertest.Browser{Titles: map[string]string{builtin.DefaultVisitURL: "Example Domain"}}

	catalog := routine.NewCatalog()
	if err := builtin.Register(catalog, builtin.Options{}); err != nil {
		log.Fatalf("failed to register routines: %v", err)
	}
	for _, r := range []routine.Routine{
		&stubRoutine{
			meta:   stubMeta("test.stub.ok", "Stub OK", 0),
			delay:  500 * time.Millisecond,
			result: routine.Success("stub done"),
		},
		&stubRoutine{
			meta:   stubMeta("test.stub.warn", "Stub Warning", 0),
			delay:  300 * time.Millisecond,
			result: routine.Warning("stub warned"),
		},
		&stubRoutine{
			meta:  stubMeta("test.stub.fail", "Stub Failure", 0),
			delay: 200 * time.Millisecond,
			err:   errors.New("stub failed"),
		},
		&stubRoutine{
			meta:   stubMeta("test.stub.hang", "Stub Hang", time.Second),
			delay:  time.Hour,
			result: routine.Success("unreachable"),
		},
	} {
		if err := catalog.Register(r); err != nil {
			log.Fatalf("failed to register %s: %v", r.Meta().ID, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.New(catalog, fake, db, engine.Config{MaxParallelRoutine: 2}, logger)
	defer eng.Close()

	srv := api.NewServer(addr, eng, catalog, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
	}
}
