package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/puppilot/internal/browser"
	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
	"github.com/seantiz/puppilot/internal/sail"
	"github.com/seantiz/puppilot/internal/store"
)

var (
	// ErrSailNotFound is returned for an unknown sail id.
	ErrSailNotFound = errors.New("sail not found")

	// ErrNoRoutines is returned when a sail is requested without routines.
	ErrNoRoutines = errors.New("no routines requested")

	// ErrClosed is returned when a sail is requested after Close.
	ErrClosed = errors.New("engine is closed")
)

// Config holds the settings applied to every sail.
type Config struct {
	MaxParallelRoutine int
	DefaultTimeLimit   time.Duration
}

// SailSummary identifies a sail started by this engine.
type SailSummary struct {
	ID        string           `json:"id"`
	Status    model.SailStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Engine starts sails and tracks them until the process exits.
type Engine struct {
	catalog *routine.Catalog
	host    routine.Host
	store   store.Store
	cfg     Config
	logger  *slog.Logger
	broker  *Broker
	wg      sync.WaitGroup

	// ctx is the parent of every sail's context; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	sails  map[string]*entry
	order  []string
	closed bool
}

type entry struct {
	sail      *sail.Sail
	createdAt time.Time
}

// New creates an engine that runs catalog routines against b and keeps
// their state and history in s.
func New(catalog *routine.Catalog, b browser.Browser, s store.Store, cfg Config, logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		catalog: catalog,
		host:    &host{browser: b, store: s},
		store:   s,
		cfg:     cfg,
		logger:  logger,
		broker:  NewBroker(),
		ctx:     ctx,
		cancel:  cancel,
		sails:   make(map[string]*entry),
	}
}

// Broker returns the engine's progress broker for SSE subscription.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Sail resolves routineIDs, records a new sail and starts it in the
// background. It returns the sail's id as soon as the sail is recorded.
func (e *Engine) Sail(ctx context.Context, routineIDs []string) (string, error) {
	if len(routineIDs) == 0 {
		return "", ErrNoRoutines
	}
	routines, err := e.catalog.Resolve(routineIDs)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrClosed
	}

	id := model.NewID()
	logger := e.logger.With("sail_id", id)
	rec := &model.SailRecord{
		ID:          id,
		Status:      model.SailCreated,
		Total:       len(routines),
		MaxParallel: max(e.cfg.MaxParallelRoutine, 1),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateSail(ctx, rec); err != nil {
		return "", fmt.Errorf("create sail: %w", err)
	}

	// Durations are written once per index by the routine's own goroutine
	// and read after Start returns.
	durations := make([]time.Duration, len(routines))
	var s *sail.Sail
	s = sail.New(routines,
		sail.Config{MaxParallelRoutine: e.cfg.MaxParallelRoutine, DefaultTimeLimit: e.cfg.DefaultTimeLimit},
		sail.WithLogger(logger),
		sail.WithObserver(func(u sail.Update) {
			if u.State.Status.Terminal() {
				durations[u.Index] = u.Duration
				routinesTotal.WithLabelValues(string(u.State.Status)).Inc()
				routineDuration.Observe(u.Duration.Seconds())
			}
			snap := s.Status()
			e.broker.Publish(Event{
				SailID:    id,
				Index:     u.Index,
				RoutineID: u.RoutineID,
				Job:       u.State,
				Done:      snap.Done,
				Total:     snap.Total,
			})
		}),
	)

	e.sails[id] = &entry{sail: s, createdAt: rec.CreatedAt}
	e.order = append(e.order, id)
	sailsTotal.Inc()

	e.wg.Go(func() {
		e.run(id, s, routines, durations, logger)
	})

	logger.Info("sail started", "routines", len(routines))
	return id, nil
}

// run drives one sail to completion and persists its outcome.
func (e *Engine) run(id string, s *sail.Sail, routines []routine.Routine, durations []time.Duration, logger *slog.Logger) {
	// Close the event stream when the sail finishes, regardless of outcome.
	defer e.broker.Close(id)

	if err := e.store.MarkSailProcessing(context.Background(), id); err != nil {
		logger.Error("failed to record sail start", "error", err)
	}

	start := time.Now()
	jobs := s.Start(e.ctx, e.host)

	records := make([]model.JobRecord, len(jobs))
	for i, j := range jobs {
		records[i] = model.JobRecord{
			Index:      i,
			RoutineID:  routines[i].Meta().ID,
			Status:     j.Status,
			Message:    j.Message,
			DurationMS: int(durations[i].Milliseconds()),
		}
	}
	if err := e.store.FinishSail(context.Background(), id, len(jobs), records); err != nil {
		logger.Error("failed to record sail outcome", "error", err)
	}

	logger.Info("sail completed", "duration_ms", time.Since(start).Milliseconds())
}

// Status returns the snapshot of a sail. Sails from an earlier process are
// answered from the store.
func (e *Engine) Status(ctx context.Context, id string) (sail.Snapshot, error) {
	e.mu.RLock()
	ent, ok := e.sails[id]
	e.mu.RUnlock()
	if ok {
		return ent.sail.Status(), nil
	}

	rec, err := e.store.GetSail(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return sail.Snapshot{}, fmt.Errorf("%w: %s", ErrSailNotFound, id)
	}
	if err != nil {
		return sail.Snapshot{}, fmt.Errorf("load sail: %w", err)
	}
	return snapshotFromRecord(rec), nil
}

// snapshotFromRecord renders a stored sail. A sail whose process died before
// it completed keeps its stored status and shows missing jobs as queued.
func snapshotFromRecord(rec *model.SailRecord) sail.Snapshot {
	jobs := make([]model.JobState, rec.Total)
	for i := range jobs {
		jobs[i] = model.Queued
	}
	done := 0
	for _, j := range rec.Jobs {
		if j.Index < 0 || j.Index >= rec.Total {
			continue
		}
		jobs[j.Index] = model.JobState{Status: j.Status, Message: j.Message}
		if j.Status.Terminal() {
			done++
		}
	}
	return sail.Snapshot{
		Status: rec.Status,
		Total:  rec.Total,
		Done:   done,
		Jobs:   jobs,
	}
}

// Known reports whether the sail was started by this engine.
func (e *Engine) Known(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sails[id]
	return ok
}

// List returns the sails started by this engine in creation order.
func (e *Engine) List() []SailSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]SailSummary, 0, len(e.order))
	for _, id := range e.order {
		ent := e.sails[id]
		out = append(out, SailSummary{
			ID:        id,
			Status:    ent.sail.Status().Status,
			CreatedAt: ent.createdAt,
		})
	}
	return out
}

// History returns a page of stored sails, newest first, and the total count.
func (e *Engine) History(ctx context.Context, limit, offset int) ([]*model.SailRecord, int, error) {
	return e.store.ListSails(ctx, limit, offset)
}

// Stats returns aggregate outcomes over every stored sail.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.GetStats(ctx)
}

// Wait blocks until all in-flight sails complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close refuses new sails, cancels the context of running routines and
// waits for every sail to complete and be recorded.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// host gives sails access to the shared browser and store.
type host struct {
	browser browser.Browser
	store   store.Store
}

func (h *host) Page(ctx context.Context) (browser.Page, error) {
	return h.browser.NewPage(ctx)
}

func (h *host) Store(_ context.Context, name string) (routine.KV, error) {
	return h.store.KV(name), nil
}
