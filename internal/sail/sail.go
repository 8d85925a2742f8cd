// Package sail runs one batch of routines ("a sail") through a bounded task
// pool and tracks the outcome of every routine in an index-aligned slot.
//
// Every routine is submitted at once; the pool decides when each one starts.
// A routine runs under its own time limit and whatever happens to it, be it
// an error, a timeout or a panic, only ever fills its own slot.
package sail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/puppilot/internal/deadline"
	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
	"github.com/seantiz/puppilot/internal/taskpool"
)

// DefaultTimeLimit applies to routines that declare no time limit of their own.
const DefaultTimeLimit = 2 * time.Minute

// Config controls how a sail runs its routines.
type Config struct {
	// MaxParallelRoutine caps how many routines run at once. Values below 1
	// mean 1.
	MaxParallelRoutine int

	// DefaultTimeLimit overrides DefaultTimeLimit when positive.
	DefaultTimeLimit time.Duration
}

// Snapshot is a consistent view of a sail at one instant.
type Snapshot struct {
	Status model.SailStatus `json:"status"`
	Total  int              `json:"total"`
	Done   int              `json:"done"`
	Jobs   []model.JobState `json:"jobs"`
}

// Update describes one slot change.
type Update struct {
	Index     int
	RoutineID string
	State     model.JobState

	// Duration is how long the routine ran. It is zero unless State is terminal.
	Duration time.Duration
}

// Option configures a Sail.
type Option func(*Sail)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sail) { s.logger = logger }
}

// WithObserver registers fn to be called after every slot change. fn is
// called outside the sail's lock, possibly from several goroutines at once.
func WithObserver(fn func(Update)) Option {
	return func(s *Sail) { s.observer = fn }
}

// Sail is one batch run. It is safe for concurrent use; Start may only be
// called once.
type Sail struct {
	routines     []routine.Routine
	defaultLimit time.Duration
	pool         *taskpool.Pool
	logger       *slog.Logger
	observer     func(Update)

	mu     sync.RWMutex
	status model.SailStatus
	slots  []*model.JobState // nil renders as queued
	done   int
}

// New creates a sail over routines. The sail owns a fresh task pool sized
// by cfg.MaxParallelRoutine.
func New(routines []routine.Routine, cfg Config, opts ...Option) *Sail {
	limit := cfg.DefaultTimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	s := &Sail{
		routines:     append([]routine.Routine(nil), routines...),
		defaultLimit: limit,
		pool:         taskpool.New(cfg.MaxParallelRoutine),
		logger:       slog.New(slog.DiscardHandler),
		status:       model.SailCreated,
		slots:        make([]*model.JobState, len(routines)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs every routine, each bound to its own scope of host, and blocks
// until all of them hold a terminal value. The sail becomes completed when
// the last slot is filled. Start returns the final job list.
//
// Cancelling ctx cancels running routines through their context and fails
// routines still waiting for admission; it does not abort the sail, which
// still completes with every slot filled.
func (s *Sail) Start(ctx context.Context, host routine.Host) []model.JobState {
	s.mu.Lock()
	if s.status != model.SailCreated {
		s.mu.Unlock()
		s.logger.Warn("sail already started")
		return s.Status().Jobs
	}
	s.setStatusLocked(model.SailProcessing)
	if len(s.slots) == 0 {
		s.setStatusLocked(model.SailCompleted)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i, r := range s.routines {
		wg.Go(func() {
			s.runJob(ctx, i, r, host)
		})
	}
	wg.Wait()

	return s.Status().Jobs
}

// Stop is not supported: running routines cannot be interrupted and the call
// does nothing.
func (s *Sail) Stop() {}

// Status returns the current snapshot. Empty slots render as queued.
func (s *Sail) Status() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]model.JobState, len(s.slots))
	for i, slot := range s.slots {
		if slot == nil {
			jobs[i] = model.Queued
			continue
		}
		jobs[i] = *slot
	}
	return Snapshot{
		Status: s.status,
		Total:  len(s.slots),
		Done:   s.done,
		Jobs:   jobs,
	}
}

// TimeLimit returns the limit r runs under in this sail.
func (s *Sail) TimeLimit(r routine.Routine) time.Duration {
	if limit := r.Meta().TimeLimit; limit > 0 {
		return limit
	}
	return s.defaultLimit
}

func (s *Sail) runJob(ctx context.Context, index int, r routine.Routine, host routine.Host) {
	id := r.Meta().ID
	logger := s.logger.With("index", index, "routine_id", id)

	err := s.pool.Run(ctx, func(ctx context.Context) error {
		s.markProcessing(index, id)
		limit := s.TimeLimit(r)

		scope := routine.Bind(host, id)
		defer func() {
			if err := scope.Close(); err != nil {
				logger.Warn("failed to close routine pages", "error", err)
			}
		}()

		start := time.Now()
		res, err := deadline.Wait(ctx, limit,
			func(ctx context.Context) (routine.Result, error) {
				return r.Start(ctx, scope)
			},
			deadline.WithCancel(func() {
				logger.Warn("routine timed out, cancelling", "limit", limit.String())
			}),
			deadline.WithLateResult(func(err error) {
				logger.Info("discarding routine result that arrived after timeout", "error", err)
			}),
		)
		s.finish(index, id, res, err, time.Since(start))
		return nil
	})
	if err != nil {
		logger.Error("routine was never admitted", "error", err)
		s.finish(index, id, routine.Result{}, err, 0)
	}
}

func (s *Sail) markProcessing(index int, id string) {
	s.mu.Lock()
	if s.slots[index] != nil {
		s.mu.Unlock()
		return
	}
	state := model.Processing
	s.slots[index] = &state
	s.mu.Unlock()

	s.notify(Update{Index: index, RoutineID: id, State: state})
}

// finish writes the terminal value for a slot and counts it as done. A slot
// that is already terminal is left alone.
func (s *Sail) finish(index int, id string, res routine.Result, err error, elapsed time.Duration) {
	state := model.JobState{Status: res.Status, Message: res.Message}
	switch {
	case err != nil:
		state = model.JobState{Status: model.JobError, Message: err.Error()}
	case !res.Status.Terminal():
		state = model.JobState{
			Status:  model.JobError,
			Message: fmt.Sprintf("routine reported non-terminal status %q", res.Status),
		}
	}

	s.mu.Lock()
	if slot := s.slots[index]; slot != nil && slot.Status.Terminal() {
		s.mu.Unlock()
		s.logger.Error("slot already terminal, dropping result", "index", index, "routine_id", id)
		return
	}
	s.slots[index] = &state
	s.done++
	if s.done > len(s.slots) {
		s.mu.Unlock()
		panic(fmt.Sprintf("sail: done count %d exceeds total %d", s.done, len(s.slots)))
	}
	// Completion shares the critical section with the last count so no
	// snapshot ever shows every job done on a sail still processing.
	if s.done == len(s.slots) {
		s.setStatusLocked(model.SailCompleted)
	}
	s.mu.Unlock()

	s.logger.Info("routine finished",
		"index", index,
		"routine_id", id,
		"status", state.Status,
		"duration_ms", elapsed.Milliseconds(),
	)
	s.notify(Update{Index: index, RoutineID: id, State: state, Duration: elapsed})
}

func (s *Sail) notify(u Update) {
	if s.observer != nil {
		s.observer(u)
	}
}

func (s *Sail) setStatusLocked(to model.SailStatus) {
	if !model.ValidSailTransition(s.status, to) {
		panic(fmt.Sprintf("sail: invalid status transition %s -> %s", s.status, to))
	}
	s.status = to
}
