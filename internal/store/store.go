package store

import (
	"context"
	"errors"

	"github.com/seantiz/puppilot/internal/model"
)

var (
	// ErrNotFound is returned when a sail is not found.
	ErrNotFound = errors.New("sail not found")

	// ErrInvalidTransition is returned when a sail status transition is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Stats holds aggregate outcome statistics across all finished sails.
type Stats struct {
	Sails         int            `json:"sails"`
	Jobs          int            `json:"jobs"`
	CountByStatus map[string]int `json:"countByStatus"`
	AvgDurationMS float64        `json:"avgDurationMs"`
}

// Store defines the persistence operations for sails and routine state.
type Store interface {
	// KV returns the key/value store with the given name.
	KV(name string) *KV

	CreateSail(ctx context.Context, s *model.SailRecord) error
	MarkSailProcessing(ctx context.Context, id string) error
	FinishSail(ctx context.Context, id string, done int, jobs []model.JobRecord) error
	GetSail(ctx context.Context, id string) (*model.SailRecord, error)
	ListSails(ctx context.Context, limit, offset int) ([]*model.SailRecord, int, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
