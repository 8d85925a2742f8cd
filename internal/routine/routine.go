package routine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/seantiz/puppilot/internal/browser"
	"github.com/seantiz/puppilot/internal/model"
)

// ErrInvalidMeta is returned when a routine's metadata fails validation.
var ErrInvalidMeta = errors.New("invalid routine meta")

// Routine is a unit of work run by a sail.
type Routine interface {
	// Meta describes the routine. It must return the same value every call.
	Meta() Meta

	// Start runs the routine. The context is cancelled when the routine's
	// time limit expires; routines should return promptly after that.
	Start(ctx context.Context, s Sailer) (Result, error)
}

// Meta is the descriptive information a routine publishes about itself.
type Meta struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Version     string   `json:"version"`
	Author      string   `json:"author,omitempty"`
	ReportEmail string   `json:"reportEmail,omitempty"`
	ReportURL   string   `json:"reportUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	AltNames    []string `json:"altNames,omitempty"`

	// TimeLimit bounds a single run. Zero means the sail's default applies.
	TimeLimit time.Duration `json:"-"`
}

// idPattern matches reverse-domain ids such as io.github.user.routine-name.
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(\.[a-z0-9][a-z0-9_-]*)+$`)

// Validate checks that the meta carries a well-formed id, a display name
// and a version.
func (m Meta) Validate() error {
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: id %q is not a reverse-domain name", ErrInvalidMeta, m.ID)
	}
	if m.DisplayName == "" {
		return fmt.Errorf("%w: %s: display name is required", ErrInvalidMeta, m.ID)
	}
	if m.Version == "" {
		return fmt.Errorf("%w: %s: version is required", ErrInvalidMeta, m.ID)
	}
	if m.TimeLimit < 0 {
		return fmt.Errorf("%w: %s: negative time limit %s", ErrInvalidMeta, m.ID, m.TimeLimit)
	}
	return nil
}

// Result is what a routine reports when it finishes without error.
type Result struct {
	Status  model.JobStatus
	Message string
}

// Success is shorthand for a successful Result.
func Success(message string) Result {
	return Result{Status: model.JobSuccess, Message: message}
}

// Warning is shorthand for a Result that finished but needs attention.
func Warning(message string) Result {
	return Result{Status: model.JobWarning, Message: message}
}

// Sailer is the execution context handed to a running routine.
type Sailer interface {
	// Page opens a new browser page. Pages are closed for the routine once
	// it finishes, but a routine may close them earlier.
	Page(ctx context.Context) (browser.Page, error)

	// Store returns the routine's private key/value store.
	Store(ctx context.Context) (KV, error)
}

// KV is a small persistent key/value store. Values are JSON encoded.
type KV interface {
	// Get decodes the value under key into v. It reports false, with v
	// untouched, when the key is absent.
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// Host provides the shared resources routines draw on: the browser and the
// named key/value stores.
type Host interface {
	Page(ctx context.Context) (browser.Page, error)
	Store(ctx context.Context, name string) (KV, error)
}

// StoreName is the name of the key/value store that belongs to routine id.
func StoreName(id string) string {
	return "routine/" + id
}
