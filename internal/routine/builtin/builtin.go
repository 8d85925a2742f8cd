// Package builtin holds the routines compiled into the puppilot binary.
package builtin

import (
	"fmt"
	"time"

	"github.com/seantiz/puppilot/internal/routine"
)

// Routine ids.
const (
	VisitID   = "dev.puppilot.visit"
	CheckinID = "dev.puppilot.checkin"
)

// DefaultVisitURL is the page the visit routine opens when none is configured.
const DefaultVisitURL = "https://example.com/"

// Options configures the builtin routines.
type Options struct {
	// VisitURL is the page the visit routine navigates to.
	VisitURL string
}

// Register adds every builtin routine to c.
func Register(c *routine.Catalog, opts Options) error {
	if opts.VisitURL == "" {
		opts.VisitURL = DefaultVisitURL
	}
	for _, r := range []routine.Routine{Visit(opts.VisitURL), Checkin()} {
		if err := c.Register(r); err != nil {
			return fmt.Errorf("register builtin %s: %w", r.Meta().ID, err)
		}
	}
	return nil
}

const author = "puppilot"

func meta(id, name, description string, limit time.Duration) routine.Meta {
	return routine.Meta{
		ID:          id,
		DisplayName: name,
		Version:     "1.0.0",
		Author:      author,
		Description: description,
		TimeLimit:   limit,
	}
}
