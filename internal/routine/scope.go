package routine

import (
	"context"
	"errors"
	"sync"

	"github.com/seantiz/puppilot/internal/browser"
)

// Scope is the Sailer of one routine run. It gives the routine its own
// store and keeps track of the pages it opens so they can be closed when
// the run ends.
type Scope struct {
	host Host
	id   string

	mu     sync.Mutex
	pages  []browser.Page
	closed bool
}

// Compile-time interface satisfaction check.
var _ Sailer = (*Scope)(nil)

// Bind scopes host to the routine with the given id.
func Bind(host Host, id string) *Scope {
	return &Scope{host: host, id: id}
}

// Page opens a page through the host and records it.
func (s *Scope) Page(ctx context.Context) (browser.Page, error) {
	p, err := s.host.Page(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		p.Close()
		return nil, browser.ErrClosed
	}
	s.pages = append(s.pages, p)
	return p, nil
}

// Store returns the store named StoreName(id).
func (s *Scope) Store(ctx context.Context) (KV, error) {
	return s.host.Store(ctx, StoreName(s.id))
}

// Close closes every page the routine opened. Pages opened afterwards, for
// example by a routine still running past its time limit, fail with
// browser.ErrClosed.
func (s *Scope) Close() error {
	s.mu.Lock()
	pages := s.pages
	s.pages = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for _, p := range pages {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
