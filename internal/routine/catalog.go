package routine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a routine id is not registered.
	ErrNotFound = errors.New("routine not found")

	// ErrDuplicate is returned when a routine id is registered twice.
	ErrDuplicate = errors.New("routine already registered")
)

// Catalog holds the routines available to sails, keyed by id.
type Catalog struct {
	mu       sync.RWMutex
	routines map[string]Routine
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		routines: make(map[string]Routine),
	}
}

// Register validates the routine's meta and adds it to the catalog.
func (c *Catalog) Register(r Routine) error {
	meta := r.Meta()
	if err := meta.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.routines[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, meta.ID)
	}
	c.routines[meta.ID] = r
	return nil
}

// Get returns the routine registered under id.
func (c *Catalog) Get(id string) (Routine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Resolve looks up every id in order. It fails on the first unknown id.
// Repeated ids resolve to the same routine, which then runs once per mention.
func (c *Catalog) Resolve(ids []string) ([]Routine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Routine, 0, len(ids))
	for _, id := range ids {
		r, ok := c.routines[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = append(out, r)
	}
	return out, nil
}

// List returns the meta of every registered routine, sorted by id for a
// stable API response.
func (c *Catalog) List() []Meta {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metas := make([]Meta, 0, len(c.routines))
	for _, r := range c.routines {
		metas = append(metas, r.Meta())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].ID < metas[j].ID
	})
	return metas
}
