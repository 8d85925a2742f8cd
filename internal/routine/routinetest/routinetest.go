// Package routinetest provides an in-memory routine.Host for tests.
package routinetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/seantiz/puppilot/internal/browser"
	"github.com/seantiz/puppilot/internal/browser/browsertest"
	"github.com/seantiz/puppilot/internal/routine"
)

// Host hands out pages from a fake browser and map-backed stores.
type Host struct {
	Browser *browsertest.Browser

	mu     sync.Mutex
	stores map[string]*KV
}

// NewHost returns a Host with an empty fake browser and no stores.
func NewHost() *Host {
	return &Host{Browser: &browsertest.Browser{}, stores: make(map[string]*KV)}
}

// Compile-time interface satisfaction check.
var _ routine.Host = (*Host)(nil)

func (h *Host) Page(ctx context.Context) (browser.Page, error) {
	return h.Browser.NewPage(ctx)
}

func (h *Host) Store(_ context.Context, name string) (routine.KV, error) {
	return h.KV(name), nil
}

// KV returns the named store, creating it if needed.
func (h *Host) KV(name string) *KV {
	h.mu.Lock()
	defer h.mu.Unlock()
	kv, ok := h.stores[name]
	if !ok {
		kv = &KV{values: make(map[string][]byte)}
		h.stores[name] = kv
	}
	return kv
}

// KV is a map-backed routine.KV. Values go through JSON like the real store.
type KV struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (kv *KV) Get(_ context.Context, key string, v any) (bool, error) {
	kv.mu.Lock()
	raw, ok := kv.values[key]
	kv.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (kv *KV) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = raw
	return nil
}
