// Package browsertest provides an in-memory Browser for tests and for the
// test server. Pages record what was done to them instead of driving a real
// browser.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/seantiz/puppilot/internal/browser"
)

// Browser is a fake browser.Browser. The zero value is ready to use.
type Browser struct {
	// Titles maps a URL to the title a page reports after navigating there.
	// Pages report "" for unknown URLs.
	Titles map[string]string

	// Results maps an expression to the JSON value Evaluate decodes into out.
	Results map[string]string

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

// Compile-time interface satisfaction check.
var _ browser.Browser = (*Browser)(nil)

// NewPage returns a new fake page.
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, browser.ErrClosed
	}
	p := &Page{browser: b}
	b.pages = append(b.pages, p)
	return p, nil
}

// Close marks the browser closed.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Pages returns every page opened so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// OpenPages counts pages that have not been closed.
func (b *Browser) OpenPages() int {
	n := 0
	for _, p := range b.Pages() {
		if !p.Closed() {
			n++
		}
	}
	return n
}

// Page is a fake browser tab.
type Page struct {
	browser *Browser

	mu     sync.Mutex
	url    string
	closed bool
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrClosed
	}
	p.url = url
	return nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	url := p.url
	p.mu.Unlock()
	return p.browser.Titles[url], nil
}

func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, ok := p.browser.Results[expression]
	if !ok {
		return fmt.Errorf("no result configured for %q", expression)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
