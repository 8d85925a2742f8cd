// Package browser owns the automation browser. A job never touches the
// browser directly: it checks pages out through the Browser interface and
// the engine closes them once the job is terminal.
package browser

import (
	"context"
	"errors"
)

// ErrClosed is returned when a page is requested from a closed browser.
var ErrClosed = errors.New("browser is closed")

// Browser hands out pages of one running browser process.
type Browser interface {
	// NewPage opens a new tab.
	NewPage(ctx context.Context) (Page, error)

	// Close shuts the browser down. Pages obtained earlier stop working.
	Close() error
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, expression string, out any) error

	Close() error
}
