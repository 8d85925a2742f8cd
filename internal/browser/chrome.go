package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// defaultProfile is the profile directory used inside the user data dir, so
// routines see the user's logged-in sessions.
const defaultProfile = "Default"

// Options configures the Chrome process.
type Options struct {
	ExecPath    string
	UserDataDir string
	Headless    bool
}

// Chrome is a Browser backed by a Chrome process driven over the DevTools
// protocol.
type Chrome struct {
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Compile-time interface satisfaction check.
var _ Browser = (*Chrome)(nil)

// Launch starts Chrome and waits until it accepts commands. The process lives
// until Close is called, independent of any request context.
func Launch(opts Options, logger *slog.Logger) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("profile-directory", defaultProfile),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// The first Run on a fresh context starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	logger.Info("browser started", "exec_path", opts.ExecPath, "headless", opts.Headless)
	return &Chrome{
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewPage opens a new tab in the running browser.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close terminates the browser process.
func (c *Chrome) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := chromedp.Cancel(c.browserCtx)
	c.browserCancel()
	c.allocCancel()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	c.logger.Info("browser stopped")
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// run executes actions on the tab, aborting them if ctx ends first. Only the
// actions are aborted; the tab itself stays open until Close.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, out any) error {
	if err := p.run(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (p *chromePage) Close() error {
	var err error
	p.once.Do(func() {
		err = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return err
}
