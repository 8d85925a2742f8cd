package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/seantiz/puppilot/internal/api"
	"github.com/seantiz/puppilot/internal/browser"
	"github.com/seantiz/puppilot/internal/config"
	"github.com/seantiz/puppilot/internal/engine"
	"github.com/seantiz/puppilot/internal/routine"
	"github.com/seantiz/puppilot/internal/routine/builtin"
	"github.com/seantiz/puppilot/internal/store"
)

const locateTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("puppilot: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"browser", cfg.Browser,
		"max_parallel_routine", cfg.MaxParallelRoutine,
	)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	opts, err := browserOptions(cfg)
	if err != nil {
		log.Fatalf("failed to locate browser: %v", err)
	}
	chrome, err := browser.Launch(opts, logger)
	if err != nil {
		log.Fatalf("failed to start browser: %v", err)
	}
	defer chrome.Close()

	catalog := routine.NewCatalog()
	if err := builtin.Register(catalog, builtin.Options{VisitURL: cfg.VisitURL}); err != nil {
		log.Fatalf("failed to register routines: %v", err)
	}

	eng := engine.New(catalog, chrome, db, engine.Config{
		MaxParallelRoutine: cfg.MaxParallelRoutine,
		DefaultTimeLimit:   cfg.DefaultTimeLimit,
	}, logger)
	defer eng.Close()

	srv := api.NewServer(cfg.ListenAddr, eng, catalog, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
	}
}

// browserOptions fills in the executable and profile the platform locator
// discovers, unless the configuration names them, and refuses to start
// while the user's own browser holds the profile.
func browserOptions(cfg config.Config) (browser.Options, error) {
	opts := browser.Options{
		ExecPath:    cfg.BrowserExecPath,
		UserDataDir: cfg.BrowserUserDataDir,
		Headless:    cfg.BrowserHeadless,
	}
	if opts.ExecPath != "" && opts.UserDataDir != "" {
		return opts, nil
	}

	loc, err := browser.NewLocator(runtime.GOOS)
	if err != nil {
		return opts, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), locateTimeout)
	defer cancel()

	if opts.ExecPath == "" {
		if opts.ExecPath, err = loc.ExecutablePath(ctx, cfg.Browser); err != nil {
			return opts, err
		}
	}
	if opts.UserDataDir == "" {
		if opts.UserDataDir, err = loc.ProfileDir(); err != nil {
			return opts, err
		}
		if err := loc.CheckNotRunning(ctx, cfg.Browser); err != nil {
			return opts, err
		}
	}
	return opts, nil
}
