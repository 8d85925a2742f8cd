package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seantiz/puppilot/internal/browser"
	"github.com/seantiz/puppilot/internal/sail"
)

const (
	defaultListenAddr         = "127.0.0.1:9900"
	defaultDBPath             = "puppilot-data/puppilot.db"
	defaultMaxParallelRoutine = 1

	envListenAddr         = "PUPPILOT_LISTEN_ADDR"
	envDBPath             = "PUPPILOT_DB_PATH"
	envLogLevel           = "PUPPILOT_LOG_LEVEL"
	envMaxParallelRoutine = "PUPPILOT_MAX_PARALLEL_ROUTINE"
	envDefaultTimeLimit   = "PUPPILOT_DEFAULT_TIME_LIMIT"
	envBrowser            = "PUPPILOT_BROWSER"
	envBrowserHeadless    = "PUPPILOT_BROWSER_HEADLESS"
	envBrowserExecPath    = "PUPPILOT_BROWSER_EXECUTABLE_PATH"
	envBrowserUserDataDir = "PUPPILOT_BROWSER_USER_DATA_DIR"
	envVisitURL           = "PUPPILOT_VISIT_URL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	MaxParallelRoutine int
	DefaultTimeLimit   time.Duration

	Browser            string
	BrowserHeadless    bool
	BrowserExecPath    string // empty: discovered at startup
	BrowserUserDataDir string // empty: discovered at startup

	// VisitURL is the page opened by the builtin visit routine.
	VisitURL string
}

// Load reads configuration from environment variables with sensible defaults.
// It fails only on values that are present but malformed.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:         defaultListenAddr,
		DBPath:             defaultDBPath,
		LogLevel:           slog.LevelInfo,
		MaxParallelRoutine: defaultMaxParallelRoutine,
		DefaultTimeLimit:   sail.DefaultTimeLimit,
		Browser:            browser.NameChrome,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envMaxParallelRoutine); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s: want a positive integer, got %q", envMaxParallelRoutine, v)
		}
		cfg.MaxParallelRoutine = n
	}
	if v := os.Getenv(envDefaultTimeLimit); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: want a positive duration, got %q", envDefaultTimeLimit, v)
		}
		cfg.DefaultTimeLimit = d
	}
	if v := os.Getenv(envBrowser); v != "" {
		cfg.Browser = strings.ToLower(v)
	}
	if v := os.Getenv(envBrowserHeadless); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envBrowserHeadless, err)
		}
		cfg.BrowserHeadless = b
	}
	cfg.BrowserExecPath = os.Getenv(envBrowserExecPath)
	cfg.BrowserUserDataDir = os.Getenv(envBrowserUserDataDir)
	cfg.VisitURL = os.Getenv(envVisitURL)

	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
