package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Supported browser names.
const (
	NameChrome  = "chrome"
	NameFirefox = "firefox"
)

var (
	// ErrUnsupportedOS is returned by NewLocator for platforms without a locator.
	ErrUnsupportedOS = errors.New("unsupported operating system")

	// ErrNotFound is returned when no installation of the browser is found.
	ErrNotFound = errors.New("browser not found")

	// ErrRunning is returned when the browser is already running and the
	// platform does not allow a second instance on the same profile.
	ErrRunning = errors.New("browser is already running, close it first")
)

// Locator discovers a local browser installation. There is one
// implementation per platform, picked once at startup by NewLocator.
type Locator interface {
	ExecutablePath(ctx context.Context, browser string) (string, error)
	ProfileDir() (string, error)
	CheckNotRunning(ctx context.Context, browser string) error
}

// commandOutput runs a command and returns its stdout.
type commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NewLocator returns the locator for goos (a runtime.GOOS value).
func NewLocator(goos string) (Locator, error) {
	switch goos {
	case "windows":
		return &windowsLocator{run: execOutput, getenv: os.Getenv}, nil
	case "linux":
		return &linuxLocator{lookPath: exec.LookPath, configDir: os.UserConfigDir}, nil
	case "darwin":
		return &darwinLocator{stat: os.Stat, configDir: os.UserConfigDir}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
}

type windowsLocator struct {
	run    commandOutput
	getenv func(string) string
}

const appPathsKey = `HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`

func (l *windowsLocator) ExecutablePath(ctx context.Context, browser string) (string, error) {
	out, err := l.run(ctx, "reg", "query", appPathsKey, "/s", "/f", `\`+browser+".exe")
	if err != nil {
		return "", fmt.Errorf("query registry for %s: %w", browser, err)
	}
	for line := range strings.Lines(string(out)) {
		_, value, ok := strings.Cut(line, "REG_SZ")
		if !ok {
			continue
		}
		if path := strings.TrimSpace(value); path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, browser)
}

func (l *windowsLocator) ProfileDir() (string, error) {
	localAppData := l.getenv("LOCALAPPDATA")
	if localAppData == "" {
		return "", fmt.Errorf("%w: LOCALAPPDATA is not set", ErrNotFound)
	}
	return localAppData + `\Google\Chrome\User Data`, nil
}

// CheckNotRunning fails if the browser already has a process: Chrome on
// Windows refuses to start a second instance on the same profile.
func (l *windowsLocator) CheckNotRunning(ctx context.Context, browser string) error {
	image := browser + ".exe"
	out, err := l.run(ctx, "tasklist", "/FI", "IMAGENAME eq "+image, "/NH", "/FO", "CSV")
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	if strings.Contains(string(out), image) {
		return ErrRunning
	}
	return nil
}

type linuxLocator struct {
	lookPath  func(string) (string, error)
	configDir func() (string, error)
}

var linuxCandidates = map[string][]string{
	NameChrome:  {"google-chrome", "google-chrome-stable", "chrome", "chromium", "chromium-browser"},
	NameFirefox: {"firefox"},
}

func (l *linuxLocator) ExecutablePath(_ context.Context, browser string) (string, error) {
	for _, name := range linuxCandidates[browser] {
		if path, err := l.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, browser)
}

func (l *linuxLocator) ProfileDir() (string, error) {
	dir, err := l.configDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "google-chrome"), nil
}

func (l *linuxLocator) CheckNotRunning(context.Context, string) error { return nil }

type darwinLocator struct {
	stat      func(string) (os.FileInfo, error)
	configDir func() (string, error)
}

var darwinCandidates = map[string][]string{
	NameChrome: {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	NameFirefox: {"/Applications/Firefox.app/Contents/MacOS/firefox"},
}

func (l *darwinLocator) ExecutablePath(_ context.Context, browser string) (string, error) {
	for _, path := range darwinCandidates[browser] {
		if _, err := l.stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, browser)
}

func (l *darwinLocator) ProfileDir() (string, error) {
	dir, err := l.configDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "Google", "Chrome"), nil
}

func (l *darwinLocator) CheckNotRunning(context.Context, string) error { return nil }
