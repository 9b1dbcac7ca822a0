// Package wallpaper picks a wallpaper shipped with the active theme and hands
// it to the wallpaper daemon.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Placeholder is replaced by the chosen wallpaper path in the command argv.
const Placeholder = "{wallpaper}"

var extensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// ErrNoWallpapers means the theme ships no usable image.
var ErrNoWallpapers = errors.New("no wallpapers found")

// ExecFunc runs a command and returns its combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type Options struct {
	Command    []string
	Attempts   int
	RetryDelay time.Duration
	Exec       ExecFunc
	Logger     *log.Logger
	// Intn overrides the random source, mainly for tests.
	Intn func(n int) int
}

// Setter sets wallpapers through an external command.
type Setter struct {
	command  []string
	attempts int
	delay    time.Duration
	exec     ExecFunc
	logger   *log.Logger
	intn     func(n int) int
}

// New creates a Setter. Zero options fall back to five attempts one second
// apart, run through os/exec.
func New(opts Options) *Setter {
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Exec == nil {
		opts.Exec = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Intn == nil {
		opts.Intn = rand.Intn
	}
	return &Setter{
		command:  append([]string(nil), opts.Command...),
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		exec:     opts.Exec,
		logger:   opts.Logger,
		intn:     opts.Intn,
	}
}

// List returns the image files directly inside dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wallpapers: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// Pick chooses a random wallpaper from dir, avoiding current when there is
// another choice.
func (s *Setter) Pick(dir, current string) (string, error) {
	candidates, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(candidates) > 1 && current != "" {
		candidates = slices.DeleteFunc(candidates, func(p string) bool { return p == current })
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoWallpapers, dir)
	}
	return candidates[s.intn(len(candidates))], nil
}

// Reload picks a wallpaper from wallpaperDir and sets it.
func (s *Setter) Reload(ctx context.Context, wallpaperDir, current string) (string, error) {
	return s.ReloadWithProgress(ctx, wallpaperDir, current, nil)
}

// ReloadWithProgress is Reload with progress callbacks.
func (s *Setter) ReloadWithProgress(ctx context.Context, wallpaperDir, current string, progress func(stage string, message string)) (string, error) {
	if progress == nil {
		progress = func(_ string, _ string) {}
	}

	progress("pick", "Choosing wallpaper...")
	path, err := s.Pick(wallpaperDir, current)
	if err != nil {
		return "", err
	}

	progress("set", fmt.Sprintf("Setting %s...", filepath.Base(path)))
	if err := s.Set(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Set runs the wallpaper command for path, retrying until the daemon
// answers "ok" or the attempts run out.
func (s *Setter) Set(ctx context.Context, path string) error {
	if len(s.command) == 0 {
		return errors.New("wallpaper command not configured")
	}

	args := make([]string, len(s.command))
	for i, arg := range s.command {
		args[i] = strings.ReplaceAll(arg, Placeholder, path)
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		out, err := s.exec(ctx, args[0], args[1:]...)
		reply := strings.TrimSpace(string(out))
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%s: %w", args[0], err)
		case reply == "" || strings.EqualFold(reply, "ok"):
			s.logger.Debug("wallpaper set", "path", path, "attempt", attempt)
			return nil
		default:
			lastErr = fmt.Errorf("%s: unexpected reply %q", args[0], reply)
		}
		s.logger.Debug("wallpaper attempt failed", "attempt", attempt, "err", lastErr)

		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return fmt.Errorf("set wallpaper after %d attempts: %w", s.attempts, lastErr)
}
