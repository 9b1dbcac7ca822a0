// Package service is the entry point used by the CLI, the picker and the
// HTTP API. It runs an activation and everything that follows it: history,
// wallpaper and reload hooks.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"themeplane/activate"
	"themeplane/model"
	"themeplane/storage"
	"themeplane/theme"
	"themeplane/vars"
	"themeplane/wallpaper"
)

// ErrWallpaperDisabled is returned by ReloadWallpaper without a Setter.
var ErrWallpaperDisabled = errors.New("wallpaper support disabled")

const hookTimeout = 10 * time.Second

// HookFunc runs one post-apply hook.
type HookFunc func(ctx context.Context, argv []string) error

// Event is published for every stage transition and outcome.
type Event struct {
	Type    string    `json:"type"` // stage, applied, failed, wallpaper
	Theme   string    `json:"theme,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

type Options struct {
	Store            *storage.Store
	Wallpapers       *wallpaper.Setter
	WallpaperOnApply bool
	Hooks            [][]string
	RunHook          HookFunc
	Logger           *log.Logger
}

type Service struct {
	registry   *theme.Registry
	manager    *activate.Manager
	store      *storage.Store
	wallpapers *wallpaper.Setter
	onApply    bool
	hooks      [][]string
	runHook    HookFunc
	logger     *log.Logger

	mu            sync.RWMutex
	listeners     []func(Event)
	lastWallpaper string
}

func New(registry *theme.Registry, manager *activate.Manager, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.RunHook == nil {
		opts.RunHook = runCommand
	}
	return &Service{
		registry:   registry,
		manager:    manager,
		store:      opts.Store,
		wallpapers: opts.Wallpapers,
		onApply:    opts.WallpaperOnApply,
		hooks:      opts.Hooks,
		runHook:    opts.RunHook,
		logger:     opts.Logger,
	}
}

// Subscribe registers fn for every published Event. fn must not block.
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	s.mu.RLock()
	listeners := append(([]func(Event))(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

// ListThemes returns the usable themes and the warnings for skipped ones.
func (s *Service) ListThemes() ([]theme.Theme, []theme.Warning, error) {
	return s.registry.List()
}

// Variables resolves the variables of a theme without activating it.
func (s *Service) Variables(id string) (theme.Theme, *vars.Set, error) {
	t, err := s.registry.Get(id)
	if err != nil {
		return theme.Theme{}, nil, err
	}
	set, err := s.registry.Check(t)
	return t, set, err
}

// Active returns the currently active theme.
func (s *Service) Active() (theme.Theme, error) {
	return s.manager.Active()
}

// Apply activates a theme and records the attempt. The returned record is
// always non-nil; err is the activation error, if any.
func (s *Service) Apply(ctx context.Context, id, source string) (*model.Activation, error) {
	start := time.Now()
	rec := &model.Activation{Timestamp: start.UTC(), Theme: id, Source: source}

	res, err := s.manager.ApplyWithProgress(ctx, id, func(stage activate.Stage, msg string) {
		s.publish(Event{Type: "stage", Theme: id, Stage: stage.String(), Message: msg})
	})
	rec.DurationMs = time.Since(start).Milliseconds()

	switch {
	case err == nil:
		rec.Outcome = model.OutcomeApplied
	case errors.Is(err, activate.ErrRecompile):
		rec.Outcome = model.OutcomeRecompileFailed
	default:
		rec.Outcome = model.OutcomeFailed
	}
	if err != nil {
		rec.Stage = activate.StageOf(err).String()
		rec.Error = err.Error()
	}

	if res != nil {
		rec.ThemeName = res.Theme.Name
		if res.Previous != "" {
			rec.Previous = filepath.Base(res.Previous)
		}
		if s.onApply && s.wallpapers != nil {
			if path, wpErr := s.reloadWallpaper(ctx, res.Theme); wpErr != nil {
				s.logger.Warn("wallpaper not changed", "theme", id, "err", wpErr)
			} else {
				rec.Wallpaper = path
			}
		}
	}
	if err == nil {
		s.runHooks(ctx)
	}

	if s.store != nil {
		if saveErr := s.store.SaveActivation(rec); saveErr != nil {
			s.logger.Warn("activation not recorded", "theme", id, "err", saveErr)
		}
	}

	if rec.Succeeded() {
		s.logger.Info("theme applied", "theme", id, "outcome", rec.Outcome, "took", time.Duration(rec.DurationMs)*time.Millisecond)
		s.publish(Event{Type: "applied", Theme: id, Message: rec.Error})
	} else {
		s.logger.Error("apply failed", "theme", id, "stage", rec.Stage, "err", err)
		s.publish(Event{Type: "failed", Theme: id, Stage: rec.Stage, Message: rec.Error})
	}
	return rec, err
}

// Recompile reruns the recompile stage for the active theme.
func (s *Service) Recompile(ctx context.Context) error {
	if err := s.manager.Recompile(ctx); err != nil {
		return err
	}
	s.runHooks(ctx)
	return nil
}

// ReloadWallpaper sets a new random wallpaper from the active theme.
func (s *Service) ReloadWallpaper(ctx context.Context) (string, error) {
	if s.wallpapers == nil {
		return "", ErrWallpaperDisabled
	}
	t, err := s.manager.Active()
	if err != nil {
		return "", err
	}
	return s.reloadWallpaper(ctx, t)
}

func (s *Service) reloadWallpaper(ctx context.Context, t theme.Theme) (string, error) {
	s.mu.RLock()
	current := s.lastWallpaper
	s.mu.RUnlock()

	path, err := s.wallpapers.Reload(ctx, filepath.Join(t.Dir, theme.WallpaperDir), current)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.lastWallpaper = path
	s.mu.Unlock()
	s.publish(Event{Type: "wallpaper", Theme: t.ID, Message: path})
	return path, nil
}

// History returns at most limit activations, newest first.
func (s *Service) History(limit int) ([]model.Activation, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(limit)
}

// RunSchedule is the scheduler runner: a schedule with a theme switches to
// it, any other schedule rotates the wallpaper.
func (s *Service) RunSchedule(ctx context.Context, sc model.Schedule) error {
	if sc.Theme != "" {
		_, err := s.Apply(ctx, sc.Theme, "schedule")
		return err
	}
	_, err := s.ReloadWallpaper(ctx)
	return err
}

func (s *Service) runHooks(ctx context.Context) {
	for _, hook := range s.hooks {
		if len(hook) == 0 {
			continue
		}
		if err := s.runHook(ctx, hook); err != nil {
			s.logger.Warn("hook failed", "hook", strings.Join(hook, " "), "err", err)
		}
	}
}

func runCommand(ctx context.Context, argv []string) error {
	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
