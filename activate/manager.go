// Package activate switches the active theme. It owns the active pointer and
// every emitted config file; nothing else writes them.
package activate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"themeplane/storage"
	"themeplane/theme"
	"themeplane/vars"
)

// DefaultRecompileTimeout bounds the wait for a recompile step.
const DefaultRecompileTimeout = 30 * time.Second

// Options configure a Manager.
type Options struct {
	Targets          []Target
	RecompileTimeout time.Duration
	Logger           *log.Logger
}

// Manager runs the activation pipeline:
// pointer switch, emit, recompile.
type Manager struct {
	registry *theme.Registry
	pointer  Pointer
	targets  []Target
	timeout  time.Duration
	logger   *log.Logger
}

// Result describes a completed pointer switch and emit.
type Result struct {
	Theme     theme.Theme
	Variables *vars.Set
	Emitted   []string
	Previous  string
}

// NewManager creates a manager writing through pointer.
func NewManager(registry *theme.Registry, pointer Pointer, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.RecompileTimeout <= 0 {
		opts.RecompileTimeout = DefaultRecompileTimeout
	}
	return &Manager{
		registry: registry,
		pointer:  pointer,
		targets:  append([]Target(nil), opts.Targets...),
		timeout:  opts.RecompileTimeout,
		logger:   opts.Logger,
	}
}

// Targets returns the configured emit targets.
func (m *Manager) Targets() []Target {
	return append([]Target(nil), m.targets...)
}

// Apply activates the theme with the given identifier.
func (m *Manager) Apply(ctx context.Context, id string) (*Result, error) {
	return m.ApplyWithProgress(ctx, id, nil)
}

// ApplyWithProgress activates a theme and reports each stage transition to
// progress. Errors are *ApplyError values. When only the recompile stage
// fails the returned Result is non-nil: the theme is active and its configs
// are emitted, and Recompile can be retried on its own.
func (m *Manager) ApplyWithProgress(ctx context.Context, id string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(Stage, string) {}
	}

	res, err := m.apply(ctx, id, progress)
	if err != nil {
		progress(StageIdle, err.Error())
		return res, err
	}
	progress(StageIdle, fmt.Sprintf("Applied %s", res.Theme.Name))
	return res, nil
}

func (m *Manager) apply(ctx context.Context, id string, progress ProgressFunc) (*Result, error) {
	progress(StagePointerSwitching, fmt.Sprintf("Switching to %s...", id))

	t, err := m.registry.Get(id)
	if err != nil {
		return nil, &ApplyError{Stage: StagePointerSwitching, Theme: id, Err: err}
	}
	if _, err := vars.ParseFile(t.VariablesPath); err != nil {
		return nil, &ApplyError{Stage: StagePointerSwitching, Theme: id, Path: t.VariablesPath, Err: err}
	}

	previous, err := m.pointer.Target()
	if err != nil {
		return nil, &ApplyError{Stage: StagePointerSwitching, Theme: id, Path: m.pointer.Location(), Err: fmt.Errorf("%w: %w", ErrPointerSwitch, err)}
	}
	if err := m.pointer.Replace(t.Dir); err != nil {
		return nil, &ApplyError{Stage: StagePointerSwitching, Theme: id, Path: m.pointer.Location(), Err: fmt.Errorf("%w: %w", ErrPointerSwitch, err)}
	}
	m.logger.Debug("pointer switched", "theme", id, "previous", previous)

	progress(StageEmitting, fmt.Sprintf("Writing %d config files...", len(m.targets)))

	set, emitted, emitErr := m.emit()
	if emitErr != nil {
		if restoreErr := m.pointer.Replace(previous); restoreErr != nil {
			m.logger.Error("restore pointer failed", "previous", previous, "err", restoreErr)
		}
		emitErr.Theme = id
		return nil, emitErr
	}
	m.logger.Info("theme emitted", "theme", id, "files", len(emitted))

	res := &Result{Theme: t, Variables: set, Emitted: emitted, Previous: previous}

	progress(StageRecompiling, "Recompiling...")

	if recompileErr := m.recompile(ctx); recompileErr != nil {
		recompileErr.Theme = id
		return res, recompileErr
	}
	return res, nil
}

// Recompile reruns only the recompile stage against the emitted files of
// the active theme.
func (m *Manager) Recompile(ctx context.Context) error {
	t, err := m.Active()
	if err != nil {
		return &ApplyError{Stage: StageRecompiling, Err: err}
	}
	if recompileErr := m.recompile(ctx); recompileErr != nil {
		recompileErr.Theme = t.ID
		return recompileErr
	}
	return nil
}

// Active returns the theme the pointer currently names.
func (m *Manager) Active() (theme.Theme, error) {
	target, err := m.pointer.Target()
	if err != nil {
		return theme.Theme{}, err
	}
	if target == "" {
		return theme.Theme{}, ErrNoActiveTheme
	}
	return m.registry.Get(filepath.Base(target))
}

// emit resolves the variables through the pointer and writes every target.
// All outputs are rendered before any file is written; if a write fails the
// files already replaced get their previous content back.
func (m *Manager) emit() (*vars.Set, []string, *ApplyError) {
	source := filepath.Join(m.pointer.Location(), theme.VariablesFile)
	set, err := vars.ParseFile(source)
	if err != nil {
		return nil, nil, &ApplyError{Stage: StageEmitting, Path: source, Err: fmt.Errorf("%w: %w", ErrEmit, err)}
	}

	rendered := make([][]byte, len(m.targets))
	for i, target := range m.targets {
		rendered[i] = target.Emit(set)
	}

	var written []backup
	for i, target := range m.targets {
		prev, err := snapshot(target.Path)
		if err == nil {
			err = storage.WriteFileAtomic(target.Path, rendered[i], 0o644)
		}
		if err != nil {
			m.rollback(written)
			return nil, nil, &ApplyError{Stage: StageEmitting, Path: target.Path, Err: fmt.Errorf("%w: %s: %w", ErrEmit, target.Name, err)}
		}
		written = append(written, prev)
	}

	paths := make([]string, len(m.targets))
	for i, target := range m.targets {
		paths[i] = target.Path
	}
	return set, paths, nil
}

func (m *Manager) recompile(ctx context.Context) *ApplyError {
	for _, target := range m.targets {
		if target.Recompile == nil {
			continue
		}
		start := time.Now()
		if err := m.runBounded(ctx, target); err != nil {
			m.logger.Warn("recompile failed", "target", target.Name, "err", err)
			return &ApplyError{Stage: StageRecompiling, Path: target.Path, Err: fmt.Errorf("%w: %s: %w", ErrRecompile, target.Name, err)}
		}
		m.logger.Debug("recompiled", "target", target.Name, "took", time.Since(start))
	}
	return nil
}

// runBounded waits at most m.timeout for the recompile step. The step is
// not cancellable: it runs detached from ctx and one that overruns keeps
// running in the background.
func (m *Manager) runBounded(ctx context.Context, target Target) error {
	done := make(chan error, 1)
	stepCtx := context.WithoutCancel(ctx)
	go func() {
		done <- target.Recompile(stepCtx, target.Path)
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrRecompileTimeout, m.timeout)
	}
}

type backup struct {
	path    string
	content []byte
	existed bool
}

func snapshot(path string) (backup, error) {
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		return backup{path: path, content: content, existed: true}, nil
	case errors.Is(err, os.ErrNotExist):
		return backup{path: path}, nil
	default:
		return backup{}, err
	}
}

func (m *Manager) rollback(written []backup) {
	for _, b := range written {
		var err error
		if b.existed {
			err = storage.WriteFileAtomic(b.path, b.content, 0o644)
		} else {
			err = os.Remove(b.path)
		}
		if err != nil {
			m.logger.Error("restore emitted file failed", "path", b.path, "err", err)
		}
	}
}
