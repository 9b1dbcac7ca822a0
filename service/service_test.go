package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeplane/activate"
	"themeplane/emit"
	"themeplane/model"
	"themeplane/storage"
	"themeplane/theme"
	"themeplane/wallpaper"
)

type harness struct {
	root     string
	svc      *Service
	store    *storage.Store
	pointer  *activate.SymlinkPointer
	mu       sync.Mutex
	hooks    [][]string
	setCalls []string
	events   []Event
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newHarness(t *testing.T, recompile activate.RecompileFunc) *harness {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "base.scss"), "$borderColor: A;\n$foregroundColor: B;\n")
	writeFile(t, filepath.Join(root, "nord", theme.VariablesFile), "@use \"../base\";\n$foregroundColor: C;\n")
	writeFile(t, filepath.Join(root, "nord", theme.WallpaperDir, "fjord.png"), "img")
	writeFile(t, filepath.Join(root, "gruvbox", theme.VariablesFile), "$foregroundColor: #ebdbb2;\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "unfinished"), 0o755))

	h := &harness{root: root, store: storage.New(t.TempDir())}

	registry := theme.NewRegistry(root, nil)
	h.pointer = activate.NewSymlinkPointer(filepath.Join(root, theme.ActiveLink))
	manager := activate.NewManager(registry, h.pointer, activate.Options{
		Targets: []activate.Target{
			{Name: "status-bar", Path: filepath.Join(root, "status-bar-variables.scss"), Emit: emit.StatusBar, Recompile: recompile},
			{Name: "window-manager", Path: filepath.Join(t.TempDir(), "style-variables.conf"), Emit: emit.WindowManager},
		},
	})

	setter := wallpaper.New(wallpaper.Options{
		Command: []string{"hyprctl", "hyprpaper", "wallpaper", "," + wallpaper.Placeholder},
		Exec: func(_ context.Context, _ string, args ...string) ([]byte, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.setCalls = append(h.setCalls, args[len(args)-1])
			return []byte("ok"), nil
		},
	})

	h.svc = New(registry, manager, Options{
		Store:            h.store,
		Wallpapers:       setter,
		WallpaperOnApply: true,
		Hooks:            [][]string{{"pkill", "-SIGUSR2", "waybar"}},
		RunHook: func(_ context.Context, argv []string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.hooks = append(h.hooks, argv)
			return errors.New("no process found")
		},
	})
	h.svc.Subscribe(func(e Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e)
	})
	return h
}

func (h *harness) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func TestListThemesSkipsIncompleteTheme(t *testing.T) {
	h := newHarness(t, nil)

	themes, warnings, err := h.svc.ListThemes()
	require.NoError(t, err)

	require.Len(t, themes, 2)
	assert.Equal(t, "gruvbox", themes[0].ID)
	assert.Equal(t, "nord", themes[1].ID)
	require.Len(t, warnings, 1)
	assert.Equal(t, "unfinished", warnings[0].ID)
}

func TestApplyRunsFollowups(t *testing.T) {
	h := newHarness(t, nil)

	rec, err := h.svc.Apply(context.Background(), "nord", "cli")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeApplied, rec.Outcome)
	assert.Equal(t, "Nord", rec.ThemeName)
	assert.Equal(t, "cli", rec.Source)
	assert.Equal(t, filepath.Join(h.root, "nord", theme.WallpaperDir, "fjord.png"), rec.Wallpaper)
	assert.Equal(t, []string{"," + rec.Wallpaper}, h.setCalls)
	assert.Equal(t, [][]string{{"pkill", "-SIGUSR2", "waybar"}}, h.hooks)

	history, err := h.svc.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "nord", history[0].Theme)

	types := h.eventTypes()
	assert.Contains(t, types, "stage")
	assert.Contains(t, types, "wallpaper")
	assert.Equal(t, "applied", types[len(types)-1])

	active, err := h.svc.Active()
	require.NoError(t, err)
	assert.Equal(t, "nord", active.ID)
}

func TestApplyFailureIsRecorded(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Apply(context.Background(), "gruvbox", "cli")
	require.NoError(t, err)

	rec, err := h.svc.Apply(context.Background(), "unfinished", "api")

	require.ErrorIs(t, err, theme.ErrThemeNotFound)
	assert.Equal(t, model.OutcomeFailed, rec.Outcome)
	assert.Equal(t, activate.StagePointerSwitching.String(), rec.Stage)
	assert.NotEmpty(t, rec.Error)
	assert.Len(t, h.hooks, 1, "hooks only run for the successful apply")

	latest, err := h.store.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, model.OutcomeFailed, latest.Outcome)

	active, err := h.svc.Active()
	require.NoError(t, err)
	assert.Equal(t, "gruvbox", active.ID)

	types := h.eventTypes()
	assert.Equal(t, "failed", types[len(types)-1])
}

func TestApplyRecompileFailureKeepsTheme(t *testing.T) {
	h := newHarness(t, func(context.Context, string) error {
		return errors.New("sass: Undefined variable")
	})

	rec, err := h.svc.Apply(context.Background(), "nord", "picker")

	require.ErrorIs(t, err, activate.ErrRecompile)
	assert.Equal(t, model.OutcomeRecompileFailed, rec.Outcome)
	assert.True(t, rec.Succeeded())
	assert.NotEmpty(t, rec.Wallpaper)
	assert.Empty(t, h.hooks)

	active, err := h.svc.Active()
	require.NoError(t, err)
	assert.Equal(t, "nord", active.ID)
}

func TestVariables(t *testing.T) {
	h := newHarness(t, nil)

	got, set, err := h.svc.Variables("nord")
	require.NoError(t, err)

	assert.Equal(t, "nord", got.ID)
	assert.Equal(t, map[string]string{"borderColor": "A", "foregroundColor": "C"}, set.Map())
}

func TestRunSchedule(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.ReloadWallpaper(context.Background())
	require.ErrorIs(t, err, activate.ErrNoActiveTheme)

	require.NoError(t, h.svc.RunSchedule(context.Background(), model.Schedule{ID: "evening", Theme: "nord"}))
	active, err := h.svc.Active()
	require.NoError(t, err)
	assert.Equal(t, "nord", active.ID)

	require.NoError(t, h.svc.RunSchedule(context.Background(), model.Schedule{ID: "rotate"}))
	assert.Len(t, h.setCalls, 2)

	history, err := h.svc.History(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "schedule", history[0].Source)
}

func TestReloadWallpaperDisabled(t *testing.T) {
	svc := New(nil, nil, Options{})
	_, err := svc.ReloadWallpaper(context.Background())
	assert.ErrorIs(t, err, ErrWallpaperDisabled)
}

func TestRecompileRunsHooks(t *testing.T) {
	calls := 0
	h := newHarness(t, func(context.Context, string) error {
		calls++
		return nil
	})
	_, err := h.svc.Apply(context.Background(), "gruvbox", "cli")
	require.NoError(t, err)

	require.NoError(t, h.svc.Recompile(context.Background()))

	assert.Equal(t, 2, calls)
	assert.Len(t, h.hooks, 2)
}
