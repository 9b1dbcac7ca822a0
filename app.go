package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"themeplane/activate"
	"themeplane/config"
	"themeplane/emit"
	"themeplane/service"
	"themeplane/storage"
	"themeplane/theme"
	"themeplane/wallpaper"
)

// app holds the components shared by every command.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	registry *theme.Registry
	manager  *activate.Manager
	store    *storage.Store
	svc      *service.Service
}

func newLogger(level string) (*log.Logger, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "themeplane",
	})
	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		logger.SetLevel(lvl)
	}
	return logger, nil
}

func newApp() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	targets, err := buildTargets(cfg.Targets, logger)
	if err != nil {
		return nil, err
	}

	registry := theme.NewRegistry(cfg.ThemesRoot, logger)
	pointer := activate.NewSymlinkPointer(filepath.Join(cfg.ThemesRoot, theme.ActiveLink))
	manager := activate.NewManager(registry, pointer, activate.Options{
		Targets:          targets,
		RecompileTimeout: cfg.RecompileTimeout.Std(),
		Logger:           logger,
	})

	store := storage.New(cfg.DataDir)
	store.SetLogger(logger)
	if err := store.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	var setter *wallpaper.Setter
	if cfg.Wallpaper.Enabled {
		setter = wallpaper.New(wallpaper.Options{
			Command:    cfg.Wallpaper.Command,
			Attempts:   cfg.Wallpaper.Attempts,
			RetryDelay: cfg.Wallpaper.RetryDelay.Std(),
			Logger:     logger,
		})
	}

	svc := service.New(registry, manager, service.Options{
		Store:            store,
		Wallpapers:       setter,
		WallpaperOnApply: cfg.Wallpaper.Enabled,
		Hooks:            cfg.Hooks,
		Logger:           logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		manager:  manager,
		store:    store,
		svc:      svc,
	}, nil
}

// buildTargets turns the configured targets into emit targets. An optional
// template target whose template file is missing is skipped.
func buildTargets(cfgTargets []config.Target, logger *log.Logger) ([]activate.Target, error) {
	targets := make([]activate.Target, 0, len(cfgTargets))
	for _, tc := range cfgTargets {
		var fn emit.Func
		switch tc.Format {
		case config.FormatSCSS:
			fn = emit.StatusBar
		case config.FormatHypr:
			fn = emit.WindowManager
		case config.FormatTemplate:
			data, err := os.ReadFile(tc.Template)
			if err != nil {
				if tc.Optional && errors.Is(err, fs.ErrNotExist) {
					logger.Warn("skipping target, template missing", "target", tc.Name, "template", tc.Template)
					continue
				}
				return nil, fmt.Errorf("target %s: read template: %w", tc.Name, err)
			}
			fn = emit.Template(string(data))
		default:
			return nil, fmt.Errorf("target %s: unknown format %q", tc.Name, tc.Format)
		}

		t := activate.Target{Name: tc.Name, Path: tc.Path, Emit: fn}
		if len(tc.Recompile) > 0 {
			t.Recompile = activate.Command(tc.Recompile...)
		}
		targets = append(targets, t)
	}
	return targets, nil
}
