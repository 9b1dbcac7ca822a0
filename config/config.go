package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"themeplane/model"
	"themeplane/storage"
)

// FileName is the name of the config file inside the config directory.
const FileName = "themeplane.config"

const (
	envThemesRoot       = "THEMEPLANE_THEMES_ROOT"
	envRecompileTimeout = "THEMEPLANE_RECOMPILE_TIMEOUT"
	envLogLevel         = "THEMEPLANE_LOG_LEVEL"
)

// ThemesRootVar in a target path or argv is replaced with the themes root.
const ThemesRootVar = "{themes_root}"

// Output formats understood by Target.Format.
const (
	FormatSCSS     = "scss"
	FormatHypr     = "hypr"
	FormatTemplate = "template"
)

// Duration is a time.Duration stored as a string such as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Target describes one emitted config file.
type Target struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Format    string   `json:"format"`
	Template  string   `json:"template,omitempty"`
	Recompile []string `json:"recompile,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
}

type Wallpaper struct {
	Enabled    bool     `json:"enabled"`
	Command    []string `json:"command"`
	Attempts   int      `json:"attempts"`
	RetryDelay Duration `json:"retry_delay"`
}

type Config struct {
	ConfigDir        string           `json:"-"`
	ThemesRoot       string           `json:"themes_root"`
	DataDir          string           `json:"data_dir"`
	ListenAddr       string           `json:"listen_addr"`
	LogLevel         string           `json:"log_level"`
	RecompileTimeout Duration         `json:"recompile_timeout"`
	Targets          []Target         `json:"targets"`
	Hooks            [][]string       `json:"hooks,omitempty"`
	Wallpaper        Wallpaper        `json:"wallpaper"`
	Schedules        []model.Schedule `json:"schedules,omitempty"`
}

// DefaultDir returns ~/.config/themeplane, honouring XDG_CONFIG_HOME.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "themeplane")
	}
	return ExpandPath("~/.config/themeplane")
}

func Default() Config {
	return Config{
		ConfigDir:        DefaultDir(),
		ThemesRoot:       "~/.local/share/themeplane",
		DataDir:          "~/.local/state/themeplane",
		ListenAddr:       "127.0.0.1:8732",
		LogLevel:         "info",
		RecompileTimeout: Duration(30 * time.Second),
		Targets: []Target{
			{
				Name:   "status-bar",
				Path:   ThemesRootVar + "/status-bar-variables.scss",
				Format: FormatSCSS,
				Recompile: []string{
					"sass", "--no-source-map",
					ThemesRootVar + "/waybar-style.scss",
					"~/.config/waybar/style.css",
				},
			},
			{
				Name:   "window-manager",
				Path:   "~/.config/hypr/style-variables.conf",
				Format: FormatHypr,
			},
			{
				Name:     "terminal",
				Path:     "~/.config/kitty/theme.conf",
				Format:   FormatTemplate,
				Template: ThemesRootVar + "/theme-template.conf",
				Optional: true,
			},
		},
		Hooks: [][]string{
			{"pkill", "-SIGUSR2", "waybar"},
			{"kitty", "@", "--no-response", "load-config"},
		},
		Wallpaper: Wallpaper{
			Enabled:    true,
			Command:    []string{"hyprctl", "hyprpaper", "wallpaper", ",{wallpaper}"},
			Attempts:   5,
			RetryDelay: Duration(time.Second),
		},
	}
}

// Load reads dir/themeplane.config. A missing file yields the defaults.
// Empty fields are filled from the defaults, environment overrides are
// applied and every path has ~ expanded.
func Load(dir string) (Config, error) {
	cfg, err := read(dir)
	if err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg.Expanded(), nil
}

// UpdateSchedules rewrites the schedules in dir/themeplane.config and keeps
// every other field as written, without env overrides or expansion.
func UpdateSchedules(dir string, schedules []model.Schedule) error {
	cfg, err := read(dir)
	if err != nil {
		return err
	}
	cfg.Schedules = schedules
	return Save(cfg)
}

func read(dir string) (Config, error) {
	cfgPath := filepath.Join(dir, FileName)

	cfg := Default()
	f, err := os.Open(cfgPath)
	switch {
	case err == nil:
		defer f.Close()
		cfg = Config{Wallpaper: Wallpaper{Enabled: true}}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", cfgPath, err)
		}
		fillDefaults(&cfg)
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, err
	}
	cfg.ConfigDir = dir
	return cfg, nil
}

func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.ThemesRoot == "" {
		cfg.ThemesRoot = def.ThemesRoot
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.RecompileTimeout <= 0 {
		cfg.RecompileTimeout = def.RecompileTimeout
	}
	if cfg.Targets == nil {
		cfg.Targets = def.Targets
	}
	if cfg.Hooks == nil {
		cfg.Hooks = def.Hooks
	}
	if len(cfg.Wallpaper.Command) == 0 {
		cfg.Wallpaper.Command = def.Wallpaper.Command
	}
	if cfg.Wallpaper.Attempts <= 0 {
		cfg.Wallpaper.Attempts = def.Wallpaper.Attempts
	}
	if cfg.Wallpaper.RetryDelay <= 0 {
		cfg.Wallpaper.RetryDelay = def.Wallpaper.RetryDelay
	}
}

func applyEnv(cfg *Config) error {
	if raw, ok := os.LookupEnv(envThemesRoot); ok {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("%s must not be empty", envThemesRoot)
		}
		cfg.ThemesRoot = raw
	}
	if raw, ok := os.LookupEnv(envRecompileTimeout); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", envRecompileTimeout, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be greater than 0", envRecompileTimeout)
		}
		cfg.RecompileTimeout = Duration(parsed)
	}
	if raw, ok := os.LookupEnv(envLogLevel); ok && raw != "" {
		cfg.LogLevel = raw
	}
	return nil
}

// Validate checks the targets for missing fields and unknown formats.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target %d: name required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("target %s: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if t.Path == "" {
			return fmt.Errorf("target %s: path required", t.Name)
		}
		switch t.Format {
		case FormatSCSS, FormatHypr:
		case FormatTemplate:
			if t.Template == "" {
				return fmt.Errorf("target %s: template path required", t.Name)
			}
		default:
			return fmt.Errorf("target %s: unknown format %q", t.Name, t.Format)
		}
	}
	for i, hook := range c.Hooks {
		if len(hook) == 0 {
			return fmt.Errorf("hook %d: empty command", i)
		}
	}
	return nil
}

// Expanded returns a copy with ~ and ThemesRootVar expanded in every path
// and argv element.
func (c Config) Expanded() Config {
	out := c
	out.ConfigDir = ExpandPath(c.ConfigDir)
	out.ThemesRoot = ExpandPath(c.ThemesRoot)
	out.DataDir = ExpandPath(c.DataDir)

	expand := func(p string) string {
		return ExpandPath(strings.ReplaceAll(p, ThemesRootVar, out.ThemesRoot))
	}
	expandArgs := func(args []string) []string {
		if args == nil {
			return nil
		}
		res := make([]string, len(args))
		for i, arg := range args {
			res[i] = expand(arg)
		}
		return res
	}

	out.Targets = make([]Target, len(c.Targets))
	for i, t := range c.Targets {
		t.Path = expand(t.Path)
		t.Template = expand(t.Template)
		t.Recompile = expandArgs(t.Recompile)
		out.Targets[i] = t
	}
	out.Hooks = make([][]string, len(c.Hooks))
	for i, hook := range c.Hooks {
		out.Hooks[i] = expandArgs(hook)
	}
	out.Wallpaper.Command = expandArgs(c.Wallpaper.Command)
	out.Schedules = append([]model.Schedule(nil), c.Schedules...)
	return out
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Save writes the config atomically to cfg.ConfigDir.
func Save(cfg Config) error {
	if cfg.ConfigDir == "" {
		return errors.New("config dir not set")
	}
	cfgPath := filepath.Join(cfg.ConfigDir, FileName)

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(cfgPath, append(b, '\n'), 0o644)
}
