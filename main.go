package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"themeplane/activate"
	"themeplane/api"
	"themeplane/config"
	"themeplane/emit"
	"themeplane/model"
	"themeplane/picker"
	"themeplane/scheduler"
	"themeplane/service"
	"themeplane/theme"
	"themeplane/vars"
)

var (
	configDir    string
	logLevel     string
	checkThemes  bool
	showFormat   string
	historyLimit int
	appVersion   = "0.3.0"
)

var (
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var rootCmd = &cobra.Command{
	Use:           "themeplane",
	Short:         "themeplane – desktop theme switcher",
	Long:          "Themeplane switches the active desktop theme: it emits the theme's variables for the status bar and window manager, recompiles styles and rotates wallpapers.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPicker,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available themes",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var applyCmd = &cobra.Command{
	Use:   "apply <theme>",
	Short: "Activate a theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

var recompileCmd = &cobra.Command{
	Use:   "recompile",
	Short: "Rerun the recompile step for the active theme",
	Args:  cobra.NoArgs,
	RunE:  runRecompile,
}

var showCmd = &cobra.Command{
	Use:   "show [theme]",
	Short: "Print the variables of a theme (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent theme activations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var wallpaperCmd = &cobra.Command{
	Use:   "wallpaper",
	Short: "Wallpaper management",
}

var wallpaperReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Set a random wallpaper from the active theme",
	Args:  cobra.NoArgs,
	RunE:  runWallpaperReload,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Manage themeplane configuration files.",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a default configuration file",
	Long:  "Generate a default themeplane.config file in the config directory.",
	Args:  cobra.NoArgs,
	RunE:  runConfigGenerate,
}

func init() {
	rootCmd.Version = appVersion
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir(), "Directory holding themeplane.config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	listCmd.Flags().BoolVar(&checkThemes, "check", false, "Parse every theme and report errors")
	showCmd.Flags().StringVar(&showFormat, "format", "plain", "Output format: plain, json, scss or hypr")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show (0 for all)")

	wallpaperCmd.AddCommand(wallpaperReloadCmd)
	configCmd.AddCommand(configGenerateCmd)
	rootCmd.AddCommand(listCmd, applyCmd, recompileCmd, showCmd, historyCmd, wallpaperCmd, serveCmd, configCmd)
}

func runPicker(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	themes, warnings, err := a.svc.ListThemes()
	if err != nil {
		return err
	}
	logWarnings(a.logger, warnings)
	if len(themes) == 0 {
		return fmt.Errorf("no themes found under %s", a.registry.Root())
	}

	active := ""
	if t, err := a.svc.Active(); err == nil {
		active = t.ID
	}
	lastUsed, err := lastActivations(a.svc)
	if err != nil {
		a.logger.Warn("load history", "err", err)
	}

	apply := func(ctx context.Context, id string) (*model.Activation, error) {
		return a.svc.Apply(ctx, id, "picker")
	}
	rec, err := picker.Run(cmd.Context(), picker.New(cmd.Context(), themes, active, lastUsed, apply))
	if rec != nil && rec.Succeeded() {
		fmt.Println(okStyle.Render("Applied " + rec.Theme))
	}
	return err
}

// lastActivations maps each theme to its most recent successful activation.
func lastActivations(svc *service.Service) (map[string]time.Time, error) {
	records, err := svc.History(0)
	if err != nil {
		return nil, err
	}
	last := make(map[string]time.Time)
	for _, rec := range records {
		if !rec.Succeeded() {
			continue
		}
		if _, ok := last[rec.Theme]; !ok {
			last[rec.Theme] = rec.Timestamp
		}
	}
	return last, nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	themes, warnings, err := a.svc.ListThemes()
	if err != nil {
		return err
	}
	logWarnings(a.logger, warnings)

	active := ""
	if t, err := a.svc.Active(); err == nil {
		active = t.ID
	}

	failed := 0
	for _, t := range themes {
		marker := "  "
		name := t.Name
		if t.ID == active {
			marker = activeStyle.Render("● ")
			name = activeStyle.Render(name)
		}
		line := fmt.Sprintf("%s%-20s %s", marker, t.ID, name)
		if t.Description != "" {
			line += " " + faintStyle.Render(t.Description)
		}
		if checkThemes {
			set, err := a.registry.Check(t)
			if err != nil {
				failed++
				line += " " + errStyle.Render(err.Error())
			} else {
				line += " " + okStyle.Render(fmt.Sprintf("%d variables", set.Len()))
			}
		}
		fmt.Println(line)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d themes failed to parse", failed, len(themes))
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	a.svc.Subscribe(func(e service.Event) {
		switch e.Type {
		case "stage":
			if activate.Stage(e.Stage) != activate.StageIdle {
				fmt.Println(faintStyle.Render(fmt.Sprintf("→ %s: %s", e.Stage, e.Message)))
			}
		case "wallpaper":
			fmt.Println(faintStyle.Render("→ wallpaper: " + e.Message))
		}
	})

	rec, err := a.svc.Apply(cmd.Context(), args[0], "cli")
	switch {
	case err == nil:
		fmt.Println(okStyle.Render(fmt.Sprintf("Applied %s in %dms", rec.Theme, rec.DurationMs)))
		return nil
	case rec != nil && rec.Succeeded():
		fmt.Println(warnStyle.Render(fmt.Sprintf("Applied %s, but recompiling failed", rec.Theme)))
	}
	return err
}

func runRecompile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.svc.Recompile(cmd.Context()); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Recompiled"))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	} else {
		t, err := a.svc.Active()
		if err != nil {
			return err
		}
		id = t.ID
	}

	_, set, err := a.svc.Variables(id)
	if err != nil {
		return err
	}
	return printVariables(set, showFormat)
}

func printVariables(set *vars.Set, format string) error {
	switch format {
	case "plain":
		set.Each(func(name, value string) {
			fmt.Printf("%-28s %s\n", name, value)
		})
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set.Map())
	case "scss":
		os.Stdout.Write(emit.StatusBar(set))
	case "hypr":
		os.Stdout.Write(emit.WindowManager(set))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	records, err := a.svc.History(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No activations yet")
		return nil
	}

	for _, rec := range records {
		outcome := okStyle.Render(string(rec.Outcome))
		switch rec.Outcome {
		case model.OutcomeRecompileFailed:
			outcome = warnStyle.Render(string(rec.Outcome))
		case model.OutcomeFailed:
			outcome = errStyle.Render(string(rec.Outcome))
		}
		line := fmt.Sprintf("%-16s %-20s %-26s %6dms %s",
			humanize.Time(rec.Timestamp), rec.Theme, outcome, rec.DurationMs, faintStyle.Render(rec.Source))
		if rec.Error != "" {
			line += " " + faintStyle.Render(rec.Error)
		}
		fmt.Println(line)
	}
	return nil
}

func runWallpaperReload(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	path, err := a.svc.ReloadWallpaper(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(filepath.Base(path))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(a.svc.RunSchedule, a.cfg.Schedules, a.logger)
	saveSchedules := func(s []model.Schedule) error {
		return config.UpdateSchedules(a.cfg.ConfigDir, s)
	}

	apiServer := api.NewServer(a.svc, theme.NewHandler(a.registry), sched, saveSchedules, a.logger)
	defer apiServer.Close()

	mux := http.NewServeMux()
	apiServer.Register(mux)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printListeningAddresses(a.logger, a.cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		sched.Wait()
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown", "err", err)
	}
	sched.Wait()
	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(config.ExpandPath(configDir))
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("config file already exists: %s", cfgPath)
	}

	cfg := config.Default()
	cfg.ConfigDir = dir
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Generated default config file: %s\n", cfgPath)
	return nil
}

func logWarnings(logger *log.Logger, warnings []theme.Warning) {
	for _, w := range warnings {
		if w.Skipped {
			logger.Warn("skipping theme", "theme", w.ID, "err", w.Err)
		} else {
			logger.Warn("theme loaded with warnings", "theme", w.ID, "err", w.Err)
		}
	}
}

func printListeningAddresses(logger *log.Logger, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		logger.Infof("listening on http://%s", addr)
		return
	}

	if host != "" && host != "0.0.0.0" && host != "::" {
		logger.Infof("listening on http://%s", net.JoinHostPort(host, port))
		return
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		logger.Infof("listening on http://0.0.0.0:%s", port)
		return
	}
	urls := []string{"http://localhost:" + port}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			urls = append(urls, fmt.Sprintf("http://%s:%s", ipnet.IP, port))
		}
	}
	logger.Info("listening on " + strings.Join(urls, ", "))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
