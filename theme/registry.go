package theme

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"themeplane/vars"
)

// Registry enumerates the themes under a root directory. It never caches:
// every call reflects what is on disk at that moment.
type Registry struct {
	root   string
	logger *log.Logger
}

// NewRegistry creates a registry rooted at root.
func NewRegistry(root string, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Registry{root: root, logger: logger}
}

// Root returns the themes root directory.
func (r *Registry) Root() string {
	return r.root
}

// List scans the root and returns every usable theme, sorted by display
// name. Directories without a variable file are skipped and reported as
// warnings; only an unreadable root is an error.
func (r *Registry) List() ([]Theme, []Warning, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, nil, &RegistryUnavailableError{Root: r.root, Err: err}
	}

	var themes []Theme
	var warnings []Warning
	for _, entry := range entries {
		id := entry.Name()
		if reserved(id) || entry.Type()&fs.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}

		t, warning := r.load(id)
		if warning != nil {
			r.logger.Warn("theme degraded", "theme", id, "skipped", warning.Skipped, "err", warning.Err)
			warnings = append(warnings, *warning)
			if warning.Skipped {
				continue
			}
		}
		themes = append(themes, t)
	}

	slices.SortFunc(themes, func(a, b Theme) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	r.logger.Debug("scanned themes", "root", r.root, "themes", len(themes), "warnings", len(warnings))
	return themes, warnings, nil
}

// Get loads a single theme by identifier.
func (r *Registry) Get(id string) (Theme, error) {
	if !validID(id) {
		return Theme{}, fmt.Errorf("%w: %q", ErrThemeNotFound, id)
	}
	if _, err := os.Stat(r.root); err != nil {
		return Theme{}, &RegistryUnavailableError{Root: r.root, Err: err}
	}

	info, err := os.Lstat(filepath.Join(r.root, id))
	if err != nil || !info.IsDir() {
		return Theme{}, fmt.Errorf("%w: %q", ErrThemeNotFound, id)
	}

	t, warning := r.load(id)
	if warning != nil {
		if warning.Skipped {
			return Theme{}, fmt.Errorf("%w: %q: %w", ErrThemeNotFound, id, warning.Err)
		}
		r.logger.Warn("theme degraded", "theme", id, "err", warning.Err)
	}
	return t, nil
}

// Check parses the theme's variables, including its base file.
func (r *Registry) Check(t Theme) (*vars.Set, error) {
	set, err := vars.ParseFile(t.VariablesPath)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", t.ID, err)
	}
	return set, nil
}

// load builds a Theme for root/id. The returned warning is non-nil when the
// directory is unusable (Skipped) or its metadata could not be read.
func (r *Registry) load(id string) (Theme, *Warning) {
	dir := filepath.Join(r.root, id)
	t := Theme{
		ID:            id,
		Name:          DisplayName(id),
		Dir:           dir,
		VariablesPath: filepath.Join(dir, VariablesFile),
	}

	info, err := os.Stat(t.VariablesPath)
	if err != nil || !info.Mode().IsRegular() {
		if err == nil || errors.Is(err, os.ErrNotExist) {
			err = ErrMissingVariables
		}
		return Theme{}, &Warning{ID: id, Path: t.VariablesPath, Err: err, Skipped: true}
	}

	meta, err := ReadMetadata(dir)
	if err != nil {
		return t, &Warning{ID: id, Path: filepath.Join(dir, MetaFile), Err: err}
	}
	if meta.Name != "" {
		t.Name = meta.Name
	}
	t.Description = meta.Description

	return t, nil
}

func reserved(name string) bool {
	return name == ActiveLink || strings.HasPrefix(name, ".")
}

func validID(id string) bool {
	if id == "" || reserved(id) {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && filepath.Base(id) == id
}
