package theme

const (
	// VariablesFile is the variable definition file every theme must have.
	VariablesFile = "theme-variables.scss"
	// MetaFile optionally names and describes a theme.
	MetaFile = "meta.toml"
	// ActiveLink is the reserved pointer entry under the themes root.
	ActiveLink = "current"
	// WallpaperDir holds a theme's wallpaper images.
	WallpaperDir = "wallpapers"
)

// Theme is a selectable theme directory under the themes root.
type Theme struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Dir           string `json:"dir"`
	VariablesPath string `json:"variables_path"`
}

// Metadata is the content of a theme's meta.toml.
type Metadata struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Warning describes a theme directory that was skipped or only partly
// loaded during a scan.
type Warning struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Err     error  `json:"-"`
	Skipped bool   `json:"skipped"`
}

func (w Warning) String() string {
	return w.ID + ": " + w.Err.Error()
}
