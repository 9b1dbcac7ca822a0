package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// ReadMetadata reads dir/meta.toml. A missing file is not an error and
// yields zero metadata.
func ReadMetadata(dir string) (Metadata, error) {
	var meta Metadata
	content, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("read %s: %w", MetaFile, err)
	}

	if _, err := toml.Decode(string(content), &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode %s: %w", MetaFile, err)
	}
	meta.Name = strings.TrimSpace(meta.Name)
	meta.Description = strings.TrimSpace(meta.Description)

	return meta, nil
}

// DisplayName derives a human readable name from a theme identifier,
// e.g. "tokyo-night" becomes "Tokyo Night".
func DisplayName(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		parts[i] = string(unicode.ToUpper(r)) + part[size:]
	}
	if len(parts) == 0 {
		return id
	}
	return strings.Join(parts, " ")
}
