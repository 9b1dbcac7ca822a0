package activate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Pointer names the active theme directory.
type Pointer interface {
	// Location is a path that resolves to the active theme directory for as
	// long as the pointer is not replaced.
	Location() string
	// Target returns the directory currently pointed to, or "" when unset.
	Target() (string, error)
	// Replace atomically points at target. An empty target removes the
	// pointer.
	Replace(target string) error
}

// SymlinkPointer is a Pointer backed by a symbolic link. Replace stages a new
// link next to the old one and renames it into place, so a concurrent reader
// always sees either the old or the new target.
type SymlinkPointer struct {
	Path string
}

// NewSymlinkPointer returns a pointer managed at path.
func NewSymlinkPointer(path string) *SymlinkPointer {
	return &SymlinkPointer{Path: path}
}

func (p *SymlinkPointer) Location() string { return p.Path }

func (p *SymlinkPointer) Target() (string, error) {
	target, err := os.Readlink(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read pointer: %w", err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(p.Path), target)
	}
	return target, nil
}

func (p *SymlinkPointer) Replace(target string) error {
	if target == "" {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove pointer: %w", err)
		}
		return nil
	}

	// A relative link target resolves against the link's directory, not
	// the working directory, so store the absolute path.
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}

	if info, err := os.Lstat(p.Path); err == nil && info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("pointer %s exists and is not a symlink", p.Path)
	}

	staging := filepath.Join(filepath.Dir(p.Path), "."+filepath.Base(p.Path)+"-"+uuid.NewString())
	if err := os.Symlink(target, staging); err != nil {
		return fmt.Errorf("stage pointer: %w", err)
	}
	if err := os.Rename(staging, p.Path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("swap pointer: %w", err)
	}
	return nil
}

// MemPointer is an in-memory Pointer. Its Location is the target directory
// itself. Setting Fail makes the next Replace calls fail without changing
// the target.
type MemPointer struct {
	mu      sync.Mutex
	target  string
	history []string
	Fail    error
}

// NewMemPointer returns a pointer initially naming target.
func NewMemPointer(target string) *MemPointer {
	return &MemPointer{target: target}
}

func (p *MemPointer) Location() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *MemPointer) Target() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target, nil
}

func (p *MemPointer) Replace(target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	p.target = target
	p.history = append(p.history, target)
	return nil
}

// History returns every target passed to a successful Replace.
func (p *MemPointer) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...)
}
