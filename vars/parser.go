package vars

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Syntax selects the assignment form a file uses.
type Syntax int

const (
	// SyntaxSCSS is `$name: value;`, used by theme sources and the status bar.
	SyntaxSCSS Syntax = iota
	// SyntaxHypr is `$name = value`, used by the window manager.
	SyntaxHypr
)

func (s Syntax) String() string {
	switch s {
	case SyntaxSCSS:
		return "scss"
	case SyntaxHypr:
		return "hypr"
	default:
		return fmt.Sprintf("syntax(%d)", int(s))
	}
}

// SourceExt is appended to include references that have no extension.
const SourceExt = ".scss"

var (
	includeRe = regexp.MustCompile(`^@(?:use|import)\s+["']([^"']+)["']\s*(?:as\s+[\w*-]+\s*)?;?$`)
	nameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
)

// include is an include directive found while scanning a file.
type include struct {
	ref  string
	line int
}

// ParseFile parses the theme file at path and its optional base include
// into a single set. The base file's variables are applied first and the
// file's own assignments are overlaid, so for duplicate names the including
// file wins, and within one file the last definition wins.
func ParseFile(path string) (*Set, error) {
	local, inc, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	result := NewSet()
	if inc != nil {
		basePath, err := resolveInclude(path, *inc)
		if err != nil {
			return nil, err
		}
		base, nested, err := parseFile(basePath)
		if err != nil {
			return nil, err
		}
		if nested != nil {
			return nil, fmt.Errorf("%s: %w", location(basePath, nested.line), ErrIncludeDepth)
		}
		result.Merge(base)
	}
	result.Merge(local)

	if result.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoVariables)
	}
	return result, nil
}

// Decode parses a flat variable file in the given syntax. Include lines are
// rejected since emitted files never contain them.
func Decode(r io.Reader, syntax Syntax) (*Set, error) {
	set, inc, err := scan(r, "", syntax)
	if err != nil {
		return nil, err
	}
	if inc != nil {
		return nil, fmt.Errorf("%s: %w", location("", inc.line), ErrIncludeDepth)
	}
	return set, nil
}

func parseFile(path string) (*Set, *include, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open variables: %w", err)
	}
	defer f.Close()

	return scan(f, path, SyntaxSCSS)
}

func scan(r io.Reader, path string, syntax Syntax) (*Set, *include, error) {
	set := NewSet()
	var inc *include
	var comments commentStripper

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		content := comments.strip(scanner.Text(), syntax)
		if content == "" {
			continue
		}

		if syntax == SyntaxSCSS && isIncludeLine(content) {
			m := includeRe.FindStringSubmatch(content)
			if m == nil {
				return nil, nil, fmt.Errorf("%s: %w: %q", location(path, lineNo), ErrMalformedInclude, content)
			}
			if strings.HasPrefix(m[1], "sass:") {
				// Built-in module, nothing to resolve.
				continue
			}
			if inc != nil {
				return nil, nil, fmt.Errorf("%s: %w (first on line %d)", location(path, lineNo), ErrMultipleIncludes, inc.line)
			}
			inc = &include{ref: m[1], line: lineNo}
			continue
		}

		if !strings.HasPrefix(content, "$") {
			continue
		}

		name, value, reason := splitAssignment(content, syntax)
		if reason != "" {
			return nil, nil, &MalformedAssignmentError{Path: path, Line: lineNo, Text: content, Reason: reason}
		}
		set.Set(name, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", location(path, 0), err)
	}

	return set, inc, nil
}

func isIncludeLine(content string) bool {
	return strings.HasPrefix(content, "@use") || strings.HasPrefix(content, "@import")
}

// splitAssignment splits `$name: value;` (or `$name = value`) and returns a
// non-empty reason when the line is malformed.
func splitAssignment(content string, syntax Syntax) (string, string, string) {
	sep := ":"
	if syntax == SyntaxHypr {
		sep = "="
	}

	before, after, found := strings.Cut(content[1:], sep)
	if !found {
		return "", "", fmt.Sprintf("missing %q", sep)
	}

	name := strings.TrimSpace(before)
	if !nameRe.MatchString(name) {
		return "", "", fmt.Sprintf("invalid name %q", name)
	}

	value := after
	if syntax == SyntaxSCSS {
		// Anything after the terminating semicolon is a trailing comment.
		value, _, _ = strings.Cut(value, ";")
		value = strings.TrimSpace(value)
		value = strings.TrimSpace(strings.TrimSuffix(value, "!default"))
		value = strings.TrimSpace(strings.TrimSuffix(value, "!global"))
	} else {
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";"))
	}
	if value == "" {
		return "", "", "empty value"
	}

	return name, value, ""
}

// resolveInclude maps an include reference to an existing file in the
// including file's directory or one of its ancestors.
func resolveInclude(from string, inc include) (string, error) {
	dir := filepath.Dir(from)
	missing := &MissingIncludeError{Path: from, Line: inc.line, Include: inc.ref}

	for _, candidate := range includeCandidates(inc.ref) {
		p := candidate
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, candidate)
		}
		if !isAncestorOrSelf(filepath.Dir(p), dir) {
			missing.Reason = "must be a sibling or parent of the including file"
			return "", missing
		}
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}

	return "", missing
}

func includeCandidates(ref string) []string {
	if filepath.Ext(ref) != "" {
		return []string{ref}
	}
	partial := filepath.Join(filepath.Dir(ref), "_"+filepath.Base(ref)+SourceExt)
	return []string{ref + SourceExt, partial}
}

func isAncestorOrSelf(candidate, dir string) bool {
	rel, err := filepath.Rel(candidate, dir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// commentStripper removes `//`, `#` and `/* */` comments line by line,
// carrying block comment state across lines.
type commentStripper struct {
	inBlock bool
}

func (c *commentStripper) strip(line string, syntax Syntax) string {
	var b strings.Builder
	rest := line
	for rest != "" {
		if c.inBlock {
			_, after, found := strings.Cut(rest, "*/")
			if !found {
				rest = ""
				break
			}
			c.inBlock = false
			rest = after
			continue
		}
		before, after, found := strings.Cut(rest, "/*")
		b.WriteString(before)
		if !found {
			break
		}
		c.inBlock = true
		rest = after
	}

	content := strings.TrimSpace(b.String())
	switch {
	case strings.HasPrefix(content, "//"):
		return ""
	case syntax == SyntaxHypr && strings.HasPrefix(content, "#"):
		return ""
	}
	return content
}
