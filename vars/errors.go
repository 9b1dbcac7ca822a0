package vars

import (
	"errors"
	"fmt"
)

var (
	// ErrIncludeDepth is returned when an include appears where only flat
	// assignments are allowed: inside an included base file, or in an
	// emitted file being decoded.
	ErrIncludeDepth = errors.New("include nested deeper than one level")

	// ErrMultipleIncludes is returned when a file has more than one include line.
	ErrMultipleIncludes = errors.New("more than one include directive")

	// ErrMalformedInclude is returned for an @use/@import line without a quoted path.
	ErrMalformedInclude = errors.New("malformed include directive")

	// ErrNoVariables is returned when a resolved theme defines nothing.
	ErrNoVariables = errors.New("no variables defined")
)

// MissingIncludeError reports an include that does not resolve to a file
// next to, or above, the including file.
type MissingIncludeError struct {
	Path    string
	Line    int
	Include string
	Reason  string
}

func (e *MissingIncludeError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "file not found"
	}
	return fmt.Sprintf("%s: include %q: %s", location(e.Path, e.Line), e.Include, reason)
}

// MalformedAssignmentError reports a variable line that cannot be split
// into a name and a value.
type MalformedAssignmentError struct {
	Path   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedAssignmentError) Error() string {
	return fmt.Sprintf("%s: malformed assignment %q: %s", location(e.Path, e.Line), e.Text, e.Reason)
}

func location(path string, line int) string {
	if path == "" {
		path = "<input>"
	}
	if line <= 0 {
		return path
	}
	return fmt.Sprintf("%s:%d", path, line)
}
