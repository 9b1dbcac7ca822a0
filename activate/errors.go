package activate

import (
	"errors"
	"fmt"
)

var (
	// ErrPointerSwitch means the active pointer could not be replaced. The
	// previous pointer target is still in place.
	ErrPointerSwitch = errors.New("pointer switch failed")

	// ErrEmit means an emitted config could not be written. The pointer has
	// been restored to its previous target.
	ErrEmit = errors.New("emit failed")

	// ErrRecompile means a downstream recompile step failed. The pointer and
	// the emitted files already reflect the new theme.
	ErrRecompile = errors.New("recompile failed")

	// ErrRecompileTimeout is reported alongside ErrRecompile when the
	// recompile step did not finish within the configured wait.
	ErrRecompileTimeout = errors.New("recompile timed out")

	// ErrNoActiveTheme means the pointer does not name any theme yet.
	ErrNoActiveTheme = errors.New("no active theme")
)

// ApplyError reports which stage of an activation failed, for which theme
// and, when known, which file.
type ApplyError struct {
	Stage Stage
	Theme string
	Path  string
	Err   error
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("%s theme %q", e.Stage, e.Theme)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ApplyError) Unwrap() error { return e.Err }

// StageOf returns the stage recorded in err, or StageIdle when err does not
// carry an ApplyError.
func StageOf(err error) Stage {
	var applyErr *ApplyError
	if errors.As(err, &applyErr) {
		return applyErr.Stage
	}
	return StageIdle
}
