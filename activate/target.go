package activate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"themeplane/emit"
)

// EmittedPlaceholder is replaced by the emitted file path in Command argv.
const EmittedPlaceholder = "{emitted}"

// RecompileFunc turns an emitted config into the artifact a consumer loads.
type RecompileFunc func(ctx context.Context, emittedPath string) error

// Target is one downstream consumer: where its config goes, how it is
// rendered and, optionally, how it is recompiled afterwards.
type Target struct {
	Name      string
	Path      string
	Emit      emit.Func
	Recompile RecompileFunc
}

// Command returns a RecompileFunc running argv. Every occurrence of
// EmittedPlaceholder in argv is replaced with the emitted path. Stderr of a
// failing command is included in the error.
func Command(argv ...string) RecompileFunc {
	argv = append([]string(nil), argv...)
	return func(ctx context.Context, emittedPath string) error {
		if len(argv) == 0 || argv[0] == "" {
			return errors.New("empty recompile command")
		}

		args := make([]string, len(argv))
		for i, arg := range argv {
			args[i] = strings.ReplaceAll(arg, EmittedPlaceholder, emittedPath)
		}

		// Cancelling the caller must not kill a step half way through.
		cmd := exec.CommandContext(context.WithoutCancel(ctx), args[0], args[1:]...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", args[0], err, msg)
			}
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	}
}
