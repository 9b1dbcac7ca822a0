package activate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandSubstitutesEmittedPath(t *testing.T) {
	dir := t.TempDir()
	emitted := filepath.Join(dir, "style.scss")
	compiled := filepath.Join(dir, "style.css")
	require.NoError(t, os.WriteFile(emitted, []byte("$fg: C;\n"), 0o644))

	err := Command("cp", EmittedPlaceholder, compiled)(context.Background(), emitted)
	require.NoError(t, err)

	b, err := os.ReadFile(compiled)
	require.NoError(t, err)
	assert.Equal(t, "$fg: C;\n", string(b))
}

func TestCommandIgnoresCallerCancellation(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "done")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Command("sh", "-c", "sleep 0.05; echo ok > "+out)(ctx, "")
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(b))
}

func TestCommandReportsStderr(t *testing.T) {
	err := Command("sh", "-c", "echo 'Undefined variable.' >&2; exit 65")(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable.")
	assert.Contains(t, err.Error(), "exit status 65")
}

func TestCommandEmpty(t *testing.T) {
	assert.Error(t, Command()(context.Background(), "x"))
}
