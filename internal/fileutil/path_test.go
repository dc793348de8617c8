package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes.txt"), got)
}

func TestExpandPathBareTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)
}

func TestExpandPathEnvVar(t *testing.T) {
	t.Setenv("RECIPE_TOOL_TEST_DIR", "/tmp/xyz")
	got, err := ExpandPath("$RECIPE_TOOL_TEST_DIR/out.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/tmp/xyz/out.txt"), got)
}

func TestExpandPathEmpty(t *testing.T) {
	got, err := ExpandPath("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExpandPaths(t *testing.T) {
	got, err := ExpandPaths([]string{"a/b", "c/../d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "d"}, got)
}
