package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotdad/recipe-tool/internal/rcontext"
)

func TestWriteFilesInline(t *testing.T) {
	dir := t.TempDir()
	rc := rcontext.New(nil)

	s, err := NewWriteFiles(testDeps(), map[string]interface{}{
		"root": dir,
		"files": []interface{}{
			map[string]interface{}{"path": "out/a.txt", "content": "hello"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))

	got, err := os.ReadFile(filepath.Join(dir, "out/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestWriteFilesFromFilesKey(t *testing.T) {
	dir := t.TempDir()
	rc := rcontext.New(nil)
	rc.Set("generated", map[string]interface{}{
		"files": []interface{}{
			map[string]interface{}{"path": "b.txt", "content": "world"},
		},
	})

	s, err := NewWriteFiles(testDeps(), map[string]interface{}{"root": dir, "files_key": "generated"})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))

	got, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestWriteFilesSingleSpec(t *testing.T) {
	dir := t.TempDir()
	rc := rcontext.New(nil)
	rc.Set("generated", map[string]interface{}{"path": "c.txt", "content": "single"})

	s, err := NewWriteFiles(testDeps(), map[string]interface{}{"root": dir, "files_key": "generated"})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))

	got, err := os.ReadFile(filepath.Join(dir, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "single", string(got))
}

func TestWriteFilesRejectsMissingBoth(t *testing.T) {
	_, err := NewWriteFiles(testDeps(), map[string]interface{}{"root": "."})
	assert.Error(t, err)
}

func TestWriteFilesRejectsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	rc := rcontext.New(nil)
	s, err := NewWriteFiles(testDeps(), map[string]interface{}{
		"root": dir,
		"files": []interface{}{map[string]interface{}{"content": "x"}},
	})
	require.NoError(t, err)
	assert.Error(t, s.Execute(context.Background(), rc))
}
