package repl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T, historyPath string) *Editor {
	t.Helper()
	editor, err := NewEditor(NewEditorHelper(1), historyPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = editor.Close() })
	return editor
}

func TestEditorHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsrepl", "history")

	editor := newTestEditor(t, path)
	editor.AddHistoryEntry("first")
	editor.AddHistoryEntry("second")
	require.NoError(t, editor.SaveHistory())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	reopened := newTestEditor(t, path)
	assert.Equal(t, []string{"first", "second"}, reopened.entries)

	reopened.AddHistoryEntry("third")
	require.NoError(t, reopened.SaveHistory())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\n", string(data))
}

func TestEditorMissingHistoryFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written")

	editor := newTestEditor(t, path)
	assert.Empty(t, editor.entries)
}

func TestEditorWithoutHistoryPathPersistsNothing(t *testing.T) {
	editor := newTestEditor(t, "")
	editor.AddHistoryEntry("ephemeral")
	require.NoError(t, editor.SaveHistory())
}
