package repl

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsrepl/internal/protocol"
)

// scriptedEditor feeds Run a fixed sequence of read results and records
// everything the driver hands back.
type scriptedEditor struct {
	script  []lineResult
	prompts []string
	history []string
	saved   bool
}

func (e *scriptedEditor) Readline(prompt string) (string, error) {
	e.prompts = append(e.prompts, prompt)
	if len(e.script) == 0 {
		return "", io.EOF
	}
	r := e.script[0]
	e.script = e.script[1:]
	return r.line, r.err
}

func (e *scriptedEditor) AddHistoryEntry(entry string) {
	e.history = append(e.history, entry)
}

func (e *scriptedEditor) SaveHistory() error {
	e.saved = true
	return nil
}

func runScript(t *testing.T, script ...lineResult) (*scriptedEditor, string) {
	t.Helper()
	session, _ := newTestSession(t)
	helper := NewEditorHelper(session.ContextID())
	editor := &scriptedEditor{script: script}
	var out bytes.Buffer
	require.NoError(t, Run(session, helper, editor, &out))
	return editor, out.String()
}

func TestRunEvaluatesAndRecordsHistory(t *testing.T) {
	editor, out := runScript(t, lineResult{line: "1+1"})

	assert.Contains(t, out, "tsrepl v")
	assert.Contains(t, out, exitHint)
	assert.Contains(t, out, "2\n")
	assert.Equal(t, []string{"1+1"}, editor.history)
	assert.True(t, editor.saved)
}

func TestRunCloseEndsLoopWithoutRecording(t *testing.T) {
	editor, out := runScript(t,
		lineResult{line: "close()"},
		lineResult{line: "unreached"},
	)

	// the closing line produces no output and never reaches history,
	// and nothing after it is read
	assert.NotContains(t, out, "undefined")
	assert.Empty(t, editor.history)
	assert.Len(t, editor.prompts, 1)
	assert.True(t, editor.saved)
}

func TestRunInterruptShowsHintAndContinues(t *testing.T) {
	editor, out := runScript(t,
		lineResult{err: readline.ErrInterrupt},
		lineResult{line: "1+1"},
	)

	assert.Equal(t, 2, strings.Count(out, exitHint))
	assert.Contains(t, out, "2\n")
	assert.Equal(t, []string{"1+1"}, editor.history)
}

func TestRunInterruptDiscardsPartialBuffer(t *testing.T) {
	editor, out := runScript(t,
		lineResult{line: "[1,"},
		lineResult{err: readline.ErrInterrupt},
		lineResult{line: "7"},
	)

	assert.Equal(t, []string{"> ", "  ", "> ", "> "}, editor.prompts)
	assert.Contains(t, out, "7\n")
	assert.Equal(t, []string{"7"}, editor.history)
}

func TestRunReadsContinuationLines(t *testing.T) {
	editor, out := runScript(t,
		lineResult{line: "[1,"},
		lineResult{line: "2]"},
	)

	assert.Equal(t, []string{"> ", "  ", "> "}, editor.prompts)
	assert.Contains(t, out, "[ 1, 2 ]")
	assert.Equal(t, []string{"[1,\n2]"}, editor.history)
}

func TestRunMismatchedInputDiscardedWithoutEvaluating(t *testing.T) {
	editor, out := runScript(t, lineResult{line: "(]"})

	assert.Contains(t, out, "Mismatched pairs: ( is not properly closed")
	assert.Empty(t, editor.history)
}

// queryingReader issues a helper query from inside the blocking read,
// the way completion does while the editor waits for input.
type queryingReader struct {
	helper *EditorHelper
	names  []string
}

func (r *queryingReader) Readline(string) (string, error) {
	raw, err := r.helper.postMessage("Runtime.globalLexicalScopeNames",
		protocol.GlobalLexicalScopeNamesParams{ExecutionContextID: r.helper.contextID})
	if err != nil {
		return "", err
	}
	var result protocol.GlobalLexicalScopeNamesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	r.names = result.Names
	return "done", nil
}

func TestReadLineAndPollServicesHelperQueries(t *testing.T) {
	session, _ := newTestSession(t)
	mustEvaluateLine(t, session, "let bridged = 1")

	helper := NewEditorHelper(session.ContextID())
	reader := &queryingReader{helper: helper}
	line, err := readLineAndPoll(session, helper, reader, "> ")

	require.NoError(t, err)
	assert.Equal(t, "done", line)
	assert.Contains(t, reader.names, "bridged")
}
