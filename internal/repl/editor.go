package repl

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// Editor wraps the interactive line editor. The blocking read runs on its
// own goroutine while history mutation happens on the driver's, so the
// instance is guarded by a mutex; the two never overlap in time but the
// lock keeps that discipline explicit.
type Editor struct {
	mu          sync.Mutex
	rl          *readline.Instance
	historyPath string
	entries     []string
}

// NewEditor builds the editor with the helper plugged in for completion
// and live coloring. History is loaded best-effort: a missing or
// unreadable file is not an error.
func NewEditor(helper *EditorHelper, historyPath string) (*Editor, error) {
	if historyPath != "" {
		// the editor appends as we go; make sure it has somewhere to write
		_ = os.MkdirAll(filepath.Dir(historyPath), 0o755)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		AutoComplete:           helper,
		Painter:                helper,
		HistoryFile:            historyPath,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
	})
	if err != nil {
		return nil, err
	}
	e := &Editor{rl: rl, historyPath: historyPath}
	e.loadHistory()
	return e, nil
}

func (e *Editor) loadHistory() {
	if e.historyPath == "" {
		return
	}
	data, err := os.ReadFile(e.historyPath)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			e.entries = append(e.entries, line)
		}
	}
}

// Readline blocks until a full line, an interrupt, or end of input.
func (e *Editor) Readline(prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rl.SetPrompt(prompt)
	return e.rl.Readline()
}

func (e *Editor) AddHistoryEntry(entry string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	_ = e.rl.SaveHistory(entry)
}

// SaveHistory persists every accepted line, newest last, creating the
// parent directory if needed. Called once at clean shutdown.
func (e *Editor) SaveHistory() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.historyPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.historyPath), 0o755); err != nil {
		return err
	}
	data := strings.Join(e.entries, "\n")
	if data != "" {
		data += "\n"
	}
	return os.WriteFile(e.historyPath, []byte(data), 0o600)
}

func (e *Editor) Close() error {
	return e.rl.Close()
}
