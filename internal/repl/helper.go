package repl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"tsrepl/internal/protocol"
	"tsrepl/internal/scanner"
)

// Verdict classifies a buffer under validation.
type Verdict int

const (
	// Valid submits the buffer. An unmatched closer is also Valid: the
	// evaluator's own parser produces the better diagnostic, so rejecting
	// early would only risk refusing input the host accepts.
	Valid Verdict = iota
	// Incomplete keeps the editor accepting continuation lines.
	Incomplete
	// Invalid reports a mismatched bracket pair.
	Invalid
)

type helperReply struct {
	result json.RawMessage
	err    error
}

type helperQuery struct {
	method string
	params any
	resp   chan helperReply
}

// EditorHelper provides completion, validation and highlighting to the
// line editor. Completion needs live object state, which it gets by
// posting protocol queries over a single-slot channel served by the
// bridge; the call blocks on the paired reply channel, so at most one
// query is ever outstanding.
type EditorHelper struct {
	contextID int
	queries   chan *helperQuery
}

func NewEditorHelper(contextID int) *EditorHelper {
	return &EditorHelper{
		contextID: contextID,
		queries:   make(chan *helperQuery, 1),
	}
}

func (h *EditorHelper) postMessage(method string, params any) (json.RawMessage, error) {
	q := &helperQuery{method: method, params: params, resp: make(chan helperReply, 1)}
	h.queries <- q
	reply := <-q.resp
	return reply.result, reply.err
}

// isWordBoundary treats `.` as part of a word so a dotted property chain
// completes as one expression.
func isWordBoundary(r rune) bool {
	if r == '.' {
		return false
	}
	return unicode.IsSpace(r) || isASCIIPunct(r)
}

func isASCIIPunct(r rune) bool {
	return (r >= '!' && r <= '/') || (r >= ':' && r <= '@') ||
		(r >= '[' && r <= '`') || (r >= '{' && r <= '~')
}

// exprAtCursor extracts the run of non-boundary characters touching the
// cursor.
func exprAtCursor(line []rune, pos int) string {
	start := pos
	for start > 0 && !isWordBoundary(line[start-1]) {
		start--
	}
	end := pos
	for end < len(line) && !isWordBoundary(line[end]) {
		end++
	}
	return string(line[start:end])
}

// Complete returns the replacement start (in runes) and the candidate
// list for the cursor position. Probe failures yield no candidates;
// completion is advisory and never surfaces errors.
func (h *EditorHelper) Complete(line string, pos int) (int, []string) {
	runes := []rune(line)
	if pos > len(runes) {
		pos = len(runes)
	}
	expr := exprAtCursor(runes, pos)

	// `obj.prop` completes against the object's own properties
	if idx := strings.LastIndex(expr, "."); idx >= 0 {
		subExpr, propName := expr[:idx], expr[idx+1:]
		var candidates []string
		for _, name := range h.expressionPropertyNames(subExpr) {
			if strings.HasPrefix(name, propName) && !strings.HasPrefix(name, "Symbol(") {
				candidates = append(candidates, name)
			}
		}
		return pos - len([]rune(propName)), candidates
	}

	// otherwise combine global object properties and lexical declarations
	names := h.expressionPropertyNames("globalThis")
	names = append(names, h.globalLexicalScopeNames()...)
	var candidates []string
	for _, name := range names {
		if strings.HasPrefix(name, expr) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)
	candidates = dedupSorted(candidates)
	return pos - len([]rune(expr)), candidates
}

func dedupSorted(names []string) []string {
	out := names[:0]
	for i, name := range names {
		if i == 0 || name != names[i-1] {
			out = append(out, name)
		}
	}
	return out
}

func (h *EditorHelper) globalLexicalScopeNames() []string {
	raw, err := h.postMessage("Runtime.globalLexicalScopeNames",
		protocol.GlobalLexicalScopeNamesParams{ExecutionContextID: h.contextID})
	if err != nil {
		return nil
	}
	var result protocol.GlobalLexicalScopeNamesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result.Names
}

// expressionPropertyNames evaluates expr without side effects and lists
// the resulting object's own property names.
func (h *EditorHelper) expressionPropertyNames(expr string) []string {
	raw, err := h.postMessage("Runtime.evaluate", protocol.EvaluateParams{
		ContextID:         h.contextID,
		Expression:        expr,
		ThrowOnSideEffect: true,
		Timeout:           200,
	})
	if err != nil {
		return nil
	}
	var evaluated protocol.EvaluateResult
	if err := json.Unmarshal(raw, &evaluated); err != nil {
		return nil
	}
	if evaluated.ExceptionDetails != nil || evaluated.Result.ObjectID == "" {
		return nil
	}

	raw, err = h.postMessage("Runtime.getProperties", protocol.GetPropertiesParams{
		ObjectID:      evaluated.Result.ObjectID,
		OwnProperties: true,
	})
	if err != nil {
		return nil
	}
	var props protocol.GetPropertiesResult
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil
	}
	names := make([]string, 0, len(props.Result))
	for _, p := range props.Result {
		names = append(names, p.Name)
	}
	return names
}

// Validate tokenizes the whole buffer and tracks bracket and template
// nesting to decide whether the editor should keep accepting lines.
func (h *EditorHelper) Validate(input string) (Verdict, string) {
	var stack []scanner.Kind
	inTemplate := false

	for _, tok := range scanner.Scan(input) {
		switch tok.Kind {
		case scanner.BackQuote:
			inTemplate = !inTemplate
		case scanner.LParen, scanner.LBracket, scanner.LBrace, scanner.DollarBrace:
			stack = append(stack, tok.Kind)
		case scanner.RParen, scanner.RBracket, scanner.RBrace:
			if len(stack) == 0 {
				// unpaired, but the evaluator's parser owns that diagnostic
				return Valid, ""
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !pairMatches(open, tok.Kind) {
				return Invalid, fmt.Sprintf("Mismatched pairs: %s is not properly closed", open)
			}
		}
	}

	if len(stack) > 0 || inTemplate {
		return Incomplete, ""
	}
	return Valid, ""
}

func pairMatches(open, closer scanner.Kind) bool {
	switch open {
	case scanner.LParen:
		return closer == scanner.RParen
	case scanner.LBracket:
		return closer == scanner.RBracket
	case scanner.LBrace, scanner.DollarBrace:
		return closer == scanner.RBrace
	}
	return false
}

var (
	highlightStr     = color.New(color.FgGreen)
	highlightRegex   = color.New(color.FgRed)
	highlightNum     = color.New(color.FgYellow)
	highlightKeyword = color.New(color.FgCyan)
	highlightDim     = color.New(color.Faint)
)

// Highlight recolors each token's span in place. Coloring grows the byte
// length of earlier spans, so a running offset keeps later spans aligned.
func (h *EditorHelper) Highlight(line string) string {
	out := line
	offset := 0
	for _, tok := range scanner.Scan(line) {
		span := line[tok.Start:tok.End]
		colored := colorToken(tok.Kind, span)
		if colored == span {
			continue
		}
		out = out[:tok.Start+offset] + colored + out[tok.End+offset:]
		offset += len(colored) - len(span)
	}
	return out
}

func colorToken(kind scanner.Kind, text string) string {
	switch kind {
	case scanner.Str, scanner.Template, scanner.BackQuote:
		return highlightStr.Sprint(text)
	case scanner.Regex:
		return highlightRegex.Sprint(text)
	case scanner.Num, scanner.BigInt, scanner.BoolLit, scanner.NullLit:
		return highlightNum.Sprint(text)
	case scanner.Keyword:
		return highlightKeyword.Sprint(text)
	case scanner.Comment:
		return highlightDim.Sprint(text)
	case scanner.Ident:
		switch text {
		case "undefined":
			return highlightDim.Sprint(text)
		case "Infinity", "NaN":
			return highlightNum.Sprint(text)
		case "async", "of":
			return highlightKeyword.Sprint(text)
		}
	}
	return text
}

// Do implements readline.AutoCompleter, returning each candidate's
// remaining suffix past the typed prefix.
func (h *EditorHelper) Do(line []rune, pos int) ([][]rune, int) {
	start, candidates := h.Complete(string(line), pos)
	length := pos - start
	if length < 0 {
		return nil, 0
	}
	suffixes := make([][]rune, 0, len(candidates))
	for _, candidate := range candidates {
		runes := []rune(candidate)
		if len(runes) < length {
			continue
		}
		suffixes = append(suffixes, runes[length:])
	}
	return suffixes, length
}

// Paint implements readline.Painter with live syntax coloring.
func (h *EditorHelper) Paint(line []rune, _ int) []rune {
	return []rune(h.Highlight(string(line)))
}
