package repl

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBalancedInput(t *testing.T) {
	helper := NewEditorHelper(1)

	for _, input := range []string{
		"(1+2)",
		"{ a: 1 }",
		"const x = [1, 2, 3]",
		"`a ${b} c`",
		"x.match(/[(]/)", // brackets inside a regex do not count
		"\"(\"",          // nor inside a string
		"// (",           // nor inside a comment
		"",
	} {
		verdict, _ := helper.Validate(input)
		assert.Equal(t, Valid, verdict, "input %q", input)
	}
}

func TestValidateIncompleteInput(t *testing.T) {
	helper := NewEditorHelper(1)

	for _, input := range []string{
		"function f() {",
		"(1 +",
		"[1, 2,",
		"`an open template",
		"`a ${",
		"{ nested: { body: [",
	} {
		verdict, _ := helper.Validate(input)
		assert.Equal(t, Incomplete, verdict, "input %q", input)
	}
}

func TestValidateUnmatchedCloserIsDeferred(t *testing.T) {
	helper := NewEditorHelper(1)

	// unpaired closers are left for the evaluator's parser
	for _, input := range []string{")", "1 + 2)", "]"} {
		verdict, _ := helper.Validate(input)
		assert.Equal(t, Valid, verdict, "input %q", input)
	}
}

func TestValidateMismatchedPair(t *testing.T) {
	helper := NewEditorHelper(1)

	verdict, message := helper.Validate("(]")
	assert.Equal(t, Invalid, verdict)
	assert.Equal(t, "Mismatched pairs: ( is not properly closed", message)

	verdict, message = helper.Validate("[ } ")
	assert.Equal(t, Invalid, verdict)
	assert.Contains(t, message, "[")
}

func TestHighlightColorMapping(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	helper := NewEditorHelper(1)

	cases := []struct {
		input string
		want  string
	}{
		{`"str"`, highlightStr.Sprint(`"str"`)},
		{"`tpl`", highlightStr.Sprint("`") + highlightStr.Sprint("tpl") + highlightStr.Sprint("`")},
		{"42", highlightNum.Sprint("42")},
		{"42n", highlightNum.Sprint("42n")},
		{"true", highlightNum.Sprint("true")},
		{"null", highlightNum.Sprint("null")},
		{"return", highlightKeyword.Sprint("return")},
		{"undefined", highlightDim.Sprint("undefined")},
		{"NaN", highlightNum.Sprint("NaN")},
		{"Infinity", highlightNum.Sprint("Infinity")},
		{"async", highlightKeyword.Sprint("async")},
		{"of", highlightKeyword.Sprint("of")},
		{"someIdent", "someIdent"},
		{"// note", highlightDim.Sprint("// note")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, helper.Highlight(tc.input), "input %q", tc.input)
	}
}

func TestHighlightRegexLiteral(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	helper := NewEditorHelper(1)
	out := helper.Highlight("x = /ab/g")

	assert.Contains(t, out, highlightRegex.Sprint("/ab/g"))
}

func TestHighlightKeepsLaterSpansAligned(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	helper := NewEditorHelper(1)
	// every colored span grows the output; the trailing identifier must
	// still come through intact and unstyled
	out := helper.Highlight(`let x = "a" + tail`)

	assert.True(t, strings.HasSuffix(out, "tail"))
	assert.Contains(t, out, highlightStr.Sprint(`"a"`))
}

func TestHighlightIsPure(t *testing.T) {
	helper := NewEditorHelper(1)
	input := "const f = async (x) => `v=${x}` // done"

	first := helper.Highlight(input)
	second := helper.Highlight(input)

	assert.Equal(t, first, second)
}

func TestHighlightDisabledLeavesInputAlone(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	helper := NewEditorHelper(1)
	input := `return "str" + 42`

	assert.Equal(t, input, helper.Highlight(input))
}

func TestExprAtCursor(t *testing.T) {
	cases := []struct {
		line string
		pos  int
		want string
	}{
		{"foo.b", 5, "foo.b"},
		{"foo.bar.b", 9, "foo.bar.b"},
		{"1 + foo.b", 9, "foo.b"},
		{"foo.b + 1", 5, "foo.b"},
		{"foo", 1, "foo"},
		{"", 0, ""},
		{"say(word", 8, "word"},
	}
	for _, tc := range cases {
		got := exprAtCursor([]rune(tc.line), tc.pos)
		assert.Equal(t, tc.want, got, "line %q pos %d", tc.line, tc.pos)
	}
}

func TestDoTurnsCandidatesIntoSuffixes(t *testing.T) {
	session, _ := newTestSession(t)
	helper, done := serveHelper(session)
	defer close(done)

	mustEvaluateLine(t, session, "globalThis.foo = { bar: 1, baz: 2 }")

	suffixes, length := helper.Do([]rune("foo.b"), 5)
	require.Equal(t, 1, length)
	got := make([]string, len(suffixes))
	for i, s := range suffixes {
		got[i] = string(s)
	}
	assert.Equal(t, []string{"ar", "az"}, got)
}
