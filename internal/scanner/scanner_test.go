package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestScanSimpleExpression(t *testing.T) {
	tokens := Scan("(1+2)")

	assert.Equal(t, []Kind{LParen, Num, Punct, Num, RParen}, kinds(tokens))
}

func TestScanSpansCoverSource(t *testing.T) {
	src := `let x = "hi" + 42`
	tokens := Scan(src)

	require.Len(t, tokens, 6)
	assert.Equal(t, Keyword, tokens[0].Kind)
	assert.Equal(t, "let", src[tokens[0].Start:tokens[0].End])
	assert.Equal(t, Ident, tokens[1].Kind)
	assert.Equal(t, "x", src[tokens[1].Start:tokens[1].End])
	assert.Equal(t, Str, tokens[3].Kind)
	assert.Equal(t, `"hi"`, src[tokens[3].Start:tokens[3].End])
	assert.Equal(t, Num, tokens[5].Kind)
	assert.Equal(t, "42", src[tokens[5].Start:tokens[5].End])
}

func TestScanTemplateLiteral(t *testing.T) {
	tokens := Scan("`a ${b} c`")

	assert.Equal(t,
		[]Kind{BackQuote, Template, DollarBrace, Ident, RBrace, Template, BackQuote},
		kinds(tokens))
}

func TestScanNestedTemplate(t *testing.T) {
	tokens := Scan("`x ${ `y ${z}` } w`")

	assert.Equal(t,
		[]Kind{
			BackQuote, Template, DollarBrace,
			BackQuote, Template, DollarBrace, Ident, RBrace, BackQuote,
			RBrace, Template, BackQuote,
		},
		kinds(tokens))
}

func TestScanUnterminatedTemplate(t *testing.T) {
	tokens := Scan("`abc")

	assert.Equal(t, []Kind{BackQuote, Template}, kinds(tokens))
}

func TestScanObjectLiteralInsideInterpolation(t *testing.T) {
	// the inner braces must not close the interpolation early
	tokens := Scan("`${ {a: 1} }`")

	assert.Equal(t,
		[]Kind{BackQuote, DollarBrace, LBrace, Ident, Punct, Num, RBrace, RBrace, BackQuote},
		kinds(tokens))
}

func TestScanRegexVersusDivision(t *testing.T) {
	tokens := Scan("a = /ab+c/g")
	assert.Equal(t, []Kind{Ident, Punct, Regex}, kinds(tokens))

	tokens = Scan("1 / 2 / 3")
	assert.Equal(t, []Kind{Num, Punct, Num, Punct, Num}, kinds(tokens))

	tokens = Scan("x.match(/[/]/)")
	assert.Equal(t, []Kind{Ident, Punct, Ident, LParen, Regex, RParen}, kinds(tokens))
}

func TestScanComments(t *testing.T) {
	tokens := Scan("1 // trailing\n/* block */ 2")

	assert.Equal(t, []Kind{Num, Comment, Comment, Num}, kinds(tokens))
}

func TestScanRegexAfterComment(t *testing.T) {
	// comments do not count as the previous token for slash disambiguation
	tokens := Scan("/* c */ /x/")

	assert.Equal(t, []Kind{Comment, Regex}, kinds(tokens))
}

func TestScanNumericLiterals(t *testing.T) {
	tokens := Scan("0xff 1_000 1.5e-3 10n .5")

	assert.Equal(t, []Kind{Num, Num, Num, BigInt, Num}, kinds(tokens))
}

func TestScanWordClasses(t *testing.T) {
	tokens := Scan("return true null undefined async of")

	assert.Equal(t, []Kind{Keyword, BoolLit, NullLit, Ident, Ident, Ident}, kinds(tokens))
}

func TestScanUnterminatedString(t *testing.T) {
	tokens := Scan("'abc")

	require.Len(t, tokens, 1)
	assert.Equal(t, Str, tokens[0].Kind)
}

func TestScanIsDeterministic(t *testing.T) {
	src := "const f = (x) => `v=${x}` // done"

	assert.Equal(t, Scan(src), Scan(src))
}
