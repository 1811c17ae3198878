package transpile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStripsTypeAnnotations(t *testing.T) {
	out, err := Source("let x: number = 5;")

	require.NoError(t, err)
	assert.Contains(t, out, "let x = 5")
	assert.NotContains(t, out, "number")
}

func TestSourcePassesPlainJavaScriptThrough(t *testing.T) {
	out, err := Source("1 + 1")

	require.NoError(t, err)
	assert.Contains(t, out, "1 + 1")
}

func TestSourceReportsParseDiagnostic(t *testing.T) {
	_, err := Source("const = 1")

	require.Error(t, err)
	var diag *Diagnostic
	require.True(t, errors.As(err, &diag))
	assert.Equal(t, 1, diag.Line)
	assert.NotEmpty(t, diag.Message)
}

func TestSourceDiagnosticColumnIsOneBased(t *testing.T) {
	_, err := Source("=1")

	require.Error(t, err)
	var diag *Diagnostic
	require.True(t, errors.As(err, &diag))
	assert.Equal(t, 1, diag.Line)
	assert.Equal(t, 1, diag.Col)
}

func TestDiagnosticErrorMentionsPosition(t *testing.T) {
	d := &Diagnostic{Message: "unexpected token", Line: 2, Col: 7}

	assert.True(t, strings.HasSuffix(d.Error(), "at 2:7"))
}
