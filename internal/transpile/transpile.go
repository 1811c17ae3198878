// Package transpile turns a TypeScript snippet into plain JavaScript for
// the execution context. Parse failures come back as a *Diagnostic so the
// caller can render them inline instead of aborting.
package transpile

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Diagnostic is a structured parse failure with a 1-based source position.
type Diagnostic struct {
	Message string
	Line    int
	Col     int
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at %d:%d", d.Message, d.Line, d.Col)
}

// Source transpiles src. JSX is not supported in the interactive console,
// source maps are never emitted, and imports are kept even when only used
// for types so that their side effects still run.
func Source(src string) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:      api.LoaderTS,
		Sourcemap:   api.SourceMapNone,
		Target:      api.ESNext,
		Charset:     api.CharsetUTF8,
		TsconfigRaw: `{"compilerOptions":{"importsNotUsedAsValues":"preserve"}}`,
	})
	if len(result.Errors) > 0 {
		e := result.Errors[0]
		if e.Location != nil {
			// esbuild lines are 1-based but columns are 0-based
			return "", &Diagnostic{
				Message: e.Text,
				Line:    e.Location.Line,
				Col:     e.Location.Column + 1,
			}
		}
		return "", fmt.Errorf("transpile failed: %s", e.Text)
	}
	return string(result.Code), nil
}
