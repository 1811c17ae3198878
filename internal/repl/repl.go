package repl

import (
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"tsrepl/internal/version"
)

const exitHint = "exit using ctrl+d or close()"

// LineEditor is the editor surface the driver needs; *Editor implements it.
type LineEditor interface {
	lineReader
	AddHistoryEntry(entry string)
	SaveHistory() error
}

// Run drives the console until end of input, a close request, or a fatal
// error. Accepted input is validated for completeness before evaluation,
// so a line opening a bracket or template keeps the editor reading
// continuation lines.
func Run(session *Session, helper *EditorHelper, editor LineEditor, out io.Writer) error {
	fmt.Fprintf(out, "tsrepl %s\n", version.String())
	fmt.Fprintln(out, exitHint)

	buffer := ""
loop:
	for {
		prompt := "> "
		if buffer != "" {
			prompt = "  "
		}
		line, err := readLineAndPoll(session, helper, editor, prompt)
		switch {
		case err == nil:
			if buffer == "" {
				buffer = line
			} else {
				buffer += "\n" + line
			}
			verdict, message := helper.Validate(buffer)
			if verdict == Incomplete {
				continue
			}
			input := buffer
			buffer = ""
			if verdict == Invalid {
				fmt.Fprintln(out, message)
				continue
			}

			output, err := session.EvaluateLine(input)
			if err != nil {
				return err
			}

			// check close here rather than in the loop condition so an
			// evaluated call to close() behaves consistently; once closing,
			// neither output nor history is recorded for this line
			closing, err := session.IsClosing()
			if err != nil {
				return err
			}
			if closing {
				break loop
			}

			fmt.Fprintln(out, output)
			editor.AddHistoryEntry(input)
		case errors.Is(err, readline.ErrInterrupt):
			// the interrupted text is not a submission
			fmt.Fprintln(out, exitHint)
			buffer = ""
		case errors.Is(err, io.EOF):
			break loop
		default:
			fmt.Fprintf(out, "Error: %v\n", err)
			break loop
		}
	}

	return editor.SaveHistory()
}
