// Package repl implements the interactive console: the evaluation session
// against a live execution context, the editor helper backing completion,
// validation and highlighting, and the loop that interleaves blocking line
// input with the host scheduler.
package repl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"tsrepl/internal/protocol"
	"tsrepl/internal/transpile"
)

var log = commonlog.GetLogger("tsrepl.session")

// Scheduler advances the host's cooperative event loop by one step,
// reporting whether anything actually ran. Only work due at the given
// cutoff may run; work scheduled after it waits for a later cutoff.
type Scheduler interface {
	Step(now time.Time) bool
}

// drainScheduler runs the work that was due when the drain started.
// Callbacks that reschedule themselves land after the cutoff, so a
// zero-delay timer chain cannot wedge the caller.
func drainScheduler(sched Scheduler) {
	now := time.Now()
	for sched.Step(now) {
	}
}

// prelude installs the auto-updating last-value and last-error bindings.
// Assigning either name severs the binding from then on; that override
// state lives inside the context, not here.
const prelude = `
Object.defineProperty(globalThis, "_", {
  configurable: true,
  get: () => __tsrepl.lastEvalResult,
  set: (value) => {
   Object.defineProperty(globalThis, "_", {
     value: value,
     writable: true,
     enumerable: true,
     configurable: true,
   });
   console.log("Last evaluation result is no longer saved to _.");
  },
});

Object.defineProperty(globalThis, "_error", {
  configurable: true,
  get: () => __tsrepl.lastThrownError,
  set: (value) => {
   Object.defineProperty(globalThis, "_error", {
     value: value,
     writable: true,
     enumerable: true,
     configurable: true,
   });

   console.log("Last thrown error is no longer saved to _error.");
  },
});
`

// Session drives one execution context through the inspection protocol.
// The context id is discovered once at initialization and never changes.
type Session struct {
	channel   protocol.Channel
	sched     Scheduler
	contextID int
}

// NewSession enables the runtime domain, learns the execution context id
// from the resulting notification, and runs the prelude. A prelude failure
// aborts startup.
func NewSession(channel protocol.Channel, sched Scheduler) (*Session, error) {
	s := &Session{channel: channel, sched: sched}

	if _, err := s.postMessage("Runtime.enable", nil); err != nil {
		return nil, fmt.Errorf("enable runtime: %w", err)
	}

	// Enabling the runtime domain announces every context the host knows
	// about; there is no default context, so grab the id from the stream.
	for _, note := range channel.Notifications() {
		if note.Method != "Runtime.executionContextCreated" {
			continue
		}
		var created protocol.ExecutionContextCreated
		if err := json.Unmarshal(note.Params, &created); err != nil {
			return nil, fmt.Errorf("context notification: %w", err)
		}
		s.contextID = created.Context.ID
	}
	if s.contextID == 0 {
		return nil, errors.New("host announced no execution context")
	}

	result, err := s.evaluate(prelude)
	if err != nil {
		return nil, fmt.Errorf("prelude: %w", err)
	}
	if result.ExceptionDetails != nil {
		return nil, fmt.Errorf("prelude: %s", result.ExceptionDetails.Text)
	}
	return s, nil
}

func (s *Session) ContextID() int {
	return s.contextID
}

// postMessage performs one protocol round trip, then gives the scheduler
// its cooperative turn so work surfaced by the call is not stranded until
// the next poll tick.
func (s *Session) postMessage(method string, params any) (json.RawMessage, error) {
	raw, err := s.channel.Post(method, params)
	drainScheduler(s.sched)
	return raw, err
}

// EvaluateLine runs one submitted line through the full pipeline and
// returns the string to print. Parse diagnostics are rendered inline;
// only transport failures come back as an error.
func (s *Session) EvaluateLine(line string) (string, error) {
	result, err := s.evaluateWithObjectWrapping(line)
	if err != nil {
		var diag *transpile.Diagnostic
		if errors.As(err, &diag) {
			return fmt.Sprintf("%s: %s at %d:%d",
				color.RedString("parse error"), diag.Message, diag.Line, diag.Col), nil
		}
		return "", err
	}

	if result.ExceptionDetails != nil {
		if err := s.setLastThrownError(result.Result); err != nil {
			return "", err
		}
	} else {
		if err := s.setLastEvalResult(result.Result); err != nil {
			return "", err
		}
	}

	value, err := s.inspectValue(result.Result)
	if err != nil {
		return "", err
	}
	if result.ExceptionDetails != nil {
		return "Uncaught " + value, nil
	}
	return value, nil
}

// evaluateWithObjectWrapping prefers reading a leading `{` as an object
// literal rather than a block statement, matching what interactive
// consoles conventionally do. If the wrapped form throws, the original
// line is retried once so genuine blocks still run.
func (s *Session) evaluateWithObjectWrapping(line string) (protocol.EvaluateResult, error) {
	trimmed := strings.TrimSpace(line)
	wrapped := line
	if strings.HasPrefix(trimmed, "{") && !strings.HasSuffix(trimmed, ";") {
		wrapped = "(" + line + ")"
	}

	result, err := s.evaluateTS(wrapped)
	if wrapped != line {
		// the wrapped form failing to parse or throwing means the line may
		// really be a block statement; retry it as written, once, and let
		// any remaining error reach the user
		var diag *transpile.Diagnostic
		if errors.As(err, &diag) || (err == nil && result.ExceptionDetails != nil) {
			return s.evaluateTS(line)
		}
	}
	return result, err
}

func (s *Session) evaluateTS(expression string) (protocol.EvaluateResult, error) {
	transpiled, err := transpile.Source(expression)
	if err != nil {
		return protocol.EvaluateResult{}, err
	}
	// the guard keeps a leading string literal from becoming a directive
	return s.evaluate("'use strict'; void 0;\n" + transpiled)
}

func (s *Session) evaluate(expression string) (protocol.EvaluateResult, error) {
	raw, err := s.postMessage("Runtime.evaluate", protocol.EvaluateParams{
		Expression: expression,
		ContextID:  s.contextID,
		ReplMode:   true,
	})
	if err != nil {
		return protocol.EvaluateResult{}, err
	}
	var result protocol.EvaluateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return protocol.EvaluateResult{}, fmt.Errorf("evaluate reply: %w", err)
	}
	return result, nil
}

// IsClosing reads the host's closed flag. It runs after every evaluation
// so an expression requesting close still completes first.
func (s *Session) IsClosing() (bool, error) {
	result, err := s.evaluate("(globalThis.closed)")
	if err != nil {
		return false, err
	}
	var closed bool
	if len(result.Result.Value) > 0 {
		if err := json.Unmarshal(result.Result.Value, &closed); err != nil {
			return false, fmt.Errorf("closed flag: %w", err)
		}
	}
	return closed, nil
}

func (s *Session) setLastThrownError(obj protocol.RemoteObject) error {
	_, err := s.postMessage("Runtime.callFunctionOn", protocol.CallFunctionOnParams{
		ExecutionContextID:  s.contextID,
		FunctionDeclaration: "function (object) { __tsrepl.lastThrownError = object; }",
		Arguments:           []protocol.CallArgument{protocol.ArgumentFor(obj)},
	})
	return err
}

func (s *Session) setLastEvalResult(obj protocol.RemoteObject) error {
	_, err := s.postMessage("Runtime.callFunctionOn", protocol.CallFunctionOnParams{
		ExecutionContextID:  s.contextID,
		FunctionDeclaration: "function (object) { __tsrepl.lastEvalResult = object; }",
		Arguments:           []protocol.CallArgument{protocol.ArgumentFor(obj)},
	})
	return err
}

// inspectValue asks the context to pretty-print a single value, colored
// unless colors are globally disabled.
func (s *Session) inspectValue(obj protocol.RemoteObject) (string, error) {
	raw, err := s.postMessage("Runtime.callFunctionOn", protocol.CallFunctionOnParams{
		ExecutionContextID:  s.contextID,
		FunctionDeclaration: "function (object) { return __tsrepl.inspect(object, { colors: !__tsrepl.noColor }); }",
		Arguments:           []protocol.CallArgument{protocol.ArgumentFor(obj)},
	})
	if err != nil {
		return "", err
	}
	var result protocol.CallFunctionOnResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("inspect reply: %w", err)
	}
	if result.ExceptionDetails != nil {
		log.Debugf("inspect threw: %s", result.ExceptionDetails.Text)
		return result.Result.Description, nil
	}
	var value string
	if len(result.Result.Value) > 0 {
		if err := json.Unmarshal(result.Result.Value, &value); err != nil {
			return "", fmt.Errorf("inspect reply: %w", err)
		}
	}
	return value, nil
}
