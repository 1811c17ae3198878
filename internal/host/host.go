// Package host embeds a JavaScript engine and exposes it through the
// runtime inspection protocol the console speaks. It stands in for a full
// runtime process: one execution context, a cooperative timer scheduler,
// and the handful of Runtime.* methods the evaluation and completion paths
// need.
package host

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"tsrepl/internal/protocol"
	"tsrepl/internal/scanner"
)

var log = commonlog.GetLogger("tsrepl.host")

// internalsName is the hidden global carrying console-only state inside
// the context: last evaluation result, last thrown error, the value
// pretty-printer and the color-disable flag.
const internalsName = "__tsrepl"

type timer struct {
	id   int64
	due  time.Time
	fn   goja.Callable
	args []goja.Value
}

type Options struct {
	Stdout io.Writer // console output; defaults to os.Stdout
}

// Host owns the engine. It is not safe for concurrent use; all calls must
// come from the goroutine driving the console, which the bridge guarantees.
type Host struct {
	vm     *goja.Runtime
	stdout io.Writer

	contextID     int
	notifications []protocol.Notification

	objects      map[string]goja.Value
	nextObjectID int64

	lexicalNames map[string]bool

	timers      []*timer
	nextTimerID int64

	probeFn     goja.Callable
	ownNamesFn  goja.Callable
	syntaxErrFn goja.Callable
}

func New(opts Options) (*Host, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	h := &Host{
		vm:           goja.New(),
		stdout:       stdout,
		contextID:    1,
		objects:      make(map[string]goja.Value),
		lexicalNames: make(map[string]bool),
	}
	if err := h.setupGlobals(); err != nil {
		return nil, fmt.Errorf("host setup: %w", err)
	}
	return h, nil
}

func (h *Host) setupGlobals() error {
	vm := h.vm

	internals := vm.NewObject()
	if err := internals.Set("inspect", h.jsInspect); err != nil {
		return err
	}
	if err := internals.Set("noColor", color.NoColor); err != nil {
		return err
	}
	if err := vm.Set(internalsName, internals); err != nil {
		return err
	}

	console := vm.NewObject()
	for _, name := range []string{"log", "info", "debug", "warn", "error"} {
		if err := console.Set(name, h.jsConsoleLog); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	if err := vm.Set("setTimeout", h.jsSetTimeout); err != nil {
		return err
	}
	if err := vm.Set("clearTimeout", h.jsClearTimeout); err != nil {
		return err
	}

	if err := vm.Set("closed", false); err != nil {
		return err
	}
	if err := vm.Set("close", func(call goja.FunctionCall) goja.Value {
		if err := vm.GlobalObject().Set("closed", true); err != nil {
			panic(vm.NewTypeError("cannot set closed"))
		}
		return goja.Undefined()
	}); err != nil {
		return err
	}

	var err error
	h.probeFn, err = h.compileFunction(probeScript)
	if err != nil {
		return err
	}
	h.ownNamesFn, err = h.compileFunction(ownNamesScript)
	if err != nil {
		return err
	}
	h.syntaxErrFn, err = h.compileFunction(syntaxErrScript)
	return err
}

func (h *Host) compileFunction(src string) (goja.Callable, error) {
	v, err := h.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("helper script is not a function")
	}
	return fn, nil
}

// probeScript resolves a dotted property path without running user code:
// accessor properties abort the walk so tab completion can never trigger a
// getter.
const probeScript = `(function (path) {
	let cur = globalThis;
	for (const part of path.split(".")) {
		if (cur === null || cur === undefined) {
			throw new TypeError("cannot read properties of " + cur);
		}
		let obj = Object(cur);
		let found = false;
		let value = undefined;
		while (obj !== null) {
			const desc = Object.getOwnPropertyDescriptor(obj, part);
			if (desc !== undefined) {
				if (!("value" in desc)) {
					throw new EvalError("possible side effect");
				}
				value = desc.value;
				found = true;
				break;
			}
			obj = Object.getPrototypeOf(obj);
		}
		cur = found ? value : undefined;
	}
	return cur;
})`

const ownNamesScript = `(function (o) {
	return Object.getOwnPropertyNames(Object(o));
})`

const syntaxErrScript = `(function (msg) {
	const e = new SyntaxError(msg);
	e.stack = e.name + ": " + e.message;
	return e;
})`

// Post implements protocol.Channel.
func (h *Host) Post(method string, params any) (json.RawMessage, error) {
	log.Debugf("post %s", method)
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	var result any
	switch method {
	case "Runtime.enable":
		result, err = h.runtimeEnable()
	case "Runtime.evaluate":
		result, err = h.runtimeEvaluate(raw)
	case "Runtime.callFunctionOn":
		result, err = h.runtimeCallFunctionOn(raw)
	case "Runtime.getProperties":
		result, err = h.runtimeGetProperties(raw)
	case "Runtime.globalLexicalScopeNames":
		result, err = h.runtimeGlobalLexicalScopeNames(raw)
	default:
		return nil, &protocol.Error{Code: -32601, Message: "method not found: " + method}
	}
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return out, nil
}

// Notifications implements protocol.Channel, draining the buffered stream.
func (h *Host) Notifications() []protocol.Notification {
	out := h.notifications
	h.notifications = nil
	return out
}

func (h *Host) runtimeEnable() (any, error) {
	var created protocol.ExecutionContextCreated
	created.Context.ID = h.contextID
	created.Context.Origin = "tsrepl"
	created.Context.Name = "main"
	raw, err := json.Marshal(created)
	if err != nil {
		return nil, err
	}
	h.notifications = append(h.notifications, protocol.Notification{
		Method: "Runtime.executionContextCreated",
		Params: raw,
	})
	return struct{}{}, nil
}

// declSite is a lexical declaration at bracket depth zero: the keyword
// token and the declared name following it.
type declSite struct {
	keyword scanner.Token
	name    scanner.Token
}

// topLevelDeclarations finds let/const/class declarations at nesting
// depth zero. Tokenizing keeps string, comment and template contents out
// and sees declarations anywhere in a line, while the bracket depth
// excludes bindings scoped to a function or block body.
func topLevelDeclarations(src string) []declSite {
	toks := scanner.Scan(src)
	depth := 0
	var sites []declSite
	for i, tok := range toks {
		switch tok.Kind {
		case scanner.LParen, scanner.LBracket, scanner.LBrace, scanner.DollarBrace:
			depth++
		case scanner.RParen, scanner.RBracket, scanner.RBrace:
			if depth > 0 {
				depth--
			}
		case scanner.Keyword:
			if depth != 0 {
				continue
			}
			switch src[tok.Start:tok.End] {
			case "let", "const", "class":
			default:
				continue
			}
			if i+1 < len(toks) && toks[i+1].Kind == scanner.Ident {
				sites = append(sites, declSite{keyword: tok, name: toks[i+1]})
			}
		}
	}
	return sites
}

// rewriteForReplMode relaxes top-level let/const/class into var-backed
// declarations so a binding may be redeclared across evaluations, the way
// interactive consoles allow.
func rewriteForReplMode(src string, sites []declSite) string {
	var sb strings.Builder
	last := 0
	for _, site := range sites {
		sb.WriteString(src[last:site.keyword.Start])
		if src[site.keyword.Start:site.keyword.End] == "class" {
			name := src[site.name.Start:site.name.End]
			sb.WriteString("var ")
			sb.WriteString(name)
			sb.WriteString(" = class")
		} else {
			sb.WriteString("var")
		}
		last = site.keyword.End
	}
	sb.WriteString(src[last:])
	return sb.String()
}

func (h *Host) runtimeEvaluate(raw json.RawMessage) (any, error) {
	var params protocol.EvaluateParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &protocol.Error{Code: -32602, Message: err.Error()}
	}
	if params.ContextID != 0 && params.ContextID != h.contextID {
		return nil, &protocol.Error{Code: -32000, Message: "unknown execution context"}
	}

	if params.ThrowOnSideEffect {
		return h.evaluateSideEffectFree(params)
	}

	src := params.Expression
	var declared []string
	if params.ReplMode {
		sites := topLevelDeclarations(src)
		for _, site := range sites {
			declared = append(declared, src[site.name.Start:site.name.End])
		}
		src = rewriteForReplMode(src, sites)
	}

	v, err := h.vm.RunString(src)
	if err != nil {
		return h.evaluateError(err), nil
	}
	for _, name := range declared {
		h.lexicalNames[name] = true
	}
	return protocol.EvaluateResult{Result: h.remoteObject(v)}, nil
}

func (h *Host) evaluateError(err error) protocol.EvaluateResult {
	if ex, ok := err.(*goja.Exception); ok {
		ro := h.remoteObject(ex.Value())
		return protocol.EvaluateResult{
			Result:           ro,
			ExceptionDetails: &protocol.ExceptionDetails{Text: ex.Error(), Exception: &ro},
		}
	}
	// compile errors and interrupts have no thrown value; synthesize one
	v, serr := h.syntaxErrFn(goja.Undefined(), h.vm.ToValue(err.Error()))
	if serr != nil {
		v = h.vm.ToValue(err.Error())
	}
	ro := h.remoteObject(v)
	return protocol.EvaluateResult{
		Result:           ro,
		ExceptionDetails: &protocol.ExceptionDetails{Text: err.Error(), Exception: &ro},
	}
}

var identPathPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

func (h *Host) evaluateSideEffectFree(params protocol.EvaluateParams) (any, error) {
	if !identPathPattern.MatchString(params.Expression) {
		return h.sideEffectRefused(), nil
	}
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	stop := time.AfterFunc(timeout, func() {
		h.vm.Interrupt("evaluation timed out")
	})
	defer func() {
		stop.Stop()
		h.vm.ClearInterrupt()
	}()

	v, err := h.probeFn(goja.Undefined(), h.vm.ToValue(params.Expression))
	if err != nil {
		return h.evaluateError(err), nil
	}
	return protocol.EvaluateResult{Result: h.remoteObject(v)}, nil
}

func (h *Host) sideEffectRefused() protocol.EvaluateResult {
	ro := protocol.RemoteObject{
		Type:        "object",
		ClassName:   "EvalError",
		Description: "EvalError: possible side effect",
	}
	return protocol.EvaluateResult{
		Result:           ro,
		ExceptionDetails: &protocol.ExceptionDetails{Text: ro.Description, Exception: &ro},
	}
}

func (h *Host) runtimeCallFunctionOn(raw json.RawMessage) (any, error) {
	var params protocol.CallFunctionOnParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &protocol.Error{Code: -32602, Message: err.Error()}
	}
	fn, err := h.compileFunction("(" + params.FunctionDeclaration + ")")
	if err != nil {
		return nil, &protocol.Error{Code: -32000, Message: err.Error()}
	}
	args := make([]goja.Value, len(params.Arguments))
	for i, arg := range params.Arguments {
		args[i], err = h.resolveArgument(arg)
		if err != nil {
			return nil, err
		}
	}
	v, err := fn(h.vm.GlobalObject(), args...)
	if err != nil {
		if ex, ok := err.(*goja.Exception); ok {
			ro := h.remoteObject(ex.Value())
			return protocol.CallFunctionOnResult{
				Result:           ro,
				ExceptionDetails: &protocol.ExceptionDetails{Text: ex.Error(), Exception: &ro},
			}, nil
		}
		return nil, &protocol.Error{Code: -32000, Message: err.Error()}
	}
	return protocol.CallFunctionOnResult{Result: h.remoteObject(v)}, nil
}

func (h *Host) resolveArgument(arg protocol.CallArgument) (goja.Value, error) {
	if arg.ObjectID != "" {
		v, ok := h.objects[arg.ObjectID]
		if !ok {
			return nil, &protocol.Error{Code: -32000, Message: "unknown object id: " + arg.ObjectID}
		}
		return v, nil
	}
	if len(arg.Value) == 0 {
		return goja.Undefined(), nil
	}
	var exported any
	if err := json.Unmarshal(arg.Value, &exported); err != nil {
		return nil, &protocol.Error{Code: -32602, Message: err.Error()}
	}
	return h.vm.ToValue(exported), nil
}

func (h *Host) runtimeGetProperties(raw json.RawMessage) (any, error) {
	var params protocol.GetPropertiesParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &protocol.Error{Code: -32602, Message: err.Error()}
	}
	v, ok := h.objects[params.ObjectID]
	if !ok {
		return nil, &protocol.Error{Code: -32000, Message: "unknown object id: " + params.ObjectID}
	}
	namesVal, err := h.ownNamesFn(goja.Undefined(), v)
	if err != nil {
		return nil, &protocol.Error{Code: -32000, Message: err.Error()}
	}
	var names []string
	if err := h.vm.ExportTo(namesVal, &names); err != nil {
		return nil, &protocol.Error{Code: -32000, Message: err.Error()}
	}
	result := protocol.GetPropertiesResult{}
	for _, name := range names {
		result.Result = append(result.Result, protocol.PropertyDescriptor{Name: name})
	}
	return result, nil
}

func (h *Host) runtimeGlobalLexicalScopeNames(raw json.RawMessage) (any, error) {
	names := make([]string, 0, len(h.lexicalNames))
	for name := range h.lexicalNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return protocol.GlobalLexicalScopeNamesResult{Names: names}, nil
}

// remoteObject mirrors a value: primitives inline, everything else through
// the object table.
func (h *Host) remoteObject(v goja.Value) protocol.RemoteObject {
	if v == nil || goja.IsUndefined(v) {
		return protocol.RemoteObject{Type: "undefined"}
	}
	if goja.IsNull(v) {
		return protocol.RemoteObject{Type: "object", Subtype: "null", Value: json.RawMessage("null")}
	}
	if obj, ok := v.(*goja.Object); ok {
		h.nextObjectID++
		id := fmt.Sprintf("object:%d", h.nextObjectID)
		h.objects[id] = v
		ro := protocol.RemoteObject{
			Type:        "object",
			ClassName:   obj.ClassName(),
			Description: obj.ClassName(),
			ObjectID:    id,
		}
		if obj.ClassName() == "Function" {
			ro.Type = "function"
		}
		return ro
	}
	switch exported := v.Export().(type) {
	case bool:
		return protocol.RemoteObject{Type: "boolean", Value: mustMarshal(exported)}
	case string:
		return protocol.RemoteObject{Type: "string", Value: mustMarshal(exported)}
	case int64, float64:
		// NaN and the infinities have no JSON encoding; describe them
		raw, err := json.Marshal(exported)
		if err != nil {
			return protocol.RemoteObject{Type: "number", Description: v.String()}
		}
		return protocol.RemoteObject{Type: "number", Value: raw}
	default:
		return protocol.RemoteObject{Type: "object", Description: v.String()}
	}
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func (h *Host) jsConsoleLog(call goja.FunctionCall) goja.Value {
	line := ""
	for i, arg := range call.Arguments {
		if i > 0 {
			line += " "
		}
		if _, ok := arg.Export().(string); ok && !goja.IsNull(arg) {
			line += arg.String()
		} else {
			line += h.Inspect(arg, !color.NoColor)
		}
	}
	fmt.Fprintln(h.stdout, line)
	return goja.Undefined()
}

func (h *Host) jsInspect(call goja.FunctionCall) goja.Value {
	colors := false
	if opts, ok := call.Argument(1).(*goja.Object); ok {
		colors = opts.Get("colors").ToBoolean()
	}
	return h.vm.ToValue(h.Inspect(call.Argument(0), colors))
}

func (h *Host) jsSetTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(h.vm.NewTypeError("setTimeout requires a function"))
	}
	delay := call.Argument(1).ToInteger()
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = call.Arguments[2:]
	}
	h.nextTimerID++
	h.timers = append(h.timers, &timer{
		id:   h.nextTimerID,
		due:  time.Now().Add(time.Duration(delay) * time.Millisecond),
		fn:   fn,
		args: args,
	})
	return h.vm.ToValue(h.nextTimerID)
}

func (h *Host) jsClearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	for i, t := range h.timers {
		if t.id == id {
			h.timers = append(h.timers[:i], h.timers[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

// Step runs at most one timer callback due at the cutoff and reports
// whether it did. The caller drains with a fixed cutoff; a callback that
// reschedules itself lands after it, which keeps every drain finite.
func (h *Host) Step(now time.Time) bool {
	best := -1
	for i, t := range h.timers {
		if t.due.After(now) {
			continue
		}
		if best == -1 || t.due.Before(h.timers[best].due) {
			best = i
		}
	}
	if best == -1 {
		return false
	}
	t := h.timers[best]
	h.timers = append(h.timers[:best], h.timers[best+1:]...)
	if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
		fmt.Fprintf(h.stdout, "Uncaught %v\n", err)
	}
	return true
}
