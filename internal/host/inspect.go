package host

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/fatih/color"
)

var (
	strColor     = color.New(color.FgGreen)
	numColor     = color.New(color.FgYellow)
	keyColor     = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
	regexpColor  = color.New(color.FgRed)
	dateColor    = color.New(color.FgMagenta)
	maxDepth     = 4
	maxArrayShow = 100
)

func paint(c *color.Color, s string, colors bool) string {
	if !colors {
		return s
	}
	return c.Sprint(s)
}

// Inspect renders a value for display at the prompt. Strings are quoted;
// console output bypasses this for top-level strings.
func (h *Host) Inspect(v goja.Value, colors bool) string {
	return h.inspect(v, colors, 0, make(map[*goja.Object]bool))
}

func (h *Host) inspect(v goja.Value, colors bool, depth int, seen map[*goja.Object]bool) string {
	if v == nil || goja.IsUndefined(v) {
		return paint(dimColor, "undefined", colors)
	}
	if goja.IsNull(v) {
		return paint(dimColor, "null", colors)
	}
	if obj, ok := v.(*goja.Object); ok {
		return h.inspectObject(obj, colors, depth, seen)
	}
	switch exported := v.Export().(type) {
	case bool:
		return paint(numColor, v.String(), colors)
	case string:
		return paint(strColor, strconv.Quote(exported), colors)
	case *big.Int:
		return paint(numColor, exported.String()+"n", colors)
	default:
		// the remaining primitives are all numeric
		return paint(numColor, v.String(), colors)
	}
}

func (h *Host) inspectObject(obj *goja.Object, colors bool, depth int, seen map[*goja.Object]bool) string {
	if seen[obj] {
		return paint(dimColor, "[Circular]", colors)
	}
	seen[obj] = true
	defer delete(seen, obj)

	switch obj.ClassName() {
	case "Function":
		name := obj.Get("name")
		if name != nil && name.String() != "" {
			return paint(keyColor, "[Function: "+name.String()+"]", colors)
		}
		return paint(keyColor, "[Function (anonymous)]", colors)
	case "Array":
		return h.inspectArray(obj, colors, depth, seen)
	case "RegExp":
		return paint(regexpColor, obj.String(), colors)
	case "Date":
		if fn, ok := goja.AssertFunction(obj.Get("toISOString")); ok {
			if iso, err := fn(obj); err == nil {
				return paint(dateColor, iso.String(), colors)
			}
		}
		return paint(dateColor, "Invalid Date", colors)
	case "Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError", "URIError":
		return h.inspectError(obj)
	}
	return h.inspectPlainObject(obj, colors, depth, seen)
}

func (h *Host) inspectError(obj *goja.Object) string {
	if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) && stack.String() != "" {
		return stack.String()
	}
	name := "Error"
	if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) {
		name = n.String()
	}
	if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) && msg.String() != "" {
		return name + ": " + msg.String()
	}
	return name
}

func (h *Host) inspectArray(obj *goja.Object, colors bool, depth int, seen map[*goja.Object]bool) string {
	if depth >= maxDepth {
		return paint(keyColor, "[Array]", colors)
	}
	length := int(obj.Get("length").ToInteger())
	if length == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteString("[ ")
	shown := length
	if shown > maxArrayShow {
		shown = maxArrayShow
	}
	for i := 0; i < shown; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(h.inspect(obj.Get(strconv.Itoa(i)), colors, depth+1, seen))
	}
	if length > shown {
		sb.WriteString(", ... ")
		sb.WriteString(strconv.Itoa(length - shown))
		sb.WriteString(" more items")
	}
	sb.WriteString(" ]")
	return sb.String()
}

func (h *Host) inspectPlainObject(obj *goja.Object, colors bool, depth int, seen map[*goja.Object]bool) string {
	if depth >= maxDepth {
		return paint(keyColor, "[Object]", colors)
	}
	keys := obj.Keys()
	if len(keys) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(h.inspect(obj.Get(key), colors, depth+1, seen))
	}
	sb.WriteString(" }")
	return sb.String()
}
