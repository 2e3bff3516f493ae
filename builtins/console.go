package builtins

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/example/jscore/runtime"
)

// console writes to the embedder's streams. Diagnostics on stderr are
// colored when stderr is a terminal.
type console struct {
	stdout, stderr io.Writer
	warn           *color.Color
	groups         int
	counts         map[string]int
	timers         map[string]time.Time
}

func createConsoleObject(a *runtime.Agent, stdout, stderr io.Writer) *runtime.Object {
	c := &console{
		stdout: stdout,
		stderr: stderr,
		warn:   color.New(color.FgYellow),
		counts: make(map[string]int),
		timers: make(map[string]time.Time),
	}
	if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.warn.EnableColor()
	} else {
		c.warn.DisableColor()
	}

	obj := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)
	setMethod(a, obj, "log", 0, c.printer(false))
	setMethod(a, obj, "info", 0, c.printer(false))
	setMethod(a, obj, "debug", 0, c.printer(false))
	setMethod(a, obj, "error", 0, c.printer(true))
	setMethod(a, obj, "warn", 0, c.printer(true))
	setMethod(a, obj, "assert", 0, c.assert)
	setMethod(a, obj, "count", 0, c.count)
	setMethod(a, obj, "countReset", 0, c.countReset)
	setMethod(a, obj, "group", 0, c.group)
	setMethod(a, obj, "groupEnd", 0, c.groupEnd)
	setMethod(a, obj, "time", 0, c.time)
	setMethod(a, obj, "timeEnd", 0, c.timeEnd)
	setToStringTag(obj, "console")
	return obj
}

func (c *console) write(toStderr bool, line string) {
	if c.groups > 0 {
		pad := strings.Repeat("  ", c.groups)
		line = pad + strings.ReplaceAll(line, "\n", "\n"+pad)
	}
	if toStderr {
		c.warn.Fprintln(c.stderr, line)
		return
	}
	fmt.Fprintln(c.stdout, line)
}

func (c *console) printer(toStderr bool) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		c.write(toStderr, formatArgs(args))
		return runtime.Undefined, nil
	}
}

func (c *console) assert(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if argAt(args, 0).ToBoolean() {
		return runtime.Undefined, nil
	}
	msg := "Assertion failed"
	if len(args) > 1 {
		msg += ": " + formatArgs(args[1:])
	}
	c.write(true, msg)
	return runtime.Undefined, nil
}

func labelArg(a *runtime.Agent, args []*runtime.Value) (string, error) {
	if l := argAt(args, 0); !l.IsUndefined() {
		return l.ToString(a)
	}
	return "default", nil
}

func (c *console) count(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	label, err := labelArg(a, args)
	if err != nil {
		return nil, err
	}
	c.counts[label]++
	c.write(false, label+": "+strconv.Itoa(c.counts[label]))
	return runtime.Undefined, nil
}

func (c *console) countReset(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	label, err := labelArg(a, args)
	if err != nil {
		return nil, err
	}
	delete(c.counts, label)
	return runtime.Undefined, nil
}

func (c *console) group(_ *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if len(args) > 0 {
		c.write(false, formatArgs(args))
	}
	c.groups++
	return runtime.Undefined, nil
}

func (c *console) groupEnd(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
	if c.groups > 0 {
		c.groups--
	}
	return runtime.Undefined, nil
}

func (c *console) time(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	label, err := labelArg(a, args)
	if err != nil {
		return nil, err
	}
	c.timers[label] = time.Now()
	return runtime.Undefined, nil
}

func (c *console) timeEnd(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	label, err := labelArg(a, args)
	if err != nil {
		return nil, err
	}
	start, ok := c.timers[label]
	if !ok {
		c.write(true, fmt.Sprintf("Timer '%s' does not exist", label))
		return runtime.Undefined, nil
	}
	delete(c.timers, label)
	c.write(false, fmt.Sprintf("%s: %.3fms", label, float64(time.Since(start).Microseconds())/1000))
	return runtime.Undefined, nil
}

func formatArgs(args []*runtime.Value) string {
	parts := make([]string, len(args))
	for i, v := range args {
		if v.IsString() {
			parts[i] = v.Str
			continue
		}
		parts[i] = Inspect(v)
	}
	return strings.Join(parts, " ")
}

// Inspect renders a value the way console.log shows it. It reads stored
// property slots directly and never runs getters or proxy traps.
func Inspect(v *runtime.Value) string {
	p := inspector{seen: make(map[*runtime.Object]bool)}
	return p.value(v, 0)
}

const inspectDepth = 2

type inspector struct {
	seen map[*runtime.Object]bool
}

func (p *inspector) value(v *runtime.Value, depth int) string {
	switch {
	case v.IsString():
		if depth == 0 {
			return v.Str
		}
		return "'" + strings.ReplaceAll(v.Str, "'", `\'`) + "'"
	case v.IsBigInt():
		return v.BigInt.String() + "n"
	case v.IsObject():
		return p.object(v.Object, depth)
	}
	return v.String()
}

func (p *inspector) object(o *runtime.Object, depth int) string {
	switch o.Kind() {
	case runtime.KindFunction, runtime.KindBoundFunction:
		name, err := runtime.FunctionName(o)
		if err != nil {
			return "[Function]"
		}
		if fd, ok := o.Data().(*runtime.FunctionData); ok && fd.Code != nil && fd.Code.ClassConstructor {
			return "[class " + name + "]"
		}
		if name == "" {
			return "[Function (anonymous)]"
		}
		return "[Function: " + name + "]"
	case runtime.KindError:
		return runtime.ErrorSummary(o)
	case runtime.KindProxy:
		return "[Proxy]"
	case runtime.KindPromise:
		state, result, _ := runtime.PromiseStateOf(o)
		if state == runtime.PromisePending {
			return "Promise { <pending> }"
		}
		inner := p.value(result, depth+1)
		if state == runtime.PromiseRejected {
			inner = "<rejected> " + inner
		}
		return "Promise { " + inner + " }"
	case runtime.KindString, runtime.KindNumber, runtime.KindBoolean, runtime.KindSymbol, runtime.KindBigInt:
		inner := o.Data().(*runtime.PrimitiveData).Value
		return "[" + o.Kind().String() + ": " + p.value(inner, 1) + "]"
	case runtime.KindDate:
		return dateToISO(o.Data().(*runtime.PrimitiveData).Value.Float())
	case runtime.KindRegExp:
		if rd, ok := o.Data().(*regexpData); ok {
			return "/" + rd.source + "/" + rd.flags
		}
	}
	if p.seen[o] {
		return "[Circular]"
	}
	if depth > inspectDepth {
		if o.IsArray() {
			return "[Array]"
		}
		return "[Object]"
	}
	p.seen[o] = true
	defer delete(p.seen, o)

	ref, err := o.TryBorrow()
	if err != nil {
		return "[" + o.Class() + "]"
	}
	defer ref.Release()

	var parts []string
	open, close := "{", "}"
	prefix := ""
	if m, ok := runtime.HostValue[*mapData](o); ok {
		prefix = fmt.Sprintf("Map(%d) ", m.size)
		_ = m.forEach(func(e *collectionEntry) error {
			parts = append(parts, p.value(e.key, depth+1)+" => "+p.value(e.value, depth+1))
			return nil
		})
	} else if s, ok := runtime.HostValue[*setData](o); ok {
		prefix = fmt.Sprintf("Set(%d) ", s.size)
		_ = s.forEach(func(e *collectionEntry) error {
			parts = append(parts, p.value(e.key, depth+1))
			return nil
		})
	}
	if o.IsArray() {
		open, close = "[", "]"
		var n uint32
		if lp, ok := ref.Property(runtime.StringKey("length")); ok {
			n = uint32(lp.Value.Float())
		}
		holes := 0
		flush := func() {
			if holes > 0 {
				parts = append(parts, fmt.Sprintf("<%d empty item%s>", holes, plural(holes)))
				holes = 0
			}
		}
		for i := uint32(0); i < n && len(parts) < 100; i++ {
			prop, ok := ref.Property(runtime.IndexKey(i))
			if !ok {
				holes++
				continue
			}
			flush()
			parts = append(parts, p.slot(prop, depth))
		}
		flush()
	}
	for _, k := range ref.Keys() {
		if k.IsSymbol() && k.Symbol().IsPrivate() {
			continue
		}
		if _, isIndex := k.ArrayIndex(); isIndex && o.IsArray() {
			continue
		}
		if !k.IsSymbol() && k.Name() == "length" && o.IsArray() {
			continue
		}
		prop, _ := ref.Property(k)
		if !prop.Enumerable {
			continue
		}
		parts = append(parts, inspectKey(k)+": "+p.slot(prop, depth))
	}
	if tag, ok := classTag(o); ok && prefix == "" {
		prefix = tag + " "
	}
	if len(parts) == 0 {
		return prefix + open + close
	}
	return prefix + open + " " + strings.Join(parts, ", ") + " " + close
}

func (p *inspector) slot(prop runtime.Property, depth int) string {
	if prop.IsAccessor {
		switch {
		case prop.Getter != nil && prop.Setter != nil:
			return "[Getter/Setter]"
		case prop.Getter != nil:
			return "[Getter]"
		}
		return "[Setter]"
	}
	return p.value(prop.Value, depth+1)
}

// classTag names instances of user classes and null-prototype objects.
func classTag(o *runtime.Object) (string, bool) {
	if o.Kind() != runtime.KindOrdinary {
		return "", false
	}
	ref, err := o.TryBorrow()
	if err != nil {
		return "", false
	}
	proto := ref.Prototype()
	ref.Release()
	if proto == nil {
		return "[Object: null prototype]", true
	}
	pref, err := proto.TryBorrow()
	if err != nil {
		return "", false
	}
	defer pref.Release()
	ctor, ok := pref.Property(runtime.StringKey("constructor"))
	if !ok || ctor.IsAccessor || !ctor.Value.IsObject() {
		return "", false
	}
	name, err := runtime.FunctionName(ctor.Value.Object)
	if err != nil || name == "" || name == "Object" {
		return "", false
	}
	return name, true
}

func inspectKey(k runtime.PropertyKey) string {
	if k.IsSymbol() {
		return "[" + k.Symbol().String() + "]"
	}
	name := k.Name()
	if isIdentifierName(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", `\'`) + "'"
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
