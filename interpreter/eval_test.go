package interpreter

import (
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/runtime"
)

func TestDirectEval(t *testing.T) {
	expectNumber(t, "function f() { eval('var hoisted = 4'); return hoisted } f()", 4)
	expectString(t, "function f() { eval('var inner = 1'); return typeof inner } f(); typeof inner", "undefined")
	expectString(t, "function f() { 'use strict'; eval('var kept = 1'); return typeof kept } f()", "undefined")
	expectString(t, "function f() { eval('\"use strict\"; var own = 1'); return typeof own } f()", "undefined")
	expectNumber(t, "function f(a) { return eval('a * 2') } f(21)", 42)
	expectBool(t, "const o = {m() { return eval('this') }}; o.m() === o", true)
	expectNumber(t, "let x = 1; { let x = 2; eval('x') }", 2)
	expectNumber(t, "eval('let scoped = 5; scoped')", 5)
	expectString(t, "eval('let scoped = 5'); typeof scoped", "undefined")
	expectNumber(t, "eval('1; if (true) { 2 }')", 2)
	expectUndefined(t, "eval()")
	expectError(t, "function f() { let clash; eval('var clash') } f()", "SyntaxError: Identifier 'clash' has already been declared")
	expectError(t, "let top = 1; eval('var top = 2')", "SyntaxError: Identifier 'top' has already been declared")
	expectError(t, "eval('throw new RangeError(\"inner\")')", "RangeError: inner")
}

func TestEvalDeclaredVarsAreDeletable(t *testing.T) {
	expectBool(t, "eval('var d = 1'); delete globalThis.d", true)
	expectBool(t, "var kept = 1; delete globalThis.kept", false)
}

func TestParseReportsSyntaxErrors(t *testing.T) {
	_, err := Parse("bad.js", "let = ;")
	require.Error(t, err)

	a, interp := newRealm(t)
	_, err = interp.Eval(a, "function (")
	exc, ok := runtime.AsException(err)
	require.True(t, ok, "expected a script exception, got %v", err)
	assert.True(t, strings.HasPrefix(runtime.ErrorSummary(exc.Value.Object), "SyntaxError: "))

	err = SyntaxError(a, errors.New("plain failure"))
	exc, ok = runtime.AsException(err)
	require.True(t, ok)
	assert.Equal(t, "SyntaxError: plain failure", runtime.ErrorSummary(exc.Value.Object))
}

func TestRunProgram(t *testing.T) {
	prog, err := Parse("prog.js", "var total = 0; for (const n of [1, 2, 3]) total += n; total")
	require.NoError(t, err)

	a, interp := newRealm(t)
	v, err := interp.RunProgram(a, prog)
	require.NoError(t, err)
	assert.Equal(t, float64(6), v.Float())

	// Running the same tree twice reuses cached function and scope data.
	v, err = interp.RunProgram(a, prog)
	require.NoError(t, err)
	assert.Equal(t, float64(6), v.Float())
}

func TestSetParserIsUsedForEverySource(t *testing.T) {
	a, interp := newRealm(t)
	var names []string
	interp.SetParser(func(name, source string) (*ast.Program, error) {
		names = append(names, name)
		return Parse(name, source)
	})

	_, err := interp.Eval(a, `eval("1"); (0, eval)("2"); new Function("a", "return a")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"<script>", "<eval>", "<eval>", "anonymous"}, names)

	interp.SetParser(nil)
	names = nil
	_, err = interp.Eval(a, `eval("3")`)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEvalScriptIsIndirect(t *testing.T) {
	a, interp := newRealm(t)
	v, err := interp.EvalScript(a, "var viaHost = 'yes'; viaHost")
	require.NoError(t, err)
	assert.Equal(t, "yes", v.String())

	v, err = interp.Eval(a, "typeof viaHost + '|' + delete globalThis.viaHost")
	require.NoError(t, err)
	assert.Equal(t, "string|true", v.String())
}
