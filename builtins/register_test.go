package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/builtins"
	"github.com/example/jscore/interpreter"
	"github.com/example/jscore/runtime"
)

func TestInstallDefinesGlobals(t *testing.T) {
	h := newHarness(t)
	names := []string{
		"Object", "Function", "Array", "String", "Number", "Boolean", "Symbol", "BigInt",
		"Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError", "URIError", "AggregateError",
		"RegExp", "Map", "Set", "WeakMap", "WeakSet", "Promise", "Proxy", "Reflect",
		"Math", "JSON", "console", "Date",
		"parseInt", "parseFloat", "isNaN", "isFinite", "eval",
		"encodeURI", "encodeURIComponent", "decodeURI", "decodeURIComponent", "escape", "unescape",
		"globalThis", "NaN", "Infinity", "undefined",
	}
	for _, name := range names {
		desc, ok, err := h.a.Global().GetOwnProperty(h.a, runtime.StringKey(name))
		require.NoError(t, err)
		if assert.True(t, ok, name) {
			assert.False(t, desc.Enumerable(), "%s should not be enumerable", name)
		}
	}
}

func TestInstallRecordsIntrinsics(t *testing.T) {
	h := newHarness(t)
	in := h.a.Intrinsics()
	for name, obj := range map[string]*runtime.Object{
		"Object":   in.Object,
		"Function": in.Function,
		"Array":    in.Array,
		"RegExp":   in.RegExp,
		"Promise":  in.Promise,
		"Error":    in.ErrorConstructors[runtime.ErrorGeneric],
	} {
		v, err := h.a.Global().Get(h.a, runtime.StringKey(name))
		require.NoError(t, err)
		assert.Same(t, obj, v.AsObject(), name)
	}
}

func TestRealmsAreIndependent(t *testing.T) {
	first := newHarness(t)
	_, err := first.run(`Array.prototype.extra = 1; globalThis.marker = true`)
	require.NoError(t, err)

	second := newHarness(t)
	assert.Equal(t, "undefined|false", second.str(`typeof [].extra + "|" + ("marker" in globalThis)`))
}

func TestInstallDefaultsToProcessStreams(t *testing.T) {
	interp := interpreter.New()
	a := runtime.NewAgent(runtime.WithExecutor(interp))
	defer a.Close()
	builtins.Install(a)
	v, err := interp.Eval(a, `typeof console.log`)
	require.NoError(t, err)
	assert.Equal(t, "function", v.String())
}

func TestInspect(t *testing.T) {
	h := newHarness(t)
	v, err := h.run(`({list: [1, 2], name: "n"})`)
	require.NoError(t, err)
	assert.Equal(t, "{ list: [ 1, 2 ], name: 'n' }", builtins.Inspect(v))
	assert.Equal(t, "plain", builtins.Inspect(runtime.NewString("plain")))
}
