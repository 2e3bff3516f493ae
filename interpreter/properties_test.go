package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/runtime"
)

func TestArgumentsGating(t *testing.T) {
	expectNumber(t, "function f(a) { return arguments.length } f(1, 2, 3)", 3)
	expectNumber(t, "function f(arguments) { return arguments } f(7)", 7)
	expectNumber(t, "function f() { return (() => arguments.length)() } f(1, 2)", 2)
}

func TestEnvironmentTeardownOnThrow(t *testing.T) {
	a, interp := newRealm(t)
	runtime.DefineBuiltin(a.Global(), runtime.StringKey("depth"), runtime.NewObject(
		a.NewNativeFunction("depth", 0, func(a *runtime.Agent, _ *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
			return runtime.NewInt(int64(a.EnvironmentDepth())), nil
		})))

	before := a.EnvironmentDepth()
	_, err := interp.Eval(a, `function f(a = (() => { throw new Error("x") })()) {} f()`)
	exc, ok := runtime.AsException(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "Error: x", runtime.ErrorSummary(exc.Value.Object))
	assert.Equal(t, before, a.EnvironmentDepth())

	v, err := interp.Eval(a, `
		const start = depth();
		for (let i = 0; i < 3; i++) {
			try { f() } catch (e) {}
		}
		depth() === start
	`)
	require.NoError(t, err)
	assert.True(t, v.IsBoolean() && v.Bool)
}

func TestConstructOverride(t *testing.T) {
	expectBool(t, "function C() { return {marker: true} } new C().marker === true", true)
	expectBool(t, "function C() { this.own = 1; return 5 } const c = new C(); c instanceof C && c.own === 1", true)
	expectError(t, "class A {} class B extends A { constructor() { super(); return 1 } } new B()",
		"TypeError: Derived constructors may only return object or undefined")
}

func TestInstanceofFollowsLivePrototypeChain(t *testing.T) {
	expectString(t, `
		class A {}
		class B extends A {}
		const before = new B();
		const r = [before instanceof A];
		Object.setPrototypeOf(B.prototype, Object.prototype);
		r.push(new B() instanceof A, before instanceof A, before instanceof B);
		r.join()
	`, "true,false,false,true")
}
