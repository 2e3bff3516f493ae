package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalDeadZone(t *testing.T) {
	a := newTestAgent(t)
	env := NewDeclarativeEnvironment(a.GlobalEnv())
	env.CreateMutableBinding("x", BindingLet, false)

	_, err := env.GetIdentifier(a, "x", true)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "ReferenceError: Cannot access 'x' before initialization", ErrorSummary(exc.Value.Object))

	err = env.SetIdentifier(a, "x", NewInt(1), false)
	assert.True(t, IsCatchable(err), "assignment in the dead zone throws even in sloppy code")

	require.NoError(t, env.InitializeBinding(a, "x", NewInt(2)))
	v, err := env.GetIdentifier(a, "x", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.Int)
}

func TestConstAssignment(t *testing.T) {
	a := newTestAgent(t)
	env := NewDeclarativeEnvironment(nil)
	env.Declare("c", BindingConst, NewInt(1))

	err := env.SetMutableBinding(a, "c", NewInt(2), false)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError: Assignment to constant variable.", ErrorSummary(exc.Value.Object))

	env.CreateImmutableBinding("fnName", BindingFunction, false)
	require.NoError(t, env.InitializeBinding(a, "fnName", True))
	assert.NoError(t, env.SetMutableBinding(a, "fnName", False, false), "sloppy writes to a function name are ignored")
	assert.Error(t, env.SetMutableBinding(a, "fnName", False, true))
	b, _ := env.Lookup("fnName")
	assert.Same(t, True, b.Value)
}

func TestUnresolvableReferences(t *testing.T) {
	a := newTestAgent(t)
	env := NewDeclarativeEnvironment(a.GlobalEnv())

	_, err := env.GetIdentifier(a, "nope", false)
	assert.True(t, IsCatchable(err))

	assert.Error(t, env.SetIdentifier(a, "implicit", NewInt(1), true))
	require.NoError(t, env.SetIdentifier(a, "implicit", NewInt(1), false))
	v, err := a.Global().Get(a, StringKey("implicit"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.Int, "sloppy assignment creates a global property")
}

func TestShadowingResolvesInnermost(t *testing.T) {
	a := newTestAgent(t)
	outer := NewDeclarativeEnvironment(a.GlobalEnv())
	outer.Declare("x", BindingLet, NewString("outer"))
	inner := NewDeclarativeEnvironment(outer)
	inner.Declare("x", BindingLet, NewString("inner"))

	v, err := inner.GetIdentifier(a, "x", true)
	require.NoError(t, err)
	assert.Equal(t, "inner", v.Str)

	found, err := inner.Resolve(a, "x")
	require.NoError(t, err)
	assert.Same(t, inner, found)
	assert.Same(t, a.GlobalEnv(), inner.VarScope())
}

func TestWithEnvironmentHonoursUnscopables(t *testing.T) {
	a := newTestAgent(t)
	obj := a.NewPlainObject()
	require.NoError(t, CreateDataPropertyOrThrow(a, obj, StringKey("hidden"), True))
	require.NoError(t, CreateDataPropertyOrThrow(a, obj, StringKey("shown"), True))
	blocked := a.NewPlainObject()
	require.NoError(t, CreateDataPropertyOrThrow(a, blocked, StringKey("hidden"), True))
	require.NoError(t, CreateDataPropertyOrThrow(a, obj, SymbolKey(SymUnscopables), NewObject(blocked)))

	env := NewObjectEnvironment(obj, true, a.GlobalEnv())
	has, err := env.HasBinding(a, "shown")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = env.HasBinding(a, "hidden")
	require.NoError(t, err)
	assert.False(t, has)
	assert.Same(t, obj, env.WithBaseObject())
}

func TestThisBindingLifecycle(t *testing.T) {
	a := newTestAgent(t)
	fn := a.NewNativeFunction("f", 0, nil)
	env := NewFunctionEnvironment(fn, nil, a.GlobalEnv(), false)

	_, err := env.GetThisBinding(a)
	assert.True(t, IsCatchable(err), "this is uninitialized before super()")

	self := NewObject(a.NewPlainObject())
	require.NoError(t, env.BindThisValue(a, self))
	this, err := env.GetThisBinding(a)
	require.NoError(t, err)
	assert.Same(t, self, this)

	err = env.BindThisValue(a, self)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "ReferenceError: Super constructor may only be called once", ErrorSummary(exc.Value.Object))

	arrow := NewFunctionEnvironment(fn, nil, env, true)
	assert.False(t, arrow.HasThisBinding())
	assert.Same(t, env, arrow.GetThisEnvironment())
}

func TestEnvironmentStackTruncation(t *testing.T) {
	a := newTestAgent(t)
	base := a.EnvironmentDepth()
	for i := 0; i < 3; i++ {
		a.PushEnvironment(NewDeclarativeEnvironment(a.CurrentEnvironment()))
	}
	assert.Equal(t, base+3, a.EnvironmentDepth())
	a.TruncateEnvironments(base)
	assert.Equal(t, base, a.EnvironmentDepth())
	assert.Same(t, a.GlobalEnv(), a.CurrentEnvironment())
}
