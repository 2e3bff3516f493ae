package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallNonCallable(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Call(NewInt(1), Undefined, nil)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError: 1 is not a function", ErrorSummary(exc.Value.Object))

	_, err = a.Construct(NewObject(a.NewNativeFunction("f", 0, nil)), nil, nil)
	exc, ok = AsException(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError: f is not a constructor", ErrorSummary(exc.Value.Object))
}

func TestNativeFunctionProperties(t *testing.T) {
	a := newTestAgent(t)
	f := a.NewNativeFunction("sum", 2, func(*Agent, *Value, []*Value) (*Value, error) { return Undefined, nil })

	keys, err := f.OwnPropertyKeys(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"length", "name"}, keyNames(keys))

	desc, ok, err := f.GetOwnProperty(a, StringKey("length"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(2), desc.Value().Int)
	assert.False(t, desc.Writable())
	assert.False(t, desc.Enumerable())
	assert.True(t, desc.Configurable())
	name, err := FunctionName(f)
	require.NoError(t, err)
	assert.Equal(t, "sum", name)
}

func TestNativeCallReceivesThisAndArgs(t *testing.T) {
	a := newTestAgent(t)
	var gotThis *Value
	var gotArgs []*Value
	f := a.NewNativeFunction("f", 0, func(a *Agent, this *Value, args []*Value) (*Value, error) {
		gotThis, gotArgs = this, args
		return nil, nil
	})
	v, err := a.Call(NewObject(f), nil, []*Value{NewInt(1), NewInt(2)})
	require.NoError(t, err)
	assert.Same(t, Undefined, v, "nil results become undefined")
	assert.Same(t, Undefined, gotThis)
	assert.Len(t, gotArgs, 2)
}

func TestNativeConstructSeesNewTarget(t *testing.T) {
	a := newTestAgent(t)
	var seen []*Object
	ctor := a.NewNativeConstructor("C", 0, func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
		seen = append(seen, a.NewTarget())
		return NewInt(5), nil
	})
	DefineBuiltin(ctor, StringKey("prototype"), NewObject(a.NewPlainObject()))

	obj, err := a.Construct(NewObject(ctor), nil, nil)
	require.NoError(t, err)
	proto, err := ctor.Get(a, StringKey("prototype"))
	require.NoError(t, err)
	got, err := obj.GetPrototypeOf(a)
	require.NoError(t, err)
	assert.Same(t, proto.Object, got, "a primitive result falls back to an instance of new.target")

	_, err = a.Call(NewObject(ctor), Undefined, nil)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Same(t, ctor, seen[0])
	assert.Nil(t, seen[1])
	assert.Nil(t, a.NewTarget())
}

func TestClosureFunctionCaptures(t *testing.T) {
	a := newTestAgent(t)
	count := 0
	f := a.NewClosureFunction("inc", 0, func(a *Agent, _ *Value, _ []*Value, captures any) (*Value, error) {
		n := captures.(*int)
		*n++
		return NewInt(int64(*n)), nil
	}, &count)
	for i := 0; i < 3; i++ {
		_, err := a.Call(NewObject(f), Undefined, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, count)
}

func TestHostErrorsBecomeExceptions(t *testing.T) {
	a := newTestAgent(t)
	f := a.NewNativeFunction("fail", 0, func(*Agent, *Value, []*Value) (*Value, error) {
		return nil, errors.New("disk on fire")
	})
	_, err := a.Call(NewObject(f), Undefined, nil)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "Error: disk on fire", ErrorSummary(exc.Value.Object))
}

func TestBoundFunction(t *testing.T) {
	a := newTestAgent(t)
	var gotThis *Value
	var gotArgs []*Value
	target := a.NewNativeConstructor("target", 2, func(a *Agent, this *Value, args []*Value) (*Value, error) {
		gotThis, gotArgs = this, args
		if nt := a.NewTarget(); nt != nil {
			o := a.NewPlainObject()
			DefineBuiltin(o, StringKey("nt"), NewObject(nt))
			return NewObject(o), nil
		}
		return Undefined, nil
	})
	self := NewObject(a.NewPlainObject())
	bound, err := BoundFunctionCreate(a, target, self, []*Value{NewInt(1)})
	require.NoError(t, err)
	assert.True(t, bound.IsCallable())
	assert.True(t, bound.IsConstructor())

	_, err = a.Call(NewObject(bound), Undefined, []*Value{NewInt(2)})
	require.NoError(t, err)
	assert.Same(t, self, gotThis)
	require.Len(t, gotArgs, 2)
	assert.Equal(t, int32(1), gotArgs[0].Int)
	assert.Equal(t, int32(2), gotArgs[1].Int)

	obj, err := a.Construct(NewObject(bound), nil, nil)
	require.NoError(t, err)
	nt, err := obj.Get(a, StringKey("nt"))
	require.NoError(t, err)
	assert.Same(t, target, nt.Object, "new.target of the bound function is replaced by its target")
}

func TestCallDepthLimit(t *testing.T) {
	a := newTestAgent(t, WithLimits(Limits{MaxCallDepth: 50}))
	var f *Object
	calls := 0
	f = a.NewNativeFunction("recurse", 0, func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
		calls++
		return a.Call(NewObject(f), Undefined, nil)
	})
	_, err := a.Call(NewObject(f), Undefined, nil)
	var le *LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, LimitCallDepth, le.Kind)
	assert.Equal(t, 50, calls)
	assert.Equal(t, 0, a.CallDepth())
}

func TestCancelledContextInterruptsCalls(t *testing.T) {
	a := newTestAgent(t)
	f := a.NewNativeFunction("f", 0, func(*Agent, *Value, []*Value) (*Value, error) { return Undefined, nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.WithContext(ctx, func() error {
		_, err := a.Call(NewObject(f), Undefined, nil)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = a.Call(NewObject(f), Undefined, nil)
	assert.NoError(t, err, "the interrupt is scoped to WithContext")
}

func newProxy(t *testing.T, a *Agent, target *Object, traps map[string]NativeFunction) *Object {
	t.Helper()
	handler := a.NewPlainObject()
	for name, fn := range traps {
		DefineBuiltin(handler, StringKey(name), NewObject(a.NewNativeFunction(name, 0, fn)))
	}
	p, err := ProxyCreate(a, NewObject(target), NewObject(handler))
	require.NoError(t, err)
	return p
}

func TestProxyGetTrap(t *testing.T) {
	a := newTestAgent(t)
	target := a.NewPlainObject()
	require.NoError(t, CreateDataPropertyOrThrow(a, target, StringKey("x"), NewInt(1)))
	p := newProxy(t, a, target, map[string]NativeFunction{
		"get": func(a *Agent, _ *Value, args []*Value) (*Value, error) {
			key, err := args[1].ToString(a)
			if err != nil {
				return nil, err
			}
			return NewString("trapped " + key), nil
		},
	})
	v, err := p.Get(a, StringKey("y"))
	require.NoError(t, err)
	assert.Equal(t, "trapped y", v.Str)

	has, err := p.HasProperty(a, StringKey("x"))
	require.NoError(t, err)
	assert.True(t, has, "missing traps forward to the target")
}

func TestProxyGetInvariant(t *testing.T) {
	a := newTestAgent(t)
	target := a.NewPlainObject()
	require.NoError(t, DefinePropertyOrThrow(a, target, StringKey("x"), DataDescriptor(NewInt(1), false, false, false)))
	p := newProxy(t, a, target, map[string]NativeFunction{
		"get": func(*Agent, *Value, []*Value) (*Value, error) { return NewInt(2), nil },
	})
	_, err := p.Get(a, StringKey("x"))
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Contains(t, ErrorSummary(exc.Value.Object), "TypeError")
}

func TestProxyOwnKeysInvariants(t *testing.T) {
	a := newTestAgent(t)
	target := a.NewPlainObject()
	require.NoError(t, DefinePropertyOrThrow(a, target, StringKey("fixed"), DataDescriptor(True, true, true, false)))

	keysOf := func(names ...string) NativeFunction {
		return func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
			vals := make([]*Value, len(names))
			for i, n := range names {
				vals[i] = NewString(n)
			}
			return a.NewArrayValue(vals), nil
		}
	}

	p := newProxy(t, a, target, map[string]NativeFunction{"ownKeys": keysOf("fixed", "extra")})
	keys, err := p.OwnPropertyKeys(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed", "extra"}, keyNames(keys))

	p = newProxy(t, a, target, map[string]NativeFunction{"ownKeys": keysOf("extra")})
	_, err = p.OwnPropertyKeys(a)
	assert.True(t, IsCatchable(err), "omitting a non-configurable key is a TypeError")

	p = newProxy(t, a, target, map[string]NativeFunction{"ownKeys": keysOf("fixed", "fixed")})
	_, err = p.OwnPropertyKeys(a)
	assert.True(t, IsCatchable(err), "duplicate keys are a TypeError")
}

func TestRevokedProxy(t *testing.T) {
	a := newTestAgent(t)
	p := newProxy(t, a, a.NewPlainObject(), nil)
	p.Data().(*ProxyData).Revoke()
	_, err := p.Get(a, StringKey("x"))
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError: Cannot perform 'get' on a proxy that has been revoked", ErrorSummary(exc.Value.Object))
}

func TestCallableProxy(t *testing.T) {
	a := newTestAgent(t)
	target := a.NewNativeFunction("t", 0, func(*Agent, *Value, []*Value) (*Value, error) { return NewInt(1), nil })
	p := newProxy(t, a, target, map[string]NativeFunction{
		"apply": func(a *Agent, _ *Value, args []*Value) (*Value, error) {
			n, err := LengthOfArrayLike(a, args[2].Object)
			if err != nil {
				return nil, err
			}
			return NewInt(n), nil
		},
	})
	assert.True(t, p.IsCallable())
	assert.False(t, p.IsConstructor())
	v, err := a.Call(NewObject(p), Undefined, []*Value{Null, Null, Null})
	require.NoError(t, err)
	assert.Equal(t, int32(3), v.Int)
}

func TestProxyChainIsBounded(t *testing.T) {
	a := newTestAgent(t, WithLimits(Limits{MaxCallDepth: 64}))
	var o *Object = a.NewPlainObject()
	for i := 0; i < 200; i++ {
		o = newProxy(t, a, o, nil)
	}
	_, err := o.Get(a, StringKey("x"))
	var le *LimitError
	assert.ErrorAs(t, err, &le)
}
