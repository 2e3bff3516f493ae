package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyNames(keys []PropertyKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func TestOwnPropertyKeysOrder(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	sym := NewSymbol("s")
	for _, k := range []PropertyKey{
		StringKey("b"), IndexKey(10), SymbolKey(sym), StringKey("a"), IndexKey(2), StringKey("4294967295"), StringKey("01"),
	} {
		require.NoError(t, CreateDataPropertyOrThrow(a, o, k, True))
	}
	keys, err := o.OwnPropertyKeys(a)
	require.NoError(t, err)
	want := []string{"2", "10", "b", "a", "4294967295", "01", "[s]"}
	if diff := cmp.Diff(want, keyNames(keys)); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestPrivateNamesAreHiddenFromKeys(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	name := NewPrivateName("#secret")
	require.NoError(t, a.PrivateFieldAdd(o, SymbolKey(name), NewInt(1)))

	keys, err := o.OwnPropertyKeys(a)
	require.NoError(t, err)
	assert.Empty(t, keys)

	v, err := a.PrivateGet(o, SymbolKey(name))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.Int)
	assert.Error(t, a.PrivateFieldAdd(o, SymbolKey(name), NewInt(2)))
}

func TestSetPrototypeOfRejectsCycles(t *testing.T) {
	a := newTestAgent(t)
	x := a.NewPlainObject()
	y := NewOrdinaryObject(x)
	z := NewOrdinaryObject(y)

	ok, err := x.SetPrototypeOf(a, z)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = x.SetPrototypeOf(a, x)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = x.SetPrototypeOf(a, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonExtensibleKeepsPrototype(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	_, err := o.PreventExtensions(a)
	require.NoError(t, err)

	ok, err := o.SetPrototypeOf(a, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = o.SetPrototypeOf(a, a.Intrinsics().ObjectPrototype)
	require.NoError(t, err)
	assert.True(t, ok, "same prototype is allowed")

	ok, err = CreateDataProperty(a, o, StringKey("x"), True)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFrozenObjectInvariants(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	require.NoError(t, CreateDataPropertyOrThrow(a, o, StringKey("x"), NewInt(1)))

	ok, err := SetIntegrityLevel(a, o, Frozen)
	require.NoError(t, err)
	require.True(t, ok)

	frozen, err := TestIntegrityLevel(a, o, Frozen)
	require.NoError(t, err)
	assert.True(t, frozen)

	assert.NoError(t, o.Set(a, StringKey("x"), NewInt(2), false))
	err = o.Set(a, StringKey("x"), NewInt(2), true)
	exc, isExc := AsException(err)
	require.True(t, isExc)
	assert.Equal(t, KindError, exc.Value.Object.Kind())

	v, err := o.Get(a, StringKey("x"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.Int)

	deleted, err := o.Delete(a, StringKey("x"))
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err = o.DefineOwnProperty(a, StringKey("x"), DataDescriptor(NewInt(3), false, false, false))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateAndApplyNonConfigurable(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	getter := NewObject(a.NewNativeFunction("get", 0, func(*Agent, *Value, []*Value) (*Value, error) {
		return NewInt(7), nil
	}))
	require.NoError(t, DefinePropertyOrThrow(a, o, StringKey("g"), AccessorDescriptor(getter, nil, true, false)))

	ok, err := o.DefineOwnProperty(a, StringKey("g"), NewDescriptor().Value(NewInt(1)).MustBuild())
	require.NoError(t, err)
	assert.False(t, ok, "cannot switch a non-configurable accessor to data")

	ok, err = o.DefineOwnProperty(a, StringKey("g"), NewDescriptor().Enumerable(true).MustBuild())
	require.NoError(t, err)
	assert.True(t, ok, "redefining with identical attributes is allowed")

	v, err := o.Get(a, StringKey("g"))
	require.NoError(t, err)
	assert.Equal(t, int32(7), v.Int)
}

func TestArrayLengthGrowsAndTruncates(t *testing.T) {
	a := newTestAgent(t)
	arr := a.NewArray([]*Value{NewInt(1), NewInt(2), NewInt(3)})

	require.NoError(t, CreateDataPropertyOrThrow(a, arr, IndexKey(9), True))
	assert.Equal(t, uint32(10), arrayLength(t, arr))

	require.NoError(t, arr.Set(a, lengthKey, NewInt(2), true))
	assert.Equal(t, uint32(2), arrayLength(t, arr))
	has, err := arr.HasOwnProperty(a, IndexKey(2))
	require.NoError(t, err)
	assert.False(t, has)

	err = arr.Set(a, lengthKey, NewNumber(1.5), true)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "RangeError: Invalid array length", ErrorSummary(exc.Value.Object))
}

func TestArrayTruncationStopsAtNonConfigurable(t *testing.T) {
	a := newTestAgent(t)
	arr := a.NewArray([]*Value{NewInt(0), NewInt(1), NewInt(2), NewInt(3)})
	require.NoError(t, DefinePropertyOrThrow(a, arr, IndexKey(1), DataDescriptor(NewInt(1), true, true, false)))

	ok, err := arr.DefineOwnProperty(a, lengthKey, NewDescriptor().Value(Zero).MustBuild())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint32(2), arrayLength(t, arr))
}

func TestPrototypeChainBound(t *testing.T) {
	a := newTestAgent(t, WithLimits(Limits{MaxPrototypeChain: 8}))
	o := a.NewPlainObject()
	for i := 0; i < 20; i++ {
		o = NewOrdinaryObject(o)
	}
	_, err := o.Get(a, StringKey("missing"))
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Contains(t, ErrorSummary(exc.Value.Object), "RangeError")
}

func TestStringExoticIndices(t *testing.T) {
	a := newTestAgent(t)
	s := a.NewStringObject("héllo", nil)

	v, err := s.Get(a, IndexKey(1))
	require.NoError(t, err)
	assert.Equal(t, "é", v.Str)

	n, err := s.Get(a, lengthKey)
	require.NoError(t, err)
	assert.Equal(t, int32(5), n.Int)

	ok, err := s.DefineOwnProperty(a, IndexKey(0), NewDescriptor().Value(NewString("x")).MustBuild())
	require.NoError(t, err)
	assert.False(t, ok)
}
