package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, opts ...AgentOption) *Agent {
	t.Helper()
	a := NewAgent(opts...)
	t.Cleanup(a.Close)
	return a
}

func TestSharedBorrowsCoexist(t *testing.T) {
	o := NewOrdinaryObject(nil)
	r1, err := o.TryBorrow()
	require.NoError(t, err)
	r2, err := o.TryBorrow()
	require.NoError(t, err)

	_, err = o.TryBorrowMut()
	var be *BorrowError
	require.True(t, errors.As(err, &be))
	assert.True(t, be.Exclusive)

	r1.Release()
	r2.Release()
	m, err := o.TryBorrowMut()
	require.NoError(t, err)
	m.Release()
}

func TestExclusiveBorrowBlocksReaders(t *testing.T) {
	o := NewOrdinaryObject(nil)
	m := o.BorrowMut()

	_, err := o.TryBorrow()
	var be *BorrowError
	require.ErrorAs(t, err, &be)
	assert.False(t, be.Exclusive)
	assert.Panics(t, func() { o.Borrow() })

	m.Release()
	m.Release()
	r := o.Borrow()
	r.Release()
}

func TestInternalMethodsSurfaceBorrowConflicts(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	m := o.BorrowMut()
	defer m.Release()

	_, err := o.Get(a, StringKey("x"))
	var be *BorrowError
	require.ErrorAs(t, err, &be)
	_, isException := AsException(err)
	assert.False(t, isException, "borrow conflicts are not script exceptions")
}

type counter struct{ n int }

func TestDowncast(t *testing.T) {
	o := NewHostObject(nil, "Counter", counter{n: 1})
	assert.True(t, IsHost[counter](o))
	assert.False(t, IsHost[string](o))

	ok, err := DowncastMut(o, func(c *counter) { c.n += 41 })
	require.NoError(t, err)
	require.True(t, ok)

	var seen int
	ok, err = DowncastRef(o, func(c counter) { seen = c.n })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, seen)

	ok, err = DowncastRef(o, func(string) {})
	require.NoError(t, err)
	assert.False(t, ok)

	held := o.BorrowMut()
	_, err = DowncastRef(o, func(counter) {})
	assert.Error(t, err)
	held.Release()
}

func arrayLength(t *testing.T, o *Object) uint32 {
	t.Helper()
	n, err := ArrayLength(o)
	require.NoError(t, err)
	return n
}

func TestBorrowConflictsAreNotLanguageErrors(t *testing.T) {
	a := newTestAgent(t)
	key := SymbolKey(NewPrivateName("#p"))
	o := a.NewPlainObject()
	require.NoError(t, a.PrivateFieldAdd(o, key, NewInt(1)))
	arr := a.NewArray([]*Value{NewInt(1), NewInt(2), NewInt(3)})
	f := a.NewNativeFunction("f", 0, nil)

	held := []*ObjectRefMut{o.BorrowMut(), arr.BorrowMut(), f.BorrowMut()}
	defer func() {
		for _, m := range held {
			m.Release()
		}
	}()

	checks := map[string]error{}
	_, checks["private get"] = a.PrivateGet(o, key)
	checks["private set"] = a.PrivateSet(o, key, NewInt(2))
	_, checks["private in"] = PrivateIn(o, key)
	_, checks["array length"] = ArrayLength(arr)
	_, checks["length of array-like"] = LengthOfArrayLike(a, arr)
	_, checks["function name"] = FunctionName(f)

	for name, err := range checks {
		var be *BorrowError
		assert.ErrorAs(t, err, &be, name)
		_, isException := AsException(err)
		assert.False(t, isException, name)
	}
}

func TestArraySetLengthSurfacesBorrowConflict(t *testing.T) {
	a := newTestAgent(t)
	arr := a.NewArray([]*Value{NewInt(1), NewInt(2), NewInt(3)})
	r := arr.Borrow()
	defer r.Release()

	_, err := arr.DefineOwnProperty(a, StringKey("length"), DataDescriptor(NewInt(1), true, false, false))
	var be *BorrowError
	require.ErrorAs(t, err, &be)
	assert.Len(t, r.Keys(), 4, "elements and length are untouched")
}
