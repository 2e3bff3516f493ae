package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorBuilderRejectsMixedFields(t *testing.T) {
	_, err := NewDescriptor().Value(True).Get(Undefined).Build()
	assert.True(t, errors.Is(err, ErrMixedDescriptor))

	d, err := NewDescriptor().Enumerable(true).Build()
	require.NoError(t, err)
	assert.True(t, d.IsGenericDescriptor())
	assert.False(t, d.HasConfigurable())
}

func TestToPropertyDescriptorReadOrder(t *testing.T) {
	a := newTestAgent(t)
	var reads []string
	src := a.NewPlainObject()
	noop := NewObject(a.NewNativeFunction("noop", 0, func(*Agent, *Value, []*Value) (*Value, error) { return Undefined, nil }))
	for _, name := range []string{"set", "get", "writable", "value", "configurable", "enumerable"} {
		name := name
		getter := a.NewNativeFunction("get "+name, 0, func(*Agent, *Value, []*Value) (*Value, error) {
			reads = append(reads, name)
			if name == "get" || name == "set" {
				return noop, nil
			}
			return True, nil
		})
		require.NoError(t, DefinePropertyOrThrow(a, src, StringKey(name), AccessorDescriptor(NewObject(getter), nil, true, true)))
	}

	target := a.NewPlainObject()
	before, err := target.OwnPropertyKeys(a)
	require.NoError(t, err)

	_, err = ToPropertyDescriptor(a, NewObject(src))
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Contains(t, ErrorSummary(exc.Value.Object), "TypeError")
	assert.Equal(t, []string{"enumerable", "configurable", "value", "writable", "get", "set"}, reads)

	after, err := target.OwnPropertyKeys(a)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestToPropertyDescriptorRejectsNonCallableGetter(t *testing.T) {
	a := newTestAgent(t)
	src := a.NewPlainObject()
	require.NoError(t, CreateDataPropertyOrThrow(a, src, StringKey("get"), NewInt(1)))
	_, err := ToPropertyDescriptor(a, NewObject(src))
	assert.True(t, IsCatchable(err))

	_, err = ToPropertyDescriptor(a, NewString("x"))
	assert.True(t, IsCatchable(err))
}

func TestFromPropertyDescriptorRoundTrip(t *testing.T) {
	a := newTestAgent(t)
	in := DataDescriptor(NewInt(4), true, false, true)
	obj := FromPropertyDescriptor(a, in)
	keys, err := obj.Object.OwnPropertyKeys(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "writable", "enumerable", "configurable"}, keyNames(keys))

	out, err := ToPropertyDescriptor(a, obj)
	require.NoError(t, err)
	assert.Equal(t, out, out.Complete(), "a full descriptor is already complete")
	assert.Equal(t, int32(4), out.Value().Int)
	assert.True(t, out.Writable())
	assert.False(t, out.Enumerable())
}

func TestCompletePropertyDescriptorDefaults(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	ok, err := o.DefineOwnProperty(a, StringKey("p"), NewDescriptor().Value(NewInt(1)).MustBuild())
	require.NoError(t, err)
	require.True(t, ok)

	d, found, err := o.GetOwnProperty(a, StringKey("p"))
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, d.Writable())
	assert.False(t, d.Enumerable())
	assert.False(t, d.Configurable())
}
