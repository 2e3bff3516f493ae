package runtime

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberToString(t *testing.T) {
	tenth, fifth := 0.1, 0.2
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-1.5, "-1.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{123456789012345680000, "123456789012345680000"},
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{1.2e-10, "1.2e-10"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
		{tenth + fifth, "0.30000000000000004"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NumberToString(c.in), "NumberToString(%v)", c.in)
	}
}

func TestNumberToStringRadix(t *testing.T) {
	assert.Equal(t, "ff", NumberToStringRadix(255, 16))
	assert.Equal(t, "-101", NumberToStringRadix(-5, 2))
	assert.Equal(t, "0.1", NumberToStringRadix(0.5, 2))
	assert.Equal(t, "z", NumberToStringRadix(35, 36))
}

func TestStringToNumber(t *testing.T) {
	cases := map[string]float64{
		"":           0,
		"  42  ":     42,
		"0x1F":       31,
		"0b101":      5,
		"0o17":       15,
		"-Infinity":  math.Inf(-1),
		"1e3":        1000,
		".5":         0.5,
		"5.":         5,
		"\u00a0 7\n": 7,
	}
	for in, want := range cases {
		assert.Equal(t, want, StringToNumber(in), "StringToNumber(%q)", in)
	}
	for _, in := range []string{"abc", "1_000", "0x", "1e", "infinity", "--1", "0x-1"} {
		assert.True(t, math.IsNaN(StringToNumber(in)), "StringToNumber(%q) should be NaN", in)
	}
}

func TestIntegerConversions(t *testing.T) {
	assert.Equal(t, int32(-1), Int32(4294967295))
	assert.Equal(t, int32(0), Int32(math.NaN()))
	assert.Equal(t, int32(-2147483648), Int32(2147483648))
	assert.Equal(t, uint32(4294967295), Uint32(-1))
	assert.Equal(t, 0.0, IntegerOrInfinity(-0.5))
	assert.False(t, math.Signbit(IntegerOrInfinity(-0.5)))
	assert.Equal(t, math.Inf(1), IntegerOrInfinity(math.Inf(1)))
}

func TestToBooleanIsIdempotent(t *testing.T) {
	a := newTestAgent(t)
	values := []*Value{Undefined, Null, True, False, Zero, NaN, NewNumber(-0.0), NewInt(3), EmptyString, NewString("0"), NewObject(a.NewPlainObject())}
	for _, v := range values {
		b := v.ToBoolean()
		assert.Equal(t, b, NewBool(b).ToBoolean())
	}
	assert.True(t, NewString("false").ToBoolean())
	assert.False(t, NaN.ToBoolean())
}

func TestToStringRoundTripsNumbers(t *testing.T) {
	a := newTestAgent(t)
	for _, n := range []float64{0, 1, -7, 0.5, 1e21, 123.456, 5e-324, math.MaxFloat64} {
		s, err := NewNumber(n).ToString(a)
		require.NoError(t, err)
		back, err := NewString(s).ToNumber(a)
		require.NoError(t, err)
		assert.Equal(t, n, back, "round trip of %v through %q", n, s)
	}
}

func TestToPrimitiveUsesToPrimitiveSymbol(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	var hints []string
	fn := a.NewNativeFunction("[Symbol.toPrimitive]", 1, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		hints = append(hints, args[0].Str)
		return NewInt(9), nil
	})
	DefineBuiltin(o, SymbolKey(SymToPrimitive), NewObject(fn))

	n, err := NewObject(o).ToNumber(a)
	require.NoError(t, err)
	assert.Equal(t, 9.0, n)
	_, err = NewObject(o).ToString(a)
	require.NoError(t, err)
	_, err = NewObject(o).ToPrimitive(a, HintDefault)
	require.NoError(t, err)
	assert.Equal(t, []string{"number", "string", "default"}, hints)
}

func TestOrdinaryToPrimitiveSelfReference(t *testing.T) {
	a := newTestAgent(t)
	o := a.NewPlainObject()
	toString := a.NewNativeFunction("toString", 0, func(a *Agent, this *Value, _ []*Value) (*Value, error) {
		inner, err := this.ToString(a)
		if err != nil {
			return nil, err
		}
		return NewString("[" + inner + "]"), nil
	})
	DefineBuiltin(o, StringKey("toString"), NewObject(toString))

	s, err := NewObject(o).ToString(a)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	n, err := NewObject(o).ToNumber(a)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n), "\"[]\" is not numeric")
}

func TestToPrimitiveRejectsObjects(t *testing.T) {
	a := newTestAgent(t)
	o := NewOrdinaryObject(nil)
	_, err := NewObject(o).ToNumber(a)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError: Cannot convert object to primitive value", ErrorSummary(exc.Value.Object))
}

func TestToPropertyKey(t *testing.T) {
	a := newTestAgent(t)
	k, err := NewInt(5).ToPropertyKey(a)
	require.NoError(t, err)
	assert.Equal(t, StringKey("5"), k)

	k, err = NewNumber(1.5).ToPropertyKey(a)
	require.NoError(t, err)
	assert.Equal(t, "1.5", k.Name())

	sym := NewSymbol("k")
	k, err = NewSymbolValue(sym).ToPropertyKey(a)
	require.NoError(t, err)
	assert.Same(t, sym, k.Symbol())
}

func TestLooseEquality(t *testing.T) {
	a := newTestAgent(t)
	cases := []struct {
		x, y *Value
		want bool
	}{
		{Null, Undefined, true},
		{NewString("1"), NewInt(1), true},
		{True, NewInt(1), true},
		{NewString(""), Zero, true},
		{Null, Zero, false},
		{NaN, NaN, false},
	}
	for _, c := range cases {
		got, err := LooselyEquals(a, c.x, c.y)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s == %s", c.x, c.y)
	}
	assert.True(t, SameValue(NaN, NaN))
	assert.False(t, SameValue(NewNumber(0), NewNumber(math.Copysign(0, -1))))
	assert.True(t, SameValueZero(NewNumber(0), NewNumber(math.Copysign(0, -1))))
}

func TestToBigInt(t *testing.T) {
	a := newTestAgent(t)
	n, err := NewString("0x10").ToBigInt(a)
	require.NoError(t, err)
	assert.Equal(t, int64(16), n.Int64())

	_, err = NewNumber(1).ToBigInt(a)
	assert.Error(t, err)

	u, err := NewString("-1").ToBigUint64(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u)
}

func TestSmallIntegerConversions(t *testing.T) {
	a := newTestAgent(t)
	cases := []struct {
		in    float64
		i8    int8
		u8    uint8
		i16   int16
		u16   uint16
		clamp uint8
	}{
		{0, 0, 0, 0, 0, 0},
		{3.7, 3, 3, 3, 3, 4},
		{-129, 127, 127, -129, 65407, 0},
		{128, -128, 128, 128, 128, 128},
		{255, -1, 255, 255, 255, 255},
		{256, 0, 0, 256, 256, 255},
		{-1, -1, 255, -1, 65535, 0},
		{300, 44, 44, 300, 300, 255},
		{32768, 0, 0, -32768, 32768, 255},
		{65535, -1, 255, -1, 65535, 255},
		{70000, 112, 112, 4464, 4464, 255},
		{2.5, 2, 2, 2, 2, 2},
		{254.5, -2, 254, 254, 254, 254},
		{math.NaN(), 0, 0, 0, 0, 0},
		{math.Inf(1), 0, 0, 0, 0, 255},
	}
	for _, c := range cases {
		v := NewNumber(c.in)
		i8, err := v.ToInt8(a)
		require.NoError(t, err)
		u8, err := v.ToUint8(a)
		require.NoError(t, err)
		i16, err := v.ToInt16(a)
		require.NoError(t, err)
		u16, err := v.ToUint16(a)
		require.NoError(t, err)
		clamp, err := v.ToUint8Clamp(a)
		require.NoError(t, err)
		assert.Equal(t, c.i8, i8, "ToInt8(%v)", c.in)
		assert.Equal(t, c.u8, u8, "ToUint8(%v)", c.in)
		assert.Equal(t, c.i16, i16, "ToInt16(%v)", c.in)
		assert.Equal(t, c.u16, u16, "ToUint16(%v)", c.in)
		assert.Equal(t, c.clamp, clamp, "ToUint8Clamp(%v)", c.in)
	}
}

// thrownName returns the name of the error object carried by err.
func thrownName(t *testing.T, err error) string {
	t.Helper()
	exc, ok := AsException(err)
	require.True(t, ok, "expected an exception, got %v", err)
	require.True(t, exc.Value.IsObject())
	name, _ := ErrorParts(exc.Value.Object)
	return name
}

func TestToLengthAndToIndex(t *testing.T) {
	a := newTestAgent(t)
	lengths := []struct {
		in   *Value
		want int64
	}{
		{NewNumber(-3), 0},
		{NewNumber(2.9), 2},
		{NewNumber(math.NaN()), 0},
		{NewNumber(math.Inf(1)), MaxSafeInteger},
		{NewNumber(1 << 60), MaxSafeInteger},
		{NewString("12"), 12},
		{Undefined, 0},
	}
	for _, c := range lengths {
		n, err := c.in.ToLength(a)
		require.NoError(t, err)
		assert.Equal(t, c.want, n, "ToLength(%v)", c.in)
	}

	indices := []struct {
		in   *Value
		want int64
	}{
		{Undefined, 0},
		{NewNumber(3.9), 3},
		{NewNumber(-0.5), 0},
		{NewString("7"), 7},
		{NewNumber(MaxSafeInteger), MaxSafeInteger},
	}
	for _, c := range indices {
		n, err := c.in.ToIndex(a)
		require.NoError(t, err)
		assert.Equal(t, c.want, n, "ToIndex(%v)", c.in)
	}
	for _, bad := range []*Value{NewNumber(-5), NewNumber(1 << 53), NewNumber(math.Inf(1))} {
		_, err := bad.ToIndex(a)
		assert.Equal(t, "RangeError", thrownName(t, err), "ToIndex(%v)", bad)
	}
}

func TestBigIntWrapping(t *testing.T) {
	a := newTestAgent(t)
	pow := func(n uint) *big.Int { return new(big.Int).Lsh(big.NewInt(1), n) }
	cases := []struct {
		in  *big.Int
		i64 int64
		u64 uint64
	}{
		{big.NewInt(-1), -1, math.MaxUint64},
		{pow(63), math.MinInt64, 1 << 63},
		{new(big.Int).Add(pow(64), big.NewInt(5)), 5, 5},
		{pow(64), 0, 0},
		{new(big.Int).Neg(pow(64)), 0, 0},
		{big.NewInt(math.MaxInt64), math.MaxInt64, math.MaxInt64},
	}
	for _, c := range cases {
		v := NewBigInt(c.in)
		i, err := v.ToBigInt64(a)
		require.NoError(t, err)
		u, err := v.ToBigUint64(a)
		require.NoError(t, err)
		assert.Equal(t, c.i64, i, "ToBigInt64(%s)", c.in)
		assert.Equal(t, c.u64, u, "ToBigUint64(%s)", c.in)
	}
}

func TestToBigIntRejections(t *testing.T) {
	a := newTestAgent(t)
	rejected := []struct {
		in   *Value
		name string
	}{
		{NewNumber(1), "TypeError"},
		{NewNumber(1.5), "TypeError"},
		{NewSymbolValue(NewSymbol("s")), "TypeError"},
		{Null, "TypeError"},
		{Undefined, "TypeError"},
		{NewString("1.5"), "SyntaxError"},
		{NewString("abc"), "SyntaxError"},
	}
	for _, c := range rejected {
		_, err := c.in.ToBigInt(a)
		assert.Equal(t, c.name, thrownName(t, err), "ToBigInt(%v)", c.in)
	}

	n, err := True.ToBigInt(a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Int64())
	n, err = NewString("  ").ToBigInt(a)
	require.NoError(t, err)
	assert.Zero(t, n.Sign())
}
