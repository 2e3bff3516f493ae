package runtime

import (
	"math"
	"math/big"
)

// PreferredType is the hint passed to ToPrimitive.
type PreferredType int

const (
	HintDefault PreferredType = iota
	HintNumber
	HintString
)

func (h PreferredType) String() string {
	switch h {
	case HintNumber:
		return "number"
	case HintString:
		return "string"
	}
	return "default"
}

// ToPrimitive implements the ToPrimitive abstract operation.
func (v *Value) ToPrimitive(a *Agent, hint PreferredType) (*Value, error) {
	o := v.AsObject()
	if o == nil {
		return v, nil
	}
	exotic, err := GetMethod(a, v, SymbolKey(SymToPrimitive))
	if err != nil {
		return nil, err
	}
	if exotic != nil {
		result, err := a.Call(exotic, v, []*Value{NewString(hint.String())})
		if err != nil {
			return nil, err
		}
		if result.IsObject() {
			return nil, a.ThrowTypeError("Cannot convert object to primitive value")
		}
		return result, nil
	}
	if hint == HintDefault {
		hint = HintNumber
	}
	return OrdinaryToPrimitive(a, o, hint)
}

// OrdinaryToPrimitive tries toString/valueOf in hint order. Reentering the
// coercion of an object already being coerced yields "" for a string hint
// and 0 otherwise, so self-referential structures terminate.
func OrdinaryToPrimitive(a *Agent, o *Object, hint PreferredType) (*Value, error) {
	if a.coercing.Contains(o) {
		if hint == HintString {
			return EmptyString, nil
		}
		return Zero, nil
	}
	a.coercing.Add(o)
	defer a.coercing.Remove(o)

	names := [2]string{"valueOf", "toString"}
	if hint == HintString {
		names = [2]string{"toString", "valueOf"}
	}
	for _, name := range names {
		method, err := o.Get(a, StringKey(name))
		if err != nil {
			return nil, err
		}
		if !method.IsCallable() {
			continue
		}
		result, err := a.Call(method, NewObject(o), nil)
		if err != nil {
			return nil, err
		}
		if !result.IsObject() {
			return result, nil
		}
	}
	return nil, a.ThrowTypeError("Cannot convert object to primitive value")
}

// ToNumber implements the ToNumber abstract operation.
func (v *Value) ToNumber(a *Agent) (float64, error) {
	switch v.Type {
	case TypeInteger:
		return float64(v.Int), nil
	case TypeNumber:
		return v.Number, nil
	case TypeUndefined:
		return math.NaN(), nil
	case TypeNull:
		return 0, nil
	case TypeBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case TypeString:
		return StringToNumber(v.Str), nil
	case TypeBigInt:
		return 0, a.ThrowTypeError("Cannot convert a BigInt value to a number")
	case TypeSymbol:
		return 0, a.ThrowTypeError("Cannot convert a Symbol value to a number")
	}
	prim, err := v.ToPrimitive(a, HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToNumber(a)
}

// ToNumeric returns a Number or BigInt value.
func (v *Value) ToNumeric(a *Agent) (*Value, error) {
	if v.IsNumber() || v.IsBigInt() {
		return v, nil
	}
	prim, err := v.ToPrimitive(a, HintNumber)
	if err != nil {
		return nil, err
	}
	if prim.IsBigInt() {
		return prim, nil
	}
	n, err := prim.ToNumber(a)
	if err != nil {
		return nil, err
	}
	return NewNumber(n), nil
}

// ToString implements the ToString abstract operation.
func (v *Value) ToString(a *Agent) (string, error) {
	switch v.Type {
	case TypeString:
		return v.Str, nil
	case TypeSymbol:
		return "", a.ThrowTypeError("Cannot convert a Symbol value to a string")
	case TypeObject:
		prim, err := v.ToPrimitive(a, HintString)
		if err != nil {
			return "", err
		}
		return prim.ToString(a)
	}
	return v.String(), nil
}

// ToStringValue is ToString returning a string value.
func (v *Value) ToStringValue(a *Agent) (*Value, error) {
	if v.IsString() {
		return v, nil
	}
	s, err := v.ToString(a)
	if err != nil {
		return nil, err
	}
	return NewString(s), nil
}

// ToObject implements the ToObject abstract operation.
func (v *Value) ToObject(a *Agent) (*Object, error) {
	in := a.realm.Intrinsics
	switch v.Type {
	case TypeObject:
		return v.Object, nil
	case TypeUndefined, TypeNull:
		return nil, a.ThrowTypeError("Cannot convert undefined or null to object")
	case TypeBoolean:
		return NewObjectWithData(in.BooleanPrototype, NewPrimitiveData(KindBoolean, v)), nil
	case TypeNumber, TypeInteger:
		return NewObjectWithData(in.NumberPrototype, NewPrimitiveData(KindNumber, v)), nil
	case TypeString:
		return a.NewStringObject(v.Str, nil), nil
	case TypeSymbol:
		return NewObjectWithData(in.SymbolPrototype, NewPrimitiveData(KindSymbol, v)), nil
	case TypeBigInt:
		return NewObjectWithData(in.BigIntPrototype, NewPrimitiveData(KindBigInt, v)), nil
	}
	return nil, a.ThrowTypeError("Cannot convert value to object")
}

// ToPropertyKey implements the ToPropertyKey abstract operation.
func (v *Value) ToPropertyKey(a *Agent) (PropertyKey, error) {
	switch v.Type {
	case TypeString:
		return StringKey(v.Str), nil
	case TypeSymbol:
		return SymbolKey(v.Symbol), nil
	case TypeInteger:
		if v.Int >= 0 {
			return IndexKey(uint32(v.Int)), nil
		}
	}
	prim, err := v.ToPrimitive(a, HintString)
	if err != nil {
		return PropertyKey{}, err
	}
	if prim.IsSymbol() {
		return SymbolKey(prim.Symbol), nil
	}
	s, err := prim.ToString(a)
	if err != nil {
		return PropertyKey{}, err
	}
	return StringKey(s), nil
}

// ToIntegerOrInfinity truncates ToNumber(v), mapping NaN to 0.
func (v *Value) ToIntegerOrInfinity(a *Agent) (float64, error) {
	if v.Type == TypeInteger {
		return float64(v.Int), nil
	}
	n, err := v.ToNumber(a)
	if err != nil {
		return 0, err
	}
	return IntegerOrInfinity(n), nil
}

// IntegerOrInfinity applies the numeric part of ToIntegerOrInfinity.
func IntegerOrInfinity(n float64) float64 {
	if math.IsNaN(n) || n == 0 {
		return 0
	}
	if math.IsInf(n, 0) {
		return n
	}
	if t := math.Trunc(n); t != 0 {
		return t
	}
	return 0
}

// modularInt reduces n modulo 2^bits after truncation.
func modularInt(n float64, bits uint) uint64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	n = math.Trunc(n)
	m := math.Mod(n, math.Ldexp(1, int(bits)))
	if m < 0 {
		m += math.Ldexp(1, int(bits))
	}
	return uint64(m)
}

// Int32 applies ToInt32 to a number.
func Int32(n float64) int32 {
	if i := int32(n); float64(i) == n {
		return i
	}
	return int32(uint32(modularInt(n, 32)))
}

// Uint32 applies ToUint32 to a number.
func Uint32(n float64) uint32 {
	if n >= 0 && n <= math.MaxUint32 && n == math.Trunc(n) {
		return uint32(n)
	}
	return uint32(modularInt(n, 32))
}

func (v *Value) ToInt32(a *Agent) (int32, error) {
	if v.Type == TypeInteger {
		return v.Int, nil
	}
	n, err := v.ToNumber(a)
	return Int32(n), err
}

func (v *Value) ToUint32(a *Agent) (uint32, error) {
	if v.Type == TypeInteger {
		return uint32(v.Int), nil
	}
	n, err := v.ToNumber(a)
	return Uint32(n), err
}

func (v *Value) ToInt16(a *Agent) (int16, error) {
	n, err := v.ToNumber(a)
	return int16(uint16(modularInt(n, 16))), err
}

func (v *Value) ToUint16(a *Agent) (uint16, error) {
	n, err := v.ToNumber(a)
	return uint16(modularInt(n, 16)), err
}

func (v *Value) ToInt8(a *Agent) (int8, error) {
	n, err := v.ToNumber(a)
	return int8(uint8(modularInt(n, 8))), err
}

func (v *Value) ToUint8(a *Agent) (uint8, error) {
	n, err := v.ToNumber(a)
	return uint8(modularInt(n, 8)), err
}

// ToUint8Clamp clamps to 0..255 rounding half to even.
func (v *Value) ToUint8Clamp(a *Agent) (uint8, error) {
	n, err := v.ToNumber(a)
	if err != nil || math.IsNaN(n) || n <= 0 {
		return 0, err
	}
	if n >= 255 {
		return 255, nil
	}
	return uint8(math.RoundToEven(n)), nil
}

// MaxSafeInteger is 2^53 - 1.
const MaxSafeInteger = 1<<53 - 1

// ToLength clamps ToIntegerOrInfinity(v) to 0 .. 2^53-1.
func (v *Value) ToLength(a *Agent) (int64, error) {
	n, err := v.ToIntegerOrInfinity(a)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	if n >= MaxSafeInteger {
		return MaxSafeInteger, nil
	}
	return int64(n), nil
}

// ToIndex converts v to a non-negative integer index, throwing a
// RangeError when the value is out of range.
func (v *Value) ToIndex(a *Agent) (int64, error) {
	if v.IsUndefined() {
		return 0, nil
	}
	n, err := v.ToIntegerOrInfinity(a)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > MaxSafeInteger {
		return 0, a.ThrowRangeError("Invalid index")
	}
	return int64(n), nil
}

// ToBigInt implements the ToBigInt abstract operation.
func (v *Value) ToBigInt(a *Agent) (*big.Int, error) {
	prim, err := v.ToPrimitive(a, HintNumber)
	if err != nil {
		return nil, err
	}
	switch prim.Type {
	case TypeBigInt:
		return prim.BigInt, nil
	case TypeBoolean:
		if prim.Bool {
			return big.NewInt(1), nil
		}
		return new(big.Int), nil
	case TypeString:
		n, ok := StringToBigInt(prim.Str)
		if !ok {
			return nil, a.ThrowSyntaxError("Cannot convert %s to a BigInt", prim.Str)
		}
		return n, nil
	case TypeUndefined, TypeNull:
		return nil, a.ThrowTypeError("Cannot convert %s to a BigInt", prim.String())
	case TypeSymbol:
		return nil, a.ThrowTypeError("Cannot convert a Symbol value to a BigInt")
	}
	return nil, a.ThrowTypeError("Cannot convert %s to a BigInt", prim.String())
}

var (
	twoTo64 = new(big.Int).Lsh(big.NewInt(1), 64)
	twoTo63 = new(big.Int).Lsh(big.NewInt(1), 63)
)

// ToBigUint64 reduces ToBigInt(v) modulo 2^64.
func (v *Value) ToBigUint64(a *Agent) (uint64, error) {
	n, err := v.ToBigInt(a)
	if err != nil {
		return 0, err
	}
	m := new(big.Int).Mod(n, twoTo64)
	return m.Uint64(), nil
}

// ToBigInt64 reduces ToBigInt(v) modulo 2^64 into the signed range.
func (v *Value) ToBigInt64(a *Agent) (int64, error) {
	n, err := v.ToBigInt(a)
	if err != nil {
		return 0, err
	}
	m := new(big.Int).Mod(n, twoTo64)
	if m.Cmp(twoTo63) >= 0 {
		m.Sub(m, twoTo64)
	}
	return m.Int64(), nil
}
