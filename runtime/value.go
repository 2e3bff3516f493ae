package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ValueType represents the type of a JavaScript value.
type ValueType int

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeInteger // small-integer fast path of Number
	TypeString
	TypeBigInt
	TypeSymbol
	TypeObject
)

func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber, TypeInteger:
		return "number"
	case TypeString:
		return "string"
	case TypeBigInt:
		return "bigint"
	case TypeSymbol:
		return "symbol"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value represents a JavaScript value. Exactly one payload field is
// meaningful, selected by Type. Values are built with the New* constructors
// and never compared with ==; use StrictEquals, SameValue and friends.
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Int    int32
	Str    string
	BigInt *big.Int
	Symbol *Symbol
	Object *Object
}

var (
	Undefined   = &Value{Type: TypeUndefined}
	Null        = &Value{Type: TypeNull}
	True        = &Value{Type: TypeBoolean, Bool: true}
	False       = &Value{Type: TypeBoolean, Bool: false}
	NaN         = &Value{Type: TypeNumber, Number: math.NaN()}
	PosInf      = &Value{Type: TypeNumber, Number: math.Inf(1)}
	NegInf      = &Value{Type: TypeNumber, Number: math.Inf(-1)}
	Zero        = &Value{Type: TypeInteger}
	EmptyString = &Value{Type: TypeString}
)

// NewNumber returns a Number value. Integral values that fit in an int32
// (other than -0) use the integer representation.
func NewNumber(n float64) *Value {
	if i := int32(n); float64(i) == n && (n != 0 || !math.Signbit(n)) {
		return &Value{Type: TypeInteger, Int: i}
	}
	return &Value{Type: TypeNumber, Number: n}
}

// NewInt returns a Number value for an integer.
func NewInt(i int64) *Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return &Value{Type: TypeInteger, Int: int32(i)}
	}
	return &Value{Type: TypeNumber, Number: float64(i)}
}

func NewString(s string) *Value {
	if s == "" {
		return EmptyString
	}
	return &Value{Type: TypeString, Str: s}
}

func NewBool(b bool) *Value {
	if b {
		return True
	}
	return False
}

func NewBigInt(b *big.Int) *Value {
	return &Value{Type: TypeBigInt, BigInt: b}
}

func NewSymbolValue(s *Symbol) *Value {
	return &Value{Type: TypeSymbol, Symbol: s}
}

func NewObject(obj *Object) *Value {
	if obj == nil {
		return Null
	}
	return &Value{Type: TypeObject, Object: obj}
}

func (v *Value) IsUndefined() bool { return v.Type == TypeUndefined }
func (v *Value) IsNull() bool      { return v.Type == TypeNull }
func (v *Value) IsNullish() bool   { return v.Type == TypeUndefined || v.Type == TypeNull }
func (v *Value) IsBoolean() bool   { return v.Type == TypeBoolean }
func (v *Value) IsNumber() bool    { return v.Type == TypeNumber || v.Type == TypeInteger }
func (v *Value) IsString() bool    { return v.Type == TypeString }
func (v *Value) IsBigInt() bool    { return v.Type == TypeBigInt }
func (v *Value) IsSymbol() bool    { return v.Type == TypeSymbol }
func (v *Value) IsObject() bool    { return v.Type == TypeObject }

// Float returns the numeric payload of a Number value and NaN for anything else.
func (v *Value) Float() float64 {
	switch v.Type {
	case TypeInteger:
		return float64(v.Int)
	case TypeNumber:
		return v.Number
	}
	return math.NaN()
}

// AsObject returns the object payload, or nil when v is not an object.
func (v *Value) AsObject() *Object {
	if v.Type == TypeObject {
		return v.Object
	}
	return nil
}

// IsCallable reports whether v is an object with a [[Call]] internal method.
func (v *Value) IsCallable() bool {
	return v.Type == TypeObject && v.Object.IsCallable()
}

// IsConstructor reports whether v is an object with a [[Construct]] internal method.
func (v *Value) IsConstructor() bool {
	return v.Type == TypeObject && v.Object.IsConstructor()
}

// ToBoolean implements the ECMAScript ToBoolean abstract operation. It never fails.
func (v *Value) ToBoolean() bool {
	switch v.Type {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.Bool
	case TypeInteger:
		return v.Int != 0
	case TypeNumber:
		return v.Number != 0 && !math.IsNaN(v.Number)
	case TypeString:
		return len(v.Str) > 0
	case TypeBigInt:
		return v.BigInt.Sign() != 0
	default:
		return true
	}
}

// TypeOf returns the result of the typeof operator for v.
func TypeOf(v *Value) string {
	switch v.Type {
	case TypeNull:
		return "object"
	case TypeObject:
		if v.Object.IsCallable() {
			return "function"
		}
		return "object"
	default:
		return v.Type.String()
	}
}

// String renders v for diagnostics without running any user code.
func (v *Value) String() string {
	switch v.Type {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeInteger:
		return strconv.Itoa(int(v.Int))
	case TypeNumber:
		return NumberToString(v.Number)
	case TypeString:
		return v.Str
	case TypeBigInt:
		return v.BigInt.String()
	case TypeSymbol:
		return v.Symbol.String()
	case TypeObject:
		return v.Object.String()
	}
	return "unknown"
}

// StrictEquals implements IsStrictlyEqual (===).
func StrictEquals(a, b *Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Type == TypeInteger && b.Type == TypeInteger {
			return a.Int == b.Int
		}
		return a.Float() == b.Float()
	}
	if a.Type != b.Type {
		return false
	}
	return sameNonNumber(a, b)
}

// SameValue implements the SameValue abstract operation (Object.is).
func SameValue(a, b *Value) bool {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.Float(), b.Float()
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		if x == 0 && y == 0 {
			return math.Signbit(x) == math.Signbit(y)
		}
		return x == y
	}
	if a.Type != b.Type {
		return false
	}
	return sameNonNumber(a, b)
}

// SameValueZero is SameValue except that +0 and -0 are equal.
func SameValueZero(a, b *Value) bool {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.Float(), b.Float()
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		return x == y
	}
	if a.Type != b.Type {
		return false
	}
	return sameNonNumber(a, b)
}

func sameNonNumber(a, b *Value) bool {
	switch a.Type {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.Bool == b.Bool
	case TypeString:
		return a.Str == b.Str
	case TypeBigInt:
		return a.BigInt.Cmp(b.BigInt) == 0
	case TypeSymbol:
		return a.Symbol == b.Symbol
	case TypeObject:
		return a.Object == b.Object
	}
	return false
}

// LooselyEquals implements IsLooselyEqual (==). Object operands are
// converted with ToPrimitive, which may run user code.
func LooselyEquals(a *Agent, x, y *Value) (bool, error) {
	if x.Type == y.Type || (x.IsNumber() && y.IsNumber()) {
		return StrictEquals(x, y), nil
	}
	if x.IsNullish() && y.IsNullish() {
		return true, nil
	}
	switch {
	case x.IsNumber() && y.IsString():
		return numberEqualsString(x.Float(), y.Str), nil
	case x.IsString() && y.IsNumber():
		return numberEqualsString(y.Float(), x.Str), nil
	case x.IsBigInt() && y.IsString():
		n, ok := StringToBigInt(y.Str)
		return ok && n.Cmp(x.BigInt) == 0, nil
	case x.IsString() && y.IsBigInt():
		return LooselyEquals(a, y, x)
	case x.IsBoolean():
		return LooselyEquals(a, boolToNumber(x), y)
	case y.IsBoolean():
		return LooselyEquals(a, x, boolToNumber(y))
	case (x.IsString() || x.IsNumber() || x.IsBigInt() || x.IsSymbol()) && y.IsObject():
		prim, err := y.ToPrimitive(a, HintDefault)
		if err != nil {
			return false, err
		}
		return LooselyEquals(a, x, prim)
	case x.IsObject() && (y.IsString() || y.IsNumber() || y.IsBigInt() || y.IsSymbol()):
		prim, err := x.ToPrimitive(a, HintDefault)
		if err != nil {
			return false, err
		}
		return LooselyEquals(a, prim, y)
	case x.IsBigInt() && y.IsNumber():
		return bigIntEqualsNumber(x.BigInt, y.Float()), nil
	case x.IsNumber() && y.IsBigInt():
		return bigIntEqualsNumber(y.BigInt, x.Float()), nil
	}
	return false, nil
}

func boolToNumber(v *Value) *Value {
	if v.Bool {
		return NewInt(1)
	}
	return Zero
}

func numberEqualsString(n float64, s string) bool {
	return n == StringToNumber(s)
}

func bigIntEqualsNumber(b *big.Int, n float64) bool {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return false
	}
	f := new(big.Float).SetInt(b)
	return f.Cmp(big.NewFloat(n)) == 0
}

// quoteJSString renders s as a double-quoted string literal for diagnostics.
func quoteJSString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
