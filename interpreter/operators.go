package interpreter

import (
	"math"
	"math/big"

	"github.com/dop251/goja/token"

	"github.com/example/jscore/runtime"
)

// binaryOp applies a non-short-circuiting binary operator to evaluated
// operands.
func (f *frame) binaryOp(op token.Token, l, r *runtime.Value) (*runtime.Value, error) {
	a := f.a
	switch op {
	case token.PLUS:
		return addValues(a, l, r)
	case token.EQUAL, token.NOT_EQUAL:
		eq, err := runtime.LooselyEquals(a, l, r)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(eq == (op == token.EQUAL)), nil
	case token.STRICT_EQUAL:
		return runtime.NewBool(runtime.StrictEquals(l, r)), nil
	case token.STRICT_NOT_EQUAL:
		return runtime.NewBool(!runtime.StrictEquals(l, r)), nil
	case token.LESS:
		return relational(a, l, r, true, false)
	case token.GREATER:
		return relational(a, r, l, false, false)
	case token.LESS_OR_EQUAL:
		return relational(a, r, l, false, true)
	case token.GREATER_OR_EQUAL:
		return relational(a, l, r, true, true)
	case token.INSTANCEOF:
		ok, err := runtime.InstanceofOperator(a, l, r)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(ok), nil
	case token.IN:
		o := r.AsObject()
		if o == nil {
			return nil, a.ThrowTypeError("Cannot use 'in' operator to search for '%s' in %s", describeKey(l), r.String())
		}
		key, err := l.ToPropertyKey(a)
		if err != nil {
			return nil, err
		}
		ok, err := o.HasProperty(a, key)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(ok), nil
	}
	return numericOp(a, op, l, r)
}

// addValues implements the + operator.
func addValues(a *runtime.Agent, l, r *runtime.Value) (*runtime.Value, error) {
	if l.Type == runtime.TypeInteger && r.Type == runtime.TypeInteger {
		return runtime.NewInt(int64(l.Int) + int64(r.Int)), nil
	}
	lp, err := l.ToPrimitive(a, runtime.HintDefault)
	if err != nil {
		return nil, err
	}
	rp, err := r.ToPrimitive(a, runtime.HintDefault)
	if err != nil {
		return nil, err
	}
	if lp.IsString() || rp.IsString() {
		ls, err := lp.ToString(a)
		if err != nil {
			return nil, err
		}
		rs, err := rp.ToString(a)
		if err != nil {
			return nil, err
		}
		return runtime.NewString(ls + rs), nil
	}
	return numericOp(a, token.PLUS, lp, rp)
}

// numericOp applies an arithmetic, bitwise or shift operator after
// ToNumeric conversion of both operands.
func numericOp(a *runtime.Agent, op token.Token, l, r *runtime.Value) (*runtime.Value, error) {
	ln, err := l.ToNumeric(a)
	if err != nil {
		return nil, err
	}
	rn, err := r.ToNumeric(a)
	if err != nil {
		return nil, err
	}
	if ln.IsBigInt() || rn.IsBigInt() {
		if !ln.IsBigInt() || !rn.IsBigInt() {
			return nil, a.ThrowTypeError("Cannot mix BigInt and other types, use explicit conversions")
		}
		return bigIntOp(a, op, ln.BigInt, rn.BigInt)
	}
	x, y := ln.Float(), rn.Float()
	switch op {
	case token.PLUS:
		return runtime.NewNumber(x + y), nil
	case token.MINUS:
		return runtime.NewNumber(x - y), nil
	case token.MULTIPLY:
		return runtime.NewNumber(x * y), nil
	case token.SLASH:
		return runtime.NewNumber(x / y), nil
	case token.REMAINDER:
		return runtime.NewNumber(jsRemainder(x, y)), nil
	case token.EXPONENT:
		return runtime.NewNumber(jsPow(x, y)), nil
	case token.AND:
		return runtime.NewInt(int64(runtime.Int32(x) & runtime.Int32(y))), nil
	case token.OR:
		return runtime.NewInt(int64(runtime.Int32(x) | runtime.Int32(y))), nil
	case token.EXCLUSIVE_OR:
		return runtime.NewInt(int64(runtime.Int32(x) ^ runtime.Int32(y))), nil
	case token.SHIFT_LEFT:
		return runtime.NewInt(int64(runtime.Int32(x) << (runtime.Uint32(y) & 31))), nil
	case token.SHIFT_RIGHT:
		return runtime.NewInt(int64(runtime.Int32(x) >> (runtime.Uint32(y) & 31))), nil
	case token.UNSIGNED_SHIFT_RIGHT:
		return runtime.NewNumber(float64(runtime.Uint32(x) >> (runtime.Uint32(y) & 31))), nil
	}
	return nil, a.ThrowSyntaxError("unsupported operator %s", op.String())
}

func jsRemainder(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || y == 0 {
		return math.NaN()
	}
	if math.IsInf(y, 0) || x == 0 {
		return x
	}
	return math.Mod(x, y)
}

func jsPow(x, y float64) float64 {
	if math.IsNaN(y) {
		return math.NaN()
	}
	if (x == 1 || x == -1) && math.IsInf(y, 0) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

func bigIntOp(a *runtime.Agent, op token.Token, x, y *big.Int) (*runtime.Value, error) {
	z := new(big.Int)
	switch op {
	case token.PLUS:
		z.Add(x, y)
	case token.MINUS:
		z.Sub(x, y)
	case token.MULTIPLY:
		z.Mul(x, y)
	case token.SLASH:
		if y.Sign() == 0 {
			return nil, a.ThrowRangeError("Division by zero")
		}
		z.Quo(x, y)
	case token.REMAINDER:
		if y.Sign() == 0 {
			return nil, a.ThrowRangeError("Division by zero")
		}
		z.Rem(x, y)
	case token.EXPONENT:
		if y.Sign() < 0 {
			return nil, a.ThrowRangeError("Exponent must be non-negative")
		}
		if !y.IsInt64() || y.Int64() > 1<<20 {
			return nil, a.ThrowRangeError("Maximum BigInt size exceeded")
		}
		z.Exp(x, y, nil)
	case token.AND:
		z.And(x, y)
	case token.OR:
		z.Or(x, y)
	case token.EXCLUSIVE_OR:
		z.Xor(x, y)
	case token.SHIFT_LEFT, token.SHIFT_RIGHT:
		if !y.IsInt64() || y.Int64() > 1<<30 || y.Int64() < -(1<<30) {
			return nil, a.ThrowRangeError("Maximum BigInt size exceeded")
		}
		n := y.Int64()
		if op == token.SHIFT_RIGHT {
			n = -n
		}
		if n >= 0 {
			z.Lsh(x, uint(n))
		} else {
			z.Rsh(x, uint(-n))
		}
	case token.UNSIGNED_SHIFT_RIGHT:
		return nil, a.ThrowTypeError("BigInts have no unsigned right shift, use >> instead")
	default:
		return nil, a.ThrowSyntaxError("unsupported operator %s", op.String())
	}
	return runtime.NewBigInt(z), nil
}

// relational evaluates x < y, or its negation when orEqual is set, with
// leftFirst selecting the ToPrimitive order. Undefined results are false.
func relational(a *runtime.Agent, x, y *runtime.Value, leftFirst, orEqual bool) (*runtime.Value, error) {
	var px, py *runtime.Value
	var err error
	if leftFirst {
		if px, err = x.ToPrimitive(a, runtime.HintNumber); err != nil {
			return nil, err
		}
		if py, err = y.ToPrimitive(a, runtime.HintNumber); err != nil {
			return nil, err
		}
	} else {
		if py, err = y.ToPrimitive(a, runtime.HintNumber); err != nil {
			return nil, err
		}
		if px, err = x.ToPrimitive(a, runtime.HintNumber); err != nil {
			return nil, err
		}
	}
	less, defined, err := lessThan(a, px, py)
	if err != nil {
		return nil, err
	}
	if !defined {
		return runtime.False, nil
	}
	if orEqual {
		return runtime.NewBool(!less), nil
	}
	return runtime.NewBool(less), nil
}

// lessThan is IsLessThan over primitives. defined is false when either side
// is NaN.
func lessThan(a *runtime.Agent, px, py *runtime.Value) (less, defined bool, err error) {
	if px.IsString() && py.IsString() {
		return compareUTF16(px.Str, py.Str) < 0, true, nil
	}
	if px.IsBigInt() && py.IsString() {
		n, ok := runtime.StringToBigInt(py.Str)
		if !ok {
			return false, false, nil
		}
		return px.BigInt.Cmp(n) < 0, true, nil
	}
	if px.IsString() && py.IsBigInt() {
		n, ok := runtime.StringToBigInt(px.Str)
		if !ok {
			return false, false, nil
		}
		return n.Cmp(py.BigInt) < 0, true, nil
	}
	nx, err := px.ToNumeric(a)
	if err != nil {
		return false, false, err
	}
	ny, err := py.ToNumeric(a)
	if err != nil {
		return false, false, err
	}
	switch {
	case nx.IsBigInt() && ny.IsBigInt():
		return nx.BigInt.Cmp(ny.BigInt) < 0, true, nil
	case nx.IsBigInt():
		return compareBigFloat(nx.BigInt, ny.Float())
	case ny.IsBigInt():
		return compareBigFloatGreater(ny.BigInt, nx.Float())
	}
	x, y := nx.Float(), ny.Float()
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, false, nil
	}
	return x < y, true, nil
}

// compareBigFloat reports b < n.
func compareBigFloat(b *big.Int, n float64) (bool, bool, error) {
	if math.IsNaN(n) {
		return false, false, nil
	}
	if math.IsInf(n, 0) {
		return n > 0, true, nil
	}
	bf := new(big.Float).SetInt(b)
	return bf.Cmp(big.NewFloat(n)) < 0, true, nil
}

// compareBigFloatGreater reports b > n.
func compareBigFloatGreater(b *big.Int, n float64) (bool, bool, error) {
	if math.IsNaN(n) {
		return false, false, nil
	}
	if math.IsInf(n, 0) {
		return n < 0, true, nil
	}
	bf := new(big.Float).SetInt(b)
	return bf.Cmp(big.NewFloat(n)) > 0, true, nil
}

// compareUTF16 orders strings by UTF-16 code units.
func compareUTF16(x, y string) int {
	ux, uy := runtime.UTF16Units(x), runtime.UTF16Units(y)
	for i := 0; i < len(ux) && i < len(uy); i++ {
		if ux[i] != uy[i] {
			if ux[i] < uy[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ux) < len(uy):
		return -1
	case len(ux) > len(uy):
		return 1
	}
	return 0
}

// increment adds delta to a numeric value.
func increment(v *runtime.Value, delta int64) *runtime.Value {
	if v.IsBigInt() {
		return runtime.NewBigInt(new(big.Int).Add(v.BigInt, big.NewInt(delta)))
	}
	if v.Type == runtime.TypeInteger {
		return runtime.NewInt(int64(v.Int) + delta)
	}
	return runtime.NewNumber(v.Float() + float64(delta))
}

// unaryOp applies -, +, ~ and !.
func unaryOp(a *runtime.Agent, op token.Token, v *runtime.Value) (*runtime.Value, error) {
	switch op {
	case token.NOT:
		return runtime.NewBool(!v.ToBoolean()), nil
	case token.PLUS:
		n, err := v.ToNumber(a)
		if err != nil {
			return nil, err
		}
		return runtime.NewNumber(n), nil
	case token.MINUS:
		n, err := v.ToNumeric(a)
		if err != nil {
			return nil, err
		}
		if n.IsBigInt() {
			return runtime.NewBigInt(new(big.Int).Neg(n.BigInt)), nil
		}
		if n.Type == runtime.TypeInteger && n.Int != 0 {
			return runtime.NewInt(-int64(n.Int)), nil
		}
		return runtime.NewNumber(-n.Float()), nil
	case token.BITWISE_NOT:
		n, err := v.ToNumeric(a)
		if err != nil {
			return nil, err
		}
		if n.IsBigInt() {
			return runtime.NewBigInt(new(big.Int).Not(n.BigInt)), nil
		}
		return runtime.NewInt(int64(^runtime.Int32(n.Float()))), nil
	}
	return nil, a.ThrowSyntaxError("unsupported operator %s", op.String())
}
