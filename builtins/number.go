package builtins

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/example/jscore/runtime"
)

func createNumberConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().NumberPrototype

	setMethod(a, proto, "toFixed", 1, numberToFixed)
	setMethod(a, proto, "toPrecision", 1, numberToPrecision)
	setMethod(a, proto, "toExponential", 1, numberToExponential)
	setMethod(a, proto, "toString", 1, numberToString)
	setMethod(a, proto, "toLocaleString", 0, numberToString)
	setMethod(a, proto, "valueOf", 0, numberValueOf)

	ctor := newConstructor(a, "Number", 1, proto, numberConstructorCall)
	setMethod(a, ctor, "isInteger", 1, numberIsInteger)
	setMethod(a, ctor, "isFinite", 1, numberIsFinite)
	setMethod(a, ctor, "isNaN", 1, numberIsNaN)
	setMethod(a, ctor, "isSafeInteger", 1, numberIsSafeInteger)

	setConstant(ctor, "EPSILON", runtime.NewNumber(math.Nextafter(1, 2)-1))
	setConstant(ctor, "MAX_SAFE_INTEGER", runtime.NewNumber(maxSafeInteger))
	setConstant(ctor, "MIN_SAFE_INTEGER", runtime.NewNumber(-maxSafeInteger))
	setConstant(ctor, "MAX_VALUE", runtime.NewNumber(math.MaxFloat64))
	setConstant(ctor, "MIN_VALUE", runtime.NewNumber(math.SmallestNonzeroFloat64))
	setConstant(ctor, "NaN", runtime.NaN)
	setConstant(ctor, "POSITIVE_INFINITY", runtime.PosInf)
	setConstant(ctor, "NEGATIVE_INFINITY", runtime.NegInf)
	return ctor
}

const maxSafeInteger = 1<<53 - 1

func numberConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	n := 0.0
	if len(args) > 0 {
		prim, err := args[0].ToNumeric(a)
		if err != nil {
			return nil, err
		}
		if prim.IsBigInt() {
			n, _ = new(big.Float).SetInt(prim.BigInt).Float64()
		} else {
			n = prim.Float()
		}
	}
	nt := a.NewTarget()
	if nt == nil {
		return runtime.NewNumber(n), nil
	}
	o, err := runtime.OrdinaryCreateFromConstructor(a, nt, a.Intrinsics().NumberPrototype,
		runtime.NewPrimitiveData(runtime.KindNumber, runtime.NewNumber(n)))
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(o), nil
}

func thisNumberValue(a *runtime.Agent, this *runtime.Value, method string) (float64, error) {
	if this.IsNumber() {
		return this.Float(), nil
	}
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindNumber {
		return o.Data().(*runtime.PrimitiveData).Value.Float(), nil
	}
	return 0, a.ThrowTypeError("Number.prototype.%s requires that 'this' be a Number", method)
}

func numberValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	n, err := thisNumberValue(a, this, "valueOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(n), nil
}

func numberToString(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	n, err := thisNumberValue(a, this, "toString")
	if err != nil {
		return nil, err
	}
	radix := 10.0
	if r := argAt(args, 0); !r.IsUndefined() {
		if radix, err = r.ToIntegerOrInfinity(a); err != nil {
			return nil, err
		}
	}
	if radix < 2 || radix > 36 {
		return nil, a.ThrowRangeError("toString() radix must be between 2 and 36")
	}
	if radix == 10 {
		return runtime.NewString(runtime.NumberToString(n)), nil
	}
	return runtime.NewString(runtime.NumberToStringRadix(n, int(radix))), nil
}

// fractionDigits reads the digits argument of toFixed and friends.
func fractionDigits(a *runtime.Agent, v *runtime.Value, lo float64, method string) (float64, error) {
	f, err := v.ToIntegerOrInfinity(a)
	if err != nil {
		return 0, err
	}
	if f < lo || f > 100 {
		return 0, a.ThrowRangeError("%s() argument must be between %d and 100", method, int(lo))
	}
	return f, nil
}

// roundHalfUp returns the integer nearest to |x| * 10^digits, picking the
// larger on an exact tie, as decimal digits.
func roundHalfUp(x float64, digits int) string {
	r := new(big.Rat).SetFloat64(math.Abs(x))
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)))
	r.Add(r, big.NewRat(1, 2))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	return q.String()
}

func numberToFixed(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	x, err := thisNumberValue(a, this, "toFixed")
	if err != nil {
		return nil, err
	}
	f, err := fractionDigits(a, argAt(args, 0), 0, "toFixed")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) >= 1e21 {
		return runtime.NewString(runtime.NumberToString(x)), nil
	}
	digits := int(f)
	m := roundHalfUp(x, digits)
	if digits > 0 {
		if len(m) <= digits {
			m = strings.Repeat("0", digits+1-len(m)) + m
		}
		m = m[:len(m)-digits] + "." + m[len(m)-digits:]
	}
	if x < 0 && strings.Trim(m, "0.") != "" {
		m = "-" + m
	}
	return runtime.NewString(m), nil
}

// jsExponent rewrites Go's e+05 exponent form to JavaScript's e+5.
func jsExponent(s string) string {
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + string(sign) + exp
}

func numberToExponential(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	x, err := thisNumberValue(a, this, "toExponential")
	if err != nil {
		return nil, err
	}
	fd := argAt(args, 0)
	f, err := fd.ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return runtime.NewString(runtime.NumberToString(x)), nil
	}
	if f < 0 || f > 100 {
		return nil, a.ThrowRangeError("toExponential() argument must be between 0 and 100")
	}
	prec := int(f)
	if fd.IsUndefined() {
		prec = -1
	}
	return runtime.NewString(jsExponent(strconv.FormatFloat(x, 'e', prec, 64))), nil
}

func numberToPrecision(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	x, err := thisNumberValue(a, this, "toPrecision")
	if err != nil {
		return nil, err
	}
	p := argAt(args, 0)
	if p.IsUndefined() {
		return runtime.NewString(runtime.NumberToString(x)), nil
	}
	prec, err := p.ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return runtime.NewString(runtime.NumberToString(x)), nil
	}
	if prec < 1 || prec > 100 {
		return nil, a.ThrowRangeError("toPrecision() argument must be between 1 and 100")
	}
	digits := int(prec)
	if x == 0 {
		s := "0"
		if digits > 1 {
			s += "." + strings.Repeat("0", digits-1)
		}
		return runtime.NewString(s), nil
	}
	e := strconv.FormatFloat(x, 'e', digits-1, 64)
	_, expPart, _ := strings.Cut(e, "e")
	exp, _ := strconv.Atoi(expPart)
	if exp < -6 || exp >= digits {
		return runtime.NewString(jsExponent(e)), nil
	}
	return runtime.NewString(strconv.FormatFloat(x, 'f', digits-1-exp, 64)), nil
}

func numberIsFinite(_ *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	v := argAt(args, 0)
	return runtime.NewBool(v.IsNumber() && !math.IsNaN(v.Float()) && !math.IsInf(v.Float(), 0)), nil
}

func numberIsNaN(_ *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	v := argAt(args, 0)
	return runtime.NewBool(v.IsNumber() && math.IsNaN(v.Float())), nil
}

func numberIsInteger(_ *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return runtime.NewBool(runtime.IsIntegralNumber(argAt(args, 0))), nil
}

func numberIsSafeInteger(_ *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	v := argAt(args, 0)
	return runtime.NewBool(runtime.IsIntegralNumber(v) && math.Abs(v.Float()) <= maxSafeInteger), nil
}
