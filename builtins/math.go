package builtins

import (
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/example/jscore/runtime"
)

var mathUnaryFuncs = []struct {
	name string
	fn   func(float64) float64
}{
	{"abs", math.Abs},
	{"ceil", math.Ceil},
	{"floor", math.Floor},
	{"round", jsRound},
	{"trunc", math.Trunc},
	{"sign", jsSign},
	{"sqrt", math.Sqrt},
	{"cbrt", math.Cbrt},
	{"log", math.Log},
	{"log2", math.Log2},
	{"log10", math.Log10},
	{"log1p", math.Log1p},
	{"exp", math.Exp},
	{"expm1", math.Expm1},
	{"sin", math.Sin},
	{"cos", math.Cos},
	{"tan", math.Tan},
	{"asin", math.Asin},
	{"acos", math.Acos},
	{"atan", math.Atan},
	{"sinh", math.Sinh},
	{"cosh", math.Cosh},
	{"tanh", math.Tanh},
	{"asinh", math.Asinh},
	{"acosh", math.Acosh},
	{"atanh", math.Atanh},
	{"fround", func(f float64) float64 { return float64(float32(f)) }},
}

func createMathObject(a *runtime.Agent) *runtime.Object {
	m := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)

	setConstant(m, "PI", runtime.NewNumber(math.Pi))
	setConstant(m, "E", runtime.NewNumber(math.E))
	setConstant(m, "LN2", runtime.NewNumber(math.Ln2))
	setConstant(m, "LN10", runtime.NewNumber(math.Ln10))
	setConstant(m, "LOG2E", runtime.NewNumber(math.Log2E))
	setConstant(m, "LOG10E", runtime.NewNumber(math.Log10E))
	setConstant(m, "SQRT2", runtime.NewNumber(math.Sqrt2))
	setConstant(m, "SQRT1_2", runtime.NewNumber(1/math.Sqrt2))

	for _, u := range mathUnaryFuncs {
		setMethod(a, m, u.name, 1, mathUnary(u.fn))
	}
	setMethod(a, m, "max", 2, mathExtremum(math.Inf(-1), math.Max))
	setMethod(a, m, "min", 2, mathExtremum(math.Inf(1), math.Min))
	setMethod(a, m, "pow", 2, mathBinary(jsPow))
	setMethod(a, m, "atan2", 2, mathBinary(math.Atan2))
	setMethod(a, m, "hypot", 2, mathHypot)
	setMethod(a, m, "random", 0, mathRandom)
	setMethod(a, m, "clz32", 1, mathClz32)
	setMethod(a, m, "imul", 2, mathImul)

	setToStringTag(m, "Math")
	return m
}

func mathUnary(fn func(float64) float64) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		n, err := argAt(args, 0).ToNumber(a)
		if err != nil {
			return nil, err
		}
		return runtime.NewNumber(fn(n)), nil
	}
}

func mathBinary(fn func(x, y float64) float64) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		x, err := argAt(args, 0).ToNumber(a)
		if err != nil {
			return nil, err
		}
		y, err := argAt(args, 1).ToNumber(a)
		if err != nil {
			return nil, err
		}
		return runtime.NewNumber(fn(x, y)), nil
	}
}

// mathExtremum coerces every argument before answering, so NaN does not
// skip the remaining conversions.
func mathExtremum(init float64, pick func(x, y float64) float64) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		result := init
		for _, arg := range args {
			n, err := arg.ToNumber(a)
			if err != nil {
				return nil, err
			}
			result = pick(result, n)
		}
		return runtime.NewNumber(result), nil
	}
}

// jsRound rounds half toward +Infinity and keeps -0 for (-0.5, -0].
func jsRound(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == math.Trunc(f) {
		return f
	}
	if f < 0 && f >= -0.5 {
		return math.Copysign(0, -1)
	}
	return math.Floor(f + 0.5)
}

func jsSign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return f
}

// jsPow differs from math.Pow where the base is ±1 and the exponent is
// not finite.
func jsPow(x, y float64) float64 {
	if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

func mathHypot(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	nums := make([]float64, len(args))
	for i, arg := range args {
		n, err := arg.ToNumber(a)
		if err != nil {
			return nil, err
		}
		nums[i] = n
	}
	sawNaN := false
	for _, n := range nums {
		if math.IsInf(n, 0) {
			return runtime.PosInf, nil
		}
		sawNaN = sawNaN || math.IsNaN(n)
	}
	if sawNaN {
		return runtime.NaN, nil
	}
	result := 0.0
	for _, n := range nums {
		result = math.Hypot(result, n)
	}
	return runtime.NewNumber(result), nil
}

func mathRandom(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
	return runtime.NewNumber(rand.Float64()), nil
}

func mathClz32(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	n, err := argAt(args, 0).ToUint32(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(bits.LeadingZeros32(n))), nil
}

func mathImul(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	x, err := argAt(args, 0).ToUint32(a)
	if err != nil {
		return nil, err
	}
	y, err := argAt(args, 1).ToUint32(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(int32(x * y))), nil
}
