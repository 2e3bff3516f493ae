package builtins

import (
	"math"
	"math/big"

	"github.com/example/jscore/runtime"
)

func createBigIntConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().BigIntPrototype
	setMethod(a, proto, "toString", 0, bigintToString)
	setMethod(a, proto, "toLocaleString", 0, bigintToString)
	setMethod(a, proto, "valueOf", 0, bigintValueOf)
	setToStringTag(proto, "BigInt")

	ctor := newConstructor(a, "BigInt", 1, proto, bigintConstructorCall)
	setMethod(a, ctor, "asIntN", 2, bigintAsN(true))
	setMethod(a, ctor, "asUintN", 2, bigintAsN(false))
	return ctor
}

func bigintConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if a.NewTarget() != nil {
		return nil, a.ThrowTypeError("BigInt is not a constructor")
	}
	prim, err := argAt(args, 0).ToPrimitive(a, runtime.HintNumber)
	if err != nil {
		return nil, err
	}
	if prim.IsNumber() {
		n := prim.Float()
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return nil, a.ThrowRangeError("The number %s cannot be converted to a BigInt because it is not an integer", runtime.NumberToString(n))
		}
		b, _ := big.NewFloat(n).Int(nil)
		return runtime.NewBigInt(b), nil
	}
	b, err := prim.ToBigInt(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewBigInt(b), nil
}

func thisBigIntValue(a *runtime.Agent, this *runtime.Value, method string) (*big.Int, error) {
	if this.IsBigInt() {
		return this.BigInt, nil
	}
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindBigInt {
		return o.Data().(*runtime.PrimitiveData).Value.BigInt, nil
	}
	return nil, a.ThrowTypeError("BigInt.prototype.%s requires that 'this' be a BigInt", method)
}

func bigintValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	b, err := thisBigIntValue(a, this, "valueOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewBigInt(b), nil
}

func bigintToString(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	b, err := thisBigIntValue(a, this, "toString")
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
	return runtime.NewString(b.Text(int(radix))), nil
}

// bigintAsN implements BigInt.asIntN and BigInt.asUintN.
func bigintAsN(signed bool) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		bits, err := argAt(args, 0).ToIndex(a)
		if err != nil {
			return nil, err
		}
		n, err := argAt(args, 1).ToBigInt(a)
		if err != nil {
			return nil, err
		}
		if bits == 0 {
			return runtime.NewBigInt(new(big.Int)), nil
		}
		mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		m := new(big.Int).Mod(n, mod)
		if signed && m.Cmp(new(big.Int).Rsh(mod, 1)) >= 0 {
			m.Sub(m, mod)
		}
		return runtime.NewBigInt(m), nil
	}
}
