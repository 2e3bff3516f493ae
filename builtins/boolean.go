package builtins

import (
	"github.com/example/jscore/runtime"
)

func createBooleanConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().BooleanPrototype
	setMethod(a, proto, "toString", 0, booleanToString)
	setMethod(a, proto, "valueOf", 0, booleanValueOf)
	return newConstructor(a, "Boolean", 1, proto, booleanConstructorCall)
}

func booleanConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	b := argAt(args, 0).ToBoolean()
	nt := a.NewTarget()
	if nt == nil {
		return runtime.NewBool(b), nil
	}
	o, err := runtime.OrdinaryCreateFromConstructor(a, nt, a.Intrinsics().BooleanPrototype,
		runtime.NewPrimitiveData(runtime.KindBoolean, runtime.NewBool(b)))
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(o), nil
}

func thisBooleanValue(a *runtime.Agent, this *runtime.Value, method string) (bool, error) {
	if this.IsBoolean() {
		return this.Bool, nil
	}
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindBoolean {
		return o.Data().(*runtime.PrimitiveData).Value.Bool, nil
	}
	return false, a.ThrowTypeError("Boolean.prototype.%s requires that 'this' be a Boolean", method)
}

func booleanToString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	b, err := thisBooleanValue(a, this, "toString")
	if err != nil {
		return nil, err
	}
	if b {
		return runtime.NewString("true"), nil
	}
	return runtime.NewString("false"), nil
}

func booleanValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	b, err := thisBooleanValue(a, this, "valueOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(b), nil
}
