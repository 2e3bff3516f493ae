package builtins

import (
	"maps"
	"slices"

	"github.com/example/jscore/runtime"
)

func createSymbolConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().SymbolPrototype
	setMethod(a, proto, "toString", 0, symbolToString)
	setMethod(a, proto, "valueOf", 0, symbolValueOf)
	setGetter(a, proto, runtime.StringKey("description"), symbolDescription)
	toPrim := a.NewNativeFunction("[Symbol.toPrimitive]", 1, symbolValueOf)
	runtime.DefineRaw(proto, runtime.SymbolKey(runtime.SymToPrimitive), runtime.NewObject(toPrim), runtime.AttrConfigurable)
	setToStringTag(proto, "Symbol")

	ctor := newConstructor(a, "Symbol", 0, proto, symbolConstructorCall)
	setMethod(a, ctor, "for", 1, symbolFor)
	setMethod(a, ctor, "keyFor", 1, symbolKeyFor)
	for _, name := range slices.Sorted(maps.Keys(runtime.WellKnownSymbols)) {
		setConstant(ctor, name, runtime.NewSymbolValue(runtime.WellKnownSymbols[name]))
	}
	return ctor
}

func symbolConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if a.NewTarget() != nil {
		return nil, a.ThrowTypeError("Symbol is not a constructor")
	}
	desc := argAt(args, 0)
	if desc.IsUndefined() {
		return runtime.NewSymbolValue(runtime.NewAnonymousSymbol()), nil
	}
	s, err := desc.ToString(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewSymbolValue(runtime.NewSymbol(s)), nil
}

func thisSymbolValue(a *runtime.Agent, this *runtime.Value, method string) (*runtime.Symbol, error) {
	if this.IsSymbol() {
		return this.Symbol, nil
	}
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindSymbol {
		return o.Data().(*runtime.PrimitiveData).Value.Symbol, nil
	}
	return nil, a.ThrowTypeError("Symbol.prototype.%s requires that 'this' be a Symbol", method)
}

func symbolToString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSymbolValue(a, this, "toString")
	if err != nil {
		return nil, err
	}
	return runtime.NewString(s.String()), nil
}

func symbolValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSymbolValue(a, this, "valueOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewSymbolValue(s), nil
}

func symbolDescription(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisSymbolValue(a, this, "description")
	if err != nil {
		return nil, err
	}
	if d, ok := s.Description(); ok {
		return runtime.NewString(d), nil
	}
	return runtime.Undefined, nil
}

func symbolFor(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	key, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewSymbolValue(a.SymbolFor(key)), nil
}

func symbolKeyFor(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	v := argAt(args, 0)
	if !v.IsSymbol() {
		return nil, a.ThrowTypeError("%s is not a symbol", describe(v))
	}
	if key, ok := a.SymbolKeyFor(v.Symbol); ok {
		return runtime.NewString(key), nil
	}
	return runtime.Undefined, nil
}
