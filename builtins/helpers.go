package builtins

import (
	"math"

	"github.com/example/jscore/runtime"
)

func setMethod(a *runtime.Agent, obj *runtime.Object, name string, length int, fn runtime.NativeFunction) *runtime.Object {
	f := a.NewNativeFunction(name, length, fn)
	runtime.DefineBuiltin(obj, runtime.StringKey(name), runtime.NewObject(f))
	return f
}

// setSymbolMethod installs fn under a well-known symbol, named "[Symbol.x]".
func setSymbolMethod(a *runtime.Agent, obj *runtime.Object, sym *runtime.Symbol, length int, fn runtime.NativeFunction) *runtime.Object {
	key := runtime.SymbolKey(sym)
	f := a.NewNativeFunction(key.FunctionName(), length, fn)
	runtime.DefineBuiltin(obj, key, runtime.NewObject(f))
	return f
}

func setGetter(a *runtime.Agent, obj *runtime.Object, key runtime.PropertyKey, fn runtime.NativeFunction) {
	getter := a.NewNativeFunction("get "+key.FunctionName(), 0, fn)
	runtime.DefineAccessor(obj, key, getter, nil)
}

func setDataProp(obj *runtime.Object, name string, val *runtime.Value) {
	runtime.DefineBuiltin(obj, runtime.StringKey(name), val)
}

func setConstant(obj *runtime.Object, name string, val *runtime.Value) {
	runtime.DefineConstant(obj, runtime.StringKey(name), val)
}

func setToStringTag(obj *runtime.Object, tag string) {
	runtime.DefineRaw(obj, runtime.SymbolKey(runtime.SymToStringTag), runtime.NewString(tag), runtime.AttrConfigurable)
}

// newConstructor creates a native constructor and links it with proto.
func newConstructor(a *runtime.Agent, name string, length int, proto *runtime.Object, fn runtime.NativeFunction) *runtime.Object {
	ctor := a.NewNativeConstructor(name, length, fn)
	if proto != nil {
		runtime.DefineConstant(ctor, runtime.StringKey("prototype"), runtime.NewObject(proto))
		runtime.DefineBuiltin(proto, runtime.StringKey("constructor"), runtime.NewObject(ctor))
	}
	return ctor
}

// setSpecies installs the get [Symbol.species] accessor returning this.
func setSpecies(a *runtime.Agent, ctor *runtime.Object) {
	setGetter(a, ctor, runtime.SymbolKey(runtime.SymSpecies), func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		return this, nil
	})
}

func argAt(args []*runtime.Value, i int) *runtime.Value {
	if i < len(args) {
		return args[i]
	}
	return runtime.Undefined
}

// callbackArg returns args[i] when it is callable and throws otherwise.
func callbackArg(a *runtime.Agent, args []*runtime.Value, i int) (*runtime.Value, error) {
	fn := argAt(args, i)
	if !fn.IsCallable() {
		return nil, a.ThrowTypeError("%s is not a function", describe(fn))
	}
	return fn, nil
}

// describe renders a value for error messages without running user code.
func describe(v *runtime.Value) string {
	switch {
	case v.IsString():
		return `"` + v.Str + `"`
	case v.IsObject():
		if v.IsCallable() {
			if name, err := runtime.FunctionName(v.Object); err == nil && name != "" {
				return "function " + name
			}
			return "function"
		}
		return "#<" + v.Object.Class() + ">"
	}
	return v.String()
}

// thisObject requires an object receiver for method name.
func thisObject(a *runtime.Agent, this *runtime.Value, method string) (*runtime.Object, error) {
	if !this.IsObject() {
		return nil, a.ThrowTypeError("%s called on non-object", method)
	}
	return this.Object, nil
}

// relativeIndex resolves a relative start/end argument against length.
// undefined yields def.
func relativeIndex(a *runtime.Agent, v *runtime.Value, length, def int64) (int64, error) {
	if v.IsUndefined() {
		return def, nil
	}
	rel, err := v.ToIntegerOrInfinity(a)
	if err != nil {
		return 0, err
	}
	return clampIndex(rel, length), nil
}

func clampIndex(rel float64, length int64) int64 {
	if rel < 0 {
		rel += float64(length)
		if rel < 0 {
			return 0
		}
		return int64(rel)
	}
	return int64(math.Min(rel, float64(length)))
}

func numberValue(n int64) *runtime.Value { return runtime.NewInt(n) }

// iterate calls fn with every value produced by the iterable v, closing
// the iterator when fn fails.
func iterate(a *runtime.Agent, v *runtime.Value, fn func(*runtime.Value) error) error {
	rec, err := runtime.GetIterator(a, v, false)
	if err != nil {
		return err
	}
	for {
		next, ok, err := rec.Step(a)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(next); err != nil {
			if !runtime.IsCatchable(err) {
				return err
			}
			return rec.Close(a, err)
		}
	}
}
