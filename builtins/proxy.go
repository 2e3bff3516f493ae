package builtins

import (
	"github.com/example/jscore/runtime"
)

func createProxyConstructor(a *runtime.Agent) *runtime.Object {
	ctor := newConstructor(a, "Proxy", 2, nil, proxyConstructorCall)
	setMethod(a, ctor, "revocable", 2, proxyRevocable)
	return ctor
}

func proxyConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if a.NewTarget() == nil {
		return nil, a.ThrowTypeError("Constructor Proxy requires 'new'")
	}
	p, err := runtime.ProxyCreate(a, argAt(args, 0), argAt(args, 1))
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(p), nil
}

func proxyRevocable(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	p, err := runtime.ProxyCreate(a, argAt(args, 0), argAt(args, 1))
	if err != nil {
		return nil, err
	}
	revoke := a.NewNativeFunction("", 0, func(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
		if p != nil {
			p.Data().(*runtime.ProxyData).Revoke()
			p = nil
		}
		return runtime.Undefined, nil
	})
	result := a.NewPlainObject()
	if err := runtime.CreateDataPropertyOrThrow(a, result, runtime.StringKey("proxy"), runtime.NewObject(p)); err != nil {
		return nil, err
	}
	if err := runtime.CreateDataPropertyOrThrow(a, result, runtime.StringKey("revoke"), runtime.NewObject(revoke)); err != nil {
		return nil, err
	}
	return runtime.NewObject(result), nil
}

func createReflectObject(a *runtime.Agent) *runtime.Object {
	r := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)
	setMethod(a, r, "apply", 3, reflectApply)
	setMethod(a, r, "construct", 2, reflectConstruct)
	setMethod(a, r, "defineProperty", 3, reflectDefineProperty)
	setMethod(a, r, "deleteProperty", 2, reflectDeleteProperty)
	setMethod(a, r, "get", 2, reflectGet)
	setMethod(a, r, "getOwnPropertyDescriptor", 2, reflectGetOwnPropertyDescriptor)
	setMethod(a, r, "getPrototypeOf", 1, reflectGetPrototypeOf)
	setMethod(a, r, "has", 2, reflectHas)
	setMethod(a, r, "isExtensible", 1, reflectIsExtensible)
	setMethod(a, r, "ownKeys", 1, reflectOwnKeys)
	setMethod(a, r, "preventExtensions", 1, reflectPreventExtensions)
	setMethod(a, r, "set", 3, reflectSet)
	setMethod(a, r, "setPrototypeOf", 2, reflectSetPrototypeOf)
	setToStringTag(r, "Reflect")
	return r
}

func reflectTarget(a *runtime.Agent, args []*runtime.Value, method string) (*runtime.Object, error) {
	t := argAt(args, 0)
	if !t.IsObject() {
		return nil, a.ThrowTypeError("Reflect.%s called on non-object", method)
	}
	return t.Object, nil
}

// reflectTargetKey reads the (target, propertyKey) prologue.
func reflectTargetKey(a *runtime.Agent, args []*runtime.Value, method string) (*runtime.Object, runtime.PropertyKey, error) {
	t, err := reflectTarget(a, args, method)
	if err != nil {
		return nil, runtime.PropertyKey{}, err
	}
	key, err := argAt(args, 1).ToPropertyKey(a)
	return t, key, err
}

func reflectApply(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	fn := argAt(args, 0)
	if !fn.IsCallable() {
		return nil, a.ThrowTypeError("Function.prototype.apply was called on %s, which is not a function", describe(fn))
	}
	list, err := runtime.CreateListFromArrayLike(a, argAt(args, 2))
	if err != nil {
		return nil, err
	}
	return a.Call(fn, argAt(args, 1), list)
}

func reflectConstruct(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target := argAt(args, 0)
	if !target.IsConstructor() {
		return nil, a.ThrowTypeError("%s is not a constructor", describe(target))
	}
	newTarget := target
	if len(args) > 2 {
		newTarget = args[2]
		if !newTarget.IsConstructor() {
			return nil, a.ThrowTypeError("%s is not a constructor", describe(newTarget))
		}
	}
	list, err := runtime.CreateListFromArrayLike(a, argAt(args, 1))
	if err != nil {
		return nil, err
	}
	o, err := a.Construct(target, list, newTarget)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(o), nil
}

func reflectDefineProperty(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "defineProperty")
	if err != nil {
		return nil, err
	}
	desc, err := runtime.ToPropertyDescriptor(a, argAt(args, 2))
	if err != nil {
		return nil, err
	}
	ok, err := t.DefineOwnProperty(a, key, desc)
	return runtime.NewBool(ok), err
}

func reflectDeleteProperty(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "deleteProperty")
	if err != nil {
		return nil, err
	}
	ok, err := t.Delete(a, key)
	return runtime.NewBool(ok), err
}

func reflectGet(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "get")
	if err != nil {
		return nil, err
	}
	receiver := runtime.NewObject(t)
	if len(args) > 2 {
		receiver = args[2]
	}
	return t.GetWithReceiver(a, key, receiver)
}

func reflectSet(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "set")
	if err != nil {
		return nil, err
	}
	receiver := runtime.NewObject(t)
	if len(args) > 3 {
		receiver = args[3]
	}
	ok, err := t.SetWithReceiver(a, key, argAt(args, 2), receiver)
	return runtime.NewBool(ok), err
}

func reflectGetOwnPropertyDescriptor(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "getOwnPropertyDescriptor")
	if err != nil {
		return nil, err
	}
	desc, ok, err := t.GetOwnProperty(a, key)
	if err != nil || !ok {
		return runtime.Undefined, err
	}
	return runtime.FromPropertyDescriptor(a, desc), nil
}

func reflectGetPrototypeOf(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, err := reflectTarget(a, args, "getPrototypeOf")
	if err != nil {
		return nil, err
	}
	proto, err := t.GetPrototypeOf(a)
	if err != nil || proto == nil {
		return runtime.Null, err
	}
	return runtime.NewObject(proto), nil
}

func reflectSetPrototypeOf(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, err := reflectTarget(a, args, "setPrototypeOf")
	if err != nil {
		return nil, err
	}
	p := argAt(args, 1)
	if !p.IsObject() && !p.IsNull() {
		return nil, a.ThrowTypeError("Object prototype may only be an Object or null: %s", describe(p))
	}
	ok, err := t.SetPrototypeOf(a, p.AsObject())
	return runtime.NewBool(ok), err
}

func reflectHas(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, key, err := reflectTargetKey(a, args, "has")
	if err != nil {
		return nil, err
	}
	ok, err := t.HasProperty(a, key)
	return runtime.NewBool(ok), err
}

func reflectIsExtensible(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, err := reflectTarget(a, args, "isExtensible")
	if err != nil {
		return nil, err
	}
	ok, err := t.IsExtensible(a)
	return runtime.NewBool(ok), err
}

func reflectPreventExtensions(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, err := reflectTarget(a, args, "preventExtensions")
	if err != nil {
		return nil, err
	}
	ok, err := t.PreventExtensions(a)
	return runtime.NewBool(ok), err
}

func reflectOwnKeys(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t, err := reflectTarget(a, args, "ownKeys")
	if err != nil {
		return nil, err
	}
	keys, err := t.OwnPropertyKeys(a)
	if err != nil {
		return nil, err
	}
	vals := make([]*runtime.Value, len(keys))
	for i, k := range keys {
		vals[i] = k.ToValue()
	}
	return a.NewArrayValue(vals), nil
}
