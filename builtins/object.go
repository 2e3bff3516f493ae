package builtins

import (
	"github.com/example/jscore/runtime"
)

func createObjectConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().ObjectPrototype

	// Object.prototype methods
	setMethod(a, proto, "hasOwnProperty", 1, objectProtoHasOwnProperty)
	setMethod(a, proto, "toString", 0, objectProtoToString)
	setMethod(a, proto, "toLocaleString", 0, objectProtoToLocaleString)
	setMethod(a, proto, "valueOf", 0, objectProtoValueOf)
	setMethod(a, proto, "isPrototypeOf", 1, objectProtoIsPrototypeOf)
	setMethod(a, proto, "propertyIsEnumerable", 1, objectProtoPropertyIsEnumerable)
	runtime.DefineAccessor(proto, runtime.StringKey("__proto__"),
		a.NewNativeFunction("get __proto__", 0, objectProtoGetProto),
		a.NewNativeFunction("set __proto__", 1, objectProtoSetProto))

	// Object constructor
	ctor := newConstructor(a, "Object", 1, proto, objectConstructorCall)
	setMethod(a, ctor, "keys", 1, objectEnumerable(runtime.EnumKeys))
	setMethod(a, ctor, "values", 1, objectEnumerable(runtime.EnumValues))
	setMethod(a, ctor, "entries", 1, objectEnumerable(runtime.EnumEntries))
	setMethod(a, ctor, "fromEntries", 1, objectFromEntries)
	setMethod(a, ctor, "assign", 2, objectAssign)
	setMethod(a, ctor, "create", 2, objectCreate)
	setMethod(a, ctor, "defineProperty", 3, objectDefineProperty)
	setMethod(a, ctor, "defineProperties", 2, objectDefineProperties)
	setMethod(a, ctor, "getOwnPropertyDescriptor", 2, objectGetOwnPropertyDescriptor)
	setMethod(a, ctor, "getOwnPropertyDescriptors", 1, objectGetOwnPropertyDescriptors)
	setMethod(a, ctor, "getOwnPropertyNames", 1, objectOwnKeys(false))
	setMethod(a, ctor, "getOwnPropertySymbols", 1, objectOwnKeys(true))
	setMethod(a, ctor, "getPrototypeOf", 1, objectGetPrototypeOf)
	setMethod(a, ctor, "setPrototypeOf", 2, objectSetPrototypeOf)
	setMethod(a, ctor, "preventExtensions", 1, objectPreventExtensions)
	setMethod(a, ctor, "isExtensible", 1, objectIsExtensible)
	setMethod(a, ctor, "freeze", 1, objectSetIntegrity(runtime.Frozen))
	setMethod(a, ctor, "seal", 1, objectSetIntegrity(runtime.Sealed))
	setMethod(a, ctor, "isFrozen", 1, objectTestIntegrity(runtime.Frozen))
	setMethod(a, ctor, "isSealed", 1, objectTestIntegrity(runtime.Sealed))
	setMethod(a, ctor, "is", 2, objectIs)
	setMethod(a, ctor, "hasOwn", 2, objectHasOwn)
	return ctor
}

func objectConstructorCall(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if nt := a.NewTarget(); nt != nil && nt != a.Intrinsics().Object {
		o, err := runtime.OrdinaryCreateFromConstructor(a, nt, a.Intrinsics().ObjectPrototype, nil)
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(o), nil
	}
	arg := argAt(args, 0)
	if arg.IsNullish() {
		return runtime.NewObject(a.NewPlainObject()), nil
	}
	o, err := arg.ToObject(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(o), nil
}

func objectProtoHasOwnProperty(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	key, err := argAt(args, 0).ToPropertyKey(a)
	if err != nil {
		return nil, err
	}
	obj, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	ok, err := obj.HasOwnProperty(a, key)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}

// builtinTag is the class name Object.prototype.toString falls back to
// when an object carries no @@toStringTag.
func builtinTag(a *runtime.Agent, o *runtime.Object) (string, error) {
	isArray, err := runtime.IsArray(a, runtime.NewObject(o))
	if err != nil {
		return "", err
	}
	if isArray {
		return "Array", nil
	}
	switch o.Kind() {
	case runtime.KindArguments:
		return "Arguments", nil
	case runtime.KindError:
		return "Error", nil
	case runtime.KindBoolean:
		return "Boolean", nil
	case runtime.KindNumber:
		return "Number", nil
	case runtime.KindString:
		return "String", nil
	case runtime.KindDate:
		return "Date", nil
	case runtime.KindRegExp:
		return "RegExp", nil
	}
	if o.IsCallable() {
		return "Function", nil
	}
	return "Object", nil
}

func objectProtoToString(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	switch {
	case this.IsUndefined():
		return runtime.NewString("[object Undefined]"), nil
	case this.IsNull():
		return runtime.NewString("[object Null]"), nil
	}
	o, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	tag, err := builtinTag(a, o)
	if err != nil {
		return nil, err
	}
	ts, err := o.Get(a, runtime.SymbolKey(runtime.SymToStringTag))
	if err != nil {
		return nil, err
	}
	if ts.IsString() {
		tag = ts.Str
	}
	return runtime.NewString("[object " + tag + "]"), nil
}

func objectProtoToLocaleString(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return runtime.Invoke(a, this, runtime.StringKey("toString"), nil)
}

func objectProtoValueOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(o), nil
}

func objectProtoIsPrototypeOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	v := argAt(args, 0)
	if !v.IsObject() {
		return runtime.False, nil
	}
	obj, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	p := v.Object
	for {
		if p, err = p.GetPrototypeOf(a); err != nil {
			return nil, err
		}
		if p == nil {
			return runtime.False, nil
		}
		if p == obj {
			return runtime.True, nil
		}
	}
}

func objectProtoPropertyIsEnumerable(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	key, err := argAt(args, 0).ToPropertyKey(a)
	if err != nil {
		return nil, err
	}
	obj, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	desc, ok, err := obj.GetOwnProperty(a, key)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok && desc.Enumerable()), nil
}

func objectProtoGetProto(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	obj, err := this.ToObject(a)
	if err != nil {
		return nil, err
	}
	p, err := obj.GetPrototypeOf(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(p), nil
}

func objectProtoSetProto(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if err := runtime.RequireObjectCoercible(a, this); err != nil {
		return nil, err
	}
	proto := argAt(args, 0)
	if !this.IsObject() || (!proto.IsObject() && !proto.IsNull()) {
		return runtime.Undefined, nil
	}
	ok, err := this.Object.SetPrototypeOf(a, proto.AsObject())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.ThrowTypeError("Object.prototype.__proto__ setter failed")
	}
	return runtime.Undefined, nil
}

func objectEnumerable(kind runtime.EnumerableKind) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		obj, err := argAt(args, 0).ToObject(a)
		if err != nil {
			return nil, err
		}
		list, err := runtime.EnumerableOwnProperties(a, obj, kind)
		if err != nil {
			return nil, err
		}
		return a.NewArrayValue(list), nil
	}
}

func objectFromEntries(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	iterable := argAt(args, 0)
	if err := runtime.RequireObjectCoercible(a, iterable); err != nil {
		return nil, err
	}
	obj := a.NewPlainObject()
	err := iterate(a, iterable, func(entry *runtime.Value) error {
		if !entry.IsObject() {
			return a.ThrowTypeError("Iterator value %s is not an entry object", entry.String())
		}
		k, err := entry.Object.Get(a, runtime.IndexKey(0))
		if err != nil {
			return err
		}
		v, err := entry.Object.Get(a, runtime.IndexKey(1))
		if err != nil {
			return err
		}
		key, err := k.ToPropertyKey(a)
		if err != nil {
			return err
		}
		return runtime.CreateDataPropertyOrThrow(a, obj, key, v)
	})
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(obj), nil
}

func objectAssign(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	for _, src := range args[min(1, len(args)):] {
		if src.IsNullish() {
			continue
		}
		from, err := src.ToObject(a)
		if err != nil {
			return nil, err
		}
		keys, err := from.OwnPropertyKeys(a)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			desc, ok, err := from.GetOwnProperty(a, k)
			if err != nil {
				return nil, err
			}
			if !ok || !desc.Enumerable() {
				continue
			}
			v, err := from.Get(a, k)
			if err != nil {
				return nil, err
			}
			if err := target.Set(a, k, v, true); err != nil {
				return nil, err
			}
		}
	}
	return runtime.NewObject(target), nil
}

func objectCreate(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	proto := argAt(args, 0)
	if !proto.IsObject() && !proto.IsNull() {
		return nil, a.ThrowTypeError("Object prototype may only be an Object or null: %s", proto.String())
	}
	obj := runtime.NewOrdinaryObject(proto.AsObject())
	if props := argAt(args, 1); !props.IsUndefined() {
		if err := defineProperties(a, obj, props); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(obj), nil
}

func objectDefineProperty(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o := argAt(args, 0)
	if !o.IsObject() {
		return nil, a.ThrowTypeError("Object.defineProperty called on non-object")
	}
	key, err := argAt(args, 1).ToPropertyKey(a)
	if err != nil {
		return nil, err
	}
	desc, err := runtime.ToPropertyDescriptor(a, argAt(args, 2))
	if err != nil {
		return nil, err
	}
	if err := runtime.DefinePropertyOrThrow(a, o.Object, key, desc); err != nil {
		return nil, err
	}
	return o, nil
}

func objectDefineProperties(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o := argAt(args, 0)
	if !o.IsObject() {
		return nil, a.ThrowTypeError("Object.defineProperties called on non-object")
	}
	if err := defineProperties(a, o.Object, argAt(args, 1)); err != nil {
		return nil, err
	}
	return o, nil
}

// defineProperties reads every descriptor before defining any of them.
func defineProperties(a *runtime.Agent, o *runtime.Object, properties *runtime.Value) error {
	props, err := properties.ToObject(a)
	if err != nil {
		return err
	}
	keys, err := props.OwnPropertyKeys(a)
	if err != nil {
		return err
	}
	type pending struct {
		key  runtime.PropertyKey
		desc runtime.PropertyDescriptor
	}
	var list []pending
	for _, k := range keys {
		pd, ok, err := props.GetOwnProperty(a, k)
		if err != nil {
			return err
		}
		if !ok || !pd.Enumerable() {
			continue
		}
		dv, err := props.Get(a, k)
		if err != nil {
			return err
		}
		desc, err := runtime.ToPropertyDescriptor(a, dv)
		if err != nil {
			return err
		}
		list = append(list, pending{k, desc})
	}
	for _, p := range list {
		if err := runtime.DefinePropertyOrThrow(a, o, p.key, p.desc); err != nil {
			return err
		}
	}
	return nil
}

func objectGetOwnPropertyDescriptor(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	key, err := argAt(args, 1).ToPropertyKey(a)
	if err != nil {
		return nil, err
	}
	desc, ok, err := obj.GetOwnProperty(a, key)
	if err != nil || !ok {
		return runtime.Undefined, err
	}
	return runtime.FromPropertyDescriptor(a, desc), nil
}

func objectGetOwnPropertyDescriptors(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	keys, err := obj.OwnPropertyKeys(a)
	if err != nil {
		return nil, err
	}
	out := a.NewPlainObject()
	for _, k := range keys {
		desc, ok, err := obj.GetOwnProperty(a, k)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := runtime.CreateDataPropertyOrThrow(a, out, k, runtime.FromPropertyDescriptor(a, desc)); err != nil {
				return nil, err
			}
		}
	}
	return runtime.NewObject(out), nil
}

func objectOwnKeys(symbols bool) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		obj, err := argAt(args, 0).ToObject(a)
		if err != nil {
			return nil, err
		}
		keys, err := obj.OwnPropertyKeys(a)
		if err != nil {
			return nil, err
		}
		var out []*runtime.Value
		for _, k := range keys {
			if k.IsSymbol() == symbols {
				out = append(out, k.ToValue())
			}
		}
		return a.NewArrayValue(out), nil
	}
}

func objectGetPrototypeOf(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	p, err := obj.GetPrototypeOf(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(p), nil
}

func objectSetPrototypeOf(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o := argAt(args, 0)
	if err := runtime.RequireObjectCoercible(a, o); err != nil {
		return nil, err
	}
	proto := argAt(args, 1)
	if !proto.IsObject() && !proto.IsNull() {
		return nil, a.ThrowTypeError("Object prototype may only be an Object or null: %s", proto.String())
	}
	if !o.IsObject() {
		return o, nil
	}
	ok, err := o.Object.SetPrototypeOf(a, proto.AsObject())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.ThrowTypeError("Cannot set prototype of %s", describe(o))
	}
	return o, nil
}

func objectPreventExtensions(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o := argAt(args, 0)
	if !o.IsObject() {
		return o, nil
	}
	ok, err := o.Object.PreventExtensions(a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.ThrowTypeError("Cannot prevent extensions of %s", describe(o))
	}
	return o, nil
}

func objectIsExtensible(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o := argAt(args, 0)
	if !o.IsObject() {
		return runtime.False, nil
	}
	ok, err := o.Object.IsExtensible(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}

func objectSetIntegrity(level runtime.IntegrityLevel) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		o := argAt(args, 0)
		if !o.IsObject() {
			return o, nil
		}
		ok, err := runtime.SetIntegrityLevel(a, o.Object, level)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, a.ThrowTypeError("Cannot change the integrity level of %s", describe(o))
		}
		return o, nil
	}
}

func objectTestIntegrity(level runtime.IntegrityLevel) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		o := argAt(args, 0)
		if !o.IsObject() {
			return runtime.True, nil
		}
		ok, err := runtime.TestIntegrityLevel(a, o.Object, level)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(ok), nil
	}
}

func objectIs(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return runtime.NewBool(runtime.SameValue(argAt(args, 0), argAt(args, 1))), nil
}

func objectHasOwn(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	key, err := argAt(args, 1).ToPropertyKey(a)
	if err != nil {
		return nil, err
	}
	ok, err := obj.HasOwnProperty(a, key)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}
