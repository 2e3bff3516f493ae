package runtime

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ProxyData is the payload of a proxy exotic object. Revocation clears
// both fields.
type ProxyData struct {
	Target  *Object
	Handler *Object
}

func (*ProxyData) Kind() ObjectKind { return KindProxy }

func (d *ProxyData) revoked() bool { return d.Handler == nil }

// Revoke detaches the proxy from its target and handler.
func (d *ProxyData) Revoke() {
	d.Target = nil
	d.Handler = nil
}

func proxyMethodsFor(d *ProxyData) *InternalMethods {
	switch {
	case d.Target == nil:
		return proxyMethods
	case d.Target.IsConstructor():
		return proxyConstructorMethods
	case d.Target.IsCallable():
		return proxyCallableMethods
	}
	return proxyMethods
}

// ProxyCreate creates a proxy for target with the given handler.
func ProxyCreate(a *Agent, target, handler *Value) (*Object, error) {
	t, h := target.AsObject(), handler.AsObject()
	if t == nil || h == nil {
		return nil, a.ThrowTypeError("Cannot create proxy with a non-object as target or handler")
	}
	return NewObjectWithData(nil, &ProxyData{Target: t, Handler: h}), nil
}

// proxyTrap validates the proxy and fetches the named trap. A nil trap
// means the operation forwards to the target.
func proxyTrap(a *Agent, o *Object, name string) (*ProxyData, *Value, error) {
	d := o.data.(*ProxyData)
	if d.revoked() {
		return nil, nil, a.ThrowTypeError("Cannot perform '%s' on a proxy that has been revoked", name)
	}
	trap, err := GetMethod(a, NewObject(d.Handler), StringKey(name))
	if err != nil {
		return nil, nil, err
	}
	return d, trap, nil
}

// callTrap invokes trap with the handler as receiver. Proxy chains recurse
// through here, so the call depth bounds them.
func callTrap(a *Agent, d *ProxyData, trap *Value, args ...*Value) (*Value, error) {
	if err := a.enterCall(); err != nil {
		return nil, err
	}
	defer a.exitCall()
	return a.Call(trap, NewObject(d.Handler), args)
}

func proxyGetPrototypeOf(a *Agent, o *Object) (*Object, error) {
	d, trap, err := proxyTrap(a, o, "getPrototypeOf")
	if err != nil {
		return nil, err
	}
	if trap == nil {
		return forward(a, func() (*Object, error) { return d.Target.GetPrototypeOf(a) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target))
	if err != nil {
		return nil, err
	}
	if !v.IsObject() && !v.IsNull() {
		return nil, a.ThrowTypeError("'getPrototypeOf' on proxy: trap returned neither object nor null")
	}
	proto := v.AsObject()
	extensible, err := d.Target.IsExtensible(a)
	if err != nil || extensible {
		return proto, err
	}
	targetProto, err := d.Target.GetPrototypeOf(a)
	if err != nil {
		return nil, err
	}
	if targetProto != proto {
		return nil, a.ThrowTypeError("'getPrototypeOf' on proxy: proxy target is non-extensible but the trap did not return its actual prototype")
	}
	return proto, nil
}

// forward runs a target operation under the call depth bound.
func forward[T any](a *Agent, fn func() (T, error)) (T, error) {
	if err := a.enterCall(); err != nil {
		var zero T
		return zero, err
	}
	defer a.exitCall()
	return fn()
}

func proxySetPrototypeOf(a *Agent, o *Object, proto *Object) (bool, error) {
	d, trap, err := proxyTrap(a, o, "setPrototypeOf")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.SetPrototypeOf(a, proto) })
	}
	protoValue := Null
	if proto != nil {
		protoValue = NewObject(proto)
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), protoValue)
	if err != nil || !v.ToBoolean() {
		return false, err
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil || extensible {
		return true, err
	}
	targetProto, err := d.Target.GetPrototypeOf(a)
	if err != nil {
		return false, err
	}
	if targetProto != proto {
		return false, a.ThrowTypeError("'setPrototypeOf' on proxy: trap returned truish for setting a new prototype on the non-extensible proxy target")
	}
	return true, nil
}

func proxyIsExtensible(a *Agent, o *Object) (bool, error) {
	d, trap, err := proxyTrap(a, o, "isExtensible")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.IsExtensible(a) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target))
	if err != nil {
		return false, err
	}
	result := v.ToBoolean()
	target, err := d.Target.IsExtensible(a)
	if err != nil {
		return false, err
	}
	if result != target {
		return false, a.ThrowTypeError("'isExtensible' on proxy: trap result does not reflect extensibility of proxy target (which is '%t')", target)
	}
	return result, nil
}

func proxyPreventExtensions(a *Agent, o *Object) (bool, error) {
	d, trap, err := proxyTrap(a, o, "preventExtensions")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.PreventExtensions(a) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target))
	if err != nil || !v.ToBoolean() {
		return false, err
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return false, err
	}
	if extensible {
		return false, a.ThrowTypeError("'preventExtensions' on proxy: trap returned truish but the proxy target is extensible")
	}
	return true, nil
}

func proxyGetOwnProperty(a *Agent, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	d, trap, err := proxyTrap(a, o, "getOwnPropertyDescriptor")
	if err != nil {
		return PropertyDescriptor{}, false, err
	}
	if trap == nil {
		if err := a.enterCall(); err != nil {
			return PropertyDescriptor{}, false, err
		}
		defer a.exitCall()
		return d.Target.GetOwnProperty(a, key)
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue())
	if err != nil {
		return PropertyDescriptor{}, false, err
	}
	if !v.IsObject() && !v.IsUndefined() {
		return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap returned neither object nor undefined for property '%s'", key)
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil {
		return PropertyDescriptor{}, false, err
	}
	if v.IsUndefined() {
		if !exists {
			return PropertyDescriptor{}, false, nil
		}
		if !targetDesc.Configurable() {
			return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which is non-configurable in the proxy target", key)
		}
		extensible, err := d.Target.IsExtensible(a)
		if err != nil {
			return PropertyDescriptor{}, false, err
		}
		if !extensible {
			return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which exists in the non-extensible proxy target", key)
		}
		return PropertyDescriptor{}, false, nil
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return PropertyDescriptor{}, false, err
	}
	desc, err := ToPropertyDescriptor(a, v)
	if err != nil {
		return PropertyDescriptor{}, false, err
	}
	desc = desc.Complete()
	if !IsCompatiblePropertyDescriptor(extensible, desc, targetDesc, exists) {
		return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap returned descriptor for property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if !desc.Configurable() {
		if !exists || targetDesc.Configurable() {
			return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurability for property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		if desc.HasWritable() && !desc.Writable() && targetDesc.Writable() {
			return PropertyDescriptor{}, false, a.ThrowTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurable and writable for property '%s' which is non-configurable, non-writable in the proxy target", key)
		}
	}
	return desc, true, nil
}

func proxyDefineOwnProperty(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	d, trap, err := proxyTrap(a, o, "defineProperty")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.DefineOwnProperty(a, key, desc) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue(), FromPropertyDescriptor(a, desc))
	if err != nil || !v.ToBoolean() {
		return false, err
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil {
		return false, err
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return false, err
	}
	settingConfigFalse := desc.HasConfigurable() && !desc.Configurable()
	if !exists {
		if !extensible {
			return false, a.ThrowTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s'  to the non-extensible proxy target", key)
		}
		if settingConfigFalse {
			return false, a.ThrowTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		return true, nil
	}
	if !IsCompatiblePropertyDescriptor(extensible, desc, targetDesc, true) {
		return false, a.ThrowTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s'  that is incompatible with the existing property in the proxy target", key)
	}
	if settingConfigFalse && targetDesc.Configurable() {
		return false, a.ThrowTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is either non-existent or configurable in the proxy target", key)
	}
	if targetDesc.IsDataDescriptor() && !targetDesc.Configurable() && targetDesc.Writable() &&
		desc.HasWritable() && !desc.Writable() {
		return false, a.ThrowTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which cannot be non-writable, unless there exists a corresponding non-configurable, non-writable own property of the target object", key)
	}
	return true, nil
}

func proxyHasProperty(a *Agent, o *Object, key PropertyKey) (bool, error) {
	d, trap, err := proxyTrap(a, o, "has")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.HasProperty(a, key) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue())
	if err != nil {
		return false, err
	}
	if v.ToBoolean() {
		return true, nil
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil || !exists {
		return false, err
	}
	if !targetDesc.Configurable() {
		return false, a.ThrowTypeError("'has' on proxy: trap returned falsish for property '%s' which exists in the proxy target as non-configurable", key)
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return false, err
	}
	if !extensible {
		return false, a.ThrowTypeError("'has' on proxy: trap returned falsish for property '%s' but the proxy target is not extensible", key)
	}
	return false, nil
}

func proxyGet(a *Agent, o *Object, key PropertyKey, receiver *Value) (*Value, error) {
	d, trap, err := proxyTrap(a, o, "get")
	if err != nil {
		return nil, err
	}
	if trap == nil {
		return forward(a, func() (*Value, error) { return d.Target.GetWithReceiver(a, key, receiver) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue(), receiver)
	if err != nil {
		return nil, err
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil {
		return nil, err
	}
	if exists && !targetDesc.Configurable() {
		if targetDesc.IsDataDescriptor() && !targetDesc.Writable() && !SameValue(v, targetDesc.Value()) {
			return nil, a.ThrowTypeError("'get' on proxy: property '%s' is a read-only and non-configurable data property on the proxy target but the proxy did not return its actual value", key)
		}
		if targetDesc.IsAccessorDescriptor() && targetDesc.Get().IsUndefined() && !v.IsUndefined() {
			return nil, a.ThrowTypeError("'get' on proxy: property '%s' is a non-configurable accessor property on the proxy target and does not have a getter function, but the trap did not return 'undefined'", key)
		}
	}
	return v, nil
}

func proxySet(a *Agent, o *Object, key PropertyKey, v, receiver *Value) (bool, error) {
	d, trap, err := proxyTrap(a, o, "set")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.SetWithReceiver(a, key, v, receiver) })
	}
	r, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue(), v, receiver)
	if err != nil || !r.ToBoolean() {
		return false, err
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil {
		return false, err
	}
	if exists && !targetDesc.Configurable() {
		if targetDesc.IsDataDescriptor() && !targetDesc.Writable() && !SameValue(v, targetDesc.Value()) {
			return false, a.ThrowTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable data property with a different value", key)
		}
		if targetDesc.IsAccessorDescriptor() && targetDesc.Set().IsUndefined() {
			return false, a.ThrowTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable accessor property without a setter", key)
		}
	}
	return true, nil
}

func proxyDelete(a *Agent, o *Object, key PropertyKey) (bool, error) {
	d, trap, err := proxyTrap(a, o, "deleteProperty")
	if err != nil {
		return false, err
	}
	if trap == nil {
		return forward(a, func() (bool, error) { return d.Target.Delete(a, key) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), key.ToValue())
	if err != nil || !v.ToBoolean() {
		return false, err
	}
	targetDesc, exists, err := d.Target.GetOwnProperty(a, key)
	if err != nil || !exists {
		return true, err
	}
	if !targetDesc.Configurable() {
		return false, a.ThrowTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' which is non-configurable in the proxy target", key)
	}
	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return false, err
	}
	if !extensible {
		return false, a.ThrowTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' but the proxy target is non-extensible", key)
	}
	return true, nil
}

func proxyOwnPropertyKeys(a *Agent, o *Object) ([]PropertyKey, error) {
	d, trap, err := proxyTrap(a, o, "ownKeys")
	if err != nil {
		return nil, err
	}
	if trap == nil {
		return forward(a, func() ([]PropertyKey, error) { return d.Target.OwnPropertyKeys(a) })
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target))
	if err != nil {
		return nil, err
	}
	list, err := CreateListFromArrayLike(a, v)
	if err != nil {
		return nil, err
	}
	keys := make([]PropertyKey, 0, len(list))
	unchecked := mapset.NewThreadUnsafeSet[PropertyKey]()
	for _, el := range list {
		var k PropertyKey
		switch el.Type {
		case TypeString:
			k = StringKey(el.Str)
		case TypeSymbol:
			k = SymbolKey(el.Symbol)
		default:
			return nil, a.ThrowTypeError("%s is not a valid property name", el.String())
		}
		if !unchecked.Add(k) {
			return nil, a.ThrowTypeError("'ownKeys' on proxy: trap returned duplicate entries")
		}
		keys = append(keys, k)
	}

	extensible, err := d.Target.IsExtensible(a)
	if err != nil {
		return nil, err
	}
	targetKeys, err := d.Target.OwnPropertyKeys(a)
	if err != nil {
		return nil, err
	}
	var configurable, nonconfigurable []PropertyKey
	for _, k := range targetKeys {
		desc, exists, err := d.Target.GetOwnProperty(a, k)
		if err != nil {
			return nil, err
		}
		if exists && !desc.Configurable() {
			nonconfigurable = append(nonconfigurable, k)
		} else {
			configurable = append(configurable, k)
		}
	}
	if extensible && len(nonconfigurable) == 0 {
		return keys, nil
	}
	for _, k := range nonconfigurable {
		if !unchecked.Contains(k) {
			return nil, a.ThrowTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		unchecked.Remove(k)
	}
	if extensible {
		return keys, nil
	}
	for _, k := range configurable {
		if !unchecked.Contains(k) {
			return nil, a.ThrowTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		unchecked.Remove(k)
	}
	if unchecked.Cardinality() != 0 {
		return nil, a.ThrowTypeError("'ownKeys' on proxy: trap returned extra keys but proxy target is non-extensible")
	}
	return keys, nil
}

func proxyCall(a *Agent, o *Object, this *Value, args []*Value) (*Value, error) {
	d, trap, err := proxyTrap(a, o, "apply")
	if err != nil {
		return nil, err
	}
	if trap == nil {
		return forward(a, func() (*Value, error) { return a.Call(NewObject(d.Target), this, args) })
	}
	return callTrap(a, d, trap, NewObject(d.Target), this, a.NewArrayValue(args))
}

func proxyConstruct(a *Agent, o *Object, args []*Value, newTarget *Object) (*Object, error) {
	d, trap, err := proxyTrap(a, o, "construct")
	if err != nil {
		return nil, err
	}
	if trap == nil {
		return forward(a, func() (*Object, error) {
			return a.Construct(NewObject(d.Target), args, NewObject(newTarget))
		})
	}
	v, err := callTrap(a, d, trap, NewObject(d.Target), a.NewArrayValue(args), NewObject(newTarget))
	if err != nil {
		return nil, err
	}
	if !v.IsObject() {
		return nil, a.ThrowTypeError("proxy [[Construct]] must return an object")
	}
	return v.Object, nil
}
