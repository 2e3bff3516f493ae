package runtime

import (
	"reflect"
	"sort"
)

// InternalMethods is the table of essential internal methods an object
// dispatches through. Exotic objects copy the ordinary table and replace
// the entries they override. Call and Construct are nil for objects that
// are not callable or not constructors.
type InternalMethods struct {
	GetPrototypeOf    func(a *Agent, o *Object) (*Object, error)
	SetPrototypeOf    func(a *Agent, o *Object, proto *Object) (bool, error)
	IsExtensible      func(a *Agent, o *Object) (bool, error)
	PreventExtensions func(a *Agent, o *Object) (bool, error)
	GetOwnProperty    func(a *Agent, o *Object, key PropertyKey) (PropertyDescriptor, bool, error)
	DefineOwnProperty func(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error)
	HasProperty       func(a *Agent, o *Object, key PropertyKey) (bool, error)
	Get               func(a *Agent, o *Object, key PropertyKey, receiver *Value) (*Value, error)
	Set               func(a *Agent, o *Object, key PropertyKey, v, receiver *Value) (bool, error)
	Delete            func(a *Agent, o *Object, key PropertyKey) (bool, error)
	OwnPropertyKeys   func(a *Agent, o *Object) ([]PropertyKey, error)
	Call              func(a *Agent, o *Object, this *Value, args []*Value) (*Value, error)
	Construct         func(a *Agent, o *Object, args []*Value, newTarget *Object) (*Object, error)

	// ordinaryChain is set when GetPrototypeOf, HasProperty, Get and Set are
	// the ordinary ones, so lookups may walk past the object iteratively.
	ordinaryChain bool
}

// Extend returns a copy of the table with the overrides applied by fn.
func (m *InternalMethods) Extend(fn func(t *InternalMethods)) *InternalMethods {
	cp := *m
	fn(&cp)
	if cp.ordinaryChain {
		cp.ordinaryChain = sameFunc(cp.GetPrototypeOf, m.GetPrototypeOf) &&
			sameFunc(cp.HasProperty, m.HasProperty) &&
			sameFunc(cp.Get, m.Get) &&
			sameFunc(cp.Set, m.Set)
	}
	return &cp
}

func sameFunc(x, y any) bool {
	return reflect.ValueOf(x).Pointer() == reflect.ValueOf(y).Pointer()
}

var (
	ordinaryMethods         *InternalMethods
	arrayMethods            *InternalMethods
	stringMethods           *InternalMethods
	functionMethods         *InternalMethods
	constructorMethods      *InternalMethods
	boundFunctionMethods    *InternalMethods
	boundConstructorMethods *InternalMethods
	proxyMethods            *InternalMethods
	proxyCallableMethods    *InternalMethods
	proxyConstructorMethods *InternalMethods
)

// The tables are built in init so that internal method bodies may allocate
// objects of any kind without forming an initialization cycle.
func init() {
	ordinaryMethods = &InternalMethods{
		GetPrototypeOf:    ordinaryGetPrototypeOf,
		SetPrototypeOf:    ordinarySetPrototypeOf,
		IsExtensible:      ordinaryIsExtensible,
		PreventExtensions: ordinaryPreventExtensions,
		GetOwnProperty:    ordinaryGetOwnProperty,
		DefineOwnProperty: ordinaryDefineOwnProperty,
		HasProperty:       ordinaryHasProperty,
		Get:               ordinaryGet,
		Set:               ordinarySet,
		Delete:            ordinaryDelete,
		OwnPropertyKeys:   ordinaryOwnPropertyKeys,
		ordinaryChain:     true,
	}
	arrayMethods = ordinaryMethods.Extend(func(t *InternalMethods) {
		t.DefineOwnProperty = arrayDefineOwnProperty
	})
	stringMethods = ordinaryMethods.Extend(func(t *InternalMethods) {
		t.GetOwnProperty = stringGetOwnProperty
		t.DefineOwnProperty = stringDefineOwnProperty
		t.OwnPropertyKeys = stringOwnPropertyKeys
	})
	functionMethods = ordinaryMethods.Extend(func(t *InternalMethods) {
		t.Call = functionCall
	})
	constructorMethods = functionMethods.Extend(func(t *InternalMethods) {
		t.Construct = functionConstruct
	})
	boundFunctionMethods = ordinaryMethods.Extend(func(t *InternalMethods) {
		t.Call = boundFunctionCall
	})
	boundConstructorMethods = boundFunctionMethods.Extend(func(t *InternalMethods) {
		t.Construct = boundFunctionConstruct
	})
	proxyMethods = &InternalMethods{
		GetPrototypeOf:    proxyGetPrototypeOf,
		SetPrototypeOf:    proxySetPrototypeOf,
		IsExtensible:      proxyIsExtensible,
		PreventExtensions: proxyPreventExtensions,
		GetOwnProperty:    proxyGetOwnProperty,
		DefineOwnProperty: proxyDefineOwnProperty,
		HasProperty:       proxyHasProperty,
		Get:               proxyGet,
		Set:               proxySet,
		Delete:            proxyDelete,
		OwnPropertyKeys:   proxyOwnPropertyKeys,
	}
	proxyCallableMethods = proxyMethods.Extend(func(t *InternalMethods) {
		t.Call = proxyCall
	})
	proxyConstructorMethods = proxyCallableMethods.Extend(func(t *InternalMethods) {
		t.Construct = proxyConstruct
	})
}

// OrdinaryMethods returns the ordinary internal method table, the starting
// point for host-defined exotic objects.
func OrdinaryMethods() *InternalMethods {
	return ordinaryMethods
}

// NewObjectWithMethods allocates an object with a custom internal method table.
func NewObjectWithMethods(proto *Object, data ObjectData, methods *InternalMethods) *Object {
	o := NewObjectWithData(proto, data)
	o.methods = methods
	return o
}

func ordinaryGetPrototypeOf(a *Agent, o *Object) (*Object, error) {
	var proto *Object
	err := o.readState(func(r *ObjectRef) { proto = r.Prototype() })
	return proto, err
}

func ordinarySetPrototypeOf(a *Agent, o *Object, proto *Object) (bool, error) {
	var current *Object
	var extensible bool
	if err := o.readState(func(r *ObjectRef) {
		current, extensible = r.Prototype(), r.Extensible()
	}); err != nil {
		return false, err
	}
	if current == proto {
		return true, nil
	}
	if !extensible {
		return false, nil
	}
	for p, n := proto, 0; p != nil; p, n = p.proto, n+1 {
		if p == o {
			return false, nil
		}
		if !p.methods.ordinaryChain {
			break
		}
		if n > a.limits.MaxPrototypeChain {
			return false, a.ThrowRangeError("Maximum prototype chain length exceeded")
		}
	}
	return true, o.writeState(func(r *ObjectRefMut) { r.SetPrototype(proto) })
}

func ordinaryIsExtensible(a *Agent, o *Object) (bool, error) {
	var ext bool
	err := o.readState(func(r *ObjectRef) { ext = r.Extensible() })
	return ext, err
}

func ordinaryPreventExtensions(a *Agent, o *Object) (bool, error) {
	return true, o.writeState(func(r *ObjectRefMut) { r.SetExtensible(false) })
}

func ordinaryGetOwnProperty(a *Agent, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	var prop Property
	var ok bool
	if err := o.readState(func(r *ObjectRef) { prop, ok = r.Property(key) }); err != nil {
		return PropertyDescriptor{}, false, err
	}
	if !ok {
		return PropertyDescriptor{}, false, nil
	}
	return prop.Descriptor(), true, nil
}

func ordinaryDefineOwnProperty(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	current, exists, err := o.methods.GetOwnProperty(a, o, key)
	if err != nil {
		return false, err
	}
	extensible, err := o.methods.IsExtensible(a, o)
	if err != nil {
		return false, err
	}
	return validateAndApply(o, key, extensible, desc, current, exists)
}

// IsCompatiblePropertyDescriptor reports whether desc could be applied to a
// property currently described by current.
func IsCompatiblePropertyDescriptor(extensible bool, desc, current PropertyDescriptor, exists bool) bool {
	ok, _ := validateAndApply(nil, PropertyKey{}, extensible, desc, current, exists)
	return ok
}

// validateAndApply implements ValidateAndApplyPropertyDescriptor. When o is
// nil only validation is performed.
func validateAndApply(o *Object, key PropertyKey, extensible bool, desc, current PropertyDescriptor, exists bool) (bool, error) {
	if !exists {
		if !extensible {
			return false, nil
		}
		if o == nil {
			return true, nil
		}
		prop := desc.Complete().toProperty()
		return true, o.writeState(func(r *ObjectRefMut) { r.InsertProperty(key, *prop) })
	}
	if desc.IsEmpty() {
		return true, nil
	}
	if !current.Configurable() {
		if desc.HasConfigurable() && desc.Configurable() {
			return false, nil
		}
		if desc.HasEnumerable() && desc.Enumerable() != current.Enumerable() {
			return false, nil
		}
		if !desc.IsGenericDescriptor() && desc.IsAccessorDescriptor() != current.IsAccessorDescriptor() {
			return false, nil
		}
		if current.IsAccessorDescriptor() {
			if desc.HasGet() && !SameValue(desc.Get(), current.Get()) {
				return false, nil
			}
			if desc.HasSet() && !SameValue(desc.Set(), current.Set()) {
				return false, nil
			}
		} else if !current.Writable() {
			if desc.HasWritable() && desc.Writable() {
				return false, nil
			}
			if desc.HasValue() && !SameValue(desc.Value(), current.Value()) {
				return false, nil
			}
		}
	}
	if o == nil {
		return true, nil
	}

	var next PropertyDescriptor
	switch {
	case current.IsDataDescriptor() && desc.IsAccessorDescriptor():
		next = AccessorDescriptor(desc.Get(), desc.Set(),
			pick(desc.HasEnumerable(), desc.Enumerable(), current.Enumerable()),
			pick(desc.HasConfigurable(), desc.Configurable(), current.Configurable()))
		if !desc.HasGet() {
			next.get = Undefined
		}
		if !desc.HasSet() {
			next.set = Undefined
		}
	case current.IsAccessorDescriptor() && desc.IsDataDescriptor():
		next = DataDescriptor(desc.Value(),
			desc.HasWritable() && desc.Writable(),
			pick(desc.HasEnumerable(), desc.Enumerable(), current.Enumerable()),
			pick(desc.HasConfigurable(), desc.Configurable(), current.Configurable()))
	default:
		next = current
		if desc.HasValue() {
			next.value = desc.Value()
		}
		if desc.HasWritable() {
			next.writable = desc.Writable()
		}
		if desc.HasGet() {
			next.get = desc.Get()
		}
		if desc.HasSet() {
			next.set = desc.Set()
		}
		if desc.HasEnumerable() {
			next.enumerable = desc.Enumerable()
		}
		if desc.HasConfigurable() {
			next.configurable = desc.Configurable()
		}
	}
	prop := next.toProperty()
	return true, o.writeState(func(r *ObjectRefMut) { r.InsertProperty(key, *prop) })
}

func pick(has, v, fallback bool) bool {
	if has {
		return v
	}
	return fallback
}

func ordinaryHasProperty(a *Agent, o *Object, key PropertyKey) (bool, error) {
	cur := o
	for n := 0; ; n++ {
		if n > a.limits.MaxPrototypeChain {
			return false, a.ThrowRangeError("Maximum prototype chain length exceeded")
		}
		_, ok, err := cur.methods.GetOwnProperty(a, cur, key)
		if err != nil || ok {
			return ok, err
		}
		parent, err := cur.methods.GetPrototypeOf(a, cur)
		if err != nil || parent == nil {
			return false, err
		}
		if !parent.methods.ordinaryChain {
			return parent.methods.HasProperty(a, parent, key)
		}
		cur = parent
	}
}

func ordinaryGet(a *Agent, o *Object, key PropertyKey, receiver *Value) (*Value, error) {
	cur := o
	for n := 0; ; n++ {
		if n > a.limits.MaxPrototypeChain {
			return nil, a.ThrowRangeError("Maximum prototype chain length exceeded")
		}
		desc, ok, err := cur.methods.GetOwnProperty(a, cur, key)
		if err != nil {
			return nil, err
		}
		if ok {
			if desc.IsDataDescriptor() {
				return desc.Value(), nil
			}
			getter := desc.Get()
			if getter.IsUndefined() {
				return Undefined, nil
			}
			return a.Call(getter, receiver, nil)
		}
		parent, err := cur.methods.GetPrototypeOf(a, cur)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return Undefined, nil
		}
		if !parent.methods.ordinaryChain {
			return parent.methods.Get(a, parent, key, receiver)
		}
		cur = parent
	}
}

func ordinarySet(a *Agent, o *Object, key PropertyKey, v, receiver *Value) (bool, error) {
	cur := o
	var ownDesc PropertyDescriptor
	for n := 0; ; n++ {
		if n > a.limits.MaxPrototypeChain {
			return false, a.ThrowRangeError("Maximum prototype chain length exceeded")
		}
		desc, ok, err := cur.methods.GetOwnProperty(a, cur, key)
		if err != nil {
			return false, err
		}
		if ok {
			ownDesc = desc
			break
		}
		parent, err := cur.methods.GetPrototypeOf(a, cur)
		if err != nil {
			return false, err
		}
		if parent == nil {
			ownDesc = DataDescriptor(Undefined, true, true, true)
			break
		}
		if !parent.methods.ordinaryChain {
			return parent.methods.Set(a, parent, key, v, receiver)
		}
		cur = parent
	}
	return setWithOwnDescriptor(a, key, v, receiver, ownDesc)
}

func setWithOwnDescriptor(a *Agent, key PropertyKey, v, receiver *Value, ownDesc PropertyDescriptor) (bool, error) {
	if ownDesc.IsDataDescriptor() {
		if !ownDesc.Writable() {
			return false, nil
		}
		recv := receiver.AsObject()
		if recv == nil {
			return false, nil
		}
		existing, ok, err := recv.methods.GetOwnProperty(a, recv, key)
		if err != nil {
			return false, err
		}
		if ok {
			if existing.IsAccessorDescriptor() || !existing.Writable() {
				return false, nil
			}
			return recv.methods.DefineOwnProperty(a, recv, key, NewDescriptor().Value(v).MustBuild())
		}
		return recv.methods.DefineOwnProperty(a, recv, key, DataDescriptor(v, true, true, true))
	}
	setter := ownDesc.Set()
	if setter.IsUndefined() {
		return false, nil
	}
	if _, err := a.Call(setter, receiver, []*Value{v}); err != nil {
		return false, err
	}
	return true, nil
}

func ordinaryDelete(a *Agent, o *Object, key PropertyKey) (bool, error) {
	desc, ok, err := o.methods.GetOwnProperty(a, o, key)
	if err != nil || !ok {
		return true, err
	}
	if !desc.Configurable() {
		return false, nil
	}
	return true, o.writeState(func(r *ObjectRefMut) { r.RemoveProperty(key) })
}

func ordinaryOwnPropertyKeys(a *Agent, o *Object) ([]PropertyKey, error) {
	var raw []PropertyKey
	if err := o.readState(func(r *ObjectRef) { raw = r.Keys() }); err != nil {
		return nil, err
	}
	return orderKeys(raw), nil
}

// orderKeys arranges keys as integer indices ascending, then strings in
// insertion order, then symbols in insertion order.
func orderKeys(raw []PropertyKey) []PropertyKey {
	type indexed struct {
		idx uint32
		key PropertyKey
	}
	var indices []indexed
	var strs, syms []PropertyKey
	for _, k := range raw {
		switch {
		case k.IsSymbol():
			if !k.sym.private {
				syms = append(syms, k)
			}
		default:
			if i, ok := k.ArrayIndex(); ok {
				indices = append(indices, indexed{i, k})
			} else {
				strs = append(strs, k)
			}
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i].idx < indices[j].idx })
	out := make([]PropertyKey, 0, len(raw))
	for _, ix := range indices {
		out = append(out, ix.key)
	}
	out = append(out, strs...)
	return append(out, syms...)
}
