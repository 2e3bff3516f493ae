package runtime

import (
	"math"
)

// NewPlainObject creates an ordinary object inheriting from %Object.prototype%.
func (a *Agent) NewPlainObject() *Object {
	return NewOrdinaryObject(a.realm.Intrinsics.ObjectPrototype)
}

// RequireObjectCoercible throws a TypeError for undefined and null.
func RequireObjectCoercible(a *Agent, v *Value) error {
	if v.IsNullish() {
		return a.ThrowTypeError("Cannot convert undefined or null to object")
	}
	return nil
}

// GetV reads key from v, boxing primitives for the lookup.
func GetV(a *Agent, v *Value, key PropertyKey) (*Value, error) {
	if o := v.AsObject(); o != nil {
		return o.Get(a, key)
	}
	o, err := v.ToObject(a)
	if err != nil {
		return nil, err
	}
	return o.GetWithReceiver(a, key, v)
}

// GetMethod returns the function stored under key, or nil when it is
// undefined or null. A non-callable value is a TypeError.
func GetMethod(a *Agent, v *Value, key PropertyKey) (*Value, error) {
	fn, err := GetV(a, v, key)
	if err != nil {
		return nil, err
	}
	if fn.IsNullish() {
		return nil, nil
	}
	if !fn.IsCallable() {
		return nil, a.ThrowTypeError("%s is not a function", key)
	}
	return fn, nil
}

// Invoke calls the method named key on v.
func Invoke(a *Agent, v *Value, key PropertyKey, args []*Value) (*Value, error) {
	fn, err := GetV(a, v, key)
	if err != nil {
		return nil, err
	}
	return a.Call(fn, v, args)
}

// CreateDataProperty defines an enumerable, writable, configurable data property.
func CreateDataProperty(a *Agent, o *Object, key PropertyKey, v *Value) (bool, error) {
	return o.DefineOwnProperty(a, key, DataDescriptor(v, true, true, true))
}

// CreateDataPropertyOrThrow is CreateDataProperty with a TypeError on failure.
func CreateDataPropertyOrThrow(a *Agent, o *Object, key PropertyKey, v *Value) error {
	ok, err := CreateDataProperty(a, o, key, v)
	if err != nil {
		return err
	}
	if !ok {
		return a.ThrowTypeError("Cannot define property %s, object is not extensible", key)
	}
	return nil
}

// DefinePropertyOrThrow invokes [[DefineOwnProperty]] and throws on failure.
func DefinePropertyOrThrow(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) error {
	ok, err := o.DefineOwnProperty(a, key, desc)
	if err != nil {
		return err
	}
	if !ok {
		return a.ThrowTypeError("Cannot redefine property: %s", key)
	}
	return nil
}

// DeletePropertyOrThrow invokes [[Delete]] and throws on failure.
func DeletePropertyOrThrow(a *Agent, o *Object, key PropertyKey) error {
	ok, err := o.Delete(a, key)
	if err != nil {
		return err
	}
	if !ok {
		return a.ThrowTypeError("Cannot delete property '%s' of %s", key, o)
	}
	return nil
}

// IntegrityLevel is sealed or frozen.
type IntegrityLevel int

const (
	Sealed IntegrityLevel = iota
	Frozen
)

// SetIntegrityLevel seals or freezes o.
func SetIntegrityLevel(a *Agent, o *Object, level IntegrityLevel) (bool, error) {
	ok, err := o.PreventExtensions(a)
	if err != nil || !ok {
		return false, err
	}
	keys, err := o.OwnPropertyKeys(a)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		var desc PropertyDescriptor
		if level == Sealed {
			desc = NewDescriptor().Configurable(false).MustBuild()
		} else {
			current, exists, err := o.GetOwnProperty(a, k)
			if err != nil {
				return false, err
			}
			if !exists {
				continue
			}
			if current.IsAccessorDescriptor() {
				desc = NewDescriptor().Configurable(false).MustBuild()
			} else {
				desc = NewDescriptor().Configurable(false).Writable(false).MustBuild()
			}
		}
		if err := DefinePropertyOrThrow(a, o, k, desc); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TestIntegrityLevel reports whether o is sealed or frozen.
func TestIntegrityLevel(a *Agent, o *Object, level IntegrityLevel) (bool, error) {
	ext, err := o.IsExtensible(a)
	if err != nil || ext {
		return false, err
	}
	keys, err := o.OwnPropertyKeys(a)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		desc, exists, err := o.GetOwnProperty(a, k)
		if err != nil {
			return false, err
		}
		if !exists {
			continue
		}
		if desc.Configurable() {
			return false, nil
		}
		if level == Frozen && desc.IsDataDescriptor() && desc.Writable() {
			return false, nil
		}
	}
	return true, nil
}

// LengthOfArrayLike returns ToLength(o.length).
func LengthOfArrayLike(a *Agent, o *Object) (int64, error) {
	if o.Kind() == KindArray && o.methods == arrayMethods {
		n, err := ArrayLength(o)
		return int64(n), err
	}
	v, err := o.Get(a, lengthKey)
	if err != nil {
		return 0, err
	}
	return v.ToLength(a)
}

const maxArgumentCount = 1 << 24

// CreateListFromArrayLike reads the indexed elements of an array-like object.
func CreateListFromArrayLike(a *Agent, v *Value) ([]*Value, error) {
	o := v.AsObject()
	if o == nil {
		return nil, a.ThrowTypeError("CreateListFromArrayLike called on non-object")
	}
	n, err := LengthOfArrayLike(a, o)
	if err != nil {
		return nil, err
	}
	if n > maxArgumentCount {
		return nil, a.ThrowRangeError("Too many arguments in function call")
	}
	list := make([]*Value, 0, n)
	for i := int64(0); i < n; i++ {
		el, err := o.Get(a, IntKey(i))
		if err != nil {
			return nil, err
		}
		list = append(list, el)
	}
	return list, nil
}

// EnumerableKind selects what EnumerableOwnProperties returns.
type EnumerableKind int

const (
	EnumKeys EnumerableKind = iota
	EnumValues
	EnumEntries
)

// EnumerableOwnProperties lists the enumerable own string-keyed properties of o.
func EnumerableOwnProperties(a *Agent, o *Object, kind EnumerableKind) ([]*Value, error) {
	keys, err := o.OwnPropertyKeys(a)
	if err != nil {
		return nil, err
	}
	var out []*Value
	for _, k := range keys {
		if k.IsSymbol() {
			continue
		}
		desc, ok, err := o.GetOwnProperty(a, k)
		if err != nil {
			return nil, err
		}
		if !ok || !desc.Enumerable() {
			continue
		}
		if kind == EnumKeys {
			out = append(out, k.ToValue())
			continue
		}
		v, err := o.Get(a, k)
		if err != nil {
			return nil, err
		}
		if kind == EnumValues {
			out = append(out, v)
		} else {
			out = append(out, a.NewArrayValue([]*Value{k.ToValue(), v}))
		}
	}
	return out, nil
}

// SpeciesConstructor returns o.constructor[@@species], or def.
func SpeciesConstructor(a *Agent, o *Object, def *Object) (*Object, error) {
	c, err := o.Get(a, StringKey("constructor"))
	if err != nil {
		return nil, err
	}
	if c.IsUndefined() {
		return def, nil
	}
	co := c.AsObject()
	if co == nil {
		return nil, a.ThrowTypeError("object.constructor is not an object")
	}
	s, err := co.Get(a, SymbolKey(SymSpecies))
	if err != nil {
		return nil, err
	}
	if s.IsNullish() {
		return def, nil
	}
	if s.IsConstructor() {
		return s.Object, nil
	}
	return nil, a.ThrowTypeError("object.constructor[Symbol.species] is not a constructor")
}

// GetPrototypeFromConstructor reads ctor.prototype, falling back to
// fallback when it is not an object.
func GetPrototypeFromConstructor(a *Agent, ctor *Object, fallback *Object) (*Object, error) {
	if ctor == nil {
		return fallback, nil
	}
	proto, err := ctor.Get(a, StringKey("prototype"))
	if err != nil {
		return nil, err
	}
	if p := proto.AsObject(); p != nil {
		return p, nil
	}
	return fallback, nil
}

// OrdinaryCreateFromConstructor allocates an object whose prototype comes
// from ctor.prototype.
func OrdinaryCreateFromConstructor(a *Agent, ctor *Object, fallback *Object, data ObjectData) (*Object, error) {
	proto, err := GetPrototypeFromConstructor(a, ctor, fallback)
	if err != nil {
		return nil, err
	}
	return NewObjectWithData(proto, data), nil
}

// OrdinaryHasInstance walks v's prototype chain looking for c.prototype.
func OrdinaryHasInstance(a *Agent, c, v *Value) (bool, error) {
	if !c.IsCallable() {
		return false, nil
	}
	if bf, ok := c.Object.data.(*BoundFunctionData); ok {
		return InstanceofOperator(a, v, NewObject(bf.Target))
	}
	o := v.AsObject()
	if o == nil {
		return false, nil
	}
	proto, err := c.Object.Get(a, StringKey("prototype"))
	if err != nil {
		return false, err
	}
	p := proto.AsObject()
	if p == nil {
		return false, a.ThrowTypeError("Function has non-object prototype '%s' in instanceof check", proto)
	}
	for n := 0; ; n++ {
		if n > a.limits.MaxPrototypeChain {
			return false, a.ThrowRangeError("Maximum prototype chain length exceeded")
		}
		o, err = o.GetPrototypeOf(a)
		if err != nil || o == nil {
			return false, err
		}
		if o == p {
			return true, nil
		}
	}
}

// InstanceofOperator implements v instanceof target.
func InstanceofOperator(a *Agent, v, target *Value) (bool, error) {
	if !target.IsObject() {
		return false, a.ThrowTypeError("Right-hand side of 'instanceof' is not an object")
	}
	handler, err := GetMethod(a, target, SymbolKey(SymHasInstance))
	if err != nil {
		return false, err
	}
	if handler != nil {
		r, err := a.Call(handler, target, []*Value{v})
		if err != nil {
			return false, err
		}
		return r.ToBoolean(), nil
	}
	if !target.IsCallable() {
		return false, a.ThrowTypeError("Right-hand side of 'instanceof' is not callable")
	}
	return OrdinaryHasInstance(a, target, v)
}

// CopyDataProperties copies the enumerable own properties of source onto
// target, skipping the excluded keys.
func CopyDataProperties(a *Agent, target *Object, source *Value, excluded []PropertyKey) error {
	if source.IsNullish() {
		return nil
	}
	from, err := source.ToObject(a)
	if err != nil {
		return err
	}
	keys, err := from.OwnPropertyKeys(a)
	if err != nil {
		return err
	}
outer:
	for _, k := range keys {
		for _, ex := range excluded {
			if ex == k {
				continue outer
			}
		}
		desc, ok, err := from.GetOwnProperty(a, k)
		if err != nil {
			return err
		}
		if !ok || !desc.Enumerable() {
			continue
		}
		v, err := from.Get(a, k)
		if err != nil {
			return err
		}
		if err := CreateDataPropertyOrThrow(a, target, k, v); err != nil {
			return err
		}
	}
	return nil
}

var descriptorFields = [...]string{"enumerable", "configurable", "value", "writable", "get", "set"}

// ToPropertyDescriptor converts a descriptor object. Fields are read with
// [[HasProperty]] then [[Get]] in the standard order; nothing is mutated
// when the result is invalid.
func ToPropertyDescriptor(a *Agent, v *Value) (PropertyDescriptor, error) {
	o := v.AsObject()
	if o == nil {
		return PropertyDescriptor{}, a.ThrowTypeError("Property description must be an object: %s", v)
	}
	b := NewDescriptor()
	for _, field := range descriptorFields {
		key := StringKey(field)
		has, err := o.HasProperty(a, key)
		if err != nil {
			return PropertyDescriptor{}, err
		}
		if !has {
			continue
		}
		fv, err := o.Get(a, key)
		if err != nil {
			return PropertyDescriptor{}, err
		}
		switch field {
		case "enumerable":
			b.Enumerable(fv.ToBoolean())
		case "configurable":
			b.Configurable(fv.ToBoolean())
		case "value":
			b.Value(fv)
		case "writable":
			b.Writable(fv.ToBoolean())
		case "get":
			if !fv.IsUndefined() && !fv.IsCallable() {
				return PropertyDescriptor{}, a.ThrowTypeError("Getter must be a function: %s", fv)
			}
			b.Get(fv)
		case "set":
			if !fv.IsUndefined() && !fv.IsCallable() {
				return PropertyDescriptor{}, a.ThrowTypeError("Setter must be a function: %s", fv)
			}
			b.Set(fv)
		}
	}
	desc, err := b.Build()
	if err != nil {
		return PropertyDescriptor{}, a.ThrowTypeError("Invalid property descriptor. Cannot both specify accessors and a value or writable attribute")
	}
	return desc, nil
}

// FromPropertyDescriptor builds the object form of desc.
func FromPropertyDescriptor(a *Agent, desc PropertyDescriptor) *Value {
	o := a.NewPlainObject()
	put := func(name string, v *Value) {
		o.putRaw(StringKey(name), &Property{Value: v, Writable: true, Enumerable: true, Configurable: true})
	}
	if desc.HasValue() {
		put("value", desc.Value())
	}
	if desc.HasWritable() {
		put("writable", NewBool(desc.Writable()))
	}
	if desc.HasGet() {
		put("get", desc.Get())
	}
	if desc.HasSet() {
		put("set", desc.Set())
	}
	if desc.HasEnumerable() {
		put("enumerable", NewBool(desc.Enumerable()))
	}
	if desc.HasConfigurable() {
		put("configurable", NewBool(desc.Configurable()))
	}
	return NewObject(o)
}

// IsIntegralNumber reports whether v is a finite integral Number.
func IsIntegralNumber(v *Value) bool {
	if v.Type == TypeInteger {
		return true
	}
	if v.Type != TypeNumber || math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return false
	}
	return math.Trunc(v.Number) == v.Number
}

// DefineBuiltin installs a non-enumerable, writable, configurable data
// property, the layout used for built-in methods.
func DefineBuiltin(o *Object, key PropertyKey, v *Value) {
	r := o.BorrowMut()
	defer r.Release()
	r.InsertProperty(key, Property{Value: v, Writable: true, Configurable: true})
}

// DefineConstant installs a read-only, non-enumerable, non-configurable data property.
func DefineConstant(o *Object, key PropertyKey, v *Value) {
	r := o.BorrowMut()
	defer r.Release()
	r.InsertProperty(key, Property{Value: v})
}

// DefineAccessor installs a non-enumerable, configurable accessor property.
func DefineAccessor(o *Object, key PropertyKey, getter, setter *Object) {
	p := Property{IsAccessor: true, Configurable: true}
	if getter != nil {
		p.Getter = NewObject(getter)
	}
	if setter != nil {
		p.Setter = NewObject(setter)
	}
	r := o.BorrowMut()
	defer r.Release()
	r.InsertProperty(key, p)
}

// DefineRaw installs a property with explicit attributes, bypassing
// [[DefineOwnProperty]]. Intended for objects under construction.
func DefineRaw(o *Object, key PropertyKey, v *Value, attr Attribute) {
	r := o.BorrowMut()
	defer r.Release()
	r.InsertProperty(key, Property{
		Value:        v,
		Writable:     attr&AttrWritable != 0,
		Enumerable:   attr&AttrEnumerable != 0,
		Configurable: attr&AttrConfigurable != 0,
	})
}
