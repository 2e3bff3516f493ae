package runtime

import (
	"errors"
	"math"
	"strconv"
)

// PropertyKey identifies a property: either a string or a symbol.
type PropertyKey struct {
	name string
	sym  *Symbol
}

// StringKey returns the key for a string property name.
func StringKey(name string) PropertyKey {
	return PropertyKey{name: name}
}

// SymbolKey returns the key for a symbol property.
func SymbolKey(s *Symbol) PropertyKey {
	return PropertyKey{sym: s}
}

// IndexKey returns the canonical key for an array index.
func IndexKey(i uint32) PropertyKey {
	return PropertyKey{name: strconv.FormatUint(uint64(i), 10)}
}

// IntKey returns the canonical key for an integral index that may exceed the array index range.
func IntKey(i int64) PropertyKey {
	return PropertyKey{name: strconv.FormatInt(i, 10)}
}

func (k PropertyKey) IsSymbol() bool  { return k.sym != nil }
func (k PropertyKey) Symbol() *Symbol { return k.sym }

// Name returns the string form of a string key, or "" for a symbol key.
func (k PropertyKey) Name() string { return k.name }

// ArrayIndex reports whether k is a canonical array index (0 .. 2^32-2).
func (k PropertyKey) ArrayIndex() (uint32, bool) {
	if k.sym != nil || k.name == "" || len(k.name) > 10 {
		return 0, false
	}
	if k.name[0] == '0' && len(k.name) > 1 {
		return 0, false
	}
	n, err := strconv.ParseUint(k.name, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// ToValue returns the key as a language value (string or symbol).
func (k PropertyKey) ToValue() *Value {
	if k.sym != nil {
		return NewSymbolValue(k.sym)
	}
	return NewString(k.name)
}

// String renders the key for diagnostics.
func (k PropertyKey) String() string {
	if k.sym != nil {
		if k.sym.private {
			return k.sym.description
		}
		return "[" + k.sym.description + "]"
	}
	return k.name
}

// FunctionName returns the name a function gets when it is defined under k.
func (k PropertyKey) FunctionName() string {
	if k.sym != nil {
		if k.sym.private {
			return k.sym.description
		}
		if d, ok := k.sym.Description(); ok {
			return "[" + d + "]"
		}
		return ""
	}
	return k.name
}

// Property is a stored property slot. Getter and Setter are nil when the
// corresponding accessor half is undefined.
type Property struct {
	Value        *Value
	Getter       *Value
	Setter       *Value
	Writable     bool
	Enumerable   bool
	Configurable bool
	IsAccessor   bool
}

// Descriptor converts the stored slot into a fully populated descriptor.
func (p *Property) Descriptor() PropertyDescriptor {
	if p.IsAccessor {
		return AccessorDescriptor(p.Getter, p.Setter, p.Enumerable, p.Configurable)
	}
	return DataDescriptor(p.Value, p.Writable, p.Enumerable, p.Configurable)
}

type descriptorField uint8

const (
	fieldValue descriptorField = 1 << iota
	fieldWritable
	fieldGet
	fieldSet
	fieldEnumerable
	fieldConfigurable
)

// ErrMixedDescriptor is returned when a descriptor would carry both data and accessor fields.
var ErrMixedDescriptor = errors.New("property descriptor cannot be both a data and an accessor descriptor")

// PropertyDescriptor is a partial property description. Every field is
// optional; presence is tracked separately from the field value.
type PropertyDescriptor struct {
	value        *Value
	get          *Value
	set          *Value
	writable     bool
	enumerable   bool
	configurable bool
	fields       descriptorField
}

// DataDescriptor returns a complete data descriptor.
func DataDescriptor(v *Value, writable, enumerable, configurable bool) PropertyDescriptor {
	if v == nil {
		v = Undefined
	}
	return PropertyDescriptor{
		value:        v,
		writable:     writable,
		enumerable:   enumerable,
		configurable: configurable,
		fields:       fieldValue | fieldWritable | fieldEnumerable | fieldConfigurable,
	}
}

// AccessorDescriptor returns a complete accessor descriptor. A nil getter
// or setter means undefined.
func AccessorDescriptor(get, set *Value, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		get:          orUndefined(get),
		set:          orUndefined(set),
		enumerable:   enumerable,
		configurable: configurable,
		fields:       fieldGet | fieldSet | fieldEnumerable | fieldConfigurable,
	}
}

func orUndefined(v *Value) *Value {
	if v == nil {
		return Undefined
	}
	return v
}

func (d PropertyDescriptor) HasValue() bool        { return d.fields&fieldValue != 0 }
func (d PropertyDescriptor) HasWritable() bool     { return d.fields&fieldWritable != 0 }
func (d PropertyDescriptor) HasGet() bool          { return d.fields&fieldGet != 0 }
func (d PropertyDescriptor) HasSet() bool          { return d.fields&fieldSet != 0 }
func (d PropertyDescriptor) HasEnumerable() bool   { return d.fields&fieldEnumerable != 0 }
func (d PropertyDescriptor) HasConfigurable() bool { return d.fields&fieldConfigurable != 0 }

// Value returns the value field, or undefined when absent.
func (d PropertyDescriptor) Value() *Value { return orUndefined(d.value) }

// Get returns the getter, or undefined when absent.
func (d PropertyDescriptor) Get() *Value { return orUndefined(d.get) }

// Set returns the setter, or undefined when absent.
func (d PropertyDescriptor) Set() *Value { return orUndefined(d.set) }

func (d PropertyDescriptor) Writable() bool     { return d.writable }
func (d PropertyDescriptor) Enumerable() bool   { return d.enumerable }
func (d PropertyDescriptor) Configurable() bool { return d.configurable }

func (d PropertyDescriptor) IsAccessorDescriptor() bool { return d.HasGet() || d.HasSet() }
func (d PropertyDescriptor) IsDataDescriptor() bool     { return d.HasValue() || d.HasWritable() }
func (d PropertyDescriptor) IsGenericDescriptor() bool {
	return !d.IsAccessorDescriptor() && !d.IsDataDescriptor()
}

// IsEmpty reports whether no field is present.
func (d PropertyDescriptor) IsEmpty() bool { return d.fields == 0 }

// Complete fills in absent fields with their defaults (CompletePropertyDescriptor).
func (d PropertyDescriptor) Complete() PropertyDescriptor {
	if d.IsGenericDescriptor() || d.IsDataDescriptor() {
		if !d.HasValue() {
			d.value = Undefined
			d.fields |= fieldValue
		}
		if !d.HasWritable() {
			d.fields |= fieldWritable
		}
	} else {
		if !d.HasGet() {
			d.get = Undefined
			d.fields |= fieldGet
		}
		if !d.HasSet() {
			d.set = Undefined
			d.fields |= fieldSet
		}
	}
	d.fields |= fieldEnumerable | fieldConfigurable
	return d
}

// toProperty converts a complete descriptor into a stored slot.
func (d PropertyDescriptor) toProperty() *Property {
	if d.IsAccessorDescriptor() {
		return &Property{
			Getter:       undefinedToNil(d.get),
			Setter:       undefinedToNil(d.set),
			Enumerable:   d.enumerable,
			Configurable: d.configurable,
			IsAccessor:   true,
		}
	}
	return &Property{
		Value:        d.Value(),
		Writable:     d.writable,
		Enumerable:   d.enumerable,
		Configurable: d.configurable,
	}
}

func undefinedToNil(v *Value) *Value {
	if v == nil || v.IsUndefined() {
		return nil
	}
	return v
}

// DescriptorBuilder assembles a PropertyDescriptor field by field.
type DescriptorBuilder struct {
	d PropertyDescriptor
}

func NewDescriptor() *DescriptorBuilder {
	return &DescriptorBuilder{}
}

func (b *DescriptorBuilder) Value(v *Value) *DescriptorBuilder {
	b.d.value = orUndefined(v)
	b.d.fields |= fieldValue
	return b
}

func (b *DescriptorBuilder) Writable(w bool) *DescriptorBuilder {
	b.d.writable = w
	b.d.fields |= fieldWritable
	return b
}

func (b *DescriptorBuilder) Get(fn *Value) *DescriptorBuilder {
	b.d.get = orUndefined(fn)
	b.d.fields |= fieldGet
	return b
}

func (b *DescriptorBuilder) Set(fn *Value) *DescriptorBuilder {
	b.d.set = orUndefined(fn)
	b.d.fields |= fieldSet
	return b
}

func (b *DescriptorBuilder) Enumerable(e bool) *DescriptorBuilder {
	b.d.enumerable = e
	b.d.fields |= fieldEnumerable
	return b
}

func (b *DescriptorBuilder) Configurable(c bool) *DescriptorBuilder {
	b.d.configurable = c
	b.d.fields |= fieldConfigurable
	return b
}

// Build returns the descriptor, or ErrMixedDescriptor when data and
// accessor fields were both set.
func (b *DescriptorBuilder) Build() (PropertyDescriptor, error) {
	if b.d.IsAccessorDescriptor() && b.d.IsDataDescriptor() {
		return PropertyDescriptor{}, ErrMixedDescriptor
	}
	return b.d, nil
}

// MustBuild is Build for descriptors known to be well formed.
func (b *DescriptorBuilder) MustBuild() PropertyDescriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Attribute is a set of property attribute flags used by host registration.
type Attribute uint8

const (
	AttrWritable Attribute = 1 << iota
	AttrEnumerable
	AttrConfigurable

	AttrNone Attribute = 0
	AttrAll            = AttrWritable | AttrEnumerable | AttrConfigurable
	// AttrDefault is writable and configurable but not enumerable, the
	// attributes of built-in methods.
	AttrDefault = AttrWritable | AttrConfigurable
)

// Descriptor returns a data descriptor for v with the attributes in attr.
func (attr Attribute) Descriptor(v *Value) PropertyDescriptor {
	return DataDescriptor(v, attr&AttrWritable != 0, attr&AttrEnumerable != 0, attr&AttrConfigurable != 0)
}
