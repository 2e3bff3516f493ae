package runtime

import (
	"math"
	"sort"
)

var lengthKey = StringKey("length")

// MaxArrayLength is the largest valid array length.
const MaxArrayLength = math.MaxUint32

// ArrayCreate allocates an array exotic object with the given length.
func (a *Agent) ArrayCreate(length uint64, proto *Object) (*Object, error) {
	if length > MaxArrayLength {
		return nil, a.ThrowRangeError("Invalid array length")
	}
	if proto == nil {
		proto = a.realm.Intrinsics.ArrayPrototype
	}
	arr := NewObjectWithData(proto, ArrayData{})
	arr.putRaw(lengthKey, &Property{Value: NewNumber(float64(length)), Writable: true})
	return arr, nil
}

// NewArray creates an array holding elems (CreateArrayFromList).
func (a *Agent) NewArray(elems []*Value) *Object {
	arr := NewObjectWithData(a.realm.Intrinsics.ArrayPrototype, ArrayData{})
	for i, v := range elems {
		arr.putRaw(IndexKey(uint32(i)), &Property{Value: v, Writable: true, Enumerable: true, Configurable: true})
	}
	arr.putRaw(lengthKey, &Property{Value: NewInt(int64(len(elems))), Writable: true})
	return arr
}

// NewArrayValue is NewArray wrapped in a value.
func (a *Agent) NewArrayValue(elems []*Value) *Value {
	return NewObject(a.NewArray(elems))
}

// ArrayLength reads the stored length of an array exotic object.
func ArrayLength(o *Object) (uint32, error) {
	var n uint32
	err := o.readState(func(r *ObjectRef) {
		if p, ok := r.Property(lengthKey); ok {
			n = uint32(p.Value.Float())
		}
	})
	return n, err
}

func arrayDefineOwnProperty(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if !key.IsSymbol() && key.Name() == "length" {
		return arraySetLength(a, o, desc)
	}
	idx, ok := key.ArrayIndex()
	if !ok {
		return ordinaryDefineOwnProperty(a, o, key, desc)
	}
	lenDesc, _, err := ordinaryGetOwnProperty(a, o, lengthKey)
	if err != nil {
		return false, err
	}
	length := uint32(lenDesc.Value().Float())
	if idx >= length && !lenDesc.Writable() {
		return false, nil
	}
	if ok, err := ordinaryDefineOwnProperty(a, o, key, desc); err != nil || !ok {
		return false, err
	}
	if idx >= length {
		lenDesc.value = NewNumber(float64(idx) + 1)
		if _, err := ordinaryDefineOwnProperty(a, o, lengthKey, lenDesc); err != nil {
			return false, err
		}
	}
	return true, nil
}

func arraySetLength(a *Agent, o *Object, desc PropertyDescriptor) (bool, error) {
	if !desc.HasValue() {
		return ordinaryDefineOwnProperty(a, o, lengthKey, desc)
	}
	newLen, err := desc.Value().ToUint32(a)
	if err != nil {
		return false, err
	}
	numberLen, err := desc.Value().ToNumber(a)
	if err != nil {
		return false, err
	}
	if float64(newLen) != numberLen {
		return false, a.ThrowRangeError("Invalid array length")
	}
	newLenDesc := desc
	newLenDesc.value = NewNumber(float64(newLen))

	oldLenDesc, _, err := ordinaryGetOwnProperty(a, o, lengthKey)
	if err != nil {
		return false, err
	}
	oldLen := uint32(oldLenDesc.Value().Float())
	if newLen >= oldLen {
		return ordinaryDefineOwnProperty(a, o, lengthKey, newLenDesc)
	}
	if !oldLenDesc.Writable() {
		return false, nil
	}
	newWritable := !newLenDesc.HasWritable() || newLenDesc.Writable()
	if !newWritable {
		newLenDesc.writable = true
	}
	if ok, err := ordinaryDefineOwnProperty(a, o, lengthKey, newLenDesc); err != nil || !ok {
		return false, err
	}

	var doomed []uint32
	err = o.readState(func(r *ObjectRef) {
		for _, k := range r.Keys() {
			if i, ok := k.ArrayIndex(); ok && i >= newLen {
				doomed = append(doomed, i)
			}
		}
	})
	if err != nil {
		return false, err
	}
	sort.Slice(doomed, func(i, j int) bool { return doomed[i] > doomed[j] })
	for _, i := range doomed {
		deleted, err := o.methods.Delete(a, o, IndexKey(i))
		if err != nil {
			return false, err
		}
		if !deleted {
			newLenDesc.value = NewNumber(float64(i) + 1)
			if !newWritable {
				newLenDesc.writable = false
			}
			if _, err := ordinaryDefineOwnProperty(a, o, lengthKey, newLenDesc); err != nil {
				return false, err
			}
			return false, nil
		}
	}
	if !newWritable {
		return ordinaryDefineOwnProperty(a, o, lengthKey, NewDescriptor().Writable(false).MustBuild())
	}
	return true, nil
}

// IsArray implements the IsArray abstract operation, looking through proxies.
func IsArray(a *Agent, v *Value) (bool, error) {
	o := v.AsObject()
	if o == nil {
		return false, nil
	}
	if o.Kind() == KindArray {
		return true, nil
	}
	if p, ok := o.data.(*ProxyData); ok {
		if p.revoked() {
			return false, a.ThrowTypeError("Cannot perform 'IsArray' on a proxy that has been revoked")
		}
		return IsArray(a, NewObject(p.Target))
	}
	return false, nil
}
