package runtime

import "fmt"

type borrowState struct {
	shared    int
	exclusive bool
}

// BorrowError reports an access that conflicts with an outstanding borrow.
type BorrowError struct {
	Object    *Object
	Exclusive bool // the rejected borrow was a mutable one
}

func (e *BorrowError) Error() string {
	if e.Exclusive {
		return fmt.Sprintf("object %s is already borrowed", e.Object.Class())
	}
	return fmt.Sprintf("object %s is already mutably borrowed", e.Object.Class())
}

// ObjectRef is a shared borrow of an object's state. Any number of shared
// borrows may coexist; none may coexist with a mutable borrow.
type ObjectRef struct {
	obj      *Object
	released bool
}

// ObjectRefMut is an exclusive borrow of an object's state.
type ObjectRefMut struct {
	ObjectRef
}

// TryBorrow takes a shared borrow.
func (o *Object) TryBorrow() (*ObjectRef, error) {
	if o.borrow.exclusive {
		return nil, &BorrowError{Object: o}
	}
	o.borrow.shared++
	return &ObjectRef{obj: o}, nil
}

// TryBorrowMut takes an exclusive borrow.
func (o *Object) TryBorrowMut() (*ObjectRefMut, error) {
	if o.borrow.exclusive || o.borrow.shared > 0 {
		return nil, &BorrowError{Object: o, Exclusive: true}
	}
	o.borrow.exclusive = true
	return &ObjectRefMut{ObjectRef{obj: o}}, nil
}

// Borrow is TryBorrow for callers that treat a conflict as a bug.
func (o *Object) Borrow() *ObjectRef {
	r, err := o.TryBorrow()
	if err != nil {
		panic(err)
	}
	return r
}

// BorrowMut is TryBorrowMut for callers that treat a conflict as a bug.
func (o *Object) BorrowMut() *ObjectRefMut {
	r, err := o.TryBorrowMut()
	if err != nil {
		panic(err)
	}
	return r
}

// Release ends a shared borrow. Releasing twice is a no-op.
func (r *ObjectRef) Release() {
	if r.released {
		return
	}
	r.released = true
	r.obj.borrow.shared--
}

// Release ends a mutable borrow.
func (r *ObjectRefMut) Release() {
	if r.released {
		return
	}
	r.released = true
	r.obj.borrow.exclusive = false
}

func (r *ObjectRef) Object() *Object           { return r.obj }
func (r *ObjectRef) Prototype() *Object        { return r.obj.proto }
func (r *ObjectRef) Extensible() bool          { return r.obj.extensible }
func (r *ObjectRef) Data() ObjectData          { return r.obj.data }
func (r *ObjectRef) Len() int                  { return r.obj.props.Size() }
func (r *ObjectRef) Keys() []PropertyKey       { return r.obj.keysRaw() }
func (r *ObjectRef) Methods() *InternalMethods { return r.obj.methods }

// Property returns a copy of the stored slot for key.
func (r *ObjectRef) Property(key PropertyKey) (Property, bool) {
	p, ok := r.obj.ownRaw(key)
	if !ok {
		return Property{}, false
	}
	return *p, true
}

func (r *ObjectRefMut) SetPrototype(proto *Object) { r.obj.proto = proto }
func (r *ObjectRefMut) SetExtensible(e bool)       { r.obj.extensible = e }

// SetData replaces the payload and the internal method table that goes with it.
func (r *ObjectRefMut) SetData(d ObjectData) {
	r.obj.data = d
	r.obj.methods = methodsFor(d)
}

// InsertProperty stores a slot, keeping the original position if key exists.
func (r *ObjectRefMut) InsertProperty(key PropertyKey, p Property) {
	cp := p
	r.obj.putRaw(key, &cp)
}

// RemoveProperty deletes the slot for key.
func (r *ObjectRefMut) RemoveProperty(key PropertyKey) {
	r.obj.removeRaw(key)
}

// readState runs fn under a shared borrow of o.
func (o *Object) readState(fn func(r *ObjectRef)) error {
	r, err := o.TryBorrow()
	if err != nil {
		return err
	}
	defer r.Release()
	fn(r)
	return nil
}

// writeState runs fn under an exclusive borrow of o.
func (o *Object) writeState(fn func(r *ObjectRefMut)) error {
	r, err := o.TryBorrowMut()
	if err != nil {
		return err
	}
	defer r.Release()
	fn(r)
	return nil
}

// IsHost reports whether o carries a native payload of type T.
func IsHost[T any](o *Object) bool {
	h, ok := o.data.(*HostData)
	if !ok {
		return false
	}
	_, ok = h.Value.(T)
	return ok
}

// HostValue returns the native payload of o without borrowing it.
func HostValue[T any](o *Object) (T, bool) {
	var zero T
	h, ok := o.data.(*HostData)
	if !ok {
		return zero, false
	}
	v, ok := h.Value.(T)
	return v, ok
}

// DowncastRef runs fn with the native payload of o under a shared borrow.
// It reports false when the payload is not a T, and a *BorrowError when the
// object is mutably borrowed.
func DowncastRef[T any](o *Object, fn func(T)) (bool, error) {
	r, err := o.TryBorrow()
	if err != nil {
		return false, err
	}
	defer r.Release()
	v, ok := HostValue[T](o)
	if !ok {
		return false, nil
	}
	fn(v)
	return true, nil
}

// DowncastMut runs fn with a pointer to the native payload of o under an
// exclusive borrow. Assignments through the pointer replace the payload.
func DowncastMut[T any](o *Object, fn func(*T)) (bool, error) {
	r, err := o.TryBorrowMut()
	if err != nil {
		return false, err
	}
	defer r.Release()
	h, ok := o.data.(*HostData)
	if !ok {
		return false, nil
	}
	v, ok := h.Value.(T)
	if !ok {
		return false, nil
	}
	fn(&v)
	h.Value = v
	return true, nil
}
