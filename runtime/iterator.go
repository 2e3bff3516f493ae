package runtime

// IteratorRecord is an iterator together with its cached next method.
type IteratorRecord struct {
	Iterator *Object
	Next     *Value
	Done     bool
	// FromSync is set when an async iteration fell back to @@iterator; the
	// consumer awaits each value itself.
	FromSync bool
}

// GetIterator obtains an iterator from v through @@iterator, or through
// @@asyncIterator (falling back to @@iterator) when async is set.
func GetIterator(a *Agent, v *Value, async bool) (*IteratorRecord, error) {
	var method *Value
	var err error
	fromSync := false
	if async {
		method, err = GetMethod(a, v, SymbolKey(SymAsyncIterator))
		if err != nil {
			return nil, err
		}
		if method == nil {
			fromSync = true
		}
	}
	if method == nil {
		method, err = GetMethod(a, v, SymbolKey(SymIterator))
		if err != nil {
			return nil, err
		}
	}
	if method == nil {
		return nil, a.ThrowTypeError("%s is not iterable", describeIterable(v))
	}
	rec, err := GetIteratorFromMethod(a, v, method)
	if err != nil {
		return nil, err
	}
	rec.FromSync = fromSync
	return rec, nil
}

func describeIterable(v *Value) string {
	if v.IsObject() {
		if v.IsCallable() {
			if name, err := FunctionName(v.Object); err == nil {
				return name
			}
			return "function"
		}
		return "object"
	}
	return v.String()
}

// GetIteratorFromMethod calls method on v and validates the iterator.
func GetIteratorFromMethod(a *Agent, v *Value, method *Value) (*IteratorRecord, error) {
	it, err := a.Call(method, v, nil)
	if err != nil {
		return nil, err
	}
	if !it.IsObject() {
		return nil, a.ThrowTypeError("Result of the Symbol.iterator method is not an object")
	}
	next, err := it.Object.Get(a, StringKey("next"))
	if err != nil {
		return nil, err
	}
	return &IteratorRecord{Iterator: it.Object, Next: next}, nil
}

// IteratorNext calls the next method, optionally with a value.
func (r *IteratorRecord) IteratorNext(a *Agent, v *Value) (*Value, error) {
	var args []*Value
	if v != nil {
		args = []*Value{v}
	}
	result, err := a.Call(r.Next, NewObject(r.Iterator), args)
	if err != nil {
		r.Done = true
		return nil, err
	}
	if !result.IsObject() {
		r.Done = true
		return nil, a.ThrowTypeError("Iterator result %s is not an object", result.String())
	}
	return result, nil
}

// IteratorComplete reads the done flag of an iterator result.
func IteratorComplete(a *Agent, result *Value) (bool, error) {
	done, err := result.Object.Get(a, StringKey("done"))
	if err != nil {
		return false, err
	}
	return done.ToBoolean(), nil
}

// IteratorValue reads the value of an iterator result.
func IteratorValue(a *Agent, result *Value) (*Value, error) {
	return result.Object.Get(a, StringKey("value"))
}

// Step advances the iterator and returns the next value, or ok=false once
// it is exhausted.
func (r *IteratorRecord) Step(a *Agent) (*Value, bool, error) {
	result, err := r.IteratorNext(a, nil)
	if err != nil {
		return nil, false, err
	}
	done, err := IteratorComplete(a, result)
	if err != nil {
		r.Done = true
		return nil, false, err
	}
	if done {
		r.Done = true
		return nil, false, nil
	}
	v, err := IteratorValue(a, result)
	if err != nil {
		r.Done = true
		return nil, false, err
	}
	return v, true, nil
}

// Close calls the iterator's return method after an abrupt exit. The
// original error cause wins over any error from return itself.
func (r *IteratorRecord) Close(a *Agent, cause error) error {
	ret, err := GetMethod(a, NewObject(r.Iterator), StringKey("return"))
	if err == nil && ret != nil {
		var result *Value
		result, err = a.Call(ret, NewObject(r.Iterator), nil)
		if err == nil && cause == nil && !result.IsObject() {
			err = a.ThrowTypeError("iterator.return() did not return an object")
		}
	}
	if cause != nil {
		return cause
	}
	return err
}

// CreateIterResultObject returns { value, done }.
func CreateIterResultObject(a *Agent, v *Value, done bool) *Value {
	o := a.NewPlainObject()
	o.putRaw(StringKey("value"), &Property{Value: orUndefined(v), Writable: true, Enumerable: true, Configurable: true})
	o.putRaw(StringKey("done"), &Property{Value: NewBool(done), Writable: true, Enumerable: true, Configurable: true})
	return NewObject(o)
}

// IterableToList collects the values produced by iterating v.
func IterableToList(a *Agent, v *Value) ([]*Value, error) {
	rec, err := GetIterator(a, v, false)
	if err != nil {
		return nil, err
	}
	var out []*Value
	for {
		el, ok, err := rec.Step(a)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, el)
	}
}

// CreateArrayFromList returns a new array holding elems.
func CreateArrayFromList(a *Agent, elems []*Value) *Object {
	return a.NewArray(elems)
}

// NewListIterator returns an iterator object over a fixed list, used by
// builtins that expose snapshots (for example Map and Set iterators).
func (a *Agent) NewListIterator(proto *Object, next func() (*Value, bool)) *Object {
	if proto == nil {
		proto = a.realm.Intrinsics.IteratorPrototype
	}
	it := NewOrdinaryObject(proto)
	done := false
	nextFn := a.NewNativeFunction("next", 0, func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
		if done {
			return CreateIterResultObject(a, Undefined, true), nil
		}
		v, ok := next()
		if !ok {
			done = true
			return CreateIterResultObject(a, Undefined, true), nil
		}
		return CreateIterResultObject(a, v, false), nil
	})
	DefineBuiltin(it, StringKey("next"), NewObject(nextFn))
	return it
}
