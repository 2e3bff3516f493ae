package runtime

// CreateUnmappedArgumentsObject creates the arguments object of a call.
// Its elements are plain data properties that do not alias parameters.
func (a *Agent) CreateUnmappedArgumentsObject(args []*Value) *Object {
	in := a.realm.Intrinsics
	o := NewObjectWithData(in.ObjectPrototype, ArgumentsData{})
	o.putRaw(lengthKey, &Property{Value: NewInt(int64(len(args))), Writable: true, Configurable: true})
	for i, v := range args {
		o.putRaw(IndexKey(uint32(i)), &Property{Value: v, Writable: true, Enumerable: true, Configurable: true})
	}
	if in.ArrayValues != nil {
		o.putRaw(SymbolKey(SymIterator), &Property{Value: NewObject(in.ArrayValues), Writable: true, Configurable: true})
	}
	thrower := NewObject(in.ThrowTypeError)
	o.putRaw(StringKey("callee"), &Property{IsAccessor: true, Getter: thrower, Setter: thrower})
	return o
}
