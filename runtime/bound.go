package runtime

// BoundFunctionData is the payload of a function created by bind.
type BoundFunctionData struct {
	Target    *Object
	BoundThis *Value
	BoundArgs []*Value
}

func (*BoundFunctionData) Kind() ObjectKind { return KindBoundFunction }

// BoundFunctionCreate creates a bound function exotic object for target.
func BoundFunctionCreate(a *Agent, target *Object, this *Value, args []*Value) (*Object, error) {
	proto, err := target.GetPrototypeOf(a)
	if err != nil {
		return nil, err
	}
	return NewObjectWithData(proto, &BoundFunctionData{
		Target:    target,
		BoundThis: this,
		BoundArgs: append([]*Value(nil), args...),
	}), nil
}

func (d *BoundFunctionData) arguments(args []*Value) []*Value {
	if len(d.BoundArgs) == 0 {
		return args
	}
	all := make([]*Value, 0, len(d.BoundArgs)+len(args))
	all = append(all, d.BoundArgs...)
	return append(all, args...)
}

func boundFunctionCall(a *Agent, f *Object, _ *Value, args []*Value) (*Value, error) {
	d := f.data.(*BoundFunctionData)
	if err := a.enterCall(); err != nil {
		return nil, err
	}
	defer a.exitCall()
	return a.Call(NewObject(d.Target), d.BoundThis, d.arguments(args))
}

func boundFunctionConstruct(a *Agent, f *Object, args []*Value, newTarget *Object) (*Object, error) {
	d := f.data.(*BoundFunctionData)
	if err := a.enterCall(); err != nil {
		return nil, err
	}
	defer a.exitCall()
	if newTarget == f {
		newTarget = d.Target
	}
	return a.Construct(NewObject(d.Target), d.arguments(args), NewObject(newTarget))
}
