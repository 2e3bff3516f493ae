package runtime

// PromiseState is the settlement state of a promise.
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	}
	return "pending"
}

// PromiseData is the payload of promise objects.
type PromiseData struct {
	State  PromiseState
	Result *Value

	fulfillReactions []*promiseReaction
	rejectReactions  []*promiseReaction
	handled          bool
}

func (*PromiseData) Kind() ObjectKind { return KindPromise }

// NewPromiseData returns the payload of a pending promise.
func NewPromiseData() *PromiseData {
	return &PromiseData{Result: Undefined}
}

// PromiseCapability is a promise together with its resolving functions.
type PromiseCapability struct {
	Promise *Object
	Resolve *Value
	Reject  *Value
}

type promiseReaction struct {
	capability *PromiseCapability
	reject     bool
	handler    *Value
	native     func(a *Agent, v *Value) error
}

// IsPromise reports whether v is a promise object.
func IsPromise(v *Value) bool {
	o := v.AsObject()
	if o == nil {
		return false
	}
	_, ok := o.data.(*PromiseData)
	return ok
}

// PromiseStateOf returns the state and result of a promise object.
func PromiseStateOf(o *Object) (PromiseState, *Value, bool) {
	pd, ok := o.data.(*PromiseData)
	if !ok {
		return 0, nil, false
	}
	return pd.State, pd.Result, true
}

// CreateResolvingFunctions returns the resolve and reject functions of p,
// which share a single already-resolved record.
func (a *Agent) CreateResolvingFunctions(p *Object) (resolve, reject *Object) {
	alreadyResolved := false
	resolve = a.NewNativeFunction("", 1, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		if alreadyResolved {
			return Undefined, nil
		}
		alreadyResolved = true
		return Undefined, a.resolvePromise(p, argOrUndefined(args, 0))
	})
	reject = a.NewNativeFunction("", 1, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		if alreadyResolved {
			return Undefined, nil
		}
		alreadyResolved = true
		a.RejectPromise(p, argOrUndefined(args, 0))
		return Undefined, nil
	})
	return resolve, reject
}

func argOrUndefined(args []*Value, i int) *Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return Undefined
}

func (a *Agent) resolvePromise(p *Object, resolution *Value) error {
	if o := resolution.AsObject(); o == p {
		a.RejectPromise(p, NewObject(a.NewError(ErrorType, "Chaining cycle detected for promise #<Promise>")))
		return nil
	}
	o := resolution.AsObject()
	if o == nil {
		a.FulfillPromise(p, resolution)
		return nil
	}
	then, err := o.Get(a, StringKey("then"))
	if err != nil {
		exc, ok := AsException(err)
		if !ok {
			return err
		}
		a.RejectPromise(p, exc.Value)
		return nil
	}
	if !then.IsCallable() {
		a.FulfillPromise(p, resolution)
		return nil
	}
	a.EnqueueJob(func(a *Agent) error {
		resolve, reject := a.CreateResolvingFunctions(p)
		_, err := a.Call(then, resolution, []*Value{NewObject(resolve), NewObject(reject)})
		if err != nil {
			exc, ok := AsException(err)
			if !ok {
				return err
			}
			_, err = a.Call(NewObject(reject), Undefined, []*Value{exc.Value})
		}
		return err
	})
	return nil
}

// FulfillPromise settles a pending promise with v.
func (a *Agent) FulfillPromise(p *Object, v *Value) {
	pd := p.data.(*PromiseData)
	if pd.State != PromisePending {
		return
	}
	reactions := pd.fulfillReactions
	pd.State, pd.Result = PromiseFulfilled, v
	pd.fulfillReactions, pd.rejectReactions = nil, nil
	a.triggerReactions(reactions, v)
}

// RejectPromise settles a pending promise with reason.
func (a *Agent) RejectPromise(p *Object, reason *Value) {
	pd := p.data.(*PromiseData)
	if pd.State != PromisePending {
		return
	}
	reactions := pd.rejectReactions
	pd.State, pd.Result = PromiseRejected, reason
	pd.fulfillReactions, pd.rejectReactions = nil, nil
	if !pd.handled {
		a.rejected.Add(p)
	}
	a.triggerReactions(reactions, reason)
}

func (a *Agent) triggerReactions(reactions []*promiseReaction, v *Value) {
	for _, r := range reactions {
		a.enqueueReaction(r, v)
	}
}

func (a *Agent) enqueueReaction(r *promiseReaction, argument *Value) {
	a.EnqueueJob(func(a *Agent) error {
		if r.native != nil {
			return r.native(a, argument)
		}
		var (
			result *Value
			err    error
		)
		switch {
		case r.handler == nil && r.reject:
			err = ThrowValue(argument)
		case r.handler == nil:
			result = argument
		default:
			result, err = a.Call(r.handler, Undefined, []*Value{argument})
		}
		if r.capability == nil {
			return errIfNotException(err)
		}
		if err != nil {
			exc, ok := AsException(err)
			if !ok {
				return err
			}
			_, err = a.Call(r.capability.Reject, Undefined, []*Value{exc.Value})
			return err
		}
		_, err = a.Call(r.capability.Resolve, Undefined, []*Value{result})
		return err
	})
}

// NewPromiseCapability implements NewPromiseCapability(C).
func (a *Agent) NewPromiseCapability(c *Value) (*PromiseCapability, error) {
	if in := a.realm.Intrinsics; in.Promise == nil || c.AsObject() == in.Promise {
		return a.NewIntrinsicPromiseCapability(), nil
	}
	if !c.IsConstructor() {
		return nil, a.ThrowTypeError("Promise resolve or reject function is not callable")
	}
	var resolve, reject *Value = Undefined, Undefined
	executor := a.NewNativeFunction("", 2, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		if !resolve.IsUndefined() || !reject.IsUndefined() {
			return nil, a.ThrowTypeError("Promise executor has already been invoked with non-undefined arguments")
		}
		resolve, reject = argOrUndefined(args, 0), argOrUndefined(args, 1)
		return Undefined, nil
	})
	p, err := a.Construct(c, []*Value{NewObject(executor)}, nil)
	if err != nil {
		return nil, err
	}
	if !resolve.IsCallable() || !reject.IsCallable() {
		return nil, a.ThrowTypeError("Promise resolve or reject function is not callable")
	}
	return &PromiseCapability{Promise: p, Resolve: resolve, Reject: reject}, nil
}

// NewIntrinsicPromiseCapability creates a pending %Promise% instance with
// its resolving functions.
func (a *Agent) NewIntrinsicPromiseCapability() *PromiseCapability {
	p := NewObjectWithData(a.realm.Intrinsics.PromisePrototype, NewPromiseData())
	resolve, reject := a.CreateResolvingFunctions(p)
	return &PromiseCapability{Promise: p, Resolve: NewObject(resolve), Reject: NewObject(reject)}
}

// PromiseResolve implements PromiseResolve(C, x).
func (a *Agent) PromiseResolve(c *Value, x *Value) (*Object, error) {
	if IsPromise(x) {
		ctor, err := x.Object.Get(a, StringKey("constructor"))
		if err != nil {
			return nil, err
		}
		if SameValue(ctor, c) {
			return x.Object, nil
		}
	}
	capability, err := a.NewPromiseCapability(c)
	if err != nil {
		return nil, err
	}
	if _, err := a.Call(capability.Resolve, Undefined, []*Value{x}); err != nil {
		return nil, err
	}
	return capability.Promise, nil
}

func (a *Agent) promiseResolveIntrinsic(x *Value) (*Object, error) {
	c := Undefined
	if in := a.realm.Intrinsics; in.Promise != nil {
		c = NewObject(in.Promise)
	}
	if c.IsUndefined() && IsPromise(x) {
		return x.Object, nil
	}
	return a.PromiseResolve(c, x)
}

// PerformPromiseThen registers reactions on p. With a nil capability the
// reactions run for their side effects only.
func (a *Agent) PerformPromiseThen(p *Object, onFulfilled, onRejected *Value, capability *PromiseCapability) *Value {
	fulfill := &promiseReaction{capability: capability}
	if onFulfilled != nil && onFulfilled.IsCallable() {
		fulfill.handler = onFulfilled
	}
	reject := &promiseReaction{capability: capability, reject: true}
	if onRejected != nil && onRejected.IsCallable() {
		reject.handler = onRejected
	}
	a.addReactions(p, fulfill, reject)
	if capability == nil {
		return Undefined
	}
	return NewObject(capability.Promise)
}

// performPromiseThenNative registers Go callbacks as reactions on p.
func (a *Agent) performPromiseThenNative(p *Object, onFulfilled, onRejected func(*Agent, *Value) error) {
	a.addReactions(p,
		&promiseReaction{native: onFulfilled},
		&promiseReaction{native: onRejected, reject: true})
}

// Then registers Go callbacks on a promise. The callbacks run as jobs.
func (a *Agent) Then(p *Object, onFulfilled, onRejected func(*Agent, *Value) error) {
	noop := func(*Agent, *Value) error { return nil }
	if onFulfilled == nil {
		onFulfilled = noop
	}
	if onRejected == nil {
		onRejected = noop
	}
	a.performPromiseThenNative(p, onFulfilled, onRejected)
}

func (a *Agent) addReactions(p *Object, fulfill, reject *promiseReaction) {
	pd := p.data.(*PromiseData)
	switch pd.State {
	case PromisePending:
		pd.fulfillReactions = append(pd.fulfillReactions, fulfill)
		pd.rejectReactions = append(pd.rejectReactions, reject)
	case PromiseFulfilled:
		a.enqueueReaction(fulfill, pd.Result)
	case PromiseRejected:
		if !pd.handled {
			a.rejected.Remove(p)
		}
		a.enqueueReaction(reject, pd.Result)
	}
	pd.handled = true
}

// NewResolvedPromise returns a %Promise% resolved with v.
func (a *Agent) NewResolvedPromise(v *Value) (*Object, error) {
	capability := a.NewIntrinsicPromiseCapability()
	if _, err := a.Call(capability.Resolve, Undefined, []*Value{v}); err != nil {
		return nil, err
	}
	return capability.Promise, nil
}

// NewRejectedPromise returns a %Promise% rejected with reason.
func (a *Agent) NewRejectedPromise(reason *Value) *Object {
	capability := a.NewIntrinsicPromiseCapability()
	a.RejectPromise(capability.Promise, reason)
	return capability.Promise
}

// UnhandledRejections returns the rejected promises that have no handler yet.
func (a *Agent) UnhandledRejections() []*Object {
	return a.rejected.ToSlice()
}

// reportRejections logs the promises that were rejected without a handler
// by the end of a drain and forgets them.
func (a *Agent) reportRejections() {
	if a.rejected.Cardinality() == 0 {
		return
	}
	for _, p := range a.rejected.ToSlice() {
		pd := p.data.(*PromiseData)
		a.logger.Warn("unhandled promise rejection", "reason", describeReason(pd.Result))
		if a.onUnhandled != nil {
			a.onUnhandled(p, pd.Result)
		}
	}
	a.rejected.Clear()
}

func describeReason(v *Value) string {
	if o := v.AsObject(); o != nil && o.Kind() == KindError {
		return ErrorSummary(o)
	}
	return v.String()
}

// OnUnhandledRejection installs a callback invoked for each promise still
// unhandled when a job drain finishes.
func (a *Agent) OnUnhandledRejection(fn func(p *Object, reason *Value)) {
	a.onUnhandled = fn
}
