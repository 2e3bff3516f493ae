package runtime

// GeneratorState is the resumable state of a generator object.
type GeneratorState int

const (
	GeneratorSuspendedStart GeneratorState = iota
	GeneratorSuspendedYield
	GeneratorExecuting
	GeneratorAwaitingReturn
	GeneratorCompleted
)

func (s GeneratorState) String() string {
	switch s {
	case GeneratorSuspendedStart:
		return "suspendedStart"
	case GeneratorSuspendedYield:
		return "suspendedYield"
	case GeneratorExecuting:
		return "executing"
	case GeneratorAwaitingReturn:
		return "awaiting-return"
	}
	return "completed"
}

// GeneratorData is the payload of generator objects.
type GeneratorData struct {
	State GeneratorState
	co    *coroutine
}

func (*GeneratorData) Kind() ObjectKind { return KindGenerator }

func (a *Agent) startGenerator(f *Object, code *FunctionCode, env *Environment, base int) (*Object, error) {
	proto, err := GetPrototypeFromConstructor(a, f, a.realm.Intrinsics.GeneratorPrototype)
	if err != nil {
		return nil, err
	}
	gd := &GeneratorData{}
	gd.co = a.newCoroutine(a.envs[base:], false, func() (*Value, error) {
		return a.runBody(code, env)
	})
	g := NewObjectWithData(proto, gd)
	a.abandonWith(g, gd.co)
	return g, nil
}

// GeneratorResume drives the generator g with a next, throw or return
// request and returns the iterator result.
func (a *Agent) GeneratorResume(g *Value, mode ResumeMode, v *Value) (*Value, error) {
	o := g.AsObject()
	var gd *GeneratorData
	if o != nil {
		gd, _ = o.data.(*GeneratorData)
	}
	if gd == nil {
		return nil, a.ThrowTypeError("next method called on incompatible receiver %s", g.String())
	}
	v = orUndefined(v)
	switch gd.State {
	case GeneratorExecuting:
		return nil, a.ThrowTypeError("Generator is already running")
	case GeneratorSuspendedStart:
		if mode != ResumeNext {
			gd.State = GeneratorCompleted
			gd.co.discard()
		}
	}
	if gd.State == GeneratorCompleted {
		switch mode {
		case ResumeThrow:
			return nil, ThrowValue(v)
		case ResumeReturn:
			return CreateIterResultObject(a, v, true), nil
		}
		return CreateIterResultObject(a, Undefined, true), nil
	}

	gd.State = GeneratorExecuting
	s := gd.co.resume(resumption{mode: mode, value: v})
	switch s.kind {
	case suspendYield:
		gd.State = GeneratorSuspendedYield
		if s.raw {
			return s.value, nil
		}
		return CreateIterResultObject(a, s.value, false), nil
	case suspendAwait:
		gd.State = GeneratorCompleted
		return nil, a.ThrowSyntaxError("await is only valid in async functions and the top level bodies of modules")
	}
	gd.State = GeneratorCompleted
	if s.err != nil {
		return nil, s.err
	}
	return CreateIterResultObject(a, s.value, true), nil
}

// GeneratorStateOf reports the state of a generator or async generator.
func GeneratorStateOf(o *Object) (GeneratorState, bool) {
	switch d := o.data.(type) {
	case *GeneratorData:
		return d.State, true
	case *AsyncGeneratorData:
		return d.State, true
	}
	return 0, false
}

// AsyncGeneratorData is the payload of async generator objects. Requests
// queue up while the body runs and are settled in order.
type AsyncGeneratorData struct {
	State GeneratorState
	co    *coroutine
	queue []*asyncGeneratorRequest
}

func (*AsyncGeneratorData) Kind() ObjectKind { return KindAsyncGenerator }

type asyncGeneratorRequest struct {
	mode       ResumeMode
	value      *Value
	capability *PromiseCapability
}

func (a *Agent) startAsyncGenerator(f *Object, code *FunctionCode, env *Environment, base int) (*Object, error) {
	proto, err := GetPrototypeFromConstructor(a, f, a.realm.Intrinsics.AsyncGeneratorPrototype)
	if err != nil {
		return nil, err
	}
	gd := &AsyncGeneratorData{}
	gd.co = a.newCoroutine(a.envs[base:], true, func() (*Value, error) {
		return a.runBody(code, env)
	})
	g := NewObjectWithData(proto, gd)
	a.abandonWith(g, gd.co)
	return g, nil
}

// AsyncGeneratorEnqueue queues a next, throw or return request on g and
// returns the promise settled with its result.
func (a *Agent) AsyncGeneratorEnqueue(g *Value, mode ResumeMode, v *Value) (*Object, error) {
	capability := a.NewIntrinsicPromiseCapability()
	o := g.AsObject()
	var gd *AsyncGeneratorData
	if o != nil {
		gd, _ = o.data.(*AsyncGeneratorData)
	}
	if gd == nil {
		err := a.ThrowTypeError("%s method called on incompatible receiver %s", resumeMethodName(mode), g.String())
		if _, cerr := a.Call(capability.Reject, Undefined, []*Value{exceptionValue(err)}); cerr != nil {
			return nil, cerr
		}
		return capability.Promise, nil
	}
	gd.queue = append(gd.queue, &asyncGeneratorRequest{mode: mode, value: orUndefined(v), capability: capability})
	if gd.State != GeneratorExecuting && gd.State != GeneratorAwaitingReturn {
		if err := a.asyncGeneratorResumeNext(gd); err != nil {
			return nil, err
		}
	}
	return capability.Promise, nil
}

func resumeMethodName(mode ResumeMode) string {
	switch mode {
	case ResumeThrow:
		return "throw"
	case ResumeReturn:
		return "return"
	}
	return "next"
}

func (a *Agent) asyncGeneratorResumeNext(gd *AsyncGeneratorData) error {
	for {
		if gd.State == GeneratorExecuting || gd.State == GeneratorAwaitingReturn || len(gd.queue) == 0 {
			return nil
		}
		next := gd.queue[0]
		if next.mode != ResumeNext {
			if gd.State == GeneratorSuspendedStart {
				gd.State = GeneratorCompleted
				gd.co.discard()
			}
			if gd.State == GeneratorCompleted {
				if next.mode == ResumeReturn {
					return a.asyncGeneratorAwaitReturn(gd, next.value)
				}
				if err := a.asyncGeneratorCompleteStep(gd, true, next.value, true); err != nil {
					return err
				}
				continue
			}
		} else if gd.State == GeneratorCompleted {
			if err := a.asyncGeneratorCompleteStep(gd, false, Undefined, true); err != nil {
				return err
			}
			continue
		}
		gd.State = GeneratorExecuting
		return a.asyncGeneratorHandle(gd, gd.co.resume(resumption{mode: next.mode, value: next.value}))
	}
}

func (a *Agent) asyncGeneratorAwaitReturn(gd *AsyncGeneratorData, v *Value) error {
	gd.State = GeneratorAwaitingReturn
	p, err := a.promiseResolveIntrinsic(v)
	if err != nil {
		gd.State = GeneratorCompleted
		if errIfNotException(err) != nil {
			return err
		}
		if err := a.asyncGeneratorCompleteStep(gd, true, exceptionValue(err), true); err != nil {
			return err
		}
		return a.asyncGeneratorResumeNext(gd)
	}
	settle := func(throw bool) func(*Agent, *Value) error {
		return func(a *Agent, v *Value) error {
			gd.State = GeneratorCompleted
			if err := a.asyncGeneratorCompleteStep(gd, throw, v, true); err != nil {
				return err
			}
			return a.asyncGeneratorResumeNext(gd)
		}
	}
	a.performPromiseThenNative(p, settle(false), settle(true))
	return nil
}

// asyncGeneratorHandle reacts to the body suspending: awaits park the body
// until the awaited promise settles, yields and completion settle the
// oldest request.
func (a *Agent) asyncGeneratorHandle(gd *AsyncGeneratorData, s suspension) error {
	for {
		switch s.kind {
		case suspendAwait:
			p, err := a.promiseResolveIntrinsic(s.value)
			if err != nil {
				if errIfNotException(err) != nil {
					return err
				}
				s = gd.co.resume(resumption{mode: ResumeThrow, value: exceptionValue(err)})
				continue
			}
			resumeWith := func(mode ResumeMode) func(*Agent, *Value) error {
				return func(a *Agent, v *Value) error {
					return a.asyncGeneratorHandle(gd, gd.co.resume(resumption{mode: mode, value: v}))
				}
			}
			a.performPromiseThenNative(p, resumeWith(ResumeNext), resumeWith(ResumeThrow))
			return nil
		case suspendYield:
			gd.State = GeneratorSuspendedYield
			if err := a.asyncGeneratorCompleteStep(gd, false, s.value, false); err != nil {
				return err
			}
			return a.asyncGeneratorResumeNext(gd)
		}
		gd.State = GeneratorCompleted
		if s.err != nil {
			if errIfNotException(s.err) != nil {
				return s.err
			}
			if err := a.asyncGeneratorCompleteStep(gd, true, exceptionValue(s.err), true); err != nil {
				return err
			}
		} else if err := a.asyncGeneratorCompleteStep(gd, false, s.value, true); err != nil {
			return err
		}
		return a.asyncGeneratorResumeNext(gd)
	}
}

func (a *Agent) asyncGeneratorCompleteStep(gd *AsyncGeneratorData, throw bool, v *Value, done bool) error {
	if len(gd.queue) == 0 {
		return nil
	}
	next := gd.queue[0]
	gd.queue[0] = nil
	gd.queue = gd.queue[1:]
	if throw {
		_, err := a.Call(next.capability.Reject, Undefined, []*Value{v})
		return err
	}
	_, err := a.Call(next.capability.Resolve, Undefined, []*Value{CreateIterResultObject(a, v, done)})
	return err
}

// startAsyncFunction runs an async body until its first await and returns
// the promise for its result.
func (a *Agent) startAsyncFunction(code *FunctionCode, env *Environment, base int) (*Object, error) {
	capability := a.NewIntrinsicPromiseCapability()
	co := a.newCoroutine(a.envs[base:], true, func() (*Value, error) {
		return a.runBody(code, env)
	})
	if err := a.asyncStep(co, resumption{}, capability); err != nil {
		return nil, err
	}
	return capability.Promise, nil
}

func (a *Agent) asyncStep(co *coroutine, r resumption, capability *PromiseCapability) error {
	s := co.resume(r)
	for s.kind == suspendAwait {
		p, err := a.promiseResolveIntrinsic(s.value)
		if err != nil {
			if errIfNotException(err) != nil {
				return err
			}
			s = co.resume(resumption{mode: ResumeThrow, value: exceptionValue(err)})
			continue
		}
		resumeWith := func(mode ResumeMode) func(*Agent, *Value) error {
			return func(a *Agent, v *Value) error {
				return a.asyncStep(co, resumption{mode: mode, value: v}, capability)
			}
		}
		a.performPromiseThenNative(p, resumeWith(ResumeNext), resumeWith(ResumeThrow))
		return nil
	}
	if s.kind == suspendYield {
		return a.ThrowSyntaxError("yield is only valid in generator functions")
	}
	if s.err != nil {
		if errIfNotException(s.err) != nil {
			return s.err
		}
		_, err := a.Call(capability.Reject, Undefined, []*Value{exceptionValue(s.err)})
		return err
	}
	_, err := a.Call(capability.Resolve, Undefined, []*Value{s.value})
	return err
}
