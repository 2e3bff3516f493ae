package runtime

// Call invokes f with the given this value and arguments.
func (a *Agent) Call(f *Value, this *Value, args []*Value) (*Value, error) {
	o := f.AsObject()
	if o == nil || o.methods.Call == nil {
		return nil, a.ThrowTypeError("%s is not a function", describeCallee(f))
	}
	if this == nil {
		this = Undefined
	}
	return o.methods.Call(a, o, this, args)
}

// Construct invokes f as a constructor. newTarget defaults to f.
func (a *Agent) Construct(f *Value, args []*Value, newTarget *Value) (*Object, error) {
	o := f.AsObject()
	if o == nil || o.methods.Construct == nil {
		return nil, a.ThrowTypeError("%s is not a constructor", describeCallee(f))
	}
	nt := o
	if newTarget != nil && newTarget.IsObject() {
		nt = newTarget.Object
	}
	return o.methods.Construct(a, o, args, nt)
}

func describeCallee(v *Value) string {
	if o := v.AsObject(); o != nil {
		if name, err := FunctionName(o); err == nil && name != "" {
			return name
		}
		return "object"
	}
	return v.String()
}

func functionCall(a *Agent, f *Object, this *Value, args []*Value) (*Value, error) {
	fd := f.data.(*FunctionData)
	if err := a.enterCall(); err != nil {
		return nil, err
	}
	defer a.exitCall()

	switch fd.kind {
	case FunctionNative, FunctionClosure:
		return a.callHost(fd, this, args, nil)
	}
	if fd.Code.ClassConstructor {
		name, err := FunctionName(f)
		if err != nil {
			return nil, err
		}
		return nil, a.ThrowTypeError("Class constructor %s cannot be invoked without 'new'", name)
	}
	c, _, err := a.ordinaryCallEvaluate(f, fd, this, args, nil)
	if err != nil {
		return nil, err
	}
	if c.Type == CompletionReturn {
		return c.Value, nil
	}
	return Undefined, nil
}

func functionConstruct(a *Agent, f *Object, args []*Value, newTarget *Object) (*Object, error) {
	fd := f.data.(*FunctionData)
	if err := a.enterCall(); err != nil {
		return nil, err
	}
	defer a.exitCall()

	switch fd.kind {
	case FunctionNative, FunctionClosure:
		v, err := a.callHost(fd, Undefined, args, newTarget)
		if err != nil {
			return nil, err
		}
		if o := v.AsObject(); o != nil {
			return o, nil
		}
		return OrdinaryCreateFromConstructor(a, newTarget, a.realm.Intrinsics.ObjectPrototype, OrdinaryData{})
	}

	code := fd.Code
	var thisObj *Object
	if !code.Derived {
		var err error
		thisObj, err = OrdinaryCreateFromConstructor(a, newTarget, fd.realm.Intrinsics.ObjectPrototype, OrdinaryData{})
		if err != nil {
			return nil, err
		}
	}
	c, env, err := a.ordinaryCallEvaluate(f, fd, objectOrNil(thisObj), args, newTarget)
	if err != nil {
		return nil, err
	}
	if c.Type == CompletionReturn {
		if o := c.Value.AsObject(); o != nil {
			return o, nil
		}
		if !code.Derived {
			return thisObj, nil
		}
		if !c.Value.IsUndefined() {
			return nil, a.ThrowTypeError("Derived constructors may only return object or undefined")
		}
	}
	if !code.Derived {
		return thisObj, nil
	}
	this, err := env.GetThisBinding(a)
	if err != nil {
		return nil, err
	}
	return this.Object, nil
}

func objectOrNil(o *Object) *Value {
	if o == nil {
		return nil
	}
	return NewObject(o)
}

// callHost runs a native or closure function, keeping new.target visible
// through Agent.NewTarget for the duration of the call.
func (a *Agent) callHost(fd *FunctionData, this *Value, args []*Value, newTarget *Object) (*Value, error) {
	a.newTarget = append(a.newTarget, newTarget)
	defer func() {
		a.newTarget[len(a.newTarget)-1] = nil
		a.newTarget = a.newTarget[:len(a.newTarget)-1]
	}()
	var (
		v   *Value
		err error
	)
	if fd.kind == FunctionClosure {
		v, err = fd.closure(a, this, args, fd.captures)
	} else {
		v, err = fd.native(a, this, args)
	}
	if err != nil {
		return nil, a.toLanguageError(err)
	}
	if v == nil {
		v = Undefined
	}
	return v, nil
}

// ordinaryCallEvaluate prepares the activation of an interpreted function,
// binds this, instantiates its declarations and runs the body. this is nil
// for derived constructors, whose this binding stays uninitialized until
// super() returns. The environment stack is restored on every exit path.
func (a *Agent) ordinaryCallEvaluate(f *Object, fd *FunctionData, this *Value, args []*Value, newTarget *Object) (Completion, *Environment, error) {
	code := fd.Code
	if a.executor == nil {
		return Completion{}, nil, a.ThrowTypeError("no executor installed")
	}
	base := a.EnvironmentDepth()
	defer a.TruncateEnvironments(base)

	var nt *Value
	if newTarget != nil {
		nt = NewObject(newTarget)
	}
	env := NewFunctionEnvironment(f, nt, fd.Env, code.LexicalThis)
	if !code.LexicalThis && this != nil {
		thisValue := this
		if !code.Strict {
			if this.IsNullish() {
				thisValue = NewObject(fd.realm.Global)
			} else {
				o, err := this.ToObject(a)
				if err != nil {
					return Completion{}, nil, err
				}
				thisValue = NewObject(o)
			}
		}
		if err := env.BindThisValue(a, thisValue); err != nil {
			return Completion{}, nil, err
		}
		if newTarget != nil && !code.Derived {
			if err := a.InitializeInstanceElements(this.Object, f); err != nil {
				return Completion{}, nil, err
			}
		}
	}
	a.PushEnvironment(env)

	bodyEnv, err := a.functionDeclarationInstantiation(code, env, args)
	if err != nil {
		return Completion{}, nil, err
	}

	switch {
	case code.Generator && code.Async:
		o, err := a.startAsyncGenerator(f, code, bodyEnv, base)
		return Completion{Type: CompletionReturn, Value: objectOrUndefined(o)}, env, err
	case code.Generator:
		o, err := a.startGenerator(f, code, bodyEnv, base)
		return Completion{Type: CompletionReturn, Value: objectOrUndefined(o)}, env, err
	case code.Async:
		p, err := a.startAsyncFunction(code, bodyEnv, base)
		return Completion{Type: CompletionReturn, Value: objectOrUndefined(p)}, env, err
	}

	c, err := a.executor.Execute(a, code, bodyEnv)
	if err != nil {
		return Completion{}, nil, err
	}
	if c.Type == CompletionThrow {
		return Completion{}, nil, ThrowValue(c.Value)
	}
	return c, env, nil
}

func objectOrUndefined(o *Object) *Value {
	if o == nil {
		return Undefined
	}
	return NewObject(o)
}

// functionDeclarationInstantiation binds parameters and the arguments
// object in env. When the parameter list contains expressions the body gets
// a separate var environment, which is returned and pushed.
func (a *Agent) functionDeclarationInstantiation(code *FunctionCode, env *Environment, args []*Value) (*Environment, error) {
	for _, name := range code.ParameterNames {
		if _, ok := env.Lookup(name); !ok {
			env.CreateMutableBinding(name, BindingParam, false)
		}
	}

	if code.NeedsArgumentsObject() {
		ao := a.CreateUnmappedArgumentsObject(args)
		if code.Strict {
			env.CreateImmutableBinding("arguments", BindingParam, false)
		} else {
			env.CreateMutableBinding("arguments", BindingParam, false)
		}
		if err := env.InitializeBinding(a, "arguments", NewObject(ao)); err != nil {
			return nil, err
		}
	}

	for i, p := range code.Params {
		var v *Value
		switch {
		case p.Rest:
			var rest []*Value
			if i < len(args) {
				rest = args[i:]
			}
			v = a.NewArrayValue(rest)
		case i < len(args):
			v = args[i]
		default:
			v = Undefined
		}
		if v.IsUndefined() && p.Initializer != nil {
			var err error
			v, err = a.executor.Evaluate(a, p.Initializer, env)
			if err != nil {
				return nil, err
			}
		}
		if err := a.executor.BindPattern(a, p.Target, v, env); err != nil {
			return nil, err
		}
	}

	if !code.HasParameterExpressions {
		return env, nil
	}
	varEnv := NewVarEnvironment(env)
	a.PushEnvironment(varEnv)
	return varEnv, nil
}

// SuperCall runs super(...args) for the derived constructor whose function
// environment is thisEnv, binding this to the constructed object.
func (a *Agent) SuperCall(thisEnv *Environment, args []*Value) (*Value, error) {
	f := thisEnv.Function()
	parent, err := f.GetPrototypeOf(a)
	if err != nil {
		return nil, err
	}
	if parent == nil || !parent.IsConstructor() {
		return nil, a.ThrowTypeError("Super constructor %s of anonymous class is not a constructor", describeCallee(objectOrUndefined(parent)))
	}
	result, err := a.Construct(NewObject(parent), args, thisEnv.NewTarget())
	if err != nil {
		return nil, err
	}
	v := NewObject(result)
	if err := thisEnv.BindThisValue(a, v); err != nil {
		return nil, err
	}
	if err := a.InitializeInstanceElements(result, f); err != nil {
		return nil, err
	}
	return v, nil
}
