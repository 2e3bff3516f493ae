package builtins

import (
	"math"

	"github.com/example/jscore/runtime"
)

func createFunctionConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().FunctionPrototype
	runtime.DefineRaw(proto, runtime.StringKey("length"), runtime.Zero, runtime.AttrConfigurable)
	runtime.DefineRaw(proto, runtime.StringKey("name"), runtime.EmptyString, runtime.AttrConfigurable)

	setMethod(a, proto, "call", 1, functionCall)
	setMethod(a, proto, "apply", 2, functionApply)
	setMethod(a, proto, "bind", 1, functionBind)
	setMethod(a, proto, "toString", 0, functionToString)
	hasInstance := a.NewNativeFunction("[Symbol.hasInstance]", 1, functionHasInstance)
	runtime.DefineConstant(proto, runtime.SymbolKey(runtime.SymHasInstance), runtime.NewObject(hasInstance))

	thrower := a.Intrinsics().ThrowTypeError
	runtime.DefineAccessor(proto, runtime.StringKey("caller"), thrower, thrower)
	runtime.DefineAccessor(proto, runtime.StringKey("arguments"), thrower, thrower)

	return newConstructor(a, "Function", 1, proto, dynamicFunction(runtime.HintNormal))
}

// installFunctionFamilies creates the hidden GeneratorFunction,
// AsyncFunction and AsyncGeneratorFunction constructors.
func installFunctionFamilies(a *runtime.Agent) {
	in := a.Intrinsics()
	families := []struct {
		name  string
		proto *runtime.Object
		hint  runtime.FunctionKindHint
	}{
		{"GeneratorFunction", in.GeneratorFunctionPrototype, runtime.HintGenerator},
		{"AsyncFunction", in.AsyncFunctionPrototype, runtime.HintAsync},
		{"AsyncGeneratorFunction", in.AsyncGeneratorFunctionPrototype, runtime.HintAsyncGenerator},
	}
	for _, f := range families {
		ctor := a.NewNativeConstructor(f.name, 1, dynamicFunction(f.hint))
		_, _ = ctor.SetPrototypeOf(a, in.Function)
		runtime.DefineConstant(ctor, runtime.StringKey("prototype"), runtime.NewObject(f.proto))
		runtime.DefineRaw(f.proto, runtime.StringKey("constructor"), runtime.NewObject(ctor), runtime.AttrConfigurable)
		setToStringTag(f.proto, f.name)
	}
	runtime.DefineRaw(in.GeneratorFunctionPrototype, runtime.StringKey("prototype"), runtime.NewObject(in.GeneratorPrototype), runtime.AttrConfigurable)
	runtime.DefineRaw(in.AsyncGeneratorFunctionPrototype, runtime.StringKey("prototype"), runtime.NewObject(in.AsyncGeneratorPrototype), runtime.AttrConfigurable)
}

// dynamicFunction builds the constructor behavior shared by Function and
// its generator/async relatives: every argument but the last is a
// parameter, the last is the body.
func dynamicFunction(hint runtime.FunctionKindHint) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		exec := a.Executor()
		if exec == nil {
			return nil, a.ThrowTypeError("code generation from strings is not available")
		}
		var params []string
		body := ""
		for i, arg := range args {
			s, err := arg.ToString(a)
			if err != nil {
				return nil, err
			}
			if i == len(args)-1 {
				body = s
			} else {
				params = append(params, s)
			}
		}
		f, err := exec.CreateDynamicFunction(a, hint, params, body, a.NewTarget())
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(f), nil
	}
}

func functionCall(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if !this.IsCallable() {
		return nil, a.ThrowTypeError("Function.prototype.call called on %s", describe(this))
	}
	var rest []*runtime.Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return a.Call(this, argAt(args, 0), rest)
}

func functionApply(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if !this.IsCallable() {
		return nil, a.ThrowTypeError("Function.prototype.apply was called on %s, which is not a function", describe(this))
	}
	argArray := argAt(args, 1)
	if argArray.IsNullish() {
		return a.Call(this, argAt(args, 0), nil)
	}
	list, err := runtime.CreateListFromArrayLike(a, argArray)
	if err != nil {
		return nil, err
	}
	return a.Call(this, argAt(args, 0), list)
}

func functionBind(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if !this.IsCallable() {
		return nil, a.ThrowTypeError("Bind must be called on a function")
	}
	target := this.Object
	var bound []*runtime.Value
	if len(args) > 1 {
		bound = args[1:]
	}
	f, err := runtime.BoundFunctionCreate(a, target, argAt(args, 0), bound)
	if err != nil {
		return nil, err
	}

	length := 0.0
	hasLength, err := target.HasOwnProperty(a, runtime.StringKey("length"))
	if err != nil {
		return nil, err
	}
	if hasLength {
		l, err := target.Get(a, runtime.StringKey("length"))
		if err != nil {
			return nil, err
		}
		if l.IsNumber() {
			switch n := l.Float(); {
			case math.IsInf(n, 1):
				length = n
			case !math.IsInf(n, -1):
				length = math.Max(0, runtime.IntegerOrInfinity(n)-float64(len(bound)))
			}
		}
	}
	runtime.DefineRaw(f, runtime.StringKey("length"), runtime.NewNumber(length), runtime.AttrConfigurable)

	name, err := target.Get(a, runtime.StringKey("name"))
	if err != nil {
		return nil, err
	}
	s := ""
	if name.IsString() {
		s = name.Str
	}
	runtime.DefineRaw(f, runtime.StringKey("name"), runtime.NewString("bound "+s), runtime.AttrConfigurable)
	return runtime.NewObject(f), nil
}

func functionToString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	if !this.IsCallable() {
		return nil, a.ThrowTypeError("Function.prototype.toString requires that 'this' be a Function")
	}
	if fd, ok := this.Object.Data().(*runtime.FunctionData); ok && fd.Code != nil && fd.Code.Source != "" {
		return runtime.NewString(fd.Code.Source), nil
	}
	name, err := runtime.FunctionName(this.Object)
	if err != nil {
		return nil, err
	}
	return runtime.NewString("function " + name + "() { [native code] }"), nil
}

func functionHasInstance(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	ok, err := runtime.OrdinaryHasInstance(a, this, argAt(args, 0))
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}
