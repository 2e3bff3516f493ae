package builtins

import (
	"github.com/example/jscore/runtime"
)

// installIteratorPrototypes fills in %IteratorPrototype%, the async
// iterator prototype and both generator prototypes.
func installIteratorPrototypes(a *runtime.Agent) {
	in := a.Intrinsics()
	returnThis := func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		return this, nil
	}
	setSymbolMethod(a, in.IteratorPrototype, runtime.SymIterator, 0, returnThis)
	setSymbolMethod(a, in.AsyncIteratorPrototype, runtime.SymAsyncIterator, 0, returnThis)

	gen := in.GeneratorPrototype
	runtime.DefineRaw(gen, runtime.StringKey("constructor"), runtime.NewObject(in.GeneratorFunctionPrototype), runtime.AttrConfigurable)
	setMethod(a, gen, "next", 1, generatorResume(runtime.ResumeNext))
	setMethod(a, gen, "return", 1, generatorResume(runtime.ResumeReturn))
	setMethod(a, gen, "throw", 1, generatorResume(runtime.ResumeThrow))
	setToStringTag(gen, "Generator")

	agen := in.AsyncGeneratorPrototype
	runtime.DefineRaw(agen, runtime.StringKey("constructor"), runtime.NewObject(in.AsyncGeneratorFunctionPrototype), runtime.AttrConfigurable)
	setMethod(a, agen, "next", 1, asyncGeneratorResume(runtime.ResumeNext))
	setMethod(a, agen, "return", 1, asyncGeneratorResume(runtime.ResumeReturn))
	setMethod(a, agen, "throw", 1, asyncGeneratorResume(runtime.ResumeThrow))
	setToStringTag(agen, "AsyncGenerator")
}

func generatorResume(mode runtime.ResumeMode) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		return a.GeneratorResume(this, mode, argAt(args, 0))
	}
}

func asyncGeneratorResume(mode runtime.ResumeMode) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		p, err := a.AsyncGeneratorEnqueue(this, mode, argAt(args, 0))
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(p), nil
	}
}
