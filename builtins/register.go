package builtins

import (
	"io"
	"os"

	"github.com/example/jscore/runtime"
)

// Option configures Install.
type Option func(*options)

type options struct {
	stdout io.Writer
	stderr io.Writer
}

// WithStdout sets the writer behind console.log, console.info and console.debug.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStderr sets the writer behind console.error and console.warn.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// Install creates the built-in constructors and namespaces of the agent's
// realm, records them as intrinsics and binds them on the global object.
func Install(a *runtime.Agent, opts ...Option) {
	o := options{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	in := a.Intrinsics()
	global := a.Global()
	define := func(name string, obj *runtime.Object) {
		setDataProp(global, name, runtime.NewObject(obj))
	}

	// 1. Object (foundational, other prototypes derive from it)
	in.Object = createObjectConstructor(a)
	define("Object", in.Object)

	// 2. Function and the generator/async function families
	in.Function = createFunctionConstructor(a)
	define("Function", in.Function)
	installFunctionFamilies(a)

	// 3. Iterators and generators
	installIteratorPrototypes(a)

	// 4. Array
	in.Array = createArrayConstructor(a)
	define("Array", in.Array)

	// 5. String
	define("String", createStringConstructor(a))

	// 6. Number
	define("Number", createNumberConstructor(a))

	// 7. Boolean
	define("Boolean", createBooleanConstructor(a))

	// 8. Symbol
	define("Symbol", createSymbolConstructor(a))

	// 9. BigInt
	define("BigInt", createBigIntConstructor(a))

	// 10. Error types
	for _, kind := range runtime.ErrorKinds {
		ctor := createErrorConstructor(a, kind)
		in.ErrorConstructors[kind] = ctor
		define(kind.String(), ctor)
	}

	// 11. RegExp
	in.RegExp = createRegExpConstructor(a)
	define("RegExp", in.RegExp)

	// 12. Map, Set, WeakMap, WeakSet
	define("Map", createMapConstructor(a))
	define("Set", createSetConstructor(a))
	define("WeakMap", createWeakMapConstructor(a))
	define("WeakSet", createWeakSetConstructor(a))

	// 13. Promise
	in.Promise = createPromiseConstructor(a)
	define("Promise", in.Promise)

	// 14. Proxy and Reflect
	define("Proxy", createProxyConstructor(a))
	define("Reflect", createReflectObject(a))

	// 15. Math
	define("Math", createMathObject(a))

	// 16. JSON
	define("JSON", createJSONObject(a))

	// 17. Console
	define("console", createConsoleObject(a, o.stdout, o.stderr))

	// 18. Date
	define("Date", createDateConstructor(a))

	// 19. Global functions and values
	registerGlobalFunctions(a)
}
