package runtime

import (
	"context"
	"io"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
)

// Limits bounds the resources a single agent may consume.
type Limits struct {
	// MaxCallDepth bounds nested calls; exceeding it stops execution with a LimitError.
	MaxCallDepth int `yaml:"max_call_depth"`
	// MaxSteps bounds evaluation steps; zero disables the bound.
	MaxSteps uint64 `yaml:"max_steps"`
	// MaxPrototypeChain bounds prototype walks; exceeding it throws a RangeError.
	MaxPrototypeChain int `yaml:"max_prototype_chain"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxCallDepth:      1024,
		MaxPrototypeChain: 10000,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxCallDepth <= 0 {
		l.MaxCallDepth = d.MaxCallDepth
	}
	if l.MaxPrototypeChain <= 0 {
		l.MaxPrototypeChain = d.MaxPrototypeChain
	}
	return l
}

// Intrinsics holds the well-known objects of a realm. The runtime creates
// the bare objects; the builtins package fills in their methods.
type Intrinsics struct {
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	StringPrototype   *Object
	NumberPrototype   *Object
	BooleanPrototype  *Object
	SymbolPrototype   *Object
	BigIntPrototype   *Object
	ErrorPrototypes   map[ErrorKind]*Object
	ErrorConstructors map[ErrorKind]*Object

	IteratorPrototype             *Object
	AsyncIteratorPrototype        *Object
	ArrayIteratorPrototype        *Object
	StringIteratorPrototype       *Object
	MapIteratorPrototype          *Object
	SetIteratorPrototype          *Object
	RegExpStringIteratorPrototype *Object

	GeneratorPrototype              *Object
	GeneratorFunctionPrototype      *Object
	AsyncGeneratorPrototype         *Object
	AsyncGeneratorFunctionPrototype *Object
	AsyncFunctionPrototype          *Object

	Promise          *Object
	PromisePrototype *Object

	Object   *Object
	Function *Object
	Array    *Object
	// ArrayValues is %Array.prototype.values%, shared by arguments objects.
	ArrayValues *Object

	// ThrowTypeError is the shared accessor that guards restricted properties.
	ThrowTypeError *Object

	// Eval is %eval%; calls to it by the name eval are direct evals.
	Eval   *Object
	RegExp *Object
}

// Realm is a global object together with its intrinsics.
type Realm struct {
	Intrinsics *Intrinsics
	Global     *Object
	GlobalEnv  *Environment
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

// WithLimits sets the agent's resource limits.
func WithLimits(l Limits) AgentOption {
	return func(a *Agent) { a.limits = l.withDefaults() }
}

// WithExecutor sets the statement/expression executor.
func WithExecutor(e Executor) AgentOption {
	return func(a *Agent) { a.executor = e }
}

// Agent is the execution state of one engine instance: the realm, the
// environment stack, the job queue and the bookkeeping for limits. An Agent
// is confined to one goroutine at a time.
type Agent struct {
	realm    *Realm
	executor Executor
	logger   *slog.Logger
	limits   Limits
	ctx      context.Context
	root     context.Context
	cancel   context.CancelFunc

	envs      []*Environment
	depth     int
	steps     uint64
	newTarget []*Object

	jobs     *JobQueue
	futures  chan futureResult
	inflight int

	current    *coroutine
	coroutines mapset.Set[*coroutine]
	abandoned  *abandonQueue

	rejected    mapset.Set[*Object]
	onUnhandled func(p *Object, reason *Value)

	coercing mapset.Set[*Object]
	symbols  map[string]*Symbol
	kept     mapset.Set[*Object]
	closed   bool
}

// NewAgent creates an agent with a fresh realm.
func NewAgent(opts ...AgentOption) *Agent {
	a := &Agent{
		limits:     DefaultLimits(),
		jobs:       NewJobQueue(),
		futures:    make(chan futureResult, 16),
		coroutines: mapset.NewThreadUnsafeSet[*coroutine](),
		abandoned:  newAbandonQueue(),
		rejected:   mapset.NewThreadUnsafeSet[*Object](),
		coercing:   mapset.NewThreadUnsafeSet[*Object](),
		kept:       mapset.NewThreadUnsafeSet[*Object](),
		symbols:    make(map[string]*Symbol),
	}
	a.root, a.cancel = context.WithCancel(context.Background())
	a.ctx = a.root
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.realm = a.newRealm()
	return a
}

func (a *Agent) newRealm() *Realm {
	in := &Intrinsics{
		ErrorPrototypes:   make(map[ErrorKind]*Object),
		ErrorConstructors: make(map[ErrorKind]*Object),
	}
	objProto := NewOrdinaryObject(nil)
	in.ObjectPrototype = objProto
	in.FunctionPrototype = NewObjectWithData(objProto, &FunctionData{
		kind:   FunctionNative,
		native: func(*Agent, *Value, []*Value) (*Value, error) { return Undefined, nil },
	})
	in.ArrayPrototype = NewObjectWithData(objProto, ArrayData{})
	in.ArrayPrototype.putRaw(lengthKey, &Property{Value: Zero, Writable: true})
	in.StringPrototype = NewObjectWithData(objProto, NewPrimitiveData(KindString, EmptyString))
	in.StringPrototype.putRaw(lengthKey, &Property{Value: Zero})
	in.NumberPrototype = NewObjectWithData(objProto, NewPrimitiveData(KindNumber, Zero))
	in.BooleanPrototype = NewObjectWithData(objProto, NewPrimitiveData(KindBoolean, False))
	in.SymbolPrototype = NewOrdinaryObject(objProto)
	in.BigIntPrototype = NewOrdinaryObject(objProto)

	base := NewOrdinaryObject(objProto)
	in.ErrorPrototypes[ErrorGeneric] = base
	for _, k := range ErrorKinds {
		proto := base
		if k != ErrorGeneric {
			proto = NewOrdinaryObject(base)
			in.ErrorPrototypes[k] = proto
		}
		proto.putRaw(StringKey("name"), &Property{Value: NewString(k.String()), Writable: true, Configurable: true})
		proto.putRaw(StringKey("message"), &Property{Value: EmptyString, Writable: true, Configurable: true})
	}

	in.IteratorPrototype = NewOrdinaryObject(objProto)
	in.AsyncIteratorPrototype = NewOrdinaryObject(objProto)
	in.ArrayIteratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.StringIteratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.MapIteratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.SetIteratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.RegExpStringIteratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.GeneratorPrototype = NewOrdinaryObject(in.IteratorPrototype)
	in.AsyncGeneratorPrototype = NewOrdinaryObject(in.AsyncIteratorPrototype)
	in.GeneratorFunctionPrototype = NewOrdinaryObject(in.FunctionPrototype)
	in.AsyncGeneratorFunctionPrototype = NewOrdinaryObject(in.FunctionPrototype)
	in.AsyncFunctionPrototype = NewOrdinaryObject(in.FunctionPrototype)
	in.PromisePrototype = NewOrdinaryObject(objProto)

	realm := &Realm{Intrinsics: in}
	in.ThrowTypeError = a.newNativeFunctionIn(realm, "", 0, func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
		return nil, a.ThrowTypeError("'caller', 'callee', and 'arguments' properties may not be accessed on strict mode functions or the arguments objects for calls to them")
	}, false)
	_, _ = in.ThrowTypeError.PreventExtensions(a)

	realm.Global = NewObjectWithData(objProto, GlobalData{})
	realm.GlobalEnv = NewGlobalEnvironment(realm.Global)
	return realm
}

// Realm returns the agent's current realm.
func (a *Agent) Realm() *Realm { return a.realm }

// Intrinsics returns the intrinsics of the current realm.
func (a *Agent) Intrinsics() *Intrinsics { return a.realm.Intrinsics }

// Global returns the global object.
func (a *Agent) Global() *Object { return a.realm.Global }

// GlobalEnv returns the global environment record.
func (a *Agent) GlobalEnv() *Environment { return a.realm.GlobalEnv }

// Logger returns the agent's logger.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// Executor returns the installed executor.
func (a *Agent) Executor() Executor { return a.executor }

// SetExecutor installs the executor used for ordinary function bodies.
func (a *Agent) SetExecutor(e Executor) { a.executor = e }

// Limits returns the agent's resource limits.
func (a *Agent) Limits() Limits { return a.limits }

// SetLimits replaces the resource limits. Zero fields take their defaults.
func (a *Agent) SetLimits(l Limits) { a.limits = l.withDefaults() }

// Context returns the context that interrupts evaluation when done.
func (a *Agent) Context() context.Context { return a.ctx }

// WithContext runs fn with ctx as the interrupt context.
func (a *Agent) WithContext(ctx context.Context, fn func() error) error {
	prev := a.ctx
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(prev, cancel)
	a.ctx = merged
	defer func() {
		stop()
		cancel()
		a.ctx = prev
	}()
	return fn()
}

// ResetSteps clears the step counter, typically at the start of an evaluation.
func (a *Agent) ResetSteps() { a.steps = 0 }

// Tick accounts one evaluation step and checks the step limit and the
// interrupt context.
func (a *Agent) Tick() error {
	a.steps++
	if a.limits.MaxSteps > 0 && a.steps > a.limits.MaxSteps {
		return &LimitError{Kind: LimitSteps, Limit: a.limits.MaxSteps}
	}
	if a.steps&0x3ff == 0 {
		if err := a.ctx.Err(); err != nil {
			return &LimitError{Kind: LimitInterrupted, Cause: err}
		}
		a.reapAbandoned()
	}
	return nil
}

// CallDepth returns the number of active calls.
func (a *Agent) CallDepth() int { return a.depth }

func (a *Agent) enterCall() error {
	if a.depth >= a.limits.MaxCallDepth {
		return &LimitError{Kind: LimitCallDepth, Limit: uint64(a.limits.MaxCallDepth)}
	}
	a.depth++
	if err := a.ctx.Err(); err != nil {
		a.depth--
		return &LimitError{Kind: LimitInterrupted, Cause: err}
	}
	return nil
}

func (a *Agent) exitCall() { a.depth-- }

// PushEnvironment makes env the running lexical environment.
func (a *Agent) PushEnvironment(env *Environment) {
	a.envs = append(a.envs, env)
}

// PopEnvironment removes the running lexical environment.
func (a *Agent) PopEnvironment() *Environment {
	n := len(a.envs)
	if n == 0 {
		return nil
	}
	env := a.envs[n-1]
	a.envs = a.envs[:n-1]
	return env
}

// CurrentEnvironment returns the running lexical environment, falling back
// to the global environment.
func (a *Agent) CurrentEnvironment() *Environment {
	if n := len(a.envs); n > 0 {
		return a.envs[n-1]
	}
	return a.realm.GlobalEnv
}

// EnvironmentDepth returns the height of the environment stack.
func (a *Agent) EnvironmentDepth() int { return len(a.envs) }

// TruncateEnvironments pops environments until the stack has height n.
func (a *Agent) TruncateEnvironments(n int) {
	if n < len(a.envs) {
		clear(a.envs[n:])
		a.envs = a.envs[:n]
	}
}

// NewTarget returns new.target of the innermost native constructor
// invocation, or nil when the native function was called without new.
func (a *Agent) NewTarget() *Object {
	if n := len(a.newTarget); n > 0 {
		return a.newTarget[n-1]
	}
	return nil
}

// KeepAlive pins o for the lifetime of the agent.
func (a *Agent) KeepAlive(o *Object) { a.kept.Add(o) }

// Release unpins an object pinned with KeepAlive.
func (a *Agent) Release(o *Object) { a.kept.Remove(o) }

// Closed reports whether Close was called.
func (a *Agent) Closed() bool { return a.closed }

// Close terminates suspended coroutines, drops pending jobs and cancels
// in-flight futures. The agent must not be used afterwards.
func (a *Agent) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.cancel()
	for _, c := range a.coroutines.ToSlice() {
		c.kill()
	}
	a.coroutines.Clear()
	a.jobs.Clear()
	a.rejected.Clear()
	a.kept.Clear()
	a.logger.Debug("agent closed")
}
