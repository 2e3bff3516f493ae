// Package engine ties the runtime, the interpreter and the builtins into a
// Context a host program can evaluate scripts in.
package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/pkg/errors"

	"github.com/example/jscore/builtins"
	"github.com/example/jscore/interpreter"
	"github.com/example/jscore/runtime"
)

var (
	contextIDs atomic.Uint64

	// nonBlocking maps a goroutine id to its open non-blocking Context.
	nonBlocking sync.Map
)

// Context is one realm with its standard library, ready to run scripts.
// A Context is confined to one goroutine at a time; host functions called
// from a script may re-enter it on the same goroutine.
type Context struct {
	id       uint64
	agent    *runtime.Agent
	interp   *interpreter.Interpreter
	cache    *parseCache
	logger   *slog.Logger
	canBlock bool

	owner   atomic.Int64
	depth   int
	blocker int64
	closed  bool
}

// New builds a Context.
func New(opts ...Option) (*Context, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	c := &Context{
		id:       contextIDs.Add(1),
		interp:   interpreter.New(),
		canBlock: s.canBlock,
	}
	c.logger = s.logger.With("context", c.id)

	if !s.canBlock {
		id := goid.Get()
		if _, loaded := nonBlocking.LoadOrStore(id, c); loaded {
			return nil, ErrNonBlockingRegistered
		}
		c.blocker = id
	}

	cache, err := newParseCache(s.parseCacheSize, c.logc)
	if err != nil {
		c.release()
		return nil, errors.Wrap(err, "creating parse cache")
	}
	c.cache = cache
	c.interp.SetParser(cache.Parse)

	c.agent = runtime.NewAgent(
		runtime.WithExecutor(c.interp),
		runtime.WithLogger(c.logger),
		runtime.WithLimits(s.limits),
	)
	builtins.Install(c.agent, builtins.WithStdout(s.stdout), builtins.WithStderr(s.stderr))
	c.logc(context.Background(), slog.LevelDebug, "context created",
		"can_block", s.canBlock, "parse_cache", s.parseCacheSize)
	return c, nil
}

// Default builds a Context with default options and panics on failure.
func Default() *Context {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Context) logc(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !c.logger.Enabled(ctx, level) {
		return
	}
	c.logger.Log(ctx, level, msg, args...)
}

// enter claims the Context for the calling goroutine.
func (c *Context) enter() (func(), error) {
	if c.closed {
		return nil, ErrClosed
	}
	id := goid.Get()
	if c.owner.Load() == id {
		c.depth++
		return func() { c.depth-- }, nil
	}
	if !c.owner.CompareAndSwap(0, id) {
		return nil, ErrContextBusy
	}
	c.depth = 1
	return func() {
		c.depth = 0
		c.owner.Store(0)
	}, nil
}

// Eval runs source as a global script.
func (c *Context) Eval(source string) (*runtime.Value, error) {
	return c.EvalContext(context.Background(), "<eval>", source)
}

// EvalFile runs source as a global script reported under name.
func (c *Context) EvalFile(name, source string) (*runtime.Value, error) {
	return c.EvalContext(context.Background(), name, source)
}

// RunFile reads and runs a script file.
func (c *Context) RunFile(path string) (*runtime.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading script")
	}
	return c.EvalFile(path, string(data))
}

// EvalContext runs source as a global script. Cancelling ctx stops the
// script with a *runtime.LimitError.
func (c *Context) EvalContext(ctx context.Context, name, source string) (*runtime.Value, error) {
	leave, err := c.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	prog, err := c.cache.Parse(name, source)
	if err != nil {
		return nil, c.hostError(name, interpreter.SyntaxError(c.agent, err))
	}
	if c.depth == 1 {
		c.agent.ResetSteps()
	}
	var result *runtime.Value
	err = c.agent.WithContext(ctx, func() error {
		v, err := c.interp.RunProgram(c.agent, prog)
		result = v
		return err
	})
	if err != nil {
		return nil, c.hostError(name, err)
	}
	return result, nil
}

// hostError converts an error leaving the engine into its host form.
func (c *Context) hostError(source string, err error) error {
	if exc, ok := runtime.AsException(err); ok {
		return newScriptError(source, exc)
	}
	var limit *runtime.LimitError
	if errors.As(err, &limit) {
		c.logc(context.Background(), slog.LevelWarn, "execution limit hit", "source", source, "error", limit.Error())
	}
	return err
}

// RunJobs drains pending promise jobs and settles native futures that have
// already finished.
func (c *Context) RunJobs() error {
	leave, err := c.enter()
	if err != nil {
		return err
	}
	defer leave()
	return c.hostError("", c.agent.RunJobs())
}

// RunJobsContext drains jobs and waits for spawned native futures until
// none remain or ctx is done.
func (c *Context) RunJobsContext(ctx context.Context) error {
	leave, err := c.enter()
	if err != nil {
		return err
	}
	defer leave()
	err = c.agent.WithContext(ctx, func() error { return c.agent.RunJobsContext(ctx) })
	return c.hostError("", err)
}

// RegisterGlobalProperty defines a property on the global object.
func (c *Context) RegisterGlobalProperty(name string, v *runtime.Value, attr runtime.Attribute) error {
	leave, err := c.enter()
	if err != nil {
		return err
	}
	defer leave()
	err = runtime.DefinePropertyOrThrow(c.agent, c.agent.Global(), runtime.StringKey(name), attr.Descriptor(v))
	return c.hostError("", err)
}

// RegisterGlobalFunction defines a writable, configurable global function.
func (c *Context) RegisterGlobalFunction(name string, length int, fn runtime.NativeFunction) error {
	f := c.agent.NewNativeFunction(name, length, fn)
	return c.RegisterGlobalProperty(name, runtime.NewObject(f), runtime.AttrDefault)
}

// RegisterGlobalClosure defines a global function that receives captures
// on every call.
func (c *Context) RegisterGlobalClosure(name string, length int, fn runtime.ClosureFunction, captures any) error {
	f := c.agent.NewClosureFunction(name, length, fn, captures)
	return c.RegisterGlobalProperty(name, runtime.NewObject(f), runtime.AttrDefault)
}

// Global returns the global object.
func (c *Context) Global() *runtime.Object { return c.agent.Global() }

// Agent returns the underlying agent for lower-level access.
func (c *Context) Agent() *runtime.Agent { return c.agent }

// Limits returns the execution limits in force.
func (c *Context) Limits() runtime.Limits { return c.agent.Limits() }

// SetLimits replaces the execution limits.
func (c *Context) SetLimits(l runtime.Limits) { c.agent.SetLimits(l) }

// CanBlock reports whether the Context was created as blocking.
func (c *Context) CanBlock() bool { return c.canBlock }

// Close terminates suspended coroutines, drops pending jobs and releases
// the non-blocking registration. Closing twice is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if owner := c.owner.Load(); owner != 0 && owner != goid.Get() {
		return ErrContextBusy
	}
	c.closed = true
	c.agent.Close()
	c.release()
	c.logc(context.Background(), slog.LevelDebug, "context closed",
		"parse_hits", c.cache.hits, "parse_misses", c.cache.misses)
	return nil
}

func (c *Context) release() {
	if c.blocker != 0 {
		nonBlocking.CompareAndDelete(c.blocker, c)
		c.blocker = 0
	}
}
