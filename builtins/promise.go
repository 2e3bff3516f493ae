package builtins

import (
	"github.com/example/jscore/runtime"
)

func createPromiseConstructor(a *runtime.Agent) *runtime.Object {
	proto := a.Intrinsics().PromisePrototype
	setMethod(a, proto, "then", 2, promiseThen)
	setMethod(a, proto, "catch", 1, promiseCatch)
	setMethod(a, proto, "finally", 1, promiseFinally)
	setToStringTag(proto, "Promise")

	ctor := newConstructor(a, "Promise", 1, proto, promiseConstructorCall)
	setMethod(a, ctor, "resolve", 1, promiseResolveStatic)
	setMethod(a, ctor, "reject", 1, promiseRejectStatic)
	setMethod(a, ctor, "withResolvers", 0, promiseWithResolvers)
	setMethod(a, ctor, "all", 1, promiseCombinator(performAll))
	setMethod(a, ctor, "allSettled", 1, promiseCombinator(performAllSettled))
	setMethod(a, ctor, "any", 1, promiseCombinator(performAny))
	setMethod(a, ctor, "race", 1, promiseCombinator(performRace))
	setSpecies(a, ctor)
	return ctor
}

func promiseConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	nt := a.NewTarget()
	if nt == nil {
		return nil, a.ThrowTypeError("Promise constructor cannot be invoked without 'new'")
	}
	executor := argAt(args, 0)
	if !executor.IsCallable() {
		return nil, a.ThrowTypeError("Promise resolver %s is not a function", describe(executor))
	}
	p, err := runtime.OrdinaryCreateFromConstructor(a, nt, a.Intrinsics().PromisePrototype, runtime.NewPromiseData())
	if err != nil {
		return nil, err
	}
	resolve, reject := a.CreateResolvingFunctions(p)
	if _, err := a.Call(executor, runtime.Undefined, []*runtime.Value{runtime.NewObject(resolve), runtime.NewObject(reject)}); err != nil {
		exc, ok := runtime.AsException(err)
		if !ok {
			return nil, err
		}
		if _, err := a.Call(runtime.NewObject(reject), runtime.Undefined, []*runtime.Value{exc.Value}); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(p), nil
}

func thisPromise(a *runtime.Agent, this *runtime.Value, method string) (*runtime.Object, error) {
	if !runtime.IsPromise(this) {
		return nil, a.ThrowTypeError("Method Promise.prototype.%s called on incompatible receiver %s", method, describe(this))
	}
	return this.Object, nil
}

func promiseThen(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	p, err := thisPromise(a, this, "then")
	if err != nil {
		return nil, err
	}
	c, err := runtime.SpeciesConstructor(a, p, a.Intrinsics().Promise)
	if err != nil {
		return nil, err
	}
	capability, err := a.NewPromiseCapability(runtime.NewObject(c))
	if err != nil {
		return nil, err
	}
	return a.PerformPromiseThen(p, argAt(args, 0), argAt(args, 1), capability), nil
}

func promiseCatch(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return runtime.Invoke(a, this, runtime.StringKey("then"), []*runtime.Value{runtime.Undefined, argAt(args, 0)})
}

func promiseFinally(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	p, err := thisObject(a, this, "Promise.prototype.finally")
	if err != nil {
		return nil, err
	}
	c, err := runtime.SpeciesConstructor(a, p, a.Intrinsics().Promise)
	if err != nil {
		return nil, err
	}
	onFinally := argAt(args, 0)
	if !onFinally.IsCallable() {
		return runtime.Invoke(a, this, runtime.StringKey("then"), []*runtime.Value{onFinally, onFinally})
	}
	ctor := runtime.NewObject(c)
	// settle runs onFinally, waits for its result, then replays the
	// original outcome.
	settle := func(rethrow bool) *runtime.Object {
		return a.NewNativeFunction("", 1, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			outcome := argAt(args, 0)
			result, err := a.Call(onFinally, runtime.Undefined, nil)
			if err != nil {
				return nil, err
			}
			promise, err := a.PromiseResolve(ctor, result)
			if err != nil {
				return nil, err
			}
			replay := a.NewNativeFunction("", 0, func(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
				if rethrow {
					return nil, runtime.ThrowValue(outcome)
				}
				return outcome, nil
			})
			return runtime.Invoke(a, runtime.NewObject(promise), runtime.StringKey("then"), []*runtime.Value{runtime.NewObject(replay)})
		})
	}
	return runtime.Invoke(a, this, runtime.StringKey("then"), []*runtime.Value{
		runtime.NewObject(settle(false)), runtime.NewObject(settle(true)),
	})
}

func promiseResolveStatic(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if !this.IsObject() {
		return nil, a.ThrowTypeError("PromiseResolve called on non-object")
	}
	p, err := a.PromiseResolve(this, argAt(args, 0))
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(p), nil
}

func promiseRejectStatic(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	capability, err := a.NewPromiseCapability(this)
	if err != nil {
		return nil, err
	}
	if _, err := a.Call(capability.Reject, runtime.Undefined, []*runtime.Value{argAt(args, 0)}); err != nil {
		return nil, err
	}
	return runtime.NewObject(capability.Promise), nil
}

func promiseWithResolvers(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	capability, err := a.NewPromiseCapability(this)
	if err != nil {
		return nil, err
	}
	o := a.NewPlainObject()
	for _, kv := range []struct {
		k string
		v *runtime.Value
	}{
		{"promise", runtime.NewObject(capability.Promise)},
		{"resolve", capability.Resolve},
		{"reject", capability.Reject},
	} {
		if err := runtime.CreateDataPropertyOrThrow(a, o, runtime.StringKey(kv.k), kv.v); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(o), nil
}

// combinator carries the state shared by one Promise.all-style call.
type combinator struct {
	ctor       *runtime.Value
	capability *runtime.PromiseCapability
	resolve    *runtime.Value
	values     []*runtime.Value
	remaining  int
}

// element reserves a result slot and returns its index.
func (c *combinator) element() int {
	c.values = append(c.values, runtime.Undefined)
	c.remaining++
	return len(c.values) - 1
}

// finish decrements the pending count and reports whether it reached zero.
func (c *combinator) finish() bool {
	c.remaining--
	return c.remaining == 0
}

type combinatorStep func(a *runtime.Agent, c *combinator, next *runtime.Object) error
type combinatorDone func(a *runtime.Agent, c *combinator) error

type combinatorKind struct {
	step combinatorStep
	done combinatorDone
}

// promiseCombinator implements the iteration shared by all, allSettled,
// any and race. Abrupt completions reject the returned promise.
func promiseCombinator(kind combinatorKind) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		capability, err := a.NewPromiseCapability(this)
		if err != nil {
			return nil, err
		}
		c := &combinator{ctor: this, capability: capability, remaining: 1}
		err = func() error {
			if c.resolve, err = runtime.GetV(a, this, runtime.StringKey("resolve")); err != nil {
				return err
			}
			if !c.resolve.IsCallable() {
				return a.ThrowTypeError("Promise resolve is not a function")
			}
			err := iterate(a, argAt(args, 0), func(v *runtime.Value) error {
				next, err := a.Call(c.resolve, this, []*runtime.Value{v})
				if err != nil {
					return err
				}
				if !next.IsObject() {
					return a.ThrowTypeError("Promise resolve returned a non-object")
				}
				return kind.step(a, c, next.Object)
			})
			if err != nil {
				return err
			}
			if c.finish() && kind.done != nil {
				return kind.done(a, c)
			}
			return nil
		}()
		if err != nil {
			exc, ok := runtime.AsException(err)
			if !ok {
				return nil, err
			}
			if _, err := a.Call(capability.Reject, runtime.Undefined, []*runtime.Value{exc.Value}); err != nil {
				return nil, err
			}
		}
		return runtime.NewObject(capability.Promise), nil
	}
}

func invokeThen(a *runtime.Agent, p *runtime.Object, onFulfilled, onRejected *runtime.Value) error {
	_, err := runtime.Invoke(a, runtime.NewObject(p), runtime.StringKey("then"), []*runtime.Value{onFulfilled, onRejected})
	return err
}

// onceFunction wraps fn so only its first call has an effect.
func onceFunction(a *runtime.Agent, fn func(a *runtime.Agent, v *runtime.Value) error) *runtime.Value {
	called := false
	f := a.NewNativeFunction("", 1, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		if called {
			return runtime.Undefined, nil
		}
		called = true
		return runtime.Undefined, fn(a, argAt(args, 0))
	})
	return runtime.NewObject(f)
}

func resolveWithValues(a *runtime.Agent, c *combinator) error {
	_, err := a.Call(c.capability.Resolve, runtime.Undefined, []*runtime.Value{a.NewArrayValue(c.values)})
	return err
}

var performAll = combinatorKind{
	step: func(a *runtime.Agent, c *combinator, next *runtime.Object) error {
		i := c.element()
		onFulfilled := onceFunction(a, func(a *runtime.Agent, v *runtime.Value) error {
			c.values[i] = v
			if c.finish() {
				return resolveWithValues(a, c)
			}
			return nil
		})
		return invokeThen(a, next, onFulfilled, c.capability.Reject)
	},
	done: resolveWithValues,
}

func settledRecord(a *runtime.Agent, status, key string, v *runtime.Value) *runtime.Value {
	o := a.NewPlainObject()
	_ = runtime.CreateDataPropertyOrThrow(a, o, runtime.StringKey("status"), runtime.NewString(status))
	_ = runtime.CreateDataPropertyOrThrow(a, o, runtime.StringKey(key), v)
	return runtime.NewObject(o)
}

var performAllSettled = combinatorKind{
	step: func(a *runtime.Agent, c *combinator, next *runtime.Object) error {
		i := c.element()
		called := false
		settle := func(status, key string) *runtime.Value {
			return onceFunction(a, func(a *runtime.Agent, v *runtime.Value) error {
				if called {
					return nil
				}
				called = true
				c.values[i] = settledRecord(a, status, key, v)
				if c.finish() {
					return resolveWithValues(a, c)
				}
				return nil
			})
		}
		return invokeThen(a, next, settle("fulfilled", "value"), settle("rejected", "reason"))
	},
	done: resolveWithValues,
}

var performAny = combinatorKind{
	step: func(a *runtime.Agent, c *combinator, next *runtime.Object) error {
		i := c.element()
		onRejected := onceFunction(a, func(a *runtime.Agent, v *runtime.Value) error {
			c.values[i] = v
			if c.finish() {
				return rejectAggregate(a, c)
			}
			return nil
		})
		return invokeThen(a, next, c.capability.Resolve, onRejected)
	},
	done: rejectAggregate,
}

func rejectAggregate(a *runtime.Agent, c *combinator) error {
	e := a.NewError(runtime.ErrorAggregate, "All promises were rejected")
	setDataProp(e, "errors", a.NewArrayValue(c.values))
	_, err := a.Call(c.capability.Reject, runtime.Undefined, []*runtime.Value{runtime.NewObject(e)})
	return err
}

var performRace = combinatorKind{
	step: func(a *runtime.Agent, c *combinator, next *runtime.Object) error {
		return invokeThen(a, next, c.capability.Resolve, c.capability.Reject)
	},
}
