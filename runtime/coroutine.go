package runtime

import (
	"errors"
	goruntime "runtime"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// ResumeMode is how a suspended body is resumed.
type ResumeMode int

const (
	ResumeNext ResumeMode = iota
	ResumeThrow
	ResumeReturn
)

type resumption struct {
	mode  ResumeMode
	value *Value
	kill  bool
}

type suspendKind int

const (
	suspendYield suspendKind = iota
	suspendAwait
	suspendDone
)

type suspension struct {
	kind  suspendKind
	value *Value
	// raw marks a yielded value that is already an iterator result.
	raw      bool
	err      error
	panicked any
}

// coroutine runs an interpreted body on its own goroutine with strict
// alternation: exactly one of the agent goroutine and the body runs at any
// time, handing control over through the two channels. Each coroutine owns
// its environment stack, which is swapped into the agent while it runs.
type coroutine struct {
	agent    *Agent
	body     func() (*Value, error)
	resumeCh chan resumption
	yieldCh  chan suspension
	envs     []*Environment
	async    bool
	started  bool
	running  bool
	done     bool
}

func (a *Agent) newCoroutine(envs []*Environment, async bool, body func() (*Value, error)) *coroutine {
	return &coroutine{
		agent:    a,
		body:     body,
		resumeCh: make(chan resumption),
		yieldCh:  make(chan suspension),
		envs:     append([]*Environment(nil), envs...),
		async:    async,
	}
}

// resume transfers control to the body until it suspends or finishes.
func (c *coroutine) resume(r resumption) suspension {
	if c.done {
		return suspension{kind: suspendDone, value: Undefined}
	}
	a := c.agent
	saved := a.envs
	a.envs, c.envs = c.envs, nil
	prev := a.current
	a.current = c
	c.running = true

	if !c.started {
		c.started = true
		a.coroutines.Add(c)
		a.logger.Debug("coroutine start", "async", c.async)
		go c.run(r)
	} else {
		c.resumeCh <- r
	}
	s := <-c.yieldCh

	c.running = false
	a.current = prev
	c.envs, a.envs = a.envs, saved
	if s.kind == suspendDone {
		c.done = true
		c.envs = nil
		a.coroutines.Remove(c)
	}
	if s.panicked != nil {
		panic(s.panicked)
	}
	return s
}

func (c *coroutine) run(first resumption) {
	s := suspension{kind: suspendDone}
	defer func() {
		if p := recover(); p != nil {
			s = suspension{kind: suspendDone, panicked: p}
		}
		c.yieldCh <- s
	}()
	if first.kill {
		s.err = terminatedError{}
		return
	}
	v, err := c.body()
	if v == nil {
		v = Undefined
	}
	s.value, s.err = v, err
}

// suspend is called on the body goroutine and blocks until resumed.
func (c *coroutine) suspend(s suspension) resumption {
	c.yieldCh <- s
	return <-c.resumeCh
}

// discard finishes a coroutine that never started.
func (c *coroutine) discard() {
	if !c.started {
		c.done = true
		c.envs = nil
	}
}

// kill unwinds a suspended body with terminatedError, which skips catch and
// finally clauses.
func (c *coroutine) kill() {
	if c.done || c.running {
		return
	}
	if !c.started {
		c.discard()
		return
	}
	for !c.done {
		c.resume(resumption{kill: true})
	}
}

// abandonQueue collects coroutines whose owners were finalized. Finalizers
// push from the runtime's finalizer goroutine; the agent pops. Every entry
// must be reaped, so the queue has no bound.
type abandonQueue struct {
	mu sync.Mutex
	q  *linkedlistqueue.Queue
}

func newAbandonQueue() *abandonQueue {
	return &abandonQueue{q: linkedlistqueue.New()}
}

func (q *abandonQueue) push(c *coroutine) {
	q.mu.Lock()
	q.q.Enqueue(c)
	q.mu.Unlock()
}

func (q *abandonQueue) pop() (*coroutine, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.q.Dequeue()
	if !ok {
		return nil, false
	}
	return v.(*coroutine), true
}

// abandonWith arranges for the coroutine to be killed once owner becomes
// unreachable. The kill itself happens on the agent goroutine.
func (a *Agent) abandonWith(owner *Object, c *coroutine) {
	q := a.abandoned
	goruntime.SetFinalizer(owner, func(*Object) { q.push(c) })
}

// reapAbandoned kills the coroutines of finalized owners. It runs at the
// start of every job drain and periodically from Tick.
func (a *Agent) reapAbandoned() {
	n := 0
	for {
		c, ok := a.abandoned.pop()
		if !ok {
			break
		}
		c.kill()
		n++
	}
	if n > 0 {
		a.logger.Debug("coroutines reaped", "count", n)
	}
}

// LiveCoroutines returns the number of started generator and async bodies
// that have not finished.
func (a *Agent) LiveCoroutines() int { return a.coroutines.Cardinality() }

func (c *coroutine) receive(r resumption) (*Value, error) {
	switch {
	case r.kill:
		return nil, terminatedError{}
	case r.mode == ResumeThrow:
		return nil, ThrowValue(r.value)
	case r.mode == ResumeReturn:
		return nil, &generatorReturn{Value: r.value}
	}
	return orUndefined(r.value), nil
}

// generatorReturn unwinds a generator body for generator.return(). It
// runs finally clauses but is not caught by catch clauses.
type generatorReturn struct {
	Value *Value
}

func (*generatorReturn) Error() string { return "generator return" }

// GeneratorReturn returns the error that unwinds a generator body as if
// it had been resumed with return(v).
func GeneratorReturn(v *Value) error { return &generatorReturn{Value: orUndefined(v)} }

// AsGeneratorReturn reports whether err is a return-resumption unwinding a
// generator body, and the returned value.
func AsGeneratorReturn(err error) (*Value, bool) {
	var r *generatorReturn
	if errors.As(err, &r) {
		return r.Value, true
	}
	return nil, false
}

// InCoroutine reports whether the running code is a generator or async body.
func (a *Agent) InCoroutine() bool { return a.current != nil }

// Await suspends the running async body until v settles and returns the
// fulfillment value, or the rejection reason as an exception.
func (a *Agent) Await(v *Value) (*Value, error) {
	c := a.current
	if c == nil || !c.async {
		return nil, a.ThrowSyntaxError("await is only valid in async functions and the top level bodies of modules")
	}
	r := c.suspend(suspension{kind: suspendAwait, value: v})
	if r.kill {
		return nil, terminatedError{}
	}
	if r.mode == ResumeThrow {
		return nil, ThrowValue(r.value)
	}
	return orUndefined(r.value), nil
}

// Yield suspends the running generator with v and returns the value passed
// to the resuming next call. A throw resumption surfaces as an exception and
// a return resumption as an error recognized by AsGeneratorReturn.
func (a *Agent) Yield(v *Value) (*Value, error) {
	mode, received, err := a.YieldResumption(v, false)
	if err != nil {
		return nil, err
	}
	return a.current.receive(resumption{mode: mode, value: received})
}

// YieldResumption suspends the running generator and reports how it was
// resumed without converting abrupt resumptions into errors. With raw set
// the value is handed to the consumer as an iterator result unchanged.
// yield* builds on this.
func (a *Agent) YieldResumption(v *Value, raw bool) (ResumeMode, *Value, error) {
	c := a.current
	if c == nil {
		return 0, nil, a.ThrowSyntaxError("yield is only valid in generator functions")
	}
	if c.async {
		var err error
		if v, err = a.Await(v); err != nil {
			return 0, nil, err
		}
		raw = false
	}
	r := c.suspend(suspension{kind: suspendYield, value: v, raw: raw})
	if r.kill {
		return 0, nil, terminatedError{}
	}
	value := orUndefined(r.value)
	if c.async && r.mode == ResumeReturn {
		awaited, err := a.Await(value)
		if err != nil {
			return ResumeThrow, exceptionValue(err), errIfNotException(err)
		}
		value = awaited
	}
	return r.mode, value, nil
}

func exceptionValue(err error) *Value {
	if exc, ok := AsException(err); ok {
		return exc.Value
	}
	return Undefined
}

func errIfNotException(err error) error {
	if _, ok := AsException(err); ok {
		return nil
	}
	return err
}

// runBody executes a generator or async body and maps its completion to a
// return value.
func (a *Agent) runBody(code *FunctionCode, env *Environment) (*Value, error) {
	c, err := a.executor.Execute(a, code, env)
	if err != nil {
		if v, ok := AsGeneratorReturn(err); ok {
			return v, nil
		}
		return nil, err
	}
	switch c.Type {
	case CompletionThrow:
		return nil, ThrowValue(c.Value)
	case CompletionReturn:
		return orUndefined(c.Value), nil
	}
	return Undefined, nil
}
