package runtime

import (
	"errors"
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptBody stands in for a parsed function body.
type scriptBody func(a *Agent, env *Environment) (Completion, error)

// goExecutor runs FunctionCode whose Extra field holds a scriptBody.
type goExecutor struct{}

var errUnsupported = errors.New("unsupported in goExecutor")

func (goExecutor) Execute(a *Agent, code *FunctionCode, env *Environment) (Completion, error) {
	return code.Extra.(scriptBody)(a, env)
}

func (goExecutor) Evaluate(*Agent, ast.Expression, *Environment) (*Value, error) {
	return nil, errUnsupported
}

func (goExecutor) BindPattern(*Agent, ast.Expression, *Value, *Environment) error {
	return errUnsupported
}

func (goExecutor) CreateDynamicFunction(*Agent, FunctionKindHint, []string, string, *Object) (*Object, error) {
	return nil, errUnsupported
}

func (goExecutor) EvalScript(*Agent, string) (*Value, error) { return nil, errUnsupported }

func newScriptAgent(t *testing.T) *Agent {
	return newTestAgent(t, WithExecutor(goExecutor{}))
}

func scriptFunction(a *Agent, name string, generator, async bool, body scriptBody) *Value {
	code := &FunctionCode{Name: name, Strict: true, Generator: generator, Async: async, Extra: body}
	return NewObject(a.NewOrdinaryFunction(code, a.GlobalEnv(), nil))
}

func returning(v *Value) (Completion, error) {
	return Completion{Type: CompletionReturn, Value: v}, nil
}

func iterResult(t *testing.T, a *Agent, r *Value) (*Value, bool) {
	t.Helper()
	require.True(t, r.IsObject(), "iterator result must be an object")
	done, err := IteratorComplete(a, r)
	require.NoError(t, err)
	v, err := IteratorValue(a, r)
	require.NoError(t, err)
	return v, done
}

func TestGeneratorYieldsAndReceives(t *testing.T) {
	a := newScriptAgent(t)
	var received []*Value
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		for i := int64(1); i <= 2; i++ {
			v, err := a.Yield(NewInt(i))
			if err != nil {
				return Completion{}, err
			}
			received = append(received, v)
		}
		return returning(NewString("end"))
	})

	base := a.EnvironmentDepth()
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	assert.Equal(t, base, a.EnvironmentDepth())
	state, ok := GeneratorStateOf(g.Object)
	require.True(t, ok)
	assert.Equal(t, GeneratorSuspendedStart, state)

	var got []string
	for _, in := range []*Value{NewString("ignored"), NewString("a"), NewString("b"), Undefined} {
		r, err := a.GeneratorResume(g, ResumeNext, in)
		require.NoError(t, err)
		v, done := iterResult(t, a, r)
		got = append(got, v.String())
		if done {
			state, _ := GeneratorStateOf(g.Object)
			assert.Equal(t, GeneratorCompleted, state)
		}
		assert.Equal(t, base, a.EnvironmentDepth())
	}
	assert.Equal(t, []string{"1", "2", "end", "undefined"}, got)
	require.Len(t, received, 2)
	assert.Equal(t, "a", received[0].Str)
	assert.Equal(t, "b", received[1].Str)
}

func TestGeneratorReturnRunsCleanup(t *testing.T) {
	a := newScriptAgent(t)
	cleaned := false
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		_, err := a.Yield(NewInt(1))
		if _, ok := AsGeneratorReturn(err); ok {
			cleaned = true
		}
		return Completion{}, err
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)

	_, err = a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)
	r, err := a.GeneratorResume(g, ResumeReturn, NewInt(9))
	require.NoError(t, err)
	v, done := iterResult(t, a, r)
	assert.True(t, done)
	assert.Equal(t, int32(9), v.Int)
	assert.True(t, cleaned)
}

func TestGeneratorThrowIsCatchable(t *testing.T) {
	a := newScriptAgent(t)
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		_, err := a.Yield(NewInt(1))
		if exc, ok := AsException(err); ok {
			return returning(NewString("caught " + exc.Value.String()))
		}
		return returning(Undefined)
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	_, err = a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)

	r, err := a.GeneratorResume(g, ResumeThrow, NewString("oops"))
	require.NoError(t, err)
	v, done := iterResult(t, a, r)
	assert.True(t, done)
	assert.Equal(t, "caught oops", v.Str)
}

func TestGeneratorAbruptBeforeStart(t *testing.T) {
	a := newScriptAgent(t)
	started := false
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		started = true
		return returning(Undefined)
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)

	_, err = a.GeneratorResume(g, ResumeThrow, NewString("early"))
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Equal(t, "early", exc.Value.Str)
	assert.False(t, started)

	r, err := a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)
	_, done := iterResult(t, a, r)
	assert.True(t, done)
}

func TestGeneratorIsNotReentrant(t *testing.T) {
	a := newScriptAgent(t)
	var self *Value
	var inner error
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		_, inner = a.GeneratorResume(self, ResumeNext, nil)
		return returning(Undefined)
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	self = g

	_, err = a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)
	exc, ok := AsException(inner)
	require.True(t, ok)
	assert.Equal(t, "TypeError: Generator is already running", ErrorSummary(exc.Value.Object))
}

func TestGeneratorKeepsItsOwnEnvironments(t *testing.T) {
	a := newScriptAgent(t)
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, env *Environment) (Completion, error) {
		block := NewDeclarativeEnvironment(env)
		block.Declare("x", BindingLet, NewInt(1))
		a.PushEnvironment(block)
		if _, err := a.Yield(Undefined); err != nil {
			return Completion{}, err
		}
		v, err := a.CurrentEnvironment().GetIdentifier(a, "x", true)
		if err != nil {
			return Completion{}, err
		}
		return returning(v)
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	base := a.EnvironmentDepth()

	_, err = a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)
	assert.Equal(t, base, a.EnvironmentDepth(), "suspended bodies do not leak environments")

	a.PushEnvironment(NewDeclarativeEnvironment(a.CurrentEnvironment()))
	r, err := a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)
	v, _ := iterResult(t, a, r)
	assert.Equal(t, int32(1), v.Int)
	assert.Equal(t, base+1, a.EnvironmentDepth())
}

func TestAsyncFunctionAwaits(t *testing.T) {
	a := newScriptAgent(t)
	var steps []string
	fn := scriptFunction(a, "af", false, true, func(a *Agent, _ *Environment) (Completion, error) {
		steps = append(steps, "start")
		p, err := a.NewResolvedPromise(NewInt(41))
		if err != nil {
			return Completion{}, err
		}
		v, err := a.Await(NewObject(p))
		if err != nil {
			return Completion{}, err
		}
		steps = append(steps, "resumed")
		return returning(NewInt(int64(v.Int) + 1))
	})

	p, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	require.True(t, IsPromise(p))
	assert.Equal(t, []string{"start"}, steps, "the body runs synchronously up to the first await")
	state, _ := settled(t, p.Object)
	assert.Equal(t, PromisePending, state)

	require.NoError(t, a.RunJobs())
	state, result := settled(t, p.Object)
	assert.Equal(t, PromiseFulfilled, state)
	assert.Equal(t, int32(42), result.Int)
}

func TestAsyncFunctionRejects(t *testing.T) {
	a := newScriptAgent(t)
	fn := scriptFunction(a, "af", false, true, func(a *Agent, _ *Environment) (Completion, error) {
		_, err := a.Await(NewObject(a.NewRejectedPromise(NewString("bad"))))
		return Completion{}, err
	})
	p, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	require.NoError(t, a.RunJobs())

	state, reason := settled(t, p.Object)
	assert.Equal(t, PromiseRejected, state)
	assert.Equal(t, "bad", reason.Str)
}

func TestAwaitOutsideAsyncBody(t *testing.T) {
	a := newScriptAgent(t)
	_, err := a.Await(Undefined)
	exc, ok := AsException(err)
	require.True(t, ok)
	assert.Contains(t, ErrorSummary(exc.Value.Object), "SyntaxError")
	assert.False(t, a.InCoroutine())
}

func TestAsyncGeneratorQueuesRequests(t *testing.T) {
	a := newScriptAgent(t)
	fn := scriptFunction(a, "ag", true, true, func(a *Agent, _ *Environment) (Completion, error) {
		for i := int64(1); i <= 2; i++ {
			if _, err := a.Yield(NewInt(i)); err != nil {
				return Completion{}, err
			}
		}
		return returning(NewString("done"))
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)

	var promises []*Object
	for i := 0; i < 4; i++ {
		p, err := a.AsyncGeneratorEnqueue(g, ResumeNext, nil)
		require.NoError(t, err)
		promises = append(promises, p)
	}
	require.NoError(t, a.RunJobs())

	var got []string
	for _, p := range promises {
		state, r := settled(t, p)
		require.Equal(t, PromiseFulfilled, state)
		v, done := iterResult(t, a, r)
		got = append(got, v.String())
		_ = done
	}
	assert.Equal(t, []string{"1", "2", "done", "undefined"}, got)
}

func TestAsyncGeneratorReturnBeforeStart(t *testing.T) {
	a := newScriptAgent(t)
	fn := scriptFunction(a, "ag", true, true, func(a *Agent, _ *Environment) (Completion, error) {
		return returning(Undefined)
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)

	p, err := a.AsyncGeneratorEnqueue(g, ResumeReturn, NewInt(5))
	require.NoError(t, err)
	require.NoError(t, a.RunJobs())
	state, r := settled(t, p)
	require.Equal(t, PromiseFulfilled, state)
	v, done := iterResult(t, a, r)
	assert.True(t, done)
	assert.Equal(t, int32(5), v.Int)

	bad, err := a.AsyncGeneratorEnqueue(NewInt(1), ResumeNext, nil)
	require.NoError(t, err)
	state, _ = settled(t, bad)
	assert.Equal(t, PromiseRejected, state)
	require.NoError(t, a.RunJobs())
}

func TestCloseTerminatesSuspendedBodies(t *testing.T) {
	a := NewAgent(WithExecutor(goExecutor{}))
	finished := make(chan error, 1)
	fn := scriptFunction(a, "gen", true, false, func(a *Agent, _ *Environment) (Completion, error) {
		_, err := a.Yield(Undefined)
		finished <- err
		return Completion{}, err
	})
	g, err := a.Call(fn, Undefined, nil)
	require.NoError(t, err)
	_, err = a.GeneratorResume(g, ResumeNext, nil)
	require.NoError(t, err)

	a.Close()
	err = <-finished
	assert.True(t, IsTerminated(err))
	assert.False(t, IsCatchable(err))
}
