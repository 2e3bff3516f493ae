package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settled(t *testing.T, p *Object) (PromiseState, *Value) {
	t.Helper()
	state, result, ok := PromiseStateOf(p)
	require.True(t, ok, "not a promise")
	return state, result
}

func TestReactionsRunInOrderOnDrain(t *testing.T) {
	a := newTestAgent(t)
	var log []string
	p1, err := a.NewResolvedPromise(NewString("one"))
	require.NoError(t, err)
	p2, err := a.NewResolvedPromise(NewString("two"))
	require.NoError(t, err)

	record := func(prefix string) func(*Agent, *Value) error {
		return func(_ *Agent, v *Value) error {
			log = append(log, prefix+v.Str)
			return nil
		}
	}
	a.Then(p1, record("a:"), nil)
	a.Then(p2, record("b:"), nil)
	a.Then(p1, record("c:"), nil)
	assert.Empty(t, log, "reactions never run synchronously")
	assert.Equal(t, 3, a.PendingJobs())

	require.NoError(t, a.RunJobs())
	assert.Equal(t, []string{"a:one", "b:two", "c:one"}, log)
	assert.Zero(t, a.PendingJobs())
}

func TestResolveWithThenableTakesAJob(t *testing.T) {
	a := newTestAgent(t)
	thenable := a.NewPlainObject()
	DefineBuiltin(thenable, StringKey("then"), NewObject(a.NewNativeFunction("then", 2, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		return a.Call(args[0], Undefined, []*Value{NewInt(7)})
	})))

	outer, err := a.NewResolvedPromise(NewObject(thenable))
	require.NoError(t, err)
	state, _ := settled(t, outer)
	assert.Equal(t, PromisePending, state)

	require.NoError(t, a.RunJobs())
	state, result := settled(t, outer)
	assert.Equal(t, PromiseFulfilled, state)
	assert.Equal(t, int32(7), result.Int)
}

func TestResolveWithSelfRejects(t *testing.T) {
	a := newTestAgent(t)
	capability := a.NewIntrinsicPromiseCapability()
	_, err := a.Call(capability.Resolve, Undefined, []*Value{NewObject(capability.Promise)})
	require.NoError(t, err)

	state, reason := settled(t, capability.Promise)
	assert.Equal(t, PromiseRejected, state)
	assert.Equal(t, "TypeError: Chaining cycle detected for promise #<Promise>", ErrorSummary(reason.Object))
}

func TestResolvingFunctionsSettleOnce(t *testing.T) {
	a := newTestAgent(t)
	capability := a.NewIntrinsicPromiseCapability()
	_, err := a.Call(capability.Reject, Undefined, []*Value{NewString("first")})
	require.NoError(t, err)
	_, err = a.Call(capability.Resolve, Undefined, []*Value{NewString("second")})
	require.NoError(t, err)

	state, result := settled(t, capability.Promise)
	assert.Equal(t, PromiseRejected, state)
	assert.Equal(t, "first", result.Str)
}

func TestUnhandledRejections(t *testing.T) {
	a := newTestAgent(t)
	var reported []string
	a.OnUnhandledRejection(func(_ *Object, reason *Value) {
		reported = append(reported, reason.String())
	})

	a.NewRejectedPromise(NewString("lost"))
	handled := a.NewRejectedPromise(NewString("caught"))
	a.Then(handled, nil, func(*Agent, *Value) error { return nil })
	assert.Len(t, a.UnhandledRejections(), 1)

	require.NoError(t, a.RunJobs())
	assert.Equal(t, []string{"lost"}, reported)
	assert.Empty(t, a.UnhandledRejections())

	require.NoError(t, a.RunJobs())
	assert.Len(t, reported, 1, "each rejection is reported once")
}

func TestJobExceptionsDoNotStopDrain(t *testing.T) {
	a := newTestAgent(t)
	ran := 0
	a.EnqueueJob(func(a *Agent) error { ran++; return a.ThrowTypeError("boom") })
	a.EnqueueJob(func(*Agent) error { ran++; return nil })
	require.NoError(t, a.RunJobs())
	assert.Equal(t, 2, ran)

	engineErr := &LimitError{Kind: LimitSteps, Limit: 1}
	a.EnqueueJob(func(*Agent) error { return engineErr })
	a.EnqueueJob(func(*Agent) error { ran++; return nil })
	assert.ErrorIs(t, a.RunJobs(), engineErr)
	assert.Equal(t, 2, ran)
	assert.Equal(t, 1, a.PendingJobs(), "the remaining job stays queued")
}

func TestJobsEnqueuedByJobsRunInSameDrain(t *testing.T) {
	a := newTestAgent(t)
	var order []int
	a.EnqueueJob(func(a *Agent) error {
		order = append(order, 1)
		a.EnqueueJob(func(*Agent) error { order = append(order, 3); return nil })
		return nil
	})
	a.EnqueueJob(func(*Agent) error { order = append(order, 2); return nil })
	require.NoError(t, a.RunJobs())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSpawnSettlesOnDrain(t *testing.T) {
	a := newTestAgent(t)
	p := a.Spawn(func(context.Context) (any, error) { return 21, nil }, func(_ *Agent, v any) (*Value, error) {
		return NewInt(int64(v.(int) * 2)), nil
	})
	failed := a.Spawn(func(context.Context) (any, error) { return nil, errors.New("no route to host") }, nil)
	assert.Equal(t, 2, a.PendingFutures())

	require.NoError(t, a.RunJobsContext(context.Background()))
	assert.Zero(t, a.PendingFutures())

	state, result := settled(t, p)
	assert.Equal(t, PromiseFulfilled, state)
	assert.Equal(t, int32(42), result.Int)

	state, reason := settled(t, failed)
	assert.Equal(t, PromiseRejected, state)
	assert.Equal(t, "Error: no route to host", ErrorSummary(reason.Object))
}

func TestRunJobsContextGivesUp(t *testing.T) {
	a := newTestAgent(t)
	release := make(chan struct{})
	p := a.Spawn(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return NewString("late"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.RunJobsContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, a.PendingFutures())
	state, _ := settled(t, p)
	assert.Equal(t, PromisePending, state)

	close(release)
	require.NoError(t, a.RunJobsContext(context.Background()))
	state, result := settled(t, p)
	assert.Equal(t, PromiseFulfilled, state)
	assert.Equal(t, "late", result.Str)
}

func TestPerformPromiseThenChains(t *testing.T) {
	a := newTestAgent(t)
	p, err := a.NewResolvedPromise(NewInt(1))
	require.NoError(t, err)
	double := a.NewNativeFunction("double", 1, func(a *Agent, _ *Value, args []*Value) (*Value, error) {
		return NewInt(int64(args[0].Int) * 2), nil
	})
	fail := a.NewNativeFunction("fail", 1, func(a *Agent, _ *Value, _ []*Value) (*Value, error) {
		return nil, a.ThrowRangeError("too big")
	})

	next := a.PerformPromiseThen(p, NewObject(double), nil, a.NewIntrinsicPromiseCapability())
	last := a.PerformPromiseThen(next.Object, NewObject(fail), nil, a.NewIntrinsicPromiseCapability())
	var reason *Value
	a.Then(last.Object, nil, func(_ *Agent, v *Value) error { reason = v; return nil })

	require.NoError(t, a.RunJobs())
	_, result := settled(t, next.Object)
	assert.Equal(t, int32(2), result.Int)
	require.NotNil(t, reason)
	assert.Equal(t, "RangeError: too big", ErrorSummary(reason.Object))
}
