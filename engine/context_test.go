package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/runtime"
)

func newTestContext(t *testing.T, opts ...Option) (*Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithStdout(&out), WithStderr(&out)}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, &out
}

func TestEval(t *testing.T) {
	c, out := newTestContext(t)

	v, err := c.Eval(`const xs = [1, 2, 3]; xs.reduce((a, b) => a + b, 0)`)
	require.NoError(t, err)
	assert.Equal(t, float64(6), v.Float())

	// Later scripts see earlier global declarations.
	v, err = c.Eval(`xs.length`)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.Float())

	_, err = c.Eval(`console.log("hello", {a: 1})`)
	require.NoError(t, err)
	assert.Equal(t, "hello { a: 1 }\n", out.String())
}

func TestScriptErrors(t *testing.T) {
	c, _ := newTestContext(t)

	_, err := c.EvalFile("main.js", `function f() { throw new TypeError("bad input") } f()`)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "TypeError", se.Name)
	assert.Equal(t, "bad input", se.Message)
	assert.Equal(t, "main.js", se.Source)
	assert.Equal(t, "main.js: Uncaught TypeError: bad input", se.Error())
	assert.False(t, se.IsSyntaxError())

	exc, ok := runtime.AsException(err)
	require.True(t, ok, "ScriptError should unwrap to the exception")
	assert.Same(t, se.Value, exc.Value)

	_, err = c.Eval(`throw 42`)
	require.ErrorAs(t, err, &se)
	assert.Empty(t, se.Name)
	assert.Equal(t, "42", se.Message)
	assert.Equal(t, "<eval>: Uncaught 42", se.Error())

	_, err = c.EvalFile("broken.js", `let = ;`)
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsSyntaxError())
	assert.Equal(t, "broken.js", se.Source)

	// A failed script leaves the context usable.
	v, err := c.Eval(`"still " + "alive"`)
	require.NoError(t, err)
	assert.Equal(t, "still alive", v.String())
}

func TestLimits(t *testing.T) {
	c, _ := newTestContext(t, WithLimits(runtime.Limits{MaxSteps: 10000, MaxCallDepth: 64}))

	_, err := c.Eval(`try { for (;;) {} } catch (e) {}`)
	var limit *runtime.LimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, runtime.LimitSteps, limit.Kind)

	// The step budget is per evaluation.
	_, err = c.Eval(`let n = 0; for (let i = 0; i < 100; i++) n += i`)
	require.NoError(t, err)

	_, err = c.Eval(`function deep() { return deep() } deep()`)
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, runtime.LimitCallDepth, limit.Kind)
	assert.Equal(t, 64, c.Limits().MaxCallDepth)

	c.SetLimits(runtime.Limits{})
	assert.Equal(t, runtime.DefaultLimits().MaxCallDepth, c.Limits().MaxCallDepth)
	assert.Zero(t, c.Limits().MaxSteps)
}

func TestEvalContextCancellation(t *testing.T) {
	c, _ := newTestContext(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.EvalContext(ctx, "spin.js", `while (true) {}`)
	var limit *runtime.LimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, runtime.LimitInterrupted, limit.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	v, err := c.Eval(`1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.Float())
}

func TestRegisterGlobals(t *testing.T) {
	c, _ := newTestContext(t)

	require.NoError(t, c.RegisterGlobalProperty("answer", runtime.NewInt(42), runtime.AttrNone))
	require.NoError(t, c.RegisterGlobalFunction("double", 1, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		n, err := argOrUndefined(args, 0).ToNumber(a)
		if err != nil {
			return nil, err
		}
		return runtime.NewNumber(n * 2), nil
	}))
	require.NoError(t, c.RegisterGlobalClosure("greet", 0, func(_ *runtime.Agent, _ *runtime.Value, _ []*runtime.Value, captures any) (*runtime.Value, error) {
		return runtime.NewString("hello " + captures.(string)), nil
	}, "host"))
	require.NoError(t, c.RegisterGlobalFunction("fail", 0, func(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
		return nil, errors.New("host failure")
	}))

	v, err := c.Eval(`answer = 1; [answer, double(21), greet(), typeof double, double.length].join()`)
	require.NoError(t, err)
	assert.Equal(t, "42,42,hello host,function,1", v.String())

	v, err = c.Eval(`try { fail() } catch (e) { (e instanceof Error) + ":" + e.message }`)
	require.NoError(t, err)
	assert.Equal(t, "true:host failure", v.String())

	err = c.RegisterGlobalProperty("answer", runtime.NewInt(1), runtime.AttrAll)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "TypeError", se.Name)
}

func argOrUndefined(args []*runtime.Value, i int) *runtime.Value {
	if i < len(args) {
		return args[i]
	}
	return runtime.Undefined
}

func TestRunJobsSettlesFutures(t *testing.T) {
	c, _ := newTestContext(t)
	release := make(chan struct{})
	require.NoError(t, c.RegisterGlobalFunction("later", 1, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		label := argOrUndefined(args, 0).String()
		p := a.Spawn(func(ctx context.Context) (any, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return label + " done", nil
		}, func(_ *runtime.Agent, v any) (*runtime.Value, error) {
			return runtime.NewString(v.(string)), nil
		})
		return runtime.NewObject(p), nil
	}))

	_, err := c.Eval(`var got = "pending"; later("job").then(v => { got = v })`)
	require.NoError(t, err)
	require.NoError(t, c.RunJobs())

	v, err := c.Eval(`got`)
	require.NoError(t, err)
	assert.Equal(t, "pending", v.String())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.RunJobsContext(ctx))

	v, err = c.Eval(`got`)
	require.NoError(t, err)
	assert.Equal(t, "job done", v.String())
}

func TestContextBusy(t *testing.T) {
	c, _ := newTestContext(t)
	var fromOther error
	require.NoError(t, c.RegisterGlobalFunction("outer", 0, func(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
		done := make(chan error)
		go func() {
			_, err := c.Eval(`1`)
			done <- err
		}()
		fromOther = <-done
		return runtime.Undefined, nil
	}))
	require.NoError(t, c.RegisterGlobalFunction("nested", 0, func(*runtime.Agent, *runtime.Value, []*runtime.Value) (*runtime.Value, error) {
		return c.Eval(`40 + 2`)
	}))

	v, err := c.Eval(`outer(); nested()`)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v.Float())
	assert.ErrorIs(t, fromOther, ErrContextBusy)

	// Once the outer call returns, other goroutines may use the context.
	done := make(chan error)
	go func() {
		_, err := c.Eval(`2`)
		done <- err
	}()
	assert.NoError(t, <-done)
}

func TestNonBlockingRegistration(t *testing.T) {
	first, err := New(WithCanBlock(false))
	require.NoError(t, err)
	assert.False(t, first.CanBlock())

	_, err = New(WithCanBlock(false))
	assert.ErrorIs(t, err, ErrNonBlockingRegistered)

	// Blocking contexts are not limited.
	blocking, err := New()
	require.NoError(t, err)
	assert.True(t, blocking.CanBlock())
	require.NoError(t, blocking.Close())

	// Another goroutine has its own slot.
	done := make(chan error)
	go func() {
		other, err := New(WithCanBlock(false))
		if err == nil {
			err = other.Close()
		}
		done <- err
	}()
	require.NoError(t, <-done)

	require.NoError(t, first.Close())
	second, err := New(WithCanBlock(false))
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestClose(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, err = c.Eval(`function* g() { try { yield 1 } finally { globalThis.cleaned = true } } var it = g(); it.next()`)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Eval(`1`)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.RunJobs(), ErrClosed)
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, _ := newTestContext(t, WithLogger(logger), WithLimits(runtime.Limits{MaxSteps: 100}))

	for range 2 {
		_, err := c.EvalFile("same.js", `1`)
		require.NoError(t, err)
	}
	_, err := c.Eval(`for (;;) {}`)
	require.Error(t, err)
	_, err = c.Eval(`Promise.reject(new Error("nobody listens"))`)
	require.NoError(t, err)
	require.NoError(t, c.RunJobs())

	text := logs.String()
	assert.Contains(t, text, "context created")
	assert.Contains(t, text, "parse cache hit")
	assert.Contains(t, text, "execution limit hit")
	assert.Contains(t, text, "unhandled promise rejection")
	assert.Contains(t, text, "nobody listens")
}

func TestParseCache(t *testing.T) {
	c, _ := newTestContext(t, WithParseCacheSize(2))

	for range 3 {
		_, err := c.Eval(`for (let i = 0; i < 5; i++) eval("i * 2")`)
		require.NoError(t, err)
	}
	// One miss for the script and one for the eval source; the rest hit.
	assert.Equal(t, 2, c.cache.misses)
	assert.Equal(t, 16, c.cache.hits)
	assert.Equal(t, 2, c.cache.Len())

	_, err := c.Eval(`"a"`)
	require.NoError(t, err)
	_, err = c.Eval(`"b"`)
	require.NoError(t, err)
	assert.Equal(t, 2, c.cache.Len())

	_, err = c.Eval(`let = ;`)
	require.Error(t, err)
	assert.Equal(t, 2, c.cache.Len())

	uncached, _ := newTestContext(t, WithParseCacheSize(-1))
	_, err = uncached.Eval(`1`)
	require.NoError(t, err)
	assert.Zero(t, uncached.cache.Len())
	assert.Zero(t, uncached.cache.hits)
}

func TestDefault(t *testing.T) {
	c := Default()
	defer c.Close()
	v, err := c.Eval(`typeof globalThis.JSON`)
	require.NoError(t, err)
	assert.Equal(t, "object", v.String())
	assert.Same(t, c.Agent().Global(), c.Global())
}
