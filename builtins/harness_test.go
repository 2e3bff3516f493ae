package builtins_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/builtins"
	"github.com/example/jscore/interpreter"
	"github.com/example/jscore/runtime"
)

type harness struct {
	t      *testing.T
	a      *runtime.Agent
	interp *interpreter.Interpreter
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, interp: interpreter.New()}
	h.a = runtime.NewAgent(runtime.WithExecutor(h.interp))
	t.Cleanup(h.a.Close)
	builtins.Install(h.a, builtins.WithStdout(&h.stdout), builtins.WithStderr(&h.stderr))
	return h
}

func (h *harness) run(src string) (*runtime.Value, error) {
	v, err := h.interp.Eval(h.a, src)
	if err != nil {
		return nil, err
	}
	if err := h.a.RunJobs(); err != nil {
		return nil, err
	}
	return v, nil
}

// str evaluates src, drains the job queue and returns the completion value
// converted to a string.
func (h *harness) str(src string) string {
	h.t.Helper()
	v, err := h.run(src)
	require.NoError(h.t, err, "script: %s", src)
	s, err := v.ToString(h.a)
	require.NoError(h.t, err)
	return s
}

// throws evaluates src and returns the summary of the exception it raised.
func (h *harness) throws(src string) string {
	h.t.Helper()
	_, err := h.run(src)
	require.Error(h.t, err, "script: %s", src)
	exc, ok := runtime.AsException(err)
	require.True(h.t, ok, "expected a script exception, got %v", err)
	if exc.Value.IsObject() {
		return runtime.ErrorSummary(exc.Value.Object)
	}
	return exc.Value.String()
}

type scriptCase struct {
	name string
	src  string
	want string
}

// runCases evaluates every case in a fresh realm.
func runCases(t *testing.T, cases []scriptCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			assert.Equal(t, tc.want, h.str(tc.src))
		})
	}
}

type throwCase struct {
	name string
	src  string
	want string
}

func runThrowCases(t *testing.T, cases []throwCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			assert.Equal(t, tc.want, h.throws(tc.src))
		})
	}
}
