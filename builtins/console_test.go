package builtins_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogFormats(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"strings are bare", `console.log("a", "b")`, "a b"},
		{"numbers", `console.log(1, -0.5, NaN, 10n)`, "1 -0.5 NaN 10n"},
		{"array", `console.log([1, "x", [2]])`, "[ 1, 'x', [ 2 ] ]"},
		{"holes", `console.log([1, , , 4])`, "[ 1, <2 empty items>, 4 ]"},
		{"object", `console.log({a: 1, "b-c": "s", [Symbol("k")]: true})`, "{ a: 1, 'b-c': 's', [Symbol(k)]: true }"},
		{"nested depth", `console.log({a: {b: {c: {d: 1}}}})`, "{ a: { b: { c: [Object] } } }"},
		{"circular", `const o = {}; o.self = o; console.log(o)`, "{ self: [Circular] }"},
		{"functions", `console.log(function foo() {}, () => {}, class K {})`, "[Function: foo] [Function (anonymous)] [class K]"},
		{"error", `console.log(new TypeError("t"))`, "TypeError: t"},
		{"map and set", `console.log(new Map([["k", 1]]), new Set([1, 2]))`, "Map(1) { 'k' => 1 } Set(2) { 1, 2 }"},
		{"wrappers", `console.log(new Number(3), new String("s"))`, "[Number: 3] [String: 's']"},
		{"regexp and date", `console.log(/a+/g, new Date(0))`, "/a+/g 1970-01-01T00:00:00.000Z"},
		{"class instance", `class Pt { constructor() { this.x = 1 } } console.log(new Pt())`, "Pt { x: 1 }"},
		{"null prototype", `console.log(Object.create(null))`, "[Object: null prototype] {}"},
		{"accessors", `console.log({get a() { return 1 }, set b(v) {}})`, "{ a: [Getter], b: [Setter] }"},
		{"promise", `console.log(Promise.resolve(2), new Promise(() => {}))`, "Promise { 2 } Promise { <pending> }"},
		{"proxy", `console.log(new Proxy({}, {}))`, "[Proxy]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", h.stdout.String())
		})
	}
}

func TestConsoleStreams(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(`
		console.info("info");
		console.error("bad", 1);
		console.warn("careful");
		console.assert(true, "never");
		console.assert(false, "x", 2);
	`)
	require.NoError(t, err)
	assert.Equal(t, "info\n", h.stdout.String())
	assert.Equal(t, "bad 1\ncareful\nAssertion failed: x 2\n", h.stderr.String())
}

func TestConsoleCountersAndGroups(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(`
		console.count();
		console.count("a");
		console.count();
		console.countReset();
		console.count();
		console.group("outer");
		console.log("inside\nnext");
		console.groupEnd();
		console.log("outside");
	`)
	require.NoError(t, err)
	want := strings.Join([]string{
		"default: 1",
		"a: 1",
		"default: 2",
		"default: 1",
		"outer",
		"  inside",
		"  next",
		"outside",
		"",
	}, "\n")
	assert.Equal(t, want, h.stdout.String())
}

func TestConsoleTimers(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(`console.time("t"); console.timeEnd("t"); console.timeEnd("missing")`)
	require.NoError(t, err)
	assert.Regexp(t, `^t: \d+\.\d{3}ms\n$`, h.stdout.String())
	assert.Equal(t, "Timer 'missing' does not exist\n", h.stderr.String())
}
