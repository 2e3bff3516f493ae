package builtins_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParse(t *testing.T) {
	runCases(t, []scriptCase{
		{"object order", `Object.keys(JSON.parse('{"b":1,"a":2,"c":3}')).join()`, "b,a,c"},
		{"nested", `JSON.parse('{"a":[1,{"b":null}],"c":true}').a[1].b === null`, "true"},
		{"numbers", `JSON.parse("[1e3, -0.5, 12]").join()`, "1000,-0.5,12"},
		{"strings", `JSON.parse('"a\\u0041\\n"').length`, "3"},
		{"reviver", `JSON.stringify(JSON.parse('{"a":1,"b":[2,3]}', (k, v) => typeof v === "number" ? v * 10 : v))`, `{"a":10,"b":[20,30]}`},
		{"reviver deletes", `JSON.stringify(JSON.parse('{"a":1,"b":2}', (k, v) => k === "a" ? undefined : v))`, `{"b":2}`},
	})
	runThrowCases(t, []throwCase{
		{"truncated", `JSON.parse("[1,")`, "SyntaxError: Unexpected end of JSON input"},
	})
}

func TestJSONStringify(t *testing.T) {
	runCases(t, []scriptCase{
		{"primitives", `[JSON.stringify(1), JSON.stringify("a"), JSON.stringify(null), JSON.stringify(NaN)].join("|")`, `1|"a"|null|null`},
		{"undefined dropped", `JSON.stringify({a: undefined, b: () => 1, c: Symbol("x"), d: 1})`, `{"d":1}`},
		{"undefined in array", `JSON.stringify([undefined, function () {}])`, `[null,null]`},
		{"top level undefined", `typeof JSON.stringify(undefined)`, "undefined"},
		{"escapes", `JSON.stringify("a\"\\\n\u0001")`, `"a\"\\\n\u0001"`},
		{"indent number", `JSON.stringify({a: [1]}, null, 2)`, "{\n  \"a\": [\n    1\n  ]\n}"},
		{"indent string", `JSON.stringify([1, 2], null, "--")`, "[\n--1,\n--2\n]"},
		{"replacer array", `JSON.stringify({a: 1, b: 2, c: 3}, ["c", "a", "c"])`, `{"c":3,"a":1}`},
		{"replacer function", `JSON.stringify({a: 1, b: "x"}, (k, v) => typeof v === "number" ? v + 1 : v)`, `{"a":2,"b":"x"}`},
		{"toJSON", `JSON.stringify({d: {toJSON(key) { return "key:" + key }}})`, `{"d":"key:d"}`},
		{"wrappers unwrap", `JSON.stringify([new Number(1), new String("s"), new Boolean(false)])`, `[1,"s",false]`},
		{"date", `JSON.stringify(new Date(0))`, `"1970-01-01T00:00:00.000Z"`},
		{"map is empty object", `JSON.stringify(new Map([[1, 2]]))`, `{}`},
	})
	runThrowCases(t, []throwCase{
		{"bigint", `JSON.stringify(1n)`, "TypeError: Do not know how to serialize a BigInt"},
		{"cycle", `const o = {}; o.self = o; JSON.stringify(o)`, "TypeError: Converting circular structure to JSON"},
	})
}

func TestJSONSharedReferenceIsNotACycle(t *testing.T) {
	h := newHarness(t)
	got := h.str(`const shared = {x: 1}; JSON.stringify({a: shared, b: [shared]})`)
	assert.Equal(t, `{"a":{"x":1},"b":[{"x":1}]}`, got)
}

func TestJSONParseTrailingInput(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.throws(`JSON.parse("[1] x")`), "SyntaxError: Unexpected non-whitespace character after JSON")
}

func TestJSONRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.str(`var v = {name: "x", list: [1, 2.5, -0, null, true, "s\u00e9"], nested: {deep: {ok: false}}, skip: undefined, fn() {}, [Symbol("k")]: 1}`)
	original := h.str(`JSON.stringify(v)`)
	again := h.str(`JSON.stringify(JSON.parse(JSON.stringify(v)))`)

	var want, got any
	require.NoError(t, json.Unmarshal([]byte(original), &want))
	require.NoError(t, json.Unmarshal([]byte(again), &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, original, "skip")
	assert.NotContains(t, original, "fn")
	assert.Equal(t, "true", h.str(`Object.keys(JSON.parse(JSON.stringify(v))).join() === "name,list,nested"`))
}
