package builtins_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumbers(t *testing.T) {
	runCases(t, []scriptCase{
		{"parseInt decimal", `parseInt("  42px")`, "42"},
		{"parseInt hex prefix", `parseInt("0x1F")`, "31"},
		{"parseInt radix", `parseInt("ff", 16) + "|" + parseInt("101", 2)`, "255|5"},
		{"parseInt radix strips prefix only for 16", `parseInt("0x10", 10)`, "0"},
		{"parseInt negative", `parseInt("-12.9")`, "-12"},
		{"parseInt invalid", `parseInt("abc") + "|" + parseInt("", 10) + "|" + parseInt("1", 37)`, "NaN|NaN|NaN"},
		{"parseInt large", `parseInt("123456789012345678901234567890")`, "1.2345678901234568e+29"},
		{"parseInt radix 36", `parseInt("zz", 36)`, "1295"},
		{"parseFloat", `parseFloat("3.14abc") + "|" + parseFloat(".5") + "|" + parseFloat("-1e3x")`, "3.14|0.5|-1000"},
		{"parseFloat infinity", `parseFloat("Infinityx") + "|" + parseFloat("-Infinity")`, "Infinity|-Infinity"},
		{"parseFloat invalid", `parseFloat("x1")`, "NaN"},
		{"isNaN coerces", `isNaN("abc") + "|" + isNaN("12")`, "true|false"},
		{"isFinite coerces", `isFinite("12") + "|" + isFinite(Infinity)`, "true|false"},
	})
}

func TestURIFunctions(t *testing.T) {
	runCases(t, []scriptCase{
		{"encodeURIComponent", `encodeURIComponent("a b&c/d?é")`, "a%20b%26c%2Fd%3F%C3%A9"},
		{"encodeURI keeps reserved", `encodeURI("http://x.y/a b?q=1#h")`, "http://x.y/a%20b?q=1#h"},
		{"encode astral", `encodeURIComponent("😀")`, "%F0%9F%98%80"},
		{"decodeURIComponent", `decodeURIComponent("a%20b%26%C3%A9")`, "a b&é"},
		{"decodeURI keeps reserved escapes", `decodeURI("%3F%20%23")`, "%3F %23"},
		{"escape", `escape("a b+é")`, "a%20b+%E9"},
		{"escape astral", `escape("😀")`, "%uD83D%uDE00"},
		{"unescape", `unescape("%u0041%20%zz")`, "A %zz"},
	})
	runThrowCases(t, []throwCase{
		{"malformed percent", `decodeURIComponent("%")`, "URIError: URI malformed"},
		{"invalid utf8", `decodeURIComponent("%C3%28")`, "URIError: URI malformed"},
	})
}

func TestGlobalObject(t *testing.T) {
	runCases(t, []scriptCase{
		{"globalThis", `globalThis.globalThis === globalThis`, "true"},
		{"var becomes property", `var gv = 1; globalThis.gv`, "1"},
		{"let is not a property", `let lv = 1; "lv" in globalThis`, "false"},
		{"constants", `[NaN, Infinity, undefined].map(String).join()`, "NaN,Infinity,undefined"},
		{"undefined read only", `undefined = 1; typeof undefined`, "undefined"},
		{"builtins not enumerable", `Object.keys(globalThis).includes("Array")`, "false"},
	})
}

func TestIndirectEval(t *testing.T) {
	runCases(t, []scriptCase{
		{"non string passthrough", `const o = {}; eval(o) === o`, "true"},
		{"expression", `eval("1 + 2")`, "3"},
		{"indirect sees globals only", `var x = "global"; (function () { var x = "local"; return (0, eval)("x") })()`, "global"},
		{"direct sees locals", `var x = "global"; (function () { var x = "local"; return eval("x") })()`, "local"},
		{"var leaks to global", `(0, eval)("var leaked = 5"); leaked`, "5"},
	})

	h := newHarness(t)
	assert.True(t, strings.HasPrefix(h.throws(`eval("1 +")`), "SyntaxError"))
}
