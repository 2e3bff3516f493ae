package builtins_test

import "testing"

func TestMath(t *testing.T) {
	runCases(t, []scriptCase{
		{"round half up", `[Math.round(2.5), Math.round(-2.5), Math.round(-0.4)].map(x => Object.is(x, -0) ? "-0" : x).join()`, "3,-2,-0"},
		{"sign", `[Math.sign(-3), Math.sign(0), Math.sign(7)].join()`, "-1,0,1"},
		{"max min", `Math.max(1, 3, 2) + "|" + Math.min() + "|" + Math.max()`, "3|Infinity|-Infinity"},
		{"max with NaN", `Math.max(1, NaN, 3)`, "NaN"},
		{"pow edge", `Math.pow(1, Infinity) + "|" + 2 ** 10`, "NaN|1024"},
		{"hypot", `Math.hypot(3, 4) + "|" + Math.hypot(NaN, Infinity)`, "5|Infinity"},
		{"clz32", `Math.clz32(1) + "|" + Math.clz32(0)`, "31|32"},
		{"imul", `Math.imul(0xffffffff, 5)`, "-5"},
		{"fround", `Math.fround(5.5) + "|" + (Math.fround(0.1) === 0.1)`, "5.5|false"},
		{"trig", `Math.cos(0) + Math.sin(0)`, "1"},
		{"random range", `(() => { for (let i = 0; i < 100; i++) { const r = Math.random(); if (r < 0 || r >= 1) return false } return true })()`, "true"},
		{"tag", `Object.prototype.toString.call(Math)`, "[object Math]"},
		{"coerces every argument", `let n = 0; const o = { valueOf() { n++; return NaN } }; Math.max(o, o); n`, "2"},
	})
}
