package builtins_test

import "testing"

func TestFunctionPrototype(t *testing.T) {
	runCases(t, []scriptCase{
		{"call", `function f(a, b) { return this.x + a + b } f.call({x: 1}, 2, 3)`, "6"},
		{"apply", `Math.max.apply(null, [1, 5, 2])`, "5"},
		{"apply array-like", `(function () { return arguments.length }).apply(null, {length: 3})`, "3"},
		{"apply nullish args", `(function () { return arguments.length }).apply(null, undefined)`, "0"},
		{"bind this and args", `function f(a, b) { return this.v + a + b } f.bind({v: 1}, 2)(3)`, "6"},
		{"bind name and length", `function foo(a, b, c) {} const b = foo.bind(null, 1); b.name + ":" + b.length`, "bound foo:2"},
		{"bound construct ignores this", `function P(x) { this.x = x } const B = P.bind({ignored: true}, 4); const o = new B(); o.x + ":" + (o instanceof P)`, "4:true"},
		{"toString source", `(function add(a, b) { return a + b }).toString()`, "function add(a, b) { return a + b }"},
		{"toString native", `Math.max.toString()`, "function max() { [native code] }"},
		{"hasInstance", `Function.prototype[Symbol.hasInstance].call(Array, [])`, "true"},
		{"name inference", `const fn = () => 1; const o = {m() {}}; fn.name + "," + o.m.name`, "fn,m"},
		{"length", `((a, b = 1, c) => 0).length`, "1"},
	})
	runThrowCases(t, []throwCase{
		{"bind non callable", `Function.prototype.bind.call({})`, "TypeError: Bind must be called on a function"},
		{"caller poison", `(function () {}).caller`, "TypeError: 'caller', 'callee', and 'arguments' properties may not be accessed on strict mode functions or the arguments objects for calls to them"},
		{"apply non callable", `Function.prototype.apply.call(1)`, "TypeError: Function.prototype.apply was called on 1, which is not a function"},
	})
}

func TestDynamicFunction(t *testing.T) {
	runCases(t, []scriptCase{
		{"Function", `new Function("a", "b", "return a * b")(6, 7)`, "42"},
		{"Function without new", `Function("return 1")()`, "1"},
		{"global scope", `var g = 5; (function () { const g = 1; return Function("return g")() })()`, "5"},
		{"GeneratorFunction", `const GF = Object.getPrototypeOf(function* () {}).constructor; [...new GF("yield 1; yield 2")()].join()`, "1,2"},
		{"AsyncFunction proto", `Object.getPrototypeOf(async function () {}).constructor.name`, "AsyncFunction"},
		{"toString of dynamic", `typeof new Function("a", "return a").toString()`, "string"},
	})
}

func TestGenerators(t *testing.T) {
	runCases(t, []scriptCase{
		{"next values", `function* g() { const x = yield 1; yield x * 2 } const it = g(); it.next(); it.next(5).value`, "10"},
		{"done", `function* g() { yield 1 } const it = g(); it.next(); JSON.stringify(it.next())`, `{"done":true}`},
		{"return", `function* g() { try { yield 1 } finally { yield 2 } } const it = g(); it.next(); it.return(9).value + "," + it.next().value`, "2,9"},
		{"throw", `function* g() { try { yield 1 } catch (e) { yield "caught " + e } } const it = g(); it.next(); it.throw("x").value`, "caught x"},
		{"delegation", `function* a() { yield 1; yield 2 } function* b() { yield* a(); yield 3 } [...b()].join()`, "1,2,3"},
		{"tag", `Object.prototype.toString.call((function* () {})())`, "[object Generator]"},
		{"async generator", `const out = []; const it = (async function* () { yield 1; yield 2 })(); it.next().then(r => { out.push(r.value); return it.next() }).then(r => out.push(r.value)); out`, "1,2"},
	})
}
