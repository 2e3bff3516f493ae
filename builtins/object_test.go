package builtins_test

import "testing"

func TestObjectStatics(t *testing.T) {
	runCases(t, []scriptCase{
		{"keys order", `Object.keys({b: 1, 2: 0, a: 2, 1: 0}).join()`, "1,2,b,a"},
		{"values", `Object.values({a: 1, b: 2}).join()`, "1,2"},
		{"entries", `JSON.stringify(Object.entries({a: 1}))`, `[["a",1]]`},
		{"keys skip symbols and hidden", `const o = {a: 1, [Symbol("s")]: 2}; Object.defineProperty(o, "h", {value: 3}); Object.keys(o).join()`, "a"},
		{"fromEntries", `JSON.stringify(Object.fromEntries(new Map([["x", 1], ["y", 2]])))`, `{"x":1,"y":2}`},
		{"assign", `JSON.stringify(Object.assign({a: 1}, {b: 2}, null, {a: 3}))`, `{"a":3,"b":2}`},
		{"assign string source", `JSON.stringify(Object.assign({}, "ab"))`, `{"0":"a","1":"b"}`},
		{"create", `const p = {x: 1}; Object.getPrototypeOf(Object.create(p)) === p`, "true"},
		{"create null", `Object.getPrototypeOf(Object.create(null))`, "null"},
		{"create with props", `Object.create({}, {a: {value: 1, enumerable: true}}).a`, "1"},
		{"defineProperty defaults", `const o = {}; Object.defineProperty(o, "a", {value: 1}); JSON.stringify(Object.getOwnPropertyDescriptor(o, "a"))`, `{"value":1,"writable":false,"enumerable":false,"configurable":false}`},
		{"accessor", `const o = {}; let v = 0; Object.defineProperty(o, "a", {get() { return v }, set(x) { v = x * 2 }}); o.a = 2; o.a`, "4"},
		{"defineProperties", `const o = Object.defineProperties({}, {a: {value: 1}, b: {value: 2}}); o.a + o.b`, "3"},
		{"getOwnPropertyDescriptors", `Object.keys(Object.getOwnPropertyDescriptors({a: 1, b: 2})).join()`, "a,b"},
		{"getOwnPropertyNames", `Object.getOwnPropertyNames([1]).join()`, "0,length"},
		{"getOwnPropertySymbols", `Object.getOwnPropertySymbols({[Symbol.iterator]: 1}).length`, "1"},
		{"setPrototypeOf", `const o = Object.setPrototypeOf({}, Array.prototype); o instanceof Array`, "true"},
		{"freeze", `const o = Object.freeze({a: 1}); o.a = 2; o.a + "|" + Object.isFrozen(o)`, "1|true"},
		{"seal", `const o = Object.seal({a: 1}); o.a = 2; delete o.a; o.b = 1; [o.a, o.b, Object.isSealed(o), Object.isFrozen(o)].join()`, "2,,true,false"},
		{"empty non extensible is frozen", `Object.isFrozen(Object.preventExtensions({}))`, "true"},
		{"preventExtensions", `const o = Object.preventExtensions({}); o.x = 1; o.x === undefined && !Object.isExtensible(o)`, "true"},
		{"is", `[Object.is(NaN, NaN), Object.is(0, -0), Object.is("a", "a")].join()`, "true,false,true"},
		{"hasOwn", `Object.hasOwn({a: 1}, "a") && !Object.hasOwn({}, "toString")`, "true"},
		{"primitives are boxed", `Object.keys("ab").join()`, "0,1"},
	})
	runThrowCases(t, []throwCase{
		{"keys of undefined", `Object.keys(undefined)`, "TypeError: Cannot convert undefined or null to object"},
		{"redefine", `const o = Object.freeze({a: 1}); Object.defineProperty(o, "a", {value: 2})`, "TypeError: Cannot redefine property: a"},
		{"define on primitive", `Object.defineProperty(1, "a", {})`, "TypeError: Object.defineProperty called on non-object"},
		{"create bad proto", `Object.create(1)`, "TypeError: Object prototype may only be an Object or null: 1"},
		{"strict write to frozen", `"use strict"; const o = Object.freeze({a: 1}); o.a = 2`, "TypeError: Cannot assign to read only property 'a' of [object Object]"},
		{"descriptor mixing", `Object.defineProperty({}, "a", {value: 1, get() {}})`, "TypeError: Invalid property descriptor. Cannot both specify accessors and a value or writable attribute"},
	})
}

func TestObjectPrototype(t *testing.T) {
	runCases(t, []scriptCase{
		{"hasOwnProperty", `({a: 1}).hasOwnProperty("a") + "|" + ({}).hasOwnProperty("toString")`, "true|false"},
		{"isPrototypeOf", `Object.prototype.isPrototypeOf([])`, "true"},
		{"propertyIsEnumerable", `[1].propertyIsEnumerable(0) + "|" + [1].propertyIsEnumerable("length")`, "true|false"},
		{"toString tags", `[undefined, null, [], () => 1, new Error(), true, 1, "s", Symbol(), 1n].map(v => Object.prototype.toString.call(v)).join()`,
			"[object Undefined],[object Null],[object Array],[object Function],[object Error],[object Boolean],[object Number],[object String],[object Symbol],[object BigInt]"},
		{"custom tag", `Object.prototype.toString.call({[Symbol.toStringTag]: "X"})`, "[object X]"},
		{"arguments tag", `(function () { return Object.prototype.toString.call(arguments) })()`, "[object Arguments]"},
		{"toLocaleString", `({toString() { return "z" }}).toLocaleString()`, "z"},
		{"__proto__ getter", `({}).__proto__ === Object.prototype`, "true"},
		{"__proto__ setter", `const o = {}; o.__proto__ = Array.prototype; Array.isArray(o) + "|" + (o instanceof Array)`, "false|true"},
		{"valueOf", `const o = {}; o.valueOf() === o`, "true"},
	})
}

func TestObjectConstructor(t *testing.T) {
	runCases(t, []scriptCase{
		{"call wraps primitive", `typeof Object(1) + "|" + (Object(1) instanceof Number)`, "object|true"},
		{"returns same object", `const o = {}; Object(o) === o`, "true"},
		{"nullish gives fresh object", `Object.keys(Object(null)).length`, "0"},
		{"subclass new.target", `class C extends Object {}; Object.getPrototypeOf(new C()) === C.prototype`, "true"},
	})
}
