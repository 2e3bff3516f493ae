package builtins_test

import "testing"

func TestMap(t *testing.T) {
	runCases(t, []scriptCase{
		{"set get", `const m = new Map(); m.set("a", 1).set("b", 2); m.get("a") + m.get("b") + "|" + m.size`, "3|2"},
		{"object keys by identity", `const k = {}; const m = new Map([[k, 1]]); m.get(k) + "|" + m.get({})`, "1|undefined"},
		{"NaN key", `new Map([[NaN, "n"]]).get(NaN)`, "n"},
		{"negative zero normalized", `const m = new Map([[-0, "z"]]); m.get(0) + "|" + Object.is([...m.keys()][0], -0)`, "z|false"},
		{"insertion order", `const m = new Map([["b", 1], ["a", 2]]); m.set("b", 3); [...m.keys()].join()`, "b,a"},
		{"delete then re-add moves to end", `const m = new Map([[1, 0], [2, 0]]); m.delete(1); m.set(1, 0); [...m.keys()].join()`, "2,1"},
		{"has delete", `const m = new Map([[1, 1]]); m.delete(1) + "|" + m.delete(1) + "|" + m.has(1)`, "true|false|false"},
		{"clear", `const m = new Map([[1, 1]]); m.clear(); m.size`, "0"},
		{"forEach", `const out = []; new Map([["a", 1]]).forEach((v, k, m) => out.push(k + v + (m instanceof Map))); out.join()`, "a1true"},
		{"entries", `JSON.stringify([...new Map([["a", 1]])])`, `[["a",1]]`},
		{"iterator sees later additions", `const m = new Map([[1, 1]]); const out = []; for (const [k] of m) { out.push(k); if (k < 3) m.set(k + 1, 0) } out.join()`, "1,2,3"},
		{"iterator skips deleted", `const m = new Map([[1, 0], [2, 0], [3, 0]]); const out = []; for (const [k] of m) { out.push(k); m.delete(2) } out.join()`, "1,3"},
		{"groupBy", `const g = Map.groupBy([1, 2, 3, 4], x => x % 2 ? "odd" : "even"); g.get("odd").join() + "|" + g.get("even").join()`, "1,3|2,4"},
		{"tags", `Object.prototype.toString.call(new Map()) + Object.prototype.toString.call(new Map().keys())`, "[object Map][object Map Iterator]"},
		{"subclass adder", `class M extends Map { set(k, v) { return super.set(k, v * 2) } } new M([["a", 2]]).get("a")`, "4"},
	})
	runThrowCases(t, []throwCase{
		{"requires new", `Map()`, "TypeError: Constructor Map requires 'new'"},
		{"receiver", `Map.prototype.get.call({}, 1)`, "TypeError: Method Map.prototype.get called on incompatible receiver #<Object>"},
		{"entry not object", `new Map([1])`, "TypeError: Iterator value 1 is not an entry object"},
	})
}

func TestSet(t *testing.T) {
	runCases(t, []scriptCase{
		{"dedupe", `new Set([1, 1, "1", NaN, NaN]).size`, "3"},
		{"add chains", `const s = new Set(); s.add(1).add(2); [...s].join()`, "1,2"},
		{"has delete", `const s = new Set([1]); s.has(1) + "|" + s.delete(1) + "|" + s.has(1)`, "true|true|false"},
		{"entries are pairs", `JSON.stringify([...new Set(["a"]).entries()])`, `[["a","a"]]`},
		{"keys is values", `Set.prototype.keys === Set.prototype.values && Set.prototype[Symbol.iterator] === Set.prototype.values`, "true"},
		{"forEach", `let s = ""; new Set(["x", "y"]).forEach((v, k) => s += v + k); s`, "xxyy"},
		{"clear during iteration", `const s = new Set([1, 2, 3]); const out = []; for (const v of s) { out.push(v); s.clear() } out.join()`, "1"},
		{"string iterable", `new Set("hello").size`, "4"},
	})
	runThrowCases(t, []throwCase{
		{"requires new", `Set()`, "TypeError: Constructor Set requires 'new'"},
		{"receiver", `Set.prototype.add.call(new Map(), 1)`, "TypeError: Method Set.prototype.add called on incompatible receiver #<Map>"},
	})
}

func TestWeakCollections(t *testing.T) {
	runCases(t, []scriptCase{
		{"weakmap", `const k = {}; const w = new WeakMap([[k, 1]]); w.get(k) + "|" + w.has({}) + "|" + w.delete(k) + "|" + w.has(k)`, "1|false|true|false"},
		{"weakset", `const k = {}; const w = new WeakSet([k]); w.has(k) + "|" + w.delete(k) + "|" + w.has(k)`, "true|true|false"},
		{"symbol keys", `const s = Symbol(); new WeakMap().set(s, 1).get(s)`, "1"},
		{"primitive lookups are false", `new WeakMap().has(1) + "|" + new WeakSet().delete("a")`, "false|false"},
	})
	runThrowCases(t, []throwCase{
		{"weakmap primitive key", `new WeakMap().set(1, 1)`, "TypeError: Invalid value used as weak map key"},
		{"weakset primitive", `new WeakSet().add("s")`, "TypeError: Invalid value used in weak set"},
		{"registered symbol", `new WeakSet().add(Symbol.for("r"))`, "TypeError: Invalid value used in weak set"},
	})
}
