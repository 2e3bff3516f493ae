package builtins_test

import "testing"

func TestArrayMutators(t *testing.T) {
	runCases(t, []scriptCase{
		{"push returns length", `const a = [1]; a.push(2, 3) + ":" + a.join()`, "3:1,2,3"},
		{"pop", `const a = [1, 2]; a.pop() + ":" + a.length`, "2:1"},
		{"pop empty", `[].pop()`, "undefined"},
		{"shift unshift", `const a = [2, 3]; a.unshift(1); a.shift() + ":" + a.join()`, "1:2,3"},
		{"splice remove", `const a = [1, 2, 3, 4]; a.splice(1, 2).join() + ":" + a.join()`, "2,3:1,4"},
		{"splice insert", `const a = [1, 4]; a.splice(1, 0, 2, 3); a.join()`, "1,2,3,4"},
		{"splice negative", `const a = [1, 2, 3]; a.splice(-1); a.join()`, "1,2"},
		{"reverse", `[1, 2, 3].reverse().join()`, "3,2,1"},
		{"fill", `new Array(3).fill(0, 1).join()`, ",0,0"},
		{"copyWithin", `[1, 2, 3, 4, 5].copyWithin(0, 3).join()`, "4,5,3,4,5"},
		{"length truncates", `const a = [1, 2, 3]; a.length = 1; a.join() + ":" + a[2]`, "1:undefined"},
		{"length grows holes", `const a = []; a[4] = 1; a.length + ":" + (2 in a)`, "5:false"},
		{"sort default is string order", `[10, 9, 1].sort().join()`, "1,10,9"},
		{"sort comparator", `[3, 1, 2].sort((x, y) => x - y).join()`, "1,2,3"},
		{"sort undefined last", `[undefined, 2, 1].sort().map(String).join()`, "1,2,undefined"},
		{"sort stable", `[{k: 1, v: "a"}, {k: 0, v: "b"}, {k: 1, v: "c"}].sort((x, y) => x.k - y.k).map(o => o.v).join("")`, "bac"},
	})
}

func TestArrayAccessors(t *testing.T) {
	runCases(t, []scriptCase{
		{"slice", `[1, 2, 3, 4].slice(1, -1).join()`, "2,3"},
		{"concat spreads arrays", `[1].concat([2, [3]], 4).length`, "4"},
		{"concat spreadable", `const o = {length: 2, 0: "a", 1: "b", [Symbol.isConcatSpreadable]: true}; [].concat(o).join()`, "a,b"},
		{"at", `[1, 2, 3].at(-1)`, "3"},
		{"indexOf", `[1, 2, NaN].indexOf(2) + "|" + [NaN].indexOf(NaN)`, "1|-1"},
		{"includes NaN", `[NaN].includes(NaN)`, "true"},
		{"lastIndexOf", `[1, 2, 1].lastIndexOf(1)`, "2"},
		{"join nullish", `[1, null, undefined, 2].join("-")`, "1---2"},
		{"toString", `String([1, [2, 3]])`, "1,2,3"},
		{"flat", `[1, [2, [3, [4]]]].flat(2).length`, "4"},
		{"flat infinity", `[1, [2, [3, [4]]]].flat(Infinity).join()`, "1,2,3,4"},
		{"flatMap", `[1, 2].flatMap(x => [x, x * 2]).join()`, "1,2,2,4"},
		{"toSorted keeps original", `const a = [2, 1]; a.toSorted().join() + ":" + a.join()`, "1,2:2,1"},
		{"toReversed", `[1, 2].toReversed().join()`, "2,1"},
		{"join cycle", `const a = [1]; a.push(a); a.join()`, "1,"},
	})
}

func TestArrayIteration(t *testing.T) {
	runCases(t, []scriptCase{
		{"map", `[1, 2].map((x, i) => x * 10 + i).join()`, "10,21"},
		{"map thisArg", `[1].map(function () { return this.v }, {v: 7})[0]`, "7"},
		{"filter", `[1, 2, 3, 4].filter(x => x % 2).join()`, "1,3"},
		{"forEach skips holes", `let n = 0; [1, , 3].forEach(() => n++); n`, "2"},
		{"reduce", `[1, 2, 3].reduce((s, x) => s + x)`, "6"},
		{"reduceRight", `["a", "b", "c"].reduceRight((s, x) => s + x, "")`, "cba"},
		{"every some", `[2, 4].every(x => x % 2 === 0) + "|" + [1, 2].some(x => x > 1)`, "true|true"},
		{"find", `[5, 12, 8].find(x => x > 6) + "|" + [5, 12, 8].findIndex(x => x > 6)`, "12|1"},
		{"findLast", `[5, 12, 8].findLast(x => x > 6) + "|" + [5, 12, 8].findLastIndex(x => x > 100)`, "8|-1"},
		{"keys", `[...["a", "b"].keys()].join()`, "0,1"},
		{"entries", `JSON.stringify([...["a"].entries()])`, `[[0,"a"]]`},
		{"values is iterator", `Array.prototype.values === Array.prototype[Symbol.iterator]`, "true"},
		{"iterator sees growth", `const a = [1]; const out = []; for (const x of a) { out.push(x); if (a.length < 3) a.push(x + 1) } out.join()`, "1,2,3"},
		{"iterator tag", `Object.prototype.toString.call([].values())`, "[object Array Iterator]"},
		{"unscopables", `Array.prototype[Symbol.unscopables].flat`, "true"},
	})
}

func TestArrayConstructor(t *testing.T) {
	runCases(t, []scriptCase{
		{"length argument", `new Array(3).length`, "3"},
		{"element arguments", `new Array(1, 2).join()`, "1,2"},
		{"single string", `Array("3").length`, "1"},
		{"isArray", `Array.isArray([]) + "|" + Array.isArray({length: 0}) + "|" + Array.isArray(new Proxy([], {}))`, "true|false|true"},
		{"from iterable", `Array.from(new Set([1, 1, 2])).join()`, "1,2"},
		{"from array-like", `Array.from({length: 2, 0: "a"}).map(String).join()`, "a,undefined"},
		{"from mapFn", `Array.from("ab", (c, i) => c + i).join()`, "a0,b1"},
		{"of", `Array.of(7).length`, "1"},
		{"species", `class MyArr extends Array {}; new MyArr(1, 2, 3).map(x => x) instanceof MyArr`, "true"},
		{"generic receiver", `Array.prototype.map.call("ab", c => c.toUpperCase()).join("")`, "AB"},
	})
	runThrowCases(t, []throwCase{
		{"bad length", `new Array(-1)`, "RangeError: Invalid array length"},
		{"bad length assign", `[].length = 1.5`, "RangeError: Invalid array length"},
		{"reduce empty", `[].reduce((a, b) => a)`, "TypeError: Reduce of empty array with no initial value"},
		{"callback", `[1].map(3)`, "TypeError: 3 is not a function"},
		{"sort comparator", `[1].sort(1)`, "TypeError: The comparison function must be either a function or undefined"},
	})
}
