package builtins_test

import "testing"

func TestStringMethods(t *testing.T) {
	runCases(t, []scriptCase{
		{"charAt", `"hello".charAt(1) + "|" + "hello".charAt(10)`, "e|"},
		{"charCodeAt", `"A".charCodeAt(0) + "," + "A".charCodeAt(3)`, "65,NaN"},
		{"codePointAt", `"😀".codePointAt(0) + "," + "😀".codePointAt(1)`, "128512,56832"},
		{"length counts code units", `"😀a".length`, "3"},
		{"at", `"abc".at(-1) + "abc".at(0)`, "ca"},
		{"indexOf", `"hello world".indexOf("world") + "," + "hello".indexOf("z")`, "6,-1"},
		{"lastIndexOf", `"abcabc".lastIndexOf("b")`, "4"},
		{"includes", `"hello world".includes("o w")`, "true"},
		{"startsWith endsWith", `"hello".startsWith("he") && "hello".endsWith("lo", 5)`, "true"},
		{"slice", `"hello world".slice(0, 5) + "|" + "hello world".slice(-5)`, "hello|world"},
		{"substring swaps", `"hello".substring(4, 1)`, "ell"},
		{"substr", `"hello".substr(-3, 2)`, "ll"},
		{"case mapping", `"Hello".toUpperCase() + "Hello".toLowerCase()`, "HELLOhello"},
		{"special casing", `"ß".toUpperCase()`, "SS"},
		{"trim", `"[" + "  a b \n".trim() + "][" + "  a".trimStart() + "][" + "a  ".trimEnd() + "]"`, "[a b][a][a]"},
		{"repeat", `"ab".repeat(3)`, "ababab"},
		{"padStart padEnd", `"5".padStart(3, "0") + "|" + "5".padEnd(4, "ab")`, "005|5aba"},
		{"split string", `"a,b,,c".split(",").join("|")`, "a|b||c"},
		{"split limit", `"a,b,c".split(",", 2).length`, "2"},
		{"split empty", `"abc".split("").join("-")`, "a-b-c"},
		{"replace first", `"aaa".replace("a", "b")`, "baa"},
		{"replaceAll", `"aaa".replaceAll("a", "$&$&")`, "aaaaaa"},
		{"replace function", `"abc".replace("b", (m, i) => m.toUpperCase() + i)`, "aB1c"},
		{"replace patterns", "\"abc\".replace(\"b\", \"[$`|$'|$$]\")", "a[a|c|$]c"},
		{"concat", `"a".concat(1, null, undefined)`, "a1nullundefined"},
		{"normalize", `"Å".normalize("NFC") === "Å"`, "true"},
		{"isWellFormed", `"abc".isWellFormed()`, "true"},
		{"localeCompare", `["b", "a", "c"].sort((x, y) => x.localeCompare(y)).join("")`, "abc"},
		{"iterator yields code points", `[..."a😀b"].length`, "3"},
		{"fromCharCode", `String.fromCharCode(72, 105)`, "Hi"},
		{"fromCodePoint", `String.fromCodePoint(128512) === "😀"`, "true"},
		{"raw", "String.raw`a\\n${1}b`", `a\n1b`},
		{"html wrappers", `"x".bold() + "x".anchor("a\"b")`, `<b>x</b><a name="a&quot;b">x</a>`},
		{"wrapper object", `typeof new String("a") + ":" + new String("ab").length`, "object:2"},
		{"symbol to string", `String(Symbol("s"))`, "Symbol(s)"},
		{"iterator tag", `Object.prototype.toString.call(""[Symbol.iterator]())`, "[object String Iterator]"},
	})
}

func TestStringErrors(t *testing.T) {
	runThrowCases(t, []throwCase{
		{"repeat negative", `"a".repeat(-1)`, "RangeError: Invalid count value: -1"},
		{"includes regexp", `"a".includes(/a/)`, "TypeError: First argument to String.prototype.includes must not be a regular expression"},
		{"matchAll non global", `"a".matchAll(/a/)`, "TypeError: String.prototype.matchAll called with a non-global RegExp argument"},
		{"replaceAll non global", `"a".replaceAll(/a/, "b")`, "TypeError: replaceAll must be called with a global RegExp"},
		{"normalize form", `"a".normalize("NFX")`, "RangeError: The normalization form should be one of NFC, NFD, NFKC, NFKD."},
	})
}
