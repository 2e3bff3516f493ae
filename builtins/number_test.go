package builtins_test

import "testing"

func TestNumberFormatting(t *testing.T) {
	runCases(t, []scriptCase{
		{"toFixed", `(1.005).toFixed(2) + "|" + (1.5).toFixed(0) + "|" + (-1.5).toFixed(0)`, "1.00|2|-2"},
		{"toFixed large", `(1e21).toFixed(2)`, "1e+21"},
		{"toPrecision", `(123.456).toPrecision(4) + "|" + (0.00001).toPrecision(1)`, "123.5|0.00001"},
		{"toPrecision exponent", `(123456).toPrecision(2)`, "1.2e+5"},
		{"toExponential", `(123456).toExponential(2) + "|" + (0).toExponential()`, "1.23e+5|0e+0"},
		{"toString radix", `(255).toString(16) + "|" + (-8).toString(2) + "|" + (0.5).toString(2)`, "ff|-1000|0.1"},
		{"valueOf wrapper", `new Number(4).valueOf() + 1`, "5"},
		{"shortest round trip", `0.1 + 0.2`, "0.30000000000000004"},
		{"exponent form", `1e21 + "|" + 1e-7`, "1e+21|1e-7"},
		{"negative zero prints as zero", `String(-0)`, "0"},
	})
}

func TestNumberStatics(t *testing.T) {
	runCases(t, []scriptCase{
		{"isInteger", `Number.isInteger(5) && !Number.isInteger(5.5) && !Number.isInteger("5")`, "true"},
		{"isSafeInteger", `Number.isSafeInteger(2 ** 53 - 1) && !Number.isSafeInteger(2 ** 53)`, "true"},
		{"isNaN strict", `Number.isNaN(NaN) && !Number.isNaN("x")`, "true"},
		{"isFinite strict", `Number.isFinite(1) && !Number.isFinite("1")`, "true"},
		{"constants", `Number.MAX_SAFE_INTEGER + "|" + Number.EPSILON`, "9007199254740991|2.220446049250313e-16"},
		{"parse shared with globals", `Number.parseInt === parseInt && Number.parseFloat === parseFloat`, "true"},
		{"conversion", `Number("  12  ") + Number("0x10") + Number("")`, "28"},
		{"bigint conversion", `Number(10n)`, "10"},
	})
}

func TestNumberErrors(t *testing.T) {
	runThrowCases(t, []throwCase{
		{"radix", `(1).toString(1)`, "RangeError: toString() radix must be between 2 and 36"},
		{"toFixed digits", `(1).toFixed(101)`, "RangeError: toFixed() argument must be between 0 and 100"},
		{"receiver", `Number.prototype.valueOf.call("1")`, "TypeError: Number.prototype.valueOf requires that 'this' be a Number"},
	})
}

func TestBigInt(t *testing.T) {
	runCases(t, []scriptCase{
		{"from number", `BigInt(42) + 1n`, "43"},
		{"from string", `BigInt("0x1f")`, "31"},
		{"toString radix", `(255n).toString(16)`, "ff"},
		{"asIntN", `BigInt.asIntN(8, 255n)`, "-1"},
		{"asUintN", `BigInt.asUintN(8, -1n)`, "255"},
		{"typeof", `typeof 1n`, "bigint"},
	})
	runThrowCases(t, []throwCase{
		{"new", `new BigInt(1)`, "TypeError: BigInt is not a constructor"},
		{"fraction", `BigInt(1.5)`, "RangeError: The number 1.5 cannot be converted to a BigInt because it is not an integer"},
	})
}

func TestBoolean(t *testing.T) {
	runCases(t, []scriptCase{
		{"call converts", `Boolean("") + "|" + Boolean("0")`, "false|true"},
		{"wrapper is truthy", `new Boolean(false) ? "yes" : "no"`, "yes"},
		{"toString", `true.toString() + new Boolean(false).valueOf()`, "truefalse"},
	})
	runThrowCases(t, []throwCase{
		{"receiver", `Boolean.prototype.toString.call(1)`, "TypeError: Boolean.prototype.toString requires that 'this' be a Boolean"},
	})
}
