package builtins_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateUTC(t *testing.T) {
	runCases(t, []scriptCase{
		{"Date.UTC", `Date.UTC(2000, 0, 1)`, "946684800000"},
		{"Date.UTC two digit year", `Date.UTC(99, 0) === Date.UTC(1999, 0)`, "true"},
		{"Date.UTC month overflow", `Date.UTC(2000, 12, 1) === Date.UTC(2001, 0, 1)`, "true"},
		{"Date.UTC NaN", `Date.UTC(NaN)`, "NaN"},
		{"getters", `const d = new Date(Date.UTC(2021, 2, 4, 5, 6, 7, 8)); [d.getUTCFullYear(), d.getUTCMonth(), d.getUTCDate(), d.getUTCHours(), d.getUTCMinutes(), d.getUTCSeconds(), d.getUTCMilliseconds(), d.getUTCDay()].join()`, "2021,2,4,5,6,7,8,4"},
		{"toISOString", `new Date(Date.UTC(2021, 2, 4, 5, 6, 7, 8)).toISOString()`, "2021-03-04T05:06:07.008Z"},
		{"toISOString negative year", `new Date(Date.UTC(-1, 0)).toISOString()`, "-000001-01-01T00:00:00.000Z"},
		{"toUTCString", `new Date(0).toUTCString()`, "Thu, 01 Jan 1970 00:00:00 GMT"},
		{"toGMTString alias", `Date.prototype.toGMTString === Date.prototype.toUTCString`, "true"},
		{"setUTCHours", `const d = new Date(0); d.setUTCHours(10, 30); d.toISOString()`, "1970-01-01T10:30:00.000Z"},
		{"setUTCDate overflow", `const d = new Date(0); d.setUTCDate(32); d.getUTCMonth()`, "1"},
		{"setter returns time", `new Date(0).setUTCMilliseconds(5)`, "5"},
		{"setTime", `const d = new Date(0); d.setTime(1000); d.getTime()`, "1000"},
		{"setFullYear from invalid", `const d = new Date(NaN); d.setUTCFullYear(2000); d.toISOString()`, "2000-01-01T00:00:00.000Z"},
		{"setMonth on invalid stays invalid", `const d = new Date(NaN); d.setUTCMonth(1)`, "NaN"},
	})
}

func TestDateConstruction(t *testing.T) {
	runCases(t, []scriptCase{
		{"from number", `new Date(1234).valueOf()`, "1234"},
		{"from string", `new Date("2000-01-01T00:00:00Z").getTime()`, "946684800000"},
		{"from date", `const a = new Date(5); const b = new Date(a); b.getTime() === 5 && a !== b`, "true"},
		{"time clip", `new Date(8.64e15 + 1).getTime()`, "NaN"},
		{"truncates", `new Date(1.9).getTime()`, "1"},
		{"invalid string", `String(new Date("garbage"))`, "Invalid Date"},
		{"call returns string", `typeof Date()`, "string"},
		{"parse", `Date.parse("1970-01-01T00:00:01.000Z")`, "1000"},
		{"parse rfc1123", `Date.parse("Thu, 01 Jan 1970 00:00:00 GMT")`, "0"},
		{"now is number", `typeof Date.now()`, "number"},
		{"local roundtrip", `const d = new Date(2020, 5, 15, 12); [d.getFullYear(), d.getMonth(), d.getDate(), d.getHours()].join()`, "2020,5,15,12"},
		{"local setters", `const d = new Date(2020, 0, 1); d.setMonth(6); d.setDate(4); d.getMonth() + "/" + d.getDate()`, "6/4"},
		{"getYear", `new Date(2000, 0).getYear()`, "100"},
		{"subclass", `class D extends Date {}; const d = new D(0); d instanceof D && d.getTime() === 0`, "true"},
	})
}

func TestDateConversions(t *testing.T) {
	runCases(t, []scriptCase{
		{"toJSON", `new Date(0).toJSON()`, "1970-01-01T00:00:00.000Z"},
		{"toJSON invalid", `new Date(NaN).toJSON()`, "null"},
		{"default hint is string", `typeof (new Date(0) + 1)`, "string"},
		{"number hint", `new Date(10) - new Date(4)`, "6"},
		{"toPrimitive number", `new Date(7)[Symbol.toPrimitive]("number")`, "7"},
		{"compare", `new Date(1) < new Date(2)`, "true"},
		{"tag", `Object.prototype.toString.call(new Date(0))`, "[object Date]"},
	})
	runThrowCases(t, []throwCase{
		{"toISOString invalid", `new Date(NaN).toISOString()`, "RangeError: Invalid time value"},
		{"receiver", `Date.prototype.getTime.call({})`, "TypeError: Date.prototype.valueOf called on incompatible receiver #<Object>"},
		{"bad hint", `new Date(0)[Symbol.toPrimitive]("bogus")`, `TypeError: Invalid hint: "bogus"`},
	})
}

func TestDateToStringUsesLocalZone(t *testing.T) {
	h := newHarness(t)
	got := h.str(`new Date(0).toString()`)
	want := time.UnixMilli(0).In(time.Local).Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")
	assert.Equal(t, want, got)

	_, off := time.UnixMilli(0).In(time.Local).Zone()
	assert.Equal(t, strconv.Itoa(-off/60), h.str(`new Date(0).getTimezoneOffset()`))
}
