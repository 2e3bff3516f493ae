package builtins

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatePattern(t *testing.T) {
	tests := []struct {
		src       string
		dotAll    bool
		multiline bool
		want      string
		names     []string
	}{
		{src: `a.b`, want: `a[^\n\r\u2028\u2029]b`, names: []string{""}},
		{src: `a.b`, dotAll: true, want: `a[\s\S]b`, names: []string{""}},
		{src: `x$`, want: `x(?![\s\S])`, names: []string{""}},
		{src: `x$`, multiline: true, want: `x(?=[\n\r\u2028\u2029]|(?![\s\S]))`, names: []string{""}},
		{src: `[.$]`, want: `[.$]`, names: []string{""}},
		{src: `\.\$`, want: `\.\$`, names: []string{""}},
		{src: `(a)(?<y>b)(c)`, want: `(a)(b)(c)`, names: []string{"", "", "y", ""}},
		{src: `(?<q>')\k<q>`, want: `(')(?:\1)`, names: []string{"", "q"}},
		{src: `(?:a)(?=b)(?<!c)`, want: `(?:a)(?=b)(?<!c)`, names: []string{""}},
		{src: `é.`, want: `é[^\n\r\u2028\u2029]`, names: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, names, err := translatePattern(tt.src, tt.dotAll, tt.multiline)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if diff := cmp.Diff(tt.names, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTranslatePatternErrors(t *testing.T) {
	for _, src := range []string{`(?<a>x)(?<a>y)`, `[abc`, `abc\`, `(?<>x)`} {
		_, _, err := translatePattern(src, false, false)
		assert.Error(t, err, src)
	}
}

func TestDecimalLiteralPrefix(t *testing.T) {
	tests := map[string]string{
		"3.14abc":   "3.14",
		"-.5e3x":    "-.5e3",
		"1e":        "1",
		"1e+":       "1",
		"Infinityx": "Infinity",
		"-Infinity": "-Infinity",
		".":         "",
		"abc":       "",
		"5.":        "5.",
	}
	for in, want := range tests {
		assert.Equal(t, want, decimalLiteralPrefix(in), in)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1970-01-01T00:00:00.000Z", 0},
		{"1970-01-01", 0},
		{"1970", 0},
		{"2000-01-01T00:00:00Z", 946684800000},
		{"2000-01-01T01:00:00+01:00", 946684800000},
		{"Sat, 01 Jan 2000 00:00:00 GMT", 946684800000},
		{"+002000-01-01T00:00:00.000Z", 946684800000},
		{"1970-01-01T00:00:00.250Z", 250},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDate(tt.in), tt.in)
	}
	for _, bad := range []string{"", "not a date", "-000000-01-01T00:00:00Z", "2000-13-01"} {
		assert.True(t, math.IsNaN(parseDate(bad)), bad)
	}
}

func TestDateToISO(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00.000Z", dateToISO(0))
	assert.Equal(t, "1969-12-31T23:59:59.999Z", dateToISO(-1))
	assert.Equal(t, "+275760-09-13T00:00:00.000Z", dateToISO(8.64e15))
	assert.Equal(t, "-000001-01-01T00:00:00.000Z", dateToISO(-62198755200000))
	assert.Equal(t, "Invalid Date", dateToISO(math.NaN()))
}

func TestMakeDay(t *testing.T) {
	assert.Equal(t, float64(0), makeDay(1970, 0, 1))
	assert.Equal(t, float64(31), makeDay(1970, 1, 1))
	assert.Equal(t, float64(365), makeDay(1970, 12, 1), "month overflow rolls into the next year")
	assert.Equal(t, float64(-1), makeDay(1970, 0, 0))
	assert.True(t, math.IsNaN(makeDay(math.NaN(), 0, 1)))
	assert.True(t, math.IsNaN(timeClip(8.64e15+1)))
}
