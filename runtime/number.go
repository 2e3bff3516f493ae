package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// NumberToString implements Number::toString for radix 10: the shortest
// round-tripping digits, switching to exponent form outside [1e-7, 1e21).
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f < 0:
		return "-" + NumberToString(-f)
	}
	if f == math.Trunc(f) && f < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expPart)
	digits := strings.Replace(mant, ".", "", 1)
	k := len(digits)
	n := exp + 1
	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}
	sign := "+"
	if n-1 < 0 {
		sign = "-"
	}
	e := strconv.Itoa(abs(n - 1))
	if k == 1 {
		return digits + "e" + sign + e
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + e
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

const radixDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// NumberToStringRadix formats f in the given radix (2..36).
func NumberToStringRadix(f float64, radix int) string {
	if radix == 10 || math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return NumberToString(f)
	}
	neg := f < 0
	if neg {
		f = -f
	}
	intPart := math.Floor(f)
	frac := f - intPart

	var ip string
	if intPart < 1<<63 {
		ip = strconv.FormatInt(int64(intPart), radix)
	} else {
		bf := new(big.Float).SetFloat64(intPart)
		bi, _ := bf.Int(nil)
		ip = bi.Text(radix)
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(ip)
	if frac > 0 {
		b.WriteByte('.')
		// Enough digits to distinguish the fraction at double precision.
		delta := math.Max(math.Nextafter(f, math.Inf(1))-f, math.SmallestNonzeroFloat64) / 2
		for i := 0; i < 1100 && frac >= delta; i++ {
			frac *= float64(radix)
			delta *= float64(radix)
			d := int(frac)
			b.WriteByte(radixDigits[d])
			frac -= float64(d)
		}
	}
	return b.String()
}

// isJSWhitespace reports whether r is WhiteSpace or LineTerminator.
func isJSWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A || unicode.Is(unicode.Zs, r)
}

// TrimJSSpace removes leading and trailing WhiteSpace and LineTerminator code points.
func TrimJSSpace(s string) string {
	return strings.TrimFunc(s, isJSWhitespace)
}

// StringToNumber implements StringToNumber: the StringNumericLiteral grammar
// with NaN for anything that does not match.
func StringToNumber(s string) float64 {
	s = TrimJSSpace(s)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		radix := 0
		switch s[1] {
		case 'x', 'X':
			radix = 16
		case 'o', 'O':
			radix = 8
		case 'b', 'B':
			radix = 2
		}
		if radix != 0 {
			return parseIntDigits(s[2:], radix)
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if !isDecimalLiteral(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

func parseIntDigits(s string, radix int) float64 {
	if s == "" {
		return math.NaN()
	}
	n, ok := new(big.Int).SetString(s, radix)
	if !ok || strings.ContainsAny(s, "_+-") {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// isDecimalLiteral matches StrDecimalLiteral without the Infinity forms.
func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// StringToBigInt implements StringToBigInt. It reports false when s is not
// a valid StringIntegerLiteral.
func StringToBigInt(s string) (*big.Int, bool) {
	s = TrimJSSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	if strings.ContainsAny(s, "_") {
		return nil, false
	}
	if len(s) > 2 && s[0] == '0' {
		radix := 0
		switch s[1] {
		case 'x', 'X':
			radix = 16
		case 'o', 'O':
			radix = 8
		case 'b', 'B':
			radix = 2
		}
		if radix != 0 {
			if strings.ContainsAny(s[2:], "+-") {
				return nil, false
			}
			return new(big.Int).SetString(s[2:], radix)
		}
	}
	return new(big.Int).SetString(s, 10)
}

// CanonicalNumericIndexString returns the number s denotes when s is the
// canonical string form of that number (or "-0").
func CanonicalNumericIndexString(s string) (float64, bool) {
	if s == "-0" {
		return math.Copysign(0, -1), true
	}
	n := StringToNumber(s)
	if NumberToString(n) != s {
		return 0, false
	}
	return n, true
}
