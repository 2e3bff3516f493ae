package builtins

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/example/jscore/runtime"
)

func registerGlobalFunctions(a *runtime.Agent) {
	global := a.Global()
	in := a.Intrinsics()

	parseInt := setMethod(a, global, "parseInt", 2, globalParseInt)
	parseFloat := setMethod(a, global, "parseFloat", 1, globalParseFloat)
	if num, err := global.Get(a, runtime.StringKey("Number")); err == nil && num.IsObject() {
		runtime.DefineBuiltin(num.Object, runtime.StringKey("parseInt"), runtime.NewObject(parseInt))
		runtime.DefineBuiltin(num.Object, runtime.StringKey("parseFloat"), runtime.NewObject(parseFloat))
	}
	setMethod(a, global, "isNaN", 1, globalIsNaN)
	setMethod(a, global, "isFinite", 1, globalIsFinite)
	setMethod(a, global, "encodeURI", 1, uriEncoder(uriReserved+uriUnreservedMarks+"#"))
	setMethod(a, global, "encodeURIComponent", 1, uriEncoder(uriUnreservedMarks))
	setMethod(a, global, "decodeURI", 1, uriDecoder(uriReserved+"#"))
	setMethod(a, global, "decodeURIComponent", 1, uriDecoder(""))
	setMethod(a, global, "escape", 1, globalEscape)
	setMethod(a, global, "unescape", 1, globalUnescape)
	in.Eval = setMethod(a, global, "eval", 1, globalEval)

	runtime.DefineBuiltin(global, runtime.StringKey("globalThis"), runtime.NewObject(global))
	setConstant(global, "NaN", runtime.NaN)
	setConstant(global, "Infinity", runtime.PosInf)
	setConstant(global, "undefined", runtime.Undefined)
}

// globalEval is indirect eval: the source runs as a global script.
// Direct calls are recognised by the interpreter before reaching here.
func globalEval(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	src := argAt(args, 0)
	if !src.IsString() {
		return src, nil
	}
	return a.Executor().EvalScript(a, src.Str)
}

func globalParseInt(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	input, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	r, err := argAt(args, 1).ToInt32(a)
	if err != nil {
		return nil, err
	}
	s := strings.TrimLeftFunc(input, isJSSpace)
	sign := 1.0
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	radix := int(r)
	stripPrefix := true
	if radix != 0 {
		if radix < 2 || radix > 36 {
			return runtime.NaN, nil
		}
		stripPrefix = radix == 16
	} else {
		radix = 10
	}
	if stripPrefix && len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return runtime.NaN, nil
	}
	digits := s[:end]
	if radix == 10 {
		// Decimal strings round exactly.
		f, _ := strconv.ParseFloat(digits, 64)
		return runtime.NewNumber(sign * f), nil
	}
	n, _ := new(big.Int).SetString(digits, radix)
	f, _ := new(big.Float).SetInt(n).Float64()
	return runtime.NewNumber(sign * f), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 36
}

func globalParseFloat(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	input, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	s := strings.TrimLeftFunc(input, isJSSpace)
	prefix := decimalLiteralPrefix(s)
	if prefix == "" {
		return runtime.NaN, nil
	}
	switch strings.TrimLeft(prefix, "+-") {
	case "Infinity":
		if prefix[0] == '-' {
			return runtime.NegInf, nil
		}
		return runtime.PosInf, nil
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		// Out of range literals still carry the right infinity.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return runtime.NaN, nil
		}
	}
	return runtime.NewNumber(f), nil
}

// decimalLiteralPrefix returns the longest prefix of s that is a
// StrDecimalLiteral, or "".
func decimalLiteralPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return s[:i+len("Infinity")]
	}
	digits := func(j int) int {
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		return j
	}
	start := i
	i = digits(i)
	intDigits := i > start
	fracDigits := false
	if i < len(s) && s[i] == '.' {
		j := digits(i + 1)
		fracDigits = j > i+1
		if intDigits || fracDigits {
			i = j
		}
	}
	if !intDigits && !fracDigits {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if k := digits(j); k > j {
			i = k
		}
	}
	return s[:i]
}

func globalIsNaN(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	n, err := argAt(args, 0).ToNumber(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(math.IsNaN(n)), nil
}

func globalIsFinite(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	n, err := argAt(args, 0).ToNumber(a)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
}

const (
	uriReserved        = ";/?:@&=+$,"
	uriUnreservedMarks = "-_.!~*'()"
)

func isURIAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// uriEncoder percent-encodes the UTF-8 form of every code point outside
// the alphanumerics and extra.
func uriEncoder(extra string) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		s, err := argAt(args, 0).ToString(a)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		var buf [utf8.UTFMax]byte
		for _, r := range s {
			if isURIAlnum(r) || strings.ContainsRune(extra, r) {
				sb.WriteRune(r)
				continue
			}
			n := utf8.EncodeRune(buf[:], r)
			for _, b := range buf[:n] {
				fmt.Fprintf(&sb, "%%%02X", b)
			}
		}
		return runtime.NewString(sb.String()), nil
	}
}

// uriDecoder reverses percent-encoding, leaving escapes of characters in
// reserved untouched.
func uriDecoder(reserved string) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		s, err := argAt(args, 0).ToString(a)
		if err != nil {
			return nil, err
		}
		malformed := func() error { return a.Throw(runtime.ErrorURI, "URI malformed") }
		hexByte := func(i int) (byte, bool) {
			if i+3 > len(s) || s[i] != '%' {
				return 0, false
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			return byte(v), err == nil
		}
		var sb strings.Builder
		for i := 0; i < len(s); i++ {
			if s[i] != '%' {
				sb.WriteByte(s[i])
				continue
			}
			start := i
			b, ok := hexByte(i)
			if !ok {
				return nil, malformed()
			}
			i += 2
			if b < 0x80 {
				if strings.IndexByte(reserved, b) >= 0 {
					sb.WriteString(s[start : i+1])
				} else {
					sb.WriteByte(b)
				}
				continue
			}
			var n int
			switch {
			case b&0xE0 == 0xC0:
				n = 2
			case b&0xF0 == 0xE0:
				n = 3
			case b&0xF8 == 0xF0:
				n = 4
			default:
				return nil, malformed()
			}
			seq := []byte{b}
			for k := 1; k < n; k++ {
				c, ok := hexByte(i + 1)
				if !ok || c&0xC0 != 0x80 {
					return nil, malformed()
				}
				seq = append(seq, c)
				i += 3
			}
			r, size := utf8.DecodeRune(seq)
			if r == utf8.RuneError || size != n {
				return nil, malformed()
			}
			sb.WriteRune(r)
		}
		return runtime.NewString(sb.String()), nil
	}
}

func isEscapeSafe(u uint16) bool {
	if u < 0x80 && isURIAlnum(rune(u)) {
		return true
	}
	switch u {
	case '@', '*', '_', '+', '-', '.', '/':
		return true
	}
	return false
}

// globalEscape encodes UTF-16 code units as %XX or %uXXXX.
func globalEscape(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, u := range runtime.UTF16Units(s) {
		switch {
		case isEscapeSafe(u):
			sb.WriteByte(byte(u))
		case u <= 0xFF:
			fmt.Fprintf(&sb, "%%%02X", u)
		default:
			fmt.Fprintf(&sb, "%%u%04X", u)
		}
	}
	return runtime.NewString(sb.String()), nil
}

func globalUnescape(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	out := make([]uint16, 0, len(units))
	hexRun := func(i, n int) (uint16, bool) {
		if i+n > len(units) {
			return 0, false
		}
		var v uint16
		for _, u := range units[i : i+n] {
			if u >= 0x80 {
				return 0, false
			}
			d := digitValue(byte(u))
			if d >= 16 {
				return 0, false
			}
			v = v<<4 | uint16(d)
		}
		return v, true
	}
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u == '%' {
			if i+1 < len(units) && units[i+1] == 'u' {
				if v, ok := hexRun(i+2, 4); ok {
					out = append(out, v)
					i += 5
					continue
				}
			} else if v, ok := hexRun(i+1, 2); ok {
				out = append(out, v)
				i += 2
				continue
			}
		}
		out = append(out, u)
	}
	return runtime.NewString(runtime.StringFromUTF16(out)), nil
}
