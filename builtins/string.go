package builtins

import (
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/example/jscore/runtime"
)

func createStringConstructor(a *runtime.Agent) *runtime.Object {
	in := a.Intrinsics()
	proto := in.StringPrototype

	setMethod(a, proto, "charAt", 1, stringCharAt)
	setMethod(a, proto, "charCodeAt", 1, stringCharCodeAt)
	setMethod(a, proto, "codePointAt", 1, stringCodePointAt)
	setMethod(a, proto, "at", 1, stringAt)
	setMethod(a, proto, "indexOf", 1, stringIndexOf)
	setMethod(a, proto, "lastIndexOf", 1, stringLastIndexOf)
	setMethod(a, proto, "includes", 1, stringIncludes)
	setMethod(a, proto, "startsWith", 1, stringStartsWith)
	setMethod(a, proto, "endsWith", 1, stringEndsWith)
	setMethod(a, proto, "slice", 2, stringSlice)
	setMethod(a, proto, "substring", 2, stringSubstring)
	setMethod(a, proto, "substr", 2, stringSubstr)
	setMethod(a, proto, "toUpperCase", 0, stringCaseMapper(cases.Upper(language.Und)))
	setMethod(a, proto, "toLowerCase", 0, stringCaseMapper(cases.Lower(language.Und)))
	setMethod(a, proto, "toLocaleUpperCase", 0, stringCaseMapper(cases.Upper(language.Und)))
	setMethod(a, proto, "toLocaleLowerCase", 0, stringCaseMapper(cases.Lower(language.Und)))
	setMethod(a, proto, "localeCompare", 1, stringLocaleCompare)
	setMethod(a, proto, "trim", 0, stringTrimmer(true, true))
	setMethod(a, proto, "trimStart", 0, stringTrimmer(true, false))
	setMethod(a, proto, "trimEnd", 0, stringTrimmer(false, true))
	setMethod(a, proto, "repeat", 1, stringRepeat)
	setMethod(a, proto, "padStart", 1, stringPad(true))
	setMethod(a, proto, "padEnd", 1, stringPad(false))
	setMethod(a, proto, "split", 2, stringSplit)
	setMethod(a, proto, "replace", 2, stringReplace(false))
	setMethod(a, proto, "replaceAll", 2, stringReplace(true))
	setMethod(a, proto, "match", 1, stringRegExpMethod(runtime.SymMatch, ""))
	setMethod(a, proto, "matchAll", 1, stringMatchAll)
	setMethod(a, proto, "search", 1, stringRegExpMethod(runtime.SymSearch, ""))
	setMethod(a, proto, "concat", 1, stringConcat)
	setMethod(a, proto, "normalize", 0, stringNormalize)
	setMethod(a, proto, "isWellFormed", 0, stringIsWellFormed)
	setMethod(a, proto, "toString", 0, stringValueOf)
	setMethod(a, proto, "valueOf", 0, stringValueOf)
	setSymbolMethod(a, proto, runtime.SymIterator, 0, stringIterator)

	setMethod(a, proto, "anchor", 1, makeHTMLWrapper("a", "name"))
	setMethod(a, proto, "bold", 0, makeHTMLWrapper("b", ""))
	setMethod(a, proto, "italics", 0, makeHTMLWrapper("i", ""))
	setMethod(a, proto, "link", 1, makeHTMLWrapper("a", "href"))
	setMethod(a, proto, "sub", 0, makeHTMLWrapper("sub", ""))
	setMethod(a, proto, "sup", 0, makeHTMLWrapper("sup", ""))

	setMethod(a, in.StringIteratorPrototype, "next", 0, stringIteratorNext)
	setToStringTag(in.StringIteratorPrototype, "String Iterator")

	ctor := newConstructor(a, "String", 1, proto, stringConstructorCall)
	setMethod(a, ctor, "fromCharCode", 1, stringFromCharCode)
	setMethod(a, ctor, "fromCodePoint", 1, stringFromCodePoint)
	setMethod(a, ctor, "raw", 1, stringRaw)
	return ctor
}

func stringConstructorCall(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s := ""
	if len(args) > 0 {
		if args[0].IsSymbol() && a.NewTarget() == nil {
			return runtime.NewString(args[0].Symbol.String()), nil
		}
		var err error
		if s, err = args[0].ToString(a); err != nil {
			return nil, err
		}
	}
	nt := a.NewTarget()
	if nt == nil {
		return runtime.NewString(s), nil
	}
	proto, err := runtime.GetPrototypeFromConstructor(a, nt, a.Intrinsics().StringPrototype)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(a.NewStringObject(s, proto)), nil
}

// thisString implements the RequireObjectCoercible + ToString prologue
// shared by the String.prototype methods.
func thisString(a *runtime.Agent, this *runtime.Value, method string) (string, error) {
	if this.IsNullish() {
		return "", a.ThrowTypeError("String.prototype.%s called on null or undefined", method)
	}
	return this.ToString(a)
}

func stringValueOf(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	if this.IsString() {
		return this, nil
	}
	if o := this.AsObject(); o != nil && o.Kind() == runtime.KindString {
		return o.Data().(*runtime.PrimitiveData).Value, nil
	}
	return nil, a.ThrowTypeError("String.prototype.valueOf requires that 'this' be a String")
}

func stringCharAt(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "charAt")
	if err != nil {
		return nil, err
	}
	pos, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if pos < 0 || pos > math.MaxInt32 {
		return runtime.EmptyString, nil
	}
	ch, _ := runtime.CharAt(s, int(pos))
	return runtime.NewString(ch), nil
}

func stringCharCodeAt(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "charCodeAt")
	if err != nil {
		return nil, err
	}
	pos, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if pos < 0 || pos > math.MaxInt32 {
		return runtime.NaN, nil
	}
	u, ok := runtime.CodeUnitAt(s, int(pos))
	if !ok {
		return runtime.NaN, nil
	}
	return runtime.NewInt(int64(u)), nil
}

func stringCodePointAt(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "codePointAt")
	if err != nil {
		return nil, err
	}
	pos, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	if pos < 0 || pos >= float64(len(units)) {
		return runtime.Undefined, nil
	}
	i := int(pos)
	cp, _ := codePointAt(units, i)
	return runtime.NewInt(int64(cp)), nil
}

// codePointAt decodes the code point starting at units[i] and returns it
// with its length in code units.
func codePointAt(units []uint16, i int) (rune, int) {
	first := units[i]
	if utf16.IsSurrogate(rune(first)) && first < 0xDC00 && i+1 < len(units) {
		if r := utf16.DecodeRune(rune(first), rune(units[i+1])); r != unicode.ReplacementChar {
			return r, 2
		}
	}
	return rune(first), 1
}

func stringAt(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "at")
	if err != nil {
		return nil, err
	}
	rel, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	n := float64(runtime.UTF16Length(s))
	if rel < 0 {
		rel += n
	}
	if rel < 0 || rel >= n {
		return runtime.Undefined, nil
	}
	ch, _ := runtime.CharAt(s, int(rel))
	return runtime.NewString(ch), nil
}

// indexUnits finds needle in hay at or after from, or -1.
func indexUnits(hay, needle []uint16, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func stringIndexOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "indexOf")
	if err != nil {
		return nil, err
	}
	search, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	pos, err := argAt(args, 1).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	start := int(math.Min(math.Max(pos, 0), float64(len(units))))
	return runtime.NewInt(int64(indexUnits(units, runtime.UTF16Units(search), start))), nil
}

func stringLastIndexOf(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "lastIndexOf")
	if err != nil {
		return nil, err
	}
	search, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	n, err := argAt(args, 1).ToNumber(a)
	if err != nil {
		return nil, err
	}
	units, needle := runtime.UTF16Units(s), runtime.UTF16Units(search)
	pos := math.Inf(1)
	if !math.IsNaN(n) {
		pos = runtime.IntegerOrInfinity(n)
	}
	start := int(math.Min(math.Max(pos, 0), float64(len(units)-len(needle))))
	for i := start; i >= 0; i-- {
		if slices.Equal(units[i:i+len(needle)], needle) {
			return runtime.NewInt(int64(i)), nil
		}
	}
	return runtime.NewInt(-1), nil
}

// isRegExp implements IsRegExp: @@match wins over the internal slot.
func isRegExp(a *runtime.Agent, v *runtime.Value) (bool, error) {
	if !v.IsObject() {
		return false, nil
	}
	m, err := v.Object.Get(a, runtime.SymbolKey(runtime.SymMatch))
	if err != nil {
		return false, err
	}
	if !m.IsUndefined() {
		return m.ToBoolean(), nil
	}
	return v.Object.Kind() == runtime.KindRegExp, nil
}

// searchArg reads the search string of includes/startsWith/endsWith.
func searchArg(a *runtime.Agent, v *runtime.Value, method string) ([]uint16, error) {
	re, err := isRegExp(a, v)
	if err != nil {
		return nil, err
	}
	if re {
		return nil, a.ThrowTypeError("First argument to String.prototype.%s must not be a regular expression", method)
	}
	s, err := v.ToString(a)
	if err != nil {
		return nil, err
	}
	return runtime.UTF16Units(s), nil
}

func stringIncludes(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "includes")
	if err != nil {
		return nil, err
	}
	needle, err := searchArg(a, argAt(args, 0), "includes")
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	start, err := relativeStart(a, argAt(args, 1), len(units))
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(indexUnits(units, needle, start) >= 0), nil
}

// relativeStart clamps a non-negative position argument to [0, n].
func relativeStart(a *runtime.Agent, v *runtime.Value, n int) (int, error) {
	pos, err := v.ToIntegerOrInfinity(a)
	if err != nil {
		return 0, err
	}
	return int(math.Min(math.Max(pos, 0), float64(n))), nil
}

func stringStartsWith(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "startsWith")
	if err != nil {
		return nil, err
	}
	needle, err := searchArg(a, argAt(args, 0), "startsWith")
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	start, err := relativeStart(a, argAt(args, 1), len(units))
	if err != nil {
		return nil, err
	}
	if start+len(needle) > len(units) {
		return runtime.False, nil
	}
	return runtime.NewBool(slices.Equal(units[start:start+len(needle)], needle)), nil
}

func stringEndsWith(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "endsWith")
	if err != nil {
		return nil, err
	}
	needle, err := searchArg(a, argAt(args, 0), "endsWith")
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	end := len(units)
	if pos := argAt(args, 1); !pos.IsUndefined() {
		if end, err = relativeStart(a, pos, len(units)); err != nil {
			return nil, err
		}
	}
	start := end - len(needle)
	if start < 0 {
		return runtime.False, nil
	}
	return runtime.NewBool(slices.Equal(units[start:end], needle)), nil
}

func stringSlice(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "slice")
	if err != nil {
		return nil, err
	}
	n := int64(runtime.UTF16Length(s))
	start, err := relativeIndex(a, argAt(args, 0), n, 0)
	if err != nil {
		return nil, err
	}
	end, err := relativeIndex(a, argAt(args, 1), n, n)
	if err != nil {
		return nil, err
	}
	return runtime.NewString(runtime.SubstringUTF16(s, int(start), int(end))), nil
}

func stringSubstring(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "substring")
	if err != nil {
		return nil, err
	}
	n := runtime.UTF16Length(s)
	start, err := relativeStart(a, argAt(args, 0), n)
	if err != nil {
		return nil, err
	}
	end := n
	if e := argAt(args, 1); !e.IsUndefined() {
		if end, err = relativeStart(a, e, n); err != nil {
			return nil, err
		}
	}
	if start > end {
		start, end = end, start
	}
	return runtime.NewString(runtime.SubstringUTF16(s, start, end)), nil
}

func stringSubstr(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "substr")
	if err != nil {
		return nil, err
	}
	n := int64(runtime.UTF16Length(s))
	start, err := relativeIndex(a, argAt(args, 0), n, 0)
	if err != nil {
		return nil, err
	}
	length := float64(n - start)
	if l := argAt(args, 1); !l.IsUndefined() {
		ll, err := l.ToIntegerOrInfinity(a)
		if err != nil {
			return nil, err
		}
		length = math.Min(math.Max(ll, 0), length)
	}
	if length <= 0 {
		return runtime.EmptyString, nil
	}
	return runtime.NewString(runtime.SubstringUTF16(s, int(start), int(start)+int(length))), nil
}

func stringCaseMapper(c cases.Caser) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		s, err := thisString(a, this, "toUpperCase")
		if err != nil {
			return nil, err
		}
		return runtime.NewString(c.String(s)), nil
	}
}

func stringLocaleCompare(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "localeCompare")
	if err != nil {
		return nil, err
	}
	that, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	c := collate.New(language.Und)
	return runtime.NewInt(int64(c.CompareString(s, that))), nil
}

// isJSSpace reports whether r is WhiteSpace or LineTerminator.
func isJSSpace(r rune) bool {
	return r == 0xFEFF || (r != 0x85 && unicode.IsSpace(r))
}

func stringTrimmer(start, end bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		s, err := thisString(a, this, "trim")
		if err != nil {
			return nil, err
		}
		if start {
			s = strings.TrimLeftFunc(s, isJSSpace)
		}
		if end {
			s = strings.TrimRightFunc(s, isJSSpace)
		}
		return runtime.NewString(s), nil
	}
}

func stringRepeat(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "repeat")
	if err != nil {
		return nil, err
	}
	n, err := argAt(args, 0).ToIntegerOrInfinity(a)
	if err != nil {
		return nil, err
	}
	if n < 0 || math.IsInf(n, 1) {
		return nil, a.ThrowRangeError("Invalid count value: %s", runtime.NumberToString(n))
	}
	if s == "" || n == 0 {
		return runtime.EmptyString, nil
	}
	if float64(len(s))*n > float64(maxStringLength) {
		return nil, a.ThrowRangeError("Invalid string length")
	}
	return runtime.NewString(strings.Repeat(s, int(n))), nil
}

const maxStringLength = 1 << 29

func stringPad(atStart bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		s, err := thisString(a, this, "padStart")
		if err != nil {
			return nil, err
		}
		maxLen, err := argAt(args, 0).ToLength(a)
		if err != nil {
			return nil, err
		}
		units := runtime.UTF16Units(s)
		if maxLen <= int64(len(units)) {
			return runtime.NewString(s), nil
		}
		if maxLen > maxStringLength {
			return nil, a.ThrowRangeError("Invalid string length")
		}
		filler := " "
		if f := argAt(args, 1); !f.IsUndefined() {
			if filler, err = f.ToString(a); err != nil {
				return nil, err
			}
		}
		if filler == "" {
			return runtime.NewString(s), nil
		}
		fill := runtime.UTF16Units(filler)
		need := int(maxLen) - len(units)
		pad := make([]uint16, 0, need)
		for len(pad) < need {
			pad = append(pad, fill[:min(len(fill), need-len(pad))]...)
		}
		if atStart {
			return runtime.NewString(runtime.StringFromUTF16(pad) + s), nil
		}
		return runtime.NewString(s + runtime.StringFromUTF16(pad)), nil
	}
}

func stringSplit(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if err := runtime.RequireObjectCoercible(a, this); err != nil {
		return nil, err
	}
	sep, limit := argAt(args, 0), argAt(args, 1)
	if !sep.IsNullish() {
		splitter, err := runtime.GetMethod(a, sep, runtime.SymbolKey(runtime.SymSplit))
		if err != nil {
			return nil, err
		}
		if splitter != nil {
			return a.Call(splitter, sep, []*runtime.Value{this, limit})
		}
	}
	s, err := this.ToString(a)
	if err != nil {
		return nil, err
	}
	lim := uint32(math.MaxUint32)
	if !limit.IsUndefined() {
		if lim, err = limit.ToUint32(a); err != nil {
			return nil, err
		}
	}
	r, err := sep.ToString(a)
	if err != nil {
		return nil, err
	}
	if lim == 0 {
		return a.NewArrayValue(nil), nil
	}
	if sep.IsUndefined() {
		return a.NewArrayValue([]*runtime.Value{runtime.NewString(s)}), nil
	}
	units, sepUnits := runtime.UTF16Units(s), runtime.UTF16Units(r)
	var out []*runtime.Value
	if len(sepUnits) == 0 {
		for i := 0; i < len(units) && uint32(len(out)) < lim; i++ {
			out = append(out, runtime.NewString(runtime.StringFromUTF16(units[i:i+1])))
		}
		return a.NewArrayValue(out), nil
	}
	p := 0
	for {
		q := indexUnits(units, sepUnits, p)
		if q < 0 {
			break
		}
		out = append(out, runtime.NewString(runtime.StringFromUTF16(units[p:q])))
		if uint32(len(out)) == lim {
			return a.NewArrayValue(out), nil
		}
		p = q + len(sepUnits)
	}
	out = append(out, runtime.NewString(runtime.StringFromUTF16(units[p:])))
	return a.NewArrayValue(out), nil
}

// getSubstitution expands the $-patterns of a replacement template.
// position and the returned string use UTF-16 code units.
func getSubstitution(a *runtime.Agent, matched []uint16, str []uint16, position int, captures []*runtime.Value, groups *runtime.Value, replacement string) (string, error) {
	tmpl := runtime.UTF16Units(replacement)
	var out []uint16
	tailPos := min(position+len(matched), len(str))
	m := len(captures)
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 >= len(tmpl) {
			out = append(out, c)
			continue
		}
		next := tmpl[i+1]
		switch {
		case next == '$':
			out = append(out, '$')
			i++
		case next == '&':
			out = append(out, matched...)
			i++
		case next == '`':
			out = append(out, str[:position]...)
			i++
		case next == '\'':
			out = append(out, str[tailPos:]...)
			i++
		case next >= '0' && next <= '9':
			digits := 1
			idx := int(next - '0')
			if i+2 < len(tmpl) && tmpl[i+2] >= '0' && tmpl[i+2] <= '9' {
				if two := idx*10 + int(tmpl[i+2]-'0'); two >= 1 && two <= m {
					idx, digits = two, 2
				}
			}
			if idx < 1 || idx > m {
				out = append(out, c)
				continue
			}
			if cap := captures[idx-1]; !cap.IsUndefined() {
				s, err := cap.ToString(a)
				if err != nil {
					return "", err
				}
				out = append(out, runtime.UTF16Units(s)...)
			}
			i += digits
		case next == '<':
			if groups == nil || groups.IsUndefined() {
				out = append(out, c)
				continue
			}
			end := slices.Index(tmpl[i+2:], '>')
			if end < 0 {
				out = append(out, c)
				continue
			}
			name := runtime.StringFromUTF16(tmpl[i+2 : i+2+end])
			v, err := runtime.GetV(a, groups, runtime.StringKey(name))
			if err != nil {
				return "", err
			}
			if !v.IsUndefined() {
				s, err := v.ToString(a)
				if err != nil {
					return "", err
				}
				out = append(out, runtime.UTF16Units(s)...)
			}
			i += end + 2
		default:
			out = append(out, c)
		}
	}
	return runtime.StringFromUTF16(out), nil
}

func stringReplace(all bool) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		if err := runtime.RequireObjectCoercible(a, this); err != nil {
			return nil, err
		}
		search, replaceValue := argAt(args, 0), argAt(args, 1)
		if !search.IsNullish() {
			if all {
				re, err := isRegExp(a, search)
				if err != nil {
					return nil, err
				}
				if re {
					flags, err := search.Object.Get(a, runtime.StringKey("flags"))
					if err != nil {
						return nil, err
					}
					if err := runtime.RequireObjectCoercible(a, flags); err != nil {
						return nil, err
					}
					fs, err := flags.ToString(a)
					if err != nil {
						return nil, err
					}
					if !strings.Contains(fs, "g") {
						return nil, a.ThrowTypeError("replaceAll must be called with a global RegExp")
					}
				}
			}
			replacer, err := runtime.GetMethod(a, search, runtime.SymbolKey(runtime.SymReplace))
			if err != nil {
				return nil, err
			}
			if replacer != nil {
				return a.Call(replacer, search, []*runtime.Value{this, replaceValue})
			}
		}
		s, err := this.ToString(a)
		if err != nil {
			return nil, err
		}
		searchStr, err := search.ToString(a)
		if err != nil {
			return nil, err
		}
		functional := replaceValue.IsCallable()
		replaceStr := ""
		if !functional {
			if replaceStr, err = replaceValue.ToString(a); err != nil {
				return nil, err
			}
		}
		units, needle := runtime.UTF16Units(s), runtime.UTF16Units(searchStr)
		advance := max(len(needle), 1)
		var positions []int
		for p := indexUnits(units, needle, 0); p >= 0; {
			positions = append(positions, p)
			if !all {
				break
			}
			p = indexUnits(units, needle, p+advance)
		}
		if len(positions) == 0 {
			return runtime.NewString(s), nil
		}
		var out []uint16
		end := 0
		for _, p := range positions {
			out = append(out, units[end:p]...)
			var repl string
			if functional {
				r, err := a.Call(replaceValue, runtime.Undefined, []*runtime.Value{runtime.NewString(searchStr), runtime.NewInt(int64(p)), runtime.NewString(s)})
				if err != nil {
					return nil, err
				}
				if repl, err = r.ToString(a); err != nil {
					return nil, err
				}
			} else if repl, err = getSubstitution(a, needle, units, p, nil, nil, replaceStr); err != nil {
				return nil, err
			}
			out = append(out, runtime.UTF16Units(repl)...)
			end = p + len(needle)
		}
		out = append(out, units[end:]...)
		return runtime.NewString(runtime.StringFromUTF16(out)), nil
	}
}

// stringRegExpMethod delegates match and search to the argument's symbol
// method, wrapping non-regexps in a new RegExp first.
func stringRegExpMethod(sym *runtime.Symbol, flags string) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		if err := runtime.RequireObjectCoercible(a, this); err != nil {
			return nil, err
		}
		re := argAt(args, 0)
		if !re.IsNullish() {
			m, err := runtime.GetMethod(a, re, runtime.SymbolKey(sym))
			if err != nil {
				return nil, err
			}
			if m != nil {
				return a.Call(m, re, []*runtime.Value{this})
			}
		}
		s, err := this.ToString(a)
		if err != nil {
			return nil, err
		}
		pattern := re
		if re.IsUndefined() {
			pattern = runtime.EmptyString
		}
		rx, err := a.Construct(runtime.NewObject(a.Intrinsics().RegExp), []*runtime.Value{pattern, runtime.NewString(flags)}, nil)
		if err != nil {
			return nil, err
		}
		return runtime.Invoke(a, runtime.NewObject(rx), runtime.SymbolKey(sym), []*runtime.Value{runtime.NewString(s)})
	}
}

func stringMatchAll(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	re := argAt(args, 0)
	if !re.IsNullish() {
		isRe, err := isRegExp(a, re)
		if err != nil {
			return nil, err
		}
		if isRe {
			flags, err := re.Object.Get(a, runtime.StringKey("flags"))
			if err != nil {
				return nil, err
			}
			fs, err := flags.ToString(a)
			if err != nil {
				return nil, err
			}
			if !strings.Contains(fs, "g") {
				return nil, a.ThrowTypeError("String.prototype.matchAll called with a non-global RegExp argument")
			}
		}
	}
	return stringRegExpMethod(runtime.SymMatchAll, "g")(a, this, args)
}

func stringConcat(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "concat")
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(s)
	for _, arg := range args {
		part, err := arg.ToString(a)
		if err != nil {
			return nil, err
		}
		sb.WriteString(part)
	}
	return runtime.NewString(sb.String()), nil
}

var normalForms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

func stringNormalize(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "normalize")
	if err != nil {
		return nil, err
	}
	name := "NFC"
	if f := argAt(args, 0); !f.IsUndefined() {
		if name, err = f.ToString(a); err != nil {
			return nil, err
		}
	}
	form, ok := normalForms[name]
	if !ok {
		return nil, a.ThrowRangeError("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
	}
	return runtime.NewString(form.String(s)), nil
}

func stringIsWellFormed(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "isWellFormed")
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(!strings.ContainsRune(s, unicode.ReplacementChar)), nil
}

func makeHTMLWrapper(tag, attr string) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		s, err := thisString(a, this, tag)
		if err != nil {
			return nil, err
		}
		open := "<" + tag
		if attr != "" {
			v, err := argAt(args, 0).ToString(a)
			if err != nil {
				return nil, err
			}
			open += " " + attr + `="` + strings.ReplaceAll(v, `"`, "&quot;") + `"`
		}
		return runtime.NewString(open + ">" + s + "</" + tag + ">"), nil
	}
}

func stringFromCharCode(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	units := make([]uint16, len(args))
	for i, arg := range args {
		u, err := arg.ToUint16(a)
		if err != nil {
			return nil, err
		}
		units[i] = u
	}
	return runtime.NewString(runtime.StringFromUTF16(units)), nil
}

func stringFromCodePoint(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	var sb strings.Builder
	for _, arg := range args {
		n, err := arg.ToNumber(a)
		if err != nil {
			return nil, err
		}
		if n != math.Trunc(n) || n < 0 || n > unicode.MaxRune {
			return nil, a.ThrowRangeError("Invalid code point %s", runtime.NumberToString(n))
		}
		sb.WriteRune(rune(n))
	}
	return runtime.NewString(sb.String()), nil
}

func stringRaw(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	cooked, err := argAt(args, 0).ToObject(a)
	if err != nil {
		return nil, err
	}
	rawVal, err := cooked.Get(a, runtime.StringKey("raw"))
	if err != nil {
		return nil, err
	}
	raw, err := rawVal.ToObject(a)
	if err != nil {
		return nil, err
	}
	n, err := runtime.LengthOfArrayLike(a, raw)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i := int64(0); i < n; i++ {
		seg, err := raw.Get(a, runtime.IntKey(i))
		if err != nil {
			return nil, err
		}
		s, err := seg.ToString(a)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
		if i+1 < n && int(i)+1 < len(args) {
			sub, err := args[i+1].ToString(a)
			if err != nil {
				return nil, err
			}
			sb.WriteString(sub)
		}
	}
	return runtime.NewString(sb.String()), nil
}

type stringIteratorState struct {
	units []uint16
	pos   int
}

func stringIterator(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	s, err := thisString(a, this, "[Symbol.iterator]")
	if err != nil {
		return nil, err
	}
	it := runtime.NewHostObject(a.Intrinsics().StringIteratorPrototype, "String Iterator", &stringIteratorState{units: runtime.UTF16Units(s)})
	return runtime.NewObject(it), nil
}

func stringIteratorNext(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	var st *stringIteratorState
	if o := this.AsObject(); o != nil {
		st, _ = runtime.HostValue[*stringIteratorState](o)
	}
	if st == nil {
		return nil, a.ThrowTypeError("next method called on incompatible receiver %s", describe(this))
	}
	if st.pos >= len(st.units) {
		return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
	}
	_, n := codePointAt(st.units, st.pos)
	v := runtime.StringFromUTF16(st.units[st.pos : st.pos+n])
	st.pos += n
	return runtime.CreateIterResultObject(a, runtime.NewString(v), false), nil
}
