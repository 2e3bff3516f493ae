package builtins

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/example/jscore/runtime"
)

// regexpData is the payload of RegExp instances. Group names are indexed
// by capture number; unnamed groups hold "".
type regexpData struct {
	source string
	flags  string
	re     *regexp2.Regexp
	names  []string
}

func (*regexpData) Kind() runtime.ObjectKind { return runtime.KindRegExp }

func (d *regexpData) has(flag byte) bool { return strings.IndexByte(d.flags, flag) >= 0 }

func (d *regexpData) hasNames() bool {
	for _, n := range d.names {
		if n != "" {
			return true
		}
	}
	return false
}

const regexpFlagOrder = "dgimsuvy"

func createRegExpConstructor(a *runtime.Agent) *runtime.Object {
	in := a.Intrinsics()
	proto := runtime.NewOrdinaryObject(in.ObjectPrototype)

	var ctor *runtime.Object
	ctor = newConstructor(a, "RegExp", 2, proto, func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		return regexpConstruct(a, ctor, proto, args)
	})
	setSpecies(a, ctor)

	setMethod(a, proto, "exec", 1, regexpExecMethod)
	setMethod(a, proto, "test", 1, regexpTest)
	setMethod(a, proto, "toString", 0, regexpToString)
	setMethod(a, proto, "compile", 2, regexpCompile)

	setGetter(a, proto, runtime.StringKey("flags"), regexpFlagsGetter)
	setGetter(a, proto, runtime.StringKey("source"), regexpSourceGetter(proto))
	for _, f := range []struct {
		name string
		flag byte
	}{
		{"hasIndices", 'd'},
		{"global", 'g'},
		{"ignoreCase", 'i'},
		{"multiline", 'm'},
		{"dotAll", 's'},
		{"unicode", 'u'},
		{"unicodeSets", 'v'},
		{"sticky", 'y'},
	} {
		setGetter(a, proto, runtime.StringKey(f.name), regexpFlagGetter(proto, f.name, f.flag))
	}

	setSymbolMethod(a, proto, runtime.SymMatch, 1, regexpSymbolMatch)
	setSymbolMethod(a, proto, runtime.SymMatchAll, 1, regexpSymbolMatchAll)
	setSymbolMethod(a, proto, runtime.SymReplace, 2, regexpSymbolReplace)
	setSymbolMethod(a, proto, runtime.SymSearch, 1, regexpSymbolSearch)
	setSymbolMethod(a, proto, runtime.SymSplit, 2, regexpSymbolSplit)

	setMethod(a, in.RegExpStringIteratorPrototype, "next", 0, regexpStringIteratorNext)
	setToStringTag(in.RegExpStringIteratorPrototype, "RegExp String Iterator")
	return ctor
}

func regexpConstruct(a *runtime.Agent, ctor, proto *runtime.Object, args []*runtime.Value) (*runtime.Value, error) {
	pattern, flags := argAt(args, 0), argAt(args, 1)
	patternIsRegExp, err := isRegExp(a, pattern)
	if err != nil {
		return nil, err
	}
	newTarget := a.NewTarget()
	if newTarget == nil {
		newTarget = ctor
		if patternIsRegExp && flags.IsUndefined() {
			pc, err := pattern.Object.Get(a, runtime.StringKey("constructor"))
			if err != nil {
				return nil, err
			}
			if pc.IsObject() && pc.Object == newTarget {
				return pattern, nil
			}
		}
	}

	p, f := pattern, flags
	if rd, ok := regexpDataOf(pattern); ok {
		p = runtime.NewString(rd.source)
		if flags.IsUndefined() {
			f = runtime.NewString(rd.flags)
		}
	} else if patternIsRegExp {
		if p, err = pattern.Object.Get(a, runtime.StringKey("source")); err != nil {
			return nil, err
		}
		if flags.IsUndefined() {
			if f, err = pattern.Object.Get(a, runtime.StringKey("flags")); err != nil {
				return nil, err
			}
		}
	}

	objProto, err := runtime.GetPrototypeFromConstructor(a, newTarget, proto)
	if err != nil {
		return nil, err
	}
	rd, err := newRegExpData(a, p, f)
	if err != nil {
		return nil, err
	}
	obj := runtime.NewObjectWithData(objProto, rd)
	runtime.DefineRaw(obj, runtime.StringKey("lastIndex"), runtime.NewInt(0), runtime.AttrWritable)
	return runtime.NewObject(obj), nil
}

// newRegExpData coerces pattern and flags and compiles them.
func newRegExpData(a *runtime.Agent, pattern, flags *runtime.Value) (*regexpData, error) {
	src := ""
	if !pattern.IsUndefined() {
		s, err := pattern.ToString(a)
		if err != nil {
			return nil, err
		}
		src = s
	}
	fl := ""
	if !flags.IsUndefined() {
		s, err := flags.ToString(a)
		if err != nil {
			return nil, err
		}
		fl = s
	}
	return compileRegExp(a, src, fl)
}

func compileRegExp(a *runtime.Agent, source, flags string) (*regexpData, error) {
	for i := 0; i < len(flags); i++ {
		if !strings.ContainsRune(regexpFlagOrder, rune(flags[i])) || strings.IndexByte(flags[i+1:], flags[i]) >= 0 {
			return nil, a.ThrowSyntaxError("Invalid flags supplied to RegExp constructor '%s'", flags)
		}
	}
	rd := &regexpData{source: source, flags: flags}
	translated, names, err := translatePattern(source, rd.has('s'), rd.has('m'))
	if err != nil {
		return nil, a.ThrowSyntaxError("Invalid regular expression: /%s/%s: %s", source, flags, err.Error())
	}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if rd.has('i') {
		opts |= regexp2.IgnoreCase
	}
	if rd.has('m') {
		opts |= regexp2.Multiline
	}
	if rd.has('u') || rd.has('v') {
		opts |= regexp2.Unicode
	}
	re, err := regexp2.Compile(translated, opts)
	if err != nil {
		return nil, a.ThrowSyntaxError("Invalid regular expression: /%s/%s: %s", source, flags, err.Error())
	}
	rd.re = re
	rd.names = names
	return rd, nil
}

type patternError string

func (e patternError) Error() string { return string(e) }

// translatePattern rewrites a pattern for the regexp2 engine: named groups
// become plain groups so capture numbers follow source order, and the
// dot and end anchor get their line terminator semantics.
func translatePattern(src string, dotAll, multiline bool) (string, []string, error) {
	names := []string{""}
	dup := false
	// First pass: number the capture groups.
	err := scanPattern(src, func(kind patternToken, text string) {
		if kind == tokenGroup {
			names = append(names, "")
		} else if kind == tokenNamedGroup {
			if slices.Contains(names, text) {
				dup = true
			}
			names = append(names, text)
		}
	})
	if err == nil && dup {
		err = patternError("duplicate capture group name")
	}
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	err = scanPattern(src, func(kind patternToken, text string) {
		switch kind {
		case tokenGroup, tokenNamedGroup:
			sb.WriteByte('(')
		case tokenDot:
			if dotAll {
				sb.WriteString(`[\s\S]`)
			} else {
				sb.WriteString(`[^\n\r\u2028\u2029]`)
			}
		case tokenEnd:
			if multiline {
				sb.WriteString(`(?=[\n\r\u2028\u2029]|(?![\s\S]))`)
			} else {
				sb.WriteString(`(?![\s\S])`)
			}
		case tokenNamedRef:
			idx := -1
			for i, n := range names {
				if n != "" && n == text {
					idx = i
				}
			}
			if idx < 0 {
				sb.WriteString(`\k<` + text + `>`)
				return
			}
			sb.WriteString(`(?:\` + strconv.Itoa(idx) + `)`)
		default:
			sb.WriteString(text)
		}
	})
	if err != nil {
		return "", nil, err
	}
	return sb.String(), names, nil
}

type patternToken int

const (
	tokenText patternToken = iota
	tokenGroup
	tokenNamedGroup
	tokenNamedRef
	tokenDot
	tokenEnd
)

func scanPattern(src string, emit func(patternToken, string)) error {
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\':
			if i+1 >= len(src) {
				return patternError(`\ at end of pattern`)
			}
			if !inClass && src[i+1] == 'k' && i+2 < len(src) && src[i+2] == '<' {
				end := strings.IndexByte(src[i+3:], '>')
				if end < 0 {
					return patternError("invalid named reference")
				}
				emit(tokenNamedRef, src[i+3:i+3+end])
				i += 3 + end
				continue
			}
			emit(tokenText, src[i:i+2])
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
			emit(tokenText, src[i:i+1])
		case c == '[':
			inClass = true
			emit(tokenText, "[")
		case c == '.':
			emit(tokenDot, ".")
		case c == '$':
			emit(tokenEnd, "$")
		case c == '(':
			if i+1 < len(src) && src[i+1] == '?' {
				if i+2 < len(src) && src[i+2] == '<' && i+3 < len(src) && src[i+3] != '=' && src[i+3] != '!' {
					end := strings.IndexByte(src[i+3:], '>')
					if end <= 0 {
						return patternError("invalid capture group name")
					}
					emit(tokenNamedGroup, src[i+3:i+3+end])
					i += 3 + end
					continue
				}
				emit(tokenText, "(")
				continue
			}
			emit(tokenGroup, "(")
		default:
			emit(tokenText, src[i:i+1])
		}
	}
	if inClass {
		return patternError("missing /")
	}
	return nil
}

func regexpDataOf(v *runtime.Value) (*regexpData, bool) {
	if !v.IsObject() {
		return nil, false
	}
	rd, ok := v.Object.Data().(*regexpData)
	return rd, ok
}

// thisRegExp returns the payload of a RegExp receiver.
func thisRegExp(a *runtime.Agent, this *runtime.Value, method string) (*runtime.Object, *regexpData, error) {
	if rd, ok := regexpDataOf(this); ok {
		return this.Object, rd, nil
	}
	return nil, nil, a.ThrowTypeError("RegExp.prototype.%s requires that 'this' be a RegExp object", method)
}

func regexpFlagGetter(proto *runtime.Object, name string, flag byte) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		if o := this.AsObject(); o == proto {
			return runtime.Undefined, nil
		}
		_, rd, err := thisRegExp(a, this, name)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(rd.has(flag)), nil
	}
}

func regexpSourceGetter(proto *runtime.Object) runtime.NativeFunction {
	return func(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
		if o := this.AsObject(); o == proto {
			return runtime.NewString("(?:)"), nil
		}
		_, rd, err := thisRegExp(a, this, "source")
		if err != nil {
			return nil, err
		}
		return runtime.NewString(escapeRegExpSource(rd.source)), nil
	}
}

func escapeRegExpSource(src string) string {
	if src == "" {
		return "(?:)"
	}
	var sb strings.Builder
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			sb.WriteString(src[i : i+2])
			i++
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			sb.WriteString(`\/`)
			continue
		case c == '\n':
			sb.WriteString(`\n`)
			continue
		case c == '\r':
			sb.WriteString(`\r`)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// regexpFlagsGetter assembles the flags string from the individual
// flag properties, so subclasses overriding them are observed.
func regexpFlagsGetter(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, err := thisObject(a, this, "RegExp.prototype.flags getter")
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, f := range []struct {
		name string
		flag byte
	}{
		{"hasIndices", 'd'},
		{"global", 'g'},
		{"ignoreCase", 'i'},
		{"multiline", 'm'},
		{"dotAll", 's'},
		{"unicode", 'u'},
		{"unicodeSets", 'v'},
		{"sticky", 'y'},
	} {
		v, err := o.Get(a, runtime.StringKey(f.name))
		if err != nil {
			return nil, err
		}
		if v.ToBoolean() {
			sb.WriteByte(f.flag)
		}
	}
	return runtime.NewString(sb.String()), nil
}

func regexpToString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, err := thisObject(a, this, "RegExp.prototype.toString")
	if err != nil {
		return nil, err
	}
	parts := make([]string, 2)
	for i, name := range []string{"source", "flags"} {
		v, err := o.Get(a, runtime.StringKey(name))
		if err != nil {
			return nil, err
		}
		if parts[i], err = v.ToString(a); err != nil {
			return nil, err
		}
	}
	return runtime.NewString("/" + parts[0] + "/" + parts[1]), nil
}

func regexpCompile(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, _, err := thisRegExp(a, this, "compile")
	if err != nil {
		return nil, err
	}
	pattern, flags := argAt(args, 0), argAt(args, 1)
	if src, ok := regexpDataOf(pattern); ok {
		if !flags.IsUndefined() {
			return nil, a.ThrowTypeError("Cannot supply flags when constructing one RegExp from another")
		}
		pattern, flags = runtime.NewString(src.source), runtime.NewString(src.flags)
	}
	rd, err := newRegExpData(a, pattern, flags)
	if err != nil {
		return nil, err
	}
	ref, err := o.TryBorrowMut()
	if err != nil {
		return nil, err
	}
	ref.SetData(rd)
	ref.Release()
	if err := o.Set(a, runtime.StringKey("lastIndex"), runtime.NewInt(0), true); err != nil {
		return nil, err
	}
	return this, nil
}

func getLastIndex(a *runtime.Agent, o *runtime.Object) (int64, error) {
	v, err := o.Get(a, runtime.StringKey("lastIndex"))
	if err != nil {
		return 0, err
	}
	return v.ToLength(a)
}

func setLastIndex(a *runtime.Agent, o *runtime.Object, i int64) error {
	return o.Set(a, runtime.StringKey("lastIndex"), runtime.NewInt(i), true)
}

// regexpMatch is one successful match with UTF-16 offsets. Unmatched
// groups have start -1.
type regexpMatch struct {
	starts, ends []int
}

// matchAt runs the compiled pattern against s from the UTF-16 offset
// start. sticky matches must begin exactly at start.
func (d *regexpData) matchAt(s string, start int, sticky bool) (*regexpMatch, error) {
	runes := []rune(s)
	// offsets[i] is the UTF-16 offset of runes[i]; the final entry is the length.
	offsets := make([]int, len(runes)+1)
	for i, r := range runes {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		offsets[i+1] = offsets[i] + w
	}
	runeStart := 0
	for runeStart < len(runes) && offsets[runeStart] < start {
		runeStart++
	}
	m, err := d.re.FindRunesMatchStartingAt(runes, runeStart)
	if err != nil || m == nil {
		return nil, err
	}
	if sticky && m.Index != runeStart {
		return nil, nil
	}
	groups := m.Groups()
	res := &regexpMatch{starts: make([]int, len(groups)), ends: make([]int, len(groups))}
	for i, g := range groups {
		if len(g.Captures) == 0 {
			res.starts[i], res.ends[i] = -1, -1
			continue
		}
		res.starts[i] = offsets[g.Index]
		res.ends[i] = offsets[g.Index+g.Length]
	}
	return res, nil
}

// regexpBuiltinExec is the matcher behind exec, honoring lastIndex for
// global and sticky expressions.
func regexpBuiltinExec(a *runtime.Agent, o *runtime.Object, rd *regexpData, s string) (*runtime.Value, error) {
	lastIndex, err := getLastIndex(a, o)
	if err != nil {
		return nil, err
	}
	global, sticky := rd.has('g'), rd.has('y')
	if !global && !sticky {
		lastIndex = 0
	}
	length := int64(runtime.UTF16Length(s))
	if lastIndex > length {
		if global || sticky {
			if err := setLastIndex(a, o, 0); err != nil {
				return nil, err
			}
		}
		return runtime.Null, nil
	}
	m, err := rd.matchAt(s, int(lastIndex), sticky)
	if err != nil {
		return nil, a.ThrowRangeError("RegExp match failed: %s", err.Error())
	}
	if m == nil {
		if global || sticky {
			if err := setLastIndex(a, o, 0); err != nil {
				return nil, err
			}
		}
		return runtime.Null, nil
	}
	if global || sticky {
		if err := setLastIndex(a, o, int64(m.ends[0])); err != nil {
			return nil, err
		}
	}
	return buildMatchResult(a, rd, s, m), nil
}

func buildMatchResult(a *runtime.Agent, rd *regexpData, s string, m *regexpMatch) *runtime.Value {
	captures := make([]*runtime.Value, len(m.starts))
	for i := range m.starts {
		if m.starts[i] < 0 {
			captures[i] = runtime.Undefined
			continue
		}
		captures[i] = runtime.NewString(runtime.SubstringUTF16(s, m.starts[i], m.ends[i]))
	}
	arr := a.NewArray(captures)
	runtime.CreateDataProperty(a, arr, runtime.StringKey("index"), runtime.NewInt(int64(m.starts[0])))
	runtime.CreateDataProperty(a, arr, runtime.StringKey("input"), runtime.NewString(s))

	groups := runtime.Undefined
	var groupsObj *runtime.Object
	if rd.hasNames() {
		groupsObj = runtime.NewOrdinaryObject(nil)
		for i, name := range rd.names {
			if name != "" && i < len(captures) {
				runtime.CreateDataProperty(a, groupsObj, runtime.StringKey(name), captures[i])
			}
		}
		groups = runtime.NewObject(groupsObj)
	}
	runtime.CreateDataProperty(a, arr, runtime.StringKey("groups"), groups)

	if rd.has('d') {
		pairs := make([]*runtime.Value, len(m.starts))
		var indexGroups *runtime.Object
		if groupsObj != nil {
			indexGroups = runtime.NewOrdinaryObject(nil)
		}
		for i := range m.starts {
			pair := runtime.Undefined
			if m.starts[i] >= 0 {
				pair = a.NewArrayValue([]*runtime.Value{runtime.NewInt(int64(m.starts[i])), runtime.NewInt(int64(m.ends[i]))})
			}
			pairs[i] = pair
			if indexGroups != nil && i < len(rd.names) && rd.names[i] != "" {
				runtime.CreateDataProperty(a, indexGroups, runtime.StringKey(rd.names[i]), pair)
			}
		}
		indices := a.NewArray(pairs)
		ig := runtime.Undefined
		if indexGroups != nil {
			ig = runtime.NewObject(indexGroups)
		}
		runtime.CreateDataProperty(a, indices, runtime.StringKey("groups"), ig)
		runtime.CreateDataProperty(a, arr, runtime.StringKey("indices"), runtime.NewObject(indices))
	}
	return runtime.NewObject(arr)
}

// regexpExec calls a user-visible exec when present and falls back to the
// builtin matcher.
func regexpExec(a *runtime.Agent, o *runtime.Object, s string) (*runtime.Value, error) {
	exec, err := o.Get(a, runtime.StringKey("exec"))
	if err != nil {
		return nil, err
	}
	if exec.IsCallable() {
		result, err := a.Call(exec, runtime.NewObject(o), []*runtime.Value{runtime.NewString(s)})
		if err != nil {
			return nil, err
		}
		if !result.IsObject() && !result.IsNull() {
			return nil, a.ThrowTypeError("object or null expected from RegExp exec")
		}
		return result, nil
	}
	rd, ok := o.Data().(*regexpData)
	if !ok {
		return nil, a.ThrowTypeError("RegExp exec method called on incompatible receiver %s", describe(runtime.NewObject(o)))
	}
	return regexpBuiltinExec(a, o, rd, s)
}

func regexpExecMethod(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, rd, err := thisRegExp(a, this, "exec")
	if err != nil {
		return nil, err
	}
	s, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	return regexpBuiltinExec(a, o, rd, s)
}

func regexpTest(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, err := thisObject(a, this, "RegExp.prototype.test")
	if err != nil {
		return nil, err
	}
	s, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	m, err := regexpExec(a, o, s)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(!m.IsNull()), nil
}

// regexpReceiver reads the object receiver and the string argument shared
// by the symbol methods.
func regexpReceiver(a *runtime.Agent, this *runtime.Value, args []*runtime.Value, method string) (*runtime.Object, string, error) {
	o, err := thisObject(a, this, "RegExp.prototype["+method+"]")
	if err != nil {
		return nil, "", err
	}
	s, err := argAt(args, 0).ToString(a)
	return o, s, err
}

func readFlags(a *runtime.Agent, o *runtime.Object) (string, error) {
	v, err := o.Get(a, runtime.StringKey("flags"))
	if err != nil {
		return "", err
	}
	return v.ToString(a)
}

// advanceStringIndex steps past one code point in unicode mode and one
// code unit otherwise.
func advanceStringIndex(units []uint16, index int64, unicode bool) int64 {
	if !unicode || index+1 >= int64(len(units)) {
		return index + 1
	}
	_, n := codePointAt(units, int(index))
	return index + int64(n)
}

func matchString(a *runtime.Agent, m *runtime.Value) (string, error) {
	v, err := m.Object.Get(a, runtime.IndexKey(0))
	if err != nil {
		return "", err
	}
	return v.ToString(a)
}

func regexpSymbolMatch(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, s, err := regexpReceiver(a, this, args, "Symbol.match")
	if err != nil {
		return nil, err
	}
	flags, err := readFlags(a, o)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(flags, "g") {
		return regexpExec(a, o, s)
	}
	fullUnicode := strings.ContainsAny(flags, "uv")
	if err := setLastIndex(a, o, 0); err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	var found []*runtime.Value
	for {
		m, err := regexpExec(a, o, s)
		if err != nil {
			return nil, err
		}
		if m.IsNull() {
			if len(found) == 0 {
				return runtime.Null, nil
			}
			return a.NewArrayValue(found), nil
		}
		str, err := matchString(a, m)
		if err != nil {
			return nil, err
		}
		found = append(found, runtime.NewString(str))
		if str == "" {
			li, err := getLastIndex(a, o)
			if err != nil {
				return nil, err
			}
			if err := setLastIndex(a, o, advanceStringIndex(units, li, fullUnicode)); err != nil {
				return nil, err
			}
		}
	}
}

type regexpStringIterator struct {
	matcher     *runtime.Object
	s           string
	global      bool
	fullUnicode bool
	done        bool
}

func regexpSymbolMatchAll(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, s, err := regexpReceiver(a, this, args, "Symbol.matchAll")
	if err != nil {
		return nil, err
	}
	c, err := runtime.SpeciesConstructor(a, o, a.Intrinsics().RegExp)
	if err != nil {
		return nil, err
	}
	flags, err := readFlags(a, o)
	if err != nil {
		return nil, err
	}
	matcher, err := a.Construct(runtime.NewObject(c), []*runtime.Value{runtime.NewObject(o), runtime.NewString(flags)}, nil)
	if err != nil {
		return nil, err
	}
	li, err := getLastIndex(a, o)
	if err != nil {
		return nil, err
	}
	if err := setLastIndex(a, matcher, li); err != nil {
		return nil, err
	}
	it := runtime.NewHostObject(a.Intrinsics().RegExpStringIteratorPrototype, "RegExp String Iterator", &regexpStringIterator{
		matcher:     matcher,
		s:           s,
		global:      strings.Contains(flags, "g"),
		fullUnicode: strings.ContainsAny(flags, "uv"),
	})
	return runtime.NewObject(it), nil
}

func regexpStringIteratorNext(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	var st *regexpStringIterator
	if o := this.AsObject(); o != nil {
		st, _ = runtime.HostValue[*regexpStringIterator](o)
	}
	if st == nil {
		return nil, a.ThrowTypeError("next method called on incompatible receiver %s", describe(this))
	}
	if st.done {
		return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
	}
	m, err := regexpExec(a, st.matcher, st.s)
	if err != nil {
		return nil, err
	}
	if m.IsNull() {
		st.done = true
		return runtime.CreateIterResultObject(a, runtime.Undefined, true), nil
	}
	if !st.global {
		st.done = true
		return runtime.CreateIterResultObject(a, m, false), nil
	}
	str, err := matchString(a, m)
	if err != nil {
		return nil, err
	}
	if str == "" {
		li, err := getLastIndex(a, st.matcher)
		if err != nil {
			return nil, err
		}
		if err := setLastIndex(a, st.matcher, advanceStringIndex(runtime.UTF16Units(st.s), li, st.fullUnicode)); err != nil {
			return nil, err
		}
	}
	return runtime.CreateIterResultObject(a, m, false), nil
}

func regexpSymbolReplace(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, s, err := regexpReceiver(a, this, args, "Symbol.replace")
	if err != nil {
		return nil, err
	}
	units := runtime.UTF16Units(s)
	replaceValue := argAt(args, 1)
	functional := replaceValue.IsCallable()
	replaceStr := ""
	if !functional {
		if replaceStr, err = replaceValue.ToString(a); err != nil {
			return nil, err
		}
	}
	flags, err := readFlags(a, o)
	if err != nil {
		return nil, err
	}
	global := strings.Contains(flags, "g")
	fullUnicode := strings.ContainsAny(flags, "uv")
	if global {
		if err := setLastIndex(a, o, 0); err != nil {
			return nil, err
		}
	}

	var results []*runtime.Object
	for {
		m, err := regexpExec(a, o, s)
		if err != nil {
			return nil, err
		}
		if m.IsNull() {
			break
		}
		results = append(results, m.Object)
		if !global {
			break
		}
		str, err := matchString(a, m)
		if err != nil {
			return nil, err
		}
		if str == "" {
			li, err := getLastIndex(a, o)
			if err != nil {
				return nil, err
			}
			if err := setLastIndex(a, o, advanceStringIndex(units, li, fullUnicode)); err != nil {
				return nil, err
			}
		}
	}

	var out []uint16
	nextSource := 0
	for _, r := range results {
		nCaptures, err := runtime.LengthOfArrayLike(a, r)
		if err != nil {
			return nil, err
		}
		nCaptures = max(nCaptures-1, 0)
		matched, err := matchString(a, runtime.NewObject(r))
		if err != nil {
			return nil, err
		}
		matchedUnits := runtime.UTF16Units(matched)
		posV, err := r.Get(a, runtime.StringKey("index"))
		if err != nil {
			return nil, err
		}
		posF, err := posV.ToIntegerOrInfinity(a)
		if err != nil {
			return nil, err
		}
		position := int(max(min(posF, float64(len(units))), 0))

		captures := make([]*runtime.Value, 0, nCaptures)
		for n := int64(1); n <= nCaptures; n++ {
			c, err := r.Get(a, runtime.IndexKey(uint32(n)))
			if err != nil {
				return nil, err
			}
			if !c.IsUndefined() {
				cs, err := c.ToString(a)
				if err != nil {
					return nil, err
				}
				c = runtime.NewString(cs)
			}
			captures = append(captures, c)
		}
		groups, err := r.Get(a, runtime.StringKey("groups"))
		if err != nil {
			return nil, err
		}

		var replacement string
		if functional {
			callArgs := append([]*runtime.Value{runtime.NewString(matched)}, captures...)
			callArgs = append(callArgs, runtime.NewInt(int64(position)), runtime.NewString(s))
			if !groups.IsUndefined() {
				callArgs = append(callArgs, groups)
			}
			rv, err := a.Call(replaceValue, runtime.Undefined, callArgs)
			if err != nil {
				return nil, err
			}
			if replacement, err = rv.ToString(a); err != nil {
				return nil, err
			}
		} else {
			if !groups.IsUndefined() {
				gobj, err := groups.ToObject(a)
				if err != nil {
					return nil, err
				}
				groups = runtime.NewObject(gobj)
			}
			if replacement, err = getSubstitution(a, matchedUnits, units, position, captures, groups, replaceStr); err != nil {
				return nil, err
			}
		}
		if position >= nextSource {
			out = append(out, units[nextSource:position]...)
			out = append(out, runtime.UTF16Units(replacement)...)
			nextSource = min(position+len(matchedUnits), len(units))
		}
	}
	out = append(out, units[nextSource:]...)
	return runtime.NewString(runtime.StringFromUTF16(out)), nil
}

func regexpSymbolSearch(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, s, err := regexpReceiver(a, this, args, "Symbol.search")
	if err != nil {
		return nil, err
	}
	previous, err := o.Get(a, runtime.StringKey("lastIndex"))
	if err != nil {
		return nil, err
	}
	if !runtime.SameValue(previous, runtime.Zero) {
		if err := o.Set(a, runtime.StringKey("lastIndex"), runtime.Zero, true); err != nil {
			return nil, err
		}
	}
	m, err := regexpExec(a, o, s)
	if err != nil {
		return nil, err
	}
	current, err := o.Get(a, runtime.StringKey("lastIndex"))
	if err != nil {
		return nil, err
	}
	if !runtime.SameValue(current, previous) {
		if err := o.Set(a, runtime.StringKey("lastIndex"), previous, true); err != nil {
			return nil, err
		}
	}
	if m.IsNull() {
		return runtime.NewInt(-1), nil
	}
	return m.Object.Get(a, runtime.StringKey("index"))
}

func regexpSymbolSplit(a *runtime.Agent, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	o, s, err := regexpReceiver(a, this, args, "Symbol.split")
	if err != nil {
		return nil, err
	}
	c, err := runtime.SpeciesConstructor(a, o, a.Intrinsics().RegExp)
	if err != nil {
		return nil, err
	}
	flags, err := readFlags(a, o)
	if err != nil {
		return nil, err
	}
	fullUnicode := strings.ContainsAny(flags, "uv")
	newFlags := flags
	if !strings.Contains(flags, "y") {
		newFlags += "y"
	}
	splitter, err := a.Construct(runtime.NewObject(c), []*runtime.Value{runtime.NewObject(o), runtime.NewString(newFlags)}, nil)
	if err != nil {
		return nil, err
	}
	lim := uint32(1<<32 - 1)
	if l := argAt(args, 1); !l.IsUndefined() {
		if lim, err = l.ToUint32(a); err != nil {
			return nil, err
		}
	}
	var out []*runtime.Value
	if lim == 0 {
		return a.NewArrayValue(out), nil
	}
	units := runtime.UTF16Units(s)
	size := int64(len(units))
	if size == 0 {
		m, err := regexpExec(a, splitter, s)
		if err != nil {
			return nil, err
		}
		if m.IsNull() {
			out = append(out, runtime.NewString(s))
		}
		return a.NewArrayValue(out), nil
	}
	p, q := int64(0), int64(0)
	for q < size {
		if err := setLastIndex(a, splitter, q); err != nil {
			return nil, err
		}
		m, err := regexpExec(a, splitter, s)
		if err != nil {
			return nil, err
		}
		if m.IsNull() {
			q = advanceStringIndex(units, q, fullUnicode)
			continue
		}
		e, err := getLastIndex(a, splitter)
		if err != nil {
			return nil, err
		}
		e = min(e, size)
		if e == p {
			q = advanceStringIndex(units, q, fullUnicode)
			continue
		}
		out = append(out, runtime.NewString(runtime.StringFromUTF16(units[p:q])))
		if uint32(len(out)) == lim {
			return a.NewArrayValue(out), nil
		}
		p = e
		nCaptures, err := runtime.LengthOfArrayLike(a, m.Object)
		if err != nil {
			return nil, err
		}
		for i := int64(1); i < nCaptures; i++ {
			cap, err := m.Object.Get(a, runtime.IndexKey(uint32(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, cap)
			if uint32(len(out)) == lim {
				return a.NewArrayValue(out), nil
			}
		}
		q = p
	}
	out = append(out, runtime.NewString(runtime.StringFromUTF16(units[p:])))
	return a.NewArrayValue(out), nil
}
