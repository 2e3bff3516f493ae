package builtins

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/example/jscore/runtime"
)

func createJSONObject(a *runtime.Agent) *runtime.Object {
	j := runtime.NewOrdinaryObject(a.Intrinsics().ObjectPrototype)
	setMethod(a, j, "parse", 2, jsonParse)
	setMethod(a, j, "stringify", 3, jsonStringify)
	setToStringTag(j, "JSON")
	return j
}

func jsonParse(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	text, err := argAt(args, 0).ToString(a)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	result, err := decodeJSONValue(a, dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, a.ThrowSyntaxError("Unexpected non-whitespace character after JSON at position %d", dec.InputOffset())
	}
	reviver := argAt(args, 1)
	if !reviver.IsCallable() {
		return result, nil
	}
	root := a.NewPlainObject()
	if err := runtime.CreateDataPropertyOrThrow(a, root, runtime.StringKey(""), result); err != nil {
		return nil, err
	}
	return internalizeJSONProperty(a, root, runtime.StringKey(""), reviver)
}

func jsonSyntaxError(a *runtime.Agent, err error) error {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return a.ThrowSyntaxError("%s in JSON at position %d", se.Error(), se.Offset)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return a.ThrowSyntaxError("Unexpected end of JSON input")
	}
	return a.ThrowSyntaxError("%s", err.Error())
}

// decodeJSONValue reads one value from the token stream. Object keys keep
// their source order.
func decodeJSONValue(a *runtime.Agent, dec *json.Decoder) (*runtime.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, jsonSyntaxError(a, err)
	}
	switch t := tok.(type) {
	case nil:
		return runtime.Null, nil
	case bool:
		return runtime.NewBool(t), nil
	case string:
		return runtime.NewString(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, jsonSyntaxError(a, err)
		}
		return runtime.NewNumber(f), nil
	case json.Delim:
		if t == '[' {
			var elems []*runtime.Value
			for dec.More() {
				v, err := decodeJSONValue(a, dec)
				if err != nil {
					return nil, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, jsonSyntaxError(a, err)
			}
			return a.NewArrayValue(elems), nil
		}
		obj := a.NewPlainObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, jsonSyntaxError(a, err)
			}
			key, _ := keyTok.(string)
			v, err := decodeJSONValue(a, dec)
			if err != nil {
				return nil, err
			}
			if _, err := runtime.CreateDataProperty(a, obj, runtime.StringKey(key), v); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, jsonSyntaxError(a, err)
		}
		return runtime.NewObject(obj), nil
	}
	return nil, a.ThrowSyntaxError("Unexpected token in JSON")
}

func internalizeJSONProperty(a *runtime.Agent, holder *runtime.Object, key runtime.PropertyKey, reviver *runtime.Value) (*runtime.Value, error) {
	val, err := holder.Get(a, key)
	if err != nil {
		return nil, err
	}
	if val.IsObject() {
		revise := func(k runtime.PropertyKey) error {
			nv, err := internalizeJSONProperty(a, val.Object, k, reviver)
			if err != nil {
				return err
			}
			if nv.IsUndefined() {
				_, err = val.Object.Delete(a, k)
			} else {
				_, err = runtime.CreateDataProperty(a, val.Object, k, nv)
			}
			return err
		}
		isArr, err := runtime.IsArray(a, val)
		if err != nil {
			return nil, err
		}
		if isArr {
			n, err := runtime.LengthOfArrayLike(a, val.Object)
			if err != nil {
				return nil, err
			}
			for i := int64(0); i < n; i++ {
				if err := revise(runtime.IntKey(i)); err != nil {
					return nil, err
				}
			}
		} else {
			keys, err := runtime.EnumerableOwnProperties(a, val.Object, runtime.EnumKeys)
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				if err := revise(runtime.StringKey(k.Str)); err != nil {
					return nil, err
				}
			}
		}
	}
	return a.Call(reviver, runtime.NewObject(holder), []*runtime.Value{key.ToValue(), val})
}

type jsonSerializer struct {
	a            *runtime.Agent
	replacer     *runtime.Value
	propertyList []runtime.PropertyKey
	stack        mapset.Set[*runtime.Object]
	indent       string
	gap          string
}

func jsonStringify(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	s := &jsonSerializer{a: a, stack: mapset.NewThreadUnsafeSet[*runtime.Object]()}
	if err := s.readReplacer(argAt(args, 1)); err != nil {
		return nil, err
	}
	if err := s.readSpace(argAt(args, 2)); err != nil {
		return nil, err
	}
	wrapper := a.NewPlainObject()
	if err := runtime.CreateDataPropertyOrThrow(a, wrapper, runtime.StringKey(""), argAt(args, 0)); err != nil {
		return nil, err
	}
	out, ok, err := s.serializeProperty(runtime.StringKey(""), wrapper)
	if err != nil {
		return nil, err
	}
	if !ok {
		return runtime.Undefined, nil
	}
	return runtime.NewString(out), nil
}

func (s *jsonSerializer) readReplacer(r *runtime.Value) error {
	if !r.IsObject() {
		return nil
	}
	if r.IsCallable() {
		s.replacer = r
		return nil
	}
	isArr, err := runtime.IsArray(s.a, r)
	if err != nil || !isArr {
		return err
	}
	n, err := runtime.LengthOfArrayLike(s.a, r.Object)
	if err != nil {
		return err
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	s.propertyList = []runtime.PropertyKey{}
	for i := int64(0); i < n; i++ {
		v, err := r.Object.Get(s.a, runtime.IntKey(i))
		if err != nil {
			return err
		}
		var item string
		switch {
		case v.IsString():
			item = v.Str
		case v.IsNumber():
			item = runtime.NumberToString(v.Float())
		case v.IsObject() && (v.Object.Kind() == runtime.KindString || v.Object.Kind() == runtime.KindNumber):
			if item, err = v.ToString(s.a); err != nil {
				return err
			}
		default:
			continue
		}
		if seen.Add(item) {
			s.propertyList = append(s.propertyList, runtime.StringKey(item))
		}
	}
	return nil
}

func (s *jsonSerializer) readSpace(space *runtime.Value) error {
	if o := space.AsObject(); o != nil {
		switch o.Kind() {
		case runtime.KindNumber:
			n, err := space.ToNumber(s.a)
			if err != nil {
				return err
			}
			space = runtime.NewNumber(n)
		case runtime.KindString:
			str, err := space.ToString(s.a)
			if err != nil {
				return err
			}
			space = runtime.NewString(str)
		}
	}
	switch {
	case space.IsNumber():
		n, _ := space.ToIntegerOrInfinity(s.a)
		if n = math.Min(10, n); n >= 1 {
			s.gap = strings.Repeat(" ", int(n))
		}
	case space.IsString():
		s.gap = runtime.SubstringUTF16(space.Str, 0, 10)
	}
	return nil
}

// serializeProperty returns ok=false when the property serializes to
// undefined and must be skipped.
func (s *jsonSerializer) serializeProperty(key runtime.PropertyKey, holder *runtime.Object) (string, bool, error) {
	a := s.a
	value, err := holder.Get(a, key)
	if err != nil {
		return "", false, err
	}
	if value.IsObject() || value.IsBigInt() {
		toJSON, err := runtime.GetV(a, value, runtime.StringKey("toJSON"))
		if err != nil {
			return "", false, err
		}
		if toJSON.IsCallable() {
			if value, err = a.Call(toJSON, value, []*runtime.Value{key.ToValue()}); err != nil {
				return "", false, err
			}
		}
	}
	if s.replacer != nil {
		if value, err = a.Call(s.replacer, runtime.NewObject(holder), []*runtime.Value{key.ToValue(), value}); err != nil {
			return "", false, err
		}
	}
	if o := value.AsObject(); o != nil {
		switch o.Kind() {
		case runtime.KindNumber:
			n, err := value.ToNumber(a)
			if err != nil {
				return "", false, err
			}
			value = runtime.NewNumber(n)
		case runtime.KindString:
			str, err := value.ToString(a)
			if err != nil {
				return "", false, err
			}
			value = runtime.NewString(str)
		case runtime.KindBoolean, runtime.KindBigInt:
			value = o.Data().(*runtime.PrimitiveData).Value
		}
	}
	switch {
	case value.IsNull():
		return "null", true, nil
	case value.IsBoolean():
		if value.Bool {
			return "true", true, nil
		}
		return "false", true, nil
	case value.IsString():
		return quoteJSONString(value.Str), true, nil
	case value.IsNumber():
		n := value.Float()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "null", true, nil
		}
		return runtime.NumberToString(n), true, nil
	case value.IsBigInt():
		return "", false, a.ThrowTypeError("Do not know how to serialize a BigInt")
	case value.IsObject() && !value.IsCallable():
		isArr, err := runtime.IsArray(a, value)
		if err != nil {
			return "", false, err
		}
		var out string
		if isArr {
			out, err = s.serializeArray(value.Object)
		} else {
			out, err = s.serializeObject(value.Object)
		}
		return out, err == nil, err
	}
	return "", false, nil
}

func (s *jsonSerializer) enter(o *runtime.Object) (string, error) {
	if !s.stack.Add(o) {
		return "", s.a.ThrowTypeError("Converting circular structure to JSON")
	}
	stepback := s.indent
	s.indent += s.gap
	return stepback, nil
}

func (s *jsonSerializer) leave(o *runtime.Object, stepback string) {
	s.stack.Remove(o)
	s.indent = stepback
}

func (s *jsonSerializer) wrap(open, close string, parts []string, stepback string) string {
	if len(parts) == 0 {
		return open + close
	}
	if s.gap == "" {
		return open + strings.Join(parts, ",") + close
	}
	sep := ",\n" + s.indent
	return open + "\n" + s.indent + strings.Join(parts, sep) + "\n" + stepback + close
}

func (s *jsonSerializer) serializeObject(o *runtime.Object) (string, error) {
	stepback, err := s.enter(o)
	if err != nil {
		return "", err
	}
	defer s.leave(o, stepback)
	keys := s.propertyList
	if keys == nil {
		names, err := runtime.EnumerableOwnProperties(s.a, o, runtime.EnumKeys)
		if err != nil {
			return "", err
		}
		keys = make([]runtime.PropertyKey, len(names))
		for i, n := range names {
			keys[i] = runtime.StringKey(n.Str)
		}
	}
	colon := ":"
	if s.gap != "" {
		colon = ": "
	}
	var parts []string
	for _, k := range keys {
		str, ok, err := s.serializeProperty(k, o)
		if err != nil {
			return "", err
		}
		if ok {
			parts = append(parts, quoteJSONString(k.Name())+colon+str)
		}
	}
	return s.wrap("{", "}", parts, stepback), nil
}

func (s *jsonSerializer) serializeArray(o *runtime.Object) (string, error) {
	stepback, err := s.enter(o)
	if err != nil {
		return "", err
	}
	defer s.leave(o, stepback)
	n, err := runtime.LengthOfArrayLike(s.a, o)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		str, ok, err := s.serializeProperty(runtime.IntKey(i), o)
		if err != nil {
			return "", err
		}
		if !ok {
			str = "null"
		}
		parts = append(parts, str)
	}
	return s.wrap("[", "]", parts, stepback), nil
}

func quoteJSONString(str string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
