package runtime

import (
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Strings are stored as Go UTF-8 text. Length and indexing follow the
// language's UTF-16 code unit semantics through these helpers.

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// UTF16Length returns the length of s in UTF-16 code units.
func UTF16Length(s string) int {
	if isASCII(s) {
		return len(s)
	}
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// UTF16Units returns the UTF-16 encoding of s.
func UTF16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// StringFromUTF16 decodes code units back into a string. Lone surrogates
// become U+FFFD.
func StringFromUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}

// CodeUnitAt returns the UTF-16 code unit at index i.
func CodeUnitAt(s string, i int) (uint16, bool) {
	if i < 0 {
		return 0, false
	}
	if isASCII(s) {
		if i >= len(s) {
			return 0, false
		}
		return uint16(s[i]), true
	}
	units := UTF16Units(s)
	if i >= len(units) {
		return 0, false
	}
	return units[i], true
}

// SubstringUTF16 returns the code units [start, end) of s as a string.
func SubstringUTF16(s string, start, end int) string {
	if isASCII(s) {
		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start >= end {
			return ""
		}
		return s[start:end]
	}
	units := UTF16Units(s)
	if start < 0 {
		start = 0
	}
	if end > len(units) {
		end = len(units)
	}
	if start >= end {
		return ""
	}
	return StringFromUTF16(units[start:end])
}

// CharAt returns the one-code-unit string at index i. Half of a surrogate
// pair comes back as U+FFFD.
func CharAt(s string, i int) (string, bool) {
	if isASCII(s) {
		if i < 0 || i >= len(s) {
			return "", false
		}
		return s[i : i+1], true
	}
	units := UTF16Units(s)
	if i < 0 || i >= len(units) {
		return "", false
	}
	return StringFromUTF16(units[i : i+1]), true
}

func stringPrimitive(o *Object) (string, bool) {
	p, ok := o.data.(*PrimitiveData)
	if !ok || p.kind != KindString {
		return "", false
	}
	return p.Value.Str, true
}

// NewStringObject creates a String wrapper object (StringCreate).
func (a *Agent) NewStringObject(s string, proto *Object) *Object {
	if proto == nil {
		proto = a.realm.Intrinsics.StringPrototype
	}
	o := NewObjectWithData(proto, NewPrimitiveData(KindString, NewString(s)))
	o.putRaw(lengthKey, &Property{Value: NewInt(int64(UTF16Length(s)))})
	return o
}

func stringIndexProperty(o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	s, ok := stringPrimitive(o)
	if !ok {
		return PropertyDescriptor{}, false
	}
	idx, ok := key.ArrayIndex()
	if !ok {
		return PropertyDescriptor{}, false
	}
	ch, ok := CharAt(s, int(idx))
	if !ok {
		return PropertyDescriptor{}, false
	}
	return DataDescriptor(NewString(ch), false, true, false), true
}

func stringGetOwnProperty(a *Agent, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	desc, ok, err := ordinaryGetOwnProperty(a, o, key)
	if err != nil || ok {
		return desc, ok, err
	}
	desc, ok = stringIndexProperty(o, key)
	return desc, ok, nil
}

func stringDefineOwnProperty(a *Agent, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if current, ok := stringIndexProperty(o, key); ok {
		extensible, err := o.methods.IsExtensible(a, o)
		if err != nil {
			return false, err
		}
		return IsCompatiblePropertyDescriptor(extensible, desc, current, true), nil
	}
	return ordinaryDefineOwnProperty(a, o, key, desc)
}

func stringOwnPropertyKeys(a *Agent, o *Object) ([]PropertyKey, error) {
	s, _ := stringPrimitive(o)
	n := UTF16Length(s)
	keys := make([]PropertyKey, 0, n+4)
	for i := 0; i < n; i++ {
		keys = append(keys, StringKey(strconv.Itoa(i)))
	}
	rest, err := ordinaryOwnPropertyKeys(a, o)
	if err != nil {
		return nil, err
	}
	return append(keys, rest...), nil
}
