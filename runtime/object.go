package runtime

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ObjectKind classifies the payload an object carries.
type ObjectKind int

const (
	KindOrdinary ObjectKind = iota
	KindArray
	KindFunction
	KindBoundFunction
	KindArguments
	KindError
	KindBoolean
	KindNumber
	KindString
	KindSymbol
	KindBigInt
	KindDate
	KindRegExp
	KindPromise
	KindGenerator
	KindAsyncGenerator
	KindProxy
	KindGlobal
	KindHost
)

var kindNames = [...]string{
	KindOrdinary:       "Object",
	KindArray:          "Array",
	KindFunction:       "Function",
	KindBoundFunction:  "Function",
	KindArguments:      "Arguments",
	KindError:          "Error",
	KindBoolean:        "Boolean",
	KindNumber:         "Number",
	KindString:         "String",
	KindSymbol:         "Symbol",
	KindBigInt:         "BigInt",
	KindDate:           "Date",
	KindRegExp:         "RegExp",
	KindPromise:        "Promise",
	KindGenerator:      "Generator",
	KindAsyncGenerator: "AsyncGenerator",
	KindProxy:          "Proxy",
	KindGlobal:         "global",
	KindHost:           "Object",
}

func (k ObjectKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Object"
}

// ObjectData is the kind-specific payload of an object.
type ObjectData interface {
	Kind() ObjectKind
}

// OrdinaryData is the payload of plain objects.
type OrdinaryData struct{}

func (OrdinaryData) Kind() ObjectKind { return KindOrdinary }

// ArrayData marks array exotic objects. The length lives in a property slot.
type ArrayData struct{}

func (ArrayData) Kind() ObjectKind { return KindArray }

// ArgumentsData marks unmapped arguments objects.
type ArgumentsData struct{}

func (ArgumentsData) Kind() ObjectKind { return KindArguments }

// ErrorData marks error instances.
type ErrorData struct{}

func (ErrorData) Kind() ObjectKind { return KindError }

// GlobalData marks the global object.
type GlobalData struct{}

func (GlobalData) Kind() ObjectKind { return KindGlobal }

// PrimitiveData is the payload of wrapper objects (Boolean, Number, String,
// Symbol, BigInt) and of Date instances.
type PrimitiveData struct {
	kind  ObjectKind
	Value *Value
}

func (p *PrimitiveData) Kind() ObjectKind { return p.kind }

// NewPrimitiveData wraps v in a payload of the given kind.
func NewPrimitiveData(kind ObjectKind, v *Value) *PrimitiveData {
	return &PrimitiveData{kind: kind, Value: v}
}

// HostData carries an arbitrary native payload owned by the embedder.
type HostData struct {
	Value any
	Class string
}

func (*HostData) Kind() ObjectKind { return KindHost }

// Object is a heap-allocated JavaScript object. The property table,
// prototype, extensibility flag and payload are only reachable through
// the internal methods or through a borrow of the object.
type Object struct {
	props      *linkedhashmap.Map // PropertyKey -> *Property, insertion ordered
	proto      *Object
	extensible bool
	data       ObjectData
	methods    *InternalMethods
	borrow     borrowState
}

// NewObjectWithData allocates an object with the internal methods implied
// by data's kind.
func NewObjectWithData(proto *Object, data ObjectData) *Object {
	if data == nil {
		data = OrdinaryData{}
	}
	return &Object{
		props:      linkedhashmap.New(),
		proto:      proto,
		extensible: true,
		data:       data,
		methods:    methodsFor(data),
	}
}

// NewOrdinaryObject creates a plain object with the given prototype.
func NewOrdinaryObject(proto *Object) *Object {
	return NewObjectWithData(proto, OrdinaryData{})
}

// NewHostObject wraps a native value so scripts can hold it.
func NewHostObject(proto *Object, class string, v any) *Object {
	return NewObjectWithData(proto, &HostData{Value: v, Class: class})
}

func methodsFor(data ObjectData) *InternalMethods {
	switch d := data.(type) {
	case ArrayData:
		return arrayMethods
	case *FunctionData:
		if d.constructable() {
			return constructorMethods
		}
		return functionMethods
	case *BoundFunctionData:
		if d.Target.IsConstructor() {
			return boundConstructorMethods
		}
		return boundFunctionMethods
	case *PrimitiveData:
		if d.kind == KindString {
			return stringMethods
		}
	case *ProxyData:
		return proxyMethodsFor(d)
	}
	return ordinaryMethods
}

// Kind returns the kind of the object's payload.
func (o *Object) Kind() ObjectKind { return o.data.Kind() }

// Methods returns the internal method table of the object.
func (o *Object) Methods() *InternalMethods { return o.methods }

// Data returns the object payload. Callers that mutate the payload should
// hold a mutable borrow.
func (o *Object) Data() ObjectData { return o.data }

// IsCallable reports whether the object has a [[Call]] internal method.
func (o *Object) IsCallable() bool { return o.methods.Call != nil }

// IsConstructor reports whether the object has a [[Construct]] internal method.
func (o *Object) IsConstructor() bool { return o.methods.Construct != nil }

// IsArray reports whether the object is an array exotic object. Proxies are
// not looked through; see IsArray(a, v) for the full operation.
func (o *Object) IsArray() bool { return o.data.Kind() == KindArray }

// Class returns a short name for diagnostics.
func (o *Object) Class() string {
	if h, ok := o.data.(*HostData); ok && h.Class != "" {
		return h.Class
	}
	return o.data.Kind().String()
}

// String renders the object for diagnostics without running user code.
func (o *Object) String() string {
	switch o.Kind() {
	case KindFunction, KindBoundFunction:
		name := ""
		if p, ok := o.ownRaw(StringKey("name")); ok && !p.IsAccessor && p.Value.IsString() {
			name = p.Value.Str
		}
		return fmt.Sprintf("[Function: %s]", name)
	case KindError:
		return ErrorSummary(o)
	case KindArray:
		return "[object Array]"
	}
	return "[object " + o.Class() + "]"
}

// ErrorSummary formats an error object as "Name: message" by reading own
// and inherited data properties only.
func ErrorSummary(o *Object) string {
	name, msg := ErrorParts(o)
	if msg == "" {
		return name
	}
	if name == "" {
		return msg
	}
	return name + ": " + msg
}

// ErrorParts returns the name and message of an error object without
// running accessors.
func ErrorParts(o *Object) (name, msg string) {
	name = "Error"
	for cur, n := o, 0; cur != nil && n < 64; cur, n = cur.proto, n+1 {
		if p, ok := cur.ownRaw(StringKey("name")); ok && !p.IsAccessor && p.Value.IsString() {
			name = p.Value.Str
			break
		}
	}
	for cur, n := o, 0; cur != nil && n < 64; cur, n = cur.proto, n+1 {
		if p, ok := cur.ownRaw(StringKey("message")); ok && !p.IsAccessor {
			msg = p.Value.String()
			break
		}
	}
	return name, msg
}

// ownRaw reads a stored slot without borrowing. Only used by diagnostics
// and by code that already holds a borrow.
func (o *Object) ownRaw(key PropertyKey) (*Property, bool) {
	v, ok := o.props.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Property), true
}

func (o *Object) putRaw(key PropertyKey, p *Property) {
	o.props.Put(key, p)
}

func (o *Object) removeRaw(key PropertyKey) {
	o.props.Remove(key)
}

func (o *Object) keysRaw() []PropertyKey {
	raw := o.props.Keys()
	keys := make([]PropertyKey, len(raw))
	for i, k := range raw {
		keys[i] = k.(PropertyKey)
	}
	return keys
}

// Convenience wrappers dispatching through the internal method table.

// GetPrototypeOf invokes [[GetPrototypeOf]].
func (o *Object) GetPrototypeOf(a *Agent) (*Object, error) {
	return o.methods.GetPrototypeOf(a, o)
}

// SetPrototypeOf invokes [[SetPrototypeOf]].
func (o *Object) SetPrototypeOf(a *Agent, proto *Object) (bool, error) {
	return o.methods.SetPrototypeOf(a, o, proto)
}

// IsExtensible invokes [[IsExtensible]].
func (o *Object) IsExtensible(a *Agent) (bool, error) {
	return o.methods.IsExtensible(a, o)
}

// PreventExtensions invokes [[PreventExtensions]].
func (o *Object) PreventExtensions(a *Agent) (bool, error) {
	return o.methods.PreventExtensions(a, o)
}

// GetOwnProperty invokes [[GetOwnProperty]].
func (o *Object) GetOwnProperty(a *Agent, key PropertyKey) (PropertyDescriptor, bool, error) {
	return o.methods.GetOwnProperty(a, o, key)
}

// DefineOwnProperty invokes [[DefineOwnProperty]].
func (o *Object) DefineOwnProperty(a *Agent, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	return o.methods.DefineOwnProperty(a, o, key, desc)
}

// HasProperty invokes [[HasProperty]].
func (o *Object) HasProperty(a *Agent, key PropertyKey) (bool, error) {
	return o.methods.HasProperty(a, o, key)
}

// Get invokes [[Get]] with the object itself as receiver.
func (o *Object) Get(a *Agent, key PropertyKey) (*Value, error) {
	return o.methods.Get(a, o, key, NewObject(o))
}

// GetWithReceiver invokes [[Get]] with an explicit receiver.
func (o *Object) GetWithReceiver(a *Agent, key PropertyKey, receiver *Value) (*Value, error) {
	return o.methods.Get(a, o, key, receiver)
}

// Set invokes [[Set]] with the object itself as receiver, throwing a
// TypeError on failure when throw is set.
func (o *Object) Set(a *Agent, key PropertyKey, v *Value, throw bool) error {
	ok, err := o.methods.Set(a, o, key, v, NewObject(o))
	if err != nil {
		return err
	}
	if !ok && throw {
		return a.ThrowTypeError("Cannot assign to read only property '%s' of %s", key, o)
	}
	return nil
}

// SetWithReceiver invokes [[Set]] with an explicit receiver.
func (o *Object) SetWithReceiver(a *Agent, key PropertyKey, v, receiver *Value) (bool, error) {
	return o.methods.Set(a, o, key, v, receiver)
}

// Delete invokes [[Delete]].
func (o *Object) Delete(a *Agent, key PropertyKey) (bool, error) {
	return o.methods.Delete(a, o, key)
}

// OwnPropertyKeys invokes [[OwnPropertyKeys]].
func (o *Object) OwnPropertyKeys(a *Agent) ([]PropertyKey, error) {
	return o.methods.OwnPropertyKeys(a, o)
}

// HasOwnProperty reports whether the object has an own property named key.
func (o *Object) HasOwnProperty(a *Agent, key PropertyKey) (bool, error) {
	_, ok, err := o.methods.GetOwnProperty(a, o, key)
	return ok, err
}
