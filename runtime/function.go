package runtime

import (
	"github.com/dop251/goja/ast"
)

// NativeFunction is a host function callable from scripts. During a
// construct call Agent.NewTarget reports the new.target.
type NativeFunction func(a *Agent, this *Value, args []*Value) (*Value, error)

// ClosureFunction is a host function that carries captured state.
type ClosureFunction func(a *Agent, this *Value, args []*Value, captures any) (*Value, error)

// FunctionKind is the payload variant of a function object.
type FunctionKind int

const (
	FunctionNative FunctionKind = iota
	FunctionClosure
	FunctionOrdinary
)

// Parameter is one formal parameter of an interpreted function.
type Parameter struct {
	Target      ast.Expression // identifier or binding pattern
	Initializer ast.Expression // nil when the parameter has no default
	Rest        bool
	Names       []string // bound names
}

// FunctionCode is the compiled form of an interpreted function: its
// parameters, body and the flags the call engine consults.
type FunctionCode struct {
	Name   string
	Params []Parameter
	// Body is a *ast.BlockStatement, or an ast.Expression for concise arrows.
	Body   ast.Node
	Source string
	Length int

	Strict           bool
	LexicalThis      bool // arrow functions
	IsConstructor    bool
	ClassConstructor bool
	Derived          bool
	Method           bool
	Generator        bool
	Async            bool

	// ParameterNames lists every name bound by the parameter list.
	ParameterNames []string
	// ArgumentsInParameters is set when a parameter is named arguments.
	ArgumentsInParameters bool
	// HasParameterExpressions is set when any parameter has an initializer
	// or a computed pattern element.
	HasParameterExpressions bool
	// LexicalArgumentsName is set when the body declares a function or
	// lexical binding named arguments.
	LexicalArgumentsName bool
	// UsesArguments is set when the body or parameters may reference arguments.
	UsesArguments bool

	// Extra carries executor-specific precomputed data.
	Extra any
}

// NeedsArgumentsObject implements the arguments-object gating rule.
func (c *FunctionCode) NeedsArgumentsObject() bool {
	if c.LexicalThis || c.ArgumentsInParameters || !c.UsesArguments {
		return false
	}
	return c.HasParameterExpressions || !c.LexicalArgumentsName
}

// ClassField is an instance or static field of a class. Initializer is a
// method whose call produces the field value, or nil.
type ClassField struct {
	Key         PropertyKey
	Initializer *Object
	Private     bool
	// Method marks private methods and accessors installed before fields.
	Method bool
	Getter *Object
	Setter *Object
}

// FunctionData is the payload of function objects.
type FunctionData struct {
	kind     FunctionKind
	native   NativeFunction
	closure  ClosureFunction
	captures any
	ctor     bool

	Code       *FunctionCode
	Env        *Environment
	homeObject *Object
	Fields     []*ClassField
	realm      *Realm
}

func (d *FunctionData) Kind() ObjectKind { return KindFunction }

// FunctionKind returns the payload variant.
func (d *FunctionData) FunctionKind() FunctionKind { return d.kind }

// HomeObject returns the object super lookups are relative to.
func (d *FunctionData) HomeObject() *Object { return d.homeObject }

func (d *FunctionData) constructable() bool {
	if d.kind == FunctionOrdinary {
		return d.Code.IsConstructor
	}
	return d.ctor
}

// NewNativeFunction creates a built-in function object in the current realm.
func (a *Agent) NewNativeFunction(name string, length int, fn NativeFunction) *Object {
	return a.newNativeFunctionIn(a.realm, name, length, fn, false)
}

// NewNativeConstructor creates a built-in function that also has [[Construct]].
func (a *Agent) NewNativeConstructor(name string, length int, fn NativeFunction) *Object {
	return a.newNativeFunctionIn(a.realm, name, length, fn, true)
}

// NewClosureFunction creates a built-in function carrying captured state.
func (a *Agent) NewClosureFunction(name string, length int, fn ClosureFunction, captures any) *Object {
	f := NewObjectWithData(a.realm.Intrinsics.FunctionPrototype, &FunctionData{
		kind:     FunctionClosure,
		closure:  fn,
		captures: captures,
		realm:    a.realm,
	})
	defineFunctionProps(f, name, length)
	return f
}

func (a *Agent) newNativeFunctionIn(realm *Realm, name string, length int, fn NativeFunction, ctor bool) *Object {
	f := NewObjectWithData(realm.Intrinsics.FunctionPrototype, &FunctionData{
		kind:   FunctionNative,
		native: fn,
		ctor:   ctor,
		realm:  realm,
	})
	defineFunctionProps(f, name, length)
	return f
}

func defineFunctionProps(f *Object, name string, length int) {
	f.putRaw(lengthKey, &Property{Value: NewInt(int64(length)), Configurable: true})
	f.putRaw(StringKey("name"), &Property{Value: NewString(name), Configurable: true})
}

// NewOrdinaryFunction creates an interpreted function closing over env
// (OrdinaryFunctionCreate followed by MakeConstructor where applicable).
func (a *Agent) NewOrdinaryFunction(code *FunctionCode, env *Environment, proto *Object) *Object {
	in := a.realm.Intrinsics
	if proto == nil {
		switch {
		case code.Generator && code.Async:
			proto = in.AsyncGeneratorFunctionPrototype
		case code.Generator:
			proto = in.GeneratorFunctionPrototype
		case code.Async:
			proto = in.AsyncFunctionPrototype
		default:
			proto = in.FunctionPrototype
		}
	}
	f := NewObjectWithData(proto, &FunctionData{
		kind:  FunctionOrdinary,
		Code:  code,
		Env:   env,
		realm: a.realm,
	})
	f.putRaw(lengthKey, &Property{Value: NewInt(int64(code.Length)), Configurable: true})
	f.putRaw(StringKey("name"), &Property{Value: NewString(code.Name), Configurable: true})

	switch {
	case code.Generator && code.Async:
		f.putRaw(StringKey("prototype"), &Property{Value: NewObject(NewOrdinaryObject(in.AsyncGeneratorPrototype)), Writable: true})
	case code.Generator:
		f.putRaw(StringKey("prototype"), &Property{Value: NewObject(NewOrdinaryObject(in.GeneratorPrototype)), Writable: true})
	case code.IsConstructor && !code.ClassConstructor:
		protoObj := a.NewPlainObject()
		protoObj.putRaw(StringKey("constructor"), &Property{Value: NewObject(f), Writable: true, Configurable: true})
		f.putRaw(StringKey("prototype"), &Property{Value: NewObject(protoObj), Writable: true})
	}
	return f
}

// MakeMethod records the home object of a method.
func MakeMethod(f *Object, home *Object) {
	if fd, ok := f.data.(*FunctionData); ok {
		fd.homeObject = home
	}
}

// SetFunctionName defines the name property of f from key with an
// optional "get"/"set" prefix.
func SetFunctionName(a *Agent, f *Object, key PropertyKey, prefix string) error {
	name := key.FunctionName()
	if prefix != "" {
		name = prefix + " " + name
	}
	return DefinePropertyOrThrow(a, f, StringKey("name"), DataDescriptor(NewString(name), false, false, true))
}

// FunctionName returns the value of the own name property when it is a
// string data property. It fails with a *BorrowError when f is mutably
// borrowed.
func FunctionName(f *Object) (string, error) {
	var name string
	err := f.readState(func(r *ObjectRef) {
		if p, ok := r.Property(StringKey("name")); ok && !p.IsAccessor && p.Value.IsString() {
			name = p.Value.Str
		}
	})
	return name, err
}

// SetFields installs the class fields evaluated for a class constructor.
func SetFields(f *Object, fields []*ClassField) {
	if fd, ok := f.data.(*FunctionData); ok {
		fd.Fields = fields
	}
}

// InitializeInstanceElements defines the fields of constructor on o.
func (a *Agent) InitializeInstanceElements(o *Object, constructor *Object) error {
	fd, ok := constructor.data.(*FunctionData)
	if !ok {
		return nil
	}
	return a.DefineFields(o, fd.Fields)
}

// DefineFields installs private methods first and then evaluates and defines
// each field in order.
func (a *Agent) DefineFields(o *Object, fields []*ClassField) error {
	for _, f := range fields {
		if !f.Method {
			continue
		}
		if err := a.PrivateMethodAdd(o, f); err != nil {
			return err
		}
	}
	recv := NewObject(o)
	for _, f := range fields {
		if f.Method {
			continue
		}
		v := Undefined
		if f.Initializer != nil {
			var err error
			v, err = a.Call(NewObject(f.Initializer), recv, nil)
			if err != nil {
				return err
			}
		}
		if f.Private {
			if err := a.PrivateFieldAdd(o, f.Key, v); err != nil {
				return err
			}
			continue
		}
		if err := CreateDataPropertyOrThrow(a, o, f.Key, v); err != nil {
			return err
		}
	}
	return nil
}

// NewPrivateName creates the symbol backing a private name.
func NewPrivateName(description string) *Symbol {
	return &Symbol{description: description, hasDesc: true, private: true}
}

// PrivateFieldAdd defines a private field on o.
func (a *Agent) PrivateFieldAdd(o *Object, key PropertyKey, v *Value) error {
	if _, ok, err := o.privateRaw(key); err != nil {
		return err
	} else if ok {
		return a.ThrowTypeError("Cannot initialize %s twice on the same object", key.sym.description)
	}
	return o.writeState(func(r *ObjectRefMut) {
		r.InsertProperty(key, Property{Value: v, Writable: true})
	})
}

// PrivateMethodAdd installs a private method or accessor on o.
func (a *Agent) PrivateMethodAdd(o *Object, f *ClassField) error {
	if _, ok, err := o.privateRaw(f.Key); err != nil {
		return err
	} else if ok {
		return a.ThrowTypeError("Cannot initialize private methods of class twice on the same object")
	}
	p := Property{}
	if f.Getter != nil || f.Setter != nil {
		p.IsAccessor = true
		if f.Getter != nil {
			p.Getter = NewObject(f.Getter)
		}
		if f.Setter != nil {
			p.Setter = NewObject(f.Setter)
		}
	} else {
		p.Value = NewObject(f.Initializer)
	}
	return o.writeState(func(r *ObjectRefMut) { r.InsertProperty(f.Key, p) })
}

func (o *Object) privateRaw(key PropertyKey) (Property, bool, error) {
	var p Property
	var ok bool
	err := o.readState(func(r *ObjectRef) { p, ok = r.Property(key) })
	return p, ok, err
}

// PrivateGet reads a private element of o.
func (a *Agent) PrivateGet(o *Object, key PropertyKey) (*Value, error) {
	p, ok, err := o.privateRaw(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.ThrowTypeError("Cannot read private member %s from an object whose class did not declare it", key.sym.description)
	}
	if !p.IsAccessor {
		return p.Value, nil
	}
	if p.Getter == nil {
		return nil, a.ThrowTypeError("'%s' was defined without a getter", key.sym.description)
	}
	return a.Call(p.Getter, NewObject(o), nil)
}

// PrivateSet writes a private element of o.
func (a *Agent) PrivateSet(o *Object, key PropertyKey, v *Value) error {
	p, ok, err := o.privateRaw(key)
	if err != nil {
		return err
	}
	if !ok {
		return a.ThrowTypeError("Cannot write private member %s to an object whose class did not declare it", key.sym.description)
	}
	if p.IsAccessor {
		if p.Setter == nil {
			return a.ThrowTypeError("'%s' was defined without a setter", key.sym.description)
		}
		_, err := a.Call(p.Setter, NewObject(o), []*Value{v})
		return err
	}
	if !p.Writable {
		return a.ThrowTypeError("Private method '%s' is not writable", key.sym.description)
	}
	p.Value = v
	return o.writeState(func(r *ObjectRefMut) { r.InsertProperty(key, p) })
}

// PrivateIn reports whether o carries the private element key.
func PrivateIn(o *Object, key PropertyKey) (bool, error) {
	_, ok, err := o.privateRaw(key)
	return ok, err
}
