package interpreter

import (
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/example/jscore/runtime"
)

type refKind int

const (
	refUnresolvable refKind = iota
	refBinding
	refProperty
	refSuper
	refPrivate
)

// reference is a resolved assignment target: a binding, a property of a
// base value, a super property or a private element.
type reference struct {
	kind refKind
	env  *runtime.Environment
	name string
	base *runtime.Value
	key  runtime.PropertyKey
	// this is the receiver of super references.
	this  *runtime.Value
	super *runtime.Object
}

// thisValue is the this argument of a call through the reference.
func (r *reference) thisValue() *runtime.Value {
	switch r.kind {
	case refProperty, refPrivate:
		return r.base
	case refSuper:
		return r.this
	case refBinding:
		if o := r.env.WithBaseObject(); o != nil {
			return runtime.NewObject(o)
		}
	}
	return runtime.Undefined
}

func (f *frame) resolveBinding(name string, env *runtime.Environment) (*reference, error) {
	found, err := env.Resolve(f.a, name)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return &reference{kind: refUnresolvable, name: name}, nil
	}
	return &reference{kind: refBinding, env: found, name: name}, nil
}

func privateBindingName(id ast.PrivateIdentifier) string {
	return "#" + strings.TrimPrefix(id.Name.String(), "#")
}

// privateKey resolves a private name to the key of the class that
// declared it.
func (f *frame) privateKey(id ast.PrivateIdentifier, env *runtime.Environment) (runtime.PropertyKey, error) {
	name := privateBindingName(id)
	v, err := env.GetIdentifier(f.a, name, true)
	if err != nil {
		return runtime.PropertyKey{}, f.a.ThrowSyntaxError("Private field '%s' must be declared in an enclosing class", name)
	}
	return runtime.SymbolKey(v.Symbol), nil
}

// evalRef evaluates expr as a reference.
func (f *frame) evalRef(expr ast.Expression, env *runtime.Environment) (*reference, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return f.resolveBinding(e.Name.String(), env)
	case *ast.DotExpression:
		key := runtime.StringKey(e.Identifier.Name.String())
		if _, ok := e.Left.(*ast.SuperExpression); ok {
			return f.superRef(key, env)
		}
		base, err := f.eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		return &reference{kind: refProperty, base: base, key: key}, nil
	case *ast.BracketExpression:
		if _, ok := e.Left.(*ast.SuperExpression); ok {
			this, err := f.thisBinding(env)
			if err != nil {
				return nil, err
			}
			kv, err := f.eval(e.Member, env)
			if err != nil {
				return nil, err
			}
			key, err := kv.ToPropertyKey(f.a)
			if err != nil {
				return nil, err
			}
			return f.superRefWithThis(key, this, env)
		}
		base, err := f.eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		kv, err := f.eval(e.Member, env)
		if err != nil {
			return nil, err
		}
		if base.IsNullish() {
			return nil, f.a.ThrowTypeError("Cannot read properties of %s (reading '%s')", base.String(), describeKey(kv))
		}
		key, err := kv.ToPropertyKey(f.a)
		if err != nil {
			return nil, err
		}
		return &reference{kind: refProperty, base: base, key: key}, nil
	case *ast.PrivateDotExpression:
		base, err := f.eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		key, err := f.privateKey(e.Identifier, env)
		if err != nil {
			return nil, err
		}
		return &reference{kind: refPrivate, base: base, key: key}, nil
	}
	return nil, f.a.ThrowReferenceError("Invalid left-hand side in assignment")
}

func describeKey(v *runtime.Value) string {
	if v.IsSymbol() {
		return v.Symbol.String()
	}
	return v.String()
}

func (f *frame) superRef(key runtime.PropertyKey, env *runtime.Environment) (*reference, error) {
	this, err := f.thisBinding(env)
	if err != nil {
		return nil, err
	}
	return f.superRefWithThis(key, this, env)
}

func (f *frame) superRefWithThis(key runtime.PropertyKey, this *runtime.Value, env *runtime.Environment) (*reference, error) {
	thisEnv := env.GetThisEnvironment()
	if !thisEnv.HasSuperBinding() {
		return nil, f.a.ThrowSyntaxError("'super' keyword unexpected here")
	}
	base, err := thisEnv.GetSuperBase(f.a)
	if err != nil {
		return nil, err
	}
	return &reference{kind: refSuper, key: key, this: this, super: base}, nil
}

func (f *frame) getValue(r *reference) (*runtime.Value, error) {
	a := f.a
	switch r.kind {
	case refUnresolvable:
		return nil, a.ThrowReferenceError("%s is not defined", r.name)
	case refBinding:
		return r.env.GetBindingValue(a, r.name, f.strict)
	case refProperty:
		if o := r.base.AsObject(); o != nil {
			return o.Get(a, r.key)
		}
		if r.base.IsNullish() {
			return nil, a.ThrowTypeError("Cannot read properties of %s (reading '%s')", r.base.String(), r.key.String())
		}
		return runtime.GetV(a, r.base, r.key)
	case refSuper:
		if r.super == nil {
			return nil, a.ThrowTypeError("Cannot read properties of null (reading '%s')", r.key.String())
		}
		return r.super.GetWithReceiver(a, r.key, r.this)
	case refPrivate:
		o := r.base.AsObject()
		if o == nil {
			return nil, a.ThrowTypeError("Cannot read private member %s from an object whose class did not declare it", r.key.String())
		}
		return a.PrivateGet(o, r.key)
	}
	return nil, a.ThrowReferenceError("invalid reference")
}

func (f *frame) putValue(r *reference, v *runtime.Value) error {
	a := f.a
	switch r.kind {
	case refUnresolvable:
		if f.strict {
			return a.ThrowReferenceError("%s is not defined", r.name)
		}
		return a.Global().Set(a, runtime.StringKey(r.name), v, false)
	case refBinding:
		return r.env.SetMutableBinding(a, r.name, v, f.strict)
	case refProperty:
		if r.base.IsNullish() {
			return a.ThrowTypeError("Cannot set properties of %s (setting '%s')", r.base.String(), r.key.String())
		}
		o, err := r.base.ToObject(a)
		if err != nil {
			return err
		}
		ok, err := o.SetWithReceiver(a, r.key, v, r.base)
		if err != nil {
			return err
		}
		if !ok && f.strict {
			return a.ThrowTypeError("Cannot assign to read only property '%s' of %s", r.key.String(), describeBase(r.base))
		}
		return nil
	case refSuper:
		if r.super == nil {
			return a.ThrowTypeError("Cannot set properties of null (setting '%s')", r.key.String())
		}
		ok, err := r.super.SetWithReceiver(a, r.key, v, r.this)
		if err != nil {
			return err
		}
		if !ok && f.strict {
			return a.ThrowTypeError("Cannot assign to read only property '%s' of %s", r.key.String(), describeBase(r.this))
		}
		return nil
	case refPrivate:
		o := r.base.AsObject()
		if o == nil {
			return a.ThrowTypeError("Cannot write private member %s to an object whose class did not declare it", r.key.String())
		}
		return a.PrivateSet(o, r.key, v)
	}
	return a.ThrowReferenceError("invalid reference")
}

func (f *frame) deleteRef(r *reference) (bool, error) {
	a := f.a
	switch r.kind {
	case refUnresolvable:
		return true, nil
	case refBinding:
		return r.env.DeleteBinding(a, r.name)
	case refProperty:
		o, err := r.base.ToObject(a)
		if err != nil {
			return false, err
		}
		ok, err := o.Delete(a, r.key)
		if err != nil {
			return false, err
		}
		if !ok && f.strict {
			return false, a.ThrowTypeError("Cannot delete property '%s' of %s", r.key.String(), describeBase(r.base))
		}
		return ok, nil
	case refSuper:
		return false, a.ThrowReferenceError("Unsupported reference to 'super'")
	}
	return true, nil
}

func describeBase(v *runtime.Value) string {
	if o := v.AsObject(); o != nil {
		return o.String()
	}
	return v.String()
}
