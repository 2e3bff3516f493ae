package interpreter

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/unistring"

	"github.com/example/jscore/runtime"
)

// staticElement is a static field or static block, run in source order
// once the class is defined.
type staticElement struct {
	field *runtime.ClassField
	block *runtime.Object
}

// classDefinitionEvaluation creates the constructor of a class literal.
// bindingName is the inner binding of the class, empty for anonymous
// classes; key names the constructor.
func (f *frame) classDefinitionEvaluation(lit *ast.ClassLiteral, bindingName string, key runtime.PropertyKey, env *runtime.Environment) (*runtime.Object, error) {
	a := f.a
	c := &frame{Interpreter: f.Interpreter, a: a, strict: true}

	classEnv := runtime.NewDeclarativeEnvironment(env)
	if bindingName != "" {
		classEnv.CreateImmutableBinding(bindingName, runtime.BindingClass, true)
	}
	declarePrivateNames(lit, classEnv)

	depth := a.EnvironmentDepth()
	a.PushEnvironment(classEnv)
	defer a.TruncateEnvironments(depth)

	in := a.Intrinsics()
	protoParent, ctorParent := in.ObjectPrototype, in.FunctionPrototype
	if lit.SuperClass != nil {
		super, err := c.eval(lit.SuperClass, classEnv)
		if err != nil {
			return nil, err
		}
		switch {
		case super.IsNull():
			protoParent = nil
		case !super.IsConstructor():
			return nil, a.ThrowTypeError("Class extends value %s is not a constructor or null", super.String())
		default:
			pp, err := super.Object.Get(a, runtime.StringKey("prototype"))
			if err != nil {
				return nil, err
			}
			if !pp.IsObject() && !pp.IsNull() {
				return nil, a.ThrowTypeError("Class extends value does not have valid prototype property %s", pp.String())
			}
			protoParent, ctorParent = pp.AsObject(), super.Object
		}
	}

	proto := runtime.NewOrdinaryObject(protoParent)
	derived := lit.SuperClass != nil
	var ctorLit *ast.FunctionLiteral
	for _, el := range lit.Body {
		if m, ok := el.(*ast.MethodDefinition); ok && isConstructorMethod(m) {
			ctorLit = m.Body
		}
	}
	var code *runtime.FunctionCode
	if ctorLit != nil {
		code = c.compileFunction(ctorLit, codeOptions{classConstructor: true, derived: derived})
	} else {
		code = c.defaultConstructor(lit, derived)
	}
	cls := a.NewOrdinaryFunction(code, classEnv, ctorParent)
	runtime.MakeMethod(cls, proto)
	if err := runtime.DefinePropertyOrThrow(a, cls, runtime.StringKey("prototype"), runtime.DataDescriptor(runtime.NewObject(proto), false, false, false)); err != nil {
		return nil, err
	}
	if err := runtime.SetFunctionName(a, cls, key, ""); err != nil {
		return nil, err
	}
	if err := runtime.DefinePropertyOrThrow(a, proto, runtime.StringKey("constructor"), runtime.DataDescriptor(runtime.NewObject(cls), true, false, true)); err != nil {
		return nil, err
	}

	var (
		instanceFields  []*runtime.ClassField
		staticMethods   []*runtime.ClassField
		statics         []staticElement
		privateAccessor = make(map[*runtime.Symbol]*runtime.ClassField)
	)
	for _, el := range lit.Body {
		switch el := el.(type) {
		case *ast.MethodDefinition:
			if isConstructorMethod(el) {
				continue
			}
			home := proto
			if el.Static {
				home = cls
			}
			priv, ok := el.Key.(*ast.PrivateIdentifier)
			if !ok {
				k, err := c.propertyKey(el.Key, el.Computed, classEnv)
				if err != nil {
					return nil, err
				}
				if err := c.defineMethod(home, home, k, el.Kind, el.Body, classEnv, false); err != nil {
					return nil, err
				}
				continue
			}
			pk, err := c.privateKey(*priv, classEnv)
			if err != nil {
				return nil, err
			}
			fn, err := c.makeMethod(home, pk, el.Kind, el.Body, classEnv)
			if err != nil {
				return nil, err
			}
			field := privateAccessor[pk.Symbol()]
			if field == nil {
				field = &runtime.ClassField{Key: pk, Private: true, Method: true}
				privateAccessor[pk.Symbol()] = field
				if el.Static {
					staticMethods = append(staticMethods, field)
				} else {
					instanceFields = append(instanceFields, field)
				}
			}
			switch el.Kind {
			case ast.PropertyKindGet:
				field.Getter = fn
			case ast.PropertyKindSet:
				field.Setter = fn
			default:
				field.Initializer = fn
			}
		case *ast.FieldDefinition:
			home := proto
			if el.Static {
				home = cls
			}
			field, err := c.classField(el, home, classEnv)
			if err != nil {
				return nil, err
			}
			if el.Static {
				statics = append(statics, staticElement{field: field})
			} else {
				instanceFields = append(instanceFields, field)
			}
		case *ast.ClassStaticBlock:
			statics = append(statics, staticElement{block: c.staticBlock(el, cls, classEnv)})
		}
	}

	if bindingName != "" {
		if err := classEnv.InitializeBinding(a, bindingName, runtime.NewObject(cls)); err != nil {
			return nil, err
		}
	}
	runtime.SetFields(cls, instanceFields)
	for _, m := range staticMethods {
		if err := a.PrivateMethodAdd(cls, m); err != nil {
			return nil, err
		}
	}
	for _, s := range statics {
		if s.field != nil {
			if err := a.DefineFields(cls, []*runtime.ClassField{s.field}); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := a.Call(runtime.NewObject(s.block), runtime.NewObject(cls), nil); err != nil {
			return nil, err
		}
	}
	return cls, nil
}

func isConstructorMethod(m *ast.MethodDefinition) bool {
	if m.Static || m.Computed {
		return false
	}
	switch k := m.Key.(type) {
	case *ast.StringLiteral:
		return k.Value.String() == "constructor"
	case *ast.Identifier:
		return k.Name.String() == "constructor"
	}
	return false
}

// declarePrivateNames binds a fresh private symbol for every private name
// the class body declares.
func declarePrivateNames(lit *ast.ClassLiteral, env *runtime.Environment) {
	declare := func(key ast.Expression) {
		priv, ok := key.(*ast.PrivateIdentifier)
		if !ok {
			return
		}
		name := privateBindingName(*priv)
		if _, exists := env.Lookup(name); exists {
			return
		}
		env.Declare(name, runtime.BindingConst, runtime.NewSymbolValue(runtime.NewPrivateName(name)))
	}
	for _, el := range lit.Body {
		switch el := el.(type) {
		case *ast.MethodDefinition:
			declare(el.Key)
		case *ast.FieldDefinition:
			declare(el.Key)
		}
	}
}

// defaultConstructor returns the code of the implicit constructor. The
// derived form forwards its rest parameter to the parent constructor.
func (f *frame) defaultConstructor(lit *ast.ClassLiteral, derived bool) *runtime.FunctionCode {
	key := codeKey{node: lit, strict: true, opts: codeOptions{classConstructor: true, derived: derived}}
	if code, ok := f.functions[key]; ok {
		return code
	}
	code := &runtime.FunctionCode{
		Source:           lit.Source,
		Strict:           true,
		IsConstructor:    true,
		ClassConstructor: true,
		Derived:          derived,
	}
	if derived {
		code.Params = []runtime.Parameter{{
			Target: &ast.Identifier{Name: unistring.String("args")},
			Rest:   true,
			Names:  []string{"args"},
		}}
		code.ParameterNames = []string{"args"}
	}
	f.functions[key] = code
	return code
}

// classField evaluates the key of a field definition and wraps its
// initializer in a method of home.
func (f *frame) classField(el *ast.FieldDefinition, home *runtime.Object, env *runtime.Environment) (*runtime.ClassField, error) {
	field := &runtime.ClassField{}
	if priv, ok := el.Key.(*ast.PrivateIdentifier); ok {
		pk, err := f.privateKey(*priv, env)
		if err != nil {
			return nil, err
		}
		field.Key, field.Private = pk, true
	} else {
		k, err := f.propertyKey(el.Key, el.Computed, env)
		if err != nil {
			return nil, err
		}
		field.Key = k
	}
	if el.Initializer == nil {
		return field, nil
	}
	key := field.Key
	code := &runtime.FunctionCode{
		Body:   el.Initializer,
		Strict: true,
		Method: true,
		Extra:  &funcInfo{fieldKey: &key},
	}
	fn := f.a.NewOrdinaryFunction(code, env, nil)
	runtime.MakeMethod(fn, home)
	field.Initializer = fn
	return field, nil
}

func (f *frame) staticBlock(el *ast.ClassStaticBlock, cls *runtime.Object, env *runtime.Environment) *runtime.Object {
	key := codeKey{node: el, strict: true, opts: codeOptions{method: true}}
	code, ok := f.functions[key]
	if !ok {
		code = &runtime.FunctionCode{Body: el.Block, Strict: true, Method: true}
		f.functions[key] = code
	}
	fn := f.a.NewOrdinaryFunction(code, env, nil)
	runtime.MakeMethod(fn, cls)
	return fn
}
