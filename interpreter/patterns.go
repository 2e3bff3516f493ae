package interpreter

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/example/jscore/runtime"
)

// bindPattern binds v to target. With env set, identifiers initialize
// bindings of env; with env nil they are assigned through reference
// resolution. Default values and computed keys evaluate in evalEnv.
func (f *frame) bindPattern(target ast.Expression, v *runtime.Value, env, evalEnv *runtime.Environment) error {
	return f.destructure(target, v, patternTarget{env: env, scope: evalEnv})
}

// assignPattern performs a destructuring assignment to target.
func (f *frame) assignPattern(target ast.Expression, v *runtime.Value, env *runtime.Environment) error {
	return f.destructure(target, v, patternTarget{scope: env})
}

type patternTarget struct {
	env   *runtime.Environment
	scope *runtime.Environment
}

func isPattern(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.ArrayPattern, *ast.ObjectPattern:
		return true
	}
	return false
}

// splitDefault separates a pattern element from its default value.
func splitDefault(expr ast.Expression) (ast.Expression, ast.Expression) {
	if as, ok := expr.(*ast.AssignExpression); ok && as.Operator == token.ASSIGN {
		return as.Left, as.Right
	}
	return expr, nil
}

func (f *frame) destructure(target ast.Expression, v *runtime.Value, t patternTarget) error {
	switch p := target.(type) {
	case *ast.ArrayPattern:
		return f.destructureArray(p, v, t)
	case *ast.ObjectPattern:
		return f.destructureObject(p, v, t)
	}
	ref, err := f.leafRef(target, t)
	if err != nil {
		return err
	}
	return f.leafStore(target, ref, v, t)
}

// leafRef evaluates the reference of a non-pattern element ahead of its
// value. It returns nil for patterns and for bindings initialized in place.
func (f *frame) leafRef(target ast.Expression, t patternTarget) (*reference, error) {
	if isPattern(target) {
		return nil, nil
	}
	if _, ok := target.(*ast.Identifier); ok && t.env != nil {
		return nil, nil
	}
	return f.evalRef(target, t.scope)
}

func (f *frame) leafStore(target ast.Expression, ref *reference, v *runtime.Value, t patternTarget) error {
	if isPattern(target) {
		return f.destructure(target, v, t)
	}
	if ref != nil {
		return f.putValue(ref, v)
	}
	id := target.(*ast.Identifier)
	return t.env.InitializeBinding(f.a, id.Name.String(), v)
}

func (f *frame) applyDefault(target, def ast.Expression, v *runtime.Value, t patternTarget) (*runtime.Value, error) {
	if def == nil || !v.IsUndefined() {
		return v, nil
	}
	if id, ok := target.(*ast.Identifier); ok && isAnonymousFunctionDefinition(def) {
		return f.namedEvaluation(def, t.scope, runtime.StringKey(id.Name.String()))
	}
	return f.eval(def, t.scope)
}

func (f *frame) destructureArray(p *ast.ArrayPattern, v *runtime.Value, t patternTarget) error {
	rec, err := runtime.GetIterator(f.a, v, false)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		if rec.Done || !runtime.IsCatchable(err) {
			return err
		}
		return rec.Close(f.a, err)
	}
	step := func() (*runtime.Value, error) {
		if rec.Done {
			return runtime.Undefined, nil
		}
		next, ok, err := rec.Step(f.a)
		if err != nil {
			rec.Done = true
			return nil, err
		}
		if !ok {
			return runtime.Undefined, nil
		}
		return next, nil
	}

	for _, el := range p.Elements {
		if el == nil {
			if _, err := step(); err != nil {
				return err
			}
			continue
		}
		target, def := splitDefault(el)
		ref, err := f.leafRef(target, t)
		if err != nil {
			return fail(err)
		}
		val, err := step()
		if err != nil {
			return err
		}
		if val, err = f.applyDefault(target, def, val, t); err != nil {
			return fail(err)
		}
		if err := f.leafStore(target, ref, val, t); err != nil {
			return fail(err)
		}
	}
	if p.Rest != nil {
		ref, err := f.leafRef(p.Rest, t)
		if err != nil {
			return fail(err)
		}
		var rest []*runtime.Value
		for !rec.Done {
			next, err := step()
			if err != nil {
				return err
			}
			if !rec.Done {
				rest = append(rest, next)
			}
		}
		if err := f.leafStore(p.Rest, ref, f.a.NewArrayValue(rest), t); err != nil {
			return err
		}
	}
	if !rec.Done {
		return rec.Close(f.a, nil)
	}
	return nil
}

func (f *frame) destructureObject(p *ast.ObjectPattern, v *runtime.Value, t patternTarget) error {
	a := f.a
	if v.IsNullish() {
		return a.ThrowTypeError("Cannot destructure '%s' as it is %s.", v.String(), v.String())
	}
	var used []runtime.PropertyKey
	for _, prop := range p.Properties {
		switch prop := prop.(type) {
		case *ast.PropertyShort:
			name := prop.Name.Name.String()
			key := runtime.StringKey(name)
			used = append(used, key)
			var ref *reference
			if t.env == nil {
				var err error
				if ref, err = f.resolveBinding(name, t.scope); err != nil {
					return err
				}
			}
			val, err := runtime.GetV(a, v, key)
			if err != nil {
				return err
			}
			if val, err = f.applyDefault(&prop.Name, prop.Initializer, val, t); err != nil {
				return err
			}
			if err := f.leafStore(&prop.Name, ref, val, t); err != nil {
				return err
			}
		case *ast.PropertyKeyed:
			key, err := f.propertyKey(prop.Key, prop.Computed, t.scope)
			if err != nil {
				return err
			}
			used = append(used, key)
			target, def := splitDefault(prop.Value)
			ref, err := f.leafRef(target, t)
			if err != nil {
				return err
			}
			val, err := runtime.GetV(a, v, key)
			if err != nil {
				return err
			}
			if val, err = f.applyDefault(target, def, val, t); err != nil {
				return err
			}
			if err := f.leafStore(target, ref, val, t); err != nil {
				return err
			}
		default:
			return a.ThrowSyntaxError("unsupported pattern property %T", prop)
		}
	}
	if p.Rest == nil {
		return nil
	}
	ref, err := f.leafRef(p.Rest, t)
	if err != nil {
		return err
	}
	rest := a.NewPlainObject()
	if err := runtime.CopyDataProperties(a, rest, v, used); err != nil {
		return err
	}
	return f.leafStore(p.Rest, ref, runtime.NewObject(rest), t)
}
