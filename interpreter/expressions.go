package interpreter

import (
	"math/big"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/example/jscore/runtime"
)

func (f *frame) eval(expr ast.Expression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	switch e := expr.(type) {
	case *ast.NullLiteral:
		return runtime.Null, nil
	case *ast.BooleanLiteral:
		return runtime.NewBool(e.Value), nil
	case *ast.NumberLiteral:
		switch n := e.Value.(type) {
		case int64:
			return runtime.NewInt(n), nil
		case float64:
			return runtime.NewNumber(n), nil
		case *big.Int:
			// The literal belongs to a possibly cached program.
			return runtime.NewBigInt(new(big.Int).Set(n)), nil
		}
		return nil, a.ThrowSyntaxError("invalid number literal %s", e.Literal)
	case *ast.StringLiteral:
		return runtime.NewString(e.Value.String()), nil
	case *ast.TemplateLiteral:
		return f.evalTemplate(e, env)
	case *ast.RegExpLiteral:
		re := a.Intrinsics().RegExp
		if re == nil {
			return nil, a.ThrowSyntaxError("regular expressions are not available")
		}
		obj, err := a.Construct(runtime.NewObject(re), []*runtime.Value{runtime.NewString(e.Pattern), runtime.NewString(e.Flags)}, nil)
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(obj), nil
	case *ast.ArrayLiteral:
		return f.evalArrayLiteral(e, env)
	case *ast.ObjectLiteral:
		return f.evalObjectLiteral(e, env)
	case *ast.Identifier:
		ref, err := f.resolveBinding(e.Name.String(), env)
		if err != nil {
			return nil, err
		}
		return f.getValue(ref)
	case *ast.ThisExpression:
		return f.thisBinding(env)
	case *ast.MetaProperty:
		if e.Meta.Name.String() == "new" && e.Property.Name.String() == "target" {
			return env.GetThisEnvironment().NewTarget(), nil
		}
		return nil, a.ThrowSyntaxError("Cannot use '%s.%s' outside a module", e.Meta.Name.String(), e.Property.Name.String())
	case *ast.FunctionLiteral:
		return f.functionExpression(e, env, nil)
	case *ast.ArrowFunctionLiteral:
		return f.arrowFunction(e, env, nil)
	case *ast.ClassLiteral:
		name := ""
		if e.Name != nil {
			name = e.Name.Name.String()
		}
		cls, err := f.classDefinitionEvaluation(e, name, runtime.StringKey(name), env)
		if err != nil {
			return nil, err
		}
		return runtime.NewObject(cls), nil
	case *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		ref, err := f.evalRef(expr, env)
		if err != nil {
			return nil, err
		}
		return f.getValue(ref)
	case *ast.OptionalChain:
		v, err := f.eval(e.Expression, env)
		if err == errShortCircuit {
			return runtime.Undefined, nil
		}
		return v, err
	case *ast.Optional:
		v, err := f.eval(e.Expression, env)
		if err != nil {
			return nil, err
		}
		if v.IsNullish() {
			return nil, errShortCircuit
		}
		return v, nil
	case *ast.CallExpression:
		return f.evalCall(e, env)
	case *ast.NewExpression:
		return f.evalNew(e, env)
	case *ast.UnaryExpression:
		return f.evalUnary(e, env)
	case *ast.BinaryExpression:
		return f.evalBinary(e, env)
	case *ast.AssignExpression:
		return f.evalAssign(e, env)
	case *ast.ConditionalExpression:
		test, err := f.eval(e.Test, env)
		if err != nil {
			return nil, err
		}
		if test.ToBoolean() {
			return f.eval(e.Consequent, env)
		}
		return f.eval(e.Alternate, env)
	case *ast.SequenceExpression:
		v := runtime.Undefined
		for _, item := range e.Sequence {
			var err error
			if v, err = f.eval(item, env); err != nil {
				return nil, err
			}
		}
		return v, nil
	case *ast.YieldExpression:
		if e.Delegate {
			return f.evalYieldStar(e, env)
		}
		v := runtime.Undefined
		if e.Argument != nil {
			var err error
			if v, err = f.eval(e.Argument, env); err != nil {
				return nil, err
			}
		}
		return a.Yield(v)
	case *ast.AwaitExpression:
		v, err := f.eval(e.Argument, env)
		if err != nil {
			return nil, err
		}
		return a.Await(v)
	case *ast.SuperExpression:
		return nil, a.ThrowSyntaxError("'super' keyword unexpected here")
	case *ast.BadExpression:
		return nil, a.ThrowSyntaxError("Unexpected token")
	}
	return nil, a.ThrowSyntaxError("unsupported expression %T", expr)
}

// thisBinding resolves this through the nearest environment that binds it.
func (f *frame) thisBinding(env *runtime.Environment) (*runtime.Value, error) {
	return env.GetThisEnvironment().GetThisBinding(f.a)
}

// propertyKey evaluates the key of an object literal, class element or
// pattern property.
func (f *frame) propertyKey(key ast.Expression, computed bool, env *runtime.Environment) (runtime.PropertyKey, error) {
	if !computed {
		switch k := key.(type) {
		case *ast.StringLiteral:
			return runtime.StringKey(k.Value.String()), nil
		case *ast.Identifier:
			return runtime.StringKey(k.Name.String()), nil
		}
	}
	v, err := f.eval(key, env)
	if err != nil {
		return runtime.PropertyKey{}, err
	}
	return v.ToPropertyKey(f.a)
}

func (f *frame) evalArguments(list []ast.Expression, env *runtime.Environment) ([]*runtime.Value, error) {
	args := make([]*runtime.Value, 0, len(list))
	for _, arg := range list {
		if spread, ok := arg.(*ast.SpreadElement); ok {
			v, err := f.eval(spread.Expression, env)
			if err != nil {
				return nil, err
			}
			items, err := runtime.IterableToList(f.a, v)
			if err != nil {
				return nil, err
			}
			args = append(args, items...)
			continue
		}
		v, err := f.eval(arg, env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// calleeAndThis evaluates a callee, keeping the base of member expressions
// as the this value.
func (f *frame) calleeAndThis(callee ast.Expression, env *runtime.Environment) (fn, this *runtime.Value, ref *reference, err error) {
	switch callee.(type) {
	case *ast.Identifier, *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		if ref, err = f.evalRef(callee, env); err != nil {
			return nil, nil, nil, err
		}
		if fn, err = f.getValue(ref); err != nil {
			return nil, nil, nil, err
		}
		return fn, ref.thisValue(), ref, nil
	}
	if fn, err = f.eval(callee, env); err != nil {
		return nil, nil, nil, err
	}
	return fn, runtime.Undefined, nil, nil
}

func (f *frame) evalCall(e *ast.CallExpression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	if _, ok := e.Callee.(*ast.SuperExpression); ok {
		return f.superCall(e.ArgumentList, env)
	}
	callee := e.Callee
	optional := false
	if opt, ok := callee.(*ast.Optional); ok {
		callee, optional = opt.Expression, true
	}
	fn, this, ref, err := f.calleeAndThis(callee, env)
	if err != nil {
		return nil, err
	}
	if optional && fn.IsNullish() {
		return nil, errShortCircuit
	}
	args, err := f.evalArguments(e.ArgumentList, env)
	if err != nil {
		return nil, err
	}
	if ref != nil && ref.kind == refBinding && ref.name == "eval" {
		if ev := a.Intrinsics().Eval; ev != nil && runtime.SameValue(fn, runtime.NewObject(ev)) {
			return f.directEval(args, env)
		}
	}
	if !fn.IsCallable() {
		return nil, a.ThrowTypeError("%s is not a function", describeExpr(callee))
	}
	return a.Call(fn, this, args)
}

func (f *frame) evalNew(e *ast.NewExpression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	ctor, err := f.eval(e.Callee, env)
	if err != nil {
		return nil, err
	}
	args, err := f.evalArguments(e.ArgumentList, env)
	if err != nil {
		return nil, err
	}
	if !ctor.IsConstructor() {
		return nil, a.ThrowTypeError("%s is not a constructor", describeExpr(e.Callee))
	}
	obj, err := a.Construct(ctor, args, nil)
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(obj), nil
}

func (f *frame) superCall(list []ast.Expression, env *runtime.Environment) (*runtime.Value, error) {
	thisEnv := env.GetThisEnvironment()
	if thisEnv.Kind() != runtime.EnvFunction || thisEnv.Function() == nil {
		return nil, f.a.ThrowSyntaxError("'super' keyword unexpected here")
	}
	args, err := f.evalArguments(list, env)
	if err != nil {
		return nil, err
	}
	return f.a.SuperCall(thisEnv, args)
}

// describeExpr renders a callee for error messages.
func describeExpr(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name.String()
	case *ast.DotExpression:
		return describeExpr(e.Left) + "." + e.Identifier.Name.String()
	case *ast.PrivateDotExpression:
		return describeExpr(e.Left) + "." + privateBindingName(e.Identifier)
	case *ast.BracketExpression:
		return describeExpr(e.Left) + "[...]"
	case *ast.ThisExpression:
		return "this"
	case *ast.SuperExpression:
		return "super"
	case *ast.CallExpression:
		return describeExpr(e.Callee) + "(...)"
	case *ast.Optional:
		return describeExpr(e.Expression)
	case *ast.OptionalChain:
		return describeExpr(e.Expression)
	}
	return "expression"
}

func (f *frame) evalUnary(e *ast.UnaryExpression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	switch e.Operator {
	case token.DELETE:
		return f.evalDelete(e.Operand, env)
	case token.TYPEOF:
		if id, ok := e.Operand.(*ast.Identifier); ok {
			ref, err := f.resolveBinding(id.Name.String(), env)
			if err != nil {
				return nil, err
			}
			if ref.kind == refUnresolvable {
				return runtime.NewString("undefined"), nil
			}
			v, err := f.getValue(ref)
			if err != nil {
				return nil, err
			}
			return runtime.NewString(runtime.TypeOf(v)), nil
		}
		v, err := f.eval(e.Operand, env)
		if err != nil {
			return nil, err
		}
		return runtime.NewString(runtime.TypeOf(v)), nil
	case token.VOID:
		if _, err := f.eval(e.Operand, env); err != nil {
			return nil, err
		}
		return runtime.Undefined, nil
	case token.INCREMENT, token.DECREMENT:
		ref, err := f.evalRef(e.Operand, env)
		if err != nil {
			return nil, err
		}
		old, err := f.getValue(ref)
		if err != nil {
			return nil, err
		}
		if old, err = old.ToNumeric(a); err != nil {
			return nil, err
		}
		delta := int64(1)
		if e.Operator == token.DECREMENT {
			delta = -1
		}
		updated := increment(old, delta)
		if err := f.putValue(ref, updated); err != nil {
			return nil, err
		}
		if e.Postfix {
			return old, nil
		}
		return updated, nil
	}
	v, err := f.eval(e.Operand, env)
	if err != nil {
		return nil, err
	}
	return unaryOp(a, e.Operator, v)
}

func (f *frame) evalDelete(operand ast.Expression, env *runtime.Environment) (*runtime.Value, error) {
	if chain, ok := operand.(*ast.OptionalChain); ok {
		v, err := f.evalDelete(chain.Expression, env)
		if err == errShortCircuit {
			return runtime.True, nil
		}
		return v, err
	}
	switch operand.(type) {
	case *ast.Identifier, *ast.DotExpression, *ast.BracketExpression:
	default:
		if _, err := f.eval(operand, env); err != nil {
			return nil, err
		}
		return runtime.True, nil
	}
	ref, err := f.evalRef(operand, env)
	if err != nil {
		return nil, err
	}
	ok, err := f.deleteRef(ref)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(ok), nil
}

func (f *frame) evalBinary(e *ast.BinaryExpression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	switch e.Operator {
	case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
		l, err := f.eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		if shortCircuits(e.Operator, l) {
			return l, nil
		}
		return f.eval(e.Right, env)
	}
	if priv, ok := e.Left.(*ast.PrivateIdentifier); ok {
		key, err := f.privateKey(*priv, env)
		if err != nil {
			return nil, err
		}
		r, err := f.eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		o := r.AsObject()
		if o == nil {
			return nil, a.ThrowTypeError("Cannot use 'in' operator to search for '%s' in %s", privateBindingName(*priv), r.String())
		}
		in, err := runtime.PrivateIn(o, key)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(in), nil
	}
	l, err := f.eval(e.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := f.eval(e.Right, env)
	if err != nil {
		return nil, err
	}
	return f.binaryOp(e.Operator, l, r)
}

// shortCircuits reports whether a logical operator returns its left operand.
func shortCircuits(op token.Token, l *runtime.Value) bool {
	switch op {
	case token.LOGICAL_AND:
		return !l.ToBoolean()
	case token.LOGICAL_OR:
		return l.ToBoolean()
	}
	return !l.IsNullish()
}

func (f *frame) evalAssign(e *ast.AssignExpression, env *runtime.Environment) (*runtime.Value, error) {
	if e.Operator == token.ASSIGN && isPattern(e.Left) {
		v, err := f.eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		if err := f.assignPattern(e.Left, v, env); err != nil {
			return nil, err
		}
		return v, nil
	}
	ref, err := f.evalRef(e.Left, env)
	if err != nil {
		return nil, err
	}
	rhs := func() (*runtime.Value, error) {
		if id, ok := e.Left.(*ast.Identifier); ok && isAnonymousFunctionDefinition(e.Right) {
			return f.namedEvaluation(e.Right, env, runtime.StringKey(id.Name.String()))
		}
		return f.eval(e.Right, env)
	}

	var v *runtime.Value
	switch e.Operator {
	case token.ASSIGN:
		if v, err = rhs(); err != nil {
			return nil, err
		}
	case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
		old, err := f.getValue(ref)
		if err != nil {
			return nil, err
		}
		if shortCircuits(e.Operator, old) {
			return old, nil
		}
		if v, err = rhs(); err != nil {
			return nil, err
		}
	default:
		old, err := f.getValue(ref)
		if err != nil {
			return nil, err
		}
		r, err := f.eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		if v, err = f.binaryOp(e.Operator, old, r); err != nil {
			return nil, err
		}
	}
	if err := f.putValue(ref, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *frame) evalArrayLiteral(e *ast.ArrayLiteral, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	arr, err := a.ArrayCreate(0, nil)
	if err != nil {
		return nil, err
	}
	var index int64
	for _, el := range e.Value {
		switch el := el.(type) {
		case nil:
			index++
		case *ast.SpreadElement:
			v, err := f.eval(el.Expression, env)
			if err != nil {
				return nil, err
			}
			items, err := runtime.IterableToList(a, v)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if err := runtime.CreateDataPropertyOrThrow(a, arr, runtime.IntKey(index), item); err != nil {
					return nil, err
				}
				index++
			}
		default:
			v, err := f.eval(el, env)
			if err != nil {
				return nil, err
			}
			if err := runtime.CreateDataPropertyOrThrow(a, arr, runtime.IntKey(index), v); err != nil {
				return nil, err
			}
			index++
		}
	}
	if err := arr.Set(a, runtime.StringKey("length"), runtime.NewInt(index), true); err != nil {
		return nil, err
	}
	return runtime.NewObject(arr), nil
}

func (f *frame) evalObjectLiteral(e *ast.ObjectLiteral, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	obj := a.NewPlainObject()
	for _, prop := range e.Value {
		switch p := prop.(type) {
		case *ast.PropertyShort:
			if p.Initializer != nil {
				return nil, a.ThrowSyntaxError("Invalid shorthand property initializer")
			}
			name := p.Name.Name.String()
			ref, err := f.resolveBinding(name, env)
			if err != nil {
				return nil, err
			}
			v, err := f.getValue(ref)
			if err != nil {
				return nil, err
			}
			if err := runtime.CreateDataPropertyOrThrow(a, obj, runtime.StringKey(name), v); err != nil {
				return nil, err
			}
		case *ast.SpreadElement:
			v, err := f.eval(p.Expression, env)
			if err != nil {
				return nil, err
			}
			if err := runtime.CopyDataProperties(a, obj, v, nil); err != nil {
				return nil, err
			}
		case *ast.PropertyKeyed:
			if err := f.defineLiteralProperty(obj, p, env); err != nil {
				return nil, err
			}
		default:
			return nil, a.ThrowSyntaxError("unsupported property %T", prop)
		}
	}
	return runtime.NewObject(obj), nil
}

func (f *frame) defineLiteralProperty(obj *runtime.Object, p *ast.PropertyKeyed, env *runtime.Environment) error {
	a := f.a
	key, err := f.propertyKey(p.Key, p.Computed, env)
	if err != nil {
		return err
	}
	switch p.Kind {
	case ast.PropertyKindGet, ast.PropertyKindSet, ast.PropertyKindMethod:
		lit, ok := p.Value.(*ast.FunctionLiteral)
		if !ok {
			return a.ThrowSyntaxError("invalid method definition")
		}
		return f.defineMethod(obj, obj, key, p.Kind, lit, env, true)
	}
	if !p.Computed && !key.IsSymbol() && key.Name() == "__proto__" {
		v, err := f.eval(p.Value, env)
		if err != nil {
			return err
		}
		if v.IsObject() || v.IsNull() {
			if _, err := obj.SetPrototypeOf(a, v.AsObject()); err != nil {
				return err
			}
		}
		return nil
	}
	var v *runtime.Value
	if isAnonymousFunctionDefinition(p.Value) {
		v, err = f.namedEvaluation(p.Value, env, key)
	} else {
		v, err = f.eval(p.Value, env)
	}
	if err != nil {
		return err
	}
	return runtime.CreateDataPropertyOrThrow(a, obj, key, v)
}

func (f *frame) evalTemplate(e *ast.TemplateLiteral, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	if e.Tag != nil {
		fn, this, _, err := f.calleeAndThis(e.Tag, env)
		if err != nil {
			return nil, err
		}
		args := []*runtime.Value{runtime.NewObject(f.templateObject(e))}
		for _, sub := range e.Expressions {
			v, err := f.eval(sub, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		if !fn.IsCallable() {
			return nil, a.ThrowTypeError("%s is not a function", describeExpr(e.Tag))
		}
		return a.Call(fn, this, args)
	}
	var sb strings.Builder
	for i, el := range e.Elements {
		sb.WriteString(el.Parsed.String())
		if i < len(e.Expressions) {
			v, err := f.eval(e.Expressions[i], env)
			if err != nil {
				return nil, err
			}
			s, err := v.ToString(a)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
	}
	return runtime.NewString(sb.String()), nil
}

// templateObject returns the frozen strings array passed to a tag. Each
// template site gets one object for the lifetime of the interpreter.
func (f *frame) templateObject(e *ast.TemplateLiteral) *runtime.Object {
	if obj, ok := f.templates[e]; ok {
		return obj
	}
	a := f.a
	cooked := make([]*runtime.Value, len(e.Elements))
	raw := make([]*runtime.Value, len(e.Elements))
	for i, el := range e.Elements {
		raw[i] = runtime.NewString(strings.ReplaceAll(el.Literal, "\r\n", "\n"))
		if el.Valid {
			cooked[i] = runtime.NewString(el.Parsed.String())
		} else {
			cooked[i] = runtime.Undefined
		}
	}
	strs := a.NewArray(cooked)
	rawObj := a.NewArray(raw)
	_, _ = runtime.SetIntegrityLevel(a, rawObj, runtime.Frozen)
	runtime.DefineRaw(strs, runtime.StringKey("raw"), runtime.NewObject(rawObj), runtime.AttrNone)
	_, _ = runtime.SetIntegrityLevel(a, strs, runtime.Frozen)
	f.templates[e] = strs
	return strs
}

// evalYieldStar delegates to an inner iterator, forwarding next, throw and
// return resumptions until it completes.
func (f *frame) evalYieldStar(e *ast.YieldExpression, env *runtime.Environment) (*runtime.Value, error) {
	a := f.a
	v, err := f.eval(e.Argument, env)
	if err != nil {
		return nil, err
	}
	async := f.asyncGenerator
	rec, err := runtime.GetIterator(a, v, async)
	if err != nil {
		return nil, err
	}
	iter := runtime.NewObject(rec.Iterator)

	settle := func(result *runtime.Value, err error) (*runtime.Value, error) {
		if err != nil {
			return nil, err
		}
		if async {
			if result, err = a.Await(result); err != nil {
				return nil, err
			}
		}
		if !result.IsObject() {
			return nil, a.ThrowTypeError("Iterator result %s is not an object", result.String())
		}
		return result, nil
	}

	mode, received := runtime.ResumeNext, runtime.Undefined
	for {
		var result *runtime.Value
		switch mode {
		case runtime.ResumeNext:
			if result, err = settle(a.Call(rec.Next, iter, []*runtime.Value{received})); err != nil {
				return nil, err
			}
		case runtime.ResumeThrow:
			method, err := runtime.GetMethod(a, iter, runtime.StringKey("throw"))
			if err != nil {
				return nil, err
			}
			if method == nil {
				cause := a.ThrowTypeError("The iterator does not provide a 'throw' method")
				return nil, rec.Close(a, cause)
			}
			if result, err = settle(a.Call(method, iter, []*runtime.Value{received})); err != nil {
				return nil, err
			}
		case runtime.ResumeReturn:
			method, err := runtime.GetMethod(a, iter, runtime.StringKey("return"))
			if err != nil {
				return nil, err
			}
			if method == nil {
				return nil, runtime.GeneratorReturn(received)
			}
			if result, err = settle(a.Call(method, iter, []*runtime.Value{received})); err != nil {
				return nil, err
			}
			done, err := runtime.IteratorComplete(a, result)
			if err != nil {
				return nil, err
			}
			if done {
				value, err := runtime.IteratorValue(a, result)
				if err != nil {
					return nil, err
				}
				return nil, runtime.GeneratorReturn(value)
			}
		}
		if mode != runtime.ResumeReturn {
			done, err := runtime.IteratorComplete(a, result)
			if err != nil {
				return nil, err
			}
			if done {
				return runtime.IteratorValue(a, result)
			}
		}
		if async {
			value, err := runtime.IteratorValue(a, result)
			if err != nil {
				return nil, err
			}
			mode, received, err = a.YieldResumption(value, false)
		} else {
			mode, received, err = a.YieldResumption(result, true)
		}
		if err != nil {
			return nil, err
		}
	}
}
