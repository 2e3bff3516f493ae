package interpreter

import (
	"reflect"

	"github.com/dop251/goja/ast"

	"github.com/example/jscore/runtime"
)

// funcInfo is the executor-specific data attached to a FunctionCode.
type funcInfo struct {
	// fieldKey names anonymous functions defined by a class field initializer.
	fieldKey *runtime.PropertyKey
}

type codeOptions struct {
	method           bool
	classConstructor bool
	derived          bool
}

type codeKey struct {
	node   ast.Node
	strict bool
	opts   codeOptions
}

// compileFunction returns the FunctionCode of a function literal, computing
// the parameter analysis once per literal.
func (f *frame) compileFunction(lit *ast.FunctionLiteral, opts codeOptions) *runtime.FunctionCode {
	strict := f.strict || opts.classConstructor || opts.derived || hasUseStrict(lit.Body.List)
	key := codeKey{node: lit, strict: strict, opts: opts}
	if code, ok := f.functions[key]; ok {
		return code
	}
	code := &runtime.FunctionCode{
		Body:      lit.Body,
		Source:    lit.Source,
		Strict:    strict,
		Generator: lit.Generator,
		Async:     lit.Async,
		Method:    opts.method,
	}
	if lit.Name != nil {
		code.Name = lit.Name.Name.String()
	}
	switch {
	case opts.classConstructor:
		code.IsConstructor = true
		code.ClassConstructor = true
		code.Derived = opts.derived
	case !opts.method && !lit.Async && !lit.Generator:
		code.IsConstructor = true
	}
	f.analyzeParameters(code, lit.ParameterList, lit.Body)
	f.functions[key] = code
	return code
}

// compileArrow returns the FunctionCode of an arrow function.
func (f *frame) compileArrow(lit *ast.ArrowFunctionLiteral) *runtime.FunctionCode {
	var body ast.Node
	var block *ast.BlockStatement
	strict := f.strict
	switch b := lit.Body.(type) {
	case *ast.BlockStatement:
		body, block = b, b
		strict = strict || hasUseStrict(b.List)
	case *ast.ExpressionBody:
		body = b.Expression
	}
	key := codeKey{node: lit, strict: strict}
	if code, ok := f.functions[key]; ok {
		return code
	}
	code := &runtime.FunctionCode{
		Body:        body,
		Source:      lit.Source,
		Strict:      strict,
		LexicalThis: true,
		Async:       lit.Async,
	}
	f.analyzeParameters(code, lit.ParameterList, block)
	f.functions[key] = code
	return code
}

func (f *frame) analyzeParameters(code *runtime.FunctionCode, params *ast.ParameterList, body *ast.BlockStatement) {
	lengthDone := false
	var nodes []ast.Node
	if params != nil {
		for _, b := range params.List {
			p := runtime.Parameter{Target: b.Target, Initializer: b.Initializer, Names: boundNames(b.Target)}
			code.Params = append(code.Params, p)
			code.ParameterNames = append(code.ParameterNames, p.Names...)
			if b.Initializer != nil || hasExpressions(b.Target) {
				code.HasParameterExpressions = true
			}
			if b.Initializer != nil {
				lengthDone = true
			}
			if !lengthDone {
				code.Length++
			}
			nodes = append(nodes, b)
		}
		if params.Rest != nil {
			p := runtime.Parameter{Target: params.Rest, Rest: true, Names: boundNames(params.Rest)}
			code.Params = append(code.Params, p)
			code.ParameterNames = append(code.ParameterNames, p.Names...)
			if hasExpressions(params.Rest) {
				code.HasParameterExpressions = true
			}
			nodes = append(nodes, params.Rest)
		}
	}
	for _, name := range code.ParameterNames {
		if name == "arguments" {
			code.ArgumentsInParameters = true
		}
	}
	if body != nil {
		nodes = append(nodes, body)
		sc := f.functionScope(body, code.Strict, code.ParameterNames)
		code.LexicalArgumentsName = sc.lexicallyDeclares("arguments")
	}
	for _, n := range nodes {
		if referencesArguments(n) {
			code.UsesArguments = true
			break
		}
	}
}

// hasExpressions reports whether a binding pattern evaluates code: default
// values or computed keys.
func hasExpressions(target ast.Node) bool {
	found := false
	inspect(target, func(n ast.Node) bool {
		switch p := n.(type) {
		case *ast.AssignExpression:
			found = true
		case *ast.PropertyShort:
			if p.Initializer != nil {
				found = true
			}
		case *ast.PropertyKeyed:
			if p.Computed {
				found = true
			}
		}
		return !found
	})
	return found
}

// referencesArguments reports whether n may read the arguments object of
// the enclosing function: by name, or through a direct eval.
func referencesArguments(n ast.Node) bool {
	found := false
	inspect(n, func(n ast.Node) bool {
		if found {
			return false
		}
		switch e := n.(type) {
		case *ast.FunctionLiteral:
			return false
		case *ast.Identifier:
			if e.Name.String() == "arguments" {
				found = true
			}
		case *ast.CallExpression:
			if id, ok := e.Callee.(*ast.Identifier); ok && id.Name.String() == "eval" {
				found = true
			}
		}
		return !found
	})
	return found
}

// inspect calls fn for n and, while fn returns true, for every AST node
// reachable from it in depth-first order.
func inspect(n ast.Node, fn func(ast.Node) bool) {
	if n == nil {
		return
	}
	rv := reflect.ValueOf(n)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return
	}
	if !fn(n) {
		return
	}
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		inspectFields(rv, fn)
	}
}

var nodeType = reflect.TypeOf((*ast.Node)(nil)).Elem()

func inspectFields(rv reflect.Value, fn func(ast.Node) bool) {
	t := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		inspectValue(rv.Field(i), fn)
	}
}

func inspectValue(v reflect.Value, fn func(ast.Node) bool) {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		inspectValue(v.Elem(), fn)
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if v.Type().Implements(nodeType) {
			inspect(v.Interface().(ast.Node), fn)
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			inspectValue(v.Index(i), fn)
		}
	case reflect.Struct:
		if v.CanAddr() && v.Addr().Type().Implements(nodeType) {
			inspect(v.Addr().Interface().(ast.Node), fn)
			return
		}
		inspectFields(v, fn)
	}
}

// instantiateFunction creates the function object of a declaration.
func (f *frame) instantiateFunction(lit *ast.FunctionLiteral, env *runtime.Environment) *runtime.Object {
	return f.a.NewOrdinaryFunction(f.compileFunction(lit, codeOptions{}), env, nil)
}

// functionExpression creates the closure of a function expression. A named
// expression gets its own scope binding its name.
func (f *frame) functionExpression(lit *ast.FunctionLiteral, env *runtime.Environment, name *runtime.PropertyKey) (*runtime.Value, error) {
	code := f.compileFunction(lit, codeOptions{})
	if lit.Name == nil {
		fn := f.a.NewOrdinaryFunction(code, env, nil)
		if name != nil {
			if err := runtime.SetFunctionName(f.a, fn, *name, ""); err != nil {
				return nil, err
			}
		}
		return runtime.NewObject(fn), nil
	}
	funcEnv := runtime.NewDeclarativeEnvironment(env)
	id := lit.Name.Name.String()
	funcEnv.CreateImmutableBinding(id, runtime.BindingFunction, false)
	fn := f.a.NewOrdinaryFunction(code, funcEnv, nil)
	if err := funcEnv.InitializeBinding(f.a, id, runtime.NewObject(fn)); err != nil {
		return nil, err
	}
	return runtime.NewObject(fn), nil
}

func (f *frame) arrowFunction(lit *ast.ArrowFunctionLiteral, env *runtime.Environment, name *runtime.PropertyKey) (*runtime.Value, error) {
	fn := f.a.NewOrdinaryFunction(f.compileArrow(lit), env, nil)
	if name != nil {
		if err := runtime.SetFunctionName(f.a, fn, *name, ""); err != nil {
			return nil, err
		}
	}
	return runtime.NewObject(fn), nil
}

// namedEvaluation evaluates expr, naming it after key when it is an
// anonymous function or class definition.
func (f *frame) namedEvaluation(expr ast.Expression, env *runtime.Environment, key runtime.PropertyKey) (*runtime.Value, error) {
	switch e := expr.(type) {
	case *ast.FunctionLiteral:
		if e.Name == nil {
			return f.functionExpression(e, env, &key)
		}
	case *ast.ArrowFunctionLiteral:
		return f.arrowFunction(e, env, &key)
	case *ast.ClassLiteral:
		if e.Name == nil {
			cls, err := f.classDefinitionEvaluation(e, "", key, env)
			if err != nil {
				return nil, err
			}
			return runtime.NewObject(cls), nil
		}
	}
	return f.eval(expr, env)
}

func isAnonymousFunctionDefinition(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.FunctionLiteral:
		return e.Name == nil
	case *ast.ArrowFunctionLiteral:
		return true
	case *ast.ClassLiteral:
		return e.Name == nil
	}
	return false
}

// defineMethod creates a method closure with home object home and defines
// it on target under key. kind is "method", "get" or "set".
func (f *frame) defineMethod(target, home *runtime.Object, key runtime.PropertyKey, kind ast.PropertyKind, lit *ast.FunctionLiteral, env *runtime.Environment, enumerable bool) error {
	fn, err := f.makeMethod(home, key, kind, lit, env)
	if err != nil {
		return err
	}
	var desc runtime.PropertyDescriptor
	switch kind {
	case ast.PropertyKindGet:
		desc = runtime.NewDescriptor().Get(runtime.NewObject(fn)).Enumerable(enumerable).Configurable(true).MustBuild()
	case ast.PropertyKindSet:
		desc = runtime.NewDescriptor().Set(runtime.NewObject(fn)).Enumerable(enumerable).Configurable(true).MustBuild()
	default:
		desc = runtime.DataDescriptor(runtime.NewObject(fn), true, enumerable, true)
	}
	return runtime.DefinePropertyOrThrow(f.a, target, key, desc)
}

func (f *frame) makeMethod(home *runtime.Object, key runtime.PropertyKey, kind ast.PropertyKind, lit *ast.FunctionLiteral, env *runtime.Environment) (*runtime.Object, error) {
	fn := f.a.NewOrdinaryFunction(f.compileFunction(lit, codeOptions{method: true}), env, nil)
	runtime.MakeMethod(fn, home)
	prefix := ""
	switch kind {
	case ast.PropertyKindGet:
		prefix = "get"
	case ast.PropertyKindSet:
		prefix = "set"
	}
	if err := runtime.SetFunctionName(f.a, fn, key, prefix); err != nil {
		return nil, err
	}
	return fn, nil
}
