package interpreter

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/example/jscore/runtime"
)

// directEval evaluates a call to eval by that name. The code sees the
// caller's scope; strict code gets a var environment of its own.
func (f *frame) directEval(args []*runtime.Value, env *runtime.Environment) (*runtime.Value, error) {
	if len(args) == 0 {
		return runtime.Undefined, nil
	}
	if !args[0].IsString() {
		return args[0], nil
	}
	return f.evalCode(args[0].Str, env, f.strict)
}

// EvalScript evaluates source as an indirect eval: global scope, with
// deletable var bindings.
func (in *Interpreter) EvalScript(a *runtime.Agent, source string) (*runtime.Value, error) {
	return in.frame(a, false).evalCode(source, a.GlobalEnv(), false)
}

func (f *frame) evalCode(source string, env *runtime.Environment, callerStrict bool) (*runtime.Value, error) {
	a := f.a
	prog, err := f.parse("<eval>", source)
	if err != nil {
		return nil, SyntaxError(a, err)
	}
	strict := callerStrict || hasUseStrict(prog.Body)
	ef := f.Interpreter.frame(a, strict)

	lexEnv := runtime.NewDeclarativeEnvironment(env)
	varEnv := env.VarScope()
	if strict {
		varEnv = lexEnv
	}
	depth := a.EnvironmentDepth()
	a.PushEnvironment(lexEnv)
	defer a.TruncateEnvironments(depth)

	sc := f.programScope(prog, strict)
	if err := ef.evalDeclarationInstantiation(sc, varEnv, lexEnv, strict); err != nil {
		return nil, err
	}
	sig, err := ef.execList(prog.Body, lexEnv)
	if err != nil {
		return nil, err
	}
	return orUndefined(sig.value), nil
}

func (f *frame) evalDeclarationInstantiation(sc *scope, varEnv, lexEnv *runtime.Environment, strict bool) error {
	a := f.a
	global := varEnv.Kind() == runtime.EnvGlobal
	varLike := append(append([]string(nil), sc.varNames...), sc.annexB...)
	for _, fn := range sc.functions {
		varLike = append(varLike, fn.Name.Name.String())
	}

	if !strict {
		for _, name := range varLike {
			if global && varEnv.HasLexicalDeclaration(name) {
				return a.ThrowSyntaxError("Identifier '%s' has already been declared", name)
			}
			for e := lexEnv.Outer(); e != nil && e != varEnv; e = e.Outer() {
				if e.Kind() == runtime.EnvObject {
					continue
				}
				if _, ok := e.Lookup(name); ok {
					return a.ThrowSyntaxError("Identifier '%s' has already been declared", name)
				}
			}
		}
	}
	if global {
		for _, fn := range sc.functions {
			name := fn.Name.Name.String()
			ok, err := varEnv.CanDeclareGlobalFunction(a, name)
			if err != nil {
				return err
			}
			if !ok {
				return a.ThrowTypeError("Cannot declare global function '%s'", name)
			}
		}
		for _, name := range sc.varNames {
			ok, err := varEnv.CanDeclareGlobalVar(a, name)
			if err != nil {
				return err
			}
			if !ok {
				return a.ThrowTypeError("Cannot declare global variable '%s'", name)
			}
		}
	}

	for _, l := range sc.lexical {
		if l.constant {
			lexEnv.CreateImmutableBinding(l.name, runtime.BindingConst, true)
		} else {
			lexEnv.CreateMutableBinding(l.name, runtime.BindingLet, false)
		}
	}
	for _, fn := range sc.functions {
		name := fn.Name.Name.String()
		obj := runtime.NewObject(f.instantiateFunction(fn, lexEnv))
		if global {
			if err := varEnv.CreateGlobalFunctionBinding(a, name, obj, true); err != nil {
				return err
			}
			continue
		}
		if _, ok := varEnv.Lookup(name); ok {
			if err := varEnv.SetMutableBinding(a, name, obj, false); err != nil {
				return err
			}
			continue
		}
		varEnv.CreateMutableBinding(name, runtime.BindingVar, true)
		if err := varEnv.InitializeBinding(a, name, obj); err != nil {
			return err
		}
	}
	for _, name := range append(append([]string(nil), sc.annexB...), sc.varNames...) {
		if global {
			if err := varEnv.CreateGlobalVarBinding(a, name, true); err != nil {
				return err
			}
			continue
		}
		if _, ok := varEnv.Lookup(name); ok {
			continue
		}
		varEnv.CreateMutableBinding(name, runtime.BindingVar, true)
		if err := varEnv.InitializeBinding(a, name, runtime.Undefined); err != nil {
			return err
		}
	}
	return nil
}

var dynamicPrefixes = map[runtime.FunctionKindHint]string{
	runtime.HintNormal:         "function",
	runtime.HintGenerator:      "function*",
	runtime.HintAsync:          "async function",
	runtime.HintAsyncGenerator: "async function*",
}

// CreateDynamicFunction compiles the function built by the Function family
// of constructors. The function closes over the global environment.
func (in *Interpreter) CreateDynamicFunction(a *runtime.Agent, kind runtime.FunctionKindHint, params []string, body string, newTarget *runtime.Object) (*runtime.Object, error) {
	src := fmt.Sprintf("(%s anonymous(%s\n) {\n%s\n})", dynamicPrefixes[kind], strings.Join(params, ","), body)
	prog, err := in.parse("anonymous", src)
	if err != nil {
		return nil, SyntaxError(a, err)
	}
	lit := dynamicFunctionLiteral(prog)
	if lit == nil {
		return nil, a.ThrowSyntaxError("Unexpected token in function body")
	}

	in2 := a.Intrinsics()
	fallback := in2.FunctionPrototype
	switch kind {
	case runtime.HintGenerator:
		fallback = in2.GeneratorFunctionPrototype
	case runtime.HintAsync:
		fallback = in2.AsyncFunctionPrototype
	case runtime.HintAsyncGenerator:
		fallback = in2.AsyncGeneratorFunctionPrototype
	}
	proto := fallback
	if newTarget != nil {
		if proto, err = runtime.GetPrototypeFromConstructor(a, newTarget, fallback); err != nil {
			return nil, err
		}
	}
	f := in.frame(a, false)
	return a.NewOrdinaryFunction(f.compileFunction(lit, codeOptions{}), a.GlobalEnv(), proto), nil
}

// dynamicFunctionLiteral extracts the single function expression a
// dynamic function source must consist of.
func dynamicFunctionLiteral(prog *ast.Program) *ast.FunctionLiteral {
	if len(prog.Body) != 1 {
		return nil
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil
	}
	lit, _ := stmt.Expression.(*ast.FunctionLiteral)
	return lit
}
