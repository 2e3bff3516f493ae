package interpreter

import (
	"errors"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/example/jscore/runtime"
)

// Signal types for control flow. Throws travel as Go errors.
type signalType int

const (
	sigNone signalType = iota
	sigReturn
	sigBreak
	sigContinue
)

type signal struct {
	typ   signalType
	value *runtime.Value // nil when the completion value is empty
	label string         // for labeled break/continue
}

var normal = signal{}

func (s signal) abrupt() bool { return s.typ != sigNone }

// updateEmpty fills an empty completion value with v.
func (s signal) updateEmpty(v *runtime.Value) signal {
	if s.value == nil {
		s.value = v
	}
	return s
}

// errShortCircuit unwinds an optional chain to its OptionalChain node.
var errShortCircuit = errors.New("optional chain short circuit")

// Interpreter evaluates goja ASTs using tree-walking. One Interpreter serves
// one agent; it caches the compiled form of every function literal it has
// instantiated.
type Interpreter struct {
	functions map[codeKey]*runtime.FunctionCode
	scopes    map[ast.Node]*scope
	annexB    map[*ast.FunctionLiteral]bool
	templates map[*ast.TemplateLiteral]*runtime.Object
	parse     ParseFunc
}

// ParseFunc parses a script. Hosts install a caching parser with SetParser.
type ParseFunc func(name, source string) (*ast.Program, error)

// New returns an Interpreter ready to be installed with runtime.WithExecutor.
func New() *Interpreter {
	return &Interpreter{
		functions: make(map[codeKey]*runtime.FunctionCode),
		scopes:    make(map[ast.Node]*scope),
		annexB:    make(map[*ast.FunctionLiteral]bool),
		templates: make(map[*ast.TemplateLiteral]*runtime.Object),
		parse:     Parse,
	}
}

// SetParser replaces the parser used for eval, Function and scripts.
func (in *Interpreter) SetParser(p ParseFunc) {
	if p == nil {
		p = Parse
	}
	in.parse = p
}

// frame is the state of one evaluation: the agent, the strictness of the
// code being run and the label set awaiting the next breakable statement.
type frame struct {
	*Interpreter
	a      *runtime.Agent
	strict bool
	labels []string
	// asyncGenerator makes return await its operand.
	asyncGenerator bool
}

func (in *Interpreter) frame(a *runtime.Agent, strict bool) *frame {
	return &frame{Interpreter: in, a: a, strict: strict}
}

// Parse parses source as a script.
func Parse(name, source string) (*ast.Program, error) {
	return parser.ParseFile(nil, name, source, 0)
}

// SyntaxError converts a parse failure into a SyntaxError exception.
func SyntaxError(a *runtime.Agent, err error) error {
	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return a.ThrowSyntaxError("%s", list[0].Message)
	}
	var one *parser.Error
	if errors.As(err, &one) {
		return a.ThrowSyntaxError("%s", one.Message)
	}
	return a.ThrowSyntaxError("%s", err.Error())
}

// RunProgram evaluates a parsed script in the global environment and
// returns its completion value.
func (in *Interpreter) RunProgram(a *runtime.Agent, prog *ast.Program) (*runtime.Value, error) {
	f := in.frame(a, hasUseStrict(prog.Body))
	env := a.GlobalEnv()
	sc := in.programScope(prog, f.strict)
	if err := f.globalDeclarationInstantiation(sc, env); err != nil {
		return nil, err
	}
	depth := a.EnvironmentDepth()
	a.PushEnvironment(env)
	defer a.TruncateEnvironments(depth)
	sig, err := f.execList(prog.Body, env)
	if err != nil {
		return nil, err
	}
	if sig.value == nil {
		return runtime.Undefined, nil
	}
	return sig.value, nil
}

// Eval parses and evaluates source as a global script.
func (in *Interpreter) Eval(a *runtime.Agent, source string) (*runtime.Value, error) {
	prog, err := in.parse("<script>", source)
	if err != nil {
		return nil, SyntaxError(a, err)
	}
	return in.RunProgram(a, prog)
}

// Execute runs a function body in env, including the body-level
// declaration instantiation.
func (in *Interpreter) Execute(a *runtime.Agent, code *runtime.FunctionCode, env *runtime.Environment) (runtime.Completion, error) {
	f := in.frame(a, code.Strict)
	f.asyncGenerator = code.Async && code.Generator
	info, _ := code.Extra.(*funcInfo)

	switch body := code.Body.(type) {
	case nil:
		if code.Derived {
			args, err := env.GetIdentifier(a, "args", true)
			if err != nil {
				return runtime.Completion{}, err
			}
			list, err := runtime.CreateListFromArrayLike(a, args)
			if err != nil {
				return runtime.Completion{}, err
			}
			if _, err := a.SuperCall(env.GetThisEnvironment(), list); err != nil {
				return runtime.Completion{}, err
			}
		}
		return runtime.Completion{Type: runtime.CompletionNormal, Value: runtime.Undefined}, nil
	case *ast.BlockStatement:
		bodyEnv, err := f.functionBodyInstantiation(code, info, env)
		if err != nil {
			return runtime.Completion{}, err
		}
		sig, err := f.execList(body.List, bodyEnv)
		if err != nil {
			return runtime.Completion{}, err
		}
		if sig.typ == sigReturn {
			return runtime.Completion{Type: runtime.CompletionReturn, Value: orUndefined(sig.value)}, nil
		}
		return runtime.Completion{Type: runtime.CompletionNormal, Value: runtime.Undefined}, nil
	case ast.Expression:
		var (
			v   *runtime.Value
			err error
		)
		if info != nil && info.fieldKey != nil {
			v, err = f.namedEvaluation(body, env, *info.fieldKey)
		} else {
			v, err = f.eval(body, env)
		}
		if err != nil {
			return runtime.Completion{}, err
		}
		return runtime.Completion{Type: runtime.CompletionReturn, Value: v}, nil
	}
	return runtime.Completion{}, a.ThrowTypeError("unsupported function body %T", code.Body)
}

// Evaluate evaluates a single expression in env.
func (in *Interpreter) Evaluate(a *runtime.Agent, expr ast.Expression, env *runtime.Environment) (*runtime.Value, error) {
	return in.frame(a, strictOf(env)).eval(expr, env)
}

// BindPattern initializes the bindings named by target in env with v. With
// env nil the target is assigned through reference resolution in the
// running environment.
func (in *Interpreter) BindPattern(a *runtime.Agent, target ast.Expression, v *runtime.Value, env *runtime.Environment) error {
	if env == nil {
		cur := a.CurrentEnvironment()
		return in.frame(a, strictOf(cur)).assignPattern(target, v, cur)
	}
	return in.frame(a, strictOf(env)).bindPattern(target, v, env, env)
}

// strictOf reports the strictness of the function owning env.
func strictOf(env *runtime.Environment) bool {
	for e := env; e != nil; e = e.Outer() {
		if e.Kind() != runtime.EnvFunction {
			continue
		}
		if fd, ok := e.Function().Data().(*runtime.FunctionData); ok && fd.Code != nil {
			return fd.Code.Strict
		}
	}
	return false
}

func hasUseStrict(body []ast.Statement) bool {
	for _, stmt := range body {
		es, ok := stmt.(*ast.ExpressionStatement)
		if !ok {
			return false
		}
		lit, ok := es.Expression.(*ast.StringLiteral)
		if !ok {
			return false
		}
		raw := strings.Trim(lit.Literal, `"'`)
		if raw == "use strict" {
			return true
		}
	}
	return false
}

func orUndefined(v *runtime.Value) *runtime.Value {
	if v == nil {
		return runtime.Undefined
	}
	return v
}
