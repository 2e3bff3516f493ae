package runtime

import "github.com/dop251/goja/ast"

// CompletionType is the kind of a completion record.
type CompletionType int

const (
	CompletionNormal CompletionType = iota
	CompletionReturn
	CompletionThrow
)

// Completion is the outcome of executing a function body.
type Completion struct {
	Type  CompletionType
	Value *Value
}

// Executor evaluates parsed code on behalf of the call engine. The engine
// owns environments and bindings; the executor owns statements and
// expressions.
type Executor interface {
	// Execute runs a function body in env, including the body-level
	// declaration instantiation.
	Execute(a *Agent, code *FunctionCode, env *Environment) (Completion, error)
	// Evaluate evaluates a single expression in env.
	Evaluate(a *Agent, expr ast.Expression, env *Environment) (*Value, error)
	// BindPattern initializes the bindings named by target in env with v.
	// With env nil the target is assigned through reference resolution.
	BindPattern(a *Agent, target ast.Expression, v *Value, env *Environment) error
	// CreateDynamicFunction compiles a function from source text.
	CreateDynamicFunction(a *Agent, kind FunctionKindHint, params []string, body string, newTarget *Object) (*Object, error)
	// EvalScript evaluates source text as a global script (indirect eval).
	EvalScript(a *Agent, source string) (*Value, error)
}

// FunctionKindHint selects the flavour of a dynamically created function.
type FunctionKindHint int

const (
	HintNormal FunctionKindHint = iota
	HintGenerator
	HintAsync
	HintAsyncGenerator
)
