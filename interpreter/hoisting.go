package interpreter

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/example/jscore/runtime"
)

// scope is the declaration analysis of a script, function body or block.
type scope struct {
	// varNames are the var-declared names, excluding function declarations.
	varNames []string
	// functions are the function declarations to instantiate, last one
	// winning for each name.
	functions []*ast.FunctionLiteral
	lexical   []lexicalName
	// annexB are the names of block-level functions that also get a var
	// binding in sloppy code.
	annexB []string
}

type lexicalName struct {
	name     string
	constant bool
}

func (sc *scope) lexicallyDeclares(name string) bool {
	for _, l := range sc.lexical {
		if l.name == name {
			return true
		}
	}
	for _, fn := range sc.functions {
		if fn.Name != nil && fn.Name.Name.String() == name {
			return true
		}
	}
	return false
}

func (sc *scope) empty() bool {
	return len(sc.lexical) == 0 && len(sc.functions) == 0
}

// programScope analyses the top level of a script or eval body.
func (in *Interpreter) programScope(prog *ast.Program, strict bool) *scope {
	if sc, ok := in.scopes[prog]; ok {
		return sc
	}
	sc := in.topLevelScope(prog.Body, strict, nil)
	in.scopes[prog] = sc
	return sc
}

// functionScope analyses the top level of a function body.
func (in *Interpreter) functionScope(body *ast.BlockStatement, strict bool, params []string) *scope {
	if sc, ok := in.scopes[body]; ok {
		return sc
	}
	sc := in.topLevelScope(body.List, strict, params)
	in.scopes[body] = sc
	return sc
}

func (in *Interpreter) topLevelScope(list []ast.Statement, strict bool, params []string) *scope {
	sc := &scope{}
	seen := make(map[string]bool)
	fnIndex := make(map[string]int)
	for _, stmt := range list {
		stmt = unlabel(stmt)
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			name := s.Function.Name.Name.String()
			if i, ok := fnIndex[name]; ok {
				sc.functions[i] = s.Function
				continue
			}
			fnIndex[name] = len(sc.functions)
			sc.functions = append(sc.functions, s.Function)
		case *ast.LexicalDeclaration:
			for _, b := range s.List {
				for _, name := range boundNames(b.Target) {
					sc.lexical = append(sc.lexical, lexicalName{name: name, constant: s.Token == token.CONST})
				}
			}
		case *ast.ClassDeclaration:
			if s.Class.Name != nil {
				sc.lexical = append(sc.lexical, lexicalName{name: s.Class.Name.Name.String()})
			}
		default:
			collectVarNames(stmt, func(name string) {
				if !seen[name] {
					seen[name] = true
					sc.varNames = append(sc.varNames, name)
				}
			})
		}
	}
	if strict {
		return sc
	}

	blocked := make(map[string]bool)
	for _, l := range sc.lexical {
		blocked[l.name] = true
	}
	for _, p := range params {
		blocked[p] = true
	}
	for _, stmt := range list {
		if _, ok := unlabel(stmt).(*ast.FunctionDeclaration); ok {
			continue
		}
		collectBlockFunctions(stmt, func(fn *ast.FunctionLiteral) {
			name := fn.Name.Name.String()
			if blocked[name] {
				return
			}
			in.annexB[fn] = true
			if _, ok := fnIndex[name]; ok || seen[name] {
				return
			}
			seen[name] = true
			sc.annexB = append(sc.annexB, name)
		})
	}
	return sc
}

// blockScope analyses the lexical declarations of a statement list that
// forms a block: a block statement, the cases of a switch, or a class
// static block.
func (in *Interpreter) blockScope(node ast.Node, list []ast.Statement) *scope {
	if sc, ok := in.scopes[node]; ok {
		return sc
	}
	sc := &scope{}
	for _, stmt := range list {
		collectLexical(sc, stmt)
	}
	in.scopes[node] = sc
	return sc
}

func (in *Interpreter) switchScope(s *ast.SwitchStatement) *scope {
	if sc, ok := in.scopes[s]; ok {
		return sc
	}
	sc := &scope{}
	for _, c := range s.Body {
		for _, stmt := range c.Consequent {
			collectLexical(sc, stmt)
		}
	}
	in.scopes[s] = sc
	return sc
}

func collectLexical(sc *scope, stmt ast.Statement) {
	switch s := unlabel(stmt).(type) {
	case *ast.FunctionDeclaration:
		name := s.Function.Name.Name.String()
		for i, fn := range sc.functions {
			if fn.Name.Name.String() == name {
				sc.functions[i] = s.Function
				return
			}
		}
		sc.functions = append(sc.functions, s.Function)
	case *ast.LexicalDeclaration:
		for _, b := range s.List {
			for _, name := range boundNames(b.Target) {
				sc.lexical = append(sc.lexical, lexicalName{name: name, constant: s.Token == token.CONST})
			}
		}
	case *ast.ClassDeclaration:
		if s.Class.Name != nil {
			sc.lexical = append(sc.lexical, lexicalName{name: s.Class.Name.Name.String()})
		}
	}
}

func unlabel(stmt ast.Statement) ast.Statement {
	for {
		l, ok := stmt.(*ast.LabelledStatement)
		if !ok {
			return stmt
		}
		stmt = l.Statement
	}
}

// collectVarNames reports every var-declared name in stmt without
// entering nested functions.
func collectVarNames(stmt ast.Statement, add func(string)) {
	switch s := stmt.(type) {
	case *ast.VariableStatement:
		for _, b := range s.List {
			for _, name := range boundNames(b.Target) {
				add(name)
			}
		}
	case *ast.BlockStatement:
		for _, st := range s.List {
			collectVarNames(st, add)
		}
	case *ast.IfStatement:
		collectVarNames(s.Consequent, add)
		if s.Alternate != nil {
			collectVarNames(s.Alternate, add)
		}
	case *ast.ForStatement:
		if init, ok := s.Initializer.(*ast.ForLoopInitializerVarDeclList); ok {
			for _, b := range init.List {
				for _, name := range boundNames(b.Target) {
					add(name)
				}
			}
		}
		collectVarNames(s.Body, add)
	case *ast.ForInStatement:
		if v, ok := s.Into.(*ast.ForIntoVar); ok {
			for _, name := range boundNames(v.Binding.Target) {
				add(name)
			}
		}
		collectVarNames(s.Body, add)
	case *ast.ForOfStatement:
		if v, ok := s.Into.(*ast.ForIntoVar); ok {
			for _, name := range boundNames(v.Binding.Target) {
				add(name)
			}
		}
		collectVarNames(s.Body, add)
	case *ast.WhileStatement:
		collectVarNames(s.Body, add)
	case *ast.DoWhileStatement:
		collectVarNames(s.Body, add)
	case *ast.WithStatement:
		collectVarNames(s.Body, add)
	case *ast.LabelledStatement:
		collectVarNames(s.Statement, add)
	case *ast.TryStatement:
		collectVarNames(s.Body, add)
		if s.Catch != nil {
			collectVarNames(s.Catch.Body, add)
		}
		if s.Finally != nil {
			collectVarNames(s.Finally, add)
		}
	case *ast.SwitchStatement:
		for _, c := range s.Body {
			for _, st := range c.Consequent {
				collectVarNames(st, add)
			}
		}
	}
}

// collectBlockFunctions reports plain function declarations nested in
// blocks below stmt, the candidates for var hoisting in sloppy code.
func collectBlockFunctions(stmt ast.Statement, add func(*ast.FunctionLiteral)) {
	var inBlock func(list []ast.Statement)
	var visit func(stmt ast.Statement)
	inBlock = func(list []ast.Statement) {
		for _, st := range list {
			if fd, ok := unlabel(st).(*ast.FunctionDeclaration); ok {
				if !fd.Function.Async && !fd.Function.Generator {
					add(fd.Function)
				}
				continue
			}
			visit(st)
		}
	}
	visit = func(stmt ast.Statement) {
		switch s := stmt.(type) {
		case *ast.BlockStatement:
			inBlock(s.List)
		case *ast.IfStatement:
			inBlock([]ast.Statement{s.Consequent})
			if s.Alternate != nil {
				inBlock([]ast.Statement{s.Alternate})
			}
		case *ast.ForStatement:
			visit(s.Body)
		case *ast.ForInStatement:
			visit(s.Body)
		case *ast.ForOfStatement:
			visit(s.Body)
		case *ast.WhileStatement:
			visit(s.Body)
		case *ast.DoWhileStatement:
			visit(s.Body)
		case *ast.WithStatement:
			visit(s.Body)
		case *ast.LabelledStatement:
			visit(s.Statement)
		case *ast.TryStatement:
			visit(s.Body)
			if s.Catch != nil {
				visit(s.Catch.Body)
			}
			if s.Finally != nil {
				visit(s.Finally)
			}
		case *ast.SwitchStatement:
			for _, c := range s.Body {
				inBlock(c.Consequent)
			}
		}
	}
	visit(stmt)
}

// boundNames lists the identifiers bound by a binding target.
func boundNames(target ast.Node) []string {
	var names []string
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Identifier:
			names = append(names, t.Name.String())
		case *ast.AssignExpression:
			walk(t.Left)
		case *ast.ArrayPattern:
			for _, el := range t.Elements {
				if el != nil {
					walk(el)
				}
			}
			if t.Rest != nil {
				walk(t.Rest)
			}
		case *ast.ObjectPattern:
			for _, p := range t.Properties {
				switch p := p.(type) {
				case *ast.PropertyShort:
					names = append(names, p.Name.Name.String())
				case *ast.PropertyKeyed:
					walk(p.Value)
				}
			}
			if t.Rest != nil {
				walk(t.Rest)
			}
		case *ast.Binding:
			walk(t.Target)
		}
	}
	walk(target)
	return names
}

// globalDeclarationInstantiation creates the bindings of a script in the
// global environment, rejecting conflicts before anything is created.
func (f *frame) globalDeclarationInstantiation(sc *scope, env *runtime.Environment) error {
	a := f.a
	for _, l := range sc.lexical {
		if env.HasVarDeclaration(l.name) || env.HasLexicalDeclaration(l.name) {
			return a.ThrowSyntaxError("Identifier '%s' has already been declared", l.name)
		}
		restricted, err := env.HasRestrictedGlobalProperty(a, l.name)
		if err != nil {
			return err
		}
		if restricted {
			return a.ThrowSyntaxError("Identifier '%s' has already been declared", l.name)
		}
	}
	varLike := append(append([]string(nil), sc.varNames...), sc.annexB...)
	for _, fn := range sc.functions {
		varLike = append(varLike, fn.Name.Name.String())
	}
	for _, name := range varLike {
		if env.HasLexicalDeclaration(name) {
			return a.ThrowSyntaxError("Identifier '%s' has already been declared", name)
		}
	}
	for _, fn := range sc.functions {
		name := fn.Name.Name.String()
		ok, err := env.CanDeclareGlobalFunction(a, name)
		if err != nil {
			return err
		}
		if !ok {
			return a.ThrowTypeError("Cannot declare global function '%s'", name)
		}
	}
	for _, name := range sc.varNames {
		ok, err := env.CanDeclareGlobalVar(a, name)
		if err != nil {
			return err
		}
		if !ok {
			return a.ThrowTypeError("Cannot declare global variable '%s'", name)
		}
	}

	for _, l := range sc.lexical {
		if l.constant {
			env.CreateImmutableBinding(l.name, runtime.BindingConst, true)
		} else {
			env.CreateMutableBinding(l.name, runtime.BindingLet, false)
		}
	}
	for _, fn := range sc.functions {
		obj := f.instantiateFunction(fn, env)
		if err := env.CreateGlobalFunctionBinding(f.a, fn.Name.Name.String(), runtime.NewObject(obj), false); err != nil {
			return err
		}
	}
	for _, name := range sc.annexB {
		ok, err := env.CanDeclareGlobalFunction(a, name)
		if err != nil {
			return err
		}
		if ok {
			if err := env.CreateGlobalVarBinding(a, name, false); err != nil {
				return err
			}
		}
	}
	for _, name := range sc.varNames {
		if err := env.CreateGlobalVarBinding(a, name, false); err != nil {
			return err
		}
	}
	return nil
}

// functionBodyInstantiation performs the body half of function declaration
// instantiation: var, function and lexical bindings. It returns the
// environment the body statements run in.
func (f *frame) functionBodyInstantiation(code *runtime.FunctionCode, info *funcInfo, env *runtime.Environment) (*runtime.Environment, error) {
	body := code.Body.(*ast.BlockStatement)
	sc := f.functionScope(body, code.Strict, code.ParameterNames)

	params := make(map[string]bool, len(code.ParameterNames))
	for _, p := range code.ParameterNames {
		params[p] = true
	}
	hasArguments := code.NeedsArgumentsObject()

	varEnv := env
	declareVar := func(name string) {
		if _, ok := varEnv.Lookup(name); ok {
			return
		}
		initial := runtime.Undefined
		if code.HasParameterExpressions && (params[name] || (hasArguments && name == "arguments")) {
			if v, err := env.Outer().GetBindingValue(f.a, name, false); err == nil {
				initial = v
			}
		}
		varEnv.Declare(name, runtime.BindingVar, initial)
	}
	for _, name := range sc.varNames {
		if !code.HasParameterExpressions && (params[name] || (hasArguments && name == "arguments")) {
			continue
		}
		declareVar(name)
	}
	for _, name := range sc.annexB {
		declareVar(name)
	}

	lexEnv := varEnv
	if !code.Strict && len(sc.lexical) > 0 {
		lexEnv = runtime.NewDeclarativeEnvironment(varEnv)
		f.a.PushEnvironment(lexEnv)
	}
	for _, l := range sc.lexical {
		if l.constant {
			lexEnv.CreateImmutableBinding(l.name, runtime.BindingConst, true)
		} else {
			lexEnv.CreateMutableBinding(l.name, runtime.BindingLet, false)
		}
	}
	for _, fn := range sc.functions {
		obj := f.instantiateFunction(fn, lexEnv)
		varEnv.Declare(fn.Name.Name.String(), runtime.BindingVar, runtime.NewObject(obj))
	}
	return lexEnv, nil
}

// blockDeclarationInstantiation creates the environment of a block when it
// declares anything lexically. Function declarations are initialized
// immediately.
func (f *frame) blockDeclarationInstantiation(sc *scope, env *runtime.Environment) *runtime.Environment {
	if sc.empty() {
		return env
	}
	blockEnv := runtime.NewDeclarativeEnvironment(env)
	for _, l := range sc.lexical {
		if l.constant {
			blockEnv.CreateImmutableBinding(l.name, runtime.BindingConst, true)
		} else {
			blockEnv.CreateMutableBinding(l.name, runtime.BindingLet, false)
		}
	}
	for _, fn := range sc.functions {
		obj := f.instantiateFunction(fn, blockEnv)
		blockEnv.Declare(fn.Name.Name.String(), runtime.BindingFunction, runtime.NewObject(obj))
	}
	return blockEnv
}
