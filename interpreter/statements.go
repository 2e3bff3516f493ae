package interpreter

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/example/jscore/runtime"
)

func (f *frame) execList(list []ast.Statement, env *runtime.Environment) (signal, error) {
	var last *runtime.Value
	for _, stmt := range list {
		sig, err := f.exec(stmt, env)
		if err != nil {
			return signal{}, err
		}
		if sig.value != nil {
			last = sig.value
		}
		if sig.abrupt() {
			return sig.updateEmpty(last), nil
		}
	}
	return signal{value: last}, nil
}

// exec runs one statement. Labels collected by enclosing labelled
// statements apply to the statement directly below them only.
func (f *frame) exec(stmt ast.Statement, env *runtime.Environment) (signal, error) {
	if err := f.a.Tick(); err != nil {
		return signal{}, err
	}
	labels := f.labels
	f.labels = nil

	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		v, err := f.eval(s.Expression, env)
		if err != nil {
			return signal{}, err
		}
		return signal{value: v}, nil
	case *ast.VariableStatement:
		return normal, f.execBindings(s.List, env, false)
	case *ast.LexicalDeclaration:
		return normal, f.execBindings(s.List, env, true)
	case *ast.FunctionDeclaration:
		return normal, f.execFunctionDeclaration(s, env)
	case *ast.ClassDeclaration:
		name := s.Class.Name.Name.String()
		cls, err := f.classDefinitionEvaluation(s.Class, name, runtime.StringKey(name), env)
		if err != nil {
			return signal{}, err
		}
		return normal, env.InitializeBinding(f.a, name, runtime.NewObject(cls))
	case *ast.BlockStatement:
		return f.execBlock(s, env)
	case *ast.EmptyStatement, *ast.DebuggerStatement:
		return normal, nil
	case *ast.IfStatement:
		return f.execIf(s, env)
	case *ast.WhileStatement:
		return f.execWhile(s, env, labels)
	case *ast.DoWhileStatement:
		return f.execDoWhile(s, env, labels)
	case *ast.ForStatement:
		return f.execFor(s, env, labels)
	case *ast.ForInStatement:
		return f.execForIn(s, env, labels)
	case *ast.ForOfStatement:
		return f.execForOf(s, env, labels)
	case *ast.SwitchStatement:
		return f.execSwitch(s, env)
	case *ast.LabelledStatement:
		label := s.Label.Name.String()
		f.labels = append(labels, label)
		sig, err := f.exec(s.Statement, env)
		f.labels = nil
		if err != nil {
			return signal{}, err
		}
		if sig.typ == sigBreak && sig.label == label {
			return signal{value: sig.value}, nil
		}
		return sig, nil
	case *ast.BranchStatement:
		sig := signal{typ: sigBreak}
		if s.Token == token.CONTINUE {
			sig.typ = sigContinue
		}
		if s.Label != nil {
			sig.label = s.Label.Name.String()
		}
		return sig, nil
	case *ast.ReturnStatement:
		return f.execReturn(s, env)
	case *ast.ThrowStatement:
		v, err := f.eval(s.Argument, env)
		if err != nil {
			return signal{}, err
		}
		return signal{}, runtime.ThrowValue(v)
	case *ast.TryStatement:
		return f.execTry(s, env)
	case *ast.WithStatement:
		return f.execWith(s, env)
	case *ast.BadStatement:
		return signal{}, f.a.ThrowSyntaxError("Unexpected token")
	}
	return signal{}, f.a.ThrowSyntaxError("unsupported statement %T", stmt)
}

// execBindings evaluates var, let and const declarators. Var bindings are
// assigned through reference resolution; lexical ones are initialized in
// the current block environment.
func (f *frame) execBindings(list []*ast.Binding, env *runtime.Environment, lexical bool) error {
	for _, b := range list {
		if b.Initializer == nil {
			if !lexical {
				continue
			}
			if id, ok := b.Target.(*ast.Identifier); ok {
				if err := env.InitializeBinding(f.a, id.Name.String(), runtime.Undefined); err != nil {
					return err
				}
			}
			continue
		}
		if id, ok := b.Target.(*ast.Identifier); ok {
			name := id.Name.String()
			var ref *reference
			if !lexical {
				var err error
				if ref, err = f.resolveBinding(name, env); err != nil {
					return err
				}
			}
			v, err := f.namedEvaluation(b.Initializer, env, runtime.StringKey(name))
			if err != nil {
				return err
			}
			if lexical {
				if err := env.InitializeBinding(f.a, name, v); err != nil {
					return err
				}
				continue
			}
			if err := f.putValue(ref, v); err != nil {
				return err
			}
			continue
		}
		v, err := f.eval(b.Initializer, env)
		if err != nil {
			return err
		}
		target := env
		if !lexical {
			target = nil
		}
		if err := f.bindPattern(b.Target, v, target, env); err != nil {
			return err
		}
	}
	return nil
}

// execFunctionDeclaration copies a block-level function into its var
// binding when the declaration is hoisted in sloppy code.
func (f *frame) execFunctionDeclaration(s *ast.FunctionDeclaration, env *runtime.Environment) error {
	if f.strict || !f.annexB[s.Function] || !env.IsBlock() {
		return nil
	}
	name := s.Function.Name.Name.String()
	v, err := env.GetBindingValue(f.a, name, false)
	if err != nil {
		return err
	}
	varEnv := env.VarScope()
	if varEnv.Kind() == runtime.EnvGlobal {
		if !varEnv.HasVarDeclaration(name) {
			return nil
		}
	} else if !varEnv.HasVarBinding(name) {
		return nil
	}
	return varEnv.SetMutableBinding(f.a, name, v, false)
}

// inScope runs fn with env pushed on the agent's environment stack.
func (f *frame) inScope(env *runtime.Environment, fn func() (signal, error)) (signal, error) {
	depth := f.a.EnvironmentDepth()
	f.a.PushEnvironment(env)
	defer f.a.TruncateEnvironments(depth)
	return fn()
}

func (f *frame) execBlock(s *ast.BlockStatement, env *runtime.Environment) (signal, error) {
	sc := f.blockScope(s, s.List)
	if sc.empty() {
		return f.execList(s.List, env)
	}
	blockEnv := f.blockDeclarationInstantiation(sc, env)
	return f.inScope(blockEnv, func() (signal, error) {
		return f.execList(s.List, blockEnv)
	})
}

// execSubStatement runs the body of an if or loop. A function declaration
// in that position behaves as if wrapped in a block.
func (f *frame) execSubStatement(stmt ast.Statement, env *runtime.Environment) (signal, error) {
	if fd, ok := stmt.(*ast.FunctionDeclaration); ok {
		list := []ast.Statement{fd}
		blockEnv := f.blockDeclarationInstantiation(f.blockScope(fd, list), env)
		return f.inScope(blockEnv, func() (signal, error) {
			return f.execList(list, blockEnv)
		})
	}
	return f.exec(stmt, env)
}

func (f *frame) execIf(s *ast.IfStatement, env *runtime.Environment) (signal, error) {
	test, err := f.eval(s.Test, env)
	if err != nil {
		return signal{}, err
	}
	var sig signal
	switch {
	case test.ToBoolean():
		sig, err = f.execSubStatement(s.Consequent, env)
	case s.Alternate != nil:
		sig, err = f.execSubStatement(s.Alternate, env)
	}
	if err != nil {
		return signal{}, err
	}
	return sig.updateEmpty(runtime.Undefined), nil
}

// loopContinues reports whether a loop body's completion lets the loop
// run another iteration.
func loopContinues(sig signal, labels []string) bool {
	switch sig.typ {
	case sigNone:
		return true
	case sigContinue:
		if sig.label == "" {
			return true
		}
		for _, l := range labels {
			if l == sig.label {
				return true
			}
		}
	}
	return false
}

// loopExit converts the completion that ended a loop: an unlabeled break is
// consumed by the loop itself.
func loopExit(sig signal, v *runtime.Value) signal {
	sig = sig.updateEmpty(v)
	if sig.typ == sigBreak && sig.label == "" {
		return signal{value: sig.value}
	}
	return sig
}

func (f *frame) execWhile(s *ast.WhileStatement, env *runtime.Environment, labels []string) (signal, error) {
	v := runtime.Undefined
	for {
		if err := f.a.Tick(); err != nil {
			return signal{}, err
		}
		test, err := f.eval(s.Test, env)
		if err != nil {
			return signal{}, err
		}
		if !test.ToBoolean() {
			return signal{value: v}, nil
		}
		sig, err := f.execSubStatement(s.Body, env)
		if err != nil {
			return signal{}, err
		}
		if sig.value != nil {
			v = sig.value
		}
		if !loopContinues(sig, labels) {
			return loopExit(sig, v), nil
		}
	}
}

func (f *frame) execDoWhile(s *ast.DoWhileStatement, env *runtime.Environment, labels []string) (signal, error) {
	v := runtime.Undefined
	for {
		if err := f.a.Tick(); err != nil {
			return signal{}, err
		}
		sig, err := f.execSubStatement(s.Body, env)
		if err != nil {
			return signal{}, err
		}
		if sig.value != nil {
			v = sig.value
		}
		if !loopContinues(sig, labels) {
			return loopExit(sig, v), nil
		}
		test, err := f.eval(s.Test, env)
		if err != nil {
			return signal{}, err
		}
		if !test.ToBoolean() {
			return signal{value: v}, nil
		}
	}
}

func (f *frame) execFor(s *ast.ForStatement, env *runtime.Environment, labels []string) (signal, error) {
	depth := f.a.EnvironmentDepth()
	defer f.a.TruncateEnvironments(depth)

	loopEnv := env
	var perIteration []string
	switch init := s.Initializer.(type) {
	case *ast.ForLoopInitializerExpression:
		if _, err := f.eval(init.Expression, env); err != nil {
			return signal{}, err
		}
	case *ast.ForLoopInitializerVarDeclList:
		if err := f.execBindings(init.List, env, false); err != nil {
			return signal{}, err
		}
	case *ast.ForLoopInitializerLexicalDecl:
		decl := &init.LexicalDeclaration
		constant := decl.Token == token.CONST
		loopEnv = runtime.NewDeclarativeEnvironment(env)
		for _, b := range decl.List {
			for _, name := range boundNames(b.Target) {
				if constant {
					loopEnv.CreateImmutableBinding(name, runtime.BindingConst, true)
				} else {
					loopEnv.CreateMutableBinding(name, runtime.BindingLet, false)
					perIteration = append(perIteration, name)
				}
			}
		}
		f.a.PushEnvironment(loopEnv)
		if err := f.execBindings(decl.List, loopEnv, true); err != nil {
			return signal{}, err
		}
	}

	iterEnv, err := f.copyIterationEnvironment(perIteration, loopEnv, depth)
	if err != nil {
		return signal{}, err
	}
	v := runtime.Undefined
	for {
		if err := f.a.Tick(); err != nil {
			return signal{}, err
		}
		if s.Test != nil {
			test, err := f.eval(s.Test, iterEnv)
			if err != nil {
				return signal{}, err
			}
			if !test.ToBoolean() {
				return signal{value: v}, nil
			}
		}
		sig, err := f.execSubStatement(s.Body, iterEnv)
		if err != nil {
			return signal{}, err
		}
		if sig.value != nil {
			v = sig.value
		}
		if !loopContinues(sig, labels) {
			return loopExit(sig, v), nil
		}
		if iterEnv, err = f.copyIterationEnvironment(perIteration, iterEnv, depth); err != nil {
			return signal{}, err
		}
		if s.Update != nil {
			if _, err := f.eval(s.Update, iterEnv); err != nil {
				return signal{}, err
			}
		}
	}
}

// copyIterationEnvironment gives each iteration of a for loop with let
// bindings a fresh copy of them, so closures capture per-iteration values.
func (f *frame) copyIterationEnvironment(names []string, last *runtime.Environment, depth int) (*runtime.Environment, error) {
	if len(names) == 0 {
		return last, nil
	}
	next := runtime.NewDeclarativeEnvironment(last.Outer())
	for _, name := range names {
		v, err := last.GetBindingValue(f.a, name, true)
		if err != nil {
			return nil, err
		}
		next.Declare(name, runtime.BindingLet, v)
	}
	f.a.TruncateEnvironments(depth)
	f.a.PushEnvironment(next)
	return next, nil
}

// headEnvironment evaluates the right-hand side of a for-in/of head. Names
// of a lexical head are in their dead zone while it runs.
func (f *frame) headEnvironment(into ast.ForInto, expr ast.Expression, env *runtime.Environment) (*runtime.Value, error) {
	decl, ok := into.(*ast.ForDeclaration)
	if !ok {
		return f.eval(expr, env)
	}
	names := boundNames(decl.Target)
	if len(names) == 0 {
		return f.eval(expr, env)
	}
	tdz := runtime.NewDeclarativeEnvironment(env)
	for _, name := range names {
		tdz.CreateMutableBinding(name, runtime.BindingLet, false)
	}
	depth := f.a.EnvironmentDepth()
	f.a.PushEnvironment(tdz)
	defer f.a.TruncateEnvironments(depth)
	return f.eval(expr, tdz)
}

// bindIteration binds the value produced by one for-in/of step and returns
// the environment the body runs in.
func (f *frame) bindIteration(into ast.ForInto, v *runtime.Value, env *runtime.Environment) (*runtime.Environment, error) {
	switch t := into.(type) {
	case *ast.ForIntoVar:
		return env, f.bindPattern(t.Binding.Target, v, nil, env)
	case *ast.ForIntoExpression:
		return env, f.assignPattern(t.Expression, v, env)
	case *ast.ForDeclaration:
		iterEnv := runtime.NewDeclarativeEnvironment(env)
		for _, name := range boundNames(t.Target) {
			if t.IsConst {
				iterEnv.CreateImmutableBinding(name, runtime.BindingConst, true)
			} else {
				iterEnv.CreateMutableBinding(name, runtime.BindingLet, false)
			}
		}
		f.a.PushEnvironment(iterEnv)
		return iterEnv, f.bindPattern(t.Target, v, iterEnv, iterEnv)
	}
	return nil, f.a.ThrowSyntaxError("unsupported for-in/of head %T", into)
}

func (f *frame) execForIn(s *ast.ForInStatement, env *runtime.Environment, labels []string) (signal, error) {
	if v, ok := s.Into.(*ast.ForIntoVar); ok && v.Binding.Initializer != nil {
		if err := f.execBindings([]*ast.Binding{v.Binding}, env, false); err != nil {
			return signal{}, err
		}
	}
	src, err := f.headEnvironment(s.Into, s.Source, env)
	if err != nil {
		return signal{}, err
	}
	if src.IsNullish() {
		return signal{value: runtime.Undefined}, nil
	}
	obj, err := src.ToObject(f.a)
	if err != nil {
		return signal{}, err
	}
	keys := newPropertyEnumerator(obj)
	depth := f.a.EnvironmentDepth()
	defer f.a.TruncateEnvironments(depth)

	v := runtime.Undefined
	for {
		if err := f.a.Tick(); err != nil {
			return signal{}, err
		}
		key, ok, err := keys.next(f.a)
		if err != nil {
			return signal{}, err
		}
		if !ok {
			return signal{value: v}, nil
		}
		f.a.TruncateEnvironments(depth)
		bodyEnv, err := f.bindIteration(s.Into, runtime.NewString(key), env)
		if err != nil {
			return signal{}, err
		}
		sig, err := f.execSubStatement(s.Body, bodyEnv)
		if err != nil {
			return signal{}, err
		}
		if sig.value != nil {
			v = sig.value
		}
		if !loopContinues(sig, labels) {
			return loopExit(sig, v), nil
		}
	}
}

func (f *frame) execForOf(s *ast.ForOfStatement, env *runtime.Environment, labels []string) (signal, error) {
	src, err := f.headEnvironment(s.Into, s.Source, env)
	if err != nil {
		return signal{}, err
	}
	rec, err := runtime.GetIterator(f.a, src, false)
	if err != nil {
		return signal{}, err
	}
	depth := f.a.EnvironmentDepth()
	defer f.a.TruncateEnvironments(depth)

	v := runtime.Undefined
	for {
		if err := f.a.Tick(); err != nil {
			return signal{}, err
		}
		next, ok, err := rec.Step(f.a)
		if err != nil {
			return signal{}, err
		}
		if !ok {
			return signal{value: v}, nil
		}
		f.a.TruncateEnvironments(depth)
		bodyEnv, err := f.bindIteration(s.Into, next, env)
		if err != nil {
			return signal{}, closeOnError(f.a, rec, err)
		}
		sig, err := f.execSubStatement(s.Body, bodyEnv)
		if err != nil {
			return signal{}, closeOnError(f.a, rec, err)
		}
		if sig.value != nil {
			v = sig.value
		}
		if !loopContinues(sig, labels) {
			if err := rec.Close(f.a, nil); err != nil {
				return signal{}, err
			}
			return loopExit(sig, v), nil
		}
	}
}

// closeOnError closes an iterator after an abrupt completion. Engine
// failures and coroutine teardown skip the return method.
func closeOnError(a *runtime.Agent, rec *runtime.IteratorRecord, err error) error {
	if runtime.IsCatchable(err) {
		return rec.Close(a, err)
	}
	if _, ok := runtime.AsGeneratorReturn(err); ok {
		if cerr := rec.Close(a, nil); cerr != nil {
			return cerr
		}
	}
	return err
}

func (f *frame) execSwitch(s *ast.SwitchStatement, env *runtime.Environment) (signal, error) {
	disc, err := f.eval(s.Discriminant, env)
	if err != nil {
		return signal{}, err
	}
	blockEnv := f.blockDeclarationInstantiation(f.switchScope(s), env)
	return f.inScope(blockEnv, func() (signal, error) {
		start := -1
		for i, c := range s.Body {
			if c.Test == nil {
				continue
			}
			v, err := f.eval(c.Test, blockEnv)
			if err != nil {
				return signal{}, err
			}
			if runtime.StrictEquals(disc, v) {
				start = i
				break
			}
		}
		if start < 0 {
			start = s.Default
		}
		v := runtime.Undefined
		if start < 0 {
			return signal{value: v}, nil
		}
		for _, c := range s.Body[start:] {
			sig, err := f.execList(c.Consequent, blockEnv)
			if err != nil {
				return signal{}, err
			}
			if sig.value != nil {
				v = sig.value
			}
			if sig.abrupt() {
				return loopExit(sig, v), nil
			}
		}
		return signal{value: v}, nil
	})
}

func (f *frame) execReturn(s *ast.ReturnStatement, env *runtime.Environment) (signal, error) {
	v := runtime.Undefined
	if s.Argument != nil {
		var err error
		if v, err = f.eval(s.Argument, env); err != nil {
			return signal{}, err
		}
		if f.asyncGenerator {
			if v, err = f.a.Await(v); err != nil {
				return signal{}, err
			}
		}
	}
	return signal{typ: sigReturn, value: v}, nil
}

// execTry runs try/catch/finally. Only language exceptions reach catch;
// a generator return unwinds through finally, and engine failures skip
// both.
func (f *frame) execTry(s *ast.TryStatement, env *runtime.Environment) (signal, error) {
	sig, err := f.execBlock(s.Body, env)
	if err != nil && s.Catch != nil {
		if exc, ok := runtime.AsException(err); ok {
			sig, err = f.execCatch(s.Catch, exc.Value, env)
		}
	}
	if s.Finally != nil && runsFinally(err) {
		fsig, ferr := f.execBlock(s.Finally, env)
		if ferr != nil {
			return signal{}, ferr
		}
		if fsig.abrupt() {
			return fsig, nil
		}
	}
	if err != nil {
		return signal{}, err
	}
	return sig.updateEmpty(runtime.Undefined), nil
}

func runsFinally(err error) bool {
	if err == nil || runtime.IsCatchable(err) {
		return true
	}
	_, ok := runtime.AsGeneratorReturn(err)
	return ok
}

func (f *frame) execCatch(c *ast.CatchStatement, thrown *runtime.Value, env *runtime.Environment) (signal, error) {
	if c.Parameter == nil {
		return f.execBlock(c.Body, env)
	}
	catchEnv := runtime.NewDeclarativeEnvironment(env)
	for _, name := range boundNames(c.Parameter) {
		catchEnv.CreateMutableBinding(name, runtime.BindingLet, false)
	}
	return f.inScope(catchEnv, func() (signal, error) {
		if err := f.bindPattern(c.Parameter, thrown, catchEnv, catchEnv); err != nil {
			return signal{}, err
		}
		return f.execBlock(c.Body, catchEnv)
	})
}

func (f *frame) execWith(s *ast.WithStatement, env *runtime.Environment) (signal, error) {
	v, err := f.eval(s.Object, env)
	if err != nil {
		return signal{}, err
	}
	obj, err := v.ToObject(f.a)
	if err != nil {
		return signal{}, err
	}
	withEnv := runtime.NewObjectEnvironment(obj, true, env)
	sig, err := f.inScope(withEnv, func() (signal, error) {
		return f.execSubStatement(s.Body, withEnv)
	})
	if err != nil {
		return signal{}, err
	}
	return sig.updateEmpty(runtime.Undefined), nil
}

// propertyEnumerator walks the enumerable string keys of an object and its
// prototypes for for-in. Keys deleted before they are reached are skipped
// and shadowed keys are visited once.
type propertyEnumerator struct {
	obj     *runtime.Object
	keys    []runtime.PropertyKey
	pos     int
	visited map[string]bool
	started bool
}

func newPropertyEnumerator(o *runtime.Object) *propertyEnumerator {
	return &propertyEnumerator{obj: o, visited: make(map[string]bool)}
}

func (e *propertyEnumerator) next(a *runtime.Agent) (string, bool, error) {
	for {
		if e.obj == nil {
			return "", false, nil
		}
		if !e.started {
			keys, err := e.obj.OwnPropertyKeys(a)
			if err != nil {
				return "", false, err
			}
			e.keys, e.pos, e.started = keys, 0, true
		}
		for e.pos < len(e.keys) {
			key := e.keys[e.pos]
			e.pos++
			if key.IsSymbol() || e.visited[key.Name()] {
				continue
			}
			desc, ok, err := e.obj.GetOwnProperty(a, key)
			if err != nil {
				return "", false, err
			}
			if !ok {
				continue
			}
			e.visited[key.Name()] = true
			if desc.Enumerable() {
				return key.Name(), true, nil
			}
		}
		proto, err := e.obj.GetPrototypeOf(a)
		if err != nil {
			return "", false, err
		}
		e.obj, e.started = proto, false
	}
}
