package runtime

// BindingKind records how a binding was declared.
type BindingKind int

const (
	BindingVar BindingKind = iota
	BindingLet
	BindingConst
	BindingFunction
	BindingClass
	BindingParam
)

func (k BindingKind) String() string {
	switch k {
	case BindingLet:
		return "let"
	case BindingConst:
		return "const"
	case BindingFunction:
		return "function"
	case BindingClass:
		return "class"
	case BindingParam:
		return "param"
	}
	return "var"
}

// Binding is a single name in a declarative environment record.
type Binding struct {
	Value       *Value
	Mutable     bool
	Kind        BindingKind
	Initialized bool // false while in the temporal dead zone
	Strict      bool // assignment to an immutable strict binding throws
	Deletable   bool
}

// EnvironmentKind distinguishes the environment record types.
type EnvironmentKind int

const (
	EnvDeclarative EnvironmentKind = iota
	EnvFunction
	EnvGlobal
	EnvObject
)

// ThisStatus is the state of a function environment's this binding.
type ThisStatus int

const (
	ThisLexical ThisStatus = iota
	ThisInitialized
	ThisUninitialized
)

// Environment is an environment record. Declarative, function and the
// lexical half of the global record keep bindings in a map; object records
// and the var half of the global record go through their binding object.
type Environment struct {
	kind     EnvironmentKind
	store    map[string]*Binding
	outer    *Environment
	varScope bool

	// function records
	thisStatus ThisStatus
	thisValue  *Value
	function   *Object
	newTarget  *Value

	// object and global records
	bindingObject *Object
	withEnv       bool
	varNames      map[string]struct{}
}

// NewDeclarativeEnvironment creates a block-level environment.
func NewDeclarativeEnvironment(outer *Environment) *Environment {
	return &Environment{kind: EnvDeclarative, store: make(map[string]*Binding), outer: outer}
}

// NewVarEnvironment creates a declarative environment that receives var
// declarations, used for function bodies with parameter expressions and
// for strict eval.
func NewVarEnvironment(outer *Environment) *Environment {
	env := NewDeclarativeEnvironment(outer)
	env.varScope = true
	return env
}

// NewFunctionEnvironment creates the environment of a function activation.
func NewFunctionEnvironment(fn *Object, newTarget *Value, outer *Environment, lexicalThis bool) *Environment {
	env := &Environment{
		kind:      EnvFunction,
		store:     make(map[string]*Binding),
		outer:     outer,
		varScope:  true,
		function:  fn,
		newTarget: orUndefined(newTarget),
		thisValue: Undefined,
	}
	if lexicalThis {
		env.thisStatus = ThisLexical
	} else {
		env.thisStatus = ThisUninitialized
	}
	return env
}

// NewObjectEnvironment creates an object environment record. with marks
// records created by a with statement.
func NewObjectEnvironment(obj *Object, with bool, outer *Environment) *Environment {
	return &Environment{kind: EnvObject, bindingObject: obj, withEnv: with, outer: outer}
}

// NewGlobalEnvironment creates the global environment record for global.
func NewGlobalEnvironment(global *Object) *Environment {
	return &Environment{
		kind:          EnvGlobal,
		store:         make(map[string]*Binding),
		varScope:      true,
		bindingObject: global,
		varNames:      make(map[string]struct{}),
	}
}

func (e *Environment) Kind() EnvironmentKind { return e.kind }
func (e *Environment) Outer() *Environment   { return e.outer }

// IsBlock reports whether var declarations pass through this environment.
func (e *Environment) IsBlock() bool { return !e.varScope }

// VarScope returns the nearest environment that receives var declarations.
func (e *Environment) VarScope() *Environment {
	for env := e; env != nil; env = env.outer {
		if env.varScope {
			return env
		}
	}
	return e
}

// Function returns the function object of a function environment.
func (e *Environment) Function() *Object { return e.function }

// NewTarget returns new.target of a function environment.
func (e *Environment) NewTarget() *Value { return orUndefined(e.newTarget) }

// BindingObject returns the binding object of an object or global record.
func (e *Environment) BindingObject() *Object { return e.bindingObject }

// Lookup returns the declarative binding for name in this record only.
func (e *Environment) Lookup(name string) (*Binding, bool) {
	b, ok := e.store[name]
	return b, ok
}

// HasBinding reports whether this record binds name.
func (e *Environment) HasBinding(a *Agent, name string) (bool, error) {
	switch e.kind {
	case EnvDeclarative, EnvFunction:
		_, ok := e.store[name]
		return ok, nil
	case EnvGlobal:
		if _, ok := e.store[name]; ok {
			return true, nil
		}
		return e.bindingObject.HasProperty(a, StringKey(name))
	}
	found, err := e.bindingObject.HasProperty(a, StringKey(name))
	if err != nil || !found || !e.withEnv {
		return found, err
	}
	unscopables, err := e.bindingObject.Get(a, SymbolKey(SymUnscopables))
	if err != nil {
		return false, err
	}
	if u := unscopables.AsObject(); u != nil {
		blocked, err := u.Get(a, StringKey(name))
		if err != nil {
			return false, err
		}
		if blocked.ToBoolean() {
			return false, nil
		}
	}
	return true, nil
}

// CreateMutableBinding adds an uninitialized mutable binding.
func (e *Environment) CreateMutableBinding(name string, kind BindingKind, deletable bool) {
	e.store[name] = &Binding{Value: Undefined, Mutable: true, Kind: kind, Deletable: deletable}
}

// CreateImmutableBinding adds an uninitialized immutable binding.
func (e *Environment) CreateImmutableBinding(name string, kind BindingKind, strict bool) {
	e.store[name] = &Binding{Value: Undefined, Kind: kind, Strict: strict}
}

// Declare creates and initializes a binding in one step.
func (e *Environment) Declare(name string, kind BindingKind, v *Value) {
	e.store[name] = &Binding{
		Value:       orUndefined(v),
		Mutable:     kind != BindingConst,
		Kind:        kind,
		Initialized: true,
		Strict:      kind == BindingConst,
	}
}

// DeclareVar declares an initialized var binding unless name is already
// bound in this record.
func (e *Environment) DeclareVar(name string) {
	if _, exists := e.store[name]; exists {
		return
	}
	e.Declare(name, BindingVar, Undefined)
}

// HasVarBinding reports whether name is a var or function binding here.
func (e *Environment) HasVarBinding(name string) bool {
	if b, ok := e.store[name]; ok {
		return b.Kind == BindingVar || b.Kind == BindingFunction || b.Kind == BindingParam
	}
	if e.kind == EnvGlobal {
		_, ok := e.varNames[name]
		return ok
	}
	return false
}

// InitializeBinding sets the value of an uninitialized binding.
func (e *Environment) InitializeBinding(a *Agent, name string, v *Value) error {
	if b, ok := e.store[name]; ok {
		b.Value = v
		b.Initialized = true
		return nil
	}
	if e.bindingObject != nil {
		return e.bindingObject.Set(a, StringKey(name), v, false)
	}
	return a.ThrowReferenceError("%s is not defined", name)
}

// SetMutableBinding assigns to an existing binding of this record.
func (e *Environment) SetMutableBinding(a *Agent, name string, v *Value, strict bool) error {
	if b, ok := e.store[name]; ok {
		switch {
		case !b.Initialized:
			return a.ThrowReferenceError("Cannot access '%s' before initialization", name)
		case b.Mutable:
			b.Value = v
		case b.Strict || strict:
			return a.ThrowTypeError("Assignment to constant variable.")
		}
		return nil
	}
	switch e.kind {
	case EnvDeclarative, EnvFunction:
		if strict {
			return a.ThrowReferenceError("%s is not defined", name)
		}
		e.Declare(name, BindingVar, v)
		return nil
	}
	key := StringKey(name)
	if strict {
		exists, err := e.bindingObject.HasProperty(a, key)
		if err != nil {
			return err
		}
		if !exists {
			return a.ThrowReferenceError("%s is not defined", name)
		}
	}
	return e.bindingObject.Set(a, key, v, strict)
}

// GetBindingValue reads a binding of this record.
func (e *Environment) GetBindingValue(a *Agent, name string, strict bool) (*Value, error) {
	if b, ok := e.store[name]; ok {
		if !b.Initialized {
			return nil, a.ThrowReferenceError("Cannot access '%s' before initialization", name)
		}
		return b.Value, nil
	}
	if e.bindingObject == nil {
		return nil, a.ThrowReferenceError("%s is not defined", name)
	}
	key := StringKey(name)
	exists, err := e.bindingObject.HasProperty(a, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		if strict {
			return nil, a.ThrowReferenceError("%s is not defined", name)
		}
		return Undefined, nil
	}
	return e.bindingObject.Get(a, key)
}

// DeleteBinding removes a binding from this record.
func (e *Environment) DeleteBinding(a *Agent, name string) (bool, error) {
	if b, ok := e.store[name]; ok {
		if !b.Deletable {
			return false, nil
		}
		delete(e.store, name)
		return true, nil
	}
	if e.bindingObject == nil {
		return true, nil
	}
	ok, err := e.bindingObject.Delete(a, StringKey(name))
	if ok && e.kind == EnvGlobal {
		delete(e.varNames, name)
	}
	return ok, err
}

// HasThisBinding reports whether the record provides a this value.
func (e *Environment) HasThisBinding() bool {
	switch e.kind {
	case EnvFunction:
		return e.thisStatus != ThisLexical
	case EnvGlobal:
		return true
	}
	return false
}

// BindThisValue initializes the this binding of a function environment.
func (e *Environment) BindThisValue(a *Agent, v *Value) error {
	if e.thisStatus == ThisInitialized {
		return a.ThrowReferenceError("Super constructor may only be called once")
	}
	e.thisValue = v
	e.thisStatus = ThisInitialized
	return nil
}

// ThisBindingStatus returns the this status of a function environment.
func (e *Environment) ThisBindingStatus() ThisStatus { return e.thisStatus }

// GetThisBinding returns the this value provided by the record.
func (e *Environment) GetThisBinding(a *Agent) (*Value, error) {
	if e.kind == EnvGlobal {
		return NewObject(e.bindingObject), nil
	}
	if e.thisStatus == ThisUninitialized {
		return nil, a.ThrowReferenceError("Must call super constructor in derived class before accessing 'this' or returning from derived constructor")
	}
	return e.thisValue, nil
}

// HasSuperBinding reports whether super property access is available.
func (e *Environment) HasSuperBinding() bool {
	if e.kind != EnvFunction || e.thisStatus == ThisLexical {
		return false
	}
	fd, ok := e.function.data.(*FunctionData)
	return ok && fd.homeObject != nil
}

// GetSuperBase returns the object super property lookups start from.
func (e *Environment) GetSuperBase(a *Agent) (*Object, error) {
	fd, ok := e.function.data.(*FunctionData)
	if !ok || fd.homeObject == nil {
		return nil, nil
	}
	return fd.homeObject.GetPrototypeOf(a)
}

// WithBaseObject returns the binding object of a with environment.
func (e *Environment) WithBaseObject() *Object {
	if e.kind == EnvObject && e.withEnv {
		return e.bindingObject
	}
	return nil
}

// GetThisEnvironment returns the nearest record that provides this.
func (e *Environment) GetThisEnvironment() *Environment {
	env := e
	for env.outer != nil && !env.HasThisBinding() {
		env = env.outer
	}
	return env
}

// Resolve returns the record that binds name, or nil if unresolvable.
func (e *Environment) Resolve(a *Agent, name string) (*Environment, error) {
	for env := e; env != nil; env = env.outer {
		if env.kind == EnvDeclarative || env.kind == EnvFunction {
			if _, ok := env.store[name]; ok {
				return env, nil
			}
			continue
		}
		ok, err := env.HasBinding(a, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return env, nil
		}
	}
	return nil, nil
}

// GetIdentifier resolves name and reads its value.
func (e *Environment) GetIdentifier(a *Agent, name string, strict bool) (*Value, error) {
	env, err := e.Resolve(a, name)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, a.ThrowReferenceError("%s is not defined", name)
	}
	return env.GetBindingValue(a, name, strict)
}

// SetIdentifier resolves name and assigns v. Unresolvable names become
// global object properties in sloppy mode.
func (e *Environment) SetIdentifier(a *Agent, name string, v *Value, strict bool) error {
	env, err := e.Resolve(a, name)
	if err != nil {
		return err
	}
	if env == nil {
		if strict {
			return a.ThrowReferenceError("%s is not defined", name)
		}
		return a.realm.Global.Set(a, StringKey(name), v, false)
	}
	return env.SetMutableBinding(a, name, v, strict)
}

// Global record helpers used by script declaration instantiation.

// HasLexicalDeclaration reports whether a let, const or class binds name globally.
func (e *Environment) HasLexicalDeclaration(name string) bool {
	_, ok := e.store[name]
	return ok
}

// HasVarDeclaration reports whether a script var or function declared name.
func (e *Environment) HasVarDeclaration(name string) bool {
	_, ok := e.varNames[name]
	return ok
}

// HasRestrictedGlobalProperty reports whether name is a non-configurable global property.
func (e *Environment) HasRestrictedGlobalProperty(a *Agent, name string) (bool, error) {
	desc, ok, err := e.bindingObject.GetOwnProperty(a, StringKey(name))
	if err != nil || !ok {
		return false, err
	}
	return !desc.Configurable(), nil
}

// CanDeclareGlobalVar reports whether a var named name may be created.
func (e *Environment) CanDeclareGlobalVar(a *Agent, name string) (bool, error) {
	ok, err := e.bindingObject.HasOwnProperty(a, StringKey(name))
	if err != nil || ok {
		return ok, err
	}
	return e.bindingObject.IsExtensible(a)
}

// CanDeclareGlobalFunction reports whether a function named name may be created.
func (e *Environment) CanDeclareGlobalFunction(a *Agent, name string) (bool, error) {
	desc, ok, err := e.bindingObject.GetOwnProperty(a, StringKey(name))
	if err != nil {
		return false, err
	}
	if !ok {
		return e.bindingObject.IsExtensible(a)
	}
	if desc.Configurable() {
		return true, nil
	}
	return desc.IsDataDescriptor() && desc.Writable() && desc.Enumerable(), nil
}

// CreateGlobalVarBinding creates a var binding on the global object.
func (e *Environment) CreateGlobalVarBinding(a *Agent, name string, deletable bool) error {
	key := StringKey(name)
	hasOwn, err := e.bindingObject.HasOwnProperty(a, key)
	if err != nil {
		return err
	}
	extensible, err := e.bindingObject.IsExtensible(a)
	if err != nil {
		return err
	}
	if !hasOwn && extensible {
		if _, err := e.bindingObject.DefineOwnProperty(a, key, DataDescriptor(Undefined, true, true, deletable)); err != nil {
			return err
		}
	}
	e.varNames[name] = struct{}{}
	return nil
}

// CreateGlobalFunctionBinding creates or replaces a function binding on the global object.
func (e *Environment) CreateGlobalFunctionBinding(a *Agent, name string, v *Value, deletable bool) error {
	key := StringKey(name)
	existing, ok, err := e.bindingObject.GetOwnProperty(a, key)
	if err != nil {
		return err
	}
	var desc PropertyDescriptor
	if !ok || existing.Configurable() {
		desc = DataDescriptor(v, true, true, deletable)
	} else {
		desc = NewDescriptor().Value(v).MustBuild()
	}
	defined, err := e.bindingObject.DefineOwnProperty(a, key, desc)
	if err != nil {
		return err
	}
	if !defined {
		return a.ThrowTypeError("Cannot redefine global function '%s'", name)
	}
	if err := e.bindingObject.Set(a, key, v, false); err != nil {
		return err
	}
	e.varNames[name] = struct{}{}
	return nil
}
