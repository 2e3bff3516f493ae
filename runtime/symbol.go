package runtime

// Symbol is a unique, immutable identity with an optional description.
type Symbol struct {
	description string
	hasDesc     bool
	registered  bool // created through Symbol.for
	private     bool // backs a class private name
}

// NewSymbol creates a symbol with the given description.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description, hasDesc: true}
}

// NewAnonymousSymbol creates a symbol whose description is undefined.
func NewAnonymousSymbol() *Symbol {
	return &Symbol{}
}

// Description returns the description and whether one was given.
func (s *Symbol) Description() (string, bool) {
	return s.description, s.hasDesc
}

// IsPrivate reports whether the symbol names a class private element.
func (s *Symbol) IsPrivate() bool {
	return s.private
}

// Registered reports whether the symbol lives in the global symbol registry.
func (s *Symbol) Registered() bool {
	return s.registered
}

func (s *Symbol) String() string {
	return "Symbol(" + s.description + ")"
}

// Well-known symbols are shared by every realm.
var (
	SymIterator           = NewSymbol("Symbol.iterator")
	SymAsyncIterator      = NewSymbol("Symbol.asyncIterator")
	SymHasInstance        = NewSymbol("Symbol.hasInstance")
	SymToPrimitive        = NewSymbol("Symbol.toPrimitive")
	SymToStringTag        = NewSymbol("Symbol.toStringTag")
	SymSpecies            = NewSymbol("Symbol.species")
	SymIsConcatSpreadable = NewSymbol("Symbol.isConcatSpreadable")
	SymUnscopables        = NewSymbol("Symbol.unscopables")
	SymMatch              = NewSymbol("Symbol.match")
	SymMatchAll           = NewSymbol("Symbol.matchAll")
	SymReplace            = NewSymbol("Symbol.replace")
	SymSearch             = NewSymbol("Symbol.search")
	SymSplit              = NewSymbol("Symbol.split")
)

// WellKnownSymbols maps the property name on the Symbol constructor to the symbol.
var WellKnownSymbols = map[string]*Symbol{
	"iterator":           SymIterator,
	"asyncIterator":      SymAsyncIterator,
	"hasInstance":        SymHasInstance,
	"toPrimitive":        SymToPrimitive,
	"toStringTag":        SymToStringTag,
	"species":            SymSpecies,
	"isConcatSpreadable": SymIsConcatSpreadable,
	"unscopables":        SymUnscopables,
	"match":              SymMatch,
	"matchAll":           SymMatchAll,
	"replace":            SymReplace,
	"search":             SymSearch,
	"split":              SymSplit,
}

// SymbolFor returns the registry symbol for key, creating it on first use.
func (a *Agent) SymbolFor(key string) *Symbol {
	if s, ok := a.symbols[key]; ok {
		return s
	}
	s := &Symbol{description: key, hasDesc: true, registered: true}
	a.symbols[key] = s
	return s
}

// SymbolKeyFor returns the registry key of s, if s is registered.
func (a *Agent) SymbolKeyFor(s *Symbol) (string, bool) {
	if !s.registered {
		return "", false
	}
	return s.description, true
}
