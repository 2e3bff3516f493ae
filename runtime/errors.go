package runtime

import (
	"errors"
	"fmt"
)

// ErrorKind selects one of the native error constructors.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorType
	ErrorRange
	ErrorReference
	ErrorSyntax
	ErrorEval
	ErrorURI
	ErrorAggregate
)

var errorKindNames = [...]string{
	ErrorGeneric:   "Error",
	ErrorType:      "TypeError",
	ErrorRange:     "RangeError",
	ErrorReference: "ReferenceError",
	ErrorSyntax:    "SyntaxError",
	ErrorEval:      "EvalError",
	ErrorURI:       "URIError",
	ErrorAggregate: "AggregateError",
}

func (k ErrorKind) String() string { return errorKindNames[k] }

// ErrorKinds lists every native error kind in constructor order.
var ErrorKinds = []ErrorKind{ErrorGeneric, ErrorType, ErrorRange, ErrorReference, ErrorSyntax, ErrorEval, ErrorURI, ErrorAggregate}

// Exception is a thrown language value travelling through Go error returns.
// It is the only error kind a script's try/catch can observe.
type Exception struct {
	Value *Value
}

func (e *Exception) Error() string {
	if o := e.Value.AsObject(); o != nil && o.Kind() == KindError {
		return ErrorSummary(o)
	}
	if e.Value.IsString() {
		return quoteJSString(e.Value.Str)
	}
	return e.Value.String()
}

// ThrowValue returns an error that throws v.
func ThrowValue(v *Value) error {
	return &Exception{Value: v}
}

// AsException extracts the thrown value from err.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// LimitKind identifies which execution limit was hit.
type LimitKind int

const (
	LimitCallDepth LimitKind = iota
	LimitSteps
	LimitInterrupted
)

// LimitError reports that execution was stopped by a resource limit or by
// cancellation. Scripts cannot catch it.
type LimitError struct {
	Kind  LimitKind
	Limit uint64
	Cause error
}

func (e *LimitError) Error() string {
	switch e.Kind {
	case LimitCallDepth:
		return fmt.Sprintf("RangeError: Maximum call stack size exceeded (limit %d)", e.Limit)
	case LimitSteps:
		return fmt.Sprintf("execution step limit of %d exceeded", e.Limit)
	default:
		if e.Cause != nil {
			return "execution interrupted: " + e.Cause.Error()
		}
		return "execution interrupted"
	}
}

func (e *LimitError) Unwrap() error { return e.Cause }

// terminatedError unwinds a suspended coroutine when its agent is closed.
// It skips catch and finally clauses.
type terminatedError struct{}

func (terminatedError) Error() string { return "coroutine terminated" }

// IsTerminated reports whether err is the unwinding signal of a closed agent.
func IsTerminated(err error) bool {
	var t terminatedError
	return errors.As(err, &t)
}

// IsCatchable reports whether err is a language exception that try/catch may handle.
func IsCatchable(err error) bool {
	_, ok := AsException(err)
	return ok
}

// NewError creates an error instance of the given kind in the current realm.
func (a *Agent) NewError(kind ErrorKind, msg string) *Object {
	o := NewObjectWithData(a.realm.Intrinsics.ErrorPrototypes[kind], ErrorData{})
	if msg != "" {
		o.putRaw(StringKey("message"), &Property{Value: NewString(msg), Writable: true, Configurable: true})
	}
	return o
}

// Throw returns an exception holding a new error of the given kind.
func (a *Agent) Throw(kind ErrorKind, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Exception{Value: NewObject(a.NewError(kind, msg))}
}

func (a *Agent) ThrowTypeError(format string, args ...any) error {
	return a.Throw(ErrorType, format, args...)
}

func (a *Agent) ThrowRangeError(format string, args ...any) error {
	return a.Throw(ErrorRange, format, args...)
}

func (a *Agent) ThrowReferenceError(format string, args ...any) error {
	return a.Throw(ErrorReference, format, args...)
}

func (a *Agent) ThrowSyntaxError(format string, args ...any) error {
	return a.Throw(ErrorSyntax, format, args...)
}

// toLanguageError maps an error produced by host code onto the language's
// error channel. Engine-level failures pass through untouched.
func (a *Agent) toLanguageError(err error) error {
	if err == nil {
		return nil
	}
	var (
		exc    *Exception
		limit  *LimitError
		borrow *BorrowError
		term   terminatedError
		ret    *generatorReturn
	)
	switch {
	case errors.As(err, &exc), errors.As(err, &limit), errors.As(err, &borrow),
		errors.As(err, &term), errors.As(err, &ret):
		return err
	}
	return a.Throw(ErrorGeneric, "%s", err.Error())
}
