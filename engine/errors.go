package engine

import (
	"github.com/pkg/errors"

	"github.com/example/jscore/runtime"
)

var (
	// ErrContextBusy is returned when a Context is entered from a second
	// goroutine while another one is running it.
	ErrContextBusy = errors.New("engine: context is in use by another goroutine")

	// ErrClosed is returned by operations on a closed Context.
	ErrClosed = errors.New("engine: context is closed")

	// ErrNonBlockingRegistered is returned by New when the calling goroutine
	// already owns an open non-blocking Context.
	ErrNonBlockingRegistered = errors.New("engine: goroutine already has a non-blocking context")
)

// ScriptError is an exception that escaped to the host.
type ScriptError struct {
	// Name and Message come from the thrown error object. A thrown
	// primitive leaves Name empty.
	Name    string
	Message string
	// Value is the thrown value.
	Value *runtime.Value
	// Source names the script that was running.
	Source string

	exc *runtime.Exception
}

func newScriptError(source string, exc *runtime.Exception) *ScriptError {
	se := &ScriptError{Value: exc.Value, Source: source, exc: exc}
	if o := exc.Value.AsObject(); o != nil && o.Kind() == runtime.KindError {
		se.Name, se.Message = runtime.ErrorParts(o)
	} else {
		se.Message = exc.Error()
	}
	return se
}

func (e *ScriptError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg = runtime.ErrorSummary(e.Value.AsObject())
	}
	if e.Source == "" {
		return "Uncaught " + msg
	}
	return e.Source + ": Uncaught " + msg
}

// Unwrap exposes the underlying *runtime.Exception.
func (e *ScriptError) Unwrap() error { return e.exc }

// Cause is Unwrap for github.com/pkg/errors.
func (e *ScriptError) Cause() error { return e.exc }

// IsSyntaxError reports whether the script failed to parse, or threw a
// SyntaxError.
func (e *ScriptError) IsSyntaxError() bool { return e.Name == "SyntaxError" }
