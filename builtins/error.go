package builtins

import (
	"github.com/example/jscore/runtime"
)

// createErrorConstructor builds the constructor for one native error kind.
// The prototypes themselves come from the realm.
func createErrorConstructor(a *runtime.Agent, kind runtime.ErrorKind) *runtime.Object {
	in := a.Intrinsics()
	proto := in.ErrorPrototypes[kind]
	length := 1
	if kind == runtime.ErrorAggregate {
		length = 2
	}
	ctor := newConstructor(a, kind.String(), length, proto, errorConstructor(kind))
	if kind == runtime.ErrorGeneric {
		setMethod(a, proto, "toString", 0, errorToString)
		setMethod(a, ctor, "captureStackTrace", 1, errorCaptureStackTrace)
		return ctor
	}
	_, _ = ctor.SetPrototypeOf(a, in.ErrorConstructors[runtime.ErrorGeneric])
	return ctor
}

func errorConstructor(kind runtime.ErrorKind) runtime.NativeFunction {
	return func(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		in := a.Intrinsics()
		nt := a.NewTarget()
		if nt == nil {
			nt = in.ErrorConstructors[kind]
		}
		o, err := runtime.OrdinaryCreateFromConstructor(a, nt, in.ErrorPrototypes[kind], runtime.ErrorData{})
		if err != nil {
			return nil, err
		}
		var errors *runtime.Value
		if kind == runtime.ErrorAggregate {
			errors, args = argAt(args, 0), args[min(1, len(args)):]
		}
		if msg := argAt(args, 0); !msg.IsUndefined() {
			s, err := msg.ToString(a)
			if err != nil {
				return nil, err
			}
			setDataProp(o, "message", runtime.NewString(s))
		}
		if err := installErrorCause(a, o, argAt(args, 1)); err != nil {
			return nil, err
		}
		if errors != nil {
			var list []*runtime.Value
			if err := iterate(a, errors, func(v *runtime.Value) error {
				list = append(list, v)
				return nil
			}); err != nil {
				return nil, err
			}
			setDataProp(o, "errors", a.NewArrayValue(list))
		}
		setDataProp(o, "stack", runtime.NewString(runtime.ErrorSummary(o)))
		return runtime.NewObject(o), nil
	}
}

// installErrorCause copies options.cause onto the new error when present.
func installErrorCause(a *runtime.Agent, o *runtime.Object, options *runtime.Value) error {
	if !options.IsObject() {
		return nil
	}
	key := runtime.StringKey("cause")
	has, err := options.Object.HasProperty(a, key)
	if err != nil || !has {
		return err
	}
	cause, err := options.Object.Get(a, key)
	if err != nil {
		return err
	}
	setDataProp(o, "cause", cause)
	return nil
}

func errorToString(a *runtime.Agent, this *runtime.Value, _ []*runtime.Value) (*runtime.Value, error) {
	o, err := thisObject(a, this, "Error.prototype.toString")
	if err != nil {
		return nil, err
	}
	part := func(key, def string) (string, error) {
		v, err := o.Get(a, runtime.StringKey(key))
		if err != nil {
			return "", err
		}
		if v.IsUndefined() {
			return def, nil
		}
		return v.ToString(a)
	}
	name, err := part("name", "Error")
	if err != nil {
		return nil, err
	}
	msg, err := part("message", "")
	if err != nil {
		return nil, err
	}
	switch {
	case name == "":
		return runtime.NewString(msg), nil
	case msg == "":
		return runtime.NewString(name), nil
	}
	return runtime.NewString(name + ": " + msg), nil
}

// errorCaptureStackTrace gives any object a stack string. Frames are not
// tracked, so the stack is only the summary line.
func errorCaptureStackTrace(a *runtime.Agent, _ *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target := argAt(args, 0)
	if !target.IsObject() {
		return nil, a.ThrowTypeError("Invalid argument")
	}
	return runtime.Undefined, runtime.CreateDataPropertyOrThrow(a, target.Object, runtime.StringKey("stack"),
		runtime.NewString(runtime.ErrorSummary(target.Object)))
}
