package testrunner

import (
	"strings"

	"github.com/example/jscore/engine"
	jsrt "github.com/example/jscore/runtime"
)

// installHost defines print and the $262 object the harness expects.
// Output of print is collected in out.
func installHost(c *engine.Context, out *strings.Builder) error {
	err := c.RegisterGlobalFunction("print", 1, func(a *jsrt.Agent, _ *jsrt.Value, args []*jsrt.Value) (*jsrt.Value, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			s, err := arg.ToString(a)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		out.WriteString(strings.Join(parts, " "))
		out.WriteByte('\n')
		return jsrt.Undefined, nil
	})
	if err != nil {
		return err
	}

	a := c.Agent()
	host := a.NewPlainObject()
	method := func(name string, length int, fn jsrt.NativeFunction) {
		jsrt.DefineBuiltin(host, jsrt.StringKey(name), jsrt.NewObject(a.NewNativeFunction(name, length, fn)))
	}
	method("evalScript", 1, func(a *jsrt.Agent, _ *jsrt.Value, args []*jsrt.Value) (*jsrt.Value, error) {
		src := jsrt.Undefined
		if len(args) > 0 {
			src = args[0]
		}
		s, err := src.ToString(a)
		if err != nil {
			return nil, err
		}
		// A ScriptError unwraps to the exception, which rethrows into the caller.
		return c.EvalFile("evalScript", s)
	})
	method("gc", 0, func(*jsrt.Agent, *jsrt.Value, []*jsrt.Value) (*jsrt.Value, error) {
		return jsrt.Undefined, nil
	})
	method("createRealm", 0, func(a *jsrt.Agent, _ *jsrt.Value, _ []*jsrt.Value) (*jsrt.Value, error) {
		return nil, a.ThrowTypeError("$262.createRealm is not supported")
	})
	method("detachArrayBuffer", 1, func(a *jsrt.Agent, _ *jsrt.Value, _ []*jsrt.Value) (*jsrt.Value, error) {
		return nil, a.ThrowTypeError("$262.detachArrayBuffer is not supported")
	})
	jsrt.DefineBuiltin(host, jsrt.StringKey("global"), jsrt.NewObject(c.Global()))
	return c.RegisterGlobalProperty("$262", jsrt.NewObject(host), jsrt.AttrDefault)
}
