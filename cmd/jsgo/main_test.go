package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/example/jscore/engine"
)

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunScript(t *testing.T) {
	path := writeScript(t, "main.js", `
		console.log("start");
		let done = false;
		Promise.resolve().then(() => { done = true; console.log("job") });
		({total: 1 + 2})
	`)
	var out bytes.Buffer
	v, err := runScript(context.Background(), &engine.Config{}, path, &out, true)
	require.NoError(t, err)
	assert.Equal(t, "start\njob\n", out.String())
	assert.Equal(t, "{ total: 3 }", v)

	v, err = runScript(context.Background(), &engine.Config{}, path, &out, false)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRunScriptErrors(t *testing.T) {
	path := writeScript(t, "throws.js", `throw new RangeError("out of range")`)
	_, err := runScript(context.Background(), &engine.Config{}, path, &bytes.Buffer{}, false)
	var se *engine.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, path+": Uncaught RangeError: out of range", se.Error())

	_, err = runScript(context.Background(), &engine.Config{}, filepath.Join(t.TempDir(), "none.js"), &bytes.Buffer{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading script")
}

func TestEngineConfigFlags(t *testing.T) {
	cfgPath := writeScript(t, "engine.yaml", "limits:\n  max_steps: 100\n  max_call_depth: 10\nlog_level: error\n")

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--config", cfgPath, "--max-depth", "20"}))
	ctx := cli.NewContext(app, set, nil)

	cfg, err := engineConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cfg.Limits.MaxSteps)
	assert.Equal(t, 20, cfg.Limits.MaxCallDepth)
	assert.Equal(t, "error", cfg.LogLevel)

	set = flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(nil))
	cfg, err = engineConfig(cli.NewContext(app, set, nil))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}
