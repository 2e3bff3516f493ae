package main

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/example/jscore/builtins"
	"github.com/example/jscore/engine"
	"github.com/example/jscore/interpreter"
)

var (
	PrintFlag = &cli.BoolFlag{
		Name:  "print",
		Usage: "print the completion value of each script",
	}
	WorkersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "number of scripts or tests run at once (0 = one per CPU)",
	}
	ExprFlag = &cli.StringFlag{
		Name:     "e",
		Usage:    "source to evaluate",
		Required: true,
	}
)

var (
	runCommand = &cli.Command{
		Name:      "run",
		Usage:     "Runs script files, each in its own context",
		ArgsUsage: "<file.js> [file.js...]",
		Action:    runFiles,
		Flags:     []cli.Flag{PrintFlag, WorkersFlag},
	}
	evalCommand = &cli.Command{
		Name:   "eval",
		Usage:  "Evaluates inline source and prints its value",
		Action: evalSource,
		Flags:  []cli.Flag{ExprFlag},
	}
	checkCommand = &cli.Command{
		Name:      "check",
		Usage:     "Parses script files and reports syntax errors",
		ArgsUsage: "<file.js> [file.js...]",
		Action:    checkFiles,
	}
)

// script runs one file with its console output buffered.
type script struct {
	path   string
	output bytes.Buffer
	value  string
	err    error
}

func runFiles(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("no script files given")
	}
	cfg, err := engineConfig(ctx)
	if err != nil {
		return err
	}
	p := newPrinter()
	scripts := make([]*script, ctx.NArg())
	for i, path := range ctx.Args().Slice() {
		scripts[i] = &script{path: path}
	}

	// A single script streams its output; several are buffered and
	// printed in argument order.
	stream := len(scripts) == 1
	group, gctx := errgroup.WithContext(ctx.Context)
	if n := ctx.Int(WorkersFlag.Name); n > 0 {
		group.SetLimit(n)
	}
	for _, s := range scripts {
		group.Go(func() error {
			var out io.Writer = &s.output
			if stream {
				out = os.Stdout
			}
			s.value, s.err = runScript(gctx, cfg, s.path, out, ctx.Bool(PrintFlag.Name))
			return s.err
		})
	}
	firstErr := group.Wait()

	for _, s := range scripts {
		if !stream {
			os.Stdout.Write(s.output.Bytes())
		}
		if s.err != nil && !errors.Is(s.err, context.Canceled) {
			p.uncaughtError(s.err)
		}
		if s.value != "" {
			p.result(s.value)
		}
	}
	if firstErr != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func runScript(ctx context.Context, cfg *engine.Config, path string, out io.Writer, printValue bool) (string, error) {
	c, err := engine.New(engine.WithConfig(cfg), engine.WithStdout(out), engine.WithStderr(os.Stderr))
	if err != nil {
		return "", err
	}
	defer c.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "reading script")
	}
	v, err := c.EvalContext(ctx, path, string(data))
	if err != nil {
		return "", err
	}
	if err := c.RunJobsContext(ctx); err != nil {
		return "", errors.Wrapf(err, "%s: running jobs", path)
	}
	if printValue && !v.IsUndefined() {
		return builtins.Inspect(v), nil
	}
	return "", nil
}

func evalSource(ctx *cli.Context) error {
	cfg, err := engineConfig(ctx)
	if err != nil {
		return err
	}
	p := newPrinter()
	c, err := engine.New(engine.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer c.Close()

	v, err := c.EvalContext(ctx.Context, "<eval>", ctx.String(ExprFlag.Name))
	if err == nil {
		err = c.RunJobsContext(ctx.Context)
	}
	if err != nil {
		p.uncaughtError(err)
		return cli.Exit("", 1)
	}
	if !v.IsUndefined() {
		p.result(builtins.Inspect(v))
	}
	return nil
}

func checkFiles(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("no script files given")
	}
	p := newPrinter()
	failed := 0
	for _, path := range ctx.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "reading script")
		}
		if _, err := interpreter.Parse(path, string(data)); err != nil {
			p.fail.Fprintf(p.out, "%s: %v\n", path, err)
			failed++
			continue
		}
		p.pass.Fprintf(p.out, "%s: ok\n", path)
	}
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
