package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/jscore/testrunner"
)

var (
	Test262DirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "path to a test262 checkout",
		Value: "test262",
	}
	FilterFlag = &cli.StringFlag{
		Name:  "filter",
		Usage: "run only tests whose path contains this substring",
	}
	LimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "maximum number of tests to run (0 = all)",
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "time limit per test",
		Value: 5 * time.Second,
	}
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "print every result as it finishes",
	}
)

var test262Command = &cli.Command{
	Name:   "test262",
	Usage:  "Runs a test262 directory",
	Action: runTest262,
	Flags: []cli.Flag{
		Test262DirFlag,
		FilterFlag,
		LimitFlag,
		TimeoutFlag,
		WorkersFlag,
		VerboseFlag,
	},
}

func runTest262(ctx *cli.Context) error {
	dir := ctx.String(Test262DirFlag.Name)
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrap(err, "test262 directory")
	}
	cfg, err := engineConfig(ctx)
	if err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return errors.Wrap(err, "verbosity")
	}
	p := newPrinter()
	verbose := ctx.Bool(VerboseFlag.Name)

	results, summary, err := testrunner.Run(ctx.Context, testrunner.Config{
		Test262Dir: dir,
		Filter:     ctx.String(FilterFlag.Name),
		Limit:      ctx.Int(LimitFlag.Name),
		Workers:    ctx.Int(WorkersFlag.Name),
		Timeout:    ctx.Duration(TimeoutFlag.Name),
		Limits:     cfg.Limits,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		OnResult: func(r testrunner.TestResult) {
			if verbose {
				p.testResult(r)
			}
		},
	})
	if err != nil {
		return err
	}
	if !verbose {
		for _, r := range results {
			if r.Result != testrunner.Pass {
				p.testResult(r)
			}
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "=== Test262 Summary ===")
	fmt.Fprintf(p.out, "Total:   %d\n", summary.Total)
	p.pass.Fprintf(p.out, "Passed:  %d\n", summary.Passed)
	p.fail.Fprintf(p.out, "Failed:  %d\n", summary.Failed)
	p.skip.Fprintf(p.out, "Skipped: %d\n", summary.Skipped)
	fmt.Fprintf(p.out, "Errors:  %d\n", summary.Errors)
	fmt.Fprintf(p.out, "Pass rate: %.1f%% (%d/%d excluding skipped)\n",
		summary.PassRate(), summary.Passed, summary.Total-summary.Skipped)
	fmt.Fprintf(p.out, "Elapsed: %s\n", summary.Elapsed.Round(time.Millisecond))

	if summary.Failed > 0 || summary.Errors > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (p *printer) testResult(r testrunner.TestResult) {
	c := p.fail
	switch r.Result {
	case testrunner.Pass:
		c = p.pass
	case testrunner.Skip:
		c = p.skip
	}
	line := fmt.Sprintf("%s %s", c.Sprint(r.Result), r.Path)
	if r.Message != "" {
		line += " " + r.Message
	}
	fmt.Fprintln(p.out, line)
}
