// jsgo runs JavaScript files and test262 suites on the jscore engine.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/jscore/engine"
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML engine config file",
	}
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level (debug|info|warn|error)",
		Value: "warn",
	}
	MaxStepsFlag = &cli.Uint64Flag{
		Name:  "max-steps",
		Usage: "evaluation step budget per script (0 = unlimited)",
	}
	MaxDepthFlag = &cli.IntFlag{
		Name:  "max-depth",
		Usage: "maximum call depth",
	}
)

var app = &cli.App{
	Name:  "jsgo",
	Usage: "run JavaScript on the jscore engine",
	Flags: []cli.Flag{
		ConfigFlag,
		VerbosityFlag,
		MaxStepsFlag,
		MaxDepthFlag,
	},
	Commands: []*cli.Command{
		runCommand,
		evalCommand,
		checkCommand,
		test262Command,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engineConfig merges the config file with the global flags.
func engineConfig(ctx *cli.Context) (*engine.Config, error) {
	cfg := &engine.Config{}
	if path := ctx.String(ConfigFlag.Name); path != "" {
		loaded, err := engine.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if ctx.IsSet(VerbosityFlag.Name) || cfg.LogLevel == "" {
		cfg.LogLevel = ctx.String(VerbosityFlag.Name)
	}
	if ctx.IsSet(MaxStepsFlag.Name) {
		cfg.Limits.MaxSteps = ctx.Uint64(MaxStepsFlag.Name)
	}
	if ctx.IsSet(MaxDepthFlag.Name) {
		cfg.Limits.MaxCallDepth = ctx.Int(MaxDepthFlag.Name)
	}
	if cfg.Limits.MaxCallDepth < 0 {
		return nil, errors.Errorf("invalid --%s %d", MaxDepthFlag.Name, cfg.Limits.MaxCallDepth)
	}
	return cfg, nil
}
