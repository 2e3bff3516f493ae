package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printer writes results, coloring them when the stream is a terminal.
type printer struct {
	out, err       io.Writer
	pass, fail     *color.Color
	skip, uncaught *color.Color
}

func newPrinter() *printer {
	p := &printer{
		out:      os.Stdout,
		err:      os.Stderr,
		pass:     color.New(color.FgGreen),
		fail:     color.New(color.FgRed),
		skip:     color.New(color.FgYellow),
		uncaught: color.New(color.FgRed, color.Bold),
	}
	outTTY := isTerminal(os.Stdout)
	for _, c := range []*color.Color{p.pass, p.fail, p.skip} {
		setColor(c, outTTY)
	}
	setColor(p.uncaught, isTerminal(os.Stderr))
	return p
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func setColor(c *color.Color, on bool) {
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

// uncaughtError reports an error that stopped a script.
func (p *printer) uncaughtError(err error) {
	p.uncaught.Fprintln(p.err, err.Error())
}

func (p *printer) result(s string) {
	fmt.Fprintln(p.out, s)
}
