package engine

import (
	"io"
	"log/slog"
	"os"

	"github.com/example/jscore/runtime"
)

// Option configures a Context. Options apply in order, so options given
// after WithConfigFile override what the file sets.
type Option func(*settings) error

type settings struct {
	logger         *slog.Logger
	limits         runtime.Limits
	stdout         io.Writer
	stderr         io.Writer
	parseCacheSize int
	canBlock       bool
}

func defaultSettings() *settings {
	return &settings{
		limits:         runtime.DefaultLimits(),
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		parseCacheSize: DefaultParseCacheSize,
		canBlock:       true,
	}
}

// WithLogger sets the logger shared by the Context and its agent.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) error {
		s.logger = l
		return nil
	}
}

// WithLimits sets the execution limits.
func WithLimits(l runtime.Limits) Option {
	return func(s *settings) error {
		s.limits = l
		return nil
	}
}

// WithConfigFile loads options from a YAML file.
func WithConfigFile(path string) Option {
	return func(s *settings) error {
		cfg, err := LoadConfig(path)
		if err != nil {
			return err
		}
		return cfg.apply(s)
	}
}

// WithConfig applies an already loaded config.
func WithConfig(cfg *Config) Option {
	return func(s *settings) error { return cfg.apply(s) }
}

// WithStdout sets the writer behind console.log and console.info.
func WithStdout(w io.Writer) Option {
	return func(s *settings) error {
		s.stdout = w
		return nil
	}
}

// WithStderr sets the writer behind console.error and console.warn.
func WithStderr(w io.Writer) Option {
	return func(s *settings) error {
		s.stderr = w
		return nil
	}
}

// WithParseCacheSize bounds the parsed-program cache; n < 0 disables it.
func WithParseCacheSize(n int) Option {
	return func(s *settings) error {
		s.parseCacheSize = n
		return nil
	}
}

// WithCanBlock marks whether the Context may block its goroutine. Only one
// non-blocking Context may be open per goroutine.
func WithCanBlock(b bool) Option {
	return func(s *settings) error {
		s.canBlock = b
		return nil
	}
}
