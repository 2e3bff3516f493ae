package engine

import (
	"bytes"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/jscore/runtime"
)

// DefaultParseCacheSize is the number of parsed programs a Context keeps
// when no size is configured.
const DefaultParseCacheSize = 128

// Config is the file form of the Context options.
//
//	limits:
//	  max_call_depth: 512
//	  max_steps: 1000000
//	parse_cache_size: 64
//	can_block: false
//	log_level: debug
type Config struct {
	Limits runtime.Limits `yaml:"limits"`

	// ParseCacheSize bounds the parsed-program cache. A negative size
	// disables caching.
	ParseCacheSize int `yaml:"parse_cache_size"`

	// CanBlock is nil when the file leaves the default in place.
	CanBlock *bool `yaml:"can_block"`

	// LogLevel is one of debug, info, warn or error. Empty keeps the
	// configured logger.
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes YAML config content. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return &cfg, nil
		}
		return nil, errors.Wrap(err, "parsing yaml")
	}
	if _, err := cfg.level(); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxCallDepth < 0 || cfg.Limits.MaxPrototypeChain < 0 {
		return nil, errors.New("limits must not be negative")
	}
	return &cfg, nil
}

func (c *Config) level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return lvl, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return lvl, errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return lvl, nil
}

func (c *Config) apply(s *settings) error {
	if c.Limits != (runtime.Limits{}) {
		s.limits = c.Limits
	}
	if c.ParseCacheSize != 0 {
		s.parseCacheSize = c.ParseCacheSize
	}
	if c.CanBlock != nil {
		s.canBlock = *c.CanBlock
	}
	if c.LogLevel != "" {
		lvl, err := c.level()
		if err != nil {
			return err
		}
		s.logger = slog.New(slog.NewTextHandler(s.stderr, &slog.HandlerOptions{Level: lvl}))
	}
	return nil
}
