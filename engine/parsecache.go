package engine

import (
	"context"
	"log/slog"

	"github.com/dop251/goja/ast"
	lru "github.com/hashicorp/golang-lru"

	"github.com/example/jscore/interpreter"
)

// parseCache memoizes parsed programs by script name and source. Parse
// failures are not cached.
type parseCache struct {
	programs *lru.Cache
	parse    interpreter.ParseFunc
	log      func(ctx context.Context, level slog.Level, msg string, args ...any)

	hits, misses int
}

type parseKey struct {
	name, source string
}

func newParseCache(size int, log func(context.Context, slog.Level, string, ...any)) (*parseCache, error) {
	c := &parseCache{parse: interpreter.Parse, log: log}
	if size <= 0 {
		return c, nil
	}
	programs, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	c.programs = programs
	return c, nil
}

func (c *parseCache) Parse(name, source string) (*ast.Program, error) {
	if c.programs == nil {
		return c.parse(name, source)
	}
	key := parseKey{name: name, source: source}
	if prog, ok := c.programs.Get(key); ok {
		c.hits++
		c.log(context.Background(), slog.LevelDebug, "parse cache hit", "name", name, "bytes", len(source))
		return prog.(*ast.Program), nil
	}
	c.misses++
	prog, err := c.parse(name, source)
	if err != nil {
		return nil, err
	}
	c.programs.Add(key, prog)
	return prog, nil
}

func (c *parseCache) Len() int {
	if c.programs == nil {
		return 0
	}
	return c.programs.Len()
}
