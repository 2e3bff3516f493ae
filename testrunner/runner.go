// Package testrunner runs test262-style conformance directories against
// engine contexts.
package testrunner

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/example/jscore/engine"
	jsrt "github.com/example/jscore/runtime"
)

type Result int

const (
	Pass Result = iota
	Fail
	Skip
	Error
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Skip:
		return "SKIP"
	case Error:
		return "ERROR"
	}
	return "UNKNOWN"
}

type TestResult struct {
	Path    string
	Result  Result
	Message string
	Elapsed time.Duration
}

type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int
	Elapsed time.Duration
}

// PassRate is the share of passing tests among those that were not skipped.
func (s Summary) PassRate() float64 {
	ran := s.Total - s.Skipped
	if ran == 0 {
		return 0
	}
	return float64(s.Passed) / float64(ran) * 100
}

func (s *Summary) add(r Result) {
	switch r {
	case Pass:
		s.Passed++
	case Fail:
		s.Failed++
	case Skip:
		s.Skipped++
	case Error:
		s.Errors++
	}
}

type Config struct {
	Test262Dir string
	Filter     string
	Limit      int
	// Workers bounds the number of tests run at once; zero means one per CPU.
	Workers int
	// Timeout bounds each test; zero means 5s.
	Timeout time.Duration
	Limits  jsrt.Limits
	Logger  *slog.Logger
	// OnResult is called once per finished test, never concurrently.
	OnResult func(TestResult)
}

const (
	asyncComplete = "Test262:AsyncTestComplete"
	asyncFailure  = "Test262:AsyncTestFailure:"
)

// Run discovers and runs the tests under cfg.Test262Dir/test. Results are
// sorted by path.
func Run(ctx context.Context, cfg Config) ([]TestResult, Summary, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	testDir := filepath.Join(cfg.Test262Dir, "test")
	files, err := discover(testDir, cfg.Filter)
	if err != nil {
		return nil, Summary{}, err
	}
	if cfg.Limit > 0 && len(files) > cfg.Limit {
		files = files[:cfg.Limit]
	}
	cfg.Logger.Debug("running tests", "count", len(files), "workers", cfg.Workers)

	h := newHarness(filepath.Join(cfg.Test262Dir, "harness"))
	var (
		start   = time.Now()
		results = make([]TestResult, 0, len(files))
		summary = Summary{Total: len(files)}
		mu      sync.Mutex
		group   errgroup.Group
	)
	group.SetLimit(cfg.Workers)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			rel, _ := filepath.Rel(cfg.Test262Dir, path)
			tr := runFile(ctx, cfg, h, path, rel)
			mu.Lock()
			defer mu.Unlock()
			results = append(results, tr)
			summary.add(tr.Result)
			if cfg.OnResult != nil {
				cfg.OnResult(tr)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, Summary{}, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	summary.Elapsed = time.Since(start)
	return results, summary, ctx.Err()
}

func discover(testDir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(testDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".js") || strings.Contains(path, "_FIXTURE") {
			return nil
		}
		if filter != "" {
			rel, _ := filepath.Rel(testDir, path)
			if !strings.Contains(rel, filter) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", testDir)
	}
	return files, nil
}

// harness caches include files shared by every test.
type harness struct {
	dir   string
	mu    sync.Mutex
	files map[string]string
}

func newHarness(dir string) *harness {
	return &harness{dir: dir, files: make(map[string]string)}
}

func (h *harness) load(name string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if src, ok := h.files[name]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "loading harness")
	}
	h.files[name] = string(data)
	return h.files[name], nil
}

// prelude concatenates the includes a test needs.
func (h *harness) prelude(meta *Metadata) (string, error) {
	if meta.hasFlag("raw") {
		return "", nil
	}
	names := []string{"assert.js", "sta.js"}
	if meta.hasFlag("async") {
		names = append(names, "doneprintHandle.js")
	}
	names = append(names, meta.Includes...)
	var b strings.Builder
	for _, name := range names {
		src, err := h.load(name)
		if err != nil {
			return "", err
		}
		b.WriteString(src)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func runFile(ctx context.Context, cfg Config, h *harness, path, rel string) TestResult {
	source, err := os.ReadFile(path)
	if err != nil {
		return TestResult{Path: rel, Result: Error, Message: err.Error()}
	}
	meta, err := ParseMetadata(string(source))
	if err != nil {
		return TestResult{Path: rel, Result: Error, Message: err.Error()}
	}
	if reason := meta.skipReason(); reason != "" {
		return TestResult{Path: rel, Result: Skip, Message: reason}
	}
	prelude, err := h.prelude(meta)
	if err != nil {
		return TestResult{Path: rel, Result: Error, Message: err.Error()}
	}

	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	tr := runTest(tctx, cfg, meta, prelude, string(source))
	tr.Path = rel
	tr.Elapsed = time.Since(start)
	if errors.Is(tctx.Err(), context.DeadlineExceeded) && tr.Result != Pass {
		tr.Result, tr.Message = Error, "timeout ("+cfg.Timeout.String()+")"
	}
	return tr
}

func runTest(ctx context.Context, cfg Config, meta *Metadata, prelude, source string) TestResult {
	c, err := engine.New(
		engine.WithLogger(cfg.Logger),
		engine.WithLimits(cfg.Limits),
		engine.WithStdout(io.Discard),
		engine.WithStderr(io.Discard),
	)
	if err != nil {
		return TestResult{Result: Error, Message: err.Error()}
	}
	defer c.Close()

	var printed strings.Builder
	if err := installHost(c, &printed); err != nil {
		return TestResult{Result: Error, Message: err.Error()}
	}
	if _, err := c.EvalContext(ctx, "harness", prelude); err != nil {
		return TestResult{Result: Error, Message: "harness: " + err.Error()}
	}
	if meta.hasFlag("onlyStrict") {
		source = "'use strict';\n" + source
	}
	_, err = c.EvalContext(ctx, "test", source)
	if err == nil && meta.hasFlag("async") {
		err = c.RunJobsContext(ctx)
	}
	thrown := ""
	var se *engine.ScriptError
	if errors.As(err, &se) {
		if thrown = constructorName(c.Agent(), se.Value); thrown == "" {
			thrown = se.Name
		}
	}
	return judge(meta, err, thrown, printed.String())
}

// constructorName names the constructor of a thrown object, which is how
// negative tests name the error they expect.
func constructorName(a *jsrt.Agent, v *jsrt.Value) string {
	o := v.AsObject()
	if o == nil {
		return ""
	}
	ctor, err := o.Get(a, jsrt.StringKey("constructor"))
	if err != nil || !ctor.IsObject() {
		return ""
	}
	name, err := ctor.AsObject().Get(a, jsrt.StringKey("name"))
	if err != nil || !name.IsString() {
		return ""
	}
	return name.String()
}

// judge compares the outcome of a test with its expectation. thrown names
// the constructor of the uncaught exception, if any.
func judge(meta *Metadata, err error, thrown, printed string) TestResult {
	if neg := meta.Negative; neg != nil {
		switch {
		case err == nil:
			return TestResult{Result: Fail, Message: "expected " + neg.Type + " in " + neg.Phase + " phase"}
		case thrown == "":
			return TestResult{Result: Fail, Message: err.Error()}
		case thrown != neg.Type:
			return TestResult{Result: Fail, Message: "expected " + neg.Type + ", got " + err.Error()}
		}
		return TestResult{Result: Pass}
	}
	if err != nil {
		return TestResult{Result: Fail, Message: err.Error()}
	}
	if meta.hasFlag("async") {
		if i := strings.Index(printed, asyncFailure); i >= 0 {
			return TestResult{Result: Fail, Message: strings.TrimSpace(printed[i+len(asyncFailure):])}
		}
		if !strings.Contains(printed, asyncComplete) {
			return TestResult{Result: Fail, Message: "async test did not complete"}
		}
	}
	return TestResult{Result: Pass}
}
