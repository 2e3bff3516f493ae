package testrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staJS = `
function Test262Error(message) { this.message = message || ""; }
Test262Error.prototype.toString = function () { return "Test262Error: " + this.message; };
function $DONOTEVALUATE() { throw "Test262: This statement should not be evaluated."; }
`

const assertJS = `
function assert(ok, message) { if (ok !== true) throw new Test262Error(message); }
assert.sameValue = function (actual, expected, message) {
	if (!Object.is(actual, expected)) throw new Test262Error((message || "") + " expected " + expected + " got " + actual);
};
`

const doneprintJS = `
function $DONE(error) {
	if (error) { print("Test262:AsyncTestFailure:" + error); } else { print("Test262:AsyncTestComplete"); }
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func suite(t *testing.T) string {
	return writeTree(t, map[string]string{
		"harness/sta.js":             staJS,
		"harness/assert.js":          assertJS,
		"harness/doneprintHandle.js": doneprintJS,
		"harness/compare.js":         "function same(a, b) { return a === b }\n",

		"test/pass.js":             "/*---\ndescription: adds\n---*/\nassert.sameValue(1 + 1, 2);\n",
		"test/fail.js":             "/*---\ndescription: wrong\n---*/\nassert.sameValue(1 + 1, 3, 'sum');\n",
		"test/includes.js":         "/*---\nincludes: [compare.js]\n---*/\nassert(same(1, 1));\n",
		"test/strict.js":           "/*---\nflags: [onlyStrict]\n---*/\nassert.sameValue((function () { return this })(), undefined);\n",
		"test/negative-parse.js":   "/*---\nnegative:\n  phase: parse\n  type: SyntaxError\n---*/\n$DONOTEVALUATE();\nvar x = ;\n",
		"test/negative-runtime.js": "/*---\nnegative:\n  phase: runtime\n  type: Test262Error\n---*/\nthrow new Test262Error('expected');\n",
		"test/negative-wrong.js":   "/*---\nnegative:\n  phase: runtime\n  type: TypeError\n---*/\nthrow new RangeError('nope');\n",
		"test/async-ok.js":         "/*---\nflags: [async]\n---*/\nPromise.resolve(1).then(v => assert.sameValue(v, 1)).then($DONE, $DONE);\n",
		"test/async-bad.js":        "/*---\nflags: [async]\n---*/\nPromise.reject(new Test262Error('late')).then($DONE, $DONE);\n",
		"test/skip-feature.js":     "/*---\nfeatures: [TypedArray]\n---*/\nnew Int8Array(1);\n",
		"test/skip-module.js":      "/*---\nflags: [module]\n---*/\nexport default 1;\n",
		"test/eval-script.js":      "/*---\ndescription: host eval\n---*/\n$262.evalScript('var fromHost = 7;');\nassert.sameValue(fromHost, 7);\n",
		"test/spin.js":             "/*---\ndescription: never ends\n---*/\nfor (;;) {}\n",
		"test/sub/foo_FIXTURE.js":  "throw 1;\n",
	})
}

func TestRun(t *testing.T) {
	dir := suite(t)
	var seen int
	results, summary, err := Run(context.Background(), Config{
		Test262Dir: dir,
		Workers:    4,
		Timeout:    500 * time.Millisecond,
		OnResult:   func(TestResult) { seen++ },
	})
	require.NoError(t, err)

	got := make(map[string]Result)
	for _, r := range results {
		got[filepath.ToSlash(r.Path)] = r.Result
	}
	want := map[string]Result{
		"test/pass.js":             Pass,
		"test/fail.js":             Fail,
		"test/includes.js":         Pass,
		"test/strict.js":           Pass,
		"test/negative-parse.js":   Pass,
		"test/negative-runtime.js": Pass,
		"test/negative-wrong.js":   Fail,
		"test/async-ok.js":         Pass,
		"test/async-bad.js":        Fail,
		"test/skip-feature.js":     Skip,
		"test/skip-module.js":      Skip,
		"test/eval-script.js":      Pass,
		"test/spin.js":             Error,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(want), seen)
	assert.Equal(t, Summary{Total: 13, Passed: 7, Failed: 3, Skipped: 2, Errors: 1, Elapsed: summary.Elapsed}, summary)
	assert.InDelta(t, 63.6, summary.PassRate(), 0.1)

	for _, r := range results {
		if r.Path == filepath.FromSlash("test/async-bad.js") {
			assert.Contains(t, r.Message, "late")
		}
		if r.Path == filepath.FromSlash("test/spin.js") {
			assert.Contains(t, r.Message, "timeout")
		}
	}
}

func TestRunFilterAndLimit(t *testing.T) {
	dir := suite(t)
	results, summary, err := Run(context.Background(), Config{Test262Dir: dir, Filter: "negative"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 3, summary.Total)

	results, _, err = Run(context.Background(), Config{Test262Dir: dir, Filter: "negative", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, _, err = Run(context.Background(), Config{Test262Dir: filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(`// header
/*---
description: >
  folded description
features: [Symbol, Proxy]
flags:
  - onlyStrict
includes: [compareArray.js]
negative:
  phase: runtime
  type: TypeError
---*/
code();`)
	require.NoError(t, err)
	want := &Metadata{
		Description: "folded description\n",
		Features:    []string{"Symbol", "Proxy"},
		Flags:       []string{"onlyStrict"},
		Includes:    []string{"compareArray.js"},
		Negative:    &Negative{Phase: "runtime", Type: "TypeError"},
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	meta, err = ParseMetadata("plain();")
	require.NoError(t, err)
	assert.Equal(t, &Metadata{}, meta)

	_, err = ParseMetadata("/*--- flags: [a")
	assert.Error(t, err)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "PASS", Pass.String())
	assert.Equal(t, "FAIL", Fail.String())
	assert.Equal(t, "SKIP", Skip.String())
	assert.Equal(t, "ERROR", Error.String())
	assert.Equal(t, "UNKNOWN", Result(42).String())
}
