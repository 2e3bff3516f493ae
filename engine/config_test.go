package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/jscore/runtime"
)

func TestParseConfig(t *testing.T) {
	no := false
	tests := []struct {
		name string
		in   string
		want *Config
	}{
		{
			name: "full",
			in: `
limits:
  max_call_depth: 200
  max_steps: 5000
  max_prototype_chain: 50
parse_cache_size: 8
can_block: false
log_level: debug
`,
			want: &Config{
				Limits:         runtime.Limits{MaxCallDepth: 200, MaxSteps: 5000, MaxPrototypeChain: 50},
				ParseCacheSize: 8,
				CanBlock:       &no,
				LogLevel:       "debug",
			},
		},
		{
			name: "partial",
			in:   "limits:\n  max_steps: 10\n",
			want: &Config{Limits: runtime.Limits{MaxSteps: 10}},
		},
		{
			name: "empty",
			in:   "",
			want: &Config{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.in))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	for name, in := range map[string]string{
		"unknown key":    "max_steps: 10\n",
		"bad level":      "log_level: loud\n",
		"negative depth": "limits:\n  max_call_depth: -1\n",
		"not yaml":       "limits: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_steps: 500\n  max_call_depth: 32\nparse_cache_size: 4\n"), 0o644))

	c, _ := newTestContext(t, WithConfigFile(path))
	assert.Equal(t, uint64(500), c.Limits().MaxSteps)
	assert.Equal(t, 32, c.Limits().MaxCallDepth)

	// Later options win over the file.
	c2, _ := newTestContext(t, WithConfigFile(path), WithLimits(runtime.Limits{MaxSteps: 7}), WithParseCacheSize(-1))
	assert.Equal(t, uint64(7), c2.Limits().MaxSteps)
	assert.Zero(t, c2.cache.Len())

	_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestConfigLogLevel(t *testing.T) {
	var logs bytes.Buffer
	cfg, err := ParseConfig([]byte("log_level: warn\n"))
	require.NoError(t, err)

	c, _ := newTestContext(t, WithStderr(&logs), WithConfig(cfg), WithLimits(runtime.Limits{MaxSteps: 50}))
	_, err = c.Eval(`for (;;) {}`)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.NotContains(t, logs.String(), "context created")
}
