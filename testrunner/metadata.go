package testrunner

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata is the YAML front matter of a test file.
type Metadata struct {
	Description string    `yaml:"description"`
	Features    []string  `yaml:"features"`
	Flags       []string  `yaml:"flags"`
	Includes    []string  `yaml:"includes"`
	Negative    *Negative `yaml:"negative"`
}

// Negative describes the error a test expects.
type Negative struct {
	Phase string `yaml:"phase"` // parse, resolution or runtime
	Type  string `yaml:"type"`
}

// ParseMetadata extracts the front matter between /*--- and ---*/. A file
// without front matter has empty metadata.
func ParseMetadata(source string) (*Metadata, error) {
	meta := &Metadata{}
	start := strings.Index(source, "/*---")
	if start < 0 {
		return meta, nil
	}
	end := strings.Index(source[start:], "---*/")
	if end < 0 {
		return nil, errors.New("unterminated front matter")
	}
	if err := yaml.Unmarshal([]byte(source[start+5:start+end]), meta); err != nil {
		return nil, errors.Wrap(err, "front matter")
	}
	return meta, nil
}

func (m *Metadata) hasFlag(flag string) bool { return slices.Contains(m.Flags, flag) }

// unsupportedFeatures lists test262 feature tags outside what the engine
// implements.
var unsupportedFeatures = map[string]bool{
	"SharedArrayBuffer":               true,
	"Atomics":                         true,
	"ArrayBuffer":                     true,
	"TypedArray":                      true,
	"DataView":                        true,
	"WeakRef":                         true,
	"FinalizationRegistry":            true,
	"cross-realm":                     true,
	"import.meta":                     true,
	"dynamic-import":                  true,
	"top-level-await":                 true,
	"regexp-lookbehind":               true,
	"regexp-unicode-property-escapes": true,
	"regexp-v-flag":                   true,
	"Intl":                            true,
	"Temporal":                        true,
	"decorators":                      true,
	"import-assertions":               true,
	"json-modules":                    true,
	"IsHTMLDDA":                       true,
	"tail-call-optimization":          true,
}

func (m *Metadata) skipReason() string {
	for _, feat := range m.Features {
		if unsupportedFeatures[feat] {
			return "unsupported feature: " + feat
		}
	}
	if m.hasFlag("module") {
		return "module test"
	}
	if m.hasFlag("CanBlockIsTrue") || m.hasFlag("CanBlockIsFalse") {
		return "agent blocking test"
	}
	return ""
}
