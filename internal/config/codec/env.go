package codec

import (
	"os"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// EnvSource reads parameters from environment variables.
//
// A variable PREFIX_SECTION__KEY=value sets parameter "key" of section
// "section"; both names are lower-cased. Explicit mappings take precedence
// over the naming convention.
type EnvSource struct {
	prefix  string            // Environment variable prefix (e.g., "CFGDOC_")
	mapping map[string]string // Env var -> "section.key"
}

// NewEnvSource creates an environment source.
// The prefix should include the trailing underscore (e.g., "CFGDOC_").
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix:  prefix,
		mapping: make(map[string]string),
	}
}

// AddMapping maps envVar to a "section.key" target.
func (e *EnvSource) AddMapping(envVar, target string) {
	e.mapping[envVar] = target
}

// RemoveMapping removes an environment variable mapping.
func (e *EnvSource) RemoveMapping(envVar string) {
	delete(e.mapping, envVar)
}

// Load reads the process environment.
func (e *EnvSource) Load() *document.Document {
	return e.Decode(os.Environ())
}

// Decode builds a document from "NAME=value" pairs. Empty values are kept
// as empty strings. Variables that match neither a mapping nor the naming
// convention are ignored.
func (e *EnvSource) Decode(environ []string) *document.Document {
	doc := document.New()
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if target, ok := e.mapping[name]; ok {
			section, key, ok := strings.Cut(target, ".")
			if ok && section != "" && key != "" {
				doc.SetParameter(section, key, value)
			}
			continue
		}
		if e.prefix == "" || !strings.HasPrefix(name, e.prefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.TrimPrefix(name, e.prefix), "__")
		if !ok || section == "" || key == "" {
			continue
		}
		doc.SetParameter(strings.ToLower(section), strings.ToLower(key), value)
	}
	return doc
}
