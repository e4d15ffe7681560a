package config

import (
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/diff"
	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/merge"
	"github.com/dshills/cfgdoc/internal/config/pointer"
	"github.com/dshills/cfgdoc/internal/config/schema"
)

// GetValueByPath returns the literal at "/section/key", the JSON form of
// "/section" or "/", and "" when path does not resolve.
func (c *Config) GetValueByPath(path string) string {
	return pointer.Get(c.doc, path)
}

// SetValueByPath writes value at "/section/key", or creates an empty
// section for "/section". Nothing is applied on failure.
func (c *Config) SetValueByPath(path, value string) bool {
	old := pointer.Get(c.doc, path)
	if err := pointer.Set(c.doc, path, value); err != nil {
		return c.fail("set", path, err)
	}
	c.notifier.NotifySet(path, old, value, SourceAPI)
	return true
}

// HasPath reports whether path resolves.
func (c *Config) HasPath(path string) bool {
	return pointer.Has(c.doc, path)
}

// DeleteByPath removes the section or parameter at path.
func (c *Config) DeleteByPath(path string) bool {
	old := pointer.Get(c.doc, path)
	if !pointer.Delete(c.doc, path) {
		return c.fail("delete", path, pointer.ErrInvalidPath)
	}
	c.notifier.NotifyDelete(path, old, SourceAPI)
	return true
}

// GetAllPaths lists every section and parameter path in document order.
func (c *Config) GetAllPaths() []string {
	return pointer.AllPaths(c.doc)
}

// Merge merges other into the document with strategy. Custom requires
// MergeWithResolver and fails here.
func (c *Config) Merge(other *Config, strategy merge.Strategy) bool {
	return c.mergeDocument(other.doc, strategy, nil, SourceMerge)
}

// MergeWithResolver merges other with the Custom strategy, settling each
// conflict with r.
func (c *Config) MergeWithResolver(other *Config, r merge.Resolver) bool {
	return c.mergeDocument(other.doc, merge.Custom, r, SourceMerge)
}

// MergeDocument merges a bare document into c.
func (c *Config) MergeDocument(other *document.Document, strategy merge.Strategy, r merge.Resolver) bool {
	return c.mergeDocument(other, strategy, r, SourceMerge)
}

func (c *Config) mergeDocument(other *document.Document, strategy merge.Strategy, r merge.Resolver, source string) bool {
	stats, err := merge.Merge(c.doc, other, strategy, r)
	c.mu.Lock()
	c.mergeStats = stats
	c.mu.Unlock()
	if err != nil {
		return c.fail("merge", strategy.String(), err)
	}

	mergeOperations.WithLabelValues(strategy.String()).Inc()
	c.logger.Debug("merged", zap.Stringer("strategy", strategy), zap.Stringer("stats", stats))
	c.notifier.NotifyMerge(stats.String(), source)
	return true
}

// LastMergeStats returns the statistics of the most recent merge.
func (c *Config) LastMergeStats() merge.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mergeStats
	s.ConflictKeys = append([]string(nil), c.mergeStats.ConflictKeys...)
	return s
}

// Diff compares the document with other's.
func (c *Config) Diff(other *Config) []diff.Entry {
	return diff.Compute(c.doc, other.doc)
}

// DiffReport renders Diff as text.
func (c *Config) DiffReport(other *Config, onlyChanges bool) string {
	return diff.Report(c.Diff(other), onlyChanges)
}

// DiffAsJSON renders Diff as a JSON array, or "" on failure.
func (c *Config) DiffAsJSON(other *Config) string {
	data, err := diff.JSON(c.Diff(other))
	if err != nil {
		c.fail("diff", "json", err)
		return ""
	}
	return string(data)
}

// SetSchema sets the schema used by Validate.
func (c *Config) SetSchema(s *schema.Schema) {
	c.mu.Lock()
	c.schema = s
	c.mu.Unlock()
}

// Schema returns the schema set with SetSchema or WithSchema, or nil.
func (c *Config) Schema() *schema.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

// Validate checks the document against the configured schema. Without a
// schema it is always valid.
func (c *Config) Validate() (bool, []string) {
	s := c.Schema()
	if s == nil {
		return true, nil
	}
	return c.ValidateWithSchema(s)
}

// ValidateWithSchema checks the document against s.
func (c *Config) ValidateWithSchema(s *schema.Schema, opts ...schema.ValidateOption) (bool, []string) {
	opts = append([]schema.ValidateOption{schema.WithLogger(c.logger.Named("schema"))}, opts...)
	errs := schema.Validate(c.doc, s, opts...)
	return len(errs) == 0, errs
}

// ValidateJSONSchema checks required sections and parameters declared in
// a reduced JSON Schema document.
func (c *Config) ValidateJSONSchema(schemaJSON string) (bool, []string) {
	errs, err := schema.ValidateRequired(c.doc, []byte(schemaJSON))
	if err != nil {
		c.fail("validate", "json schema", err)
		return false, []string{err.Error()}
	}
	return len(errs) == 0, errs
}

// ApplyDefaults fills missing parameters that declare a default in s and
// returns how many were added.
func (c *Config) ApplyDefaults(s *schema.Schema) int {
	n := schema.ApplyDefaults(c.doc, s)
	if n > 0 {
		c.notifier.NotifyReload(SourceAPI)
	}
	return n
}
