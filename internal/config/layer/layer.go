// Package layer stacks configuration documents by priority.
//
// Each layer holds a whole document, such as built-in defaults, a file or
// an environment overlay. The effective document is every layer merged
// with the Replace strategy from the lowest priority to the highest, so a
// parameter set by a higher layer overrides the same parameter below it.
package layer

import (
	"time"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// Layer is one document in a Manager.
type Layer struct {
	// Name identifies the layer (e.g., "defaults", "site.oop", "env").
	Name string

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Path is the file path (if loaded from file).
	Path string

	// Doc holds the layer content.
	Doc *document.Document

	// ModTime is when the layer content was last replaced.
	ModTime time.Time

	// ReadOnly prevents Set and Delete on this layer.
	ReadOnly bool
}

// New creates a layer holding doc, or an empty document when doc is nil.
func New(name string, source Source, priority int, doc *document.Document) *Layer {
	if doc == nil {
		doc = document.New()
	}
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Doc:      doc,
		ModTime:  time.Now(),
	}
}

// NewStandard creates a layer with the standard name and priority of
// source.
func NewStandard(source Source, doc *document.Document) *Layer {
	return New(StandardName(source), source, DefaultPriority(source), doc)
}

// Clone copies the layer and its document.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Doc = l.Doc.Clone()
	return &c
}

// Source indicates where a layer came from.
type Source uint8

const (
	// SourceDefaults represents built-in or schema defaults.
	SourceDefaults Source = iota
	// SourceFile represents a document loaded from a file.
	SourceFile
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceArgs represents command-line overrides.
	SourceArgs
	// SourceSession represents in-memory overrides.
	SourceSession
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceDefaults:
		return "defaults"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "environment"
	case SourceArgs:
		return "arguments"
	case SourceSession:
		return "session"
	default:
		return "unknown"
	}
}
