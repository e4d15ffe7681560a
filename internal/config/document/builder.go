package document

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Builder assembles a document with chained calls. Errors are collected
// and reported by Build.
//
//	doc, err := document.NewBuilder().
//		AddSection("object").
//		AddParameter("id", "17030").
//		EndSection().
//		Build()
type Builder struct {
	doc     *Document
	current string
	open    bool
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{doc: New()}
}

// AddSection opens a section, creating it if needed.
func (b *Builder) AddSection(name string) *Builder {
	name = strings.TrimSpace(name)
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("adding section: %w", ErrEmptyName))
		return b
	}
	b.doc.AddSection(name)
	b.current = name
	b.open = true
	return b
}

// AddParameter sets key in the open section.
func (b *Builder) AddParameter(key, literal string) *Builder {
	if !b.open {
		b.errs = append(b.errs, fmt.Errorf("adding parameter %q: %w", key, ErrNoSection))
		return b
	}
	if NormalizeKey(key) == "" {
		b.errs = append(b.errs, fmt.Errorf("adding parameter to %q: %w", b.current, ErrEmptyName))
		return b
	}
	b.doc.SetParameter(b.current, key, literal)
	return b
}

// AddParameters sets every entry of params in the open section, in key
// order.
func (b *Builder) AddParameters(params map[string]string) *Builder {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.AddParameter(k, params[k])
	}
	return b
}

// EndSection closes the open section.
func (b *Builder) EndSection() *Builder {
	b.open = false
	b.current = ""
	return b
}

// AddSectionFrom copies a section from src. A missing section is an error.
func (b *Builder) AddSectionFrom(src *Document, name string) *Builder {
	s, ok := src.GetSection(name)
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("copying section %q: not found", name))
		return b
	}
	b.doc.PutSection(s)
	return b
}

// SectionCount returns the number of sections built so far.
func (b *Builder) SectionCount() int {
	return b.doc.Len()
}

// SectionNames returns the names of sections built so far.
func (b *Builder) SectionNames() []string {
	return b.doc.SectionNames()
}

// Clear discards everything built so far, including errors.
func (b *Builder) Clear() *Builder {
	b.doc = New()
	b.current = ""
	b.open = false
	b.errs = nil
	return b
}

// Build returns the document, or the joined errors of any failed call.
// The builder is reset afterwards.
func (b *Builder) Build() (*Document, error) {
	doc, err := b.doc, errors.Join(b.errs...)
	b.Clear()
	if err != nil {
		return nil, err
	}
	return doc, nil
}
