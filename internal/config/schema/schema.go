// Package schema validates documents against declarative section and
// parameter specifications.
//
// A Schema lists sections in order. Each SectionSpec may be required and
// lists ParameterSpecs, which may be required, carry a default, restrict
// values to an allowed set, or bound numeric values with a RangeConstraint.
// Schemas can be exported to and read from JSON Schema (draft-07).
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// Schema is an ordered set of section specifications.
type Schema struct {
	Name        string
	Version     string
	Description string

	sections []*SectionSpec
	warnings []string
}

// New creates an empty schema.
func New(name, version string) *Schema {
	return &Schema{Name: name, Version: version}
}

// AddSection adds spec, replacing a section of the same name in place,
// and returns the stored spec for further editing.
func (s *Schema) AddSection(spec SectionSpec) *SectionSpec {
	stored := &spec
	stored.Parameters = slices.Clone(spec.Parameters)
	if i := slices.IndexFunc(s.sections, func(x *SectionSpec) bool { return x.Name == spec.Name }); i >= 0 {
		s.sections[i] = stored
	} else {
		s.sections = append(s.sections, stored)
	}
	return stored
}

// Section returns the named section spec.
func (s *Schema) Section(name string) (*SectionSpec, bool) {
	for _, spec := range s.sections {
		if spec.Name == name {
			return spec, true
		}
	}
	return nil, false
}

// Sections returns the section specs in order.
func (s *Schema) Sections() []*SectionSpec {
	return slices.Clone(s.sections)
}

// SetConstraint parses expr and attaches it to section/key, creating the
// section and parameter specs if needed. On a parse failure the parameter
// gets a disabled constraint, a warning is recorded and the error is
// returned.
func (s *Schema) SetConstraint(section, key, expr string) error {
	sec, ok := s.Section(section)
	if !ok {
		sec = s.AddSection(SectionSpec{Name: section})
	}
	p, ok := sec.Parameter(key)
	if !ok {
		p = sec.AddParameter(ParameterSpec{Key: key})
	}
	c, err := ParseConstraint(expr)
	p.Constraint = c
	if err != nil {
		s.warn(section+"."+key, err)
	}
	return err
}

// Warnings lists problems found while building the schema, such as
// constraint expressions that could not be parsed. Those constraints are
// disabled and accept every value.
func (s *Schema) Warnings() []string {
	return slices.Clone(s.warnings)
}

func (s *Schema) warn(path string, err error) {
	s.warnings = append(s.warnings, fmt.Sprintf("%s: %v", path, err))
}

// SectionSpec describes one section.
type SectionSpec struct {
	Name        string
	Required    bool
	Description string
	Parameters  []*ParameterSpec
}

// AddParameter adds spec, replacing a parameter with the same key in
// place, and returns the stored spec.
func (s *SectionSpec) AddParameter(spec ParameterSpec) *ParameterSpec {
	stored := &spec
	stored.Key = document.NormalizeKey(spec.Key)
	if i := slices.IndexFunc(s.Parameters, func(x *ParameterSpec) bool { return x.Key == stored.Key }); i >= 0 {
		s.Parameters[i] = stored
	} else {
		s.Parameters = append(s.Parameters, stored)
	}
	return stored
}

// Parameter returns the spec for key.
func (s *SectionSpec) Parameter(key string) (*ParameterSpec, bool) {
	key = document.NormalizeKey(key)
	for _, p := range s.Parameters {
		if p.Key == key {
			return p, true
		}
	}
	return nil, false
}

// ParameterSpec describes one parameter.
type ParameterSpec struct {
	Key           string
	Required      bool
	Default       string
	Description   string
	Constraint    RangeConstraint
	AllowedValues []string
}

// Check validates literal against the allowed values and then against the
// numeric constraint. Surrounding quotes are ignored.
func (p *ParameterSpec) Check(literal string) error {
	if verr := p.check(p.Key, literal, 0); verr != nil {
		return verr
	}
	return nil
}

func (p *ParameterSpec) check(path, literal string, catalogSize int) *ValidationError {
	value := document.Unquote(strings.TrimSpace(literal))

	if len(p.AllowedValues) > 0 && !slices.Contains(p.AllowedValues, value) {
		return NewEnumError(path, value, p.AllowedValues)
	}

	c := p.Constraint.WithCatalogSize(catalogSize)
	if !c.Enabled {
		return nil
	}
	f, err := document.NewValue(value).AsDouble()
	if err != nil {
		return NewNotNumericError(path, value, c)
	}
	if !c.IsSatisfied(f) {
		return NewRangeError(path, value, c)
	}
	return nil
}
