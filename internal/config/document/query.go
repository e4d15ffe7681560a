package document

import (
	"fmt"
	"regexp"
)

// Match is one query result.
type Match struct {
	Section   string
	Parameter Parameter
}

// Path returns the pointer path of the match, e.g. "/object/id".
func (m Match) Path() string {
	return "/" + m.Section + "/" + m.Parameter.Key
}

// ParametersWhere returns the parameters of one section that satisfy pred.
func (d *Document) ParametersWhere(section string, pred func(Parameter) bool) []Parameter {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.lookup(section)
	if s == nil {
		return nil
	}
	var out []Parameter
	for _, p := range s.Parameters() {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// SectionsWhere returns copies of the sections that satisfy pred.
func (d *Document) SectionsWhere(pred func(*Section) bool) []*Section {
	var out []*Section
	for _, s := range d.Sections() {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// FindWhere searches every section for parameters that satisfy pred.
func (d *Document) FindWhere(pred func(section string, p Parameter) bool) []Match {
	var out []Match
	for _, s := range d.Sections() {
		for _, p := range s.Parameters() {
			if pred(s.name, p) {
				out = append(out, Match{Section: s.name, Parameter: p})
			}
		}
	}
	return out
}

// ParametersByKeyPattern returns parameters whose key matches pattern.
func (d *Document) ParametersByKeyPattern(pattern string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling key pattern: %w", err)
	}
	return d.FindWhere(func(_ string, p Parameter) bool {
		return re.MatchString(p.Key)
	}), nil
}

// ParametersByValuePattern returns parameters whose literal matches pattern.
func (d *Document) ParametersByValuePattern(pattern string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling value pattern: %w", err)
	}
	return d.FindWhere(func(_ string, p Parameter) bool {
		return re.MatchString(p.Value.Literal())
	}), nil
}

// ParametersByKind returns parameters of the given kind.
func (d *Document) ParametersByKind(kind Kind) []Match {
	return d.FindWhere(func(_ string, p Parameter) bool {
		return p.Value.Kind() == kind
	})
}
