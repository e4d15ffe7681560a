package document

import (
	"slices"
	"strings"
)

// SectionClass classifies well-known section names. It is metadata only;
// unknown names are stored like any other.
type SectionClass uint8

const (
	ClassUnknown SectionClass = iota
	ClassObject
	ClassPropagation
	ClassAsteroids
	ClassTime
	ClassSearch
	ClassDatabase
	ClassGaia
	ClassObserver
	ClassOutput
	ClassPerformance
	ClassOccultation
	ClassFilters
)

var classNames = map[SectionClass]string{
	ClassUnknown:     "UNKNOWN",
	ClassObject:      "OBJECT",
	ClassPropagation: "PROPAGATION",
	ClassAsteroids:   "ASTEROIDS",
	ClassTime:        "TIME",
	ClassSearch:      "SEARCH",
	ClassDatabase:    "DATABASE",
	ClassGaia:        "GAIA",
	ClassObserver:    "OBSERVER",
	ClassOutput:      "OUTPUT",
	ClassPerformance: "PERFORMANCE",
	ClassOccultation: "OCCULTATION",
	ClassFilters:     "FILTERS",
}

// String returns the upper-case class name.
func (c SectionClass) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return classNames[ClassUnknown]
}

// ClassifySection maps a section name to its class, ignoring case.
func ClassifySection(name string) SectionClass {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "object":
		return ClassObject
	case "propag", "propagation":
		return ClassPropagation
	case "asteroids":
		return ClassAsteroids
	case "time":
		return ClassTime
	case "search":
		return ClassSearch
	case "database":
		return ClassDatabase
	case "gaia":
		return ClassGaia
	case "observer":
		return ClassObserver
	case "output":
		return ClassOutput
	case "performance":
		return ClassPerformance
	case "occultation":
		return ClassOccultation
	case "filters":
		return ClassFilters
	default:
		return ClassUnknown
	}
}

// Parameter binds a key to a value.
type Parameter struct {
	Key   string
	Value Value
}

// Section is an ordered map of parameters. Sections handed out by a
// Document are copies and can be read without holding the document lock.
type Section struct {
	name   string
	class  SectionClass
	keys   []string
	params map[string]Value
}

func newSection(name string) *Section {
	return &Section{
		name:   name,
		class:  ClassifySection(name),
		params: make(map[string]Value),
	}
}

// NewSection creates a detached, empty section.
func NewSection(name string) *Section {
	return newSection(strings.TrimSpace(name))
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Class returns the section classification.
func (s *Section) Class() SectionClass {
	return s.class
}

// Len returns the number of parameters.
func (s *Section) Len() int {
	return len(s.keys)
}

// Keys returns parameter keys in insertion order.
func (s *Section) Keys() []string {
	return slices.Clone(s.keys)
}

// Has reports whether key is present.
func (s *Section) Has(key string) bool {
	_, ok := s.params[NormalizeKey(key)]
	return ok
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (Value, bool) {
	v, ok := s.params[NormalizeKey(key)]
	return v, ok
}

// Parameter returns the parameter stored under key.
func (s *Section) Parameter(key string) (Parameter, bool) {
	k := NormalizeKey(key)
	v, ok := s.params[k]
	if !ok {
		return Parameter{}, false
	}
	return Parameter{Key: k, Value: v}, true
}

// Parameters returns all parameters in insertion order.
func (s *Section) Parameters() []Parameter {
	out := make([]Parameter, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Parameter{Key: k, Value: s.params[k]})
	}
	return out
}

// Set stores a value on a detached section.
func (s *Section) Set(key string, v Value) {
	s.set(NormalizeKey(key), v)
}

// set stores v under an already normalized key, keeping the position of
// an existing key.
func (s *Section) set(key string, v Value) {
	if _, ok := s.params[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.params[key] = v
}

func (s *Section) remove(key string) bool {
	if _, ok := s.params[key]; !ok {
		return false
	}
	delete(s.params, key)
	if i := slices.Index(s.keys, key); i >= 0 {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
	return true
}

func (s *Section) clone() *Section {
	c := &Section{
		name:   s.name,
		class:  s.class,
		keys:   slices.Clone(s.keys),
		params: make(map[string]Value, len(s.params)),
	}
	for k, v := range s.params {
		c.params[k] = v
	}
	return c
}
