package document

import (
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Document is the ordered section store.
type Document struct {
	mu       sync.Mutex
	id       uuid.UUID
	sections []*Section
	index    map[string]*Section
}

// Option configures a Document.
type Option func(*Document)

// WithID sets the instance ID instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(d *Document) {
		d.id = id
	}
}

// New creates an empty document.
func New(opts ...Option) *Document {
	d := &Document{
		id:    uuid.New(),
		index: make(map[string]*Section),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the document instance ID.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// SetParameter stores literal under section/key, inferring its kind. The
// section is created if missing; an existing key keeps its position.
func (d *Document) SetParameter(section, key, literal string) {
	d.SetValue(section, key, NewValue(literal))
}

// SetValue stores v under section/key.
func (d *Document) SetValue(section, key string, v Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensure(section).set(NormalizeKey(key), v)
}

// GetParameter returns the parameter at section/key.
func (d *Document) GetParameter(section, key string) (Parameter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.lookup(section)
	if s == nil {
		return Parameter{}, false
	}
	return s.Parameter(key)
}

// GetValue returns the value at section/key.
func (d *Document) GetValue(section, key string) (Value, bool) {
	p, ok := d.GetParameter(section, key)
	return p.Value, ok
}

// GetSection returns a copy of the named section.
func (d *Document) GetSection(name string) (*Section, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.lookup(name)
	if s == nil {
		return nil, false
	}
	return s.clone(), true
}

// HasSection reports whether the named section exists.
func (d *Document) HasSection(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookup(name) != nil
}

// HasParameter reports whether section/key exists.
func (d *Document) HasParameter(section, key string) bool {
	_, ok := d.GetParameter(section, key)
	return ok
}

// AddSection creates an empty section. It returns false if the section
// already existed.
func (d *Document) AddSection(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lookup(name) != nil {
		return false
	}
	d.ensure(name)
	return true
}

// PutSection stores a copy of s, replacing any section of the same name
// in place.
func (d *Document) PutSection(s *Section) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.put(s.clone())
}

// DeleteSection removes the named section.
func (d *Document) DeleteSection(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeSection(name)
}

// DeleteParameter removes section/key. The section stays even when it
// becomes empty.
func (d *Document) DeleteParameter(section, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.lookup(section)
	if s == nil {
		return false
	}
	return s.remove(NormalizeKey(key))
}

// Sections returns copies of all sections in order.
func (d *Document) Sections() []*Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Section, len(d.sections))
	for i, s := range d.sections {
		out[i] = s.clone()
	}
	return out
}

// SectionNames returns section names in order.
func (d *Document) SectionNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.sections))
	for i, s := range d.sections {
		names[i] = s.name
	}
	return names
}

// Len returns the number of sections.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sections)
}

// ParameterCount returns the number of parameters across all sections.
func (d *Document) ParameterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sections {
		n += len(s.keys)
	}
	return n
}

// IsEmpty reports whether the document has no sections.
func (d *Document) IsEmpty() bool {
	return d.Len() == 0
}

// Clear removes all sections.
func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// FindParameter returns the first parameter named key, searching sections
// in order.
func (d *Document) FindParameter(key string) (string, Parameter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sections {
		if p, ok := s.Parameter(key); ok {
			return s.name, p, true
		}
	}
	return "", Parameter{}, false
}

// Clone returns a deep copy with a fresh instance ID.
func (d *Document) Clone() *Document {
	c := New()
	c.Restore(d.Snapshot())
	return c
}

// CopyFrom replaces the content of d with a copy of other.
func (d *Document) CopyFrom(other *Document) {
	if other == nil || other == d {
		return
	}
	d.Restore(other.Snapshot())
}

// Equal reports whether both documents hold the same sections in the same
// order with the same keys and literals.
func (d *Document) Equal(other *Document) bool {
	if other == nil {
		return false
	}
	if other == d {
		return true
	}
	theirs := other.Snapshot()
	ours := d.Snapshot()
	return ours.Equal(theirs)
}

// Fingerprint hashes the ordered content of the document.
func (d *Document) Fingerprint() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := xxhash.New()
	for _, s := range d.sections {
		_, _ = h.WriteString(s.name)
		_, _ = h.Write([]byte{0})
		for _, k := range s.keys {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{0})
			_, _ = h.WriteString(s.params[k].literal)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}
	return h.Sum64()
}

// Update runs fn with the document lock held, so a multi-step edit is
// applied as one operation. fn must not call methods on d.
func (d *Document) Update(fn func(e *Editor)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&Editor{d: d})
}

// lookup returns the live section or nil. Caller holds the lock.
func (d *Document) lookup(name string) *Section {
	return d.index[strings.TrimSpace(name)]
}

// ensure returns the live section, creating it if needed. Caller holds
// the lock.
func (d *Document) ensure(name string) *Section {
	name = strings.TrimSpace(name)
	if s, ok := d.index[name]; ok {
		return s
	}
	s := newSection(name)
	d.sections = append(d.sections, s)
	d.index[name] = s
	return s
}

func (d *Document) put(s *Section) {
	if _, ok := d.index[s.name]; ok {
		i := slices.IndexFunc(d.sections, func(x *Section) bool { return x.name == s.name })
		d.sections[i] = s
	} else {
		d.sections = append(d.sections, s)
	}
	d.index[s.name] = s
}

func (d *Document) removeSection(name string) bool {
	name = strings.TrimSpace(name)
	if _, ok := d.index[name]; !ok {
		return false
	}
	delete(d.index, name)
	d.sections = slices.DeleteFunc(d.sections, func(s *Section) bool { return s.name == name })
	return true
}

func (d *Document) reset() {
	d.sections = nil
	d.index = make(map[string]*Section)
}

// Editor edits a document while its lock is held by Update.
type Editor struct {
	d *Document
}

// Section returns the live section or nil. The result must not escape fn.
func (e *Editor) Section(name string) *Section {
	return e.d.lookup(name)
}

// Get returns the value at section/key.
func (e *Editor) Get(section, key string) (Value, bool) {
	s := e.d.lookup(section)
	if s == nil {
		return Value{}, false
	}
	return s.Get(key)
}

// Set stores v under section/key, creating the section if needed.
func (e *Editor) Set(section, key string, v Value) {
	e.d.ensure(section).set(NormalizeKey(key), v)
}

// AddSection creates an empty section and reports whether it was new.
func (e *Editor) AddSection(name string) bool {
	if e.d.lookup(name) != nil {
		return false
	}
	e.d.ensure(name)
	return true
}

// DeleteSection removes the named section.
func (e *Editor) DeleteSection(name string) bool {
	return e.d.removeSection(name)
}

// Delete removes section/key.
func (e *Editor) Delete(section, key string) bool {
	s := e.d.lookup(section)
	if s == nil {
		return false
	}
	return s.remove(NormalizeKey(key))
}
