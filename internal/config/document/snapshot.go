package document

// Snapshot is a plain-data copy of a document's content. It has only
// exported fields so it can be deep-copied and serialized.
type Snapshot struct {
	Sections []SectionSnapshot `json:"sections"`
}

// SectionSnapshot is one section of a Snapshot.
type SectionSnapshot struct {
	Name       string              `json:"name"`
	Parameters []ParameterSnapshot `json:"parameters"`
}

// ParameterSnapshot is one parameter of a SectionSnapshot.
type ParameterSnapshot struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Kind  string `json:"type"`
}

// Snapshot captures the document content.
func (d *Document) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := Snapshot{Sections: make([]SectionSnapshot, 0, len(d.sections))}
	for _, s := range d.sections {
		ss := SectionSnapshot{
			Name:       s.name,
			Parameters: make([]ParameterSnapshot, 0, len(s.keys)),
		}
		for _, k := range s.keys {
			v := s.params[k]
			ss.Parameters = append(ss.Parameters, ParameterSnapshot{
				Key:   k,
				Value: v.literal,
				Kind:  v.kind.String(),
			})
		}
		snap.Sections = append(snap.Sections, ss)
	}
	return snap
}

// Restore replaces the document content with snap.
func (d *Document) Restore(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	for _, ss := range snap.Sections {
		s := d.ensure(ss.Name)
		for _, p := range ss.Parameters {
			s.set(NormalizeKey(p.Key), NewTypedValue(p.Value, ParseKind(p.Kind)))
		}
	}
}

// FromSnapshot builds a new document from snap.
func FromSnapshot(snap Snapshot) *Document {
	d := New()
	d.Restore(snap)
	return d
}

// ParameterCount returns the number of parameters in the snapshot.
func (s Snapshot) ParameterCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Parameters)
	}
	return n
}

// Equal compares section names in order and, within each section, the
// set of keys and their values. Parameter order is not compared.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Sections) != len(other.Sections) {
		return false
	}
	for i, a := range s.Sections {
		b := other.Sections[i]
		if a.Name != b.Name || len(a.Parameters) != len(b.Parameters) {
			return false
		}
		values := make(map[string]string, len(b.Parameters))
		for _, q := range b.Parameters {
			values[q.Key] = q.Value
		}
		for _, p := range a.Parameters {
			v, ok := values[p.Key]
			if !ok || v != p.Value {
				return false
			}
		}
	}
	return true
}
