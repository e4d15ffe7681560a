package layer

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/merge"
)

// Errors returned by Manager.
var (
	ErrLayerNotFound = errors.New("layer not found")
	ErrReadOnly      = errors.New("layer is read-only")
)

// Origin names the layer that supplies one effective parameter.
type Origin struct {
	Section string
	Key     string
	Literal string
	Layer   string
}

// Manager manages layers and provides the merged document.
type Manager struct {
	mu     sync.Mutex
	layers []*Layer // sorted by priority, ascending; ties keep insertion order
	merged *document.Document
	prints []uint64 // layer fingerprints the cache was built from
	dirty  bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{dirty: true}
}

// AddLayer adds a layer, replacing one with the same name.
func (m *Manager) AddLayer(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(l.Name); i >= 0 {
		m.layers = append(m.layers[:i], m.layers[i+1:]...)
	}
	m.insert(l)
}

func (m *Manager) insert(l *Layer) {
	m.layers = append(m.layers, l)
	sort.SliceStable(m.layers, func(i, j int) bool {
		return m.layers[i].Priority < m.layers[j].Priority
	})
	m.dirty = true
}

// RemoveLayer removes a layer by name.
// Returns true if the layer was found and removed.
func (m *Manager) RemoveLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(name)
	if i < 0 {
		return false
	}
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	m.dirty = true
	return true
}

// GetLayer returns a layer by name, or nil.
func (m *Manager) GetLayer(name string) *Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(name); i >= 0 {
		return m.layers[i]
	}
	return nil
}

// Layers returns the layers sorted by priority.
func (m *Manager) Layers() []*Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Layer(nil), m.layers...)
}

// LayerCount returns the number of layers.
func (m *Manager) LayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

// Merge returns a copy of the effective document. The merged result is
// cached until a layer is added, removed, or its content changes.
func (m *Manager) Merge() (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.refresh(); err != nil {
		return nil, err
	}
	return m.merged.Clone(), nil
}

// refresh rebuilds the cache when needed. Must be called with m.mu held.
func (m *Manager) refresh() error {
	prints := make([]uint64, len(m.layers))
	for i, l := range m.layers {
		prints[i] = l.Doc.Fingerprint()
	}
	if !m.dirty && m.merged != nil && slices.Equal(prints, m.prints) {
		return nil
	}

	result := document.New()
	for _, l := range m.layers {
		if _, err := merge.Merge(result, l.Doc, merge.Replace, nil); err != nil {
			return fmt.Errorf("merging layer %s: %w", l.Name, err)
		}
	}
	m.merged = result
	m.prints = prints
	m.dirty = false
	return nil
}

// Get returns the effective parameter and the layer it came from.
func (m *Manager) Get(section, key string) (document.Parameter, *Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(section, key)
}

func (m *Manager) get(section, key string) (document.Parameter, *Layer, bool) {
	for i := len(m.layers) - 1; i >= 0; i-- {
		if p, ok := m.layers[i].Doc.GetParameter(section, key); ok {
			return p, m.layers[i], true
		}
	}
	return document.Parameter{}, nil, false
}

// WhichLayer returns the name of the layer that provides section/key, or
// "".
func (m *Manager) WhichLayer(section, key string) string {
	_, l, ok := m.Get(section, key)
	if !ok {
		return ""
	}
	return l.Name
}

// Explain lists every effective parameter in document order with the
// layer that supplies it.
func (m *Manager) Explain() ([]Origin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.refresh(); err != nil {
		return nil, err
	}

	var out []Origin
	for _, s := range m.merged.Snapshot().Sections {
		for _, p := range s.Parameters {
			o := Origin{Section: s.Name, Key: p.Key, Literal: p.Value}
			if _, l, ok := m.get(s.Name, p.Key); ok {
				o.Layer = l.Name
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Set stores literal at section/key in the named layer.
func (m *Manager) Set(layerName, section, key, literal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.writable(layerName)
	if err != nil {
		return err
	}
	l.Doc.SetParameter(section, key, literal)
	return nil
}

// SetInSession stores literal in the session layer, creating the layer
// on first use.
func (m *Manager) SetInSession(section, key, literal string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var session *Layer
	for _, l := range m.layers {
		if l.Source == SourceSession {
			session = l
			break
		}
	}
	if session == nil {
		session = NewStandard(SourceSession, nil)
		m.insert(session)
	}
	session.Doc.SetParameter(section, key, literal)
}

// Delete removes section/key from the named layer. The effective value
// falls back to the next layer down.
func (m *Manager) Delete(layerName, section, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.writable(layerName)
	if err != nil {
		return err
	}
	l.Doc.DeleteParameter(section, key)
	return nil
}

// UpdateLayer replaces the content of the named layer with a copy of doc.
// Read-only layers can be updated; only Set and Delete are refused.
func (m *Manager) UpdateLayer(name string, doc *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	m.layers[i].Doc.CopyFrom(doc)
	m.dirty = true
	return nil
}

// Invalidate forces the next Merge to rebuild.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = true
}

// Clear removes all layers.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = nil
	m.merged = nil
	m.prints = nil
	m.dirty = true
}

func (m *Manager) writable(name string) (*Layer, error) {
	i := m.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	if m.layers[i].ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	return m.layers[i], nil
}

func (m *Manager) index(name string) int {
	for i, l := range m.layers {
		if l.Name == name {
			return i
		}
	}
	return -1
}
