package layer

import (
	"errors"
	"testing"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func doc(params ...string) *document.Document {
	d := document.New()
	for i := 0; i+2 < len(params); i += 3 {
		d.SetParameter(params[i], params[i+1], params[i+2])
	}
	return d
}

func literal(t *testing.T, d *document.Document, section, key string) string {
	t.Helper()
	v, ok := d.GetValue(section, key)
	if !ok {
		t.Fatalf("%s.%s missing", section, key)
	}
	return v.Literal()
}

func TestManager_AddLayer(t *testing.T) {
	m := NewManager()
	m.AddLayer(NewStandard(SourceEnv, nil))
	m.AddLayer(NewStandard(SourceDefaults, nil))
	m.AddLayer(New("site.oop", SourceFile, PriorityFile, nil))
	m.AddLayer(New("local.oop", SourceFile, PriorityFile, nil))

	if m.LayerCount() != 4 {
		t.Fatalf("LayerCount() = %d, want 4", m.LayerCount())
	}
	want := []string{"defaults", "site.oop", "local.oop", "environment"}
	for i, l := range m.Layers() {
		if l.Name != want[i] {
			t.Errorf("layer %d = %q, want %q", i, l.Name, want[i])
		}
	}

	// Same name replaces.
	m.AddLayer(New("site.oop", SourceFile, PriorityArgs, nil))
	if m.LayerCount() != 4 || m.Layers()[3].Name != "site.oop" {
		t.Errorf("replacing a layer gave %d layers, top %q", m.LayerCount(), m.Layers()[3].Name)
	}
}

func TestManager_RemoveAndGetLayer(t *testing.T) {
	m := NewManager()
	m.AddLayer(New("a", SourceFile, PriorityFile, nil))

	if m.GetLayer("a") == nil || m.GetLayer("b") != nil {
		t.Error("GetLayer() lookup wrong")
	}
	if !m.RemoveLayer("a") || m.RemoveLayer("a") {
		t.Error("RemoveLayer() should succeed once")
	}
	if m.LayerCount() != 0 {
		t.Errorf("LayerCount() = %d, want 0", m.LayerCount())
	}
}

func TestManager_Merge(t *testing.T) {
	m := NewManager()
	m.AddLayer(NewStandard(SourceDefaults, doc("search", "limit", "100", "search", "max_magnitude", "16.0")))
	m.AddLayer(New("site.oop", SourceFile, PriorityFile, doc("object", "name", "'Vesta'", "search", "limit", "50")))
	m.AddLayer(NewStandard(SourceEnv, doc("search", "max_magnitude", "18.5")))

	merged, err := m.Merge()
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if got := literal(t, merged, "search", "limit"); got != "50" {
		t.Errorf("search.limit = %q, want 50", got)
	}
	if got := literal(t, merged, "search", "max_magnitude"); got != "18.5" {
		t.Errorf("search.max_magnitude = %q, want 18.5", got)
	}
	if got := literal(t, merged, "object", "name"); got != "'Vesta'" {
		t.Errorf("object.name = %q", got)
	}
	if names := merged.SectionNames(); len(names) != 2 || names[0] != "search" {
		t.Errorf("SectionNames() = %v, want lowest layer order first", names)
	}

	// The result is a copy.
	merged.SetParameter("search", "limit", "1")
	again, _ := m.Merge()
	if got := literal(t, again, "search", "limit"); got != "50" {
		t.Errorf("Merge() returned shared state, limit = %q", got)
	}
}

func TestManager_MergeSeesLayerEdits(t *testing.T) {
	site := doc("search", "limit", "50")
	m := NewManager()
	m.AddLayer(New("site", SourceFile, PriorityFile, site))
	if _, err := m.Merge(); err != nil {
		t.Fatal(err)
	}

	site.SetParameter("search", "limit", "75")
	merged, _ := m.Merge()
	if got := literal(t, merged, "search", "limit"); got != "75" {
		t.Errorf("cached merge not rebuilt after a layer edit, limit = %q", got)
	}
}

func TestManager_GetAndWhichLayer(t *testing.T) {
	m := NewManager()
	m.AddLayer(NewStandard(SourceDefaults, doc("search", "limit", "100")))
	m.AddLayer(NewStandard(SourceEnv, doc("search", "limit", "5")))

	p, l, ok := m.Get("search", "limit")
	if !ok || l.Name != "environment" || p.Value.Literal() != "5" {
		t.Errorf("Get() = %v, %v, %v", p, l, ok)
	}
	if m.WhichLayer("search", "missing") != "" {
		t.Error("WhichLayer() of a missing key should be empty")
	}

	if err := m.Delete("environment", "search", "limit"); err != nil {
		t.Fatal(err)
	}
	if got := m.WhichLayer("search", "limit"); got != "defaults" {
		t.Errorf("WhichLayer() after delete = %q, want defaults", got)
	}
}

func TestManager_SetReadOnly(t *testing.T) {
	m := NewManager()
	defaults := NewStandard(SourceDefaults, nil)
	defaults.ReadOnly = true
	m.AddLayer(defaults)

	if err := m.Set("defaults", "a", "b", "1"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set() on read-only layer = %v, want ErrReadOnly", err)
	}
	if err := m.Delete("defaults", "a", "b"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete() on read-only layer = %v, want ErrReadOnly", err)
	}
	if err := m.Set("nope", "a", "b", "1"); !errors.Is(err, ErrLayerNotFound) {
		t.Errorf("Set() on missing layer = %v, want ErrLayerNotFound", err)
	}
	if err := m.UpdateLayer("defaults", doc("a", "b", "2")); err != nil {
		t.Errorf("UpdateLayer() on read-only layer: %v", err)
	}
	if got := m.WhichLayer("a", "b"); got != "defaults" {
		t.Errorf("WhichLayer() = %q", got)
	}
}

func TestManager_SetInSession(t *testing.T) {
	m := NewManager()
	m.AddLayer(New("top", SourceArgs, PrioritySession+1, doc("x", "y", "1")))
	m.SetInSession("x", "y", "2")
	m.SetInSession("x", "z", "3")

	if m.LayerCount() != 2 {
		t.Fatalf("LayerCount() = %d, want 2", m.LayerCount())
	}
	if got := m.WhichLayer("x", "y"); got != "top" {
		t.Errorf("session should sort below a higher priority layer, got %q", got)
	}
	if got := m.WhichLayer("x", "z"); got != "session" {
		t.Errorf("WhichLayer(x.z) = %q, want session", got)
	}
}

func TestManager_Explain(t *testing.T) {
	m := NewManager()
	m.AddLayer(NewStandard(SourceDefaults, doc("search", "limit", "100", "search", "mode", "'fast'")))
	m.AddLayer(NewStandard(SourceEnv, doc("search", "limit", "5")))

	origins, err := m.Explain()
	if err != nil {
		t.Fatal(err)
	}
	want := []Origin{
		{Section: "search", Key: "limit", Literal: "5", Layer: "environment"},
		{Section: "search", Key: "mode", Literal: "'fast'", Layer: "defaults"},
	}
	if len(origins) != len(want) {
		t.Fatalf("Explain() = %+v", origins)
	}
	for i := range want {
		if origins[i] != want[i] {
			t.Errorf("origin %d = %+v, want %+v", i, origins[i], want[i])
		}
	}

	m.Clear()
	if origins, _ := m.Explain(); len(origins) != 0 {
		t.Errorf("Explain() after Clear = %+v", origins)
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		source   Source
		name     string
		priority int
	}{
		{SourceDefaults, "defaults", PriorityDefaults},
		{SourceFile, "file", PriorityFile},
		{SourceEnv, "environment", PriorityEnv},
		{SourceArgs, "arguments", PriorityArgs},
		{SourceSession, "session", PrioritySession},
	}
	for _, tt := range tests {
		if got := StandardName(tt.source); got != tt.name {
			t.Errorf("StandardName(%v) = %q, want %q", tt.source, got, tt.name)
		}
		if got := DefaultPriority(tt.source); got != tt.priority {
			t.Errorf("DefaultPriority(%v) = %d, want %d", tt.source, got, tt.priority)
		}
	}
	if Source(99).String() != "unknown" || StandardName(Source(99)) != "unknown" {
		t.Error("unknown source should be named unknown")
	}
}

func TestLayer_Clone(t *testing.T) {
	l := New("a", SourceFile, PriorityFile, doc("s", "k", "1"))
	c := l.Clone()
	c.Doc.SetParameter("s", "k", "2")
	if got := literal(t, l.Doc, "s", "k"); got != "1" {
		t.Errorf("Clone() shares the document, original = %q", got)
	}
}
