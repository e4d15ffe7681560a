package merge

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func base() *document.Document {
	doc := document.New()
	doc.SetParameter("object", "id", "17030")
	doc.SetParameter("object", "name", "Vesta")
	doc.SetParameter("search", "mag", "16.5")
	return doc
}

func incoming() *document.Document {
	doc := document.New()
	doc.SetParameter("object", "id", "17031")
	doc.SetParameter("object", "name", "Vesta")
	doc.SetParameter("object", "epoch", "2025")
	doc.SetParameter("time", "start", "2025-01-01")
	return doc
}

func TestMerge_Replace(t *testing.T) {
	dst := base()
	stats, err := Merge(dst, incoming(), Replace, nil)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	tests := []struct {
		section, key, want string
	}{
		{"object", "id", "17031"},
		{"object", "epoch", "2025"},
		{"time", "start", "2025-01-01"},
		{"search", "mag", "16.5"},
	}
	for _, tt := range tests {
		if got := lit(t, dst, tt.section, tt.key); got != tt.want {
			t.Errorf("%s.%s = %q, want %q", tt.section, tt.key, got, tt.want)
		}
	}
	if got := dst.SectionNames(); !slices.Equal(got, []string{"object", "search", "time"}) {
		t.Errorf("SectionNames() = %v", got)
	}

	want := Stats{
		SectionsAdded:      1,
		SectionsUpdated:    1,
		ParametersAdded:    2,
		ParametersModified: 1,
		Conflicts:          1,
		ConflictKeys:       []string{"object.id"},
	}
	if !reflect.DeepEqual(stats, want) {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if got := stats.String(); got != "Sections: +1 modified 1 | Parameters: +2 modified 1 | Conflicts: 1" {
		t.Errorf("String() = %q", got)
	}
}

func TestMerge_ReplaceIdempotent(t *testing.T) {
	dst := base()
	src := incoming()
	if _, err := Merge(dst, src, Replace, nil); err != nil {
		t.Fatal(err)
	}
	once := dst.Snapshot()

	stats, err := Merge(dst, src, Replace, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !once.Equal(dst.Snapshot()) {
		t.Error("second Replace changed the document")
	}
	// Stats are per call.
	if !reflect.DeepEqual(stats, Stats{}) {
		t.Errorf("second stats = %+v, want zero", stats)
	}
}

func TestMerge_DeepMergeMatchesReplace(t *testing.T) {
	a, b := base(), base()
	if _, err := Merge(a, incoming(), Replace, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Merge(b, incoming(), DeepMerge, nil); err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("DeepMerge result differs from Replace")
	}
}

func TestMerge_Append(t *testing.T) {
	dst := base()
	before := dst.Snapshot()

	stats, err := Merge(dst, incoming(), Append, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range before.Sections {
		for _, p := range s.Parameters {
			if got := lit(t, dst, s.Name, p.Key); got != p.Value {
				t.Errorf("%s.%s overwritten: %q, want %q", s.Name, p.Key, got, p.Value)
			}
		}
	}
	if got := lit(t, dst, "object", "epoch"); got != "2025" {
		t.Errorf("object.epoch = %q, want 2025", got)
	}
	if stats.Conflicts != 1 || stats.ParametersModified != 0 || stats.ParametersAdded != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMerge_Custom(t *testing.T) {
	dst := base()
	var seen []Conflict
	resolver := func(c Conflict) Conflict {
		seen = append(seen, c)
		c.ResolvedValue = c.ExistingValue + "-" + c.IncomingValue
		c.Resolved = true
		return c
	}

	stats, err := Merge(dst, incoming(), Custom, resolver)
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("resolver called %d times, want 1", len(seen))
	}
	want := Conflict{Section: "object", Key: "id", ExistingValue: "17030", IncomingValue: "17031"}
	if seen[0] != want {
		t.Errorf("conflict = %+v, want %+v", seen[0], want)
	}
	if got := lit(t, dst, "object", "id"); got != "17030-17031" {
		t.Errorf("object.id = %q", got)
	}
	if stats.ParametersModified != 1 {
		t.Errorf("ParametersModified = %d, want 1", stats.ParametersModified)
	}

	v, _ := dst.GetValue("object", "id")
	if v.Kind() != document.KindString {
		t.Errorf("resolved kind = %s, want string", v.Kind())
	}
}

func TestMerge_CustomUnresolvedKeepsExisting(t *testing.T) {
	dst := base()
	stats, err := Merge(dst, incoming(), Custom, func(c Conflict) Conflict { return c })
	if err != nil {
		t.Fatal(err)
	}
	if got := lit(t, dst, "object", "id"); got != "17030" {
		t.Errorf("object.id = %q, want 17030", got)
	}
	if stats.Conflicts != 1 || stats.ParametersModified != 0 {
		t.Errorf("stats = %+v", stats)
	}

	dst = base()
	if _, err := Merge(dst, incoming(), Custom, PreferIncoming); err != nil {
		t.Fatal(err)
	}
	if got := lit(t, dst, "object", "id"); got != "17031" {
		t.Errorf("PreferIncoming object.id = %q, want 17031", got)
	}
	// The incoming kind is kept.
	if v, _ := dst.GetValue("object", "id"); v.Kind() != document.KindInteger {
		t.Errorf("kind = %s, want integer", v.Kind())
	}
}

func TestMerge_CustomWithoutResolver(t *testing.T) {
	dst := base()
	before := dst.Fingerprint()
	if _, err := Merge(dst, incoming(), Custom, nil); !errors.Is(err, ErrNoResolver) {
		t.Errorf("Merge() error = %v, want ErrNoResolver", err)
	}
	if dst.Fingerprint() != before {
		t.Error("failed merge changed the document")
	}
}

func TestMerge_Self(t *testing.T) {
	dst := base()
	before := dst.Snapshot()
	stats, err := Merge(dst, dst, Replace, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !before.Equal(dst.Snapshot()) {
		t.Error("self merge changed the document")
	}
	if !reflect.DeepEqual(stats, Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestMerge_EmptySectionAdded(t *testing.T) {
	src := document.New()
	src.AddSection("filters")
	dst := base()
	stats, err := Merge(dst, src, Replace, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !dst.HasSection("filters") {
		t.Error("empty section not added")
	}
	if stats.SectionsAdded != 1 || stats.ParametersAdded != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMerge_Concurrent(t *testing.T) {
	a, b := base(), incoming()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = Merge(a, b, Replace, nil)
		}()
		go func() {
			defer wg.Done()
			_, _ = Merge(b, a, Append, nil)
		}()
	}
	wg.Wait()
	if !a.HasSection("time") || !b.HasSection("search") {
		t.Error("concurrent merges lost sections")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"":           Replace,
		"replace":    Replace,
		"APPEND":     Append,
		"deep_merge": DeepMerge,
		"deep":       DeepMerge,
		"custom":     Custom,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		if err != nil {
			t.Errorf("ParseStrategy(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseStrategy("union"); err == nil {
		t.Error("ParseStrategy(union) should fail")
	}
	if Append.String() != "append" {
		t.Errorf("Append.String() = %q", Append.String())
	}
}

func lit(t *testing.T, doc *document.Document, section, key string) string {
	t.Helper()
	v, ok := doc.GetValue(section, key)
	if !ok {
		t.Fatalf("%s.%s missing", section, key)
	}
	return v.Literal()
}
