// Package diff compares two documents parameter by parameter.
package diff

import (
	"fmt"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// Kind classifies a diff entry.
type Kind int

const (
	Added Kind = iota
	Removed
	Modified
	Unchanged
)

// String returns the upper-case kind name.
func (k Kind) String() string {
	switch k {
	case Added:
		return "ADDED"
	case Removed:
		return "REMOVED"
	case Modified:
		return "MODIFIED"
	case Unchanged:
		return "UNCHANGED"
	default:
		return "UNKNOWN"
	}
}

// Entry is the comparison result for one (section, key) pair.
type Entry struct {
	Kind     Kind
	Section  string
	Key      string
	OldValue string
	NewValue string
	OldType  string
	NewType  string
}

// Path returns "section.key".
func (e Entry) Path() string {
	return e.Section + "." + e.Key
}

func (e Entry) String() string {
	switch e.Kind {
	case Added:
		return "[+] " + e.Path() + " = " + e.NewValue
	case Removed:
		return "[-] " + e.Path() + " (was " + e.OldValue + ")"
	case Modified:
		return "[~] " + e.Path() + ": " + e.OldValue + " → " + e.NewValue
	case Unchanged:
		return "[=] " + e.Path()
	default:
		return "[?] " + e.Path()
	}
}

// Compute lists one entry per (section, key) in the union of both
// documents. Entries follow self's order, then keys only other has in
// other's order. Values compare by exact literal.
//
// other is snapshotted before self, so no two document locks are held at
// once.
func Compute(self, other *document.Document) []Entry {
	theirs := other.Snapshot()
	ours := self.Snapshot()

	index := make(map[string]map[string]document.ParameterSnapshot, len(theirs.Sections))
	for _, s := range theirs.Sections {
		params := make(map[string]document.ParameterSnapshot, len(s.Parameters))
		for _, p := range s.Parameters {
			params[p.Key] = p
		}
		index[s.Name] = params
	}

	var entries []Entry
	seen := make(map[string]map[string]bool, len(ours.Sections))
	for _, s := range ours.Sections {
		keys := make(map[string]bool, len(s.Parameters))
		seen[s.Name] = keys
		for _, p := range s.Parameters {
			keys[p.Key] = true
			e := Entry{Section: s.Name, Key: p.Key, OldValue: p.Value, OldType: p.Kind}
			q, ok := index[s.Name][p.Key]
			switch {
			case !ok:
				e.Kind = Removed
			case q.Value != p.Value:
				e.Kind = Modified
				e.NewValue, e.NewType = q.Value, q.Kind
			default:
				e.Kind = Unchanged
				e.NewValue, e.NewType = q.Value, q.Kind
			}
			entries = append(entries, e)
		}
	}

	for _, s := range theirs.Sections {
		for _, p := range s.Parameters {
			if seen[s.Name][p.Key] {
				continue
			}
			entries = append(entries, Entry{
				Kind:     Added,
				Section:  s.Name,
				Key:      p.Key,
				NewValue: p.Value,
				NewType:  p.Kind,
			})
		}
	}
	return entries
}

// Changes drops Unchanged entries.
func Changes(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Kind != Unchanged {
			out = append(out, e)
		}
	}
	return out
}

// Summary counts entries by kind.
type Summary struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Changed returns the number of entries that are not Unchanged.
func (s Summary) Changed() int {
	return s.Added + s.Removed + s.Modified
}

func (s Summary) String() string {
	return fmt.Sprintf("+%d added, -%d removed, ~%d modified, =%d unchanged",
		s.Added, s.Removed, s.Modified, s.Unchanged)
}

// Summarize counts entries by kind.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Kind {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		case Unchanged:
			s.Unchanged++
		}
	}
	return s
}

// Report renders entries for people: a summary line followed by one group
// per kind. Unchanged entries are listed unless onlyChanges is set.
func Report(entries []Entry, onlyChanges bool) string {
	var b strings.Builder
	b.WriteString("Configuration Diff Report\n")
	b.WriteString("=========================\n")
	sum := Summarize(entries)
	fmt.Fprintf(&b, "Summary: %s\n", sum)
	if sum.Changed() == 0 && (onlyChanges || sum.Unchanged == 0) {
		b.WriteString("\nNo differences.\n")
		return b.String()
	}

	groups := []struct {
		title string
		kind  Kind
		n     int
	}{
		{"Added", Added, sum.Added},
		{"Removed", Removed, sum.Removed},
		{"Modified", Modified, sum.Modified},
		{"Unchanged", Unchanged, sum.Unchanged},
	}
	for _, g := range groups {
		if g.n == 0 || (g.kind == Unchanged && onlyChanges) {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", g.title)
		for _, e := range entries {
			if e.Kind == g.kind {
				b.WriteString("  ")
				b.WriteString(e.String())
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// JSON renders entries as a pretty-printed array of objects with the
// fields type, section, key, oldValue, newValue, oldType and newType.
func JSON(entries []Entry) ([]byte, error) {
	out := []byte("[]")
	for i, e := range entries {
		obj := []byte("{}")
		fields := []struct {
			name  string
			value string
		}{
			{"type", e.Kind.String()},
			{"section", e.Section},
			{"key", e.Key},
			{"oldValue", e.OldValue},
			{"newValue", e.NewValue},
			{"oldType", e.OldType},
			{"newType", e.NewType},
		}
		var err error
		for _, f := range fields {
			if obj, err = sjson.SetBytes(obj, f.name, f.value); err != nil {
				return nil, fmt.Errorf("diff entry %d: %w", i, err)
			}
		}
		if out, err = sjson.SetRawBytes(out, "-1", obj); err != nil {
			return nil, fmt.Errorf("diff entry %d: %w", i, err)
		}
	}
	return pretty.Pretty(out), nil
}
