// Package merge combines one document into another.
//
// Documents are flat (section, key) maps, so merging works per parameter:
// keys missing from the destination are added, keys with an equal literal
// are left alone, and keys with a differing literal are conflicts that the
// Strategy settles.
package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// ErrNoResolver is returned by a Custom merge without a resolver.
var ErrNoResolver = errors.New("custom merge requires a resolver")

// Strategy selects how conflicts are settled.
type Strategy int

const (
	// Replace overwrites existing values with incoming ones.
	Replace Strategy = iota
	// Append only adds what is missing and never overwrites.
	Append
	// DeepMerge behaves as Replace; sections hold no nested objects.
	DeepMerge
	// Custom hands each conflict to a Resolver.
	Custom
)

var strategyNames = map[Strategy]string{
	Replace:   "replace",
	Append:    "append",
	DeepMerge: "deep",
	Custom:    "custom",
}

// String returns the lower-case strategy name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name. "deep_merge" and "deep-merge" are
// accepted for DeepMerge.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "replace":
		return Replace, nil
	case "append":
		return Append, nil
	case "deep", "deep_merge", "deep-merge", "deepmerge":
		return DeepMerge, nil
	case "custom":
		return Custom, nil
	}
	return Replace, fmt.Errorf("unknown merge strategy %q", name)
}

// Conflict describes one key present on both sides with different
// literals. A resolver sets ResolvedValue and Resolved to choose the value
// written; when Resolved is false the existing value is kept.
type Conflict struct {
	Section       string
	Key           string
	ExistingValue string
	IncomingValue string
	ResolvedValue string
	Resolved      bool
}

// Resolver settles a Custom merge conflict.
type Resolver func(Conflict) Conflict

// Stats counts the effect of a single merge.
type Stats struct {
	SectionsAdded      int
	SectionsUpdated    int
	ParametersAdded    int
	ParametersModified int
	Conflicts          int
	ConflictKeys       []string // "section.key"
}

// String summarizes the counts on one line.
func (s Stats) String() string {
	return fmt.Sprintf("Sections: +%d modified %d | Parameters: +%d modified %d | Conflicts: %d",
		s.SectionsAdded, s.SectionsUpdated, s.ParametersAdded, s.ParametersModified, s.Conflicts)
}

// Merge merges src into dst.
//
// src is snapshotted before dst is locked, so dst and src may be the same
// document and no two document locks are held at once. The resolver runs
// with dst locked and must not call methods on dst.
func Merge(dst, src *document.Document, strategy Strategy, resolver Resolver) (Stats, error) {
	if strategy == Custom && resolver == nil {
		return Stats{}, ErrNoResolver
	}
	if strategy < Replace || strategy > Custom {
		return Stats{}, fmt.Errorf("unknown merge strategy %d", int(strategy))
	}
	if dst == nil || src == nil {
		return Stats{}, errors.New("merge requires two documents")
	}

	incoming := src.Snapshot()
	var stats Stats
	dst.Update(func(e *document.Editor) {
		for _, ss := range incoming.Sections {
			mergeSection(e, ss, strategy, resolver, &stats)
		}
	})
	return stats, nil
}

func mergeSection(e *document.Editor, ss document.SectionSnapshot, strategy Strategy, resolver Resolver, stats *Stats) {
	if e.AddSection(ss.Name) {
		for _, p := range ss.Parameters {
			e.Set(ss.Name, p.Key, snapshotValue(p))
		}
		stats.SectionsAdded++
		stats.ParametersAdded += len(ss.Parameters)
		return
	}

	touched := false
	for _, p := range ss.Parameters {
		existing, ok := e.Get(ss.Name, p.Key)
		if !ok {
			e.Set(ss.Name, p.Key, snapshotValue(p))
			stats.ParametersAdded++
			touched = true
			continue
		}
		if existing.Literal() == p.Value {
			continue
		}

		stats.Conflicts++
		stats.ConflictKeys = append(stats.ConflictKeys, ss.Name+"."+p.Key)

		switch strategy {
		case Replace, DeepMerge:
			e.Set(ss.Name, p.Key, snapshotValue(p))
		case Append:
			continue
		case Custom:
			c := resolver(Conflict{
				Section:       ss.Name,
				Key:           p.Key,
				ExistingValue: existing.Literal(),
				IncomingValue: p.Value,
			})
			if !c.Resolved || c.ResolvedValue == existing.Literal() {
				continue
			}
			e.Set(ss.Name, p.Key, resolvedValue(c.ResolvedValue, p))
		}
		stats.ParametersModified++
		touched = true
	}
	if touched {
		stats.SectionsUpdated++
	}
}

func snapshotValue(p document.ParameterSnapshot) document.Value {
	return document.NewTypedValue(p.Value, document.ParseKind(p.Kind))
}

// resolvedValue keeps the incoming kind when the resolver picked the
// incoming literal and infers it otherwise.
func resolvedValue(literal string, incoming document.ParameterSnapshot) document.Value {
	if literal == incoming.Value {
		return snapshotValue(incoming)
	}
	return document.NewValue(literal)
}

// PreferIncoming resolves every conflict with the incoming value.
func PreferIncoming(c Conflict) Conflict {
	c.ResolvedValue, c.Resolved = c.IncomingValue, true
	return c
}

// PreferExisting resolves every conflict with the existing value.
func PreferExisting(c Conflict) Conflict {
	c.ResolvedValue, c.Resolved = c.ExistingValue, true
	return c
}
