// Package ledger keeps numbered snapshots of a document so that earlier
// states can be restored.
//
// Versioning is off until Enable is called. Enable records the live
// document as version 1; each CreateVersion appends the next number.
// Rollback restores a recorded snapshot into the document without
// discarding later versions, so the history only ever grows until
// ClearHistory or the next Enable.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// TimestampLayout is the UTC layout used for version timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

var (
	// ErrInvalidHistory is returned by Import for malformed history JSON.
	ErrInvalidHistory = errors.New("invalid version history")

	// ErrChecksum is returned when a snapshot does not match its checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// Entry is one recorded version.
type Entry struct {
	ID          uuid.UUID
	Version     int
	Description string
	Timestamp   time.Time
	Checksum    uint64
	Snapshot    document.Snapshot
}

// FormattedTimestamp returns the timestamp in TimestampLayout.
func (e Entry) FormattedTimestamp() string {
	return e.Timestamp.UTC().Format(TimestampLayout)
}

// Verify reports whether the snapshot still matches the checksum.
func (e Entry) Verify() bool {
	return Checksum(e.Snapshot) == e.Checksum
}

// Checksum hashes the ordered content of snap.
func Checksum(snap document.Snapshot) uint64 {
	h := xxhash.New()
	for _, s := range snap.Sections {
		_, _ = h.WriteString(s.Name)
		_, _ = h.Write([]byte{0})
		for _, p := range s.Parameters {
			_, _ = h.WriteString(p.Key)
			_, _ = h.Write([]byte{'='})
			_, _ = h.WriteString(p.Value)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// Store persists version entries under a history name.
type Store interface {
	Append(ctx context.Context, history string, e Entry) error
	Load(ctx context.Context, history string) ([]Entry, error)
	Clear(ctx context.Context, history string) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l
		}
	}
}

// WithClock replaces time.Now for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) {
		if now != nil {
			lg.now = now
		}
	}
}

// WithStore writes every recorded entry to store under history.
func WithStore(store Store, history string) Option {
	return func(lg *Ledger) {
		lg.store = store
		lg.history = history
	}
}

// Ledger records versions of one document.
type Ledger struct {
	mu      sync.Mutex
	doc     *document.Document
	enabled bool
	entries []Entry
	current int

	now     func() time.Time
	logger  *zap.Logger
	store   Store
	history string
}

// New creates a disabled ledger for doc.
func New(doc *document.Document, opts ...Option) *Ledger {
	l := &Ledger{
		doc:    doc,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enable turns versioning on and restarts the history with the live
// document as version 1.
func (l *Ledger) Enable(description string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.capture(1, description)
	if l.store != nil {
		ctx := context.Background()
		if err := l.store.Clear(ctx, l.history); err != nil {
			l.logger.Error("clearing stored history", zap.String("history", l.history), zap.Error(err))
			return false
		}
		if err := l.store.Append(ctx, l.history, e); err != nil {
			l.logger.Error("storing version", zap.String("history", l.history), zap.Error(err))
			return false
		}
	}
	l.entries = []Entry{e}
	l.current = 1
	l.enabled = true
	l.logger.Debug("versioning enabled", zap.String("description", description))
	return true
}

// Disable turns versioning off. The history stays queryable. It returns
// false if versioning was not enabled.
func (l *Ledger) Disable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return false
	}
	l.enabled = false
	l.logger.Debug("versioning disabled", zap.Int("versions", len(l.entries)))
	return true
}

// Enabled reports whether versioning is on.
func (l *Ledger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// CreateVersion records the live document as the next version and makes
// it current.
func (l *Ledger) CreateVersion(description string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return 0, false
	}

	next := 1
	if n := len(l.entries); n > 0 {
		next = l.entries[n-1].Version + 1
	}
	e := l.capture(next, description)
	if l.store != nil {
		if err := l.store.Append(context.Background(), l.history, e); err != nil {
			l.logger.Error("storing version", zap.Int("version", next), zap.Error(err))
			return 0, false
		}
	}
	l.entries = append(l.entries, e)
	l.current = next
	l.logger.Debug("version created",
		zap.Int("version", next),
		zap.String("description", description),
		zap.Int("parameters", e.Snapshot.ParameterCount()),
	)
	return next, true
}

// Rollback restores version v into the document and makes it current.
func (l *Ledger) Rollback(v int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return false
	}
	return l.rollback(v)
}

// RollbackPrevious restores the version recorded before the current one.
func (l *Ledger) RollbackPrevious() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return false
	}
	i := l.index(l.current)
	if i <= 0 {
		return false
	}
	return l.rollback(l.entries[i-1].Version)
}

func (l *Ledger) rollback(v int) bool {
	i := l.index(v)
	if i < 0 {
		l.logger.Debug("rollback to unknown version", zap.Int("version", v))
		return false
	}
	e := l.entries[i]
	if !e.Verify() {
		l.logger.Error("rollback refused", zap.Int("version", v), zap.Error(ErrChecksum))
		return false
	}
	var snap document.Snapshot
	if err := deepcopy.Copy(&snap, &e.Snapshot); err != nil {
		l.logger.Error("copying snapshot", zap.Int("version", v), zap.Error(err))
		return false
	}
	l.doc.Restore(snap)
	l.current = v
	l.logger.Debug("rolled back", zap.Int("version", v))
	return true
}

// ClearHistory drops every version and records the live document as
// version 1. It fails when there is no history.
func (l *Ledger) ClearHistory() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return false
	}

	e := l.capture(1, "History cleared")
	if l.store != nil {
		ctx := context.Background()
		if err := l.store.Clear(ctx, l.history); err != nil {
			l.logger.Error("clearing stored history", zap.String("history", l.history), zap.Error(err))
			return false
		}
		if err := l.store.Append(ctx, l.history, e); err != nil {
			l.logger.Error("storing version", zap.String("history", l.history), zap.Error(err))
			return false
		}
	}
	l.entries = []Entry{e}
	l.current = 1
	return true
}

// Count returns the number of recorded versions.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Current returns the current version number, or 0 without history.
func (l *Ledger) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Entry returns a copy of version v.
func (l *Ledger) Entry(v int) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(v)
	if i < 0 {
		return Entry{}, false
	}
	e, err := cloneEntry(l.entries[i])
	if err != nil {
		l.logger.Error("copying version", zap.Int("version", v), zap.Error(err))
		return Entry{}, false
	}
	return e, true
}

// History returns copies of all versions, oldest first.
func (l *Ledger) History() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		c, err := cloneEntry(e)
		if err != nil {
			l.logger.Error("copying history", zap.Int("version", e.Version), zap.Error(err))
			return nil
		}
		out = append(out, c)
	}
	return out
}

// cloneEntry copies e with a snapshot that shares no memory with it.
func cloneEntry(e Entry) (Entry, error) {
	c := e
	c.Snapshot = document.Snapshot{}
	if err := deepcopy.Copy(&c.Snapshot, &e.Snapshot); err != nil {
		return Entry{}, err
	}
	return c, nil
}

// Description returns the description of version v, or "".
func (l *Ledger) Description(v int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(v); i >= 0 {
		return l.entries[i].Description
	}
	return ""
}

// Timestamp returns the timestamp of version v in TimestampLayout, or "".
func (l *Ledger) Timestamp(v int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(v); i >= 0 {
		return l.entries[i].FormattedTimestamp()
	}
	return ""
}

// JSON renders the history as an indented JSON array, oldest first.
func (l *Ledger) JSON() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []byte("[]")
	for _, e := range l.entries {
		snap, err := json.Marshal(e.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("encoding version %d: %w", e.Version, err)
		}
		obj := []byte("{}")
		fields := []struct {
			path  string
			value any
		}{
			{"version", e.Version},
			{"id", e.ID.String()},
			{"description", e.Description},
			{"timestamp", e.FormattedTimestamp()},
			{"checksum", fmt.Sprintf("%016x", e.Checksum)},
			{"current", e.Version == l.current},
			{"parameters", e.Snapshot.ParameterCount()},
		}
		for _, f := range fields {
			if obj, err = sjson.SetBytes(obj, f.path, f.value); err != nil {
				return nil, err
			}
		}
		if obj, err = sjson.SetRawBytes(obj, "snapshot", snap); err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", obj); err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(out), nil
}

// Import replaces the history with the entries in data, as written by
// JSON, and enables versioning with the last entry current. The document
// itself is not modified.
func (l *Ledger) Import(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidHistory)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return fmt.Errorf("%w: expected an array", ErrInvalidHistory)
	}

	var entries []Entry
	for i, item := range root.Array() {
		e, err := parseEntry(item)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrInvalidHistory, i, err)
		}
		if n := len(entries); n > 0 && e.Version <= entries[n-1].Version {
			return fmt.Errorf("%w: entry %d: version %d out of order", ErrInvalidHistory, i, e.Version)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no versions", ErrInvalidHistory)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.current = entries[len(entries)-1].Version
	l.enabled = true
	return nil
}

func parseEntry(item gjson.Result) (Entry, error) {
	e := Entry{
		Version:     int(item.Get("version").Int()),
		Description: item.Get("description").String(),
	}
	if e.Version < 1 {
		return Entry{}, errors.New("missing version number")
	}

	if id := item.Get("id").String(); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return Entry{}, fmt.Errorf("id: %w", err)
		}
		e.ID = parsed
	} else {
		e.ID = uuid.New()
	}

	ts, err := time.Parse(TimestampLayout, item.Get("timestamp").String())
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	e.Timestamp = ts

	snap := item.Get("snapshot")
	if !snap.IsObject() {
		return Entry{}, errors.New("missing snapshot")
	}
	if err := json.Unmarshal([]byte(snap.Raw), &e.Snapshot); err != nil {
		return Entry{}, fmt.Errorf("snapshot: %w", err)
	}

	e.Checksum = Checksum(e.Snapshot)
	if sum := item.Get("checksum").String(); sum != "" {
		want, err := strconv.ParseUint(sum, 16, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("checksum: %w", err)
		}
		if want != e.Checksum {
			return Entry{}, fmt.Errorf("version %d: %w", e.Version, ErrChecksum)
		}
	}
	return e, nil
}

// Resume loads the stored history and enables versioning with the last
// stored entry current. It returns the number of entries loaded; with
// none, the ledger is left unchanged.
func (l *Ledger) Resume(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, errors.New("ledger has no store")
	}
	entries, err := l.store.Load(ctx, l.history)
	if err != nil {
		return 0, fmt.Errorf("loading history %q: %w", l.history, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	for _, e := range entries {
		if !e.Verify() {
			return 0, fmt.Errorf("history %q version %d: %w", l.history, e.Version, ErrChecksum)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.current = entries[len(entries)-1].Version
	l.enabled = true
	return len(entries), nil
}

// capture snapshots the live document as version v.
func (l *Ledger) capture(v int, description string) Entry {
	snap := l.doc.Snapshot()
	return Entry{
		ID:          uuid.New(),
		Version:     v,
		Description: description,
		Timestamp:   l.now().UTC().Truncate(time.Second),
		Checksum:    Checksum(snap),
		Snapshot:    snap,
	}
}

func (l *Ledger) index(v int) int {
	for i, e := range l.entries {
		if e.Version == v {
			return i
		}
	}
	return -1
}
