package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// wait polls until at least n events arrived or the deadline passes.
func (r *recorder) wait(n int, timeout time.Duration) []Event {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if events := r.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	return r.snapshot()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.oop")
	b := filepath.Join(dir, "b.oop")
	writeFile(t, a, "object.\n")

	w := newWatcher(t)
	if err := w.Watch(a); err != nil {
		t.Fatalf("Watch(a) error = %v", err)
	}
	// Not yet existing files can be watched for creation.
	if err := w.Watch(b); err != nil {
		t.Fatalf("Watch(b) error = %v", err)
	}
	if err := w.Watch(a); err != nil {
		t.Errorf("second Watch(a) error = %v", err)
	}
	if files := w.WatchedFiles(); len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("WatchedFiles() = %v", files)
	}

	if err := w.Unwatch(a); err != nil {
		t.Errorf("Unwatch(a) error = %v", err)
	}
	if err := w.Unwatch(a); err != nil {
		t.Errorf("second Unwatch(a) error = %v", err)
	}
	if files := w.WatchedFiles(); len(files) != 1 {
		t.Errorf("WatchedFiles() = %v", files)
	}

	if err := w.Watch(filepath.Join(dir, "missing", "c.oop")); err == nil {
		t.Error("Watch in a missing directory succeeded")
	}
}

func TestWatcher_StartClose(t *testing.T) {
	w := newWatcher(t)
	if w.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(); err != nil || !w.IsRunning() {
		t.Errorf("second Start() = %v, running %v", err, w.IsRunning())
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("IsRunning() = true after Close()")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
	if err := w.Watch("x.oop"); !errors.Is(err, ErrClosed) {
		t.Errorf("Watch() after Close = %v, want ErrClosed", err)
	}
}

func TestWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asteroid.oop")
	writeFile(t, path, "object.\n")

	w := newWatcher(t, WithDebounce(0))
	rec := &recorder{}
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	w.Start()

	writeFile(t, path, "object.\n  .id = 1\n")

	events := rec.wait(1, 2*time.Second)
	if len(events) == 0 {
		t.Fatal("did not receive write event")
	}
	if events[0].Op != OpWrite || events[0].Path != path {
		t.Errorf("event = %+v", events[0])
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asteroid.oop")
	writeFile(t, path, "object.\n")

	w := newWatcher(t, WithDebounce(0))
	rec := &recorder{}
	w.OnChange(rec.handle)
	w.Watch(path)
	w.Start()

	writeFile(t, filepath.Join(dir, "other.oop"), "x.\n")
	time.Sleep(150 * time.Millisecond)
	if events := rec.snapshot(); len(events) != 0 {
		t.Errorf("received events for unwatched file: %+v", events)
	}
}

func TestWatcher_CreateCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.oop")

	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	rec := &recorder{}
	w.OnChange(rec.handle)
	w.Watch(path)
	w.Start()

	writeFile(t, path, "object.\n")
	writeFile(t, path, "object.\n  .id = 1\n")

	rec.wait(1, 2*time.Second)
	time.Sleep(150 * time.Millisecond)
	events := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("received %d events, want 1: %+v", len(events), events)
	}
	if events[0].Op != OpCreate {
		t.Errorf("event.Op = %v, want create", events[0].Op)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debounce.oop")
	writeFile(t, path, "object.\n")

	w := newWatcher(t, WithDebounce(100*time.Millisecond))
	var count atomic.Int32
	w.OnChange(func(Event) { count.Add(1) })
	w.Watch(path)
	w.Start()

	for i := 0; i < 5; i++ {
		writeFile(t, path, "object.\n")
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("received %d events, want 1", got)
	}
}

func TestWatcher_DetectsRemoveAndAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asteroid.oop")
	writeFile(t, path, "object.\n")

	w := newWatcher(t, WithDebounce(50*time.Millisecond))
	rec := &recorder{}
	w.OnChange(rec.handle)
	w.Watch(path)
	w.Start()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	events := rec.wait(1, 2*time.Second)
	if len(events) != 1 || events[0].Op != OpRemove {
		t.Fatalf("events after remove = %+v", events)
	}

	// Write a temporary file and rename it into place.
	tmp := filepath.Join(dir, ".asteroid.oop.tmp")
	writeFile(t, tmp, "object.\n  .id = 2\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	events = rec.wait(2, 2*time.Second)
	if len(events) != 2 || events[1].Op != OpCreate {
		t.Errorf("events after rename = %+v", events)
	}
}

func TestWatcher_HandlerPanic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asteroid.oop")
	writeFile(t, path, "object.\n")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	rec := &recorder{}
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(rec.handle)
	w.Watch(path)
	w.Start()

	writeFile(t, path, "time.\n")
	if events := rec.wait(1, 2*time.Second); len(events) != 1 {
		t.Errorf("second handler got %d events", len(events))
	}
}
