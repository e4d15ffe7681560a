// Package notify delivers document change events to observers.
//
// Events are addressed by JSON-Pointer paths: "/section/key" for a single
// parameter and "/section" for a whole section. Reload, merge and
// rollback events concern the entire document and carry an empty path;
// they reach every observer.
package notify

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ChangeType is the kind of document change.
type ChangeType int

const (
	// ChangeSet means a parameter was added or its value replaced.
	ChangeSet ChangeType = iota

	// ChangeDelete means a parameter or section was removed.
	ChangeDelete

	// ChangeReload means the document was loaded from a source.
	ChangeReload

	// ChangeMerge means another document was merged in.
	ChangeMerge

	// ChangeRollback means a recorded version was restored.
	ChangeRollback
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	case ChangeMerge:
		return "merge"
	case ChangeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// Change describes one document change.
type Change struct {
	// Path is "/section/key" or "/section"; empty for document-wide events.
	Path string

	Type ChangeType

	// OldValue and NewValue are parameter literals. For merge events
	// NewValue holds the merge summary.
	OldValue string
	NewValue string

	// Version is the restored version for rollback events.
	Version int

	// Source names the file, format or command that caused the change.
	Source string
}

// Observer receives changes.
type Observer func(change Change)

// Subscription is a registered observer.
type Subscription struct {
	id       uint64
	path     string
	notifier *Notifier
}

// Path returns the subscribed path, or "" for a global subscription.
func (s *Subscription) Path() string {
	return s.path
}

// Unsubscribe removes the observer. Calling it twice is harmless.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier fans changes out to observers.
type Notifier struct {
	mu sync.RWMutex

	global map[uint64]Observer
	byPath map[string]map[uint64]Observer
	nextID uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool

	logger *zap.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers changes from a background goroutine through a
// buffer of the given size.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// WithLogger logs observer panics to l.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		global: make(map[uint64]Observer),
		byPath: make(map[string]map[uint64]Observer),
		done:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add("", observer)
}

// SubscribePath registers an observer for path and everything below it:
// "/search" receives "/search/max_magnitude". The observer also receives
// document-wide events.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return n.add("", observer)
	}
	return n.add(path, observer)
}

func (n *Notifier) add(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	if path == "" {
		n.global[id] = observer
	} else {
		if n.byPath[path] == nil {
			n.byPath[path] = make(map[uint64]Observer)
		}
		n.byPath[path][id] = observer
	}
	return &Subscription{id: id, path: path, notifier: n}
}

// Notify delivers change. After Close it does nothing.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}
	n.deliver(change)
}

// NotifySet reports a parameter set at path.
func (n *Notifier) NotifySet(path, oldValue, newValue, source string) {
	n.Notify(Change{Path: path, Type: ChangeSet, OldValue: oldValue, NewValue: newValue, Source: source})
}

// NotifyDelete reports a removal at path.
func (n *Notifier) NotifyDelete(path, oldValue, source string) {
	n.Notify(Change{Path: path, Type: ChangeDelete, OldValue: oldValue, Source: source})
}

// NotifyReload reports that the document was reloaded from source.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// NotifyMerge reports a merge with the given summary.
func (n *Notifier) NotifyMerge(summary, source string) {
	n.Notify(Change{Type: ChangeMerge, NewValue: summary, Source: source})
}

// NotifyRollback reports that version was restored.
func (n *Notifier) NotifyRollback(version int, source string) {
	n.Notify(Change{Type: ChangeRollback, Version: version, Source: source})
}

// Close stops delivery, draining buffered changes first. It is safe to
// call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.global, id)
	for path, observers := range n.byPath {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.byPath, path)
		}
	}
}

// deliver calls every matching observer outside the lock.
func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.global))
	for _, obs := range n.global {
		observers = append(observers, obs)
	}
	for path, pathObs := range n.byPath {
		if change.Path != "" && !Covers(path, change.Path) {
			continue
		}
		for _, obs := range pathObs {
			observers = append(observers, obs)
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		n.call(obs, change)
	}
}

func (n *Notifier) call(obs Observer, change Change) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("observer panicked",
				zap.String("type", change.Type.String()),
				zap.String("path", change.Path),
				zap.Any("panic", r),
			)
		}
	}()
	obs(change)
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliver(change)
		case <-n.done:
			for {
				select {
				case change := <-n.buffer:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}

// Covers reports whether a subscription on path receives changes at
// target: target equals path or lies below it. "/" covers everything.
func Covers(path, target string) bool {
	if path == "" || path == "/" || path == target {
		return true
	}
	return strings.HasPrefix(target, path) && target[len(path)] == '/'
}

// Batch collects changes and delivers them together on Commit.
type Batch struct {
	notifier *Notifier
	mu       sync.Mutex
	changes  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add queues change.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Set queues a set change.
func (b *Batch) Set(path, oldValue, newValue, source string) {
	b.Add(Change{Path: path, Type: ChangeSet, OldValue: oldValue, NewValue: newValue, Source: source})
}

// Commit delivers the queued changes in order and empties the batch.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}

// Discard drops the queued changes.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = nil
}

// Len returns the number of queued changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
