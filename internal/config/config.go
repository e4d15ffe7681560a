package config

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/document"
	"github.com/dshills/cfgdoc/internal/config/ledger"
	"github.com/dshills/cfgdoc/internal/config/merge"
	"github.com/dshills/cfgdoc/internal/config/notify"
	"github.com/dshills/cfgdoc/internal/config/pointer"
	"github.com/dshills/cfgdoc/internal/config/schema"
	"github.com/dshills/cfgdoc/internal/config/watcher"
)

// Source names attached to change notifications.
const (
	SourceAPI    = "api"
	SourceString = "string"
	SourceStream = "stream"
	SourceMerge  = "merge"
	SourceLedger = "ledger"
	SourceEnv    = "env"
)

// Config is the document facade. It owns one live document together with
// its version ledger and change notifier. Operations that can fail return
// a bool; the reason is kept for LastError.
type Config struct {
	doc      *document.Document
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	fsys     codec.FileSystem
	logger   *zap.Logger

	ledgerOpts []ledger.Option
	notifyOpts []notify.Option

	mu         sync.Mutex
	lastErr    error
	mergeStats merge.Stats
	schema     *schema.Schema
	watcher    *watcher.Watcher
	closed     bool
	done       chan struct{}  // closed by Close
	watches    sync.WaitGroup // Watch goroutines
}

// Option configures a Config instance.
type Option func(*Config)

// WithLogger sets the logger shared with the ledger and notifier.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFS replaces the OS file system for file loads and saves.
func WithFS(fsys codec.FileSystem) Option {
	return func(c *Config) {
		if fsys != nil {
			c.fsys = fsys
		}
	}
}

// WithDocument makes c operate on doc instead of a new empty document.
func WithDocument(doc *document.Document) Option {
	return func(c *Config) {
		if doc != nil {
			c.doc = doc
		}
	}
}

// WithSchema sets the schema used by Validate.
func WithSchema(s *schema.Schema) Option {
	return func(c *Config) {
		c.schema = s
	}
}

// WithLedgerOptions passes options to the version ledger, for example a
// persistent store.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(c *Config) {
		c.ledgerOpts = append(c.ledgerOpts, opts...)
	}
}

// WithNotifyOptions passes options to the change notifier.
func WithNotifyOptions(opts ...notify.Option) Option {
	return func(c *Config) {
		c.notifyOpts = append(c.notifyOpts, opts...)
	}
}

// New creates a Config holding an empty document.
func New(opts ...Option) *Config {
	c := &Config{
		fsys:   codec.DefaultFS(),
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doc == nil {
		c.doc = document.New()
	}

	c.ledger = ledger.New(c.doc, append([]ledger.Option{ledger.WithLogger(c.logger.Named("ledger"))}, c.ledgerOpts...)...)
	c.notifier = notify.New(append([]notify.Option{notify.WithLogger(c.logger.Named("notify"))}, c.notifyOpts...)...)
	return c
}

// Close stops running watches and the notifier. It is safe to call more
// than once.
func (c *Config) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	close(c.done)
	if w != nil {
		if err := w.Close(); err != nil {
			c.logger.Warn("closing watcher", zap.Error(err))
		}
	}
	c.watches.Wait()
	c.notifier.Close()
}

// Document returns the live document.
func (c *Config) Document() *document.Document {
	return c.doc
}

// Ledger returns the version ledger bound to the live document.
func (c *Config) Ledger() *ledger.Ledger {
	return c.ledger
}

// Notifier returns the change notifier.
func (c *Config) Notifier() *notify.Notifier {
	return c.notifier
}

// Subscribe registers an observer for all changes.
func (c *Config) Subscribe(observer notify.Observer) *notify.Subscription {
	return c.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below path.
func (c *Config) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return c.notifier.SubscribePath(path, observer)
}

// LastError returns the message of the most recent failure, or "".
func (c *Config) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		return ""
	}
	return c.lastErr.Error()
}

// Err returns the most recent failure, or nil.
func (c *Config) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// fail records err as the last error and returns false.
func (c *Config) fail(op, target string, err error) bool {
	err = &OpError{Op: op, Target: target, Err: err}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.logger.Debug("operation failed", zap.Error(err))
	return false
}

// Clear empties the document and the last error.
func (c *Config) Clear() {
	c.doc.Clear()
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	c.notifier.NotifyReload(SourceAPI)
}

// IsEmpty reports whether the document has no sections.
func (c *Config) IsEmpty() bool {
	return c.doc.IsEmpty()
}

// SectionCount returns the number of sections.
func (c *Config) SectionCount() int {
	return c.doc.Len()
}

// Clone returns a new Config holding a copy of the document. History,
// observers and watches are not copied.
func (c *Config) Clone() *Config {
	c.mu.Lock()
	s := c.schema
	c.mu.Unlock()
	return New(WithDocument(c.doc.Clone()), WithFS(c.fsys), WithLogger(c.logger), WithSchema(s))
}

// CopyFrom replaces the document with a copy of other's document.
func (c *Config) CopyFrom(other *Config) {
	c.doc.CopyFrom(other.doc)
	c.notifier.NotifyReload(SourceAPI)
}

// SetParameter sets section.key to literal, creating the section as
// needed.
func (c *Config) SetParameter(section, key, literal string) {
	path := pointer.Format(section, document.NormalizeKey(key))
	old, _ := c.doc.GetValue(section, key)
	c.doc.SetParameter(section, key, literal)
	c.notifier.NotifySet(path, old.Literal(), literal, SourceAPI)
}

// GetParameter returns section.key.
func (c *Config) GetParameter(section, key string) (document.Parameter, bool) {
	return c.doc.GetParameter(section, key)
}

// GetSection returns a copy of the named section.
func (c *Config) GetSection(name string) (*document.Section, bool) {
	return c.doc.GetSection(name)
}

// FindParameter returns the first parameter named key in section order.
func (c *Config) FindParameter(key string) (string, document.Parameter, bool) {
	return c.doc.FindParameter(key)
}

// DeleteParameter removes section.key.
func (c *Config) DeleteParameter(section, key string) bool {
	old, _ := c.doc.GetValue(section, key)
	if !c.doc.DeleteParameter(section, key) {
		return c.fail("delete", section+"."+key, ErrNotFound)
	}
	c.notifier.NotifyDelete(pointer.Format(section, document.NormalizeKey(key)), old.Literal(), SourceAPI)
	return true
}

// DeleteSection removes a section and its parameters.
func (c *Config) DeleteSection(name string) bool {
	if !c.doc.DeleteSection(name) {
		return c.fail("delete", name, document.ErrNoSection)
	}
	c.notifier.NotifyDelete(pointer.Format(name), "", SourceAPI)
	return true
}

func (c *Config) value(section, key string) (document.Value, error) {
	v, ok := c.doc.GetValue(section, key)
	if !ok {
		return document.Value{}, &OpError{Op: "get", Target: section + "." + key, Err: ErrNotFound}
	}
	return v, nil
}

// GetString returns section.key without outer quotes.
func (c *Config) GetString(section, key string) (string, error) {
	v, err := c.value(section, key)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// GetInt returns section.key as an integer. A literal that is not an
// integer yields a *document.ConversionError.
func (c *Config) GetInt(section, key string) (int64, error) {
	v, err := c.value(section, key)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}

// GetDouble returns section.key as a float.
func (c *Config) GetDouble(section, key string) (float64, error) {
	v, err := c.value(section, key)
	if err != nil {
		return 0, err
	}
	return v.AsDouble()
}

// GetBool returns section.key as a boolean.
func (c *Config) GetBool(section, key string) (bool, error) {
	v, err := c.value(section, key)
	if err != nil {
		return false, err
	}
	return v.AsBoolean()
}

// GetStringVector returns section.key split into list elements.
func (c *Config) GetStringVector(section, key string) ([]string, error) {
	v, err := c.value(section, key)
	if err != nil {
		return nil, err
	}
	return v.AsStringVector(), nil
}

// ApplyEnvironment merges parameters from src over the document with the
// Replace strategy.
func (c *Config) ApplyEnvironment(src *codec.EnvSource) bool {
	env := src.Load()
	if env.IsEmpty() {
		return true
	}
	return c.mergeDocument(env, merge.Replace, nil, SourceEnv)
}

// IsXMLSupported reports whether the XML codec is compiled in.
func IsXMLSupported() bool { return codec.Supported(codec.FormatXML) }

// IsYAMLSupported reports whether the YAML codec is compiled in.
func IsYAMLSupported() bool { return codec.Supported(codec.FormatYAML) }

// IsTOMLSupported reports whether the TOML codec is compiled in.
func IsTOMLSupported() bool { return codec.Supported(codec.FormatTOML) }
