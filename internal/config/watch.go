package config

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/watcher"
)

// Watch reloads the document from path, decoded as f, whenever the file
// is written or recreated. An empty f infers the format from the
// extension. Reload failures keep the previous document and are reported
// through LastError. Watching stops when ctx is done or c is closed.
func (c *Config) Watch(ctx context.Context, path string, f codec.Format, opts ...watcher.Option) error {
	if f == "" {
		var err error
		if f, err = codec.FormatFromPath(path); err != nil {
			return err
		}
	}
	if _, err := codec.MustLookup(f); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := c.ensureWatcher(opts)
	if err != nil {
		return err
	}
	w.OnChange(func(ev watcher.Event) {
		if ev.Path != abs || ctx.Err() != nil {
			return
		}
		if ev.Op == watcher.OpRemove {
			c.logger.Info("watched file removed", zap.String("path", ev.Path))
			return
		}
		if !c.Load(f, abs) {
			c.logger.Warn("reload failed", zap.String("path", abs), zap.String("error", c.LastError()))
		}
	})
	if err := w.Watch(abs); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.watches.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.watches.Done()
		select {
		case <-ctx.Done():
		case <-c.done:
			return
		}
		if err := w.Unwatch(abs); err != nil && !errors.Is(err, watcher.ErrClosed) {
			c.logger.Debug("unwatch", zap.String("path", abs), zap.Error(err))
		}
	}()
	return nil
}

// ensureWatcher starts the shared watcher on first use.
func (c *Config) ensureWatcher(opts []watcher.Option) (*watcher.Watcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.watcher != nil {
		return c.watcher, nil
	}

	w, err := watcher.New(append([]watcher.Option{watcher.WithLogger(c.logger.Named("watcher"))}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Close()
		return nil, err
	}
	c.watcher = w
	return w, nil
}
