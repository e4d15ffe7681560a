package config

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// EnableVersioning starts a new history whose version 1 is the current
// document.
func (c *Config) EnableVersioning(description string) bool {
	ok := c.ledger.Enable(description)
	versionOperations.WithLabelValues("enable", result(ok)).Inc()
	if !ok {
		return c.fail("enable versioning", description, errors.New("recording version 1 failed"))
	}
	return true
}

// DisableVersioning stops recording. History stays queryable.
func (c *Config) DisableVersioning() bool {
	if !c.ledger.Disable() {
		return c.fail("disable versioning", "", ErrVersioningDisabled)
	}
	return true
}

// IsVersioningEnabled reports whether versions can be created.
func (c *Config) IsVersioningEnabled() bool {
	return c.ledger.Enabled()
}

// CreateVersion records the current document as the next version.
func (c *Config) CreateVersion(description string) bool {
	v, ok := c.ledger.CreateVersion(description)
	versionOperations.WithLabelValues("create", result(ok)).Inc()
	if !ok {
		return c.fail("create version", description, ErrVersioningDisabled)
	}
	c.logger.Debug("version created", zap.Int("version", v), zap.String("description", description))
	return true
}

// Rollback restores version v.
func (c *Config) Rollback(v int) bool {
	return c.rollback(v, func() bool { return c.ledger.Rollback(v) })
}

// RollbackPrevious restores the version before the current one.
func (c *Config) RollbackPrevious() bool {
	return c.rollback(c.ledger.Current()-1, c.ledger.RollbackPrevious)
}

func (c *Config) rollback(v int, fn func() bool) bool {
	ok := fn()
	versionOperations.WithLabelValues("rollback", result(ok)).Inc()
	if !ok {
		if !c.ledger.Enabled() {
			return c.fail("rollback", fmt.Sprintf("version %d", v), ErrVersioningDisabled)
		}
		return c.fail("rollback", fmt.Sprintf("version %d", v), ErrNoVersion)
	}
	c.notifier.NotifyRollback(c.ledger.Current(), SourceLedger)
	return true
}

// ClearHistory collapses the history to one entry holding the current
// document.
func (c *Config) ClearHistory() bool {
	ok := c.ledger.ClearHistory()
	versionOperations.WithLabelValues("clear", result(ok)).Inc()
	if !ok {
		return c.fail("clear history", "", ErrEmptyHistory)
	}
	return true
}

// VersionCount returns the number of recorded versions.
func (c *Config) VersionCount() int {
	return c.ledger.Count()
}

// CurrentVersion returns the version the document was last recorded as or
// rolled back to, or 0 without history.
func (c *Config) CurrentVersion() int {
	return c.ledger.Current()
}

// VersionDescription returns the description of version v, or "".
func (c *Config) VersionDescription(v int) string {
	return c.ledger.Description(v)
}

// VersionTimestamp returns the UTC timestamp of version v formatted as
// 2006-01-02T15:04:05Z, or "".
func (c *Config) VersionTimestamp(v int) string {
	return c.ledger.Timestamp(v)
}

// HistoryAsJSON renders the history as a JSON array, or "" on failure.
func (c *Config) HistoryAsJSON() string {
	data, err := c.ledger.JSON()
	if err != nil {
		c.fail("history", "json", err)
		return ""
	}
	return string(data)
}

// ImportHistory replaces the history with one rendered by HistoryAsJSON.
// The document itself is not changed.
func (c *Config) ImportHistory(data string) bool {
	err := c.ledger.Import([]byte(data))
	versionOperations.WithLabelValues("import", result(err == nil)).Inc()
	if err != nil {
		return c.fail("import history", "", err)
	}
	return true
}

// ResumeHistory loads the history kept by the ledger store and restores
// its latest version. It returns that version, or 0 when the store holds
// no history.
func (c *Config) ResumeHistory(ctx context.Context) (int, bool) {
	n, err := c.ledger.Resume(ctx)
	versionOperations.WithLabelValues("resume", result(err == nil)).Inc()
	if err != nil {
		return 0, c.fail("resume history", "", err)
	}
	if n == 0 {
		return 0, true
	}
	v := c.ledger.Current()
	if !c.ledger.Rollback(v) {
		return 0, c.fail("resume history", fmt.Sprintf("version %d", v), ErrNoVersion)
	}
	c.notifier.NotifyRollback(v, SourceLedger)
	return v, true
}
