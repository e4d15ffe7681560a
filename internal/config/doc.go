// Package config provides the document facade for cfgdoc.
//
// A Config owns one live document of named sections holding typed
// parameters, together with its version ledger and change notifier. It
// reads and writes the native oop format and the interchange formats, and
// exposes path addressing, merging, diffing and schema validation on top
// of the document.
//
// # Sub-packages
//
//   - document: sections, parameters and the typed value model
//   - codec: oop, JSON, XML, YAML, TOML and CSV readers and writers
//   - pointer: JSON-Pointer style paths over a document
//   - merge: Replace, Append, DeepMerge and Custom strategies
//   - diff: structural differences between two documents
//   - schema: constraints, defaults and JSON Schema export
//   - ledger: numbered snapshots with optional SQLite persistence
//   - layer: priority-ordered document stacks
//   - notify: change notification and observer pattern
//   - watcher: file watching for live reload
//   - luaresolver: merge conflict resolution scripted in Lua
//   - batch: validate, convert or merge lists of files with run statistics
//
// # Basic Usage
//
//	c := config.New(config.WithLogger(logger))
//	defer c.Close()
//
//	if !c.LoadFile("site.oop") {
//	    log.Fatal(c.LastError())
//	}
//	ra, err := c.GetDouble("object", "ra")
//	c.SetValueByPath("/search/limit", "50")
//	c.SaveToYAML("site.yaml")
//
// Operations that can fail return a bool in the style of the document
// API. The reason is kept until Clear and is available as text through
// LastError or as an error through Err:
//
//	if !c.Rollback(3) {
//	    var op *config.OpError
//	    if errors.As(c.Err(), &op) {
//	        fmt.Println(op.Op, op.Target)
//	    }
//	}
//
// # Versioning
//
// After EnableVersioning every CreateVersion stores a snapshot of the
// document. Rollback restores a snapshot without truncating later
// versions. A ledger opened with a SQLite store survives restarts and is
// picked up again by ResumeHistory.
//
// # Error Handling
//
// The package defines these sentinel errors:
//
//   - ErrNotFound: section or parameter does not exist
//   - ErrVersioningDisabled: ledger operation while versioning is off
//   - ErrNoVersion: version number outside the history
//   - ErrEmptyHistory: ClearHistory with nothing recorded
//   - ErrClosed: use of a closed Config
package config
