// Package document provides the in-memory configuration document.
//
// A Document is an ordered collection of named sections. Each section is an
// ordered map of parameters, and each parameter binds a key to a Value. A
// Value stores its literal text together with an inferred Kind; the kind is
// advisory, so the coercion accessors always work from the literal.
//
// # Ordering
//
// Sections keep the order in which they were first created, and parameters
// keep the order in which their keys were first set. Overwriting a key keeps
// its position. Codecs rely on this order for deterministic output.
//
// # Keys
//
// Keys are stored without the leading dot used by the native text format.
// Every lookup strips a single leading dot, so "id" and ".id" address the
// same parameter.
//
// # Thread Safety
//
// Every exported Document method is serialized by one mutex owned by the
// document. Sections and parameters returned to callers are copies.
// Operations that read another document (CopyFrom, Equal) snapshot it
// before taking their own lock, so two document locks are never held at
// the same time.
package document
