// Package storage holds the slot store adapters behind ports.SlotStore and
// ports.SessionStore.
//
// Subpackages:
//   - sqlite: durable slots in a single SQLite table (modernc.org/sqlite, no cgo)
//   - memory: process-local slots and the idle-expiring session store
package storage
