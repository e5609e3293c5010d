// Package intern provides a concurrency-safe string interning table, so
// the schema/bind/plan layers can hold stable, comparable identifiers
// instead of repeatedly allocating and comparing the same type/field
// names. Spec §3 requires "Strings are interned once and referenced by
// stable identifiers".
package intern

import "sync"

// ID is a stable identifier for an interned string. The zero ID is never
// issued by a Table, so it doubles as an "unset" sentinel.
type ID uint32

// Table interns strings to IDs and back. The zero Table is not usable;
// construct one with New.
type Table struct {
	mu     sync.RWMutex
	toID   map[string]ID
	toStr  []string // index 0 unused, so toStr[id] is the string for id
}

// New returns an empty, ready-to-use Table.
func New() *Table {
	return &Table{
		toID:  make(map[string]ID),
		toStr: []string{""}, // reserve index 0
	}
}

// Intern returns the stable ID for s, allocating a new one the first
// time s is seen.
func (t *Table) Intern(s string) ID {
	t.mu.RLock()
	if id, ok := t.toID[s]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.toID[s]; ok {
		return id
	}
	id := ID(len(t.toStr))
	t.toStr = append(t.toStr, s)
	t.toID[s] = id
	return id
}

// String returns the string for id, or "" if id was never issued by this
// Table.
func (t *Table) String(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.toStr) {
		return ""
	}
	return t.toStr[id]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.toStr) - 1
}
