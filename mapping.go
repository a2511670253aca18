// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"sync/atomic"

	"github.com/bpowers/mcdb/internal/mmap"
)

// Source is anything a DB can be read from.
type Source interface {
	DB() *DB
}

var (
	_ Source = (*Mapping)(nil)
	_ Source = (*Static)(nil)
)

// Static is a database over caller-owned bytes, such as data embedded in
// the binary.  It is never unmapped, and has no Release method.
type Static struct {
	db *DB
}

// NewStatic validates b and wraps it.
func NewStatic(b []byte) (*Static, error) {
	db, err := FromBytes(b)
	if err != nil {
		return nil, err
	}
	return &Static{db: db}, nil
}

func (s *Static) DB() *DB {
	return s.db
}

// Mapping is a refcounted, read-only mapping of a database file, handed
// out by a Registry.  Every successful Acquire (or Retain) must be paired
// with exactly one Release; the file is unmapped when the count drops to
// zero, after which the Mapping must not be used.
type Mapping struct {
	id      string
	path    string
	r       *mmap.ReaderAt
	size    int
	db      *DB
	refs    atomic.Int64
	slot    *slot
	reg     *Registry
	checked atomic.Int64 // unix nanos of the last staleness check
}

// DB returns the database.  It is valid until the caller's reference is
// released.
func (m *Mapping) DB() *DB {
	return m.db
}

// ID is the identity the mapping was acquired under.
func (m *Mapping) ID() string {
	return m.id
}

// Path is the file that is mapped.
func (m *Mapping) Path() string {
	return m.path
}

// Refs is the current number of references.
func (m *Mapping) Refs() int64 {
	return m.refs.Load()
}

// Retain takes another reference.  It fails, returning false, once the
// count has reached zero: a released mapping is never resurrected.
func (m *Mapping) Retain() bool {
	for {
		n := m.refs.Load()
		if n <= 0 {
			return false
		}
		if m.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference, unmapping the file when it was the last one.
// Releasing a mapping more times than it was acquired returns ErrReleased
// and leaves the count at zero.
func (m *Mapping) Release() error {
	var n int64
	for {
		n = m.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if m.refs.CompareAndSwap(n, n-1) {
			break
		}
	}
	if n > 1 {
		return nil
	}

	// no one can retain m any more; make the next Acquire map anew
	m.slot.ptr.CompareAndSwap(m, nil)

	err := m.r.Close()
	m.reg.logger.Debug("unmapped database", "id", m.id, "path", m.path, "bytes", m.size)
	m.reg.metrics.ObserveUnmap(m.id, m.size)
	if err != nil {
		return &IOError{Op: "munmap", Path: m.path, Err: err}
	}
	return nil
}
