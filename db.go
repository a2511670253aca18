// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"errors"

	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
	"github.com/bpowers/mcdb/internal/index"
	"github.com/bpowers/mcdb/internal/unsafestring"
)

// TagDefault tags a database's primary records: the ones returned by
// Iter, and by name lookups in name-service databases.
const TagDefault = '='

// DB is a read-only view of a database.  The bytes it reads from are
// owned by whoever created it: a *Mapping (valid until released), a
// *Static, or the caller of FromBytes.
//
// A DB is safe for concurrent use; cursors created from it are not.
type DB struct {
	tbl *index.Table
}

// FromBytes validates the head table of b and returns a view over it.
// b must not be modified while the DB is in use.
func FromBytes(b []byte) (*DB, error) {
	tbl, err := index.NewTable(b)
	if err != nil {
		return nil, err
	}
	return &DB{tbl: tbl}, nil
}

// Len is the size of the database in bytes.
func (db *DB) Len() int {
	return len(db.tbl.Data())
}

// Bytes returns the whole database.  The result must not be modified.
func (db *DB) Bytes() []byte {
	return db.tbl.Data()
}

// Find returns a cursor over the records matching key and tag, in probe
// order.  key must remain unmodified while the cursor is in use.
func (db *DB) Find(key []byte, tag byte) Finder {
	h := hash.Sum(key)
	e := db.tbl.Bucket(hash.Bucket(h))
	f := Finder{
		db:  db,
		key: key,
		tag: tag,
		h:   h,
		e:   e,
	}
	if e.Slots > 0 {
		f.slot = hash.Start(h, e.Slots)
	}
	return f
}

// FindString is Find without copying key.
func (db *DB) FindString(key string, tag byte) Finder {
	return db.Find(unsafestring.ToBytes(key), tag)
}

// Get returns the value of the first record matching key and tag, or
// ErrNotFound.  The result aliases the database.
func (db *DB) Get(key []byte, tag byte) ([]byte, error) {
	f := db.Find(key, tag)
	rec, err := f.Next()
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// GetString is Get with a string key.
func (db *DB) GetString(key string, tag byte) ([]byte, error) {
	return db.Get(unsafestring.ToBytes(key), tag)
}

// GetAll returns the values of every record matching key and tag, in
// probe order.  It returns ErrNotFound if there are none.
func (db *DB) GetAll(key []byte, tag byte) ([][]byte, error) {
	var values [][]byte
	f := db.Find(key, tag)
	for {
		rec, err := f.Next()
		if errors.Is(err, ErrNotFound) {
			break
		} else if err != nil {
			return nil, err
		}
		values = append(values, rec.Value)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return values, nil
}

// Iter returns a cursor over the records tagged TagDefault, in the order
// they were added.
func (db *DB) Iter() *Iter {
	return db.IterFrom(datafile.HeaderSize, false)
}

// IterAll returns a cursor over every record, in the order they were
// added.
func (db *DB) IterAll() *Iter {
	return db.IterFrom(datafile.HeaderSize, true)
}

// IterFrom resumes a cursor at off, a value previously returned by
// (*Iter).Offset.  If all is false only records tagged TagDefault are
// returned.
func (db *DB) IterFrom(off uint32, all bool) *Iter {
	return &Iter{
		it:  datafile.NewIter(db.tbl.Data(), off, db.tbl.RecordsEnd()),
		all: all,
	}
}

// Stats describes how records are spread over buckets and slots.
type Stats struct {
	Bytes         uint64
	RecordsEnd    uint32
	Records       uint64
	Slots         uint64
	EmptyBuckets  int
	LongestBucket uint32
	MaxProbe      uint32 // longest displacement of a record from its start slot
	Buckets       [hash.Buckets]uint32
}

// LoadFactor is the fraction of slots in use.
func (s *Stats) LoadFactor() float64 {
	if s.Slots == 0 {
		return 0
	}
	return float64(s.Records) / float64(s.Slots)
}

// Stats scans the slot tables.  It reads every slot, so is proportional
// to the size of the index rather than constant time.
func (db *DB) Stats() Stats {
	s := Stats{
		Bytes:      uint64(db.Len()),
		RecordsEnd: db.tbl.RecordsEnd(),
	}
	for b := 0; b < hash.Buckets; b++ {
		e := db.tbl.Bucket(b)
		s.Slots += uint64(e.Slots)
		var n uint32
		for i := uint32(0); i < e.Slots; i++ {
			h, _ := db.tbl.Slot(e, i)
			if h == hash.Empty {
				continue
			}
			n++
			if probe := (i - hash.Start(h, e.Slots)) & (e.Slots - 1); probe > s.MaxProbe {
				s.MaxProbe = probe
			}
		}
		s.Buckets[b] = n
		s.Records += uint64(n)
		if n == 0 {
			s.EmptyBuckets++
		}
		if n > s.LongestBucket {
			s.LongestBucket = n
		}
	}
	return s
}
