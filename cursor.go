// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"bytes"
	"errors"
	"io"

	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
	"github.com/bpowers/mcdb/internal/index"
)

// Record is a single record.  Key and Value alias the database and are
// only valid while it stays mapped; use Clone to keep them longer.
type Record struct {
	Key   []byte
	Tag   byte
	Value []byte // the data region after the tag byte
	Pos   uint32 // position of the record in the file
}

// Clone returns a copy of r that does not alias the database.
func (r Record) Clone() Record {
	r.Key = bytes.Clone(r.Key)
	r.Value = bytes.Clone(r.Value)
	return r
}

func recordOf(key, data []byte, pos uint32) Record {
	r := Record{Key: key, Pos: pos}
	if len(data) > 0 {
		r.Tag = data[0]
		r.Value = data[1:]
	}
	return r
}

// Finder enumerates the records matching one key and tag.  It visits at
// most as many slots as the key's bucket has, so it terminates even when
// the slot table has no empty slot.
type Finder struct {
	db     *DB
	key    []byte
	tag    byte
	h      uint32
	e      index.HeadEntry
	slot   uint32
	probes uint32
}

// Next returns the next matching record, or ErrNotFound once there are no
// more.  A *FormatError means the database is corrupt.
func (f *Finder) Next() (Record, error) {
	if f.db == nil {
		return Record{}, ErrNotFound
	}
	m := f.db.tbl.Data()
	end := f.db.tbl.RecordsEnd()
	mask := f.e.Slots - 1
	for f.probes < f.e.Slots {
		h, pos := f.db.tbl.Slot(f.e, f.slot)
		if h == hash.Empty {
			f.probes = f.e.Slots
			break
		}
		f.probes++
		f.slot = (f.slot + 1) & mask
		if h != f.h {
			continue
		}

		key, data, _, err := datafile.ReadAt(m, pos, end)
		if err != nil {
			return Record{}, err
		}
		if len(data) == 0 || data[0] != f.tag || !bytes.Equal(key, f.key) {
			continue
		}
		return recordOf(key, data, pos), nil
	}
	return Record{}, ErrNotFound
}

// Iter walks the record stream in the order records were added.  It is an
// explicit cursor: callers may hold any number of them, and persist
// Offset to resume later with (*DB).IterFrom.
type Iter struct {
	it  *datafile.Iter
	all bool
}

// Next returns the next record, or ErrNotFound at the end of the stream.
func (i *Iter) Next() (Record, error) {
	for {
		item, err := i.it.Next()
		if errors.Is(err, io.EOF) {
			return Record{}, ErrNotFound
		} else if err != nil {
			return Record{}, err
		}
		if !i.all {
			if tag, ok := item.Tag(); !ok || tag != TagDefault {
				continue
			}
		}
		return recordOf(item.Key, item.Data, item.Offset), nil
	}
}

// Offset is the position of the next record the cursor will examine.
func (i *Iter) Offset() uint32 {
	return i.it.Offset()
}
