// Copyright 2022 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package index

import (
	"encoding/binary"

	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
)

// Table is a read-only view of the head table and slot tables of a
// database, typically backed by an mmap'd file.
type Table struct {
	m   []byte
	end uint32 // end of the record stream, where slot tables begin
}

// NewTable validates the head table of m.  Slot tables must be laid out
// back to back in bucket order, with power-of-two sizes, ending exactly at
// the end of m; anything else is reported as corruption rather than
// guessed around.
func NewTable(m []byte) (*Table, error) {
	if len(m) < datafile.HeaderSize {
		return nil, datafile.Corruptf(0, "file too short: %d < %d", len(m), datafile.HeaderSize)
	}
	if uint64(len(m)) > datafile.MaxOffset {
		return nil, datafile.Corruptf(0, "file too large: %d bytes", len(m))
	}

	first := headAt(m, 0).Pos
	if first < datafile.HeaderSize {
		return nil, datafile.Corruptf(0, "slot tables start inside head table (%d)", first)
	}

	pos := uint64(first)
	for i := 0; i < hash.Buckets; i++ {
		e := headAt(m, i)
		if uint64(e.Pos) != pos {
			return nil, datafile.Corruptf(uint64(i*headEntrySize), "bucket %d slot table at %d, expected %d", i, e.Pos, pos)
		}
		if e.Slots&(e.Slots-1) != 0 {
			return nil, datafile.Corruptf(uint64(i*headEntrySize), "bucket %d slot count %d not a power of two", i, e.Slots)
		}
		pos += uint64(e.Slots) * SlotSize
	}
	if pos != uint64(len(m)) {
		return nil, datafile.Corruptf(pos, "slot tables end at %d but file is %d bytes", pos, len(m))
	}

	return &Table{m: m, end: first}, nil
}

// RecordsEnd is the position just past the last record.
func (t *Table) RecordsEnd() uint32 {
	return t.end
}

// Data is the whole database.
func (t *Table) Data() []byte {
	return t.m
}

// Bucket returns the head entry of bucket b.
func (t *Table) Bucket(b int) HeadEntry {
	return headAt(t.m, b)
}

// Slot returns slot i of the table described by e.  i must be < e.Slots.
func (t *Table) Slot(e HeadEntry, i uint32) (h, pos uint32) {
	off := uint64(e.Pos) + uint64(i)*SlotSize
	s := t.m[off : off+SlotSize]
	return binary.BigEndian.Uint32(s[0:4]), binary.BigEndian.Uint32(s[4:8])
}
