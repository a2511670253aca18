// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package index

import (
	"encoding/binary"
	"fmt"

	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
)

const headEntrySize = 8

// HeadEntry locates the slot table of one bucket.
type HeadEntry struct {
	Pos   uint32 // file position of the slot table
	Slots uint32 // number of slots; zero for an empty bucket
}

// HeadTable is the fixed-size table at the front of every database.
type HeadTable [hash.Buckets]HeadEntry

func (h *HeadTable) MarshalTo(b []byte) error {
	if len(b) < datafile.HeaderSize {
		return fmt.Errorf("buffer too short: %d < %d", len(b), datafile.HeaderSize)
	}
	for i, e := range h {
		off := i * headEntrySize
		binary.BigEndian.PutUint32(b[off:off+4], e.Pos)
		binary.BigEndian.PutUint32(b[off+4:off+8], e.Slots)
	}
	return nil
}

// Bytes returns the on-disk encoding of h.
func (h *HeadTable) Bytes() []byte {
	b := make([]byte, datafile.HeaderSize)
	_ = h.MarshalTo(b)
	return b
}

func (h *HeadTable) UnmarshalBytes(b []byte) error {
	if len(b) < datafile.HeaderSize {
		return fmt.Errorf("head table too short: %d < %d", len(b), datafile.HeaderSize)
	}
	for i := range h {
		h[i] = headAt(b, i)
	}
	return nil
}

func headAt(m []byte, bucket int) HeadEntry {
	off := bucket * headEntrySize
	e := m[off : off+headEntrySize]
	return HeadEntry{
		Pos:   binary.BigEndian.Uint32(e[0:4]),
		Slots: binary.BigEndian.Uint32(e[4:8]),
	}
}
