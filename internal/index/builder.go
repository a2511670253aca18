// Copyright 2022 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package index

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/bpowers/mcdb/internal/bitset"
	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
)

// SlotSize is the on-disk size of one (hash, record position) slot.
const SlotSize = 8

// Appender receives the encoded slot tables, in bucket order.
type Appender interface {
	Append(p []byte) error
}

type entry struct {
	hash uint32
	pos  uint32
}

// Builder accumulates (hash, record position) pairs per bucket while
// records are streamed out, and lays out the slot tables once every
// record is known.
type Builder struct {
	buckets [hash.Buckets][]entry
	n       uint64
}

// BuildStats describes the tables produced by Write.
type BuildStats struct {
	Records       uint64
	Slots         uint64
	LongestBucket uint32
	MaxProbe      uint32 // longest displacement from a start slot
}

// Add records that the record at pos has hash h.
func (b *Builder) Add(h, pos uint32) {
	bucket := hash.Bucket(h)
	b.buckets[bucket] = append(b.buckets[bucket], entry{hash: h, pos: pos})
	b.n++
}

// Len is the number of records added.
func (b *Builder) Len() uint64 {
	return b.n
}

// SlotCount returns the slot table size for a bucket of n records: the
// smallest power of two that is at least 2n, or 0 for an empty bucket.
func SlotCount(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return 1 << bits.Len64(2*uint64(n)-1)
}

// Write encodes the slot table of every bucket, in ascending bucket order,
// to w.  base is the file position the first table will land at.
func (b *Builder) Write(w Appender, base uint64, logger *slog.Logger) (*HeadTable, BuildStats, error) {
	var (
		head  HeadTable
		stats BuildStats
		occ   bitset.Bitset
		table []entry
		buf   []byte
	)
	stats.Records = b.n

	pos := base
	for i, entries := range b.buckets {
		n := SlotCount(uint32(len(entries)))
		if pos+uint64(n)*SlotSize > datafile.MaxOffset {
			return nil, stats, datafile.ErrTooLarge
		}
		head[i] = HeadEntry{Pos: uint32(pos), Slots: n}
		if n == 0 {
			continue
		}

		if cap(table) < int(n) {
			table = make([]entry, n)
		}
		table = table[:n]
		clear(table)
		occ.Reset(n)

		// insertion order within the bucket doesn't matter: each entry
		// lands in the first free slot at or after its start slot
		for _, e := range entries {
			start := hash.Start(e.hash, n)
			slot, ok := occ.NextClear(start)
			if !ok {
				return nil, stats, fmt.Errorf("invariant broken: bucket %d slot table full", i)
			}
			occ.Set(slot)
			table[slot] = e
			if probe := (slot - start) & (n - 1); probe > stats.MaxProbe {
				stats.MaxProbe = probe
			}
		}

		size := int(n) * SlotSize
		if cap(buf) < size {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		for j, e := range table {
			binary.BigEndian.PutUint32(buf[j*SlotSize:j*SlotSize+4], e.hash)
			binary.BigEndian.PutUint32(buf[j*SlotSize+4:j*SlotSize+8], e.pos)
		}
		if err := w.Append(buf); err != nil {
			return nil, stats, fmt.Errorf("append slot table %d: %w", i, err)
		}

		pos += uint64(size)
		stats.Slots += uint64(n)
		if uint32(len(entries)) > stats.LongestBucket {
			stats.LongestBucket = uint32(len(entries))
		}
	}

	if logger != nil {
		logger.Debug("wrote slot tables",
			"records", stats.Records,
			"slots", stats.Slots,
			"longest_bucket", stats.LongestBucket,
			"max_probe", stats.MaxProbe)
	}

	return &head, stats, nil
}
