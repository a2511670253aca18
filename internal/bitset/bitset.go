// Copyright 2021 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bitset tracks slot occupancy while an open-addressing table is
// filled in.
package bitset

import (
	"math/bits"
)

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but more memory efficient.
type Bitset struct {
	bits   []uint64
	length uint32
}

// New returns a new in-memory bitset of length clear bits.
func New(length uint32) *Bitset {
	b := &Bitset{}
	b.Reset(length)
	return b
}

// Reset clears the bitset and resizes it to length bits, reusing storage
// where possible.  Slot tables are built one bucket at a time, so a single
// Bitset serves every bucket.
func (b *Bitset) Reset(length uint32) {
	sliceLen := int((uint64(length) + 63) / 64)
	if cap(b.bits) < sliceLen {
		b.bits = make([]uint64, sliceLen)
	} else {
		b.bits = b.bits[:sliceLen]
		clear(b.bits)
	}
	b.length = length
}

// Len returns the number of bits.
func (b *Bitset) Len() uint32 {
	return b.length
}

// Set sets the bit at position `off` to 1.
func (b *Bitset) Set(off uint32) {
	if off >= b.length {
		return
	}
	b.bits[off/64] |= 1 << (off % 64)
}

// IsSet returns true if the bit at position `off` is 1.
func (b *Bitset) IsSet(off uint32) bool {
	if off >= b.length {
		return false
	}
	return b.bits[off/64]&(1<<(off%64)) != 0
}

// NextClear returns the first clear bit at or after from, wrapping around
// to the start.  ok is false when every bit is set.
func (b *Bitset) NextClear(from uint32) (off uint32, ok bool) {
	if b.length == 0 {
		return 0, false
	}
	from %= b.length
	if off, ok = b.nextClear(from, b.length); ok {
		return off, true
	}
	return b.nextClear(0, from)
}

// nextClear searches [lo, hi) a word at a time.
func (b *Bitset) nextClear(lo, hi uint32) (uint32, bool) {
	for lo < hi {
		word := ^b.bits[lo/64] >> (lo % 64)
		if word != 0 {
			off := lo + uint32(bits.TrailingZeros64(word))
			if off < hi {
				return off, true
			}
			return 0, false
		}
		lo = (lo/64 + 1) * 64
	}
	return 0, false
}
