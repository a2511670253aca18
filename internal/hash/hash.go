// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package hash is the key hash shared by the builder and the reader.
// Changing it changes the on-disk format.
package hash

import (
	"github.com/dgryski/go-farm"
)

const (
	// Buckets is the number of entries in the head table.
	Buckets = 256

	// Empty marks an unoccupied slot.  Sum never returns it.
	Empty = uint32(0)
)

// Sum returns the 32-bit hash of key.  farm.Fingerprint32 is stable
// across releases of go-farm, which is what lets files outlive the binary
// that built them.
func Sum(key []byte) uint32 {
	h := farm.Fingerprint32(key)
	if h == Empty {
		h = 1
	}
	return h
}

// Bucket returns the head table bucket for h.
func Bucket(h uint32) int {
	return int(h & (Buckets - 1))
}

// Start returns the first slot to probe in a table of n slots.  n must be
// a power of two.
func Start(h uint32, n uint32) uint32 {
	return (h >> 8) & (n - 1)
}
