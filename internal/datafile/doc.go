// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile encodes and decodes the record stream of an mcdb
// database.
//
// A database file looks like:
//
//	┌───────────────────┐
//	│ head table        │  256 × (u32 slot table pos, u32 slot count)
//	├───────────────────┤
//	│ repeated records  │
//	│                   │
//	│                   │
//	├───────────────────┤
//	│ slot tables, one  │  (u32 hash, u32 record pos) per slot
//	│ per bucket        │
//	└───────────────────┘
//
// Records start with a fixed 8-byte header and are variable length:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| klen (BE)         | dlen (BE)         |
//	+----+----+----+----+----+----+----+----+
//	| key...            | tag| value...     |
//	+----+----+----+----+----+----+----+----+
//
// The tag is the first byte of the dlen-byte data region, i.e. the byte
// immediately following the key.  All positions are absolute file offsets
// and must fit in 32 bits.
package datafile
