// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mcdb is a memory-mapped, immutable constant database.
//
// A database is built once with a Builder and then served read-only from
// an mmap'd file.  Lookups hash the key, pick one of 256 buckets and
// linearly probe that bucket's slot table, touching only a few pages of
// the file; nothing is copied onto the Go heap.
//
// A key may have many values.  Each value carries a one-byte tag stored as
// the first byte of the record's data region (right after the key), and
// keyed lookups match both key and tag: a name-service database might
// store a user under tag '=' by name and under tag 'x' by numeric id.
// Sequential iteration returns the records tagged TagDefault.
//
// Mappings are shared: a Registry hands out refcounted *Mapping handles,
// maps each file at most once no matter how many goroutines race to open
// it, and unmaps it when the last reference is released.
package mcdb
