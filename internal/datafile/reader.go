// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"io"
)

func readRecordHeader(header []byte) (keyLen, dataLen uint64) {
	_ = header[RecordHeaderSize-1]

	keyLen = uint64(binary.BigEndian.Uint32(header[0:4]))
	dataLen = uint64(binary.BigEndian.Uint32(header[4:8]))
	return
}

// ReadAt decodes the record at pos.  end bounds the record stream: a
// record that runs past it is corrupt, as is one that starts inside the
// head table.  The returned slices alias m.
func ReadAt(m []byte, pos, end uint32) (key, data []byte, next uint32, err error) {
	off := uint64(pos)
	limit := uint64(end)
	if limit > uint64(len(m)) {
		return nil, nil, 0, Corruptf(off, "record stream end %d beyond bounds (%d)", end, len(m))
	}
	if off < HeaderSize {
		return nil, nil, 0, Corruptf(off, "record inside head table")
	}
	if off+RecordHeaderSize > limit {
		return nil, nil, 0, Corruptf(off, "record header beyond end of records (%d)", end)
	}
	keyLen, dataLen := readRecordHeader(m[off : off+RecordHeaderSize])
	keyStart := off + RecordHeaderSize
	dataStart := keyStart + keyLen
	recordEnd := dataStart + dataLen
	if recordEnd > limit {
		return nil, nil, 0, Corruptf(off, "keyLen %d + dataLen %d beyond end of records (%d)", keyLen, dataLen, end)
	}

	key = m[keyStart:dataStart:dataStart]
	data = m[dataStart:recordEnd:recordEnd]
	return key, data, uint32(recordEnd), nil
}

// Item is a record yielded by Iter.
type Item struct {
	Key    []byte
	Data   []byte
	Offset uint32
}

// Tag returns the first byte of the data region, and false if the region is empty.
func (ii Item) Tag() (byte, bool) {
	if len(ii.Data) == 0 {
		return 0, false
	}
	return ii.Data[0], true
}

// Iter walks the record stream in insertion order.  It holds no locks and
// no references; the owner of m must keep it valid.
type Iter struct {
	m   []byte
	off uint32
	end uint32
}

// NewIter returns an iterator over the records in m[off:end].
func NewIter(m []byte, off, end uint32) *Iter {
	if off < HeaderSize {
		off = HeaderSize
	}
	return &Iter{m: m, off: off, end: end}
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (i *Iter) Next() (Item, error) {
	if i.off >= i.end {
		return Item{}, io.EOF
	}

	k, d, next, err := ReadAt(i.m, i.off, i.end)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		Key:    k,
		Data:   d,
		Offset: i.off,
	}
	i.off = next

	return item, nil
}

// Offset is the position of the record Next will return.
func (i *Iter) Offset() uint32 {
	return i.off
}
