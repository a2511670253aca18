// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

const (
	defaultBufferSize = 1024 * 1024
	RecordHeaderSize  = 4 + 4 // 32-bit key length + 32-bit data length

	// HeaderSize is the size of the head table that precedes the record
	// stream.
	HeaderSize = 256 * 8

	MaxOffset = (1 << 32) - 1
)

// nopWriter replaces the sink once a Writer is finished, so a stray
// flush cannot reach the file after the head table is written.
type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer streams records to a FileWriter.  Slot tables are appended with
// Append once every record has been written, and Finish back-fills the
// head table at offset 0.
type Writer struct {
	f        FileWriter
	w        *bufio.Writer
	off      uint64
	count    uint64
	finished atomic.Bool
}

func NewWriter(f FileWriter) (*Writer, error) {
	w := &Writer{
		f: f,
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	// placeholder head table; the real one is written by Finish
	var zero [HeaderSize]byte
	if _, err := w.w.Write(zero[:]); err != nil {
		return nil, fmt.Errorf("bufio.Write: %w", err)
	}
	w.off = HeaderSize

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

// PutHeader encodes a record header into b.
func PutHeader(b []byte, keyLen, dataLen uint32) {
	_ = b[RecordHeaderSize-1]
	binary.BigEndian.PutUint32(b[0:4], keyLen)
	binary.BigEndian.PutUint32(b[4:8], dataLen)
}

func (w *Writer) reserve(n uint64) (off uint64, err error) {
	if w.finished.Load() {
		return 0, errors.New("writer already finished")
	}
	off = w.off
	if off < HeaderSize {
		return 0, errors.New("invariant broken: always expect *Writer.off to be past the head table")
	}
	if off+n > MaxOffset {
		return 0, ErrTooLarge
	}
	return off, nil
}

// Write appends a record whose data region is exactly data, returning the
// position of the record.
func (w *Writer) Write(key, data []byte) (off uint32, err error) {
	return w.write(key, 0, false, data)
}

// WriteTagged appends a record whose data region is tag followed by value.
func (w *Writer) WriteTagged(tag byte, key, value []byte) (off uint32, err error) {
	return w.write(key, tag, true, value)
}

func (w *Writer) write(key []byte, tag byte, tagged bool, value []byte) (uint32, error) {
	if len(key) == 0 {
		return 0, ErrEmptyKey
	}
	dataLen := uint64(len(value))
	if tagged {
		dataLen++
	}
	recordLen := RecordHeaderSize + uint64(len(key)) + dataLen
	off, err := w.reserve(recordLen)
	if err != nil {
		return 0, err
	}

	var header [RecordHeaderSize]byte
	PutHeader(header[:], uint32(len(key)), uint32(dataLen))
	if _, err := w.w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("bufio.Write 1: %w", err)
	}
	if _, err := w.w.Write(key); err != nil {
		return 0, fmt.Errorf("bufio.Write 2: %w", err)
	}
	if tagged {
		if err := w.w.WriteByte(tag); err != nil {
			return 0, fmt.Errorf("bufio.WriteByte: %w", err)
		}
	}
	if _, err := w.w.Write(value); err != nil {
		return 0, fmt.Errorf("bufio.Write 3: %w", err)
	}

	w.off += recordLen
	w.count += 1

	return uint32(off), nil
}

// Append writes raw bytes after the record stream.
func (w *Writer) Append(p []byte) error {
	if _, err := w.reserve(uint64(len(p))); err != nil {
		return err
	}
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	w.off += uint64(len(p))
	return nil
}

// Offset is the position the next write will land at.
func (w *Writer) Offset() uint64 {
	return w.off
}

// Count is the number of records written so far.
func (w *Writer) Count() uint64 {
	return w.count
}

// Finish flushes buffered writes and writes header at offset 0.
func (w *Writer) Finish(header []byte) error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
	}()

	if len(header) != HeaderSize {
		return fmt.Errorf("head table is %d bytes, want %d", len(header), HeaderSize)
	}

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	if _, err := w.f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}
