// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux

// Package mmap maps whole files read-only into memory.
package mmap

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileID identifies the file a mapping was created from.  Two FileIDs are
// equal when the path still names the same, unmodified file.
type FileID struct {
	Dev   uint64
	Ino   uint64
	Size  int64
	Mtime int64 // nanoseconds
}

func fileID(st *unix.Stat_t) FileID {
	return FileID{
		Dev:   uint64(st.Dev),
		Ino:   uint64(st.Ino),
		Size:  st.Size,
		Mtime: st.Mtim.Nano(),
	}
}

// ReaderAt is a read-only, shared mapping of a whole file.
type ReaderAt struct {
	once sync.Once
	data []byte
	id   FileID
	err  error
}

// Open maps the file at path.  The file descriptor is closed before
// returning; the mapping remains valid until Close.
func Open(path string) (*ReaderAt, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = unix.Close(fd) }()

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, &os.PathError{Op: "fstat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: errors.New("not a regular file")}
	}
	size := st.Size
	if size < 0 || int64(int(size)) != size {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: fmt.Errorf("file too large: %d", size)}
	}

	r := &ReaderAt{id: fileID(&st)}
	if size == 0 {
		return r, nil
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: err}
	}
	// lookups touch a handful of scattered pages
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	r.data = data

	return r, nil
}

// Stat returns the identity of the file currently at path.
func Stat(path string) (FileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileID{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return fileID(&st), nil
}

// Data returns the mapped bytes.  They must not be written to, and must
// not be used after Close.
func (r *ReaderAt) Data() []byte {
	return r.data
}

// Len returns the length of the mapping.
func (r *ReaderAt) Len() int {
	return len(r.data)
}

// ID returns the identity of the mapped file as of Open.
func (r *ReaderAt) ID() FileID {
	return r.id
}

// Close unmaps the file.  It is safe to call more than once; only the
// first call has an effect.
func (r *ReaderAt) Close() error {
	r.once.Do(func() {
		if r.data != nil {
			r.err = unix.Munmap(r.data)
			r.data = nil
		}
	})
	return r.err
}
