// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"errors"
	"fmt"

	"github.com/bpowers/mcdb/internal/datafile"
)

var (
	// ErrNotFound is returned when no (further) record matches, and when a
	// sequential cursor is exhausted.
	ErrNotFound = errors.New("mcdb: not found")
	// ErrUnavailable is returned when a database cannot be opened or mapped.
	ErrUnavailable = errors.New("mcdb: database unavailable")
	// ErrBufferTooSmall is returned by decoders when the caller's buffer
	// cannot hold a record.  Retrying with a larger buffer may succeed.
	ErrBufferTooSmall = errors.New("mcdb: buffer too small")
	// ErrBuilderFinished is returned when a Builder is used after Finish.
	ErrBuilderFinished = errors.New("mcdb: builder already finished")
	// ErrReleased is returned by Release on a mapping whose references
	// have all been released.
	ErrReleased = errors.New("mcdb: mapping already released")

	ErrEmptyKey = datafile.ErrEmptyKey
	ErrTooLarge = datafile.ErrTooLarge
	ErrCorrupt  = datafile.ErrCorrupt
)

// FormatError reports a database whose header, lengths or offsets are
// inconsistent.  errors.Is(err, ErrCorrupt) holds for every FormatError.
type FormatError = datafile.FormatError

// IOError reports a failed read, write, sync or rename of a database file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mcdb: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mcdb: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// unavailableError marks a failed open as ErrUnavailable while keeping
// the underlying cause reachable with errors.Is and errors.As.
type unavailableError struct {
	id  string
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("mcdb: %s unavailable: %v", e.id, e.err)
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.err}
}
