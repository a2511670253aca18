// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyKey = errors.New("empty key not supported")
	ErrTooLarge = errors.New("database would exceed 4 GiB position limit")
	ErrCorrupt  = errors.New("database corrupted")
)

// FormatError reports an inconsistent header, length or offset.
type FormatError struct {
	Pos    uint64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("corrupt database at offset %d: %s", e.Pos, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrCorrupt
}

// Corruptf returns a *FormatError for pos.
func Corruptf(pos uint64, format string, args ...any) error {
	return &FormatError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}
