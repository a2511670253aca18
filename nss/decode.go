// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nss

import (
	"bytes"
	"fmt"

	"github.com/bpowers/mcdb"
)

// Decoder turns a record into a T, using buf for any storage T refers to.
// Decode must not write past len(buf), and returns mcdb.ErrBufferTooSmall
// when buf cannot hold the result.
type Decoder[T any] interface {
	Decode(rec mcdb.Record, buf []byte) (T, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc[T any] func(rec mcdb.Record, buf []byte) (T, error)

func (f DecoderFunc[T]) Decode(rec mcdb.Record, buf []byte) (T, error) {
	return f(rec, buf)
}

// copyValue copies rec's value into buf followed by a NUL, so buf must be
// strictly longer than the value.
func copyValue(rec mcdb.Record, buf []byte) ([]byte, error) {
	if len(buf) <= len(rec.Value) {
		return nil, mcdb.ErrBufferTooSmall
	}
	n := copy(buf, rec.Value)
	buf[n] = 0
	return buf[:n:n], nil
}

// BufDecoder copies the raw value into buf.
type BufDecoder struct{}

func (BufDecoder) Decode(rec mcdb.Record, buf []byte) ([]byte, error) {
	return copyValue(rec, buf)
}

// PasswdEntry is a decoded passwd line.  Byte fields alias the buffer
// passed to Decode.
type PasswdEntry struct {
	Name   []byte
	Passwd []byte
	UID    uint32
	GID    uint32
	Gecos  []byte
	Dir    []byte
	Shell  []byte
}

// PasswdDecoder decodes "name:passwd:uid:gid:gecos:dir:shell".
type PasswdDecoder struct{}

func (PasswdDecoder) Decode(rec mcdb.Record, buf []byte) (PasswdEntry, error) {
	line, err := copyValue(rec, buf)
	if err != nil {
		return PasswdEntry{}, err
	}
	var fields [7][]byte
	if err := splitFields(line, ':', fields[:]); err != nil {
		return PasswdEntry{}, formatErr(rec, "passwd", err)
	}
	uid, err := parseID(fields[2])
	if err != nil {
		return PasswdEntry{}, formatErr(rec, "passwd uid", err)
	}
	gid, err := parseID(fields[3])
	if err != nil {
		return PasswdEntry{}, formatErr(rec, "passwd gid", err)
	}
	return PasswdEntry{
		Name:   fields[0],
		Passwd: fields[1],
		UID:    uid,
		GID:    gid,
		Gecos:  fields[4],
		Dir:    fields[5],
		Shell:  fields[6],
	}, nil
}

// GroupEntry is a decoded group line.  Byte fields alias the buffer
// passed to Decode.
type GroupEntry struct {
	Name    []byte
	Passwd  []byte
	GID     uint32
	Members [][]byte
}

// GroupDecoder decodes "name:passwd:gid:member,member,...".
type GroupDecoder struct{}

func (GroupDecoder) Decode(rec mcdb.Record, buf []byte) (GroupEntry, error) {
	line, err := copyValue(rec, buf)
	if err != nil {
		return GroupEntry{}, err
	}
	var fields [4][]byte
	if err := splitFields(line, ':', fields[:]); err != nil {
		return GroupEntry{}, formatErr(rec, "group", err)
	}
	gid, err := parseID(fields[2])
	if err != nil {
		return GroupEntry{}, formatErr(rec, "group gid", err)
	}
	g := GroupEntry{
		Name:   fields[0],
		Passwd: fields[1],
		GID:    gid,
	}
	for rest := fields[3]; len(rest) > 0; {
		var member []byte
		member, rest, _ = bytes.Cut(rest, []byte{','})
		if len(member) > 0 {
			g.Members = append(g.Members, member)
		}
	}
	return g, nil
}

// ShadowEntry is a decoded shadow line.  Numeric fields left empty in the
// file decode as -1.  Byte fields alias the buffer passed to Decode.
type ShadowEntry struct {
	Name       []byte
	Passwd     []byte
	LastChange int64
	Min        int64
	Max        int64
	Warn       int64
	Inactive   int64
	Expire     int64
	Flag       []byte
}

// ShadowDecoder decodes
// "name:passwd:lastchg:min:max:warn:inactive:expire:flag".
type ShadowDecoder struct{}

func (ShadowDecoder) Decode(rec mcdb.Record, buf []byte) (ShadowEntry, error) {
	line, err := copyValue(rec, buf)
	if err != nil {
		return ShadowEntry{}, err
	}
	var fields [9][]byte
	if err := splitFields(line, ':', fields[:]); err != nil {
		return ShadowEntry{}, formatErr(rec, "shadow", err)
	}
	sp := ShadowEntry{
		Name:   fields[0],
		Passwd: fields[1],
		Flag:   fields[8],
	}
	for i, dst := range []*int64{&sp.LastChange, &sp.Min, &sp.Max, &sp.Warn, &sp.Inactive, &sp.Expire} {
		if *dst, err = parseOptional(fields[2+i]); err != nil {
			return ShadowEntry{}, formatErr(rec, "shadow", err)
		}
	}
	return sp, nil
}

// NumberedEntry is a decoded protocols or rpc line: a name, a number and
// any aliases.  Byte fields alias the buffer passed to Decode.
type NumberedEntry struct {
	Name    []byte
	Number  uint32
	Aliases [][]byte
}

// NumberedDecoder decodes "name number alias...", as stored by
// MakeProtocols and MakeRPC.
type NumberedDecoder struct{}

func (NumberedDecoder) Decode(rec mcdb.Record, buf []byte) (NumberedEntry, error) {
	line, err := copyValue(rec, buf)
	if err != nil {
		return NumberedEntry{}, err
	}
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return NumberedEntry{}, formatErr(rec, "entry", fmt.Errorf("%d fields, want at least 2", len(fields)))
	}
	n, err := parseID(fields[1])
	if err != nil {
		return NumberedEntry{}, formatErr(rec, "entry number", err)
	}
	e := NumberedEntry{Name: fields[0], Number: n}
	if len(fields) > 2 {
		e.Aliases = fields[2:]
	}
	return e, nil
}

// splitFields splits line into exactly len(fields) sep-separated fields.
func splitFields(line []byte, sep byte, fields [][]byte) error {
	for i := range fields {
		if i == len(fields)-1 {
			if bytes.IndexByte(line, sep) >= 0 {
				return fmt.Errorf("more than %d fields", len(fields))
			}
			fields[i] = line
			return nil
		}
		f, rest, ok := bytes.Cut(line, []byte{sep})
		if !ok {
			return fmt.Errorf("%d fields, want %d", i+1, len(fields))
		}
		fields[i] = f
		line = rest
	}
	return nil
}

// parseID parses a decimal uint32 without allocating.
func parseID(b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("empty id")
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid id %q", b)
		}
		n = n*10 + uint64(c-'0')
		if n > 1<<32-1 {
			return 0, fmt.Errorf("id %q out of range", b)
		}
	}
	return uint32(n), nil
}

// parseOptional parses a decimal field that may be empty, in which case
// it is -1.
func parseOptional(b []byte) (int64, error) {
	if len(b) == 0 {
		return -1, nil
	}
	n, err := parseID(b)
	return int64(n), err
}

func formatErr(rec mcdb.Record, what string, err error) error {
	return &mcdb.FormatError{Pos: uint64(rec.Pos), Reason: fmt.Sprintf("%s: %v", what, err)}
}
