// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nss

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/bpowers/mcdb"
)

// MakePasswd adds every entry of an /etc/passwd-format file to b, by name
// and by uid.  Blank lines and lines starting with '#' are skipped.
func MakePasswd(r io.Reader, b *mcdb.Builder) error {
	return makeDB(r, b, 7, true, "passwd")
}

// MakeGroup adds every entry of an /etc/group-format file to b, by name
// and by gid.
func MakeGroup(r io.Reader, b *mcdb.Builder) error {
	return makeDB(r, b, 4, true, "group")
}

// makeDB adds each line under its first field (tag '=') and, when byID is
// set, under HexKey of its third field (tag 'x').
func makeDB(r io.Reader, b *mcdb.Builder, nFields int, byID bool, what string) error {
	fields := make([][]byte, nFields)
	var key [8]byte

	s := bufio.NewScanner(bufio.NewReaderSize(r, 16*1024))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; s.Scan(); lineNo++ {
		line := bytes.TrimRight(s.Bytes(), "\r")
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if err := splitFields(line, ':', fields); err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}
		if len(fields[0]) == 0 {
			return fmt.Errorf("%s line %d: empty name", what, lineNo)
		}
		var id uint32
		if byID {
			var err error
			if id, err = parseID(fields[2]); err != nil {
				return fmt.Errorf("%s line %d: %w", what, lineNo, err)
			}
		}

		if err := b.AddTagged(TagName, fields[0], line); err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}
		if !byID {
			continue
		}
		if err := b.AddTagged(TagID, AppendHexKey(key[:0], id), line); err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}
	return nil
}

// MakeShadow adds every entry of an /etc/shadow-format file to b, by name
// only.
func MakeShadow(r io.Reader, b *mcdb.Builder) error {
	return makeDB(r, b, 9, false, "shadow")
}

// MakeProtocols adds every entry of an /etc/protocols-format file to b, by
// name, by protocol number and by each alias.
func MakeProtocols(r io.Reader, b *mcdb.Builder) error {
	return makeNumbered(r, b, "protocols")
}

// MakeRPC adds every entry of an /etc/rpc-format file to b, by name, by
// program number and by each alias.
func MakeRPC(r io.Reader, b *mcdb.Builder) error {
	return makeNumbered(r, b, "rpc")
}

// makeNumbered reads "name number alias... # comment" lines.  The stored
// value is the line with its comment removed and fields joined by single
// spaces.
func makeNumbered(r io.Reader, b *mcdb.Builder, what string) error {
	var key [8]byte
	var value []byte

	s := bufio.NewScanner(bufio.NewReaderSize(r, 16*1024))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; s.Scan(); lineNo++ {
		line, _, _ := bytes.Cut(s.Bytes(), []byte{'#'})
		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return fmt.Errorf("%s line %d: missing number", what, lineNo)
		}
		n, err := parseID(fields[1])
		if err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}

		value = value[:0]
		for i, f := range fields {
			if i > 0 {
				value = append(value, ' ')
			}
			value = append(value, f...)
		}
		if err := b.AddTagged(TagName, fields[0], value); err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}
		if err := b.AddTagged(TagID, AppendHexKey(key[:0], n), value); err != nil {
			return fmt.Errorf("%s line %d: %w", what, lineNo, err)
		}
		for _, alias := range fields[2:] {
			if err := b.AddTagged(TagAlias, alias, value); err != nil {
				return fmt.Errorf("%s line %d: %w", what, lineNo, err)
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}
	return nil
}

// Make dispatches to the maker for kind.  Kinds without a maker return an
// error.
func Make(kind Kind, r io.Reader, b *mcdb.Builder) error {
	switch kind {
	case Passwd:
		return MakePasswd(r, b)
	case Group:
		return MakeGroup(r, b)
	case Shadow:
		return MakeShadow(r, b)
	case Protocols:
		return MakeProtocols(r, b)
	case RPC:
		return MakeRPC(r, b)
	default:
		return fmt.Errorf("no maker for %s", kind)
	}
}
