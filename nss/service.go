// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nss

import (
	"errors"

	"github.com/bpowers/mcdb"
	"github.com/bpowers/mcdb/internal/unsafestring"
)

var errEnumeratorClosed = errors.New("nss: enumerator closed")

// Service answers name-service lookups from the databases of a registry.
// Databases are acquired under Kind.String(), so a registry built with
// mcdb.DirResolver(dir) reads dir/passwd.mcdb for Passwd.
//
// A Service is safe for concurrent use.
type Service struct {
	reg *mcdb.Registry
}

// NewService returns a Service backed by reg.
func NewService(reg *mcdb.Registry) *Service {
	return &Service{reg: reg}
}

// Lookup decodes the first record of kind matching key and tag.  The
// database is only held for the duration of the call, so dec must copy
// anything it keeps into buf.
func Lookup[T any](s *Service, kind Kind, key []byte, tag byte, dec Decoder[T], buf []byte) (T, error) {
	var zero T
	m, err := s.reg.Acquire(kind.String())
	if err != nil {
		return zero, err
	}
	defer func() { _ = m.Release() }()

	f := m.DB().Find(key, tag)
	rec, err := f.Next()
	if err != nil {
		return zero, err
	}
	return dec.Decode(rec, buf)
}

// ByName looks up an entry of kind by name.  Databases that store
// aliases are searched by alias when no entry has that name.
func ByName[T any](s *Service, kind Kind, name string, dec Decoder[T], buf []byte) (T, error) {
	key := unsafestring.ToBytes(name)
	v, err := Lookup(s, kind, key, TagName, dec, buf)
	if errors.Is(err, mcdb.ErrNotFound) {
		return Lookup(s, kind, key, TagAlias, dec, buf)
	}
	return v, err
}

// ByNumber looks up an entry of kind by its numeric id: a uid, gid,
// protocol, program, port or network number.
func ByNumber[T any](s *Service, kind Kind, n uint32, dec Decoder[T], buf []byte) (T, error) {
	var key [8]byte
	return Lookup(s, kind, AppendHexKey(key[:0], n), TagID, dec, buf)
}

// PasswdByName looks up a user by name.
func (s *Service) PasswdByName(name string, buf []byte) (PasswdEntry, error) {
	return ByName[PasswdEntry](s, Passwd, name, PasswdDecoder{}, buf)
}

// PasswdByUID looks up a user by uid.
func (s *Service) PasswdByUID(uid uint32, buf []byte) (PasswdEntry, error) {
	return ByNumber[PasswdEntry](s, Passwd, uid, PasswdDecoder{}, buf)
}

// GroupByName looks up a group by name.
func (s *Service) GroupByName(name string, buf []byte) (GroupEntry, error) {
	return ByName[GroupEntry](s, Group, name, GroupDecoder{}, buf)
}

// GroupByGID looks up a group by gid.
func (s *Service) GroupByGID(gid uint32, buf []byte) (GroupEntry, error) {
	return ByNumber[GroupEntry](s, Group, gid, GroupDecoder{}, buf)
}

// ShadowByName looks up a shadow entry by user name.
func (s *Service) ShadowByName(name string, buf []byte) (ShadowEntry, error) {
	return ByName[ShadowEntry](s, Shadow, name, ShadowDecoder{}, buf)
}

// ProtocolByName looks up a protocol by name or alias.
func (s *Service) ProtocolByName(name string, buf []byte) (NumberedEntry, error) {
	return ByName[NumberedEntry](s, Protocols, name, NumberedDecoder{}, buf)
}

// ProtocolByNumber looks up a protocol by number.
func (s *Service) ProtocolByNumber(proto uint32, buf []byte) (NumberedEntry, error) {
	return ByNumber[NumberedEntry](s, Protocols, proto, NumberedDecoder{}, buf)
}

// RPCByName looks up an rpc program by name or alias.
func (s *Service) RPCByName(name string, buf []byte) (NumberedEntry, error) {
	return ByName[NumberedEntry](s, RPC, name, NumberedDecoder{}, buf)
}

// RPCByNumber looks up an rpc program by number.
func (s *Service) RPCByNumber(prog uint32, buf []byte) (NumberedEntry, error) {
	return ByNumber[NumberedEntry](s, RPC, prog, NumberedDecoder{}, buf)
}

// Enumerator walks every entry of a database in the order it was built.
// It holds a reference to the database until Close.  An Enumerator is
// not safe for concurrent use; open one per goroutine.
type Enumerator[T any] struct {
	m   *mcdb.Mapping
	it  *mcdb.Iter
	dec Decoder[T]
}

// Enumerate opens a cursor over the entries of kind.
func Enumerate[T any](s *Service, kind Kind, dec Decoder[T]) (*Enumerator[T], error) {
	m, err := s.reg.Acquire(kind.String())
	if err != nil {
		return nil, err
	}
	return &Enumerator[T]{m: m, it: m.DB().Iter(), dec: dec}, nil
}

// Passwds enumerates the passwd database.
func (s *Service) Passwds() (*Enumerator[PasswdEntry], error) {
	return Enumerate[PasswdEntry](s, Passwd, PasswdDecoder{})
}

// Groups enumerates the group database.
func (s *Service) Groups() (*Enumerator[GroupEntry], error) {
	return Enumerate[GroupEntry](s, Group, GroupDecoder{})
}

// Shadows enumerates the shadow database.
func (s *Service) Shadows() (*Enumerator[ShadowEntry], error) {
	return Enumerate[ShadowEntry](s, Shadow, ShadowDecoder{})
}

// Protocols enumerates the protocols database.
func (s *Service) Protocols() (*Enumerator[NumberedEntry], error) {
	return Enumerate[NumberedEntry](s, Protocols, NumberedDecoder{})
}

// RPCs enumerates the rpc database.
func (s *Service) RPCs() (*Enumerator[NumberedEntry], error) {
	return Enumerate[NumberedEntry](s, RPC, NumberedDecoder{})
}

// Next decodes the next entry into buf.  It returns mcdb.ErrNotFound at
// the end.  On mcdb.ErrBufferTooSmall the cursor stays put, so the same
// entry is returned by a retry with a larger buffer.
func (e *Enumerator[T]) Next(buf []byte) (T, error) {
	var zero T
	if e.m == nil {
		return zero, errEnumeratorClosed
	}
	off := e.it.Offset()
	rec, err := e.it.Next()
	if err != nil {
		return zero, err
	}
	v, err := e.dec.Decode(rec, buf)
	if errors.Is(err, mcdb.ErrBufferTooSmall) {
		e.it = e.m.DB().IterFrom(off, false)
	}
	return v, err
}

// Rewind restarts the cursor at the first entry.
func (e *Enumerator[T]) Rewind() {
	if e.m != nil {
		e.it = e.m.DB().Iter()
	}
}

// Close releases the database.  Next fails afterwards.
func (e *Enumerator[T]) Close() error {
	if e.m == nil {
		return nil
	}
	m := e.m
	e.m = nil
	e.it = nil
	return m.Release()
}
