// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package nss serves name-service databases (passwd, group, hosts, ...)
// out of mcdb files.
//
// Every database stores each entry under its name with tag '=' and, for
// databases with a numeric id, under the id with tag 'x'.  Numeric keys
// are the 8-character uppercase hex encoding of the id (see HexKey).
// Databases whose entries carry aliases (protocols, rpc) also store each
// entry under every alias with tag '~'.
package nss

import (
	"errors"
	"fmt"

	"github.com/bpowers/mcdb"
)

const (
	// TagName tags entries keyed by name.
	TagName byte = mcdb.TagDefault
	// TagID tags entries keyed by HexKey of their numeric id.
	TagID byte = 'x'
	// TagAlias tags entries keyed by one of their aliases.  Alias
	// records are skipped by enumeration, so every entry is listed once.
	TagAlias byte = '~'
)

// Kind is a name-service database.
type Kind int

const (
	Aliases Kind = iota
	Ethers
	Group
	Hosts
	Netgroup
	Networks
	Passwd
	Protocols
	PublicKey
	RPC
	Services
	Shadow
	numKinds
)

var kindNames = [numKinds]string{
	Aliases:   "aliases",
	Ethers:    "ethers",
	Group:     "group",
	Hosts:     "hosts",
	Netgroup:  "netgroup",
	Networks:  "networks",
	Passwd:    "passwd",
	Protocols: "protocols",
	PublicKey: "publickey",
	RPC:       "rpc",
	Services:  "services",
	Shadow:    "shadow",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// FileName is the database's file name, e.g. "passwd.mcdb".
func (k Kind) FileName() string {
	return k.String() + mcdb.Ext
}

// Kinds lists every Kind.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown database %q", s)
}

const hexDigits = "0123456789ABCDEF"

// AppendHexKey appends the 8-character uppercase hex encoding of id.
func AppendHexKey(dst []byte, id uint32) []byte {
	for shift := 28; shift >= 0; shift -= 4 {
		dst = append(dst, hexDigits[(id>>uint(shift))&0xf])
	}
	return dst
}

// HexKey is the key numeric ids are stored under.
func HexKey(id uint32) []byte {
	return AppendHexKey(make([]byte, 0, 8), id)
}

// Status is the outcome of a lookup, numbered like glibc's enum nss_status.
type Status int

const (
	TryAgain    Status = -2
	Unavailable Status = -1
	NotFound    Status = 0
	Success     Status = 1
)

func (s Status) String() string {
	switch s {
	case TryAgain:
		return "TRYAGAIN"
	case Unavailable:
		return "UNAVAIL"
	case NotFound:
		return "NOTFOUND"
	case Success:
		return "SUCCESS"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusOf classifies the error returned by a lookup.  TryAgain means the
// caller's buffer was too small.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, mcdb.ErrNotFound):
		return NotFound
	case errors.Is(err, mcdb.ErrBufferTooSmall):
		return TryAgain
	default:
		return Unavailable
	}
}
