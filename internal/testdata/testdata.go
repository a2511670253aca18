// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package testdata generates the key:value corpora used by tests,
// benchmarks and cmd/gen-testdata.
package testdata

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
)

const (
	prefix    = "pref_"
	suffixLen = 16
	hmacKey   = "d259c7f656caf7f1"
)

// Pair is one generated key/value pair.  Keys are hex HMACs of their
// values, so they are unique for unique values.
type Pair struct {
	Key   string
	Value string
}

// Generate calls f with n pairs derived from seed.  The same seed always
// yields the same pairs.
func Generate(n int, seed int64, f func(Pair) error) error {
	rng := rand.New(rand.NewSource(seed))
	h := hmac.New(sha256.New, []byte(hmacKey))

	for i := 0; i < n; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			return fmt.Errorf("rng.Read: %w", err)
		}
		value := fmt.Sprintf("%s%x", prefix, buf)
		h.Reset()
		h.Write([]byte(value))
		key := hex.EncodeToString(h.Sum(nil))

		if err := f(Pair{Key: key, Value: value}); err != nil {
			return err
		}
	}
	return nil
}

// Write writes n pairs as "key:value" lines.
func Write(w io.Writer, n int, seed int64) error {
	bw := bufio.NewWriter(w)
	err := Generate(n, seed, func(p Pair) error {
		_, err := fmt.Fprintf(bw, "%s:%s\n", p.Key, p.Value)
		return err
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}
