// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package hash

import (
	"strconv"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/stretchr/testify/require"
)

func TestSum_Deterministic(t *testing.T) {
	for _, key := range []string{"a", "alice", "bob", "00000000", "a much longer key than the others"} {
		require.Equal(t, Sum([]byte(key)), Sum([]byte(key)))
		require.NotEqual(t, Empty, Sum([]byte(key)))
	}
}

func TestSum_NeverEmpty(t *testing.T) {
	for i := 0; i < 100000; i++ {
		require.NotEqual(t, Empty, Sum([]byte(strconv.Itoa(i))))
	}
}

func TestSum_MatchesFingerprint(t *testing.T) {
	key := []byte("passwd")
	if fp := farm.Fingerprint32(key); fp != 0 {
		require.Equal(t, fp, Sum(key))
	}
}

func TestBucketAndStart(t *testing.T) {
	t.Parallel()

	for _, testcase := range []struct {
		h      uint32
		n      uint32
		bucket int
		start  uint32
	}{
		{0x000001ff, 4, 0xff, 1},
		{0x12345678, 16, 0x78, 0x6},
		{0xffffff00, 1, 0, 0},
		{0x00000a01, 8, 1, 2},
	} {
		require.Equal(t, testcase.bucket, Bucket(testcase.h))
		require.Equal(t, testcase.start, Start(testcase.h, testcase.n))
	}
}
