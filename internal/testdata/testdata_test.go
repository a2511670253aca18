// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package testdata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	var a, b []Pair
	require.NoError(t, Generate(100, 42, func(p Pair) error { a = append(a, p); return nil }))
	require.NoError(t, Generate(100, 42, func(p Pair) error { b = append(b, p); return nil }))
	require.Len(t, a, 100)
	assert.Equal(t, a, b)

	seen := make(map[string]bool)
	for _, p := range a {
		assert.Len(t, p.Key, 64)
		assert.True(t, strings.HasPrefix(p.Value, prefix))
		assert.False(t, seen[p.Key], "duplicate key %s", p.Key)
		seen[p.Key] = true
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 10, 1))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		require.True(t, ok)
		assert.NotEmpty(t, k)
		assert.NotEmpty(t, v)
	}
}
