// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (s *safeBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.buf...)
}

func (s *safeBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *safeBuffer) WriteAt(p []byte, off int64) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(off)+len(p) > len(s.buf) {
		return 0, errors.New("writeAt out of bounds")
	}

	return copy(s.buf[off:int(off)+len(p)], p), nil
}

var _ FileWriter = &safeBuffer{}

type testWriter struct {
	inner            FileWriter
	writeShouldError bool
}

func (c *testWriter) Write(p []byte) (n int, err error) {
	if c.writeShouldError {
		return 0, errors.New("write failed")
	}
	return c.inner.Write(p)
}

func (c *testWriter) WriteAt(p []byte, off int64) (n int, err error) {
	if c.writeShouldError {
		return 0, errors.New("write failed")
	}
	return c.inner.WriteAt(p, off)
}

var _ FileWriter = &testWriter{}

func TestNewWriter_Errors(t *testing.T) {
	var fileBytes safeBuffer
	writer := &testWriter{
		inner:            &fileBytes,
		writeShouldError: true,
	}

	_, err := NewWriter(writer)
	assert.Error(t, err)
}

func TestWriter_Errors(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)
	require.Equal(t, uint64(HeaderSize), w.Offset())

	// 0-sized key should be an error
	_, err = w.Write(nil, []byte("v"))
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = w.WriteTagged('=', []byte{}, []byte("v"))
	assert.ErrorIs(t, err, ErrEmptyKey)

	{
		origOff := w.off

		w.off = MaxOffset - 4
		_, err := w.Write([]byte("k"), []byte("v"))
		assert.ErrorIs(t, err, ErrTooLarge)
		err = w.Append(make([]byte, 8))
		assert.ErrorIs(t, err, ErrTooLarge)

		w.off = 0
		_, err = w.Write([]byte("k"), []byte("v"))
		assert.Error(t, err)

		w.off = origOff
	}

	// a short head table is rejected
	err = w.Finish(make([]byte, 12))
	assert.Error(t, err)

	// writes after finish are rejected, and finish is idempotent
	_, err = w.Write([]byte("k"), []byte("v"))
	assert.Error(t, err)
	assert.NoError(t, w.Finish(make([]byte, HeaderSize)))

	// nothing but the placeholder head table was written
	assert.Equal(t, HeaderSize, len(fileBytes.Bytes()))
	assert.Equal(t, uint64(0), w.Count())
}

func TestWriter_FinishDetachesSink(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)
	_, err = w.WriteTagged('=', []byte("k"), []byte("v"))
	require.NoError(t, err)

	head := make([]byte, HeaderSize)
	head[0] = 0xff
	require.NoError(t, w.Finish(head))
	n := len(fileBytes.Bytes())
	require.Equal(t, HeaderSize+RecordHeaderSize+3, n)
	require.Equal(t, byte(0xff), fileBytes.Bytes()[0])

	// the buffered writer no longer reaches the file
	_, _ = w.w.WriteString("stray")
	assert.ErrorIs(t, w.w.Flush(), io.EOF)
	assert.Equal(t, n, len(fileBytes.Bytes()))
}

func TestWriter_RoundTrip(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)

	var offsets []uint32
	for i := 0; i < 1000; i++ {
		k := []byte(strconv.FormatInt(int64(i), 10))
		v := make([]byte, 1+i%300)
		for j := 0; j < len(v); j++ {
			v[j] = byte(i % 256)
		}
		var off uint32
		if i%2 == 0 {
			off, err = w.WriteTagged('=', k, v)
		} else {
			off, err = w.Write(k, v)
		}
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	end := uint32(w.Offset())
	require.NoError(t, w.Append([]byte("trailer!")))

	header := make([]byte, HeaderSize)
	header[0] = 0xAB
	require.NoError(t, w.Finish(header))
	assert.Equal(t, uint64(1000), w.Count())

	contents := fileBytes.Bytes()
	assert.Equal(t, byte(0xAB), contents[0])
	assert.Equal(t, "trailer!", string(contents[end:]))

	i := 0
	it := NewIter(contents, 0, end)
	for item, err := it.Next(); err != io.EOF; item, err = it.Next() {
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(int64(i), 10), string(item.Key))
		assert.Equal(t, offsets[i], item.Offset)

		data := item.Data
		if i%2 == 0 {
			tag, ok := item.Tag()
			require.True(t, ok)
			require.Equal(t, byte('='), tag)
			data = data[1:]
		}
		require.Equal(t, 1+i%300, len(data))

		k2, d2, _, err := ReadAt(contents, item.Offset, end)
		require.NoError(t, err)
		require.Equal(t, item.Key, k2)
		require.Equal(t, item.Data, d2)
		i++
	}
	require.Equal(t, 1000, i)
}

func TestReadAt_Corrupt(t *testing.T) {
	var fileBytes safeBuffer
	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)
	off, err := w.WriteTagged('=', []byte("alice"), []byte("100"))
	require.NoError(t, err)
	end := uint32(w.Offset())
	require.NoError(t, w.Finish(make([]byte, HeaderSize)))
	contents := fileBytes.Bytes()

	for _, testcase := range []struct {
		name string
		pos  uint32
		end  uint32
		m    []byte
	}{
		{"inside head table", 16, end, contents},
		{"past end", end, end, contents},
		{"end beyond mapping", off, end + 1, contents},
		{"truncated body", off, end - 1, contents[:end-1]},
	} {
		t.Run(testcase.name, func(t *testing.T) {
			_, _, _, err := ReadAt(testcase.m, testcase.pos, testcase.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
		})
	}

	// a key length that overflows the stream is caught, not sliced
	bad := append([]byte(nil), contents...)
	PutHeader(bad[off:], 0xffffffff, 3)
	_, _, _, err = ReadAt(bad, off, end)
	assert.ErrorIs(t, err, ErrCorrupt)

	it := NewIter(bad, off, end)
	_, err = it.Next()
	assert.ErrorIs(t, err, ErrCorrupt)
}
