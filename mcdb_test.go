// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/mcdb/internal/testdata"
)

// memSink is an in-memory Sink.
type memSink struct {
	mu  sync.Mutex
	buf []byte
}

func (s *memSink) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *memSink) WriteAt(p []byte, off int64) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(off)+len(p) > len(s.buf) {
		return 0, errors.New("writeAt out of bounds")
	}
	return copy(s.buf[off:int(off)+len(p)], p), nil
}

func (s *memSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// buildDB builds a database in memory with add and opens a view over it.
func buildDB(t testing.TB, add func(b *Builder)) *DB {
	var sink memSink
	b, err := Start(&sink)
	require.NoError(t, err)
	add(b)
	require.NoError(t, b.Finish())

	db, err := FromBytes(sink.Bytes())
	require.NoError(t, err)
	return db
}

// buildFile builds dir/id.mcdb with add.
func buildFile(t testing.TB, dir, id string, add func(b *Builder)) string {
	path := filepath.Join(dir, id+Ext)
	b, err := NewBuilder(path)
	require.NoError(t, err)
	add(b)
	require.NoError(t, b.Finish())
	return path
}

var (
	benchDB      *DB
	benchDBOnce  sync.Once
	benchHashmap map[string]string
	benchEntries []testdata.Pair
)

func loadBenchDB() {
	dir, err := os.MkdirTemp("", "mcdb-bench")
	if err != nil {
		panic(err)
	}
	dataPath := filepath.Join(dir, "bench.txt")
	f, err := os.Create(dataPath)
	if err != nil {
		panic(err)
	}
	if err := testdata.Write(f, 100000, 7); err != nil {
		panic(err)
	}
	_ = f.Close()

	var expected map[string]string
	benchDB, expected, err = openTestFile(dataPath, filepath.Join(dir, "bench.mcdb"))
	if err != nil {
		panic(err)
	}

	benchHashmap = make(map[string]string)
	benchEntries = make([]testdata.Pair, 0, len(expected))
	for k, v := range expected {
		benchEntries = append(benchEntries, testdata.Pair{Key: k, Value: v})
		// attempt to ensure the hashmap doesn't share memory with our test oracle
		benchHashmap[string([]byte(k))] = string([]byte(v))
	}
}

// openTestFile builds a database at dbPath from the key:value lines in
// path, and returns it along with the pairs it should contain.
func openTestFile(path, dbPath string) (*DB, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	builder, err := NewBuilder(dbPath, WithSync(SyncNone))
	if err != nil {
		return nil, nil, err
	}

	known := make(map[string]string)

	s := bufio.NewScanner(bufio.NewReaderSize(f, 16*1024))
	for s.Scan() {
		line := s.Bytes()
		k, v, ok := bytes.Cut(line, []byte{':'})
		if !ok {
			return nil, nil, errors.New("input file unexpected shape")
		}
		if err := builder.AddTagged(TagDefault, k, v); err != nil {
			return nil, nil, err
		}
		known[string(k)] = string(v)
	}
	if err := s.Err(); err != nil {
		return nil, nil, err
	}

	if err := builder.Finish(); err != nil {
		return nil, nil, err
	}

	reg := NewRegistry(func(string) (string, error) { return dbPath, nil })
	m, err := reg.Acquire("test")
	if err != nil {
		return nil, nil, err
	}
	// the reference is held for the life of the test binary
	return m.DB(), known, nil
}

func testFile(t testing.TB, path string) {
	db, known, err := openTestFile(path, filepath.Join(t.TempDir(), "test.mcdb"))
	require.NoError(t, err)

	for k, expected := range known {
		v, err := db.GetString(k, TagDefault)
		require.NoError(t, err)
		require.Equal(t, expected, string(v))
	}

	for _, negative := range []string{
		"", "doesn't exist",
	} {
		// we shouldn't find keys that don't exist
		v, err := db.GetString(negative, TagDefault)
		require.ErrorIs(t, err, ErrNotFound)
		require.Nil(t, v)
	}
}

func TestTableSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testdata.small")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, testdata.Write(f, 5000, 1))
	require.NoError(t, f.Close())

	testFile(t, path)
}

func TestTableLarge(t *testing.T) {
	dataFile := "testdata.large"
	if _, err := os.Stat(dataFile); err != nil {
		t.Skip("testdata.large doesn't exist, skipping large test")
		return
	}
	testFile(t, dataFile)
}

func BenchmarkTable(b *testing.B) {
	benchDBOnce.Do(loadBenchDB)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % len(benchEntries)
		entry := benchEntries[j]
		value, err := benchDB.GetString(entry.Key, TagDefault)
		if err != nil || string(value) != entry.Value {
			b.Fatal("bad data or lookup")
		}
	}
}

func BenchmarkHashmap(b *testing.B) {
	benchDBOnce.Do(loadBenchDB)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % len(benchEntries)
		entry := benchEntries[j]
		value, ok := benchHashmap[entry.Key]
		if !ok || value != entry.Value {
			b.Fatal("bad data or lookup")
		}
	}
}
