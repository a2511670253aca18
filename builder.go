// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bpowers/mcdb/internal/datafile"
	"github.com/bpowers/mcdb/internal/hash"
	"github.com/bpowers/mcdb/internal/index"
)

// Sink receives a database as it is built.  Records are streamed with
// Write; the head table is back-filled with WriteAt at offset 0 by Finish.
// It is usually an *os.File.
type Sink interface {
	io.Writer
	io.WriterAt
}

// SyncPolicy controls how Finish makes the database durable.
type SyncPolicy int

const (
	// SyncNone leaves flushing to the operating system.
	SyncNone SyncPolicy = iota
	// SyncData syncs file contents but not metadata (fdatasync).
	SyncData
	// SyncFull syncs contents and metadata (fsync).
	SyncFull
)

func (p SyncPolicy) String() string {
	switch p {
	case SyncNone:
		return "none"
	case SyncData:
		return "data"
	case SyncFull:
		return "full"
	default:
		return fmt.Sprintf("SyncPolicy(%d)", int(p))
	}
}

// ParseSyncPolicy is the inverse of SyncPolicy.String.
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch s {
	case "none", "":
		return SyncNone, nil
	case "data":
		return SyncData, nil
	case "full":
		return SyncFull, nil
	}
	return SyncNone, fmt.Errorf("unknown sync policy %q", s)
}

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	logger  *slog.Logger
	sync    *SyncPolicy
	metrics Metrics
}

// WithBuilderLogger sets an optional logger for the builder to use for progress updates.
// If not provided, no logging output will be produced.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(opts *builderOptions) {
		opts.logger = logger
	}
}

// WithSync sets the durability policy applied by Finish.  Builders
// created with Start default to SyncNone, those created with NewBuilder
// to SyncFull.
func WithSync(policy SyncPolicy) BuilderOption {
	return func(opts *builderOptions) {
		opts.sync = &policy
	}
}

// WithBuilderMetrics reports finished builds to m.
func WithBuilderMetrics(m Metrics) BuilderOption {
	return func(opts *builderOptions) {
		opts.metrics = m
	}
}

// BuildStats summarizes a finished database.
type BuildStats struct {
	Records       uint64
	Bytes         uint64
	Slots         uint64
	LongestBucket uint32
	MaxProbe      uint32
}

// Builder constructs a database from key/value pairs in two passes:
// records are streamed to the sink as they are added, and Finish appends
// the slot tables and back-fills the head table.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	sink      Sink
	w         *datafile.Writer
	idx       index.Builder
	policy    SyncPolicy
	logger    *slog.Logger
	metrics   Metrics
	started   time.Time
	stats     BuildStats
	finished  bool
	err       error
	tmpFile   *os.File // non-nil for builders created by NewBuilder
	finalPath string
}

func newBuilderOptions(defaultSync SyncPolicy, opts []BuilderOption) builderOptions {
	var options builderOptions
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}
	if options.sync == nil {
		options.sync = &defaultSync
	}
	return options
}

// Start begins building a database into sink, which must be empty.
func Start(sink Sink, opts ...BuilderOption) (*Builder, error) {
	options := newBuilderOptions(SyncNone, opts)
	return start(sink, "", options)
}

func start(sink Sink, path string, options builderOptions) (*Builder, error) {
	w, err := datafile.NewWriter(sink)
	if err != nil {
		return nil, &IOError{Op: "write head table", Path: path, Err: err}
	}
	return &Builder{
		sink:    sink,
		w:       w,
		policy:  *options.sync,
		logger:  options.logger,
		metrics: options.metrics,
		started: time.Now(),
	}, nil
}

// NewBuilder creates a Builder that writes to a temporary file next to
// path, and atomically renames it to path on Finish.  The result is
// read-only.
func NewBuilder(path string, opts ...BuilderOption) (*Builder, error) {
	options := newBuilderOptions(SyncFull, opts)

	// we want to write to a new file and do an atomic rename when we're done on disk
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "mcdb-builder.*.data")
	if err != nil {
		return nil, &IOError{Op: "create temp file", Path: dir, Err: err}
	}

	b, err := start(f, path, options)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	b.tmpFile = f
	b.finalPath = path
	return b, nil
}

// Add appends a record whose data region is exactly value.  The first
// byte of value is the record's tag.  Duplicate keys are allowed.
func (b *Builder) Add(key, value []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	pos, err := b.w.Write(key, value)
	return b.added(key, pos, err)
}

// AddTagged appends a record with the given tag and value.  Keyed
// lookups for (key, tag) return value.
func (b *Builder) AddTagged(tag byte, key, value []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	pos, err := b.w.WriteTagged(tag, key, value)
	return b.added(key, pos, err)
}

func (b *Builder) check() error {
	if b.finished {
		return ErrBuilderFinished
	}
	return b.err
}

func (b *Builder) added(key []byte, pos uint32, err error) error {
	if err != nil {
		if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrTooLarge) {
			// nothing was written; the builder is still usable
			return err
		}
		b.err = &IOError{Op: "write record", Path: b.name(), Err: err}
		return b.err
	}
	b.idx.Add(hash.Sum(key), pos)
	return nil
}

func (b *Builder) name() string {
	if b.tmpFile != nil {
		return b.tmpFile.Name()
	}
	return ""
}

// Finish writes the slot tables and head table, syncs according to the
// SyncPolicy and, for builders created with NewBuilder, renames the file
// into place.  The builder cannot be used afterwards.
func (b *Builder) Finish() error {
	if b.finished {
		return ErrBuilderFinished
	}
	if b.err != nil {
		return b.err
	}
	b.finished = true

	base := b.w.Offset()
	head, st, err := b.idx.Write(b.w, base, b.logger)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return err
		}
		return &IOError{Op: "write slot tables", Path: b.name(), Err: err}
	}
	if err := b.w.Finish(head.Bytes()); err != nil {
		return &IOError{Op: "write head table", Path: b.name(), Err: err}
	}

	if err := b.sync(); err != nil {
		return err
	}

	b.stats = BuildStats{
		Records:       st.Records,
		Bytes:         b.w.Offset(),
		Slots:         st.Slots,
		LongestBucket: st.LongestBucket,
		MaxProbe:      st.MaxProbe,
	}

	if b.tmpFile != nil {
		if err := b.install(); err != nil {
			return err
		}
	}

	elapsed := time.Since(b.started)
	b.logger.Info("finished database",
		"path", b.finalPath,
		"records", b.stats.Records,
		"bytes", b.stats.Bytes,
		"records_end", base,
		"duration", elapsed)
	if b.metrics != nil {
		b.metrics.ObserveBuild(b.stats.Records, b.stats.Bytes, elapsed)
	}

	return nil
}

func (b *Builder) sync() error {
	var err error
	switch b.policy {
	case SyncNone:
		return nil
	case SyncData:
		if f, ok := b.sink.(*os.File); ok {
			err = unix.Fdatasync(int(f.Fd()))
			break
		}
		err = syncSink(b.sink)
	case SyncFull:
		err = syncSink(b.sink)
	}
	if err != nil {
		return &IOError{Op: "sync", Path: b.name(), Err: err}
	}
	return nil
}

func syncSink(sink Sink) error {
	if s, ok := sink.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

func (b *Builder) install() error {
	f := b.tmpFile
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: f.Name(), Err: err}
	}
	// make the file read-only
	if err := os.Chmod(f.Name(), 0444); err != nil {
		return &IOError{Op: "chmod", Path: f.Name(), Err: err}
	}
	if err := os.Rename(f.Name(), b.finalPath); err != nil {
		return &IOError{Op: "rename", Path: b.finalPath, Err: err}
	}
	b.tmpFile = nil
	return nil
}

// Abort stops a build.  For builders created with NewBuilder the
// temporary file is removed; the destination path is left untouched.
func (b *Builder) Abort() error {
	b.finished = true
	if b.tmpFile == nil {
		return nil
	}
	f := b.tmpFile
	b.tmpFile = nil
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "remove", Path: f.Name(), Err: err}
	}
	return nil
}

// Stats describes the database written by Finish.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Len is the number of records added so far.
func (b *Builder) Len() uint64 {
	return b.idx.Len()
}
