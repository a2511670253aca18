// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bpowers/mcdb/internal/mmap"
)

// Ext is the file extension DirResolver appends to identities.
const Ext = ".mcdb"

var errRegistryClosed = errors.New("registry closed")

// Resolver maps a database identity to the path of its file.
type Resolver func(id string) (string, error)

// DirResolver resolves identity "passwd" to dir/passwd.mcdb.  Identities
// must be plain file names.
func DirResolver(dir string) Resolver {
	return func(id string) (string, error) {
		if id == "" || id == "." || id == ".." || strings.ContainsRune(id, filepath.Separator) {
			return "", fmt.Errorf("invalid database name %q", id)
		}
		return filepath.Join(dir, id+Ext), nil
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	logger        *slog.Logger
	metrics       Metrics
	staleInterval time.Duration
}

// WithRegistryLogger sets an optional logger for mapping lifecycle events.
// If not provided, no logging output will be produced.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(opts *registryOptions) {
		opts.logger = logger
	}
}

// WithMetrics reports registry activity to m.
func WithMetrics(m Metrics) RegistryOption {
	return func(opts *registryOptions) {
		opts.metrics = m
	}
}

// WithStaleCheck makes Acquire re-stat a mapped file at most once per
// interval.  When the file was replaced (different device, inode, size or
// modification time) the old mapping is detached and the new file is
// mapped; holders of the old mapping keep reading the old bytes until
// they release it.  Without this option a mapped file is never
// re-examined.
func WithStaleCheck(interval time.Duration) RegistryOption {
	return func(opts *registryOptions) {
		opts.staleInterval = interval
	}
}

type slot struct {
	ptr atomic.Pointer[Mapping]
}

// Registry shares mappings between goroutines.  Each identity maps to at
// most one live Mapping at a time: concurrent first acquirers create it
// exactly once, later acquirers only bump its refcount, and it is
// unmapped when the last reference is released.
type Registry struct {
	resolve       Resolver
	logger        *slog.Logger
	metrics       Metrics
	staleInterval time.Duration

	slots  sync.Map // string -> *slot
	mu     sync.Mutex
	closed atomic.Bool
}

// NewRegistry returns a Registry that finds files with resolve.
func NewRegistry(resolve Resolver, opts ...RegistryOption) *Registry {
	var options registryOptions
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	options.metrics = nopMetrics{}
	for _, opt := range opts {
		opt(&options)
	}
	return &Registry{
		resolve:       resolve,
		logger:        options.logger,
		metrics:       options.metrics,
		staleInterval: options.staleInterval,
	}
}

func (r *Registry) slot(id string) *slot {
	if s, ok := r.slots.Load(id); ok {
		return s.(*slot)
	}
	s, _ := r.slots.LoadOrStore(id, new(slot))
	return s.(*slot)
}

// Acquire returns a reference to the database named id, mapping it if no
// live mapping exists.  Failures to open or map the file match
// ErrUnavailable; a corrupt file additionally matches ErrCorrupt.
func (r *Registry) Acquire(id string) (*Mapping, error) {
	if r.closed.Load() {
		r.metrics.ObserveAcquireError(id)
		return nil, &unavailableError{id: id, err: errRegistryClosed}
	}
	s := r.slot(id)
	if m := s.ptr.Load(); m != nil && !r.checkDue(m) && m.Retain() {
		r.metrics.ObserveAcquire(id, true)
		return m, nil
	}
	return r.acquireSlow(id, s)
}

func (r *Registry) acquireSlow(id string, s *slot) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		r.metrics.ObserveAcquireError(id)
		return nil, &unavailableError{id: id, err: errRegistryClosed}
	}

	// someone else may have mapped it while we waited for the lock
	if m := s.ptr.Load(); m != nil {
		if r.checkDue(m) && r.isStale(m) {
			s.ptr.CompareAndSwap(m, nil)
		} else if m.Retain() {
			r.metrics.ObserveAcquire(id, true)
			return m, nil
		}
	}

	m, err := r.open(id, s)
	if err != nil {
		r.metrics.ObserveAcquireError(id)
		return nil, err
	}
	// a mapping whose count already hit zero may still be in the slot;
	// its Release will fail to swap it out of the slot, which is fine
	s.ptr.Store(m)
	r.metrics.ObserveAcquire(id, false)
	return m, nil
}

func (r *Registry) checkDue(m *Mapping) bool {
	if r.staleInterval <= 0 {
		return false
	}
	return time.Now().UnixNano()-m.checked.Load() >= int64(r.staleInterval)
}

func (r *Registry) isStale(m *Mapping) bool {
	m.checked.Store(time.Now().UnixNano())
	id, err := mmap.Stat(m.path)
	if err == nil && id == m.r.ID() {
		return false
	}
	r.logger.Info("database file replaced; detaching mapping", "id", m.id, "path", m.path, "stat_err", err)
	r.metrics.ObserveStale(m.id)
	return true
}

func (r *Registry) open(id string, s *slot) (*Mapping, error) {
	path, err := r.resolve(id)
	if err != nil {
		return nil, &unavailableError{id: id, err: err}
	}

	start := time.Now()
	mr, err := mmap.Open(path)
	if err != nil {
		return nil, &unavailableError{id: id, err: &IOError{Op: "mmap", Path: path, Err: err}}
	}
	db, err := FromBytes(mr.Data())
	if err != nil {
		_ = mr.Close()
		return nil, &unavailableError{id: id, err: fmt.Errorf("%s: %w", path, err)}
	}

	m := &Mapping{
		id:   id,
		path: path,
		r:    mr,
		size: mr.Len(),
		db:   db,
		slot: s,
		reg:  r,
	}
	m.refs.Store(1)
	m.checked.Store(start.UnixNano())

	elapsed := time.Since(start)
	r.logger.Debug("mapped database", "id", id, "path", path, "bytes", mr.Len(), "duration", elapsed)
	r.metrics.ObserveMap(id, mr.Len(), elapsed)
	return m, nil
}

// Release drops a reference obtained from Acquire.
func (r *Registry) Release(m *Mapping) error {
	return m.Release()
}

// With acquires id, calls f with its database and releases it.  The DB
// and anything sliced from it must not be used after f returns.
func (r *Registry) With(id string, f func(db *DB) error) error {
	m, err := r.Acquire(id)
	if err != nil {
		return err
	}
	ferr := f(m.DB())
	if err := m.Release(); err != nil && ferr == nil {
		return err
	}
	return ferr
}

// MappingInfo describes a live mapping.
type MappingInfo struct {
	ID    string
	Path  string
	Bytes int
	Refs  int64
}

// Mapped lists the live mappings, sorted by identity.
func (r *Registry) Mapped() []MappingInfo {
	var infos []MappingInfo
	r.slots.Range(func(key, value any) bool {
		if m := value.(*slot).ptr.Load(); m != nil {
			if refs := m.Refs(); refs > 0 {
				infos = append(infos, MappingInfo{ID: m.id, Path: m.path, Bytes: m.size, Refs: refs})
			}
		}
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Close detaches every mapping.  Mappings still held stay valid until
// their holders release them; Acquire fails afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed.Store(true)
	r.slots.Range(func(key, value any) bool {
		value.(*slot).ptr.Store(nil)
		return true
	})
	return nil
}
