// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/mcdb"
)

func TestCollector(t *testing.T) {
	c := New(nil)
	require.NotNil(t, c.Registry())

	c.ObserveMap("passwd", 4096, time.Millisecond)
	c.ObserveAcquire("passwd", false)
	c.ObserveAcquire("passwd", true)
	c.ObserveAcquire("passwd", true)
	c.ObserveAcquireError("group")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.AcquiresTotal.WithLabelValues("passwd", ResultMapped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.AcquiresTotal.WithLabelValues("passwd", ResultShared)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AcquiresTotal.WithLabelValues("group", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mappings.WithLabelValues("passwd")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(c.MappedBytes.WithLabelValues("passwd")))

	c.ObserveUnmap("passwd", 4096)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Mappings.WithLabelValues("passwd")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.MappedBytes.WithLabelValues("passwd")))

	c.ObserveStale("passwd")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StaleDetachesTotal.WithLabelValues("passwd")))

	c.ObserveBuild(10, 2048, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BuildsTotal))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.BuildRecords))
	assert.Equal(t, 2048.0, testutil.ToFloat64(c.BuildBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(c.BuildDuration))
}

func TestCollector_WithRegistry(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	b, err := mcdb.NewBuilder(filepath.Join(dir, "hosts"+mcdb.Ext), mcdb.WithBuilderMetrics(c))
	require.NoError(t, err)
	require.NoError(t, b.AddTagged(mcdb.TagDefault, []byte("localhost"), []byte("127.0.0.1")))
	require.NoError(t, b.Finish())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BuildRecords))

	reg := mcdb.NewRegistry(mcdb.DirResolver(dir), mcdb.WithMetrics(c))
	m1, err := reg.Acquire("hosts")
	require.NoError(t, err)
	m2, err := reg.Acquire("hosts")
	require.NoError(t, err)
	_, err = reg.Acquire("networks")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mappings.WithLabelValues("hosts")))
	assert.Equal(t, float64(b.Stats().Bytes), testutil.ToFloat64(c.MappedBytes.WithLabelValues("hosts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AcquiresTotal.WithLabelValues("hosts", ResultShared)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AcquiresTotal.WithLabelValues("networks", ResultError)))

	require.NoError(t, m1.Release())
	require.NoError(t, m2.Release())
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Mappings.WithLabelValues("hosts")))

	n, err := testutil.GatherAndCount(c.Registry(), "mcdb_acquires_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
