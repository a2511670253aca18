// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mcdb

import "time"

// Metrics receives events from Registries and Builders.  The metrics
// package provides a Prometheus implementation.
type Metrics interface {
	// ObserveAcquire is called for every successful Acquire.  shared is
	// true when an existing mapping was reused.
	ObserveAcquire(id string, shared bool)
	ObserveAcquireError(id string)
	ObserveMap(id string, bytes int, d time.Duration)
	ObserveUnmap(id string, bytes int)
	// ObserveStale is called when a mapping is detached because the file
	// behind it was replaced.
	ObserveStale(id string)
	ObserveBuild(records, bytes uint64, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAcquire(string, bool) {}
func (nopMetrics) ObserveAcquireError(string) {}
func (nopMetrics) ObserveMap(string, int, time.Duration) {}
func (nopMetrics) ObserveUnmap(string, int) {}
func (nopMetrics) ObserveStale(string) {}
func (nopMetrics) ObserveBuild(uint64, uint64, time.Duration) {}
