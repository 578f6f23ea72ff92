// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc

import (
	"fmt"
	"sync"
)

// Topology is the host runtime contract a sinc consumes to place its
// per-worker reduction scratch. Implementations supply process-lifetime
// constants (shepherd/worker counts, cache line size) plus the calling
// goroutine's current shepherd/worker identity.
//
// Package workerpool provides a default implementation backed by a
// persistent goroutine pool.
type Topology interface {
	// TotalShepherds returns S, the number of locality domains.
	TotalShepherds() int
	// TotalWorkers returns W, the total number of worker contexts.
	TotalWorkers() int
	// CurrentShepherd returns the calling context's shepherd id in [0, S).
	CurrentShepherd() int
	// CurrentWorker returns the calling context's worker id in [0, P),
	// local to its shepherd.
	CurrentWorker() int
	// CacheLineBytes returns L, the cache line size in bytes. Must be a
	// power of two.
	CacheLineBytes() int
}

// snapshot is the process-lifetime topology constants cached on first
// sinc creation against a given Topology, per spec: "populated lazily;
// first caller wins; subsequent init calls must observe the same values."
type snapshot struct {
	shepherds        int
	workers          int
	workersPerShep   int
	cacheLineBytes   int
}

var snapshotCache sync.Map // Topology -> snapshot

// snapshotFor returns the cached topology snapshot for t, computing and
// storing it on first use. Concurrent callers racing to populate the
// same Topology all observe one of the (identical) computed snapshots.
func snapshotFor(t Topology) snapshot {
	if v, ok := snapshotCache.Load(t); ok {
		return v.(snapshot)
	}

	s, w := t.TotalShepherds(), t.TotalWorkers()
	if s <= 0 || w <= 0 {
		panic(fmt.Errorf("sinc: %w: shepherds=%d workers=%d", ErrNonIntegralTopology, s, w))
	}
	if w%s != 0 {
		panic(fmt.Errorf("sinc: %w: %d workers does not divide evenly over %d shepherds", ErrNonIntegralTopology, w, s))
	}

	snap := snapshot{
		shepherds:      s,
		workers:        w,
		workersPerShep: w / s,
		cacheLineBytes: t.CacheLineBytes(),
	}
	actual, _ := snapshotCache.LoadOrStore(t, snap)
	return actual.(snapshot)
}
