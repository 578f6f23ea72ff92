// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sinc provides a scalable termination-detecting reduction barrier.
//
// A sinc coordinates the completion of a fan-out of worker tasks whose
// final count is not known in advance, optionally folding each task's
// contribution into a single reduced result. It answers two coupled
// questions: have all expected participants reported in, and what is
// the combined value of their contributions.
//
// # Quick Start
//
// Barrier-only (no reduction):
//
//	s := sinc.NewBarrier(topo, 1000)
//	for range 1000 {
//	    go func() {
//	        // ... do work ...
//	        s.Submit(nil)
//	    }()
//	}
//	s.Wait(context.Background())
//
// Reduction (sum example). A Submit with a value folds it into the
// scratch slot of the calling worker as reported by the Topology, so it
// runs on a worker context, here a workerpool.Pool slot:
//
//	pool := workerpool.New(2, 4)
//	defer pool.Close()
//	s := sinc.New[int64](pool.Topology(), 0, func(acc *int64, v int64) { *acc += v }, 100)
//	for i := 1; i <= 100; i++ {
//	    v := int64(i)
//	    pool.Go(i%2, (i/2)%4, func() { s.Submit(&v) })
//	}
//	result, _ := s.Wait(context.Background())
//	fmt.Println(result) // 5050
//
// # Topology
//
// A sinc's per-worker scratch layout depends on the host runtime's
// notion of shepherds (locality domains, typically one per NUMA node or
// core group) and workers (execution contexts within a shepherd). The
// host runtime is consumed through the [Topology] interface; this
// package does not implement a task scheduler itself. See package
// workerpool for a small persistent goroutine pool that implements
// [Topology] for tests, examples, and the sincdemo command.
//
// # Fan-out Before Spawn Count Is Known
//
// [Sinc.WillSpawn] lets a producer grow the expected participant count
// after creation, for fan-out patterns where the final number of
// participants is discovered incrementally:
//
//	s := sinc.NewBarrier(topo, 0)
//	go func() {
//	    n := discoverWorkload()
//	    s.WillSpawn(n)
//	    for range n {
//	        go func() { s.Submit(nil) }()
//	    }
//	}()
//	s.Wait(context.Background())
//
// # Reset and Reuse
//
// A completed sinc (all participants submitted) can be rearmed with
// [Sinc.Reset] once its counter has reached zero, reusing the same
// scratch buffer for a new round:
//
//	s.Reset(50)
//	// ... 50 more submits ...
//	result, _ := s.Wait(context.Background())
//
// # Memory Ordering
//
// The only synchronization edge between submitters and the finalizing
// submit is the release/acquire pair on the atomic counter decrement:
// every write a worker makes into its own scratch slot happens-before
// the finalizer's read of that slot during collation. No ordering is
// promised among concurrent submitters themselves.
//
// # Operator Contract
//
// The reduction operator passed to [New] must be associative and
// commutative; idempotence is not required. Collation iterates
// shepherd-major, worker-minor over the scratch buffer in a fixed but
// otherwise unspecified order, so a non-commutative operator yields a
// deterministic-per-topology but not portably-specified result.
//
// # Destroy Safety
//
// [Sinc.Destroy] is not safe to call concurrently with other waiters
// still inside [Sinc.Wait]: with many waiters and few cores, the first
// waiter to unblock may destroy the sinc while others are still
// dereferencing it. Callers needing multiple independent waiters to
// survive a destroy must add their own join point (e.g. a
// sync.WaitGroup around the waiters) before destroying.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering and [code.hybscloud.com/spin] for CPU
// pause instructions in [Sinc.SpinWait]'s busy-poll, the same
// foundation code.hybscloud.com/lfq builds on.
package sinc
