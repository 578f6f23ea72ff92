// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workerpool is a small persistent shepherd/worker pool that
// implements sinc.Topology for tests, examples, and the sincdemo
// command. It is a default, in-process stand-in for the many-core
// user-level task runtime sinc's own spec treats as an external
// collaborator — not a general-purpose scheduler.
package workerpool

import (
	"log/slog"
	"runtime"
	"sync"

	"code.hybscloud.com/iox"
)

// cacheLineBytes is the assumed cache line size; sinc rounds its
// reduction scratch stride up to a multiple of this.
const cacheLineBytes = 64

// workerKey identifies one goroutine slot of the pool.
type workerKey struct {
	shepherd int
	worker   int
}

// Pool is a persistent pool of shepherd/worker goroutines. Workers are
// spawned once at creation and reused across many sinc rounds, the way
// code.hybscloud.com/lfq's worker-pool examples reuse a queue across
// many enqueue/dequeue cycles instead of spawning per call.
//
// Each worker owns a dedicated dispatch channel (buffered, capacity 4)
// rather than sharing one pool-wide channel, since a dispatch must land
// on a specific (shepherd, worker) slot, not an arbitrary idle one.
type Pool struct {
	shepherds      int
	workersPerShep int

	slots     []chan func()
	closeOnce sync.Once
	wg        sync.WaitGroup

	registry sync.Map // goroutine id (int64) -> workerKey

	log *slog.Logger
}

// New spawns shepherds*workersPerShepherd persistent goroutines. If
// shepherds <= 0, it defaults to 1; if workersPerShepherd <= 0, it
// divides runtime.GOMAXPROCS(0) evenly across shepherds (at least 1
// worker per shepherd).
func New(shepherds, workersPerShepherd int) *Pool {
	if shepherds <= 0 {
		shepherds = 1
	}
	if workersPerShepherd <= 0 {
		workersPerShepherd = runtime.GOMAXPROCS(0) / shepherds
		if workersPerShepherd <= 0 {
			workersPerShepherd = 1
		}
	}

	p := &Pool{
		shepherds:      shepherds,
		workersPerShep: workersPerShepherd,
		slots:          make([]chan func(), shepherds*workersPerShepherd),
		log:            slog.Default().With("component", "workerpool"),
	}

	for s := 0; s < shepherds; s++ {
		for w := 0; w < workersPerShepherd; w++ {
			idx := s*workersPerShepherd + w
			p.slots[idx] = make(chan func(), 4)
			p.wg.Add(1)
			go p.run(workerKey{shepherd: s, worker: w}, p.slots[idx])
		}
	}

	p.log.Info("pool started", "shepherds", shepherds, "workers_per_shepherd", workersPerShepherd)
	return p
}

// run is the persistent goroutine body for one (shepherd, worker) slot.
// It registers its own goroutine id against key once, then executes
// whatever closures arrive on its dedicated channel until closed —
// so sinc.Topology's CurrentShepherd/CurrentWorker, which look the
// calling goroutine's id up in that registry, are stable for the entire
// lifetime of any closure dispatched here.
func (p *Pool) run(key workerKey, in chan func()) {
	defer p.wg.Done()
	p.registry.Store(goroutineID(), key)
	for fn := range in {
		fn()
	}
}

// Go dispatches fn to run on the specific (shepherd, worker) slot.
// Blocks with adaptive backoff if that worker's dispatch buffer is
// momentarily full, mirroring the retry pattern
// code.hybscloud.com/lfq documents for queue backpressure.
func (p *Pool) Go(shepherd, worker int, fn func()) {
	in := p.slots[shepherd*p.workersPerShep+worker]
	backoff := iox.Backoff{}
	for {
		select {
		case in <- fn:
			return
		default:
			backoff.Wait()
		}
	}
}

// Topology returns a sinc.Topology view of the pool. Its
// CurrentShepherd/CurrentWorker resolve correctly only when called from
// inside a closure dispatched via Go.
func (p *Pool) Topology() Topology {
	return Topology{p: p}
}

// Close stops all workers once their dispatch channels drain and waits
// for them to exit. Safe to call multiple times. Not safe to call
// concurrently with Go.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, ch := range p.slots {
			close(ch)
		}
		p.wg.Wait()
		p.log.Info("pool stopped")
	})
}
