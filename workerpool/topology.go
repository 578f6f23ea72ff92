// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool

// Topology adapts a Pool to code.hybscloud.com/sinc's Topology
// interface. It is comparable (a struct holding only a pointer), so it
// can key sinc's process-lifetime topology snapshot cache.
type Topology struct {
	p *Pool
}

// TotalShepherds returns the pool's shepherd count.
func (t Topology) TotalShepherds() int { return t.p.shepherds }

// TotalWorkers returns the pool's total worker count.
func (t Topology) TotalWorkers() int { return t.p.shepherds * t.p.workersPerShep }

// CurrentShepherd returns the shepherd id of the calling goroutine.
// Panics if called from a goroutine the pool did not spawn.
func (t Topology) CurrentShepherd() int {
	return t.p.currentKey().shepherd
}

// CurrentWorker returns the worker id, local to its shepherd, of the
// calling goroutine. Panics if called from a goroutine the pool did
// not spawn.
func (t Topology) CurrentWorker() int {
	return t.p.currentKey().worker
}

// CacheLineBytes returns the assumed cache line size in bytes.
func (t Topology) CacheLineBytes() int { return cacheLineBytes }

// currentKey resolves the calling goroutine's (shepherd, worker)
// identity via the pool's registry, populated once by each worker's
// run loop.
func (p *Pool) currentKey() workerKey {
	v, ok := p.registry.Load(goroutineID())
	if !ok {
		panic("workerpool: called from a goroutine outside the pool")
	}
	return v.(workerKey)
}
