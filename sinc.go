// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc

import (
	"context"
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Sinc is a termination-detecting counter plus an optional reduction
// buffer and release latch. Zero value is not usable; construct with
// [New] or [NewBarrier].
//
// A Sinc moves through Fresh -> Armed -> Complete -> Armed -> ... ->
// Destroyed. WillSpawn and Submit may be called concurrently from any
// number of goroutines; Init (via New/NewBarrier), Reset, Fini, and
// Destroy are caller-serialized.
type Sinc[V any] struct {
	_       pad
	counter atomix.Uint64 // outstanding participants; FAA only
	_       pad
	ready   *latch
	_       pad
	rdata   *reduction[V] // nil iff this is a barrier-only sinc
	topo    Topology
}

// pad is cache line padding to prevent false sharing between the
// counter, the latch, and the reduction pointer.
type pad [64]byte

// New creates a reduction sinc: value size V>0 (any non-empty Go type),
// seeded with initial, folding contributions with op, expecting expect
// participants.
//
// Precondition: op must be non-nil and associative-commutative over V.
func New[V any](topo Topology, initial V, op Op[V], expect uint64) *Sinc[V] {
	if op == nil {
		panic(fmt.Errorf("sinc: %w: op must not be nil", ErrArityMismatch))
	}
	snap := snapshotFor(topo)
	s := &Sinc[V]{
		rdata: newReduction(snap, initial, op),
		topo:  topo,
	}
	s.arm(expect)
	return s
}

// NewBarrier creates a barrier-only sinc: no reduction descriptor is
// allocated, and Submit must be called with no value. Corresponds to
// spec's V==0 mode, expressed in Go as the absence of a reduction
// rather than a zero byte count.
func NewBarrier(topo Topology, expect uint64) *Sinc[struct{}] {
	snapshotFor(topo) // populate/validate topology even though V==0 needs no scratch
	s := &Sinc[struct{}]{topo: topo}
	s.arm(expect)
	return s
}

// arm sets the counter absolutely and the latch to match, per Init/Reset's
// shared rule: R empty if expect>0, else R full.
func (s *Sinc[V]) arm(expect uint64) {
	s.counter.StoreRelease(expect)
	s.ready = newLatch(expect == 0)
}

// Reset rearms a completed sinc for a new round, reusing its scratch
// buffer. Precondition: the outstanding participant count must be zero
// (the prior round must have completed). Restores every worker slot to
// the reduction's initial value.
func (s *Sinc[V]) Reset(expect uint64) {
	if s.counter.LoadAcquire() != 0 {
		panic(fmt.Errorf("sinc: %w", ErrInvalidReset))
	}
	if s.rdata != nil {
		s.rdata.resetSlots()
	}
	s.arm(expect)
}

// WillSpawn announces that n new participants will later call Submit,
// atomically growing the outstanding count by n. If the sinc had
// already completed (counter was 0), this also rearms the release
// latch as part of the same logical step.
//
// Safe to call concurrently with other WillSpawn and Submit calls.
func (s *Sinc[V]) WillSpawn(n uint64) {
	if n == 0 {
		return
	}
	if s.counter.AddAcqRel(n)-n == 0 {
		s.ready.empty()
	}
}

// TmpData returns the pointer to the calling worker's exclusive scratch
// slot, or nil for a barrier-only sinc. The returned pointer is owned
// exclusively by the calling (shepherd, worker) pair until the next
// Reset: no synchronization is required to read or write through it.
func (s *Sinc[V]) TmpData() *V {
	if s.rdata == nil {
		return nil
	}
	shep, worker := s.topo.CurrentShepherd(), s.topo.CurrentWorker()
	return s.rdata.slot(shep, worker)
}

// decrementDelta is -1 encoded as the two's-complement uint64 AddAcqRel
// expects, so the single fetch-and-subtract the spec calls for is one
// atomic FAA rather than a CAS retry loop: wraparound arithmetic makes
// an already-zero counter wrap to the maximum uint64 exactly the way
// the C original's qthread_incr(&counter, -1) does on an aligned_t.
const decrementDelta = ^uint64(0)

// Submit folds value into the calling worker's scratch slot (if value
// is non-nil) and decrements the outstanding participant count. The
// caller whose decrement drives the count from 1 to 0 is the unique
// finalizer: it runs collation and releases all waiters, inline, before
// Submit returns.
//
// Precondition: the outstanding count must be greater than zero when
// Submit is called — over-submission panics with [ErrOverSubmit].
func (s *Sinc[V]) Submit(value *V) {
	if value != nil {
		if s.rdata == nil {
			panic(fmt.Errorf("sinc: %w: submit with value on a barrier sinc", ErrArityMismatch))
		}
		shep, worker := s.topo.CurrentShepherd(), s.topo.CurrentWorker()
		slot := s.rdata.slot(shep, worker)
		s.rdata.op(slot, *value)
	}

	// The AcqRel ordering here is the sole synchronization edge between
	// this submitter's slot write above and the finalizer's read of
	// that slot during collation, whichever goroutine the finalizer is.
	next := s.counter.AddAcqRel(decrementDelta)
	prev := next + 1
	if prev == 0 {
		panic(fmt.Errorf("sinc: %w", ErrOverSubmit))
	}
	if prev == 1 {
		s.collateAndRelease()
	}
}

// collateAndRelease runs exactly once per Armed->Complete transition,
// invoked by the unique finalizing Submit. It folds every worker's
// scratch slot into the reduction result (seeded by initial) and then
// fills the release latch, unblocking every current and future waiter
// until the next WillSpawn/Reset rearms it.
func (s *Sinc[V]) collateAndRelease() {
	if s.rdata != nil {
		s.rdata.collate()
	}
	s.ready.fill()
}

// Wait blocks until the sinc completes, then returns the collated
// result. For a barrier-only sinc the returned value is always the
// zero value of V and should be ignored. Non-consuming: additional
// waiters, including ones that call Wait after completion, return
// immediately with the same result.
func (s *Sinc[V]) Wait(ctx context.Context) (V, error) {
	var zero V
	if err := s.ready.readFF(ctx); err != nil {
		return zero, err
	}
	if s.rdata == nil {
		return zero, nil
	}
	return s.rdata.result, nil
}

// TryWait reports whether the sinc has completed without blocking.
func (s *Sinc[V]) TryWait() bool {
	return s.ready.isFull()
}

// SpinWait busy-polls for completion instead of blocking on the release
// latch's channel, then returns the collated result. Intended for
// user-level task runtimes where a worker cannot afford to block its
// carrier OS thread: unlike Wait, SpinWait never parks the calling
// goroutine, at the cost of burning CPU while the sinc is outstanding.
// Returns ctx.Err() if ctx is done before completion.
func (s *Sinc[V]) SpinWait(ctx context.Context) (V, error) {
	var zero V
	sw := spin.Wait{}
	for !s.ready.isFull() {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		sw.Once()
	}
	if s.rdata == nil {
		return zero, nil
	}
	return s.rdata.result, nil
}

// Fini releases the sinc's owned reduction scratch, if any. The Sinc
// value itself is not freed (Go does not require an explicit free for
// heap-owned structs); Fini exists for parity with the C original's
// qt_sinc_fini and for releasing the scratch buffer early.
//
// Not safe to call while another goroutine is still inside Wait or
// Submit on the same sinc — see the package doc's Destroy Safety note.
func (s *Sinc[V]) Fini() {
	s.rdata = nil
}

// Destroy is an alias for Fini, for parity with the C original's
// qt_sinc_create/qt_sinc_destroy pairing. Go's garbage collector frees
// the Sinc value itself once unreferenced.
func (s *Sinc[V]) Destroy() {
	s.Fini()
}
