// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc

import "unsafe"

// Op is a binary, in-place reduction operator: it folds incoming into
// *acc. Must be associative and commutative; idempotence is not
// assumed. Collation applies Op shepherd-major, worker-minor over the
// scratch buffer in a fixed but otherwise unspecified order, so a
// non-commutative Op yields a deterministic-per-topology but not
// portably-specified result.
type Op[V any] func(acc *V, incoming V)

// reduction holds everything needed to fold per-worker contributions
// into a single result: the operator, the immutable seed value, the
// cache-line-aligned scratch buffer partitioned by (shepherd, worker),
// and the collated result. result is seeded to initial at construction
// and at every Reset, so a sinc created (or reset) with expect==0 — which
// never runs collate — still reports the correct value from Wait.
type reduction[V any] struct {
	op      Op[V]
	initial V
	result  V

	raw         []byte // backing store for values, kept alive by this reference
	values      []V    // flat buffer, S slabs of strideElems slots each, L-aligned base
	strideElems int    // per-shepherd slab size, in V-sized elements
	snap        snapshot
}

// newReduction allocates the per-worker scratch and seeds every slot
// (and result) with initial, mirroring the C original's
// ALIGNED_ALLOC + per-slot memcpy(initial_value) loop and its
// sizeof_shep_value_part = ceil(P*V/L)*L stride computation.
//
// The stride is rounded up to a whole number of cache lines so that two
// shepherds never share a line (false sharing across shepherd slabs);
// worker slots within a slab are packed contiguously, since workers
// sharing a shepherd are presumed to share a cache subsystem. This only
// holds if the slab array itself starts on a cache-line boundary, so
// the backing store is over-allocated and sliced at an aligned offset
// rather than handed to Go's ordinary element-aligned make([]V, n).
func newReduction[V any](snap snapshot, initial V, op Op[V]) *reduction[V] {
	strideElems := shepherdStride[V](snap)
	raw, values := alignedSlice[V](snap.shepherds*strideElems, snap.cacheLineBytes)

	r := &reduction[V]{
		op:          op,
		initial:     initial,
		raw:         raw,
		values:      values,
		strideElems: strideElems,
		snap:        snap,
	}
	r.resetSlots()
	return r
}

// shepherdStride computes the per-shepherd slab size in V-sized
// elements, rounded up from sizeof_shep_value_part = ceil(P*V/L)*L.
func shepherdStride[V any](snap snapshot) int {
	var zero V
	sizeofV := int(unsafe.Sizeof(zero))

	slabBytes := snap.workersPerShep * sizeofV
	lines := ceilDiv(slabBytes, snap.cacheLineBytes)
	strideBytes := lines * snap.cacheLineBytes
	strideElems := ceilDiv(strideBytes, sizeofV)
	if strideElems < snap.workersPerShep {
		strideElems = snap.workersPerShep
	}
	// When sizeof(V) does not divide L, grow the slab until its byte size
	// is again a whole number of cache lines.
	for sizeofV > 0 && snap.cacheLineBytes > 0 && (strideElems*sizeofV)%snap.cacheLineBytes != 0 {
		strideElems++
	}
	return strideElems
}

// alignedSlice allocates a []V of length count whose backing array
// begins on an align-byte boundary, the Go analogue of the C
// original's ALIGNED_ALLOC(cacheline, ...): it over-allocates a raw
// byte buffer and slices into it at the first aligned offset. The raw
// buffer is returned alongside values so the caller can keep it
// referenced — values already holds an interior pointer into raw's
// backing array, which is enough to keep it alive, but storing raw
// explicitly documents that dependency instead of relying on it
// implicitly.
func alignedSlice[V any](count, align int) (raw []byte, values []V) {
	var zero V
	sizeofV := int(unsafe.Sizeof(zero))
	raw = make([]byte, count*sizeofV+align)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	offset := (align - int(base%uintptr(align))) % align
	values = unsafe.Slice((*V)(unsafe.Pointer(&raw[offset])), count)
	return raw, values
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// resetSlots restores every worker slot, and the collated result, to
// the reduction's immutable initial value, per Reset's "equivalent to
// destroying and re-initializing but reuses buffers" contract. Also
// called from newReduction so a sinc whose first round completes with
// expect==0 (collate never runs) still has result==initial.
func (r *reduction[V]) resetSlots() {
	r.result = r.initial
	for s := 0; s < r.snap.shepherds; s++ {
		base := s * r.strideElems
		for w := 0; w < r.snap.workersPerShep; w++ {
			r.values[base+w] = r.initial
		}
	}
}

// slot returns the exclusive scratch slot owned by (shepherd, worker).
// No synchronization is required for reads/writes into it by that
// worker: no other worker addresses the same slot between successive
// reductions.
func (r *reduction[V]) slot(shepherd, worker int) *V {
	return &r.values[shepherd*r.strideElems+worker]
}

// collate folds every worker slot into result, seeded by initial. Runs
// exactly once per Armed->Complete transition, by the finalizing
// Submit, which has already acquired the release the final counter
// decrement carries — so every prior Op application into any slot is
// visible here.
func (r *reduction[V]) collate() {
	r.result = r.initial
	for s := 0; s < r.snap.shepherds; s++ {
		base := s * r.strideElems
		for w := 0; w < r.snap.workersPerShep; w++ {
			r.op(&r.result, r.values[base+w])
		}
	}
}
