// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
)

// latch is a re-armable full-empty release word: a single-producer,
// broadcast-consumer edge trigger. One goroutine calls fill, any number
// may block in readFF or poll with isFull. Re-arming (empty) is
// caller-serialized by contract — the sinc only calls it while the
// counter is externally known to be zero.
//
// Modeled as a closed channel rather than a condition variable:
// fill closes the current channel, broadcasting to every blocked and
// every future readFF until the next empty. empty swaps in a fresh,
// unclosed channel so readers already unblocked on the old (closed)
// channel are unaffected by a concurrent re-arm.
type latch struct {
	full atomix.Uint32 // 0 = empty, 1 = full; mirrors which ch is current
	mu   sync.Mutex
	ch   chan struct{}
}

func newLatch(startFull bool) *latch {
	l := &latch{ch: make(chan struct{})}
	if startFull {
		close(l.ch)
		l.full.StoreRelease(1)
	}
	return l
}

// fill releases all current and future waiters until the next empty.
// Idempotent.
func (l *latch) fill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full.LoadAcquire() == 1 {
		return
	}
	close(l.ch)
	l.full.StoreRelease(1)
}

// empty re-arms the latch. Idempotent. A reader blocked on (or that has
// already observed) the previous closed channel is unaffected: it holds
// a reference to the old channel value, which stays closed forever.
func (l *latch) empty() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full.LoadAcquire() == 0 {
		return
	}
	l.ch = make(chan struct{})
	l.full.StoreRelease(0)
}

// readFF blocks until the latch is full, then returns nil. Non-consuming:
// the latch remains full and subsequent readFF calls return immediately,
// until the next empty. Returns ctx.Err() if ctx is done first.
func (l *latch) readFF(ctx context.Context) error {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isFull is a non-blocking peek at the latch state.
func (l *latch) isFull() bool {
	return l.full.LoadAcquire() == 1
}
