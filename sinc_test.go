// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc_test

import (
	"context"
	"sync"
	"testing"

	"code.hybscloud.com/sinc"
	"code.hybscloud.com/sinc/workerpool"
)

// =============================================================================
// Concrete scenarios (spec section 8)
// =============================================================================

// TestScenarioSumOf1To100 is scenario 1: V=8, initial=0, op=sum,
// expect=100, submitters submit their own index. Expected result 5050.
func TestScenarioSumOf1To100(t *testing.T) {
	pool := workerpool.New(2, 4)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.New[int64](topo, 0, func(acc *int64, v int64) { *acc += v }, 100)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		v := int64(i)
		pool.Go(i%2, (i/2)%4, func() {
			defer wg.Done()
			s.Submit(&v)
		})
	}
	wg.Wait()

	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 5050 {
		t.Fatalf("result: got %d, want 5050", result)
	}
}

// TestScenarioMaxOverNegatives is scenario 2: V=4 signed,
// initial=INT32_MIN, op=max, values {-7,-3,-11,-3,-2}, expect=5.
// Expected result -2.
func TestScenarioMaxOverNegatives(t *testing.T) {
	pool := workerpool.New(1, 5)
	defer pool.Close()
	topo := pool.Topology()

	const minInt32 = -1 << 31
	s := sinc.New[int32](topo, minInt32, func(acc *int32, v int32) {
		if v > *acc {
			*acc = v
		}
	}, 5)

	values := []int32{-7, -3, -11, -3, -2}
	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		v := v
		pool.Go(0, i, func() {
			defer wg.Done()
			s.Submit(&v)
		})
	}
	wg.Wait()

	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != -2 {
		t.Fatalf("result: got %d, want -2", result)
	}
}

// TestScenarioPureBarrier is scenario 3: V=0, expect=1000, 1000
// participants call Submit(nil). Wait returns; no result copy.
func TestScenarioPureBarrier(t *testing.T) {
	pool := workerpool.New(4, 4)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.NewBarrier(topo, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		pool.Go(i%4, (i/4)%4, func() {
			defer wg.Done()
			s.Submit(nil)
		})
	}
	wg.Wait()

	if _, err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// TestScenarioFanOutFanInWithWillSpawn is scenario 4: init(expect=0);
// thread A calls willspawn(10), spawns 10 tasks each submitting 1
// (int32 sum, initial=0); wait returns 10.
func TestScenarioFanOutFanInWithWillSpawn(t *testing.T) {
	pool := workerpool.New(2, 5)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.New[int32](topo, 0, func(acc *int32, v int32) { *acc += v }, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	pool.Go(0, 0, func() {
		defer wg.Done()
		s.WillSpawn(10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			pool.Go(i%2, i%5, func() {
				defer wg.Done()
				v := int32(1)
				s.Submit(&v)
			})
		}
	})
	wg.Wait()

	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 10 {
		t.Fatalf("result: got %d, want 10", result)
	}
}

// TestScenarioResetAndReuse is scenario 5: after scenario 1 completes,
// reset(expect=50), submit 1..50, wait. Expected result 1275.
func TestScenarioResetAndReuse(t *testing.T) {
	pool := workerpool.New(2, 4)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.New[int64](topo, 0, func(acc *int64, v int64) { *acc += v }, 100)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		v := int64(i)
		pool.Go(i%2, (i/2)%4, func() {
			defer wg.Done()
			s.Submit(&v)
		})
	}
	wg.Wait()
	if result, err := s.Wait(context.Background()); err != nil || result != 5050 {
		t.Fatalf("first round: result=%d err=%v", result, err)
	}

	s.Reset(50)
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		v := int64(i)
		pool.Go(i%2, (i/2)%4, func() {
			defer wg.Done()
			s.Submit(&v)
		})
	}
	wg.Wait()

	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 1275 {
		t.Fatalf("result: got %d, want 1275", result)
	}
}

// TestScenarioMultiWaiter is scenario 6: scenario 1, but 8 threads call
// wait before the last submit; after completion all 8 observe
// result=5050.
func TestScenarioMultiWaiter(t *testing.T) {
	pool := workerpool.New(2, 4)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.New[int64](topo, 0, func(acc *int64, v int64) { *acc += v }, 100)

	results := make([]int64, 8)
	errs := make([]error, 8)
	var waiters sync.WaitGroup
	for i := range results {
		waiters.Add(1)
		go func(idx int) {
			defer waiters.Done()
			results[idx], errs[idx] = s.Wait(context.Background())
		}(i)
	}

	var submitters sync.WaitGroup
	for i := 1; i <= 100; i++ {
		submitters.Add(1)
		v := int64(i)
		pool.Go(i%2, (i/2)%4, func() {
			defer submitters.Done()
			s.Submit(&v)
		})
	}
	submitters.Wait()
	waiters.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if results[i] != 5050 {
			t.Fatalf("waiter %d: got %d, want 5050", i, results[i])
		}
	}
}

// =============================================================================
// Boundary behaviors (spec section 8)
// =============================================================================

func TestExpectZeroCompletesImmediately(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Close()

	s := sinc.New[int64](pool.Topology(), 42, func(acc *int64, v int64) { *acc += v }, 0)
	if !s.TryWait() {
		t.Fatal("expect=0 sinc should already be complete")
	}
	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 42 {
		t.Fatalf("result: got %d, want initial value 42", result)
	}
}

func TestSingleShepherdSingleWorker(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Close()
	topo := pool.Topology()

	s := sinc.New[int64](topo, 0, func(acc *int64, v int64) { *acc += v }, 3)
	var wg sync.WaitGroup
	for i := int64(1); i <= 3; i++ {
		wg.Add(1)
		v := i
		pool.Go(0, 0, func() {
			defer wg.Done()
			s.Submit(&v)
		})
	}
	wg.Wait()

	result, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 6 {
		t.Fatalf("result: got %d, want 6", result)
	}
}

// =============================================================================
// Precondition violations (spec section 7)
// =============================================================================

func TestOverSubmitPanics(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Close()

	s := sinc.NewBarrier(pool.Topology(), 0)
	if !s.TryWait() {
		t.Fatal("expect=0 barrier should already be complete")
	}

	done := make(chan struct{})
	pool.Go(0, 0, func() {
		defer close(done)
		defer func() {
			if r := recover(); r == nil {
				t.Error("Submit on a completed sinc should panic")
			}
		}()
		s.Submit(nil)
	})
	<-done
}

func TestResetWithOutstandingParticipantsPanics(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Close()

	s := sinc.NewBarrier(pool.Topology(), 1)
	defer func() {
		if r := recover(); r == nil {
			t.Error("Reset with C>0 should panic")
		}
	}()
	s.Reset(5)
}

func TestSubmitValueOnBarrierPanics(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Close()

	s := sinc.NewBarrier(pool.Topology(), 1)
	done := make(chan struct{})
	pool.Go(0, 0, func() {
		defer close(done)
		defer func() {
			if r := recover(); r == nil {
				t.Error("Submit with a value on a barrier sinc should panic")
			}
		}()
		var v struct{}
		s.Submit(&v)
	})
	<-done
}

func TestNonIntegralTopologyPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("a topology whose workers do not divide evenly should panic")
		}
	}()
	sinc.NewBarrier(fixedTopology{shepherds: 3, workers: 10}, 0)
}

// fixedTopology is a minimal sinc.Topology for precondition tests that
// do not need a real worker pool.
type fixedTopology struct {
	shepherds, workers int
}

func (f fixedTopology) TotalShepherds() int  { return f.shepherds }
func (f fixedTopology) TotalWorkers() int    { return f.workers }
func (f fixedTopology) CurrentShepherd() int { return 0 }
func (f fixedTopology) CurrentWorker() int   { return 0 }
func (f fixedTopology) CacheLineBytes() int  { return 64 }
