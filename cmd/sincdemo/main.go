// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command sincdemo fans a configurable number of participants out over
// a workerpool.Pool and collates their contributions through a sinc,
// printing the result. It exists to exercise code.hybscloud.com/sinc
// end to end outside of the test suite, in the spirit of the original
// qthreads test/time_febs.c harness.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"code.hybscloud.com/sinc"
	"code.hybscloud.com/sinc/workerpool"
)

func main() {
	shepherds := flag.Int("shepherds", 2, "number of shepherds")
	workersPerShep := flag.Int("workers-per-shepherd", 4, "workers per shepherd")
	participants := flag.Int("participants", 100, "number of submitting participants")
	mode := flag.String("mode", "sum", "reduction mode: sum|max|barrier")
	flag.Parse()

	if *participants <= 0 {
		fmt.Fprintln(os.Stderr, "error: -participants must be positive")
		os.Exit(1)
	}

	pool := workerpool.New(*shepherds, *workersPerShep)
	defer pool.Close()
	topo := pool.Topology()

	log := slog.Default().With("mode", *mode, "participants", *participants)

	switch *mode {
	case "sum":
		runSum(pool, topo, *participants, log)
	case "max":
		runMax(pool, topo, *participants, log)
	case "barrier":
		runBarrier(pool, topo, *participants, log)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown mode %q (want sum|max|barrier)\n", *mode)
		os.Exit(1)
	}
}

func runSum(pool *workerpool.Pool, topo workerpool.Topology, n int, log *slog.Logger) {
	s := sinc.New[int64](topo, 0, func(acc *int64, v int64) { *acc += v }, uint64(n))
	dispatchAll(pool, n, func(i int) {
		v := int64(i + 1)
		s.Submit(&v)
	})
	result, err := s.Wait(context.Background())
	if err != nil {
		log.Error("wait failed", "err", err)
		os.Exit(1)
	}
	log.Info("collated", "result", result)
}

func runMax(pool *workerpool.Pool, topo workerpool.Topology, n int, log *slog.Logger) {
	const minInt32 = -1 << 31
	s := sinc.New[int32](topo, minInt32, func(acc *int32, v int32) {
		if v > *acc {
			*acc = v
		}
	}, uint64(n))
	dispatchAll(pool, n, func(i int) {
		v := int32(i) - int32(n/2)
		s.Submit(&v)
	})
	result, err := s.Wait(context.Background())
	if err != nil {
		log.Error("wait failed", "err", err)
		os.Exit(1)
	}
	log.Info("collated", "result", result)
}

func runBarrier(pool *workerpool.Pool, topo workerpool.Topology, n int, log *slog.Logger) {
	s := sinc.NewBarrier(topo, uint64(n))
	dispatchAll(pool, n, func(i int) {
		s.Submit(nil)
	})
	if _, err := s.Wait(context.Background()); err != nil {
		log.Error("wait failed", "err", err)
		os.Exit(1)
	}
	log.Info("all participants reported in")
}

// dispatchAll round-robins n participants across the pool's worker
// slots so each submit runs with a stable (shepherd, worker) identity.
func dispatchAll(pool *workerpool.Pool, n int, fn func(i int)) {
	shepherds, workersPerShep := pool.Topology().TotalShepherds(), pool.Topology().TotalWorkers()/pool.Topology().TotalShepherds()
	for i := 0; i < n; i++ {
		slot := i % (shepherds * workersPerShep)
		shep, worker := slot/workersPerShep, slot%workersPerShep
		idx := i
		pool.Go(shep, worker, func() { fn(idx) })
	}
}
