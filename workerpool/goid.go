// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the numeric id of the calling goroutine, parsed
// from the header line of its own runtime stack trace ("goroutine N
// [running]:"). Go has no true thread-local storage; this is the
// standard fallback technique for recovering a stable per-goroutine
// identity, used here only to resolve which persistent (shepherd,
// worker) slot a dispatched closure is currently executing on — never
// on sinc's own hot path.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	idx := bytes.IndexByte(b, ' ')
	if idx < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(b[:idx]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
