// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sinc

import "errors"

// Precondition errors. A sinc treats all of the following as programmer
// error: they indicate a caller violated the API contract, not a
// transient or retryable condition, and the constructors and operations
// that can raise them do so via panic(fmt.Errorf("sinc: %w", ...)) so a
// recovering caller can still classify the cause with errors.Is.
var (
	// ErrArityMismatch indicates V and initial/op disagree on presence:
	// a zero value size must pair with a nil initial and nil op, and a
	// non-zero value size must pair with both present.
	ErrArityMismatch = errors.New("sinc: value size and initial/op presence disagree")

	// ErrOverSubmit indicates Submit was called when the outstanding
	// participant count had already reached zero.
	ErrOverSubmit = errors.New("sinc: submit called with no outstanding participants")

	// ErrInvalidReset indicates Reset was called while participants were
	// still outstanding (counter != 0).
	ErrInvalidReset = errors.New("sinc: reset called with participants still outstanding")

	// ErrNonIntegralTopology indicates the host runtime's worker count
	// does not divide evenly by its shepherd count.
	ErrNonIntegralTopology = errors.New("sinc: total workers does not divide evenly across shepherds")
)

// IsPrecondition reports whether err is one of this package's
// precondition sentinels, for callers that recover from a sinc panic.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrArityMismatch) ||
		errors.Is(err, ErrOverSubmit) ||
		errors.Is(err, ErrInvalidReset) ||
		errors.Is(err, ErrNonIntegralTopology)
}
