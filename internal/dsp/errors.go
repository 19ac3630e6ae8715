// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"

	"consolefft/pkg/bitint"
)

var (
	// ErrInvalidSize is returned when a transform length is not a power of
	// two or a buffer does not match the plan size.
	ErrInvalidSize = errors.New("invalid transform size")

	// ErrDegenerateWindow is returned when a window table sums to zero or to
	// a non-finite value, which would turn every normalised magnitude into
	// NaN or Inf.
	ErrDegenerateWindow = errors.New("degenerate window")

	// ErrUnsupported is returned by operations the complex type does not
	// implement, such as fractional or complex exponents.
	ErrUnsupported = errors.New("unsupported operation")
)

func validateSize(n int) error {
	if !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("%w: %d is not a power of two", ErrInvalidSize, n)
	}
	return nil
}

func validateBuffers(n, in, out int) error {
	if in != n || out != n {
		return fmt.Errorf("%w: plan size %d, input %d, output %d", ErrInvalidSize, n, in, out)
	}
	return nil
}
