/*
Package bitint provides bit manipulation functions optimized for
real-time audio processing. The package focuses on power-of-2
operations commonly needed in FFT sizing and bit-reversal tables.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) or O(bits) time
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Grow a capture buffer to the next power of 2
	bufferSize := bitint.NextPowerOfTwo(1000) // Returns 1024

	// Verify FFT window size is valid
	isValid := bitint.IsPowerOfTwo(windowSize)

	// Build one entry of a bit-reversal permutation
	rev := bitint.ReverseBits(i, bitint.Log2(windowSize))

----------------------------------------------------------------------

What NextPowerOfTwo does:

	The subtraction (size-1) is critical, without the subtraction,
	powers of 2 would be incorrectly doubled.

	WITH subtraction (correct):
	- For input 8 (already a power of 2):
	  size-1 = 7 (binary 0111)
	  bits.Len64(7) = 3
	  1 << 3 = 8

	WITHOUT subtraction (incorrect):
	- For input 8:
	  bits.Len64(8) = 4 (binary 1000)
	  1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return int(1 << bits.Len64(uint64(size-1)))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
//	-8     false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the number of bits needed to index a table of n entries,
// i.e. the exponent of the lowest set bit. For a power of two this is
// exactly log2(n). Returns -1 for n <= 0.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.TrailingZeros64(uint64(n))
}

// ReverseBits reverses the lowest numBits bits of index.
//
//	ReverseBits(1, 3) = 4   (001 -> 100)
//	ReverseBits(6, 3) = 3   (110 -> 011)
func ReverseBits(index, numBits int) int {
	if numBits <= 0 {
		return 0
	}
	return int(bits.Reverse64(uint64(index)) >> (64 - uint(numBits)))
}
