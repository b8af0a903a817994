// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT buffers.

Both functions are O(1), allocation free and safe to call from hot loops.

	n := bitint.NextPowerOfTwo(44100) // 65536
	ok := bitint.IsPowerOfTwo(2048)   // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
//
// size-1 keeps exact powers of two unchanged: bits.Len(7) = 3 gives 8, where
// bits.Len(8) would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has exactly one bit set, so clearing the lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
