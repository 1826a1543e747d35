// Package nativeid maps opaque string notification IDs to the small positive
// integer IDs the native alarm subsystem requires.
//
// The algorithm is a DJB2 variant and is a cross-platform contract: the native
// side independently recomputes the same mapping from the same string ID, so
// the arithmetic here must stay bit-for-bit identical. Do not modify.
package nativeid

import "unicode/utf16"

// MaxID is the upper bound of the mapped range; results fall in [1, MaxID].
const MaxID = 2147483646

// FromString hashes id into a stable positive 31-bit integer.
//
// Accumulator starts at 5381; each UTF-16 code unit is folded in as
// (h*33) XOR unit using 32-bit signed wraparound, then the result is
// abs(h) mod MaxID plus one so zero is never produced.
func FromString(id string) int32 {
	h := int32(5381)
	for _, u := range utf16.Encode([]rune(id)) {
		h = ((h << 5) + h) ^ int32(u)
	}
	a := int64(h)
	if a < 0 {
		a = -a
	}
	return int32(a%MaxID) + 1
}
