package bitmap

import (
	"math/bits"
)

// A Bitmap256 is a set of byte values, stored as a 256-bit bitmap.
//
// Radix tree nodes use it as a child index: bit b is set iff the node has a
// child whose edge label starts with byte b, and CountLess(b) gives the
// position of that child in the node's sorted child slice. A fixed-size array
// avoids the slice header and the extra indirection on every lookup.
type Bitmap256 struct {
	words [4]uint64
}

// Set the bit for b.
func (v *Bitmap256) Set(b uint8) {
	v.words[b>>6] |= 1 << (b & 63)
}

// Clear the bit for b.
func (v *Bitmap256) Clear(b uint8) {
	v.words[b>>6] &^= 1 << (b & 63)
}

// Get returns whether the bit for b is set.
func (v *Bitmap256) Get(b uint8) bool {
	return (v.words[b>>6]>>(b&63))&1 == 1
}

// Empty returns true if no bits are set.
func (v *Bitmap256) Empty() bool {
	return v.words[0]|v.words[1]|v.words[2]|v.words[3] == 0
}

// Count returns the number of set bits.
func (v *Bitmap256) Count() int {
	return bits.OnesCount64(v.words[0]) +
		bits.OnesCount64(v.words[1]) +
		bits.OnesCount64(v.words[2]) +
		bits.OnesCount64(v.words[3])
}

// CountLess returns the number of set bits strictly below b. For a set bit,
// this is its rank (zero-based) among all set bits.
func (v *Bitmap256) CountLess(b uint8) int {
	index := int(b >> 6)
	mask := (uint64(1) << (b & 63)) - 1
	count := bits.OnesCount64(v.words[index] & mask)

	switch index {
	case 3:
		count += bits.OnesCount64(v.words[2])
		fallthrough
	case 2:
		count += bits.OnesCount64(v.words[1])
		fallthrough
	case 1:
		count += bits.OnesCount64(v.words[0])
	}
	return count
}
