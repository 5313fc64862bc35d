package vector

import (
	"fmt"
	"math/bits"

	"github.com/annidx/annidx/pkg/annerr"
)

// BitVector is a packed binary quantization of a Vector: one bit per
// element, set when the element is >= 0. It mirrors pgvector's bit type
// and is a standalone helper: neither index engine calls Binarize or
// HammingDistance.
type BitVector struct {
	bits []uint64
	dims int
}

// Binarize packs v into a BitVector, one bit per dimension.
func Binarize(v Vector) BitVector {
	words := (len(v) + 63) / 64
	bv := BitVector{bits: make([]uint64, words), dims: len(v)}
	for i, x := range v {
		if x >= 0 {
			bv.bits[i/64] |= 1 << uint(i%64)
		}
	}
	return bv
}

// Dims returns the number of dimensions the bit vector was built from.
func (b BitVector) Dims() int { return b.dims }

// HammingDistance counts differing bits between two BitVectors of equal
// dimension.
func HammingDistance(a, b BitVector) (int, error) {
	if a.dims != b.dims {
		return 0, fmt.Errorf("%w: %d vs %d", annerr.ErrDimensionMismatch, a.dims, b.dims)
	}
	var total int
	for i := range a.bits {
		total += bits.OnesCount64(a.bits[i] ^ b.bits[i])
	}
	return total, nil
}
