package vector

import (
	"fmt"
	"math"

	"github.com/annidx/annidx/pkg/annerr"
)

// These kernels are written for auto-vectorization: contiguous element
// layout, a single accumulator, no branch inside the loop body. Distance
// dispatches L2 to L2Distance, so index comparisons pay the sqrt;
// SquaredL2Distance is a standalone kernel that neither engine calls.

// L2Distance computes Euclidean distance: sqrt(Σ(a_i-b_i)²).
func L2Distance(a, b Vector) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	return float32(math.Sqrt(float64(squaredL2(a, b)))), nil
}

// SquaredL2Distance computes Σ(a_i-b_i)² without the sqrt. Monotone with
// L2Distance. Distance(L2, ...) does not route through it.
func SquaredL2Distance(a, b Vector) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	return squaredL2(a, b), nil
}

func squaredL2(a, b Vector) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// InnerProduct computes Σ a_i·b_i.
func InnerProduct(a, b Vector) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// InnerProductDistance returns the negative inner product, so that
// ascending order equals most-similar-first.
func InnerProductDistance(a, b Vector) (float32, error) {
	ip, err := InnerProduct(a, b)
	if err != nil {
		return 0, err
	}
	return -ip, nil
}

// NormL2 returns the Euclidean norm of v.
func NormL2(v Vector) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// CosineDistance computes 1 - (a·b)/(‖a‖·‖b‖). When either operand is the
// zero vector the result is NaN; the caller is responsible for
// sorting NaN distances last.
func CosineDistance(a, b Vector) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return float32(math.NaN()), nil
	}
	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1 - sim, nil
}

// L1Distance computes Σ|a_i-b_i|. Has no index support in this core;
// callers that try to build an L1 index get ErrUnsupported from the
// index package, not from here.
func L1Distance(a, b Vector) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum, nil
}

// Distance dispatches to the kernel named by kind. Used by the index
// engines, which store the kind as metadata rather than a function value
// so the comparison loop stays monomorphic.
func Distance(kind DistanceKind, a, b Vector) (float32, error) {
	switch kind {
	case L2:
		return L2Distance(a, b)
	case Inner:
		return InnerProductDistance(a, b)
	case Cosine:
		return CosineDistance(a, b)
	case L1:
		return L1Distance(a, b)
	default:
		return 0, fmt.Errorf("%w: unknown distance kind %d", annerr.ErrBadInput, kind)
	}
}

// IndexableDistance reports whether kind can back an index. L1 exists as
// a standalone function but has no index support in this core.
func IndexableDistance(kind DistanceKind) bool {
	return kind == L2 || kind == Inner || kind == Cosine
}

// IsNaN32 is the float32 analogue of math.IsNaN, used by both index
// engines' comparators so a NaN (cosine-with-zero-vector) distance is
// treated as greater than every finite distance and sorts last.
func IsNaN32(f float32) bool {
	return f != f
}

// LessDistance orders two distances ascending with NaN sorting last.
func LessDistance(a, b float32) bool {
	if IsNaN32(a) {
		return false
	}
	if IsNaN32(b) {
		return true
	}
	return a < b
}
