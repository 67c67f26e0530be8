package transforms

import (
	"sort"

	"github.com/graphyx/graphyx/types/shapes"
)

// reorderDims applies a permutation to a dimension (or permutation) list:
// result[i] = dims[permutation[i]].
func reorderDims(dims, permutation []int) []int {
	result := make([]int, len(dims))
	for i, src := range permutation {
		result[i] = dims[src]
	}
	return result
}

// isNoTranspose reports whether the permutation is the identity.
func isNoTranspose(perm []int) bool {
	for i, p := range perm {
		if p != i {
			return false
		}
	}
	return true
}

// invertPermutation returns the permutation q with q[perm[i]] = i.
func invertPermutation(perm []int) []int {
	inverse := make([]int, len(perm))
	for i, p := range perm {
		inverse[p] = i
	}
	return inverse
}

// findPermutation returns the permutation that sorts the shape's strides in
// decreasing order, i.e. the permutation that restores a transposed view to
// standard layout. Ties keep the lower axis first.
func findPermutation(s shapes.Shape) []int {
	perm := make([]int, s.Rank())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return s.Strides[perm[a]] > s.Strides[perm[b]]
	})
	return perm
}

// iota returns [0, 1, …, n).
func iota(n int) []int {
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}
