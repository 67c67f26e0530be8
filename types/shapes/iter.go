package shapes

import "iter"

// Iter ranges over the shape's index space in row-major logical order,
// yielding for each element its logical position (0, 1, 2, …) and its
// physical element offset per the strides. Compute kernels use it to read
// transposed or sliced views without materializing them.
func (s Shape) Iter() iter.Seq2[int, int] {
	return func(yield func(logical, offset int) bool) {
		if !s.Ok() || s.Size() == 0 {
			return
		}
		index := make([]int, s.Rank())
		offset := 0
		for logical := 0; ; logical++ {
			if !yield(logical, offset) {
				return
			}
			axis := s.Rank() - 1
			for ; axis >= 0; axis-- {
				index[axis]++
				offset += s.Strides[axis]
				if index[axis] < s.Dims[axis] {
					break
				}
				offset -= index[axis] * s.Strides[axis]
				index[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}
