// Package shapes defines Shape, the compiler's description of a tensor
// buffer: an element type (DType), a list of dimensions and a list of
// strides, one per dimension.
//
// Strides are measured in elements, not bytes. A shape created with Make is
// "standard": its strides are the row-major products of the trailing
// dimensions. Views produced by transpose, slice or broadcast carry the same
// dimensions with rearranged (or zeroed) strides; the predicates Standard,
// Packed, Broadcasted and Transposed classify those forms.
//
// DType is the closed element-type enumeration from
// github.com/gomlx/gopjrt/dtypes.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape describes the buffer produced by an instruction: element type,
// dimensions and element strides.
//
// Use Make (row-major) or MakeWithStrides to create one. The zero value is
// invalid (Ok reports false) and is used by side-effect-only instructions.
type Shape struct {
	DType   dtypes.DType
	Dims    []int
	Strides []int
}

// Make returns a standard (row-major, packed) shape with the given
// dimensions. Dimensions must be non-negative; a zero dimension yields an
// empty buffer, which allocation planning treats as zero bytes.
func Make(dtype dtypes.DType, dims ...int) Shape {
	for _, dim := range dims {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s, %v): negative dimension", dtype, dims)
		}
	}
	return Shape{DType: dtype, Dims: slices.Clone(dims), Strides: RowMajorStrides(dims)}
}

// MakeWithStrides returns a shape with explicit strides. It panics if the
// number of strides differs from the number of dimensions.
func MakeWithStrides(dtype dtypes.DType, dims, strides []int) Shape {
	if len(dims) != len(strides) {
		exceptions.Panicf("shapes.MakeWithStrides(%s, %v, %v): %d dimensions but %d strides",
			dtype, dims, strides, len(dims), len(strides))
	}
	return Shape{DType: dtype, Dims: slices.Clone(dims), Strides: slices.Clone(strides)}
}

// RowMajorStrides returns the standard strides for the given dimensions:
// each axis strides over the product of the trailing dimensions.
func RowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}

// Ok returns whether this is a valid Shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dims) }

// IsScalar returns whether every dimension is 1 (a rank-0 shape is trivially
// scalar).
func (s Shape) IsScalar() bool {
	if !s.Ok() {
		return false
	}
	for _, dim := range s.Dims {
		if dim != 1 {
			return false
		}
	}
	return true
}

// Size returns the number of elements addressed by the shape, the product of
// its dimensions.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dims {
		size *= dim
	}
	return size
}

// ElementBytes returns the size in bytes of one element of the shape's DType.
func (s Shape) ElementBytes() int { return int(s.DType.Memory()) }

// Bytes returns the extent in bytes of the buffer the shape addresses. For
// standard shapes this is Size()*ElementBytes(); for strided views it is the
// span up to (and including) the highest addressed element, so a transposed
// view reports the same extent as its base.
func (s Shape) Bytes() int {
	if !s.Ok() || s.Size() == 0 {
		return 0
	}
	maxIndex := 0
	for axis, dim := range s.Dims {
		maxIndex += (dim - 1) * s.Strides[axis]
	}
	return (maxIndex + 1) * s.ElementBytes()
}

// Standard returns whether the strides are exactly the row-major products of
// the trailing dimensions.
func (s Shape) Standard() bool {
	return s.Ok() && slices.Equal(s.Strides, RowMajorStrides(s.Dims))
}

// Packed returns whether the elements cover the addressed span without holes,
// i.e. Bytes() == Size()*ElementBytes(). Standard shapes are packed; so are
// transposed views of standard shapes.
func (s Shape) Packed() bool {
	return s.Ok() && s.Bytes() == s.Size()*s.ElementBytes()
}

// Broadcasted returns whether some axis has stride 0, so that indices along
// it share storage.
func (s Shape) Broadcasted() bool {
	if !s.Ok() {
		return false
	}
	for _, stride := range s.Strides {
		if stride == 0 {
			return true
		}
	}
	return false
}

// Transposed returns whether the strides are not monotonically
// non-increasing, the signature of a permuted view.
func (s Shape) Transposed() bool {
	if !s.Ok() {
		return false
	}
	for axis := 1; axis < s.Rank(); axis++ {
		if s.Strides[axis-1] < s.Strides[axis] {
			return true
		}
	}
	return false
}

// Permute returns the view of s with dimensions and strides reordered so that
// axis i of the result is axis perm[i] of s.
func (s Shape) Permute(perm []int) (Shape, error) {
	if len(perm) != s.Rank() {
		return Shape{}, errors.Errorf("permutation %v does not cover all %d axes of %s", perm, s.Rank(), s)
	}
	seen := make([]bool, s.Rank())
	permuted := Shape{DType: s.DType, Dims: make([]int, s.Rank()), Strides: make([]int, s.Rank())}
	for axis, src := range perm {
		if src < 0 || src >= s.Rank() || seen[src] {
			return Shape{}, errors.Errorf("%v is not a permutation of the axes of %s", perm, s)
		}
		seen[src] = true
		permuted.Dims[axis] = s.Dims[src]
		permuted.Strides[axis] = s.Strides[src]
	}
	return permuted, nil
}

// Normalize returns the standard shape with the same DType and dimensions.
func (s Shape) Normalize() Shape { return Make(s.DType, s.Dims...) }

// Offset returns the element offset of the given multi-dimensional index.
func (s Shape) Offset(index []int) int {
	offset := 0
	for axis, i := range index {
		offset += i * s.Strides[axis]
	}
	return offset
}

// Equal compares dtype, dimensions and strides.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dims, s2.Dims) && slices.Equal(s.Strides, s2.Strides)
}

// EqualDims compares dtype and dimensions, ignoring strides.
func (s Shape) EqualDims(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dims, s2.Dims)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dims: slices.Clone(s.Dims), Strides: slices.Clone(s.Strides)}
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer. Standard shapes print as "(Float32)[2 3]";
// strided views append their strides, e.g. "(Float32)[3 2]@[1 3]".
func (s Shape) String() string {
	if !s.Ok() {
		return "(invalid)"
	}
	if s.Standard() {
		return fmt.Sprintf("(%s)%v", s.DType, s.Dims)
	}
	return fmt.Sprintf("(%s)%v@%v", s.DType, s.Dims, s.Strides)
}
