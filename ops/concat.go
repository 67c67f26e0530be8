package ops

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Concat joins its inputs along one axis. Inputs may be strided views; the
// output is standard. Dimensions must agree on every axis but the
// concatenation axis.
type Concat struct {
	Axis int
}

func (op Concat) Name() string { return "concat" }

func (op Concat) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).HasAtLeast(1).SameDType().SameRank()
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	first := inputs[0]
	if op.Axis < 0 || op.Axis >= first.Rank() {
		return shapes.Shape{}, c.fail("axis %d out of range for rank %d", op.Axis, first.Rank()).Err()
	}
	dims := make([]int, first.Rank())
	copy(dims, first.Dims)
	for _, s := range inputs[1:] {
		for axis, dim := range s.Dims {
			if axis == op.Axis {
				continue
			}
			if dim != first.Dims[axis] {
				return shapes.Shape{}, c.fail("inputs %s and %s differ outside axis %d", first, s, op.Axis).Err()
			}
		}
		dims[op.Axis] += s.Dims[op.Axis]
	}
	return shapes.Make(first.DType, dims...), nil
}

func (op Concat) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	out := ir.NewArgument(output)
	elem := output.ElementBytes()
	dst := out.Data()
	axisStart := 0
	for _, arg := range args {
		in := arg.Shape()
		src := arg.Data()
		index := make([]int, in.Rank())
		for logical, offset := range in.Iter() {
			// Decompose the logical position into the input's index space.
			rest := logical
			for axis := in.Rank() - 1; axis >= 0; axis-- {
				index[axis] = rest % in.Dims[axis]
				rest /= in.Dims[axis]
			}
			index[op.Axis] += axisStart
			at := output.Offset(index) * elem
			copy(dst[at:at+elem], src[offset*elem:(offset+1)*elem])
			index[op.Axis] -= axisStart
		}
		axisStart += in.Dims[op.Axis]
	}
	return out, nil
}

func (op Concat) Reflect(visit ir.FieldVisitor) {
	visit("axis", op.Axis)
}
