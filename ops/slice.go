package ops

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Slice restricts the listed axes to [start, end) windows. The result is a
// view: same strides, shifted base, so it is generally not packed.
type Slice struct {
	Axes   []int
	Starts []int
	Ends   []int
}

func (op Slice) Name() string { return "slice" }

func (op Slice) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(1)
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	in := inputs[0]
	if len(op.Axes) != len(op.Starts) || len(op.Axes) != len(op.Ends) {
		return shapes.Shape{}, c.fail("axes, starts and ends must have the same length").Err()
	}
	dims := make([]int, in.Rank())
	copy(dims, in.Dims)
	for i, axis := range op.Axes {
		if axis < 0 || axis >= in.Rank() {
			return shapes.Shape{}, c.fail("axis %d out of range for %s", axis, in).Err()
		}
		if op.Starts[i] < 0 || op.Starts[i] >= op.Ends[i] || op.Ends[i] > in.Dims[axis] {
			return shapes.Shape{}, c.fail("window [%d, %d) invalid for axis %d of %s",
				op.Starts[i], op.Ends[i], axis, in).Err()
		}
		dims[axis] = op.Ends[i] - op.Starts[i]
	}
	return shapes.MakeWithStrides(in.DType, dims, in.Strides), nil
}

func (op Slice) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Slice) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	in := args[0].Shape()
	offset := 0
	for i, axis := range op.Axes {
		offset += op.Starts[i] * in.Strides[axis]
	}
	at := offset * in.ElementBytes()
	return ir.ViewArgument(output, args[0].Data()[at:at+output.Bytes()]), nil
}

func (op Slice) Reflect(visit ir.FieldVisitor) {
	visit("axes", op.Axes)
	visit("starts", op.Starts)
	visit("ends", op.Ends)
}
