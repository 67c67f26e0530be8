package ops

import (
	"slices"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Reshape reinterprets a standard buffer under new dimensions with the same
// element count. The output aliases the input.
type Reshape struct {
	Dims []int
}

func (op Reshape) Name() string { return "reshape" }

func (op Reshape) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(1).Standard()
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	out := shapes.Make(inputs[0].DType, op.Dims...)
	if out.Size() != inputs[0].Size() {
		return shapes.Shape{}, c.fail("cannot reshape %s to %v: element counts differ", inputs[0], op.Dims).Err()
	}
	return out, nil
}

func (op Reshape) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Reshape) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.ViewArgument(output, args[0].Data()), nil
}

func (op Reshape) Reflect(visit ir.FieldVisitor) {
	visit("dims", op.Dims)
}

// Contiguous copies its input into a standard (row-major, packed) buffer.
// It is a no-op on already-standard inputs and is removed by the
// eliminate-contiguous pass whenever every consumer accepts the upstream
// view directly.
type Contiguous struct{}

func (op Contiguous) Name() string { return "contiguous" }

func (op Contiguous) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(1).Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Normalize(), nil
}

func (op Contiguous) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	in := args[0]
	out := ir.NewArgument(output)
	elem := output.ElementBytes()
	src, dst := in.Data(), out.Data()
	for logical, offset := range in.Shape().Iter() {
		copy(dst[logical*elem:(logical+1)*elem], src[offset*elem:(offset+1)*elem])
	}
	return out, nil
}

// Squeeze removes size-1 axes. With an empty Axes list every size-1 axis is
// removed; otherwise only the listed axes, which must have dimension 1.
type Squeeze struct {
	Axes []int
}

func (op Squeeze) Name() string { return "squeeze" }

func (op Squeeze) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(1).Standard()
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	in := inputs[0]
	var dims []int
	for axis, dim := range in.Dims {
		drop := (len(op.Axes) == 0 && dim == 1) || slices.Contains(op.Axes, axis)
		if !drop {
			dims = append(dims, dim)
			continue
		}
		if dim != 1 {
			return shapes.Shape{}, c.fail("axis %d of %s has dimension %d, cannot squeeze", axis, in, dim).Err()
		}
	}
	for _, axis := range op.Axes {
		if axis < 0 || axis >= in.Rank() {
			return shapes.Shape{}, c.fail("axis %d out of range for %s", axis, in).Err()
		}
	}
	return shapes.Make(in.DType, dims...), nil
}

func (op Squeeze) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Squeeze) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.ViewArgument(output, args[0].Data()), nil
}

func (op Squeeze) Reflect(visit ir.FieldVisitor) {
	visit("axes", op.Axes)
}

// Unsqueeze inserts size-1 axes at the listed output positions.
type Unsqueeze struct {
	Axes []int
}

func (op Unsqueeze) Name() string { return "unsqueeze" }

func (op Unsqueeze) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(1).Standard()
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	in := inputs[0]
	rank := in.Rank() + len(op.Axes)
	dims := make([]int, rank)
	for _, axis := range op.Axes {
		if axis < 0 || axis >= rank {
			return shapes.Shape{}, c.fail("axis %d out of range for output rank %d", axis, rank).Err()
		}
		if dims[axis] != 0 {
			return shapes.Shape{}, c.fail("duplicate axis %d", axis).Err()
		}
		dims[axis] = 1
	}
	next := 0
	for axis := range dims {
		if dims[axis] == 0 {
			dims[axis] = in.Dims[next]
			next++
		}
	}
	return shapes.Make(in.DType, dims...), nil
}

func (op Unsqueeze) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Unsqueeze) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.ViewArgument(output, args[0].Data()), nil
}

func (op Unsqueeze) Reflect(visit ir.FieldVisitor) {
	visit("axes", op.Axes)
}
