package ops

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Allocate reserves a buffer of a given shape. Its sole effect is the
// reservation; memory planning replaces every Allocate with a Load view into
// the scratch (or memory) parameter.
//
// The requested shape comes either from the S field or, when S is unset,
// from a single @outline input.
type Allocate struct {
	S shapes.Shape
}

func (op Allocate) Name() string { return "allocate" }

func (op Allocate) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if op.S.Ok() {
		if err := checkShapes(op.Name(), inputs).Has(0).Err(); err != nil {
			return shapes.Shape{}, err
		}
		return op.S, nil
	}
	if err := checkShapes(op.Name(), inputs).Has(1).Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0], nil
}

func (op Allocate) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.NewArgument(output), nil
}

func (op Allocate) Reflect(visit ir.FieldVisitor) {
	if op.S.Ok() {
		visit("shape", op.S)
	}
}

// Load presents a shape on top of a window of its input buffer, starting at
// a byte offset. Memory planners emit it to replace allocations; its output
// aliases the input storage.
type Load struct {
	S      shapes.Shape
	Offset int
}

func (op Load) Name() string { return "load" }

func (op Load) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(1)
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	if op.Offset < 0 || op.Offset+op.S.Bytes() > inputs[0].Bytes() {
		return shapes.Shape{}, c.fail("window [%d, %d) exceeds buffer %s",
			op.Offset, op.Offset+op.S.Bytes(), inputs[0]).Err()
	}
	return op.S, nil
}

func (op Load) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Load) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	data := args[0].Data()
	return ir.ViewArgument(output, data[op.Offset:op.Offset+output.Bytes()]), nil
}

func (op Load) Reflect(visit ir.FieldVisitor) {
	visit("shape", op.S)
	visit("offset", op.Offset)
}
