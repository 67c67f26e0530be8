package ops

import (
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Transpose permutes the axes of its input. The result is a strided view:
// same storage, reordered dimensions and strides.
type Transpose struct {
	Perm []int
}

func (op Transpose) Name() string { return "transpose" }

func (op Transpose) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(1).Err(); err != nil {
		return shapes.Shape{}, err
	}
	out, err := inputs[0].Permute(op.Perm)
	if err != nil {
		return shapes.Shape{}, errors.Wrapf(ir.ErrInvalidShape, "%s: %v", op.Name(), err)
	}
	return out, nil
}

func (op Transpose) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.ViewArgument(output, args[0].Data()), nil
}

func (op Transpose) Reflect(visit ir.FieldVisitor) {
	visit("perm", op.Perm)
}
