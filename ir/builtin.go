package ir

import (
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/types/shapes"
)

// Builtin instruction names. Parameters, literals and outlines are ordinary
// instructions carrying these operators, so passes can treat the whole
// Program uniformly.
const (
	ParamName   = "@param"
	LiteralName = "@literal"
	OutlineName = "@outline"
)

type paramOp struct {
	name  string
	shape shapes.Shape
}

func (op paramOp) Name() string { return ParamName }

func (op paramOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) != 0 {
		return shapes.Shape{}, errors.Wrapf(ErrInvalidShape, "%s:%s takes no inputs", ParamName, op.name)
	}
	return op.shape, nil
}

func (op paramOp) Reflect(visit FieldVisitor) {
	visit("name", op.name)
}

type literalOp struct {
	shape shapes.Shape
}

func (op literalOp) Name() string { return LiteralName }

func (op literalOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) != 0 {
		return shapes.Shape{}, errors.Wrapf(ErrInvalidShape, "%s takes no inputs", LiteralName)
	}
	return op.shape, nil
}

// outlineOp reserves a shape without storage; allocation instructions take
// it as input so planners can read the requested shape off the graph.
type outlineOp struct {
	shape shapes.Shape
}

func (op outlineOp) Name() string { return OutlineName }

func (op outlineOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) != 0 {
		return shapes.Shape{}, errors.Wrapf(ErrInvalidShape, "%s takes no inputs", OutlineName)
	}
	return op.shape, nil
}

func (op outlineOp) Compute(output shapes.Shape, args []Argument) (Argument, error) {
	return shapeOnlyArgument(output), nil
}
