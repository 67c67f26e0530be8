package ops

import (
	"iter"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// iterPull converts a shape iteration into pull style, to walk two strided
// views in lockstep.
func iterPull(s shapes.Shape) (func() (int, int, bool), func()) {
	return iter.Pull2(s.Iter())
}

// Identity forwards its input unchanged; the output aliases it.
type Identity struct{}

func (op Identity) Name() string { return "identity" }

func (op Identity) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(1).Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0], nil
}

func (op Identity) OutputAlias(inputs []shapes.Shape) int { return 0 }

func (op Identity) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return args[0], nil
}

func float32Binary(name string, output shapes.Shape, args []ir.Argument, apply func(a, b float32) float32) (ir.Argument, error) {
	if output.DType != dtypes.Float32 {
		return ir.Argument{}, errors.Wrapf(ir.ErrNotComputable, "%s: reference compute supports Float32 only, got %s", name, output.DType)
	}
	out := ir.NewArgument(output)
	av, bv, ov := args[0].Float32s(), args[1].Float32s(), out.Float32s()
	bIter, bStop := iterPull(args[1].Shape())
	defer bStop()
	for logical, aOffset := range args[0].Shape().Iter() {
		_, bOffset, _ := bIter()
		ov[logical] = apply(av[aOffset], bv[bOffset])
	}
	return out, nil
}

// Add is elementwise addition over equal-dimension inputs; the output is
// standard.
type Add struct{}

func (op Add) Name() string { return "add" }

func (op Add) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(2).SameDims().Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Normalize(), nil
}

func (op Add) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return float32Binary(op.Name(), output, args, func(a, b float32) float32 { return a + b })
}

// Mul is elementwise multiplication over equal-dimension inputs.
type Mul struct{}

func (op Mul) Name() string { return "mul" }

func (op Mul) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(2).SameDims().Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Normalize(), nil
}

func (op Mul) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return float32Binary(op.Name(), output, args, func(a, b float32) float32 { return a * b })
}

// Sin is an elementwise unary op that preserves its input shape, strides
// included.
type Sin struct{}

func (op Sin) Name() string { return "sin" }

func (op Sin) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if err := checkShapes(op.Name(), inputs).Has(1).Err(); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0], nil
}

func (op Sin) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	if output.DType != dtypes.Float32 {
		return ir.Argument{}, errors.Wrapf(ir.ErrNotComputable, "%s: reference compute supports Float32 only, got %s", op.Name(), output.DType)
	}
	out := ir.NewArgument(output)
	in, ov := args[0].Float32s(), out.Float32s()
	for _, offset := range args[0].Shape().Iter() {
		ov[offset] = float32(math.Sin(float64(in[offset])))
	}
	return out, nil
}
