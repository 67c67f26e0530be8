package ops

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// Dot is a rank-2 matrix product. It accepts strided (e.g. transposed)
// inputs directly; the output is standard.
type Dot struct{}

func (op Dot) Name() string { return "dot" }

func (op Dot) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	c := checkShapes(op.Name(), inputs).Has(2).SameDType()
	if err := c.Err(); err != nil {
		return shapes.Shape{}, err
	}
	a, b := inputs[0], inputs[1]
	if a.Rank() != 2 || b.Rank() != 2 {
		return shapes.Shape{}, c.fail("requires rank-2 inputs, got %s and %s", a, b).Err()
	}
	if a.Dims[1] != b.Dims[0] {
		return shapes.Shape{}, c.fail("inner dimensions differ: %s x %s", a, b).Err()
	}
	return shapes.Make(a.DType, a.Dims[0], b.Dims[1]), nil
}

func (op Dot) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	if output.DType != dtypes.Float32 {
		return ir.Argument{}, errors.Wrapf(ir.ErrNotComputable, "%s: reference compute supports Float32 only, got %s", op.Name(), output.DType)
	}
	a, b := args[0], args[1]
	as, bs := a.Shape(), b.Shape()
	out := ir.NewArgument(output)
	av, bv, ov := a.Float32s(), b.Float32s(), out.Float32s()
	m, k, n := as.Dims[0], as.Dims[1], bs.Dims[1]
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var acc float32
			for x := 0; x < k; x++ {
				acc += av[i*as.Strides[0]+x*as.Strides[1]] * bv[x*bs.Strides[0]+j*bs.Strides[1]]
			}
			ov[i*n+j] = acc
		}
	}
	return out, nil
}
