package ir_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"

	"github.com/gomlx/gopjrt/dtypes"
)

// ctxOnlyOp computes only with a context.
type ctxOnlyOp struct{}

func (ctxOnlyOp) Name() string { return "ctx_only" }

func (ctxOnlyOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	return shapes.Make(dtypes.Float32, 1), nil
}

func (ctxOnlyOp) ComputeWithContext(ctx ir.Context, output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.NewArgument(output), nil
}

// bothOp offers both compute signatures; the context-taking one must win.
type bothOp struct{}

func (bothOp) Name() string { return "both" }

func (bothOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	return shapes.Make(dtypes.Float32, 1), nil
}

func (bothOp) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.Argument{}, errors.New("context-free path")
}

func (bothOp) ComputeWithContext(ctx ir.Context, output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.Argument{}, errors.New("context path")
}

// inertOp has no compute at all.
type inertOp struct{}

func (inertOp) Name() string { return "inert" }

func (inertOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	return shapes.Shape{}, nil
}

func TestComputeDispatch(t *testing.T) {
	out := shapes.Make(dtypes.Float32, 1)

	// Context entry point: prefers the context overload.
	_, err := ir.ComputeWithContext(bothOp{}, nil, out, nil)
	require.EqualError(t, errors.Cause(err), "context path")

	// Context entry point runs an operator that has only the context overload.
	_, err = ir.ComputeWithContext(ctxOnlyOp{}, nil, out, nil)
	require.NoError(t, err)

	// Context-free entry point does not fall back the other way.
	_, err = ir.Compute(ctxOnlyOp{}, out, nil)
	require.ErrorIs(t, err, ir.ErrNotComputable)

	_, err = ir.Compute(bothOp{}, out, nil)
	require.EqualError(t, errors.Cause(err), "context-free path")

	_, err = ir.Compute(inertOp{}, out, nil)
	require.ErrorIs(t, err, ir.ErrNotComputable)
	_, err = ir.ComputeWithContext(inertOp{}, nil, out, nil)
	require.ErrorIs(t, err, ir.ErrNotComputable)
}

func TestIsContextFree(t *testing.T) {
	require.False(t, ir.IsContextFree(ctxOnlyOp{}))
	require.True(t, ir.IsContextFree(bothOp{}))
	require.False(t, ir.IsContextFree(ops.SetStream{}))
	require.True(t, ir.IsContextFree(ops.Contiguous{}))
}

func TestHasFinalize(t *testing.T) {
	require.True(t, ir.HasFinalize(ops.SetStream{}))
	require.False(t, ir.HasFinalize(ops.Contiguous{}))
}

func TestOutputAlias(t *testing.T) {
	in := []shapes.Shape{shapes.Make(dtypes.Float32, 4)}
	require.Equal(t, -1, ir.OutputAlias(ops.Contiguous{}, in))
	require.Equal(t, 0, ir.OutputAlias(ops.Identity{}, in))
	require.Equal(t, 0, ir.OutputAlias(ops.Load{S: in[0]}, in))
}

func TestOpString(t *testing.T) {
	require.Equal(t, "contiguous", ir.OpString(ops.Contiguous{}))
	require.Equal(t, "transpose[perm=[1 0]]", ir.OpString(ops.Transpose{Perm: []int{1, 0}}))
	require.Equal(t, "set_stream[stream=2]", ir.OpString(ops.SetStream{Stream: 2}))
	require.Equal(t, "concat[axis=1]", ir.OpString(ops.Concat{Axis: 1}))
	load := ops.Load{S: shapes.Make(dtypes.Float32, 8), Offset: 32}
	require.Equal(t, "load[shape=(Float32)[8],offset=32]", ir.OpString(load))
}

func TestOpEqual(t *testing.T) {
	require.True(t, ir.OpEqual(ops.Contiguous{}, ops.Contiguous{}))
	require.True(t, ir.OpEqual(ops.Transpose{Perm: []int{1, 0}}, ops.Transpose{Perm: []int{1, 0}}))
	require.False(t, ir.OpEqual(ops.Transpose{Perm: []int{1, 0}}, ops.Transpose{Perm: []int{0, 1}}))
	require.False(t, ir.OpEqual(ops.Contiguous{}, ops.Identity{}))
	require.False(t, ir.OpEqual(ops.Concat{Axis: 0}, ops.Concat{Axis: 1}))
}

func TestAs(t *testing.T) {
	var op ir.Operator = ops.Transpose{Perm: []int{1, 0}}
	transpose, err := ir.As[ops.Transpose](op)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, transpose.Perm)

	_, err = ir.As[ops.Concat](op)
	require.ErrorIs(t, err, ir.ErrBadCast)
}
