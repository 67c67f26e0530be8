package ref_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ir/irtest"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/targets/ref"
	"github.com/graphyx/graphyx/transforms"
	"github.com/graphyx/graphyx/types/shapes"
)

func f32(dims ...int) shapes.Shape { return shapes.Make(dtypes.Float32, dims...) }

func buildAllocProgram() *ir.Program {
	p := ir.NewProgram()
	a1 := p.AddInstruction(ops.Allocate{S: f32(8)})
	p1 := p.AddInstruction(irtest.PassOp{}, a1)
	a2 := p.AddInstruction(ops.Allocate{S: f32(40)})
	p.AddInstruction(irtest.PassOp{}, a2, p1)
	return p
}

func TestColoringIsDefault(t *testing.T) {
	p := buildAllocProgram()
	require.NoError(t, p.Compile(ref.Target{Alignment: 4}))
	require.True(t, irtest.NoAllocate(p))
	require.NotNil(t, p.Parameter(transforms.ScratchParamName))
	require.Nil(t, p.Parameter(transforms.MemoryParamName))
	require.Equal(t, 192, p.GetParameterShape(transforms.ScratchParamName).Bytes())
}

func TestDisableMemoryColoringEnv(t *testing.T) {
	t.Setenv(ref.DisableMemoryColoringEnv, "1")
	p := buildAllocProgram()
	require.NoError(t, p.Compile(ref.Target{Alignment: 32}))
	require.True(t, irtest.NoAllocate(p))
	require.Nil(t, p.Parameter(transforms.ScratchParamName))
	require.Equal(t, 192, p.GetParameterShape(transforms.MemoryParamName).Bytes())
}

func TestPipelineSimplifies(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", f32(2, 2))
	transpose := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	contiguous := p.AddInstruction(ops.Contiguous{}, transpose)
	p.AddInstruction(ops.Dot{}, contiguous, x)

	require.NoError(t, p.Compile(ref.Target{}))
	// The contiguous is eliminated; dot reads the transposed view directly.
	require.Equal(t, 3, p.Len())
	require.Equal(t, "transpose", p.Last().Inputs()[0].Name())

	arg := must.M1(ir.LiteralFromFlat(f32(2, 2), []float32{1, 2, 3, 4})).Argument()
	out := must.M1(p.Eval(ref.Target{}.GetContext(), map[string]ir.Argument{"x": arg}))
	// transpose(x)·x = [[10 14] [14 20]]
	require.Equal(t, []float32{10, 14, 14, 20}, out.Float32s())
}

func TestPassFailureIsWrapped(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", f32(2, 2))
	p.AddInstruction(ops.Sin{}, x)

	err := p.Compile(failingTarget{})
	require.ErrorIs(t, err, ir.ErrPass)
	var passErr *ir.PassError
	require.ErrorAs(t, err, &passErr)
	require.Equal(t, "boom", passErr.Pass)
}

type failingTarget struct{}

func (failingTarget) Name() string           { return "failing" }
func (failingTarget) GetContext() ir.Context { return nil }
func (failingTarget) GetPasses(ir.Context) []ir.Pass {
	return []ir.Pass{boomPass{}}
}

type boomPass struct{}

func (boomPass) Name() string { return "boom" }
func (boomPass) Apply(p *ir.Program) error {
	return ir.ErrEdge
}

func TestStreamContext(t *testing.T) {
	ctx, ok := ref.Target{}.GetContext().(*ref.Context)
	require.True(t, ok)

	require.NoError(t, ops.SetStream{Stream: 2}.Finalize(ctx, shapes.Shape{}, nil))
	require.Equal(t, 3, ctx.Streams())

	_, err := ops.SetStream{Stream: 1}.ComputeWithContext(ctx, shapes.Shape{}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, ctx.CurrentStream())
}

func TestFinalizeRunsDuringCompile(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", f32(4))
	stream := p.AddInstruction(ops.SetStream{Stream: 1}, x)
	p.AddInstruction(irtest.PassOp{}, stream)

	// set_stream has a finalize step and no context-free compute; compile
	// must run it without error.
	require.NoError(t, p.Compile(ref.Target{}))
	require.False(t, ir.IsContextFree(ops.SetStream{}))
}

func TestEvalAfterColoring(t *testing.T) {
	p := ir.NewProgram()
	lit := p.AddLiteral(must.M1(ir.LiteralFromFlat(f32(2), []float32{5, 7})))
	alloc := p.AddInstruction(ops.Allocate{S: f32(2)})
	p.AddInstruction(ops.Add{}, lit, alloc)

	require.NoError(t, p.Compile(ref.Target{Alignment: 4}))
	scratch := ir.NewArgument(p.GetParameterShape(transforms.ScratchParamName))
	out := must.M1(p.Eval(ref.Target{}.GetContext(), map[string]ir.Argument{
		transforms.ScratchParamName: scratch,
	}))
	// The allocation reads back zeroed scratch: add(lit, 0) = lit.
	require.Equal(t, []float32{5, 7}, out.Float32s())
}
