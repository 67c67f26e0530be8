package transforms_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ir/irtest"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/transforms"
)

type eliminationTarget struct {
	align int
}

func (eliminationTarget) Name() string { return "eliminate_allocation" }

func (eliminationTarget) GetContext() ir.Context { return nil }

func (e eliminationTarget) GetPasses(ir.Context) []ir.Pass {
	return []ir.Pass{
		transforms.EliminateAllocation{Alignment: e.align},
		transforms.DeadCodeElimination{},
	}
}

func buildThreeAllocs(dims ...int) *ir.Program {
	p := ir.NewProgram()
	a1 := p.AddInstruction(ops.Allocate{S: f32(dims[0])})
	p1 := p.AddInstruction(irtest.PassOp{}, a1)
	a2 := p.AddInstruction(ops.Allocate{S: f32(dims[1])})
	p2 := p.AddInstruction(irtest.PassOp{}, a2, p1)
	a3 := p.AddInstruction(ops.Allocate{S: f32(dims[2])})
	p.AddInstruction(irtest.PassOp{}, a3, p2)
	return p
}

func TestEliminateAllocationBasic(t *testing.T) {
	p := buildThreeAllocs(8, 40, 200)
	require.NoError(t, p.Compile(eliminationTarget{align: 32}))
	require.Equal(t, f32(200), p.GetShape())
	require.Equal(t, 8*4+40*4+200*4, p.GetParameterShape(transforms.MemoryParamName).Bytes())
	require.True(t, irtest.NoAllocate(p))
}

func TestEliminateAllocationAligned(t *testing.T) {
	p := buildThreeAllocs(1, 2, 200)
	require.NoError(t, p.Compile(eliminationTarget{align: 32}))
	require.Equal(t, f32(200), p.GetShape())
	require.Equal(t, 32+32+200*4, p.GetParameterShape(transforms.MemoryParamName).Bytes())
}

func TestEliminateAllocationUnaligned(t *testing.T) {
	p := buildThreeAllocs(1, 2, 200)
	require.NoError(t, p.Compile(eliminationTarget{align: 1}))
	require.Equal(t, 1*4+2*4+200*4, p.GetParameterShape(transforms.MemoryParamName).Bytes())
}

func TestEliminateAllocationFloatAligned(t *testing.T) {
	p := buildThreeAllocs(1, 2, 200)
	require.NoError(t, p.Compile(eliminationTarget{align: 4}))
	require.Equal(t, 1*4+2*4+200*4, p.GetParameterShape(transforms.MemoryParamName).Bytes())
}

func TestEliminateAllocationRewrites(t *testing.T) {
	p := buildThreeAllocs(8, 40, 200)
	require.NoError(t, p.Compile(eliminationTarget{align: 32}))

	var loads []ops.Load
	for ins := range p.Instructions() {
		if ins.Name() == "load" {
			load, err := ir.As[ops.Load](ins.Op())
			require.NoError(t, err)
			require.Equal(t, transforms.MemoryParamName, ins.Inputs()[0].ParameterName())
			loads = append(loads, load)
		}
	}
	require.Len(t, loads, 3)
	require.Equal(t, 0, loads[0].Offset)
	require.Equal(t, 32, loads[1].Offset)
	require.Equal(t, 192, loads[2].Offset)
}

func TestEliminateAllocationNoAllocs(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", f32(4))
	p.AddInstruction(ops.Sin{}, x)
	require.NoError(t, p.Compile(eliminationTarget{align: 32}))
	require.Nil(t, p.Parameter(transforms.MemoryParamName))
}
