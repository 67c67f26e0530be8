package transforms_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ir/irtest"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/transforms"
	"github.com/graphyx/graphyx/types/shapes"
)

func f32(dims ...int) shapes.Shape { return shapes.Make(dtypes.Float32, dims...) }

func TestDeadCodeElimination(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", f32(4))
	dead1 := p.AddInstruction(ops.Sin{}, x)
	p.AddInstruction(ops.Sin{}, dead1) // dead chain
	live := p.AddInstruction(ops.Sin{}, x)
	p.AddInstruction(irtest.PassOp{}, live)

	require.NoError(t, transforms.DeadCodeElimination{}.Apply(p))
	require.NoError(t, p.Validate())
	require.Equal(t, 3, p.Len())
	require.True(t, live.Valid())
	require.False(t, dead1.Valid())
}

func TestDeadCodeKeepsParametersAndTerminal(t *testing.T) {
	p := ir.NewProgram()
	p.AddParameter("unused", f32(4))
	x := p.AddParameter("x", f32(4))
	p.AddInstruction(ops.Sin{}, x) // terminal, no users

	require.NoError(t, transforms.DeadCodeElimination{}.Apply(p))
	require.Equal(t, 3, p.Len())
	require.NotNil(t, p.Parameter("unused"))
}
