package ir_test

import (
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ir/irtest"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"
)

func catch(f func()) error {
	return exceptions.TryCatch[error](func() { f() })
}

func TestAddInstruction(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 3))
	transpose := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	contiguous := p.AddInstruction(ops.Contiguous{}, transpose)

	require.Equal(t, 3, p.Len())
	require.Equal(t, []int{3, 2}, transpose.Shape().Dims)
	require.True(t, contiguous.Shape().Standard())

	// Edge symmetry.
	require.Equal(t, []*ir.Instruction{transpose}, x.Outputs())
	require.Equal(t, []*ir.Instruction{x}, transpose.Inputs())
	require.NoError(t, p.Validate())

	// Shape inference failures are fatal and leave the program unchanged.
	err := catch(func() { p.AddInstruction(ops.Transpose{Perm: []int{0}}, x) })
	require.ErrorIs(t, err, ir.ErrInvalidShape)
	require.Equal(t, 3, p.Len())
	require.NoError(t, p.Validate())
}

func TestInsertAndMove(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 4))
	last := p.AddInstruction(irtest.PassOp{}, x)
	mid := p.InsertInstruction(last, ops.Sin{}, x)

	positions := p.Positions()
	require.Less(t, positions[mid], positions[last])
	require.NoError(t, p.Validate())

	// Repositioning without edge changes.
	extra := p.AddInstruction(ops.Sin{}, x)
	p.MoveInstruction(extra, mid)
	positions = p.Positions()
	require.Less(t, positions[extra], positions[mid])
	require.NoError(t, p.Validate())
}

func TestReplaceInstructionOp(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 3))
	transpose := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	user := p.AddInstruction(irtest.PassOp{}, transpose)

	// Rewriting in place re-runs inference and refreshes downstream caches.
	p.ReplaceInstructionOp(transpose, ops.Transpose{Perm: []int{0, 1}}, x)
	require.Equal(t, []int{2, 3}, transpose.Shape().Dims)
	require.Equal(t, []int{2, 3}, user.Shape().Dims)
	require.NoError(t, p.Validate())

	// The operator value is fresh, not aliased anywhere.
	perm := must.M1(ir.As[ops.Transpose](transpose.Op())).Perm
	require.Equal(t, []int{0, 1}, perm)
}

func TestReplaceInstruction(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 4))
	a := p.AddInstruction(ops.Sin{}, x)
	b := p.AddInstruction(ops.Sin{}, x)
	user := p.AddInstruction(irtest.PassOp{}, a, b)

	p.ReplaceInstruction(a, b)
	require.Equal(t, []*ir.Instruction{b, b}, user.Inputs())
	require.False(t, a.Valid()) // dead after losing its users
	require.NoError(t, p.Validate())

	// Dimension mismatch is refused.
	c := p.AddInstruction(ops.Reshape{Dims: []int{2, 2}}, b)
	err := catch(func() { p.ReplaceInstruction(b, c) })
	require.ErrorIs(t, err, ir.ErrEdge)
}

func TestReplaceTerminal(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 3, 4))
	t1 := p.AddInstruction(ops.Transpose{Perm: []int{2, 0, 1}}, x)
	t2 := p.AddInstruction(ops.Transpose{Perm: []int{1, 2, 0}}, t1)

	// Replacing the terminal trims trailing dead code down to the
	// replacement, which becomes the program's result.
	p.ReplaceInstruction(t2, x)
	require.Equal(t, 1, p.Len())
	require.Equal(t, x, p.Last())
	require.Equal(t, shapes.Make(dtypes.Float32, 2, 3, 4), p.GetShape())
	require.NoError(t, p.Validate())
}

func TestRemoveInstruction(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 4))
	sin := p.AddInstruction(ops.Sin{}, x)
	user := p.AddInstruction(irtest.PassOp{}, sin)

	err := catch(func() { p.RemoveInstruction(sin) })
	require.ErrorIs(t, err, ir.ErrEdge)

	p.RemoveInstruction(user)
	p.RemoveInstruction(sin)
	require.Equal(t, 1, p.Len())
	require.Empty(t, x.Outputs())
	require.NoError(t, p.Validate())

	// Refs to removed instructions are rejected.
	err = catch(func() { p.RemoveInstruction(sin) })
	require.ErrorIs(t, err, ir.ErrEdge)
}

func TestParameters(t *testing.T) {
	p := ir.NewProgram()
	p.AddParameter("x", shapes.Make(dtypes.Float32, 2))
	p.AddParameter("y", shapes.Make(dtypes.Float32, 3))

	require.Equal(t, shapes.Make(dtypes.Float32, 3), p.GetParameterShape("y"))
	require.Equal(t, []string{"x", "y"}, p.ParameterNames())

	err := catch(func() { p.AddParameter("x", shapes.Make(dtypes.Float32, 4)) })
	require.ErrorIs(t, err, ir.ErrEdge)
	err = catch(func() { p.GetParameterShape("z") })
	require.ErrorIs(t, err, ir.ErrEdge)
}

func TestLiteralsGoFirst(t *testing.T) {
	p := ir.NewProgram()
	p.AddParameter("x", shapes.Make(dtypes.Float32, 2))
	lit := p.AddLiteral(ir.GenerateLiteral(shapes.Make(dtypes.Float32, 2)))
	require.Equal(t, lit, p.First())
}

func TestProgramString(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 3))
	p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)

	listing := p.String()
	require.Contains(t, listing, "%0 = @param:x -> (Float32)[2 3]")
	require.Contains(t, listing, "%1 = transpose[perm=[1 0]](%0)")
	require.Equal(t, 2, strings.Count(listing, "\n"))
}

func TestEval(t *testing.T) {
	s := shapes.Make(dtypes.Float32, 2)
	p := ir.NewProgram()
	a := p.AddLiteral(must.M1(ir.LiteralFromFlat(s, []float32{1, 2})))
	b := p.AddLiteral(must.M1(ir.LiteralFromFlat(s, []float32{3, 4})))
	p.AddInstruction(ops.Add{}, a, b)

	out := must.M1(p.Eval(nil, nil))
	require.Equal(t, []float32{4, 6}, out.Float32s())
}

func TestEvalParameters(t *testing.T) {
	s := shapes.Make(dtypes.Float32, 2)
	p := ir.NewProgram()
	x := p.AddParameter("x", s)
	p.AddInstruction(ops.Mul{}, x, x)

	arg := must.M1(ir.LiteralFromFlat(s, []float32{2, 3})).Argument()
	out := must.M1(p.Eval(nil, map[string]ir.Argument{"x": arg}))
	require.Equal(t, []float32{4, 9}, out.Float32s())

	_, err := p.Eval(nil, nil)
	require.ErrorIs(t, err, ir.ErrRuntime)
}

func TestEvalNotComputable(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2))
	p.AddInstruction(inertOp{}, x)

	arg := ir.NewArgument(shapes.Make(dtypes.Float32, 2))
	_, err := p.Eval(nil, map[string]ir.Argument{"x": arg})
	require.ErrorIs(t, err, ir.ErrRuntime)
	require.ErrorIs(t, err, ir.ErrNotComputable)
}
