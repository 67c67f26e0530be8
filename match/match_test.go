package match_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/match"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"
)

func matches(m match.Matcher, ins *ir.Instruction) bool {
	_, ok := m(ins)
	return ok
}

func buildChain(t *testing.T) (p *ir.Program, x, t1, c, t2 *ir.Instruction) {
	t.Helper()
	p = ir.NewProgram()
	x = p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 3))
	t1 = p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	c = p.AddInstruction(ops.Contiguous{}, t1)
	t2 = p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, c)
	return
}

func TestName(t *testing.T) {
	_, x, t1, c, _ := buildChain(t)
	require.True(t, matches(match.Name("transpose"), t1))
	require.True(t, matches(match.Name("contiguous", "transpose"), c))
	require.False(t, matches(match.Name("transpose"), x))
}

func TestCombinators(t *testing.T) {
	_, x, t1, c, _ := buildChain(t)
	require.True(t, matches(match.All(match.Name("transpose"), match.TransposeShape()), t1))
	require.False(t, matches(match.All(match.Name("transpose"), match.StandardShape()), t1))
	require.True(t, matches(match.AnyOf(match.Name("concat"), match.Name("contiguous")), c))
	require.True(t, matches(match.NoneOf(match.Name("concat")), c))
	require.False(t, matches(match.NoneOf(match.Any()), c))
	require.True(t, matches(match.StandardShape(), x))
}

func TestArg(t *testing.T) {
	_, x, t1, _, _ := buildChain(t)
	landed, ok := match.Arg(0)(t1)
	require.True(t, ok)
	require.Equal(t, x, landed)
	require.True(t, matches(match.Arg(0, match.Name("@param")), t1))
	require.False(t, matches(match.Arg(1), t1))
}

func TestSameShape(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 2))
	identity := p.AddInstruction(ops.Transpose{Perm: []int{0, 1}}, x)
	swap := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)

	require.True(t, matches(match.SameShape(match.Arg(0)), identity))
	// Equal dimensions but different strides do not match.
	require.False(t, matches(match.SameShape(match.Arg(0)), swap))
}

func TestInputOutputWalks(t *testing.T) {
	p := ir.NewProgram()
	x := p.AddParameter("x", shapes.Make(dtypes.Float32, 2, 2))
	ta := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	tb := p.AddInstruction(ops.Transpose{Perm: []int{1, 0}}, x)
	concat := p.AddInstruction(ops.Concat{Axis: 0}, ta, tb)

	require.True(t, matches(match.AllInputs(match.Name("transpose")), concat))
	require.True(t, matches(match.AnyInput(match.TransposeShape()), concat))
	require.False(t, matches(match.AllInputs(match.Name("transpose")), x))
	require.True(t, matches(match.SameInputShapes(), concat))
	require.True(t, matches(match.AnyOutput(match.Name("concat")), ta))
	require.True(t, matches(match.AllOutputs(match.Name("concat")), tb))
	require.False(t, matches(match.AnyOutput(match.Any()), concat))
}

func TestSkipOutput(t *testing.T) {
	_, _, t1, _, t2 := buildChain(t)

	// t1's users, walked through contiguous, contain a transpose.
	skip := match.SkipOutput(match.Name("contiguous"), match.Name("transpose"))
	landed, ok := skip(t1)
	require.True(t, ok)
	require.Equal(t, t2, landed)

	// t2 has no users at all.
	require.False(t, matches(skip, t2))

	// Without the skip name, the inner matcher must be a direct user.
	direct := match.SkipOutput(match.Name("reshape"), match.Name("transpose"))
	require.False(t, matches(direct, t1))
}

type renameFinder struct {
	applied []*ir.Instruction
	m       match.Matcher
}

func (f *renameFinder) Matcher() match.Matcher { return f.m }

func (f *renameFinder) Apply(p *ir.Program, r match.Result) {
	f.applied = append(f.applied, r.Ins)
}

func TestFindFirstMatchWins(t *testing.T) {
	p, _, t1, _, _ := buildChain(t)
	first := &renameFinder{m: match.Name("transpose")}
	second := &renameFinder{m: match.Any()}
	match.Find(p, t1, first, second)
	require.Len(t, first.applied, 1)
	require.Empty(t, second.applied)

	match.Find(p, t1, &renameFinder{m: match.Name("concat")}, second)
	require.Len(t, second.applied, 1)
}
