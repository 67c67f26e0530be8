package transforms

import (
	"slices"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/match"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types"
)

var reshaperNames = types.SetWith("reshape", "contiguous", "squeeze", "unsqueeze")

// SimplifyReshapes collapses chains of shape-only instructions: no-op
// reshapes, redundant reshaper runs, composable transposes, and concats of
// commonly-transposed inputs.
//
// The pass is idempotent: a second run finds nothing left to rewrite.
type SimplifyReshapes struct{}

func (SimplifyReshapes) Name() string { return "simplify_reshapes" }

func (SimplifyReshapes) Apply(p *ir.Program) error {
	last := p.Last()
	for ins := range p.Instructions() {
		if ins == last && ins.Name() == "contiguous" {
			continue
		}
		// Skip possible dead instructions
		if len(ins.Outputs()) == 0 && ins != last {
			continue
		}
		match.Find(p, ins,
			findNopReshapes{},
			findReshaper{},
			findTranspose{},
			findConcatTranspose{},
		)
	}
	return nil
}

// findNopReshapes removes shape ops whose output shape is identical to their
// input's, strides included.
type findNopReshapes struct{}

func (findNopReshapes) Matcher() match.Matcher {
	nops := types.SetWith("transpose", "slice")
	for name := range reshaperNames {
		nops.Insert(name)
	}
	return match.All(match.NameSet(nops), match.SameShape(match.Arg(0)))
}

func (findNopReshapes) Apply(p *ir.Program, r match.Result) {
	p.ReplaceInstruction(r.Ins, r.Ins.Inputs()[0])
}

// findReshaper walks a chain of reshapers upstream from the anchor and
// rewires the earliest chain member that reproduces a later member's shape.
type findReshaper struct{}

func (findReshaper) Matcher() match.Matcher {
	return match.All(
		match.NameSet(reshaperNames),
		match.AnyOutput(match.NameSet(reshaperNames)),
	)
}

func (findReshaper) Apply(p *ir.Program, r match.Result) {
	chain := []*ir.Instruction{r.Ins}
	for reshaperNames.Has(chain[len(chain)-1].Name()) {
		chain = append(chain, chain[len(chain)-1].Inputs()[0])
	}
	for _, start := range chain {
		for i := len(chain) - 1; i >= 0; i-- {
			target := chain[i]
			if target != start && target.Shape().Equal(start.Shape()) {
				p.ReplaceInstruction(start, target)
				return
			}
		}
	}
}

// findTranspose folds a downstream-most transpose chain (contiguous nodes in
// between are skipped) into a single transpose of the composed permutation,
// or into the chain's input when the composition is the identity.
type findTranspose struct{}

func (findTranspose) Matcher() match.Matcher {
	return match.All(
		match.Name("transpose"),
		match.NoneOf(match.SkipOutput(match.Name("contiguous"), match.Name("transpose"))),
	)
}

func findTransposeInput(ins *ir.Instruction) *ir.Instruction {
	if len(ins.Inputs()) != 1 {
		return ins
	}
	input := ins.Inputs()[0]
	if input.Name() == "contiguous" {
		return findTransposeInput(input)
	}
	if input.Name() == "transpose" {
		return input
	}
	return ins
}

func transposePerm(ins *ir.Instruction) []int {
	op, err := ir.As[ops.Transpose](ins.Op())
	if err != nil {
		panic(err)
	}
	return op.Perm
}

func (findTranspose) Apply(p *ir.Program, r match.Result) {
	ins := r.Ins
	perm := iota(ins.Shape().Rank())
	x, t := ins, ins
	for {
		perm = reorderDims(transposePerm(t), perm)
		x = t
		t = findTransposeInput(x)
		if x == t || t.Name() != "transpose" {
			break
		}
	}
	if t == ins || t.Name() != "transpose" {
		return
	}
	if isNoTranspose(perm) {
		p.ReplaceInstruction(ins, t.Inputs()[0])
	} else {
		p.ReplaceInstructionOp(ins, ops.Transpose{Perm: perm}, t.Inputs()[0])
	}
}

// findConcatTranspose lifts a concat whose inputs are all views with one
// common transposition: the inputs are restored to standard order, the
// concat axis is mapped through the inverse permutation, and a single
// transpose is placed after the concat.
type findConcatTranspose struct{}

func (findConcatTranspose) Matcher() match.Matcher {
	return match.All(
		match.Name("concat"),
		match.SameInputShapes(),
		match.AllInputs(match.TransposeShape()),
	)
}

func (findConcatTranspose) Apply(p *ir.Program, r match.Result) {
	ins := r.Ins
	concatOp, err := ir.As[ops.Concat](ins.Op())
	if err != nil {
		panic(err)
	}
	s := ins.Inputs()[0].Shape()
	perm := findPermutation(s)
	inverse := invertPermutation(perm)
	axis := inverse[concatOp.Axis]

	inputs := make([]*ir.Instruction, 0, len(ins.Inputs()))
	for _, input := range slices.Clone(ins.Inputs()) {
		if input.Name() == "transpose" && input.Inputs()[0].Shape().Standard() {
			inputs = append(inputs, input.Inputs()[0])
			continue
		}
		inputs = append(inputs, p.InsertInstruction(ins, ops.Transpose{Perm: perm}, input))
	}
	concat := p.InsertInstruction(ins, ops.Concat{Axis: axis}, inputs...)
	transposed := p.InsertInstruction(ins, ops.Transpose{Perm: inverse}, concat)
	p.ReplaceInstruction(ins, transposed)
}
