package transforms

import (
	"slices"

	"k8s.io/klog/v2"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// EliminateContiguous removes contiguous instructions whose consumers accept
// the upstream strided view directly: every consumer's shape inference must
// succeed on the substituted input and reproduce its cached shape. When the
// consumers refuse but the contiguous sits on a constant chain, the value is
// folded into a literal instead. Dead chains are left for
// DeadCodeElimination.
type EliminateContiguous struct{}

func (EliminateContiguous) Name() string { return "eliminate_contiguous" }

func (EliminateContiguous) Apply(p *ir.Program) error {
	rewired, folded := 0, 0
	for ins := range p.Instructions() {
		if ins.Name() != "contiguous" {
			continue
		}
		input := ins.Inputs()[0]
		if len(ins.Outputs()) > 0 && consumersAccept(ins, input) {
			for _, user := range slices.Clone(ins.Outputs()) {
				p.ReplaceArgument(user, ins, input)
			}
			rewired++
			continue
		}
		if arg, ok := constEval(ins); ok {
			lit := p.AddLiteral(ir.LiteralFromArgument(arg))
			p.ReplaceInstruction(ins, lit)
			folded++
		}
	}
	if rewired+folded > 0 {
		klog.V(2).Infof("eliminate_contiguous: rewired %d, folded %d", rewired, folded)
	}
	return nil
}

// consumersAccept reports whether every user of ins infers an unchanged
// shape when reading input in its place.
func consumersAccept(ins, input *ir.Instruction) bool {
	for _, user := range ins.Outputs() {
		substituted := make([]shapes.Shape, len(user.Inputs()))
		for i, userInput := range user.Inputs() {
			if userInput == ins {
				substituted[i] = input.Shape()
			} else {
				substituted[i] = userInput.Shape()
			}
		}
		inferred, err := user.Op().ComputeShape(substituted)
		if err != nil || !inferred.Equal(user.Shape()) {
			return false
		}
	}
	return true
}

// constEval evaluates an instruction whose transitive inputs are all
// literals through context-free computes. It reports false when the chain
// reaches a parameter or an operator that cannot compute without a context.
func constEval(ins *ir.Instruction) (ir.Argument, bool) {
	memo := make(map[*ir.Instruction]ir.Argument)
	var eval func(node *ir.Instruction) (ir.Argument, bool)
	eval = func(node *ir.Instruction) (ir.Argument, bool) {
		if arg, done := memo[node]; done {
			return arg, true
		}
		if lit := node.Literal(); lit != nil {
			memo[node] = lit.Argument()
			return lit.Argument(), true
		}
		if node.IsParameter() || !ir.IsContextFree(node.Op()) {
			return ir.Argument{}, false
		}
		args := make([]ir.Argument, len(node.Inputs()))
		for i, nodeInput := range node.Inputs() {
			arg, ok := eval(nodeInput)
			if !ok {
				return ir.Argument{}, false
			}
			args[i] = arg
		}
		arg, err := ir.Compute(node.Op(), node.Shape(), args)
		if err != nil {
			return ir.Argument{}, false
		}
		memo[node] = arg
		return arg, true
	}
	return eval(ins)
}
