// Package transforms implements the compiler's rewrite and planning passes:
// reshape simplification, contiguous elimination, dead-code elimination, and
// the two memory planners (sequential allocation elimination and live-range
// memory coloring with stream-aware interference).
package transforms

import (
	"k8s.io/klog/v2"

	"github.com/graphyx/graphyx/ir"
)

// DeadCodeElimination removes, to fixpoint, every non-parameter instruction
// that has no users and is not the program's terminal.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "dead_code_elimination" }

func (DeadCodeElimination) Apply(p *ir.Program) error {
	removed := 0
	for changed := true; changed; {
		changed = false
		last := p.Last()
		for ins := range p.InstructionsReversed() {
			if ins == last || ins.IsParameter() {
				continue
			}
			if len(ins.Outputs()) == 0 {
				p.RemoveInstruction(ins)
				removed++
				changed = true
			}
		}
	}
	if removed > 0 {
		klog.V(2).Infof("dead_code_elimination: removed %d instructions", removed)
	}
	return nil
}
