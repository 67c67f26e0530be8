package transforms

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"
)

// MemoryParamName is the parameter the sequential planner lays buffers into.
const MemoryParamName = "memory"

// roundUp rounds value up to the next multiple of the alignment.
func roundUp[T constraints.Integer](value, multiple T) T {
	if multiple <= 1 {
		return value
	}
	if rem := value % multiple; rem != 0 {
		return value + multiple - rem
	}
	return value
}

// EliminateAllocation replaces every allocation with an offset view into one
// `memory` parameter, laid out sequentially: before each placement the
// running total is rounded up to the alignment; the parameter's size is the
// running total after the last placement.
//
// It assumes every allocation is live for the entire program (no liveness
// analysis) and is the planner of choice when memory coloring is disabled.
type EliminateAllocation struct {
	// AllocOp is the allocation operator name; "allocate" when empty.
	AllocOp string
	// Alignment in bytes; 32 when zero.
	Alignment int
}

func (EliminateAllocation) Name() string { return "eliminate_allocation" }

func (e EliminateAllocation) Apply(p *ir.Program) error {
	allocOp := e.AllocOp
	if allocOp == "" {
		allocOp = "allocate"
	}
	alignment := e.Alignment
	if alignment == 0 {
		alignment = 32
	}

	var allocs []*ir.Instruction
	for ins := range p.Instructions() {
		if ins.Name() == allocOp {
			allocs = append(allocs, ins)
		}
	}
	if len(allocs) == 0 {
		return nil
	}

	offsets := make([]int, len(allocs))
	total := 0
	for i, alloc := range allocs {
		total = roundUp(total, alignment)
		offsets[i] = total
		total += alloc.Shape().Bytes()
	}

	memory := p.AddParameter(MemoryParamName, shapes.Make(dtypes.Int8, total))
	p.MoveInstruction(memory, p.First())
	for i, alloc := range allocs {
		p.ReplaceInstructionOp(alloc, ops.Load{S: alloc.Shape(), Offset: offsets[i]}, memory)
	}
	klog.V(1).Infof("eliminate_allocation: %d allocations in %s of %s",
		len(allocs), MemoryParamName, humanize.Bytes(uint64(total)))
	return nil
}
