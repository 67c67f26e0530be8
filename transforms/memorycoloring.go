package transforms

import (
	"slices"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"
)

// ScratchParamName is the parameter memory coloring lays buffers into.
const ScratchParamName = "scratch"

// OutputParamName is the optional caller-supplied destination parameter.
const OutputParamName = "output"

// MemoryColoring is the live-range memory planner. Every allocation becomes
// an offset view (load) into one `scratch` parameter whose size is
// minimized subject to correctness:
//
//   - An allocation is live from its allocator to the last instruction that
//     reads or writes its buffer, traced transitively through output-alias
//     chains.
//   - Two allocations interfere when their live ranges overlap in program
//     order or, with Concurrency enabled, when neither range is ordered
//     before the other by the happens-before relation of DomInfo (so
//     buffers touched by parallel streams never share bytes).
//   - Placement is first-fit by decreasing size (ties: earlier allocator
//     first): the lowest alignment-rounded offset whose byte interval
//     avoids every placed interfering allocation.
//
// Zero-byte allocations sit at offset zero and interfere with nothing. When
// an `output` parameter exists and the terminal instruction writes a fresh
// allocation of identical shape, that allocation is redirected to the
// output parameter and drops out of planning.
type MemoryColoring struct {
	// AllocOp is the allocation operator name; "allocate" when empty.
	AllocOp string
	// Alignment in bytes; 32 when zero.
	Alignment int
	// Concurrency enables stream-aware interference.
	Concurrency bool
}

func (MemoryColoring) Name() string { return "memory_coloring" }

type allocation struct {
	ins   *ir.Instruction
	bytes int

	begin, end int // list positions of the live range
	// firstUse and lastUse are the instructions touching the buffer at the
	// range ends; the allocator itself when the buffer has no users.
	firstUse, lastUse *ir.Instruction

	offset int
}

func (m MemoryColoring) Apply(p *ir.Program) error {
	allocOp := m.AllocOp
	if allocOp == "" {
		allocOp = "allocate"
	}
	alignment := m.Alignment
	if alignment == 0 {
		alignment = 32
	}

	m.redirectOutput(p, allocOp)

	positions := p.Positions()
	byIns := make(map[*ir.Instruction]*allocation)
	var allocs []*allocation
	for ins := range p.Instructions() {
		if ins.Name() != allocOp {
			continue
		}
		a := &allocation{
			ins:      ins,
			bytes:    ins.Shape().Bytes(),
			begin:    positions[ins],
			end:      positions[ins],
			firstUse: ins,
			lastUse:  ins,
		}
		byIns[ins] = a
		allocs = append(allocs, a)
	}
	if len(allocs) == 0 {
		return nil
	}

	// Extend live ranges: any instruction reading a buffer (directly or
	// through an alias view) keeps the underlying allocation live.
	for ins := range p.Instructions() {
		for _, input := range ins.Inputs() {
			root := aliasRoot(input, allocOp)
			if root == nil {
				continue
			}
			a, tracked := byIns[root]
			if !tracked {
				continue
			}
			if pos := positions[ins]; pos > a.end {
				a.end = pos
				a.lastUse = ins
			}
			if a.firstUse == a.ins {
				a.firstUse = ins
			}
		}
	}

	var dom *DomInfo
	if m.Concurrency {
		dom = AnalyzeDom(p, allocOp)
	}
	interfere := func(a, b *allocation) bool {
		if a.bytes == 0 || b.bytes == 0 {
			return false
		}
		if a.begin <= b.end && b.begin <= a.end {
			return true
		}
		if dom == nil {
			return false
		}
		ordered := dom.HappensBefore(a.lastUse, b.firstUse) || dom.HappensBefore(b.lastUse, a.firstUse)
		return !ordered
	}

	order := slices.Clone(allocs)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].bytes != order[j].bytes {
			return order[i].bytes > order[j].bytes
		}
		return order[i].begin < order[j].begin
	})

	scratchBytes := 0
	var placed []*allocation
	for _, a := range order {
		if a.bytes == 0 {
			continue
		}
		conflicts := make([]*allocation, 0, len(placed))
		for _, other := range placed {
			if interfere(a, other) {
				conflicts = append(conflicts, other)
			}
		}
		sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].offset < conflicts[j].offset })
		offset := 0
		for _, c := range conflicts {
			if offset+a.bytes <= c.offset {
				break
			}
			if offset < c.offset+c.bytes {
				offset = roundUp(c.offset+c.bytes, alignment)
			}
		}
		a.offset = offset
		scratchBytes = max(scratchBytes, offset+a.bytes)
		placed = append(placed, a)
	}

	scratch := p.AddParameter(ScratchParamName, shapes.Make(dtypes.Int8, scratchBytes))
	p.MoveInstruction(scratch, p.First())
	for _, a := range allocs {
		p.ReplaceInstructionOp(a.ins, ops.Load{S: a.ins.Shape(), Offset: a.offset}, scratch)
	}
	klog.V(1).Infof("memory_coloring: %d allocations in %s of %s",
		len(allocs), ScratchParamName, humanize.Bytes(uint64(scratchBytes)))
	return nil
}

// redirectOutput rewires the terminal instruction to write directly into the
// `output` parameter when it currently writes a fresh allocation of the
// identical shape; the allocation then dies before planning.
func (m MemoryColoring) redirectOutput(p *ir.Program, allocOp string) {
	output := p.Parameter(OutputParamName)
	terminal := p.Last()
	if output == nil || terminal == nil || terminal == output {
		return
	}
	target := aliasRoot(terminal, allocOp)
	if target == nil || target == output || !target.Shape().Equal(output.Shape()) {
		return
	}
	if first := p.First(); first != output {
		p.MoveInstruction(output, first)
	}
	p.ReplaceInstruction(target, output)
}

// aliasRoot follows output-alias edges down to the allocation whose buffer
// ins ultimately writes, or nil when the chain ends elsewhere.
func aliasRoot(ins *ir.Instruction, allocOp string) *ir.Instruction {
	for {
		if ins.Name() == allocOp {
			return ins
		}
		inputs := ins.Inputs()
		aliased := ir.OutputAlias(ins.Op(), inputShapes(inputs))
		if aliased < 0 || aliased >= len(inputs) {
			return nil
		}
		ins = inputs[aliased]
	}
}

func inputShapes(inputs []*ir.Instruction) []shapes.Shape {
	result := make([]shapes.Shape, len(inputs))
	for i, input := range inputs {
		result[i] = input.Shape()
	}
	return result
}
