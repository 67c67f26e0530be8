package transforms

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types"
)

// DomInfo analyzes the scheduling structure of a Program: data-flow
// dominance, the happens-before relation generated by data edges,
// same-stream program order and record/wait synchronization, and from it the
// pairs of instructions that may execute concurrently on different streams.
//
// Buffer-only instructions (parameters, literals, outlines, allocations)
// carry no computation and are excluded from dominance paths, so a kernel
// dominates its consumers even when those also read fresh buffers.
type DomInfo struct {
	order     []*ir.Instruction
	positions map[*ir.Instruction]int
	idom      map[*ir.Instruction]*ir.Instruction
	depth     map[*ir.Instruction]int
	reach     []bitset
}

type bitset []uint64

func makeBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (i % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(i%64)) != 0 }
func (b bitset) or(other bitset) {
	for i, word := range other {
		b[i] |= word
	}
}

// AnalyzeDom builds the analysis for the Program's current instruction list.
// Extra source names (beyond the builtin parameter/literal/outline ops) mark
// additional buffer-only operators, conventionally the allocation op.
func AnalyzeDom(p *ir.Program, extraSources ...string) *DomInfo {
	sources := types.SetWith(ir.ParamName, ir.LiteralName, ir.OutlineName)
	sources.Insert(extraSources...)

	d := &DomInfo{
		positions: p.Positions(),
		idom:      make(map[*ir.Instruction]*ir.Instruction),
		depth:     make(map[*ir.Instruction]int),
	}
	d.order = make([]*ir.Instruction, len(d.positions))
	for ins, pos := range d.positions {
		d.order[pos] = ins
	}

	// Immediate dominators over the effective data-flow DAG, in topological
	// (list) order. An instruction whose effective predecessor set is empty
	// hangs off the virtual root (idom nil, depth 1).
	effPreds := func(ins *ir.Instruction) []*ir.Instruction {
		var preds []*ir.Instruction
		for _, input := range ins.Inputs() {
			if !sources.Has(input.Name()) {
				preds = append(preds, input)
			}
		}
		return preds
	}
	for _, ins := range d.order {
		preds := effPreds(ins)
		if len(preds) == 0 {
			d.idom[ins] = nil
			d.depth[ins] = 1
			continue
		}
		dom := preds[0]
		for _, pred := range preds[1:] {
			dom = d.intersect(dom, pred)
			if dom == nil {
				break
			}
		}
		d.idom[ins] = dom
		d.depth[ins] = d.depth[dom] + 1 // depth[nil] is 0
	}

	// Happens-before: reachability over data edges, same-stream program
	// order, and record→wait synchronization. All edges point forward in
	// list order, so one reverse sweep closes the relation.
	n := len(d.order)
	successors := make([][]int, n)
	addEdge := func(from, to *ir.Instruction) {
		successors[d.positions[from]] = append(successors[d.positions[from]], d.positions[to])
	}
	lastOnStream := map[int]*ir.Instruction{}
	for _, ins := range d.order {
		for _, user := range ins.Outputs() {
			addEdge(ins, user)
		}
		if prev, found := lastOnStream[ins.Stream()]; found {
			addEdge(prev, ins)
		}
		lastOnStream[ins.Stream()] = ins
		if ins.HasEvents(ir.WaitEvent) {
			if record := d.waitTarget(ins); record != nil {
				addEdge(record, ins)
			}
		}
	}
	d.reach = make([]bitset, n)
	for i := n - 1; i >= 0; i-- {
		d.reach[i] = makeBitset(n)
		for _, succ := range successors[i] {
			d.reach[i].set(succ)
			d.reach[i].or(d.reach[succ])
		}
	}
	return d
}

// waitTarget resolves a wait barrier: the most recent prior record on a
// different stream that dominates the waiter.
func (d *DomInfo) waitTarget(waiter *ir.Instruction) *ir.Instruction {
	for pos := d.positions[waiter] - 1; pos >= 0; pos-- {
		record := d.order[pos]
		if record.HasEvents(ir.RecordEvent) && record.Stream() != waiter.Stream() &&
			d.Dominates(record, waiter) {
			return record
		}
	}
	return nil
}

func (d *DomInfo) intersect(a, b *ir.Instruction) *ir.Instruction {
	for a != b {
		if a == nil || b == nil {
			return nil
		}
		if d.depth[a] >= d.depth[b] {
			a = d.idom[a]
		} else {
			b = d.idom[b]
		}
	}
	return a
}

// IDom returns the immediate dominator of ins on the effective data-flow
// DAG, nil for instructions reached directly from the virtual root.
func (d *DomInfo) IDom(ins *ir.Instruction) *ir.Instruction { return d.idom[ins] }

// Dominates reports whether a dominates b: every data path from the virtual
// root to b goes through a. An instruction dominates itself.
func (d *DomInfo) Dominates(a, b *ir.Instruction) bool {
	for node := b; node != nil; node = d.idom[node] {
		if node == a {
			return true
		}
	}
	return false
}

// HappensBefore reports whether a is ordered before b by data dependencies,
// same-stream sequencing, or a record/wait pair (transitively). Every
// instruction happens-before itself.
func (d *DomInfo) HappensBefore(a, b *ir.Instruction) bool {
	if a == b {
		return true
	}
	return d.reach[d.positions[a]].has(d.positions[b])
}

// Concurrent reports whether neither instruction is ordered relative to the
// other, i.e. they may execute in parallel on the device.
func (d *DomInfo) Concurrent(a, b *ir.Instruction) bool {
	return !d.HappensBefore(a, b) && !d.HappensBefore(b, a)
}

// ConcurrentInstructions returns every instruction concurrent with ins, in
// program order.
func (d *DomInfo) ConcurrentInstructions(ins *ir.Instruction) []*ir.Instruction {
	var concurrent []*ir.Instruction
	for _, other := range d.order {
		if other != ins && d.Concurrent(ins, other) {
			concurrent = append(concurrent, other)
		}
	}
	return concurrent
}
