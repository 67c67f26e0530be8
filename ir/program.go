package ir

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/types/shapes"
)

// Program is the unit of compilation: an ordered doubly-linked list of
// Instructions plus a table of named parameters.
//
// The Program exclusively owns its instructions. The editing primitives below
// keep edges symmetric and cached shapes valid; on a foreign or removed
// reference, a self-read, a shape-inference failure, or a similar edge error
// they panic with an error (catch with exceptions.TryCatch at pass
// boundaries) before publishing new edges. They do not check topological
// order: an input placed after the instruction reading it, or a cycle through
// several instructions, is not rejected by the edit; Validate reports it.
type Program struct {
	head, tail *Instruction // list sentinels
	count      int
	params     map[string]*Instruction
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	p := &Program{params: make(map[string]*Instruction)}
	p.head = &Instruction{}
	p.tail = &Instruction{}
	p.head.next = p.tail
	p.tail.prev = p.head
	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int { return p.count }

// First returns the first instruction, or nil for an empty program.
func (p *Program) First() *Instruction {
	if p.head.next == p.tail {
		return nil
	}
	return p.head.next
}

// Last returns the final (terminal) instruction, or nil for an empty program.
func (p *Program) Last() *Instruction {
	if p.tail.prev == p.head {
		return nil
	}
	return p.tail.prev
}

// HasInstruction reports whether ins is currently owned by this Program.
func (p *Program) HasInstruction(ins *Instruction) bool {
	return ins != nil && ins.owner == p
}

// Instructions ranges over the instructions in program order. The sequence
// is snapshot-based: instructions inserted during iteration are not visited,
// and instructions removed during iteration are skipped.
func (p *Program) Instructions() iter.Seq[*Instruction] {
	snapshot := p.snapshot()
	return func(yield func(*Instruction) bool) {
		for _, ins := range snapshot {
			if ins.owner != p {
				continue
			}
			if !yield(ins) {
				return
			}
		}
	}
}

// InstructionsReversed ranges over a snapshot in reverse program order.
func (p *Program) InstructionsReversed() iter.Seq[*Instruction] {
	snapshot := p.snapshot()
	return func(yield func(*Instruction) bool) {
		for i := len(snapshot) - 1; i >= 0; i-- {
			if snapshot[i].owner != p {
				continue
			}
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

func (p *Program) snapshot() []*Instruction {
	all := make([]*Instruction, 0, p.count)
	for ins := p.head.next; ins != p.tail; ins = ins.next {
		all = append(all, ins)
	}
	return all
}

// Positions returns the current list position of every instruction. Passes
// use it for liveness numbering; it is invalidated by any edit.
func (p *Program) Positions() map[*Instruction]int {
	positions := make(map[*Instruction]int, p.count)
	i := 0
	for ins := p.head.next; ins != p.tail; ins = ins.next {
		positions[ins] = i
		i++
	}
	return positions
}

// AddParameter appends an @param instruction and registers it under name.
// Parameter names are unique within a Program.
func (p *Program) AddParameter(name string, shape shapes.Shape) *Instruction {
	if _, found := p.params[name]; found {
		panic(errors.Wrapf(ErrEdge, "duplicate parameter %q", name))
	}
	ins := p.insertNew(p.tail, paramOp{name: name, shape: shape})
	ins.paramName = name
	p.params[name] = ins
	return ins
}

// AddLiteral prepends an @literal instruction holding the given value.
// Literals go to the front of the list so any instruction may read them.
func (p *Program) AddLiteral(lit *Literal) *Instruction {
	first := p.head.next
	ins := p.insertNew(first, literalOp{shape: lit.Shape()})
	ins.literal = lit
	return ins
}

// AddOutline appends an @outline instruction: a shape carrier without
// storage, conventionally the input of allocation instructions.
func (p *Program) AddOutline(shape shapes.Shape) *Instruction {
	return p.insertNew(p.tail, outlineOp{shape: shape})
}

// AddInstruction appends an instruction computing op over the given inputs.
// Shape inference runs immediately; failures are fatal.
func (p *Program) AddInstruction(op Operator, inputs ...*Instruction) *Instruction {
	return p.InsertInstruction(nil, op, inputs...)
}

// InsertInstruction inserts before the given instruction (nil appends at the
// end). All inputs must already belong to the Program and precede the
// insertion point.
func (p *Program) InsertInstruction(before *Instruction, op Operator, inputs ...*Instruction) *Instruction {
	at := p.tail
	if before != nil {
		p.checkOwned(before, "insert before")
		at = before
	}
	ins := p.insertNew(at, op, inputs...)
	return ins
}

func (p *Program) insertNew(at *Instruction, op Operator, inputs ...*Instruction) *Instruction {
	if op == nil {
		panic(errors.Wrap(ErrEdge, "nil operator"))
	}
	for _, input := range inputs {
		p.checkOwned(input, op.Name()+" input")
	}
	shape, err := op.ComputeShape(shapesOf(inputs))
	if err != nil {
		panic(errors.Wrapf(err, "adding instruction %s", op.Name()))
	}
	ins := &Instruction{op: op, shape: shape, stream: NoStream, owner: p}
	ins.inputs = slices.Clone(inputs)
	for _, input := range inputs {
		input.addOutput(ins)
	}
	ins.prev = at.prev
	ins.next = at
	at.prev.next = ins
	at.prev = ins
	p.count++
	return ins
}

// ReplaceInstructionOp rewrites ins in place with a new operator and inputs,
// re-running shape inference. Downstream users keep their edges; their
// cached shapes are recomputed if the new shape differs.
func (p *Program) ReplaceInstructionOp(ins *Instruction, op Operator, inputs ...*Instruction) *Instruction {
	p.checkOwned(ins, "replace")
	if op == nil {
		panic(errors.Wrap(ErrEdge, "nil operator"))
	}
	for _, input := range inputs {
		p.checkOwned(input, op.Name()+" input")
		if input == ins {
			panic(errors.Wrapf(ErrEdge, "instruction %s cannot read itself", op.Name()))
		}
	}
	shape, err := op.ComputeShape(shapesOf(inputs))
	if err != nil {
		panic(errors.Wrapf(err, "replacing instruction with %s", op.Name()))
	}
	old := ins.inputs
	ins.op = op
	ins.inputs = slices.Clone(inputs)
	for _, input := range inputs {
		input.addOutput(ins)
	}
	for _, input := range old {
		input.removeOutput(ins)
	}
	p.setShape(ins, shape)
	return ins
}

// ReplaceInstruction redirects every user of ins to rep, then removes ins if
// it became dead. The shapes must have equal dimensions; stride
// compatibility is the caller's contract.
func (p *Program) ReplaceInstruction(ins, rep *Instruction) {
	p.checkOwned(ins, "replace")
	p.checkOwned(rep, "replacement")
	if ins == rep {
		return
	}
	if !ins.shape.EqualDims(rep.shape) {
		panic(errors.Wrapf(ErrEdge,
			"cannot replace %s with %s: shapes %s and %s have different dimensions",
			ins.Name(), rep.Name(), ins.shape, rep.shape))
	}
	wasTerminal := ins == p.Last()
	for _, user := range slices.Clone(ins.outputs) {
		if user == rep {
			panic(errors.Wrapf(ErrEdge,
				"replacement %s reads the instruction it replaces", rep.Name()))
		}
		p.ReplaceArgument(user, ins, rep)
	}
	if len(ins.outputs) == 0 && !ins.IsParameter() {
		p.RemoveInstruction(ins)
	}
	if !wasTerminal {
		return
	}
	// The replaced instruction was the program's result: trim trailing dead
	// code so rep becomes the terminal.
	for last := p.Last(); last != nil && last != rep &&
		!last.IsParameter() && len(last.outputs) == 0; last = p.Last() {
		p.RemoveInstruction(last)
	}
}

// ReplaceArgument rewires every occurrence of old in user's inputs to rep,
// recomputing user's shape (and its users', transitively) if it changes.
func (p *Program) ReplaceArgument(user, old, rep *Instruction) {
	p.checkOwned(user, "rewire")
	p.checkOwned(rep, "rewire target")
	if !slices.Contains(user.inputs, old) {
		panic(errors.Wrapf(ErrEdge, "%s is not an input of %s", old.Name(), user.Name()))
	}
	for i, input := range user.inputs {
		if input == old {
			user.inputs[i] = rep
		}
	}
	rep.addOutput(user)
	old.removeOutput(user)
	shape, err := user.op.ComputeShape(shapesOf(user.inputs))
	if err != nil {
		panic(errors.Wrapf(err, "rewiring %s", user.Name()))
	}
	p.setShape(user, shape)
}

// setShape updates the cached shape and propagates recomputation to users
// whose inference result changes.
func (p *Program) setShape(ins *Instruction, shape shapes.Shape) {
	if ins.shape.Equal(shape) {
		ins.shape = shape
		return
	}
	ins.shape = shape
	for _, user := range slices.Clone(ins.outputs) {
		updated, err := user.op.ComputeShape(shapesOf(user.inputs))
		if err != nil {
			panic(errors.Wrapf(err, "propagating shape of %s to %s", ins.Name(), user.Name()))
		}
		p.setShape(user, updated)
	}
}

// MoveInstruction repositions ins immediately before the given instruction
// without changing any edge. The caller must preserve topological order
// (checked by Validate).
func (p *Program) MoveInstruction(ins, before *Instruction) {
	p.checkOwned(ins, "move")
	p.checkOwned(before, "move before")
	if ins == before || ins.next == before {
		return
	}
	ins.prev.next = ins.next
	ins.next.prev = ins.prev
	ins.prev = before.prev
	ins.next = before
	before.prev.next = ins
	before.prev = ins
}

// RemoveInstruction removes a dead instruction. It is an error to remove an
// instruction that still has users.
func (p *Program) RemoveInstruction(ins *Instruction) {
	p.checkOwned(ins, "remove")
	if len(ins.outputs) != 0 {
		panic(errors.Wrapf(ErrEdge,
			"cannot remove %s: it still has %d users", ins.Name(), len(ins.outputs)))
	}
	inputs := ins.inputs
	ins.inputs = nil
	for _, input := range inputs {
		input.removeOutput(ins)
	}
	ins.prev.next = ins.next
	ins.next.prev = ins.prev
	ins.prev, ins.next = nil, nil
	ins.owner = nil
	if ins.paramName != "" {
		delete(p.params, ins.paramName)
	}
	p.count--
}

// GetShape returns the shape of the final instruction, the program's result.
func (p *Program) GetShape() shapes.Shape {
	last := p.Last()
	if last == nil {
		return shapes.Shape{}
	}
	return last.Shape()
}

// Parameter returns the @param instruction registered under name, or nil.
func (p *Program) Parameter(name string) *Instruction { return p.params[name] }

// GetParameterShape returns the shape of the named parameter. It panics for
// unknown parameters.
func (p *Program) GetParameterShape(name string) shapes.Shape {
	ins, found := p.params[name]
	if !found {
		panic(errors.Wrapf(ErrEdge, "unknown parameter %q", name))
	}
	return ins.Shape()
}

// ParameterNames returns the registered parameter names in program order.
func (p *Program) ParameterNames() []string {
	names := make([]string, 0, len(p.params))
	for ins := range p.Instructions() {
		if ins.IsParameter() {
			names = append(names, ins.paramName)
		}
	}
	return names
}

func (p *Program) checkOwned(ins *Instruction, what string) {
	if ins == nil || ins.owner != p {
		panic(errors.Wrapf(ErrEdge, "%s: instruction does not belong to this program", what))
	}
}

func shapesOf(instructions []*Instruction) []shapes.Shape {
	result := make([]shapes.Shape, len(instructions))
	for i, ins := range instructions {
		result[i] = ins.shape
	}
	return result
}

// Validate checks the Program invariants: edge symmetry, topological order,
// shape-cache validity, and parameter-table consistency. It returns the
// first violation found.
func (p *Program) Validate() error {
	positions := p.Positions()
	for ins := p.head.next; ins != p.tail; ins = ins.next {
		if ins.owner != p {
			return errors.Wrapf(ErrEdge, "listed instruction %s is not owned by the program", ins.Name())
		}
		for _, input := range ins.inputs {
			inputPos, found := positions[input]
			if !found {
				return errors.Wrapf(ErrEdge, "%s reads an instruction outside the program", ins.Name())
			}
			if inputPos >= positions[ins] {
				return errors.Wrapf(ErrEdge, "%s at %d reads %s at %d: topological order violated",
					ins.Name(), positions[ins], input.Name(), inputPos)
			}
			if !slices.Contains(input.outputs, ins) {
				return errors.Wrapf(ErrEdge, "edge asymmetry: %s reads %s but is not among its users",
					ins.Name(), input.Name())
			}
		}
		for _, user := range ins.outputs {
			if !slices.Contains(user.inputs, ins) {
				return errors.Wrapf(ErrEdge, "edge asymmetry: %s lists user %s that does not read it",
					ins.Name(), user.Name())
			}
		}
		shape, err := ins.op.ComputeShape(shapesOf(ins.inputs))
		if err != nil {
			return errors.Wrapf(err, "shape cache of %s", ins.Name())
		}
		if !shape.Equal(ins.shape) {
			return errors.Wrapf(ErrInvalidShape, "stale shape cache on %s: cached %s, inferred %s",
				ins.Name(), ins.shape, shape)
		}
	}
	for name, ins := range p.params {
		if ins.owner != p || ins.paramName != name {
			return errors.Wrapf(ErrEdge, "parameter table entry %q is stale", name)
		}
	}
	return nil
}

// String renders the program listing, one instruction per line, inputs
// referenced by position.
func (p *Program) String() string {
	positions := p.Positions()
	var sb strings.Builder
	for ins := p.head.next; ins != p.tail; ins = ins.next {
		if ins.paramName != "" {
			fmt.Fprintf(&sb, "%%%d = %s:%s", positions[ins], ins.Name(), ins.paramName)
		} else {
			fmt.Fprintf(&sb, "%%%d = %s", positions[ins], OpString(ins.op))
		}
		if len(ins.inputs) > 0 {
			sb.WriteByte('(')
			for i, input := range ins.inputs {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%%%d", positions[input])
			}
			sb.WriteByte(')')
		}
		if ins.shape.Ok() {
			fmt.Fprintf(&sb, " -> %s", ins.shape)
		}
		if ins.stream != NoStream {
			fmt.Fprintf(&sb, " {stream=%d", ins.stream)
			if ins.HasEvents(RecordEvent) {
				sb.WriteString(",record")
			}
			if ins.HasEvents(WaitEvent) {
				sb.WriteString(",wait")
			}
			sb.WriteByte('}')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
