package ir

import (
	"fmt"
	"slices"

	"github.com/graphyx/graphyx/types/shapes"
)

// EventMask marks stream barriers on an instruction.
type EventMask uint8

const (
	// RecordEvent publishes an event when the instruction completes.
	RecordEvent EventMask = 1 << iota
	// WaitEvent stalls the instruction until the most recent record on a
	// dominating predecessor of a different stream has been observed.
	WaitEvent
)

// NoStream marks an instruction not yet assigned to an execution stream.
const NoStream = -1

// Instruction is one node of a Program: an operator value, the cached output
// shape, the input edges and their output back-edges, plus device scheduling
// state (stream id, event mask).
//
// Instructions are owned by their Program and only mutated through the
// Program's editing primitives. A *Instruction is a stable ref: it survives
// insertion and removal of other instructions and dies with its own removal.
type Instruction struct {
	op    Operator
	shape shapes.Shape

	inputs  []*Instruction
	outputs []*Instruction

	literal   *Literal
	paramName string

	stream int
	events EventMask

	prev, next *Instruction
	owner      *Program
}

// Op returns the instruction's operator value.
func (ins *Instruction) Op() Operator { return ins.op }

// Name returns the operator name.
func (ins *Instruction) Name() string { return ins.op.Name() }

// Shape is the cached output shape, always equal to the operator's shape
// inference over the current inputs.
func (ins *Instruction) Shape() shapes.Shape { return ins.shape }

// Inputs are the instructions this one reads, in operator argument order.
// The returned slice is owned by the instruction; callers must not mutate it.
func (ins *Instruction) Inputs() []*Instruction { return ins.inputs }

// Outputs are the instructions reading this one, in first-use order, without
// duplicates. The returned slice is owned by the instruction.
func (ins *Instruction) Outputs() []*Instruction { return ins.outputs }

// Literal returns the baked-in value for @literal instructions, else nil.
func (ins *Instruction) Literal() *Literal { return ins.literal }

// IsParameter reports whether this is an @param instruction.
func (ins *Instruction) IsParameter() bool { return ins.op.Name() == ParamName }

// ParameterName returns the parameter name, or "" for non-parameters.
func (ins *Instruction) ParameterName() string { return ins.paramName }

// Stream returns the execution stream id, NoStream if unassigned.
func (ins *Instruction) Stream() int { return ins.stream }

// SetStream assigns the instruction to an execution stream.
func (ins *Instruction) SetStream(stream int) { ins.stream = stream }

// Events returns the instruction's event mask.
func (ins *Instruction) Events() EventMask { return ins.events }

// AddEvents sets the given barrier bits.
func (ins *Instruction) AddEvents(mask EventMask) { ins.events |= mask }

// HasEvents reports whether all bits of mask are set.
func (ins *Instruction) HasEvents(mask EventMask) bool { return ins.events&mask == mask }

// Valid reports whether the instruction still belongs to a Program.
func (ins *Instruction) Valid() bool { return ins.owner != nil }

// String renders the operator and shape, without graph context; see
// Program.String for the full listing.
func (ins *Instruction) String() string {
	if ins.paramName != "" {
		return fmt.Sprintf("%s:%s -> %s", ins.Name(), ins.paramName, ins.shape)
	}
	if !ins.shape.Ok() {
		return OpString(ins.op)
	}
	return fmt.Sprintf("%s -> %s", OpString(ins.op), ins.shape)
}

// addOutput records user as a reader, keeping the output set duplicate-free.
func (ins *Instruction) addOutput(user *Instruction) {
	if !slices.Contains(ins.outputs, user) {
		ins.outputs = append(ins.outputs, user)
	}
}

// removeOutput drops user from the output set if user no longer lists ins as
// an input.
func (ins *Instruction) removeOutput(user *Instruction) {
	if slices.Contains(user.inputs, ins) {
		return
	}
	if i := slices.Index(ins.outputs, user); i >= 0 {
		ins.outputs = slices.Delete(ins.outputs, i, i+1)
	}
}
