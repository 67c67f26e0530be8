// Package irtest provides tiny operators and helpers shared by the compiler
// test suites: pass-through ops with and without standard-shape
// requirements, a no-op, and allocation builders.
package irtest

import (
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/ops"
	"github.com/graphyx/graphyx/types/shapes"
)

// PassOp forwards its first input and writes through it: the output aliases
// argument 0, which is how device kernels that fill a pre-allocated buffer
// look to the planner.
type PassOp struct{}

func (op PassOp) Name() string { return "pass" }

func (op PassOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) == 0 {
		return shapes.Shape{}, nil
	}
	return inputs[0], nil
}

func (op PassOp) OutputAlias(inputs []shapes.Shape) int {
	if len(inputs) == 0 {
		return -1
	}
	return 0
}

func (op PassOp) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	if len(args) == 0 {
		return ir.Argument{}, nil
	}
	return args[0], nil
}

// PassStandardOp is PassOp restricted to standard inputs; it rejects strided
// views at shape-inference time.
type PassStandardOp struct{}

func (op PassStandardOp) Name() string { return "pass_standard" }

func (op PassStandardOp) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	for _, s := range inputs {
		if !s.Standard() {
			return shapes.Shape{}, errors.Wrapf(ir.ErrInvalidShape, "%s requires standard input, got %s", op.Name(), s)
		}
	}
	if len(inputs) == 0 {
		return shapes.Shape{}, nil
	}
	return inputs[0], nil
}

func (op PassStandardOp) OutputAlias(inputs []shapes.Shape) int {
	if len(inputs) == 0 {
		return -1
	}
	return 0
}

func (op PassStandardOp) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	if len(args) == 0 {
		return ir.Argument{}, nil
	}
	return args[0], nil
}

// Nop does nothing and produces nothing.
type Nop struct{}

func (op Nop) Name() string { return "nop" }

func (op Nop) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	return shapes.Shape{}, nil
}

func (op Nop) Compute(output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	return ir.Argument{}, nil
}

// AddAlloc appends an outline/allocate pair reserving the given shape, the
// way device lowerings emit buffer reservations.
func AddAlloc(p *ir.Program, s shapes.Shape) *ir.Instruction {
	outline := p.AddOutline(s)
	return p.AddInstruction(ops.Allocate{}, outline)
}

// NoAllocate reports whether the program has no allocate instructions left.
func NoAllocate(p *ir.Program) bool {
	for ins := range p.Instructions() {
		if ins.Name() == "allocate" {
			return false
		}
	}
	return true
}

// CountInstructions returns the number of instructions in the program.
func CountInstructions(p *ir.Program) int { return p.Len() }
