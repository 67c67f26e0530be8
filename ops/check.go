// Package ops implements the concrete operators of the compiler: the reshape
// family, transpose, concat, dot, elementwise math, and the planning ops
// (allocate, load) plus the stream placeholder.
//
// Operators are small value types. They implement ir.Operator and whichever
// capability interfaces apply (ir.Computer, ir.OutputAliaser, …); reference
// computes cover Float32 buffers, enough to exercise the runtime contract.
package ops

import (
	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// check accumulates shape-inference validations for one operator call. The
// first failed check sticks; Err returns it wrapped with the operator name.
type check struct {
	op     string
	inputs []shapes.Shape
	err    error
}

func checkShapes(op string, inputs []shapes.Shape) *check {
	return &check{op: op, inputs: inputs}
}

func (c *check) fail(format string, args ...any) *check {
	if c.err == nil {
		c.err = errors.Wrapf(ir.ErrInvalidShape, c.op+": "+format, args...)
	}
	return c
}

// Has requires an exact input count.
func (c *check) Has(n int) *check {
	if c.err == nil && len(c.inputs) != n {
		c.fail("expected %d inputs, got %d", n, len(c.inputs))
	}
	return c
}

// HasAtLeast requires a minimum input count.
func (c *check) HasAtLeast(n int) *check {
	if c.err == nil && len(c.inputs) < n {
		c.fail("expected at least %d inputs, got %d", n, len(c.inputs))
	}
	return c
}

// SameDType requires all inputs to share one element type.
func (c *check) SameDType() *check {
	if c.err != nil || len(c.inputs) == 0 {
		return c
	}
	for _, s := range c.inputs[1:] {
		if s.DType != c.inputs[0].DType {
			return c.fail("mismatched element types %s and %s", c.inputs[0].DType, s.DType)
		}
	}
	return c
}

// SameRank requires all inputs to share one rank.
func (c *check) SameRank() *check {
	if c.err != nil || len(c.inputs) == 0 {
		return c
	}
	for _, s := range c.inputs[1:] {
		if s.Rank() != c.inputs[0].Rank() {
			return c.fail("mismatched ranks %d and %d", c.inputs[0].Rank(), s.Rank())
		}
	}
	return c
}

// SameDims requires all inputs to share dtype and dimensions.
func (c *check) SameDims() *check {
	if c.err != nil || len(c.inputs) == 0 {
		return c
	}
	for _, s := range c.inputs[1:] {
		if !s.EqualDims(c.inputs[0]) {
			return c.fail("mismatched shapes %s and %s", c.inputs[0], s)
		}
	}
	return c
}

// Standard requires every input to be standard (packed, row-major).
func (c *check) Standard() *check {
	if c.err != nil {
		return c
	}
	for _, s := range c.inputs {
		if !s.Standard() {
			return c.fail("requires standard input, got %s", s)
		}
	}
	return c
}

// Err returns the first failed validation, or nil.
func (c *check) Err() error { return c.err }
