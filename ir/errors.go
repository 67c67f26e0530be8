package ir

import "github.com/pkg/errors"

// Error kinds surfaced by the compiler. Callers match them with errors.Is;
// the wrapped message carries the operator or pass name and the anchor
// instruction.
var (
	// ErrInvalidShape reports that shape inference rejected its inputs:
	// wrong rank, axis out of range, or a non-standard shape where a
	// standard one is required.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrEdge reports a graph edit that would violate Program invariants:
	// unknown instruction ref, cycle, or arity mismatch.
	ErrEdge = errors.New("invalid graph edit")

	// ErrNotComputable reports an operator without a compute method
	// suitable for the call site.
	ErrNotComputable = errors.New("not computable")

	// ErrBadCast reports a structural cast to the wrong concrete operator
	// type.
	ErrBadCast = errors.New("bad operator cast")

	// ErrPass wraps a failure inside a compiler pass.
	ErrPass = errors.New("pass failed")

	// ErrRuntime reports a compute failure during evaluation.
	ErrRuntime = errors.New("runtime compute failed")
)
