package ir

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/graphyx/graphyx/types/shapes"
)

// Context is opaque per-target state (device queues, stream tables, …)
// threaded through compute and finalize. Targets define the concrete type;
// the compiler core never inspects it.
type Context any

// Operator is the action an Instruction performs. Implementations are small
// value types; rewriting an instruction always installs a fresh value, so an
// operator held by one instruction is never mutated through another.
//
// Beyond the required methods, an operator may implement any of the optional
// capability interfaces below (Computer, ContextComputer, OutputAliaser,
// Finalizer, Reflectable); the free functions of this package detect them by
// interface assertion and provide the defaults.
type Operator interface {
	// Name uniquely identifies the operation.
	Name() string

	// ComputeShape infers the output shape from the input shapes. It must
	// wrap ErrInvalidShape when the inputs are rejected.
	ComputeShape(inputs []shapes.Shape) (shapes.Shape, error)
}

// Computer is implemented by operators that can run without a Context.
type Computer interface {
	Compute(output shapes.Shape, args []Argument) (Argument, error)
}

// ContextComputer is implemented by operators that need target state to run.
type ContextComputer interface {
	ComputeWithContext(ctx Context, output shapes.Shape, args []Argument) (Argument, error)
}

// OutputAliaser is implemented by operators whose output shares storage with
// one of their inputs. OutputAlias returns the aliased input index, or -1.
type OutputAliaser interface {
	OutputAlias(inputs []shapes.Shape) int
}

// Finalizer is implemented by operators that prepare target state after
// compilation, before the first run.
type Finalizer interface {
	Finalize(ctx Context, output shapes.Shape, inputs []shapes.Shape) error
}

// FieldVisitor receives one configurable operator field at a time.
type FieldVisitor func(name string, value any)

// Reflectable is implemented by operators with configurable fields. The
// fields enumerated by Reflect are the sole source for printing and
// structural equality, so the two can never drift apart.
type Reflectable interface {
	Reflect(visit FieldVisitor)
}

// IsContextFree reports whether op can compute without a Context.
func IsContextFree(op Operator) bool {
	_, ok := op.(Computer)
	return ok
}

// HasFinalize reports whether op has a finalize step.
func HasFinalize(op Operator) bool {
	_, ok := op.(Finalizer)
	return ok
}

// OutputAlias returns the input index the operator's output aliases, or -1.
func OutputAlias(op Operator, inputs []shapes.Shape) int {
	if aliaser, ok := op.(OutputAliaser); ok {
		return aliaser.OutputAlias(inputs)
	}
	return -1
}

// Finalize runs the operator's finalize step, if any.
func Finalize(op Operator, ctx Context, output shapes.Shape, inputs []shapes.Shape) error {
	if f, ok := op.(Finalizer); ok {
		return f.Finalize(ctx, output, inputs)
	}
	return nil
}

// ComputeWithContext runs the operator, preferring its context-taking
// compute and falling back to the context-free one.
func ComputeWithContext(op Operator, ctx Context, output shapes.Shape, args []Argument) (Argument, error) {
	if computer, ok := op.(ContextComputer); ok {
		return computer.ComputeWithContext(ctx, output, args)
	}
	if computer, ok := op.(Computer); ok {
		return computer.Compute(output, args)
	}
	return Argument{}, errors.Wrapf(ErrNotComputable, "operator %s", op.Name())
}

// Compute runs the operator without a Context. Operators that only offer a
// context-taking compute fail here.
func Compute(op Operator, output shapes.Shape, args []Argument) (Argument, error) {
	if computer, ok := op.(Computer); ok {
		return computer.Compute(output, args)
	}
	if _, ok := op.(ContextComputer); ok {
		return Argument{}, errors.Wrapf(ErrNotComputable, "operator %s requires a context", op.Name())
	}
	return Argument{}, errors.Wrapf(ErrNotComputable, "operator %s", op.Name())
}

// As casts an Operator to its concrete type T, failing with ErrBadCast.
func As[T Operator](op Operator) (T, error) {
	if concrete, ok := op.(T); ok {
		return concrete, nil
	}
	var zero T
	return zero, errors.Wrapf(ErrBadCast, "operator %s is not %T", op.Name(), zero)
}

type opField struct {
	name  string
	value any
}

func reflectFields(op Operator) []opField {
	reflectable, ok := op.(Reflectable)
	if !ok {
		return nil
	}
	var fields []opField
	reflectable.Reflect(func(name string, value any) {
		fields = append(fields, opField{name: name, value: value})
	})
	return fields
}

// OpString renders an operator as `name[field1=v1,field2=v2]`; the bracket
// suffix is omitted for operators without reflected fields.
func OpString(op Operator) string {
	fields := reflectFields(op)
	if len(fields) == 0 {
		return op.Name()
	}
	var sb strings.Builder
	sb.WriteString(op.Name())
	for i, field := range fields {
		if i == 0 {
			sb.WriteByte('[')
		} else {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%v", field.name, field.value)
	}
	sb.WriteByte(']')
	return sb.String()
}

// OpEqual compares two operators structurally: equal names and equal
// reflected field tuples.
func OpEqual(a, b Operator) bool {
	if a.Name() != b.Name() {
		return false
	}
	return reflect.DeepEqual(reflectFields(a), reflectFields(b))
}
