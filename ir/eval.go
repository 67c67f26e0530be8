package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuntimeError reports a compute failure during evaluation, anchored at the
// failing instruction. It matches both ErrRuntime and the underlying kind.
type RuntimeError struct {
	Ins *Instruction
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Ins.String(), e.Err)
}

func (e *RuntimeError) Unwrap() []error { return []error{ErrRuntime, e.Err} }

// Eval runs the Program's reference interpreter: every instruction is
// computed in order through the operator dispatch, parameters are taken from
// the given map, literals from their baked-in values. It returns the result
// of the final instruction.
//
// Eval is synchronous; stream and event state only models device ordering
// and does not change results here.
func (p *Program) Eval(ctx Context, params map[string]Argument) (Argument, error) {
	results := make(map[*Instruction]Argument, p.Len())
	var last Argument
	for ins := range p.Instructions() {
		var arg Argument
		switch {
		case ins.IsParameter():
			supplied, found := params[ins.paramName]
			if !found {
				return Argument{}, &RuntimeError{Ins: ins,
					Err: errors.Errorf("parameter %q was not supplied", ins.paramName)}
			}
			if !supplied.Shape().EqualDims(ins.shape) {
				return Argument{}, &RuntimeError{Ins: ins,
					Err: errors.Errorf("parameter %q supplied as %s, declared %s",
						ins.paramName, supplied.Shape(), ins.shape)}
			}
			arg = supplied
		case ins.literal != nil:
			arg = ins.literal.Argument()
		default:
			args := make([]Argument, len(ins.inputs))
			for i, input := range ins.inputs {
				args[i] = results[input]
			}
			computed, err := ComputeWithContext(ins.op, ctx, ins.shape, args)
			if err != nil {
				return Argument{}, &RuntimeError{Ins: ins, Err: err}
			}
			arg = computed
		}
		results[ins] = arg
		last = arg
	}
	return last, nil
}
