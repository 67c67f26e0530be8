package ir

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Pass rewrites a Program in place. Passes run single-threaded and must
// leave the Program satisfying all invariants; the pass driver validates
// after each one.
type Pass interface {
	Name() string
	Apply(p *Program) error
}

// Target describes an accelerator to compile for: it names the ordered pass
// list and supplies the opaque Context threaded into compute and finalize.
type Target interface {
	Name() string
	GetPasses(ctx Context) []Pass
	GetContext() Context
}

// PassError wraps a failure inside a named pass. It matches both ErrPass and
// the underlying error kind with errors.Is.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("pass %s: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() []error { return []error{ErrPass, e.Err} }

// Compile lowers the Program for the target: obtains the context, runs the
// target's passes in order, validates the invariants after each, then runs
// every operator's finalize step. Pass panics are caught and reported as
// *PassError.
func (p *Program) Compile(target Target) error {
	ctx := target.GetContext()
	passes := target.GetPasses(ctx)
	session := uuid.NewString()
	klog.V(1).Infof("compile %s: %d passes for target %q over %d instructions",
		session, len(passes), target.Name(), p.Len())
	for _, pass := range passes {
		err := exceptions.TryCatch[error](func() {
			if applyErr := pass.Apply(p); applyErr != nil {
				panic(applyErr)
			}
		})
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			return &PassError{Pass: pass.Name(), Err: err}
		}
		klog.V(2).Infof("compile %s: pass %s done, %d instructions", session, pass.Name(), p.Len())
	}
	for ins := range p.Instructions() {
		if !HasFinalize(ins.op) {
			continue
		}
		if err := Finalize(ins.op, ctx, ins.shape, shapesOf(ins.inputs)); err != nil {
			return &PassError{Pass: "finalize:" + ins.Name(), Err: err}
		}
	}
	return nil
}
