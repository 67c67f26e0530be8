package ops

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types/shapes"
)

// StreamSelector is implemented by target contexts that can switch the
// current submission stream.
type StreamSelector interface {
	SelectStream(stream int)
}

// StreamProvisioner is implemented by target contexts that allocate device
// streams ahead of execution.
type StreamProvisioner interface {
	EnsureStreams(n int)
}

// SetStream is a placeholder instruction that switches the current stream
// for subsequently submitted operations. It needs the target context to run,
// so it is deliberately not context-free.
type SetStream struct {
	Stream int
}

func (op SetStream) Name() string { return "set_stream" }

func (op SetStream) ComputeShape(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) == 0 {
		return shapes.Shape{}, nil
	}
	return inputs[0], nil
}

func (op SetStream) ComputeWithContext(ctx ir.Context, output shapes.Shape, args []ir.Argument) (ir.Argument, error) {
	if selector, ok := ctx.(StreamSelector); ok {
		selector.SelectStream(op.Stream)
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return ir.Argument{}, nil
}

func (op SetStream) Finalize(ctx ir.Context, output shapes.Shape, inputs []shapes.Shape) error {
	if provisioner, ok := ctx.(StreamProvisioner); ok {
		provisioner.EnsureStreams(op.Stream + 1)
	}
	return nil
}

func (op SetStream) Reflect(visit ir.FieldVisitor) {
	visit("stream", op.Stream)
}
