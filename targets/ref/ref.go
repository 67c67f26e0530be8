// Package ref provides the reference target: a host-side lowering used by
// tests and front-ends. Its context models device streams just enough to
// exercise the set_stream/record/wait contract; compute stays synchronous.
package ref

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/transforms"
)

// DisableMemoryColoringEnv selects the sequential allocation eliminator over
// the coloring planner when set to "1".
const DisableMemoryColoringEnv = "MIGRAPHX_DISABLE_MEMORY_COLORING"

// Context is the reference target's state: the current submission stream and
// the number of provisioned streams.
type Context struct {
	current int
	streams int
}

// SelectStream switches the current submission stream.
func (c *Context) SelectStream(stream int) { c.current = stream }

// EnsureStreams grows the provisioned stream count to at least n.
func (c *Context) EnsureStreams(n int) {
	if n > c.streams {
		c.streams = n
	}
}

// CurrentStream returns the stream selected by the last set_stream.
func (c *Context) CurrentStream() int { return c.current }

// Streams returns the number of provisioned streams.
func (c *Context) Streams() int { return c.streams }

// Target compiles programs for host execution.
type Target struct {
	// Alignment for memory planning, in bytes; 32 when zero.
	Alignment int
}

func (Target) Name() string { return "ref" }

func (Target) GetContext() ir.Context { return &Context{} }

func (t Target) GetPasses(ctx ir.Context) []ir.Pass {
	var planner ir.Pass = transforms.MemoryColoring{Alignment: t.Alignment, Concurrency: true}
	if os.Getenv(DisableMemoryColoringEnv) == "1" {
		klog.V(1).Infof("%s=1: using eliminate_allocation", DisableMemoryColoringEnv)
		planner = transforms.EliminateAllocation{Alignment: t.Alignment}
	}
	return []ir.Pass{
		transforms.SimplifyReshapes{},
		transforms.EliminateContiguous{},
		transforms.DeadCodeElimination{},
		planner,
		transforms.DeadCodeElimination{},
	}
}
