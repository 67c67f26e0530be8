// Package match is the declarative pattern DSL of the rewrite engine.
//
// A Matcher tests one instruction and, on success, yields the instruction it
// landed on — usually the anchor itself, but combinators like Arg descend
// the graph and yield where they arrived, so shape relations can be stated
// between positions (see SameShape).
//
// Direction is explicit in each combinator's name: the *Input variants walk
// the inputs of the anchor, the *Output variants walk its users.
package match

import (
	"github.com/graphyx/graphyx/ir"
	"github.com/graphyx/graphyx/types"
)

// Matcher tests an instruction, returning the instruction the pattern landed
// on and whether it matched.
type Matcher func(ins *ir.Instruction) (*ir.Instruction, bool)

// Result of a successful match: the anchor instruction the pattern fired on.
type Result struct {
	Ins *ir.Instruction
}

// Finder pairs a pattern with the rewrite applied at each match site.
// Apply must leave the Program satisfying all invariants.
type Finder interface {
	Matcher() Matcher
	Apply(p *ir.Program, r Result)
}

// Find tries each finder's pattern on ins, in order; the first one that
// matches has its Apply invoked and the remaining finders are skipped.
// Failing to match is not an error.
func Find(p *ir.Program, ins *ir.Instruction, finders ...Finder) {
	for _, finder := range finders {
		if _, ok := finder.Matcher()(ins); ok {
			finder.Apply(p, Result{Ins: ins})
			return
		}
	}
}

// Any matches every instruction.
func Any() Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) { return ins, true }
}

// Name matches instructions whose operator name is one of the given names.
func Name(names ...string) Matcher {
	return NameSet(types.SetWith(names...))
}

// NameSet matches instructions whose operator name belongs to the set.
func NameSet(names types.Set[string]) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		return ins, names.Has(ins.Name())
	}
}

// All matches when every sub-matcher matches the same instruction.
func All(ms ...Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, m := range ms {
			if _, ok := m(ins); !ok {
				return nil, false
			}
		}
		return ins, true
	}
}

// AnyOf matches when at least one sub-matcher matches the instruction.
func AnyOf(ms ...Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, m := range ms {
			if _, ok := m(ins); ok {
				return ins, true
			}
		}
		return nil, false
	}
}

// NoneOf matches when no sub-matcher matches the instruction.
func NoneOf(ms ...Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, m := range ms {
			if _, ok := m(ins); ok {
				return nil, false
			}
		}
		return ins, true
	}
}

// Arg descends to input i of the anchor and applies the sub-matchers there;
// it yields the input. With no sub-matchers it just requires the input to
// exist.
func Arg(i int, ms ...Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		inputs := ins.Inputs()
		if i < 0 || i >= len(inputs) {
			return nil, false
		}
		input := inputs[i]
		for _, m := range ms {
			if _, ok := m(input); !ok {
				return nil, false
			}
		}
		return input, true
	}
}

// SameShape matches when every sub-matcher matches and yields an
// instruction with exactly the anchor's shape (strides included).
func SameShape(ms ...Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, m := range ms {
			landed, ok := m(ins)
			if !ok || !landed.Shape().Equal(ins.Shape()) {
				return nil, false
			}
		}
		return ins, true
	}
}

// SameInputShapes matches when all inputs of the anchor share one shape.
func SameInputShapes() Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		inputs := ins.Inputs()
		if len(inputs) == 0 {
			return nil, false
		}
		for _, input := range inputs[1:] {
			if !input.Shape().Equal(inputs[0].Shape()) {
				return nil, false
			}
		}
		return ins, true
	}
}

// TransposeShape matches instructions producing a transposed view.
func TransposeShape() Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		return ins, ins.Shape().Transposed()
	}
}

// StandardShape matches instructions producing a standard shape.
func StandardShape() Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		return ins, ins.Shape().Standard()
	}
}

// AnyInput matches when some input of the anchor matches m.
func AnyInput(m Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, input := range ins.Inputs() {
			if landed, ok := m(input); ok {
				return landed, true
			}
		}
		return nil, false
	}
}

// AllInputs matches when the anchor has inputs and every one matches m.
func AllInputs(m Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		inputs := ins.Inputs()
		if len(inputs) == 0 {
			return nil, false
		}
		for _, input := range inputs {
			if _, ok := m(input); !ok {
				return nil, false
			}
		}
		return ins, true
	}
}

// AnyOutput matches when some user of the anchor matches m.
func AnyOutput(m Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, user := range ins.Outputs() {
			if landed, ok := m(user); ok {
				return landed, true
			}
		}
		return nil, false
	}
}

// AllOutputs matches when the anchor has users and every one matches m.
func AllOutputs(m Matcher) Matcher {
	return func(ins *ir.Instruction) (*ir.Instruction, bool) {
		users := ins.Outputs()
		if len(users) == 0 {
			return nil, false
		}
		for _, user := range users {
			if _, ok := m(user); !ok {
				return nil, false
			}
		}
		return ins, true
	}
}

// SkipOutput walks down through users for as long as they match skip, and
// matches if any user reached that way matches inner. A user matching both
// is taken by inner first.
func SkipOutput(skip, inner Matcher) Matcher {
	var walk func(ins *ir.Instruction) (*ir.Instruction, bool)
	walk = func(ins *ir.Instruction) (*ir.Instruction, bool) {
		for _, user := range ins.Outputs() {
			if landed, ok := inner(user); ok {
				return landed, true
			}
			if _, ok := skip(user); ok {
				if landed, ok := walk(user); ok {
					return landed, true
				}
			}
		}
		return nil, false
	}
	return walk
}
