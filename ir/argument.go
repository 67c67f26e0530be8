package ir

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/graphyx/graphyx/types/shapes"
)

// Argument is a typed buffer reference: a Shape plus the bytes it addresses.
//
// An owning Argument (NewArgument) holds freshly allocated storage. A view
// (ViewArgument) wraps a window of storage supplied by the caller, e.g. a
// slice of the scratch parameter; views share mutation with their base.
type Argument struct {
	shape shapes.Shape
	data  []byte
	view  bool
}

// NewArgument allocates zeroed storage for the given shape.
func NewArgument(shape shapes.Shape) Argument {
	return Argument{shape: shape, data: make([]byte, shape.Bytes())}
}

// ViewArgument wraps caller-supplied storage without copying. The buffer must
// cover the shape's byte extent.
func ViewArgument(shape shapes.Shape, data []byte) Argument {
	if len(data) < shape.Bytes() {
		exceptions.Panicf("ir.ViewArgument: buffer of %d bytes cannot back shape %s (%d bytes)",
			len(data), shape, shape.Bytes())
	}
	return Argument{shape: shape, data: data[:shape.Bytes()], view: true}
}

// shapeOnlyArgument is used for placeholder results (outlines) that carry a
// shape but no storage.
func shapeOnlyArgument(shape shapes.Shape) Argument {
	return Argument{shape: shape}
}

// Shape of the buffer.
func (a Argument) Shape() shapes.Shape { return a.shape }

// Data returns the raw bytes. Views return the shared window.
func (a Argument) Data() []byte { return a.data }

// Ok reports whether the argument has a valid shape.
func (a Argument) Ok() bool { return a.shape.Ok() }

// IsView reports whether the argument borrows caller storage.
func (a Argument) IsView() bool { return a.view }

// Float32s reinterprets the raw buffer as float32 values.
func (a Argument) Float32s() []float32 {
	if len(a.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.data[0])), len(a.data)/4)
}

// Equal compares shapes and the logically addressed elements. Views and
// owning arguments compare equal when they present the same values through
// the same shape.
func (a Argument) Equal(b Argument) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	if a.shape.Standard() {
		return bytes.Equal(a.data, b.data)
	}
	elem := a.shape.ElementBytes()
	for _, offset := range a.shape.Iter() {
		at := offset * elem
		if !bytes.Equal(a.data[at:at+elem], b.data[at:at+elem]) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (a Argument) String() string {
	kind := "argument"
	if a.view {
		kind = "view"
	}
	return fmt.Sprintf("%s{%s, %d bytes}", kind, a.shape, len(a.data))
}
