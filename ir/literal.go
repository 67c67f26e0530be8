package ir

import (
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"github.com/graphyx/graphyx/types/shapes"
)

// Literal is an immutable Argument baked into the Program at build time.
// Literals do not participate in memory planning.
type Literal struct {
	arg Argument
}

// LiteralFromArgument wraps an existing Argument as a literal, e.g. a value
// produced by constant folding.
func LiteralFromArgument(arg Argument) *Literal {
	return &Literal{arg: arg}
}

// LiteralFromFlat builds a literal of the given standard shape from a flat
// row-major slice of values. The value type must match the shape's DType.
func LiteralFromFlat[T dtypes.Supported](shape shapes.Shape, values []T) (*Literal, error) {
	if dt := dtypes.FromGenericsType[T](); dt != shape.DType {
		return nil, errors.Errorf("literal values are %s but shape is %s", dt, shape)
	}
	if len(values) != shape.Size() {
		return nil, errors.Errorf("literal of shape %s needs %d values, got %d", shape, shape.Size(), len(values))
	}
	arg := NewArgument(shape)
	if len(values) > 0 {
		copy(arg.data, unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(arg.data)))
	}
	return &Literal{arg: arg}, nil
}

// GenerateLiteral fills a literal of the given shape with a deterministic
// ramp of values, for tests and examples.
func GenerateLiteral(shape shapes.Shape) *Literal {
	arg := NewArgument(shape)
	n := shape.Size()
	if n == 0 || len(arg.data) == 0 {
		return &Literal{arg: arg}
	}
	switch shape.DType {
	case dtypes.Float32:
		data := unsafe.Slice((*float32)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = float32(i % 97)
		}
	case dtypes.Float64:
		data := unsafe.Slice((*float64)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = float64(i % 97)
		}
	case dtypes.Float16:
		data := unsafe.Slice((*float16.Float16)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = float16.Fromfloat32(float32(i % 97))
		}
	case dtypes.Int32:
		data := unsafe.Slice((*int32)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = int32(i % 97)
		}
	case dtypes.Int64:
		data := unsafe.Slice((*int64)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = int64(i % 97)
		}
	case dtypes.Int8:
		data := unsafe.Slice((*int8)(unsafe.Pointer(&arg.data[0])), n)
		for i := range data {
			data[i] = int8(i % 97)
		}
	default:
		for i := range arg.data {
			arg.data[i] = byte(i % 97)
		}
	}
	return &Literal{arg: arg}
}

// Argument returns the literal's value.
func (l *Literal) Argument() Argument { return l.arg }

// Shape of the literal.
func (l *Literal) Shape() shapes.Shape { return l.arg.Shape() }

// Equal compares shapes and contents.
func (l *Literal) Equal(other *Literal) bool {
	return l.arg.Equal(other.arg)
}

func (l *Literal) String() string { return "literal{" + l.arg.Shape().String() + "}" }
