package rtvalue

import (
	"math"

	"slangrt/pkg/rttype"
)

// NewBool wraps a bool with reg.Bool.
func NewBool(reg *rttype.Registry, v bool) Any {
	var s uint64
	if v {
		s = 1
	}
	return Any{Type: reg.Bool, Scalar: s}
}

func NewU8(reg *rttype.Registry, v uint8) Any   { return Any{Type: reg.U8, Scalar: uint64(v)} }
func NewU16(reg *rttype.Registry, v uint16) Any { return Any{Type: reg.U16, Scalar: uint64(v)} }
func NewU32(reg *rttype.Registry, v uint32) Any { return Any{Type: reg.U32, Scalar: uint64(v)} }
func NewU64(reg *rttype.Registry, v uint64) Any { return Any{Type: reg.U64, Scalar: v} }

func NewI8(reg *rttype.Registry, v int8) Any   { return Any{Type: reg.I8, Scalar: uint64(uint8(v))} }
func NewI16(reg *rttype.Registry, v int16) Any { return Any{Type: reg.I16, Scalar: uint64(uint16(v))} }
func NewI32(reg *rttype.Registry, v int32) Any { return Any{Type: reg.I32, Scalar: uint64(uint32(v))} }
func NewI64(reg *rttype.Registry, v int64) Any { return Any{Type: reg.I64, Scalar: uint64(v)} }

func NewF32(reg *rttype.Registry, v float32) Any {
	return Any{Type: reg.F32, Scalar: uint64(math.Float32bits(v))}
}
func NewF64(reg *rttype.Registry, v float64) Any {
	return Any{Type: reg.F64, Scalar: math.Float64bits(v)}
}

// Weak returns the weak counterpart of a box-pointer Any. If the payload
// is not a box pointer (a scalar, nil, or a non-boxed pointer such as a
// symbol), it returns the input unchanged.
func Weak(reg *rttype.Registry, a Any) Any {
	if a.Type == nil || a.Type.Kind != rttype.KindPtr || a.Type.BoxType == nil {
		return a
	}
	return Any{Type: reg.Weak(a.Type), Ref: a.Ref}
}
