package rtvalue

import (
	"math"

	"slangrt/pkg/rttype"
)

func maskWidth(v uint64, width int) uint64 {
	switch width {
	case 1:
		return v & 0xff
	case 2:
		return v & 0xffff
	case 4:
		return v & 0xffffffff
	default:
		return v
	}
}

func signExtend(v uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

// ToBool requires a Bool descriptor.
func ToBool(a Any) (bool, bool) {
	if a.Type == nil || a.Type.Kind != rttype.KindBool {
		return false, false
	}
	return a.Scalar != 0, true
}

// ToU64 zero- or sign-extends the payload to uint64 based on the
// descriptor's width.
func ToU64(a Any) (uint64, bool) {
	if a.Type == nil {
		return 0, false
	}
	switch a.Type.Kind {
	case rttype.KindUnsigned, rttype.KindBool:
		return maskWidth(a.Scalar, a.Type.Width), true
	case rttype.KindSigned:
		return uint64(signExtend(a.Scalar, a.Type.Width)), true
	default:
		return 0, false
	}
}

// ToI64 sign- or zero-extends the payload to int64 based on the
// descriptor's width.
func ToI64(a Any) (int64, bool) {
	if a.Type == nil {
		return 0, false
	}
	switch a.Type.Kind {
	case rttype.KindSigned:
		return signExtend(a.Scalar, a.Type.Width), true
	case rttype.KindUnsigned, rttype.KindBool:
		return int64(maskWidth(a.Scalar, a.Type.Width)), true
	default:
		return 0, false
	}
}

// ToF64 converts a scalar payload to float64.
func ToF64(a Any) (float64, bool) {
	if a.Type == nil {
		return 0, false
	}
	switch a.Type.Kind {
	case rttype.KindReal:
		if a.Type.Width == 4 {
			return float64(math.Float32frombits(uint32(a.Scalar))), true
		}
		return math.Float64frombits(a.Scalar), true
	case rttype.KindSigned:
		v, _ := ToI64(a)
		return float64(v), true
	case rttype.KindUnsigned, rttype.KindBool:
		v, _ := ToU64(a)
		return float64(v), true
	default:
		return 0, false
	}
}

// ToSigned converts an unsigned payload representable in int64 to i64;
// anything else (including values already signed) is returned unchanged.
func ToSigned(reg *rttype.Registry, a Any) Any {
	if a.Type == nil || a.Type.Kind != rttype.KindUnsigned {
		return a
	}
	u, _ := ToU64(a)
	if u > math.MaxInt64 {
		return a
	}
	return Any{Type: reg.I64, Scalar: u}
}

// ToUnsigned converts a non-negative signed payload to u64; anything else
// is returned unchanged.
func ToUnsigned(reg *rttype.Registry, a Any) Any {
	if a.Type == nil || a.Type.Kind != rttype.KindSigned {
		return a
	}
	i, _ := ToI64(a)
	if i < 0 {
		return a
	}
	return Any{Type: reg.U64, Scalar: uint64(i)}
}

func refEquals(a, b *Ref) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Box != nil || b.Box != nil {
		return a.Box == b.Box && a.Offset == b.Offset
	}
	if a.External != nil || b.External != nil {
		return a.External == b.External
	}
	return a.Target == b.Target
}

func isNumeric(k rttype.Kind) bool {
	return k == rttype.KindBool || k == rttype.KindSigned || k == rttype.KindUnsigned || k == rttype.KindReal
}

func numericEqual(a, b Any) bool {
	if a.Type.Kind == rttype.KindReal || b.Type.Kind == rttype.KindReal {
		af, _ := ToF64(a)
		bf, _ := ToF64(b)
		return af == bf
	}
	if a.Type.Kind == rttype.KindSigned {
		ai, _ := ToI64(a)
		bi, _ := ToI64(b)
		return ai == bi
	}
	au, _ := ToU64(a)
	bu, _ := ToU64(b)
	return au == bu
}

// Equals implements the runtime's cross-kind numeric equality: both nil is
// true, one nil is false, differing kinds are unified by promoting to
// unsigned then signed before comparing, pointers compare by address, and
// Func/other kinds never compare equal.
func Equals(reg *rttype.Registry, a, b Any) bool {
	if a.IsNil() && b.IsNil() {
		return true
	}
	if a.IsNil() || b.IsNil() {
		return false
	}

	ka, kb := a.Type.Kind, b.Type.Kind
	if ka != kb && isNumeric(ka) && isNumeric(kb) {
		a2, b2 := ToUnsigned(reg, a), ToUnsigned(reg, b)
		if a2.Type.Kind == b2.Type.Kind {
			a, b, ka, kb = a2, b2, a2.Type.Kind, b2.Type.Kind
		}
	}
	if ka != kb && isNumeric(ka) && isNumeric(kb) {
		a2, b2 := ToSigned(reg, a), ToSigned(reg, b)
		if a2.Type.Kind == b2.Type.Kind {
			a, b, ka, kb = a2, b2, a2.Type.Kind, b2.Type.Kind
		}
	}
	if ka != kb {
		return false
	}

	switch ka {
	case rttype.KindPtr:
		return refEquals(a.Ref, b.Ref)
	case rttype.KindBool, rttype.KindSigned, rttype.KindUnsigned, rttype.KindReal:
		return numericEqual(a, b)
	default:
		return false
	}
}
