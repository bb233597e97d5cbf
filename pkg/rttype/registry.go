package rttype

import (
	"fmt"
	"sync"

	"slangrt/pkg/rterr"
)

// Registry is a uniquifying interner for type descriptors. It maintains
// separate interning buckets per constructor family, matching the layout
// of the original C runtime's rt_type_index (one linked list per family);
// here each bucket is a slice scanned linearly, since the number of
// distinct descriptors a program creates is small and lookup is not on
// any hot path at runtime (only during parsing/compilation).
type Registry struct {
	mu sync.Mutex

	simple  []*Type
	ptr     []*Type
	boxPtr  []*Type
	weakPtr []*Type
	array   []*Type
	structs []*Type
	funcs   []*Type

	// Shorthands, resolved once at construction.
	Any, Nil *Type

	U8, U16, U32, U64 *Type
	I8, I16, I32, I64 *Type
	F32, F64          *Type
	Bool              *Type

	Cons, BoxedCons           *Type
	String, BoxedString       *Type
	Symbol, PtrSymbol         *Type
}

func invalid(format string, args ...any) {
	rterr.Fatalf("rttype: invalid descriptor request: "+format, args...)
}

// NewRegistry constructs a registry preloaded with the primitive type
// shorthands (spec.md §6.5: any, nil, u8..u64, i8..i64, f32, f64, bool,
// cons — plus string/symbol, needed by every Reader and by the parser's
// own resolution of "cons").
func NewRegistry() *Registry {
	r := &Registry{}
	r.Any = r.Simple(KindAny, 0)
	r.Nil = r.Simple(KindNil, 0)

	r.U8 = r.Simple(KindUnsigned, 1)
	r.U16 = r.Simple(KindUnsigned, 2)
	r.U32 = r.Simple(KindUnsigned, 4)
	r.U64 = r.Simple(KindUnsigned, 8)

	r.I8 = r.Simple(KindSigned, 1)
	r.I16 = r.Simple(KindSigned, 2)
	r.I32 = r.Simple(KindSigned, 4)
	r.I64 = r.Simple(KindSigned, 8)

	r.F32 = r.Simple(KindReal, 4)
	r.F64 = r.Simple(KindReal, 8)

	r.Bool = r.Simple(KindBool, 1)

	r.Cons = r.Struct("cons", 2, []StructField{
		{Type: r.Any, Name: "car", Offset: 0},
		{Type: r.Any, Name: "cdr", Offset: 1},
	})
	r.BoxedCons = r.Boxed(r.Cons)

	r.String = r.Struct("string", 0, []StructField{
		{Type: r.U64, Name: "length", Offset: 0},
		{Type: r.Array(r.U8, 0), Name: "bytes", Offset: 1},
	})
	r.BoxedString = r.Boxed(r.String)

	r.Symbol = r.Struct("symbol", 0, []StructField{
		{Type: r.U64, Name: "length", Offset: 0},
		{Type: r.Array(r.U8, 0), Name: "bytes", Offset: 1},
	})
	r.PtrSymbol = r.Ptr(r.Symbol)
	return r
}

// Simple returns the (possibly newly-interned) descriptor for a scalar
// kind, Any, Nil or Type. width is the scalar byte-width (1, 2, 4 or 8)
// and is ignored for Any/Nil/Type.
func (r *Registry) Simple(kind Kind, width int) *Type {
	if kind == KindAny || kind == KindNil || kind == KindType {
		width = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.simple {
		if t.Kind == kind && t.Width == width {
			return t
		}
	}

	t := &Type{Kind: kind, Width: width, Size: 1}
	switch kind {
	case KindAny:
		t.Flags |= FlagNeedsGCMark
	case KindNil, KindBool, KindSigned, KindUnsigned, KindReal, KindType:
		// scalar kinds never reference a box
	default:
		invalid("Simple does not accept kind %s", kind)
	}
	t.Desc = scalarName(kind, width)
	r.simple = append(r.simple, t)
	return t
}

// Ptr returns a non-box pointer descriptor targeting target. Non-box
// pointers may address the stack or externally-owned memory and are not
// traced into by the collector beyond following Target.
func (r *Registry) Ptr(target *Type) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.ptr {
		if t.Target == target {
			return t
		}
	}
	t := &Type{Kind: KindPtr, Size: 1, Target: target}
	if target.NeedsGCMark() {
		t.Flags |= FlagNeedsGCMark
	}
	t.Desc = fmt.Sprintf("ptr[%s]", target.Desc)
	r.ptr = append(r.ptr, t)
	return t
}

// BoxPtr returns an interior (or outermost, when boxOffset == 0 and
// boxType == target) pointer into GC-managed memory.
func (r *Registry) BoxPtr(target, boxType *Type, boxOffset int) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.boxPtr {
		if t.Target == target && t.BoxType == boxType && t.BoxOffset == boxOffset {
			return t
		}
	}
	t := &Type{
		Kind:      KindPtr,
		Size:      1,
		Target:    target,
		BoxType:   boxType,
		BoxOffset: boxOffset,
		Flags:     FlagNeedsGCMark,
	}
	t.Desc = fmt.Sprintf("boxptr[%s+%d]", target.Desc, boxOffset)
	r.boxPtr = append(r.boxPtr, t)
	return t
}

// Boxed returns the outermost pointer into a fresh box of target.
func (r *Registry) Boxed(target *Type) *Type {
	return r.BoxPtr(target, target, 0)
}

// Weak returns the weak counterpart of a box pointer descriptor. Weak-of-
// weak is idempotent: it returns ptrType unchanged.
func (r *Registry) Weak(ptrType *Type) *Type {
	if ptrType.Kind != KindPtr || ptrType.BoxType == nil {
		invalid("Weak requires a box pointer, got %s", ptrType.Desc)
	}
	if ptrType.IsWeak() {
		return ptrType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.weakPtr {
		if t.Target == ptrType.Target && t.BoxType == ptrType.BoxType && t.BoxOffset == ptrType.BoxOffset {
			return t
		}
	}
	t := &Type{
		Kind:      KindPtr,
		Size:      1,
		Target:    ptrType.Target,
		BoxType:   ptrType.BoxType,
		BoxOffset: ptrType.BoxOffset,
		Flags:     FlagNeedsGCMark | FlagWeakPtr,
	}
	t.Desc = fmt.Sprintf("weak %s", ptrType.Desc)
	r.weakPtr = append(r.weakPtr, t)
	return t
}

// WeakBoxed returns weak(boxed(target)).
func (r *Registry) WeakBoxed(target *Type) *Type {
	return r.Weak(r.Boxed(target))
}

// Array returns the descriptor for an array of length elements of elem.
// length == 0 denotes an unsized array (length carried in the box
// prefix at runtime); elem must itself be sized.
func (r *Registry) Array(elem *Type, length int) *Type {
	if elem.Size == 0 {
		invalid("array element type %s must be sized", elem.Desc)
	}
	size := 0
	if length != 0 {
		size = length * elem.Size
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.array {
		if t.Size == size && t.Elem == elem {
			return t
		}
	}
	t := &Type{Kind: KindArray, Size: size, Elem: elem}
	if elem.NeedsGCMark() {
		t.Flags |= FlagNeedsGCMark
	}
	n := "?"
	if length != 0 {
		n = fmt.Sprintf("%d", length)
	} else {
		n = "0"
	}
	t.Desc = fmt.Sprintf("array[%s %s]", elem.Desc, n)
	r.array = append(r.array, t)
	return t
}

// BoxedArray returns boxed(array(elem, length)).
func (r *Registry) BoxedArray(elem *Type, length int) *Type {
	return r.Boxed(r.Array(elem, length))
}

// Struct returns a struct descriptor canonicalized by (name, size,
// field-count, per-field (type, name, offset)). If size == 0 the trailing field must
// itself be unsized; otherwise every field must be sized and all
// non-terminal fields must be non-zero sized.
func (r *Registry) Struct(name string, size int, fields []StructField) *Type {
	for i, f := range fields {
		last := i == len(fields)-1
		if !last && f.Type.Size == 0 {
			invalid("struct %q: non-terminal field %q is unsized", name, f.Name)
		}
		if last {
			if size == 0 && f.Type.Size != 0 {
				invalid("struct %q: size 0 requires unsized trailing field %q", name, f.Name)
			}
			if size != 0 && f.Type.Size == 0 {
				invalid("struct %q: sized struct requires sized trailing field %q", name, f.Name)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.structs {
		if t.Name != name || t.Size != size || len(t.Fields) != len(fields) {
			continue
		}
		same := true
		for i := range fields {
			a, b := t.Fields[i], fields[i]
			if a.Type != b.Type || a.Name != b.Name || a.Offset != b.Offset {
				same = false
				break
			}
		}
		if same {
			return t
		}
	}

	t := &Type{Kind: KindStruct, Size: size, Name: name, Fields: append([]StructField(nil), fields...)}
	for _, f := range fields {
		if f.Type.NeedsGCMark() {
			t.Flags |= FlagNeedsGCMark
		}
	}
	if name != "" {
		t.Desc = fmt.Sprintf("struct %s", name)
	} else {
		t.Desc = fmt.Sprintf("struct{%d}", size)
	}
	r.structs = append(r.structs, t)
	return t
}

// Func returns a function-type descriptor.
func (r *Registry) Func(ret *Type, params []FuncParam) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.funcs {
		if t.Return != ret || len(t.Params) != len(params) {
			continue
		}
		same := true
		for i := range params {
			if t.Params[i].Type != params[i].Type || t.Params[i].Name != params[i].Name {
				same = false
				break
			}
		}
		if same {
			return t
		}
	}

	t := &Type{Kind: KindFunc, Size: 1, Return: ret, Params: append([]FuncParam(nil), params...)}
	names := ""
	for i, p := range params {
		if i > 0 {
			names += " "
		}
		names += p.Type.Desc
	}
	t.Desc = fmt.Sprintf("func(%s) %s", names, ret.Desc)
	r.funcs = append(r.funcs, t)
	return t
}
