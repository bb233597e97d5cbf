package heap

import (
	"encoding/binary"

	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// NewCons allocates a boxed (car, cdr) pair.
func (h *Heap) NewCons(car, cdr rtvalue.Any) rtvalue.Any {
	box := h.AllocSlots(h.reg.Cons, 2)
	box.Slots[0] = car
	box.Slots[1] = cdr
	return rtvalue.Any{Type: h.reg.BoxedCons, Ref: &rtvalue.Ref{Box: box}}
}

// NewArray allocates a fixed-length array of length elements of elemType,
// all initialized to nil.
func (h *Heap) NewArray(elemType *rttype.Type, length int) rtvalue.Any {
	arrType := h.reg.Array(elemType, length)
	box := h.AllocSlots(arrType, length)
	return rtvalue.Any{Type: h.reg.Boxed(arrType), Ref: &rtvalue.Ref{Box: box}}
}

// NewUnsizedArray allocates an unsized-array box (spec.md §3.5) whose
// concrete length is fixed at allocation time but not encoded in the
// type; slot 0 carries the length, slots 1..length carry the elements.
// Allocating zero elements is legal and yields a box whose length slot
// reads 0 (spec.md §8.2).
func (h *Heap) NewUnsizedArray(elemType *rttype.Type, length int) rtvalue.Any {
	arrType := h.reg.Array(elemType, 0)
	box := h.AllocSlots(arrType, length+1)
	box.Slots[0] = rtvalue.NewU64(h.reg, uint64(length))
	return rtvalue.Any{Type: h.reg.Boxed(arrType), Ref: &rtvalue.Ref{Box: box}}
}

// ArrayLen returns the element count of an array Any, whether sized or
// unsized.
func ArrayLen(a rtvalue.Any) (int, bool) {
	if a.Ref == nil || a.Ref.Box == nil || a.Type == nil || a.Type.BoxType == nil {
		return 0, false
	}
	arrType := a.Type.BoxType
	if arrType.Kind != rttype.KindArray {
		return 0, false
	}
	if arrType.Size != 0 {
		return len(a.Ref.Box.Slots), true
	}
	if len(a.Ref.Box.Slots) == 0 {
		return 0, false
	}
	n, ok := rtvalue.ToU64(a.Ref.Box.Slots[0])
	return int(n), ok
}

// ArrayGet and ArraySet index an array Any, accounting for the unsized
// array's leading length slot.
func ArrayGet(a rtvalue.Any, i int) (rtvalue.Any, bool) {
	idx, box, ok := arraySlot(a, i)
	if !ok {
		return rtvalue.Nil, false
	}
	return box.Slots[idx], true
}

func ArraySet(a rtvalue.Any, i int, v rtvalue.Any) bool {
	idx, box, ok := arraySlot(a, i)
	if !ok {
		return false
	}
	box.Slots[idx] = v
	return true
}

func arraySlot(a rtvalue.Any, i int) (int, *rtvalue.Box, bool) {
	if a.Ref == nil || a.Ref.Box == nil || a.Type == nil || a.Type.BoxType == nil {
		return 0, nil, false
	}
	arrType := a.Type.BoxType
	base := 0
	if arrType.Size == 0 {
		base = 1
	}
	idx := base + i
	if i < 0 || idx >= len(a.Ref.Box.Slots) {
		return 0, nil, false
	}
	return idx, a.Ref.Box, true
}

// NewString allocates a NUL-terminated, length-prefixed string box.
func (h *Heap) NewString(s string) rtvalue.Any {
	b := []byte(s)
	box := h.AllocBytes(h.reg.String, 8+len(b)+1)
	binary.LittleEndian.PutUint64(box.Bytes[0:8], uint64(len(b)))
	copy(box.Bytes[8:], b)
	box.Bytes[8+len(b)] = 0
	return rtvalue.Any{Type: h.reg.BoxedString, Ref: &rtvalue.Ref{Box: box}}
}

// StringText reads a string Any's bytes back out as a Go string.
func StringText(a rtvalue.Any) (string, bool) {
	if a.Ref == nil || a.Ref.Box == nil || len(a.Ref.Box.Bytes) < 8 {
		return "", false
	}
	box := a.Ref.Box
	n := binary.LittleEndian.Uint64(box.Bytes[0:8])
	if 8+n > uint64(len(box.Bytes)) {
		return "", false
	}
	return string(box.Bytes[8 : 8+n]), true
}

func IsString(a rtvalue.Any) bool {
	return a.Type != nil && a.Type.Kind == rttype.KindPtr && a.Type.BoxType != nil &&
		a.Type.BoxType.Name == "string"
}

// NewFunc allocates a boxed closure: a Func-kind box (spec.md §3.5)
// carrying the compiled body opaquely in Box.Native, never as Any slots
// or bytes, since the body is process-owned AST rather than runtime data
// the collector needs to trace into.
func (h *Heap) NewFunc(funcType *rttype.Type, body any) rtvalue.Any {
	box := &rtvalue.Box{Type: funcType, Native: body}
	h.linkBox(box)
	return rtvalue.Any{Type: h.reg.Boxed(funcType), Ref: &rtvalue.Ref{Box: box}}
}

// FuncBody returns the opaque payload NewFunc stored, or nil if a is not
// a boxed function value.
func FuncBody(a rtvalue.Any) any {
	if a.Ref == nil || a.Ref.Box == nil {
		return nil
	}
	return a.Ref.Box.Native
}

func IsFunc(a rtvalue.Any) bool {
	return a.Type != nil && a.Type.Kind == rttype.KindPtr && a.Type.BoxType != nil &&
		a.Type.BoxType.Kind == rttype.KindFunc
}
