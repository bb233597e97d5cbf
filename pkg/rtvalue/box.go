// Package rtvalue implements the tagged runtime value (Any), the GC box
// header it may point into, and the coercion/equality rules primitive
// operations rely on.
package rtvalue

import "slangrt/pkg/rttype"

// Box is a single GC-allocated heap object. Conceptually the header is one
// machine word carrying a mark bit and the "next box" link (spec.md
// §3.4 / §6.3); this implementation keeps those as two ordinary Go fields
// instead of a bit-packed uintptr, because hiding a live Go pointer inside
// a uintptr would make it invisible to the host Go runtime's own
// collector — our GC decides *reachability*; the host GC still owns the
// memory backing a Box and must be able to see every live reference to it.
type Box struct {
	marked bool
	next   *Box

	// Type is the outermost boxed type this box was allocated as.
	Type *rttype.Type

	// Slots holds the payload as a flat sequence of Any values, used for
	// every box allocated through AllocSlots: cons cells, structs and
	// arrays, whether or not their elements can reference other boxes.
	// One slot is one rttype "slot" unit, matching struct/array Offset
	// and Size.
	Slots []Any

	// Bytes holds the payload as a raw byte sequence, used for boxes
	// allocated through AllocBytes: strings. The collector never looks
	// inside a Bytes-backed box — its
	// type disqualifies it at the NeedsGCMark check before any recursion
	// would reach it — so this is a storage-density choice only.
	Bytes []byte

	// Native holds an opaque, process-owned Go payload for boxes whose
	// contents are neither Any slots nor raw bytes: function closures
	// (*ast.Func), whose body is a process-lifetime AST the collector
	// never frees or traces into. The box itself still participates in
	// ordinary alloc/mark/sweep — a closure is reclaimed like any other
	// box once unreachable — only its payload shape is opaque to rtvalue.
	Native any
}

func (b *Box) Marked() bool { return b.marked }
func (b *Box) Mark()        { b.marked = true }
func (b *Box) ClearMark()   { b.marked = false }

// Next and SetNext expose the allocation-list link for the heap package.
func (b *Box) Next() *Box     { return b.next }
func (b *Box) SetNext(n *Box) { b.next = n }

// Ref is the payload of a Ptr-kind Any: either an address into a Box (the
// common case — BoxType set on the descriptor) or, for non-boxed
// pointers, a direct reference to another storage slot.
type Ref struct {
	Box    *Box // non-nil for pointers into GC memory
	Offset int  // slot offset from the box's payload start

	Target *Any // non-nil for a non-boxed pointer at another storage slot

	// External carries identity for a non-boxed pointer whose referent is
	// not runtime-tracked at all (e.g. an interned *symbol.Symbol, which
	// lives for the process lifetime and is never part of the box list).
	// Comparison is by Go interface equality, i.e. by the wrapped pointer.
	External any
}

// Any is the runtime tagged value: a type descriptor plus an inline
// payload wide enough for any scalar or a pointer. The zero Any (Type ==
// nil) is nil, so zero-initialized memory is a valid nil value.
type Any struct {
	Type   *rttype.Type
	Scalar uint64 // raw payload for scalar kinds
	Ref    *Ref   // populated when Type.Kind == rttype.KindPtr
}

// Nil is the canonical nil value.
var Nil = Any{}

func (a Any) IsNil() bool { return a.Type == nil }

// ConsCar and ConsCdr read the two slots of a cons box. The argument must
// be a boxed-cons Any (Type.Target.Kind == KindStruct, name "cons").
func ConsCar(a Any) Any {
	if a.Ref == nil || a.Ref.Box == nil {
		return Nil
	}
	return a.Ref.Box.Slots[0]
}

func ConsCdr(a Any) Any {
	if a.Ref == nil || a.Ref.Box == nil {
		return Nil
	}
	return a.Ref.Box.Slots[1]
}

func IsCons(a Any) bool {
	return a.Type != nil && a.Type.Kind == rttype.KindPtr && a.Type.BoxType != nil &&
		a.Type.BoxType.Kind == rttype.KindStruct && a.Type.BoxType.Name == "cons"
}

func IsSymbol(a Any) bool {
	return a.Type != nil && a.Type.Kind == rttype.KindPtr && a.Type.BoxType == nil &&
		a.Type.Target != nil && a.Type.Target.Name == "symbol"
}
