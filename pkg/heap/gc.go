package heap

import (
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// collectState carries the per-collection scratch state: the buffer of
// weak-reference sites encountered during mark (spec.md §4.3.2/§4.3.3).
type collectState struct {
	weak []*rtvalue.Any
}

func (st *collectState) addWeak(a *rtvalue.Any) {
	st.weak = append(st.weak, a)
}

// mark traces a single Any-shaped storage location. Every live value in
// this runtime — root, struct field, or array element — is stored as a
// full rtvalue.Any (see SPEC_FULL.md §5.2's adaptation note), so there is
// no separate "bare pointer" or "bare struct" storage shape to special-
// case the way the original byte-addressed runtime must: the dynamic
// Type on the slot itself is enough to decide what, if anything, to
// follow.
func mark(st *collectState, a *rtvalue.Any) {
	if a.Type == nil || !a.Type.NeedsGCMark() {
		return
	}
	if a.Type.Kind != rttype.KindPtr {
		// Composite values (Struct/Array/Func) never appear as a bare,
		// unboxed Any in this runtime — every cons, array, string and
		// closure is reached through a boxed pointer. See DESIGN.md.
		return
	}
	ref := a.Ref
	if ref == nil {
		return
	}
	if a.Type.BoxType != nil {
		if a.Type.IsWeak() {
			st.addWeak(a)
			return
		}
		if ref.Box == nil {
			return
		}
		markBox(st, ref.Box, a.Type.BoxType)
		return
	}
	// Non-boxed pointer: follows to another Any-shaped slot (stack or
	// externally-owned memory), never to a box.
	if ref.Target != nil {
		mark(st, ref.Target)
	}
}

func markBox(st *collectState, box *rtvalue.Box, boxedType *rttype.Type) {
	if box.Marked() {
		return
	}
	box.Mark()
	if !boxedType.NeedsGCMark() {
		return
	}
	markComposite(st, box, boxedType)
}

func markComposite(st *collectState, box *rtvalue.Box, typ *rttype.Type) {
	start := 0
	if typ.Kind == rttype.KindArray && typ.Size == 0 {
		// Unsized array: slot 0 carries the length, not an element.
		start = 1
	}
	for i := start; i < len(box.Slots); i++ {
		mark(st, &box.Slots[i])
	}
}

// Collect runs one full mark-sweep cycle: mark(roots) -> resolve weak
// edges -> sweep -> free. A box is freed only after every root has been
// visited and every weak edge resolved, so no live pointer ever observes
// a freed referent (spec.md §4.3.4's ordering guarantee).
func (h *Heap) Collect() {
	st := &collectState{}

	for f := h.top; f != nil; f = f.prev {
		for _, r := range f.roots {
			mark(st, r)
		}
	}

	if h.SourceMapKeys != nil {
		for _, key := range h.SourceMapKeys() {
			k := key
			mark(st, &k)
		}
	}
	for _, source := range h.extraRootSources {
		for _, v := range source() {
			k := v
			mark(st, &k)
		}
	}

	for _, slot := range st.weak {
		if slot.Ref != nil && slot.Ref.Box != nil && !slot.Ref.Box.Marked() {
			*slot = rtvalue.Nil
		}
	}

	var live, unreachable *rtvalue.Box
	for cur := h.boxes; cur != nil; {
		next := cur.Next()
		if cur.Marked() {
			cur.ClearMark()
			cur.SetNext(live)
			live = cur
		} else {
			cur.SetNext(unreachable)
			unreachable = cur
		}
		cur = next
	}
	h.boxes = live
	h.freeBoxes(unreachable)
	h.collections++
}
