// Package heap implements the per-task allocator and precise mark-and-
// sweep garbage collector (spec.md §4.3): alloc links a new box onto the
// task's allocation list; collect traces the root chain through type
// descriptors, resolves weak edges, then sweeps and frees unreachable
// boxes.
package heap

import (
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// rootFrame is one link in the root chain: spec.md §6.2's "stack-frame
// record" adapted to a slice of live Any locations instead of a raw
// void** array with an accompanying type list — every root in this
// implementation is a *rtvalue.Any, which already carries its own
// dynamic type, so a parallel type array is unnecessary.
type rootFrame struct {
	prev  *rootFrame
	roots []*rtvalue.Any
}

// Heap is a task's GC state: the allocation list, the root-frame chain,
// and the implicit root providers. The weak-reference sites recorded
// during a mark live only for that Collect call (see collectState).
type Heap struct {
	reg   *rttype.Registry
	boxes *rtvalue.Box
	top   *rootFrame

	allocCount int
	collections int

	freeHook func(*rtvalue.Box)

	// SourceMapKeys, when set, supplies the current module's source-map
	// keyset as an additional implicit root set (spec.md §4.3.2): the
	// cons pointers used as hash-map keys must be marked so the keys
	// themselves survive a collection even if nothing else in the
	// program still references them.
	SourceMapKeys func() []rtvalue.Any

	// extraRootSources supplements the explicit root-frame chain with
	// other implicit root sets a host keeps outside of it — notably an
	// Evaluator's toplevel global bindings, which must outlive any
	// collection run after the `(def ...)` that created them even though
	// spec.md's root-set ABI (§6.2) has no frame for them. Added via
	// AddRootSource rather than a second named field like SourceMapKeys
	// because a host may have more than one such source (globals,
	// pending REPL results, ...).
	extraRootSources []func() []rtvalue.Any
}

// AddRootSource registers an additional implicit root provider, consulted
// on every Collect alongside the root-frame chain and SourceMapKeys.
func (h *Heap) AddRootSource(fn func() []rtvalue.Any) {
	h.extraRootSources = append(h.extraRootSources, fn)
}

// New constructs a Heap bound to the given type registry.
func New(reg *rttype.Registry) *Heap {
	return &Heap{reg: reg}
}

// Registry returns the type registry this heap allocates descriptors
// from.
func (h *Heap) Registry() *rttype.Registry { return h.reg }

// SetFreeHook installs a callback invoked for every box the next sweep
// reclaims, in place of outright dropping the reference. Tests use this
// to observe exactly which boxes a collection freed.
func (h *Heap) SetFreeHook(fn func(*rtvalue.Box)) { h.freeHook = fn }

func (h *Heap) linkBox(b *rtvalue.Box) {
	b.SetNext(h.boxes)
	h.boxes = b
	h.allocCount++
}

// AllocCount returns the total number of boxes ever allocated on this
// heap, regardless of whether they have since been freed. Diagnostic
// only, used by the CLI's gc-stats command.
func (h *Heap) AllocCount() int { return h.allocCount }

// Collections returns the number of completed Collect() cycles.
func (h *Heap) Collections() int { return h.collections }

// AllocSlots allocates a box of n Any-slots, for any composite value the
// collector must trace: cons cells, structs, and arrays.
func (h *Heap) AllocSlots(typ *rttype.Type, n int) *rtvalue.Box {
	b := &rtvalue.Box{Type: typ, Slots: make([]rtvalue.Any, n)}
	h.linkBox(b)
	return b
}

// AllocBytes allocates a box of n raw bytes, for leaf payloads the
// collector never needs to trace into (strings, symbols).
func (h *Heap) AllocBytes(typ *rttype.Type, n int) *rtvalue.Box {
	b := &rtvalue.Box{Type: typ, Bytes: make([]byte, n)}
	h.linkBox(b)
	return b
}

// PushRoots registers roots as live for the duration of the returned pop
// function, mirroring spec.md §5's stack-frame pattern: "a frame pushes
// by storing ctx.roots as its own next pointer and overwriting
// ctx.roots; a frame pops by restoring." Callers are expected to defer
// the returned function.
func (h *Heap) PushRoots(roots ...*rtvalue.Any) (pop func()) {
	prev := h.top
	h.top = &rootFrame{prev: prev, roots: roots}
	return func() { h.top = prev }
}

// BoxCount walks the allocation list and returns the number of live
// (not-yet-swept) boxes. Intended for diagnostics (the CLI's gc-stats
// command), not for use on any hot path.
func (h *Heap) BoxCount() int {
	n := 0
	for b := h.boxes; b != nil; b = b.Next() {
		n++
	}
	return n
}

// FreeAll reclaims every allocated box regardless of reachability. Used
// when a task ends.
func (h *Heap) FreeAll() {
	h.freeBoxes(h.boxes)
	h.boxes = nil
}

func (h *Heap) freeBoxes(list *rtvalue.Box) {
	for b := list; b != nil; {
		next := b.Next()
		if h.freeHook != nil {
			h.freeHook(b)
		}
		b.SetNext(nil)
		b = next
	}
}
