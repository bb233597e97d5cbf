package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slangrt/pkg/heap"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

func TestAllocLinksOntoBoxList(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	require.Equal(t, 0, h.BoxCount())
	h.NewCons(rtvalue.Nil, rtvalue.Nil)
	h.NewCons(rtvalue.Nil, rtvalue.Nil)
	assert.Equal(t, 2, h.BoxCount())
	assert.Equal(t, 2, h.AllocCount())
}

func TestCollectFreesUnreachable(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	var freed []*rtvalue.Box
	h.SetFreeHook(func(b *rtvalue.Box) { freed = append(freed, b) })

	kept := h.NewCons(rtvalue.NewI64(reg, 1), rtvalue.Nil)
	h.NewCons(rtvalue.NewI64(reg, 2), rtvalue.Nil) // never rooted

	pop := h.PushRoots(&kept)
	h.Collect()
	pop()

	assert.Equal(t, 1, h.BoxCount(), "only the rooted cons should survive")
	assert.Len(t, freed, 1, "exactly the unrooted cons should be freed")
}

func TestCollectKeepsTransitivelyReachable(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	tail := h.NewCons(rtvalue.NewI64(reg, 2), rtvalue.Nil)
	head := h.NewCons(rtvalue.NewI64(reg, 1), tail)

	pop := h.PushRoots(&head)
	h.Collect()
	pop()

	require.Equal(t, 2, h.BoxCount(), "both cons cells reachable through head must survive")
}

func TestCollectClearsDeadWeakRefs(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	target := h.NewCons(rtvalue.NewI64(reg, 9), rtvalue.Nil)
	weak := rtvalue.Weak(reg, target)

	// Only the weak copy is rooted; the strong one goes out of scope.
	pop := h.PushRoots(&weak)
	h.Collect()
	pop()

	assert.True(t, weak.IsNil(), "a weak reference to a collected box must read back as nil")
}

func TestCollectKeepsWeakRefAliveIfStrongStillRooted(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	target := h.NewCons(rtvalue.NewI64(reg, 9), rtvalue.Nil)
	weak := rtvalue.Weak(reg, target)

	pop := h.PushRoots(&target, &weak)
	h.Collect()
	pop()

	assert.False(t, weak.IsNil(), "a weak reference must survive while a strong root keeps the box alive")
}

func TestCollectTracesArrayElements(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	elemType := reg.Boxed(reg.Cons)
	arr := h.NewArray(elemType, 2)
	inner := h.NewCons(rtvalue.NewI64(reg, 5), rtvalue.Nil)
	heap.ArraySet(arr, 0, inner)

	pop := h.PushRoots(&arr)
	h.Collect()
	pop()

	assert.Equal(t, 2, h.BoxCount(), "the array box and the cons it references must both survive")
}

func TestCollectKeepsWholeBoxAliveThroughInteriorPointer(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	// A two-field struct of plain scalars: nothing about the fields
	// themselves needs tracing, but the box holding them must still
	// survive as long as anything points into it, even at a non-zero
	// offset (spec.md §8.3 scenario 6).
	pointType := reg.Struct("point", 2, []rttype.StructField{
		{Type: reg.I64, Name: "x", Offset: 0},
		{Type: reg.I64, Name: "y", Offset: 1},
	})
	box := h.AllocSlots(pointType, 2)
	box.Slots[0] = rtvalue.NewI64(reg, 10)
	box.Slots[1] = rtvalue.NewI64(reg, 20)

	// Interior pointer into the "y" field, offset 1 into the box.
	interior := rtvalue.Any{
		Type: reg.BoxPtr(reg.I64, pointType, 1),
		Ref:  &rtvalue.Ref{Box: box},
	}

	var freed []*rtvalue.Box
	h.SetFreeHook(func(b *rtvalue.Box) { freed = append(freed, b) })

	pop := h.PushRoots(&interior)
	h.Collect()
	pop()

	assert.Equal(t, 1, h.BoxCount(), "the whole box must survive through an interior pointer alone")
	assert.Empty(t, freed, "an interior-pointer-rooted box must not be freed")

	x, ok := rtvalue.ToI64(box.Slots[0])
	require.True(t, ok)
	assert.Equal(t, int64(10), x, "fields other than the one pointed to must remain intact")
}

func TestAddRootSourceIsConsulted(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	kept := h.NewCons(rtvalue.NewI64(reg, 1), rtvalue.Nil)
	h.AddRootSource(func() []rtvalue.Any { return []rtvalue.Any{kept} })

	h.NewCons(rtvalue.NewI64(reg, 2), rtvalue.Nil) // unrooted
	h.Collect()

	assert.Equal(t, 1, h.BoxCount(), "a value returned by an extra root source must survive collection")
}

func TestSourceMapKeysIsConsulted(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)

	kept := h.NewCons(rtvalue.NewI64(reg, 1), rtvalue.Nil)
	h.SourceMapKeys = func() []rtvalue.Any { return []rtvalue.Any{kept} }

	h.NewCons(rtvalue.NewI64(reg, 2), rtvalue.Nil)
	h.Collect()

	assert.Equal(t, 1, h.BoxCount())
}

func TestCollectionsCounterIncrements(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	require.Equal(t, 0, h.Collections())
	h.Collect()
	h.Collect()
	assert.Equal(t, 2, h.Collections())
}

func TestFreeAllReclaimsEverything(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	kept := h.NewCons(rtvalue.NewI64(reg, 1), rtvalue.Nil)
	_ = h.PushRoots(&kept)
	h.FreeAll()
	assert.Equal(t, 0, h.BoxCount())
}
