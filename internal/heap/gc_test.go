package heap

import "testing"

// rootList is a RootProvider whose Roots slice the test controls directly,
// standing in for the interpreter stack/frames/Component the real vm
// package supplies.
type rootList struct {
	Roots []Value
}

func (r *rootList) MarkRoots(mark func(Value)) {
	for _, v := range r.Roots {
		mark(v)
	}
}

func TestGCCollectsUnreachable(t *testing.T) {
	roots := &rootList{}
	h := NewHeap(roots)

	kept := h.NewListValue()
	roots.Roots = []Value{kept}

	_ = h.NewListValue() // unreachable once Collect runs

	before := h.liveCount
	h.Collect()
	if h.liveCount >= before {
		t.Fatalf("expected live count to drop after collecting unreachable objects, before=%d after=%d", before, h.liveCount)
	}

	// The reachable list must have survived with its mark bit cleared so a
	// second collection pass can mark it again.
	o := object(kept)
	if o.Marked {
		t.Fatal("surviving object should have its mark bit cleared after sweep")
	}
}

func TestGCTraversesListAndMapContents(t *testing.T) {
	roots := &rootList{}
	h := NewHeap(roots)

	inner := h.NewList()
	ListPush(inner, Number(42))
	innerV := boxPointer(&inner.Object)

	outer := h.NewList()
	ListPush(outer, innerV)
	roots.Roots = []Value{boxPointer(&outer.Object)}

	h.Collect()

	// Marked is cleared post-sweep; verify survival by confirming the inner
	// list is still linked on the global object list.
	found := false
	for o := h.head; o != nil; o = o.Next {
		if o == &inner.Object {
			found = true
		}
	}
	if !found {
		t.Fatal("list nested inside a reachable list should survive collection")
	}
}

func TestGCUdataDestructorRunsOnSweep(t *testing.T) {
	h := NewHeap(&rootList{})
	destroyed := false
	u := h.NewUdata("handle")
	u.Destructor = func(*Udata) { destroyed = true }

	h.Collect() // nothing roots u
	if !destroyed {
		t.Fatal("unreachable Udata's destructor should run during sweep")
	}
}

func TestGCAdaptiveThresholdGrowsAfterPoorReclaim(t *testing.T) {
	roots := &rootList{}
	h := NewHeap(roots)
	h.threshold = 1
	h.ratio = 0
	h.penaltyRatio = 0.9 // force the poor-reclaim branch even with r=0

	v := h.NewListValue()
	roots.Roots = []Value{v}

	before := h.threshold
	h.Collect()
	if h.threshold <= before {
		t.Fatalf("threshold should grow after a reclaim fraction below penaltyRatio, before=%v after=%v", before, h.threshold)
	}
	if h.penalty == 0 {
		t.Fatal("penalty counter should increment after a poor reclaim")
	}
}
