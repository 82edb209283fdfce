package heap

import "testing"

func TestListPushPop(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	for i := 0; i < 10; i++ {
		ListPush(l, Number(float64(i)))
	}
	if l.Size != 10 {
		t.Fatalf("Size = %d, want 10", l.Size)
	}
	for i := 9; i >= 0; i-- {
		v, err := ListPop(l)
		if err != nil {
			t.Fatal(err)
		}
		if AsNumber(v) != float64(i) {
			t.Fatalf("pop order mismatch: got %v want %v", AsNumber(v), i)
		}
	}
	if _, err := ListPop(l); err == nil {
		t.Fatal("popping an empty list should error")
	}
}

func TestListAmplifiedDoublingGrowth(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	ListPush(l, Number(1))
	if cap(l.Data) != listInitialCap {
		t.Fatalf("initial cap = %d, want %d", cap(l.Data), listInitialCap)
	}
	for i := 0; i < 20; i++ {
		ListPush(l, Number(float64(i)))
	}
	// capacity must always be a power-of-two-ish doubling of the initial 2
	c := cap(l.Data)
	for c > listInitialCap {
		if c%2 != 0 {
			t.Fatalf("capacity %d is not a doubling of %d", cap(l.Data), listInitialCap)
		}
		c /= 2
	}
}

func TestListSetAutoExtendsWithNull(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	if err := ListSet(l, 3, Number(9)); err != nil {
		t.Fatal(err)
	}
	if l.Size != 4 {
		t.Fatalf("Size = %d, want 4", l.Size)
	}
	for i := 0; i < 3; i++ {
		v, _ := ListGet(l, i)
		if !IsNull(v) {
			t.Fatalf("slot %d should be Null-filled", i)
		}
	}
	v, _ := ListGet(l, 3)
	if AsNumber(v) != 9 {
		t.Fatal("assigned slot should hold the assigned value")
	}
}

func TestListGetOutOfRange(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	ListPush(l, Number(1))
	if _, err := ListGet(l, 5); err == nil {
		t.Fatal("expected IndexOutOfRange error")
	}
}

func TestListExtend(t *testing.T) {
	h := NewHeap(nil)
	a := h.NewList()
	b := h.NewList()
	ListPush(a, Number(1))
	ListPush(b, Number(2))
	ListPush(b, Number(3))
	ListExtend(a, b)
	if a.Size != 3 {
		t.Fatalf("Size = %d, want 3", a.Size)
	}
	v1, _ := ListGet(a, 1)
	v2, _ := ListGet(a, 2)
	if AsNumber(v1) != 2 || AsNumber(v2) != 3 {
		t.Fatal("extended elements out of order")
	}
}

func TestListResize(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	ListPush(l, Number(1))
	ListPush(l, Number(2))
	ListResize(l, 1)
	if l.Size != 1 {
		t.Fatalf("Size = %d, want 1", l.Size)
	}
	ListResize(l, 4)
	if l.Size != 4 {
		t.Fatalf("Size = %d, want 4", l.Size)
	}
	v, _ := ListGet(l, 3)
	if !IsNull(v) {
		t.Fatal("grown slots should be Null")
	}
}

func TestListSlice(t *testing.T) {
	h := NewHeap(nil)
	l := h.NewList()
	for i := 0; i < 5; i++ {
		ListPush(l, Number(float64(i)))
	}
	s, err := ListSlice(h, l, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 2 {
		t.Fatalf("Size = %d, want 2", s.Size)
	}
	v0, _ := ListGet(s, 0)
	if AsNumber(v0) != 1 {
		t.Fatal("slice should start at the requested offset")
	}
	if _, err := ListSlice(h, l, 3, 10); err == nil {
		t.Fatal("out-of-range slice should error")
	}
}
