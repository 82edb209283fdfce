package heap

import "testing"

func TestMapSetGetRoundtrip(t *testing.T) {
	h := NewHeap(nil)
	m := h.NewMap()
	key := h.Intern([]byte("count"))
	ks := (*String)(ptrOf(uint64(key) & ptrMask))

	MapSet(h, m, ks, Number(7))
	v, ok := MapGet(m, ks)
	if !ok || AsNumber(v) != 7 {
		t.Fatalf("MapGet after MapSet = (%v, %v), want (7, true)", v, ok)
	}
}

func TestMapOverwriteExistingKey(t *testing.T) {
	h := NewHeap(nil)
	m := h.NewMap()
	key := h.Intern([]byte("k"))
	ks := (*String)(ptrOf(uint64(key) & ptrMask))

	MapSet(h, m, ks, Number(1))
	MapSet(h, m, ks, Number(2))
	if m.LiveCnt != 1 {
		t.Fatalf("LiveCnt = %d, want 1 (overwrite, not insert)", m.LiveCnt)
	}
	v, _ := MapGet(m, ks)
	if AsNumber(v) != 2 {
		t.Fatal("second MapSet should overwrite the first value")
	}
}

func TestMapDeleteAndTombstoneReuse(t *testing.T) {
	h := NewHeap(nil)
	m := h.NewMap()
	a := h.Intern([]byte("a"))
	b := h.Intern([]byte("b"))
	as := (*String)(ptrOf(uint64(a) & ptrMask))
	bs := (*String)(ptrOf(uint64(b) & ptrMask))

	MapSet(h, m, as, Number(1))
	if !MapDelete(m, as) {
		t.Fatal("delete of present key should report true")
	}
	if _, ok := MapGet(m, as); ok {
		t.Fatal("deleted key should no longer be found")
	}
	if MapDelete(m, as) {
		t.Fatal("deleting an already-deleted key should report false")
	}

	// inserting a new key should be able to reuse the tombstoned slot
	MapSet(h, m, bs, Number(2))
	v, ok := MapGet(m, bs)
	if !ok || AsNumber(v) != 2 {
		t.Fatal("insert after delete should still find the new key")
	}
}

func TestMapGrowsAndRehashes(t *testing.T) {
	h := NewHeap(nil)
	m := h.NewMap()
	keys := make([]*String, 0, 64)
	for i := 0; i < 64; i++ {
		b := []byte{byte('a' + i%26), byte('0' + i/26)}
		v := h.Intern(b)
		ks := (*String)(ptrOf(uint64(v) & ptrMask))
		keys = append(keys, ks)
		MapSet(h, m, ks, Number(float64(i)))
	}
	for i, ks := range keys {
		v, ok := MapGet(m, ks)
		if !ok || AsNumber(v) != float64(i) {
			t.Fatalf("key %d lost after growth: got (%v, %v)", i, v, ok)
		}
	}
}

func TestMapEqualStructural(t *testing.T) {
	h := NewHeap(nil)
	m1 := h.NewMap()
	m2 := h.NewMap()
	k := h.Intern([]byte("x"))
	ks := (*String)(ptrOf(uint64(k) & ptrMask))
	MapSet(h, m1, ks, Number(5))
	MapSet(h, m2, ks, Number(5))
	if !Equal(boxPointer(&m1.Object), boxPointer(&m2.Object)) {
		t.Fatal("maps with identical contents should be structurally Equal")
	}
	MapSet(h, m2, ks, Number(6))
	if Equal(boxPointer(&m1.Object), boxPointer(&m2.Object)) {
		t.Fatal("maps with differing values should not be Equal")
	}
}
