package heap

import "testing"

func TestValueTags(t *testing.T) {
	if !IsNull(Null()) {
		t.Fatal("Null() is not IsNull")
	}
	if !IsBool(True()) || !IsBool(False()) {
		t.Fatal("True()/False() are not IsBool")
	}
	if AsBool(True()) != true || AsBool(False()) != false {
		t.Fatal("AsBool mismatch")
	}
	if !IsNumber(Number(3.5)) {
		t.Fatal("Number() is not IsNumber")
	}
	if AsNumber(Number(3.5)) != 3.5 {
		t.Fatal("AsNumber roundtrip mismatch")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null(), false},
		{False(), false},
		{True(), true},
		{Number(0), true},
		{Number(-1), true},
	}
	for _, c := range cases {
		if Truthy(c.v) != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, Truthy(c.v), c.want)
		}
	}
}

func TestEqualPrimitive(t *testing.T) {
	if !EqualPrimitive(Null(), Null()) {
		t.Fatal("Null should equal Null")
	}
	if EqualPrimitive(Null(), False()) {
		t.Fatal("Null should not equal False")
	}
	if !EqualPrimitive(Number(1), Number(1)) {
		t.Fatal("equal numbers should compare equal")
	}
}

func TestInternPointerIdentity(t *testing.T) {
	h := NewHeap(nil)
	a := h.Intern([]byte("hello"))
	b := h.Intern([]byte("hello"))
	if uint64(a) != uint64(b) {
		t.Fatal("interning the same short string twice should return the same Value")
	}
	c := h.Intern([]byte("different"))
	if uint64(a) == uint64(c) {
		t.Fatal("interning distinct strings should return distinct Values")
	}
}

func TestInternLargeStringBypassesPool(t *testing.T) {
	h := NewHeap(nil)
	big := make([]byte, 600)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	a := h.Intern(big)
	b := h.Intern(append([]byte(nil), big...))
	if uint64(a) == uint64(b) {
		t.Fatal("two separately-allocated >=512 byte strings must not share identity")
	}
	if !Equal(a, b) {
		t.Fatal("content-equal large strings should still be Equal")
	}
}

func TestPrintNumber(t *testing.T) {
	if got := Print(Number(4)); got != "4" {
		t.Errorf("Print(4) = %q, want 4", got)
	}
	if got := Print(Number(1.5)); got != "1.5000" {
		t.Errorf("Print(1.5) = %q, want 1.5000", got)
	}
}

func TestTypeNames(t *testing.T) {
	h := NewHeap(nil)
	if Type(Null()) != "null" || Type(True()) != "boolean" || Type(Number(1)) != "number" {
		t.Fatal("unexpected primitive type name")
	}
	s := h.Intern([]byte("x"))
	if Type(s) != "string" {
		t.Errorf("Type(string) = %q, want string", Type(s))
	}
	l := h.NewListValue()
	if Type(l) != "list" {
		t.Errorf("Type(list) = %q, want list", Type(l))
	}
}
