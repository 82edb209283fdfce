package heap

import "sparrow/internal/serr"

// listInitialCap is the first non-zero capacity a List grows to (spec §4.C).
const listInitialCap = 2

// growList implements the amplified-doubling policy: start at 2, double
// thereafter, until capacity covers need.
func growList(l *List, need int) {
	cap := cap(l.Data)
	if cap == 0 {
		cap = listInitialCap
	}
	for cap < need {
		cap *= 2
	}
	data := make([]Value, l.Size, cap)
	copy(data, l.Data)
	l.Data = data
}

// ListPush appends v, growing if necessary.
func ListPush(l *List, v Value) {
	if l.Size == cap(l.Data) {
		growList(l, l.Size+1)
	}
	l.Data = l.Data[:l.Size+1]
	l.Data[l.Size] = v
	l.Size++
}

// ListPop removes and returns the last element.
func ListPop(l *List) (Value, error) {
	if l.Size == 0 {
		return Value(0), serr.New(serr.IndexOutOfRange, "pop from empty list")
	}
	l.Size--
	v := l.Data[l.Size]
	l.Data = l.Data[:l.Size]
	return v, nil
}

// ListGet returns the element at i, spec-erroring on out-of-range access.
func ListGet(l *List, i int) (Value, error) {
	if i < 0 || i >= l.Size {
		return Value(0), serr.New(serr.IndexOutOfRange, "list index %d out of range (size %d)", i, l.Size)
	}
	return l.Data[i], nil
}

// ListSet assigns index i, auto-extending with Null fill when i is beyond
// the current size (spec §4.C).
func ListSet(l *List, i int, v Value) error {
	if i < 0 {
		return serr.New(serr.IndexOutOfRange, "list index %d out of range", i)
	}
	if i >= l.Size {
		if i+1 > cap(l.Data) {
			growList(l, i+1)
		}
		l.Data = l.Data[:i+1]
		for j := l.Size; j < i; j++ {
			l.Data[j] = Null()
		}
		l.Size = i + 1
	}
	l.Data[i] = v
	return nil
}

// ListExtend appends src's elements in O(n+m).
func ListExtend(l *List, src *List) {
	if l.Size+src.Size > cap(l.Data) {
		growList(l, l.Size+src.Size)
	}
	l.Data = l.Data[:l.Size+src.Size]
	copy(l.Data[l.Size:], src.Data[:src.Size])
	l.Size += src.Size
}

// ListResize truncates or Null-fills to size n (spec §4.C).
func ListResize(l *List, n int) {
	if n < 0 {
		n = 0
	}
	if n <= l.Size {
		l.Data = l.Data[:n]
		l.Size = n
		return
	}
	if n > cap(l.Data) {
		growList(l, n)
	}
	l.Data = l.Data[:n]
	for j := l.Size; j < n; j++ {
		l.Data[j] = Null()
	}
	l.Size = n
}

// ListSlice returns a fresh List (allocated through h, so it is GC-tracked)
// sharing Value copies (not heap objects) of l[lo:hi) — a shallow slice per
// spec §4.C.
func ListSlice(h *Heap, l *List, lo, hi int) (*List, error) {
	if lo < 0 || hi > l.Size || lo > hi {
		return nil, serr.New(serr.IndexOutOfRange, "slice [%d:%d) out of range (size %d)", lo, hi, l.Size)
	}
	out := h.NewList()
	n := hi - lo
	out.Data = make([]Value, n)
	copy(out.Data, l.Data[lo:hi])
	out.Size = n
	return out, nil
}
