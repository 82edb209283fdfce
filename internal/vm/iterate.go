package vm

import (
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// forPrep implements FORPREP (spec §4.F.7): inspect TOS, build an Iterator
// wrapping it by type, push the Iterator, and jump past the body (by a) if
// it is already empty.
func (rt *Runtime) forPrep(t *Thread, skipOffset int) error {
	src := t.pop()
	it, err := rt.buildIterator(src)
	if err != nil {
		return err
	}
	t.push(it.Box())
	if !it.HasNext() {
		f := t.curFrame()
		f.PC += skipOffset
	}
	return nil
}

func (rt *Runtime) buildIterator(src heap.Value) (*heap.Iterator, error) {
	if !heap.IsPointer(src) {
		return nil, iterUnsupported(src)
	}
	switch heap.ObjectKind(src) {
	case heap.KindString:
		s := heap.AsString(src)
		i := 0
		it := rt.Heap.NewIterator(src)
		it.HasNext = func() bool { return i < s.Length }
		it.Deref = func() (heap.Value, heap.Value) {
			return heap.Number(float64(i)), rt.Heap.Intern(s.Bytes[i : i+1])
		}
		it.Move = func() { i++ }
		return it, nil
	case heap.KindList:
		l := heap.AsList(src)
		i := 0
		it := rt.Heap.NewIterator(src)
		it.HasNext = func() bool { return i < l.Size }
		it.Deref = func() (heap.Value, heap.Value) {
			v, _ := heap.ListGet(l, i)
			return heap.Number(float64(i)), v
		}
		it.Move = func() { i++ }
		return it, nil
	case heap.KindMap:
		m := heap.AsMap(src)
		slot := 0
		it := rt.Heap.NewIterator(src)
		advance := func() {
			for slot < len(m.Slots) && (!m.Slots[slot].Used || m.Slots[slot].Deleted) {
				slot++
			}
		}
		advance()
		it.HasNext = func() bool { return slot < len(m.Slots) }
		it.Deref = func() (heap.Value, heap.Value) {
			s := &m.Slots[slot]
			return s.Key.Box(), s.Value
		}
		it.Move = func() { slot++; advance() }
		return it, nil
	case heap.KindLoop:
		l := heap.AsLoop(src)
		li := rt.Heap.NewLoopIterator(l)
		it := rt.Heap.NewIterator(src)
		it.HasNext = func() bool {
			if l.Step >= 0 {
				return li.Cursor < l.End
			}
			return li.Cursor > l.End
		}
		it.Deref = func() (heap.Value, heap.Value) {
			v := heap.Number(float64(li.Cursor))
			return v, v
		}
		it.Move = func() { li.Cursor += l.Step }
		return it, nil
	case heap.KindUdata:
		u := heap.AsUdata(src)
		if u.Meta == nil || u.Meta.Iter == nil {
			return nil, iterUnsupported(src)
		}
		return u.Meta.Iter(src)
	}
	return nil, iterUnsupported(src)
}

func iterUnsupported(v heap.Value) error {
	return serr.New(serr.IteratorUnsupported, "value of type %s is not iterable", heap.Type(v))
}

// forLoop implements FORLOOP: advance the iterator at TOS, jumping back to
// the header (by subtracting a, the unbiased distance from the header to
// the end of FORLOOP) while it still has elements, and popping the
// iterator once it is exhausted.
func (rt *Runtime) forLoop(t *Thread, f *Frame, backOffset int) {
	it := heap.AsIterator(t.top())
	it.Move()
	if it.HasNext() {
		f.PC -= backOffset
	} else {
		t.pop()
	}
}

func (rt *Runtime) idRefK(t *Thread) {
	it := heap.AsIterator(t.top())
	k, _ := it.Deref()
	t.push(k)
}

func (rt *Runtime) idRefKV(t *Thread) {
	it := heap.AsIterator(t.top())
	k, v := it.Deref()
	t.push(k)
	t.push(v)
}
