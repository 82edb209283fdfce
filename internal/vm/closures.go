package vm

import "sparrow/internal/heap"

// makeClosure implements LOADCLS/CLOSURE (spec §4.F.8): allocate a Closure
// over the A'th Proto of the current Component's Module, then resolve each
// upvalue descriptor against either the creating frame's stack (Embed) or
// the enclosing closure's own upvalue array (Detach).
func (rt *Runtime) makeClosure(t *Thread, f *Frame, protoIdx int) {
	proto := rt.comp.Mod.Protos[protoIdx]
	cl := rt.Heap.NewClosure(proto)
	installEmbeddedUpvalues(rt, cl, f.Closure, f.Base)
	t.push(cl.Box())
}

// installEmbeddedUpvalues resolves proto's upvalue descriptors into cl's
// cell array. enclosing is the Closure whose frame is creating cl (nil for
// a top-level Execute call, where only Embed descriptors referring to that
// call's own argument slots would make sense and Detach is never emitted
// by a correct builder).
func installEmbeddedUpvalues(rt *Runtime, cl *heap.Closure, enclosing *heap.Closure, base int) {
	t := rt.current
	for i, desc := range cl.Proto.Upvalues {
		switch desc.State {
		case heap.Embed:
			idx := base + desc.Slot
			cl.Upvalues[i] = embedCell(t, idx)
		case heap.Detach:
			if enclosing != nil && desc.Slot < len(enclosing.Upvalues) {
				cl.Upvalues[i] = enclosing.Upvalues[desc.Slot]
			} else {
				cl.Upvalues[i] = &heap.UpvalueCell{}
			}
		}
	}
}

// embedCell aliases a live stack slot. Because Thread.Stack is a Go slice
// that can reallocate on growth, a raw *Value into it would dangle; instead
// the cell's backing Value is the single source of truth once opened, and
// Thread.openUpvalues lets MOVE/LOADV on that same slot index go through
// the cell instead of the (possibly stale) slice element, so sibling
// closures capturing the same not-yet-closed local share writes (spec
// §4.F.8).
func embedCell(t *Thread, idx int) *heap.UpvalueCell {
	for idx >= len(t.Stack) {
		t.push(heap.Null())
	}
	if cell, ok := t.openUpvalues[idx]; ok {
		return cell
	}
	cell := &heap.UpvalueCell{}
	v := t.Stack[idx]
	cell.Value = &v
	t.openUpvalues[idx] = cell
	return cell
}
