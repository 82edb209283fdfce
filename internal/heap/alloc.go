package heap

import "sparrow/internal/bytecode"

// This file holds the factory functions of spec §3.4: each allocates the
// object's body, initializes its GC header, links it onto the global
// object list, and returns a boxed Value ready to push onto the operand
// stack. TriggerGC runs first except in the NoGC variants reserved for
// bootstrap paths (parser table initialization) where no root is yet
// established to keep the fresh object reachable.

// initHeader sets the Kind tag on an already-allocated object's embedded
// Object field and links that same field onto the global list. It must be
// handed &concrete.Object, never a detached Object, so that the mark/sweep
// passes' unsafe.Pointer(o) reinterpretation back to the concrete type
// stays valid (Object is always the struct's first field).
func (h *Heap) initHeader(o *Object, k Kind) {
	o.Kind = k
	h.link(o)
}

// Intern implements spec §4.B's pool lookup-or-insert and returns a boxed
// String Value either way.
func (h *Heap) Intern(b []byte) Value {
	h.TriggerGC()
	s := h.pool.intern(b, h.allocString)
	return boxPointer(&s.Object)
}

func (h *Heap) allocString(b []byte, hash uint32) *String {
	s := &String{Bytes: append(append([]byte(nil), b...), 0), Length: len(b), Hash: hash}
	h.initHeader(&s.Object, KindString)
	return s
}

func (h *Heap) NewList() *List {
	h.TriggerGC()
	l := &List{}
	h.initHeader(&l.Object, KindList)
	return l
}

func (h *Heap) NewListValue() Value {
	return boxPointer(&h.NewList().Object)
}

func (h *Heap) NewMap() *Map {
	h.TriggerGC()
	m := &Map{}
	h.initHeader(&m.Object, KindMap)
	return m
}

func (h *Heap) NewMapValue() Value {
	return boxPointer(&h.NewMap().Object)
}

func (h *Heap) NewProto(name string, code *bytecode.Buffer, argc int, upvalues []UpvalueDesc, src Span) *Proto {
	h.TriggerGC()
	p := &Proto{Name: name, Code: code, Argc: argc, Upvalues: upvalues, Source: src}
	h.initHeader(&p.Object, KindProto)
	return p
}

// NewClosure allocates a Closure over proto, sizing Upvalues to match the
// Proto's descriptor count (spec §3.3 invariant).
func (h *Heap) NewClosure(proto *Proto) *Closure {
	h.TriggerGC()
	c := &Closure{Proto: proto, Upvalues: make([]*UpvalueCell, len(proto.Upvalues))}
	h.initHeader(&c.Object, KindClosure)
	return c
}

func (h *Heap) NewClosureValue(proto *Proto) Value {
	return boxPointer(&h.NewClosure(proto).Object)
}

func (h *Heap) NewMethod(name string, fn NativeFn, receiver Value) *Method {
	h.TriggerGC()
	m := &Method{Name: name, Fn: fn, Receiver: receiver}
	h.initHeader(&m.Object, KindMethod)
	return m
}

func (h *Heap) NewMethodValue(name string, fn NativeFn, receiver Value) Value {
	return boxPointer(&h.NewMethod(name, fn, receiver).Object)
}

func (h *Heap) NewUdata(name string) *Udata {
	h.TriggerGC()
	u := &Udata{Name: name}
	h.initHeader(&u.Object, KindUdata)
	return u
}

func (h *Heap) NewUdataValue(name string) Value {
	return boxPointer(&h.NewUdata(name).Object)
}

func (h *Heap) NewIterator(source Value) *Iterator {
	h.TriggerGC()
	it := &Iterator{Source: source}
	h.initHeader(&it.Object, KindIterator)
	return it
}

func (h *Heap) NewIteratorValue(source Value) Value {
	return boxPointer(&h.NewIterator(source).Object)
}

// NewModule links m onto this Heap's own module ring (spec §3.2) so
// re-import lookups (§4.F.9) can walk it by Path. The ring is per-instance,
// not a process global, matching every other piece of "global" mutable
// state the interpreter owns (string pool, object list, builtin
// environment) — see §9's design note.
func (h *Heap) NewModule(path, source string) *Module {
	h.TriggerGC()
	m := &Module{Path: path, Source: source}
	h.initHeader(&m.Object, KindModule)
	if h.moduleRing != nil {
		m.Next = h.moduleRing
		h.moduleRing.Prev = m
	}
	h.moduleRing = m
	return m
}

// FindModule walks this Heap's module ring for path, supporting the
// "parse-or-lookup a Module" step of import (spec §4.F.9).
func (h *Heap) FindModule(path string) *Module {
	for m := h.moduleRing; m != nil; m = m.Next {
		if m.Path == path {
			return m
		}
	}
	return nil
}

func (h *Heap) NewComponent(mod *Module, env *Map) *Component {
	h.TriggerGC()
	c := &Component{Mod: mod, Env: env}
	h.initHeader(&c.Object, KindComponent)
	return c
}

func (h *Heap) NewComponentValue(mod *Module, env *Map) Value {
	return boxPointer(&h.NewComponent(mod, env).Object)
}

func (h *Heap) NewLoop(start, end, step int64) *Loop {
	h.TriggerGC()
	l := &Loop{Start: start, End: end, Step: step}
	h.initHeader(&l.Object, KindLoop)
	return l
}

func (h *Heap) NewLoopValue(start, end, step int64) Value {
	return boxPointer(&h.NewLoop(start, end, step).Object)
}

func (h *Heap) NewLoopIterator(l *Loop) *LoopIterator {
	h.TriggerGC()
	li := &LoopIterator{L: l, Cursor: l.Start}
	h.initHeader(&li.Object, KindLoopIterator)
	return li
}

// NoGCIntern is the bootstrap variant of Intern used while building the
// parser's keyword/intrinsic-name tables, before any RootProvider exists to
// keep freshly allocated strings reachable through a real root (spec §3.4).
func (h *Heap) NoGCIntern(b []byte) Value {
	s := h.pool.intern(b, h.allocString)
	return boxPointer(&s.Object)
}
