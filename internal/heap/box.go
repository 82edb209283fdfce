package heap

// Box methods let other packages (chiefly vm, which holds *Closure/*Map/
// *Component pointers directly rather than boxed Values) turn a concrete
// heap object back into a tagged Value — the inverse of object(). Each is
// a thin wrapper over boxPointer since every subtype embeds Object as its
// first field.

func (s *String) Box() Value    { return boxPointer(&s.Object) }
func (l *List) Box() Value      { return boxPointer(&l.Object) }
func (m *Map) Box() Value       { return boxPointer(&m.Object) }
func (p *Proto) Box() Value     { return boxPointer(&p.Object) }
func (c *Closure) Box() Value   { return boxPointer(&c.Object) }
func (m2 *Method) Box() Value   { return boxPointer(&m2.Object) }
func (u *Udata) Box() Value     { return boxPointer(&u.Object) }
func (i *Iterator) Box() Value  { return boxPointer(&i.Object) }
func (m3 *Module) Box() Value   { return boxPointer(&m3.Object) }
func (c2 *Component) Box() Value { return boxPointer(&c2.Object) }
func (l2 *Loop) Box() Value     { return boxPointer(&l2.Object) }
func (li *LoopIterator) Box() Value { return boxPointer(&li.Object) }

// AsString/AsList/... reinterpret a pointer-tagged Value already known (by
// the caller, typically via Type()) to hold the given Kind. Out-of-band
// checking mirrors the teacher's unchecked AsPointer casts in
// internal/vmregister — callers are expected to have dispatched on Type
// first, same as the opcode handlers do in the main loop.
func AsString(v Value) *String       { return (*String)(ptrOf(uint64(v) & ptrMask)) }
func AsList(v Value) *List           { return (*List)(ptrOf(uint64(v) & ptrMask)) }
func AsMap(v Value) *Map             { return (*Map)(ptrOf(uint64(v) & ptrMask)) }
func AsProto(v Value) *Proto         { return (*Proto)(ptrOf(uint64(v) & ptrMask)) }
func AsClosure(v Value) *Closure     { return (*Closure)(ptrOf(uint64(v) & ptrMask)) }
func AsMethod(v Value) *Method       { return (*Method)(ptrOf(uint64(v) & ptrMask)) }
func AsUdata(v Value) *Udata         { return (*Udata)(ptrOf(uint64(v) & ptrMask)) }
func AsIterator(v Value) *Iterator   { return (*Iterator)(ptrOf(uint64(v) & ptrMask)) }
func AsModule(v Value) *Module       { return (*Module)(ptrOf(uint64(v) & ptrMask)) }
func AsComponent(v Value) *Component { return (*Component)(ptrOf(uint64(v) & ptrMask)) }
func AsLoop(v Value) *Loop           { return (*Loop)(ptrOf(uint64(v) & ptrMask)) }
func AsLoopIterator(v Value) *LoopIterator { return (*LoopIterator)(ptrOf(uint64(v) & ptrMask)) }

// ObjectKind reports the Kind of a pointer-tagged Value; callers use it to
// dispatch before calling the matching As* above.
func ObjectKind(v Value) Kind { return object(v).Kind }

// BoxForGC is used by package vm's MarkRoots to box an already-known
// concrete object pointer without importing the unexported boxPointer.
func BoxForGC(o interface{ Box() Value }) Value { return o.Box() }
