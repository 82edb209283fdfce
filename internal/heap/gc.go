package heap

import (
	"unsafe"

	"github.com/dustin/go-humanize"
)

// Default trigger parameters (spec §4.D), matching the reference GC's own
// defaults (SPARROW_DEFAULT_GC_*).
const (
	DefaultThreshold    = 100000
	DefaultRatio        = 0.5
	DefaultPenaltyRatio = 0.3
)

// RootProvider supplies the mark phase's roots without internal/heap
// depending on internal/vm: the interpreter stack, frames, and Component
// environment all live in package vm, so Heap asks for them through this
// interface rather than importing vm directly (which would cycle, since vm
// imports heap for Value/Object).
type RootProvider interface {
	// MarkRoots is called once per collection; the provider must call mark
	// for every Value reachable as a root (stack slots across all frames,
	// each frame's closure/callable, the current Component, the global
	// environment) — spec §4.D.
	MarkRoots(mark func(Value))
}

// Heap owns the global object list, the string pool, and the collector's
// adaptive trigger state. It is the sole allocator of heap objects — every
// New* function below is one of spec §3.4's "factory functions".
type Heap struct {
	head *Object // global object list (spec §3.1 invariant)
	pool *pool

	// moduleRing is this instance's module ring (spec §3.2): owned per-Heap,
	// not a package-level global, so that multiple interpreter instances in
	// one process (or parallel tests) each see only their own loaded
	// Modules.
	moduleRing *Module

	roots RootProvider

	liveCount    int
	prevLive     int
	threshold    float64
	ratio        float64
	penaltyRatio float64
	penalty      int

	// LastReport is filled in after each collection for diagnostics/tests;
	// not consulted by the collector itself.
	LastReport string
}

func NewHeap(roots RootProvider) *Heap {
	return &Heap{
		pool:         newPool(),
		roots:        roots,
		threshold:    DefaultThreshold,
		ratio:        DefaultRatio,
		penaltyRatio: DefaultPenaltyRatio,
	}
}

func (h *Heap) link(o *Object) {
	o.Next = h.head
	h.head = o
	h.liveCount++
}

// TriggerGC evaluates spec §4.D's trigger rule and runs a collection if it
// fires. Every NewX factory calls this first, except the NoGC variants used
// during bootstrap before reachability roots exist (spec §3.4).
func (h *Heap) TriggerGC() {
	s := float64(h.liveCount)
	if s >= h.threshold && s >= h.ratio*float64(h.prevLive) {
		h.Collect()
	}
}

// Collect runs one stop-the-world mark-and-sweep pass and updates the
// adaptive threshold per spec §4.D.
func (h *Heap) Collect() {
	before := h.liveCount

	if h.roots != nil {
		h.roots.MarkRoots(h.mark)
	}
	h.markPool()

	after := h.sweep()

	h.liveCount = after
	inactive := before - after
	var r float64
	if before > 0 {
		r = float64(inactive) / float64(before)
	}

	if r < h.penaltyRatio {
		h.penalty++
		h.threshold += ((1 - r) / float64(h.penalty)) * h.threshold
	} else {
		h.penalty = 0
	}
	h.prevLive = after

	h.LastReport = "gc: live=" + humanize.Comma(int64(after)) +
		" collected=" + humanize.Comma(int64(inactive)) +
		" threshold=" + humanize.Comma(int64(h.threshold))
}

// mark marks v's referent (if it is a pointer) and recurses over its
// fields. Idempotent via the mark bit (spec §4.D).
func (h *Heap) mark(v Value) {
	if !IsPointer(v) {
		return
	}
	o := object(v)
	if o.Marked {
		return
	}
	o.Marked = true

	switch o.Kind {
	case KindList:
		l := (*List)(unsafe.Pointer(o))
		for i := 0; i < l.Size; i++ {
			h.mark(l.Data[i])
		}
	case KindMap:
		m := (*Map)(unsafe.Pointer(o))
		for i := range m.Slots {
			s := &m.Slots[i]
			if s.Used && !s.Deleted {
				if s.Key != nil {
					s.Key.Marked = true
				}
				h.mark(s.Value)
			}
		}
	case KindClosure:
		cl := (*Closure)(unsafe.Pointer(o))
		if cl.Proto != nil {
			h.mark(boxPointer(&cl.Proto.Object))
		}
		for _, uv := range cl.Upvalues {
			if uv != nil && uv.Value != nil {
				h.mark(*uv.Value)
			}
		}
	case KindMethod:
		me := (*Method)(unsafe.Pointer(o))
		h.mark(me.Receiver)
	case KindProto:
		p := (*Proto)(unsafe.Pointer(o))
		if p.Module != nil {
			h.mark(boxPointer(&p.Module.Object))
		}
	case KindUdata:
		u := (*Udata)(unsafe.Pointer(o))
		if u.Mark != nil {
			u.Mark(h.mark)
		}
	case KindComponent:
		comp := (*Component)(unsafe.Pointer(o))
		if comp.Mod != nil {
			h.mark(boxPointer(&comp.Mod.Object))
		}
		if comp.Env != nil {
			h.mark(boxPointer(&comp.Env.Object))
		}
	case KindModule:
		mod := (*Module)(unsafe.Pointer(o))
		for _, p := range mod.Protos {
			if p != nil {
				h.mark(boxPointer(&p.Object))
			}
		}
	case KindIterator:
		it := (*Iterator)(unsafe.Pointer(o))
		h.mark(it.Source)
	case KindLoopIterator:
		li := (*LoopIterator)(unsafe.Pointer(o))
		if li.L != nil {
			h.mark(boxPointer(&li.L.Object))
		}
	}
}

func (h *Heap) markPool() {
	for _, head := range h.pool.buckets {
		for s := head; s != nil; {
			s.Marked = true
			if !s.PoolMore {
				break
			}
			s = s.PoolNext
		}
	}
}

// sweep unlinks and finalizes every unmarked object in a single pass,
// clearing the mark bit on survivors, and returns the surviving count
// (spec §4.D).
func (h *Heap) sweep() int {
	var kept *Object
	survivors := 0
	for o := h.head; o != nil; {
		next := o.Next
		if o.Marked {
			o.Marked = false
			o.Next = kept
			kept = o
			survivors++
		} else {
			h.finalize(o)
		}
		o = next
	}
	h.head = kept
	return survivors
}

func (h *Heap) finalize(o *Object) {
	switch o.Kind {
	case KindUdata:
		u := (*Udata)(unsafe.Pointer(o))
		if u.Destructor != nil {
			u.Destructor(u)
		}
	case KindString:
		s := (*String)(unsafe.Pointer(o))
		if s.Interned {
			h.unlinkFromPool(s)
		}
	}
}

func (h *Heap) unlinkFromPool(s *String) {
	idx := int(s.Hash) % len(h.pool.buckets)
	var prev *String
	cur := h.pool.buckets[idx]
	for cur != nil {
		if cur == s {
			if prev == nil {
				if cur.PoolMore {
					h.pool.buckets[idx] = cur.PoolNext
				} else {
					h.pool.buckets[idx] = nil
				}
			} else {
				prev.PoolNext = cur.PoolNext
				prev.PoolMore = cur.PoolMore
			}
			h.pool.count--
			return
		}
		if !cur.PoolMore {
			return
		}
		prev, cur = cur, cur.PoolNext
	}
}

