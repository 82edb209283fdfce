// Package vm implements Sparrow's register-plus-stack virtual machine
// (spec §4.F): the Runtime/Thread/Frame shapes, the dispatch loop, call and
// return discipline, attribute/index routing, iteration, closures and
// upvalues, globals and Component lookup, module import, and the closed
// intrinsic catalog.
//
// Grounded on the teacher's internal/vm.EnhancedVM (stack + frame-array
// shape, switch-dispatch Run loop) and internal/vmregister (register-stack
// hybrid addressing), adapted from Sentra's 200+ opcode general-purpose
// dispatch table down to the closed, spec-defined set in package bytecode.
package vm

import (
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// Frame is one call-stack entry (spec §4.F.1).
type Frame struct {
	Base     int // base pointer into the owning Thread's stack; real local-0 index
	PC       int
	Closure  *heap.Closure // nil for native/intrinsic calls
	Callable heap.Value
	Narg     int
	Name     string // for stack-unwind frames (spec §7)

	// HostReturn marks the outermost frame of one Call/Execute entry point:
	// when this frame's RET pops it, run() reports completion back to the
	// host instead of continuing the dispatch loop. Kept separate from Base
	// (which must stay a real, usable local-addressing index even for this
	// frame) rather than overloading Base with a sentinel value.
	HostReturn bool
}

// Thread is one host-level call's Value stack and frame array (spec
// §4.F.1). A Runtime keeps a stack of Threads so that a native callback
// re-entering the interpreter (Call from inside a Method/Udata hook) gets
// its own isolated Stack/Frames rather than corrupting the caller's.
type Thread struct {
	Stack  []heap.Value
	Frames []Frame

	// openUpvalues tracks, by absolute stack index, the shared cell for any
	// local currently captured by a live Closure but not yet closed over
	// (its owning frame hasn't returned). MOVE/LOADV consult this map so
	// that two sibling closures embedding the same not-yet-returned local
	// observe each other's writes, matching spec §4.F.8's aliasing rule.
	openUpvalues map[int]*heap.UpvalueCell
}

func newThread() *Thread {
	return &Thread{
		Stack:        make([]heap.Value, 0, 256),
		Frames:       make([]Frame, 0, 64),
		openUpvalues: make(map[int]*heap.UpvalueCell),
	}
}

// closeUpvaluesFrom detaches every open upvalue at or above idx (called
// when a frame whose locals start at idx returns) — the cell already holds
// the live value by reference, so closing is just forgetting the stack
// index, not copying.
func (t *Thread) closeUpvaluesFrom(idx int) {
	for k := range t.openUpvalues {
		if k >= idx {
			delete(t.openUpvalues, k)
		}
	}
}

func (t *Thread) push(v heap.Value) {
	t.Stack = append(t.Stack, v)
}

func (t *Thread) pop() heap.Value {
	n := len(t.Stack) - 1
	v := t.Stack[n]
	t.Stack = t.Stack[:n]
	return v
}

func (t *Thread) top() heap.Value {
	return t.Stack[len(t.Stack)-1]
}

func (t *Thread) truncate(base int) {
	t.Stack = t.Stack[:base]
}

func (t *Thread) curFrame() *Frame {
	return &t.Frames[len(t.Frames)-1]
}

const maxFrames = 4096

// Runtime is the interpreter instance the host embeds (spec §6.3): it owns
// the Heap, the thread stack, the process-wide builtin environment, and the
// module-ring-backed loader used by import.
type Runtime struct {
	Heap *heap.Heap

	threads []*Thread
	current *Thread

	// Builtins is the process-wide builtin environment searched after a
	// Component's own environment on global reads (spec §4.F.9).
	Builtins *heap.Map

	// comp is the Component currently executing — a mark root and the
	// target of global writes.
	comp *heap.Component

	// intrinsics holds the canonical Udata installIntrinsics registered for
	// each catalog name, so the dedicated opcode fast path can detect
	// whether the user has rebound the global (spec §4.I).
	intrinsics map[string]*heap.Udata
}

// NewRuntime creates an interpreter instance (spec §6.3's "create"). The
// Heap is wired with this Runtime as its RootProvider so that a collection
// triggered mid-execution sees the live stack.
func NewRuntime() *Runtime {
	rt := &Runtime{}
	rt.Heap = heap.NewHeap(rt)
	rt.Builtins = rt.Heap.NewMap()
	installIntrinsics(rt)
	return rt
}

// MarkRoots implements heap.RootProvider (spec §4.D): every thread's stack
// and frame closures/callables, the current Component, and the global
// (builtin) environment.
func (rt *Runtime) MarkRoots(mark func(heap.Value)) {
	for _, th := range rt.threads {
		for _, v := range th.Stack {
			mark(v)
		}
		for i := range th.Frames {
			f := &th.Frames[i]
			if f.Closure != nil {
				mark(heap.BoxForGC(f.Closure))
			}
			mark(f.Callable)
		}
	}
	if rt.comp != nil {
		mark(heap.BoxForGC(rt.comp))
	}
	if rt.Builtins != nil {
		mark(heap.BoxForGC(rt.Builtins))
	}
}

// pushThread/popThread implement the "linked stack of call threads, one per
// host-level call" of spec §4.F.1: a native callback that calls back into
// script code (Method/Udata call hook re-entering Execute) gets an isolated
// Thread so its Value stack cannot be corrupted by the outer call still in
// flight.
func (rt *Runtime) pushThread() *Thread {
	t := newThread()
	rt.threads = append(rt.threads, t)
	rt.current = t
	return t
}

func (rt *Runtime) popThread() {
	rt.threads = rt.threads[:len(rt.threads)-1]
	if len(rt.threads) > 0 {
		rt.current = rt.threads[len(rt.threads)-1]
	} else {
		rt.current = nil
	}
}

// pushFrame installs a new call frame. Returns an error if the frame budget
// is exceeded (spec §7 TooManyFrames).
func (rt *Runtime) pushFrame(f Frame) error {
	if len(rt.current.Frames) >= maxFrames {
		return serr.New(serr.TooManyFrames, "call stack exceeds %d frames", maxFrames)
	}
	rt.current.Frames = append(rt.current.Frames, f)
	return nil
}

func (rt *Runtime) popFrame() Frame {
	n := len(rt.current.Frames) - 1
	f := rt.current.Frames[n]
	rt.current.Frames = rt.current.Frames[:n]
	return f
}

// unwind builds the stack-unwind dump of spec §7: called once on the fail
// path, it appends one Frame per live frame of the current Thread,
// innermost first.
func (rt *Runtime) unwind(err *serr.Error) {
	for i := len(rt.current.Frames) - 1; i >= 0; i-- {
		f := &rt.current.Frames[i]
		name := f.Name
		if name == "" {
			name = "<anonymous>"
		}
		err.PushFrame(serr.Frame{Name: name, Base: f.Base, PC: f.PC, Narg: f.Narg})
	}
}

// LoadComponent installs comp as the Component the VM executes against
// (spec §4.F.9, §6.3 Load).
func (rt *Runtime) LoadComponent(comp *heap.Component) {
	rt.comp = comp
}

// Component returns the Component currently installed.
func (rt *Runtime) Component() *heap.Component { return rt.comp }
