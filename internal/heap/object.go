package heap

import "sparrow/internal/bytecode"

// Kind tags the twelve heap object subtypes of spec §3.1–§3.2. It is the
// discriminant stored in every object's GC header and is what Type() reports
// for pointer-tagged Values.
type Kind uint8

const (
	KindString Kind = iota
	KindList
	KindMap
	KindProto
	KindClosure
	KindMethod
	KindUdata
	KindIterator
	KindModule
	KindComponent
	KindLoop
	KindLoopIterator
)

var kindNames = [...]string{
	KindString:       "string",
	KindList:         "list",
	KindMap:          "map",
	KindProto:        "proto",
	KindClosure:      "closure",
	KindMethod:       "method",
	KindUdata:        "udata",
	KindIterator:     "iterator",
	KindModule:       "module",
	KindComponent:    "component",
	KindLoop:         "loop",
	KindLoopIterator: "loop_iterator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Object is the GC header shared by every heap subtype (spec §3.2): a link
// in the all-objects list the collector sweeps, a mark bit, and the subtype
// tag. Every concrete subtype below embeds Object as its first field so that
// a *Object recovered from a boxed pointer can be reinterpreted as the
// concrete type once Kind is known (the same layout trick as the teacher's
// internal/vmregister.Object).
type Object struct {
	Next   *Object
	Marked bool
	Kind   Kind
}

// String is an immutable byte buffer (spec §3.2). Strings under the 512-byte
// interning threshold live in the pool and carry pool-chain fields so the
// table can walk collisions without a separate bucket slice; larger strings
// leave PoolNext/PoolMore unused.
type String struct {
	Object
	Bytes  []byte
	Length int
	Hash   uint32

	Interned bool
	PoolNext *String // collision-chain successor, nil if none
	PoolMore bool     // true while PoolNext is meaningful
}

// List is a growable Value sequence (component C). Size is the logical
// length; cap(Data) is the allocated capacity, grown by the amplified-
// doubling policy in list.go rather than Go's own append growth so the
// policy matches spec §4.C exactly.
type List struct {
	Object
	Data []Value
	Size int
}

// UpvalueState distinguishes how a Closure captured a given upvalue slot
// (spec §3.3, §4.F.8).
type UpvalueState uint8

const (
	Embed UpvalueState = iota
	Detach
)

// UpvalueDesc is one entry of a Proto's capture list: which slot to capture
// and whether it resolves against the creating frame's stack (Embed) or the
// enclosing closure's own upvalue array (Detach).
type UpvalueDesc struct {
	Slot  int
	State UpvalueState
}

// Span locates a Proto in source text.
type Span struct {
	File      string
	StartLine int
	EndLine   int
}

// Proto is a compiled function: code, constant pools, upvalue descriptors,
// and the bookkeeping needed to build a Closure or render a stack frame
// name (spec §3.2).
type Proto struct {
	Object
	Name      string
	Code      *bytecode.Buffer
	Upvalues  []UpvalueDesc
	Argc      int
	Source    Span
	Module    *Module
	SelfIndex int
}

// UpvalueCell is a shared box for one captured local. It is not itself a
// heap Kind — spec §3.1's subtype list has no "Upvalue" entry — because a
// cell is only ever reachable through the Closure(s) that alias it; the GC
// traces it as part of marking a Closure rather than as a root in its own
// right.
type UpvalueCell struct {
	Value *Value
	slot  Value // backing storage when Detach-aliased from no live stack slot
}

// Closure binds a Proto to its captured upvalue cells (spec §3.2, §4.F.8).
type Closure struct {
	Object
	Proto    *Proto
	Upvalues []*UpvalueCell
}

// NativeFn is a host-implemented callable exposed as a Method (spec §4.F.6).
type NativeFn func(receiver Value, args []Value) (Value, error)

// Method is a native function pointer bound to a receiver, with the display
// name used in stack-unwind frames (spec §3.2).
type Method struct {
	Object
	Fn       NativeFn
	Receiver Value
	Name     string
}

// MetaOps is the per-object capability vector (glossary: MetaOps) that lets
// Udata, and optionally Map, customize get/set/hash/print/convert/iterate/
// call semantics (spec §4.F.5, §4.F.7, §6.3).
type MetaOps struct {
	Get     func(self Value, key Value) (Value, error)
	Set     func(self Value, key Value, v Value) error
	Hash    func(self Value) (uint32, error)
	Print   func(self Value) (string, error)
	Convert func(self Value, kind string) (Value, error)
	Iter    func(self Value) (*Iterator, error)
	Call    func(self Value, args []Value) (Value, error)
}

// Map is an open-addressed hash table keyed by interned *String pointers
// (spec §3.2, §4.C). Slots form three states via Used/Deleted: empty, live,
// tombstoned; Next chains collisions within the same table rather than
// bucketing externally, per the stated open-addressing invariant (§3.3).
type Map struct {
	Object
	Slots    []mapSlot
	SlotCnt  int // live + tombstoned
	LiveCnt  int // live only
	MetaOps  *MetaOps
}

type mapSlot struct {
	Key     *String
	Value   Value
	Hash    uint32
	Next    int
	More    bool
	Used    bool
	Deleted bool
}

// Udata is a host-provided opaque value (spec §3.2, §6.3): a destructor run
// at GC sweep, a mark callback so the collector can trace host-held Values,
// an optional call hook, and an optional MetaOps table.
type Udata struct {
	Object
	Name       string
	Destructor func(*Udata)
	Mark       func(mark func(Value))
	Call       func(args []Value) (Value, error)
	Meta       *MetaOps
	Host       interface{}
}

// Iterator is a polymorphic cursor (spec §3.2, §4.F.7): the three callbacks
// operate over whatever Source actually is (String, List, Map, Loop, or a
// Udata's `iter` MetaOps hook), so iteration code in the VM never type-
// switches on the source past FORPREP.
type Iterator struct {
	Object
	Source  Value
	HasNext func() bool
	Deref   func() (key Value, val Value)
	Move    func()
	Destroy func()
}

// Module is a parsed compilation unit: its Protos, the source it came from,
// and its position in its Heap's module ring used for re-import
// lookup (spec §3.2, §4.F.9).
type Module struct {
	Object
	Path    string
	Source  string
	Protos  []*Proto
	Prev    *Module
	Next    *Module
}

// Component binds a Module to an environment Map — the runtime unit Execute
// installs a Runtime around (spec §3.2, §4.F.9).
type Component struct {
	Object
	Mod *Module
	Env *Map
}

// Loop is an integer range {start, end, step} (spec §3.2); FORPREP builds a
// LoopIterator cursor over it rather than iterating the Loop object itself.
type Loop struct {
	Object
	Start int64
	End   int64
	Step  int64
}

// LoopIterator is the cursor FORPREP constructs over a Loop (spec §3.2,
// §4.F.7).
type LoopIterator struct {
	Object
	L       *Loop
	Cursor  int64
}
