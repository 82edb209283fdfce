package irbuild

import (
	"testing"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/ir"
)

// asmProto hand-assembles a Proto the way a bytecode compiler would emit
// one, matching the convention internal/vm's own tests use since this
// implementation has no lexer/parser.
func asmProto(h *heap.Heap, name string, argc int, upvalues []heap.UpvalueDesc, build func(b *bytecode.Buffer)) *heap.Proto {
	b := bytecode.New()
	build(b)
	return h.NewProto(name, b, argc, upvalues, heap.Span{File: "<test>"})
}

var dbg = bytecode.DebugInfo{Line: 1}

// noRoots is a RootProvider with nothing to mark — these tests only
// allocate Protos through the heap, never trigger a collection.
type noRoots struct{}

func (noRoots) MarkRoots(func(heap.Value)) {}

func newTestHeap() *heap.Heap { return heap.NewHeap(noRoots{}) }

func countOp(g *ir.Graph, op ir.Op) int {
	n := 0
	for _, node := range g.All() {
		if node.Op == op {
			n++
		}
	}
	return n
}

func TestBuildArithmetic(t *testing.T) {
	h := newTestHeap()
	proto := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.Emit(bytecode.OpLoadImm2, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	g, err := Build(proto)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if countOp(g, ir.OpAdd) != 1 {
		t.Fatalf("expected exactly one Add node, got graph: %+v", g.All())
	}
	if countOp(g, ir.OpRet) != 1 {
		t.Fatal("expected exactly one Ret node")
	}
}

// TestBuildSubDoesNotMisuseAdd guards the copy-paste bug the original
// builder has in several of its NV/VN arithmetic cases: every operator
// must build its own matching IR op, never OpAdd.
func TestBuildSubDoesNotMisuseAdd(t *testing.T) {
	h := newTestHeap()
	proto := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		k := b.AddNumConst(10)
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.EmitArg(bytecode.OpSubNV, k, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	g, err := Build(proto)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if countOp(g, ir.OpSub) != 1 {
		t.Fatal("expected a Sub node")
	}
	if countOp(g, ir.OpAdd) != 0 {
		t.Fatal("SubNV must not build an Add node")
	}
}

// TestBuildClosureEmbedsCurrentSlot verifies an Embed upvalue capture
// resolves to the builder's stack-model node sitting at that frame slot
// at the point the closure is created, not a fresh read.
func TestBuildClosureEmbedsCurrentSlot(t *testing.T) {
	h := newTestHeap()
	callee := asmProto(h, "inner", 0, []heap.UpvalueDesc{{Slot: 0, State: heap.Embed}}, func(b *bytecode.Buffer) {
		b.EmitArg(bytecode.OpUGet, 0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	entry := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm3, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)
		b.EmitArg(bytecode.OpClosure, 1, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	mod := h.NewModule("<test>", "")
	mod.Protos = []*heap.Proto{entry, callee}
	entry.Module, callee.Module = mod, mod

	g, err := Build(entry)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var closure *ir.Node
	for _, n := range g.All() {
		if n.Op == ir.OpPrimClosure {
			closure = n
		}
	}
	if closure == nil {
		t.Fatal("expected a Closure node")
	}
	if len(closure.Inputs) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(closure.Inputs))
	}
	if closure.Inputs[0].Op != ir.OpConstReal64 || closure.Inputs[0].ConstReal != 3 {
		t.Fatalf("expected capture to be the constant 3 written to slot 0, got %+v", closure.Inputs[0])
	}
}

// TestBuildIfElseSharesOneMerge builds an if/elif/else ladder and checks
// all three branches converge on a single shared Merge rather than one
// nested per link in the chain.
func TestBuildIfElseSharesOneMerge(t *testing.T) {
	h := newTestHeap()
	proto := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		// slot 0 = result
		b.Emit(bytecode.OpLoadImm0, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)

		b.Emit(bytecode.OpLoadFalse, dbg)
		elif1 := b.Reserve(bytecode.OpIf, dbg)
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)
		end1 := b.Reserve(bytecode.OpEndIf, dbg)
		elif1Target := b.Here()
		b.Patch(elif1, elif1Target-(elif1.Offset+4))

		b.Emit(bytecode.OpLoadFalse, dbg)
		elif2 := b.Reserve(bytecode.OpIf, dbg)
		b.Emit(bytecode.OpLoadImm2, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)
		end2 := b.Reserve(bytecode.OpEndIf, dbg)
		elif2Target := b.Here()
		b.Patch(elif2, elif2Target-(elif2.Offset+4))

		// else
		b.Emit(bytecode.OpLoadImm3, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)

		merge := b.Here()
		b.Patch(end1, merge-(end1.Offset+4))
		b.Patch(end2, merge-(end2.Offset+4))

		b.EmitArg(bytecode.OpLoadV, 0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})

	g, err := Build(proto)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	merges := 0
	for _, n := range g.All() {
		if n.Op == ir.OpMerge {
			merges++
		}
	}
	if merges != 1 {
		t.Fatalf("expected exactly one shared Merge, got %d", merges)
	}
}

// TestBuildLoopBreak checks a for-loop with a BREAK: the graph holds
// exactly one LoopExit, wired to its test input, and the break's dead
// stub region is flagged Dead.
func TestBuildLoopBreak(t *testing.T) {
	h := newTestHeap()
	proto := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		k1 := b.AddNumConst(1)
		k2 := b.AddNumConst(2)
		b.EmitArg(bytecode.OpLoadK, k1, dbg)
		b.EmitArg(bytecode.OpLoadK, k2, dbg)
		b.EmitArg(bytecode.OpNewListN, 2, dbg)

		exitLbl := b.Reserve(bytecode.OpForPrep, dbg)
		header := b.Here()
		b.Emit(bytecode.OpIdRefKV, dbg)
		b.Emit(bytecode.OpPop, dbg) // discard value
		b.Emit(bytecode.OpPop, dbg) // discard key
		b.EmitArg(bytecode.OpBreak, 0, dbg)

		backEdge := b.Reserve(bytecode.OpForLoop, dbg)
		after := b.Here()
		b.Patch(backEdge, after-header)
		b.Patch(exitLbl, after-(exitLbl.Offset+4))

		b.Emit(bytecode.OpRet0, dbg)
	})

	g, err := Build(proto)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	loopExits := 0
	for _, n := range g.All() {
		if n.Op == ir.OpLoopExit {
			loopExits++
			if len(n.Inputs) == 0 {
				t.Fatal("LoopExit missing its test input")
			}
		}
	}
	if loopExits != 1 {
		t.Fatalf("expected exactly one LoopExit, got %d", loopExits)
	}

	deadRegions := 0
	for _, n := range g.All() {
		if n.Op == ir.OpRegion && n.Dead {
			deadRegions++
		}
	}
	if deadRegions == 0 {
		t.Fatal("expected the stub region after BREAK to be marked dead")
	}
}

// TestEffectNodesAreBound verifies every effectful node ends up bound to
// exactly one region, and pure nodes are never bound — the discipline
// the sea-of-nodes graph relies on for ordering side effects.
func TestEffectNodesAreBound(t *testing.T) {
	h := newTestHeap()
	proto := asmProto(h, "main", 0, nil, func(b *bytecode.Buffer) {
		name := b.AddStrConst("g")
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.EmitArg(bytecode.OpGSet, name, dbg)
		b.EmitArg(bytecode.OpGGet, name, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	g, err := Build(proto)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, n := range g.All() {
		if n.HasEffect() && !n.Bounded {
			t.Fatalf("effectful node %v not bound to a region", n.Op)
		}
		if !n.HasEffect() && n.Bounded && n.Op != ir.OpPhi {
			t.Fatalf("pure node %v unexpectedly bound", n.Op)
		}
	}
}
