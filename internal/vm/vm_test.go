package vm

import (
	"testing"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// asmProto hand-assembles a Proto the way a bytecode compiler would emit
// one, since this implementation has no lexer/parser: tests build fixtures
// directly against package bytecode's encoder.
func asmProto(h *heap.Heap, name string, argc int, upvalues []heap.UpvalueDesc, build func(b *bytecode.Buffer)) *heap.Proto {
	b := bytecode.New()
	build(b)
	return h.NewProto(name, b, argc, upvalues, heap.Span{File: "<test>"})
}

func newTestComponent(rt *Runtime, protos ...*heap.Proto) *heap.Component {
	mod := rt.Heap.NewModule("<test>", "")
	mod.Protos = protos
	env := rt.Heap.NewMap()
	return rt.Heap.NewComponent(mod, env)
}

var dbg = bytecode.DebugInfo{Line: 1}

func TestArithmetic(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.Emit(bytecode.OpLoadImm2, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 3 {
		t.Fatalf("got %v, want 3", heap.Print(v))
	}
}

func TestDivideByZero(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.Emit(bytecode.OpLoadImm0, dbg)
		b.Emit(bytecode.OpDivVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	_, err := rt.Execute(comp)
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestClosureCall(t *testing.T) {
	rt := NewRuntime()
	callee := asmProto(rt.Heap, "five", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm5, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.EmitArg(bytecode.OpClosure, 1, dbg)
		b.Emit(bytecode.OpCall0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry, callee)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if heap.AsNumber(v) != 5 {
		t.Fatalf("got %v, want 5", heap.Print(v))
	}
}

// TestUpvalueAliasing builds two sibling closures that both capture the
// entry frame's local slot 0 via Embed, one that overwrites it and one that
// reads it back — proving they share one cell (spec §4.F.8) rather than
// each getting an independent copy.
func TestUpvalueAliasing(t *testing.T) {
	rt := NewRuntime()

	setter := asmProto(rt.Heap, "setter", 0, []heap.UpvalueDesc{{Slot: 0, State: heap.Embed}}, func(b *bytecode.Buffer) {
		k := b.AddNumConst(42)
		b.EmitArg(bytecode.OpLoadK, k, dbg)
		b.EmitArg(bytecode.OpUSet, 0, dbg)
		b.Emit(bytecode.OpRet0, dbg)
	})
	getter := asmProto(rt.Heap, "getter", 0, []heap.UpvalueDesc{{Slot: 0, State: heap.Embed}}, func(b *bytecode.Buffer) {
		b.EmitArg(bytecode.OpUGet, 0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm0, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)
		b.EmitArg(bytecode.OpClosure, 1, dbg) // setter
		b.Emit(bytecode.OpCall0, dbg)
		b.Emit(bytecode.OpPop, dbg)
		b.EmitArg(bytecode.OpClosure, 2, dbg) // getter
		b.Emit(bytecode.OpCall0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry, setter, getter)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if heap.AsNumber(v) != 42 {
		t.Fatalf("got %v, want 42 (aliased upvalue write not observed)", heap.Print(v))
	}
}

func TestListBuildAndIndex(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.Emit(bytecode.OpLoadImm2, dbg)
		b.Emit(bytecode.OpLoadImm3, dbg)
		b.EmitArg(bytecode.OpNewListN, 3, dbg)
		b.Emit(bytecode.OpLoadImm1, dbg) // index 1
		b.Emit(bytecode.OpAGetNum, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if heap.AsNumber(v) != 2 {
		t.Fatalf("got %v, want 2", heap.Print(v))
	}
}

// TestForLoopSumsList builds: for each element of [10,20,30] { acc += v }
// using FORPREP/FORLOOP/IDREFKV the way a compiled for-in loop would,
// verifying iteration actually drives the accumulator to the list sum.
func TestForLoopSumsList(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		// slot 0 = acc = 0
		b.Emit(bytecode.OpLoadImm0, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)

		k10 := b.AddNumConst(10)
		k20 := b.AddNumConst(20)
		k30 := b.AddNumConst(30)
		b.EmitArg(bytecode.OpLoadK, k10, dbg)
		b.EmitArg(bytecode.OpLoadK, k20, dbg)
		b.EmitArg(bytecode.OpLoadK, k30, dbg)
		b.EmitArg(bytecode.OpNewListN, 3, dbg)

		exitLbl := b.Reserve(bytecode.OpForPrep, dbg) // TOS(list) -> Iterator
		header := b.Here()
		b.Emit(bytecode.OpIdRefKV, dbg) // push key, then value
		// acc = acc + value
		b.EmitArg(bytecode.OpLoadV, 0, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.EmitArg(bytecode.OpMove, 0, dbg)
		b.Emit(bytecode.OpPop, dbg) // discard key

		backEdge := b.Reserve(bytecode.OpForLoop, dbg)
		after := b.Here()
		b.Patch(backEdge, after-header)
		b.Patch(exitLbl, after-(exitLbl.Offset+4))

		b.EmitArg(bytecode.OpLoadV, 0, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if heap.AsNumber(v) != 60 {
		t.Fatalf("got %v, want 60", heap.Print(v))
	}
}

func TestIntrinsicTypeof(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadTrue, dbg)
		b.Emit(bytecode.OpCallTypeof, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := heap.AsString(v)
	if string(s.Bytes[:s.Length]) != "boolean" {
		t.Fatalf("got %q, want %q", string(s.Bytes[:s.Length]), "boolean")
	}
}

func TestAssertFails(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadFalse, dbg)
		msg := b.AddStrConst("boom")
		b.EmitArg(bytecode.OpLoadKStr, msg, dbg)
		b.Emit(bytecode.OpCallAssert, dbg)
		b.Emit(bytecode.OpRet0, dbg)
	})
	comp := newTestComponent(rt, entry)
	_, err := rt.Execute(comp)
	if err == nil {
		t.Fatal("expected assert failure")
	}
}

func TestCallNative(t *testing.T) {
	rt := NewRuntime()
	called := false
	m := rt.Heap.NewMethod("native", func(receiver heap.Value, args []heap.Value) (heap.Value, error) {
		called = true
		return heap.Number(heap.AsNumber(args[0]) * 2), nil
	}, heap.Null())
	v, err := rt.Call(m.Box(), []heap.Value{heap.Number(21)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !called {
		t.Fatal("native method was not invoked")
	}
	if heap.AsNumber(v) != 42 {
		t.Fatalf("got %v, want 42", heap.Print(v))
	}
}

// TestStringConcatenation exercises spec §4.F.4's rule that Add on two
// strings concatenates rather than erroring as a type mismatch.
func TestStringConcatenation(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		hello := b.AddStrConst("hello ")
		world := b.AddStrConst("world")
		b.EmitArg(bytecode.OpLoadKStr, hello, dbg)
		b.EmitArg(bytecode.OpLoadKStr, world, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := heap.AsString(v)
	if got := string(s.Bytes[:s.Length]); got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}

// TestBooleanArithmeticCoercion exercises spec §4.F.4's rule that booleans
// coerce to 0/1 as arithmetic operands.
func TestBooleanArithmeticCoercion(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		b.Emit(bytecode.OpLoadTrue, dbg)
		b.Emit(bytecode.OpLoadFalse, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.Emit(bytecode.OpLoadImm1, dbg)
		b.Emit(bytecode.OpAddVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 2 {
		t.Fatalf("got %v, want 2", heap.Print(v))
	}
}

// TestGlobalSetThenGet exercises spec §4.F.9's global read/write round trip
// through the Component environment: a GSET of a name followed by a GGET of
// the same name must observe the value just written, which requires Intern
// to return pointer-identical Strings for the same name on both opcodes.
func TestGlobalSetThenGet(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		name := b.AddStrConst("x")
		b.Emit(bytecode.OpLoadImm3, dbg)
		b.EmitArg(bytecode.OpGSet, name, dbg)
		b.EmitArg(bytecode.OpGGet, name, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 3 {
		t.Fatalf("got %v, want 3", heap.Print(v))
	}
}

// TestModulo exercises spec §4.F.4/§7: modulo requires both operands to
// convert to 32-bit integers, a zero divisor is DivideByZero, and an
// out-of-int32-range operand is the distinct ModOutOfRange kind.
func TestModulo(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		seven := b.AddNumConst(7)
		two := b.AddNumConst(2)
		b.EmitArg(bytecode.OpLoadK, seven, dbg)
		b.EmitArg(bytecode.OpLoadK, two, dbg)
		b.Emit(bytecode.OpModVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	v, err := rt.Execute(comp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 1 {
		t.Fatalf("got %v, want 1", heap.Print(v))
	}
}

func TestModuloByZeroIsDivideByZero(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		five := b.AddNumConst(5)
		zero := b.AddNumConst(0)
		b.EmitArg(bytecode.OpLoadK, five, dbg)
		b.EmitArg(bytecode.OpLoadK, zero, dbg)
		b.Emit(bytecode.OpModVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	_, err := rt.Execute(comp)
	se, ok := err.(*serr.Error)
	if !ok {
		t.Fatalf("expected *serr.Error, got %v", err)
	}
	if se.Kind != serr.DivideByZero {
		t.Fatalf("got kind %v, want DivideByZero", se.Kind)
	}
}

func TestModuloOutOfRangeOperand(t *testing.T) {
	rt := NewRuntime()
	entry := asmProto(rt.Heap, "main", 0, nil, func(b *bytecode.Buffer) {
		huge := b.AddNumConst(1e18)
		two := b.AddNumConst(2)
		b.EmitArg(bytecode.OpLoadK, huge, dbg)
		b.EmitArg(bytecode.OpLoadK, two, dbg)
		b.Emit(bytecode.OpModVV, dbg)
		b.Emit(bytecode.OpRet1, dbg)
	})
	comp := newTestComponent(rt, entry)
	_, err := rt.Execute(comp)
	se, ok := err.(*serr.Error)
	if !ok {
		t.Fatalf("expected *serr.Error, got %v", err)
	}
	if se.Kind != serr.ModOutOfRange {
		t.Fatalf("got kind %v, want ModOutOfRange", se.Kind)
	}
}
