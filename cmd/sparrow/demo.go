package main

import (
	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/vm"
)

// demos maps each demo name to a builder that hand-assembles one of a
// handful of fixed Modules, the
// same way internal/vm's own tests construct bytecode directly: this
// implementation has no lexer or parser, so "Parse" (spec §6.3) has
// nothing to compile from and a driver can only load an already-assembled
// Module. Each demo stands in for what a real front end would have
// produced, exercising one corner of the Load/Execute path.
var demos = map[string]func(rt *vm.Runtime) *heap.Module{
	"arith": demoArith,
	"loop":  demoLoop,
	"udata": demoUdata,
}

var dbg = bytecode.DebugInfo{Line: 1}

func newProtoModule(rt *vm.Runtime, path string, b *bytecode.Buffer) *heap.Module {
	mod := rt.Heap.NewModule(path, "")
	proto := rt.Heap.NewProto("main", b, 0, nil, heap.Span{File: path})
	proto.Module = mod
	mod.Protos = []*heap.Proto{proto}
	return mod
}

func demoArith(rt *vm.Runtime) *heap.Module {
	b := bytecode.New()
	k := b.AddNumConst(19)
	b.EmitArg(bytecode.OpLoadK, k, dbg)
	b.Emit(bytecode.OpLoadImm3, dbg)
	b.Emit(bytecode.OpAddVV, dbg)
	b.Emit(bytecode.OpRet1, dbg)
	return newProtoModule(rt, "<demo:arith>", b)
}

// demoLoop sums a three-element list with a FORPREP/FORLOOP loop over a
// running-total local, the same construct internal/vm's own test suite
// exercises for its loop opcodes.
func demoLoop(rt *vm.Runtime) *heap.Module {
	b := bytecode.New()
	k1 := b.AddNumConst(10)
	k2 := b.AddNumConst(20)
	k3 := b.AddNumConst(30)
	b.Emit(bytecode.OpLoadImm0, dbg)
	b.EmitArg(bytecode.OpMove, 0, dbg) // slot 0: running total

	b.EmitArg(bytecode.OpLoadK, k1, dbg)
	b.EmitArg(bytecode.OpLoadK, k2, dbg)
	b.EmitArg(bytecode.OpLoadK, k3, dbg)
	b.EmitArg(bytecode.OpNewListN, 3, dbg)

	exitLbl := b.Reserve(bytecode.OpForPrep, dbg)
	header := b.Here()
	b.Emit(bytecode.OpIdRefKV, dbg) // push key, then value
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
	return newProtoModule(rt, "<demo:loop>", b)
}

// demoUdata registers a host Udata with a call hook in the builtin
// environment and invokes it from script bytecode through a global, the
// way a host embedding the interpreter would expose a native function
// (spec §6.3's "register a Udata with ... call hook").
func demoUdata(rt *vm.Runtime) *heap.Module {
	greet := rt.Heap.NewUdata("greet")
	greet.Call = func(args []heap.Value) (heap.Value, error) {
		name := "world"
		if len(args) > 0 && heap.IsPointer(args[0]) && heap.ObjectKind(args[0]) == heap.KindString {
			s := heap.AsString(args[0])
			name = string(s.Bytes[:s.Length])
		}
		return rt.Heap.Intern([]byte("hello, " + name)), nil
	}
	heap.MapSet(rt.Heap, rt.Builtins, heap.AsString(rt.Heap.Intern([]byte("greet"))), greet.Box())

	b := bytecode.New()
	name := b.AddStrConst("greet")
	arg := b.AddStrConst("sparrow")
	b.EmitArg(bytecode.OpGGet, name, dbg)
	b.EmitArg(bytecode.OpLoadKStr, arg, dbg)
	b.Emit(bytecode.OpCall1, dbg)
	b.Emit(bytecode.OpRet1, dbg)
	return newProtoModule(rt, "<demo:udata>", b)
}
