package irbuild

import (
	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/ir"
)

type arithForm int

const (
	formVV arithForm = iota
	formNV
	formVN
)

// arithOps maps every arithmetic bytecode opcode to the IR op it builds.
// Several of the NV/VN cases in the original C builder construct an
// IR_H_ADD node regardless of the actual operator — a copy-paste bug this
// table does not reproduce; each opcode here maps to its own matching IR op.
var arithOps = map[bytecode.Op]struct {
	op   ir.Op
	form arithForm
}{
	bytecode.OpAddVV: {ir.OpAdd, formVV}, bytecode.OpAddNV: {ir.OpAdd, formNV}, bytecode.OpAddVN: {ir.OpAdd, formVN},
	bytecode.OpSubVV: {ir.OpSub, formVV}, bytecode.OpSubNV: {ir.OpSub, formNV}, bytecode.OpSubVN: {ir.OpSub, formVN},
	bytecode.OpMulVV: {ir.OpMul, formVV}, bytecode.OpMulNV: {ir.OpMul, formNV}, bytecode.OpMulVN: {ir.OpMul, formVN},
	bytecode.OpDivVV: {ir.OpDiv, formVV}, bytecode.OpDivNV: {ir.OpDiv, formNV}, bytecode.OpDivVN: {ir.OpDiv, formVN},
	bytecode.OpPowVV: {ir.OpPow, formVV}, bytecode.OpPowNV: {ir.OpPow, formNV}, bytecode.OpPowVN: {ir.OpPow, formVN},
	bytecode.OpModVV: {ir.OpMod, formVV}, bytecode.OpModNV: {ir.OpMod, formNV}, bytecode.OpModVN: {ir.OpMod, formVN},
}

var compareOps = map[bytecode.Op]ir.Op{
	bytecode.OpLtVV: ir.OpLt, bytecode.OpLeVV: ir.OpLe,
	bytecode.OpGtVV: ir.OpGt, bytecode.OpGeVV: ir.OpGe,
	bytecode.OpEqVV: ir.OpEq, bytecode.OpNeVV: ir.OpNe,
}

// attrEffect applies the heuristic package ir documents on NewAttrGet: an
// access on a value that is itself a freshly built list literal cannot
// invoke a meta hook, so it alone is effect-free.
func attrEffect(obj *ir.Node) bool { return obj.Op != ir.OpPrimList }

// buildLinear handles every opcode that neither branches (If/ForPrep) nor
// short-circuits (BrT/BrF family) the stack model: arithmetic, loads,
// calls, literal construction, attribute/upvalue/global access, returns,
// and loop control transfers.
func (b *builder) buildLinear(op bytecode.Op) error {
	_, a, next := b.decode(b.pos)

	if e, ok := arithOps[op]; ok {
		var left, right *ir.Node
		switch e.form {
		case formNV:
			left, right = b.graph.NewConstReal64(b.code.NumConsts[a]), b.top(0)
		case formVN:
			left, right = b.top(0), b.graph.NewConstReal64(b.code.NumConsts[a])
		default:
			left, right = b.top(1), b.top(0)
		}
		n := b.graph.NewBinary(e.op, left, right, b.region)
		if e.form == formVV {
			b.pop(2)
			b.push(n)
		} else {
			b.replace(n)
		}
		b.pos = next
		return nil
	}

	if cmp, ok := compareOps[op]; ok {
		n := b.graph.NewBinary(cmp, b.top(1), b.top(0), b.region)
		b.pop(2)
		b.push(n)
		b.pos = next
		return nil
	}

	if op == bytecode.OpCallImport {
		path := b.graph.NewConstString(b.code.StrConsts[a])
		b.push(b.graph.NewCallIntrinsic("import", []*ir.Node{path}, b.region))
		b.pos = next
		return nil
	}

	if def, ok := intrinsicArity[op]; ok {
		args := make([]*ir.Node, 0, def.arity)
		for i := def.arity - 1; i >= 0; i-- {
			args = append(args, b.top(i))
		}
		n := b.graph.NewCallIntrinsic(def.name, args, b.region)
		b.pop(def.arity)
		b.push(n)
		b.pos = next
		return nil
	}

	switch op {
	case bytecode.OpNeg:
		b.replace(b.graph.NewUnary(ir.OpNeg, b.top(0), b.region))
	case bytecode.OpNot:
		b.replace(b.graph.NewUnary(ir.OpNot, b.top(0), b.region))
	case bytecode.OpTest:
		b.push(b.graph.NewUnary(ir.OpTest, b.top(0), b.region))
	case bytecode.OpEqvNull:
		b.replace(b.graph.NewBinary(ir.OpEq, b.top(0), b.graph.NewConstNull(), b.region))
	case bytecode.OpNeNullV:
		b.replace(b.graph.NewBinary(ir.OpNe, b.top(0), b.graph.NewConstNull(), b.region))

	case bytecode.OpLoadK:
		b.push(b.graph.NewConstReal64(b.code.NumConsts[a]))
	case bytecode.OpLoadKStr:
		b.push(b.graph.NewConstString(b.code.StrConsts[a]))
	case bytecode.OpLoadImmM5, bytecode.OpLoadImmM4, bytecode.OpLoadImmM3,
		bytecode.OpLoadImmM2, bytecode.OpLoadImmM1, bytecode.OpLoadImm0,
		bytecode.OpLoadImm1, bytecode.OpLoadImm2, bytecode.OpLoadImm3,
		bytecode.OpLoadImm4, bytecode.OpLoadImm5:
		b.push(b.graph.NewConstReal64(float64(int(op) - int(bytecode.OpLoadImm0))))
	case bytecode.OpLoadTrue:
		b.push(b.graph.NewConstBoolean(true))
	case bytecode.OpLoadFalse:
		b.push(b.graph.NewConstBoolean(false))
	case bytecode.OpLoadNull:
		b.push(b.graph.NewConstNull())
	case bytecode.OpLoadV:
		b.push(b.bot(a))
	case bytecode.OpMove:
		v := b.top(0)
		b.pop(1)
		b.place(a, v)
	case bytecode.OpPop:
		b.pop(1)

	case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3, bytecode.OpCall4:
		b.buildCall(int(op) - int(bytecode.OpCall0))
	case bytecode.OpCallN:
		b.buildCall(a)

	case bytecode.OpRet0:
		b.terminate(b.graph.NewReturn(nil, b.region))
	case bytecode.OpRet1:
		v := b.top(0)
		b.pop(1)
		b.terminate(b.graph.NewReturn(v, b.region))

	case bytecode.OpNewList0, bytecode.OpNewList1, bytecode.OpNewList2,
		bytecode.OpNewList3, bytecode.OpNewList4:
		b.buildList(int(op) - int(bytecode.OpNewList0))
	case bytecode.OpNewListN:
		b.buildList(a)
	case bytecode.OpNewMap0, bytecode.OpNewMap1, bytecode.OpNewMap2,
		bytecode.OpNewMap3, bytecode.OpNewMap4:
		b.buildMap(int(op) - int(bytecode.OpNewMap0))
	case bytecode.OpNewMapN:
		b.buildMap(a)

	case bytecode.OpAGetStr:
		obj := b.top(0)
		n := b.graph.NewAttrGet(obj, b.graph.NewConstString(b.code.StrConsts[a]), b.region, attrEffect(obj))
		b.replace(n)
	case bytecode.OpAGetI:
		obj := b.top(0)
		n := b.graph.NewAttrGet(obj, nil, b.region, attrEffect(obj))
		n.Slot = a
		b.replace(n)
	case bytecode.OpAGetNum:
		obj, idx := b.top(1), b.top(0)
		n := b.graph.NewAttrGet(obj, idx, b.region, attrEffect(obj))
		b.pop(2)
		b.push(n)
	case bytecode.OpAGet:
		obj, key := b.top(1), b.top(0)
		n := b.graph.NewAttrGet(obj, key, b.region, attrEffect(obj))
		b.pop(2)
		b.push(n)

	case bytecode.OpASetStr:
		val, obj := b.top(0), b.top(1)
		b.graph.NewAttrSet(obj, b.graph.NewConstString(b.code.StrConsts[a]), val, b.region)
		b.pop(2)
	case bytecode.OpASetI:
		val, obj := b.top(0), b.top(1)
		n := b.graph.NewAttrSet(obj, nil, val, b.region)
		n.Slot = a
		b.pop(2)
	case bytecode.OpASetNum:
		val, idx, obj := b.top(0), b.top(1), b.top(2)
		b.graph.NewAttrSet(obj, idx, val, b.region)
		b.pop(3)
	case bytecode.OpASet:
		val, key, obj := b.top(0), b.top(1), b.top(2)
		b.graph.NewAttrSet(obj, key, val, b.region)
		b.pop(3)

	case bytecode.OpUGet:
		b.push(b.graph.NewUpvalueGet(a))
	case bytecode.OpUSet:
		v := b.top(0)
		b.graph.NewUpvalueSet(a, v, b.region)
		b.pop(1)
	case bytecode.OpGGet:
		b.push(b.graph.NewGlobalGet(b.code.StrConsts[a], b.region))
	case bytecode.OpGSet:
		v := b.top(0)
		b.graph.NewGlobalSet(b.code.StrConsts[a], v, b.region)
		b.pop(1)

	case bytecode.OpIdRefK:
		b.push(b.graph.NewIterDrefKey(b.top(0)))
	case bytecode.OpIdRefKV:
		iter := b.top(0)
		b.push(b.graph.NewIterDrefKey(iter))
		b.push(b.graph.NewIterDrefVal(iter))

	case bytecode.OpClosure:
		b.buildClosure(a)

	case bytecode.OpBreak:
		if b.loop == nil {
			return unsupportedOp(op)
		}
		b.graph.AddControlFlow(b.region, b.loop.loopFalse)
		b.terminate(nil)
	case bytecode.OpContinue:
		if b.loop == nil {
			return unsupportedOp(op)
		}
		b.graph.AddControlFlow(b.region, b.loop.loopExit)
		b.terminate(nil)
	case bytecode.OpEndIf:
		// buildIfBlock normally intercepts ENDIF before it reaches here;
		// if it is ever stepped into directly, treat it as the
		// unconditional jump-to-merge the runtime gives it.
		b.pos = next + a
		return nil
	case bytecode.OpJump:
		b.graph.NewJump(b.region)
		b.terminate(nil)

	default:
		return unsupportedOp(op)
	}

	b.pos = next
	return nil
}

// terminate closes off the current region after an unconditional control
// transfer (return/break/continue/jump): a fresh region absorbs whatever
// bytecode textually follows so the builder has somewhere to bind it, and
// the whole thing is flagged dead since nothing reaches it at runtime.
func (b *builder) terminate(_ *ir.Node) {
	stub := b.graph.NewRegion()
	b.graph.MarkDeadFrom(stub)
	b.region = stub
}

func (b *builder) buildCall(narg int) {
	fn := b.top(narg)
	args := make([]*ir.Node, 0, narg)
	for i := narg - 1; i >= 0; i-- {
		args = append(args, b.top(i))
	}
	call := b.graph.NewCall(fn, args, b.region)
	b.pop(narg + 1)
	b.push(call)
}

func (b *builder) buildList(size int) {
	list := b.graph.NewPrimList()
	for i := size - 1; i >= 0; i-- {
		b.graph.AddListInput(list, b.top(i), b.region)
	}
	b.pop(size)
	b.push(list)
}

func (b *builder) buildMap(size int) {
	m := b.graph.NewPrimMap()
	for i := 2 * (size - 1); i >= 0; i -= 2 {
		b.graph.AddMapInput(m, b.top(i+1), b.top(i), b.region)
	}
	b.pop(2 * size)
	b.push(m)
}

// buildClosure resolves OpClosure's target Proto's upvalue descriptors
// against the current builder state: an Embed capture reads the enclosing
// frame's stack slot (the current stack-model node at that absolute
// index), a Detach capture aliases the enclosing closure's own upvalue
// cell, represented as a fresh UpvalueDetach node (spec §4.F.8).
func (b *builder) buildClosure(protoIdx int) {
	target := b.proto.Module.Protos[protoIdx]
	captures := make([]*ir.Node, len(target.Upvalues))
	for i, d := range target.Upvalues {
		if d.State == heap.Embed {
			captures[i] = b.bot(d.Slot)
		} else {
			captures[i] = b.graph.NewUpvalueDetach(d.Slot)
		}
	}
	b.push(b.graph.NewClosure(target.Name, captures...))
}
