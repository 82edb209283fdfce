package vm

import (
	"math"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// Execute installs comp and runs its entry Proto to completion (spec §6.3).
func (rt *Runtime) Execute(comp *heap.Component) (heap.Value, error) {
	rt.LoadComponent(comp)
	entry := comp.Mod.Protos[0]
	return rt.callClosureValue(entry, nil)
}

// Call invokes a callable Value with the given arguments — usable
// recursively from inside a native Method/Udata callback (spec §6.3). Each
// Call gets its own Thread so a callback re-entering the interpreter can't
// corrupt the stack of the call that is invoking it.
func (rt *Runtime) Call(callable heap.Value, args []heap.Value) (heap.Value, error) {
	if !heap.IsPointer(callable) {
		return heap.Null(), serr.New(serr.CallNotCallable, "value of type %s is not callable", heap.Type(callable))
	}
	switch heap.ObjectKind(callable) {
	case heap.KindClosure:
		return rt.callClosureValue(heap.AsClosure(callable).Proto, args)
	case heap.KindMethod:
		rt.pushThread()
		defer rt.popThread()
		return rt.callMethod(heap.AsMethod(callable), args)
	case heap.KindUdata:
		rt.pushThread()
		defer rt.popThread()
		return rt.callUdata(heap.AsUdata(callable), args)
	}
	return heap.Null(), serr.New(serr.CallNotCallable, "value of type %s is not callable", heap.Type(callable))
}

func (rt *Runtime) callClosureValue(proto *heap.Proto, args []heap.Value) (heap.Value, error) {
	rt.pushThread()
	defer rt.popThread()

	closure := rt.Heap.NewClosure(proto)
	installEmbeddedUpvalues(rt, closure, nil, 0)

	t := rt.current
	for _, a := range args {
		t.push(a)
	}
	for i := len(args); i < proto.Argc; i++ {
		t.push(heap.Null())
	}

	f := Frame{Base: 0, Closure: closure, Callable: closure.Box(), Narg: len(args), Name: proto.Name, HostReturn: true}
	if err := rt.pushFrame(f); err != nil {
		return heap.Null(), err
	}
	return rt.run()
}

func (rt *Runtime) callMethod(m *heap.Method, args []heap.Value) (heap.Value, error) {
	f := Frame{Base: 0, Callable: m.Box(), Narg: len(args), Name: "<native " + m.Name + ">", HostReturn: true}
	if err := rt.pushFrame(f); err != nil {
		return heap.Null(), err
	}
	defer rt.popFrame()
	v, err := m.Fn(m.Receiver, args)
	if err != nil {
		if se, ok := err.(*serr.Error); ok {
			rt.unwind(se)
		}
		return heap.Null(), err
	}
	return v, nil
}

func (rt *Runtime) callUdata(u *heap.Udata, args []heap.Value) (heap.Value, error) {
	if u.Call == nil {
		return heap.Null(), serr.New(serr.CallNotCallable, "udata %s has no call hook", u.Name)
	}
	f := Frame{Base: 0, Callable: u.Box(), Narg: len(args), Name: "<udata " + u.Name + ">", HostReturn: true}
	if err := rt.pushFrame(f); err != nil {
		return heap.Null(), err
	}
	defer rt.popFrame()
	v, err := u.Call(args)
	if err != nil {
		if se, ok := err.(*serr.Error); ok {
			rt.unwind(se)
		}
		return heap.Null(), err
	}
	return v, nil
}

// run is the dispatch loop of spec §4.F.2: a switch over the current
// frame's next instruction, looping until the HostReturn frame completes.
func (rt *Runtime) run() (heap.Value, error) {
	t := rt.current
	for {
		f := t.curFrame()
		code := f.Closure.Proto.Code
		op, a, next := code.Decode(f.PC)
		f.PC = next

		var err error
		switch op {
		case bytecode.OpAddVV, bytecode.OpSubVV, bytecode.OpMulVV, bytecode.OpDivVV,
			bytecode.OpPowVV, bytecode.OpModVV:
			err = rt.binaryVV(t, op)
		case bytecode.OpAddNV, bytecode.OpSubNV, bytecode.OpMulNV, bytecode.OpDivNV,
			bytecode.OpPowNV, bytecode.OpModNV:
			err = rt.binaryNV(t, f, op, a)
		case bytecode.OpAddVN, bytecode.OpSubVN, bytecode.OpMulVN, bytecode.OpDivVN,
			bytecode.OpPowVN, bytecode.OpModVN:
			err = rt.binaryVN(t, f, op, a)
		case bytecode.OpNeg:
			err = rt.unaryNeg(t)

		case bytecode.OpLtVV, bytecode.OpLeVV, bytecode.OpGtVV, bytecode.OpGeVV,
			bytecode.OpEqVV, bytecode.OpNeVV:
			err = rt.compareVV(t, op)
		case bytecode.OpEqvNull:
			v := t.top()
			t.Stack[len(t.Stack)-1] = heap.Bool(heap.IsNull(v))
		case bytecode.OpNeNullV:
			v := t.top()
			t.Stack[len(t.Stack)-1] = heap.Bool(!heap.IsNull(v))

		case bytecode.OpNot:
			v := t.pop()
			t.push(heap.Bool(!heap.Truthy(v)))
		case bytecode.OpTest:
			t.push(heap.Bool(heap.Truthy(t.top())))

		case bytecode.OpLoadK:
			t.push(heap.Number(f.Closure.Proto.Code.NumConsts[a]))
		case bytecode.OpLoadKStr:
			t.push(rt.Heap.Intern([]byte(f.Closure.Proto.Code.StrConsts[a])))
		case bytecode.OpLoadImmM5, bytecode.OpLoadImmM4, bytecode.OpLoadImmM3,
			bytecode.OpLoadImmM2, bytecode.OpLoadImmM1, bytecode.OpLoadImm0,
			bytecode.OpLoadImm1, bytecode.OpLoadImm2, bytecode.OpLoadImm3,
			bytecode.OpLoadImm4, bytecode.OpLoadImm5:
			t.push(heap.Number(float64(int(op) - int(bytecode.OpLoadImm0))))
		case bytecode.OpLoadTrue:
			t.push(heap.True())
		case bytecode.OpLoadFalse:
			t.push(heap.False())
		case bytecode.OpLoadNull:
			t.push(heap.Null())
		case bytecode.OpLoadV:
			idx := f.Base + a
			if cell, ok := t.openUpvalues[idx]; ok {
				t.push(*cell.Value)
			} else if idx < len(t.Stack) {
				t.push(t.Stack[idx])
			} else {
				t.push(heap.Null())
			}
		case bytecode.OpMove:
			idx := f.Base + a
			v := t.pop()
			if cell, ok := t.openUpvalues[idx]; ok {
				*cell.Value = v
			}
			for idx >= len(t.Stack) {
				t.push(heap.Null())
			}
			t.Stack[idx] = v
		case bytecode.OpPop:
			t.pop()

		case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3, bytecode.OpCall4:
			err = rt.dispatchCall(t, f, int(op)-int(bytecode.OpCall0))
		case bytecode.OpCallN:
			err = rt.dispatchCall(t, f, a)
		case bytecode.OpRet0:
			v, done := rt.doReturn(t, heap.Null())
			if done {
				return v, nil
			}
		case bytecode.OpRet1:
			v, done := rt.doReturn(t, t.pop())
			if done {
				return v, nil
			}

		case bytecode.OpNewList0, bytecode.OpNewList1, bytecode.OpNewList2,
			bytecode.OpNewList3, bytecode.OpNewList4:
			rt.buildList(t, int(op)-int(bytecode.OpNewList0))
		case bytecode.OpNewListN:
			rt.buildList(t, a)
		case bytecode.OpNewMap0, bytecode.OpNewMap1, bytecode.OpNewMap2,
			bytecode.OpNewMap3, bytecode.OpNewMap4:
			rt.buildMap(t, int(op)-int(bytecode.OpNewMap0))
		case bytecode.OpNewMapN:
			rt.buildMap(t, a)

		case bytecode.OpAGetNum, bytecode.OpAGetStr, bytecode.OpAGetI, bytecode.OpAGet:
			err = rt.attrGet(t, f, op, a)
		case bytecode.OpASetNum, bytecode.OpASetStr, bytecode.OpASetI, bytecode.OpASet:
			err = rt.attrSet(t, f, op, a)

		case bytecode.OpUGet:
			t.push(*f.Closure.Upvalues[a].Value)
		case bytecode.OpUSet:
			*f.Closure.Upvalues[a].Value = t.pop()

		case bytecode.OpGGet:
			err = rt.globalGet(t, f, a)
		case bytecode.OpGSet:
			rt.globalSet(t, f, a)

		case bytecode.OpForPrep:
			err = rt.forPrep(t, a)
		case bytecode.OpForLoop:
			rt.forLoop(t, f, a)
		case bytecode.OpIdRefK:
			rt.idRefK(t)
		case bytecode.OpIdRefKV:
			rt.idRefKV(t)

		case bytecode.OpBrT:
			if heap.Truthy(t.pop()) {
				f.PC += a
			}
		case bytecode.OpBrF:
			if !heap.Truthy(t.pop()) {
				f.PC += a
			}
		case bytecode.OpBrTKeep:
			if heap.Truthy(t.top()) {
				f.PC += a
			}
		case bytecode.OpBrFKeep:
			if !heap.Truthy(t.top()) {
				f.PC += a
			}
		case bytecode.OpIf:
			if !heap.Truthy(t.pop()) {
				f.PC += a
			}
		case bytecode.OpEndIf:
			// unconditional forward jump from the end of a true-branch body
			// to the merge point, skipping the false branch entirely
			f.PC += a
		case bytecode.OpJump, bytecode.OpBreak, bytecode.OpContinue:
			f.PC += a - bytecode.MaxOperand/2

		case bytecode.OpClosure:
			rt.makeClosure(t, f, a)

		case bytecode.OpCallImport:
			err = rt.callImportOpcode(t, f, a)

		default:
			err = rt.callIntrinsicOpcode(t, op)
		}

		if err != nil {
			se, ok := err.(*serr.Error)
			if !ok {
				se = serr.New(serr.FunctionCallFailed, "%v", err)
			}
			rt.unwind(se)
			return heap.Null(), se
		}
	}
}

// doReturn implements RET's shared restore-truncate-pop discipline (spec
// §4.F.6): truncate the caller's stack to the callee's base pointer, pop
// the frame, and — if that frame was the HostReturn frame — report
// completion to the caller of run().
func (rt *Runtime) doReturn(t *Thread, v heap.Value) (heap.Value, bool) {
	f := rt.popFrame()
	t.closeUpvaluesFrom(f.Base)
	t.truncate(f.Base)
	if f.HostReturn {
		return v, true
	}
	t.push(v)
	return heap.Null(), false
}

// asNumber implements spec §4.F.4's arithmetic operand coercion: numbers
// pass through, booleans coerce to 0/1, anything else is a type error.
func asNumber(v heap.Value) (float64, error) {
	if heap.IsNumber(v) {
		return heap.AsNumber(v), nil
	}
	if heap.IsBool(v) {
		if heap.AsBool(v) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, serr.New(serr.TypeMismatch, "expected number, got %s", heap.Type(v))
}

func isAddFamily(op bytecode.Op) bool {
	return op == bytecode.OpAddVV || op == bytecode.OpAddNV || op == bytecode.OpAddVN
}

func isString(v heap.Value) bool {
	return heap.IsPointer(v) && heap.ObjectKind(v) == heap.KindString
}

func (rt *Runtime) binaryVV(t *Thread, op bytecode.Op) error {
	bv := t.pop()
	av := t.pop()
	if isAddFamily(op) && isString(av) && isString(bv) {
		as, bs := heap.AsString(av), heap.AsString(bv)
		concat := make([]byte, 0, as.Length+bs.Length)
		concat = append(concat, as.Bytes[:as.Length]...)
		concat = append(concat, bs.Bytes[:bs.Length]...)
		t.push(rt.Heap.Intern(concat))
		return nil
	}
	b, err := asNumber(bv)
	if err != nil {
		return err
	}
	a, err := asNumber(av)
	if err != nil {
		return err
	}
	r, err := applyArith(op, a, b)
	if err != nil {
		return err
	}
	t.push(heap.Number(r))
	return nil
}

func (rt *Runtime) binaryNV(t *Thread, f *Frame, op bytecode.Op, idx int) error {
	b, err := asNumber(t.pop())
	if err != nil {
		return err
	}
	a := f.Closure.Proto.Code.NumConsts[idx]
	r, err := applyArith(op, a, b)
	if err != nil {
		return err
	}
	t.push(heap.Number(r))
	return nil
}

func (rt *Runtime) binaryVN(t *Thread, f *Frame, op bytecode.Op, idx int) error {
	a, err := asNumber(t.pop())
	if err != nil {
		return err
	}
	b := f.Closure.Proto.Code.NumConsts[idx]
	r, err := applyArith(op, a, b)
	if err != nil {
		return err
	}
	t.push(heap.Number(r))
	return nil
}

func applyArith(op bytecode.Op, a, b float64) (float64, error) {
	switch op {
	case bytecode.OpAddVV, bytecode.OpAddNV, bytecode.OpAddVN:
		return a + b, nil
	case bytecode.OpSubVV, bytecode.OpSubNV, bytecode.OpSubVN:
		return a - b, nil
	case bytecode.OpMulVV, bytecode.OpMulNV, bytecode.OpMulVN:
		return a * b, nil
	case bytecode.OpDivVV, bytecode.OpDivNV, bytecode.OpDivVN:
		if b == 0 {
			return 0, serr.New(serr.DivideByZero, "division by zero")
		}
		return a / b, nil
	case bytecode.OpPowVV, bytecode.OpPowNV, bytecode.OpPowVN:
		return math.Pow(a, b), nil
	case bytecode.OpModVV, bytecode.OpModNV, bytecode.OpModVN:
		return applyMod(a, b)
	}
	panic("vm: unreachable arith op")
}

// applyMod implements spec §4.F.4's modulo rule: both operands must convert
// to 32-bit integers, and a zero divisor is DivideByZero while an
// out-of-int32-range operand is the distinct ModOutOfRange kind — matching
// the reference vm_modvv, which checks the zero divisor before converting
// either operand to int and only then range-checks each conversion.
func applyMod(a, b float64) (float64, error) {
	if b == 0 {
		return 0, serr.New(serr.DivideByZero, "modulo by zero")
	}
	li, ok := toInt32(a)
	if !ok {
		return 0, serr.New(serr.ModOutOfRange, "left operand %v out of int32 range", a)
	}
	ri, ok := toInt32(b)
	if !ok {
		return 0, serr.New(serr.ModOutOfRange, "right operand %v out of int32 range", b)
	}
	return float64(li % ri), nil
}

func toInt32(f float64) (int32, bool) {
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int32(f), true
}

func (rt *Runtime) unaryNeg(t *Thread) error {
	v, err := asNumber(t.pop())
	if err != nil {
		return err
	}
	t.push(heap.Number(-v))
	return nil
}

// compareVV implements spec §4.F.4: numeric relational operators require
// both operands numeric; eq/ne fall back to heap.Equal for non-numeric
// operands rather than erroring, so that `"a" == "a"` and `[] == []` work.
func (rt *Runtime) compareVV(t *Thread, op bytecode.Op) error {
	b := t.pop()
	a := t.pop()
	switch op {
	case bytecode.OpEqVV:
		t.push(heap.Bool(heap.Equal(a, b)))
		return nil
	case bytecode.OpNeVV:
		t.push(heap.Bool(!heap.Equal(a, b)))
		return nil
	}
	af, err := asNumber(a)
	if err != nil {
		return err
	}
	bf, err := asNumber(b)
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case bytecode.OpLtVV:
		r = af < bf
	case bytecode.OpLeVV:
		r = af <= bf
	case bytecode.OpGtVV:
		r = af > bf
	case bytecode.OpGeVV:
		r = af >= bf
	}
	t.push(heap.Bool(r))
	return nil
}

func (rt *Runtime) buildList(t *Thread, n int) {
	l := rt.Heap.NewList()
	start := len(t.Stack) - n
	for i := start; i < len(t.Stack); i++ {
		heap.ListPush(l, t.Stack[i])
	}
	t.Stack = t.Stack[:start]
	t.push(l.Box())
}

func (rt *Runtime) buildMap(t *Thread, npairs int) {
	m := rt.Heap.NewMap()
	start := len(t.Stack) - npairs*2
	for i := start; i < len(t.Stack); i += 2 {
		k := t.Stack[i]
		v := t.Stack[i+1]
		if heap.IsPointer(k) && heap.ObjectKind(k) == heap.KindString {
			heap.MapSet(rt.Heap, m, heap.AsString(k), v)
		}
	}
	t.Stack = t.Stack[:start]
	t.push(m.Box())
}
