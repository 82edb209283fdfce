package vm

import (
	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// dispatchCall implements CALLn's callee validation and the three call
// disciplines of spec §4.F.6. The callee and its narg arguments sit at the
// top of the stack, callee first.
func (rt *Runtime) dispatchCall(t *Thread, caller *Frame, narg int) error {
	base := len(t.Stack) - narg - 1
	callee := t.Stack[base]

	if !heap.IsPointer(callee) {
		return serr.New(serr.CallNotCallable, "value of type %s is not callable", heap.Type(callee))
	}

	switch heap.ObjectKind(callee) {
	case heap.KindMethod:
		m := heap.AsMethod(callee)
		args := append([]heap.Value(nil), t.Stack[base+1:]...)
		t.truncate(base)
		if err := rt.pushFrame(Frame{Base: base, Callable: callee, Narg: narg, Name: "<native " + m.Name + ">"}); err != nil {
			return err
		}
		v, err := m.Fn(m.Receiver, args)
		rt.popFrame()
		if err != nil {
			return toSerr(err)
		}
		t.push(v)
		return nil

	case heap.KindUdata:
		u := heap.AsUdata(callee)
		if u.Call == nil {
			return serr.New(serr.CallNotCallable, "udata %s has no call hook", u.Name)
		}
		args := append([]heap.Value(nil), t.Stack[base+1:]...)
		t.truncate(base)
		if err := rt.pushFrame(Frame{Base: base, Callable: callee, Narg: narg, Name: "<udata " + u.Name + ">"}); err != nil {
			return err
		}
		v, err := u.Call(args)
		rt.popFrame()
		if err != nil {
			return toSerr(err)
		}
		t.push(v)
		return nil

	case heap.KindClosure:
		cl := heap.AsClosure(callee)
		for len(t.Stack) < base+1+cl.Proto.Argc {
			t.push(heap.Null())
		}
		if len(t.Stack) > base+1+cl.Proto.Argc {
			t.Stack = t.Stack[:base+1+cl.Proto.Argc]
		}
		newBase := base + 1
		if err := rt.pushFrame(Frame{Base: newBase, PC: 0, Closure: cl, Callable: callee, Narg: narg, Name: cl.Proto.Name}); err != nil {
			return err
		}
		return nil

	default:
		return serr.New(serr.CallNotCallable, "value of type %s is not callable", heap.Type(callee))
	}
}

func toSerr(err error) *serr.Error {
	if se, ok := err.(*serr.Error); ok {
		return se
	}
	return serr.New(serr.FunctionCallFailed, "%v", err)
}

// attrGet implements spec §4.F.5's read-side dispatch.
func (rt *Runtime) attrGet(t *Thread, f *Frame, op bytecode.Op, a int) error {
	switch op {
	case bytecode.OpAGetStr, bytecode.OpAGetI:
		key := attrKeyName(f, op, a)
		obj := t.pop()
		v, err := rt.getAttr(obj, key)
		if err != nil {
			return err
		}
		t.push(v)
		return nil
	case bytecode.OpAGetNum:
		idx := t.pop()
		obj := t.pop()
		v, err := rt.getIndex(obj, idx)
		if err != nil {
			return err
		}
		t.push(v)
		return nil
	case bytecode.OpAGet:
		key := t.pop()
		obj := t.pop()
		v, err := rt.getGeneric(obj, key)
		if err != nil {
			return err
		}
		t.push(v)
		return nil
	}
	return nil
}

func (rt *Runtime) attrSet(t *Thread, f *Frame, op bytecode.Op, a int) error {
	val := t.pop()
	switch op {
	case bytecode.OpASetStr, bytecode.OpASetI:
		key := attrKeyName(f, op, a)
		obj := t.pop()
		return rt.setAttr(obj, key, val)
	case bytecode.OpASetNum:
		idx := t.pop()
		obj := t.pop()
		return rt.setIndex(obj, idx, val)
	case bytecode.OpASet:
		key := t.pop()
		obj := t.pop()
		return rt.setGeneric(obj, key, val)
	}
	return nil
}

func attrKeyName(f *Frame, op bytecode.Op, a int) string {
	if op == bytecode.OpAGetStr || op == bytecode.OpASetStr {
		return f.Closure.Proto.Code.StrConsts[a]
	}
	return intrinsicAttrName(a)
}

func (rt *Runtime) getAttr(obj heap.Value, key string) (heap.Value, error) {
	if !heap.IsPointer(obj) {
		return heap.Null(), serr.New(serr.AttributeTypeInvalid, "value of type %s has no attributes", heap.Type(obj))
	}
	switch heap.ObjectKind(obj) {
	case heap.KindMap:
		m := heap.AsMap(obj)
		if m.MetaOps != nil && m.MetaOps.Get != nil {
			return m.MetaOps.Get(obj, rt.Heap.Intern([]byte(key)))
		}
		v, ok := heap.MapGet(m, heap.AsString(rt.Heap.Intern([]byte(key))))
		if !ok {
			return heap.Null(), serr.New(serr.AttributeNotFound, "no attribute %q", key)
		}
		return v, nil
	case heap.KindUdata:
		u := heap.AsUdata(obj)
		if u.Meta == nil || u.Meta.Get == nil {
			return heap.Null(), serr.New(serr.MetaOpsMissing, "udata %s has no get hook", u.Name)
		}
		return u.Meta.Get(obj, rt.Heap.Intern([]byte(key)))
	}
	return heap.Null(), serr.New(serr.AttributeNotFound, "no attribute %q on %s", key, heap.Type(obj))
}

func (rt *Runtime) setAttr(obj heap.Value, key string, val heap.Value) error {
	if !heap.IsPointer(obj) {
		return serr.New(serr.AttributeTypeInvalid, "value of type %s has no attributes", heap.Type(obj))
	}
	switch heap.ObjectKind(obj) {
	case heap.KindMap:
		m := heap.AsMap(obj)
		if m.MetaOps != nil && m.MetaOps.Set != nil {
			return m.MetaOps.Set(obj, rt.Heap.Intern([]byte(key)), val)
		}
		heap.MapSet(rt.Heap, m, heap.AsString(rt.Heap.Intern([]byte(key))), val)
		return nil
	case heap.KindUdata:
		u := heap.AsUdata(obj)
		if u.Meta == nil || u.Meta.Set == nil {
			return serr.New(serr.MetaOpsMissing, "udata %s has no set hook", u.Name)
		}
		return u.Meta.Set(obj, rt.Heap.Intern([]byte(key)), val)
	}
	return serr.New(serr.AttributeTypeInvalid, "value of type %s has no settable attributes", heap.Type(obj))
}

// getIndex implements the numeric-key branch of spec §4.F.5 (List/String).
func (rt *Runtime) getIndex(obj, idx heap.Value) (heap.Value, error) {
	if !heap.IsNumber(idx) {
		return heap.Null(), serr.New(serr.TypeMismatch, "index must be a number, got %s", heap.Type(idx))
	}
	i := int(heap.AsNumber(idx))
	if !heap.IsPointer(obj) {
		return heap.Null(), serr.New(serr.AttributeTypeInvalid, "value of type %s is not indexable", heap.Type(obj))
	}
	switch heap.ObjectKind(obj) {
	case heap.KindList:
		return heap.ListGet(heap.AsList(obj), i)
	case heap.KindString:
		s := heap.AsString(obj)
		if i < 0 || i >= s.Length {
			return heap.Null(), serr.New(serr.IndexOutOfRange, "string index %d out of range (len %d)", i, s.Length)
		}
		return rt.Heap.Intern(s.Bytes[i : i+1]), nil
	}
	return heap.Null(), serr.New(serr.AttributeTypeInvalid, "value of type %s is not indexable", heap.Type(obj))
}

func (rt *Runtime) setIndex(obj, idx, val heap.Value) error {
	if !heap.IsNumber(idx) {
		return serr.New(serr.TypeMismatch, "index must be a number, got %s", heap.Type(idx))
	}
	i := int(heap.AsNumber(idx))
	if !heap.IsPointer(obj) || heap.ObjectKind(obj) != heap.KindList {
		return serr.New(serr.AttributeTypeInvalid, "value of type %s does not support index assignment", heap.Type(obj))
	}
	return heap.ListSet(heap.AsList(obj), i, val)
}

// getGeneric/setGeneric implement the fully-dynamic obj[key] form, routing
// to either the attribute or index path by the key's type and obj's type.
func (rt *Runtime) getGeneric(obj, key heap.Value) (heap.Value, error) {
	if heap.IsNumber(key) {
		return rt.getIndex(obj, key)
	}
	if heap.IsPointer(key) && heap.ObjectKind(key) == heap.KindString {
		return rt.getAttr(obj, string(heap.AsString(key).Bytes[:heap.AsString(key).Length]))
	}
	return heap.Null(), serr.New(serr.TypeMismatch, "key must be a number or string, got %s", heap.Type(key))
}

func (rt *Runtime) setGeneric(obj, key, val heap.Value) error {
	if heap.IsNumber(key) {
		return rt.setIndex(obj, key, val)
	}
	if heap.IsPointer(key) && heap.ObjectKind(key) == heap.KindString {
		return rt.setAttr(obj, string(heap.AsString(key).Bytes[:heap.AsString(key).Length]), val)
	}
	return serr.New(serr.TypeMismatch, "key must be a number or string, got %s", heap.Type(key))
}

// globalGet/globalSet implement spec §4.F.9: reads search the Component's
// environment first, then the process-wide builtin environment; writes
// always target the Component.
func (rt *Runtime) globalGet(t *Thread, f *Frame, a int) error {
	name := f.Closure.Proto.Code.StrConsts[a]
	key := heap.AsString(rt.Heap.Intern([]byte(name)))
	if rt.comp != nil {
		if v, ok := heap.MapGet(rt.comp.Env, key); ok {
			t.push(v)
			return nil
		}
	}
	if v, ok := heap.MapGet(rt.Builtins, key); ok {
		t.push(v)
		return nil
	}
	return serr.New(serr.AttributeNotFound, "undefined global %q", name)
}

func (rt *Runtime) globalSet(t *Thread, f *Frame, a int) {
	name := f.Closure.Proto.Code.StrConsts[a]
	key := heap.AsString(rt.Heap.Intern([]byte(name)))
	v := t.pop()
	heap.MapSet(rt.Heap, rt.comp.Env, key, v)
}
