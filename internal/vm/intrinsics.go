package vm

import (
	"fmt"
	"os"
	"sort"
	"time"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// intrinsicDef describes one entry of spec §4.I's closed primitive catalog:
// its canonical name, its fixed call arity, and the Go implementation shared
// by both the dedicated opcode fast path and the registered Udata.
type intrinsicDef struct {
	name  string
	arity int
	fn    func(rt *Runtime, args []heap.Value) (heap.Value, error)
}

var intrinsicTable = map[bytecode.Op]intrinsicDef{
	bytecode.OpCallTypeof:     {"typeof", 1, iTypeof},
	bytecode.OpCallIsBool:     {"is_bool", 1, iIsKind("boolean")},
	bytecode.OpCallIsString:   {"is_string", 1, iIsKind("string")},
	bytecode.OpCallIsNumber:   {"is_number", 1, iIsKind("number")},
	bytecode.OpCallIsNull:     {"is_null", 1, iIsKind("null")},
	bytecode.OpCallIsList:     {"is_list", 1, iIsKind("list")},
	bytecode.OpCallIsMap:      {"is_map", 1, iIsKind("map")},
	bytecode.OpCallIsClosure:  {"is_closure", 1, iIsKind("closure")},
	bytecode.OpCallToString:   {"to_string", 1, iToString},
	bytecode.OpCallToNumber:   {"to_number", 1, iToNumber},
	bytecode.OpCallToBoolean:  {"to_boolean", 1, iToBoolean},
	bytecode.OpCallPrint:      {"print", 1, iPrint},
	bytecode.OpCallError:      {"error", 1, iError},
	bytecode.OpCallAssert:     {"assert", 2, iAssert},
	bytecode.OpCallSize:       {"size", 1, iSize},
	bytecode.OpCallRange:      {"range", 3, iRange},
	bytecode.OpCallLoop:       {"loop", 1, iLoop},
	bytecode.OpCallRunString:  {"run_string", 1, iRunString},
	bytecode.OpCallImport:     {"import", 1, iImport},
	bytecode.OpCallMin:        {"min", 2, iMin},
	bytecode.OpCallMax:        {"max", 2, iMax},
	bytecode.OpCallSort:       {"sort", 1, iSort},
	bytecode.OpCallSet:        {"set", 3, iSet},
	bytecode.OpCallGet:        {"get", 2, iGet},
	bytecode.OpCallExist:      {"exist", 2, iExist},
	bytecode.OpCallMsec:       {"msec", 0, iMsec},
}

// attrIntrinsicNames is the reserved small-integer attribute id space AGETI/
// ASETI index into (spec §4.F.5): the handful of intrinsic "properties" any
// object may expose without a generic string-keyed lookup.
var attrIntrinsicNames = []string{"length", "size", "type", "keys", "values"}

func intrinsicAttrName(a int) string {
	if a >= 0 && a < len(attrIntrinsicNames) {
		return attrIntrinsicNames[a]
	}
	return "<unknown attribute>"
}

// installIntrinsics registers every catalog entry as a Udata in the global
// builtin environment (spec §4.I: "var f = print; f(...) works") and records
// the canonical object in rt.intrinsics so the opcode fast path can tell
// whether the user has rebound the name.
func installIntrinsics(rt *Runtime) {
	rt.intrinsics = make(map[string]*heap.Udata)
	for _, def := range intrinsicTable {
		def := def
		u := rt.Heap.NewUdata(def.name)
		u.Call = func(args []heap.Value) (heap.Value, error) {
			if len(args) != def.arity {
				return heap.Null(), serr.New(serr.ArgSizeMismatch, "%s expects %d argument(s), got %d", def.name, def.arity, len(args))
			}
			return def.fn(rt, args)
		}
		rt.intrinsics[def.name] = u
		heap.MapSet(rt.Heap, rt.Builtins, heap.AsString(rt.Heap.Intern([]byte(def.name))), u.Box())
	}
}

// callIntrinsicOpcode implements the dedicated fast-path opcodes of spec
// §4.I: pop the fixed-arity args, check whether the catalog name is still
// bound to the canonical Udata this Runtime installed, and either call the
// Go implementation directly or fall through to the generic Call path when
// the user has rebound the global (the "devirtualises... if the user
// overwrote the global, the table slot is updated" rule).
func (rt *Runtime) callIntrinsicOpcode(t *Thread, op bytecode.Op) error {
	def, ok := intrinsicTable[op]
	if !ok {
		return serr.New(serr.FunctionCallFailed, "unimplemented opcode %s", op)
	}
	args := make([]heap.Value, def.arity)
	for i := def.arity - 1; i >= 0; i-- {
		args[i] = t.pop()
	}

	bound := rt.lookupGlobal(def.name)
	if bound != heap.Null() && heap.IsPointer(bound) && heap.ObjectKind(bound) == heap.KindUdata &&
		heap.AsUdata(bound) == rt.intrinsics[def.name] {
		v, err := def.fn(rt, args)
		if err != nil {
			return err
		}
		t.push(v)
		return nil
	}
	v, err := rt.Call(bound, args)
	if err != nil {
		return err
	}
	t.push(v)
	return nil
}

// lookupGlobal mirrors globalGet's search order (component env, then
// builtins) without erroring when absent, returning Null instead.
func (rt *Runtime) lookupGlobal(name string) heap.Value {
	key := heap.AsString(rt.Heap.Intern([]byte(name)))
	if rt.comp != nil {
		if v, ok := heap.MapGet(rt.comp.Env, key); ok {
			return v
		}
	}
	if v, ok := heap.MapGet(rt.Builtins, key); ok {
		return v
	}
	return heap.Null()
}

func iTypeof(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return rt.Heap.Intern([]byte(heap.Type(args[0]))), nil
}

func iIsKind(kind string) func(*Runtime, []heap.Value) (heap.Value, error) {
	return func(rt *Runtime, args []heap.Value) (heap.Value, error) {
		return heap.Bool(heap.Type(args[0]) == kind), nil
	}
}

func iToString(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return rt.Heap.Intern([]byte(heap.Print(args[0]))), nil
}

func iToNumber(rt *Runtime, args []heap.Value) (heap.Value, error) {
	v := args[0]
	if heap.IsNumber(v) {
		return v, nil
	}
	if heap.IsPointer(v) && heap.ObjectKind(v) == heap.KindString {
		s := heap.AsString(v)
		var f float64
		if _, err := fmt.Sscanf(string(s.Bytes[:s.Length]), "%g", &f); err != nil {
			return heap.Null(), serr.New(serr.ArgTypeMismatch, "cannot convert %q to number", string(s.Bytes[:s.Length]))
		}
		return heap.Number(f), nil
	}
	return heap.Null(), serr.New(serr.ArgTypeMismatch, "cannot convert %s to number", heap.Type(v))
}

func iToBoolean(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return heap.Bool(heap.Truthy(args[0])), nil
}

func iPrint(rt *Runtime, args []heap.Value) (heap.Value, error) {
	fmt.Fprintln(os.Stdout, heap.Print(args[0]))
	return heap.Null(), nil
}

func iError(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return heap.Null(), serr.New(serr.AssertFailed, "%s", heap.Print(args[0]))
}

func iAssert(rt *Runtime, args []heap.Value) (heap.Value, error) {
	if !heap.Truthy(args[0]) {
		return heap.Null(), serr.New(serr.AssertFailed, "%s", heap.Print(args[1]))
	}
	return heap.Null(), nil
}

func iSize(rt *Runtime, args []heap.Value) (heap.Value, error) {
	v := args[0]
	if !heap.IsPointer(v) {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "size: value of type %s has no size", heap.Type(v))
	}
	switch heap.ObjectKind(v) {
	case heap.KindString:
		return heap.Number(float64(heap.AsString(v).Length)), nil
	case heap.KindList:
		return heap.Number(float64(heap.AsList(v).Size)), nil
	case heap.KindMap:
		return heap.Number(float64(heap.AsMap(v).LiveCnt)), nil
	}
	return heap.Null(), serr.New(serr.ArgTypeMismatch, "size: value of type %s has no size", heap.Type(v))
}

func iRange(rt *Runtime, args []heap.Value) (heap.Value, error) {
	start, err := asNumber(args[0])
	if err != nil {
		return heap.Null(), err
	}
	end, err := asNumber(args[1])
	if err != nil {
		return heap.Null(), err
	}
	step, err := asNumber(args[2])
	if err != nil {
		return heap.Null(), err
	}
	if step == 0 {
		return heap.Null(), serr.New(serr.DivideByZero, "range: step must not be zero")
	}
	return rt.Heap.NewLoopValue(int64(start), int64(end), int64(step)), nil
}

func iLoop(rt *Runtime, args []heap.Value) (heap.Value, error) {
	n, err := asNumber(args[0])
	if err != nil {
		return heap.Null(), err
	}
	return rt.Heap.NewLoopValue(0, int64(n), 1), nil
}

// iRunString covers spec §4.I's run_string entry point. There is no lexer or
// parser in this implementation's scope (bytecode is the only input form),
// so run_string always reports that dynamic compilation is unavailable
// rather than silently doing nothing.
func iRunString(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return heap.Null(), serr.New(serr.FunctionCallFailed, "run_string: no source compiler is embedded in this runtime")
}

func iMin(rt *Runtime, args []heap.Value) (heap.Value, error) {
	a, err := asNumber(args[0])
	if err != nil {
		return heap.Null(), err
	}
	b, err := asNumber(args[1])
	if err != nil {
		return heap.Null(), err
	}
	if a < b {
		return heap.Number(a), nil
	}
	return heap.Number(b), nil
}

func iMax(rt *Runtime, args []heap.Value) (heap.Value, error) {
	a, err := asNumber(args[0])
	if err != nil {
		return heap.Null(), err
	}
	b, err := asNumber(args[1])
	if err != nil {
		return heap.Null(), err
	}
	if a > b {
		return heap.Number(a), nil
	}
	return heap.Number(b), nil
}

// iSort implements spec §4.I's sort over a List in place: numbers compare
// numerically, strings lexicographically by CompareStrings; mixed-type
// lists are rejected rather than given an arbitrary cross-type order.
func iSort(rt *Runtime, args []heap.Value) (heap.Value, error) {
	v := args[0]
	if !heap.IsPointer(v) || heap.ObjectKind(v) != heap.KindList {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "sort: expected a list, got %s", heap.Type(v))
	}
	l := heap.AsList(v)
	data := l.Data[:l.Size]
	var sortErr error
	sort.SliceStable(data, func(i, j int) bool {
		a, b := data[i], data[j]
		if heap.IsNumber(a) && heap.IsNumber(b) {
			return heap.AsNumber(a) < heap.AsNumber(b)
		}
		if heap.IsPointer(a) && heap.IsPointer(b) &&
			heap.ObjectKind(a) == heap.KindString && heap.ObjectKind(b) == heap.KindString {
			return heap.CompareStrings(heap.AsString(a), heap.AsString(b)) < 0
		}
		sortErr = serr.New(serr.ArgTypeMismatch, "sort: elements of type %s and %s are not comparable", heap.Type(a), heap.Type(b))
		return false
	})
	if sortErr != nil {
		return heap.Null(), sortErr
	}
	return v, nil
}

func iSet(rt *Runtime, args []heap.Value) (heap.Value, error) {
	m, key, val := args[0], args[1], args[2]
	if !heap.IsPointer(m) || heap.ObjectKind(m) != heap.KindMap {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "set: expected a map, got %s", heap.Type(m))
	}
	if !heap.IsPointer(key) || heap.ObjectKind(key) != heap.KindString {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "set: key must be a string, got %s", heap.Type(key))
	}
	heap.MapSet(rt.Heap, heap.AsMap(m), heap.AsString(key), val)
	return heap.Null(), nil
}

func iGet(rt *Runtime, args []heap.Value) (heap.Value, error) {
	m, key := args[0], args[1]
	if !heap.IsPointer(m) || heap.ObjectKind(m) != heap.KindMap {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "get: expected a map, got %s", heap.Type(m))
	}
	if !heap.IsPointer(key) || heap.ObjectKind(key) != heap.KindString {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "get: key must be a string, got %s", heap.Type(key))
	}
	v, ok := heap.MapGet(heap.AsMap(m), heap.AsString(key))
	if !ok {
		return heap.Null(), nil
	}
	return v, nil
}

func iExist(rt *Runtime, args []heap.Value) (heap.Value, error) {
	m, key := args[0], args[1]
	if !heap.IsPointer(m) || heap.ObjectKind(m) != heap.KindMap {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "exist: expected a map, got %s", heap.Type(m))
	}
	if !heap.IsPointer(key) || heap.ObjectKind(key) != heap.KindString {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "exist: key must be a string, got %s", heap.Type(key))
	}
	_, ok := heap.MapGet(heap.AsMap(m), heap.AsString(key))
	return heap.Bool(ok), nil
}

func iMsec(rt *Runtime, args []heap.Value) (heap.Value, error) {
	return heap.Number(float64(time.Now().UnixNano() / int64(time.Millisecond))), nil
}

// iImport backs the generic (possibly user-rebound) call form of import: the
// path is an ordinary string argument rather than a compiled-in constant.
func iImport(rt *Runtime, args []heap.Value) (heap.Value, error) {
	v := args[0]
	if !heap.IsPointer(v) || heap.ObjectKind(v) != heap.KindString {
		return heap.Null(), serr.New(serr.ArgTypeMismatch, "import: path must be a string, got %s", heap.Type(v))
	}
	s := heap.AsString(v)
	return rt.importModule(string(s.Bytes[:s.Length]))
}

// callImportOpcode implements the dedicated CALL_IMPORT opcode (spec §4.I):
// the module path is a compiled-in string constant (operand a) rather than a
// stack argument.
func (rt *Runtime) callImportOpcode(t *Thread, f *Frame, a int) error {
	path := f.Closure.Proto.Code.StrConsts[a]
	v, err := rt.importModule(path)
	if err != nil {
		return err
	}
	t.push(v)
	return nil
}
