// Package heap implements Sparrow's value representation and heap object
// model (spec §3, §4.A–§4.D): a one-word tagged Value, the twelve heap
// object subtypes, the string intern pool, the List/Map collection
// primitives, and the mark-and-sweep collector over all of it.
//
// These four components share one package because they are one invariant
// surface in the spec: every heap object begins with a GC header, the GC
// walks object fields directly, and the string pool's entries are String
// objects the GC also owns. Splitting them across packages would mean
// exporting the GC header and every internal field — the teacher's own
// internal/vmregister/value.go makes the same call, keeping NaN-boxing,
// object layouts, and the allocation helpers in one file.
package heap

import (
	"math"
	"unsafe"
)

// Value is Sparrow's one-word value: IEEE-754 double for numbers, reserved
// NaN payload bits for Null/True/False and heap-object pointers (spec §3.1).
// Grounded on the teacher's internal/vmregister.Value NaN-boxing scheme,
// simplified to the spec's tag space (no packed small-int tag: every
// number here is a float64, full stop).
type Value uint64

const (
	qnan = 0x7FF8000000000000 // all-exponent-bits + quiet-bit: the reserved NaN region

	tagNull  = qnan | 1
	tagFalse = qnan | 2
	tagTrue  = qnan | 3

	tagPtr  = 0x7FFC000000000000 // one bit beyond qnan's pattern: heap pointers
	ptrMask = 0x0000FFFFFFFFFFFF
)

func Null() Value  { return tagNull }
func True() Value  { return tagTrue }
func False() Value { return tagFalse }

func Bool(b bool) Value {
	if b {
		return tagTrue
	}
	return tagFalse
}

// Number boxes a float64. Arithmetic that would otherwise produce IEEE NaN
// (e.g. 0/0) is expected to raise serr.DivideByZero before reaching here —
// see spec §3.1's note that signalling-NaN reserves are avoided; this
// value space simply has no room left to represent one.
func Number(f float64) Value {
	return Value(math.Float64bits(f))
}

func IsNumber(v Value) bool { return uint64(v)&qnan != qnan }
func IsNull(v Value) bool   { return v == tagNull }
func IsBool(v Value) bool   { return v == tagTrue || v == tagFalse }
func IsPointer(v Value) bool {
	return uint64(v)&tagPtr == tagPtr
}

func AsNumber(v Value) float64 { return math.Float64frombits(uint64(v)) }
func AsBool(v Value) bool      { return v == tagTrue }

// object extracts the heap Object header pointer from a pointer-tagged
// Value. Callers must have checked IsPointer first.
//
// This converts an arbitrary uintptr back into unsafe.Pointer, which is
// only safe because every live object is also reachable through the
// Heap's global object list (Object.Next, a real typed pointer) — that
// chain is what keeps the Go runtime's own collector from reclaiming the
// object out from under this box. Grounded on the teacher's
// internal/vmregister.AsPointer, which performs the identical conversion.
func object(v Value) *Object {
	return (*Object)(ptrOf(uint64(v) & ptrMask))
}

func ptrOf(bits uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(bits)) //nolint:govet // see object() doc
}

func boxPointer(o *Object) Value {
	bits := uint64(uintptr(unsafe.Pointer(o)))
	if bits&^uint64(ptrMask) != 0 {
		panic("heap: pointer does not fit in 48 bits")
	}
	return Value(tagPtr | bits)
}

// Type returns the dynamic type name, matching the set intrinsics.typeof
// reports (spec §4.I).
func Type(v Value) string {
	switch {
	case IsNull(v):
		return "null"
	case IsBool(v):
		return "boolean"
	case IsNumber(v):
		return "number"
	case IsPointer(v):
		return object(v).Kind.String()
	}
	return "unknown"
}

// Truthy implements the language's boolean coercion: Null and False are the
// only falsy values, matching §4.F.4's comparison rules (Null is special).
func Truthy(v Value) bool {
	if IsNull(v) {
		return false
	}
	if IsBool(v) {
		return AsBool(v)
	}
	return true
}

// EqualPrimitive implements spec §4.A's bitwise equality for tag/payload
// words: two primitive (non-pointer) values are equal iff their bit
// patterns match, and Null compares equal only to Null.
func EqualPrimitive(a, b Value) bool {
	return a == b
}
