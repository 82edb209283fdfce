// Package ir implements Sparrow's sea-of-nodes intermediate representation:
// a single SSA graph shared by every optimization stage, built directly
// from bytecode by package irbuild.
//
// Nodes carry use-def (Inputs) and def-use (Outputs) chains and a
// three-colour traversal mark. Unlike an arena of index-linked nodes
// owned by a manual allocator, this package keeps the arena purely for id
// assignment and global iteration order and lets Nodes reference each
// other with direct *Node pointers — Go's collector already handles the
// IR's inherent cycles (Phi <-> its inputs, Loop-exit -> Loop).
package ir

// Op tags a Node's operation. The 16-bit space is partitioned into
// 256-wide family ranges; Family() recovers the top byte.
type Op uint16

// Family groups related Ops the way spec §6.2's table does.
type Family uint8

const (
	FamilyControl Family = iota
	FamilyShared
	FamilyConstant
	FamilyPrimitive
	FamilyHighIR
)

func (f Family) String() string {
	switch f {
	case FamilyControl:
		return "control"
	case FamilyShared:
		return "shared"
	case FamilyConstant:
		return "constant"
	case FamilyPrimitive:
		return "primitive"
	case FamilyHighIR:
		return "high-ir"
	default:
		return "unknown"
	}
}

func (op Op) Family() Family { return Family(op >> 8) }

const (
	controlBase  = Op(FamilyControl) << 8
	sharedBase   = Op(FamilyShared) << 8
	constantBase = Op(FamilyConstant) << 8
	primBase     = Op(FamilyPrimitive) << 8
	highBase     = Op(FamilyHighIR) << 8
)

// Control family: region/branch/loop/return nodes.
const (
	OpStart Op = controlBase + iota
	OpRegion
	OpMerge
	OpIf
	OpIfTrue
	OpIfFalse
	OpLoop
	OpLoopExit
	OpJump
	OpRet
	OpEnd
)

// Shared family: nodes referenced across the stages that follow from
// branch/loop reconciliation.
const (
	OpPhi Op = sharedBase + iota
	OpProjection
)

// Constant family.
const (
	OpConstInt32 Op = constantBase + iota
	OpConstInt64
	OpConstReal64
	OpConstString
	OpConstBoolean
	OpConstNull
)

// Primitive family.
const (
	OpPrimList Op = primBase + iota
	OpPrimMap
	OpPrimPair
	OpPrimClosure
	OpPrimUpvalueDetach
	OpPrimArgument
)

// High-IR family: one node per arithmetic/comparison/unary/access/iteration/
// call bytecode operation.
const (
	OpAdd Op = highBase + iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpNeg
	OpNot
	OpTest
	OpUGet
	OpUSet
	OpAGet
	OpASet
	OpGGet
	OpGSet
	OpIterTest
	OpIterNew
	OpIterDrefKey
	OpIterDrefVal
	OpCall
	OpCallIntrinsic
)

var opNames = map[Op]string{
	OpStart: "Start", OpRegion: "Region", OpMerge: "Merge", OpIf: "If",
	OpIfTrue: "If-true", OpIfFalse: "If-false", OpLoop: "Loop",
	OpLoopExit: "Loop-exit", OpJump: "Jump", OpRet: "Ret", OpEnd: "End",

	OpPhi: "Phi", OpProjection: "Projection",

	OpConstInt32: "Int32", OpConstInt64: "Int64", OpConstReal64: "Real64",
	OpConstString: "String", OpConstBoolean: "Boolean", OpConstNull: "Null",

	OpPrimList: "List", OpPrimMap: "Map", OpPrimPair: "Pair",
	OpPrimClosure: "Closure", OpPrimUpvalueDetach: "UpvalueDetach",
	OpPrimArgument: "Argument",

	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpPow: "Pow",
	OpMod: "Mod", OpLt: "Lt", OpLe: "Le", OpGt: "Gt", OpGe: "Ge", OpEq: "Eq",
	OpNe: "Ne", OpNeg: "Neg", OpNot: "Not", OpTest: "Test", OpUGet: "UGet",
	OpUSet: "USet", OpAGet: "AGet", OpASet: "ASet", OpGGet: "GGet",
	OpGSet: "GSet", OpIterTest: "IterTest", OpIterNew: "IterNew",
	OpIterDrefKey: "IterDrefKey", OpIterDrefVal: "IterDrefVal",
	OpCall: "Call", OpCallIntrinsic: "CallIntrinsic",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "Op(unknown)"
}

// arity bounds: -1 means unlimited.
type arity struct{ minIn, maxIn, minOut, maxOut int }

var arities = map[Op]arity{
	OpStart:  {0, 0, 0, -1},
	OpRegion: {0, -1, 0, -1},
	// A plain if/else Merge takes exactly the If-true and If-false
	// successors; an if/elif/.../else ladder's shared Merge takes one
	// control input per leaf branch, hence "at least 2" rather than
	// exactly 2.
	OpMerge:    {2, -1, 0, -1},
	OpIf:       {1, 1, 2, 2},
	OpIfTrue:   {1, 1, 0, 1},
	OpIfFalse:  {1, 1, 0, 1},
	OpLoop:     {1, 2, 0, -1},
	OpLoopExit: {2, 2, 2, 2},
	OpJump:     {1, 1, 0, 1},
	OpRet:      {1, 2, 0, 1},
	OpEnd:      {0, -1, 0, 0},

	// Phi accepts "2 or more" data inputs; the builder always creates
	// exactly 2 (true/false side of a branch pair, or a loop's old, new).
	OpPhi:        {2, -1, 0, -1},
	OpProjection: {1, 1, 0, -1},
}

func arityFor(op Op) arity {
	if a, ok := arities[op]; ok {
		return a
	}
	// Everything else (constants, primitives, high-IR statements) is a
	// plain data node: fixed-or-variable data inputs, unbounded consumers.
	return arity{0, -1, 0, -1}
}
