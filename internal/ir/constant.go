package ir

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// Constant node constructors. Each node is never bound to a region, so an
// unreferenced constant simply has no path from Start and is absent from
// any region's statement list — dead by construction rather than by a
// separate sweep.
//
// Every constant carries an llir/llvm type witness and typed payload
// rather than a hand-written enum: the IR's own optimization passes
// (constant folding, future textual dumping) get a real typed value to
// inspect instead of a bare Go interface{}.

func (g *Graph) NewConstInt32(v int32) *Node {
	n := g.newNode(OpConstInt32)
	n.ConstInt = int64(v)
	n.Type = types.I32
	n.Const = constant.NewInt(types.I32, int64(v))
	return n
}

func (g *Graph) NewConstInt64(v int64) *Node {
	n := g.newNode(OpConstInt64)
	n.ConstInt = v
	n.Type = types.I64
	n.Const = constant.NewInt(types.I64, v)
	return n
}

func (g *Graph) NewConstReal64(v float64) *Node {
	n := g.newNode(OpConstReal64)
	n.ConstReal = v
	n.Type = types.Double
	n.Const = constant.NewFloat(types.Double, v)
	return n
}

func (g *Graph) NewConstString(s string) *Node {
	n := g.newNode(OpConstString)
	n.ConstStr = s
	// Sparrow strings have no first-class LLVM IR representation; the
	// type witness stays nil, same treatment llir/llvm itself gives
	// opaque/aggregate data it does not model.
	return n
}

func (g *Graph) NewConstBoolean(b bool) *Node {
	n := g.newNode(OpConstBoolean)
	n.ConstBool = b
	n.Type = types.I1
	n.Const = constant.NewBool(b)
	return n
}

func (g *Graph) NewConstNull() *Node {
	n := g.newNode(OpConstNull)
	n.Type = types.Void
	return n
}
