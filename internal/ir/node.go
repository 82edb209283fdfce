package ir

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// Node is one sea-of-nodes graph node: an opcode, effect/prop-effect bits,
// the region it is bound to (if any), a dead bit, a monotonic id, and a
// tri-colour traversal mark.
//
// Inputs is the use-def chain (operands, and — for control nodes — the
// statements bound to that region); Outputs is the def-use chain
// (consumers). A doubly-linked list would let a use be unlinked in O(1);
// plain slices removed by swap-pop are simpler idiomatic Go and no slower
// in practice for graphs of the size a single Proto produces.
type Node struct {
	ID         uint32
	Op         Op
	Effect     bool
	PropEffect bool
	Bounded    bool
	Dead       bool
	mark       uint8

	MinIn, MaxIn   int
	MinOut, MaxOut int

	// Region is the control node this statement is bound to when Bounded
	// is true (nil otherwise). For control nodes themselves it is unused;
	// their graph position is entirely described by Inputs/Outputs.
	Region *Node

	Inputs  []*Node
	Outputs []*Node

	// --- constant payload (Op.Family() == FamilyConstant) ---
	ConstInt  int64
	ConstReal float64
	ConstStr  string
	ConstBool bool
	// Type/Const tag every Constant node with an llir/llvm type witness and
	// typed payload (DOMAIN STACK: github.com/llir/llvm), rather than a
	// hand-rolled enum-plus-interface{} pair.
	Type  types.Type
	Const constant.Constant

	// --- high-IR / primitive payload ---
	Key   string // AGet/ASet string key, GGet/GSet global name
	Slot  int    // UGet/USet slot, AGet/ASet intrinsic-attribute id, Argument index
	Name  string // CallIntrinsic target name, Closure's Proto name
	Index int    // Projection's selected component of a Pair
}

// HasEffect reports whether this node carries an effect of its own or
// propagates one from an input (a list/map literal with an effectful
// element, for instance).
func (n *Node) HasEffect() bool { return n.Effect || n.PropEffect }

func (n *Node) addInput(in *Node) {
	n.Inputs = append(n.Inputs, in)
	in.Outputs = append(in.Outputs, n)
}

func removeFrom(list []*Node, n *Node) []*Node {
	for i, x := range list {
		if x == n {
			last := len(list) - 1
			list[i] = list[last]
			return list[:last]
		}
	}
	return list
}

// replaceInput swaps old for new as one of n's inputs, keeping the
// reciprocal output chains consistent on both sides. Used by the loop
// φ-patch pass to retarget every use of the pre-header definition at the
// newly allocated Phi.
func (n *Node) replaceInput(old, new *Node) {
	for i, in := range n.Inputs {
		if in == old {
			n.Inputs[i] = new
			old.Outputs = removeFrom(old.Outputs, n)
			new.Outputs = append(new.Outputs, n)
		}
	}
}

// Three-colour mark, rotating the generation by +2 per traversal so the
// previous Black becomes the next White without a full-graph reset.
const (
	colorWhite uint8 = 0
	colorGrey  uint8 = 1
	colorBlack uint8 = 2
)

func (n *Node) color(gen uint8) uint8 {
	d := n.mark - gen
	if d == colorGrey || d == colorBlack {
		return d
	}
	return colorWhite
}

func (n *Node) setColor(gen uint8, c uint8) { n.mark = gen + c }
