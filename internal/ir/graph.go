package ir

import "sparrow/internal/heap"

// Graph is one Proto's IR: an arena of Nodes addressed by monotonic id,
// plus the Start/End anchors every graph has. The arena's only job here is
// id assignment and `All()` iteration order; edges between Nodes are
// direct pointers (see node.go's doc comment for why plain slices suffice
// here).
type Graph struct {
	Proto *heap.Proto

	Start *Node
	End   *Node

	nodes  []*Node
	nextID uint32
	gen    uint8
}

// NewGraph allocates a Graph for proto, already containing its Start and
// End control nodes.
func NewGraph(proto *heap.Proto) *Graph {
	g := &Graph{Proto: proto}
	g.Start = g.newNode(OpStart)
	g.End = g.newNode(OpEnd)
	return g
}

func (g *Graph) newNode(op Op) *Node {
	a := arityFor(op)
	n := &Node{
		ID:     g.nextID,
		Op:     op,
		MinIn:  a.minIn,
		MaxIn:  a.maxIn,
		MinOut: a.minOut,
		MaxOut: a.maxOut,
	}
	g.nextID++
	g.nodes = append(g.nodes, n)
	return n
}

// All returns every node ever allocated in this Graph, in id order. Dead
// (unreachable) nodes are still present here; a DCE pass walks from End and
// marks Dead rather than mutating this arena.
func (g *Graph) All() []*Node { return g.nodes }

// AddInput links input as one of consumer's use-def operands and,
// reciprocally, consumer as one of input's def-use consumers.
func (g *Graph) AddInput(consumer, input *Node) { consumer.addInput(input) }

// AddControlFlow links pred -> succ in control-flow order. Control nodes
// reuse the same Input/Output chains as data nodes; for a control node the
// chain is read as "predecessors" / "successors" rather than "operands" /
// "consumers".
func (g *Graph) AddControlFlow(pred, succ *Node) { succ.addInput(pred) }

// Consumers returns a snapshot of every node currently using n as an
// input — safe to range over while mutating the graph, unlike n.Outputs
// directly.
func (g *Graph) Consumers(n *Node) []*Node {
	return append([]*Node(nil), n.Outputs...)
}

// ReplaceUses retargets every consumer of old onto new. The loop φ-patch
// pass does not use it; it calls RewriteInput per consumer instead.
func (g *Graph) ReplaceUses(old, new *Node) {
	for _, consumer := range g.Consumers(old) {
		consumer.replaceInput(old, new)
	}
}

// RewriteInput retargets a single consumer's old input onto new, leaving
// every other consumer of old untouched. Used by the loop φ-patch pass to
// rewrite the definitions snapshotted before the Phi was allocated,
// without disturbing the Phi's own reference to old.
func (g *Graph) RewriteInput(consumer, old, new *Node) { consumer.replaceInput(old, new) }

// bind marks stmt as bound to region: the node participates in that
// region's effect-ordered statement list iff it actually has an effect.
func (g *Graph) bind(stmt, region *Node) {
	if !stmt.HasEffect() {
		return
	}
	stmt.Bounded = true
	stmt.Region = region
	g.AddInput(region, stmt)
}

// NewTraversal returns the generation to pass to Node.color/SetColor for
// one fresh mark-and-sweep style pass, rotating by +2 so stale marks from
// the previous traversal read as White without a full reset.
func (g *Graph) NewTraversal() uint8 {
	g.gen += 2
	return g.gen
}

func (n *Node) White(gen uint8) bool { return n.color(gen) == colorWhite }
func (n *Node) Grey(gen uint8) bool  { return n.color(gen) == colorGrey }
func (n *Node) Black(gen uint8) bool { return n.color(gen) == colorBlack }

func (n *Node) SetGrey(gen uint8)  { n.setColor(gen, colorGrey) }
func (n *Node) SetBlack(gen uint8) { n.setColor(gen, colorBlack) }

// MarkDeadFrom flags unreachable as Dead, along with every control node
// reachable forward from it. Called by irbuild after an unconditional
// Jump/Break/Continue so the stub region built for any trailing,
// unreachable instructions reads as dead rather than live.
func (g *Graph) MarkDeadFrom(unreachable *Node) {
	gen := g.NewTraversal()
	var walk func(n *Node)
	walk = func(n *Node) {
		if !n.White(gen) {
			return
		}
		n.SetBlack(gen)
		n.Dead = true
		for _, succ := range n.Outputs {
			if succ.Op.Family() == FamilyControl {
				walk(succ)
			}
		}
	}
	walk(unreachable)
}
