// Package irbuild lifts a compiled Proto's bytecode into the sea-of-nodes
// graph package ir defines. It is a direct translation of the abstract
// stack-machine interpretation original_source/src/vm/compiler/bc-ir-builder.c
// performs: walk the instruction stream once, keep a vector of *ir.Node
// standing in for the real VM's value stack, and let every opcode either
// push/pop/replace an entry or branch the model (if/branch/loop) by forking
// a sub-builder and reconciling the two resulting stacks with Phis.
//
// The model vector is addressed two ways, matching how the real VM's
// Thread.Stack is addressed from a frame: push/pop/top are relative to the
// current top (expression evaluation), while LOADV/MOVE read and write an
// absolute frame-relative slot — both operate on the very same vector.
package irbuild

import (
	"fmt"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/ir"
)

// loopCtx mirrors the original's LoopBuilder: the handful of node identities
// a loop body's BREAK/CONTINUE bytecode needs to reference before the body
// itself, and hence the loop's back-edge and exit predecessor, exist.
type loopCtx struct {
	outer *loopCtx

	preIf      *ir.Node
	preIfTrue  *ir.Node
	preIfFalse *ir.Node
	loop       *ir.Node
	loopExit   *ir.Node
	loopTrue   *ir.Node
	loopFalse  *ir.Node
}

// builder walks one Proto's bytecode, threading a single stack-model vector
// and current region through linear code and forking a clone of itself (see
// fork) to explore each branch of an if/loop/short-circuit construct.
type builder struct {
	proto *heap.Proto
	code  *bytecode.Buffer
	graph *ir.Graph

	stack  []*ir.Node
	region *ir.Node
	pos    int

	// merges is keyed by bytecode code-position: every if/elif/else ladder
	// and every loop exit looks its shared Merge up here first, so a
	// position visited by more than one predecessor collapses onto one
	// Merge instead of nesting one per link in the chain.
	merges map[int]*ir.Node

	loop *loopCtx
}

// Build lifts proto into a fresh IR graph.
func Build(proto *heap.Proto) (*ir.Graph, error) {
	g := ir.NewGraph(proto)
	b := &builder{
		proto:  proto,
		code:   proto.Code,
		graph:  g,
		region: g.Start,
		merges: make(map[int]*ir.Node),
	}
	for i := 0; i < proto.Argc; i++ {
		b.push(g.NewArgument(i))
	}
	end := len(proto.Code.Code)
	for b.pos < end {
		if err := b.step(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// fork clones the builder's stack-model vector (so the clone's pushes/pops
// never alias the original's) while sharing the graph, proto, merge table
// and loop context, and starting from a fresh region — used to build each
// branch of an if or loop independently before stack reconciliation.
func (b *builder) fork(region *ir.Node) *builder {
	clone := &builder{
		proto:  b.proto,
		code:   b.code,
		graph:  b.graph,
		stack:  append([]*ir.Node(nil), b.stack...),
		region: region,
		pos:    b.pos,
		merges: b.merges,
		loop:   b.loop,
	}
	return clone
}

// adopt copies a sub-builder's resulting position and stack back into b
// once that sub-builder's branch has finished.
func (b *builder) adopt(sub *builder) {
	b.pos = sub.pos
	b.stack = sub.stack
}

func (b *builder) decode(pos int) (bytecode.Op, int, int) { return b.code.Decode(pos) }

func (b *builder) opAt(pos int) bytecode.Op { return bytecode.Op(b.code.Code[pos]) }

// --- stack model -----------------------------------------------------

func (b *builder) push(n *ir.Node) { b.stack = append(b.stack, n) }

func (b *builder) pop(n int) {
	b.stack = b.stack[:len(b.stack)-n]
}

// top returns the node n slots below the current top (top(0) is TOS).
func (b *builder) top(n int) *ir.Node { return b.stack[len(b.stack)-1-n] }

// replace overwrites TOS in place (pop-then-push of a single value).
func (b *builder) replace(n *ir.Node) { b.stack[len(b.stack)-1] = n }

// bot returns the node at absolute frame-relative slot idx, extending the
// model with fresh Null constants if idx has never been written — LOADV
// tolerates reading a not-yet-written slot by producing Null.
func (b *builder) bot(idx int) *ir.Node {
	b.ensure(idx + 1)
	return b.stack[idx]
}

// place writes n into absolute slot idx, extending the model with Nulls if
// necessary first.
func (b *builder) place(idx int, n *ir.Node) {
	b.ensure(idx + 1)
	b.stack[idx] = n
}

func (b *builder) ensure(size int) {
	for len(b.stack) < size {
		b.stack = append(b.stack, b.graph.NewConstNull())
	}
}

// getOrCreateMerge looks up the Merge already registered at pos (an
// if/elif/else ladder or a loop exit revisiting the same target) and adds
// preds as additional predecessors, or creates a fresh Merge the first time
// pos is reached.
func (b *builder) getOrCreateMerge(pos int, preds ...*ir.Node) *ir.Node {
	if m, ok := b.merges[pos]; ok {
		for _, p := range preds {
			if p != m {
				b.graph.AddControlFlow(p, m)
			}
		}
		return m
	}
	m := b.graph.NewMerge(preds...)
	b.merges[pos] = m
	return m
}

// reconcile builds the merged stack of a branch pair: for every slot both
// stacks have, a Phi bound to merge replaces it when the two sides differ;
// slots the shorter stack lacks are discarded, matching the original's
// truncate-to-shorter rule for join points that cross a branch.
func reconcile(g *ir.Graph, merge *ir.Node, left, right []*ir.Node) []*ir.Node {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]*ir.Node, n)
	for i := 0; i < n; i++ {
		if left[i] == right[i] {
			out[i] = left[i]
			continue
		}
		out[i] = g.NewPhi(merge, left[i], right[i])
	}
	return out
}

func (b *builder) step() error {
	op := b.opAt(b.pos)
	switch op {
	case bytecode.OpIf:
		return b.buildIf()
	case bytecode.OpForPrep:
		return b.buildLoop()
	case bytecode.OpBrT, bytecode.OpBrF, bytecode.OpBrTKeep, bytecode.OpBrFKeep:
		return b.buildBranch(op)
	default:
		return b.buildLinear(op)
	}
}

// buildUntil runs step repeatedly until the position reaches end, used by
// the false side of an if and the fallthrough side of a short-circuit
// branch where there is no nested ENDIF to watch for.
func (b *builder) buildUntil(end int) error {
	for b.pos < end {
		if err := b.step(); err != nil {
			return err
		}
	}
	return nil
}

func unsupportedOp(op bytecode.Op) error {
	return fmt.Errorf("irbuild: unsupported opcode %s", op)
}
