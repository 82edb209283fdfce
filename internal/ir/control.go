package ir

// Control-flow node constructors for every region variant: plain join,
// branch split, loop header/exit, jump, and return.

// NewRegion creates a plain join point with unbounded predecessors.
func (g *Graph) NewRegion() *Node { return g.newNode(OpRegion) }

// NewIf creates a branch bound to pred, with cond as its data input.
func (g *Graph) NewIf(cond, pred *Node) *Node {
	n := g.newNode(OpIf)
	g.AddInput(n, cond)
	g.AddControlFlow(pred, n)
	return n
}

func (g *Graph) NewIfTrue(ifNode *Node) *Node {
	n := g.newNode(OpIfTrue)
	g.AddControlFlow(ifNode, n)
	return n
}

func (g *Graph) NewIfFalse(ifNode *Node) *Node {
	n := g.newNode(OpIfFalse)
	g.AddControlFlow(ifNode, n)
	return n
}

// NewMerge creates the control node that may carry Phis: for a plain
// if/else it joins exactly the If-true and If-false successors; an
// if/elif/.../else ladder passes one predecessor per leaf branch instead,
// so the whole ladder shares a single Merge rather than one per link in
// the chain.
func (g *Graph) NewMerge(preds ...*Node) *Node {
	n := g.newNode(OpMerge)
	for _, p := range preds {
		g.AddControlFlow(p, n)
	}
	return n
}

// NewLoop begins a loop body; preds is the pre-If-true entering it the
// first time, and (once the back-edge exists) the back-edge successor
// re-entering it.
func (g *Graph) NewLoop(preds ...*Node) *Node {
	n := g.newNode(OpLoop)
	for _, p := range preds {
		g.AddControlFlow(p, n)
	}
	return n
}

// AddLoopBackEdge links a previously-built Loop's second (back-edge)
// predecessor once the body has been fully constructed — the Loop node is
// created with only its pre-header predecessor so the builder can hand the
// node to the body construction before the back-edge source exists.
func (g *Graph) AddLoopBackEdge(loop, backEdge *Node) { g.AddControlFlow(backEdge, loop) }

// NewLoopExit closes one trip through the body: bound to pred (the body's
// final control region) with test as the data input that decides whether
// to loop again. Use NewIfTrue/NewIfFalse on the returned node for the two
// successors, matching the If/If-true/If-false shape the split otherwise
// has: If-true re-enters the Loop on the back-edge, If-false continues
// forward past it.
func (g *Graph) NewLoopExit(pred, test *Node) *Node {
	n := g.newNode(OpLoopExit)
	g.AddInput(n, test)
	g.AddControlFlow(pred, n)
	return n
}

// NewLoopExitPending creates a LoopExit bound to its test value but with no
// control predecessor yet. The body of a loop references loop_exit's
// identity (for break/continue targets) before the body itself has been
// built and its final region is known; the caller links the predecessor
// with AddControlFlow once the body is done.
func (g *Graph) NewLoopExitPending(test *Node) *Node {
	n := g.newNode(OpLoopExit)
	g.AddInput(n, test)
	return n
}

func (g *Graph) NewJump(pred *Node) *Node {
	n := g.newNode(OpJump)
	g.AddControlFlow(pred, n)
	return n
}

// NewReturn creates a Ret node bound to pred with value as its data input,
// and links it forward to the Graph's End automatically.
func (g *Graph) NewReturn(value, pred *Node) *Node {
	n := g.newNode(OpRet)
	if value != nil {
		g.AddInput(n, value)
	}
	g.AddControlFlow(pred, n)
	g.AddControlFlow(n, g.End)
	return n
}

// NewPhi allocates a Phi bound to merge, with one data input per def in
// predecessor order. The builder always passes exactly two defs: an
// if/else Phi takes the true-side then the false-side value; an
// if/elif/.../else ladder gets a chain of nested two-input Phis (one per
// branch pair, all bound to the ladder's shared Merge), not one Phi with
// an input per leaf; a loop-carried Phi takes the pre-header value, then
// the value coming in on the back-edge, and binds to the Loop node rather
// than a Merge — both are valid join points a Phi can reference.
func (g *Graph) NewPhi(merge *Node, defs ...*Node) *Node {
	n := g.newNode(OpPhi)
	for _, d := range defs {
		g.AddInput(n, d)
	}
	n.Bounded = true
	n.Region = merge
	g.AddInput(merge, n)
	return n
}

// NewProjection extracts one component (0 or 1) of a multi-valued node
// such as a Pair. The builder does not call it: IDREFKV pushes separate
// IterDrefKey and IterDrefVal nodes.
func (g *Graph) NewProjection(of *Node, index int) *Node {
	n := g.newNode(OpProjection)
	g.AddInput(n, of)
	n.Index = index
	return n
}
