package ir

// High-IR node constructors: one per arithmetic/comparison/unary/access/
// iteration/call bytecode operation.

// isPureDataOp reports whether op is effect-free even though it can fail
// at runtime (divide-by-zero, a type mismatch): such failures propagate
// through the builder as a Go error return, not as a graph effect.
func isPureDataOp(op Op) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpMod,
		OpLt, OpLe, OpGt, OpGe, OpEq, OpNe,
		OpNeg, OpNot, OpTest, OpUGet, OpIterTest, OpIterDrefKey, OpIterDrefVal:
		return true
	default:
		return false
	}
}

// NewBinary creates a binary high-IR node (Add/Sub/.../Lt/.../Eq/Ne). Pure
// arithmetic/comparison nodes are effect-free and unbound; region is
// accepted for symmetry with the spec's constructor signature and ignored
// when the op is pure.
func (g *Graph) NewBinary(op Op, left, right, region *Node) *Node {
	n := g.newNode(op)
	g.AddInput(n, left)
	g.AddInput(n, right)
	if !isPureDataOp(op) {
		n.Effect = true
		g.bind(n, region)
	}
	return n
}

// NewUnary creates Neg/Not/Test — all effect-free.
func (g *Graph) NewUnary(op Op, operand, region *Node) *Node {
	n := g.newNode(op)
	g.AddInput(n, operand)
	return n
}

// NewUpvalueGet is effect-free.
func (g *Graph) NewUpvalueGet(slot int) *Node {
	n := g.newNode(OpUGet)
	n.Slot = slot
	return n
}

// NewUpvalueSet is effectful.
func (g *Graph) NewUpvalueSet(slot int, value, region *Node) *Node {
	n := g.newNode(OpUSet)
	n.Slot = slot
	g.AddInput(n, value)
	n.Effect = true
	g.bind(n, region)
	return n
}

// NewAttrGet builds an AGet node for obj[key-ish]. effect is supplied by
// the caller because it depends on obj's statically-known source: a
// freshly built list literal has no meta hook to invoke, so it is
// effect-free, while any other source is conservatively effectful.
// irbuild decides this by checking whether obj is itself a just-built
// PrimList node.
func (g *Graph) NewAttrGet(obj, key *Node, region *Node, effect bool) *Node {
	n := g.newNode(OpAGet)
	g.AddInput(n, obj)
	if key != nil {
		g.AddInput(n, key)
	}
	n.Effect = effect
	if effect {
		g.bind(n, region)
	}
	return n
}

func (g *Graph) NewAttrSet(obj, key, val, region *Node) *Node {
	n := g.newNode(OpASet)
	g.AddInput(n, obj)
	if key != nil {
		g.AddInput(n, key)
	}
	g.AddInput(n, val)
	n.Effect = true
	g.bind(n, region)
	return n
}

// NewGlobalGet/Set are always effectful.
func (g *Graph) NewGlobalGet(name string, region *Node) *Node {
	n := g.newNode(OpGGet)
	n.Key = name
	n.Effect = true
	g.bind(n, region)
	return n
}

func (g *Graph) NewGlobalSet(name string, val, region *Node) *Node {
	n := g.newNode(OpGSet)
	n.Key = name
	g.AddInput(n, val)
	n.Effect = true
	g.bind(n, region)
	return n
}

// Iteration: IterTest/IterDref are pure reads of cursor state; IterNew may
// invoke a userdata's iter hook, so it is effectful.
func (g *Graph) NewIterTest(value *Node) *Node {
	n := g.newNode(OpIterTest)
	g.AddInput(n, value)
	return n
}

func (g *Graph) NewIterNew(value, region *Node) *Node {
	n := g.newNode(OpIterNew)
	g.AddInput(n, value)
	n.Effect = true
	g.bind(n, region)
	return n
}

func (g *Graph) NewIterDrefKey(iter *Node) *Node {
	n := g.newNode(OpIterDrefKey)
	g.AddInput(n, iter)
	return n
}

func (g *Graph) NewIterDrefVal(iter *Node) *Node {
	n := g.newNode(OpIterDrefVal)
	g.AddInput(n, iter)
	return n
}

// NewCall/NewCallIntrinsic are always effectful and always bound.
func (g *Graph) NewCall(fn *Node, args []*Node, region *Node) *Node {
	n := g.newNode(OpCall)
	g.AddInput(n, fn)
	for _, a := range args {
		g.AddInput(n, a)
	}
	n.Effect = true
	g.bind(n, region)
	return n
}

func (g *Graph) NewCallIntrinsic(name string, args []*Node, region *Node) *Node {
	n := g.newNode(OpCallIntrinsic)
	n.Name = name
	for _, a := range args {
		g.AddInput(n, a)
	}
	n.Effect = true
	g.bind(n, region)
	return n
}
