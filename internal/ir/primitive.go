package ir

// Primitive node constructors: List/Map/Pair literals, closure creation,
// upvalue detachment, and argument seeding.

// NewPrimList creates an empty List constructor node.
func (g *Graph) NewPrimList() *Node { return g.newNode(OpPrimList) }

// AddListInput appends elem as one of list's data inputs. Its prop-effect
// is the OR of its elements'; the node is bound to region only once it
// actually has an effect.
func (g *Graph) AddListInput(list, elem, region *Node) {
	g.AddInput(list, elem)
	if elem.HasEffect() {
		list.PropEffect = true
	}
	g.bind(list, region)
}

func (g *Graph) NewPrimMap() *Node { return g.newNode(OpPrimMap) }

// AddMapInput appends one key/value pair as map's data inputs.
func (g *Graph) AddMapInput(m, key, val, region *Node) {
	g.AddInput(m, key)
	g.AddInput(m, val)
	if key.HasEffect() || val.HasEffect() {
		m.PropEffect = true
	}
	g.bind(m, region)
}

// NewPair bundles two Nodes (an iterator's key and value) so a single
// Projection(pair, 0)/Projection(pair, 1) pulls each back out — what a
// dereference-both-key-and-value instruction needs for its two pushed
// values.
func (g *Graph) NewPair(a, b *Node) *Node {
	n := g.newNode(OpPrimPair)
	g.AddInput(n, a)
	g.AddInput(n, b)
	return n
}

// NewClosure represents closure creation over protoName, with one data
// input per captured upvalue cell already resolved to a Node (an Embed
// capture resolves to the enclosing builder's current slot Node; a Detach
// capture resolves to an UpvalueDetach node).
func (g *Graph) NewClosure(protoName string, captures ...*Node) *Node {
	n := g.newNode(OpPrimClosure)
	n.Name = protoName
	for _, c := range captures {
		g.AddInput(n, c)
	}
	return n
}

// NewUpvalueDetach models a closure capturing one of its own enclosing
// closure's upvalue cells by reference, rather than embedding a stack slot.
func (g *Graph) NewUpvalueDetach(slot int) *Node {
	n := g.newNode(OpPrimUpvalueDetach)
	n.Slot = slot
	return n
}

// NewArgument seeds stack slot index with the Node representing "value of
// this Proto's argument i at entry" — the builder's initial stack model
// before any bytecode has executed.
func (g *Graph) NewArgument(index int) *Node {
	n := g.newNode(OpPrimArgument)
	n.Slot = index
	g.AddInput(g.Start, n)
	return n
}
