package irbuild

import "sparrow/internal/bytecode"

// buildLoop lifts a FORPREP/.../FORLOOP construct. FORPREP's operand names
// the position just past the whole loop (the merge every exit path,
// whether the loop runs zero times or more, converges on). The iterator
// itself stays on the stack model throughout: FORPREP only tests it, it is
// never popped or replaced, so the body's IDREFK/IDREFKV keep reading the
// same node the pre-test read.
func (b *builder) buildLoop() error {
	_, a, next := b.decode(b.pos)
	mergePos := next + a

	iter := b.top(0)
	preTest := b.graph.NewIterTest(iter)
	preIf := b.graph.NewIf(preTest, b.region)
	preIfTrue := b.graph.NewIfTrue(preIf)
	preIfFalse := b.graph.NewIfFalse(preIf)

	lc := &loopCtx{
		outer:      b.loop,
		preIf:      preIf,
		preIfTrue:  preIfTrue,
		preIfFalse: preIfFalse,
	}

	loop := b.graph.NewLoop(preIfTrue)
	lc.loop = loop

	// loopExit's identity and its two successors (for BREAK/CONTINUE
	// targets inside the body) are needed before the body's own final
	// re-test exists; loopExit is born pointing at a placeholder and
	// rewritten once the real test is built.
	placeholder := b.graph.NewConstNull()
	lc.loopExit = b.graph.NewLoopExitPending(placeholder)
	lc.loopTrue = b.graph.NewIfTrue(lc.loopExit)
	lc.loopFalse = b.graph.NewIfFalse(lc.loopExit)

	preLoopStack := b.stack
	bodyStartID := len(b.graph.All())

	body := b.fork(loop)
	body.loop = lc
	body.pos = next
	if err := body.buildLoopBody(); err != nil {
		return err
	}

	realTest := b.graph.NewIterTest(iter)
	b.graph.RewriteInput(lc.loopExit, placeholder, realTest)
	b.graph.AddControlFlow(body.region, lc.loopExit)
	b.graph.AddLoopBackEdge(loop, lc.loopTrue)

	n := len(preLoopStack)
	if len(body.stack) < n {
		n = len(body.stack)
	}
	for i := 0; i < n; i++ {
		left, right := preLoopStack[i], body.stack[i]
		if left == right {
			continue
		}
		phi := b.graph.NewPhi(loop, left, right)
		for _, consumer := range b.graph.Consumers(left) {
			if consumer == phi {
				continue
			}
			if int(consumer.ID) >= bodyStartID {
				b.graph.RewriteInput(consumer, left, phi)
			}
		}
	}

	merge := b.getOrCreateMerge(mergePos, preIfFalse, lc.loopFalse)
	b.stack = reconcile(b.graph, merge, preLoopStack, body.stack)
	b.region = merge
	b.pos = mergePos
	b.loop = lc.outer
	return nil
}

// buildLoopBody steps until FORLOOP is reached, leaving it unconsumed —
// buildLoop reads the loop's exit condition and back-edge from context,
// it never dispatches FORLOOP as an ordinary opcode.
func (b *builder) buildLoopBody() error {
	for b.opAt(b.pos) != bytecode.OpForLoop {
		if err := b.step(); err != nil {
			return err
		}
	}
	return nil
}
