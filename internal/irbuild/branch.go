package irbuild

import (
	"sparrow/internal/bytecode"
	"sparrow/internal/ir"
)

// buildIf lifts an IF/ENDIF construct. IF's own operand points past the
// true body to where the false body begins (or straight to the merge if
// there is no else); a true body ending in ENDIF carries its own operand
// pointing to the shared merge position, which doubles as the dedup key
// an if/elif/.../else ladder collapses onto.
func (b *builder) buildIf() error {
	_, a, next := b.decode(b.pos)
	falseTarget := next + a

	pred := b.top(0)
	b.pop(1)

	ifNode := b.graph.NewIf(pred, b.region)
	ifTrue := b.graph.NewIfTrue(ifNode)
	ifFalse := b.graph.NewIfFalse(ifNode)

	trueB := b.fork(ifTrue)
	trueB.pos = next
	hadElse, mergePos, err := trueB.buildIfBlock(falseTarget)
	if err != nil {
		return err
	}

	if hadElse {
		falseB := b.fork(ifFalse)
		falseB.pos = falseTarget
		if err := falseB.buildUntil(mergePos); err != nil {
			return err
		}
		merge := b.getOrCreateMerge(mergePos, trueB.region, falseB.region)
		b.stack = reconcile(b.graph, merge, trueB.stack, falseB.stack)
		b.region = merge
		b.pos = mergePos
		return nil
	}

	merge := b.getOrCreateMerge(falseTarget, trueB.region, ifFalse)
	b.stack = reconcile(b.graph, merge, trueB.stack, b.stack)
	b.region = merge
	b.pos = falseTarget
	return nil
}

// buildIfBlock steps the true body until either end is reached (no else
// present) or an ENDIF is found first, in which case it reports the
// position ENDIF's own operand names as the ladder's shared merge point.
func (b *builder) buildIfBlock(end int) (hadElse bool, mergePos int, err error) {
	for b.pos < end {
		if b.opAt(b.pos) == bytecode.OpEndIf {
			_, a, next := b.decode(b.pos)
			mergePos = next + a
			b.pos = mergePos
			return true, mergePos, nil
		}
		if err := b.step(); err != nil {
			return false, 0, err
		}
	}
	return false, 0, nil
}

// buildBranch lifts a short-circuit BRT/BRF/BRTKEEP/BRFKEEP: the
// predicate is wrapped in a Test without disturbing the operand beneath
// it, an If splits on that Test, the taken side is trivial (it executes
// no further bytecode, matching the real jump), and the not-taken side
// builds the fallthrough expression in place on the same stack model —
// a short-circuit right-hand side can only ever grow the stack it starts
// from, never reach outside it, so no fork is needed.
func (b *builder) buildBranch(op bytecode.Op) error {
	_, a, next := b.decode(b.pos)
	target := next + a

	keep := op == bytecode.OpBrTKeep || op == bytecode.OpBrFKeep
	takeOnTrue := op == bytecode.OpBrT || op == bytecode.OpBrTKeep

	orig := b.top(0)
	test := b.graph.NewUnary(ir.OpTest, orig, b.region)
	b.push(test)

	ifNode := b.graph.NewIf(test, b.region)
	ifTrue := b.graph.NewIfTrue(ifNode)
	ifFalse := b.graph.NewIfFalse(ifNode)

	var jumpRegion, fallRegion *ir.Node
	if takeOnTrue {
		jumpRegion, fallRegion = ifTrue, ifFalse
	} else {
		jumpRegion, fallRegion = ifFalse, ifTrue
	}

	jumpStack := append([]*ir.Node(nil), b.stack[:len(b.stack)-1]...)
	if !keep {
		jumpStack = jumpStack[:len(jumpStack)-1]
	}

	b.region = fallRegion
	b.pos = next
	b.pop(1)
	if !keep {
		b.pop(1)
	}
	if err := b.buildUntil(target); err != nil {
		return err
	}
	fallRegion = b.region

	merge := b.getOrCreateMerge(target, jumpRegion, fallRegion)
	b.stack = reconcile(b.graph, merge, jumpStack, b.stack)
	b.region = merge
	b.pos = target
	return nil
}
