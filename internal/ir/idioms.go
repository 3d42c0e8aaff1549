package ir

// recognizeIdiom inspects a single Loop node (whose body has already been
// through the peephole pass) and replaces it with the shorthand IR node
// it matches. Only bodies whose cell effect is statically provable to
// leave the current cell at zero are rewritten; anything else is
// returned unchanged as Loop(body).
func recognizeIdiom(n Node) Node {
	if n.Op != Loop {
		return n
	}

	if shorthand, ok := clearLoop(n.Body); ok {
		return shorthand
	}
	if shorthand, ok := moveOrMultiplyLoop(n.Body); ok {
		return shorthand
	}
	if shorthand, ok := copyLoop(n.Body); ok {
		return shorthand
	}
	return n
}

// clearLoop recognizes [-] and [+]: a single-instruction body that
// increments or decrements the current cell by one, which (run to
// completion) always leaves it at zero.
func clearLoop(body []Node) (Node, bool) {
	if len(body) != 1 {
		return Node{}, false
	}
	n := body[0]
	if (n.Op == Decr || n.Op == Incr) && n.Byte == 1 {
		return set(0), true
	}
	return Node{}, false
}

// moveOrMultiplyLoop recognizes the canonical four-instruction idiom
// [->+<] (and its Prev/Decr variants): decrement the source cell, move the
// data pointer by a fixed offset, add to (or subtract from, or multiply-add
// to) the cell found there, then move back.
func moveOrMultiplyLoop(body []Node) (Node, bool) {
	if len(body) != 4 {
		return Node{}, false
	}
	if body[0].Op != Decr || body[0].Byte != 1 {
		return Node{}, false
	}

	delta, ok := asSignedMove(body[1])
	if !ok {
		return Node{}, false
	}
	back, ok := asSignedMove(body[3])
	if !ok || back != -delta {
		return Node{}, false
	}
	if delta < -0x8000 || delta > 0x7fff {
		return Node{}, false
	}

	target := body[2]
	off := int16(delta)
	switch {
	case target.Op == Incr && target.Byte == 1:
		return addTo(off), true
	case target.Op == Incr && target.Byte > 1:
		return mulAddTo(off, target.Byte), true
	case target.Op == Decr && target.Byte == 1:
		return subFrom(off), true
	}
	return Node{}, false
}

// copyLoop recognizes the generalized move-to-many-targets idiom: the body
// decrements the source cell, then visits zero or more other cells via
// Next/Prev and adds one to each via Incr(1), returning the data pointer to
// its starting position. At least one visited offset must be non-zero
// (otherwise the body degenerates to a redundant self-increment, which the
// peephole pass would already have folded away).
func copyLoop(body []Node) (Node, bool) {
	if len(body) < 2 {
		return Node{}, false
	}
	if body[0].Op != Decr || body[0].Byte != 1 {
		return Node{}, false
	}

	var rel int64
	var offsets []int16
	sawNonzero := false

	for _, n := range body[1:] {
		switch {
		case n.Op == Next:
			rel += int64(n.Count)
		case n.Op == Prev:
			rel -= int64(n.Count)
		case n.Op == Incr && n.Byte == 1:
			if rel == 0 {
				// An Incr back at the source cell's own position (reached
				// mid-body, before the implicit final clear) would partially
				// cancel the leading Decr(1) and change how many iterations
				// the loop runs for, which no source-clearing CopyTo can
				// express. Bail out and leave the loop unrecognized.
				return Node{}, false
			}
			if rel < -0x8000 || rel > 0x7fff {
				return Node{}, false
			}
			offsets = append(offsets, int16(rel))
			sawNonzero = true
		default:
			return Node{}, false
		}
	}

	if rel != 0 || !sawNonzero || len(offsets) == 0 {
		return Node{}, false
	}

	return copyTo(offsets), true
}

// asSignedMove converts a Next/Prev node into a signed displacement, or
// reports failure for anything else.
func asSignedMove(n Node) (int64, bool) {
	switch n.Op {
	case Next:
		return int64(n.Count), true
	case Prev:
		return -int64(n.Count), true
	default:
		return 0, false
	}
}
