package ir

import "testing"

func TestParseBasicOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Node
	}{
		{
			name: "dead code cancels to empty",
			src:  "+-",
			want: nil,
		},
		{
			name: "partial cancel keeps remainder",
			src:  "+++--",
			want: []Node{incr(1)},
		},
		{
			// The trailing Set(0) makes the Incr(3) a dead store, but the
			// peephole pass only folds a Set forward into a following
			// Incr/Decr, never a relative op backward into a Set; see
			// DESIGN.md's clear-loop-folding entry.
			name: "clear loop folds to set",
			src:  "+++[-]",
			want: []Node{incr(3), set(0)},
		},
		{
			name: "set then incr folds further",
			src:  "+[-]+++",
			want: []Node{incr(1), set(3)},
		},
		{
			name: "move loop folds to add-to",
			src:  "+[->+<]",
			want: []Node{incr(1), addTo(1)},
		},
		{
			name: "echo program stays as read/print",
			src:  ",.",
			want: []Node{{Op: Read}, {Op: Print}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.src, err)
			}
			if !Equal(got, tt.want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseBracketErrors(t *testing.T) {
	if _, err := Parse("[[]"); err == nil {
		t.Fatal("expected unmatched `[` error, got nil")
	}
	if _, err := Parse("[]]"); err == nil {
		t.Fatal("expected unmatched `]` error, got nil")
	}
}

func TestParseLeadingLoopDropped(t *testing.T) {
	// All cells start at zero, so a leading loop can never run and must
	// be dropped entirely rather than emitted as a Loop node.
	got, err := Parse("[+++]++")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Node{incr(2)}
	if !Equal(got, want) {
		t.Fatalf("Parse leading loop = %#v, want %#v", got, want)
	}
}

func TestLeadingLoopInsideBodyIsKept(t *testing.T) {
	// A loop body's first instruction runs with the current cell non-zero
	// (the loop entry condition), so a Loop leading a body is live. Only a
	// Loop leading the whole program is unreachable.
	got, err := Parse("+[[.-]]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Op != Loop {
		t.Fatalf("Parse(\"+[[.-]]\") = %#v, want [Incr(1), Loop(...)]", got)
	}
	body := got[1].Body
	if len(body) != 1 || body[0].Op != Loop {
		t.Fatalf("outer loop body = %#v, want the inner [.-] loop kept", body)
	}
	inner := body[0].Body
	if len(inner) != 2 || inner[0].Op != Print || inner[1].Op != Decr {
		t.Fatalf("inner loop body = %#v, want [Print, Decr(1)]", inner)
	}
}

func TestParseCommentBytesIgnored(t *testing.T) {
	got, err := Parse("he+llo-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The comment bytes between `+` and `-` produce no IR, so the two
	// operators are adjacent and cancel out entirely.
	var want []Node
	if !Equal(got, want) {
		t.Fatalf("Parse with comments = %#v, want %#v", got, want)
	}
}

func TestOptimizerConfluence(t *testing.T) {
	programs := []string{
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.",
		"+[->+<]",
		"++[->-<]",
		"+++[->>+++<<]",
		"++[->+>+<<]",
		">+++<[->>+<<]",
	}

	for _, src := range programs {
		t.Run(src, func(t *testing.T) {
			once, err := Parse(src)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			twice := peephole(once)
			if !Equal(once, twice) {
				t.Fatalf("optimizer not confluent for %q:\nonce:  %#v\ntwice: %#v", src, once, twice)
			}
		})
	}
}

func TestCellWrapNoOverflow256(t *testing.T) {
	src := ""
	for i := 0; i < 256; i++ {
		src += "+"
	}
	got, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 256 increments wrap to 0 mod 256, which the coalescing rule would
	// fold into Incr(0) -- but zero-count nodes must never appear, so the
	// whole run collapses to nothing.
	if len(got) != 0 {
		t.Fatalf("256 `+` should fully wrap away, got %#v", got)
	}
}
