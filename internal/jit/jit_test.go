package jit

import (
	"bytes"
	"strings"
	"testing"

	"sentrabf/internal/ir"
)

func compileOrFatal(t *testing.T, source string) []ir.Node {
	t.Helper()
	program, err := ir.Parse(source)
	if err != nil {
		t.Fatalf("ir.Parse(%q): %v", source, err)
	}
	return program
}

func runJIT(t *testing.T, program []ir.Node, input string) string {
	t.Helper()
	var out bytes.Buffer
	engine, top, err := New(program, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer top.Close()

	if err := engine.Run(top); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestHelloWorld(t *testing.T) {
	const src = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."
	program := compileOrFatal(t, src)
	if got, want := runJIT(t, program, ""), "Hello World!\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEcho(t *testing.T) {
	program := compileOrFatal(t, ",.")
	if got, want := runJIT(t, program, "X"), "X"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEOFDeliversNewline(t *testing.T) {
	program := compileOrFatal(t, ",.,.")
	if got, want := runJIT(t, program, ""), "\n\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestDeferredLoopCompiles exercises the promise-pool path: a loop body
// at or above inlineThreshold doesn't match any idiom and is registered
// as a deferred promise rather than compiled inline, compiling on first
// entry via jitCallback. Twenty-five literal Print instructions (which
// never coalesce with each other or with the leading Decr) keep the
// body's optimized length at 26, clear of the threshold, while matching
// none of clearLoop/moveOrMultiplyLoop/copyLoop's shapes.
func TestDeferredLoopCompiles(t *testing.T) {
	source := "+++[-" + strings.Repeat(".", 25) + "]"
	program := compileOrFatal(t, source)

	var out bytes.Buffer
	engine, top, err := New(program, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer top.Close()
	if err := engine.Run(top); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := out.Len(), 3*25; got != want {
		t.Fatalf("printed %d bytes, want %d (loop runs 3 times)", got, want)
	}
}

func TestCellWrapPrintsNUL(t *testing.T) {
	program := compileOrFatal(t, strings.Repeat("+", 256)+".")
	if got, want := runJIT(t, program, ""), "\x00"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
