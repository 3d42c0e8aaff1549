// Package engine ties the parser/optimizer, reference interpreter, and
// JIT engine behind one API, the shape cmd/bf's driver consumes.
package engine

import (
	"io"

	"sentrabf/internal/interp"
	"sentrabf/internal/ir"
	"sentrabf/internal/jit"
)

// Mode selects which backend executes the compiled IR.
type Mode int

const (
	// ModeJIT runs the program through the lazily-compiling native code
	// generator (the default).
	ModeJIT Mode = iota
	// ModeInterpreter runs the program on the reference interpreter
	// (the --int flag).
	ModeInterpreter
)

// Compile parses and optimizes source into a well-formed IR tree,
// returning any UnmatchedOpen/UnmatchedClose syntax error.
func Compile(source string) ([]ir.Node, error) {
	return ir.Parse(source)
}

// Run executes a compiled program under the requested mode, reading
// from r and writing to w.
func Run(program []ir.Node, mode Mode, r io.Reader, w io.Writer) error {
	switch mode {
	case ModeInterpreter:
		return interp.New(program, r, w).Run()
	default:
		engine, top, err := jit.New(program, r, w)
		if err != nil {
			return err
		}
		defer top.Close()
		defer engine.Close()
		return engine.Run(top)
	}
}

// Disassemble renders program in the debug/assembly-mnemonic form the
// --ast/-d flag prints.
func Disassemble(program []ir.Node) string {
	return ir.Dump(program)
}
