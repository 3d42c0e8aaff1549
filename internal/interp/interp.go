// Package interp implements the reference interpreter: the IR dispatch
// loop whose observable behavior the JIT must match byte-for-byte.
package interp

import (
	"io"

	"sentrabf/internal/bferrors"
	"sentrabf/internal/ir"
	"sentrabf/internal/tape"
)

// opKind tags a single flattened dispatch slot. Loop is unrolled into a
// BeginLoop/EndLoop bracket pair whose arg is the number of slots to
// skip forward (BeginLoop, when the cell is zero) or back up (EndLoop,
// when it is not).
type opKind int

const (
	opIncr opKind = iota
	opDecr
	opNext
	opPrev
	opSet
	opPrint
	opRead
	opAddTo
	opSubFrom
	opMulAddTo
	opCopyTo
	opBeginLoop
	opEndLoop
)

type slot struct {
	kind    opKind
	byteArg byte
	count   uint16
	offset  int16
	factor  byte
	offsets []int16
	arg     int // BeginLoop/EndLoop: number of slots to skip/back up
}

// Interpreter executes a flattened IR program against a tape, reading
// from and writing to the host's byte streams.
type Interpreter struct {
	tape    *tape.Tape
	program []slot
	reader  io.Reader
	writer  io.Writer
}

// New flattens prog and binds it to a fresh 30,000-cell tape.
func New(prog []ir.Node, reader io.Reader, writer io.Writer) *Interpreter {
	return &Interpreter{
		tape:    tape.New(),
		program: flatten(prog),
		reader:  reader,
		writer:  writer,
	}
}

// Reset zeroes the tape and rewinds the data pointer, so the same
// interpreter instance can run its program again without reallocating
// a fresh tape. The program itself is fixed when New is called.
func (in *Interpreter) Reset() {
	in.tape.Reset()
}

// Tape exposes the live tape, primarily for parity tests comparing final
// cell state against the JIT.
func (in *Interpreter) Tape() *tape.Tape {
	return in.tape
}

// flatten lowers a tree-shaped IR into a linear slot stream with
// BeginLoop/EndLoop brackets, so the dispatch loop never re-walks the
// tree on a loop iteration.
func flatten(nodes []ir.Node) []slot {
	var out []slot
	flattenInto(&out, nodes)
	return out
}

func flattenInto(out *[]slot, nodes []ir.Node) {
	for _, n := range nodes {
		switch n.Op {
		case ir.Incr:
			*out = append(*out, slot{kind: opIncr, byteArg: n.Byte})
		case ir.Decr:
			*out = append(*out, slot{kind: opDecr, byteArg: n.Byte})
		case ir.Next:
			*out = append(*out, slot{kind: opNext, count: n.Count})
		case ir.Prev:
			*out = append(*out, slot{kind: opPrev, count: n.Count})
		case ir.Set:
			*out = append(*out, slot{kind: opSet, byteArg: n.Byte})
		case ir.Print:
			*out = append(*out, slot{kind: opPrint})
		case ir.Read:
			*out = append(*out, slot{kind: opRead})
		case ir.AddTo:
			*out = append(*out, slot{kind: opAddTo, offset: n.Offset})
		case ir.SubFrom:
			*out = append(*out, slot{kind: opSubFrom, offset: n.Offset})
		case ir.MulAddTo:
			*out = append(*out, slot{kind: opMulAddTo, offset: n.Offset, factor: n.Factor})
		case ir.CopyTo:
			*out = append(*out, slot{kind: opCopyTo, offsets: n.Offsets})
		case ir.Loop:
			beginIdx := len(*out)
			*out = append(*out, slot{kind: opBeginLoop})
			flattenInto(out, n.Body)
			endIdx := len(*out)
			*out = append(*out, slot{kind: opEndLoop})
			(*out)[beginIdx].arg = endIdx - beginIdx
			(*out)[endIdx].arg = endIdx - beginIdx
		}
	}
}

// Run executes the flattened program to completion, or returns a fatal
// error: data-pointer underflow on Prev, or any read/write error other
// than EOF (which instead delivers '\n').
func (in *Interpreter) Run() error {
	pc := 0
	for pc < len(in.program) {
		s := in.program[pc]
		switch s.kind {
		case opIncr:
			in.tape.SetCell(in.tape.Cell() + s.byteArg)
		case opDecr:
			in.tape.SetCell(in.tape.Cell() - s.byteArg)
		case opNext:
			in.tape.Advance(int(s.count))
		case opPrev:
			if in.tape.Underflows(int(s.count)) {
				return bferrors.NewRuntime("data pointer underflowed past cell 0")
			}
			in.tape.Retreat(int(s.count))
		case opSet:
			in.tape.SetCell(s.byteArg)
		case opPrint:
			if err := in.print(in.tape.Cell()); err != nil {
				return err
			}
		case opRead:
			b, err := in.read()
			if err != nil {
				return err
			}
			in.tape.SetCell(b)
		case opAddTo:
			if err := in.bulkAdd(s.offset, in.tape.Cell()); err != nil {
				return err
			}
			in.tape.SetCell(0)
		case opSubFrom:
			if err := in.bulkAdd(s.offset, -in.tape.Cell()); err != nil {
				return err
			}
			in.tape.SetCell(0)
		case opMulAddTo:
			if err := in.bulkAdd(s.offset, in.tape.Cell()*s.factor); err != nil {
				return err
			}
			in.tape.SetCell(0)
		case opCopyTo:
			v := in.tape.Cell()
			for _, off := range s.offsets {
				if err := in.bulkAdd(off, v); err != nil {
					return err
				}
			}
			in.tape.SetCell(0)
		case opBeginLoop:
			if in.tape.Cell() == 0 {
				pc += s.arg
				continue
			}
		case opEndLoop:
			if in.tape.Cell() != 0 {
				pc -= s.arg
				continue
			}
		}
		pc++
	}
	return nil
}

// bulkAdd adds delta (wrapping mod 256) to the cell at the data pointer
// plus offset, matching AddTo/SubFrom/MulAddTo/CopyTo semantics. A target
// below cell 0 is the same underflow the unoptimized Prev would have hit.
func (in *Interpreter) bulkAdd(offset int16, delta byte) error {
	idx := in.tape.DP() + int(offset)
	if idx < 0 {
		return bferrors.NewRuntime("data pointer underflowed past cell 0")
	}
	in.tape.SetAt(idx, in.tape.At(idx)+delta)
	return nil
}

// print writes one byte to the output sink.
func (in *Interpreter) print(b byte) error {
	_, err := in.writer.Write([]byte{b})
	if err != nil {
		return bferrors.Wrap(bferrors.IO, "write failed", err)
	}
	return nil
}

// read consumes one byte from the input source. EOF delivers '\n'
// instead of propagating as an error.
func (in *Interpreter) read() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(in.reader, buf[:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return '\n', nil
		}
		return 0, bferrors.Wrap(bferrors.IO, "read failed", err)
	}
	return buf[0], nil
}
