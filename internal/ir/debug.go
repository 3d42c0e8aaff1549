package ir

import (
	"fmt"
	"strings"
)

// Dump renders an IR tree as an indented assembly-style mnemonic listing,
// the form printed by the CLI's --ast/-d flag. Loops print as a
// bracketed, indented block rather than as jump targets, since the IR
// keeps its tree shape until each backend flattens it.
func Dump(nodes []Node) string {
	var sb strings.Builder
	dump(&sb, nodes, 0)
	return sb.String()
}

func dump(sb *strings.Builder, nodes []Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		sb.WriteString(indent)
		sb.WriteString(mnemonic(n))
		sb.WriteString("\n")
		if n.Op == Loop {
			dump(sb, n.Body, depth+1)
			sb.WriteString(indent)
			sb.WriteString("]\n")
		}
	}
}

func mnemonic(n Node) string {
	switch n.Op {
	case Incr:
		if n.Byte == 1 {
			return "INC"
		}
		return fmt.Sprintf("ADD\t0x%02X", n.Byte)
	case Decr:
		if n.Byte == 1 {
			return "DEC"
		}
		return fmt.Sprintf("SUB\t0x%02X", n.Byte)
	case Next:
		if n.Count == 1 {
			return "NEXT"
		}
		return fmt.Sprintf("NEXT\t0x%04X", n.Count)
	case Prev:
		if n.Count == 1 {
			return "PREV"
		}
		return fmt.Sprintf("PREV\t0x%04X", n.Count)
	case Set:
		return fmt.Sprintf("SET\t0x%02X", n.Byte)
	case Print:
		return "PRINT"
	case Read:
		return "READ"
	case AddTo:
		return fmt.Sprintf("ADDTO\t%d", n.Offset)
	case SubFrom:
		return fmt.Sprintf("SUBFROM\t%d", n.Offset)
	case MulAddTo:
		return fmt.Sprintf("MULADD\t%d,x%d", n.Offset, n.Factor)
	case CopyTo:
		return fmt.Sprintf("COPYTO\t%v", n.Offsets)
	case Loop:
		return "LOOP ["
	default:
		return "?"
	}
}
