package tests

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrabf/internal/engine"
	"sentrabf/internal/ir"
)

func readProgram(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("programs/" + name)
	require.NoError(t, err)
	return string(data)
}

func runBoth(t *testing.T, source string, input string) (interp, jitOut string) {
	t.Helper()
	program, err := engine.Compile(source)
	require.NoError(t, err)

	var intBuf, jitBuf bytes.Buffer
	require.NoError(t, engine.Run(program, engine.ModeInterpreter, strings.NewReader(input), &intBuf))
	require.NoError(t, engine.Run(program, engine.ModeJIT, strings.NewReader(input), &jitBuf))
	return intBuf.String(), jitBuf.String()
}

func TestHelloWorld(t *testing.T) {
	source := readProgram(t, "hello_world.bf")
	got, jitGot := runBoth(t, source, "")
	assert.Equal(t, "Hello World!\n", got)
	assert.Equal(t, "Hello World!\n", jitGot)
}

func TestROT13SixteenCharacterLimit(t *testing.T) {
	source := readProgram(t, "rot13-16char.bf")
	got, jitGot := runBoth(t, source, "Hello World! 123")
	assert.Equal(t, "Uryyb Jbeyq! 123", got)
	assert.Equal(t, "Uryyb Jbeyq! 123", jitGot)
}

func TestSquares(t *testing.T) {
	// Each line multiplies a counter into cell 1 and prints it: 6*6 = 36
	// ('$'), then 7*7 = 49 more on top ('U'). Both loops fold to MulAddTo.
	source := readProgram(t, "squares.bf")

	program, err := engine.Compile(source)
	require.NoError(t, err)
	foundMul := false
	for _, n := range program {
		if n.Op == ir.MulAddTo {
			foundMul = true
		}
	}
	assert.True(t, foundMul, "expected a MulAddTo in the optimized IR")

	got, jitGot := runBoth(t, source, "")
	assert.Equal(t, "$U", got)
	assert.Equal(t, "$U", jitGot)
}

func TestEcho(t *testing.T) {
	got, jitGot := runBoth(t, ",.", "X")
	assert.Equal(t, "X", got)
	assert.Equal(t, "X", jitGot)
}

func TestClearLoopFolding(t *testing.T) {
	// "+++[-]" lowers to [Incr(3), Set(0)]: the peephole pass folds a Set
	// into a following Incr/Decr (Set absorbs a relative op that comes
	// after it) but, to stay confluent with the "+[-]+++" case below
	// (where the leading Incr(1) must survive untouched), it does not
	// fold a relative op into a Set that comes after it. The leading
	// Incr(3) here is therefore dead but not yet eliminated; see
	// DESIGN.md's clear-loop-folding entry.
	program, err := engine.Compile("+++[-]")
	require.NoError(t, err)
	require.Len(t, program, 2)
	assert.Equal(t, ir.Incr, program[0].Op)
	assert.Equal(t, byte(3), program[0].Byte)
	assert.Equal(t, ir.Set, program[1].Op)
	assert.Equal(t, byte(0), program[1].Byte)

	program, err = engine.Compile("+[-]+++")
	require.NoError(t, err)
	require.Len(t, program, 2)
	assert.Equal(t, ir.Incr, program[0].Op)
	assert.Equal(t, byte(1), program[0].Byte)
	assert.Equal(t, ir.Set, program[1].Op)
	assert.Equal(t, byte(3), program[1].Byte)
}

func TestMoveLoopFolding(t *testing.T) {
	program, err := engine.Compile("+[->+<]")
	require.NoError(t, err)
	require.Len(t, program, 2)
	assert.Equal(t, ir.Incr, program[0].Op)
	assert.Equal(t, byte(1), program[0].Byte)
	assert.Equal(t, ir.AddTo, program[1].Op)
	assert.Equal(t, int16(1), program[1].Offset)
}

func TestDeadCodeElimination(t *testing.T) {
	program, err := engine.Compile("+-")
	require.NoError(t, err)
	assert.Empty(t, program)

	program, err = engine.Compile("+++--")
	require.NoError(t, err)
	require.Len(t, program, 1)
	assert.Equal(t, ir.Incr, program[0].Op)
	assert.Equal(t, byte(1), program[0].Byte)
}

func TestBracketErrors(t *testing.T) {
	_, err := engine.Compile("[[]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmatched `[`")

	_, err = engine.Compile("[]]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmatched `]`")
}

func TestCellWrap(t *testing.T) {
	source := strings.Repeat("+", 256) + "."
	got, jitGot := runBoth(t, source, "")
	assert.Equal(t, "\x00", got)
	assert.Equal(t, "\x00", jitGot)
}
