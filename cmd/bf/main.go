// cmd/bf/main.go
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"sentrabf/internal/bferrors"
	"sentrabf/internal/engine"
)

const usage = `usage: bf [flags] <source-file | ->

  --int          run on the reference interpreter instead of the JIT
  --ast, -d      print the optimized IR and exit
  -h, --help     show this message
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	mode := engine.ModeJIT
	dumpAST := false
	var path string

	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			fmt.Print(usage)
			os.Exit(0)
		case "--int":
			mode = engine.ModeInterpreter
		case "--ast", "-d":
			dumpAST = true
		default:
			path = arg
		}
	}

	if path == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	source, err := readSource(path)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	program, err := engine.Compile(source)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if dumpAST {
		fmt.Print(engine.Disassemble(program))
		return
	}

	if err := engine.Run(program, mode, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// readSource reads the program text from path, or from standard input
// when path is "-".
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", bferrors.Wrap(bferrors.IO, "failed to read standard input", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", bferrors.Wrap(bferrors.IO, fmt.Sprintf("failed to read %s", path), err)
	}
	return string(data), nil
}
