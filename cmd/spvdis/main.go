// Command spvdis disassembles a SPIR-V binary into assembly-like text.
//
// Usage:
//
//	spvdis [options] <file.spv>
//
// Linked modules print function boundaries as comments; -nops also shows
// soft-deleted instructions of unfinished modules.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gogpu/mixer/spirv"
)

var (
	showNops  = flag.Bool("nops", false, "print no-op instructions")
	checkOnly = flag.Bool("check", false, "only decode and report instruction errors")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	m, err := spirv.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *checkOnly {
		fmt.Printf("%s: ok (%d functions, bound %d)\n", args[0], m.FunctionCount(), m.Header.Bound)
		return
	}

	if err := spirv.Disassemble(os.Stdout, m, *showNops); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spvdis [options] <file.spv>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
