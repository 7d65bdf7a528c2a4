// Command mixlink links independently compiled mixin modules into one
// SPIR-V module.
//
// Each input is a module as generated for a single mixin, placeholders
// included. The inputs are merged in command-line order and normalized.
//
// Usage:
//
//	mixlink [options] <input.spv>...
//
// Examples:
//
//	mixlink -o shader.spv base.spv lit.spv material.spv
//	mixlink -v base.spv material.spv > shader.spv
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/mixer/passes"
	"github.com/gogpu/mixer/spirv"
)

var (
	output   = flag.String("o", "", "output file (default: stdout)")
	validate = flag.Bool("validate", true, "validate the linked module")
	verbose  = flag.Bool("v", false, "log every pipeline stage to stderr")
	version  = flag.Bool("version", false, "print version")
)

const mixlinkVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("mixlink version %s\n", mixlinkVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input files specified")
		usage()
		os.Exit(1)
	}

	units, err := readUnits(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := passes.Options{Validate: *validate}
	if *verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	m, report, err := passes.Run(context.Background(), units, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Link error: %v\n", err)
		os.Exit(1)
	}
	spirvBytes := m.Bytes()

	if *output != "" {
		err = os.WriteFile(*output, spirvBytes, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Linked %d modules to %s (%d bytes, %d duplicate types removed)\n",
			len(units), *output, len(spirvBytes), report.TypesRemoved)
	} else {
		_, err = os.Stdout.Write(spirvBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	}
}

// readUnits decodes every input. A unit is named after its file.
func readUnits(paths []string) ([]passes.Unit, error) {
	units := make([]passes.Unit, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		m, err := spirv.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		units = append(units, passes.Unit{Name: name, Module: m})
	}
	return units, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: mixlink [options] <input.spv>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  mixlink a.spv b.spv              Link to stdout\n")
	fmt.Fprintf(os.Stderr, "  mixlink -o shader.spv a.spv b.spv Link to file\n")
	fmt.Fprintf(os.Stderr, "  mixlink -v a.spv b.spv           Log pipeline stages\n")
}
