package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aoclang/aoclang/aocerr"
	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/compiler"
	"github.com/aoclang/aoclang/parser"
	"github.com/aoclang/aoclang/scanner"
	"github.com/aoclang/aoclang/vm"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// runCmd reads, compiles, and executes one or more source files in order —
// the compiled counterpart of informatter-nilan's cmd_run_compiled.go.
type runCmd struct {
	debug *bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute aoclang source files" }
func (*runCmd) Usage() string {
	return `run <file> [file ...]:
  Execute aoclang source files in order.
`
}
func (r *runCmd) SetFlags(f *flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 no source file given\n")
		return subcommands.ExitUsageError
	}

	log := newDebugLogger(*r.debug, os.Stdout)

	// Every file runs even if an earlier one failed — spec §6 only promises
	// files run "in order" and a non-zero exit on any uncaught error, not
	// that later files are skipped — so failures are collected rather than
	// aborting the loop, and reported together via aocerr.Aggregate.
	var failures []error
	for _, filename := range args {
		data, err := os.ReadFile(filename)
		if err != nil {
			failures = append(failures, fmt.Errorf("failed to read %s: %w", filename, err))
			continue
		}
		if err := runOne(string(data), log); err != nil {
			failures = append(failures, err)
		}
	}

	if agg := aocerr.Aggregate(failures); agg != nil {
		fmt.Fprintln(os.Stderr, agg.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// runOne drives one source file through the full pipeline against real
// stdout/stdin, dumping tokens/AST/chunk state first when log is non-nil.
func runOne(source string, log *logrus.Logger) error {
	tokens, err := scanner.Scan(source)
	if err != nil {
		return err
	}
	if log != nil {
		for _, tok := range tokens {
			log.Debugf("token: %s", tok)
		}
	}

	prog, err := parser.Parse(tokens, source)
	if err != nil {
		return err
	}
	if log != nil {
		if dump, derr := ast.DumpJSON(prog); derr == nil {
			log.Debugln("AST:\n" + dump)
		}
	}

	chunk, err := compiler.Compile(prog, source)
	if err != nil {
		return err
	}
	if log != nil {
		log.Debugf("chunk: %d bytes of code, %d constants, %d vars", len(chunk.Code), len(chunk.Constants), len(chunk.Vars))
	}

	machine := vm.New(os.Stdout)
	machine.In = stdinReader()
	if log != nil {
		machine.Debug = log
	}
	_, err = machine.Exec(chunk, nil, nil)
	return err
}
