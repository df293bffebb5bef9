// Package aoclang exposes the embedded entry point described in §6: a
// single Run call that buffers every byte the pipeline writes — including
// the final error diagnostic, if any — into one in-memory sink, the way an
// embedding host (a browser playground, a test harness) wants to consume
// it rather than talking to a real stdout. `cmd/aoc` is a thin wrapper
// around the same four package-level calls this function makes.
package aoclang

import (
	"strings"

	"github.com/aoclang/aoclang/compiler"
	"github.com/aoclang/aoclang/parser"
	"github.com/aoclang/aoclang/scanner"
	"github.com/aoclang/aoclang/vm"
	"github.com/sirupsen/logrus"
)

// Run scans, parses, compiles, and executes source, returning everything
// written to the output sink during that run as a single string. Any
// error encountered at any stage is formatted and appended to the same
// sink rather than returned separately — the caller only ever gets text
// back, matching the original embedding's `run(source, debug) -> String`
// contract.
func Run(source string, debug bool) string {
	var out strings.Builder

	var log *logrus.Logger
	if debug {
		log = logrus.New()
		log.SetLevel(logrus.DebugLevel)
		log.Out = &out
	}

	tokens, err := scanner.Scan(source)
	if err != nil {
		out.WriteString(err.Error())
		out.WriteString("\n")
		return out.String()
	}
	if log != nil {
		log.Debugln("tokens:")
		for _, tok := range tokens {
			log.Debugf("  %s", tok)
		}
	}

	prog, err := parser.Parse(tokens, source)
	if err != nil {
		out.WriteString(err.Error())
		out.WriteString("\n")
		return out.String()
	}
	if log != nil {
		log.Debugf("parsed %d top-level expressions", len(prog))
	}

	chunk, err := compiler.Compile(prog, source)
	if err != nil {
		out.WriteString(err.Error())
		out.WriteString("\n")
		return out.String()
	}
	if log != nil {
		log.Debugf("compiled chunk: %d bytes of code, %d constants, %d vars",
			len(chunk.Code), len(chunk.Constants), len(chunk.Vars))
	}

	machine := vm.New(&out)
	if log != nil {
		machine.Debug = log
	}

	if _, err := machine.Exec(chunk, nil, nil); err != nil {
		out.WriteString(err.Error())
		out.WriteString("\n")
	}

	return out.String()
}
