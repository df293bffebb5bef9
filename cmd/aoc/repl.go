package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/compiler"
	"github.com/aoclang/aoclang/parser"
	"github.com/aoclang/aoclang/scanner"
	"github.com/aoclang/aoclang/token"
	"github.com/aoclang/aoclang/vm"
	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

// replCmd is the interactive REPL, grounded on informatter-nilan's
// cmd_repl_compiled.go incremental read-loop (buffer lines until brace
// balance and trailing-operator checks say the input is complete) but
// reading lines through readline instead of bufio.Scanner, for history
// and line editing.
type replCmd struct {
	debug *bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive aoclang session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive aoclang session.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("aoclang " + version)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	log := newDebugLogger(*r.debug, os.Stdout)
	machine := vm.New(os.Stdout)
	machine.In = stdinReader()
	if log != nil {
		machine.Debug = log
	}

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		tokens, err := scanner.Scan(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			buffer.Reset()
			continue
		}

		if !isInputReady(tokens) {
			continue
		}

		if log != nil {
			for _, tok := range tokens {
				log.Debugf("token: %s", tok)
			}
		}

		prog, err := parser.Parse(tokens, source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			buffer.Reset()
			continue
		}
		if log != nil {
			if dump, derr := ast.DumpJSON(prog); derr == nil {
				log.Debugln("AST:\n" + dump)
			}
		}

		chunk, err := compiler.Compile(prog, source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			buffer.Reset()
			continue
		}

		if _, err := machine.Exec(chunk, nil, nil); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		buffer.Reset()
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.aoclang_history"
}

// isInputReady mirrors cmd_repl_compiled.go's brace-balance and
// trailing-token heuristic: wait for more lines while braces are unbalanced
// or the last token is an operator/keyword that obviously expects more
// input to follow.
func isInputReady(tokens []token.Token) bool {
	balance := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LBRACE:
			balance++
		case token.RBRACE:
			balance--
		}
	}
	if balance > 0 {
		return false
	}

	last := lastNonTrivial(tokens)
	if last == nil {
		return true
	}

	switch last.Type {
	case token.ASSIGN, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.BANG, token.EQ_EQ, token.BANG_EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.COMMA, token.LPAREN, token.LBRACE, token.COLON,
		token.IF, token.WHILE, token.FOR, token.FN, token.RETURN, token.USE,
		token.AND_AND, token.OR_OR:
		return false
	}
	return true
}

// lastNonTrivial returns the last token that isn't EOF or EOL, so a
// trailing blank line or statement terminator doesn't itself decide
// readiness.
func lastNonTrivial(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type != token.EOF && tokens[i].Type != token.EOL {
			return &tokens[i]
		}
	}
	return nil
}
