// Package aocerr implements the three-tier error taxonomy the language uses:
// syntax errors (scanner and parser), compile errors, and runtime errors.
// Each carries a position stack accumulated from innermost to outermost, in
// the spirit of informatter-nilan's parser.SyntaxError and vm.RuntimeError,
// generalised so every layer can attach its own frame as the error bubbles up.
package aocerr

import (
	"fmt"
	"strings"

	"github.com/aoclang/aoclang/token"
	"github.com/hashicorp/go-multierror"
)

// Frame annotates one source position an error passed through.
type Frame struct {
	Span   token.Span
	Line   int32
	Source string // the full source text this span was taken from, for snippet rendering
}

// Kind distinguishes the three error tiers described in spec.md §7.
type Kind string

const (
	Syntax  Kind = "SyntaxError"
	Compile Kind = "CompileError"
	Runtime Kind = "RuntimeError"
)

// Error is the concrete error type produced at every layer of the pipeline.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Frames  []Frame
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithFrame returns a copy of e with the given frame pushed onto the
// position stack. Errors propagate immediately; each layer wraps with the
// source position it is responsible for (compiler at expression spans, VM at
// instruction spans).
func (e *Error) WithFrame(f Frame) *Error {
	frames := make([]Frame, len(e.Frames), len(e.Frames)+1)
	copy(frames, e.Frames)
	frames = append(frames, f)
	return &Error{Kind: e.Kind, Message: e.Message, Cause: e.Cause, Frames: frames}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "💥 %s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%s)", e.Cause.Error())
	}
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n  line %d: %s", lineOf(f), snippet(f))
	}
	return b.String()
}

// lineOf computes a frame's 1-based line number from its source text,
// falling back to whatever Line was explicitly set (e.g. by the scanner,
// which already knows the current line while it is still scanning).
func lineOf(f Frame) int32 {
	if f.Source == "" {
		return f.Line
	}
	end := f.Span.Start
	if end > len(f.Source) {
		end = len(f.Source)
	}
	return int32(strings.Count(f.Source[:end], "\n")) + 1
}

// snippet renders the single source line a frame points at, with the
// faulting span marked by a caret underline.
func snippet(f Frame) string {
	if f.Source == "" {
		return ""
	}
	lineStart := strings.LastIndexByte(f.Source[:min(f.Span.Start, len(f.Source))], '\n') + 1
	lineEnd := len(f.Source)
	if idx := strings.IndexByte(f.Source[f.Span.Start:], '\n'); idx >= 0 {
		lineEnd = f.Span.Start + idx
	}
	line := f.Source[lineStart:lineEnd]
	col := f.Span.Start - lineStart
	if col < 0 {
		col = 0
	}
	width := f.Span.End - f.Span.Start
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s\n          %s%s", line, strings.Repeat(" ", col), strings.Repeat("^", width))
}

// Aggregate combines multiple independent failures — e.g. one per file in
// a multi-file `aoc run` invocation — into a single error, so a REPL-style
// driver that keeps going after a bad line or a bad file doesn't have to
// invent its own multi-error type. Returns nil if errs is empty.
func Aggregate(errs []error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(es []error) string {
		var b strings.Builder
		for i, e := range es {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(e.Error())
		}
		return b.String()
	}
	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
