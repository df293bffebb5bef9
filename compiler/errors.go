package compiler

import (
	"fmt"

	"github.com/aoclang/aoclang/aocerr"
)

// compileErrorf builds a CompileError without a position frame attached;
// the caller (Compiler methods) attaches the expression's span via
// aocerr.Error.WithFrame once it catches the error, the same way
// informatter-nilan's compiler/errors.go keeps message construction
// separate from position tracking.
func compileErrorf(format string, args ...any) *aocerr.Error {
	return aocerr.New(aocerr.Compile, fmt.Sprintf(format, args...))
}
