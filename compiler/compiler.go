// Package compiler lowers an expression tree to bytecode, resolving
// variables and computing closure captures along the way. This mirrors
// informatter-nilan's ASTCompiler (one pass, a visitor-shaped walk over the
// tree, a locals stack scoped by a running depth counter) generalised to
// this language's capture lattice and its richer node set.
package compiler

import (
	"os"

	"github.com/aoclang/aoclang/aocerr"
	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/parser"
	"github.com/aoclang/aoclang/scanner"
	"github.com/aoclang/aoclang/token"
)

// Compiler walks an Expr tree and emits bytecode into the chunk currently
// being built. chunk changes as compilation enters and leaves FnDef bodies.
type Compiler struct {
	chunk  *Chunk
	source string
}

// Compile lowers a top-level program (a sequence of expressions, as parsed
// from one source file or REPL entry) into a single frozen Chunk.
func Compile(prog []ast.Expr, source string) (*Chunk, error) {
	cc := &Compiler{chunk: newChunk(nil), source: source}
	cc.chunk.Source = source
	if err := cc.compileProgram(prog); err != nil {
		return nil, err
	}
	cc.chunk.freeze()
	return cc.chunk, nil
}

func (cc *Compiler) compileProgram(prog []ast.Expr) error {
	if len(prog) == 0 {
		cc.chunk.emit(OpNil, token.Span{})
		return nil
	}
	for i, e := range prog {
		if err := cc.compile(e); err != nil {
			return err
		}
		if i < len(prog)-1 {
			cc.chunk.emit(OpPop, e.Span())
		}
	}
	return nil
}

// wrap attaches the span of the node currently being compiled to an error
// bubbling out of one of its sub-expressions, building up the position
// stack the same way the VM attaches instruction spans at run time.
func (cc *Compiler) wrap(err error, span token.Span) error {
	if ae, ok := err.(*aocerr.Error); ok {
		return ae.WithFrame(aocerr.Frame{Span: span, Source: cc.source})
	}
	return aocerr.Wrap(aocerr.Compile, err, "compile error").
		WithFrame(aocerr.Frame{Span: span, Source: cc.source})
}

// compile dispatches on the concrete node type. A plain type switch is used
// here rather than ast.Expr's Accept/Visitor double-dispatch: the compiler
// is the one place that wants an error return from every node, and a switch
// keeps that plumbing direct instead of funnelling errors through a side
// channel the way a `any`-returning Visitor would require.
func (cc *Compiler) compile(e ast.Expr) error {
	var err error
	switch n := e.(type) {
	case *ast.Nil:
		cc.chunk.emit(OpNil, n.Span())
	case *ast.Int:
		err = cc.compileConstant(Int(n.Value), n.Span())
	case *ast.Float:
		err = cc.compileConstant(Float(n.Value), n.Span())
	case *ast.Str:
		err = cc.compileConstant(Str(n.Value), n.Span())
	case *ast.Identifier:
		err = cc.compileIdentifier(n)
	case *ast.BinaryOp:
		err = cc.compileBinaryOp(n)
	case *ast.UnaryOp:
		err = cc.compileUnaryOp(n)
	case *ast.Assign:
		err = cc.compileAssign(n)
	case *ast.AssignOp:
		err = cc.compileAssignOp(n)
	case *ast.Block:
		err = cc.compileBlock(n)
	case *ast.If:
		err = cc.compileIf(n)
	case *ast.While:
		err = cc.compileWhile(n)
	case *ast.Print:
		err = cc.compilePrint(n)
	case *ast.Read:
		cc.chunk.emit(OpRead, n.Span())
	case *ast.FnDef:
		err = cc.compileFnDef(n)
	case *ast.FnCall:
		err = cc.compileFnCall(n)
	case *ast.VecDef:
		err = cc.compileVecDef(n)
	case *ast.VecGet:
		err = cc.compileVecGet(n)
	case *ast.ObjectDef:
		err = cc.compileObjectDef(n)
	case *ast.Return:
		err = cc.compileReturn(n)
	case *ast.Use:
		err = cc.compileUse(n)
	default:
		err = compileErrorf("unsupported expression node %T", e)
	}
	if err != nil {
		return cc.wrap(err, e.Span())
	}
	return nil
}

func (cc *Compiler) compileConstant(v Value, span token.Span) error {
	idx, err := cc.chunk.addConstant(v)
	if err != nil {
		return err
	}
	cc.chunk.emitOperand(OpConstant, idx, span)
	return nil
}

func (cc *Compiler) compileIdentifier(n *ast.Identifier) error {
	slot, err := cc.resolveIdentifier(n.Name)
	if err != nil {
		return err
	}
	cc.chunk.emitOperand(OpGetVar, uint32(slot), n.Span())
	return nil
}

func opcodeForBinOp(op ast.BinOp) Opcode {
	switch op {
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpMod:
		return OpMod
	case ast.OpAnd:
		return OpAnd
	case ast.OpOr:
		return OpOr
	case ast.OpXor:
		return OpXor
	case ast.OpLShift:
		return OpLShift
	case ast.OpRShift:
		return OpRShift
	case ast.OpEq:
		return OpEq
	case ast.OpNeq:
		return OpNeq
	case ast.OpLt:
		return OpLt
	case ast.OpLeq:
		return OpLeq
	case ast.OpGt:
		return OpGt
	case ast.OpGeq:
		return OpGeq
	default:
		return OpNoop
	}
}

func opcodeForUnOp(op ast.UnOp) Opcode {
	switch op {
	case ast.OpNegate:
		return OpNegate
	case ast.OpNot:
		return OpNot
	case ast.OpUnaryPlus:
		return OpUnaryPlus
	default:
		return OpNoop
	}
}

func (cc *Compiler) compileBinaryOp(n *ast.BinaryOp) error {
	if err := cc.compile(n.Left); err != nil {
		return err
	}
	if err := cc.compile(n.Right); err != nil {
		return err
	}
	cc.chunk.emit(opcodeForBinOp(n.Op), n.Span())
	return nil
}

func (cc *Compiler) compileUnaryOp(n *ast.UnaryOp) error {
	if err := cc.compile(n.Expr); err != nil {
		return err
	}
	cc.chunk.emit(opcodeForUnOp(n.Op), n.Span())
	return nil
}

// compileAssignTo assumes the value to store is already on top of the
// stack and emits whatever write the target requires, per target kind.
func (cc *Compiler) compileAssignTo(target ast.AssignTarget, span token.Span) error {
	switch t := target.(type) {
	case ast.NameTarget:
		slot, err := cc.getVar(t.Name)
		if err != nil {
			return err
		}
		cc.chunk.emitOperand(OpSetVar, uint32(slot), span)
	case ast.IndexTarget:
		if err := cc.compile(t.Vec); err != nil {
			return err
		}
		if err := cc.compile(t.Index); err != nil {
			return err
		}
		cc.chunk.emit(OpVecSet, span)
	case ast.PatternTarget:
		cc.chunk.emitOperand(OpVecUnpack, uint32(len(t.Elems)), span)
		for i, sub := range t.Elems {
			if err := cc.compileAssignTo(sub, span); err != nil {
				return err
			}
			if i < len(t.Elems)-1 {
				cc.chunk.emit(OpPop, span)
			}
		}
	default:
		return compileErrorf("invalid assignment target")
	}
	return nil
}

// compileAssign special-cases a bare-name target: the variable is declared
// in the current chunk *before* the value compiles, so a function that
// refers to its own name in its body (recursion) resolves to the slot this
// assignment is about to fill, per the capture-analysis note in §4.3.
func (cc *Compiler) compileAssign(n *ast.Assign) error {
	if t, ok := n.Target.(ast.NameTarget); ok {
		slot, err := cc.getVar(t.Name)
		if err != nil {
			return err
		}
		if err := cc.compile(n.Value); err != nil {
			return err
		}
		cc.chunk.emitOperand(OpSetVar, uint32(slot), n.Span())
		return nil
	}
	if err := cc.compile(n.Value); err != nil {
		return err
	}
	return cc.compileAssignTo(n.Target, n.Span())
}

func (cc *Compiler) compileAssignOp(n *ast.AssignOp) error {
	op := opcodeForBinOp(n.Op)
	switch t := n.Target.(type) {
	case ast.NameTarget:
		slot, err := cc.getVar(t.Name)
		if err != nil {
			return err
		}
		cc.chunk.emitOperand(OpGetVar, uint32(slot), n.Span())
		if err := cc.compile(n.Value); err != nil {
			return err
		}
		cc.chunk.emit(op, n.Span())
		cc.chunk.emitOperand(OpSetVar, uint32(slot), n.Span())
	case ast.IndexTarget:
		if err := cc.compile(t.Vec); err != nil {
			return err
		}
		if err := cc.compile(t.Index); err != nil {
			return err
		}
		// Clone the already-computed vec/idx so the current value can be
		// loaded without re-evaluating either sub-expression, then shuffle
		// the combined result back underneath a fresh vec/idx pair for the
		// final VecSet — the Clone/Swap dance the spec calls for.
		cc.chunk.emitOperand(OpClone, 1, n.Span())
		cc.chunk.emitOperand(OpClone, 1, n.Span())
		cc.chunk.emit(OpVecGet, n.Span())
		if err := cc.compile(n.Value); err != nil {
			return err
		}
		cc.chunk.emit(op, n.Span())
		cc.chunk.emitOperand(OpSwap, 2, n.Span())
		cc.chunk.emitOperand(OpSwap, 1, n.Span())
		cc.chunk.emit(OpVecSet, n.Span())
	default:
		return compileErrorf("invalid compound-assignment target")
	}
	return nil
}

func (cc *Compiler) compileBlock(n *ast.Block) error {
	cc.beginScope()
	defer cc.endScope()
	if len(n.Exprs) == 0 {
		cc.chunk.emit(OpNil, n.Span())
		return nil
	}
	for i, sub := range n.Exprs {
		if err := cc.compile(sub); err != nil {
			return err
		}
		if i < len(n.Exprs)-1 {
			cc.chunk.emit(OpPop, sub.Span())
		}
	}
	return nil
}

func (cc *Compiler) compileIf(n *ast.If) error {
	if err := cc.compile(n.Cond); err != nil {
		return err
	}
	jumpIfIdx := cc.chunk.emitOperand(OpJumpIf, 0, n.Span())
	if err := cc.compile(n.Then); err != nil {
		return err
	}
	jumpIdx := cc.chunk.emitOperand(OpJump, 0, n.Span())
	cc.patchJumpTo(jumpIfIdx, len(cc.chunk.Code))
	if n.Else != nil {
		if err := cc.compile(n.Else); err != nil {
			return err
		}
	} else {
		cc.chunk.emit(OpNil, n.Span())
	}
	cc.patchJumpTo(jumpIdx, len(cc.chunk.Code))
	return nil
}

func (cc *Compiler) compileWhile(n *ast.While) error {
	cc.chunk.emit(OpNil, n.Span())
	loopStart := len(cc.chunk.Code)
	if err := cc.compile(n.Cond); err != nil {
		return err
	}
	jumpIfIdx := cc.chunk.emitOperand(OpJumpIf, 0, n.Span())
	cc.chunk.emit(OpPop, n.Span())
	if err := cc.compile(n.Body); err != nil {
		return err
	}
	backIdx := len(cc.chunk.Code)
	if backIdx+5-loopStart > maxOperand {
		return compileErrorf("loop body too large")
	}
	d := uint32(backIdx + 5 - loopStart)
	cc.chunk.emitOperand(OpJumpBack, d, n.Span())
	cc.patchJumpTo(jumpIfIdx, len(cc.chunk.Code))
	return nil
}

// patchJumpTo back-patches a placeholder Jump/JumpIf at idx so that it
// lands on target, expressed as the forward distance from the instruction
// immediately following the jump's operand.
func (cc *Compiler) patchJumpTo(idx, target int) {
	nextPc := idx + 5
	cc.chunk.patchOperand(idx, uint32(target-nextPc))
}

func (cc *Compiler) compilePrint(n *ast.Print) error {
	for _, a := range n.Args {
		if err := cc.compile(a); err != nil {
			return err
		}
	}
	cc.chunk.emitOperand(OpPrint, uint32(len(n.Args)), n.Span())
	return nil
}

func (cc *Compiler) compileFnDef(n *ast.FnDef) error {
	child := newChunk(cc.chunk)
	child.Source = cc.source
	saved := cc.chunk
	cc.chunk = child
	for _, p := range n.Params {
		if _, err := declareVar(child, p, Local, 0); err != nil {
			cc.chunk = saved
			return err
		}
	}
	if err := cc.compile(n.Body); err != nil {
		cc.chunk = saved
		return err
	}
	child.freeze()
	cc.chunk = saved
	fnVal := Fn(&FnVal{NumParams: len(n.Params), Chunk: child})
	idx, err := cc.chunk.addConstant(fnVal)
	if err != nil {
		return err
	}
	cc.chunk.emitOperand(OpConstant, idx, n.Span())
	return nil
}

func (cc *Compiler) compileFnCall(n *ast.FnCall) error {
	for _, a := range n.Args {
		if err := cc.compile(a); err != nil {
			return err
		}
	}
	if err := cc.compile(n.Callee); err != nil {
		return err
	}
	cc.chunk.emitOperand(OpFnCall, uint32(len(n.Args)), n.Span())
	return nil
}

func (cc *Compiler) compileVecDef(n *ast.VecDef) error {
	for i := len(n.Elems) - 1; i >= 0; i-- {
		if err := cc.compile(n.Elems[i]); err != nil {
			return err
		}
	}
	cc.chunk.emitOperand(OpVecCollect, uint32(len(n.Elems)), n.Span())
	return nil
}

func (cc *Compiler) compileVecGet(n *ast.VecGet) error {
	if err := cc.compile(n.Vec); err != nil {
		return err
	}
	switch len(n.Indices) {
	case 1:
		if err := cc.compile(n.Indices[0]); err != nil {
			return err
		}
		cc.chunk.emit(OpVecGet, n.Span())
	case 2:
		if err := cc.compile(n.Indices[0]); err != nil {
			return err
		}
		if err := cc.compile(n.Indices[1]); err != nil {
			return err
		}
		cc.chunk.emit(OpVecSlice, n.Span())
	default:
		return compileErrorf("vector index expects 1 or 2 subscripts, got %d", len(n.Indices))
	}
	return nil
}

func (cc *Compiler) compileObjectDef(n *ast.ObjectDef) error {
	for i := range n.Keys {
		if err := cc.compile(n.Keys[i]); err != nil {
			return err
		}
		if err := cc.compile(n.Values[i]); err != nil {
			return err
		}
	}
	cc.chunk.emitOperand(OpObjCollect, uint32(len(n.Keys)), n.Span())
	return nil
}

func (cc *Compiler) compileReturn(n *ast.Return) error {
	if n.Value == nil {
		cc.chunk.emit(OpNil, n.Span())
	} else if err := cc.compile(n.Value); err != nil {
		return err
	}
	cc.chunk.emit(OpReturn, n.Span())
	return nil
}

// compileUse embeds the target file's program as a zero-parameter function
// and calls it immediately, so the use expression's value is whatever the
// imported file's last top-level expression evaluates to.
func (cc *Compiler) compileUse(n *ast.Use) error {
	data, err := os.ReadFile(n.Path)
	if err != nil {
		return compileErrorf("failed to read imported file %q: %s", n.Path, err)
	}
	src := string(data)
	toks, err := scanner.Scan(src)
	if err != nil {
		return compileErrorf("error scanning imported file %q: %s", n.Path, err)
	}
	prog, err := parser.Parse(toks, src)
	if err != nil {
		return compileErrorf("error parsing imported file %q: %s", n.Path, err)
	}

	child := newChunk(cc.chunk)
	child.Source = src
	saved := cc.chunk
	cc.chunk = child
	savedSource := cc.source
	cc.source = src
	cerr := cc.compileProgram(prog)
	cc.source = savedSource
	cc.chunk = saved
	if cerr != nil {
		return compileErrorf("error compiling imported file %q: %s", n.Path, cerr)
	}
	child.freeze()

	fnVal := Fn(&FnVal{NumParams: 0, Chunk: child})
	idx, err := cc.chunk.addConstant(fnVal)
	if err != nil {
		return err
	}
	cc.chunk.emitOperand(OpConstant, idx, n.Span())
	cc.chunk.emitOperand(OpFnCall, 0, n.Span())
	return nil
}

// --- variable resolution and capture analysis ---

func (cc *Compiler) beginScope() { cc.chunk.scopeDepth++ }

func (cc *Compiler) endScope() {
	d := cc.chunk.scopeDepth
	for len(cc.chunk.active) > 0 && cc.chunk.active[len(cc.chunk.active)-1].depth == d {
		cc.chunk.active = cc.chunk.active[:len(cc.chunk.active)-1]
	}
	cc.chunk.scopeDepth--
}

func findActive(chunk *Chunk, name string) (int, bool) {
	for i := len(chunk.active) - 1; i >= 0; i-- {
		if chunk.active[i].name == name {
			return chunk.active[i].slot, true
		}
	}
	return 0, false
}

func declareVar(chunk *Chunk, name string, state VarState, outer int) (int, error) {
	if len(chunk.Vars) >= maxOperand {
		return 0, errTooMany("variables")
	}
	slot := len(chunk.Vars)
	chunk.Vars = append(chunk.Vars, VarInfo{Name: name, State: state, Outer: outer})
	chunk.active = append(chunk.active, chunkVar{name: name, slot: slot, depth: chunk.scopeDepth})
	return slot, nil
}

func promoteOwned(chunk *Chunk, slot int) {
	if chunk.Vars[slot].State == Local {
		chunk.Vars[slot].State = Owned
	}
}

// lookupVar walks from chunk up through its ancestors looking for an
// already-visible binding of name. Each chunk it passes through on the way
// down gets a fresh Captured slot pointing at its immediate parent's slot,
// and the defining chunk's Local slot is promoted to Owned — this is the
// three-state capture lattice described in the design notes.
func lookupVar(chunk *Chunk, name string) (int, bool, error) {
	if chunk.Parent == nil {
		return 0, false, nil
	}
	if outer, ok := findActive(chunk.Parent, name); ok {
		promoteOwned(chunk.Parent, outer)
		slot, err := declareVar(chunk, name, Captured, outer)
		return slot, true, err
	}
	outer, found, err := lookupVar(chunk.Parent, name)
	if err != nil || !found {
		return 0, false, err
	}
	promoteOwned(chunk.Parent, outer) // no-op unless the parent's own slot is Local
	slot, err := declareVar(chunk, name, Captured, outer)
	return slot, true, err
}

// getVar resolves name for a write: reuse an existing visible binding
// (possibly capturing it from an enclosing chunk), or declare a brand new
// local if this is the first time the name has been assigned anywhere
// visible — the language has no separate variable-declaration syntax.
func (cc *Compiler) getVar(name string) (int, error) {
	if slot, ok := findActive(cc.chunk, name); ok {
		return slot, nil
	}
	if slot, ok, err := lookupVar(cc.chunk, name); err != nil {
		return 0, err
	} else if ok {
		return slot, nil
	}
	return declareVar(cc.chunk, name, Local, 0)
}

// resolveIdentifier resolves name for a read: it is an error to read a
// variable nothing has ever assigned.
func (cc *Compiler) resolveIdentifier(name string) (int, error) {
	if slot, ok := findActive(cc.chunk, name); ok {
		return slot, nil
	}
	if slot, ok, err := lookupVar(cc.chunk, name); err != nil {
		return 0, err
	} else if ok {
		return slot, nil
	}
	return 0, compileErrorf("unknown identifier %q", name)
}
