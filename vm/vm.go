// Package vm executes a compiled Chunk. It is a stack machine: one growable
// operand stack, a program counter into Chunk.Code, and a writer every
// `print` call flows through. Function calls recurse on the Go call stack
// (§5 explicitly allows this — "ordinary host-stack recursion in the
// implementation") with a fresh operand stack per call, rather than one
// shared stack with frame-base bookkeeping; this keeps closure-capture and
// GetVar/SetVar addressing a flat, per-call slot index, the same way
// informatter-nilan's own vm.VM keeps a single Stack but never needs to
// juggle frame pointers because it has no user-defined functions at all.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aoclang/aoclang/aocerr"
	"github.com/aoclang/aoclang/compiler"
	"github.com/sirupsen/logrus"
)

// VM holds everything execution needs beyond the Chunk and operand stack
// that get threaded through Exec: where `print` writes, where `read` reads
// from, and an optional trace logger for `--debug` runs.
type VM struct {
	Out   io.Writer
	In    *bufio.Reader
	Debug *logrus.Logger
}

// New creates a VM writing to out. `read` returns Nil immediately until a
// caller sets In explicitly (cmd/aoc wires stdin; the embedded Run entry
// point deliberately leaves it nil, per spec §9).
func New(out io.Writer) *VM {
	return &VM{Out: out}
}

// Run is a convenience wrapper: it executes an already compiled chunk on a
// fresh VM writing to out, as a top-level call (no arguments, no captures),
// and returns its result.
func Run(chunk *compiler.Chunk, out io.Writer) (compiler.Value, error) {
	return New(out).Exec(chunk, nil, nil)
}

const operandWidth = 4 // bytes following an opcode with an operand

// Exec runs chunk to completion with the given arguments bound to its first
// len(args) variable slots and captured supplying every Captured-state slot,
// in the order those slots appear in chunk.Vars (see materializeClosure).
// It returns the final top-of-stack value — either because the chunk ran
// off the end of its bytecode, or because a Return instruction fired.
func (v *VM) Exec(chunk *compiler.Chunk, args []compiler.Value, captured []compiler.Value) (compiler.Value, error) {
	stack := make([]compiler.Value, len(chunk.Vars), len(chunk.Vars)+16)
	capIdx := 0
	for i, info := range chunk.Vars {
		switch {
		case i < len(args):
			val := args[i]
			if info.State == compiler.Owned {
				val = compiler.NewRef(val)
			}
			stack[i] = val
		case info.State == compiler.Captured:
			stack[i] = captured[capIdx]
			capIdx++
		case info.State == compiler.Owned:
			stack[i] = compiler.NewRef(compiler.Nil())
		default:
			stack[i] = compiler.Nil()
		}
	}

	pc := 0
	for pc < len(chunk.Code) {
		startPc := pc
		op := compiler.Opcode(chunk.Code[pc])
		pc++

		var operand uint32
		if opHasOperand(op) {
			operand = chunk.OperandAt(startPc)
			pc += operandWidth
		}

		if v.Debug != nil {
			v.Debug.Debugf("%04d  %-12s %d  (stack depth %d)", startPc, op, operand, len(stack))
		}

		var result compiler.Value
		var err error
		switch op {
		case compiler.OpNil:
			stack = append(stack, compiler.Nil())
		case compiler.OpConstant:
			c := chunk.Constants[operand]
			if c.Kind == compiler.KindFn {
				c = v.materializeClosure(c, stack)
			}
			stack = append(stack, c)
		case compiler.OpClone:
			stack = append(stack, stack[len(stack)-1-int(operand)])
		case compiler.OpSwap:
			i, j := len(stack)-1-int(operand), len(stack)-1
			stack[i], stack[j] = stack[j], stack[i]
		case compiler.OpGetVar:
			stack = append(stack, stack[operand].Deref())
		case compiler.OpSetVar:
			val := stack[len(stack)-1]
			if cur := stack[operand]; cur.Kind == compiler.KindRef {
				cur.Ref.V = val
			} else {
				stack[operand] = val
			}
		case compiler.OpPop:
			stack = stack[:len(stack)-1]

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod,
			compiler.OpLShift, compiler.OpRShift, compiler.OpXor:
			var right compiler.Value
			right, stack = pop(stack)
			var left compiler.Value
			left, stack = pop(stack)
			result, err = binaryArith(op, left, right)
			stack = append(stack, result)
		case compiler.OpAnd:
			var right, left compiler.Value
			right, stack = pop(stack)
			left, stack = pop(stack)
			if left.Truthy() {
				stack = append(stack, right)
			} else {
				stack = append(stack, left)
			}
		case compiler.OpOr:
			var right, left compiler.Value
			right, stack = pop(stack)
			left, stack = pop(stack)
			if left.Truthy() {
				stack = append(stack, left)
			} else {
				stack = append(stack, right)
			}
		case compiler.OpEq, compiler.OpNeq:
			var right, left compiler.Value
			right, stack = pop(stack)
			left, stack = pop(stack)
			eq := valuesEqual(left, right)
			if op == compiler.OpNeq {
				eq = !eq
			}
			stack = append(stack, boolValue(eq))
		case compiler.OpLt, compiler.OpLeq, compiler.OpGt, compiler.OpGeq:
			var right, left compiler.Value
			right, stack = pop(stack)
			left, stack = pop(stack)
			var cmp int
			cmp, err = compareValues(left, right)
			if err == nil {
				stack = append(stack, boolValue(orderHolds(op, cmp)))
			}

		case compiler.OpNegate:
			var a compiler.Value
			a, stack = pop(stack)
			result, err = negate(a)
			stack = append(stack, result)
		case compiler.OpNot:
			var a compiler.Value
			a, stack = pop(stack)
			stack = append(stack, boolValue(!a.Truthy()))
		case compiler.OpUnaryPlus:
			var a compiler.Value
			a, stack = pop(stack)
			result, err = unaryPlus(a)
			stack = append(stack, result)

		case compiler.OpJump:
			pc = startPc + 1 + operandWidth + int(int32(operand))
		case compiler.OpJumpIf:
			var cond compiler.Value
			cond, stack = pop(stack)
			if !cond.Truthy() {
				pc = startPc + 1 + operandWidth + int(int32(operand))
			}
		case compiler.OpJumpBack:
			pc = startPc + 1 + operandWidth - int(operand)
		case compiler.OpNoop:
			// no-op

		case compiler.OpVecGet:
			var idx, container compiler.Value
			idx, stack = pop(stack)
			container, stack = pop(stack)
			result, err = vecGet(container, idx)
			stack = append(stack, result)
		case compiler.OpVecSlice:
			var e, s, container compiler.Value
			e, stack = pop(stack)
			s, stack = pop(stack)
			container, stack = pop(stack)
			result, err = vecSlice(container, s, e)
			stack = append(stack, result)
		case compiler.OpVecSet:
			var idx, container, val compiler.Value
			idx, stack = pop(stack)
			container, stack = pop(stack)
			val, stack = pop(stack)
			err = vecSet(container, idx, val)
			stack = append(stack, val)
		case compiler.OpVecCollect:
			n := int(operand)
			elems := make([]compiler.Value, n)
			// The compiler pushes the elements last-first, so the first pop
			// is element 0.
			for i := 0; i < n; i++ {
				elems[i], stack = pop(stack)
			}
			stack = append(stack, compiler.Vec(elems))
		case compiler.OpVecUnpack:
			var vecVal compiler.Value
			vecVal, stack = pop(stack)
			stack, err = unpackVec(stack, vecVal, int(operand))
		case compiler.OpObjCollect:
			n := int(operand)
			pairs := make(map[compiler.Value]compiler.Value, n)
			for i := 0; i < n; i++ {
				var k, val compiler.Value
				val, stack = pop(stack)
				k, stack = pop(stack)
				pairs[k.Deref()] = val
			}
			stack = append(stack, compiler.Obj(pairs))

		case compiler.OpPrint:
			n := int(operand)
			vals := make([]compiler.Value, n)
			for i := n - 1; i >= 0; i-- {
				vals[i], stack = pop(stack)
			}
			var b strings.Builder
			for _, val := range vals {
				b.WriteString(val.Display())
			}
			if _, werr := fmt.Fprintln(v.Out, b.String()); werr != nil {
				err = runtimeErrorf("write failed: %s", werr)
			}
			if n == 0 {
				stack = append(stack, compiler.Nil())
			} else {
				stack = append(stack, vals[n-1])
			}
		case compiler.OpRead:
			stack = append(stack, v.read())

		case compiler.OpFnCall:
			n := int(operand)
			var callee compiler.Value
			callee, stack = pop(stack)
			if callee.Kind != compiler.KindFn {
				err = runtimeErrorf("attempt to call a %s value", callee.TypeName())
				break
			}
			if callee.Fn.NumParams != n {
				err = runtimeErrorf("wrong number of arguments: expected %d, got %d", callee.Fn.NumParams, n)
				break
			}
			callArgs := make([]compiler.Value, n)
			for i := n - 1; i >= 0; i-- {
				callArgs[i], stack = pop(stack)
			}
			result, err = v.Exec(callee.Fn.Chunk, callArgs, callee.Fn.Captured)
			stack = append(stack, result)
		case compiler.OpReturn:
			top := stack[len(stack)-1]
			return top, nil

		default:
			err = runtimeErrorf("unknown opcode %v", op)
		}

		if err != nil {
			return compiler.Nil(), v.wrap(err, chunk, startPc)
		}
	}

	return stack[len(stack)-1], nil
}

func pop(stack []compiler.Value) (compiler.Value, []compiler.Value) {
	return stack[len(stack)-1], stack[:len(stack)-1]
}

func boolValue(b bool) compiler.Value {
	if b {
		return compiler.Int(1)
	}
	return compiler.Int(0)
}

func orderHolds(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.OpLt:
		return cmp < 0
	case compiler.OpLeq:
		return cmp <= 0
	case compiler.OpGt:
		return cmp > 0
	case compiler.OpGeq:
		return cmp >= 0
	default:
		return false
	}
}

// materializeClosure clones a Fn constant and fills its Captured list from
// the calling frame's current stack — stack[info.Outer] for every variable
// this chunk's compiler tagged Captured, in chunk.Vars order. Because that
// slot was promoted to Owned in the defining chunk the moment it was first
// captured, it already holds a Ref cell, so every closure sharing the
// capture sees the same mutable value (§4.5, §9 "capture by variable").
func (v *VM) materializeClosure(c compiler.Value, stack []compiler.Value) compiler.Value {
	var captured []compiler.Value
	for _, info := range c.Fn.Chunk.Vars {
		if info.State == compiler.Captured {
			captured = append(captured, stack[info.Outer])
		}
	}
	return compiler.Fn(&compiler.FnVal{
		NumParams: c.Fn.NumParams,
		Chunk:     c.Fn.Chunk,
		Captured:  captured,
	})
}

// read implements the `read` expression. A VM with no input source (the
// embedded entry point, per spec §9's note that a host like a browser
// playground "should supply Nil immediately rather than block") returns
// Nil without touching the host at all.
func (v *VM) read() compiler.Value {
	if v.In == nil {
		return compiler.Nil()
	}
	line, err := v.In.ReadString('\n')
	if err != nil && line == "" {
		return compiler.Nil()
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return compiler.Str(line)
}

func unpackVec(stack []compiler.Value, vecVal compiler.Value, n int) ([]compiler.Value, error) {
	vecVal = vecVal.Deref()
	if vecVal.Kind != compiler.KindVec {
		return stack, runtimeErrorf("cannot unpack a %s value", vecVal.TypeName())
	}
	if len(vecVal.Vec.Elems) != n {
		return stack, runtimeErrorf("unpacking mismatch: pattern expects %d elements, got %d", n, len(vecVal.Vec.Elems))
	}
	for i := len(vecVal.Vec.Elems) - 1; i >= 0; i-- {
		stack = append(stack, vecVal.Vec.Elems[i])
	}
	return stack, nil
}

func opHasOperand(op compiler.Opcode) bool {
	switch op {
	case compiler.OpConstant, compiler.OpClone, compiler.OpSwap, compiler.OpGetVar, compiler.OpSetVar,
		compiler.OpJump, compiler.OpJumpIf, compiler.OpJumpBack,
		compiler.OpVecCollect, compiler.OpVecUnpack, compiler.OpObjCollect, compiler.OpPrint, compiler.OpFnCall:
		return true
	default:
		return false
	}
}

func runtimeErrorf(format string, args ...any) *aocerr.Error {
	return aocerr.New(aocerr.Runtime, fmt.Sprintf(format, args...))
}

// wrap attaches the position of the instruction that was executing when err
// occurred — the VM's half of the "each layer wraps with the source
// position it is responsible for" rule in spec.md §7.
func (v *VM) wrap(err error, chunk *compiler.Chunk, pc int) error {
	span, ok := chunk.Pos[pc]
	if !ok {
		return err
	}
	frame := aocerr.Frame{Span: span, Source: chunk.Source}
	if ae, ok := err.(*aocerr.Error); ok {
		return ae.WithFrame(frame)
	}
	return aocerr.Wrap(aocerr.Runtime, err, "runtime error").WithFrame(frame)
}
