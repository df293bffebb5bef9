package vm

import (
	"strings"

	"github.com/aoclang/aoclang/compiler"
)

func isNumeric(k compiler.Kind) bool {
	return k == compiler.KindInt || k == compiler.KindFloat
}

func asFloat(v compiler.Value) float64 {
	if v.Kind == compiler.KindInt {
		return float64(v.I)
	}
	return v.F
}

// binaryArith implements the Int/Float promotion and container overloads
// described in spec.md §4.5's "Arithmetic semantics": Int op Int stays Int,
// any Float operand promotes the result to Float, and `+`/`*` additionally
// overload onto Str and Vec (concatenation and repetition respectively).
func binaryArith(op compiler.Opcode, left, right compiler.Value) (compiler.Value, error) {
	left, right = left.Deref(), right.Deref()

	switch {
	case left.Kind == compiler.KindInt && right.Kind == compiler.KindInt:
		return intArith(op, left.I, right.I)
	case isNumeric(left.Kind) && isNumeric(right.Kind):
		return floatArith(op, asFloat(left), asFloat(right))
	case op == compiler.OpAdd && left.Kind == compiler.KindStr && right.Kind == compiler.KindStr:
		return compiler.Str(left.S + right.S), nil
	case op == compiler.OpAdd && left.Kind == compiler.KindVec && right.Kind == compiler.KindVec:
		elems := make([]compiler.Value, 0, len(left.Vec.Elems)+len(right.Vec.Elems))
		elems = append(elems, left.Vec.Elems...)
		elems = append(elems, right.Vec.Elems...)
		return compiler.Vec(elems), nil
	case op == compiler.OpMul && left.Kind == compiler.KindStr && right.Kind == compiler.KindInt:
		return compiler.Str(strings.Repeat(left.S, int(right.I))), nil
	case op == compiler.OpMul && left.Kind == compiler.KindInt && right.Kind == compiler.KindStr:
		return compiler.Str(strings.Repeat(right.S, int(left.I))), nil
	case op == compiler.OpMul && left.Kind == compiler.KindVec && right.Kind == compiler.KindInt:
		return repeatVec(left.Vec.Elems, int(right.I)), nil
	case op == compiler.OpMul && left.Kind == compiler.KindInt && right.Kind == compiler.KindVec:
		return repeatVec(right.Vec.Elems, int(left.I)), nil
	default:
		return compiler.Nil(), runtimeErrorf("unsupported operand types for %s: %s and %s", op, left.TypeName(), right.TypeName())
	}
}

func repeatVec(elems []compiler.Value, n int) compiler.Value {
	out := make([]compiler.Value, 0, len(elems)*max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, elems...)
	}
	return compiler.Vec(out)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func intArith(op compiler.Opcode, a, b int64) (compiler.Value, error) {
	switch op {
	case compiler.OpAdd:
		return compiler.Int(a + b), nil
	case compiler.OpSub:
		return compiler.Int(a - b), nil
	case compiler.OpMul:
		return compiler.Int(a * b), nil
	case compiler.OpDiv:
		if b == 0 {
			return compiler.Nil(), runtimeErrorf("division by zero")
		}
		return compiler.Int(a / b), nil
	case compiler.OpMod:
		if b == 0 {
			return compiler.Nil(), runtimeErrorf("modulo by zero")
		}
		return compiler.Int(a % b), nil
	case compiler.OpLShift:
		return compiler.Int(a << uint(b)), nil
	case compiler.OpRShift:
		return compiler.Int(a >> uint(b)), nil
	case compiler.OpXor:
		return compiler.Int(a ^ b), nil
	default:
		return compiler.Nil(), runtimeErrorf("unsupported integer operator %s", op)
	}
}

func floatArith(op compiler.Opcode, a, b float64) (compiler.Value, error) {
	switch op {
	case compiler.OpAdd:
		return compiler.Float(a + b), nil
	case compiler.OpSub:
		return compiler.Float(a - b), nil
	case compiler.OpMul:
		return compiler.Float(a * b), nil
	case compiler.OpDiv:
		if b == 0 {
			return compiler.Nil(), runtimeErrorf("division by zero")
		}
		return compiler.Float(a / b), nil
	case compiler.OpMod:
		if b == 0 {
			return compiler.Nil(), runtimeErrorf("modulo by zero")
		}
		return compiler.Float(float64(int64(a) % int64(b))), nil
	default:
		return compiler.Nil(), runtimeErrorf("operator %s is only defined on integers", op)
	}
}

func negate(a compiler.Value) (compiler.Value, error) {
	a = a.Deref()
	switch a.Kind {
	case compiler.KindInt:
		return compiler.Int(-a.I), nil
	case compiler.KindFloat:
		return compiler.Float(-a.F), nil
	default:
		return compiler.Nil(), runtimeErrorf("cannot negate a %s value", a.TypeName())
	}
}

// unaryPlus is identity on numbers and "length" on strings/containers, per
// spec.md §4.3's description of UnaryPlus.
func unaryPlus(a compiler.Value) (compiler.Value, error) {
	a = a.Deref()
	switch a.Kind {
	case compiler.KindInt, compiler.KindFloat:
		return a, nil
	case compiler.KindStr:
		return compiler.Int(int64(len(a.S))), nil
	case compiler.KindVec:
		return compiler.Int(int64(len(a.Vec.Elems))), nil
	case compiler.KindObj:
		return compiler.Int(int64(len(a.Obj.Pairs))), nil
	default:
		return compiler.Nil(), runtimeErrorf("unary + is not defined on a %s value", a.TypeName())
	}
}

// valuesEqual implements `==`/`!=`. Unlike ordering, equality never errors
// on a kind mismatch — values of different kinds are simply unequal, which
// is the more useful behavior for a dynamically typed scripting language
// (spec.md is silent on this specific case; §7's "incomparable kinds are a
// runtime error" is stated under ordering comparison, not equality).
func valuesEqual(a, b compiler.Value) bool {
	a, b = a.Deref(), b.Deref()
	switch {
	case a.Kind == compiler.KindNil && b.Kind == compiler.KindNil:
		return true
	case a.Kind == compiler.KindInt && b.Kind == compiler.KindInt:
		return a.I == b.I
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		return asFloat(a) == asFloat(b)
	case a.Kind == compiler.KindStr && b.Kind == compiler.KindStr:
		return a.S == b.S
	case a.Kind == compiler.KindVec && b.Kind == compiler.KindVec:
		if len(a.Vec.Elems) != len(b.Vec.Elems) {
			return false
		}
		for i := range a.Vec.Elems {
			if !valuesEqual(a.Vec.Elems[i], b.Vec.Elems[i]) {
				return false
			}
		}
		return true
	case a.Kind == compiler.KindObj && b.Kind == compiler.KindObj:
		if a.Obj == b.Obj {
			return true
		}
		if len(a.Obj.Pairs) != len(b.Obj.Pairs) {
			return false
		}
		for k, v := range a.Obj.Pairs {
			bv, ok := b.Obj.Pairs[k]
			if !ok || !valuesEqual(v, bv) {
				return false
			}
		}
		return true
	case a.Kind == compiler.KindFn && b.Kind == compiler.KindFn:
		return a.Fn.Chunk == b.Fn.Chunk
	default:
		return false
	}
}

// compareValues implements `<`/`<=`/`>`/`>=`: numeric across Int/Float,
// lexicographic for Str, element-wise-then-length-tiebreak for Vec.
// Incomparable kinds are a runtime error here, unlike equality.
func compareValues(a, b compiler.Value) (int, error) {
	a, b = a.Deref(), b.Deref()
	switch {
	case a.Kind == compiler.KindInt && b.Kind == compiler.KindInt:
		return sign(a.I - b.I), nil
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	case a.Kind == compiler.KindStr && b.Kind == compiler.KindStr:
		return strings.Compare(a.S, b.S), nil
	case a.Kind == compiler.KindVec && b.Kind == compiler.KindVec:
		n := len(a.Vec.Elems)
		if len(b.Vec.Elems) < n {
			n = len(b.Vec.Elems)
		}
		for i := 0; i < n; i++ {
			c, err := compareValues(a.Vec.Elems[i], b.Vec.Elems[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return sign(int64(len(a.Vec.Elems) - len(b.Vec.Elems))), nil
	default:
		return 0, runtimeErrorf("cannot compare %s and %s", a.TypeName(), b.TypeName())
	}
}

func sign(d int64) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// vecGet implements indexed read for Vec (element), Str (byte-as-Int), and
// Obj (keyed lookup, Nil on a missing key). Negative Vec/Str indices wrap
// from the end, per spec.md §8 property 6.
func vecGet(container, idxVal compiler.Value) (compiler.Value, error) {
	container = container.Deref()
	switch container.Kind {
	case compiler.KindVec:
		idx, err := wrapIndex(idxVal, len(container.Vec.Elems))
		if err != nil {
			return compiler.Nil(), err
		}
		return container.Vec.Elems[idx], nil
	case compiler.KindStr:
		idx, err := wrapIndex(idxVal, len(container.S))
		if err != nil {
			return compiler.Nil(), err
		}
		return compiler.Int(int64(container.S[idx])), nil
	case compiler.KindObj:
		if v, ok := container.Obj.Pairs[idxVal.Deref()]; ok {
			return v, nil
		}
		return compiler.Nil(), nil
	default:
		return compiler.Nil(), runtimeErrorf("cannot index into a %s value", container.TypeName())
	}
}

func wrapIndex(idxVal compiler.Value, length int) (int, error) {
	idxVal = idxVal.Deref()
	if idxVal.Kind != compiler.KindInt {
		return 0, runtimeErrorf("index must be an int, got %s", idxVal.TypeName())
	}
	idx := idxVal.I
	if idx < 0 {
		idx += int64(length)
	}
	if idx < 0 || idx >= int64(length) {
		return 0, runtimeErrorf("index out of range")
	}
	return int(idx), nil
}

func vecSlice(container, sVal, eVal compiler.Value) (compiler.Value, error) {
	container = container.Deref()
	var length int
	switch container.Kind {
	case compiler.KindVec:
		length = len(container.Vec.Elems)
	case compiler.KindStr:
		length = len(container.S)
	default:
		return compiler.Nil(), runtimeErrorf("cannot slice a %s value", container.TypeName())
	}
	s, err := sliceIndex(sVal, length)
	if err != nil {
		return compiler.Nil(), err
	}
	e, err := sliceIndex(eVal, length)
	if err != nil {
		return compiler.Nil(), err
	}
	if s > e {
		return compiler.Nil(), runtimeErrorf("slice start %d is past end %d", s, e)
	}
	if container.Kind == compiler.KindVec {
		elems := make([]compiler.Value, e-s)
		copy(elems, container.Vec.Elems[s:e])
		return compiler.Vec(elems), nil
	}
	return compiler.Str(container.S[s:e]), nil
}

// sliceIndex is like wrapIndex but permits the one-past-the-end value a
// slice bound needs (`v[0:len(v)]` must be legal).
func sliceIndex(idxVal compiler.Value, length int) (int, error) {
	idxVal = idxVal.Deref()
	if idxVal.Kind != compiler.KindInt {
		return 0, runtimeErrorf("slice bound must be an int, got %s", idxVal.TypeName())
	}
	idx := idxVal.I
	if idx < 0 {
		idx += int64(length)
	}
	if idx < 0 || idx > int64(length) {
		return 0, runtimeErrorf("slice bound out of range")
	}
	return int(idx), nil
}

// vecSet implements indexed write: Vec (in place, negative-wrapped) and Obj
// (insert-or-overwrite). Per spec.md §4.4 this same opcode serves both.
func vecSet(container, idxVal, val compiler.Value) error {
	container = container.Deref()
	switch container.Kind {
	case compiler.KindVec:
		idx, err := wrapIndex(idxVal, len(container.Vec.Elems))
		if err != nil {
			return err
		}
		container.Vec.Elems[idx] = val
		return nil
	case compiler.KindObj:
		container.Obj.Pairs[idxVal.Deref()] = val
		return nil
	default:
		return runtimeErrorf("cannot assign into a %s value", container.TypeName())
	}
}
