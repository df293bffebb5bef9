package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags which variant of Value is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindStr
	KindVec
	KindObj
	KindFn
	KindRef
)

// Value is the runtime tagged union every expression evaluates to. It is
// kept as one flat comparable struct, the way informatter-nilan's own
// ast_compiler constant pool stores `any` boxed Go values — here we pin the
// representation down explicitly because the VM needs to tell Int from
// Float from Fn without a type switch on every instruction.
//
// Str/Vec/Obj/Fn/Ref are all reference types (pointers or map/slice headers)
// so copying a Value copies the handle, not the underlying data — this is
// what gives the language its shared-container semantics; the containers
// are reclaimed by Go's garbage collector.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	Vec  *VecVal
	Obj  *ObjVal
	Fn   *FnVal
	Ref  *RefCell
}

// VecVal is the shared mutable backing store for a Vec value.
type VecVal struct {
	Elems []Value
}

// ObjVal is the shared mutable backing store for an Obj value. Values are
// used as map keys directly; container-kind keys therefore compare by
// pointer identity rather than structural equality, which only matters for
// objects keyed by vectors/objects/functions (an edge case the language
// does not otherwise give special meaning to).
type ObjVal struct {
	Pairs map[Value]Value
}

// FnVal is a compiled function plus whatever outer variables it closed over.
type FnVal struct {
	NumParams int
	Captured  []Value
	Chunk     *Chunk
}

// RefCell is the heap cell an Owned/Captured variable is materialized as,
// giving every closure that captured it a view of the same mutable value.
type RefCell struct {
	V Value
}

func Nil() Value           { return Value{Kind: KindNil} }
func Int(i int64) Value    { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }
func Str(s string) Value   { return Value{Kind: KindStr, S: s} }

func Vec(elems []Value) Value {
	return Value{Kind: KindVec, Vec: &VecVal{Elems: elems}}
}

func Obj(pairs map[Value]Value) Value {
	if pairs == nil {
		pairs = make(map[Value]Value)
	}
	return Value{Kind: KindObj, Obj: &ObjVal{Pairs: pairs}}
}

func Fn(fn *FnVal) Value { return Value{Kind: KindFn, Fn: fn} }

func NewRef(v Value) Value {
	return Value{Kind: KindRef, Ref: &RefCell{V: v}}
}

// Deref follows a Ref to the value it holds; non-Ref values are their own
// dereference. GetVar and captured-variable reads both funnel through this.
func (v Value) Deref() Value {
	if v.Kind == KindRef {
		return v.Ref.V
	}
	return v
}

// Truthy implements the language's notion of truthiness: not Nil, not
// numeric zero, not an empty string/vector/object; functions and refs are
// always truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindStr:
		return v.S != ""
	case KindVec:
		return len(v.Vec.Elems) != 0
	case KindObj:
		return len(v.Obj.Pairs) != 0
	default:
		return true
	}
}

// TypeName names a value's kind for error messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "string"
	case KindVec:
		return "vec"
	case KindObj:
		return "obj"
	case KindFn:
		return "fn"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Display renders a Value the way `print` writes it: integers and floats in
// their natural textual form, strings verbatim (no quoting), vectors as
// `[e0, e1, ...]`, objects as `{k: v, ...}`, functions as `fn(n)`, nil as
// the literal text "nil".
func (v Value) Display() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindStr:
		return v.S
	case KindVec:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range v.Vec.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Display())
		}
		b.WriteByte(']')
		return b.String()
	case KindObj:
		var b strings.Builder
		b.WriteByte('{')
		first := true
		for k, val := range v.Obj.Pairs {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s: %s", k.Display(), val.Display())
		}
		b.WriteByte('}')
		return b.String()
	case KindFn:
		return fmt.Sprintf("fn(%d)", v.Fn.NumParams)
	case KindRef:
		return v.Ref.V.Display()
	default:
		return ""
	}
}
