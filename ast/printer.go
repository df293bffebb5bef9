package ast

import "encoding/json"

// jsonPrinter implements Visitor to build a JSON-friendly representation
// of the tree, the same approach informatter-nilan's astPrinter uses for
// its `--dumpAST` flag.
type jsonPrinter struct{}

func (p jsonPrinter) VisitNil(e *Nil) any { return map[string]any{"type": "Nil"} }

func (p jsonPrinter) VisitInt(e *Int) any {
	return map[string]any{"type": "Int", "value": e.Value}
}

func (p jsonPrinter) VisitFloat(e *Float) any {
	return map[string]any{"type": "Float", "value": e.Value}
}

func (p jsonPrinter) VisitStr(e *Str) any {
	return map[string]any{"type": "Str", "value": e.Value}
}

func (p jsonPrinter) VisitIdentifier(e *Identifier) any {
	return map[string]any{"type": "Identifier", "name": e.Name}
}

func (p jsonPrinter) VisitBinaryOp(e *BinaryOp) any {
	return map[string]any{
		"type":  "BinaryOp",
		"op":    e.Op,
		"left":  e.Left.Accept(p),
		"right": e.Right.Accept(p),
	}
}

func (p jsonPrinter) VisitUnaryOp(e *UnaryOp) any {
	return map[string]any{"type": "UnaryOp", "op": e.Op, "expr": e.Expr.Accept(p)}
}

func (p jsonPrinter) VisitAssign(e *Assign) any {
	return map[string]any{
		"type":   "Assign",
		"target": printTarget(e.Target, p),
		"value":  e.Value.Accept(p),
	}
}

func (p jsonPrinter) VisitAssignOp(e *AssignOp) any {
	return map[string]any{
		"type":   "AssignOp",
		"op":     e.Op,
		"target": printTarget(e.Target, p),
		"value":  e.Value.Accept(p),
	}
}

func (p jsonPrinter) VisitBlock(e *Block) any {
	exprs := make([]any, 0, len(e.Exprs))
	for _, sub := range e.Exprs {
		exprs = append(exprs, sub.Accept(p))
	}
	return map[string]any{"type": "Block", "exprs": exprs}
}

func (p jsonPrinter) VisitIf(e *If) any {
	var els any
	if e.Else != nil {
		els = e.Else.Accept(p)
	}
	return map[string]any{
		"type": "If",
		"cond": e.Cond.Accept(p),
		"then": e.Then.Accept(p),
		"else": els,
	}
}

func (p jsonPrinter) VisitWhile(e *While) any {
	return map[string]any{"type": "While", "cond": e.Cond.Accept(p), "body": e.Body.Accept(p)}
}

func (p jsonPrinter) VisitPrint(e *Print) any {
	return map[string]any{"type": "Print", "args": acceptAll(e.Args, p)}
}

func (p jsonPrinter) VisitRead(e *Read) any { return map[string]any{"type": "Read"} }

func (p jsonPrinter) VisitFnDef(e *FnDef) any {
	return map[string]any{"type": "FnDef", "params": e.Params, "body": e.Body.Accept(p)}
}

func (p jsonPrinter) VisitFnCall(e *FnCall) any {
	return map[string]any{"type": "FnCall", "callee": e.Callee.Accept(p), "args": acceptAll(e.Args, p)}
}

func (p jsonPrinter) VisitVecDef(e *VecDef) any {
	return map[string]any{"type": "VecDef", "elems": acceptAll(e.Elems, p)}
}

func (p jsonPrinter) VisitVecGet(e *VecGet) any {
	return map[string]any{"type": "VecGet", "vec": e.Vec.Accept(p), "indices": acceptAll(e.Indices, p)}
}

func (p jsonPrinter) VisitObjectDef(e *ObjectDef) any {
	return map[string]any{"type": "ObjectDef", "keys": acceptAll(e.Keys, p), "values": acceptAll(e.Values, p)}
}

func (p jsonPrinter) VisitReturn(e *Return) any {
	var val any
	if e.Value != nil {
		val = e.Value.Accept(p)
	}
	return map[string]any{"type": "Return", "value": val}
}

func (p jsonPrinter) VisitUse(e *Use) any {
	return map[string]any{"type": "Use", "path": e.Path}
}

func acceptAll(exprs []Expr, p jsonPrinter) []any {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, e.Accept(p))
	}
	return out
}

func printTarget(t AssignTarget, p jsonPrinter) any {
	switch target := t.(type) {
	case NameTarget:
		return map[string]any{"type": "NameTarget", "name": target.Name}
	case IndexTarget:
		return map[string]any{"type": "IndexTarget", "vec": target.Vec.Accept(p), "index": target.Index.Accept(p)}
	case PatternTarget:
		elems := make([]any, 0, len(target.Elems))
		for _, e := range target.Elems {
			elems = append(elems, printTarget(e, p))
		}
		return map[string]any{"type": "PatternTarget", "elems": elems}
	default:
		return nil
	}
}

// DumpJSON renders prog as an indented JSON tree, for `--debug` dumps.
func DumpJSON(prog []Expr) (string, error) {
	printer := jsonPrinter{}
	out := make([]any, 0, len(prog))
	for _, e := range prog {
		out = append(out, e.Accept(printer))
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
