package parser

import (
	"testing"

	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/scanner"
)

func parseSource(t *testing.T, src string) []ast.Expr {
	t.Helper()
	tokens, err := scanner.Scan(src)
	if err != nil {
		t.Fatalf("scanner.Scan(%q) error: %v", src, err)
	}
	prog, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return prog
}

func singleExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	prog := parseSource(t, src)
	if len(prog) != 1 {
		t.Fatalf("Parse(%q) = %d top-level expressions, want 1", src, len(prog))
	}
	return prog[0]
}

func TestParseIntLiteral(t *testing.T) {
	e, ok := singleExpr(t, "42").(*ast.Int)
	if !ok {
		t.Fatalf("expected *ast.Int, got %T", singleExpr(t, "42"))
	}
	if e.Value != 42 {
		t.Errorf("Value = %d, want 42", e.Value)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	// 1 + 2 * 3 should bind as 1 + (2 * 3), not (1 + 2) * 3.
	e, ok := singleExpr(t, "1 + 2 * 3").(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected *ast.BinaryOp, got %T", singleExpr(t, "1 + 2 * 3"))
	}
	if e.Op != ast.OpAdd {
		t.Fatalf("top op = %v, want OpAdd", e.Op)
	}
	right, ok := e.Right.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("right operand = %T, want *ast.BinaryOp", e.Right)
	}
	if right.Op != ast.OpMul {
		t.Errorf("right op = %v, want OpMul", right.Op)
	}
}

func TestParseComparisonChainsLeftAssociative(t *testing.T) {
	// 1 < 2 < 3 should bind as (1 < 2) < 3.
	e, ok := singleExpr(t, "1 < 2 < 3").(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected *ast.BinaryOp, got %T", singleExpr(t, "1 < 2 < 3"))
	}
	if e.Op != ast.OpLt {
		t.Errorf("op = %v, want OpLt", e.Op)
	}
	left, ok := e.Left.(*ast.BinaryOp)
	if !ok || left.Op != ast.OpLt {
		t.Errorf("left operand = %T, want the inner 1 < 2 comparison", e.Left)
	}
}

func TestParseUnaryNegate(t *testing.T) {
	e, ok := singleExpr(t, "-5").(*ast.UnaryOp)
	if !ok {
		t.Fatalf("expected *ast.UnaryOp, got %T", singleExpr(t, "-5"))
	}
	if e.Op != ast.OpNegate {
		t.Errorf("op = %v, want OpNegate", e.Op)
	}
}

func TestParseAssignment(t *testing.T) {
	e, ok := singleExpr(t, "x = 1").(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", singleExpr(t, "x = 1"))
	}
	target, ok := e.Target.(ast.NameTarget)
	if !ok {
		t.Fatalf("target = %T, want ast.NameTarget", e.Target)
	}
	if target.Name != "x" {
		t.Errorf("target.Name = %q, want x", target.Name)
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	e, ok := singleExpr(t, "x += 1").(*ast.AssignOp)
	if !ok {
		t.Fatalf("expected *ast.AssignOp, got %T", singleExpr(t, "x += 1"))
	}
	if e.Op != ast.OpAdd {
		t.Errorf("op = %v, want OpAdd", e.Op)
	}
}

func TestParseDestructuringAssignment(t *testing.T) {
	e, ok := singleExpr(t, "[a, b] = [1, 2]").(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", singleExpr(t, "[a, b] = [1, 2]"))
	}
	pattern, ok := e.Target.(ast.PatternTarget)
	if !ok {
		t.Fatalf("target = %T, want ast.PatternTarget", e.Target)
	}
	if len(pattern.Elems) != 2 {
		t.Fatalf("pattern has %d elements, want 2", len(pattern.Elems))
	}
}

func TestParseIfElse(t *testing.T) {
	e, ok := singleExpr(t, "if 1 < 2 print(1) else print(2)").(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", singleExpr(t, "if 1 < 2 print(1) else print(2)"))
	}
	if e.Else == nil {
		t.Error("Else branch is nil, want a Print expression")
	}
	if _, ok := e.Then.(*ast.Print); !ok {
		t.Errorf("Then = %T, want *ast.Print", e.Then)
	}
}

func TestParseWhile(t *testing.T) {
	e, ok := singleExpr(t, "while x < 10 { x = x + 1 }").(*ast.While)
	if !ok {
		t.Fatalf("expected *ast.While, got %T", singleExpr(t, "while x < 10 { x = x + 1 }"))
	}
	if _, ok := e.Body.(*ast.Block); !ok {
		t.Errorf("Body = %T, want *ast.Block", e.Body)
	}
}

func TestParseForDesugarsToWhile(t *testing.T) {
	outer, ok := singleExpr(t, "for i = 0; i < 3; i += 1 { print(i) }").(*ast.Block)
	if !ok {
		t.Fatalf("expected *ast.Block, got %T", singleExpr(t, "for i = 0; i < 3; i += 1 { print(i) }"))
	}
	if len(outer.Exprs) != 2 {
		t.Fatalf("for-desugar produced %d expressions, want 2 (init, while)", len(outer.Exprs))
	}
	if _, ok := outer.Exprs[0].(*ast.Assign); !ok {
		t.Errorf("Exprs[0] = %T, want *ast.Assign (the init clause)", outer.Exprs[0])
	}
	w, ok := outer.Exprs[1].(*ast.While)
	if !ok {
		t.Fatalf("Exprs[1] = %T, want *ast.While", outer.Exprs[1])
	}
	if _, ok := w.Cond.(*ast.BinaryOp); !ok {
		t.Errorf("While.Cond = %T, want *ast.BinaryOp", w.Cond)
	}
	loopBody, ok := w.Body.(*ast.Block)
	if !ok {
		t.Fatalf("While.Body = %T, want *ast.Block", w.Body)
	}
	if len(loopBody.Exprs) != 2 {
		t.Errorf("loop body has %d expressions, want 2 (body, step)", len(loopBody.Exprs))
	}
}

func TestParseFnDefAndCall(t *testing.T) {
	e, ok := singleExpr(t, "add = fn(a, b) { a + b }").(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", singleExpr(t, "add = fn(a, b) { a + b }"))
	}
	fn, ok := e.Value.(*ast.FnDef)
	if !ok {
		t.Fatalf("Value = %T, want *ast.FnDef", e.Value)
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("Params = %v, want [a b]", fn.Params)
	}

	call, ok := singleExpr(t, "add(1, 2)").(*ast.FnCall)
	if !ok {
		t.Fatalf("expected *ast.FnCall, got %T", singleExpr(t, "add(1, 2)"))
	}
	if len(call.Args) != 2 {
		t.Errorf("Args has %d elements, want 2", len(call.Args))
	}
}

func TestParseVecLiteralAndIndex(t *testing.T) {
	vec, ok := singleExpr(t, "[1, 2, 3]").(*ast.VecDef)
	if !ok {
		t.Fatalf("expected *ast.VecDef, got %T", singleExpr(t, "[1, 2, 3]"))
	}
	if len(vec.Elems) != 3 {
		t.Errorf("Elems has %d elements, want 3", len(vec.Elems))
	}

	get, ok := singleExpr(t, "a[0]").(*ast.VecGet)
	if !ok {
		t.Fatalf("expected *ast.VecGet, got %T", singleExpr(t, "a[0]"))
	}
	if len(get.Indices) != 1 {
		t.Errorf("Indices has %d elements, want 1", len(get.Indices))
	}
}

func TestParseVecSlice(t *testing.T) {
	get, ok := singleExpr(t, "a[1:2]").(*ast.VecGet)
	if !ok {
		t.Fatalf("expected *ast.VecGet, got %T", singleExpr(t, "a[1:2]"))
	}
	if len(get.Indices) != 2 {
		t.Errorf("Indices has %d elements, want 2", len(get.Indices))
	}
}

func TestParseEmptyObjectLiteral(t *testing.T) {
	obj, ok := singleExpr(t, "{=}").(*ast.ObjectDef)
	if !ok {
		t.Fatalf("expected *ast.ObjectDef, got %T", singleExpr(t, "{=}"))
	}
	if len(obj.Keys) != 0 {
		t.Errorf("Keys has %d elements, want 0", len(obj.Keys))
	}
}

func TestParseObjectLiteral(t *testing.T) {
	obj, ok := singleExpr(t, `{"a": 1, "b": 2}`).(*ast.ObjectDef)
	if !ok {
		t.Fatalf("expected *ast.ObjectDef, got %T", singleExpr(t, `{"a": 1, "b": 2}`))
	}
	if len(obj.Keys) != 2 || len(obj.Values) != 2 {
		t.Errorf("Keys/Values = %d/%d, want 2/2", len(obj.Keys), len(obj.Values))
	}
}

func TestParseBlockIsNotMistakenForObject(t *testing.T) {
	b, ok := singleExpr(t, "{ 1 }").(*ast.Block)
	if !ok {
		t.Fatalf("expected *ast.Block, got %T", singleExpr(t, "{ 1 }"))
	}
	if len(b.Exprs) != 1 {
		t.Errorf("Exprs has %d elements, want 1", len(b.Exprs))
	}
}

func TestParseReturn(t *testing.T) {
	r, ok := singleExpr(t, "return 1").(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", singleExpr(t, "return 1"))
	}
	if _, ok := r.Value.(*ast.Int); !ok {
		t.Errorf("Value = %T, want *ast.Int", r.Value)
	}
}

func TestParseUse(t *testing.T) {
	u, ok := singleExpr(t, `use "math.aoc"`).(*ast.Use)
	if !ok {
		t.Fatalf("expected *ast.Use, got %T", singleExpr(t, `use "math.aoc"`))
	}
	if u.Path != "math.aoc" {
		t.Errorf("Path = %q, want math.aoc", u.Path)
	}
}

func TestParseInvalidSyntaxFails(t *testing.T) {
	tokens, err := scanner.Scan("1 +")
	if err != nil {
		t.Fatalf("scanner.Scan error: %v", err)
	}
	if _, err := Parse(tokens, "1 +"); err == nil {
		t.Fatal("Parse(\"1 +\") succeeded, want a syntax error")
	}
}
