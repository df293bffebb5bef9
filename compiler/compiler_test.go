package compiler

import (
	"testing"

	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/parser"
	"github.com/aoclang/aoclang/scanner"
	"github.com/aoclang/aoclang/token"
)

func compileSource(src string) (*Chunk, error) {
	tokens, err := scanner.Scan(src)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(tokens, src)
	if err != nil {
		return nil, err
	}
	return Compile(prog, src)
}

func TestCompilerVariableBehavior(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		hasError bool
	}{
		{name: "assignment then access -> success", source: "a = 0\nprint(a)", hasError: false},
		{name: "access undeclared variable -> error", source: "print(c)", hasError: true},
		{name: "reassignment of existing variable -> success", source: "a = 0\na = 1", hasError: false},
		{name: "read variable captured by a closure -> success", source: "a = 1\nfn() { a }", hasError: false},
		{name: "unknown identifier used as fn callee -> error", source: "missing_fn()", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(tt.source)
			if tt.hasError && err == nil {
				t.Errorf("compileSource(%q): expected error but got nil", tt.source)
			}
			if !tt.hasError && err != nil {
				t.Errorf("compileSource(%q): unexpected error: %v", tt.source, err)
			}
		})
	}
}

func TestCompileEmptyProgramYieldsNil(t *testing.T) {
	chunk, err := compileSource("")
	if err != nil {
		t.Fatalf("compileSource(\"\") error: %v", err)
	}
	if len(chunk.Code) == 0 {
		t.Error("empty program compiled to zero instructions, want at least an OpNil")
	}
}

func TestCompileVecGetRejectsMoreThanTwoIndices(t *testing.T) {
	// The grammar itself only ever produces 1 or 2 indices (get or slice),
	// so the valid cases go through the parser and the rejected
	// three-index node is built by hand.
	if _, err := compileSource("a = [1, 2, 3]\na[0]"); err != nil {
		t.Errorf("single index compiled with an error: %v", err)
	}
	if _, err := compileSource("a = [1, 2, 3]\na[0:2]"); err != nil {
		t.Errorf("slice compiled with an error: %v", err)
	}
	three := ast.NewVecGet(token.Span{}, ast.NewVecDef(token.Span{}, nil), []ast.Expr{
		ast.NewInt(token.Span{}, 0), ast.NewInt(token.Span{}, 1), ast.NewInt(token.Span{}, 2),
	})
	if _, err := Compile([]ast.Expr{three}, ""); err == nil {
		t.Error("three indices compiled without an error")
	}
}

func TestChunkFreezeDetachesParent(t *testing.T) {
	chunk, err := compileSource("outer = 1\nfn() { outer }")
	if err != nil {
		t.Fatalf("compileSource error: %v", err)
	}
	if len(chunk.Constants) == 0 {
		t.Fatal("expected at least one constant (the closure)")
	}
	var fnVal *FnVal
	for _, c := range chunk.Constants {
		if c.Kind == KindFn {
			fnVal = c.Fn
		}
	}
	if fnVal == nil {
		t.Fatal("no function constant found in chunk")
	}
	if fnVal.Chunk.Parent != nil {
		t.Error("child chunk still references its parent after freeze")
	}
}

func TestCompileSucceedsAcrossConstructs(t *testing.T) {
	sources := []string{
		"1 + 2",
		"a = 1\na += 2",
		"[1, 2, 3]",
		"a = [1, 2]\na[0] = 9",
		"[a, b] = [1, 2]",
		"if 1 1 else 2",
		"while 0 { 1 }",
		"fn(a, b) { a + b }",
		`{"k": 1}`,
		"print(1, 2)",
	}
	for _, src := range sources {
		if _, err := compileSource(src); err != nil {
			t.Errorf("compileSource(%q) error: %v", src, err)
		}
	}
}
