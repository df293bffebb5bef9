package scanner

import (
	"testing"

	"github.com/aoclang/aoclang/token"
)

func typesOf(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func sameTypes(got, want []token.Type) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestScanOperators(t *testing.T) {
	toks, err := Scan("== != <= >= && || << >> += -= *= /= %= + - * / % ! & | ^ < >")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	want := []token.Type{
		token.EQ_EQ, token.BANG_EQ, token.LT_EQ, token.GT_EQ, token.AND_AND, token.OR_OR,
		token.LTLT, token.GTGT, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.PERCENT_EQ, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.BANG, token.AMP, token.PIPE, token.CARET, token.LT, token.GT, token.EOF,
	}
	if got := typesOf(toks); !sameTypes(got, want) {
		t.Errorf("Scan() types = %v, want %v", got, want)
	}
}

func TestScanPunctuation(t *testing.T) {
	toks, err := Scan("(){}[], . :")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	want := []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.COMMA, token.DOT, token.COLON, token.EOF,
	}
	if got := typesOf(toks); !sameTypes(got, want) {
		t.Errorf("Scan() types = %v, want %v", got, want)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, err := Scan("if else for while fn print read return use nil foo_bar")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	want := []token.Type{
		token.IF, token.ELSE, token.FOR, token.WHILE, token.FN, token.PRINT, token.READ,
		token.RETURN, token.USE, token.NIL, token.IDENTIFIER, token.EOF,
	}
	if got := typesOf(toks); !sameTypes(got, want) {
		t.Errorf("Scan() types = %v, want %v", got, want)
	}
	if toks[10].Lexeme != "foo_bar" {
		t.Errorf("identifier lexeme = %q, want foo_bar", toks[10].Lexeme)
	}
}

func TestScanNumbers(t *testing.T) {
	toks, err := Scan("42 3.14 0")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if toks[0].Type != token.INT || toks[0].Literal.(int64) != 42 {
		t.Errorf("first literal = %v %v, want INT 42", toks[0].Type, toks[0].Literal)
	}
	if toks[1].Type != token.FLOAT || toks[1].Literal.(float64) != 3.14 {
		t.Errorf("second literal = %v %v, want FLOAT 3.14", toks[1].Type, toks[1].Literal)
	}
	if toks[2].Type != token.INT || toks[2].Literal.(int64) != 0 {
		t.Errorf("third literal = %v %v, want INT 0", toks[2].Type, toks[2].Literal)
	}
}

func TestScanString(t *testing.T) {
	toks, err := Scan(`"hello world"`)
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if toks[0].Type != token.STRING || toks[0].Literal.(string) != "hello world" {
		t.Errorf("string literal = %v %v, want STRING \"hello world\"", toks[0].Type, toks[0].Literal)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	_, err := Scan(`"unterminated`)
	if err == nil {
		t.Fatal("Scan() did not return an error for an unterminated string")
	}
}

func TestScanEOLForNewlineAndSemicolon(t *testing.T) {
	toks, err := Scan("a\nb;c")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	want := []token.Type{
		token.IDENTIFIER, token.EOL, token.IDENTIFIER, token.EOL, token.IDENTIFIER, token.EOF,
	}
	if got := typesOf(toks); !sameTypes(got, want) {
		t.Errorf("Scan() types = %v, want %v", got, want)
	}
}

func TestScanCommentsAreSkipped(t *testing.T) {
	toks, err := Scan("a # this is a comment\nb")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	want := []token.Type{token.IDENTIFIER, token.EOL, token.IDENTIFIER, token.EOF}
	if got := typesOf(toks); !sameTypes(got, want) {
		t.Errorf("Scan() types = %v, want %v", got, want)
	}
}

func TestScanIllegalByte(t *testing.T) {
	toks, err := Scan("@")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if toks[0].Type != token.ILLEGAL {
		t.Errorf("Scan() type = %v, want ILLEGAL", toks[0].Type)
	}
}

func TestScanSpanOffsets(t *testing.T) {
	toks, err := Scan("  foo")
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if toks[0].Span.Start != 2 || toks[0].Span.End != 5 {
		t.Errorf("identifier span = %+v, want {2 5}", toks[0].Span)
	}
}
