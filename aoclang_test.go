package aoclang

import "testing"

// The six literal pipeline scenarios the language's invariants are built
// around: arithmetic precedence, indexed assignment, closures, loops,
// conditionals, and destructuring.

func TestRunArithmeticPrecedence(t *testing.T) {
	got := Run("print(1 + 2 * 3)", false)
	if got != "7\n" {
		t.Errorf("Run() = %q, want %q", got, "7\n")
	}
}

func TestRunIndexedAssignment(t *testing.T) {
	got := Run("a = [1, 2, 3]\na[0] = 10\nprint(a[0], a[1], a[2])", false)
	if got != "1023\n" {
		t.Errorf("Run() = %q, want %q", got, "1023\n")
	}
}

func TestRunClosureCounter(t *testing.T) {
	src := `
make_counter = fn() {
  n = 0
  fn() {
    n = n + 1
    n
  }
}
c = make_counter()
print(c(), c(), c())
`
	got := Run(src, false)
	if got != "123\n" {
		t.Errorf("Run() = %q, want %q", got, "123\n")
	}
}

func TestRunWhileLoopSum(t *testing.T) {
	src := `
i = 0
sum = 0
while i < 10 {
  sum += i
  i += 1
}
print(sum)
`
	got := Run(src, false)
	if got != "45\n" {
		t.Errorf("Run() = %q, want %q", got, "45\n")
	}
}

func TestRunIfElse(t *testing.T) {
	got := Run(`if 1 < 2 print("yes") else print("no")`, false)
	if got != "yes\n" {
		t.Errorf("Run() = %q, want %q", got, "yes\n")
	}
}

func TestRunDestructuringAssignment(t *testing.T) {
	got := Run("[a, b] = [7, 8]\nprint(a + b)", false)
	if got != "15\n" {
		t.Errorf("Run() = %q, want %q", got, "15\n")
	}
}

func TestRunReadNeverBlocksEmbedded(t *testing.T) {
	got := Run("print(read)", false)
	if got != "nil\n" {
		t.Errorf("Run(\"print(read)\") = %q, want %q (Nil without a host stdin)", got, "nil\n")
	}
}

func TestRunSyntaxErrorIsBufferedNotPanicked(t *testing.T) {
	got := Run("1 +", false)
	if got == "" {
		t.Error("Run() on malformed source returned an empty string, want a buffered diagnostic")
	}
}

func TestRunDebugModeDoesNotCrash(t *testing.T) {
	got := Run("print(1)", true)
	if got == "" {
		t.Error("Run(debug=true) returned an empty string")
	}
}
