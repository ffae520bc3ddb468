package exprparse

import "testing"

func mustParse(t *testing.T, src string) Expr0 {
	t.Helper()
	e, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return e
}

func TestParseConst(t *testing.T) {
	e := mustParse(t, "42.5")
	c, ok := e.(*Const)
	if !ok {
		t.Fatalf("expected *Const, got %T", e)
	}
	if c.Value != 42.5 {
		t.Errorf("got %v, want 42.5", c.Value)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	e := mustParse(t, "birth - death")
	op, ok := e.(*Op2)
	if !ok || op.Op != "-" {
		t.Fatalf("expected top-level '-', got %#v", e)
	}
	if _, ok := op.Left.(*VarRef); !ok {
		t.Errorf("left operand: expected *VarRef, got %T", op.Left)
	}
}

func TestParseMulBindsTighterThanAdd(t *testing.T) {
	e := mustParse(t, "1 + 2 * 3")
	op, ok := e.(*Op2)
	if !ok || op.Op != "+" {
		t.Fatalf("expected top-level '+', got %#v", e)
	}
	rhs, ok := op.Right.(*Op2)
	if !ok || rhs.Op != "*" {
		t.Fatalf("expected right operand '*', got %#v", op.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	e := mustParse(t, "2 ^ 3 ^ 2")
	op, ok := e.(*Op2)
	if !ok || op.Op != "^" {
		t.Fatalf("expected top-level '^', got %#v", e)
	}
	if _, ok := op.Right.(*Op2); !ok {
		t.Errorf("expected right-associative nesting, got %#v", op.Right)
	}
	if _, ok := op.Left.(*Const); !ok {
		t.Errorf("expected left to be a bare Const, got %#v", op.Left)
	}
}

func TestParseUnaryMinus(t *testing.T) {
	e := mustParse(t, "-population")
	o1, ok := e.(*Op1)
	if !ok || o1.Op != "-" {
		t.Fatalf("expected unary '-', got %#v", e)
	}
}

func TestParseFunctionApp(t *testing.T) {
	e := mustParse(t, "INTEG(birth - death, 1000)")
	app, ok := e.(*App)
	if !ok {
		t.Fatalf("expected *App, got %T", e)
	}
	if app.Name != "INTEG" || len(app.Args) != 2 {
		t.Fatalf("got name=%q nargs=%d", app.Name, len(app.Args))
	}
}

func TestParseIfThenElse(t *testing.T) {
	e := mustParse(t, "IF Time > 10 THEN 1 ELSE 0")
	ifx, ok := e.(*If)
	if !ok {
		t.Fatalf("expected *If, got %T", e)
	}
	cond, ok := ifx.Cond.(*Op2)
	if !ok || cond.Op != ">" {
		t.Fatalf("expected cond '>', got %#v", ifx.Cond)
	}
}

func TestParseSubscriptedVarRef(t *testing.T) {
	e := mustParse(t, "population[Region, *]")
	ref, ok := e.(*VarRef)
	if !ok {
		t.Fatalf("expected *VarRef, got %T", e)
	}
	if len(ref.Subscripts) != 2 {
		t.Fatalf("expected 2 subscripts, got %d", len(ref.Subscripts))
	}
	if ref.Subscripts[0].Kind != SubSingle {
		t.Errorf("subscript 0: expected SubSingle, got %v", ref.Subscripts[0].Kind)
	}
	if ref.Subscripts[1].Kind != SubWildcard {
		t.Errorf("subscript 1: expected SubWildcard, got %v", ref.Subscripts[1].Kind)
	}
}

func TestParseSubscriptRange(t *testing.T) {
	e := mustParse(t, "x[1:3]")
	ref := e.(*VarRef)
	if ref.Subscripts[0].Kind != SubRange {
		t.Fatalf("expected SubRange, got %v", ref.Subscripts[0].Kind)
	}
}

func TestParseParenAndAndOr(t *testing.T) {
	e := mustParse(t, "(a and b) or c")
	op, ok := e.(*Op2)
	if !ok || op.Op != "or" {
		t.Fatalf("expected top-level 'or', got %#v", e)
	}
	paren, ok := op.Left.(*Paren)
	if !ok {
		t.Fatalf("expected left to be *Paren, got %#v", op.Left)
	}
	if inner, ok := paren.Inner.(*Op2); !ok || inner.Op != "and" {
		t.Errorf("expected paren inner 'and', got %#v", paren.Inner)
	}
}

func TestParseEmptyEquationError(t *testing.T) {
	_, err := Parse("   ")
	if err == nil {
		t.Fatal("expected an error for empty equation")
	}
}

func TestParseUnbalancedParenError(t *testing.T) {
	_, err := Parse("(1 + 2")
	if err == nil {
		t.Fatal("expected an error for unbalanced parens")
	}
}

func TestStringRoundTripShape(t *testing.T) {
	e := mustParse(t, "IF a > b THEN a ELSE b")
	got := e.String()
	want := "IF (a > b) THEN a ELSE b"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
