package exprparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr0 is the unresolved expression AST (spec.md §3 component D):
// numeric constants, variable references with raw subscript
// expressions, function application, unary/binary operators, if, and
// parenthesization. Identifier resolution (is this a dimension, a
// module input, a builtin?) happens one layer up in internal/lower.
//
// Mirrors the teacher's visitor-dispatch idiom
// (internal/parser/ast.go's Expr.Accept(ExprVisitor)) narrowed to SD
// equation node kinds.
type Expr0 interface {
	Accept(v Visitor0) any
	Span() (start, end uint16)
	String() string
}

type span struct{ start, end uint16 }

func (s span) Span() (uint16, uint16) { return s.start, s.end }

// Const is a numeric literal.
type Const struct {
	span
	Value float64
}

func (c *Const) Accept(v Visitor0) any { return v.VisitConst(c) }
func (c *Const) String() string        { return strconv.FormatFloat(c.Value, 'g', -1, 64) }

// SubscriptKind tags how one bracketed subscript position was written.
type SubscriptKind int

const (
	SubSingle   SubscriptKind = iota // a scalar index expression, e.g. [1] or [Region]
	SubRange                        // [start:end]
	SubWildcard                     // [*] — full extent along this axis
	SubBang                         // [!] — bang-iteration, full extent, written for output shape
)

// Subscript is one bracketed subscript position.
type Subscript struct {
	Kind  SubscriptKind
	Index Expr0 // valid for SubSingle
	Start Expr0 // valid for SubRange
	End   Expr0 // valid for SubRange
}

func (s Subscript) String() string {
	switch s.Kind {
	case SubSingle:
		return s.Index.String()
	case SubRange:
		return s.Start.String() + ":" + s.End.String()
	case SubWildcard:
		return "*"
	default:
		return "!"
	}
}

// VarRef is a reference to an identifier, optionally with a bracketed
// subscript list (empty Subscripts means a plain scalar reference).
type VarRef struct {
	span
	Name       string // as written in source, not yet canonicalized
	Subscripts []Subscript
}

func (r *VarRef) Accept(v Visitor0) any { return v.VisitVarRef(r) }
func (r *VarRef) String() string {
	if len(r.Subscripts) == 0 {
		return r.Name
	}
	parts := make([]string, len(r.Subscripts))
	for i, s := range r.Subscripts {
		parts[i] = s.String()
	}
	return r.Name + "[" + strings.Join(parts, ",") + "]"
}

// App is a function/builtin application: NAME(arg, arg, ...).
type App struct {
	span
	Name string
	Args []Expr0
}

func (a *App) Accept(v Visitor0) any { return v.VisitApp(a) }
func (a *App) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return a.Name + "(" + strings.Join(parts, ",") + ")"
}

// Op1 is a unary operator: -x or NOT x.
type Op1 struct {
	span
	Op string // "-" or "not"
	X  Expr0
}

func (o *Op1) Accept(v Visitor0) any { return v.VisitOp1(o) }
func (o *Op1) String() string        { return fmt.Sprintf("%s%s", o.Op, o.X.String()) }

// Op2 is a binary operator.
type Op2 struct {
	span
	Op          string // "+","-","*","/","^","mod","and","or","=","<>","<",">","<=",">="
	Left, Right Expr0
}

func (o *Op2) Accept(v Visitor0) any { return v.VisitOp2(o) }
func (o *Op2) String() string        { return fmt.Sprintf("(%s %s %s)", o.Left.String(), o.Op, o.Right.String()) }

// If is IF cond THEN t ELSE f.
type If struct {
	span
	Cond, Then, Else Expr0
}

func (i *If) Accept(v Visitor0) any { return v.VisitIf(i) }
func (i *If) String() string {
	return fmt.Sprintf("IF %s THEN %s ELSE %s", i.Cond.String(), i.Then.String(), i.Else.String())
}

// Paren preserves explicit parenthesization for pretty-printing; it
// lowers transparently (internal/lower unwraps it).
type Paren struct {
	span
	Inner Expr0
}

func (p *Paren) Accept(v Visitor0) any { return v.VisitParen(p) }
func (p *Paren) String() string        { return "(" + p.Inner.String() + ")" }

// Visitor0 dispatches over every Expr0 node kind.
type Visitor0 interface {
	VisitConst(*Const) any
	VisitVarRef(*VarRef) any
	VisitApp(*App) any
	VisitOp1(*Op1) any
	VisitOp2(*Op2) any
	VisitIf(*If) any
	VisitParen(*Paren) any
}
