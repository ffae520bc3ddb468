// Package lower implements component E (spec.md §4.C/§4.D): it walks
// the exprparse.Expr0 AST into Expr1, a resolved expression IR where
// every identifier has been classified as a local variable, a global
// ("TIME"/"DT"/...), a module-input, a module-output reference, or a
// builtin call, and every subscript has been classified by kind.
//
// Offsets into the scalar plane are not assigned here — that is
// internal/layout's job, run after dependency analysis (component G).
// Expr1 still refers to variables and dimension elements by canonical
// name; internal/compiler resolves names to offsets while walking Expr1
// into bytecode.
package lower

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr1 is the resolved expression IR, mirroring exprparse.Expr0's
// visitor-dispatch shape (Accept(Visitor1)) one layer up.
type Expr1 interface {
	Accept(v Visitor1) any
	Span() (start, end uint16)
	String() string
}

type span struct{ start, end uint16 }

func (s span) Span() (uint16, uint16) { return s.start, s.end }

// Const is a numeric literal, carried over unchanged from Expr0.
type Const struct {
	span
	Value float64
}

func (c *Const) Accept(v Visitor1) any { return v.VisitConst(c) }
func (c *Const) String() string        { return strconv.FormatFloat(c.Value, 'g', -1, 64) }

// SubscriptKind1 tags how one resolved bracketed subscript behaves.
type SubscriptKind1 int

const (
	Sub1Single   SubscriptKind1 = iota // one element, static or dynamic
	Sub1Range                         // a contiguous [start:end] slice
	Sub1Wildcard                      // full extent along this axis ('*' or a bare dimension-name subscript)
	Sub1Bang                          // '!' bang-iteration: full extent, output-shape marker
)

// Subscript1 is one resolved bracketed subscript position. A Single or
// Range subscript is "static" when its Element/StartElement/EndElement
// is set (the source wrote a literal index or dimension-element name);
// otherwise Index/Start/End carries the dynamic expression to evaluate
// at run time (spec.md §4.C: "static subscript collapse").
type Subscript1 struct {
	Kind SubscriptKind1

	Element string // resolved literal element name, set iff Kind==Sub1Single and static
	Index   Expr1  // dynamic index expression, set iff Kind==Sub1Single and !static

	StartElement, EndElement string // resolved literal bounds, set iff Kind==Sub1Range and static
	Start, End               Expr1  // dynamic bounds, set iff Kind==Sub1Range and !static

	// DimHint names the dimension this subscript ranges over, when
	// known from the source syntax (a bare dimension name, or '*'/'!'
	// against a positionally-known axis). Empty when not resolvable
	// from the equation text alone.
	DimHint string
}

func (s Subscript1) staticSingle() bool { return s.Kind == Sub1Single && s.Element != "" }
func (s Subscript1) staticRange() bool {
	return s.Kind == Sub1Range && s.StartElement != "" && s.EndElement != ""
}

func (s Subscript1) String() string {
	switch s.Kind {
	case Sub1Single:
		if s.staticSingle() {
			return s.Element
		}
		return s.Index.String()
	case Sub1Range:
		if s.staticRange() {
			return s.StartElement + ":" + s.EndElement
		}
		return s.Start.String() + ":" + s.End.String()
	case Sub1Bang:
		return "!"
	default:
		return "*"
	}
}

// LocalVar is a resolved reference to a variable of the current model.
type LocalVar struct {
	span
	Name       string // canonical
	Subscripts []Subscript1
}

func (r *LocalVar) Accept(v Visitor1) any { return v.VisitLocalVar(r) }
func (r *LocalVar) String() string        { return withSubscripts(r.Name, r.Subscripts) }

// GlobalVar is a reference to one of the four reserved scalar-plane
// slots (TIME, DT, INITIAL_TIME, FINAL_TIME).
type GlobalVar struct {
	span
	Name string // canonical, one of "time","dt","initial_time","final_time"
}

func (r *GlobalVar) Accept(v Visitor1) any { return v.VisitGlobalVar(r) }
func (r *GlobalVar) String() string        { return r.Name }

// ModuleInputRef is a reference, from inside a module's own equations,
// to one of that module's own variables that is also wired as a
// module input at some call site. Lowering does not distinguish this
// from LocalVar structurally (spec.md §4.G: the override is applied at
// compile time by replacing the assignment, not the read); it exists
// as a distinct node only so internal/compiler can special-case the
// read path if needed. Currently unused by internal/lower's resolver
// (kept for the compiler stage) and reserved for future module-input
// shadowing rules.
type ModuleInputRef struct {
	span
	Name string
}

func (r *ModuleInputRef) Accept(v Visitor1) any { return v.VisitModuleInputRef(r) }
func (r *ModuleInputRef) String() string        { return r.Name }

// ModuleOutputRef is a dotted reference module.output resolved against
// a VarModule instance declared in the current model.
type ModuleOutputRef struct {
	span
	Module     string // canonical name of the module instance (a VarModule variable)
	Output     string // canonical name of the callee's variable
	Subscripts []Subscript1
}

func (r *ModuleOutputRef) Accept(v Visitor1) any { return v.VisitModuleOutputRef(r) }
func (r *ModuleOutputRef) String() string {
	return withSubscripts(r.Module+"·"+r.Output, r.Subscripts)
}

func withSubscripts(name string, subs []Subscript1) string {
	if len(subs) == 0 {
		return name
	}
	parts := make([]string, len(subs))
	for i, s := range subs {
		parts[i] = s.String()
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

// Call is a builtin function application; Name is the canonical
// uppercase builtin name (spec.md §4.C "builtins table
// (case-insensitive)").
type Call struct {
	span
	Name string
	Args []Expr1
}

func (c *Call) Accept(v Visitor1) any { return v.VisitCall(c) }
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Name + "(" + strings.Join(parts, ",") + ")"
}

// Unary is a resolved unary operator: "-" or "not".
type Unary struct {
	span
	Op string
	X  Expr1
}

func (o *Unary) Accept(v Visitor1) any { return v.VisitUnary(o) }
func (o *Unary) String() string        { return fmt.Sprintf("%s%s", o.Op, o.X.String()) }

// Binary is a resolved binary operator.
type Binary struct {
	span
	Op          string
	Left, Right Expr1
}

func (o *Binary) Accept(v Visitor1) any { return v.VisitBinary(o) }
func (o *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", o.Left.String(), o.Op, o.Right.String())
}

// If is a resolved IF/THEN/ELSE.
type If struct {
	span
	Cond, Then, Else Expr1
}

func (i *If) Accept(v Visitor1) any { return v.VisitIf(i) }
func (i *If) String() string {
	return fmt.Sprintf("IF %s THEN %s ELSE %s", i.Cond.String(), i.Then.String(), i.Else.String())
}

// Visitor1 dispatches over every Expr1 node kind.
type Visitor1 interface {
	VisitConst(*Const) any
	VisitLocalVar(*LocalVar) any
	VisitGlobalVar(*GlobalVar) any
	VisitModuleInputRef(*ModuleInputRef) any
	VisitModuleOutputRef(*ModuleOutputRef) any
	VisitCall(*Call) any
	VisitUnary(*Unary) any
	VisitBinary(*Binary) any
	VisitIf(*If) any
}
