package lower

import (
	"strconv"
	"strings"

	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
	"sdsim/internal/exprparse"
	"sdsim/internal/ident"
	"sdsim/internal/simerr"
)

var globalNames = map[string]bool{
	"time": true, "dt": true, "initial_time": true, "final_time": true,
}

// BuiltinSpec records a builtin's accepted arity. MaxArgs == -1 means
// variadic (at least MinArgs).
type BuiltinSpec struct {
	MinArgs int
	MaxArgs int
}

// Builtins is the case-insensitive table consulted by lowering
// (spec.md §4.C "builtins table"), narrowed from the ~80 builtins of
// the original implementation to the representative set exercised by
// this module's opcode table (spec.md §4.E) and VM (component K).
// Stateful builtins (INTEG/DELAY*/SMOOTH*) are accepted syntactically
// here; no stage desugars them into implicit stocks, so they compile
// to a plain Apply that internal/vm rejects with CodeTodoArrayBuiltin.
var Builtins = map[string]BuiltinSpec{
	"ABS":       {1, 1},
	"ARCCOS":    {1, 1},
	"ARCSIN":    {1, 1},
	"ARCTAN":    {1, 1},
	"COS":       {1, 1},
	"EXP":       {1, 1},
	"INT":       {1, 1},
	"LN":        {1, 1},
	"LOG10":     {1, 1},
	"SIN":       {1, 1},
	"SQRT":      {1, 1},
	"TAN":       {1, 1},
	"MAX":       {1, -1},
	"MIN":       {1, -1},
	"SUM":       {1, 1},
	"MEAN":      {1, -1},
	"STDDEV":    {1, 1},
	"SIZE":      {1, 1},
	"MODULO":    {2, 2},
	"SAFEDIV":   {2, 3},
	"ZIDZ":      {2, 2},
	"XIDZ":      {3, 3},
	"LOOKUP":    {2, 2},
	"PULSE":     {2, 3},
	"RAMP":      {2, 3},
	"STEP":      {2, 2},
	"INTEG":     {1, 2},
	"DELAY":     {2, 3},
	"DELAY1":    {2, 3},
	"DELAY3":    {2, 3},
	"SMOOTH":    {2, 2},
	"SMOOTHI":   {2, 3},
	"NPV":       {3, 4},
	"UNIFORM":   {2, 2},
	"NORMAL":    {2, 4},
	"POISSON":   {1, 1},
	"QUANTUM":   {2, 2},
}

// VarInfo is what the lowerer needs to know about one identifier in
// the current model's scope.
type VarInfo struct {
	Kind datamodel.VariableKind
	Dims []string // declared dimensions, in axis order, for arrayed variables
}

// Scope is the name-resolution environment for lowering one equation:
// the current model's own variables (component (a)), the dimension
// catalog (component (b)), and — via Vars' VarModule entries —
// which local names are module instances, enabling dotted lookups
// (component (c)). The builtins table (component (d)) is the package
// global Builtins.
type Scope struct {
	Catalog *dimensions.Catalog
	Vars    map[string]VarInfo // canonical name -> info, this model's own variables
}

func NewScope(catalog *dimensions.Catalog, model *datamodel.Model) *Scope {
	vars := make(map[string]VarInfo, len(model.Variables))
	for _, v := range model.Variables {
		vars[ident.Canonical(v.Name)] = VarInfo{Kind: v.Kind, Dims: v.Eqn.Dims}
	}
	return &Scope{Catalog: catalog, Vars: vars}
}

// lowerer implements exprparse.Visitor0, translating Expr0 into Expr1
// while accumulating diagnostics rather than stopping at the first
// error (spec.md §7 "non-fatal at the variable level").
type lowerer struct {
	scope *Scope
	errs  []error
}

// Lower walks e into an Expr1 tree. Diagnostics accumulated during the
// walk are returned alongside any partially-lowered result; callers
// should treat a non-empty error slice as "do not simulate this
// variable" per spec.md §7.
func Lower(e exprparse.Expr0, scope *Scope) (Expr1, []error) {
	lv := &lowerer{scope: scope}
	result := lv.lowerExpr(e)
	return result, lv.errs
}

func (lv *lowerer) lowerExpr(e exprparse.Expr0) Expr1 {
	if e == nil {
		return nil
	}
	res := e.Accept(lv)
	if res == nil {
		return nil
	}
	return res.(Expr1)
}

func (lv *lowerer) fail(start, end uint16, code simerr.ErrorCode, msg string) {
	lv.errs = append(lv.errs, simerr.EquationError{Start: start, End: end, Code: code, Msg: msg})
}

func (lv *lowerer) VisitConst(c *exprparse.Const) any {
	s, e := c.Span()
	return &Const{span: span{s, e}, Value: c.Value}
}

func (lv *lowerer) VisitParen(p *exprparse.Paren) any {
	return lv.lowerExpr(p.Inner)
}

func (lv *lowerer) VisitOp1(o *exprparse.Op1) any {
	s, e := o.Span()
	x := lv.lowerExpr(o.X)
	if x == nil {
		return nil
	}
	return &Unary{span: span{s, e}, Op: o.Op, X: x}
}

func (lv *lowerer) VisitOp2(o *exprparse.Op2) any {
	s, e := o.Span()
	left := lv.lowerExpr(o.Left)
	right := lv.lowerExpr(o.Right)
	if left == nil || right == nil {
		return nil
	}
	return &Binary{span: span{s, e}, Op: o.Op, Left: left, Right: right}
}

func (lv *lowerer) VisitIf(i *exprparse.If) any {
	s, e := i.Span()
	cond := lv.lowerExpr(i.Cond)
	thenB := lv.lowerExpr(i.Then)
	elseB := lv.lowerExpr(i.Else)
	if cond == nil || thenB == nil || elseB == nil {
		return nil
	}
	return &If{span: span{s, e}, Cond: cond, Then: thenB, Else: elseB}
}

func (lv *lowerer) VisitApp(a *exprparse.App) any {
	s, e := a.Span()
	name := strings.ToUpper(a.Name)
	spec, ok := Builtins[name]
	if !ok {
		lv.fail(s, e, simerr.CodeUnknownBuiltin, "unknown builtin "+a.Name)
		return nil
	}
	if len(a.Args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(a.Args) > spec.MaxArgs) {
		lv.fail(s, e, simerr.CodeBadBuiltinArgs, name+" takes "+arityString(spec)+" argument(s)")
		return nil
	}
	args := make([]Expr1, 0, len(a.Args))
	ok = true
	for _, arg := range a.Args {
		la := lv.lowerExpr(arg)
		if la == nil {
			ok = false
			continue
		}
		args = append(args, la)
	}
	if !ok {
		return nil
	}
	if name == "LOOKUP" {
		if _, isVar := args[0].(*LocalVar); !isVar {
			if _, isMod := args[0].(*ModuleOutputRef); !isMod {
				ls, le := args[0].Span()
				lv.fail(ls, le, simerr.CodeBadTable, "LOOKUP's first argument must be a table reference")
				return nil
			}
		}
	}
	return &Call{span: span{s, e}, Name: name, Args: args}
}

func arityString(b BuiltinSpec) string {
	if b.MaxArgs < 0 {
		return "at least " + strconv.Itoa(b.MinArgs)
	}
	if b.MinArgs == b.MaxArgs {
		return strconv.Itoa(b.MinArgs)
	}
	return strconv.Itoa(b.MinArgs) + " to " + strconv.Itoa(b.MaxArgs)
}

func (lv *lowerer) VisitVarRef(r *exprparse.VarRef) any {
	s, e := r.Span()
	canon := ident.Canonical(r.Name)

	if strings.HasPrefix(canon, string(ident.MiddleDot)) {
		lv.fail(s, e, simerr.CodeNoAbsoluteReferences, "leading '.' is not a valid reference inside a submodel")
		return nil
	}

	segments := strings.Split(canon, string(ident.MiddleDot))
	subs := lv.lowerSubscripts(r.Subscripts)

	if len(segments) > 1 {
		modName := segments[0]
		info, ok := lv.scope.Vars[modName]
		if !ok || info.Kind != datamodel.VarModule {
			lv.fail(s, e, simerr.CodeExpectedModule, modName+" is not a module instance")
			return nil
		}
		output := ident.Join(segments[1:]...)
		return &ModuleOutputRef{span: span{s, e}, Module: modName, Output: output, Subscripts: subs}
	}

	if globalNames[canon] {
		if len(subs) > 0 {
			lv.fail(s, e, simerr.CodeBadBuiltinArgs, canon+" cannot be subscripted")
			return nil
		}
		return &GlobalVar{span: span{s, e}, Name: canon}
	}

	if _, ok := lv.scope.Vars[canon]; ok {
		return &LocalVar{span: span{s, e}, Name: canon, Subscripts: subs}
	}

	lv.fail(s, e, simerr.CodeUnknownDependency, "unknown identifier "+r.Name)
	return nil
}

func (lv *lowerer) lowerSubscripts(raw []exprparse.Subscript) []Subscript1 {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Subscript1, len(raw))
	for i, s := range raw {
		out[i] = lv.lowerSubscript(s)
	}
	return out
}

func (lv *lowerer) lowerSubscript(s exprparse.Subscript) Subscript1 {
	switch s.Kind {
	case exprparse.SubWildcard:
		return Subscript1{Kind: Sub1Wildcard}
	case exprparse.SubBang:
		return Subscript1{Kind: Sub1Bang}
	case exprparse.SubRange:
		start, startElem := lv.lowerSubscriptBound(s.Start)
		end, endElem := lv.lowerSubscriptBound(s.End)
		return Subscript1{Kind: Sub1Range, Start: start, StartElement: startElem, End: end, EndElement: endElem}
	default:
		if name, isDim, isElem := lv.classifySubscriptIdent(s.Index); isDim {
			return Subscript1{Kind: Sub1Wildcard, DimHint: name}
		} else if isElem {
			return Subscript1{Kind: Sub1Single, Element: name}
		}
		idx, elem := lv.lowerSubscriptBound(s.Index)
		return Subscript1{Kind: Sub1Single, Index: idx, Element: elem}
	}
}

// lowerSubscriptBound resolves one Single/Range endpoint. A bare
// numeric literal becomes the decimal element key (spec.md §4.C:
// "1-based inside the source"); anything else lowers as a dynamic
// expression.
func (lv *lowerer) lowerSubscriptBound(e exprparse.Expr0) (dyn Expr1, elem string) {
	if e == nil {
		return nil, ""
	}
	if c, ok := e.(*exprparse.Const); ok {
		return nil, strconv.FormatFloat(c.Value, 'f', -1, 64)
	}
	if name, isDim, isElem := lv.classifySubscriptIdent(e); isDim || isElem {
		return nil, name
	}
	return lv.lowerExpr(e), ""
}

// classifySubscriptIdent reports whether a bare-identifier subscript
// expression names a dimension (bare-dimension-name shorthand for a
// full-extent wildcard) or a Named dimension's element. A name of one
// of this model's own variables is neither, so it lowers as a dynamic
// index; any other bare identifier is taken as an element name.
func (lv *lowerer) classifySubscriptIdent(e exprparse.Expr0) (name string, isDim, isElem bool) {
	ref, ok := e.(*exprparse.VarRef)
	if !ok || len(ref.Subscripts) != 0 {
		return "", false, false
	}
	canon := ident.Canonical(ref.Name)
	if lv.scope.Catalog != nil && lv.scope.Catalog.IsDimensionName(canon) {
		return canon, true, false
	}
	if _, isVar := lv.scope.Vars[canon]; isVar {
		return "", false, false
	}
	return canon, false, true
}
