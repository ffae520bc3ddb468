package compiler

import (
	"sdsim/internal/bytecode"
	"sdsim/internal/layout"
	"sdsim/internal/lower"
	"sdsim/internal/lookup"
	"sdsim/internal/simerr"
)

// exprCompiler walks one Expr1 into a chunk, emitting opcodes as it
// descends — the same Visitor1-over-Accept shape
// internal/depgraph.varCollector uses for dependency collection, here
// used for code generation instead, mirroring the teacher's
// compiler.go Expr.Accept(c) walk one IR layer up (Expr1 instead of
// the teacher's untyped scripting-language Expr).
type exprCompiler struct {
	ctx              *Context
	chunk            *bytecode.Chunk
	mf               *modelFrame
	overrideIdx      map[string]int32        // Dst name -> module-input index, for this body's override set
	tables           map[string]lookup.Table // variable name -> its graphical function, for LOOKUP
	broadcastSources map[string]int32        // name -> LoadIterViewAt offset, set only while compiling an array-broadcast loop body
	err              error
}

// modelFrame carries the per-model compile-time state needed to
// resolve a LocalVar/ModuleOutputRef to a relative offset: this
// model's own Layout slice (for its own variables), the sibling
// Layout of any module instance it can reach a dotted output through,
// and modelName, used as the key into Context.VarDims to resolve a
// subscript against this model's own variables (a ModuleOutputRef
// instead looks its output up under the callee's own model name, via
// lay.Modules[...].ModelName).
type modelFrame struct {
	lay       *layout.Layout
	modelName string
}

func (c *exprCompiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *exprCompiler) compile(e lower.Expr1) {
	if c.err != nil || e == nil {
		return
	}
	e.Accept(c)
}

func (c *exprCompiler) VisitConst(n *lower.Const) any {
	id := c.ctx.ConstID(n.Value)
	c.chunk.EmitAt(bytecode.OpLoadConstant, id, 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
	return nil
}

func spanStart(e lower.Expr1) uint16 { s, _ := e.Span(); return s }
func spanEnd(e lower.Expr1) uint16   { _, e2 := e.Span(); return e2 }

// VisitLocalVar resolves a (possibly subscripted) reference to this
// model's own variable. A fully-static subscript — one literal
// element per declared axis — collapses to a single OpLoadVar at a
// compile-time-computed offset (spec.md §4.C). A single dynamic index
// against a single-axis variable instead pushes a direct view and lets
// OpViewSubscriptDynamic resolve the element at run time. Anything
// else multi-axis-dynamic, a bare range, or a wildcard used where a
// scalar is required is an unsupported shape, reported precisely
// rather than blanket-rejected.
func (c *exprCompiler) VisitLocalVar(n *lower.LocalVar) any {
	if off, ok := c.broadcastSources[n.Name]; ok {
		c.chunk.EmitAt(bytecode.OpLoadIterViewAt, off, 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
		return nil
	}
	if k, ok := c.overrideIdx[n.Name]; ok {
		c.chunk.EmitAt(bytecode.OpLoadModuleInput, k, 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
		return nil
	}
	slot, ok := c.mf.lay.Offsets[n.Name]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeUnknownDependency, Msg: "unknown variable " + n.Name})
		return nil
	}
	base := int32(slot.Base - c.mf.lay.Base)
	debug := bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)}
	if len(n.Subscripts) == 0 {
		c.chunk.EmitAt(bytecode.OpLoadVar, base, 0, 0, debug)
		return nil
	}
	dims := c.ctx.VarDims[c.mf.modelName][n.Name]
	if off, ok := collapseStaticSubscript(c.ctx.Catalog, dims, n.Subscripts); ok {
		c.chunk.EmitAt(bytecode.OpLoadVar, base+int32(off), 0, 0, debug)
		return nil
	}
	if len(n.Subscripts) == 1 && len(dims) == 1 && n.Subscripts[0].Kind == lower.Sub1Single {
		c.chunk.Emit(bytecode.OpPushVarViewDirect, base, int32(slot.Size), 0)
		c.compile(n.Subscripts[0].Index)
		c.chunk.EmitAt(bytecode.OpViewSubscriptDynamic, 0, 0, 0, debug)
		return nil
	}
	c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: "unsupported subscript shape on " + n.Name + ": only a fully-static multi-axis index, or a single dynamic index on a single-axis variable, collapses to a scalar read"})
	return nil
}

func (c *exprCompiler) VisitGlobalVar(n *lower.GlobalVar) any {
	off := globalOffset(n.Name)
	c.chunk.EmitAt(bytecode.OpLoadGlobalVar, int32(off), 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
	return nil
}

func globalOffset(name string) uint32 {
	switch name {
	case "dt":
		return layout.DtOffset
	case "initial_time":
		return layout.InitialTimeOffset
	case "final_time":
		return layout.FinalTimeOffset
	default:
		return layout.TimeOffset
	}
}

func (c *exprCompiler) VisitModuleInputRef(n *lower.ModuleInputRef) any {
	if k, ok := c.overrideIdx[n.Name]; ok {
		c.chunk.Emit(bytecode.OpLoadModuleInput, k, 0, 0)
		return nil
	}
	slot, ok := c.mf.lay.Offsets[n.Name]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeUnknownDependency, Msg: "unknown module input " + n.Name})
		return nil
	}
	c.chunk.Emit(bytecode.OpLoadVar, int32(slot.Base-c.mf.lay.Base), 0, 0)
	return nil
}

// VisitModuleOutputRef mirrors VisitLocalVar's subscript collapse for
// a dotted module.output reference, except the output's declared
// dimensions live under the *callee* model's own name in
// Context.VarDims (child.ModelName), not the caller's.
func (c *exprCompiler) VisitModuleOutputRef(n *lower.ModuleOutputRef) any {
	child, ok := c.mf.lay.Modules[n.Module]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeUnknownDependency, Msg: "unknown module instance " + n.Module})
		return nil
	}
	slot, ok := child.Offsets[n.Output]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeUnknownDependency, Msg: "unknown module output " + n.Module + "·" + n.Output})
		return nil
	}
	base := int32(slot.Base - c.mf.lay.Base)
	debug := bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)}
	if len(n.Subscripts) == 0 {
		c.chunk.EmitAt(bytecode.OpLoadVar, base, 0, 0, debug)
		return nil
	}
	dims := c.ctx.VarDims[child.ModelName][n.Output]
	if off, ok := collapseStaticSubscript(c.ctx.Catalog, dims, n.Subscripts); ok {
		c.chunk.EmitAt(bytecode.OpLoadVar, base+int32(off), 0, 0, debug)
		return nil
	}
	if len(n.Subscripts) == 1 && len(dims) == 1 && n.Subscripts[0].Kind == lower.Sub1Single {
		c.chunk.Emit(bytecode.OpPushVarViewDirect, base, int32(slot.Size), 0)
		c.compile(n.Subscripts[0].Index)
		c.chunk.EmitAt(bytecode.OpViewSubscriptDynamic, 0, 0, 0, debug)
		return nil
	}
	c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: "unsupported subscript shape on " + n.Module + "·" + n.Output + ": only a fully-static multi-axis index, or a single dynamic index on a single-axis output, collapses to a scalar read"})
	return nil
}

func (c *exprCompiler) VisitUnary(n *lower.Unary) any {
	switch n.Op {
	case "not":
		c.compile(n.X)
		c.chunk.Emit(bytecode.OpNot, 0, 0, 0)
	default: // "-"
		c.chunk.Emit(bytecode.OpLoadConstant, c.ctx.ConstID(0), 0, 0)
		c.compile(n.X)
		c.chunk.EmitAt(bytecode.OpOp2, int32(bytecode.Op2Sub), 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
	}
	return nil
}

var op2Kinds = map[string]bytecode.Op2Kind{
	"+": bytecode.Op2Add, "-": bytecode.Op2Sub, "*": bytecode.Op2Mul, "/": bytecode.Op2Div,
	"mod": bytecode.Op2Mod, "^": bytecode.Op2Pow, "and": bytecode.Op2And, "or": bytecode.Op2Or,
	"=": bytecode.Op2Eq, "<>": bytecode.Op2Neq, ">": bytecode.Op2Gt, "<": bytecode.Op2Lt,
	">=": bytecode.Op2Gte, "<=": bytecode.Op2Lte,
}

func (c *exprCompiler) VisitBinary(n *lower.Binary) any {
	c.compile(n.Left)
	c.compile(n.Right)
	kind, ok := op2Kinds[n.Op]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: "unknown operator " + n.Op})
		return nil
	}
	c.chunk.EmitAt(bytecode.OpOp2, int32(kind), 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
	return nil
}

func (c *exprCompiler) VisitIf(n *lower.If) any {
	c.compile(n.Cond)
	c.compile(n.Then)
	c.compile(n.Else)
	c.chunk.EmitAt(bytecode.OpIf, 0, 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
	return nil
}

func (c *exprCompiler) VisitCall(n *lower.Call) any {
	c.compileCall(n)
	return nil
}

// tryEmitArrayView compiles arg as a multi-element view pushed onto
// the view stack, if it names one — a bare reference to an arrayed
// variable, or a single-axis subscript naming a wildcard/bang/range/
// subdimension of that variable's one declared dimension (spec.md
// §4.I) — and reports whether it did. A dynamic [start:end] range is
// the one shape resolveStaticView can't resolve at compile time: its
// bounds are compiled as ordinary sub-expressions and narrowed at run
// time via OpViewRangeDynamic, the spec.md §4.C view-stack counterpart
// to VisitLocalVar's scalar OpViewSubscriptDynamic path. Used by
// MAX/MIN/SUM/MEAN/STDDEV/SIZE's array-reduction argument and by
// collectBroadcastSources's static-only sibling for apply-to-all
// sources.
func (c *exprCompiler) tryEmitArrayView(arg lower.Expr1) bool {
	lv, ok := arg.(*lower.LocalVar)
	if !ok {
		return false
	}
	slot, ok := c.mf.lay.Offsets[lv.Name]
	if !ok {
		return false
	}
	base := int32(slot.Base - c.mf.lay.Base)
	dims := c.ctx.VarDims[c.mf.modelName][lv.Name]
	if rel, size, ok := resolveStaticView(c.ctx.Catalog, dims, lv.Subscripts, base, slot.Size); ok {
		if len(lv.Subscripts) == 0 {
			c.chunk.Emit(bytecode.OpPushVarViewDirect, rel, int32(size), 0)
		} else {
			c.chunk.Emit(bytecode.OpPushStaticView, rel, int32(size), 0)
		}
		return true
	}
	if len(lv.Subscripts) != 1 || len(dims) != 1 {
		return false
	}
	sub := lv.Subscripts[0]
	if sub.Kind != lower.Sub1Range || sub.Start == nil || sub.End == nil {
		return false
	}
	dim, dimOK := c.ctx.Catalog.Lookup(dims[0])
	if !dimOK {
		return false
	}
	debug := bytecode.DebugInfo{Start: spanStart(lv), End: spanEnd(lv)}
	c.chunk.Emit(bytecode.OpPushVarViewDirect, base, int32(dim.Size), 0)
	c.compile(sub.Start)
	c.compile(sub.End)
	c.chunk.EmitAt(bytecode.OpViewRangeDynamic, 0, 0, 0, debug)
	return true
}

func (c *exprCompiler) compileCall(n *lower.Call) {
	switch n.Name {
	case "LOOKUP":
		c.compileLookup(n)
		return
	case "MAX", "MIN":
		if len(n.Args) == 1 && c.tryEmitArrayView(n.Args[0]) {
			c.emitArrayReduce(n)
			return
		}
		c.compileVariadicFold(n, n.Name)
		return
	case "SUM", "STDDEV", "SIZE":
		if !c.tryEmitArrayView(n.Args[0]) {
			c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: n.Name + " requires an arrayed argument"})
			return
		}
		c.emitArrayReduce(n)
		return
	case "MEAN":
		if len(n.Args) == 1 && c.tryEmitArrayView(n.Args[0]) {
			c.emitArrayReduce(n)
			return
		}
		c.compileMeanOfScalars(n)
		return
	}

	id, ok := bytecode.BuiltinIDs[n.Name]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeUnknownBuiltin, Msg: n.Name})
		return
	}
	for _, a := range n.Args {
		c.compile(a)
	}
	c.chunk.EmitAt(bytecode.OpApply, int32(id), int32(len(n.Args)), 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
}

func (c *exprCompiler) compileVariadicFold(n *lower.Call, name string) {
	id := bytecode.BuiltinIDs[name]
	if len(n.Args) == 0 {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: name + " needs at least one argument"})
		return
	}
	c.compile(n.Args[0])
	for _, a := range n.Args[1:] {
		c.compile(a)
		c.chunk.Emit(bytecode.OpApply, int32(id), 2, 0)
	}
}

func (c *exprCompiler) compileMeanOfScalars(n *lower.Call) {
	if len(n.Args) == 0 {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: "MEAN needs at least one argument"})
		return
	}
	c.compile(n.Args[0])
	for _, a := range n.Args[1:] {
		c.compile(a)
		c.chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Add), 0, 0)
	}
	c.chunk.Emit(bytecode.OpLoadConstant, c.ctx.ConstID(float64(len(n.Args))), 0, 0)
	c.chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Div), 0, 0)
}

// emitArrayReduce emits the Array* reduction matching n.Name, for a
// view tryEmitArrayView has already pushed onto the view stack.
func (c *exprCompiler) emitArrayReduce(n *lower.Call) {
	var op bytecode.Op
	switch n.Name {
	case "MAX":
		op = bytecode.OpArrayMax
	case "MIN":
		op = bytecode.OpArrayMin
	case "SUM":
		op = bytecode.OpArraySum
	case "MEAN":
		op = bytecode.OpArrayMean
	case "STDDEV":
		op = bytecode.OpArrayStddev
	default:
		op = bytecode.OpArraySize
	}
	c.chunk.EmitAt(op, 0, 0, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
}

func (c *exprCompiler) compileLookup(n *lower.Call) {
	if len(n.Args) != 2 {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadBuiltinArgs, Msg: "LOOKUP takes (table, x)"})
		return
	}
	tableRef, ok := n.Args[0].(*lower.LocalVar)
	if !ok || len(tableRef.Subscripts) > 0 {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadTable, Msg: "LOOKUP's table argument must be a bare variable reference; subscripted/arrayed lookup tables are not supported by this compiler revision"})
		return
	}
	tbl, ok := c.tables[tableRef.Name]
	if !ok {
		c.fail(simerr.EquationError{Start: spanStart(n), End: spanEnd(n), Code: simerr.CodeBadTable, Msg: "no graphical function defined for " + tableRef.Name})
		return
	}
	gfID := c.ctx.AddTable(tbl)
	c.compile(n.Args[1])
	c.chunk.EmitAt(bytecode.OpLookup, gfID, 1, 0, bytecode.DebugInfo{Start: spanStart(n), End: spanEnd(n)})
}
