package compiler

import (
	"sdsim/internal/build"
	"sdsim/internal/bytecode"
	"sdsim/internal/datamodel"
	"sdsim/internal/depgraph"
	"sdsim/internal/layout"
	"sdsim/internal/lookup"
	"sdsim/internal/lower"
	"sdsim/internal/simerr"
)

func newExprCompiler(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk) *exprCompiler {
	return &exprCompiler{ctx: ctx, chunk: chunk, mf: mf, overrideIdx: overrideIdx, tables: tables}
}

func compileInitials(ctx *Context, bm *build.BuiltModel, mf *modelFrame, ma *depgraph.ModelAnalysis, tables map[string]lookup.Table, body *CompiledModuleBody) error {
	overrideIdx := overrideIndexFor(bm, ma.Overridden)
	for _, name := range ma.Initials {
		bv := bm.Variables[name]
		if bv == nil {
			continue
		}
		if err := compileInitialAssign(ctx, mf, overrideIdx, tables, body, bv); err != nil {
			return err
		}
	}
	body.Initials.Emit(bytecode.OpRet, 0, 0, 0)
	return nil
}

func compileFlows(ctx *Context, bm *build.BuiltModel, mf *modelFrame, ma *depgraph.ModelAnalysis, tables map[string]lookup.Table, body *CompiledModuleBody) error {
	overrideIdx := overrideIndexFor(bm, ma.Overridden)
	for _, name := range ma.Flows {
		bv := bm.Variables[name]
		if bv == nil {
			continue
		}
		if err := compileFlowAssign(ctx, mf, overrideIdx, tables, body, bv); err != nil {
			return err
		}
	}
	body.Flows.Emit(bytecode.OpRet, 0, 0, 0)
	return nil
}

// compileStocks walks bm.Order (not a depgraph runlist) because stock
// integration and module-stocks recursion have no cross-sibling
// ordering requirement within this phase: every stock reads only
// already-settled curr values written by the flows pass, and every
// module's own stock integration is self-contained.
func compileStocks(ctx *Context, bm *build.BuiltModel, mf *modelFrame, body *CompiledModuleBody) error {
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		switch bv.Kind {
		case datamodel.VarStock:
			if err := compileStockIntegration(ctx, mf, body, bv); err != nil {
				return err
			}
		case datamodel.VarModule:
			desc, idx, ok := moduleCallDescFor(body, name)
			if !ok {
				return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no call descriptor for "+name)
			}
			body.Stocks.Emit(bytecode.OpEvalModule, int32(idx), desc.NInputs, 0)
		}
	}
	body.Stocks.Emit(bytecode.OpRet, 0, 0, 0)
	return nil
}

// overrideIndexFor assigns each overridden variable a stable
// module-input index by its position in bm.Order. compileModuleCall
// pushes a call site's bv.Inputs in slice order, and internal/build
// sorts that slice into the callee's declaration order, so the k-th
// pushed value is the one LoadModuleInput{k} reads.
func overrideIndexFor(bm *build.BuiltModel, overridden map[string]bool) map[string]int32 {
	idx := map[string]int32{}
	if len(overridden) == 0 {
		return idx
	}
	var k int32
	for _, name := range bm.Order {
		if overridden[name] {
			idx[name] = k
			k++
		}
	}
	return idx
}

func compileInitialAssign(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, body *CompiledModuleBody, bv *build.BuiltVariable) error {
	if _, ok := overrideIdx[bv.Name]; ok {
		return compileOverrideAssign(mf, overrideIdx, body.Initials, bv)
	}
	switch bv.Kind {
	case datamodel.VarStock:
		slot, ok := mf.lay.Offsets[bv.Name]
		if !ok {
			return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for "+bv.Name)
		}
		if slot.Size > 1 {
			return compileArrayBroadcast(ctx, mf, overrideIdx, tables, body.Initials, bv.Initial, slot)
		}
		return compileScalarAssign(ctx, mf, overrideIdx, tables, body.Initials, bv, bv.Initial)
	case datamodel.VarModule:
		return compileModuleCall(ctx, mf, overrideIdx, tables, body.Initials, body, bv)
	default:
		return compileVariableMain(ctx, mf, overrideIdx, tables, body.Initials, bv)
	}
}

func compileFlowAssign(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, body *CompiledModuleBody, bv *build.BuiltVariable) error {
	if _, ok := overrideIdx[bv.Name]; ok {
		return compileOverrideAssign(mf, overrideIdx, body.Flows, bv)
	}
	switch bv.Kind {
	case datamodel.VarModule:
		return compileModuleCall(ctx, mf, overrideIdx, tables, body.Flows, body, bv)
	case datamodel.VarStock:
		return nil // stocks are never in ma.Flows unless overridden, handled above
	default:
		return compileVariableMain(ctx, mf, overrideIdx, tables, body.Flows, bv)
	}
}

// compileOverrideAssign replaces a module-input-overridden variable's
// normal equation with a straight module-input read, per spec.md
// §4.G: "its assignment is replaced at compile time by
// AssignCurr{off, ModuleInput{k}}".
func compileOverrideAssign(mf *modelFrame, overrideIdx map[string]int32, chunk *bytecode.Chunk, bv *build.BuiltVariable) error {
	k := overrideIdx[bv.Name]
	slot, ok := mf.lay.Offsets[bv.Name]
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for overridden variable "+bv.Name)
	}
	chunk.Emit(bytecode.OpLoadModuleInput, k, 0, 0)
	chunk.Emit(bytecode.OpAssignCurr, int32(slot.Base-mf.lay.Base), 0, 0)
	return nil
}

func compileVariableMain(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk, bv *build.BuiltVariable) error {
	slot, ok := mf.lay.Offsets[bv.Name]
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for "+bv.Name)
	}
	if len(bv.Elements) > 0 {
		return compileArrayedElements(ctx, mf, overrideIdx, tables, chunk, bv)
	}
	if slot.Size > 1 {
		return compileArrayBroadcast(ctx, mf, overrideIdx, tables, chunk, bv.Main, slot)
	}
	return compileScalarAssign(ctx, mf, overrideIdx, tables, chunk, bv, bv.Main)
}

func compileScalarAssign(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk, bv *build.BuiltVariable, expr lower.Expr1) error {
	slot, ok := mf.lay.Offsets[bv.Name]
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for "+bv.Name)
	}
	if expr == nil {
		return simerr.EquationError{Code: simerr.CodeEmptyEquation, Msg: bv.Name}
	}
	ec := newExprCompiler(ctx, mf, overrideIdx, tables, chunk)
	ec.compile(expr)
	if ec.err != nil {
		return ec.err
	}
	chunk.Emit(bytecode.OpAssignCurr, int32(slot.Base-mf.lay.Base), 0, 0)
	return nil
}

// compileArrayedElements compiles an explicit per-element equation
// list (EqArrayed): each element may have a distinct RHS, so each is
// compiled as its own independent scalar assignment into its own
// offset within the variable's slot range, in declaration order.
func compileArrayedElements(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk, bv *build.BuiltVariable) error {
	slot, ok := mf.lay.Offsets[bv.Name]
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for "+bv.Name)
	}
	for i, el := range bv.Elements {
		if el.Main == nil {
			continue
		}
		ec := newExprCompiler(ctx, mf, overrideIdx, tables, chunk)
		ec.compile(el.Main)
		if ec.err != nil {
			return ec.err
		}
		elOff := int32(slot.Base-mf.lay.Base) + int32(i)
		chunk.Emit(bytecode.OpAssignCurr, elOff, 0, 0)
	}
	return nil
}

// compileArrayBroadcast implements spec.md §4.E's array-assignment
// bytecode pattern for a single-axis EqApplyToAll equation (or, for a
// Stock, an initial-value expression of the same shape as the stock
// itself): the same RHS expression runs once per element of the
// output's dimension, reading any same-shape arrayed operand
// elementwise through the iteration-stack opcodes instead of compiling
// N independent copies of the expression (what compileArrayedElements
// does, which only makes sense when each element's RHS genuinely
// differs — here they are identical by construction, so the broadcast
// form is both correct and the one spec.md actually specifies).
func compileArrayBroadcast(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk, expr lower.Expr1, slot layout.Slot) error {
	outRel := int32(slot.Base - mf.lay.Base)
	chunk.Emit(bytecode.OpPushVarViewDirect, outRel, int32(slot.Size), 0)
	chunk.Emit(bytecode.OpBeginIter, 0, 0, 0)

	sources := collectBroadcastSources(ctx, mf, overrideIdx, expr, slot.Size)
	for _, s := range sources {
		chunk.Emit(bytecode.OpPushVarViewDirect, s.rel, int32(s.size), 0)
	}

	loopStart := chunk.Len()
	ec := newExprCompiler(ctx, mf, overrideIdx, tables, chunk)
	ec.broadcastSources = sourceOffsets(sources)
	ec.compile(expr)
	if ec.err != nil {
		return ec.err
	}
	chunk.Emit(bytecode.OpStoreIterElement, 0, 0, 0)
	jumpIdx := chunk.Emit(bytecode.OpNextIterOrJump, 0, 0, 0)
	chunk.PatchA(jumpIdx, int32(loopStart-jumpIdx))
	chunk.Emit(bytecode.OpEndIter, 0, 0, 0)
	for range sources {
		chunk.Emit(bytecode.OpPopView, 0, 0, 0)
	}
	chunk.Emit(bytecode.OpPopView, 0, 0, 0)
	return nil
}
