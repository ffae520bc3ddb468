package compiler

import (
	"sdsim/internal/build"
	"sdsim/internal/bytecode"
	"sdsim/internal/layout"
	"sdsim/internal/lookup"
	"sdsim/internal/simerr"
)

// compileStockIntegration emits the stocks-pass integration step for
// one stock: next[off] = curr[off] + dt*(sum(inflows) - sum(outflows)),
// per spec.md §4.H step 4.b. The stock's *initial* value is compiled
// separately, into the Initials chunk, from bv.Initial. An arrayed
// stock (slot.Size > 1) gets this same step unrolled once per element,
// since the element count is a compile-time constant (the dimension
// catalog already resolved it during layout) — the same unrolling
// strategy compileArrayedElements already uses for per-element Flow/Aux
// equations, applied here to a fixed identical RHS shape instead of one
// that can legitimately differ per element.
func compileStockIntegration(ctx *Context, mf *modelFrame, body *CompiledModuleBody, bv *build.BuiltVariable) error {
	slot, ok := mf.lay.Offsets[bv.Name]
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for stock "+bv.Name)
	}
	chunk := body.Stocks
	base := int32(slot.Base - mf.lay.Base)
	for i := uint32(0); i < slot.Size; i++ {
		elemIdx := int32(i)
		if err := emitFlowSum(ctx, mf, chunk, bv.Inflows, elemIdx); err != nil {
			return err
		}
		if err := emitFlowSum(ctx, mf, chunk, bv.Outflows, elemIdx); err != nil {
			return err
		}
		chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Sub), 0, 0) // inflow sum - outflow sum
		chunk.Emit(bytecode.OpLoadGlobalVar, int32(layout.DtOffset), 0, 0)
		chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Mul), 0, 0) // netflow * dt
		rel := base + elemIdx
		chunk.Emit(bytecode.OpLoadVar, rel, 0, 0)
		chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Add), 0, 0) // + curr stock value
		chunk.Emit(bytecode.OpAssignNext, rel, 0, 0)
	}
	return nil
}

// emitFlowSum pushes the sum of the named flow variables' elemIdx-th
// element (0 for a scalar flow), left-folded in declaration order, or
// the constant 0 if names is empty (a stock with no inflows/outflows
// on that side). Every named flow is assumed to share the stock's own
// shape; no stage checks this, so a flow smaller than the stock is read
// at offsets past its own slot.
func emitFlowSum(ctx *Context, mf *modelFrame, chunk *bytecode.Chunk, names []string, elemIdx int32) error {
	if len(names) == 0 {
		chunk.Emit(bytecode.OpLoadConstant, ctx.ConstID(0), 0, 0)
		return nil
	}
	for i, name := range names {
		slot, ok := mf.lay.Offsets[name]
		if !ok {
			return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no slot for flow "+name)
		}
		chunk.Emit(bytecode.OpLoadVar, int32(slot.Base-mf.lay.Base)+elemIdx, 0, 0)
		if i > 0 {
			chunk.Emit(bytecode.OpOp2, int32(bytecode.Op2Add), 0, 0)
		}
	}
	return nil
}

// compileModuleCall pushes the marshalled module inputs, in bv.Inputs
// order (the callee's declaration order, see internal/build), then
// emits EvalModule referencing
// the call descriptor compileModel already registered for this
// instance (recursing into callees happens before any runlist is
// compiled, see compileModel).
func compileModuleCall(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, tables map[string]lookup.Table, chunk *bytecode.Chunk, body *CompiledModuleBody, bv *build.BuiltVariable) error {
	desc, idx, ok := moduleCallDescFor(body, bv.Name)
	if !ok {
		return simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no call descriptor for module instance "+bv.Name)
	}
	for _, in := range bv.Inputs {
		ec := newExprCompiler(ctx, mf, overrideIdx, tables, chunk)
		ec.compile(in.Src)
		if ec.err != nil {
			return ec.err
		}
	}
	chunk.Emit(bytecode.OpEvalModule, int32(idx), desc.NInputs, 0)
	return nil
}
