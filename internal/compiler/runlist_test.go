package compiler

import (
	"testing"

	"sdsim/internal/build"
	"sdsim/internal/bytecode"
	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
	"sdsim/internal/exprparse"
	"sdsim/internal/layout"
	"sdsim/internal/lower"
)

var emptyModel = &datamodel.Model{Name: "main"}

func lowerExprOrFail(t *testing.T, src string, scope *lower.Scope) lower.Expr1 {
	t.Helper()
	tree, err := exprparse.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	e, errs := lower.Lower(tree, scope)
	if len(errs) != 0 {
		t.Fatalf("Lower(%q): %v", src, errs)
	}
	return e
}

// TestCompileScalarAssignEmitsAssignAtOwnSlot unit-tests
// compileScalarAssign directly against a hand-built single-variable
// layout, isolated from the rest of the Compile pipeline.
func TestCompileScalarAssignEmitsAssignAtOwnSlot(t *testing.T) {
	catalog := dimensions.NewCatalog(nil)
	lay := &layout.Layout{Base: 4, Offsets: map[string]layout.Slot{
		"x": {Base: 4, Size: 1},
	}}
	ctx := NewContext()
	ctx.Catalog = catalog
	mf := &modelFrame{lay: lay, modelName: "main"}

	bv := &build.BuiltVariable{Name: "x"}
	expr := lowerExprOrFail(t, "2 + 3", lower.NewScope(catalog, emptyModel))

	chunk := bytecode.NewChunk()
	if err := compileScalarAssign(ctx, mf, nil, nil, chunk, bv, expr); err != nil {
		t.Fatalf("compileScalarAssign: %v", err)
	}
	last := chunk.Code[len(chunk.Code)-1]
	if last.Op != bytecode.OpAssignCurr || last.A != 0 {
		t.Fatalf("expected a final AssignCurr at relative offset 0, got %+v", last)
	}
}

// TestCompileArrayBroadcastLoopsOverElements unit-tests
// compileArrayBroadcast directly: a constant RHS with no array-valued
// operand should still emit exactly one BeginIter/EndIter pair driving
// a single loop body that runs once per element at VM time, rather
// than N separately-compiled constant assignments.
func TestCompileArrayBroadcastLoopsOverElements(t *testing.T) {
	catalog := dimensions.NewCatalog([]dimensions.Dimension{
		dimensions.NewNamed("region", []string{"n", "s", "e"}),
	})
	lay := &layout.Layout{Base: 4, Offsets: map[string]layout.Slot{
		"pop": {Base: 4, Size: 3},
	}}
	ctx := NewContext()
	ctx.Catalog = catalog
	ctx.VarDims["main"] = map[string][]string{"pop": {"region"}}
	mf := &modelFrame{lay: lay, modelName: "main"}

	expr := lowerExprOrFail(t, "10", lower.NewScope(catalog, emptyModel))
	chunk := bytecode.NewChunk()
	slot := lay.Offsets["pop"]
	if err := compileArrayBroadcast(ctx, mf, nil, nil, chunk, expr, slot); err != nil {
		t.Fatalf("compileArrayBroadcast: %v", err)
	}
	if countOp(chunk, bytecode.OpBeginIter) != 1 {
		t.Fatalf("expected one BeginIter, got %+v", chunk.Code)
	}
	if countOp(chunk, bytecode.OpNextIterOrJump) != 1 {
		t.Fatalf("expected one NextIterOrJump (the loop runs at VM time, not unrolled), got %+v", chunk.Code)
	}
	if countOp(chunk, bytecode.OpEndIter) != 1 {
		t.Fatalf("expected one EndIter, got %+v", chunk.Code)
	}
}

// TestCompileOverrideAssignReadsModuleInput unit-tests
// compileOverrideAssign: an overridden variable's own equation is
// replaced entirely by a LoadModuleInput+AssignCurr pair.
func TestCompileOverrideAssignReadsModuleInput(t *testing.T) {
	lay := &layout.Layout{Base: 4, Offsets: map[string]layout.Slot{
		"area": {Base: 5, Size: 1},
	}}
	mf := &modelFrame{lay: lay, modelName: "inner"}
	overrideIdx := map[string]int32{"area": 0}
	bv := &build.BuiltVariable{Name: "area"}

	chunk := bytecode.NewChunk()
	if err := compileOverrideAssign(mf, overrideIdx, chunk, bv); err != nil {
		t.Fatalf("compileOverrideAssign: %v", err)
	}
	if len(chunk.Code) != 2 {
		t.Fatalf("expected exactly 2 instructions, got %+v", chunk.Code)
	}
	if chunk.Code[0].Op != bytecode.OpLoadModuleInput || chunk.Code[0].A != 0 {
		t.Fatalf("expected LoadModuleInput{0} first, got %+v", chunk.Code[0])
	}
	if chunk.Code[1].Op != bytecode.OpAssignCurr || chunk.Code[1].A != 1 {
		t.Fatalf("expected AssignCurr at relative offset 1 (5-4), got %+v", chunk.Code[1])
	}
}
