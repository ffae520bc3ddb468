// (package doc in context.go)
//
// Compile walks a build.BuiltProject's model tree, producing one
// CompiledModuleBody per distinct (model, override-set) pair — the
// same monomorphization key internal/depgraph.Analyze uses — and
// wires module instantiation sites together via ModuleCallDescriptor,
// so a model compiled once can run at many different module bases.
//
// Scope: this revision compiles the full scalar expression language
// (Const/LocalVar/GlobalVar/ModuleOutputRef/Unary/Binary/If/Call), a
// single-axis (one-dimension) array broadcast path for EqApplyToAll
// equations using the genuine iteration-stack opcodes
// (BeginIter/LoadIterViewAt/StoreIterElement/NextIterOrJump/EndIter)
// per spec.md §4.E's array-assignment pattern, and subscripted
// references per spec.md §4.C (internal/compiler/subscript.go): a
// fully-static multi-axis index collapses to a direct offset at
// compile time, a single dynamic index on a single-axis variable
// resolves at run time through a pushed view, and a static range/
// wildcard/subdimension subscript narrows a view for a reduction
// builtin or broadcast source. The INTEG/DELAY/SMOOTH family of
// stateful builtins is explicitly out of scope (see DESIGN.md); the VM
// rejects them at Apply time with a clear error rather than silently
// producing a wrong answer.
package compiler

import (
	"github.com/google/uuid"

	"sdsim/internal/build"
	"sdsim/internal/bytecode"
	"sdsim/internal/datamodel"
	"sdsim/internal/depgraph"
	"sdsim/internal/dimensions"
	"sdsim/internal/ident"
	"sdsim/internal/layout"
	"sdsim/internal/lookup"
	"sdsim/internal/simerr"
)

// Compile compiles every model body reachable from rootModel and
// returns the shared Context plus the root's body key. catalog is the
// same dimension catalog internal/layout and internal/build already
// used to size/validate this project, reused here to resolve static
// subscripts (spec.md §4.C) without re-deriving it.
func Compile(bp *build.BuiltProject, dm *datamodel.Project, pa *depgraph.ProjectAnalysis, catalog *dimensions.Catalog, rootLayout *layout.Layout, rootModel string) (*Context, string, error) {
	ctx := NewContext()
	ctx.Catalog = catalog
	ctx.VarDims = buildVarDims(dm)
	key, err := compileModel(ctx, bp, dm, pa, rootLayout, rootModel, map[string]bool{})
	if err != nil {
		return nil, "", err
	}
	return ctx, key, nil
}

// buildVarDims collects every model's own variables' declared
// dimensions (Variable.Dims for a Stock, Equation.Dims for a
// Flow/Aux/Arrayed element otherwise) up front, the same split
// internal/layout.variableSize makes, so VisitLocalVar/
// VisitModuleOutputRef can resolve a subscript without threading the
// raw datamodel.Project through every compile call.
func buildVarDims(dm *datamodel.Project) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(dm.Models))
	for i := range dm.Models {
		m := &dm.Models[i]
		vd := make(map[string][]string, len(m.Variables))
		for j := range m.Variables {
			v := &m.Variables[j]
			var dims []string
			if v.Kind == datamodel.VarStock {
				dims = v.Dims
			} else {
				dims = v.Eqn.Dims
			}
			if len(dims) > 0 {
				vd[ident.Canonical(v.Name)] = dims
			}
		}
		out[ident.Canonical(m.Name)] = vd
	}
	return out
}

func compileModel(ctx *Context, bp *build.BuiltProject, dm *datamodel.Project, pa *depgraph.ProjectAnalysis, lay *layout.Layout, modelName string, overridden map[string]bool) (string, error) {
	key := BodyKey(modelName, overridden)
	if _, ok := ctx.Bodies[key]; ok {
		return key, nil
	}

	bm, ok := bp.Models[modelName]
	if !ok {
		return "", simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "unknown model "+modelName)
	}
	ma, ok := pa.ByKey[key]
	if !ok {
		return "", simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no dependency analysis for "+key)
	}
	dmModel, _ := dm.FindModel(modelName)

	body := &CompiledModuleBody{
		ModelName:    modelName,
		Initials:     bytecode.NewChunk(),
		Flows:        bytecode.NewChunk(),
		Stocks:       bytecode.NewChunk(),
		GenerationID: uuid.New(),
	}
	// Reserve the cache slot before recursing into children so a
	// self-instantiating model tree (already rejected earlier by
	// internal/build's cycle check) can never recurse infinitely here.
	ctx.Bodies[key] = body

	tables := buildTables(dmModel)

	mf := &modelFrame{lay: lay, modelName: modelName}

	// Recursively compile every module instance's callee body first,
	// registering call descriptors as we go.
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if bv.Kind != datamodel.VarModule {
			continue
		}
		childOverridden := make(map[string]bool, len(bv.Inputs))
		for _, in := range bv.Inputs {
			childOverridden[in.Dst] = true
		}
		childLay, ok := lay.Modules[name]
		if !ok {
			return "", simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "no layout for module instance "+name)
		}
		childKey, err := compileModel(ctx, bp, dm, pa, childLay, bv.ModelName, childOverridden)
		if err != nil {
			return "", err
		}
		body.ModuleCalls = append(body.ModuleCalls, ModuleCallDescriptor{
			InstanceName: name,
			BodyKey:      childKey,
			Off:          int32(childLay.Base - lay.Base),
			NInputs:      int32(len(bv.Inputs)),
		})
	}

	if err := compileInitials(ctx, bm, mf, ma, tables, body); err != nil {
		return "", err
	}
	if err := compileFlows(ctx, bm, mf, ma, tables, body); err != nil {
		return "", err
	}
	if err := compileStocks(ctx, bm, mf, body); err != nil {
		return "", err
	}
	return key, nil
}

// buildTables collects every graphical function defined on this
// model's variables, keyed by canonical name, so compileLookup can
// resolve a LOOKUP(table, x) call's table argument.
func buildTables(dmModel *datamodel.Model) map[string]lookup.Table {
	tables := map[string]lookup.Table{}
	if dmModel == nil {
		return tables
	}
	for i := range dmModel.Variables {
		v := &dmModel.Variables[i]
		if v.GF == nil {
			continue
		}
		tbl, err := lookup.FromGraphicalFunction(*v.GF)
		if err != nil {
			continue // surfaced again, as a BadTable, when LOOKUP actually references it
		}
		tables[ident.Canonical(v.Name)] = tbl
	}
	return tables
}

func moduleCallDescFor(body *CompiledModuleBody, name string) (ModuleCallDescriptor, int, bool) {
	for i, d := range body.ModuleCalls {
		if d.InstanceName == name {
			return d, i, true
		}
	}
	return ModuleCallDescriptor{}, 0, false
}
