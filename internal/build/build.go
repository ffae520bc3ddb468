// Package build implements component F: the stage-0→stage-1 model
// builder. It takes a raw datamodel.Project, parses and lowers every
// variable's equation text into internal/lower.Expr1 trees, validates
// module-input wiring (Dst must name a variable of the callee model,
// Src must lower cleanly in the caller's scope), and rejects circular
// module instantiation before dependency analysis (component G) ever
// runs.
//
// Grounded on the teacher's internal/build/linker.go ImportResolver:
// that package walks a file-import graph with visited/resolving maps
// to detect circular imports before linking bytecode. The same shape
// — build an edge "caller model instantiates callee model" and reject
// cycles before going further — applies here to module instantiation,
// but the cycle check itself is delegated to internal/depgraph's
// sibling internal/topo.Sort (itself grounded on the same DFS idiom)
// rather than re-implementing a second visited/resolving walk.
package build

import (
	"sort"

	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
	"sdsim/internal/exprparse"
	"sdsim/internal/ident"
	"sdsim/internal/lower"
	"sdsim/internal/simerr"
	"sdsim/internal/topo"
)

// BuiltModuleInput is one resolved wire: Dst names a variable of the
// callee model; Src is the lowered expression evaluated in the
// caller's scope at the call site.
type BuiltModuleInput struct {
	Dst string
	Src lower.Expr1
}

// BuiltArrayedElement is one lowered element of an Arrayed equation.
type BuiltArrayedElement struct {
	SubscriptKey string
	Main         lower.Expr1
	Initial      lower.Expr1
}

// BuiltVariable is the stage-1 form of a datamodel.Variable: equation
// text replaced by lowered Expr1 trees, module wiring validated.
type BuiltVariable struct {
	Name string
	Kind datamodel.VariableKind

	// Flow / Aux, Scalar or ApplyToAll
	Main    lower.Expr1
	Initial lower.Expr1

	// Arrayed
	Elements []BuiltArrayedElement

	// Stock
	Inflows  []string
	Outflows []string
	NonNeg   bool
	Dims     []string // canonical dimension names; empty means scalar

	// Module
	ModelName string
	Inputs    []BuiltModuleInput

	Errors []error
}

func (bv *BuiltVariable) fail(err error) { bv.Errors = append(bv.Errors, err) }

// AllExprs returns every lowered expression hanging off this variable,
// in no particular order — used by internal/depgraph to localize a
// cycle error to the reference that caused it.
func (bv *BuiltVariable) AllExprs() []lower.Expr1 {
	exprs := []lower.Expr1{bv.Main, bv.Initial}
	for _, el := range bv.Elements {
		exprs = append(exprs, el.Main, el.Initial)
	}
	for _, in := range bv.Inputs {
		exprs = append(exprs, in.Src)
	}
	return exprs
}

// BuiltModel is the stage-1 form of a datamodel.Model.
type BuiltModel struct {
	Name      string
	Variables map[string]*BuiltVariable // canonical name -> variable
	Order     []string                  // canonical names, original declaration order
}

// BuiltProject is the stage-1 form of a datamodel.Project, ready for
// dependency analysis (component G).
type BuiltProject struct {
	Models map[string]*BuiltModel
}

// Build parses and lowers every variable in every model, validates
// module wiring, and rejects circular module instantiation. Per-
// variable diagnostics are accumulated on BuiltVariable.Errors rather
// than halting the walk (spec.md §7); a non-nil error return signals a
// project-level failure (a module instantiation cycle) rather than an
// equation-level one. A module variable naming an unknown model is
// reported on that variable's Errors as CodeExpectedModule.
func Build(project *datamodel.Project, catalog *dimensions.Catalog) (*BuiltProject, error) {
	if err := checkModuleInstantiationCycles(project); err != nil {
		return nil, err
	}

	bp := &BuiltProject{Models: make(map[string]*BuiltModel, len(project.Models))}
	scopes := make(map[string]*lower.Scope, len(project.Models))
	for i := range project.Models {
		m := &project.Models[i]
		scopes[ident.Canonical(m.Name)] = lower.NewScope(catalog, m)
	}

	for i := range project.Models {
		m := &project.Models[i]
		scope := scopes[ident.Canonical(m.Name)]
		bm := &BuiltModel{Name: ident.Canonical(m.Name), Variables: make(map[string]*BuiltVariable, len(m.Variables))}
		for j := range m.Variables {
			v := &m.Variables[j]
			bv := buildVariable(v, scope, project)
			bm.Variables[bv.Name] = bv
			bm.Order = append(bm.Order, bv.Name)
		}
		bp.Models[bm.Name] = bm
	}
	return bp, nil
}

func checkModuleInstantiationCycles(project *datamodel.Project) error {
	deps := make(map[string][]string, len(project.Models))
	names := make([]string, 0, len(project.Models))
	for i := range project.Models {
		m := &project.Models[i]
		name := ident.Canonical(m.Name)
		names = append(names, name)
		for j := range m.Variables {
			v := &m.Variables[j]
			if v.Kind == datamodel.VarModule {
				deps[name] = append(deps[name], ident.Canonical(v.ModelName))
			}
		}
	}
	if _, err := topo.Sort(names, deps); err != nil {
		return simerr.Wrap(err, simerr.KindModel, simerr.CodeCircularDependency, "circular module instantiation")
	}
	return nil
}

func buildVariable(v *datamodel.Variable, scope *lower.Scope, project *datamodel.Project) *BuiltVariable {
	bv := &BuiltVariable{Name: ident.Canonical(v.Name), Kind: v.Kind}

	switch v.Kind {
	case datamodel.VarStock:
		if v.InitialEqn != "" {
			bv.Initial = parseAndLower(v.InitialEqn, scope, bv)
		}
		bv.Inflows = canonList(v.Inflows)
		bv.Outflows = canonList(v.Outflows)
		bv.NonNeg = v.NonNeg
		bv.Dims = canonList(v.Dims)

	case datamodel.VarModule:
		bv.ModelName = ident.Canonical(v.ModelName)
		callee, ok := project.FindModel(bv.ModelName)
		if !ok {
			bv.fail(simerr.EquationError{Code: simerr.CodeExpectedModule, Msg: "unknown model " + v.ModelName})
			break
		}
		for _, mi := range v.Inputs {
			bv.Inputs = append(bv.Inputs, buildModuleInput(mi, scope, callee, bv))
		}
		// Wires are kept in the callee's declaration order, the order
		// internal/compiler numbers module inputs in.
		pos := make(map[string]int, len(callee.Variables))
		for k := range callee.Variables {
			pos[ident.Canonical(callee.Variables[k].Name)] = k
		}
		sort.SliceStable(bv.Inputs, func(a, b int) bool { return pos[bv.Inputs[a].Dst] < pos[bv.Inputs[b].Dst] })

	default: // VarFlow, VarAux
		switch v.Eqn.Kind {
		case datamodel.EqScalar, datamodel.EqApplyToAll:
			if v.Eqn.Expr == "" {
				bv.fail(simerr.EquationError{Code: simerr.CodeEmptyEquation})
				break
			}
			bv.Main = parseAndLower(v.Eqn.Expr, scope, bv)
			if v.Eqn.Initial != "" {
				bv.Initial = parseAndLower(v.Eqn.Initial, scope, bv)
			}
		case datamodel.EqArrayed:
			for _, el := range v.Eqn.Elements {
				be := BuiltArrayedElement{SubscriptKey: el.SubscriptKey}
				if el.Expr == "" {
					bv.fail(simerr.EquationError{Code: simerr.CodeEmptyEquation, Msg: "element " + el.SubscriptKey})
				} else {
					be.Main = parseAndLower(el.Expr, scope, bv)
				}
				if el.Initial != "" {
					be.Initial = parseAndLower(el.Initial, scope, bv)
				}
				bv.Elements = append(bv.Elements, be)
			}
		}
	}

	return bv
}

func buildModuleInput(mi datamodel.ModuleInput, callerScope *lower.Scope, callee *datamodel.Model, bv *BuiltVariable) BuiltModuleInput {
	dst := ident.Canonical(mi.Dst)
	if _, ok := callee.FindVariable(dst); !ok {
		bv.fail(simerr.EquationError{Code: simerr.CodeBadModuleInputDst, Msg: "module " + callee.Name + " has no variable " + mi.Dst})
		return BuiltModuleInput{Dst: dst}
	}
	src, err := exprparse.Parse(mi.Src)
	if err != nil {
		bv.fail(simerr.EquationError{Code: simerr.CodeBadModuleInputSrc, Msg: err.Error()})
		return BuiltModuleInput{Dst: dst}
	}
	lowered, errs := lower.Lower(src, callerScope)
	if len(errs) > 0 {
		for _, e := range errs {
			bv.fail(wrapAsBadModuleInputSrc(e))
		}
		return BuiltModuleInput{Dst: dst}
	}
	return BuiltModuleInput{Dst: dst, Src: lowered}
}

func wrapAsBadModuleInputSrc(err error) error {
	if ee, ok := err.(simerr.EquationError); ok {
		ee.Code = simerr.CodeBadModuleInputSrc
		return ee
	}
	return err
}

func parseAndLower(src string, scope *lower.Scope, bv *BuiltVariable) lower.Expr1 {
	tree, err := exprparse.Parse(src)
	if err != nil {
		bv.fail(err)
		return nil
	}
	lowered, errs := lower.Lower(tree, scope)
	for _, e := range errs {
		bv.fail(e)
	}
	return lowered
}

func canonList(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident.Canonical(n)
	}
	return out
}
