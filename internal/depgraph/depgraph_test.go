package depgraph

import (
	"testing"

	"sdsim/internal/build"
	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
)

func buildOrFail(t *testing.T, p *datamodel.Project) *build.BuiltProject {
	t.Helper()
	bp, err := build.Build(p, dimensions.NewCatalog(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return bp
}

func sirProject() *datamodel.Project {
	return &datamodel.Project{
		Models: []datamodel.Model{
			{
				Name: "main",
				Variables: []datamodel.Variable{
					{
						Kind: datamodel.VarStock, Name: "population", InitialEqn: "1000",
						Inflows: []string{"birth"}, Outflows: []string{"death"},
					},
					{Kind: datamodel.VarFlow, Name: "birth", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.05 * population"}},
					{Kind: datamodel.VarFlow, Name: "death", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.02 * population"}},
				},
			},
		},
	}
}

func TestAnalyzeSIRRunlists(t *testing.T) {
	bp := buildOrFail(t, sirProject())
	pa, err := Analyze(bp, "main")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	ma := pa.ByKey[inputSetKey("main", map[string]bool{})]
	if ma == nil {
		t.Fatal("missing analysis for 'main'")
	}
	if len(ma.Stocks) != 1 || ma.Stocks[0] != "population" {
		t.Fatalf("expected Stocks=[population], got %v", ma.Stocks)
	}
	flowIdx := map[string]int{}
	for i, n := range ma.Flows {
		flowIdx[n] = i
	}
	if _, ok := flowIdx["population"]; ok {
		t.Fatalf("population (a stock) must not appear in Flows, got %v", ma.Flows)
	}
	_, hasBirth := flowIdx["birth"]
	_, hasDeath := flowIdx["death"]
	if !hasBirth || !hasDeath {
		t.Fatalf("expected birth and death in Flows, got %v", ma.Flows)
	}
	// population's initial value has no free-variable dependencies, but
	// it is a seed (a stock) so it still appears in Initials.
	initSet := map[string]bool{}
	for _, n := range ma.Initials {
		initSet[n] = true
	}
	if !initSet["population"] {
		t.Fatalf("expected population in Initials, got %v", ma.Initials)
	}
}

func TestAnalyzeStocksBreakCycles(t *testing.T) {
	// population's inflow/outflow reference it by name only; birth and
	// death reference population in their equations. A naive graph that
	// added an edge population -> birth -> population would cycle; ours
	// must not, because stocks have no dt_deps at all.
	bp := buildOrFail(t, sirProject())
	pa, err := Analyze(bp, "main")
	if err != nil {
		t.Fatalf("did not expect a cycle error, got: %v", err)
	}
	ma := pa.ByKey[inputSetKey("main", map[string]bool{})]
	if len(ma.DtDeps["population"]) != 0 {
		t.Fatalf("expected population to have no dt_deps, got %v", ma.DtDeps["population"])
	}
}

func TestAnalyzeRejectsCircularAuxiliaries(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "main", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "a", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "b + 1"}},
			{Kind: datamodel.VarAux, Name: "b", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "a + 1"}},
		}},
	}}
	bp := buildOrFail(t, p)
	_, err := Analyze(bp, "main")
	if err == nil {
		t.Fatal("expected a circular dependency error")
	}
	a := bp.Models["main"].Variables["a"]
	b := bp.Models["main"].Variables["b"]
	if len(a.Errors) == 0 && len(b.Errors) == 0 {
		t.Fatal("expected the cycle to be localized onto one of the offending variables")
	}
}

func moduleNestingProject() *datamodel.Project {
	return &datamodel.Project{
		Models: []datamodel.Model{
			{
				Name: "main",
				Variables: []datamodel.Variable{
					{Kind: datamodel.VarModule, Name: "inner1", ModelName: "inner"},
					{Kind: datamodel.VarAux, Name: "x", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "inner1.level * 2"}},
				},
			},
			{
				Name: "inner",
				Variables: []datamodel.Variable{
					{Kind: datamodel.VarStock, Name: "level", InitialEqn: "10"},
				},
			},
		},
	}
}

func TestAnalyzeModuleStockOutputSkipsDtEdge(t *testing.T) {
	bp := buildOrFail(t, moduleNestingProject())
	pa, err := Analyze(bp, "main")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	ma := pa.ByKey[inputSetKey("main", map[string]bool{})]
	for _, dep := range ma.DtDeps["x"] {
		if dep == "inner1" {
			t.Fatalf("dt_deps for x must not include inner1 (its output is a stock), got %v", ma.DtDeps["x"])
		}
	}
	found := false
	for _, dep := range ma.InitialDeps["x"] {
		if dep == "inner1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("initial_deps for x must include inner1, got %v", ma.InitialDeps["x"])
	}
}
