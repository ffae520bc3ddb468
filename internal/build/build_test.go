package build

import (
	"testing"

	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
)

func sirProject() *datamodel.Project {
	return &datamodel.Project{
		Name: "sir",
		Models: []datamodel.Model{
			{
				Name: "main",
				Variables: []datamodel.Variable{
					{
						Kind:       datamodel.VarStock,
						Name:       "population",
						InitialEqn: "1000",
						Inflows:    []string{"birth"},
						Outflows:   []string{"death"},
					},
					{Kind: datamodel.VarFlow, Name: "birth", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.05 * population"}},
					{Kind: datamodel.VarFlow, Name: "death", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.02 * population"}},
				},
			},
		},
	}
}

func TestBuildScalarSIR(t *testing.T) {
	p := sirProject()
	catalog := dimensions.NewCatalog(nil)
	bp, err := Build(p, catalog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bm := bp.Models["main"]
	if bm == nil {
		t.Fatal("missing model 'main'")
	}
	pop := bm.Variables["population"]
	if pop == nil {
		t.Fatal("missing variable 'population'")
	}
	if len(pop.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", pop.Errors)
	}
	if pop.Initial == nil {
		t.Fatal("expected a lowered initial expression")
	}
	if pop.Inflows[0] != "birth" || pop.Outflows[0] != "death" {
		t.Fatalf("got inflows=%v outflows=%v", pop.Inflows, pop.Outflows)
	}
	birth := bm.Variables["birth"]
	if birth.Main == nil || len(birth.Errors) != 0 {
		t.Fatalf("birth: Main=%v Errors=%v", birth.Main, birth.Errors)
	}
}

func TestBuildEmptyEquationError(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "main", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "x", Eqn: datamodel.Equation{Kind: datamodel.EqScalar}},
		}},
	}}
	bp, err := Build(p, dimensions.NewCatalog(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(bp.Models["main"].Variables["x"].Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", bp.Models["main"].Variables["x"].Errors)
	}
}

func TestBuildModuleInputWiring(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "main", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "area", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
			{
				Kind: datamodel.VarModule, Name: "inner1", ModelName: "inner",
				Inputs: []datamodel.ModuleInput{{Src: "area", Dst: "area"}},
			},
		}},
		{Name: "inner", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "area", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
			{Kind: datamodel.VarAux, Name: "out", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "2 * area"}},
		}},
	}}
	bp, err := Build(p, dimensions.NewCatalog(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	inner1 := bp.Models["main"].Variables["inner1"]
	if len(inner1.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", inner1.Errors)
	}
	if len(inner1.Inputs) != 1 || inner1.Inputs[0].Dst != "area" || inner1.Inputs[0].Src == nil {
		t.Fatalf("got %#v", inner1.Inputs)
	}
}

func TestBuildBadModuleInputDst(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "main", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "area", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
			{
				Kind: datamodel.VarModule, Name: "inner1", ModelName: "inner",
				Inputs: []datamodel.ModuleInput{{Src: "area", Dst: "nonexistent"}},
			},
		}},
		{Name: "inner", Variables: []datamodel.Variable{
			{Kind: datamodel.VarAux, Name: "out", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
		}},
	}}
	bp, err := Build(p, dimensions.NewCatalog(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	inner1 := bp.Models["main"].Variables["inner1"]
	if len(inner1.Errors) != 1 {
		t.Fatalf("expected 1 BadModuleInputDst error, got %v", inner1.Errors)
	}
}

func TestBuildRejectsCircularModuleInstantiation(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "a", Variables: []datamodel.Variable{
			{Kind: datamodel.VarModule, Name: "b1", ModelName: "b"},
		}},
		{Name: "b", Variables: []datamodel.Variable{
			{Kind: datamodel.VarModule, Name: "a1", ModelName: "a"},
		}},
	}}
	_, err := Build(p, dimensions.NewCatalog(nil))
	if err == nil {
		t.Fatal("expected a circular module instantiation error")
	}
}
