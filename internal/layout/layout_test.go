package layout

import (
	"testing"

	"sdsim/internal/build"
	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
)

func buildOrFail(t *testing.T, p *datamodel.Project, catalog *dimensions.Catalog) *build.BuiltProject {
	t.Helper()
	bp, err := build.Build(p, catalog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return bp
}

func TestLayoutScalarModelReservesGlobals(t *testing.T) {
	p := &datamodel.Project{Models: []datamodel.Model{
		{Name: "main", Variables: []datamodel.Variable{
			{Kind: datamodel.VarStock, Name: "population", InitialEqn: "1000"},
			{Kind: datamodel.VarFlow, Name: "birth", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.05 * population"}},
		}},
	}}
	catalog := dimensions.NewCatalog(nil)
	bp := buildOrFail(t, p, catalog)
	l, err := BuildRoot(bp, p, catalog, "main")
	if err != nil {
		t.Fatalf("BuildRoot: %v", err)
	}
	if l.Base != ReservedSlots {
		t.Fatalf("expected model region to start at %d, got %d", ReservedSlots, l.Base)
	}
	pop := l.Offsets["population"]
	birth := l.Offsets["birth"]
	if pop.Size != 1 || birth.Size != 1 {
		t.Fatalf("expected scalar slots, got pop=%v birth=%v", pop, birth)
	}
	if pop.Base == birth.Base {
		t.Fatalf("expected distinct offsets, both got %d", pop.Base)
	}
	if l.NSlots != 2 {
		t.Fatalf("expected NSlots=2, got %d", l.NSlots)
	}
}

func TestLayoutArrayedVariableSizedByDimension(t *testing.T) {
	p := &datamodel.Project{
		Dimensions: []datamodel.Dimension{
			{Name: "Region", Kind: datamodel.DimNamed, Elements: []string{"N", "S"}},
		},
		Models: []datamodel.Model{
			{Name: "main", Variables: []datamodel.Variable{
				{
					Kind: datamodel.VarAux, Name: "pop",
					Eqn: datamodel.Equation{Kind: datamodel.EqApplyToAll, Dims: []string{"Region"}, Expr: "10"},
				},
			}},
		},
	}
	catalog := dimensions.NewCatalog([]dimensions.Dimension{
		dimensions.NewNamed("region", []string{"n", "s"}),
	})
	bp := buildOrFail(t, p, catalog)
	l, err := BuildRoot(bp, p, catalog, "main")
	if err != nil {
		t.Fatalf("BuildRoot: %v", err)
	}
	slot := l.Offsets["pop"]
	if slot.Size != 2 {
		t.Fatalf("expected a 2-slot array, got %v", slot)
	}
}

func moduleNestingProject() *datamodel.Project {
	return &datamodel.Project{Models: []datamodel.Model{
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
}

func TestLayoutModuleOccupiesContiguousSubSlice(t *testing.T) {
	p := moduleNestingProject()
	catalog := dimensions.NewCatalog(nil)
	bp := buildOrFail(t, p, catalog)
	l, err := BuildRoot(bp, p, catalog, "main")
	if err != nil {
		t.Fatalf("BuildRoot: %v", err)
	}
	inner := l.Modules["inner1"]
	if inner == nil {
		t.Fatal("expected a nested layout for inner1")
	}
	if inner.NSlots != 2 {
		t.Fatalf("expected inner model to need 2 slots (area, out), got %d", inner.NSlots)
	}
	areaSlot, ok := l.Lookup("area")
	if !ok {
		t.Fatal("expected to find 'area' in root layout")
	}
	if inner.Base < areaSlot.Base+areaSlot.Size {
		t.Fatalf("expected inner module's region to start after area, got inner.Base=%d area=%v", inner.Base, areaSlot)
	}
	outSlot, ok := l.Lookup("inner1·out")
	if !ok {
		t.Fatal("expected Lookup to resolve a dotted path into the nested module")
	}
	if outSlot.Base < inner.Base || outSlot.Base >= inner.Base+inner.NSlots {
		t.Fatalf("expected out's slot %v to fall within inner's region [%d, %d)", outSlot, inner.Base, inner.Base+inner.NSlots)
	}
}

func TestLayoutFlattenIncludesNestedModules(t *testing.T) {
	p := moduleNestingProject()
	catalog := dimensions.NewCatalog(nil)
	bp := buildOrFail(t, p, catalog)
	l, err := BuildRoot(bp, p, catalog, "main")
	if err != nil {
		t.Fatalf("BuildRoot: %v", err)
	}
	flat := l.Flatten()
	foundOut := false
	for _, name := range flat {
		if name == "inner1·out" {
			foundOut = true
		}
	}
	if !foundOut {
		t.Fatalf("expected Flatten to include inner1·out, got %v", flat)
	}
}
