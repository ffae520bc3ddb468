package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"sdsim/internal/datamodel"
	"sdsim/internal/simerr"
)

func identOf(idents map[uint32]string, want string) (uint32, bool) {
	for off, name := range idents {
		if name == want {
			return off, true
		}
	}
	return 0, false
}

// Scenario 1: Scalar SIR-style growth. population=INTEG(birth-death,1000);
// birth=0.05*population; death=0.02*population; dt=0.125, stop=10.
func TestScenarioScalarGrowth(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs: datamodel.SimSpecs{Start: 0, Stop: 10, Dt: datamodel.Dt{Value: 0.125}, Method: datamodel.MethodEuler},
		Models: []datamodel.Model{{
			Name: "main",
			Variables: []datamodel.Variable{
				{Kind: datamodel.VarStock, Name: "population", InitialEqn: "1000", Inflows: []string{"birth"}, Outflows: []string{"death"}},
				{Kind: datamodel.VarFlow, Name: "birth", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.05 * population"}},
				{Kind: datamodel.VarFlow, Name: "death", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0.02 * population"}},
			},
		}},
	}
	res, err := Run(p, "main")
	require.NoError(t, err)

	popOff, ok := identOf(res.Idents, "population")
	require.True(t, ok, "population not found")

	var last []float64
	res.Iter(func(row []float64) bool {
		last = row
		return true
	})
	require.NotNil(t, last, "expected at least one saved row")

	want := 1000.0 * math.Exp(0.03*10)
	got := last[popOff]
	require.InEpsilonf(t, want, got, 0.02, "population at t=10: got %v want ~%v", got, want)
}

// Scenario 2: arrayed stock. pop[Region]=INTEG(flow[Region], init[Region]),
// init[Region]={10,20}, flow[Region]=1, dt=1, stop=5. Expect pop[N]=15,
// pop[S]=25.
func TestScenarioArrayedStock(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs:   datamodel.SimSpecs{Start: 0, Stop: 5, Dt: datamodel.Dt{Value: 1}, Method: datamodel.MethodEuler},
		Dimensions: []datamodel.Dimension{{Name: "region", Kind: datamodel.DimNamed, Elements: []string{"n", "s"}}},
		Models: []datamodel.Model{{
			Name: "main",
			Variables: []datamodel.Variable{
				{
					Kind: datamodel.VarAux, Name: "init",
					Eqn: datamodel.Equation{
						Kind: datamodel.EqArrayed,
						Dims: []string{"region"},
						Elements: []datamodel.ArrayedElement{
							{SubscriptKey: "n", Expr: "10"},
							{SubscriptKey: "s", Expr: "20"},
						},
					},
				},
				{
					Kind: datamodel.VarFlow, Name: "flow",
					Eqn: datamodel.Equation{Kind: datamodel.EqApplyToAll, Dims: []string{"region"}, Expr: "1"},
				},
				{
					Kind: datamodel.VarStock, Name: "pop", Dims: []string{"region"},
					InitialEqn: "init", Inflows: []string{"flow"},
				},
			},
		}},
	}
	res, err := Run(p, "main")
	require.NoError(t, err)

	nOff, ok := identOf(res.Idents, "pop[0]")
	require.True(t, ok, "pop[0] not found")
	sOff, ok := identOf(res.Idents, "pop[1]")
	require.True(t, ok, "pop[1] not found")

	var last []float64
	res.Iter(func(row []float64) bool {
		last = row
		return true
	})
	require.NotNil(t, last, "expected at least one saved row")

	require.InDeltaf(t, 15.0, last[nOff], 1e-9, "pop[N] at t=5")
	require.InDeltaf(t, 25.0, last[sOff], 1e-9, "pop[S] at t=5")
}

// Scenario 3: graphical function. y=LOOKUP(y_table, time), knots
// {(0,0),(5,10),(10,0)}, dt=1, stop=10. Expect rows [0,2,4,...,10,8,...,0].
func TestScenarioGraphicalFunction(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs: datamodel.SimSpecs{Start: 0, Stop: 10, Dt: datamodel.Dt{Value: 1}, Method: datamodel.MethodEuler},
		Models: []datamodel.Model{{
			Name: "main",
			Variables: []datamodel.Variable{
				{
					Kind: datamodel.VarAux, Name: "y_table",
					Eqn:  datamodel.Equation{Kind: datamodel.EqScalar, Expr: "0"},
					GF:   &datamodel.GraphicalFunction{X: []float64{0, 5, 10}, Y: []float64{0, 10, 0}, Kind: datamodel.GFContinuous},
				},
				{Kind: datamodel.VarAux, Name: "y", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "LOOKUP(y_table, time)"}},
			},
		}},
	}
	res, err := Run(p, "main")
	require.NoError(t, err)

	yOff, ok := identOf(res.Idents, "y")
	require.True(t, ok, "y not found")

	want := []float64{0, 2, 4, 6, 8, 10, 8, 6, 4, 2, 0}
	var got []float64
	res.Iter(func(row []float64) bool {
		got = append(got, row[yOff])
		return true
	})
	require.Len(t, got, len(want))
	for i := range want {
		require.InDeltaf(t, want[i], got[i], 1e-6, "row %d", i)
	}
}

// Scenario 4: module nesting. inner: out=2*area. outer instantiates inner
// twice with area={1,2}; reads x=inner1.out+inner2.out, expect 6 every step.
func TestScenarioModuleNesting(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs: datamodel.SimSpecs{Start: 0, Stop: 3, Dt: datamodel.Dt{Value: 1}, Method: datamodel.MethodEuler},
		Models: []datamodel.Model{
			{
				Name: "main",
				Variables: []datamodel.Variable{
					{Kind: datamodel.VarAux, Name: "area1", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
					{Kind: datamodel.VarAux, Name: "area2", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "2"}},
					{Kind: datamodel.VarModule, Name: "inner1", ModelName: "inner", Inputs: []datamodel.ModuleInput{{Src: "area1", Dst: "area"}}},
					{Kind: datamodel.VarModule, Name: "inner2", ModelName: "inner", Inputs: []datamodel.ModuleInput{{Src: "area2", Dst: "area"}}},
					{Kind: datamodel.VarAux, Name: "x", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "inner1.out + inner2.out"}},
				},
			},
			{
				Name: "inner",
				Variables: []datamodel.Variable{
					{Kind: datamodel.VarAux, Name: "area", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "1"}},
					{Kind: datamodel.VarAux, Name: "out", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "2 * area"}},
				},
			},
		},
	}
	res, err := Run(p, "main")
	require.NoError(t, err)

	xOff, ok := identOf(res.Idents, "x")
	require.True(t, ok, "x not found")

	res.Iter(func(row []float64) bool {
		require.InDeltaf(t, 6.0, row[xOff], 1e-9, "t=%v", row[0])
		return true
	})
}

// Scenario 5: pulse. x=PULSE(10,2,5), dt=1, stop=12. Expect nonzero (=10)
// at t in {2,7,12}, integral over the run = 30.
func TestScenarioPulse(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs: datamodel.SimSpecs{Start: 0, Stop: 12, Dt: datamodel.Dt{Value: 1}, Method: datamodel.MethodEuler},
		Models: []datamodel.Model{{
			Name: "main",
			Variables: []datamodel.Variable{
				{Kind: datamodel.VarAux, Name: "x", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "PULSE(10, 2, 5)"}},
			},
		}},
	}
	res, err := Run(p, "main")
	require.NoError(t, err)

	xOff, ok := identOf(res.Idents, "x")
	require.True(t, ok, "x not found")

	wantNonzero := map[float64]bool{2: true, 7: true, 12: true}
	var integral float64
	res.Iter(func(row []float64) bool {
		ts := row[0]
		v := row[xOff]
		if wantNonzero[ts] {
			require.InDeltaf(t, 10.0, v, 1e-9, "t=%v", ts)
		} else {
			require.InDeltaf(t, 0.0, v, 1e-9, "t=%v", ts)
		}
		integral += v * res.Specs.Dt.Seconds()
		return true
	})
	require.InDeltaf(t, 30.0, integral, 1e-9, "integral")
}

// Scenario 6: cycle rejection. a=b; b=a; expect exactly one
// CircularDependency and nothing else.
func TestScenarioCycleRejection(t *testing.T) {
	p := &datamodel.Project{
		SimSpecs: datamodel.SimSpecs{Start: 0, Stop: 1, Dt: datamodel.Dt{Value: 1}, Method: datamodel.MethodEuler},
		Models: []datamodel.Model{{
			Name: "main",
			Variables: []datamodel.Variable{
				{Kind: datamodel.VarAux, Name: "a", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "b"}},
				{Kind: datamodel.VarAux, Name: "b", Eqn: datamodel.Equation{Kind: datamodel.EqScalar, Expr: "a"}},
			},
		}},
	}
	_, err := Run(p, "main")
	require.Error(t, err)

	se, ok := simerr.As(err)
	require.True(t, ok, "expected a *simerr.SimError")
	require.Equal(t, simerr.CodeCircularDependency, se.Code)
}
