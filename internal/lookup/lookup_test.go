package lookup

import (
	"math"
	"testing"

	"sdsim/internal/datamodel"
)

func mustTable(t *testing.T, x, y []float64, kind datamodel.GraphicalFunctionKind) Table {
	t.Helper()
	tbl, err := NewTable(x, y, kind)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestNewTableRejectsMismatchedLengths(t *testing.T) {
	_, err := NewTable([]float64{0, 1}, []float64{0}, datamodel.GFContinuous)
	if err == nil {
		t.Fatal("expected a BadTable error for mismatched lengths")
	}
}

func TestNewTableRejectsEmpty(t *testing.T) {
	_, err := NewTable(nil, nil, datamodel.GFContinuous)
	if err == nil {
		t.Fatal("expected a BadTable error for an empty table")
	}
}

func TestContinuousInterpolatesBetweenKnots(t *testing.T) {
	tbl := mustTable(t, []float64{0, 10}, []float64{0, 100}, datamodel.GFContinuous)
	if got := tbl.Eval(5); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestContinuousClampsOutOfRange(t *testing.T) {
	tbl := mustTable(t, []float64{0, 10}, []float64{5, 100}, datamodel.GFContinuous)
	if got := tbl.Eval(-5); got != 5 {
		t.Fatalf("expected clamp to y[0]=5, got %v", got)
	}
	if got := tbl.Eval(20); got != 100 {
		t.Fatalf("expected clamp to y[n-1]=100, got %v", got)
	}
}

func TestDiscreteReturnsPrecedingKnot(t *testing.T) {
	tbl := mustTable(t, []float64{0, 1, 2}, []float64{10, 20, 30}, datamodel.GFDiscrete)
	if got := tbl.Eval(0.5); got != 10 {
		t.Fatalf("expected preceding knot 10, got %v", got)
	}
	if got := tbl.Eval(1.9); got != 20 {
		t.Fatalf("expected preceding knot 20, got %v", got)
	}
	if got := tbl.Eval(2); got != 30 {
		t.Fatalf("expected exact knot 30, got %v", got)
	}
}

func TestExtrapolateExtendsEndSlopes(t *testing.T) {
	tbl := mustTable(t, []float64{0, 10}, []float64{0, 100}, datamodel.GFExtrapolate)
	if got := tbl.Eval(-5); got != -50 {
		t.Fatalf("expected slope extended below domain to -50, got %v", got)
	}
	if got := tbl.Eval(20); got != 200 {
		t.Fatalf("expected slope extended above domain to 200, got %v", got)
	}
}

func TestEvalOnExactKnotsIsStable(t *testing.T) {
	tbl := mustTable(t, []float64{0, 1, 2, 3}, []float64{1, 2, 4, 8}, datamodel.GFContinuous)
	for i, want := range []float64{1, 2, 4, 8} {
		if got := tbl.Eval(float64(i)); got != want {
			t.Fatalf("Eval(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestEvalNaNInputYieldsNaN(t *testing.T) {
	tbl := mustTable(t, []float64{0, 1}, []float64{0, 1}, datamodel.GFContinuous)
	if got := tbl.Eval(math.NaN()); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

func TestSingleKnotTableReturnsConstant(t *testing.T) {
	tbl := mustTable(t, []float64{5}, []float64{42}, datamodel.GFContinuous)
	if got := tbl.Eval(-100); got != 42 {
		t.Fatalf("expected constant 42, got %v", got)
	}
	if got := tbl.Eval(100); got != 42 {
		t.Fatalf("expected constant 42, got %v", got)
	}
}
