// Package lookup implements component N: evaluating a graphical
// function (a piecewise-linear table keyed by an independent variable)
// at a given x, grounded on system-dynamics-engine/sim.rs's Table.
//
// A Table is built once from a variable's parallel x/y knot arrays and
// evaluated many times during simulation via binary search, same shape
// as the Rust original's sorted-slice lookup.
package lookup

import (
	"math"
	"sort"

	"sdsim/internal/datamodel"
	"sdsim/internal/simerr"
)

// Table is a validated, ready-to-evaluate graphical function.
type Table struct {
	x    []float64
	y    []float64
	kind datamodel.GraphicalFunctionKind
}

// NewTable validates and builds a Table from a GraphicalFunction's
// parallel x/y knot arrays. A length mismatch is a BadTable equation
// error, not a panic, since malformed data the datamodel parser let
// through shouldn't crash the compiler.
func NewTable(x, y []float64, kind datamodel.GraphicalFunctionKind) (Table, error) {
	if len(x) != len(y) {
		return Table{}, simerr.EquationError{
			Code: simerr.CodeBadTable,
			Msg:  "mismatched x/y lengths in graphical function",
		}
	}
	if len(x) == 0 {
		return Table{}, simerr.EquationError{
			Code: simerr.CodeBadTable,
			Msg:  "empty graphical function",
		}
	}
	return Table{x: x, y: y, kind: kind}, nil
}

// FromGraphicalFunction is a convenience constructor from the
// datamodel's GraphicalFunction literal.
func FromGraphicalFunction(gf datamodel.GraphicalFunction) (Table, error) {
	return NewTable(gf.X, gf.Y, gf.Kind)
}

// Len returns the number of knots in the table.
func (t Table) Len() int { return len(t.x) }

// Eval evaluates the table at x per the table's interpolation Kind.
// Below the domain, Continuous and Discrete clamp to y[0]; above it
// they clamp to y[n-1]. Extrapolate instead extends the end segment's
// slope past the domain on either side. Inside the domain, Continuous
// and Extrapolate interpolate linearly between the bracketing knots
// and Discrete returns the preceding knot's y. A NaN input always
// yields NaN.
func (t Table) Eval(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	n := len(t.x)
	if n == 1 {
		return t.y[0]
	}

	if x <= t.x[0] {
		if t.kind == datamodel.GFExtrapolate {
			return t.extrapolate(0, x)
		}
		return t.y[0]
	}
	if x >= t.x[n-1] {
		if t.kind == datamodel.GFExtrapolate {
			return t.extrapolate(n-2, x)
		}
		return t.y[n-1]
	}

	// i is the first index whose x is > the query; the bracketing
	// segment is [i-1, i].
	i := sort.Search(n, func(i int) bool { return t.x[i] > x })
	lo := i - 1

	switch t.kind {
	case datamodel.GFDiscrete:
		return t.y[lo]
	default:
		return t.interpolate(lo, x)
	}
}

// interpolate linearly interpolates within segment [i, i+1].
func (t Table) interpolate(i int, x float64) float64 {
	x0, x1 := t.x[i], t.x[i+1]
	y0, y1 := t.y[i], t.y[i+1]
	if x1 == x0 {
		return y0
	}
	frac := (x - x0) / (x1 - x0)
	return y0 + frac*(y1-y0)
}

// extrapolate extends the slope of segment [i, i+1] past the domain.
func (t Table) extrapolate(i int, x float64) float64 {
	return t.interpolate(i, x)
}
