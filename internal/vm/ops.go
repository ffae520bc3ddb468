package vm

import (
	"math"

	"sdsim/internal/bytecode"
)

// truthyEpsilon mirrors spec.md §4.F's "|x| < ε is false, else true".
const truthyEpsilon = 1e-6

func truthy(x float64) bool { return math.Abs(x) >= truthyEpsilon }

// approxEq implements spec.md §4.F's 4-ULP equality tolerance for `=`
// and `<>`; strict inequalities compare exactly.
func approxEq(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	diff := math.Abs(a - b)
	ulp := math.Nextafter(math.Max(math.Abs(a), math.Abs(b)), math.Inf(1)) - math.Max(math.Abs(a), math.Abs(b))
	return diff <= 4*ulp
}

// euclidMod implements the Euclidean remainder spec.md §4.F calls for
// (always non-negative when b != 0), unlike math.Mod's sign-follows-
// dividend behavior.
func euclidMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		if b < 0 {
			m -= b
		} else {
			m += b
		}
	}
	return m
}

func applyOp2(kind bytecode.Op2Kind, a, b float64) (float64, error) {
	switch kind {
	case bytecode.Op2Add:
		return a + b, nil
	case bytecode.Op2Sub:
		return a - b, nil
	case bytecode.Op2Mul:
		return a * b, nil
	case bytecode.Op2Div:
		return a / b, nil
	case bytecode.Op2Mod:
		return euclidMod(a, b), nil
	case bytecode.Op2Pow:
		return math.Pow(a, b), nil
	case bytecode.Op2And:
		return boolToFloat(truthy(a) && truthy(b)), nil
	case bytecode.Op2Or:
		return boolToFloat(truthy(a) || truthy(b)), nil
	case bytecode.Op2Eq:
		return boolToFloat(approxEq(a, b)), nil
	case bytecode.Op2Neq:
		return boolToFloat(!approxEq(a, b)), nil
	case bytecode.Op2Gt:
		return boolToFloat(a > b), nil
	case bytecode.Op2Lt:
		return boolToFloat(a < b), nil
	case bytecode.Op2Gte:
		return boolToFloat(a >= b), nil
	case bytecode.Op2Lte:
		return boolToFloat(a <= b), nil
	default:
		return math.NaN(), nil
	}
}
