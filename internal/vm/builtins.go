package vm

import (
	"math"

	"sdsim/internal/bytecode"
	"sdsim/internal/layout"
	"sdsim/internal/simerr"
)

func (vm *VM) time() float64 { return vm.Curr[layout.TimeOffset] }
func (vm *VM) dt() float64   { return vm.Curr[layout.DtOffset] }

// applyBuiltin dispatches one Apply{builtin} instruction, per
// spec.md §4.F's arithmetic semantics paragraph. args is already in
// declared argument order (see VM.popN).
func (vm *VM) applyBuiltin(id bytecode.BuiltinID, args []float64) (float64, error) {
	switch id {
	case bytecode.BuiltinAbs:
		return math.Abs(args[0]), nil
	case bytecode.BuiltinArccos:
		return math.Acos(args[0]), nil
	case bytecode.BuiltinArcsin:
		return math.Asin(args[0]), nil
	case bytecode.BuiltinArctan:
		return math.Atan(args[0]), nil
	case bytecode.BuiltinCos:
		return math.Cos(args[0]), nil
	case bytecode.BuiltinExp:
		return math.Exp(args[0]), nil
	case bytecode.BuiltinInt:
		return math.Floor(args[0]), nil
	case bytecode.BuiltinLn:
		return math.Log(args[0]), nil
	case bytecode.BuiltinLog10:
		return math.Log10(args[0]), nil
	case bytecode.BuiltinSin:
		return math.Sin(args[0]), nil
	case bytecode.BuiltinSqrt:
		return math.Sqrt(args[0]), nil
	case bytecode.BuiltinTan:
		return math.Tan(args[0]), nil

	case bytecode.BuiltinMax:
		return math.Max(args[0], args[1]), nil
	case bytecode.BuiltinMin:
		return math.Min(args[0], args[1]), nil

	case bytecode.BuiltinModulo:
		return euclidMod(args[0], args[1]), nil

	case bytecode.BuiltinSafediv:
		if args[1] == 0 {
			if len(args) > 2 {
				return args[2], nil
			}
			return 0, nil
		}
		return args[0] / args[1], nil

	case bytecode.BuiltinZidz:
		if args[1] == 0 {
			return 0, nil
		}
		return args[0] / args[1], nil

	case bytecode.BuiltinXidz:
		if args[1] == 0 {
			return args[2], nil
		}
		return args[0] / args[1], nil

	case bytecode.BuiltinPulse:
		return vm.pulse(args), nil
	case bytecode.BuiltinRamp:
		return vm.ramp(args), nil
	case bytecode.BuiltinStep:
		return vm.step(args), nil

	case bytecode.BuiltinUniform:
		return vm.rng.uniform(args[0], args[1]), nil
	case bytecode.BuiltinNormal:
		return vm.rng.normal(args), nil
	case bytecode.BuiltinPoisson:
		return vm.rng.poisson(args[0]), nil
	case bytecode.BuiltinQuantum:
		return quantum(args[0], args[1]), nil

	case bytecode.BuiltinInteg, bytecode.BuiltinDelay, bytecode.BuiltinDelay1, bytecode.BuiltinDelay3,
		bytecode.BuiltinSmooth, bytecode.BuiltinSmoothi, bytecode.BuiltinNpv:
		return 0, simerr.EquationError{Code: simerr.CodeTodoArrayBuiltin, Msg: "stateful builtin not supported by this VM revision"}

	// MAX/MIN/SUM/MEAN/STDDEV/SIZE of an array argument never reach
	// here: the compiler emits a dedicated ArrayXxx opcode for that
	// shape instead of Apply (see internal/compiler/expr.go's compileCall).
	case bytecode.BuiltinSum, bytecode.BuiltinMean, bytecode.BuiltinStddev, bytecode.BuiltinSize:
		return 0, simerr.EquationError{Code: simerr.CodeBadBuiltinArgs, Msg: "expected an array-reduction opcode, not Apply"}

	default:
		return 0, simerr.EquationError{Code: simerr.CodeUnknownBuiltin, Msg: "unknown builtin id"}
	}
}

// pulse fires for exactly one dt at each of start, start+interval,
// start+2*interval, ... (interval<=0 or omitted means a single
// one-shot pulse at start), amplitude scaled by 1/dt so the pulse's
// integral over time equals volume.
func (vm *VM) pulse(args []float64) float64 {
	volume, start := args[0], args[1]
	interval := 0.0
	if len(args) > 2 {
		interval = args[2]
	}
	t, dt := vm.time(), vm.dt()
	if t < start {
		return 0
	}
	phase := t - start
	if interval > 0 {
		phase = euclidMod(phase, interval)
	} else if phase >= dt {
		return 0
	}
	if phase < dt {
		return volume / dt
	}
	return 0
}

// ramp returns 0 before start, slope*(t-start) between start and end
// (or unbounded if end is omitted), and holds at slope*(end-start)
// after end.
func (vm *VM) ramp(args []float64) float64 {
	slope, start := args[0], args[1]
	t := vm.time()
	if t < start {
		return 0
	}
	if len(args) > 2 {
		end := args[2]
		if t > end {
			return slope * (end - start)
		}
	}
	return slope * (t - start)
}

func (vm *VM) step(args []float64) float64 {
	height, start := args[0], args[1]
	if vm.time() >= start {
		return height
	}
	return 0
}

// quantum rounds value to the nearest multiple of quant, the usual SD
// QUANTUM(value, quantum) definition; quant==0 is the identity (no
// quantization).
func quantum(value, quant float64) float64 {
	if quant == 0 {
		return value
	}
	return quant * math.Round(value/quant)
}
