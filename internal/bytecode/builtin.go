package bytecode

// BuiltinID tags which SD builtin an OpApply instruction invokes;
// carried in Instruction.A. The set mirrors internal/lower.Builtins'
// arity table — lowering has already checked arity, so the VM only
// ever needs to dispatch on identity.
type BuiltinID int32

const (
	BuiltinAbs BuiltinID = iota
	BuiltinArccos
	BuiltinArcsin
	BuiltinArctan
	BuiltinCos
	BuiltinExp
	BuiltinInt
	BuiltinLn
	BuiltinLog10
	BuiltinSin
	BuiltinSqrt
	BuiltinTan
	BuiltinMax
	BuiltinMin
	BuiltinSum
	BuiltinMean
	BuiltinStddev
	BuiltinSize
	BuiltinModulo
	BuiltinSafediv
	BuiltinZidz
	BuiltinXidz
	BuiltinPulse
	BuiltinRamp
	BuiltinStep
	BuiltinInteg
	BuiltinDelay
	BuiltinDelay1
	BuiltinDelay3
	BuiltinSmooth
	BuiltinSmoothi
	BuiltinNpv
	BuiltinUniform
	BuiltinNormal
	BuiltinPoisson
	BuiltinQuantum
)

// BuiltinIDs maps a canonical (uppercase) builtin name, as produced by
// internal/lower's resolver, to its BuiltinID.
var BuiltinIDs = map[string]BuiltinID{
	"ABS":     BuiltinAbs,
	"ARCCOS":  BuiltinArccos,
	"ARCSIN":  BuiltinArcsin,
	"ARCTAN":  BuiltinArctan,
	"COS":     BuiltinCos,
	"EXP":     BuiltinExp,
	"INT":     BuiltinInt,
	"LN":      BuiltinLn,
	"LOG10":   BuiltinLog10,
	"SIN":     BuiltinSin,
	"SQRT":    BuiltinSqrt,
	"TAN":     BuiltinTan,
	"MAX":     BuiltinMax,
	"MIN":     BuiltinMin,
	"SUM":     BuiltinSum,
	"MEAN":    BuiltinMean,
	"STDDEV":  BuiltinStddev,
	"SIZE":    BuiltinSize,
	"MODULO":  BuiltinModulo,
	"SAFEDIV": BuiltinSafediv,
	"ZIDZ":    BuiltinZidz,
	"XIDZ":    BuiltinXidz,
	"PULSE":   BuiltinPulse,
	"RAMP":    BuiltinRamp,
	"STEP":    BuiltinStep,
	"INTEG":   BuiltinInteg,
	"DELAY":   BuiltinDelay,
	"DELAY1":  BuiltinDelay1,
	"DELAY3":  BuiltinDelay3,
	"SMOOTH":  BuiltinSmooth,
	"SMOOTHI": BuiltinSmoothi,
	"NPV":     BuiltinNpv,
	"UNIFORM": BuiltinUniform,
	"NORMAL":  BuiltinNormal,
	"POISSON": BuiltinPoisson,
	"QUANTUM": BuiltinQuantum,
}
