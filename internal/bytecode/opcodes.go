// Package bytecode defines the fixed-size-record instruction set a
// compiled runlist (initials/flows/stocks) is made of, and the Chunk
// that accumulates it (spec.md §4.E).
//
// Generalizes the teacher's internal/bytecode/{opcodes,chunk}.go
// byte-oriented instruction stream (one opcode byte plus trailing
// operand bytes, WriteOp/WriteByte/AddConstant/DebugInfo) to a slice of
// fixed-size Instruction records: spec.md's opcodes carry 0-3 small
// integer immediates rather than a variable-length byte tail, so a
// struct slice is the direct idiomatic translation rather than a raw
// byte stream plus manual decoding.
package bytecode

// Op is one opcode of spec.md §4.E's table.
type Op int

const (
	OpLoadConstant Op = iota
	OpLoadVar
	OpLoadGlobalVar
	OpLoadModuleInput
	OpOp2
	OpNot
	OpIf
	OpApply
	OpLookup
	OpAssignCurr
	OpAssignConstCurr
	OpAssignNext
	OpEvalModule
	OpPushStaticView
	OpPushVarViewDirect
	OpViewSubscriptDynamic
	OpViewRangeDynamic
	OpBeginIter
	OpLoadIterViewAt
	OpStoreIterElement
	OpNextIterOrJump
	OpEndIter
	OpPopView
	OpArraySum
	OpArrayMin
	OpArrayMax
	OpArrayMean
	OpArrayStddev
	OpArraySize
	OpLoadTempConst
	OpRet
)

func (op Op) String() string {
	switch op {
	case OpLoadConstant:
		return "LoadConstant"
	case OpLoadVar:
		return "LoadVar"
	case OpLoadGlobalVar:
		return "LoadGlobalVar"
	case OpLoadModuleInput:
		return "LoadModuleInput"
	case OpOp2:
		return "Op2"
	case OpNot:
		return "Not"
	case OpIf:
		return "If"
	case OpApply:
		return "Apply"
	case OpLookup:
		return "Lookup"
	case OpAssignCurr:
		return "AssignCurr"
	case OpAssignConstCurr:
		return "AssignConstCurr"
	case OpAssignNext:
		return "AssignNext"
	case OpEvalModule:
		return "EvalModule"
	case OpPushStaticView:
		return "PushStaticView"
	case OpPushVarViewDirect:
		return "PushVarViewDirect"
	case OpViewSubscriptDynamic:
		return "ViewSubscriptDynamic"
	case OpViewRangeDynamic:
		return "ViewRangeDynamic"
	case OpBeginIter:
		return "BeginIter"
	case OpLoadIterViewAt:
		return "LoadIterViewAt"
	case OpStoreIterElement:
		return "StoreIterElement"
	case OpNextIterOrJump:
		return "NextIterOrJump"
	case OpEndIter:
		return "EndIter"
	case OpPopView:
		return "PopView"
	case OpArraySum:
		return "ArraySum"
	case OpArrayMin:
		return "ArrayMin"
	case OpArrayMax:
		return "ArrayMax"
	case OpArrayMean:
		return "ArrayMean"
	case OpArrayStddev:
		return "ArrayStddev"
	case OpArraySize:
		return "ArraySize"
	case OpLoadTempConst:
		return "LoadTempConst"
	case OpRet:
		return "Ret"
	default:
		return "Op(?)"
	}
}

// Op2Kind tags which binary operator an OpOp2 instruction performs;
// carried in Instruction.A.
type Op2Kind int32

const (
	Op2Add Op2Kind = iota
	Op2Sub
	Op2Mul
	Op2Div
	Op2Mod
	Op2Pow
	Op2And
	Op2Or
	Op2Eq
	Op2Neq
	Op2Gt
	Op2Lt
	Op2Gte
	Op2Lte
)

// LookupMode tags a Lookup instruction's out-of-range behavior
// (spec.md Glossary: Continuous/Discrete/Extrapolate).
type LookupMode int32

const (
	LookupContinuous LookupMode = iota
	LookupDiscrete
	LookupExtrapolate
)
