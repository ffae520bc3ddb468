package bytecode

// DebugInfo carries the source span an instruction was compiled from,
// narrowed from the teacher's Line/Column/File/Function record (there
// is no source *file* here — one equation string per variable, spanned
// by Start/End byte offsets, same as internal/simerr.EquationError).
type DebugInfo struct {
	Start uint16
	End   uint16
}

// Instruction is one fixed-size bytecode record: an opcode plus up to
// three small integer immediates, meaning dependent on Op (e.g. A is
// an Op2Kind for OpOp2, a constant-pool index for OpLoadConstant, a
// slab offset for OpLoadVar/OpAssignCurr, a jump distance for
// OpNextIterOrJump).
type Instruction struct {
	Op      Op
	A, B, C int32
	Debug   DebugInfo
}

// Chunk is one runlist's (initials, flows, or stocks) linear
// instruction stream, generalizing the teacher's byte-oriented Chunk
// (Code []byte, WriteOp/WriteByte) to a struct slice.
type Chunk struct {
	Code []Instruction
}

func NewChunk() *Chunk { return &Chunk{} }

// Emit appends an instruction with no particular source span and
// returns its index (passed to PatchA to back-patch an
// OpNextIterOrJump's jump distance).
func (c *Chunk) Emit(op Op, a, b, c2 int32) int {
	c.Code = append(c.Code, Instruction{Op: op, A: a, B: b, C: c2})
	return len(c.Code) - 1
}

// EmitAt emits with an explicit source span, for instructions whose
// failure (e.g. OpApply on a bad builtin argument) should be reported
// against a specific point in the originating equation text.
func (c *Chunk) EmitAt(op Op, a, b, c2 int32, debug DebugInfo) int {
	c.Code = append(c.Code, Instruction{Op: op, A: a, B: b, C: c2, Debug: debug})
	return len(c.Code) - 1
}

// Len returns the current instruction count — the next instruction's
// index, useful as a backward-jump target before it is known.
func (c *Chunk) Len() int { return len(c.Code) }

// PatchA overwrites the A immediate of an already-emitted instruction,
// used to back-patch a jump distance once the loop body's length is
// known.
func (c *Chunk) PatchA(index int, a int32) {
	c.Code[index].A = a
}
