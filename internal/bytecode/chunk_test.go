package bytecode

import "testing"

func TestEmitAppendsAndReturnsIndex(t *testing.T) {
	c := NewChunk()
	i0 := c.Emit(OpLoadConstant, 0, 0, 0)
	i1 := c.Emit(OpRet, 0, 0, 0)
	if i0 != 0 || i1 != 1 {
		t.Fatalf("got indices %d,%d", i0, i1)
	}
	if c.Len() != 2 {
		t.Fatalf("expected Len()=2, got %d", c.Len())
	}
}

func TestPatchARewritesImmediate(t *testing.T) {
	c := NewChunk()
	loopStart := c.Len()
	c.Emit(OpBeginIter, 0, 0, 0)
	jumpIdx := c.Emit(OpNextIterOrJump, 0, 0, 0)
	c.PatchA(jumpIdx, int32(c.Len()-loopStart))
	if c.Code[jumpIdx].A != int32(c.Len()-loopStart) {
		t.Fatalf("expected patched jump distance, got %d", c.Code[jumpIdx].A)
	}
}

func TestOpStringIsStable(t *testing.T) {
	if OpRet.String() != "Ret" || OpLoadVar.String() != "LoadVar" {
		t.Fatalf("unexpected Op.String() output")
	}
}

func TestEmitAtCarriesDebugInfo(t *testing.T) {
	c := NewChunk()
	idx := c.EmitAt(OpApply, 1, 0, 0, DebugInfo{Start: 3, End: 7})
	if c.Code[idx].Debug.Start != 3 || c.Code[idx].Debug.End != 7 {
		t.Fatalf("got %#v", c.Code[idx].Debug)
	}
}
