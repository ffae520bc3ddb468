package simerr

import (
	"errors"
	"testing"
)

func TestEquationErrorMessage(t *testing.T) {
	e := EquationError{Start: 3, End: 7, Code: CodeUnknownDependency, Msg: "unknown variable foo"}
	got := e.Error()
	want := "UnknownDependency[3:7]: unknown variable foo"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestEquationErrorMessageNoMsg(t *testing.T) {
	e := EquationError{Start: 0, End: 1, Code: CodeBadTable}
	got := e.Error()
	want := "BadTable[0:1]"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSimErrorWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, KindSimulation, CodeNotSimulatable, "model x")
	se, ok := As(err)
	if !ok {
		t.Fatalf("As() failed to recover *SimError from %v", err)
	}
	if se.Kind != KindSimulation || se.Code != CodeNotSimulatable {
		t.Errorf("got Kind=%v Code=%v", se.Kind, se.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find wrapped cause")
	}
}

func TestSimErrorNewHasNoCause(t *testing.T) {
	err := New(KindModel, CodeCircularDependency, "a -> b -> a")
	se, ok := As(err)
	if !ok {
		t.Fatalf("As() failed")
	}
	if se.Unwrap() != nil {
		t.Errorf("expected nil cause, got %v", se.Unwrap())
	}
}

func TestAsFailsForUnrelatedError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	if ok {
		t.Error("expected As to fail for a plain error")
	}
}
