// Package simerr defines the error taxonomy shared across the
// simulation core: a closed set of error kinds and codes, per-equation
// diagnostics carrying source spans, and a wrapped SimError used at
// package boundaries.
package simerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is one of the three axes of the error taxonomy.
type ErrorKind string

const (
	KindImport     ErrorKind = "Import"
	KindModel      ErrorKind = "Model"
	KindSimulation ErrorKind = "Simulation"
)

// ErrorCode is a closed enum of error codes, treated as an opaque
// identifier by the VM and mapped to a human string only at the
// boundary (Error()).
type ErrorCode string

const (
	CodeBadTable             ErrorCode = "BadTable"
	CodeBadSimSpecs          ErrorCode = "BadSimSpecs"
	CodeEmptyEquation        ErrorCode = "EmptyEquation"
	CodeNotSimulatable       ErrorCode = "NotSimulatable"
	CodeUnknownBuiltin       ErrorCode = "UnknownBuiltin"
	CodeBadBuiltinArgs       ErrorCode = "BadBuiltinArgs"
	CodeCircularDependency   ErrorCode = "CircularDependency"
	CodeUnknownDependency    ErrorCode = "UnknownDependency"
	CodeExpectedModule       ErrorCode = "ExpectedModule"
	CodeNoAbsoluteReferences ErrorCode = "NoAbsoluteReferences"
	CodeBadModuleInputSrc    ErrorCode = "BadModuleInputSrc"
	CodeBadModuleInputDst    ErrorCode = "BadModuleInputDst"
	CodeGeneric              ErrorCode = "Generic"
	CodeVariablesHaveErrors  ErrorCode = "VariablesHaveErrors"
	CodeTodoArrayBuiltin     ErrorCode = "TodoArrayBuiltin"
	CodeTooManyDistinctViews ErrorCode = "TooManyDistinctViews"
	CodeUnitMismatch         ErrorCode = "UnitMismatch"
	CodeBadSubscript         ErrorCode = "BadSubscript"
)

// EquationError is a per-equation diagnostic with a source span into
// the equation string it was raised against.
type EquationError struct {
	Start uint16
	End   uint16
	Code  ErrorCode
	Msg   string
}

func (e EquationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s[%d:%d]: %s", e.Code, e.Start, e.End, e.Msg)
	}
	return fmt.Sprintf("%s[%d:%d]", e.Code, e.Start, e.End)
}

// UnitError is the equivalent diagnostic for the (external) unit
// checker; it never carries an equation-error code, only free text.
type UnitError struct {
	Start uint16
	End   uint16
	Msg   string
}

func (e UnitError) Error() string {
	return fmt.Sprintf("unit[%d:%d]: %s", e.Start, e.End, e.Msg)
}

// SimError is the wrapped error returned across package boundaries: a
// Kind, a Code, and an optional detail, plus a captured Go stack via
// github.com/pkg/errors so CLI-level printing can show both the
// structured diagnostic and a debugging stack trace.
type SimError struct {
	Kind   ErrorKind
	Code   ErrorCode
	Detail string
	cause  error
}

func New(kind ErrorKind, code ErrorCode, detail string) error {
	return errors.WithStack(&SimError{Kind: kind, Code: code, Detail: detail})
}

func Wrap(cause error, kind ErrorKind, code ErrorCode, detail string) error {
	return errors.WithStack(&SimError{Kind: kind, Code: code, Detail: detail, cause: cause})
}

func (e *SimError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Code, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Detail)
}

func (e *SimError) Unwrap() error { return e.cause }

// As is a small helper mirroring errors.As for *SimError, so callers
// can recover the structured Kind/Code without importing pkg/errors
// themselves.
func As(err error) (*SimError, bool) {
	var se *SimError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
