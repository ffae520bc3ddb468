// Package datamodel holds the language-neutral project intermediate
// representation: Project, Model, Variable (Stock/Flow/Aux/Module),
// Equation (Scalar/ApplyToAll/Arrayed), GraphicalFunction, and
// SimSpecs. This is the tagged-variant form that a (not-implemented-
// here) XMILE or MDL front end would produce; the simulation core
// treats it as an immutable value once built.
package datamodel

// Dt is either a literal step size or its reciprocal (some source
// formats specify steps-per-time-unit instead of a raw dt).
type Dt struct {
	Reciprocal bool
	Value      float64
}

// Seconds returns the literal step size in model time units.
func (d Dt) Seconds() float64 {
	if d.Reciprocal {
		return 1.0 / d.Value
	}
	return d.Value
}

// SimMethod selects the integration method. Only Euler is actually
// implemented; RK4 is accepted and degrades to Euler with a logged
// warning (spec.md §4.H, §9 Open Questions).
type SimMethod int

const (
	MethodEuler SimMethod = iota
	MethodRK4
)

func (m SimMethod) String() string {
	if m == MethodRK4 {
		return "rk4"
	}
	return "euler"
}

// SimSpecs carries the run's time window, step size, optional save
// interval, integration method, and the RNG seed consumed by
// UNIFORM/NORMAL/POISSON (spec.md §3 Open Questions, resolved in
// SPEC_FULL.md §3).
type SimSpecs struct {
	Start     float64
	Stop      float64
	Dt        Dt
	SaveStep  *Dt // nil means "defaults to Dt"
	Method    SimMethod
	TimeUnits string
	Seed      uint64
}

// EffectiveSaveStep returns SaveStep if set, else Dt.
func (s SimSpecs) EffectiveSaveStep() float64 {
	if s.SaveStep != nil {
		return s.SaveStep.Seconds()
	}
	return s.Dt.Seconds()
}

// DimensionElementsKind distinguishes Indexed from Named dimensions at
// the datamodel layer (the compiled form lives in internal/dimensions).
type DimensionElementsKind int

const (
	DimIndexed DimensionElementsKind = iota
	DimNamed
)

// Dimension is the datamodel (pre-compilation) form of a dimension
// declaration.
type Dimension struct {
	Name     string
	Kind     DimensionElementsKind
	Size     uint32   // valid when Kind == DimIndexed
	Elements []string // valid when Kind == DimNamed
	MapsTo   string   // "" means unset; valid only for DimNamed
}

// EquationKind tags which shape of equation a Flow/Aux carries.
type EquationKind int

const (
	EqScalar EquationKind = iota
	EqApplyToAll
	EqArrayed
)

// ArrayedElement is one entry of an Arrayed equation: a comma-joined,
// lower-cased, row-major subscript key ("a1,b2", no spaces) paired
// with its own expression text and optional initial/graphical-function
// overrides.
type ArrayedElement struct {
	SubscriptKey string
	Expr         string
	Initial      string // "" if unset
	GF           *GraphicalFunction
}

// Equation is the tagged union of Scalar / ApplyToAll / Arrayed forms
// (spec.md §3 "Equation forms").
type Equation struct {
	Kind EquationKind

	// Scalar
	Expr    string
	Initial string // "" if unset

	// ApplyToAll / Arrayed share Dims
	Dims []string

	// Arrayed only
	Elements []ArrayedElement
}

// GraphicalFunction is a piecewise-linear lookup table: parallel X/Y
// knot arrays plus the extrapolation/interpolation behavior used
// outside [X[0], X[len-1]].
type GraphicalFunctionKind int

const (
	GFContinuous GraphicalFunctionKind = iota
	GFDiscrete
	GFExtrapolate
)

type GraphicalFunction struct {
	X    []float64
	Y    []float64
	Kind GraphicalFunctionKind
}

// VariableKind tags the Stock/Flow/Aux/Module variant.
type VariableKind int

const (
	VarStock VariableKind = iota
	VarFlow
	VarAux
	VarModule
)

// ModuleInput wires a caller-scope expression (Src) to a callee input
// name (Dst).
type ModuleInput struct {
	Src string
	Dst string
}

// Variable is the tagged variant over {Stock, Flow, Aux, Module}.
// Every field is populated according to Kind; irrelevant fields are
// left zero rather than split into four Go types, mirroring the
// teacher's single-struct-with-tag idiom used for its AST nodes
// (parser.Expr variants each carry only their own fields, but the
// broader sentra codebase also uses tagged structs for Value, so this
// is consistent with that convention while staying serialization-
// friendly per spec.md §3 "suitable for serialization").
type Variable struct {
	Kind VariableKind
	Name string // display name, canonicalized on demand via internal/ident

	Doc   string
	Units string

	// Stock
	InitialEqn string // initial-value equation source; the integration rate comes from Inflows/Outflows
	Inflows    []string
	Outflows   []string
	NonNeg     bool
	Dims       []string // arrayed stock's dimensions, in declared order; empty means scalar

	// Flow / Aux
	Eqn         Equation
	GF          *GraphicalFunction
	IsTableOnly bool
	IsFlow      bool

	// Module
	ModelName string
	Inputs    []ModuleInput

	// Diagnostics accumulated during lowering/compilation; a model
	// with any non-empty EquationErrors is not simulatable
	// (spec.md §7).
	EquationErrors []error
	UnitErrors     []error
}

// PushEquationError appends a diagnostic without halting analysis of
// other variables (spec.md §7 propagation policy).
func (v *Variable) PushEquationError(err error) {
	v.EquationErrors = append(v.EquationErrors, err)
}

// PushUnitError attaches a unit-checker diagnostic without altering
// EquationErrors.
func (v *Variable) PushUnitError(err error) {
	v.UnitErrors = append(v.UnitErrors, err)
}

// HasErrors reports whether this variable carries any equation error.
func (v *Variable) HasErrors() bool { return len(v.EquationErrors) > 0 }

// View is an opaque diagram/layout record; the simulation core never
// reads it (spec.md §1 "Diagram/view geometry" is out of scope), it is
// only carried so a Model value round-trips through the core
// untouched.
type View struct {
	Kind string
	Blob []byte
}

// Model is one named collection of variables plus (opaque) views.
type Model struct {
	Name      string
	Variables []Variable
	Views     []View
}

// Source is the opaque verbatim bag a front end may attach to a
// Project (spec.md §6 "source?").
type Source struct {
	Extension string
	Content   []byte
}

// Project is the top-level, language-neutral simulation input.
type Project struct {
	Name       string
	SimSpecs   SimSpecs
	Dimensions []Dimension
	Models     []Model
	Source     *Source
}

// FindModel returns the model with the given name, if present.
func (p *Project) FindModel(name string) (*Model, bool) {
	for i := range p.Models {
		if p.Models[i].Name == name {
			return &p.Models[i], true
		}
	}
	return nil, false
}

// FindVariable returns the named variable within a model.
func (m *Model) FindVariable(name string) (*Variable, bool) {
	for i := range m.Variables {
		if m.Variables[i].Name == name {
			return &m.Variables[i], true
		}
	}
	return nil, false
}
