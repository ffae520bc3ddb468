package projectio

import "sdsim/internal/datamodel"

// The yaml* types below are the on-disk shape of the dialect this
// package reads: plain, tag-free structs yaml.v3 can unmarshal
// directly, converted into the tagged-variant datamodel.Project form
// the rest of the module operates on. Fields are omitted from the YAML
// (zero value) rather than pointer-wrapped wherever the zero value and
// "unset" coincide (e.g. nonneg: false), matching how small the
// dialect needs to be for demo fixtures only.

type yamlProject struct {
	Name       string          `yaml:"name"`
	SimSpecs   yamlSimSpecs    `yaml:"sim_specs"`
	Dimensions []yamlDimension `yaml:"dimensions"`
	Models     []yamlModel     `yaml:"models"`
}

type yamlSimSpecs struct {
	Start     float64  `yaml:"start"`
	Stop      float64  `yaml:"stop"`
	Dt        float64  `yaml:"dt"`
	DtReciprocal bool  `yaml:"dt_reciprocal"`
	SaveStep  *float64 `yaml:"save_step"`
	Method    string   `yaml:"method"` // "euler" (default) or "rk4"
	TimeUnits string   `yaml:"time_units"`
	Seed      uint64   `yaml:"seed"`
}

type yamlDimension struct {
	Name     string   `yaml:"name"`
	Size     uint32   `yaml:"size"`     // indexed dimension
	Elements []string `yaml:"elements"` // named dimension
	MapsTo   string   `yaml:"maps_to"`
}

type yamlModel struct {
	Name      string         `yaml:"name"`
	Variables []yamlVariable `yaml:"variables"`
}

type yamlVariable struct {
	Kind    string `yaml:"kind"` // stock, flow, aux, module
	Name    string `yaml:"name"`
	Doc     string `yaml:"doc"`
	Units   string `yaml:"units"`

	// stock
	Initial  string   `yaml:"initial"`
	Inflows  []string `yaml:"inflows"`
	Outflows []string `yaml:"outflows"`
	NonNeg   bool     `yaml:"nonneg"`

	// flow / aux
	Eqn         *yamlEquation `yaml:"eqn"`
	GF          *yamlGF       `yaml:"gf"`
	IsTableOnly bool          `yaml:"table_only"`

	// module
	Model  string          `yaml:"model"`
	Inputs []yamlModuleLink `yaml:"inputs"`
}

type yamlModuleLink struct {
	Src string `yaml:"src"`
	Dst string `yaml:"dst"`
}

type yamlEquation struct {
	Kind     string              `yaml:"kind"` // scalar (default), apply_to_all, arrayed
	Expr     string              `yaml:"expr"`
	Initial  string              `yaml:"initial"`
	Dims     []string            `yaml:"dims"`
	Elements []yamlArrayElement `yaml:"elements"`
}

type yamlArrayElement struct {
	Subscript string  `yaml:"subscript"`
	Expr      string  `yaml:"expr"`
	Initial   string  `yaml:"initial"`
	GF        *yamlGF `yaml:"gf"`
}

type yamlGF struct {
	X    []float64 `yaml:"x"`
	Y    []float64 `yaml:"y"`
	Kind string    `yaml:"kind"` // continuous (default), discrete, extrapolate
}

func (p yamlProject) toDatamodel() *datamodel.Project {
	dims := make([]datamodel.Dimension, len(p.Dimensions))
	for i, d := range p.Dimensions {
		dims[i] = d.toDatamodel()
	}
	models := make([]datamodel.Model, len(p.Models))
	for i, m := range p.Models {
		models[i] = m.toDatamodel()
	}
	return &datamodel.Project{
		Name:       p.Name,
		SimSpecs:   p.SimSpecs.toDatamodel(),
		Dimensions: dims,
		Models:     models,
	}
}

func (s yamlSimSpecs) toDatamodel() datamodel.SimSpecs {
	method := datamodel.MethodEuler
	if s.Method == "rk4" {
		method = datamodel.MethodRK4
	}
	var saveStep *datamodel.Dt
	if s.SaveStep != nil {
		saveStep = &datamodel.Dt{Value: *s.SaveStep}
	}
	return datamodel.SimSpecs{
		Start:     s.Start,
		Stop:      s.Stop,
		Dt:        datamodel.Dt{Reciprocal: s.DtReciprocal, Value: s.Dt},
		SaveStep:  saveStep,
		Method:    method,
		TimeUnits: s.TimeUnits,
		Seed:      s.Seed,
	}
}

func (d yamlDimension) toDatamodel() datamodel.Dimension {
	if len(d.Elements) > 0 {
		return datamodel.Dimension{
			Name: d.Name, Kind: datamodel.DimNamed,
			Elements: d.Elements, MapsTo: d.MapsTo,
		}
	}
	return datamodel.Dimension{Name: d.Name, Kind: datamodel.DimIndexed, Size: d.Size}
}

func (m yamlModel) toDatamodel() datamodel.Model {
	vars := make([]datamodel.Variable, len(m.Variables))
	for i, v := range m.Variables {
		vars[i] = v.toDatamodel()
	}
	return datamodel.Model{Name: m.Name, Variables: vars}
}

func gfKind(s string) datamodel.GraphicalFunctionKind {
	switch s {
	case "discrete":
		return datamodel.GFDiscrete
	case "extrapolate":
		return datamodel.GFExtrapolate
	default:
		return datamodel.GFContinuous
	}
}

func (g yamlGF) toDatamodel() *datamodel.GraphicalFunction {
	return &datamodel.GraphicalFunction{X: g.X, Y: g.Y, Kind: gfKind(g.Kind)}
}

func (v yamlVariable) toDatamodel() datamodel.Variable {
	out := datamodel.Variable{
		Name:  v.Name,
		Doc:   v.Doc,
		Units: v.Units,
	}
	switch v.Kind {
	case "stock":
		out.Kind = datamodel.VarStock
		out.InitialEqn = v.Initial
		out.Inflows = v.Inflows
		out.Outflows = v.Outflows
		out.NonNeg = v.NonNeg
	case "module":
		out.Kind = datamodel.VarModule
		out.ModelName = v.Model
		out.Inputs = make([]datamodel.ModuleInput, len(v.Inputs))
		for i, in := range v.Inputs {
			out.Inputs[i] = datamodel.ModuleInput{Src: in.Src, Dst: in.Dst}
		}
	default:
		if v.Kind == "flow" {
			out.Kind = datamodel.VarFlow
			out.IsFlow = true
		} else {
			out.Kind = datamodel.VarAux
		}
		if v.Eqn != nil {
			out.Eqn = v.Eqn.toDatamodel()
		}
		if v.GF != nil {
			out.GF = v.GF.toDatamodel()
		}
		out.IsTableOnly = v.IsTableOnly
	}
	return out
}

func eqKind(s string) datamodel.EquationKind {
	switch s {
	case "apply_to_all":
		return datamodel.EqApplyToAll
	case "arrayed":
		return datamodel.EqArrayed
	default:
		return datamodel.EqScalar
	}
}

func (e yamlEquation) toDatamodel() datamodel.Equation {
	out := datamodel.Equation{
		Kind:    eqKind(e.Kind),
		Expr:    e.Expr,
		Initial: e.Initial,
		Dims:    e.Dims,
	}
	if len(e.Elements) > 0 {
		out.Elements = make([]datamodel.ArrayedElement, len(e.Elements))
		for i, el := range e.Elements {
			elem := datamodel.ArrayedElement{
				SubscriptKey: el.Subscript,
				Expr:         el.Expr,
				Initial:      el.Initial,
			}
			if el.GF != nil {
				elem.GF = el.GF.toDatamodel()
			}
			out.Elements[i] = elem
		}
	}
	return out
}
