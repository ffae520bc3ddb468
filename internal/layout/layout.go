// Package layout implements component H: assigning every variable of
// a compiled call tree a half-open [base, base+size) interval in the
// flat float64 scalar plane (spec.md §3 "Scalar plane", §4.E).
//
// The root module reserves offsets 0..3 for TIME/DT/INITIAL_TIME/
// FINAL_TIME; every model at every nesting depth reads those same four
// absolute offsets rather than carrying its own copy, since GlobalVar
// references are never relative to the referencing model (spec.md §3:
// "the root module reserves offsets 0..4"). A module instance's callee
// occupies a contiguous sub-slice of its caller's own region,
// positioned immediately after whatever has already been laid out
// ahead of it — the walk below is a straight generalization of the
// teacher's internal/build/linker.go-style depth-first graph walk,
// here accumulating a running cursor instead of a visited set.
package layout

import (
	"sort"
	"strconv"

	"sdsim/internal/build"
	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
	"sdsim/internal/ident"
	"sdsim/internal/simerr"
)

const (
	TimeOffset        uint32 = 0
	DtOffset          uint32 = 1
	InitialTimeOffset uint32 = 2
	FinalTimeOffset   uint32 = 3
	ReservedSlots     uint32 = 4
)

// Slot is one variable's assigned interval.
type Slot struct {
	Base uint32
	Size uint32
}

// Layout is one model's assigned region within the whole-project
// scalar plane: its own (non-module) variables' slots, plus a nested
// Layout per module-instance variable occupying a sub-range of this
// region.
type Layout struct {
	ModelName string
	Base      uint32 // absolute offset this model's own variables start at
	NSlots    uint32 // total slots spanned by this model and everything nested under it

	Offsets map[string]Slot    // canonical var name -> absolute slot, this model's own Stock/Flow/Aux variables
	Modules map[string]*Layout // canonical module-instance var name -> callee's nested layout
}

// BuildRoot lays out rootModel at the top of the scalar plane,
// immediately after the four reserved global slots.
func BuildRoot(bp *build.BuiltProject, project *datamodel.Project, catalog *dimensions.Catalog, rootModel string) (*Layout, error) {
	return layoutModel(bp, project, catalog, ident.Canonical(rootModel), ReservedSlots)
}

func layoutModel(bp *build.BuiltProject, project *datamodel.Project, catalog *dimensions.Catalog, modelName string, base uint32) (*Layout, error) {
	bm, ok := bp.Models[modelName]
	if !ok {
		return nil, simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "unknown model "+modelName)
	}
	dmModel, _ := project.FindModel(modelName)

	l := &Layout{ModelName: modelName, Base: base, Offsets: map[string]Slot{}, Modules: map[string]*Layout{}}
	cursor := base
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if bv.Kind == datamodel.VarModule {
			child, err := layoutModel(bp, project, catalog, bv.ModelName, cursor)
			if err != nil {
				return nil, err
			}
			l.Modules[name] = child
			cursor += child.NSlots
			continue
		}
		size, err := variableSize(dmModel, name, bv.Kind, catalog)
		if err != nil {
			return nil, err
		}
		l.Offsets[name] = Slot{Base: cursor, Size: size}
		cursor += size
	}
	l.NSlots = cursor - base
	return l, nil
}

// variableSize returns how many scalar-plane slots one variable needs:
// 1 for a scalar, or the product of its declared dimensions' sizes for
// an arrayed Flow/Aux/Stock. A Stock's dimensions live on Variable.Dims
// (its Eqn field belongs to Flow/Aux); every other kind's dimensions
// live on Equation.Dims.
func variableSize(dmModel *datamodel.Model, canonName string, kind datamodel.VariableKind, catalog *dimensions.Catalog) (uint32, error) {
	if dmModel == nil {
		return 1, nil
	}
	var dims []string
	for i := range dmModel.Variables {
		v := &dmModel.Variables[i]
		if ident.Canonical(v.Name) != canonName {
			continue
		}
		if kind == datamodel.VarStock {
			dims = v.Dims
		} else {
			dims = v.Eqn.Dims
		}
		break
	}
	if len(dims) == 0 {
		return 1, nil
	}
	size := uint32(1)
	for _, d := range dims {
		dim, ok := catalog.Lookup(d)
		if !ok {
			return 0, simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "unknown dimension "+d+" on "+canonName)
		}
		size *= dim.Size
	}
	return size, nil
}

// Lookup resolves a dotted canonical path (e.g. "inner1·out") to its
// absolute slot, descending through nested module layouts one segment
// at a time.
func (l *Layout) Lookup(path string) (Slot, bool) {
	return l.lookupSegments(splitDotted(path))
}

func (l *Layout) lookupSegments(segs []string) (Slot, bool) {
	if len(segs) == 0 {
		return Slot{}, false
	}
	if len(segs) == 1 {
		s, ok := l.Offsets[segs[0]]
		return s, ok
	}
	child, ok := l.Modules[segs[0]]
	if !ok {
		return Slot{}, false
	}
	return child.lookupSegments(segs[1:])
}

func splitDotted(path string) []string {
	var out []string
	start := 0
	for i, r := range path {
		if r == ident.MiddleDot {
			out = append(out, path[start:i])
			start = i + len(string(ident.MiddleDot))
		}
	}
	out = append(out, path[start:])
	return out
}

// Flatten builds the offset->identifier map internal/results needs to
// label output columns: every scalar-plane slot this layout (and
// everything nested beneath it) owns, keyed by its absolute offset and
// named by its fully dotted path (spec.md §4.I "offset -> ident map").
// Arrayed variables contribute one entry per element offset, suffixed
// "[n]" for readability; callers that want element-level dimension
// names instead should consult the dimension catalog directly.
func (l *Layout) Flatten() map[uint32]string {
	out := map[uint32]string{}
	l.flattenInto(out, "")
	return out
}

func (l *Layout) flattenInto(out map[uint32]string, prefix string) {
	for name, slot := range l.Offsets {
		full := name
		if prefix != "" {
			full = prefix + string(ident.MiddleDot) + name
		}
		if slot.Size == 1 {
			out[slot.Base] = full
			continue
		}
		for i := uint32(0); i < slot.Size; i++ {
			out[slot.Base+i] = full + "[" + strconv.Itoa(int(i)) + "]"
		}
	}
	modNames := make([]string, 0, len(l.Modules))
	for name := range l.Modules {
		modNames = append(modNames, name)
	}
	sort.Strings(modNames)
	for _, name := range modNames {
		child := l.Modules[name]
		full := name
		if prefix != "" {
			full = prefix + string(ident.MiddleDot) + name
		}
		child.flattenInto(out, full)
	}
}
