// Package sim implements component L: the simulation driver that
// turns a datamodel.Project into a results.Results, wiring together
// components A through K (spec.md §4.H).
package sim

import (
	"math"

	"sdsim/internal/build"
	"sdsim/internal/compiler"
	"sdsim/internal/datamodel"
	"sdsim/internal/depgraph"
	"sdsim/internal/dimensions"
	"sdsim/internal/ident"
	"sdsim/internal/layout"
	"sdsim/internal/results"
	"sdsim/internal/sdlog"
	"sdsim/internal/vm"
)

// buildCatalog converts a Project's datamodel.Dimension declarations
// into the compiled dimensions.Catalog the rest of the pipeline
// expects, applying maps_to after every dimension exists (WithMapsTo
// requires looking a target dimension up by name, so named dimensions
// are built in two passes: constants, then mappings).
func buildCatalog(project *datamodel.Project) *dimensions.Catalog {
	dims := make([]dimensions.Dimension, 0, len(project.Dimensions))
	for _, d := range project.Dimensions {
		if d.Kind == datamodel.DimIndexed {
			dims = append(dims, dimensions.NewIndexed(d.Name, d.Size))
			continue
		}
		dims = append(dims, dimensions.NewNamed(d.Name, d.Elements))
	}
	for i, d := range project.Dimensions {
		if d.Kind == datamodel.DimNamed && d.MapsTo != "" {
			dims[i] = dims[i].WithMapsTo(d.MapsTo)
		}
	}
	return dimensions.NewCatalog(dims)
}

// Run compiles and executes rootModel to completion, returning the
// full set of saved rows.
func Run(project *datamodel.Project, rootModel string) (*results.Results, error) {
	catalog := buildCatalog(project)

	bp, err := build.Build(project, catalog)
	if err != nil {
		return nil, err
	}

	pa, err := depgraph.Analyze(bp, ident.Canonical(rootModel))
	if err != nil {
		return nil, err
	}

	rootLayout, err := layout.BuildRoot(bp, project, catalog, rootModel)
	if err != nil {
		return nil, err
	}

	ctx, rootKey, err := compiler.Compile(bp, project, pa, catalog, rootLayout, ident.Canonical(rootModel))
	if err != nil {
		return nil, err
	}
	rootBody := ctx.Bodies[rootKey]

	specs := project.SimSpecs
	if specs.Method == datamodel.MethodRK4 {
		sdlog.Default.Warn("RK4 requested but not implemented; degrading to Euler")
	}

	slab, stepSize, err := runLoop(ctx, rootBody, rootLayout.NSlots, specs)
	if err != nil {
		return nil, err
	}
	return results.New(rootLayout, specs, slab, stepSize), nil
}

// runLoop implements spec.md §4.H's allocation formula and two-phase
// Euler loop. curr and next are adjacent rows of the slab (next is a
// separate scratch row once curr reaches the slab's last row); a save
// boundary "advances the window" onto a fresh row pair
// (the just-computed next becomes the new curr, and a further fresh
// row becomes the new next), while a non-boundary step discards its
// result by copying next back over curr in place, so only the rows the
// caller actually asked to keep end up addressable in the result slab.
func runLoop(ctx *compiler.Context, body *compiler.CompiledModuleBody, nSlots uint32, specs datamodel.SimSpecs) ([]float64, uint32, error) {
	start, stop, dt := specs.Start, specs.Stop, specs.Dt.Seconds()
	saveStep := specs.EffectiveSaveStep()
	nSavedSteps := int(math.Ceil((stop-start)/saveStep)) + 1
	saveEvery := int(math.Max(1, math.Round(saveStep/dt)))

	slab := make([]float64, int(nSlots)*(nSavedSteps+1))
	rowIdx := 0
	curr := slab[0:nSlots]
	next := slab[nSlots : 2*nSlots]

	curr[layout.TimeOffset] = start
	curr[layout.DtOffset] = dt
	curr[layout.InitialTimeOffset] = start
	curr[layout.FinalTimeOffset] = stop

	machine := vm.New(ctx, curr, next, specs.Seed)
	if err := machine.Run(body, vm.PassInitials, 0, nil); err != nil {
		return nil, 0, err
	}

	counter := 0
	for {
		machine.Curr, machine.Next = curr, next
		if err := machine.Run(body, vm.PassFlows, 0, nil); err != nil {
			return nil, 0, err
		}
		if err := machine.Run(body, vm.PassStocks, 0, nil); err != nil {
			return nil, 0, err
		}
		next[layout.TimeOffset] = curr[layout.TimeOffset] + dt
		next[layout.DtOffset] = dt
		next[layout.InitialTimeOffset] = start
		next[layout.FinalTimeOffset] = stop

		counter++
		if counter == saveEvery {
			counter = 0
			rowIdx++
			curr = slab[rowIdx*int(nSlots) : (rowIdx+1)*int(nSlots)]
			if rowIdx+1 <= nSavedSteps {
				next = slab[(rowIdx+1)*int(nSlots) : (rowIdx+2)*int(nSlots)]
			} else {
				next = make([]float64, nSlots)
			}
		} else {
			copy(curr, next)
		}

		if curr[layout.TimeOffset] > stop {
			break
		}
	}

	savedRows := rowIdx + 1
	if savedRows > nSavedSteps {
		savedRows = nSavedSteps
	}
	return slab[:savedRows*int(nSlots)], nSlots, nil
}
