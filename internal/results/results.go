// Package results implements component M: the saved-row output of a
// simulation run (spec.md §4.I).
package results

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"sdsim/internal/datamodel"
	"sdsim/internal/layout"
)

// Results carries every saved row of one simulation run: a flat slab
// of step_count*step_size float64s (one n_slots-wide row per saved
// step, in time order), the offset->identifier map used to label
// columns, and the SimSpecs the run was produced under.
type Results struct {
	StepSize uint32
	StepCount int
	Idents   map[uint32]string
	Slab     []float64
	Specs    datamodel.SimSpecs
}

// New builds a Results from an already-filled slab (owned by
// internal/sim) plus the root layout's flattened offset->ident map.
func New(lay *layout.Layout, specs datamodel.SimSpecs, slab []float64, stepSize uint32) *Results {
	stepCount := 0
	if stepSize > 0 {
		stepCount = len(slab) / int(stepSize)
	}
	return &Results{StepSize: stepSize, StepCount: stepCount, Idents: lay.Flatten(), Slab: slab, Specs: specs}
}

// Row returns the i-th saved row as a slice into the underlying slab
// (no copy).
func (r *Results) Row(i int) []float64 {
	start := i * int(r.StepSize)
	return r.Slab[start : start+int(r.StepSize)]
}

// orderedOffsets returns every column offset this Results knows a name
// for, sorted, so header and row columns line up deterministically.
func (r *Results) orderedOffsets() []uint32 {
	offs := make([]uint32, 0, len(r.Idents))
	for off := range r.Idents {
		offs = append(offs, off)
	}
	sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
	return offs
}

// WriteTSV emits a header line of column identifiers in offset order
// followed by one tab-separated line per saved row, halting once a
// row's TIME column exceeds Specs.Stop (spec.md §4.I).
func (r *Results) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	offs := r.orderedOffsets()
	for i, off := range offs {
		if i > 0 {
			if _, err := bw.WriteString("\t"); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(r.Idents[off]); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	for i := 0; i < r.StepCount; i++ {
		row := r.Row(i)
		if row[layout.TimeOffset] > r.Specs.Stop {
			break
		}
		for j, off := range offs {
			if j > 0 {
				if _, err := bw.WriteString("\t"); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(strconv.FormatFloat(row[off], 'g', -1, 64)); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// Iter yields successive saved row slices, stopping once TIME exceeds
// Specs.Stop, per spec.md §4.I's iter() description.
func (r *Results) Iter(yield func(row []float64) bool) {
	for i := 0; i < r.StepCount; i++ {
		row := r.Row(i)
		if row[layout.TimeOffset] > r.Specs.Stop {
			return
		}
		if !yield(row) {
			return
		}
	}
}

// String is a small debugging convenience: "N steps, M columns".
func (r *Results) String() string {
	return fmt.Sprintf("%d steps, %d columns", r.StepCount, len(r.Idents))
}
