package compiler

import (
	"sdsim/internal/dimensions"
	"sdsim/internal/ident"
	"sdsim/internal/lower"
)

// collapseStaticSubscript computes the absolute row-major element
// offset (relative to the variable's own slot base) of a reference
// whose every subscript position is a static single element — spec.md
// §4.C: "A reference to a fully-scalar element ... collapses to a
// direct Var(offset) at compile time." Returns ok=false if the
// subscript count doesn't match the variable's declared dimension
// count, any position is not a static single element, or a dimension/
// element name doesn't resolve — the caller falls back to the
// single-axis dynamic path, or reports an unsupported-shape error.
func collapseStaticSubscript(catalog *dimensions.Catalog, dims []string, subs []lower.Subscript1) (offset uint32, ok bool) {
	if len(dims) == 0 || len(subs) != len(dims) {
		return 0, false
	}
	for i, d := range dims {
		sub := subs[i]
		if sub.Kind != lower.Sub1Single || sub.Element == "" {
			return 0, false
		}
		dim, dimOK := catalog.Lookup(d)
		if !dimOK {
			return 0, false
		}
		elOff, elOK := dim.GetOffset(sub.Element)
		if !elOK {
			// The element name may belong to a different dimension
			// that d maps_to (spec.md §4.B cross-dimension mapping):
			// translate it back to d's own element before giving up.
			if mapsTo, hasMap := catalog.GetMapsTo(d); hasMap {
				if translated, ok := catalog.TranslateToSourceViaMapping(d, mapsTo, sub.Element); ok {
					elOff, elOK = dim.GetOffset(translated)
				}
			}
			if !elOK {
				return 0, false
			}
		}
		offset = offset*dim.Size + uint32(elOff)
	}
	return offset, true
}

// resolveStaticView resolves a bare or single-axis-subscripted
// reference to a compile-time-known array view within its own
// variable's slot: a bare reference yields the whole slot; a
// wildcard/bang subscript naming the variable's own dimension (or
// naming nothing, per Subscript1.DimHint) also yields the whole slot;
// a wildcard/bang naming a genuine subdimension of that axis narrows
// to the subdimension's parent offsets via
// dimensions.Catalog.GetSubdimensionRelation, provided the relation is
// contiguous (spec.md §4.B); a static range narrows to
// [start,end]. Multi-axis variables, dynamic ranges, and any other
// shape return ok=false. Used both by collectBroadcastSources (no
// code-emission context available) and by tryEmitArrayView's static
// branches.
func resolveStaticView(catalog *dimensions.Catalog, dims []string, subs []lower.Subscript1, slotBase int32, slotSize uint32) (rel int32, size uint32, ok bool) {
	if len(subs) == 0 {
		return slotBase, slotSize, true
	}
	if len(subs) != 1 || len(dims) != 1 {
		return 0, 0, false
	}
	dim, dimOK := catalog.Lookup(dims[0])
	if !dimOK {
		return 0, 0, false
	}
	sub := subs[0]
	switch sub.Kind {
	case lower.Sub1Wildcard, lower.Sub1Bang:
		if sub.DimHint == "" || ident.Canonical(sub.DimHint) == ident.Canonical(dims[0]) {
			return slotBase, dim.Size, true
		}
		relDim, relOK := catalog.GetSubdimensionRelation(sub.DimHint, dims[0])
		if !relOK || !relDim.IsContiguous() {
			return 0, 0, false
		}
		return slotBase + int32(relDim.StartOffset()), uint32(len(relDim.ParentOffsets)), true
	case lower.Sub1Range:
		if sub.StartElement == "" || sub.EndElement == "" {
			return 0, 0, false
		}
		startOff, sOk := dim.GetOffset(sub.StartElement)
		endOff, eOk := dim.GetOffset(sub.EndElement)
		if !sOk || !eOk || endOff < startOff {
			return 0, 0, false
		}
		return slotBase + int32(startOff), uint32(endOff-startOff+1), true
	default:
		return 0, 0, false
	}
}
