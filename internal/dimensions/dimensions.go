// Package dimensions implements the dimension catalog: named and
// indexed dimensions, element-to-offset lookup, cross-dimension
// positional mapping ("maps_to"), and cached subdimension relations.
//
// Grounded on original_source/src/simlin-engine/src/dimensions.rs; the
// type and method names below mirror that file closely (NamedDimension,
// SubdimensionRelation, DimensionsContext.translate_to_source_via_mapping,
// get_subdimension_relation) because this package's job is to resolve
// ambiguities in spec.md §4.B exactly the way the original resolves
// them, not to reinterpret them.
package dimensions

import (
	"strconv"
	"sync"

	"sdsim/internal/ident"
)

// NamedDimension is a dimension whose elements are an ordered list of
// names (as opposed to an Indexed dimension of bare integers 1..=N).
type NamedDimension struct {
	Elements []string       // canonical element names, in declared order
	indexed  map[string]int // canonical element -> 1-based index
	// MapsTo is the canonical name of another Named dimension of the
	// same length with which this dimension's elements correspond
	// positionally. Empty string means "no mapping".
	MapsTo string
}

// Dimension is either Indexed(name, size) or Named(name, elements).
type Dimension struct {
	Name  string // canonical name
	Size  uint32 // valid for both kinds: Named.Size == len(Named.Elements)
	Named *NamedDimension
}

// IsIndexed reports whether this is a bare 1..=N dimension.
func (d Dimension) IsIndexed() bool { return d.Named == nil }

// NewIndexed builds an Indexed(name, size) dimension. size must be >= 1.
func NewIndexed(name string, size uint32) Dimension {
	return Dimension{Name: ident.Canonical(name), Size: size}
}

// NewNamed builds a Named(name, elements) dimension with no mapping.
// Element order is preserved; elements are 1-indexed per SD convention.
func NewNamed(name string, elements []string) Dimension {
	canonElems := make([]string, len(elements))
	indexed := make(map[string]int, len(elements))
	for i, e := range elements {
		ce := ident.Canonical(e)
		canonElems[i] = ce
		indexed[ce] = i + 1
	}
	return Dimension{
		Name: ident.Canonical(name),
		Size: uint32(len(elements)),
		Named: &NamedDimension{
			Elements: canonElems,
			indexed:  indexed,
		},
	}
}

// WithMapsTo returns a copy of a Named dimension with MapsTo set. It is
// a no-op (returns d unchanged) on an Indexed dimension: dimension
// mappings only make sense for named dimensions where element names
// can be positionally compared.
func (d Dimension) WithMapsTo(target string) Dimension {
	if d.Named == nil {
		return d
	}
	nd := *d.Named
	nd.MapsTo = ident.Canonical(target)
	d.Named = &nd
	return d
}

// GetOffset returns the 0-based offset of subscript within d, or
// (0, false) if the element does not exist (for Named) or the numeral
// is out of the [1, size] range or not parseable (for Indexed).
func (d Dimension) GetOffset(subscript string) (int, bool) {
	if d.Named != nil {
		idx, ok := d.Named.indexed[ident.Canonical(subscript)]
		if !ok {
			return 0, false
		}
		return idx - 1, true
	}
	n, err := strconv.ParseUint(subscript, 10, 32)
	if err != nil || n < 1 || uint32(n) > d.Size {
		return 0, false
	}
	return int(n - 1), true
}

// Len returns the number of elements along this dimension.
func (d Dimension) Len() int { return int(d.Size) }

// SubdimensionRelation maps each element of a child dimension to its
// 0-based offset in a parent dimension.
type SubdimensionRelation struct {
	ParentOffsets []int
}

// IsContiguous reports whether ParentOffsets form a consecutive run,
// letting the bytecode compiler choose a cheap Range view over a
// Sparse mapping.
func (r SubdimensionRelation) IsContiguous() bool {
	if len(r.ParentOffsets) <= 1 {
		return true
	}
	for i := 1; i < len(r.ParentOffsets); i++ {
		if r.ParentOffsets[i] != r.ParentOffsets[i-1]+1 {
			return false
		}
	}
	return true
}

// StartOffset returns the first parent offset; meaningful only when
// IsContiguous() is true.
func (r SubdimensionRelation) StartOffset() int {
	if len(r.ParentOffsets) == 0 {
		return 0
	}
	return r.ParentOffsets[0]
}

type subdimKey struct{ child, parent string }

// Catalog is the immutable-after-build dimension registry for one
// project. Its only mutable piece is the subdimension-relation cache,
// which is guarded by a mutex with a short critical section per
// spec.md §5.
type Catalog struct {
	dims map[string]Dimension

	cacheMu sync.Mutex
	cache   map[subdimKey]*SubdimensionRelation // nil value = "not a subdimension"
}

// NewCatalog builds a Catalog from a flat list of dimensions.
func NewCatalog(dims []Dimension) *Catalog {
	m := make(map[string]Dimension, len(dims))
	for _, d := range dims {
		m[d.Name] = d
	}
	return &Catalog{dims: m, cache: make(map[subdimKey]*SubdimensionRelation)}
}

// Lookup returns the dimension registered under canonicalName, if any.
func (c *Catalog) Lookup(canonicalName string) (Dimension, bool) {
	d, ok := c.dims[ident.Canonical(canonicalName)]
	return d, ok
}

// IsDimensionName reports whether name (in any case/space form) names
// a dimension in this catalog; used by the lowering pass to decide
// whether an identifier is a dimension wildcard or a variable/builtin.
func (c *Catalog) IsDimensionName(name string) bool {
	_, ok := c.dims[ident.Canonical(name)]
	return ok
}

// GetMapsTo returns the canonical name of the dimension that dimName
// maps to, if dimName is Named and has a mapping set.
func (c *Catalog) GetMapsTo(dimName string) (string, bool) {
	d, ok := c.dims[ident.Canonical(dimName)]
	if !ok || d.Named == nil || d.Named.MapsTo == "" {
		return "", false
	}
	return d.Named.MapsTo, true
}

// TranslateToSourceViaMapping resolves a subscript written against
// targetDim back into the corresponding element of sourceDim, when
// sourceDim.maps_to == targetDim, both are Named, and their sizes
// match. It returns (element, false) on any failure: unknown
// dimension, no mapping, a size mismatch, or an indexed dimension on
// either side. It never panics and never guesses.
func (c *Catalog) TranslateToSourceViaMapping(sourceDim, targetDim, targetElement string) (string, bool) {
	mapsTo, ok := c.GetMapsTo(sourceDim)
	if !ok || mapsTo != ident.Canonical(targetDim) {
		return "", false
	}
	src, ok := c.dims[ident.Canonical(sourceDim)]
	if !ok || src.Named == nil {
		return "", false
	}
	tgt, ok := c.dims[ident.Canonical(targetDim)]
	if !ok || tgt.Named == nil {
		return "", false
	}
	if len(src.Named.Elements) != len(tgt.Named.Elements) {
		return "", false
	}
	pos, ok := tgt.Named.indexed[ident.Canonical(targetElement)]
	if !ok {
		return "", false
	}
	// pos is 1-based; src.Named.Elements is 0-based.
	if pos-1 < 0 || pos-1 >= len(src.Named.Elements) {
		return "", false
	}
	return src.Named.Elements[pos-1], true
}

// IsSubdimensionOf reports whether every element of child appears in
// parent (see GetSubdimensionRelation).
func (c *Catalog) IsSubdimensionOf(child, parent string) bool {
	_, ok := c.GetSubdimensionRelation(child, parent)
	return ok
}

// GetSubdimensionRelation returns the vector of parent offsets every
// child element maps to, or (SubdimensionRelation{}, false) if any child element is
// absent from parent, either side is Indexed, or either name is
// unknown. Results are cached per (child, parent) pair; the cache is
// safe for concurrent use and the lock is never held across the
// (re-entrant-free) computation below.
func (c *Catalog) GetSubdimensionRelation(child, parent string) (SubdimensionRelation, bool) {
	key := subdimKey{ident.Canonical(child), ident.Canonical(parent)}

	c.cacheMu.Lock()
	if cached, hit := c.cache[key]; hit {
		c.cacheMu.Unlock()
		if cached == nil {
			return SubdimensionRelation{}, false
		}
		return *cached, true
	}
	c.cacheMu.Unlock()

	rel, ok := c.computeSubdimensionRelation(key.child, key.parent)

	c.cacheMu.Lock()
	if ok {
		r := rel
		c.cache[key] = &r
	} else {
		c.cache[key] = nil
	}
	c.cacheMu.Unlock()

	return rel, ok
}

func (c *Catalog) computeSubdimensionRelation(child, parent string) (SubdimensionRelation, bool) {
	childDim, ok := c.dims[child]
	if !ok {
		return SubdimensionRelation{}, false
	}
	parentDim, ok := c.dims[parent]
	if !ok {
		return SubdimensionRelation{}, false
	}
	// Indexed subdimensions are explicitly unsupported at this
	// revision: the datamodel carries no parent-offset metadata for
	// them (spec.md §9 Open Questions).
	if childDim.Named == nil || parentDim.Named == nil {
		return SubdimensionRelation{}, false
	}

	offsets := make([]int, 0, len(childDim.Named.Elements))
	for _, elem := range childDim.Named.Elements {
		idx, ok := parentDim.Named.indexed[elem]
		if !ok {
			return SubdimensionRelation{}, false
		}
		offsets = append(offsets, idx-1)
	}
	return SubdimensionRelation{ParentOffsets: offsets}, true
}
