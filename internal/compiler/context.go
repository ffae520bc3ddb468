// Package compiler implements components I/J: walking a model's
// Expr1 equations into bytecode.Chunk runlists (initials/flows/
// stocks) against an already-computed internal/layout.Layout,
// generalizing the teacher's internal/compiler/compiler.go
// Expr.Accept(c) visitor walk (package doc continues in compiler.go).
package compiler

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"sdsim/internal/bytecode"
	"sdsim/internal/dimensions"
	"sdsim/internal/lookup"
)

// ModuleCallDescriptor is one EvalModule call site's static data: which
// child body to run (via BodyKey, a lookup into Context.Bodies) and
// the offset delta from the caller's own base to the callee's base.
// Off is baked in per call *site*, not per compiled body, which is
// what lets two call sites of the same (model, override-set) share
// one cached CompiledModuleBody (spec.md §4.G / SPEC_FULL.md §4.G).
type ModuleCallDescriptor struct {
	InstanceName string
	BodyKey      string
	Off          int32
	NInputs      int32
}

// CompiledModuleBody is one model's compiled runlists, with every
// LoadVar/AssignCurr/AssignNext offset relative to this body's own
// region (added to the caller-supplied module base at run time) so
// the same body can run at different bases for different call sites.
type CompiledModuleBody struct {
	ModelName   string
	Initials    *bytecode.Chunk
	Flows       *bytecode.Chunk
	Stocks      *bytecode.Chunk
	ModuleCalls []ModuleCallDescriptor

	// GenerationID tags one compilation of this body for diagnostics
	// — never used as a cache key, since
	// BodyKey already identifies a body uniquely by (model, overrides).
	GenerationID uuid.UUID
}

// Context is the project-wide compilation state: a deduplicated
// constant pool, the graphical-function table pool, and the cache of
// compiled model bodies keyed by (model name, override set) — mirrors
// internal/depgraph's per-input-set monomorphization key so the two
// components agree on what counts as "the same call shape."
type Context struct {
	Constants  []float64
	constIndex map[float64]int32

	Tables []lookup.Table

	Bodies map[string]*CompiledModuleBody

	// Catalog resolves a dimension name to its elements/size, needed to
	// translate a static subscript (a literal element name, a
	// dimension-name wildcard, or a subdimension reference) into a
	// compile-time offset or view size (spec.md §4.C/§4.B).
	Catalog *dimensions.Catalog

	// VarDims is every model's own variables' declared dimensions,
	// keyed by canonical model name then canonical variable name; a
	// variable absent from the inner map is scalar. Populated once in
	// Compile from the datamodel.Project, since a LocalVar's dims live
	// on its own model but a ModuleOutputRef needs the *callee* model's
	// dims, which modelFrame alone (scoped to the caller) cannot see.
	VarDims map[string]map[string][]string

	// RunID tags this whole compilation for diagnostics, the same way
	// GenerationID tags one body within it.
	RunID uuid.UUID
}

func NewContext() *Context {
	return &Context{
		constIndex: map[float64]int32{},
		Bodies:     map[string]*CompiledModuleBody{},
		VarDims:    map[string]map[string][]string{},
		RunID:      uuid.New(),
	}
}

// ConstID returns the constant-pool index for v, adding it if not
// already present.
func (c *Context) ConstID(v float64) int32 {
	if id, ok := c.constIndex[v]; ok {
		return id
	}
	id := int32(len(c.Constants))
	c.Constants = append(c.Constants, v)
	c.constIndex[v] = id
	return id
}

// AddTable registers a graphical-function table and returns its id.
func (c *Context) AddTable(t lookup.Table) int32 {
	id := int32(len(c.Tables))
	c.Tables = append(c.Tables, t)
	return id
}

// BodyKey computes the cache key for a (model, override-set) pair —
// same construction as internal/depgraph's inputSetKey, duplicated
// here rather than exported from depgraph since it is a three-line
// pure function, not worth a cross-package dependency for.
func BodyKey(modelName string, overridden map[string]bool) string {
	names := make([]string, 0, len(overridden))
	for k := range overridden {
		names = append(names, k)
	}
	sort.Strings(names)
	return modelName + "#" + strings.Join(names, ",")
}
