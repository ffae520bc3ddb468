// Package depgraph implements component G: dependency analysis over a
// build.BuiltProject. For every model it builds two dependency graphs —
// dt_deps (what a variable needs to recompute its value at the current
// step, once stocks already hold their current-step value) and
// initial_deps (what a variable needs during initialization, when
// stocks are computed from their own initial-value equation rather than
// treated as roots) — and derives the three run lists the simulation
// driver walks each step (spec.md §4.D): initials, flows, stocks.
//
// Grounded on internal/topo.Sort (component A/G) for both the run-list
// ordering and cycle detection; the graph-construction walk mirrors the
// teacher's internal/build/linker.go ImportResolver shape (build edges,
// then sort), generalized from file imports to variable references.
package depgraph

import (
	"sort"
	"strings"

	"sdsim/internal/build"
	"sdsim/internal/datamodel"
	"sdsim/internal/lower"
	"sdsim/internal/simerr"
	"sdsim/internal/topo"
)

// ModelAnalysis is the dependency analysis of one model, under one
// module-input override set (spec.md §4.G: "per distinct
// ModuleInputSet, compute two graphs" — the per-input-set
// monomorphization driving internal/compiler's compiled-module cache,
// component J).
type ModelAnalysis struct {
	ModelName   string
	Overridden  map[string]bool // this model's own variables currently fed by a caller's wire, not their own equation
	DtDeps      map[string][]string
	InitialDeps map[string][]string

	Initials []string // stocks + modules + everything reachable from them via InitialDeps, topologically sorted
	Flows    []string // every non-stock variable, plus any overridden stock, topologically sorted by DtDeps
	Stocks   []string // stocks and modules not already in Flows, in original declaration order
}

// ProjectAnalysis caches one ModelAnalysis per (model, override set) key
// encountered while walking the module-instantiation tree from a root
// model.
type ProjectAnalysis struct {
	ByKey map[string]*ModelAnalysis
}

// Analyze walks the module-instantiation tree rooted at rootModel,
// producing one ModelAnalysis per distinct (model, override set) pair
// actually reached. Module instantiation is already known acyclic
// (internal/build.Build rejects cycles before this ever runs), so the
// recursion always terminates.
func Analyze(bp *build.BuiltProject, rootModel string) (*ProjectAnalysis, error) {
	pa := &ProjectAnalysis{ByKey: map[string]*ModelAnalysis{}}
	if _, err := analyzeModel(bp, pa, rootModel, map[string]bool{}); err != nil {
		return nil, err
	}
	return pa, nil
}

func inputSetKey(modelName string, overridden map[string]bool) string {
	names := make([]string, 0, len(overridden))
	for k := range overridden {
		names = append(names, k)
	}
	sort.Strings(names)
	return modelName + "#" + strings.Join(names, ",")
}

func analyzeModel(bp *build.BuiltProject, pa *ProjectAnalysis, modelName string, overridden map[string]bool) (*ModelAnalysis, error) {
	key := inputSetKey(modelName, overridden)
	if ma, ok := pa.ByKey[key]; ok {
		return ma, nil
	}
	bm, ok := bp.Models[modelName]
	if !ok {
		return nil, simerr.New(simerr.KindModel, simerr.CodeUnknownDependency, "unknown model "+modelName)
	}

	// Callees must be analyzed (under their own wired-input override
	// set) before this model, so a ModuleOutputRef here can ask whether
	// the referenced callee variable is a stock.
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if bv.Kind == datamodel.VarModule {
			childOverridden := make(map[string]bool, len(bv.Inputs))
			for _, in := range bv.Inputs {
				childOverridden[in.Dst] = true
			}
			if _, err := analyzeModel(bp, pa, bv.ModelName, childOverridden); err != nil {
				return nil, err
			}
		}
	}

	ma := &ModelAnalysis{
		ModelName:   modelName,
		Overridden:  overridden,
		DtDeps:      make(map[string][]string, len(bm.Order)),
		InitialDeps: make(map[string][]string, len(bm.Order)),
	}

	for _, name := range bm.Order {
		bv := bm.Variables[name]
		switch {
		case overridden[name]:
			// Fed by a caller's wire at compile time; no longer
			// depends on its own equation (spec.md §4.G).
			ma.DtDeps[name] = nil
			ma.InitialDeps[name] = nil

		case bv.Kind == datamodel.VarStock:
			// Stocks break cycles: at dt they are roots, no incoming
			// edges regardless of their flow equation. Their initial
			// value, though, is computed from InitialEqn.
			ma.DtDeps[name] = nil
			ma.InitialDeps[name] = dedupeSorted(collectVars(bv.Initial, bm, bp, true))

		case bv.Kind == datamodel.VarModule:
			var wire []string
			for _, in := range bv.Inputs {
				wire = append(wire, collectVars(in.Src, bm, bp, true)...)
			}
			wire = dedupeSorted(wire)
			ma.DtDeps[name] = wire
			ma.InitialDeps[name] = wire

		default: // Flow, Aux
			var dt, init []string
			dt = append(dt, collectVars(bv.Main, bm, bp, true)...)
			init = append(init, collectVars(bv.Main, bm, bp, false)...)
			for _, el := range bv.Elements {
				dt = append(dt, collectVars(el.Main, bm, bp, true)...)
				init = append(init, collectVars(el.Main, bm, bp, false)...)
			}
			ma.DtDeps[name] = dedupeSorted(dt)
			ma.InitialDeps[name] = dedupeSorted(init)
		}
	}

	if err := buildRunlists(bm, ma); err != nil {
		return nil, err
	}

	pa.ByKey[key] = ma
	return ma, nil
}

func buildRunlists(bm *build.BuiltModel, ma *ModelAnalysis) error {
	dtOrder, err := topo.Sort(bm.Order, ma.DtDeps)
	if err != nil {
		return localizeCycle(err, bm)
	}
	initOrder, err := topo.Sort(bm.Order, ma.InitialDeps)
	if err != nil {
		return localizeCycle(err, bm)
	}

	flowsSet := make(map[string]bool, len(bm.Order))
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if bv.Kind != datamodel.VarStock || ma.Overridden[name] {
			flowsSet[name] = true
		}
	}
	for _, n := range dtOrder {
		if flowsSet[n] {
			ma.Flows = append(ma.Flows, n)
		}
	}

	seed := make(map[string]bool, len(bm.Order))
	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if bv.Kind == datamodel.VarStock || bv.Kind == datamodel.VarModule {
			seed[name] = true
		}
	}
	reachable := reachableFrom(seed, ma.InitialDeps)
	for _, n := range initOrder {
		if seed[n] || reachable[n] {
			ma.Initials = append(ma.Initials, n)
		}
	}

	for _, name := range bm.Order {
		bv := bm.Variables[name]
		if (bv.Kind == datamodel.VarStock || bv.Kind == datamodel.VarModule) && !flowsSet[name] {
			ma.Stocks = append(ma.Stocks, name)
		}
	}
	return nil
}

// localizeCycle attaches a CircularDependency diagnostic to the source
// variable of the first back-edge, spanning the offending reference
// inside its equation when one can be found, and returns a model-level
// error signalling the model is not simulatable (spec.md §7/§8: "one
// CircularDependency whose span covers the offending reference").
func localizeCycle(err error, bm *build.BuiltModel) error {
	ce, ok := err.(*topo.CycleError)
	if !ok {
		return err
	}
	start, end := findSpan(bm.Variables[ce.From], ce.To)
	eq := simerr.EquationError{Start: start, End: end, Code: simerr.CodeCircularDependency, Msg: ce.From + " depends on " + ce.To}
	if bv := bm.Variables[ce.From]; bv != nil {
		bv.Errors = append(bv.Errors, eq)
	}
	return simerr.Wrap(eq, simerr.KindModel, simerr.CodeCircularDependency, "model "+bm.Name)
}

func findSpan(bv *build.BuiltVariable, depName string) (uint16, uint16) {
	if bv == nil {
		return 0, 0
	}
	sf := &spanFinder{target: depName}
	for _, e := range bv.AllExprs() {
		if e == nil {
			continue
		}
		if s, ok := sf.find(e); ok {
			return s.start, s.end
		}
	}
	return 0, 0
}

type foundSpan struct{ start, end uint16 }

type spanFinder struct{ target string }

func (sf *spanFinder) find(e lower.Expr1) (foundSpan, bool) {
	switch n := e.(type) {
	case *lower.LocalVar:
		if n.Name == sf.target {
			s, e := n.Span()
			return foundSpan{s, e}, true
		}
	case *lower.ModuleOutputRef:
		if n.Module == sf.target {
			s, e := n.Span()
			return foundSpan{s, e}, true
		}
	case *lower.Unary:
		return sf.find(n.X)
	case *lower.Binary:
		if fs, ok := sf.find(n.Left); ok {
			return fs, true
		}
		return sf.find(n.Right)
	case *lower.If:
		if fs, ok := sf.find(n.Cond); ok {
			return fs, true
		}
		if fs, ok := sf.find(n.Then); ok {
			return fs, true
		}
		return sf.find(n.Else)
	case *lower.Call:
		for _, a := range n.Args {
			if fs, ok := sf.find(a); ok {
				return fs, true
			}
		}
	}
	return foundSpan{}, false
}

// varCollector gathers the direct (non-transitive) free-variable names
// an expression references: local variables by name, and module
// instances referenced via a dotted output — except, in dt context,
// when the referenced output is itself a stock of the callee model, in
// which case its current-step value is already finalized and reading it
// this step pulls in no fresh edge at all (spec.md §4.D module-output
// dataflow rule).
type varCollector struct {
	bm        *build.BuiltModel
	bp        *build.BuiltProject
	dtContext bool
	names     map[string]bool
}

func collectVars(e lower.Expr1, bm *build.BuiltModel, bp *build.BuiltProject, dtContext bool) []string {
	if e == nil {
		return nil
	}
	c := &varCollector{bm: bm, bp: bp, dtContext: dtContext, names: map[string]bool{}}
	e.Accept(c)
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	return out
}

func (c *varCollector) VisitConst(*lower.Const) any { return nil }

func (c *varCollector) VisitLocalVar(r *lower.LocalVar) any {
	c.names[r.Name] = true
	for _, s := range r.Subscripts {
		c.walkSubscript(s)
	}
	return nil
}

func (c *varCollector) VisitGlobalVar(*lower.GlobalVar) any { return nil }

func (c *varCollector) VisitModuleInputRef(r *lower.ModuleInputRef) any {
	c.names[r.Name] = true
	return nil
}

func (c *varCollector) VisitModuleOutputRef(r *lower.ModuleOutputRef) any {
	skip := false
	if c.dtContext {
		if modVar, ok := c.bm.Variables[r.Module]; ok {
			if callee, ok := c.bp.Models[modVar.ModelName]; ok {
				if out, ok := callee.Variables[r.Output]; ok && out.Kind == datamodel.VarStock {
					skip = true
				}
			}
		}
	}
	if !skip {
		c.names[r.Module] = true
	}
	for _, s := range r.Subscripts {
		c.walkSubscript(s)
	}
	return nil
}

func (c *varCollector) VisitCall(r *lower.Call) any {
	for _, a := range r.Args {
		a.Accept(c)
	}
	return nil
}

func (c *varCollector) VisitUnary(r *lower.Unary) any {
	r.X.Accept(c)
	return nil
}

func (c *varCollector) VisitBinary(r *lower.Binary) any {
	r.Left.Accept(c)
	r.Right.Accept(c)
	return nil
}

func (c *varCollector) VisitIf(r *lower.If) any {
	r.Cond.Accept(c)
	r.Then.Accept(c)
	r.Else.Accept(c)
	return nil
}

func (c *varCollector) walkSubscript(s lower.Subscript1) {
	if s.Index != nil {
		s.Index.Accept(c)
	}
	if s.Start != nil {
		s.Start.Accept(c)
	}
	if s.End != nil {
		s.End.Accept(c)
	}
}

// reachableFrom computes the set of nodes reachable from seed by
// following deps edges, seed included.
func reachableFrom(seed map[string]bool, deps map[string][]string) map[string]bool {
	visited := make(map[string]bool, len(seed))
	var stack []string
	for n := range seed {
		visited[n] = true
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range deps[n] {
			if !visited[d] {
				visited[d] = true
				stack = append(stack, d)
			}
		}
	}
	return visited
}

func dedupeSorted(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
