// Package topo implements the generic topological sort and cycle
// detector shared by the dependency analyzer and the model builder
// (spec component A). It operates on plain string node identifiers so
// it has no dependency on the datamodel or expression packages.
package topo

import "sort"

// White/Gray/Black DFS visitation states, following the classic
// cycle-detecting topological sort (same three-color scheme as
// katalvlaran-lvlath/dfs.TopologicalSort, generalized from graph
// vertices to variable dependency edges).
const (
	white = 0
	gray  = 1
	black = 2
)

// CycleError reports the first back-edge encountered during the sort:
// From depends on To, but To is already being visited (i.e. there is a
// path To -> ... -> From -> To).
type CycleError struct {
	From string
	To   string
}

func (e *CycleError) Error() string {
	return "circular dependency: " + e.From + " -> " + e.To
}

// Sort returns a permutation of nodes such that every node appears
// before every other node that transitively depends on it (deps[n] is
// the set of nodes n directly depends on, i.e. edges point from a
// dependent to its dependency). Ties are broken by the lexicographic
// order of node names, so the result is deterministic regardless of
// map iteration order.
func Sort(nodes []string, deps map[string][]string) ([]string, error) {
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)

	state := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))

	var visit func(n string) error
	visit = func(n string) error {
		state[n] = gray

		ds := append([]string(nil), deps[n]...)
		sort.Strings(ds)
		for _, d := range ds {
			switch state[d] {
			case gray:
				// Back-edge: d is an ancestor of n in the current DFS
				// path, so n -> d closes a cycle. Report it here, at
				// the first point it is discovered, and let it
				// propagate unchanged up the call stack.
				return &CycleError{From: n, To: d}
			case white:
				if err := visit(d); err != nil {
					return err
				}
			}
		}
		state[n] = black
		order = append(order, n)
		return nil
	}

	for _, n := range sorted {
		if state[n] == white {
			if err := visit(n); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}
