package compiler

import "sdsim/internal/lower"

// broadcastSource is one distinct array-valued operand referenced by
// a single-axis apply-to-all equation's RHS, in first-seen order.
type broadcastSource struct {
	name string
	rel  int32
	size uint32
}

// collectBroadcastSources finds every distinct LocalVar reference in
// expr that resolves — bare, or via a static wildcard/bang/range/
// subdimension subscript (resolveStaticView) — to a view exactly
// targetSize wide, the same dimension as the variable being compiled,
// so the compiler can push one view per source and read it elementwise
// via LoadIterViewAt rather than re-evaluating per element from
// scratch. A reference to a same-name variable that the override set
// already redirects to a module input is excluded, since
// LoadModuleInput reads a scalar, never a view, at this compiler
// revision.
func collectBroadcastSources(ctx *Context, mf *modelFrame, overrideIdx map[string]int32, expr lower.Expr1, targetSize uint32) []broadcastSource {
	seen := map[string]bool{}
	var out []broadcastSource
	var walk func(e lower.Expr1)
	walk = func(e lower.Expr1) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *lower.LocalVar:
			if !seen[n.Name] {
				if _, overridden := overrideIdx[n.Name]; !overridden {
					if slot, ok := mf.lay.Offsets[n.Name]; ok {
						dims := ctx.VarDims[mf.modelName][n.Name]
						base := int32(slot.Base - mf.lay.Base)
						if rel, size, ok := resolveStaticView(ctx.Catalog, dims, n.Subscripts, base, slot.Size); ok && size == targetSize {
							seen[n.Name] = true
							out = append(out, broadcastSource{name: n.Name, rel: rel, size: size})
						}
					}
				}
			}
		case *lower.Unary:
			walk(n.X)
		case *lower.Binary:
			walk(n.Left)
			walk(n.Right)
		case *lower.If:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *lower.Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return out
}

// sourceOffsets converts push order into the 1-based
// "positions-from-stack-top" offsets LoadIterViewAt uses: the last
// source pushed sits nearest the top (offset 1).
func sourceOffsets(sources []broadcastSource) map[string]int32 {
	offs := make(map[string]int32, len(sources))
	n := len(sources)
	for i, s := range sources {
		offs[s.name] = int32(n - i)
	}
	return offs
}
