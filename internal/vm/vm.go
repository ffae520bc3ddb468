// Package vm implements component K: the stack machine that executes
// one internal/compiler.CompiledModuleBody's runlists against a pair
// of curr/next scalar-plane windows (spec.md §4.F).
//
// Execution is single-threaded and synchronous, matching the teacher's
// internal/vm.VM instruction-dispatch loop (switch on Op, a value
// stack, a frame per call) generalized from a general-purpose scripting
// VM to spec.md's fixed opcode table: no call frames with locals here
// (a module call is EvalModule recursing with a shifted base register
// rather than pushing a new stack frame with its own locals), a second
// view stack and iteration-frame stack for the array-assignment
// pattern, and two addressable slabs (curr, next) instead of one.
package vm

import (
	"math"

	"sdsim/internal/bytecode"
	"sdsim/internal/compiler"
	"sdsim/internal/simerr"
	"sdsim/internal/views"
)

// Pass selects which of a CompiledModuleBody's three runlists is
// running — needed at an EvalModule site to know which of the
// callee's three chunks to recurse into.
type Pass int

const (
	PassInitials Pass = iota
	PassFlows
	PassStocks
)

// View is one pushed array view: an absolute slab range.
type View struct {
	Base uint32
	Size uint32
}

type iterFrame struct {
	view  View
	index uint32
}

// VM owns the per-run mutable state (value stack, view stack,
// iteration stack) scoped to a single run_to_end call, per spec.md §5
// "Resource discipline" — nothing here outlives its owning simulation.
type VM struct {
	Ctx  *compiler.Context
	Curr []float64
	Next []float64

	stack []float64
	views []View
	iters []iterFrame

	rng *rng
}

// New builds a VM over an already-allocated curr/next pair of
// n_slots-wide windows (internal/sim owns slab allocation and window
// advancement; the VM only ever sees the two windows live at a given
// step). seed makes UNIFORM/NORMAL/POISSON deterministic across runs
// of the same project, per SPEC_FULL.md's reproducibility requirement.
func New(ctx *compiler.Context, curr, next []float64, seed uint64) *VM {
	return &VM{Ctx: ctx, Curr: curr, Next: next, rng: newRNG(seed)}
}

func (vm *VM) push(v float64) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() float64 {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

// popN pops n values, returning them in original push order (args[0]
// is the first one pushed, the deepest).
func (vm *VM) popN(n int32) []float64 {
	args := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	return args
}

func (vm *VM) pushView(v View) { vm.views = append(vm.views, v) }

func (vm *VM) popView() View {
	n := len(vm.views) - 1
	v := vm.views[n]
	vm.views = vm.views[:n]
	return v
}

func (vm *VM) topView() View { return vm.views[len(vm.views)-1] }

// Run executes body's runlist for the given pass starting at module
// base base, with inputs as the callee's marshalled module-input
// array (empty for the root). It runs to the chunk's Ret.
func (vm *VM) Run(body *compiler.CompiledModuleBody, pass Pass, base uint32, inputs []float64) error {
	chunk := chunkForPass(body, pass)
	return vm.exec(chunk, body, pass, base, inputs)
}

func chunkForPass(body *compiler.CompiledModuleBody, pass Pass) *bytecode.Chunk {
	switch pass {
	case PassInitials:
		return body.Initials
	case PassStocks:
		return body.Stocks
	default:
		return body.Flows
	}
}

func (vm *VM) exec(chunk *bytecode.Chunk, body *compiler.CompiledModuleBody, pass Pass, base uint32, inputs []float64) error {
	pc := 0
	for pc < len(chunk.Code) {
		in := chunk.Code[pc]
		switch in.Op {
		case bytecode.OpRet:
			return nil

		case bytecode.OpLoadConstant:
			vm.push(vm.Ctx.Constants[in.A])

		case bytecode.OpLoadTempConst:
			vm.push(vm.Ctx.Constants[in.A])

		case bytecode.OpLoadVar:
			vm.push(vm.Curr[base+uint32(in.A)])

		case bytecode.OpLoadGlobalVar:
			vm.push(vm.Curr[in.A])

		case bytecode.OpLoadModuleInput:
			vm.push(inputs[in.A])

		case bytecode.OpOp2:
			b := vm.pop()
			a := vm.pop()
			r, err := applyOp2(bytecode.Op2Kind(in.A), a, b)
			if err != nil {
				return withSpan(err, in.Debug)
			}
			vm.push(r)

		case bytecode.OpNot:
			a := vm.pop()
			vm.push(boolToFloat(!truthy(a)))

		case bytecode.OpIf:
			elseV := vm.pop()
			thenV := vm.pop()
			condV := vm.pop()
			if truthy(condV) {
				vm.push(thenV)
			} else {
				vm.push(elseV)
			}

		case bytecode.OpApply:
			args := vm.popN(in.B)
			r, err := vm.applyBuiltin(bytecode.BuiltinID(in.A), args)
			if err != nil {
				return withSpan(err, in.Debug)
			}
			vm.push(r)

		case bytecode.OpLookup:
			x := vm.pop()
			tbl := vm.Ctx.Tables[in.A]
			vm.push(tbl.Eval(x))

		case bytecode.OpAssignCurr:
			v := vm.pop()
			vm.Curr[base+uint32(in.A)] = v

		case bytecode.OpAssignConstCurr:
			vm.Curr[base+uint32(in.A)] = vm.Ctx.Constants[in.B]

		case bytecode.OpAssignNext:
			v := vm.pop()
			vm.Next[base+uint32(in.A)] = v

		case bytecode.OpEvalModule:
			desc := body.ModuleCalls[in.A]
			childInputs := vm.popN(in.B)
			childBody, ok := vm.Ctx.Bodies[desc.BodyKey]
			if !ok {
				return simerr.New(simerr.KindSimulation, simerr.CodeUnknownDependency, "no compiled body for "+desc.BodyKey)
			}
			childBase := base + uint32(desc.Off)
			if err := vm.exec(chunkForPass(childBody, pass), childBody, pass, childBase, childInputs); err != nil {
				return err
			}

		case bytecode.OpPushVarViewDirect:
			vm.pushView(View{Base: base + uint32(in.A), Size: uint32(in.B)})

		case bytecode.OpPushStaticView:
			// A compile-time-resolved subview (range/wildcard/
			// subdimension) — same payload shape as
			// OpPushVarViewDirect, kept as a distinct opcode only to
			// mark at the bytecode level that A isn't necessarily the
			// variable's own slot base.
			vm.pushView(View{Base: base + uint32(in.A), Size: uint32(in.B)})

		case bytecode.OpViewSubscriptDynamic:
			idx := vm.pop()
			v := vm.popView()
			pos, err := dynamicElementOffset(idx, v.Size)
			if err != nil {
				return withSpan(err, in.Debug)
			}
			vm.push(vm.Curr[v.Base+pos])

		case bytecode.OpViewRangeDynamic:
			endV := vm.pop()
			startV := vm.pop()
			v := vm.popView()
			start, err := dynamicElementOffset(startV, v.Size)
			if err != nil {
				return withSpan(err, in.Debug)
			}
			end, err := dynamicElementOffset(endV, v.Size)
			if err != nil {
				return withSpan(err, in.Debug)
			}
			if end < start {
				return withSpan(simerr.New(simerr.KindSimulation, simerr.CodeBadSubscript, "range subscript end precedes start"), in.Debug)
			}
			vm.pushView(View{Base: v.Base + start, Size: end - start + 1})

		case bytecode.OpBeginIter:
			vm.iters = append(vm.iters, iterFrame{view: vm.topView(), index: 0})

		case bytecode.OpLoadIterViewAt:
			frame := vm.iters[len(vm.iters)-1]
			pos := len(vm.views) - int(in.A)
			v := vm.views[pos]
			vm.push(vm.Curr[v.Base+frame.index])

		case bytecode.OpStoreIterElement:
			val := vm.pop()
			frame := &vm.iters[len(vm.iters)-1]
			vm.Curr[frame.view.Base+frame.index] = val

		case bytecode.OpNextIterOrJump:
			frame := &vm.iters[len(vm.iters)-1]
			frame.index++
			if frame.index < frame.view.Size {
				pc += int(in.A)
				continue
			}

		case bytecode.OpEndIter:
			vm.iters = vm.iters[:len(vm.iters)-1]

		case bytecode.OpPopView:
			vm.popView()

		case bytecode.OpArraySum, bytecode.OpArrayMin, bytecode.OpArrayMax, bytecode.OpArrayMean, bytecode.OpArrayStddev, bytecode.OpArraySize:
			v := vm.popView()
			vm.push(vm.reduceView(v, in.Op))

		default:
			return simerr.New(simerr.KindSimulation, simerr.CodeGeneric, "unhandled opcode "+in.Op.String())
		}
		pc++
	}
	return nil
}

func (vm *VM) reduceView(v View, op bytecode.Op) float64 {
	vals := vm.Curr[v.Base : v.Base+v.Size]
	switch op {
	case bytecode.OpArraySize:
		return float64(v.Size)
	case bytecode.OpArraySum:
		return views.Sum(vals)
	case bytecode.OpArrayMean:
		return views.Mean(vals)
	case bytecode.OpArrayMin:
		return views.Min(vals)
	case bytecode.OpArrayMax:
		return views.Max(vals)
	case bytecode.OpArrayStddev:
		return views.StdDev(vals)
	default:
		return math.NaN()
	}
}

// dynamicElementOffset converts a run-time-computed subscript value
// into a 0-based offset within a view of the given size. Dynamic
// subscripts are plain numeric expressions, 1-based like every other
// SD array index (dimensions.Dimension.GetOffset applies the same
// n-1 convention to a literal numeral), rounded to the nearest integer
// since the value arrives as an ordinary float64.
func dynamicElementOffset(v float64, size uint32) (uint32, error) {
	n := math.Round(v)
	if n < 1 || uint32(n) > size {
		return 0, simerr.New(simerr.KindSimulation, simerr.CodeBadSubscript, "subscript out of range")
	}
	return uint32(n) - 1, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func withSpan(err error, d bytecode.DebugInfo) error {
	if eq, ok := err.(simerr.EquationError); ok && eq.Start == 0 && eq.End == 0 {
		eq.Start, eq.End = d.Start, d.End
		return eq
	}
	return err
}
