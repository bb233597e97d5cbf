// Package eval implements the tree-walking evaluator (spec.md §4.7): a
// fixed-depth value stack, a movable frame pointer for local variable
// addressing, and one Evaluator per task sharing the type registry and
// global bindings built up by EvalTop.
package eval

import (
	"slangrt/pkg/ast"
	"slangrt/pkg/heap"
	"slangrt/pkg/rterr"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// DefaultStackDepth bounds the evaluator's value stack, matching the
// original runtime's fixed-size frame stack rather than an
// unboundedly-growing Go slice.
const DefaultStackDepth = 4096

// Evaluator runs a parsed program against a shared global namespace. It
// is not safe for concurrent use: spec.md §5 serializes all evaluation,
// allocation and GC on a single task.
type Evaluator struct {
	reg     *rttype.Registry
	globals map[string]rtvalue.Any

	stack []rtvalue.Any
	frame int
	top   int
}

// New constructs an Evaluator with a stack of depth slots.
func New(reg *rttype.Registry, depth int) *Evaluator {
	if depth <= 0 {
		depth = DefaultStackDepth
	}
	return &Evaluator{
		reg:     reg,
		globals: make(map[string]rtvalue.Any),
		stack:   make([]rtvalue.Any, depth),
	}
}

// Global looks up a previously-defined toplevel binding, for host code
// (the REPL, tests) inspecting results out of band.
func (e *Evaluator) Global(name string) (rtvalue.Any, bool) {
	v, ok := e.globals[name]
	return v, ok
}

// GlobalValues returns a snapshot of every toplevel binding's value.
// Wire this into Heap.AddRootSource so a collection never sweeps a box a
// `(def ...)` is still holding onto.
func (e *Evaluator) GlobalValues() []rtvalue.Any {
	values := make([]rtvalue.Any, 0, len(e.globals))
	for _, v := range e.globals {
		values = append(values, v)
	}
	return values
}

// EvalTop evaluates a parsed program's toplevel items in order (spec.md
// §4.7's GetGlobal/redefinition rules), binding each `(def name expr)`
// into the shared global namespace and returning the value of the last
// item evaluated.
//
// This mirrors original_source/rt_eval.c's split between a restricted
// toplevel evaluator and the full expression evaluator (SPEC_FULL.md
// §6.7): a name may only be introduced once, and only EvalTop may
// introduce one — EvalExpr has no "def" case at all.
func (e *Evaluator) EvalTop(program []ast.TopLevel) (rtvalue.Any, error) {
	var result rtvalue.Any
	for _, top := range program {
		if top.Name != "" {
			if _, exists := e.globals[top.Name]; exists {
				return rtvalue.Nil, rterr.NewSourceError(top.Loc,
					"redefinition of already defined toplevel name: %s", top.Name)
			}
			val, err := e.EvalExpr(top.Expr)
			if err != nil {
				return rtvalue.Nil, err
			}
			e.globals[top.Name] = val
			result = val
			continue
		}
		val, err := e.EvalExpr(top.Expr)
		if err != nil {
			return rtvalue.Nil, err
		}
		result = val
	}
	return result, nil
}

// EvalExpr evaluates a single expression node (spec.md §4.7's full
// instruction set).
func (e *Evaluator) EvalExpr(node *ast.Node) (rtvalue.Any, error) {
	switch node.Kind {
	case ast.KindLiteral:
		return node.Const, nil

	case ast.KindBlock:
		var result rtvalue.Any
		for _, child := range node.Children {
			v, err := e.EvalExpr(child)
			if err != nil {
				return rtvalue.Nil, err
			}
			result = v
		}
		return result, nil

	case ast.KindScope:
		return e.evalScope(node, nil)

	case ast.KindGetGlobal:
		v, ok := e.globals[node.Name]
		if !ok {
			return rtvalue.Nil, rterr.NewSourceError(node.Loc, "no toplevel item with name '%s' found", node.Name)
		}
		return v, nil

	case ast.KindGetLocal:
		idx := e.frame + node.StackIndex
		if idx < 0 || idx >= e.top {
			return rtvalue.Nil, rterr.NewSourceError(node.Loc, "local variable '%s' out of frame", node.Name)
		}
		return e.stack[idx], nil

	case ast.KindSetLocal:
		idx := e.frame + node.StackIndex
		if idx < 0 || idx >= e.top {
			return rtvalue.Nil, rterr.NewSourceError(node.Loc, "local variable '%s' out of frame", node.Name)
		}
		val, err := e.EvalExpr(node.Expr)
		if err != nil {
			return rtvalue.Nil, err
		}
		e.stack[idx] = val
		return val, nil

	case ast.KindCond:
		predVal, err := e.EvalExpr(node.Pred)
		if err != nil {
			return rtvalue.Nil, err
		}
		b, ok := rtvalue.ToBool(predVal)
		if !ok {
			return rtvalue.Nil, rterr.NewSourceError(node.Loc, "boolean value required for conditional predicate")
		}
		if b {
			return e.EvalExpr(node.Then)
		}
		return e.EvalExpr(node.Else)

	case ast.KindLoop:
		var result rtvalue.Any
		for {
			predVal, err := e.EvalExpr(node.Pred)
			if err != nil {
				return rtvalue.Nil, err
			}
			b, ok := rtvalue.ToBool(predVal)
			if !ok {
				return rtvalue.Nil, rterr.NewSourceError(node.Loc, "boolean value required for loop predicate")
			}
			if !b {
				break
			}
			result, err = e.EvalExpr(node.Body)
			if err != nil {
				return rtvalue.Nil, err
			}
		}
		return result, nil

	case ast.KindCall:
		return e.evalCall(node)

	default:
		return rtvalue.Nil, rterr.NewSourceError(node.Loc, "unhandled AST node kind %s", node.Kind)
	}
}

// evalScope implements spec.md §4.7's Scope instruction: reserve
// VarCount slots at the current stack top, evaluate Expr with those
// slots as the new frame, then pop back to the prior top. initial
// supplies the slots' starting values (used by Call to bind arguments);
// slots beyond len(initial) start nil.
func (e *Evaluator) evalScope(node *ast.Node, initial []rtvalue.Any) (rtvalue.Any, error) {
	base := e.top
	if base+node.VarCount > len(e.stack) {
		return rtvalue.Nil, rterr.NewSourceError(node.Loc, "value stack exhausted")
	}
	for i := 0; i < node.VarCount; i++ {
		if i < len(initial) {
			e.stack[base+i] = initial[i]
		} else {
			e.stack[base+i] = rtvalue.Nil
		}
	}

	savedFrame, savedTop := e.frame, e.top
	e.frame, e.top = base, base+node.VarCount
	result, err := e.EvalExpr(node.Expr)
	e.frame, e.top = savedFrame, savedTop
	return result, err
}

func (e *Evaluator) evalCall(node *ast.Node) (rtvalue.Any, error) {
	calleeVal, err := e.EvalExpr(node.Callee)
	if err != nil {
		return rtvalue.Nil, err
	}
	if !heap.IsFunc(calleeVal) {
		return rtvalue.Nil, rterr.NewSourceError(node.Loc, "expected a callable value")
	}
	fn, ok := heap.FuncBody(calleeVal).(*ast.Func)
	if !ok || fn == nil {
		return rtvalue.Nil, rterr.NewSourceError(node.Loc, "expected a callable value")
	}
	if len(node.Args) != len(fn.Params) {
		return rtvalue.Nil, rterr.NewSourceError(node.Loc,
			"wrong number of arguments: expected %d, got %d", len(fn.Params), len(node.Args))
	}

	argVals := make([]rtvalue.Any, len(node.Args))
	for i, argNode := range node.Args {
		v, err := e.EvalExpr(argNode)
		if err != nil {
			return rtvalue.Nil, err
		}
		want := fn.Params[i].Type
		if want != e.reg.Any && v.Type != want {
			return rtvalue.Nil, rterr.NewSourceError(argNode.Loc,
				"argument %d: expected type %s, got %s", i+1, want.Desc, typeDesc(v.Type))
		}
		argVals[i] = v
	}

	if fn.Body.Kind == ast.KindScope {
		return e.evalScope(fn.Body, argVals)
	}
	return e.EvalExpr(fn.Body)
}

func typeDesc(t *rttype.Type) string {
	if t == nil {
		return "nil"
	}
	return t.Desc
}
