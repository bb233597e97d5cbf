// Package ast defines the evaluator's node tree and the Parser that
// builds it from cons-linked reader forms.
package ast

import (
	"slangrt/pkg/rterr"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// Kind is the closed set of AST node kinds (spec.md §4.6).
type Kind int

const (
	KindLiteral Kind = iota
	KindScope
	KindBlock
	KindGetGlobal
	KindGetLocal
	KindSetLocal
	KindCond
	KindLoop
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindScope:
		return "scope"
	case KindBlock:
		return "block"
	case KindGetGlobal:
		return "get-global"
	case KindGetLocal:
		return "get-local"
	case KindSetLocal:
		return "set-local"
	case KindCond:
		return "cond"
	case KindLoop:
		return "loop"
	case KindCall:
		return "call"
	default:
		return "kind?"
	}
}

// Node is a single AST node. One struct carries every kind's fields,
// tagged by Kind, matching the teacher's one-struct-per-tagged-union
// style (pkg/ast.Value in the source this was adapted from) rather than
// a Go interface with one implementation per kind.
type Node struct {
	Kind Kind
	Loc  rterr.SourceLoc
	Type *rttype.Type // result type, when statically known

	// KindLiteral
	Const rtvalue.Any

	// KindScope: reserves VarCount stack slots, evaluates Expr, pops them.
	VarCount int
	Expr     *Node

	// KindBlock: evaluated in order, result is the last child's.
	Children []*Node

	// KindGetGlobal / KindSetLocal / KindGetLocal: symbol name this node
	// resolves, and (for locals) its slot index relative to the current
	// frame top.
	Name       string
	StackIndex int

	// KindCond / KindLoop
	Pred *Node
	Then *Node
	Else *Node
	Body *Node

	// KindCall
	Callee *Node
	Args   []*Node
}

// Func is the boxed payload of a function-kind value: the compiled body
// plus the parameter/return types already folded into Type.Func on the
// node's descriptor.
type Func struct {
	Params []rttype.FuncParam
	Return *rttype.Type
	Body   *Node

	// VarCount is the number of local slots the body's top Scope node
	// reserves, including the parameters themselves.
	VarCount int
}
