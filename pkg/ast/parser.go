package ast

import (
	"slangrt/pkg/heap"
	"slangrt/pkg/rterr"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
	"slangrt/pkg/symbol"
)

// LocFunc looks up the source location recorded for a cons-identified
// form. Parser takes this as a function rather than a concrete
// reader.SourceMap so ast never needs to import reader.
type LocFunc func(rtvalue.Any) (rterr.SourceLoc, bool)

// TopLevel is one item of a parsed program: either a `(def name expr)`
// binding (Name non-empty) or a bare top-level expression.
type TopLevel struct {
	Name string
	Expr *Node
	Loc  rterr.SourceLoc
}

// Parser walks cons-linked reader forms into the AST (spec.md §4.6).
type Parser struct {
	reg  *rttype.Registry
	syms *symbol.Table
	h    *heap.Heap
	locOf LocFunc
}

func NewParser(h *heap.Heap, syms *symbol.Table, locOf LocFunc) *Parser {
	return &Parser{reg: h.Registry(), syms: syms, h: h, locOf: locOf}
}

func (p *Parser) locFor(form rtvalue.Any) rterr.SourceLoc {
	if p.locOf == nil {
		return rterr.SourceLoc{}
	}
	loc, _ := p.locOf(form)
	return loc
}

func (p *Parser) errorf(form rtvalue.Any, format string, args ...any) error {
	return rterr.NewSourceError(p.locFor(form), format, args...)
}

func symbolNamed(form rtvalue.Any, name string) bool {
	text, ok := symbol.Text(form)
	return ok && text == name
}

// scope is a single flat list of local-variable names introduced by a
// `fn` parameter list; this runtime has no nested lexical scoping beyond
// one function's own parameters (spec.md §4.7 indexes locals "relative
// to current frame top" with no mention of closing over an enclosing
// frame), so a nested fn simply starts a fresh scope.
type scope struct {
	names []string
}

func (s *scope) lookup(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for i, n := range s.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ParseTop parses a whole program: each reader form becomes either a
// `(def name expr)` binding or a bare expression (spec.md §4.6: "Top
// level: (def name expr)").
func (p *Parser) ParseTop(forms []rtvalue.Any) ([]TopLevel, error) {
	var out []TopLevel
	for _, f := range forms {
		loc := p.locFor(f)
		if rtvalue.IsCons(f) {
			head := rtvalue.ConsCar(f)
			if symbolNamed(head, "def") {
				rest := rtvalue.ConsCdr(f)
				if !rtvalue.IsCons(rest) {
					return nil, p.errorf(f, "def requires a name and an expression")
				}
				nameForm := rtvalue.ConsCar(rest)
				name, ok := symbol.Text(nameForm)
				if !ok {
					return nil, p.errorf(rest, "def requires a symbol name")
				}
				rest2 := rtvalue.ConsCdr(rest)
				if !rtvalue.IsCons(rest2) {
					return nil, p.errorf(rest, "def requires an expression")
				}
				expr, err := p.parseExpr(rtvalue.ConsCar(rest2), nil)
				if err != nil {
					return nil, err
				}
				out = append(out, TopLevel{Name: name, Expr: expr, Loc: loc})
				continue
			}
		}
		expr, err := p.parseExpr(f, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, TopLevel{Expr: expr, Loc: loc})
	}
	return out, nil
}

// ParseExpr parses a single expression form with no enclosing locals;
// exported for callers (e.g. a REPL) that evaluate one form at a time
// outside of any top-level definition.
func (p *Parser) ParseExpr(form rtvalue.Any) (*Node, error) {
	return p.parseExpr(form, nil)
}

func (p *Parser) parseExpr(form rtvalue.Any, sc *scope) (*Node, error) {
	loc := p.locFor(form)

	if !rtvalue.IsCons(form) {
		if rtvalue.IsSymbol(form) {
			name, _ := symbol.Text(form)
			if idx, ok := sc.lookup(name); ok {
				return &Node{Kind: KindGetLocal, Loc: loc, Name: name, StackIndex: idx}, nil
			}
			return &Node{Kind: KindGetGlobal, Loc: loc, Name: name}, nil
		}
		return &Node{Kind: KindLiteral, Loc: loc, Type: form.Type, Const: form}, nil
	}

	head := rtvalue.ConsCar(form)
	if rtvalue.IsSymbol(head) {
		name, _ := symbol.Text(head)
		switch name {
		case "def":
			return nil, p.errorf(form, "can only define globals at toplevel")
		case "quote":
			rest := rtvalue.ConsCdr(form)
			quoted := rtvalue.ConsCar(rest)
			return &Node{Kind: KindLiteral, Loc: loc, Type: quoted.Type, Const: quoted}, nil
		case "if":
			return p.parseIf(form, sc)
		case "fn":
			return p.parseFn(form, sc)
		case "set!":
			return p.parseSet(form, sc)
		case "while":
			return p.parseWhile(form, sc)
		}
	}
	return p.parseCall(form, sc)
}

func (p *Parser) parseIf(form rtvalue.Any, sc *scope) (*Node, error) {
	loc := p.locFor(form)
	args := rtvalue.ConsCdr(form)
	if !rtvalue.IsCons(args) {
		return nil, p.errorf(form, "if requires a predicate, then and else expression")
	}
	predForm := rtvalue.ConsCar(args)
	rest := rtvalue.ConsCdr(args)
	if !rtvalue.IsCons(rest) {
		return nil, p.errorf(args, "if requires a then expression")
	}
	thenForm := rtvalue.ConsCar(rest)
	rest2 := rtvalue.ConsCdr(rest)
	if !rtvalue.IsCons(rest2) {
		return nil, p.errorf(rest, "if requires an else expression")
	}
	elseForm := rtvalue.ConsCar(rest2)

	pred, err := p.parseExpr(predForm, sc)
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr(thenForm, sc)
	if err != nil {
		return nil, err
	}
	els, err := p.parseExpr(elseForm, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindCond, Loc: loc, Pred: pred, Then: then, Else: els}, nil
}

// parseSet parses `(set! name expr)`, assigning a new value into an
// already-bound local slot (spec.md §4.6: SetLocal addresses a slot
// relative to the current frame top; there is no surface form for
// rebinding a global, only `def` to introduce one).
func (p *Parser) parseSet(form rtvalue.Any, sc *scope) (*Node, error) {
	loc := p.locFor(form)
	rest := rtvalue.ConsCdr(form)
	if !rtvalue.IsCons(rest) {
		return nil, p.errorf(form, "set! requires a name and an expression")
	}
	nameForm := rtvalue.ConsCar(rest)
	name, ok := symbol.Text(nameForm)
	if !ok {
		return nil, p.errorf(rest, "set! requires a symbol name")
	}
	rest2 := rtvalue.ConsCdr(rest)
	if !rtvalue.IsCons(rest2) {
		return nil, p.errorf(rest, "set! requires an expression")
	}
	idx, ok := sc.lookup(name)
	if !ok {
		return nil, p.errorf(nameForm, "set!: '%s' is not a local variable", name)
	}
	val, err := p.parseExpr(rtvalue.ConsCar(rest2), sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindSetLocal, Loc: loc, Name: name, StackIndex: idx, Expr: val}, nil
}

// parseWhile parses `(while pred body...)` into a Loop node (spec.md
// §4.7: "Loop: evaluate predicate; while true evaluate body").
func (p *Parser) parseWhile(form rtvalue.Any, sc *scope) (*Node, error) {
	loc := p.locFor(form)
	rest := rtvalue.ConsCdr(form)
	if !rtvalue.IsCons(rest) {
		return nil, p.errorf(form, "while requires a predicate")
	}
	predForm := rtvalue.ConsCar(rest)
	pred, err := p.parseExpr(predForm, sc)
	if err != nil {
		return nil, err
	}
	var children []*Node
	for cur := rtvalue.ConsCdr(rest); rtvalue.IsCons(cur); cur = rtvalue.ConsCdr(cur) {
		child, err := p.parseExpr(rtvalue.ConsCar(cur), sc)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	body := &Node{Kind: KindBlock, Loc: loc, Children: children}
	return &Node{Kind: KindLoop, Loc: loc, Pred: pred, Body: body}, nil
}

func (p *Parser) parseCall(form rtvalue.Any, sc *scope) (*Node, error) {
	loc := p.locFor(form)
	calleeForm := rtvalue.ConsCar(form)
	callee, err := p.parseExpr(calleeForm, sc)
	if err != nil {
		return nil, err
	}
	var args []*Node
	for rest := rtvalue.ConsCdr(form); rtvalue.IsCons(rest); rest = rtvalue.ConsCdr(rest) {
		arg, err := p.parseExpr(rtvalue.ConsCar(rest), sc)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return &Node{Kind: KindCall, Loc: loc, Callee: callee, Args: args}, nil
}

// parseFn parses `(fn params body...)` and `(fn (: params ret) body...)`
// (spec.md §4.6) into a Literal node wrapping a boxed function value.
func (p *Parser) parseFn(form rtvalue.Any, outer *scope) (*Node, error) {
	loc := p.locFor(form)
	rest := rtvalue.ConsCdr(form)
	if !rtvalue.IsCons(rest) {
		return nil, p.errorf(form, "fn requires a parameter list")
	}
	paramsSpec := rtvalue.ConsCar(rest)
	bodyForms := rtvalue.ConsCdr(rest)

	paramsForm := paramsSpec
	retType := p.reg.Any
	if rtvalue.IsCons(paramsSpec) && symbolNamed(rtvalue.ConsCar(paramsSpec), ":") {
		inner := rtvalue.ConsCdr(paramsSpec)
		if !rtvalue.IsCons(inner) {
			return nil, p.errorf(paramsSpec, "invalid typed parameter list")
		}
		paramsForm = rtvalue.ConsCar(inner)
		inner2 := rtvalue.ConsCdr(inner)
		if !rtvalue.IsCons(inner2) {
			return nil, p.errorf(paramsSpec, "invalid typed parameter list: missing return type")
		}
		var err error
		retType, err = p.parseType(rtvalue.ConsCar(inner2))
		if err != nil {
			return nil, err
		}
	}

	var names []string
	var params []rttype.FuncParam
	for cur := paramsForm; rtvalue.IsCons(cur); cur = rtvalue.ConsCdr(cur) {
		name, ty, err := p.parseParam(rtvalue.ConsCar(cur))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		params = append(params, rttype.FuncParam{Type: ty, Name: name})
	}

	inner := &scope{names: names}
	var children []*Node
	for cur := bodyForms; rtvalue.IsCons(cur); cur = rtvalue.ConsCdr(cur) {
		child, err := p.parseExpr(rtvalue.ConsCar(cur), inner)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	body := &Node{Kind: KindBlock, Loc: loc, Children: children}
	scopeNode := &Node{Kind: KindScope, Loc: loc, VarCount: len(names), Expr: body}

	funcType := p.reg.Func(retType, params)
	fn := &Func{Params: params, Return: retType, Body: scopeNode, VarCount: len(names)}
	boxed := p.h.NewFunc(funcType, fn)
	return &Node{Kind: KindLiteral, Loc: loc, Type: boxed.Type, Const: boxed}, nil
}

func (p *Parser) parseParam(form rtvalue.Any) (string, *rttype.Type, error) {
	if rtvalue.IsSymbol(form) {
		name, _ := symbol.Text(form)
		return name, p.reg.Any, nil
	}
	if rtvalue.IsCons(form) && symbolNamed(rtvalue.ConsCar(form), ":") {
		rest := rtvalue.ConsCdr(form)
		if !rtvalue.IsCons(rest) {
			return "", nil, p.errorf(form, "invalid typed parameter")
		}
		nameForm := rtvalue.ConsCar(rest)
		name, ok := symbol.Text(nameForm)
		if !ok {
			return "", nil, p.errorf(rest, "typed parameter requires a symbol name")
		}
		rest2 := rtvalue.ConsCdr(rest)
		if !rtvalue.IsCons(rest2) {
			return "", nil, p.errorf(rest, "typed parameter requires a type")
		}
		ty, err := p.parseType(rtvalue.ConsCar(rest2))
		if err != nil {
			return "", nil, err
		}
		return name, ty, nil
	}
	return "", nil, p.errorf(form, "invalid parameter")
}

// parseType resolves a type form (spec.md §4.6, supplemented per
// SPEC_FULL.md §6.6 with struct/func forms).
func (p *Parser) parseType(form rtvalue.Any) (*rttype.Type, error) {
	if !rtvalue.IsCons(form) {
		if !rtvalue.IsSymbol(form) {
			return nil, p.errorf(form, "invalid type")
		}
		ty, ok := p.syms.LookupType(form)
		if !ok {
			return nil, p.errorf(form, "invalid type")
		}
		return ty, nil
	}

	head := rtvalue.ConsCar(form)
	if !rtvalue.IsSymbol(head) {
		return nil, p.errorf(form, "invalid type")
	}
	name, _ := symbol.Text(head)
	rest := rtvalue.ConsCdr(form)

	switch name {
	case "array":
		if !rtvalue.IsCons(rest) {
			return nil, p.errorf(form, "invalid array type")
		}
		elemType, err := p.parseType(rtvalue.ConsCar(rest))
		if err != nil {
			return nil, err
		}
		rest2 := rtvalue.ConsCdr(rest)
		if !rtvalue.IsCons(rest2) {
			if rest2.IsNil() {
				return p.reg.Array(elemType, 0), nil
			}
			return nil, p.errorf(rest, "invalid array type")
		}
		countForm := rtvalue.ConsCar(rest2)
		n, ok := rtvalue.ToU64(countForm)
		if !ok {
			return nil, p.errorf(rest2, "invalid array type: expected element count")
		}
		if !rtvalue.ConsCdr(rest2).IsNil() {
			return nil, p.errorf(rest2, "invalid array type")
		}
		return p.reg.Array(elemType, int(n)), nil

	case "ptr":
		if !rtvalue.IsCons(rest) || !rtvalue.ConsCdr(rest).IsNil() {
			return nil, p.errorf(form, "invalid ptr type")
		}
		target, err := p.parseType(rtvalue.ConsCar(rest))
		if err != nil {
			return nil, err
		}
		return p.reg.Ptr(target), nil

	case "struct":
		if !rtvalue.IsCons(rest) {
			return nil, p.errorf(form, "invalid struct type: missing name")
		}
		nameForm := rtvalue.ConsCar(rest)
		structName, ok := symbol.Text(nameForm)
		if !ok {
			return nil, p.errorf(rest, "invalid struct type: name must be a symbol")
		}
		var fields []rttype.StructField
		offset := 0
		for cur := rtvalue.ConsCdr(rest); rtvalue.IsCons(cur); cur = rtvalue.ConsCdr(cur) {
			fieldForm := rtvalue.ConsCar(cur)
			if !rtvalue.IsCons(fieldForm) {
				return nil, p.errorf(fieldForm, "invalid struct field")
			}
			fnameForm := rtvalue.ConsCar(fieldForm)
			fname, ok := symbol.Text(fnameForm)
			if !ok {
				return nil, p.errorf(fieldForm, "struct field name must be a symbol")
			}
			ftypeRest := rtvalue.ConsCdr(fieldForm)
			if !rtvalue.IsCons(ftypeRest) {
				return nil, p.errorf(fieldForm, "struct field requires a type")
			}
			fieldType, err := p.parseType(rtvalue.ConsCar(ftypeRest))
			if err != nil {
				return nil, err
			}
			fields = append(fields, rttype.StructField{Type: fieldType, Name: fname, Offset: offset})
			offset++
		}
		return p.reg.Struct(structName, len(fields), fields), nil

	case "fn":
		if !rtvalue.IsCons(rest) {
			return nil, p.errorf(form, "invalid fn type: missing parameter types")
		}
		paramsForm := rtvalue.ConsCar(rest)
		rest2 := rtvalue.ConsCdr(rest)
		if !rtvalue.IsCons(rest2) {
			return nil, p.errorf(rest, "invalid fn type: missing return type")
		}
		var params []rttype.FuncParam
		for cur := paramsForm; rtvalue.IsCons(cur); cur = rtvalue.ConsCdr(cur) {
			pt, err := p.parseType(rtvalue.ConsCar(cur))
			if err != nil {
				return nil, err
			}
			params = append(params, rttype.FuncParam{Type: pt})
		}
		retType, err := p.parseType(rtvalue.ConsCar(rest2))
		if err != nil {
			return nil, err
		}
		return p.reg.Func(retType, params), nil
	}

	return nil, p.errorf(form, "unrecognized type: %s", name)
}
