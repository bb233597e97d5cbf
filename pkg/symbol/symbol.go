// Package symbol implements the global content-addressed symbol interner
// (spec.md §4.2). Symbols are not GC-managed: they live for the lifetime
// of the runtime, so identity comparison reduces to Go pointer equality on
// the interned *Symbol.
package symbol

import (
	"sync"

	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
)

// Symbol is the boxed shape a symbol's bytes live in. It mirrors
// spec.md §3.5's String layout but is never freed and never visited by
// the collector.
type Symbol struct {
	Bytes []byte
}

func (s *Symbol) String() string { return string(s.Bytes) }

// Table is the process-wide symbol table: a mapping from source string to
// unique symbol identity, plus a second mapping from primitive type
// symbols (u8, ..., cons) to their descriptor, so the parser can resolve
// a type name in one lookup.
type Table struct {
	mu   sync.Mutex
	reg  *rttype.Registry
	byName map[string]*Symbol

	typesBySymbol map[*Symbol]*rttype.Type
}

// NewTable constructs a table preloaded with the primitive type-symbol
// bindings from spec.md §6.5.
func NewTable(reg *rttype.Registry) *Table {
	t := &Table{
		reg:           reg,
		byName:        make(map[string]*Symbol),
		typesBySymbol: make(map[*Symbol]*rttype.Type),
	}
	primitives := map[string]*rttype.Type{
		"any": reg.Any, "nil": reg.Nil,
		"u8": reg.U8, "u16": reg.U16, "u32": reg.U32, "u64": reg.U64,
		"i8": reg.I8, "i16": reg.I16, "i32": reg.I32, "i64": reg.I64,
		"f32": reg.F32, "f64": reg.F64,
		"bool": reg.Bool,
		"cons": reg.BoxedCons,
	}
	for name, ty := range primitives {
		sym := t.internSymbol(name)
		t.typesBySymbol[sym] = ty
	}
	return t
}

func (t *Table) internSymbol(s string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.byName[s]; ok {
		return sym
	}
	sym := &Symbol{Bytes: []byte(s)}
	t.byName[s] = sym
	return sym
}

// Intern returns the Any wrapping the unique Symbol for s. Calling Intern
// twice with the same bytes returns Anys that compare equal by identity.
func (t *Table) Intern(s string) rtvalue.Any {
	sym := t.internSymbol(s)
	return rtvalue.Any{Type: t.reg.PtrSymbol, Ref: &rtvalue.Ref{External: sym}}
}

// LookupType resolves a symbol Any to its bound primitive type, if any.
func (t *Table) LookupType(sym rtvalue.Any) (*rttype.Type, bool) {
	if !rtvalue.IsSymbol(sym) || sym.Ref == nil {
		return nil, false
	}
	s, ok := sym.Ref.External.(*Symbol)
	if !ok {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ty, ok := t.typesBySymbol[s]
	return ty, ok
}

// Text returns the underlying bytes of a symbol Any as a string.
func Text(sym rtvalue.Any) (string, bool) {
	if !rtvalue.IsSymbol(sym) || sym.Ref == nil {
		return "", false
	}
	s, ok := sym.Ref.External.(*Symbol)
	if !ok {
		return "", false
	}
	return s.String(), true
}

// Equal reports whether two symbol Anys name the same interned Symbol.
func Equal(a, b rtvalue.Any) bool {
	if !rtvalue.IsSymbol(a) || !rtvalue.IsSymbol(b) {
		return false
	}
	return a.Ref.External == b.Ref.External
}
