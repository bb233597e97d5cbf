package printer_test

import (
	"testing"

	"slangrt/pkg/heap"
	"slangrt/pkg/printer"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
	"slangrt/pkg/symbol"
)

func TestPrintScalars(t *testing.T) {
	reg := rttype.NewRegistry()
	tests := []struct {
		name string
		v    rtvalue.Any
		want string
	}{
		{"nil", rtvalue.Nil, "()"},
		{"true", rtvalue.NewBool(reg, true), "#t"},
		{"false", rtvalue.NewBool(reg, false), "#f"},
		{"i64", rtvalue.NewI64(reg, -5), "-5"},
		{"u64", rtvalue.NewU64(reg, 5), "5"},
		{"f64", rtvalue.NewF64(reg, 2.5), "2.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := printer.Print(tc.v); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrintCons(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	list := h.NewCons(rtvalue.NewI64(reg, 1),
		h.NewCons(rtvalue.NewI64(reg, 2), rtvalue.Nil))
	if got := printer.Print(list); got != "(1 2)" {
		t.Errorf("got %q", got)
	}
}

func TestPrintImproperList(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	pair := h.NewCons(rtvalue.NewI64(reg, 1), rtvalue.NewI64(reg, 2))
	if got := printer.Print(pair); got != "(1 . 2)" {
		t.Errorf("got %q", got)
	}
}

func TestPrintString(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	s := h.NewString("a\nb\"c")
	if got := printer.Print(s); got != `"a\nb\"c"` {
		t.Errorf("got %q", got)
	}
}

func TestPrintSymbol(t *testing.T) {
	reg := rttype.NewRegistry()
	syms := symbol.NewTable(reg)
	sym := syms.Intern("foo")
	if got := printer.Print(sym); got != "foo" {
		t.Errorf("got %q", got)
	}
}

func TestPrintFuncUsesDiagnosticForm(t *testing.T) {
	reg := rttype.NewRegistry()
	h := heap.New(reg)
	ft := reg.Func(reg.I64, nil)
	fn := h.NewFunc(ft, "body")
	got := printer.Print(fn)
	if got == "" || got[0] != '#' {
		t.Errorf("expected a #<...> diagnostic form for a func value, got %q", got)
	}
}
