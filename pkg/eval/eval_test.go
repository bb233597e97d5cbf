package eval_test

import (
	"testing"

	"slangrt/pkg/ast"
	"slangrt/pkg/eval"
	"slangrt/pkg/heap"
	"slangrt/pkg/reader"
	"slangrt/pkg/rttype"
	"slangrt/pkg/rtvalue"
	"slangrt/pkg/symbol"
)

type fixture struct {
	reg  *rttype.Registry
	syms *symbol.Table
	h    *heap.Heap
	sm   *reader.SourceMap
	ev   *eval.Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := rttype.NewRegistry()
	syms := symbol.NewTable(reg)
	h := heap.New(reg)
	sm := reader.NewSourceMap()
	h.SourceMapKeys = sm.Keys
	ev := eval.New(reg, eval.DefaultStackDepth)
	h.AddRootSource(ev.GlobalValues)
	return &fixture{reg: reg, syms: syms, h: h, sm: sm, ev: ev}
}

func (f *fixture) run(t *testing.T, text string) rtvalue.Any {
	t.Helper()
	r := reader.New(f.h, f.syms, f.sm, text)
	forms, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	p := ast.NewParser(f.h, f.syms, f.sm.Lookup)
	program, err := p.ParseTop(forms)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := f.ev.EvalTop(program)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return result
}

func (f *fixture) runErr(t *testing.T, text string) error {
	t.Helper()
	r := reader.New(f.h, f.syms, f.sm, text)
	forms, err := r.ReadAll()
	if err != nil {
		return err
	}
	p := ast.NewParser(f.h, f.syms, f.sm.Lookup)
	program, err := p.ParseTop(forms)
	if err != nil {
		return err
	}
	_, err = f.ev.EvalTop(program)
	return err
}

func i64(t *testing.T, a rtvalue.Any) int64 {
	t.Helper()
	v, ok := rtvalue.ToI64(a)
	if !ok {
		t.Fatalf("expected an integer value, got %+v", a)
	}
	return v
}

func TestEvalLiteral(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "42")
	if i64(t, got) != 42 {
		t.Errorf("got %d", i64(t, got))
	}
}

func TestEvalIf(t *testing.T) {
	f := newFixture(t)
	if i64(t, f.run(t, "(if #t 1 2)")) != 1 {
		t.Error("expected the then-branch")
	}
	if i64(t, f.run(t, "(if #f 1 2)")) != 2 {
		t.Error("expected the else-branch")
	}
}

func TestEvalIfNonBoolPredicateErrors(t *testing.T) {
	f := newFixture(t)
	if err := f.runErr(t, "(if 1 2 3)"); err == nil {
		t.Fatal("expected an error for a non-boolean predicate")
	}
}

func TestEvalDefAndGlobalLookup(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def x 10)\nx")
	if i64(t, got) != 10 {
		t.Errorf("got %d", i64(t, got))
	}
}

func TestEvalRedefinitionErrors(t *testing.T) {
	f := newFixture(t)
	err := f.runErr(t, "(def x 1)\n(def x 2)")
	if err == nil {
		t.Fatal("expected a redefinition error")
	}
}

func TestEvalUnboundGlobalErrors(t *testing.T) {
	f := newFixture(t)
	if err := f.runErr(t, "not-defined"); err == nil {
		t.Fatal("expected an error for an unbound global")
	}
}

func TestEvalFnCallIdentity(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def id (fn (x) x))\n(id 7)")
	if i64(t, got) != 7 {
		t.Errorf("got %d", i64(t, got))
	}
}

func TestEvalFnCallWithMultipleArgs(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def second (fn (x y) y))\n(second 1 2)")
	if i64(t, got) != 2 {
		t.Errorf("got %d", i64(t, got))
	}
}

func TestEvalFnWrongArgCountErrors(t *testing.T) {
	f := newFixture(t)
	err := f.runErr(t, "(def id (fn (x) x))\n(id 1 2)")
	if err == nil {
		t.Fatal("expected an arity error")
	}
}

func TestEvalFnArgTypeMismatchErrors(t *testing.T) {
	f := newFixture(t)
	err := f.runErr(t, "(def id (fn (x:i64) x))\n(id #t)")
	if err == nil {
		t.Fatal("expected a type error for a bool argument where i64 was required")
	}
}

func TestEvalFnAnyParamAcceptsAnything(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def id (fn (x) x))\n(id #t)")
	b, ok := rtvalue.ToBool(got)
	if !ok || !b {
		t.Error("expected the untyped parameter to accept a bool argument")
	}
}

func TestEvalNestedCallNoClosureCapture(t *testing.T) {
	f := newFixture(t)
	// The inner fn does not capture x; referencing it must fail at
	// call time since it resolves as an (unbound) global.
	err := f.runErr(t, "(def outer (fn (x) (fn (y) x)))\n((outer 1) 2)")
	if err == nil {
		t.Fatal("expected an error: inner fn cannot see outer's local x")
	}
}

func TestEvalCallOnNonFunctionErrors(t *testing.T) {
	f := newFixture(t)
	if err := f.runErr(t, "(def x 1)\n(x 2)"); err == nil {
		t.Fatal("expected an error calling a non-function value")
	}
}

func TestEvalBlockReturnsLastValue(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def three (fn () 1 2 3))\n(three)")
	if i64(t, got) != 3 {
		t.Errorf("got %d", i64(t, got))
	}
}

func TestEvalSetLocalMutatesSlotAndReturnsValue(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def replace (fn (x) (set! x 99)))\n(replace 1)")
	if i64(t, got) != 99 {
		t.Errorf("expected set! to return the assigned value, got %d", i64(t, got))
	}
}

func TestEvalSetLocalVisibleToLaterReads(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "(def replace (fn (x) (set! x 99) x))\n(replace 1)")
	if i64(t, got) != 99 {
		t.Errorf("expected the mutated slot to read back 99, got %d", i64(t, got))
	}
}

const whileCounterSource = "(def run (fn (flag count) (while flag (set! flag #f) (set! count 1)) count))\n"

func TestEvalWhileRunsBodyWhilePredicateTrue(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, whileCounterSource+"(run #t 0)")
	if i64(t, got) != 1 {
		t.Errorf("expected the loop body to run once before the predicate flips false, got %d", i64(t, got))
	}
}

func TestEvalWhileNeverRunsBodyIfPredicateStartsFalse(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, whileCounterSource+"(run #f 0)")
	if i64(t, got) != 0 {
		t.Errorf("expected the loop body to never run when the predicate starts false, got %d", i64(t, got))
	}
}

func TestGlobalsSurviveCollection(t *testing.T) {
	f := newFixture(t)
	f.run(t, "(def greeting \"hi\")")
	f.h.Collect()
	got := f.run(t, "greeting")
	text, ok := heap.StringText(got)
	if !ok || text != "hi" {
		t.Fatalf("global string did not survive collection: %q, %v", text, ok)
	}
}
