package main

import (
	"os"

	"slangrt/pkg/ast"
	"slangrt/pkg/eval"
	"slangrt/pkg/heap"
	"slangrt/pkg/reader"
	"slangrt/pkg/rttype"
	"slangrt/pkg/symbol"
)

// session bundles one task's worth of runtime state: a registry, symbol
// table, heap, source map and evaluator, matching spec.md §6.1's
// embedding API (init/task_new) collapsed into a single constructor for
// the CLI. The evaluator's global bindings are wired in as an extra GC
// root source so a `(def ...)` survives a later collection.
type session struct {
	reg  *rttype.Registry
	syms *symbol.Table
	h    *heap.Heap
	sm   *reader.SourceMap
	ev   *eval.Evaluator
}

func newSession() *session {
	return newSessionWithStackDepth(eval.DefaultStackDepth)
}

func newSessionWithStackDepth(stackDepth int) *session {
	reg := rttype.NewRegistry()
	syms := symbol.NewTable(reg)
	h := heap.New(reg)
	sm := reader.NewSourceMap()
	h.SourceMapKeys = sm.Keys
	ev := eval.New(reg, stackDepth)
	h.AddRootSource(ev.GlobalValues)
	return &session{reg: reg, syms: syms, h: h, sm: sm, ev: ev}
}

// parseSource reads and parses every top-level form in text.
func (s *session) parseSource(text string) ([]ast.TopLevel, error) {
	r := reader.New(s.h, s.syms, s.sm, text)
	forms, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	p := ast.NewParser(s.h, s.syms, s.sm.Lookup)
	return p.ParseTop(forms)
}

func readFileOrStdin(path string) (string, error) {
	if path == "-" {
		data, err := os.ReadFile("/dev/stdin")
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
