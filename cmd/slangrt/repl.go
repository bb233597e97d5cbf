package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"slangrt/pkg/printer"
	"slangrt/pkg/rterr"
	"slangrt/pkg/rtvalue"
)

func newReplCmd() *cobra.Command {
	var stackDepth int

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(stackDepth)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&stackDepth, "stack-depth", 0, "evaluator value-stack depth (0 selects the default)")
	return cmd
}

// runRepl reads one line at a time, evaluates every form on it against a
// single session's global namespace, and prints the last form's result, so
// that `(def ...)`
// in one line is visible to every line after it. :gc triggers a manual
// collection to make the collector's bookkeeping observable interactively.
func runRepl(stackDepth int) error {
	s := newSessionWithStackDepth(stackDepth)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "slangrt> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ":gc":
			before := s.h.BoxCount()
			s.h.Collect()
			after := s.h.BoxCount()
			fmt.Printf("collected: %d -> %d live boxes\n", before, after)
			continue
		case line == ":quit", line == ":q":
			return nil
		}

		result, err := evalLine(s, line)
		if err != nil {
			fmt.Fprintln(rl.Stderr(), err)
			continue
		}
		fmt.Println(printer.Print(result))
	}
}

// evalLine parses and evaluates a single REPL line. A FatalError panic
// (a programmer-error class condition, e.g. an invalid Weak() request)
// is recovered here rather than crashing the whole session, so one bad
// line reports cleanly and the REPL keeps running.
func evalLine(s *session, line string) (result rtvalue.Any, err error) {
	defer rterr.Recover(&err)

	program, err := s.parseSource(line)
	if err != nil {
		return rtvalue.Nil, err
	}
	return s.ev.EvalTop(program)
}
