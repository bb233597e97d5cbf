package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slangrt/pkg/eval"
	"slangrt/pkg/printer"
	"slangrt/pkg/rterr"
)

func newRunCmd() *cobra.Command {
	var expr string
	var stackDepth int

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Evaluate a source file or an inline expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer rterr.Recover(&err)
			var text string
			switch {
			case expr != "":
				text = expr
			case len(args) == 1:
				t, err := readFileOrStdin(args[0])
				if err != nil {
					return err
				}
				text = t
			default:
				return fmt.Errorf("run requires a file argument or -e")
			}

			s := newSessionWithStackDepth(stackDepth)
			program, err := s.parseSource(text)
			if err != nil {
				return err
			}
			result, err := s.ev.EvalTop(program)
			if err != nil {
				return err
			}
			fmt.Println(printer.Print(result))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&expr, "eval", "e", "", "evaluate this expression instead of a file")
	flags.IntVar(&stackDepth, "stack-depth", eval.DefaultStackDepth, "evaluator value-stack depth")
	return cmd
}
