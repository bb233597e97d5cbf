package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slangrt/pkg/rterr"
)

func newGCStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc-stats <file>",
		Short: "Evaluate a file, collect once, and report allocator/collector counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer rterr.Recover(&err)
			text, err := readFileOrStdin(args[0])
			if err != nil {
				return err
			}
			s := newSession()
			program, err := s.parseSource(text)
			if err != nil {
				return err
			}
			if _, err := s.ev.EvalTop(program); err != nil {
				return err
			}

			before := s.h.BoxCount()
			s.h.Collect()
			after := s.h.BoxCount()

			fmt.Printf("allocated:  %d\n", s.h.AllocCount())
			fmt.Printf("live before collect: %d\n", before)
			fmt.Printf("live after collect:  %d\n", after)
			fmt.Printf("freed this collection: %d\n", before-after)
			fmt.Printf("collections run: %d\n", s.h.Collections())
			return nil
		},
	}
	return cmd
}
