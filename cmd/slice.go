package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scriptwalk/internal/slicing"
)

// newSliceCmd exposes the slice expressions used by loops and captureList.
func newSliceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slice <expr> [items...]",
		Short: "Apply a start:stop slice expression to a list",
		Long: `Prints the items selected by the expression, one per line. Bounds may be
omitted or negative, so "1:-1" drops the first and last items. Without
item arguments, items are read from stdin, one per line.`,
		Example: `  scriptwalk slice 1:-1 a b c d
  printf 'a\nb\nc\n' | scriptwalk slice -- -2:`,
		Args: cobra.MinimumNArgs(1),
		// Slicing needs no config or logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			items := args[1:]
			if len(items) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					items = append(items, scanner.Text())
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read items: %w", err)
				}
			}

			selected, err := slicing.Apply(args[0], items)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range selected {
				fmt.Fprintln(out, item)
			}
			return nil
		},
	}
}
