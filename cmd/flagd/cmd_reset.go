package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newResetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete persisted overrides and print the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}
}

func runReset(ctx context.Context, flags *rootFlags, out io.Writer) error {
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	if err := a.engine.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "overrides cleared")
	return printFlags(out, a.engine.Flags(), false)
}
