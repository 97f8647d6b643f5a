package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

func newResolveCmd(flags *rootFlags) *cobra.Command {
	var (
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved flags and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
			if err != nil {
				return fmt.Errorf("parse query: %w", err)
			}
			return runResolve(cmd.Context(), flags, values, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "preview overrides, e.g. ff_theme=dark&ff_legacyMode=1")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func runResolve(ctx context.Context, flags *rootFlags, values url.Values, asJSON bool, out io.Writer) error {
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	if err := a.engine.Start(ctx); err != nil {
		return err
	}
	return printFlags(out, a.engine.Preview(values), asJSON)
}

func printFlags(out io.Writer, flags *feature.FlagSet, asJSON bool) error {
	entries := flags.Entries()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLAG\tVALUE\tORIGIN\tEXPANDED BY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Value, e.Origin, e.ExpandedBy)
	}
	return tw.Flush()
}
