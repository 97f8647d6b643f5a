package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/rollout/pkg/bucket"
)

func newBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bucket <identity> <test>",
		Short: "Print the bucket an identity falls into for a test",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bucket.Assign(args[0], args[1])
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", args[0], a.TestName, a.Bucket)
			return err
		},
	}
}
