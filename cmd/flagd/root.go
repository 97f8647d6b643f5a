package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/rollout/pkg/config"
)

type rootFlags struct {
	envFiles []string
	policies string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "flagd",
		Short: "Progressive feature rollout and experimentation engine",
		Long: "flagd resolves feature flags from layered sources, buckets identities\n" +
			"into rollouts and A/B arms, and rolls variants back when they misbehave.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnv(flags.envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "additional .env files to load")
	root.PersistentFlags().StringVar(&flags.policies, "policies", "", "policy file (overrides FLAGD_POLICIES_FILE)")

	root.AddCommand(
		newServeCmd(flags),
		newResolveCmd(flags),
		newBucketCmd(),
		newResetCmd(flags),
	)
	return root
}
