// flagd serves the rollout engine and inspects its decisions.
//
// Usage:
//
//	flagd serve [--policies=<file>] [--env-file=<file>]
//	flagd resolve [--query='ff_theme=dark&ff_legacyMode=1']
//	flagd bucket <identity> <test>
//	flagd reset
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
