// Command arb-engine is the single binary for every service in the
// trading engine (orchestrator, discovery, shard, signalproc, execution,
// fanout), consolidated into cobra subcommands, one per service role.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "arb-engine",
		Short: "Cross-venue prediction-market arbitrage and signal-driven trading engine",
	}

	root.AddCommand(
		orchestratorCmd(),
		discoveryCmd(),
		shardCmd(),
		signalprocCmd(),
		executionCmd(),
		fanoutCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
