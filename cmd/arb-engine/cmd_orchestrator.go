package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/orchestrator"
)

func orchestratorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orchestrator",
		Short: "Run the game assignment and shard health orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := bringUp("orchestrator")
			if err != nil {
				return err
			}
			defer am.store.Close()
			defer am.b.Close()

			srv := orchestrator.NewServer(am.b, am.store, am.notifier, am.cfg.HeartbeatInterval, am.cfg.ShardCapacity, am.cfg.GameStalenessThreshold)

			ctx, cancel := context.WithCancel(context.Background())
			go am.store.HealthMonitor(ctx, am.notifier, am.cfg.DBHealthCheckInterval, am.cfg.DBHealthFailureThreshold)
			go srv.Run(ctx)

			waitForShutdown("orchestrator", cancel)
			return nil
		},
	}
}
