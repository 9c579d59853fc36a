package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/execution"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/venue"
	"github.com/charleschow/arb-engine/internal/venue/paper"
)

func executionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execution",
		Short: "Run the order placement and reconciliation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := bringUp("execution")
			if err != nil {
				return err
			}
			defer am.store.Close()
			defer am.b.Close()

			// Live venue clients are out of scope (the venue adapters are
			// specified only by the events they publish); paper trading is
			// the only registered implementation until an operator wires a
			// real venue.Client in here.
			venues := venue.Registry{
				model.VenueCEX: paper.NewClient(model.VenueCEX, am.store, nil),
				model.VenueDEX: paper.NewClient(model.VenueDEX, am.store, nil),
			}

			svc := execution.NewService(am.b, am.store, venues, am.notifier, am.cfg.ExecutionDeadline)

			ctx, cancel := context.WithCancel(context.Background())
			go am.store.HealthMonitor(ctx, am.notifier, am.cfg.DBHealthCheckInterval, am.cfg.DBHealthFailureThreshold)
			go svc.Run(ctx)

			waitForShutdown("execution", cancel)
			return nil
		},
	}
}
