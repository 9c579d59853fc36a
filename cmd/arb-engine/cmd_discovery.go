package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/venue/paper"
)

const teamMatchCacheSize = 1024

func discoveryCmd() *cobra.Command {
	var seriesDir string

	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Run the market-discovery RPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := bringUp("discovery")
			if err != nil {
				return err
			}
			defer am.store.Close()
			defer am.b.Close()

			fetchers := map[model.Venue]discovery.MarketFetcher{
				model.VenueCEX: paper.NewClient(model.VenueCEX, am.store, nil),
				model.VenueDEX: paper.NewClient(model.VenueDEX, am.store, nil),
			}
			resolver := discovery.NewResolver(seriesDir, fetchers)
			srv := discovery.NewServer(am.b, resolver, am.cfg.HeartbeatInterval)
			matchSrv := teammatch.NewServer(am.b, teamMatchCacheSize)

			ctx, cancel := context.WithCancel(context.Background())
			go am.store.HealthMonitor(ctx, am.notifier, am.cfg.DBHealthCheckInterval, am.cfg.DBHealthFailureThreshold)
			go srv.Run(ctx)
			go matchSrv.Run(ctx)

			waitForShutdown("discovery", cancel)
			return nil
		},
	}

	cmd.Flags().StringVar(&seriesDir, "series-dir", "", "directory of per-venue/sport series.json overrides (falls back to built-in defaults)")
	return cmd
}
