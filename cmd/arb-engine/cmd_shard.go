package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/shard"
)

const discoveryRPCTimeout = 3 * time.Second

func shardCmd() *cobra.Command {
	var marketType string

	cmd := &cobra.Command{
		Use:   "shard",
		Short: "Run a game shard that tracks assigned games and emits signals/opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := bringUp("shard")
			if err != nil {
				return err
			}
			defer am.store.Close()
			defer am.b.Close()

			if am.cfg.ShardID == "" {
				return fmt.Errorf("shard: ARB_SHARD_ID must be set")
			}

			discoClient := discovery.NewClient(am.b, discoveryRPCTimeout)

			cfg := shard.SignalConfig{
				NoiseGate:       am.cfg.NoiseGate,
				EdgeThreshold:   am.cfg.EdgeThreshold,
				LiquidityFloor:  am.cfg.LiquidityFloor,
				VenuePreference: venuePreference(am.cfg.VenuePreference),
				MarketType:      model.MarketType(marketType),
			}

			mgr := shard.NewManager(am.cfg.ShardID, am.b, am.cfg.HotBusAddr, discoClient, am.store, cfg, am.cfg.SignalMaxAge, am.cfg.SignalMaxAge)

			ctx, cancel := context.WithCancel(context.Background())
			go am.store.HealthMonitor(ctx, am.notifier, am.cfg.DBHealthCheckInterval, am.cfg.DBHealthFailureThreshold)
			go mgr.Run(ctx, am.cfg.HeartbeatInterval)

			waitForShutdown("shard", cancel)
			return nil
		},
	}

	cmd.Flags().StringVar(&marketType, "market-type", string(model.MarketMoneyline), "market type this shard tracks (moneyline, spread, total)")
	return cmd
}

func venuePreference(names []string) []model.Venue {
	venues := make([]model.Venue, 0, len(names))
	for _, n := range names {
		venues = append(venues, model.Venue(n))
	}
	return venues
}
