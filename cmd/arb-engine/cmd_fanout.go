package main

import (
	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/config"
	"github.com/charleschow/arb-engine/internal/hotbus"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// fanoutCmd runs the hot price WebSocket fanout server. Venue price
// adapters (out of scope) connect and call Server.Publish in-process;
// game shards connect over /ws.
func fanoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fanout",
		Short: "Run the hot price fanout WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Service = "fanout"
			telemetry.Init(cfg.LogLevel, cfg.LogFormat, cfg.Service, cfg.ShardID)
			telemetry.ServeMetrics(cfg.MetricsAddr)

			srv := hotbus.NewServer()
			telemetry.Infof("fanout: serving on %s", cfg.HotBusAddr)
			return srv.ListenAndServe(cfg.HotBusAddr)
		},
	}
}
