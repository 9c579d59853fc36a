package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/charleschow/arb-engine/internal/config"
	"github.com/charleschow/arb-engine/internal/signalproc"
	"github.com/charleschow/arb-engine/internal/teammatch"
)

const teamMatchRPCTimeout = 2 * time.Second

func signalprocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signalproc",
		Short: "Run the signal validation and sizing pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := bringUp("signalproc")
			if err != nil {
				return err
			}
			defer am.store.Close()
			defer am.b.Close()

			riskLimits, err := config.LoadRiskLimits(am.cfg.RiskLimitsPath)
			if err != nil {
				return err
			}

			matcher := teammatch.NewClient(am.b, teamMatchRPCTimeout)
			proc := signalproc.NewProcessor(am.b, am.store, matcher, signalproc.Config{
				Freshness:          am.cfg.SignalFreshness,
				MinMatchConfidence: am.cfg.MinMatchConfidence,
				MaxPositionPercent: am.cfg.MaxPositionPercent,
				RiskLimits:         riskLimits,
			})

			ctx, cancel := context.WithCancel(context.Background())
			go am.store.HealthMonitor(ctx, am.notifier, am.cfg.DBHealthCheckInterval, am.cfg.DBHealthFailureThreshold)
			go proc.Run(ctx)

			waitForShutdown("signalproc", cancel)
			return nil
		},
	}
}
