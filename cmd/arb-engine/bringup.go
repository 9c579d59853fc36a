package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/config"
	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// ambient bundles the pieces every service loads identically — config,
// logger, metrics endpoint, bus, store, alert notifier — as one struct
// every subcommand's RunE embeds.
type ambient struct {
	cfg      *config.Config
	b        *bus.Bus
	store    *store.Store
	notifier *alerts.Notifier
}

func bringUp(serviceName string) (*ambient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Service = serviceName

	telemetry.Init(cfg.LogLevel, cfg.LogFormat, cfg.Service, cfg.ShardID)
	telemetry.ServeMetrics(cfg.MetricsAddr)
	telemetry.Infof("%s: starting", serviceName)

	notifier := alerts.NewNotifier(cfg.AlertsWebhookURL, cfg.AlertsFallbackDir)

	b := bus.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, notifier, cfg.BusMaxFailures,
		time.Duration(cfg.BusBaseDelayMs)*time.Millisecond, time.Duration(cfg.BusMaxDelayMs)*time.Millisecond, cfg.BusJitterPct)

	bounds := dbpool.LowLatency
	if cfg.DBPoolPreset == "high_throughput" {
		bounds = dbpool.HighThroughput
	}
	st, err := store.Open(cfg.PostgresDSN, bounds)
	if err != nil {
		return nil, err
	}

	return &ambient{cfg: cfg, b: b, store: st, notifier: notifier}, nil
}

// waitForShutdown blocks until SIGINT/SIGTERM, then cancels ctx and
// logs completion, repeated identically per service.
func waitForShutdown(serviceName string, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("%s: shutting down", serviceName)
	cancel()
}
