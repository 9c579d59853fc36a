package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics starts the /metrics and /healthz HTTP endpoints in the
// background; callers do not wait on it, since a scrape endpoint
// outliving the process it describes is not itself a failure worth
// blocking startup on.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			Errorf("telemetry: metrics server: %v", err)
		}
	}()
}

// Metrics is the global prometheus registry, named per concern rather
// than per team so every service (orchestrator, shard, discovery,
// signalproc, execution) registers the same variables and just leans on
// whichever ones its code path touches.
var Metrics = struct {
	PricesReceived    *prometheus.CounterVec
	PriceParseErrors  prometheus.Counter
	EventsProcessed   *prometheus.CounterVec
	SignalsEmitted    *prometheus.CounterVec
	SignalsValidated  *prometheus.CounterVec
	OpportunitiesSeen prometheus.Counter
	OrderIntents      prometheus.Counter
	OrdersSent        *prometheus.CounterVec
	OrderErrors       *prometheus.CounterVec
	ActiveGames       prometheus.Gauge
	AssignedGames     *prometheus.GaugeVec
	PriceLatency      prometheus.Histogram
	OrderE2ELatency   prometheus.Histogram
	RateLimiterWait   prometheus.Histogram
	InboxOverflows    *prometheus.CounterVec
	ReconnectAttempts *prometheus.CounterVec
	CircuitState      *prometheus.GaugeVec
}{
	PricesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_prices_received_total",
		Help: "Order book snapshots received, by venue.",
	}, []string{"venue"}),
	PriceParseErrors: promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_price_parse_errors_total",
		Help: "Price payloads that failed to decode.",
	}),
	EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_events_processed_total",
		Help: "Bus envelopes processed, by channel.",
	}, []string{"channel"}),
	SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_signals_emitted_total",
		Help: "Trading signals emitted by game shards, by market type.",
	}, []string{"market_type"}),
	SignalsValidated: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_signals_validated_total",
		Help: "Signal validation outcomes, by gate that decided them.",
	}, []string{"result"}),
	OpportunitiesSeen: promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_opportunities_seen_total",
		Help: "Cross-venue arbitrage opportunities detected.",
	}),
	OrderIntents: promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_order_intents_total",
		Help: "Execution attempts started, after dedup.",
	}),
	OrdersSent: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_orders_sent_total",
		Help: "Orders placed, by venue.",
	}, []string{"venue"}),
	OrderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_order_errors_total",
		Help: "Order placement failures, by venue.",
	}, []string{"venue"}),
	ActiveGames: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_active_games",
		Help: "Games currently tracked across all shards.",
	}),
	AssignedGames: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arb_assigned_games",
		Help: "Games assigned to a shard, by shard id.",
	}, []string{"shard_id"}),
	PriceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_price_ingest_latency_seconds",
		Help:    "Time from venue timestamp to shard ingest.",
		Buckets: prometheus.DefBuckets,
	}),
	OrderE2ELatency: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_order_e2e_latency_seconds",
		Help:    "Time spent placing an execution attempt's order legs.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}),
	RateLimiterWait: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_rate_limiter_wait_seconds",
		Help:    "Time a caller waited on a venue rate limiter.",
		Buckets: prometheus.DefBuckets,
	}),
	InboxOverflows: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_inbox_overflows_total",
		Help: "Messages dropped because a game shard's inbox was full, by game id.",
	}, []string{"game_id"}),
	ReconnectAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_reconnect_attempts_total",
		Help: "Bus subscription reconnect attempts, by channel.",
	}, []string{"channel"}),
	CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arb_circuit_state",
		Help: "Circuit breaker state by name (0=closed, 1=half-open, 2=open).",
	}, []string{"name"}),
}
