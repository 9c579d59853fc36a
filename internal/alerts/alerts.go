// Package alerts delivers critical operational alerts — orchestrator
// reassignment storms, kill-switch trips, DB health failures — to a
// webhook with a guaranteed file fallback so an alert is never silently
// lost just because the webhook destination is down. Alerts are
// grouped into a closed Kind enum with per-kind rate limiting, since
// this engine's alerts are operational rather than per-trade
// narration.
package alerts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/charleschow/arb-engine/internal/telemetry"
)

// Kind is the closed set of critical alert kinds. New kinds are added
// here, never as ad hoc strings at call sites.
type Kind string

const (
	AllShardsUnhealthy        Kind = "AllShardsUnhealthy"
	BusConnectivityIssue      Kind = "BusConnectivityIssue"
	DatabaseConnectivityIssue Kind = "DatabaseConnectivityIssue"
	NoMarketDiscoveryServices Kind = "NoMarketDiscoveryServices"
	KillSwitchTriggered       Kind = "KillSwitchTriggered"
)

// Notifier delivers alerts to a webhook, rate-limited per kind, with a
// file fallback that always succeeds (or the process has no writable
// disk, in which case there is nothing left to degrade to).
type Notifier struct {
	client     *resty.Client
	webhookURL string
	fallbackDir string

	mu       sync.Mutex
	lastSent map[Kind]time.Time
	minGap   time.Duration
}

func NewNotifier(webhookURL, fallbackDir string) *Notifier {
	return &Notifier{
		client:      resty.New().SetTimeout(10 * time.Second),
		webhookURL:  webhookURL,
		fallbackDir: fallbackDir,
		lastSent:    make(map[Kind]time.Time),
		minGap:      5 * time.Minute,
	}
}

// Send delivers an alert if Kind has not fired within minGap, else
// drops it silently (the condition is presumed still being reported by
// whatever last fired). Delivery errors are logged, never returned —
// an alert pipeline failure must not interrupt the caller's control
// flow.
func (n *Notifier) Send(kind Kind, message string, fields map[string]string) {
	n.mu.Lock()
	if last, ok := n.lastSent[kind]; ok && time.Since(last) < n.minGap {
		n.mu.Unlock()
		return
	}
	n.lastSent[kind] = time.Now()
	n.mu.Unlock()

	n.writeFallback(kind, message, fields)

	if n.webhookURL == "" {
		return
	}
	if err := n.sendWebhook(kind, message, fields); err != nil {
		telemetry.Warnf("alerts: webhook delivery failed kind=%s: %v", kind, err)
	}
}

type webhookPayload struct {
	Content string            `json:"content"`
	Kind    string            `json:"kind"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (n *Notifier) sendWebhook(kind Kind, message string, fields map[string]string) error {
	resp, err := n.client.R().
		SetBody(webhookPayload{Content: message, Kind: string(kind), Fields: fields}).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("alerts: post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alerts: webhook status=%d", resp.StatusCode())
	}
	return nil
}

func (n *Notifier) writeFallback(kind Kind, message string, fields map[string]string) {
	if n.fallbackDir == "" {
		return
	}
	if err := os.MkdirAll(n.fallbackDir, 0o755); err != nil {
		telemetry.Warnf("alerts: fallback mkdir failed: %v", err)
		return
	}

	path := filepath.Join(n.fallbackDir, "alerts.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		telemetry.Warnf("alerts: fallback open failed: %v", err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] kind=%s msg=%q fields=%v\n", time.Now().UTC().Format(time.RFC3339), kind, message, fields)
	if _, err := f.WriteString(line); err != nil {
		telemetry.Warnf("alerts: fallback write failed: %v", err)
	}
}
