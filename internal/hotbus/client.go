package hotbus

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// SnapshotHandler receives one decoded order book snapshot.
type SnapshotHandler func(model.OrderBookSnapshot)

// Client subscribes to a hotbus server's topic stream, reconnecting on
// failure. Used by game shards to receive the contracts they track.
type Client struct {
	addr     string
	venue    string
	marketID string
}

func NewClient(addr, venue, marketID string) *Client {
	return &Client{addr: addr, venue: venue, marketID: marketID}
}

// ConnectWithRetry connects and reconnects with exponential backoff
// until ctx is cancelled, invoking handler for every snapshot received.
func (c *Client) ConnectWithRetry(ctx context.Context, handler SnapshotHandler) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx, handler)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}
		attempt++
		backoff := time.Duration(float64(minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			telemetry.Warnf("hotbus: connection lost venue=%s market=%s (attempt %d): %v — retrying in %s",
				c.venue, c.marketID, attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) connect(ctx context.Context, handler SnapshotHandler) error {
	url := fmt.Sprintf("ws://%s/ws?venue=%s&market_id=%s", c.addr, c.venue, c.marketID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var snapshot model.OrderBookSnapshot
		if _, err := busproto.Unmarshal(msg, &snapshot); err != nil {
			telemetry.Warnf("hotbus: unmarshal error: %v", err)
			continue
		}
		handler(snapshot)
	}
}
