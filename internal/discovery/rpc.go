package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// Request is the wire payload a game shard sends to resolve a contract.
type Request struct {
	RequestID     string            `json:"request_id"`
	Venue         model.Venue       `json:"venue"`
	Sport         teammatch.Sport   `json:"sport"`
	MarketType    model.MarketType  `json:"market_type"`
	HomeTeam      string            `json:"home_team"`
	AwayTeam      string            `json:"away_team"`
	GameStartedAt time.Time         `json:"game_started_at"`
}

// Response carries the resolved contract, if any.
type Response struct {
	RequestID string         `json:"request_id"`
	Found     bool           `json:"found"`
	Contract  model.Contract `json:"contract,omitempty"`
}

// Server answers discovery requests over the bus and announces its
// presence via a periodic heartbeat so the orchestrator can raise
// NoMarketDiscoveryServices if every instance disappears.
type Server struct {
	b                 *bus.Bus
	resolver          *Resolver
	heartbeatInterval time.Duration
}

func NewServer(b *bus.Bus, resolver *Resolver, heartbeatInterval time.Duration) *Server {
	return &Server{b: b, resolver: resolver, heartbeatInterval: heartbeatInterval}
}

func (s *Server) Run(ctx context.Context) {
	go s.b.Subscribe(ctx, busproto.ChanDiscoveryReq, func(env busproto.Envelope, raw []byte) {
		var req Request
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			telemetry.Warnf("discovery: bad request payload: %v", err)
			return
		}

		contract, found := s.resolver.Resolve(ctx, req.Venue, req.Sport, req.MarketType, req.HomeTeam, req.AwayTeam, req.GameStartedAt)
		resp := Response{RequestID: req.RequestID, Found: found, Contract: contract}

		replyCh := busproto.ChanDiscoveryResp(req.RequestID)
		if err := s.b.Publish(ctx, replyCh, "discovery_response", req.RequestID, 0, resp); err != nil {
			telemetry.Warnf("discovery: publish response failed: %v", err)
		}
	})

	s.heartbeatLoop(ctx)
}

type heartbeatPayload struct {
	SentAt time.Time `json:"sent_at"`
}

func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.b.Publish(ctx, busproto.ChanDiscoveryHeartbeat, "discovery_heartbeat", "", 0, heartbeatPayload{SentAt: time.Now()}); err != nil {
				telemetry.Warnf("discovery: heartbeat publish failed: %v", err)
			}
		}
	}
}

// Client issues discovery RPCs against a running Server.
type Client struct {
	b       *bus.Bus
	timeout time.Duration
}

func NewClient(b *bus.Bus, timeout time.Duration) *Client {
	return &Client{b: b, timeout: timeout}
}

func (c *Client) Resolve(ctx context.Context, req Request) (Response, error) {
	req.RequestID = teammatch.RequestID("discovery")

	raw, err := c.b.Request(ctx, busproto.ChanDiscoveryReq, busproto.ChanDiscoveryResp(req.RequestID),
		"discovery_request", req.RequestID, req, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("discovery: request: %w", err)
	}

	env, err := busproto.Unmarshal(raw, nil)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
