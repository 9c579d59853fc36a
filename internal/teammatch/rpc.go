package teammatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// MatchRequest is the wire payload for a team-match RPC call.
type MatchRequest struct {
	RequestID  string   `json:"request_id"`
	Sport      Sport    `json:"sport"`
	Input      string   `json:"input"`
	Candidates []string `json:"candidates"`
}

// MatchResponse is the wire payload for a team-match RPC reply.
type MatchResponse struct {
	RequestID        string  `json:"request_id"`
	Matched          bool    `json:"matched"`
	MatchedCandidate string  `json:"matched_candidate,omitempty"`
	Confidence       float64 `json:"confidence"`
	Method           Method  `json:"method"`
}

// Server listens on busproto.ChanTeamMatchReq and answers each request
// on its request-scoped reply channel, keeping matchers (and their LRU
// caches) alive per sport across calls.
type Server struct {
	b        *bus.Bus
	matchers map[Sport]*Matcher
}

func NewServer(b *bus.Bus, cacheSize int) *Server {
	s := &Server{b: b, matchers: make(map[Sport]*Matcher)}
	for _, sport := range []Sport{SportNBA, SportNFL, SportNHL, SportMLB, SportNCAA} {
		s.matchers[sport] = NewMatcher(sport, cacheSize)
	}
	return s
}

// Run subscribes to team-match requests until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.b.Subscribe(ctx, busproto.ChanTeamMatchReq, func(env busproto.Envelope, raw []byte) {
		var req MatchRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			telemetry.Warnf("teammatch: bad request payload: %v", err)
			return
		}
		resp := s.handle(req)

		replyCh := busproto.ChanTeamMatchResp(req.RequestID)
		if err := s.b.Publish(ctx, replyCh, "team_match_response", req.RequestID, 0, resp); err != nil {
			telemetry.Warnf("teammatch: publish response failed: %v", err)
		}
	})
}

func (s *Server) handle(req MatchRequest) MatchResponse {
	matcher, ok := s.matchers[req.Sport]
	if !ok {
		matcher = NewMatcher(req.Sport, 0)
	}
	best, candidate, matched := matcher.Best(req.Input, req.Candidates)
	return MatchResponse{
		RequestID:        req.RequestID,
		Matched:          matched,
		MatchedCandidate: candidate,
		Confidence:       best.Confidence,
		Method:           best.Method,
	}
}

// Client issues team-match RPCs against a running Server.
type Client struct {
	b       *bus.Bus
	timeout time.Duration
}

func NewClient(b *bus.Bus, timeout time.Duration) *Client {
	return &Client{b: b, timeout: timeout}
}

func (c *Client) Match(ctx context.Context, sport Sport, input string, candidates []string) (MatchResponse, error) {
	reqID := RequestID("teammatch")
	req := MatchRequest{RequestID: reqID, Sport: sport, Input: input, Candidates: candidates}

	raw, err := c.b.Request(ctx, busproto.ChanTeamMatchReq, busproto.ChanTeamMatchResp(reqID),
		"team_match_request", reqID, req, c.timeout)
	if err != nil {
		return MatchResponse{}, err
	}

	env, err := busproto.Unmarshal(raw, nil)
	if err != nil {
		return MatchResponse{}, err
	}
	var resp MatchResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return MatchResponse{}, err
	}
	return resp, nil
}
