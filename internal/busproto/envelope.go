// Package busproto defines the wire envelope shared by every channel on
// the general bus and the hot price channel: a self-describing
// JSON-encoded message carrying a schema version and, where ordering
// matters, a monotonic sequence number.
package busproto

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is bumped whenever a payload's shape changes in
// a way that is not purely additive.
const CurrentSchemaVersion = 1

// Channel names. Channels parameterized by id (shard id, request id,
// venue/market id) are built with the Fmt* helpers below rather than
// ad hoc fmt.Sprintf at call sites.
const (
	ChanGamesState          = "games:state"
	ChanDiscoveryReq        = "discovery:request"
	ChanDiscoveryHeartbeat  = "discovery:heartbeat"
	ChanTeamMatchReq        = "team:match:request"
	ChanSignals          = "signals"
	ChanSignalsValid     = "signals:validated"
	ChanSignalsRejected  = "signals:rejected"
	ChanOpportunities    = "opportunities"
	ChanKillSwitch       = "kill_switch"
	ChanAlertsCritical   = "alerts:critical"
)

func ChanDiscoveryResp(requestID string) string { return "discovery:response:" + requestID }
func ChanTeamMatchResp(requestID string) string { return "team:match:response:" + requestID }
func ChanShardControl(shardID string) string    { return "shard:" + shardID + ":control" }
func ChanShardHeartbeat(shardID string) string  { return "shard:" + shardID + ":heartbeat" }
func ChanPrices(venue, marketID string) string  { return "prices:" + venue + ":" + marketID }

// Envelope is the self-describing wrapper every message carries.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Sequence      uint64          `json:"sequence,omitempty"`
	Type          string          `json:"type"`
	ID            string          `json:"id,omitempty"`
	Timestamp     time.Time       `json:"ts"`
	Payload       json.RawMessage `json:"payload"`
}

// Marshal wraps payload in an Envelope and serializes it.
func Marshal(msgType string, id string, sequence uint64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("busproto: marshal payload: %w", err)
	}
	env := Envelope{
		SchemaVersion: CurrentSchemaVersion,
		Sequence:      sequence,
		Type:          msgType,
		ID:            id,
		Timestamp:     time.Now(),
		Payload:       raw,
	}
	return json.Marshal(env)
}

// Unmarshal decodes the envelope and, separately, its payload into dst.
func Unmarshal(data []byte, dst any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("busproto: unmarshal envelope: %w", err)
	}
	if dst != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, dst); err != nil {
			return env, fmt.Errorf("busproto: unmarshal payload (type=%s): %w", env.Type, err)
		}
	}
	return env, nil
}
