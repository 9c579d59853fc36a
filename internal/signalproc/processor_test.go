package signalproc

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/config"
	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/teammatch"
)

type stubMatcher struct {
	resp teammatch.MatchResponse
	err  error
}

func (m stubMatcher) Match(ctx context.Context, sport teammatch.Sport, input string, candidates []string) (teammatch.MatchResponse, error) {
	return m.resp, m.err
}

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := sqlx.NewDb(sqlDB, "postgres")
	return store.New(&dbpool.Pool{DB: db}), mock
}

func testConfig() Config {
	return Config{
		Freshness:          5 * time.Second,
		MinMatchConfidence: 0.7,
		MaxPositionPercent: 0.80,
		RiskLimits: config.RiskLimits{
			"moneyline": {MaxPositionUSD: 500, MinEdge: 0.01, LiquidityFloor: 50},
		},
	}
}

func baseSignal() model.TradingSignal {
	return model.TradingSignal{
		SignalID:           "sig-1",
		GameID:             "g1",
		MarketType:         model.MarketMoneyline,
		Team:               "Lakers",
		Direction:          model.DirBuy,
		ModelProb:          0.60,
		MarketProb:         0.50,
		Edge:               0.10,
		LiquidityAvailable: 200,
		Venue:              model.VenueCEX,
		CreatedAt:          time.Now(),
	}
}

func gameRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"game_id", "sport", "home_team", "away_team", "start_time", "status", "home_score", "away_score", "model_prob_home"}).
		AddRow("g1", "nba", "Lakers", "Celtics", time.Now(), model.GameLive, 0, 0, 0.6)
}

func TestValidateRejectsStaleSignal(t *testing.T) {
	st, _ := newTestStore(t)
	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 1}}

	sig := baseSignal()
	sig.CreatedAt = time.Now().Add(-time.Minute)

	_, reason := p.validate(context.Background(), sig)
	assert.Equal(t, "stale", reason)
}

func TestValidateRejectsUnknownGame(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 1}}

	_, reason := p.validate(context.Background(), baseSignal())
	assert.Equal(t, "unknown_game", reason)
}

func TestValidateRejectsTeamMismatch(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(gameRows())
	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: false}}

	_, reason := p.validate(context.Background(), baseSignal())
	assert.Equal(t, "team_mismatch", reason)
}

func TestValidateRejectsLowMatchConfidence(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(gameRows())
	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 0.4}}

	_, reason := p.validate(context.Background(), baseSignal())
	assert.Equal(t, "team_mismatch", reason)
}

func TestValidateAcceptsAndSizesWithinRiskCap(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(gameRows())
	mock.ExpectQuery("SELECT.*markets").WillReturnError(assert.AnError) // MarketsForGame fails -> fallback to signal fields

	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 1}}

	sig := baseSignal() // liquidity 200, marketProb 0.5 -> notional 100, 80% = 80, under $500 cap
	accepted, reason := p.validate(context.Background(), sig)
	require.Equal(t, "", reason)
	assert.InDelta(t, 80.0, accepted.ProposedSize, 1e-9)
}

func TestValidateRejectsInsufficientLiquidity(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(gameRows())
	mock.ExpectQuery("SELECT.*markets").WillReturnError(assert.AnError)

	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 1}}

	sig := baseSignal()
	sig.LiquidityAvailable = 5 // notional 2.5 < $10 floor
	_, reason := p.validate(context.Background(), sig)
	assert.Equal(t, "insufficient_liquidity", reason)
}

func TestValidateRejectsEvaporatedEdge(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(gameRows())
	mock.ExpectQuery("SELECT.*markets").WillReturnError(assert.AnError)

	p := NewProcessor(nil, st, nil, testConfig())
	p.matcher = stubMatcher{resp: teammatch.MatchResponse{Matched: true, Confidence: 1}}

	sig := baseSignal()
	sig.Edge = 0 // falls back to this since MarketsForGame errors
	_, reason := p.validate(context.Background(), sig)
	assert.Equal(t, "edge_evaporated", reason)
}

func TestKellySizeCapsAtRiskLimit(t *testing.T) {
	st, _ := newTestStore(t)
	p := NewProcessor(nil, st, nil, testConfig())

	limits, _ := p.cfg.RiskLimits.ForMarketType("moneyline")
	size := p.kellySize(10000, 0.9, limits, true)
	assert.Equal(t, 500.0, size)
}

func TestKellySizeUsesPercentWhenBelowCap(t *testing.T) {
	st, _ := newTestStore(t)
	p := NewProcessor(nil, st, nil, testConfig())

	limits, _ := p.cfg.RiskLimits.ForMarketType("moneyline")
	size := p.kellySize(100, 0.5, limits, true)
	assert.InDelta(t, 40.0, size, 1e-9) // 100*0.5*0.8 = 40
}
