package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/venue"
)

// fakeVenue fills every order unless told not to, recording every
// request it receives so tests can assert on call count and ordering.
type fakeVenue struct {
	mu       sync.Mutex
	fill     bool
	placed   []venue.OrderRequest
	canceled []string
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	if !f.fill {
		return venue.OrderResult{OrderID: "unfilled", Filled: false}, nil
	}
	return venue.OrderResult{OrderID: "order-1", Filled: true, FillSize: req.Size, FillCost: req.Price * req.Size}, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, orderID)
	return nil
}

func (f *fakeVenue) GetMarkets(ctx context.Context, seriesTicker string) ([]discovery.VenueMarket, error) {
	return nil, nil
}

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := sqlx.NewDb(sqlDB, "postgres")
	return store.New(&dbpool.Pool{DB: db}), mock
}

func marketRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"venue", "market_id", "game_id", "market_type", "team", "status"}).
		AddRow(model.VenueCEX, "m-cex-1", "g1", model.MarketMoneyline, "Lakers", "open").
		AddRow(model.VenueDEX, "m-dex-1", "g1", model.MarketMoneyline, "Lakers", "open")
}

func newTestService(t *testing.T, venues venue.Registry) (*Service, sqlmock.Sqlmock) {
	st, mock := newTestStore(t)
	notifier := alerts.NewNotifier("", "")
	svc := NewService(nil, st, venues, notifier, 2*time.Second)
	return svc, mock
}

func TestExecuteSingleLegPersistsFilledPosition(t *testing.T) {
	fv := &fakeVenue{fill: true}
	svc, mock := newTestService(t, venue.Registry{model.VenueCEX: fv})
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(sqlmock.NewResult(1, 1))

	sig := model.TradingSignal{
		SignalID: "sig-1", GameID: "g1", MarketType: model.MarketMoneyline,
		Team: "Lakers", Venue: model.VenueCEX, MarketProb: 0.5, ProposedSize: 40,
	}
	svc.executeSingleLeg(sig, signalKey(sig))

	require.Len(t, fv.placed, 1)
	assert.Equal(t, model.SideYes, fv.placed[0].Side)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSingleLegSkipsWhenNoVenueRegistered(t *testing.T) {
	svc, _ := newTestService(t, venue.Registry{})
	sig := model.TradingSignal{SignalID: "sig-1", GameID: "g1", Venue: model.VenueCEX}
	svc.executeSingleLeg(sig, signalKey(sig)) // must not panic despite no client/no mock expectations
}

func TestExecuteArbitrageBothFillRecordsBothFilled(t *testing.T) {
	fvA := &fakeVenue{fill: true}
	fvB := &fakeVenue{fill: true}
	svc, mock := newTestService(t, venue.Registry{model.VenueCEX: fvA, model.VenueDEX: fvB})
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(sqlmock.NewResult(1, 1))

	opp := model.Opportunity{
		OpportunityID: "opp-1", GameID: "g1", MarketType: model.MarketMoneyline,
		VenueBuyYes: model.VenueCEX, VenueBuyNo: model.VenueDEX, SizeCap: 100,
	}
	svc.executeArbitrage(opp, opp.Key())

	assert.Len(t, fvA.placed, 1)
	assert.Len(t, fvB.placed, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteArbitragePartialFillClosesNakedLeg(t *testing.T) {
	fvA := &fakeVenue{fill: true}
	fvB := &fakeVenue{fill: false}
	svc, mock := newTestService(t, venue.Registry{model.VenueCEX: fvA, model.VenueDEX: fvB})
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(sqlmock.NewResult(1, 1))

	opp := model.Opportunity{
		OpportunityID: "opp-2", GameID: "g1", MarketType: model.MarketMoneyline,
		VenueBuyYes: model.VenueCEX, VenueBuyNo: model.VenueDEX, SizeCap: 100,
	}
	svc.executeArbitrage(opp, opp.Key())

	require.Len(t, fvA.placed, 2, "the filled leg (A) must be closed out with an offsetting order")
	assert.Equal(t, model.SideNo, fvA.placed[1].Side, "closing order must be on the opposite side of the filled leg")
	assert.Empty(t, fvA.canceled, "a filled leg is closed by an offsetting order, not a cancel")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteArbitrageNeitherFillRecordsFailed(t *testing.T) {
	fvA := &fakeVenue{fill: false}
	fvB := &fakeVenue{fill: false}
	svc, mock := newTestService(t, venue.Registry{model.VenueCEX: fvA, model.VenueDEX: fvB})
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectQuery("SELECT").WillReturnRows(marketRows())
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(sqlmock.NewResult(1, 1))

	opp := model.Opportunity{
		OpportunityID: "opp-3", GameID: "g1", MarketType: model.MarketMoneyline,
		VenueBuyYes: model.VenueCEX, VenueBuyNo: model.VenueDEX, SizeCap: 100,
	}
	svc.executeArbitrage(opp, opp.Key())

	assert.Equal(t, []string{"unfilled"}, fvA.canceled)
	assert.Equal(t, []string{"unfilled"}, fvB.canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInFlightSetRejectsDuplicateAcquire(t *testing.T) {
	s := newInFlightSet()
	assert.True(t, s.acquire("k"))
	assert.False(t, s.acquire("k"))
	s.release("k")
	assert.True(t, s.acquire("k"))
}

func TestKillSwitchBlocksExecution(t *testing.T) {
	fv := &fakeVenue{fill: true}
	svc, _ := newTestService(t, venue.Registry{model.VenueCEX: fv})
	svc.kill.engage()

	sig := model.TradingSignal{SignalID: "sig-1", GameID: "g1", Venue: model.VenueCEX}
	raw, err := busproto.Marshal("trading_signal_validated", sig.SignalID, 0, sig)
	require.NoError(t, err)

	svc.onValidatedSignal(busproto.Envelope{}, raw)
	time.Sleep(10 * time.Millisecond) // onValidatedSignal would spawn a goroutine if it proceeded
	assert.Empty(t, fv.placed, "kill switch must block execution before any order is placed")
}
