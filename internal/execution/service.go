// Package execution places orders against whichever venue a validated
// signal or detected arbitrage opportunity names, dedups in-flight
// work, and reconciles two-leg fills into a persisted model.Position.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/telemetry"
	"github.com/charleschow/arb-engine/internal/venue"
)

// Service subscribes to validated signals and detected opportunities,
// dedups them against in-flight work, and places orders through
// whichever venue.Client the opportunity or signal names.
type Service struct {
	b        *bus.Bus
	store    *store.Store
	venues   venue.Registry
	notifier *alerts.Notifier

	deadline time.Duration
	inFlight *inFlightSet
	kill     killSwitch
}

func NewService(b *bus.Bus, st *store.Store, venues venue.Registry, notifier *alerts.Notifier, deadline time.Duration) *Service {
	return &Service{
		b:        b,
		store:    st,
		venues:   venues,
		notifier: notifier,
		deadline: deadline,
		inFlight: newInFlightSet(),
	}
}

// Run wires the kill switch, single-leg signal, and two-leg
// opportunity subscriptions. Blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	go s.b.Subscribe(ctx, busproto.ChanKillSwitch, s.onKillSwitch)
	go s.b.Subscribe(ctx, busproto.ChanOpportunities, s.onOpportunity)
	s.b.Subscribe(ctx, busproto.ChanSignalsValid, s.onValidatedSignal)
}

func signalKey(sig model.TradingSignal) string {
	return fmt.Sprintf("%s|%s|%s|%s", sig.GameID, sig.MarketType, sig.Venue, sig.Team)
}

func (s *Service) onValidatedSignal(env busproto.Envelope, raw []byte) {
	if s.kill.isEngaged() {
		return
	}
	var sig model.TradingSignal
	if _, err := busproto.Unmarshal(raw, &sig); err != nil {
		telemetry.Warnf("execution: bad validated signal payload: %v", err)
		return
	}

	key := signalKey(sig)
	if !s.inFlight.acquire(key) {
		return
	}
	go s.executeSingleLeg(sig, key)
}

func (s *Service) executeSingleLeg(sig model.TradingSignal, key string) {
	defer s.inFlight.release(key)
	telemetry.Metrics.OrderIntents.Inc()

	client, ok := s.venues.For(sig.Venue)
	if !ok {
		telemetry.Warnf("execution: no client registered for venue %s", sig.Venue)
		return
	}

	contract, marketID, ok := s.lookupContract(sig.GameID, sig.MarketType, sig.Venue)
	if !ok {
		telemetry.Warnf("execution: no resolved market for game=%s venue=%s", sig.GameID, sig.Venue)
		return
	}

	side := model.SideYes
	if contract.Team != "" && contract.Team != sig.Team {
		side = model.SideNo
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()

	start := time.Now()
	res, err := client.PlaceOrder(ctx, venue.OrderRequest{
		Venue: sig.Venue, MarketID: marketID, Side: side,
		Price: sig.MarketProb, Size: sig.ProposedSize,
	})
	telemetry.Metrics.OrderE2ELatency.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.Metrics.OrderErrors.WithLabelValues(string(sig.Venue)).Inc()
		telemetry.Warnf("execution: place order failed game=%s venue=%s: %v", sig.GameID, sig.Venue, err)
		return
	}
	telemetry.Metrics.OrdersSent.WithLabelValues(string(sig.Venue)).Inc()

	leg := model.Leg{Venue: sig.Venue, MarketID: marketID, Side: side, OrderID: res.OrderID, Filled: res.Filled}
	fillState := model.FillBothFilled
	if !res.Filled {
		fillState = model.FillFailed
	}

	position := model.Position{
		PositionID:    uuid.NewString(),
		OpportunityID: "signal:" + sig.SignalID,
		LegA:          leg,
		FillState:     fillState,
		OpenedAt:      time.Now(),
	}
	if err := s.store.UpsertPosition(context.Background(), position); err != nil {
		telemetry.Warnf("execution: persist position %s: %v", position.PositionID, err)
	}
}

func (s *Service) onOpportunity(env busproto.Envelope, raw []byte) {
	if s.kill.isEngaged() {
		return
	}
	var opp model.Opportunity
	if _, err := busproto.Unmarshal(raw, &opp); err != nil {
		telemetry.Warnf("execution: bad opportunity payload: %v", err)
		return
	}
	if !opp.Valid() {
		return
	}

	key := opp.Key()
	if !s.inFlight.acquire(key) {
		return
	}
	go s.executeArbitrage(opp, key)
}

// lookupContract finds the resolved market for (gameID, marketType,
// v) — execution never resolves contracts itself, it only reads what
// internal/discovery already persisted via the shard's resolveContracts.
func (s *Service) lookupContract(gameID string, marketType model.MarketType, v model.Venue) (model.Contract, string, bool) {
	contracts, err := s.store.MarketsForGame(context.Background(), gameID)
	if err != nil {
		return model.Contract{}, "", false
	}
	for _, c := range contracts {
		if c.Venue == v && c.MarketType == marketType {
			return c, c.MarketID, true
		}
	}
	return model.Contract{}, "", false
}

func (s *Service) executeArbitrage(opp model.Opportunity, key string) {
	defer s.inFlight.release(key)
	telemetry.Metrics.OrderIntents.Inc()

	clientA, okA := s.venues.For(opp.VenueBuyYes)
	clientB, okB := s.venues.For(opp.VenueBuyNo)
	if !okA || !okB {
		telemetry.Warnf("execution: no client for one of %s/%s", opp.VenueBuyYes, opp.VenueBuyNo)
		return
	}
	_, marketIDA, okA := s.lookupContract(opp.GameID, opp.MarketType, opp.VenueBuyYes)
	_, marketIDB, okB := s.lookupContract(opp.GameID, opp.MarketType, opp.VenueBuyNo)
	if !okA || !okB {
		telemetry.Warnf("execution: no resolved market for opportunity %s", opp.OpportunityID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()

	start := time.Now()
	var legA, legB model.Leg
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		legA = s.placeLeg(ctx, clientA, opp.VenueBuyYes, marketIDA, model.SideYes, opp.SizeCap)
	}()
	go func() {
		defer wg.Done()
		legB = s.placeLeg(ctx, clientB, opp.VenueBuyNo, marketIDB, model.SideNo, opp.SizeCap)
	}()
	wg.Wait()
	telemetry.Metrics.OrderE2ELatency.Observe(time.Since(start).Seconds())

	s.reconcile(opp, legA, legB)
}

func (s *Service) placeLeg(ctx context.Context, c venue.Client, v model.Venue, marketID string, side model.Side, size float64) model.Leg {
	res, err := c.PlaceOrder(ctx, venue.OrderRequest{Venue: v, MarketID: marketID, Side: side, Size: size})
	if err != nil {
		telemetry.Metrics.OrderErrors.WithLabelValues(string(v)).Inc()
		telemetry.Warnf("execution: leg placement failed venue=%s market=%s: %v", v, marketID, err)
		return model.Leg{Venue: v, MarketID: marketID, Side: side, Filled: false}
	}
	telemetry.Metrics.OrdersSent.WithLabelValues(string(v)).Inc()
	return model.Leg{Venue: v, MarketID: marketID, Side: side, OrderID: res.OrderID, Filled: res.Filled}
}

// reconcile resolves the three possible two-leg outcomes: both fill is
// a clean success, one fill must be closed out immediately since a
// naked single leg carries open directional risk, and neither fill
// cancels every placed order that carries an order id and records the
// attempt as failed.
func (s *Service) reconcile(opp model.Opportunity, legA, legB model.Leg) {
	position := model.Position{
		PositionID:    uuid.NewString(),
		OpportunityID: opp.OpportunityID,
		LegA:          legA,
		LegB:          model.NullLeg{Leg: legB, Valid: true},
		OpenedAt:      time.Now(),
	}

	switch {
	case legA.Filled && legB.Filled:
		position.FillState = model.FillBothFilled
	case legA.Filled || legB.Filled:
		position.FillState = model.FillPartialClosed
		s.closeNakedLeg(opp, legA, legB)
		telemetry.Warnf("execution: opportunity %s filled only one leg, closing order sent game=%s market=%s", opp.OpportunityID, opp.GameID, opp.MarketType)
	default:
		position.FillState = model.FillFailed
		ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
		for _, leg := range []model.Leg{legA, legB} {
			client, ok := s.venues.For(leg.Venue)
			if !ok || leg.OrderID == "" {
				continue
			}
			if err := client.CancelOrder(ctx, leg.OrderID); err != nil {
				telemetry.Warnf("execution: cancel unfilled order %s on %s: %v", leg.OrderID, leg.Venue, err)
			}
		}
		cancel()
	}

	if err := s.store.UpsertPosition(context.Background(), position); err != nil {
		telemetry.Warnf("execution: persist position %s: %v", position.PositionID, err)
	}
}

// closeNakedLeg flattens whichever leg did fill by submitting a new
// offsetting order on the same market — the fill already happened, so
// cancelling it accomplishes nothing. The position is closed at once
// and the missing leg is never retried. The outcome is reported only
// through warning logs; no alerts.Notifier alert is sent.
func (s *Service) closeNakedLeg(opp model.Opportunity, legA, legB model.Leg) {
	filled, venueName := legA, opp.VenueBuyYes
	if legB.Filled {
		filled, venueName = legB, opp.VenueBuyNo
	}
	client, ok := s.venues.For(venueName)
	if !ok || filled.OrderID == "" {
		return
	}

	closingSide := model.SideNo
	if filled.Side == model.SideNo {
		closingSide = model.SideYes
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()
	res, err := client.PlaceOrder(ctx, venue.OrderRequest{
		Venue: venueName, MarketID: filled.MarketID, Side: closingSide, Size: opp.SizeCap,
	})
	if err != nil {
		telemetry.Warnf("execution: failed to close naked leg %s on %s: %v", filled.OrderID, venueName, err)
		return
	}
	if !res.Filled {
		telemetry.Warnf("execution: closing order for naked leg %s on %s did not fill", filled.OrderID, venueName)
	}
}
