package discovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/charleschow/arb-engine/internal/errs"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

const marketCacheTTL = 10 * time.Minute

// matchWindow bounds how far a candidate market's expiry may sit from
// the game's scheduled start before it is rejected in favour of a
// closer doubleheader match. Tuned per sport since NHL/NBA back-to-back
// scheduling is tighter than an NCAA football Saturday slate.
var matchWindow = map[teammatch.Sport]time.Duration{
	teammatch.SportNBA:  10 * time.Hour,
	teammatch.SportNFL:  16 * time.Hour,
	teammatch.SportNHL:  10 * time.Hour,
	teammatch.SportMLB:  8 * time.Hour,
	teammatch.SportNCAA: 16 * time.Hour,
}

func defaultMatchWindow(sport teammatch.Sport) time.Duration {
	if w, ok := matchWindow[sport]; ok {
		return w
	}
	return 12 * time.Hour
}

type seriesConfig struct {
	SeriesTickers []string `json:"series_tickers"`
}

// defaultSeries is the hardcoded fallback when no config file is
// present for a (venue, sport) pair.
var defaultSeries = map[model.Venue]map[teammatch.Sport][]string{
	model.VenueCEX: {
		teammatch.SportNBA: {"KXNBAGAME"},
		teammatch.SportNFL: {"KXNFLGAME"},
		teammatch.SportNHL: {"KXNHLGAME"},
		teammatch.SportMLB: {"KXMLBGAME"},
		teammatch.SportNCAA: {"KXNCAAFGAME", "KXNCAABGAME"},
	},
}

// loadSeries reads {dir}/{venue}/{sport}/series.json, falling back to
// the hardcoded defaults above when the file is absent.
func loadSeries(dir string, venue model.Venue, sport teammatch.Sport) []string {
	fallback := defaultSeries[venue][sport]
	if dir == "" {
		return fallback
	}
	path := filepath.Join(dir, string(venue), string(sport), "series.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	var cfg seriesConfig
	if err := json.Unmarshal(data, &cfg); err != nil || len(cfg.SeriesTickers) == 0 {
		telemetry.Warnf("discovery: failed to parse %s, using defaults", path)
		return fallback
	}
	upper := make([]string, len(cfg.SeriesTickers))
	for i, s := range cfg.SeriesTickers {
		upper[i] = strings.ToUpper(s)
	}
	return upper
}

// Resolver fetches venue markets and matches them to games by team
// name, caching the fetched set per (venue, sport) for marketCacheTTL
// and deduping concurrent refreshes with singleflight.
type Resolver struct {
	fetchers   map[model.Venue]MarketFetcher
	seriesDir  string

	mu        sync.RWMutex
	markets   map[string][]VenueMarket // key: venue|sport
	lastFetch map[string]time.Time
	sfGroup   singleflight.Group
}

func NewResolver(seriesDir string, fetchers map[model.Venue]MarketFetcher) *Resolver {
	return &Resolver{
		fetchers:  fetchers,
		seriesDir: seriesDir,
		markets:   make(map[string][]VenueMarket),
		lastFetch: make(map[string]time.Time),
	}
}

func cacheKey(venue model.Venue, sport teammatch.Sport) string {
	return string(venue) + "|" + string(sport)
}

func (r *Resolver) refresh(ctx context.Context, venue model.Venue, sport teammatch.Sport) error {
	fetcher, ok := r.fetchers[venue]
	if !ok {
		return errs.Newf(errs.Validation, "discovery: no fetcher registered for venue %s", venue)
	}

	series := loadSeries(r.seriesDir, venue, sport)
	if len(series) == 0 {
		return nil
	}

	var all []VenueMarket
	for _, s := range series {
		markets, err := fetcher.FetchMarkets(ctx, s)
		if err != nil {
			telemetry.Warnf("discovery: fetch series %s on %s: %v", s, venue, err)
			continue
		}
		all = append(all, markets...)
	}

	key := cacheKey(venue, sport)
	r.mu.Lock()
	r.markets[key] = all
	r.lastFetch[key] = time.Now()
	r.mu.Unlock()

	telemetry.Infof("discovery: fetched %d markets venue=%s sport=%s", len(all), venue, sport)
	return nil
}

func (r *Resolver) ensureFresh(ctx context.Context, venue model.Venue, sport teammatch.Sport) {
	key := cacheKey(venue, sport)
	r.mu.RLock()
	last := r.lastFetch[key]
	r.mu.RUnlock()

	if time.Since(last) > marketCacheTTL {
		r.sfGroup.Do(key, func() (any, error) {
			return nil, r.refresh(ctx, venue, sport)
		})
	}
}

type candidate struct {
	market   VenueMarket
	timeDiff time.Duration
}

// Resolve finds the contract on venue matching (homeTeam, awayTeam,
// marketType) for a game starting at gameStartedAt, disambiguating
// doubleheaders by picking the candidate whose expiry is closest to
// kickoff. Returns (Contract{}, false) if nothing matches.
func (r *Resolver) Resolve(ctx context.Context, venue model.Venue, sport teammatch.Sport, marketType model.MarketType, homeTeam, awayTeam string, gameStartedAt time.Time) (model.Contract, bool) {
	r.ensureFresh(ctx, venue, sport)

	homeNorm := teammatch.Normalize(homeTeam)
	awayNorm := teammatch.Normalize(awayTeam)
	window := defaultMatchWindow(sport)

	r.mu.RLock()
	markets := r.markets[cacheKey(venue, sport)]
	r.mu.RUnlock()

	var candidates []candidate
	for _, m := range markets {
		if m.MarketType != marketType {
			continue
		}
		t1, t2 := teamNamesFromTitle(m.Title)
		if t1 == "" || t2 == "" {
			t1, t2 = teamNamesFromTitle(m.Subtitle)
			if t1 == "" || t2 == "" {
				continue
			}
		}

		pairMatches := (t1 == homeNorm && t2 == awayNorm) ||
			(t1 == awayNorm && t2 == homeNorm) ||
			(fuzzyContains(t1, homeNorm) && fuzzyContains(t2, awayNorm)) ||
			(fuzzyContains(t1, awayNorm) && fuzzyContains(t2, homeNorm))
		if !pairMatches {
			continue
		}

		diff := absTimeDiff(gameStartedAt, parseMarketExpiry(m.ExpiresAt))
		if diff > window {
			continue
		}
		candidates = append(candidates, candidate{market: m, timeDiff: diff})
	}

	if len(candidates) == 0 {
		return model.Contract{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.timeDiff < best.timeDiff {
			best = c
		}
	}

	// By convention this engine resolves one contract per (venue,
	// market type) per game: YES settles if the home team wins (or
	// covers, for spread markets), NO if the away team does. Team is
	// fixed to homeTeam here so price routing never has to guess which
	// side a contract belongs to.
	return model.Contract{
		Venue:      venue,
		MarketID:   best.market.MarketID,
		MarketType: marketType,
		Team:       homeTeam,
		Status:     model.ContractOpen,
	}, true
}
