package teammatch

import (
	"fmt"
	"time"
)

// Method identifies which cascade stage produced a Result.
type Method string

const (
	MethodExact    Method = "exact"
	MethodAlias    Method = "alias"
	MethodNickname Method = "nickname"
	MethodFuzzy    Method = "fuzzy"
	MethodNone     Method = "none"
)

// Result is the outcome of matching one input team string against one
// candidate from the canonical roster.
type Result struct {
	IsMatch    bool
	Confidence float64
	Method     Method
	Reason     string
}

const fuzzyAcceptThreshold = 0.8

// Matcher runs the exact/alias/nickname/fuzzy cascade for one sport,
// caching fuzzy comparisons since they are the only expensive stage.
type Matcher struct {
	sport Sport
	cache *lru
}

func NewMatcher(sport Sport, cacheSize int) *Matcher {
	return &Matcher{sport: sport, cache: newLRU(cacheSize)}
}

// Match compares input against candidate, trying cheaper strategies
// first and only falling back to Jaro-Winkler fuzzy comparison when
// none of exact/alias/nickname resolve.
func (m *Matcher) Match(input, candidate string) Result {
	ni, nc := Normalize(input), Normalize(candidate)

	if ni == nc {
		return Result{IsMatch: true, Confidence: 1.0, Method: MethodExact, Reason: "normalized forms equal"}
	}

	aliases := aliasesForSport(m.sport)
	if canon, ok := aliases[ni]; ok && canon == nc {
		return Result{IsMatch: true, Confidence: 0.9, Method: MethodAlias, Reason: fmt.Sprintf("alias %q -> %q", ni, canon)}
	}
	if canon, ok := aliases[nc]; ok && canon == ni {
		return Result{IsMatch: true, Confidence: 0.9, Method: MethodAlias, Reason: fmt.Sprintf("alias %q -> %q", nc, canon)}
	}

	nicknames := nicknamesForSport(m.sport)
	if canon, ok := nicknames[ni]; ok && canon == nc {
		return Result{IsMatch: true, Confidence: 0.85, Method: MethodNickname, Reason: fmt.Sprintf("nickname %q -> %q", ni, canon)}
	}
	if canon, ok := nicknames[nc]; ok && canon == ni {
		return Result{IsMatch: true, Confidence: 0.85, Method: MethodNickname, Reason: fmt.Sprintf("nickname %q -> %q", nc, canon)}
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", m.sport, ni, nc)
	if cached, ok := m.cache.Get(cacheKey); ok {
		return cached
	}

	score := jaroWinkler(ni, nc)
	result := Result{
		IsMatch:    score >= fuzzyAcceptThreshold,
		Confidence: score,
		Method:     MethodFuzzy,
		Reason:     fmt.Sprintf("jaro-winkler score=%.3f", score),
	}
	if !result.IsMatch {
		result.Method = MethodNone
	}
	m.cache.Put(cacheKey, result)
	return result
}

// Best returns the highest-confidence match of input against every
// candidate, or ok=false if none crossed their stage's threshold.
func (m *Matcher) Best(input string, candidates []string) (best Result, matchedCandidate string, ok bool) {
	for _, c := range candidates {
		r := m.Match(input, c)
		if r.IsMatch && r.Confidence > best.Confidence {
			best = r
			matchedCandidate = c
			ok = true
		}
	}
	return best, matchedCandidate, ok
}

// RequestID generates a correlation id for a discovery/team-match RPC
// round trip; exported here since both internal/teammatch's client and
// internal/discovery's client need the same scheme.
func RequestID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
