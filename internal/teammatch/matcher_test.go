package teammatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchExact(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNBA, 10)
	r := m.Match("Los Angeles Lakers", "los angeles lakers")
	assert.True(t, r.IsMatch)
	assert.Equal(t, MethodExact, r.Method)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestMatchAlias(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNBA, 10)
	r := m.Match("LA Lakers", "los angeles lakers")
	assert.True(t, r.IsMatch)
	assert.Equal(t, MethodAlias, r.Method)
}

func TestMatchNickname(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNHL, 10)
	r := m.Match("Bruins", "boston bruins")
	assert.True(t, r.IsMatch)
	assert.Equal(t, MethodNickname, r.Method)
}

func TestMatchFuzzyTypo(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportMLB, 10)
	r := m.Match("New York Yankes", "new york yankees")
	assert.True(t, r.IsMatch)
	assert.Equal(t, MethodFuzzy, r.Method)
}

func TestMatchNoMatch(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNBA, 10)
	r := m.Match("Boston Celtics", "los angeles lakers")
	assert.False(t, r.IsMatch)
}

func TestBestPicksHighestConfidence(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNFL, 10)
	best, candidate, ok := m.Best("Chiefs", []string{"los angeles rams", "kansas city chiefs", "denver broncos"})
	assert.True(t, ok)
	assert.Equal(t, "kansas city chiefs", candidate)
	assert.Equal(t, MethodNickname, best.Method)
}

func TestFuzzyCacheIsConsulted(t *testing.T) {
	t.Parallel()
	m := NewMatcher(SportNCAA, 10)

	r1 := m.Match("Ohio Stat", "ohio state")
	_, hit := m.cache.Get("ncaa:ohio stat:ohio state")
	assert.True(t, hit)

	r2 := m.Match("Ohio Stat", "ohio state")
	assert.Equal(t, r1, r2)
}

func TestJaroWinklerIdentical(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, jaroWinkler("boston", "boston"))
}

func TestJaroWinklerEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, jaroWinkler("", "boston"))
}
