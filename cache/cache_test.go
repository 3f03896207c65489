package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexquery-backend/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache() (*ResultCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func sampleResponse(answer string) models.RoutedResponse {
	return models.RoutedResponse{
		Answer:     answer,
		Confidence: 1.0,
		QueryType:  models.QueryTypeMetadata,
	}
}

func TestKeyIsStableUnderNormalization(t *testing.T) {
	a := Key("¿Cuántos artículos tiene?", "case-1", models.QueryTypeMetadata)
	b := Key("  ¿cuántos   ARTÍCULOS tiene?  ", "case-1", models.QueryTypeMetadata)
	assert.Equal(t, a, b)

	c := Key("¿Cuántos artículos tiene?", "case-2", models.QueryTypeMetadata)
	assert.NotEqual(t, a, c)

	d := Key("¿Cuántos artículos tiene?", "case-1", models.QueryTypeContent)
	assert.NotEqual(t, a, d)
}

func TestGetReturnsPutValueUntilTTL(t *testing.T) {
	c, clock := newTestCache()
	key := Key("consulta", "scope", models.QueryTypeContent)

	c.Put(key, "scope", sampleResponse("respuesta"), time.Hour)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "respuesta", got.Answer)

	clock.Advance(59 * time.Minute)
	_, ok = c.Get(key)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok, "entry must never be served past createdAt+ttl")
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestHitCountAndLastAccessUpdated(t *testing.T) {
	c, clock := newTestCache()
	key := Key("consulta", "scope", models.QueryTypeContent)
	c.Put(key, "scope", sampleResponse("r"), time.Hour)

	c.Get(key)
	clock.Advance(time.Minute)
	c.Get(key)

	stats := c.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].HitCount)
	assert.Equal(t, clock.Now(), stats[0].LastAccessAt)
}

func TestInvalidateScopeDropsOnlyMatchingEntries(t *testing.T) {
	c, _ := newTestCache()
	k1 := Key("q1", "case-a", models.QueryTypeContent)
	k2 := Key("q2", "case-a", models.QueryTypeMetadata)
	k3 := Key("q3", "case-b", models.QueryTypeContent)
	c.Put(k1, "case-a", sampleResponse("1"), time.Hour)
	c.Put(k2, "case-a", sampleResponse("2"), time.Hour)
	c.Put(k3, "case-b", sampleResponse("3"), time.Hour)

	n := c.InvalidateScope("case-a")
	assert.Equal(t, 2, n)

	_, ok := c.Get(k1)
	assert.False(t, ok)
	_, ok = c.Get(k2)
	assert.False(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok, "unrelated scope must survive invalidation")
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	c, _ := newTestCache()
	key := Key("q", "s", models.QueryTypeContent)
	c.Put(key, "s", sampleResponse("vieja"), time.Hour)
	c.Put(key, "s", sampleResponse("nueva"), time.Hour)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "nueva", got.Answer)
	assert.Equal(t, 1, c.Len())
}

func TestDefaultTTLApplied(t *testing.T) {
	c, clock := newTestCache()
	key := Key("q", "s", models.QueryTypeContent)
	c.Put(key, "s", sampleResponse("r"), 0)

	clock.Advance(DefaultTTL - time.Second)
	_, ok := c.Get(key)
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestConcurrentAccessIsSafe(t *testing.T) {
	c, _ := newTestCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			scope := "scope-a"
			if n%2 == 0 {
				scope = "scope-b"
			}
			for j := 0; j < 100; j++ {
				key := Key("q", scope, models.QueryTypeContent)
				c.Put(key, scope, sampleResponse("r"), time.Hour)
				c.Get(key)
				if j%10 == 0 {
					c.InvalidateScope("scope-b")
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestCountersFire(t *testing.T) {
	hits, misses, invalidated := 0, 0, 0
	clock := &fakeClock{now: time.Now()}
	c := New(
		WithClock(clock.Now),
		WithCounters(
			func() { hits++ },
			func() { misses++ },
			func(n int) { invalidated += n },
		),
	)

	key := Key("q", "s", models.QueryTypeContent)
	c.Get(key)
	c.Put(key, "s", sampleResponse("r"), time.Hour)
	c.Get(key)
	c.InvalidateScope("s")

	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, invalidated)
}
