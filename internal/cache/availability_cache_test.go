package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dayView struct {
	Date       string
	TotalSlots int
}

func newTestCache(t *testing.T, ttl time.Duration) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAvailabilityCache(client, ttl), mr
}

func TestAvailabilityCache_StoreAndLoad(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	var miss dayView
	gen, hit, err := c.Load(ctx, "consultant-1", "day", "2024-01-10", &miss)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, gen)

	require.NoError(t, c.Store(ctx, "consultant-1", "day", "2024-01-10", gen, dayView{Date: "2024-01-10", TotalSlots: 7}))
	assert.True(t, mr.Exists("gencare:availability:consultant-1:0:day:2024-01-10"))

	var got dayView
	_, hit, err = c.Load(ctx, "consultant-1", "day", "2024-01-10", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7, got.TotalSlots)

	mr.FastForward(2 * time.Minute)
	_, hit, err = c.Load(ctx, "consultant-1", "day", "2024-01-10", &got)
	require.NoError(t, err)
	assert.False(t, hit, "entry should expire after the ttl")
}

func TestAvailabilityCache_InvalidateConsultant(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")
		require.NoError(t, c.Store(ctx, "consultant-1", "day", date, 0, dayView{Date: date}))
	}
	require.NoError(t, c.Store(ctx, "consultant-1", "week", "2024-01-08", 0, dayView{}))
	require.NoError(t, c.Store(ctx, "consultant-2", "day", "2024-01-10", 0, dayView{}))

	require.NoError(t, c.InvalidateConsultant(ctx, "consultant-1"))

	assert.ElementsMatch(t, []string{
		"gencare:availability-gen:consultant-1",
		"gencare:availability:consultant-2:0:day:2024-01-10",
	}, mr.Keys())

	gen, hit, err := c.Load(ctx, "consultant-1", "day", "2024-01-01", &dayView{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), gen)

	_, hit, err = c.Load(ctx, "consultant-2", "day", "2024-01-10", &dayView{})
	require.NoError(t, err)
	assert.True(t, hit, "other consultants keep their views")
}

func TestAvailabilityCache_StoreAfterInvalidationIsNotServed(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader misses and starts computing from the pre-write state.
	gen, hit, err := c.Load(ctx, "consultant-1", "day", "2024-01-10", &dayView{})
	require.NoError(t, err)
	require.False(t, hit)

	// A write lands and invalidates before the reader stores its result.
	require.NoError(t, c.InvalidateConsultant(ctx, "consultant-1"))
	require.NoError(t, c.Store(ctx, "consultant-1", "day", "2024-01-10", gen, dayView{TotalSlots: 8}))

	var got dayView
	next, hit, err := c.Load(ctx, "consultant-1", "day", "2024-01-10", &got)
	require.NoError(t, err)
	assert.False(t, hit, "a view computed before the invalidation must not be served")
	assert.Equal(t, gen+1, next)

	require.NoError(t, c.Store(ctx, "consultant-1", "day", "2024-01-10", next, dayView{TotalSlots: 6}))
	_, hit, err = c.Load(ctx, "consultant-1", "day", "2024-01-10", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 6, got.TotalSlots)
}

func TestAvailabilityCache_ReportsDecodeErrors(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("gencare:availability:consultant-1:0:day:2024-01-10", "not-json"))

	var got dayView
	_, hit, err := c.Load(context.Background(), "consultant-1", "day", "2024-01-10", &got)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestAvailabilityCache_ReportsCorruptGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("gencare:availability-gen:consultant-1", "abc"))

	_, hit, err := c.Load(context.Background(), "consultant-1", "day", "2024-01-10", &dayView{})
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, c.InvalidateConsultant(context.Background(), "consultant-1"))
}

func TestAvailabilityCache_NilClientIsNoop(t *testing.T) {
	var c *AvailabilityCache
	ctx := context.Background()

	gen, hit, err := c.Load(ctx, "c", "day", "d", &dayView{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, gen)
	assert.NoError(t, c.Store(ctx, "c", "day", "d", 0, dayView{}))
	assert.NoError(t, c.InvalidateConsultant(ctx, "c"))
}
