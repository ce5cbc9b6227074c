package pricecache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/pricecache/sqlite"
)

var errUpstream = errors.New("upstream down")

// memStore is an in-memory Store.
type memStore struct {
	recs map[models.Symbol]models.PriceRecord
	puts int
}

func newMemStore(recs ...models.PriceRecord) *memStore {
	m := &memStore{recs: make(map[models.Symbol]models.PriceRecord)}
	for _, r := range recs {
		m.recs[r.Symbol] = r
	}
	return m
}

func (m *memStore) Get(_ context.Context, s models.Symbol) (models.PriceRecord, bool, error) {
	r, ok := m.recs[s]
	return r, ok, nil
}

func (m *memStore) Put(_ context.Context, r models.PriceRecord) error {
	m.puts++
	m.recs[r.Symbol] = r
	return nil
}

func (m *memStore) List(_ context.Context) ([]models.PriceRecord, error) {
	out := make([]models.PriceRecord, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *memStore) Close() error { return nil }

var baseTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func record(sym models.Symbol, price string, updated time.Time) models.PriceRecord {
	return models.PriceRecord{
		Symbol: sym,
		Price: models.SpotPrice{
			Symbol:        sym,
			PricePerOzGBP: decimal.RequireFromString(price),
			FetchedAt:     updated,
			Origin:        models.OriginLive,
			Provider:      "goldapi",
		},
		UpdatedAt: updated,
	}
}

func live(sym models.Symbol, price string) models.SpotPrice {
	return models.SpotPrice{Symbol: sym, PricePerOzGBP: decimal.RequireFromString(price), Provider: "goldapi"}
}

func settingsWithTTL(minutes int) models.Settings {
	s := models.DefaultSettings()
	s.CacheTTLMinutes = minutes
	return s
}

func TestGetPriceFreshRecordDoesNotFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	store := newMemStore(record(models.XAU, "1850", baseTime.Add(-30*time.Minute)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.GetPrice(context.Background(), models.XAU, settingsWithTTL(60))
	require.NoError(t, err)
	assert.False(t, res.Stale())
	assert.True(t, res.Price.PricePerOzGBP.Equal(decimal.NewFromInt(1850)))
	assert.Equal(t, 0, store.puts)
}

func TestGetPriceAgeEqualToTTLIsFresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	store := newMemStore(record(models.XAG, "24", baseTime.Add(-60*time.Minute)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	_, err := c.GetPrice(context.Background(), models.XAG, settingsWithTTL(60))
	require.NoError(t, err)
}

func TestGetPriceStaleRecordRefreshes(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(live(models.XAU, "1901.5"), nil).Times(1)

	store := newMemStore(record(models.XAU, "1850", baseTime.Add(-61*time.Minute)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.GetPrice(context.Background(), models.XAU, settingsWithTTL(60))
	require.NoError(t, err)
	assert.False(t, res.Stale())
	assert.Equal(t, models.OriginLive, res.Price.Origin)
	assert.True(t, res.Price.PricePerOzGBP.Equal(decimal.RequireFromString("1901.5")))

	stored := store.recs[models.XAU]
	assert.Equal(t, baseTime, stored.UpdatedAt)
	assert.Equal(t, baseTime, stored.Price.FetchedAt)
	assert.True(t, stored.Price.PricePerOzGBP.Equal(decimal.RequireFromString("1901.5")))
}

func TestGetPriceStaleFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(models.SpotPrice{}, errUpstream).Times(1)

	prior := record(models.XAU, "1850", baseTime.Add(-2*time.Hour))
	store := newMemStore(prior)
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.GetPrice(context.Background(), models.XAU, settingsWithTTL(60))
	require.NoError(t, err)
	require.True(t, res.Stale())
	assert.Equal(t, models.OriginCached, res.Price.Origin)
	assert.True(t, res.Price.PricePerOzGBP.Equal(decimal.NewFromInt(1850)))
	assert.ErrorIs(t, res.Warning, errUpstream)
	assert.Equal(t, 2*time.Hour, res.Warning.Age)
	assert.Equal(t, models.XAU, res.Warning.Symbol)

	// The stored record is left untouched.
	assert.Equal(t, 0, store.puts)
	assert.Equal(t, prior, store.recs[models.XAU])
}

func TestGetPriceColdStartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XPT).Return(models.SpotPrice{}, errUpstream).Times(1)

	c := pricecache.New(newMemStore(), fetcher, pricecache.WithClock(fixedClock(baseTime)))

	_, err := c.GetPrice(context.Background(), models.XPT, settingsWithTTL(60))
	assert.ErrorIs(t, err, pricecache.ErrNoProviderAvailable)
	assert.ErrorIs(t, err, errUpstream)
}

func TestGetPriceZeroTTLAlwaysRefreshes(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAG).Return(live(models.XAG, "25"), nil).Times(1)

	store := newMemStore(record(models.XAG, "24", baseTime.Add(-time.Second)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.GetPrice(context.Background(), models.XAG, settingsWithTTL(0))
	require.NoError(t, err)
	assert.True(t, res.Price.PricePerOzGBP.Equal(decimal.NewFromInt(25)))
}

func TestRefreshBypassesTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(live(models.XAU, "1999"), nil).Times(1)

	store := newMemStore(record(models.XAU, "1850", baseTime.Add(-time.Minute)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.Refresh(context.Background(), models.XAU)
	require.NoError(t, err)
	assert.Equal(t, models.OriginLive, res.Price.Origin)
	assert.Equal(t, 1, store.puts)
}

func TestRefreshFailureKeepsRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(models.SpotPrice{}, errUpstream).Times(1)

	store := newMemStore(record(models.XAU, "1850", baseTime.Add(-time.Minute)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	res, err := c.Refresh(context.Background(), models.XAU)
	require.NoError(t, err)
	assert.True(t, res.Stale())
	assert.Equal(t, models.OriginCached, res.Price.Origin)
}

func TestGetPriceStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	fetcher := NewMockFetcher(ctrl)

	dbErr := errors.New("database is locked")
	store.EXPECT().Get(gomock.Any(), models.XAU).Return(models.PriceRecord{}, false, dbErr)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	_, err := pricecache.New(store, fetcher).GetPrice(context.Background(), models.XAU, settingsWithTTL(60))
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, pricecache.ErrNoProviderAvailable)
}

func TestGetPricePutErrorIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	fetcher := NewMockFetcher(ctrl)

	putErr := errors.New("disk full")
	store.EXPECT().Get(gomock.Any(), models.XAG).Return(models.PriceRecord{}, false, nil)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAG).Return(live(models.XAG, "24"), nil)
	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(putErr)

	_, err := pricecache.New(store, fetcher).GetPrice(context.Background(), models.XAG, settingsWithTTL(60))
	assert.ErrorIs(t, err, putErr)
}

func TestSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAG).Return(models.SpotPrice{}, errUpstream)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XPT).Return(models.SpotPrice{}, errUpstream)

	store := newMemStore(
		record(models.XAU, "1850", baseTime.Add(-time.Minute)),
		record(models.XPT, "800", baseTime.Add(-3*time.Hour)),
	)
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))

	snap, err := c.Snapshot(context.Background(), []models.Symbol{models.XAU, models.XAG, models.XPT, models.XAU}, settingsWithTTL(60))
	require.NoError(t, err)
	assert.Len(t, snap.Prices, 2)
	assert.Contains(t, snap.Prices, models.XAU)
	assert.Contains(t, snap.Prices, models.XPT)
	assert.Equal(t, models.OriginCached, snap.Prices[models.XPT].Origin)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, models.XPT, snap.Warnings[0].Symbol)
	require.Contains(t, snap.Unavailable, models.XAG)
	assert.ErrorIs(t, snap.Unavailable[models.XAG], pricecache.ErrNoProviderAvailable)
}

func TestStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAG).Return(live(models.XAG, "24"), nil)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XPT).Return(models.SpotPrice{}, errUpstream)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(models.SpotPrice{}, errUpstream)

	store := newMemStore(record(models.XAU, "1850", baseTime.Add(-2*time.Hour)))
	c := pricecache.New(store, fetcher, pricecache.WithClock(fixedClock(baseTime)))
	ctx := context.Background()
	s := settingsWithTTL(60)

	_, err := c.GetPrice(ctx, models.XAG, s) // refresh
	require.NoError(t, err)
	_, err = c.GetPrice(ctx, models.XAG, s) // hit
	require.NoError(t, err)
	_, err = c.GetPrice(ctx, models.XPT, s) // failure
	require.Error(t, err)
	_, err = c.GetPrice(ctx, models.XAU, s) // fallback
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CacheStats{Records: 2, Hits: 1, Refreshes: 1, Fallbacks: 1, Failures: 1}, stats)
}

func TestCacheWithSQLiteStore(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), models.XAU).Return(live(models.XAU, "1866.208608"), nil).Times(1)

	now := baseTime
	c := pricecache.New(store, fetcher, pricecache.WithClock(func() time.Time { return now }))
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	first, err := c.GetPrice(ctx, models.XAU, settingsWithTTL(60))
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	second, err := c.GetPrice(ctx, models.XAU, settingsWithTTL(60))
	require.NoError(t, err)

	assert.True(t, first.Price.PricePerOzGBP.Equal(second.Price.PricePerOzGBP))
	assert.Equal(t, "goldapi", second.Price.Provider)
}
