// Package pricecache keeps the last known spot price per metal and decides
// when to go back to the providers for a new one.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// ErrNoProviderAvailable means every endpoint failed and there is no stored
// price to fall back to.
var ErrNoProviderAvailable = errors.New("no price provider available")

// Store persists one PriceRecord per symbol. Records are never removed
// implicitly.
//
//go:generate mockgen -package=pricecache_test -destination=mock_cache_test.go github.com/hallmark-app/hallmark/pkg/pricecache Store,Fetcher
type Store interface {
	Get(ctx context.Context, symbol models.Symbol) (models.PriceRecord, bool, error)
	Put(ctx context.Context, rec models.PriceRecord) error
	List(ctx context.Context) ([]models.PriceRecord, error)
	Close() error
}

// Fetcher retrieves a live price. *provider.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, symbol models.Symbol) (models.SpotPrice, error)
}

// StaleError is the warning attached to a result served from an expired
// record because the refresh failed.
type StaleError struct {
	Symbol models.Symbol
	Age    time.Duration
	Err    error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s: price API unavailable, using cached price from %s ago: %v",
		e.Symbol, e.Age.Round(time.Second), e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

// Result is a price lookup outcome. Warning is non-nil only when Price is a
// stale record served after a failed refresh.
type Result struct {
	Price   models.SpotPrice
	Warning *StaleError
}

// Stale reports whether the price was served from an expired record.
func (r Result) Stale() bool { return r.Warning != nil }

// Cache combines a Store with a Fetcher.
type Cache struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	hits      atomic.Int64
	refreshes atomic.Int64
	fallbacks atomic.Int64
	failures  atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Cache.
func New(store Store, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPrice returns the stored price for symbol while it is younger than the
// configured TTL, and refreshes it otherwise.
func (c *Cache) GetPrice(ctx context.Context, symbol models.Symbol, s models.Settings) (Result, error) {
	rec, found, err := c.store.Get(ctx, symbol)
	if err != nil {
		return Result{}, fmt.Errorf("load cached %s price: %w", symbol, err)
	}

	if found && rec.Age(c.now()) <= s.CacheTTL() {
		c.hits.Add(1)
		return Result{Price: rec.Price}, nil
	}

	return c.refresh(ctx, symbol, rec, found)
}

// Refresh fetches symbol regardless of the stored record's age. On failure it
// falls back exactly like GetPrice.
func (c *Cache) Refresh(ctx context.Context, symbol models.Symbol) (Result, error) {
	rec, found, err := c.store.Get(ctx, symbol)
	if err != nil {
		return Result{}, fmt.Errorf("load cached %s price: %w", symbol, err)
	}
	return c.refresh(ctx, symbol, rec, found)
}

func (c *Cache) refresh(ctx context.Context, symbol models.Symbol, prior models.PriceRecord, found bool) (Result, error) {
	price, fetchErr := c.fetcher.Fetch(ctx, symbol)
	if fetchErr == nil {
		now := c.now()
		price.Symbol = symbol
		price.Origin = models.OriginLive
		if price.FetchedAt.IsZero() {
			price.FetchedAt = now
		}
		rec := models.PriceRecord{Symbol: symbol, Price: price, UpdatedAt: now}
		if err := c.store.Put(ctx, rec); err != nil {
			return Result{}, fmt.Errorf("store %s price: %w", symbol, err)
		}
		c.refreshes.Add(1)
		c.logger.Debug("spot price refreshed", "symbol", symbol, "provider", price.Provider)
		return Result{Price: price}, nil
	}

	if !found {
		c.failures.Add(1)
		return Result{}, fmt.Errorf("%w: %s: %w", ErrNoProviderAvailable, symbol, fetchErr)
	}

	c.fallbacks.Add(1)
	stale := prior.Price
	stale.Origin = models.OriginCached
	warning := &StaleError{Symbol: symbol, Age: prior.Age(c.now()), Err: fetchErr}
	c.logger.Warn("serving stale spot price", "symbol", symbol, "age", warning.Age.Round(time.Second), "err", fetchErr)
	return Result{Price: stale, Warning: warning}, nil
}

// Snapshot is a set of prices ready to hand to the pricing engine.
type Snapshot struct {
	Prices      map[models.Symbol]models.SpotPrice
	Warnings    []*StaleError
	Unavailable map[models.Symbol]error
}

// Snapshot resolves each symbol through GetPrice. Symbols that cannot be
// priced are listed in Unavailable instead of failing the whole call; only
// store errors are returned.
func (c *Cache) Snapshot(ctx context.Context, symbols []models.Symbol, s models.Settings) (Snapshot, error) {
	snap := Snapshot{
		Prices:      make(map[models.Symbol]models.SpotPrice, len(symbols)),
		Unavailable: make(map[models.Symbol]error),
	}
	for _, sym := range symbols {
		if _, done := snap.Prices[sym]; done {
			continue
		}
		res, err := c.GetPrice(ctx, sym, s)
		switch {
		case errors.Is(err, ErrNoProviderAvailable):
			snap.Unavailable[sym] = err
			continue
		case err != nil:
			return Snapshot{}, err
		}
		snap.Prices[sym] = res.Price
		if res.Warning != nil {
			snap.Warnings = append(snap.Warnings, res.Warning)
		}
	}
	return snap, nil
}

// Records lists every stored record.
func (c *Cache) Records(ctx context.Context) ([]models.PriceRecord, error) {
	recs, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached prices: %w", err)
	}
	return recs, nil
}

// Stats returns the record count and this process's counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	recs, err := c.Records(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	return models.CacheStats{
		Records:   int64(len(recs)),
		Hits:      c.hits.Load(),
		Refreshes: c.refreshes.Load(),
		Fallbacks: c.fallbacks.Load(),
		Failures:  c.failures.Load(),
	}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
