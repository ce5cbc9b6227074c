// Package provider fetches spot prices from an ordered chain of upstream
// price APIs and normalizes them to GBP per troy ounce.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

var (
	// ErrTransientFetch covers network errors, timeouts and unusable responses.
	ErrTransientFetch = errors.New("transient fetch error")
	// ErrUnsupportedSymbol means an endpoint explicitly does not price a metal.
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
)

// gramsPerTroyOunce is exact by definition of the troy ounce.
var gramsPerTroyOunce = decimal.RequireFromString("31.1034768")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=provider_test -destination=mock_http_client_test.go github.com/hallmark-app/hallmark/pkg/provider HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoint is one configured price source.
type Endpoint interface {
	Name() string
	Fetch(ctx context.Context, symbol models.Symbol) (models.SpotPrice, error)
}

// Client tries each endpoint in order until one returns a price.
type Client struct {
	endpoints []Endpoint
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Client. timeout bounds each endpoint attempt; zero disables it.
func New(endpoints []Endpoint, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{endpoints: endpoints, timeout: timeout, logger: logger}
}

// Endpoints returns the endpoint names in fallback order.
func (c *Client) Endpoints() []string {
	names := make([]string, len(c.endpoints))
	for i, ep := range c.endpoints {
		names[i] = ep.Name()
	}
	return names
}

// Fetch returns the first price any endpoint produces for symbol. Each
// endpoint gets exactly one bounded attempt. When every endpoint rejects the
// symbol the error wraps ErrUnsupportedSymbol; any other exhaustion wraps
// ErrTransientFetch.
func (c *Client) Fetch(ctx context.Context, symbol models.Symbol) (models.SpotPrice, error) {
	if !symbol.Valid() {
		return models.SpotPrice{}, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
	}
	if len(c.endpoints) == 0 {
		return models.SpotPrice{}, fmt.Errorf("%w: no price endpoints configured", ErrTransientFetch)
	}

	var failures []string
	unsupported := 0
	for _, ep := range c.endpoints {
		price, err := c.fetchOne(ctx, ep, symbol)
		if err == nil {
			c.logger.Debug("spot price fetched", "endpoint", ep.Name(), "symbol", symbol, "price", price.PricePerOzGBP.String())
			return price, nil
		}
		if errors.Is(err, ErrUnsupportedSymbol) {
			unsupported++
		}
		c.logger.Warn("price endpoint failed", "endpoint", ep.Name(), "symbol", symbol, "err", err)
		failures = append(failures, fmt.Sprintf("%s: %v", ep.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	if unsupported == len(c.endpoints) {
		return models.SpotPrice{}, fmt.Errorf("%w: %s rejected by every endpoint (%s)", ErrUnsupportedSymbol, symbol, strings.Join(failures, "; "))
	}
	return models.SpotPrice{}, fmt.Errorf("%w: %s: %s", ErrTransientFetch, symbol, strings.Join(failures, "; "))
}

func (c *Client) fetchOne(ctx context.Context, ep Endpoint, symbol models.Symbol) (models.SpotPrice, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	price, err := ep.Fetch(ctx, symbol)
	if err != nil {
		return models.SpotPrice{}, err
	}
	if !price.PricePerOzGBP.IsPositive() {
		return models.SpotPrice{}, fmt.Errorf("%w: non-positive price %s", ErrTransientFetch, price.PricePerOzGBP)
	}
	price.Symbol = symbol
	price.Origin = models.OriginLive
	if price.Provider == "" {
		price.Provider = ep.Name()
	}
	return price, nil
}
