package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// GoldAPI talks to a goldapi-style endpoint: GET {base}/price/{SYMBOL}.
type GoldAPI struct {
	name    string
	baseURL string
	apiKey  string
	client  HTTPClient
}

// NewGoldAPI creates a goldapi endpoint.
func NewGoldAPI(name, baseURL, apiKey string, client HTTPClient) *GoldAPI {
	return &GoldAPI{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (g *GoldAPI) Name() string { return g.name }

type goldAPIResponse struct {
	Price    *decimal.Decimal `json:"price"`
	Currency string           `json:"currency"`
	Unit     string           `json:"unit"`
	Error    string           `json:"error"`
}

func (g *GoldAPI) Fetch(ctx context.Context, symbol models.Symbol) (models.SpotPrice, error) {
	res, err := doGet(ctx, g.client, g.baseURL+"/price/"+string(symbol), map[string]string{
		"x-access-token": g.apiKey,
	})
	if err != nil {
		return models.SpotPrice{}, err
	}

	var body goldAPIResponse
	decodeErr := json.Unmarshal(res.body, &body)

	if canRejectSymbol(res.statusCode) && decodeErr == nil && rejectsSymbol(body.Error, symbol) {
		return models.SpotPrice{}, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, body.Error)
	}
	if res.statusCode < 200 || res.statusCode >= 300 {
		return models.SpotPrice{}, fmt.Errorf("%w: upstream status %d", ErrTransientFetch, res.statusCode)
	}
	if decodeErr != nil {
		return models.SpotPrice{}, fmt.Errorf("%w: decode response: %v", ErrTransientFetch, decodeErr)
	}
	if body.Price == nil {
		return models.SpotPrice{}, fmt.Errorf("%w: response has no price", ErrTransientFetch)
	}

	currency := strings.ToUpper(body.Currency)
	if currency != "" && currency != "GBP" {
		return models.SpotPrice{}, fmt.Errorf("%w: price quoted in %s, want GBP", ErrTransientFetch, currency)
	}

	perOz := *body.Price
	switch strings.ToLower(body.Unit) {
	case "", "oz", "ozt", "troy_oz":
	case "g", "gram", "grams":
		perOz = perOz.Mul(gramsPerTroyOunce)
	default:
		return models.SpotPrice{}, fmt.Errorf("%w: unknown price unit %q", ErrTransientFetch, body.Unit)
	}

	return models.SpotPrice{
		Symbol:        symbol,
		PricePerOzGBP: perOz,
		FetchedAt:     time.Now().UTC(),
		Origin:        models.OriginLive,
		Provider:      g.name,
	}, nil
}

// canRejectSymbol reports whether a response with this status may carry a
// symbol rejection. Auth, rate-limit and server failures never do.
func canRejectSymbol(status int) bool {
	switch {
	case status >= 200 && status < 300:
		return true
	case status == http.StatusBadRequest, status == http.StatusNotFound:
		return true
	}
	return false
}

var symbolRejections = []string{"not supported", "unsupported", "invalid symbol", "unknown symbol", "not found"}

// rejectsSymbol reports whether msg says symbol itself is not served.
func rejectsSymbol(msg string, symbol models.Symbol) bool {
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, strings.ToLower(string(symbol))) {
		return false
	}
	for _, phrase := range symbolRejections {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
