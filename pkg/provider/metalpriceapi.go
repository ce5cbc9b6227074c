package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// MetalPriceAPI talks to a metalpriceapi-style endpoint:
// GET {base}/latest?api_key=…&base=GBP&currencies=SYM.
type MetalPriceAPI struct {
	name    string
	baseURL string
	apiKey  string
	client  HTTPClient
}

// NewMetalPriceAPI creates a metalpriceapi endpoint.
func NewMetalPriceAPI(name, baseURL, apiKey string, client HTTPClient) *MetalPriceAPI {
	return &MetalPriceAPI{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (m *MetalPriceAPI) Name() string { return m.name }

type metalPriceResponse struct {
	Success bool                       `json:"success"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"statusCode"`
		Info string `json:"message"`
	} `json:"error"`
}

func (m *MetalPriceAPI) Fetch(ctx context.Context, symbol models.Symbol) (models.SpotPrice, error) {
	q := url.Values{}
	q.Set("api_key", m.apiKey)
	q.Set("base", "GBP")
	q.Set("currencies", string(symbol))

	res, err := doGet(ctx, m.client, m.baseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return models.SpotPrice{}, err
	}
	if res.statusCode < 200 || res.statusCode >= 300 {
		return models.SpotPrice{}, fmt.Errorf("%w: upstream status %d", ErrTransientFetch, res.statusCode)
	}

	var body metalPriceResponse
	if err := json.Unmarshal(res.body, &body); err != nil {
		return models.SpotPrice{}, fmt.Errorf("%w: decode response: %v", ErrTransientFetch, err)
	}
	if !body.Success {
		if body.Error != nil && isCurrencyError(body.Error.Info) {
			return models.SpotPrice{}, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, body.Error.Info)
		}
		msg := "request failed"
		if body.Error != nil && body.Error.Info != "" {
			msg = body.Error.Info
		}
		return models.SpotPrice{}, fmt.Errorf("%w: %s", ErrTransientFetch, msg)
	}

	var perOz decimal.Decimal
	if direct, ok := body.Rates["GBP"+string(symbol)]; ok && direct.IsPositive() {
		perOz = direct
	} else if rate, ok := body.Rates[string(symbol)]; ok && rate.IsPositive() {
		// Rates are units of metal per pound, so invert. Sixteen places keeps
		// the result well below a thousandth of a penny per gram.
		perOz = decimal.NewFromInt(1).DivRound(rate, 16)
	} else {
		return models.SpotPrice{}, fmt.Errorf("%w: no %s rate in response", ErrUnsupportedSymbol, symbol)
	}

	return models.SpotPrice{
		Symbol:        symbol,
		PricePerOzGBP: perOz,
		FetchedAt:     time.Now().UTC(),
		Origin:        models.OriginLive,
		Provider:      m.name,
	}, nil
}

func isCurrencyError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "currenc") || strings.Contains(msg, "symbol")
}
