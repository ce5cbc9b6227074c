package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hallmark-app/hallmark/pkg/config"
)

// Resolve expands endpoint configs into an ordered endpoint chain. Each
// config contributes its URL followed by its fallback URLs; blank and
// repeated URLs are skipped. Extra URLs are named "<name>#2", "<name>#3"...
func Resolve(cfgs []config.EndpointConfig, client HTTPClient) ([]Endpoint, error) {
	seen := make(map[string]bool)
	var endpoints []Endpoint

	for i, c := range cfgs {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("endpoint%d", i+1)
		}

		urls := append([]string{c.URL}, c.FallbackURLs...)
		n := 0
		for _, u := range urls {
			u = strings.TrimRight(strings.TrimSpace(u), "/")
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			n++

			epName := name
			if n > 1 {
				epName = fmt.Sprintf("%s#%d", name, n)
			}

			switch c.Type {
			case "", "goldapi":
				endpoints = append(endpoints, NewGoldAPI(epName, u, c.APIKey, client))
			case "metalpriceapi":
				endpoints = append(endpoints, NewMetalPriceAPI(epName, u, c.APIKey, client))
			default:
				return nil, fmt.Errorf("endpoint %q: unknown type %q", name, c.Type)
			}
		}
	}

	return endpoints, nil
}

// NewFromConfig builds a Client from the providers section of cfg.
func NewFromConfig(cfg config.ProvidersConfig, logger *slog.Logger) (*Client, error) {
	hc := userAgentClient{next: NewHTTPClient(cfg.Timeout), userAgent: cfg.UserAgent}
	endpoints, err := Resolve(cfg.Endpoints, hc)
	if err != nil {
		return nil, err
	}
	return New(endpoints, cfg.Timeout, logger), nil
}
