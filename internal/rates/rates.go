package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Provider returns the current USD to Bs exchange rate.
type Provider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// HTTPProvider fetches the rate from a JSON endpoint. The response is
// expected to carry the rate under "price", with "promedio" as an
// alternative key used by venezuelan rate aggregators.
type HTTPProvider struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPProvider builds a provider with a default 10s timeout.
func NewHTTPProvider(url string) *HTTPProvider {
	return &HTTPProvider{
		URL:     url,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Timeout: 10 * time.Second,
	}
}

type ratePayload struct {
	Price    json.Number `json:"price"`
	Promedio json.Number `json:"promedio"`
}

// Rate fetches and parses the current rate. A non-positive rate is an error,
// settlement math must never run against a zero rate.
func (p *HTTPProvider) Rate(ctx context.Context) (decimal.Decimal, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: build request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rates: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: read body: %w", err)
	}

	var payload ratePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("rates: decode: %w", err)
	}

	raw := payload.Price.String()
	if raw == "" {
		raw = payload.Promedio.String()
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("rates: no rate field in response")
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: parse rate %q: %w", raw, err)
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("rates: non-positive rate %s", rate)
	}
	return rate, nil
}

// Static always returns a fixed rate. Useful in tests and as an emergency
// override when the upstream feed is down.
type Static struct {
	Value decimal.Decimal
}

func (s Static) Rate(context.Context) (decimal.Decimal, error) {
	if s.Value.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("rates: non-positive static rate %s", s.Value)
	}
	return s.Value, nil
}
