package market

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Currency is a display currency code understood by the upstream API.
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyIDR Currency = "idr"

	DefaultCurrency = CurrencyUSD
)

var supportedCurrencies = []Currency{CurrencyUSD, CurrencyIDR}

// SupportedCurrencies lists the closed set of display currencies.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

// ParseCurrency normalizes a currency code and reports whether it is supported.
func ParseCurrency(raw string) (Currency, bool) {
	code := Currency(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range supportedCurrencies {
		if c == code {
			return c, true
		}
	}
	return "", false
}

// MarketCoin is one asset's market snapshot as listed by /coins/markets.
type MarketCoin struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Image         string    `json:"image"`
	CurrentPrice  float64   `json:"current_price"`
	MarketCap     float64   `json:"market_cap"`
	MarketCapRank *int      `json:"market_cap_rank"`
	TotalVolume   float64   `json:"total_volume"`
	Change1h      *float64  `json:"price_change_percentage_1h_in_currency"`
	Change24h     *float64  `json:"price_change_percentage_24h_in_currency"`
	Change7d      *float64  `json:"price_change_percentage_7d_in_currency"`
	Sparkline     Sparkline `json:"sparkline_in_7d"`
}

// Sparkline holds chronological 7 day price samples.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// GlobalStats aggregates the whole market.
type GlobalStats struct {
	TotalMarketCap      map[string]float64 `json:"total_market_cap"`
	TotalVolume         map[string]float64 `json:"total_volume"`
	MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
}

// GlobalResponse is the body served by /api/global and returned by upstream /global.
type GlobalResponse struct {
	Data GlobalStats `json:"data"`
}

// CoinImage lists image URLs by size.
type CoinImage struct {
	Large string `json:"large"`
	Small string `json:"small"`
	Thumb string `json:"thumb"`
}

// CoinMarketData carries per-currency figures keyed by currency code.
type CoinMarketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
	High24h                  map[string]float64 `json:"high_24h"`
	Low24h                   map[string]float64 `json:"low_24h"`
	MarketCap                map[string]float64 `json:"market_cap"`
	CirculatingSupply        float64            `json:"circulating_supply"`
	TotalSupply              *float64           `json:"total_supply"`
}

// CoinDetail is the extended single-asset view.
type CoinDetail struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Name        string            `json:"name"`
	Image       CoinImage         `json:"image"`
	MarketData  CoinMarketData    `json:"market_data"`
	Description map[string]string `json:"description"`
}

// DescriptionFor returns the description for a locale, falling back to English.
func (d *CoinDetail) DescriptionFor(locale string) string {
	if d == nil {
		return ""
	}
	if text := strings.TrimSpace(d.Description[locale]); text != "" {
		return text
	}
	return strings.TrimSpace(d.Description["en"])
}

// ChartPoint is a single (timestamp, price) sample encoded as a two element array.
type ChartPoint struct {
	Timestamp int64 // unix milliseconds
	Price     float64
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Timestamp), p.Price})
}

func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("chart point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("chart point: expected 2 values, got %d", len(raw))
	}
	p.Timestamp = int64(raw[0])
	p.Price = raw[1]
	return nil
}

// CoinChart is an ordered price series covering a lookback window.
type CoinChart struct {
	Prices []ChartPoint `json:"prices"`
}

// CoinResponse is the combined body served by /api/coin.
type CoinResponse struct {
	Detail CoinDetail `json:"detail"`
	Chart  CoinChart  `json:"chart"`
}
