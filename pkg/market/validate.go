package market

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidPayload marks an upstream payload that failed schema checks.
var ErrInvalidPayload = errors.New("market: invalid upstream payload")

// NormalizeCoins drops listings without an id and scrubs non-finite numbers so
// consumers never see NaN or Inf.
func NormalizeCoins(coins []MarketCoin) []MarketCoin {
	out := make([]MarketCoin, 0, len(coins))
	for _, coin := range coins {
		coin.ID = strings.TrimSpace(coin.ID)
		if coin.ID == "" {
			continue
		}
		coin.CurrentPrice = finiteOrZero(coin.CurrentPrice)
		coin.MarketCap = finiteOrZero(coin.MarketCap)
		coin.TotalVolume = finiteOrZero(coin.TotalVolume)
		coin.Change1h = finiteOrNil(coin.Change1h)
		coin.Change24h = finiteOrNil(coin.Change24h)
		coin.Change7d = finiteOrNil(coin.Change7d)
		if coin.MarketCapRank != nil && *coin.MarketCapRank <= 0 {
			coin.MarketCapRank = nil
		}
		coin.Sparkline.Price = finiteSeries(coin.Sparkline.Price)
		out = append(out, coin)
	}
	return out
}

// NormalizeGlobal guarantees non-nil maps.
func NormalizeGlobal(stats *GlobalStats) *GlobalStats {
	if stats == nil {
		stats = &GlobalStats{}
	}
	if stats.TotalMarketCap == nil {
		stats.TotalMarketCap = map[string]float64{}
	}
	if stats.TotalVolume == nil {
		stats.TotalVolume = map[string]float64{}
	}
	if stats.MarketCapPercentage == nil {
		stats.MarketCapPercentage = map[string]float64{}
	}
	return stats
}

// ValidateDetail rejects a detail payload that does not identify a coin.
func ValidateDetail(detail *CoinDetail) error {
	if detail == nil || strings.TrimSpace(detail.ID) == "" {
		return ErrInvalidPayload
	}
	if detail.MarketData.TotalSupply != nil && !isFinite(*detail.MarketData.TotalSupply) {
		detail.MarketData.TotalSupply = nil
	}
	detail.MarketData.PriceChangePercentage24h = finiteOrNil(detail.MarketData.PriceChangePercentage24h)
	detail.MarketData.CirculatingSupply = finiteOrZero(detail.MarketData.CirculatingSupply)
	return nil
}

// NormalizeChart drops samples with non-finite values.
func NormalizeChart(chart *CoinChart) *CoinChart {
	if chart == nil {
		return &CoinChart{Prices: []ChartPoint{}}
	}
	points := make([]ChartPoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if !isFinite(p.Price) || p.Timestamp <= 0 {
			continue
		}
		points = append(points, p)
	}
	chart.Prices = points
	return chart
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !isFinite(*v) {
		return nil
	}
	return v
}

func finiteSeries(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}
