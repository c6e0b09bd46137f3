package marketsync

import (
	"sort"
	"strings"

	"cointrack/pkg/market"
)

// MoversCount is how many gainers and losers are reported.
const MoversCount = 3

// View is the derived presentation of one payload under one Query.
type View struct {
	Coins   []market.MarketCoin `json:"coins"`
	Gainers []market.MarketCoin `json:"gainers"`
	Losers  []market.MarketCoin `json:"losers"`
}

// Derive filters and sorts the payload, and computes movers from the
// unfiltered payload. It never mutates coins.
func Derive(coins []market.MarketCoin, q Query) View {
	q = q.normalize()
	gainers, losers := Movers(coins, MoversCount)
	return View{
		Coins:   Sort(Filter(coins, q.Search), q.SortKey, q.Direction),
		Gainers: gainers,
		Losers:  losers,
	}
}

// Filter keeps coins whose name or symbol contains term, ignoring case.
// An empty term matches everything.
func Filter(coins []market.MarketCoin, term string) []market.MarketCoin {
	needle := strings.ToLower(term)
	out := make([]market.MarketCoin, 0, len(coins))
	for _, coin := range coins {
		if needle == "" ||
			strings.Contains(strings.ToLower(coin.Name), needle) ||
			strings.Contains(strings.ToLower(coin.Symbol), needle) {
			out = append(out, coin)
		}
	}
	return out
}

// Sort returns a stably sorted copy. Missing percentage changes compare as 0.
func Sort(coins []market.MarketCoin, key SortKey, dir SortDirection) []market.MarketCoin {
	out := make([]market.MarketCoin, len(coins))
	copy(out, coins)
	value := sortValue(key)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Asc {
			return value(out[i]) < value(out[j])
		}
		return value(out[i]) > value(out[j])
	})
	return out
}

// Movers ranks every coin that has a 24h change: up to n gainers largest
// first and up to n losers smallest first. The two lists draw from the same
// set, so a short page can show a coin in both. Ties keep payload order.
func Movers(coins []market.MarketCoin, n int) (gainers, losers []market.MarketCoin) {
	eligible := make([]market.MarketCoin, 0, len(coins))
	for _, coin := range coins {
		if coin.Change24h != nil {
			eligible = append(eligible, coin)
		}
	}
	gainers = head(Sort(eligible, SortChange24h, Desc), n)
	losers = head(Sort(eligible, SortChange24h, Asc), n)
	return gainers, losers
}

func sortValue(key SortKey) func(market.MarketCoin) float64 {
	switch key {
	case SortPrice:
		return func(c market.MarketCoin) float64 { return c.CurrentPrice }
	case SortChange24h:
		return func(c market.MarketCoin) float64 { return orZero(c.Change24h) }
	case SortChange7d:
		return func(c market.MarketCoin) float64 { return orZero(c.Change7d) }
	default:
		return func(c market.MarketCoin) float64 { return c.MarketCap }
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func head(coins []market.MarketCoin, n int) []market.MarketCoin {
	if n < 0 {
		n = 0
	}
	if len(coins) > n {
		return coins[:n]
	}
	return coins
}
