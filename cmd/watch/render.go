package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"cointrack/pkg/format"
	"cointrack/pkg/market"
	"cointrack/pkg/marketsync"
)

// screen is everything one redraw shows.
type screen struct {
	markets marketsync.Result
	global  marketsync.State[*market.GlobalStats]
	coin    *marketsync.CoinResult
	starred func(id string) bool
}

func render(w io.Writer, s screen) error {
	vs := s.markets.Params.Currency
	if vs == "" {
		vs = market.DefaultCurrency
	}

	fmt.Fprintln(w, globalLine(s.global, vs))
	fmt.Fprintln(w)

	switch {
	case s.markets.Loading():
		fmt.Fprintln(w, "Loading markets…")
	case s.markets.Err != nil && s.markets.Payload == nil:
		fmt.Fprintf(w, "Failed to load markets: %v\n", s.markets.Err)
	default:
		if err := marketTable(w, s.markets.View.Coins, vs, s.starred); err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Top gainers: %s\n", moversLine(s.markets.View.Gainers))
		fmt.Fprintf(w, "Top losers:  %s\n", moversLine(s.markets.View.Losers))
		if s.markets.Err != nil {
			fmt.Fprintf(w, "Showing last data, refresh failed: %v\n", s.markets.Err)
		}
	}
	fmt.Fprintln(w, statusLine(s.markets))

	if s.coin != nil {
		fmt.Fprintln(w)
		coinPanel(w, *s.coin)
	}
	return nil
}

func globalLine(state marketsync.State[*market.GlobalStats], vs market.Currency) string {
	if !state.HasData || state.Data == nil {
		if state.Err != nil {
			return "Global: unavailable"
		}
		return "Global: loading…"
	}
	stats := state.Data
	mcap := stats.TotalMarketCap[string(vs)]
	vol := stats.TotalVolume[string(vs)]
	return fmt.Sprintf("Market cap %s  ·  24h volume %s  ·  BTC dominance %.2f%%",
		format.Compact(mcap, vs), format.Compact(vol, vs), stats.MarketCapPercentage["btc"])
}

func marketTable(w io.Writer, coins []market.MarketCoin, vs market.Currency, starred func(string) bool) error {
	if len(coins) == 0 {
		_, err := fmt.Fprintln(w, "No coins to show.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\t \tCOIN\tPRICE\t1H\t24H\t7D\tMARKET CAP\t")
	for _, coin := range coins {
		rank := format.Dash
		if coin.MarketCapRank != nil {
			rank = fmt.Sprint(*coin.MarketCapRank)
		}
		star := " "
		if starred != nil && starred(coin.ID) {
			star = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			rank, star,
			strings.ToUpper(coin.Symbol),
			format.Currency(coin.CurrentPrice, vs),
			format.Percent(coin.Change1h),
			format.Percent(coin.Change24h),
			format.Percent(coin.Change7d),
			format.Compact(coin.MarketCap, vs))
	}
	return tw.Flush()
}

func moversLine(coins []market.MarketCoin) string {
	if len(coins) == 0 {
		return format.Dash
	}
	parts := make([]string, 0, len(coins))
	for _, coin := range coins {
		parts = append(parts, strings.ToUpper(coin.Symbol)+" "+format.Percent(coin.Change24h))
	}
	return strings.Join(parts, ", ")
}

func statusLine(res marketsync.Result) string {
	q := res.Query
	line := fmt.Sprintf("vs=%s sort=%s %s", res.Params.Currency, q.SortKey, q.Direction)
	if q.Search != "" {
		line += fmt.Sprintf(" search=%q", q.Search)
	}
	if !res.UpdatedAt.IsZero() {
		line += " updated " + res.UpdatedAt.Format(time.TimeOnly)
	}
	return line
}

func coinPanel(w io.Writer, res marketsync.CoinResult) {
	switch {
	case res.Loading:
		fmt.Fprintf(w, "Loading %s…\n", res.Key.ID)
		return
	case res.Detail == nil:
		fmt.Fprintf(w, "Failed to load %s: %v\n", res.Key.ID, res.Err)
		return
	}
	vs := res.Key.Currency
	d := res.Detail
	md := d.MarketData
	fmt.Fprintf(w, "%s (%s)  %s  %s\n", d.Name, strings.ToUpper(d.Symbol),
		format.Currency(priceOr(md.CurrentPrice, vs), vs), format.Percent(md.PriceChangePercentage24h))
	fmt.Fprintf(w, "24h high %s  low %s  market cap %s\n",
		format.Currency(priceOr(md.High24h, vs), vs),
		format.Currency(priceOr(md.Low24h, vs), vs),
		format.Compact(priceOr(md.MarketCap, vs), vs))
	if res.Chart != nil && len(res.Chart.Prices) > 0 {
		first, last := res.Chart.Prices[0], res.Chart.Prices[len(res.Chart.Prices)-1]
		fmt.Fprintf(w, "%sd chart: %d points, %s → %s\n", res.Key.Range, len(res.Chart.Prices),
			format.Currency(first.Price, vs), format.Currency(last.Price, vs))
	}
	if text := format.TruncateDescription(d.DescriptionFor("en"), 0); text != "" {
		fmt.Fprintln(w, text)
	}
}

// priceOr reads a per-currency figure, NaN when absent so it renders as a dash.
func priceOr(values map[string]float64, vs market.Currency) float64 {
	if v, ok := values[string(vs)]; ok {
		return v
	}
	return math.NaN()
}
