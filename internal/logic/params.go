package logic

import (
	"strconv"
	"strings"

	"cointrack/internal/types"
	"cointrack/pkg/market"
)

func parseCurrency(raw string) (market.Currency, error) {
	if strings.TrimSpace(raw) == "" {
		return market.DefaultCurrency, nil
	}
	c, ok := market.ParseCurrency(raw)
	if !ok {
		return "", badRequest(msgUnsupportedCurrency)
	}
	return c, nil
}

// intOr parses raw leniently: blank or non-numeric input yields fallback.
func intOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ParseMarketsReq converts query values into a bounded upstream query.
func ParseMarketsReq(req *types.MarketsReq) (market.MarketsQuery, error) {
	vs, err := parseCurrency(req.Vs)
	if err != nil {
		return market.MarketsQuery{}, err
	}
	q := market.MarketsQuery{
		Currency: vs,
		PerPage:  clamp(intOr(req.PerPage, market.DefaultPerPage), 1, market.MaxPerPage),
		Page:     max(intOr(req.Page, market.DefaultPage), 1),
		IDs:      market.SplitIDs(req.IDs),
	}
	return q.Normalize(), nil
}

// ParseCoinReq validates id and days before any upstream call is made.
func ParseCoinReq(req *types.CoinReq) (market.CoinQuery, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return market.CoinQuery{}, badRequest(msgMissingCoinID)
	}
	vs, err := parseCurrency(req.Vs)
	if err != nil {
		return market.CoinQuery{}, err
	}
	days := market.DefaultDays
	if raw := strings.TrimSpace(req.Days); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return market.CoinQuery{}, badRequest(msgInvalidDays)
		}
		days = n
	}
	return market.CoinQuery{ID: id, Currency: vs, Days: days}.Normalize(), nil
}
