package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cointrack/internal/config"
	"cointrack/pkg/market"
)

// Namespace is the key prefix for the cointrack application.
const Namespace = "cointrack"

// Policy is one endpoint's edge cache lifetime.
type Policy struct {
	Fresh time.Duration
	Stale time.Duration
}

// Header renders the Cache-Control value for the policy.
func (p Policy) Header() string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		int(p.Fresh/time.Second), int(p.Stale/time.Second))
}

// Policies groups the cache lifetimes of the proxy endpoints.
type Policies struct {
	Markets Policy
	Global  Policy
	Coin    Policy
}

// NewPolicies converts config TTLs (in seconds) into durations.
func NewPolicies(cfg config.CacheTTL) Policies {
	return Policies{
		Markets: Policy{
			Fresh: durationOrDefault(cfg.Markets, 10*time.Second),
			Stale: durationOrDefault(cfg.MarketsStale, 30*time.Second),
		},
		Global: Policy{
			Fresh: durationOrDefault(cfg.Global, 30*time.Second),
			Stale: durationOrDefault(cfg.GlobalStale, 120*time.Second),
		},
		Coin: Policy{
			Fresh: durationOrDefault(cfg.Coin, 10*time.Second),
			Stale: durationOrDefault(cfg.CoinStale, 30*time.Second),
		},
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Upstream response keys -------------------------------------------------

// MarketsKey identifies a normalized markets listing.
func MarketsKey(q market.MarketsQuery) string {
	q = q.Normalize()
	return formatKey("resp", "markets", string(q.Currency),
		strconv.Itoa(q.PerPage), strconv.Itoa(q.Page), strings.Join(q.IDs, ","))
}

func GlobalKey() string {
	return formatKey("resp", "global")
}

// CoinKey identifies one coin's detail and chart window.
func CoinKey(q market.CoinQuery) string {
	q = q.Normalize()
	return formatKey("resp", "coin", q.ID, string(q.Currency), strconv.Itoa(q.Days))
}

// WarmLockKey guards a warm-up run so replicas do not stampede upstream.
func WarmLockKey() string {
	return formatKey("lock", "warm")
}

// --- Preference keys --------------------------------------------------------

// PrefCurrencyKey stores the display currency code. An empty scope yields
// cointrack:pref:currency.
func PrefCurrencyKey(scope string) string {
	return formatKey("pref", scope, "currency")
}

// PrefWatchlistKey stores the watchlist as a JSON array of ids.
func PrefWatchlistKey(scope string) string {
	return formatKey("pref", scope, "watchlist")
}
