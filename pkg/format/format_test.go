package format

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cointrack/pkg/market"
)

func ptr(v float64) *float64 { return &v }

func TestCurrency(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		c    market.Currency
		want string
	}{
		{name: "usd grouping", v: 1234.56, c: market.CurrencyUSD, want: "$1,234.56"},
		{name: "usd pads cents", v: 42, c: market.CurrencyUSD, want: "$42.00"},
		{name: "usd small value keeps precision", v: 0.000123, c: market.CurrencyUSD, want: "$0.000123"},
		{name: "usd negative", v: -5, c: market.CurrencyUSD, want: "-$5.00"},
		{name: "idr locale separators", v: 1234.5, c: market.CurrencyIDR, want: "Rp 1.234,50"},
		{name: "unknown currency falls back to usd", v: 1, c: "eur", want: "$1.00"},
		{name: "nan", v: math.NaN(), c: market.CurrencyUSD, want: Dash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.v, tt.c))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "+2.50%", Percent(ptr(2.5)))
	assert.Equal(t, "-1.23%", Percent(ptr(-1.234)))
	assert.Equal(t, "0.00%", Percent(ptr(0)))
	assert.Equal(t, Dash, Percent(nil))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "12.3M", Compact(12_300_000, market.CurrencyUSD))
	assert.Equal(t, "1.5T", Compact(1_500_000_000_000, market.CurrencyUSD))
	assert.Equal(t, "999", Compact(999, market.CurrencyUSD))
	assert.Equal(t, "12,3 jt", Compact(12_300_000, market.CurrencyIDR))
	assert.Equal(t, Dash, Compact(math.Inf(1), market.CurrencyUSD))
}

func TestSign(t *testing.T) {
	assert.Equal(t, Positive, Sign(ptr(0.1)))
	assert.Equal(t, Negative, Sign(ptr(-0.1)))
	assert.Equal(t, Neutral, Sign(ptr(0)))
	assert.Equal(t, Neutral, Sign(nil))
}

func TestTruncateDescription(t *testing.T) {
	assert.Equal(t, "", TruncateDescription("", 0))
	assert.Equal(t, "Bitcoin is a coin & more.",
		TruncateDescription(`<p>Bitcoin is <a href="#">a coin</a> &amp; more.</p><script>x()</script>`, 0))

	long := strings.Repeat("a", DescriptionLength+10)
	got := TruncateDescription(long, 0)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Len(t, []rune(got), DescriptionLength+1)

	assert.Equal(t, "héll…", TruncateDescription("héllo", 4))
}
