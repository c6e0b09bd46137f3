// Package format renders market values for terminal and text output.
package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"cointrack/pkg/market"
)

// Dash stands in for a missing value.
const Dash = "—"

type currencyStyle struct {
	tag     language.Tag
	symbol  string
	spacer  string
	decimal string
	units   []compactUnit
}

type compactUnit struct {
	exp    int32
	suffix string
}

var styles = map[market.Currency]currencyStyle{
	market.CurrencyUSD: {
		tag:     language.AmericanEnglish,
		symbol:  "$",
		decimal: ".",
		units:   []compactUnit{{12, "T"}, {9, "B"}, {6, "M"}, {3, "K"}},
	},
	market.CurrencyIDR: {
		tag:     language.Indonesian,
		symbol:  "Rp",
		spacer:  " ",
		decimal: ",",
		units:   []compactUnit{{12, " T"}, {9, " M"}, {6, " jt"}, {3, " rb"}},
	},
}

func styleFor(c market.Currency) currencyStyle {
	if s, ok := styles[c]; ok {
		return s
	}
	return styles[market.DefaultCurrency]
}

func missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Currency renders v with the currency's symbol and locale grouping. Values
// below 1 keep up to six fraction digits.
func Currency(v float64, c market.Currency) string {
	if missing(v) {
		return Dash
	}
	style := styleFor(c)
	maxDigits := 2
	if math.Abs(v) < 1 {
		maxDigits = 6
	}
	rounded := decimal.NewFromFloat(v).Round(int32(maxDigits))
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	p := message.NewPrinter(style.tag)
	digits := p.Sprint(number.Decimal(rounded.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(maxDigits)))
	return sign + style.symbol + style.spacer + digits
}

// Percent renders a percentage change with an explicit sign, e.g. +2.50%.
func Percent(v *float64) string {
	if v == nil || missing(*v) {
		return Dash
	}
	d := decimal.NewFromFloat(*v).Round(2)
	prefix := ""
	if d.IsPositive() {
		prefix = "+"
	}
	return prefix + d.StringFixed(2) + "%"
}

// Compact abbreviates large numbers, e.g. 12.3M, using the currency's locale
// suffixes. The currency only selects the locale; no symbol is added.
func Compact(v float64, c market.Currency) string {
	if missing(v) {
		return Dash
	}
	style := styleFor(c)
	d := decimal.NewFromFloat(v)
	suffix := ""
	for _, unit := range style.units {
		scale := decimal.New(1, unit.exp)
		if d.Abs().GreaterThanOrEqual(scale) {
			d = d.Div(scale)
			suffix = unit.suffix
			break
		}
	}
	text := d.Round(2).String()
	if style.decimal != "." {
		text = strings.Replace(text, ".", style.decimal, 1)
	}
	return text + suffix
}

// Trend classifies a change for coloring.
type Trend string

const (
	Positive Trend = "positive"
	Negative Trend = "negative"
	Neutral  Trend = "neutral"
)

// Sign returns the trend of a change. Missing and zero changes are neutral.
func Sign(v *float64) Trend {
	switch {
	case v == nil || missing(*v) || *v == 0:
		return Neutral
	case *v > 0:
		return Positive
	default:
		return Negative
	}
}
