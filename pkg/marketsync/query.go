package marketsync

import "strings"

// SortKey selects the field a market table is ordered by.
type SortKey string

const (
	SortMarketCap SortKey = "market_cap"
	SortPrice     SortKey = "price"
	SortChange24h SortKey = "change_24h"
	SortChange7d  SortKey = "change_7d"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Query is the sort/filter state applied to the latest payload.
type Query struct {
	SortKey   SortKey
	Direction SortDirection
	Search    string
}

// DefaultQuery orders by market cap, largest first, with no search term.
func DefaultQuery() Query {
	return Query{SortKey: SortMarketCap, Direction: Desc}
}

// Toggle flips the direction when key is already active, otherwise selects
// key in descending order.
func (q Query) Toggle(key SortKey) Query {
	if q.SortKey == key {
		if q.Direction == Desc {
			q.Direction = Asc
		} else {
			q.Direction = Desc
		}
		return q
	}
	q.SortKey = key
	q.Direction = Desc
	return q
}

func (q Query) normalize() Query {
	if _, ok := ParseSortKey(string(q.SortKey)); !ok {
		q.SortKey = SortMarketCap
	}
	if q.Direction != Asc {
		q.Direction = Desc
	}
	return q
}

// ParseSortKey accepts the wire names of the sort keys.
func ParseSortKey(raw string) (SortKey, bool) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortMarketCap, SortPrice, SortChange24h, SortChange7d:
		return key, true
	default:
		return "", false
	}
}
