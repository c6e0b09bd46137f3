// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

import "cointrack/pkg/market"

// Numeric query values are bound as strings so malformed input is reported
// with the endpoint's own message rather than the binder's.

type MarketsReq struct {
	Vs      string `form:"vs,optional"`
	PerPage string `form:"per_page,optional"`
	Page    string `form:"page,optional"`
	IDs     string `form:"ids,optional"`
}

type CoinReq struct {
	ID   string `form:"id,optional"`
	Vs   string `form:"vs,optional"`
	Days string `form:"days,optional"`
}

type MessageResp struct {
	Message string `json:"message"`
}

type PreferencesResp struct {
	Currency  string   `json:"currency"`
	Watchlist []string `json:"watchlist"`
}

type SetCurrencyReq struct {
	Currency string `json:"currency,optional"`
}

type ToggleWatchReq struct {
	ID string `json:"id,optional"`
}

type StreamReq struct {
	Vs      string `form:"vs,optional"`
	PerPage string `form:"per_page,optional"`
	Sort    string `form:"sort,optional"`
	Search  string `form:"q,optional"`
}

// StreamCommand is a client message on a market stream.
type StreamCommand struct {
	Action string `json:"action"` // sort | search | refresh | currency
	Key    string `json:"key,omitempty"`
	Term   string `json:"term,omitempty"`
	Vs     string `json:"vs,omitempty"`
}

// StreamFrame is pushed after every poll result or query change.
type StreamFrame struct {
	Status    string              `json:"status"`
	Error     string              `json:"error,omitempty"`
	Currency  string              `json:"currency"`
	IDs       []string            `json:"ids,omitempty"`
	Sort      string              `json:"sort"`
	Direction string              `json:"direction"`
	Search    string              `json:"search"`
	Coins     []market.MarketCoin `json:"coins"`
	Gainers   []market.MarketCoin `json:"gainers"`
	Losers    []market.MarketCoin `json:"losers"`
	UpdatedAt int64               `json:"updated_at,omitempty"` // unix ms
}
