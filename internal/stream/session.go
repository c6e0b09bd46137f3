// Package stream pushes live market views to websocket subscribers. Each
// connection owns one MarketSync for its lifetime.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/types"
	"cointrack/pkg/market"
	"cointrack/pkg/marketsync"
)

// Mode selects what a stream lists.
type Mode int

const (
	// Markets lists the top coins by market cap.
	Markets Mode = iota
	// Watchlist lists the coins in the preference store's watchlist.
	Watchlist
)

// ErrUnsupportedCurrency rejects a stream request before the upgrade.
var ErrUnsupportedCurrency = errors.New("stream: unsupported currency")

// Options tune one session.
type Options struct {
	Interval     time.Duration
	ReadTimeout  time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = marketsync.DefaultInterval
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.ReadTimeout {
		o.PingInterval = o.ReadTimeout / 2
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Setup is the subscription a stream request asks for.
type Setup struct {
	Params    marketsync.Params
	Query     marketsync.Query
	BindPrefs bool
}

// ParseRequest validates req for mode. The markets stream follows the
// preference currency unless vs is given; the watchlist stream always follows
// the preference store.
func ParseRequest(mode Mode, req *types.StreamReq, perPage int) (Setup, error) {
	setup := Setup{Query: marketsync.DefaultQuery()}
	if key, ok := marketsync.ParseSortKey(req.Sort); ok {
		setup.Query.SortKey = key
	}
	setup.Query.Search = req.Search

	if n, err := strconv.Atoi(strings.TrimSpace(req.PerPage)); err == nil && n > 0 {
		perPage = n
	}
	setup.Params = marketsync.Params{PerPage: perPage, Page: 1}

	if strings.TrimSpace(req.Vs) != "" {
		c, ok := market.ParseCurrency(req.Vs)
		if !ok {
			return Setup{}, ErrUnsupportedCurrency
		}
		setup.Params.Currency = c
	}

	switch mode {
	case Watchlist:
		setup.Params.Watchlist = true
		setup.BindPrefs = true
	default:
		setup.BindPrefs = strings.TrimSpace(req.Vs) == ""
	}
	return setup, nil
}

// Serve upgrades the request and streams frames until the client leaves.
func Serve(w http.ResponseWriter, r *http.Request, source marketsync.Source, prefs marketsync.Preferences, setup Setup, opts Options) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()

	ms := marketsync.NewMarketSync(source, setup.Params, marketsync.WithInterval(opts.Interval))
	ms.SetQuery(setup.Query)
	if setup.BindPrefs && prefs != nil {
		ms.BindPreferences(prefs)
	}

	s := &session{conn: conn, sync: ms, opts: opts}
	return s.run(r.Context())
}

type session struct {
	conn    *websocket.Conn
	sync    *marketsync.MarketSync
	opts    Options
	writeMu sync.Mutex
}

func (s *session) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	s.sync.Start(ctx)
	defer s.sync.Stop()

	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(ctx)
		cancel()
	}()
	go s.pingLoop(ctx)

	if err := s.push(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			s.closeNormal()
			select {
			case err := <-readErr:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			default:
				return nil
			}
		case <-s.sync.Changes():
			if err := s.push(); err != nil {
				return err
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		var cmd types.StreamCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logx.WithContext(ctx).Infof("stream: ignoring malformed command: %v", err)
			continue
		}
		Apply(s.sync, cmd)
	}
}

// Apply executes a client command against ms. Unknown actions and invalid
// arguments are ignored.
func Apply(ms *marketsync.MarketSync, cmd types.StreamCommand) bool {
	switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
	case "sort":
		key, ok := marketsync.ParseSortKey(cmd.Key)
		if !ok {
			return false
		}
		ms.ToggleSort(key)
	case "search":
		ms.SetSearch(cmd.Term)
	case "refresh":
		ms.Refresh()
	case "currency":
		c, ok := market.ParseCurrency(cmd.Vs)
		if !ok {
			return false
		}
		ms.SetCurrency(c)
	default:
		return false
	}
	return true
}

func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				logx.WithContext(ctx).Infof("stream: ping failed: %v", err)
				return
			}
		}
	}
}

func (s *session) push() error {
	frame := NewFrame(s.sync.Result())
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.conn.WriteJSON(frame)
}

func (s *session) closeNormal() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.opts.WriteTimeout))
}

// NewFrame renders a sync result for the wire.
func NewFrame(res marketsync.Result) types.StreamFrame {
	frame := types.StreamFrame{
		Status:    res.Status.String(),
		Currency:  string(res.Params.Currency),
		IDs:       res.Params.IDs,
		Sort:      string(res.Query.SortKey),
		Direction: string(res.Query.Direction),
		Search:    res.Query.Search,
		Coins:     res.View.Coins,
		Gainers:   res.View.Gainers,
		Losers:    res.View.Losers,
	}
	if res.Err != nil {
		frame.Error = res.Err.Error()
	}
	if !res.UpdatedAt.IsZero() {
		frame.UpdatedAt = res.UpdatedAt.UnixMilli()
	}
	return frame
}
