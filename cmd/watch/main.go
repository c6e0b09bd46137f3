package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/prefs"
	"cointrack/pkg/confkit"
	"cointrack/pkg/fetcher"
	"cointrack/pkg/market"
	"cointrack/pkg/marketsync"
)

const clearScreen = "\033[H\033[2J"

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func defaultPrefsPath() string {
	if p, err := confkit.ProjectPath("data/preferences.json"); err == nil {
		return p
	}
	return "preferences.json"
}

func main() {
	var (
		apiURL    = flag.String("api", "http://localhost:8888", "base URL of the cointrack API")
		prefsPath = flag.String("prefs", defaultPrefsPath(), "preferences file shared with the API file backend")
		vsRaw     = flag.String("vs", "", "display currency; defaults to the stored preference")
		watchlist = flag.Bool("watchlist", false, "list only watchlisted coins")
		perPage   = flag.Int("per-page", market.DefaultPerPage, "coins per page")
		sortRaw   = flag.String("sort", string(marketsync.SortMarketCap), "market_cap | price | change_24h | change_7d")
		search    = flag.String("q", "", "filter by name or symbol")
		coinID    = flag.String("coin", "", "show detail for one coin id")
		rangeRaw  = flag.String("range", string(marketsync.Range7d), "coin chart range: 1 | 7 | 30")
		interval  = flag.Duration("interval", marketsync.DefaultInterval, "refresh interval")
		once      = flag.Bool("once", false, "print the first complete screen and exit")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{Mode: "console", Encoding: "plain"})
	logx.DisableStat()

	store := prefs.NewStore(prefs.NewFileBackend(*prefsPath))

	params := marketsync.Params{PerPage: *perPage, Page: 1, Watchlist: *watchlist}
	bindPrefs := *watchlist
	if *vsRaw != "" {
		vs, ok := market.ParseCurrency(*vsRaw)
		if !ok {
			fatalf("unsupported currency %q", *vsRaw)
		}
		params.Currency = vs
	} else {
		bindPrefs = true
	}

	source := marketsync.NewHTTPSource(fetcher.New(), *apiURL)
	pollOpts := []marketsync.PollerOption{marketsync.WithInterval(*interval)}

	ms := marketsync.NewMarketSync(source, params, pollOpts...)
	query := marketsync.DefaultQuery()
	if key, ok := marketsync.ParseSortKey(*sortRaw); ok {
		query.SortKey = key
	}
	query.Search = *search
	ms.SetQuery(query)
	if bindPrefs {
		ms.BindPreferences(store)
	}

	gs := marketsync.NewGlobalSync(source)

	var cs *marketsync.CoinSync
	if *coinID != "" {
		cs = marketsync.NewCoinSync(source, marketsync.CoinKey{
			ID:       *coinID,
			Currency: ms.Params().Currency,
			Range:    marketsync.ParseRange(*rangeRaw),
		}, pollOpts...)
		if *vsRaw == "" {
			cs.BindCurrency(store)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ms.Start(ctx)
	defer ms.Stop()
	gs.Start(ctx)
	defer gs.Stop()

	var coinUpdates <-chan marketsync.State[*market.CoinResponse]
	if cs != nil {
		cs.Start(ctx)
		defer cs.Stop()
		coinUpdates = cs.Updates()
	}

	draw := func() bool {
		s := screen{
			markets: ms.Result(),
			global:  gs.State(),
			starred: store.Contains,
		}
		if cs != nil {
			res := cs.Result()
			s.coin = &res
		}
		if !*once {
			fmt.Print(clearScreen)
		} else if !complete(s) {
			return false
		}
		if err := render(os.Stdout, s); err != nil {
			logx.Errorf("render: %v", err)
		}
		return *once
	}

	timeout := time.NewTimer(2 * *interval)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ms.Changes():
		case <-gs.Updates():
		case <-coinUpdates:
		case <-timeout.C:
			if *once {
				fatalf("timed out waiting for %s", *apiURL)
			}
			continue
		}
		if draw() {
			return
		}
	}
}

// complete reports whether every panel has settled.
func complete(s screen) bool {
	if s.markets.Loading() || s.global.Status == marketsync.Loading {
		return false
	}
	return s.coin == nil || !s.coin.Loading
}
