package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"cointrack/internal/cli"
	"cointrack/internal/config"
	"cointrack/pkg/format"
	"cointrack/pkg/market"

	// Import for side-effects: registers the coingecko provider
	_ "cointrack/pkg/market/exchanges/coingecko"
)

const (
	monitorInterval = 2 * time.Minute  // Upstream monitoring interval
	apiTimeout      = 10 * time.Second // Timeout for individual API calls
	shutdownTimeout = 10 * time.Second // Grace period for shutdown
)

var monitoredCoins = []string{"bitcoin", "ethereum", "solana"}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting upstream monitor...")

	configPath := "etc/cointrack.yaml"
	appCfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test"}
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	upstreamCfg := appCfg.Upstream.Value
	upstreamPath := appCfg.Upstream.File
	if upstreamCfg == nil {
		upstreamCfg = config.MustLoadUpstream()
		if upstreamPath == "" {
			upstreamPath = "etc/upstream.yaml (default)"
		}
	}
	log.Printf("  - Upstream Config Path: %s", upstreamPath)
	log.Printf("  - Monitored Coins: %v", monitoredCoins)
	log.Printf("  - Monitoring Interval: %s", monitorInterval)

	providers, err := upstreamCfg.BuildProviders()
	if err != nil {
		log.Fatalf("[main] Failed to build upstream providers: %v", err)
	}
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string, provider market.Provider) {
			defer wg.Done()
			runMonitor(ctx, name, provider)
		}(name, providers[name])
	}

	log.Println("[main] Upstream monitor started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Upstream monitor stopped")
}

// runMonitor checks one provider on a schedule
func runMonitor(ctx context.Context, name string, provider market.Provider) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	// Run once immediately on startup
	monitorUpstream(ctx, name, provider)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Stopping monitor", name)
			return
		case <-ticker.C:
			monitorUpstream(ctx, name, provider)
		}
	}
}

// monitorUpstream calls every proxied upstream interface and logs results
func monitorUpstream(parentCtx context.Context, name string, provider market.Provider) {
	if parentCtx.Err() != nil {
		return
	}

	for _, vs := range market.SupportedCurrencies() {
		func(vs market.Currency) {
			ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
			defer cancel()

			start := time.Now()
			coins, err := provider.Markets(ctx, market.MarketsQuery{Currency: vs})
			elapsed := time.Since(start)

			if err != nil {
				log.Printf("[%s.markets.%s] [ERROR] %v, took %dms", name, vs, err, elapsed.Milliseconds())
				return
			}
			if len(coins) == 0 {
				log.Printf("[%s.markets.%s] [WARN] empty listing, took %dms", name, vs, elapsed.Milliseconds())
				return
			}

			top := coins[0]
			log.Printf("[%s.markets.%s] [OK] %d coins, top=%s price=%s 24h=%s, took %dms",
				name, vs, len(coins), top.ID,
				format.Currency(top.CurrentPrice, vs),
				format.Percent(top.Change24h),
				elapsed.Milliseconds())
		}(vs)
	}

	func() {
		ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
		defer cancel()

		start := time.Now()
		stats, err := provider.Global(ctx)
		elapsed := time.Since(start)

		if err != nil {
			log.Printf("[%s.global] [ERROR] %v, took %dms", name, err, elapsed.Milliseconds())
			return
		}
		if stats == nil {
			log.Printf("[%s.global] [WARN] received nil stats, took %dms", name, elapsed.Milliseconds())
			return
		}

		log.Printf("[%s.global] [OK] market_cap=%s, btc_dominance=%.2f%%, took %dms",
			name,
			format.Compact(stats.TotalMarketCap[string(market.CurrencyUSD)], market.CurrencyUSD),
			stats.MarketCapPercentage["btc"],
			elapsed.Milliseconds())
	}()

	for _, id := range monitoredCoins {
		func(id string) {
			ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
			defer cancel()

			start := time.Now()
			coin, err := provider.Coin(ctx, market.CoinQuery{ID: id, Days: 1})
			elapsed := time.Since(start)

			if err != nil {
				log.Printf("[%s.coin.%s] [ERROR] %v, took %dms", name, id, err, elapsed.Milliseconds())
				return
			}
			if len(coin.Chart.Prices) == 0 {
				log.Printf("[%s.coin.%s] [WARN] empty chart, took %dms", name, id, elapsed.Milliseconds())
				return
			}

			log.Printf("[%s.coin.%s] [OK] %s, %d chart points, took %dms",
				name, id, coin.Detail.Name, len(coin.Chart.Prices), elapsed.Milliseconds())
		}(id)
	}
}
