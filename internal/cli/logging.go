package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/config"
	"cointrack/pkg/confkit"
	marketpkg "cointrack/pkg/market"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Listen: %s:%d", cfg.Host, cfg.Port),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL markets/global/coin: %ds+%ds / %ds+%ds / %ds+%ds",
			cfg.TTL.Markets, cfg.TTL.MarketsStale, cfg.TTL.Global, cfg.TTL.GlobalStale, cfg.TTL.Coin, cfg.TTL.CoinStale),
		sectionLine("Upstream config", cfg.Upstream),
		upstreamLine(cfg.Upstream.Value),
		preferencesLine(cfg.Preferences),
		warmerLine(cfg.Warmer),
		fmt.Sprintf("Stream: interval=%s per_page=%d", cfg.Stream.Interval, cfg.Stream.PerPage),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	if src := section.Source(); src != "" {
		return fmt.Sprintf("%s: %s", name, src)
	}
	return fmt.Sprintf("%s: not configured (public coingecko)", name)
}

func upstreamLine(cfg *marketpkg.Config) string {
	if cfg == nil || len(cfg.Providers) == 0 {
		return "Upstream providers: coingecko (default)"
	}
	names := make([]string, 0, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		entry := fmt.Sprintf("%s=%s", name, provider.Type)
		if provider.APIKey != "" {
			entry += " (keyed)"
		}
		names = append(names, entry)
	}
	sort.Strings(names)
	def := cfg.Default
	if def == "" {
		def = "<single>"
	}
	return fmt.Sprintf("Upstream providers: %s; default=%s", strings.Join(names, ", "), def)
}

func preferencesLine(p config.PreferencesConf) string {
	backend := strings.ToLower(strings.TrimSpace(p.Backend))
	if backend == "" {
		backend = config.PrefsMemory
	}
	line := "Preferences: " + backend
	if backend == config.PrefsFile {
		line += " (" + p.Path + ")"
	}
	if p.Scope != "" {
		line += " scope=" + p.Scope
	}
	return line
}

func warmerLine(w config.WarmerConf) string {
	if !w.Enabled {
		return "Warmer: disabled"
	}
	currencies := "usd"
	if len(w.Currencies) > 0 {
		currencies = strings.Join(w.Currencies, ",")
	}
	return fmt.Sprintf("Warmer: %s currencies=%s pages=%d", w.Spec, currencies, max(w.Pages, 1))
}
