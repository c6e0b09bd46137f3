package svc

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	"cointrack/internal/cache"
	"cointrack/internal/config"
	"cointrack/internal/prefs"
	"cointrack/internal/respcache"
	"cointrack/pkg/confkit"
	marketpkg "cointrack/pkg/market"
	"cointrack/pkg/market/exchanges/coingecko"
)

type ServiceContext struct {
	Config config.Config

	UpstreamConfig *marketpkg.Config
	Upstream       marketpkg.Provider

	Policies  cache.Policies
	Responses respcache.Store
	Flights   syncx.SingleFlight

	Preferences *prefs.Store

	// Optional stores, set only when configured.
	Redis  *redis.Redis
	DBConn sqlx.SqlConn
}

func NewServiceContext(c config.Config, mainConfigPath string) *ServiceContext {
	applyEnvDefaults(&c)

	svc := &ServiceContext{
		Config:   c,
		Policies: cache.NewPolicies(c.TTL),
		Flights:  syncx.NewSingleFlight(),
	}

	if strings.TrimSpace(c.Redis.Host) != "" {
		svc.Redis = redis.MustNewRedis(c.Redis)
	}
	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
	}

	// Upstream providers come from the upstream section when present,
	// otherwise a public CoinGecko client keyed by CG_API_KEY.
	if c.Upstream.Value != nil {
		provider, err := c.Upstream.Value.DefaultProvider()
		if err != nil {
			log.Fatalf("failed to build upstream provider: %v", err)
		}
		svc.UpstreamConfig = c.Upstream.Value
		svc.Upstream = provider
	} else {
		svc.Upstream = coingecko.NewProvider(coingecko.WithClientOptions(
			coingecko.WithAPIKey(os.Getenv("CG_API_KEY")),
		))
	}

	if svc.Redis != nil {
		svc.Responses = respcache.NewRedisStore(svc.Redis)
	} else {
		svc.Responses = respcache.NewMemoryStore(time.Minute)
	}

	backend, err := svc.preferencesBackend(mainConfigPath)
	if err != nil {
		log.Fatalf("failed to init preferences backend: %v", err)
	}
	svc.Preferences = prefs.NewStore(backend, prefs.WithScope(c.Preferences.Scope))
	return svc
}

// applyEnvDefaults keeps the test environment from calling upstream on a
// schedule.
func applyEnvDefaults(c *config.Config) {
	if c.IsTestEnv() {
		c.Warmer.Enabled = false
	}
}

func (s *ServiceContext) preferencesBackend(mainConfigPath string) (prefs.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s.Config.Preferences.Backend)) {
	case config.PrefsFile:
		path := s.Config.ResolvePath(s.Config.Preferences.Path)
		if s.Config.BaseDir() == "" && mainConfigPath != "" {
			path = confkit.ResolvePath(confkit.BaseDir(mainConfigPath), s.Config.Preferences.Path)
		}
		return prefs.NewFileBackend(path), nil
	case config.PrefsRedis:
		if s.Redis == nil {
			return nil, errors.New("redis preferences backend requires redis.host")
		}
		return prefs.NewRedisBackend(s.Redis), nil
	case config.PrefsPostgres:
		if s.DBConn == nil {
			return nil, errors.New("postgres preferences backend requires postgres.dsn")
		}
		backend := prefs.NewSQLBackend(s.DBConn)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return prefs.NewMemoryBackend(), nil
	}
}
