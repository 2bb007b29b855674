package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/tickerdash/internal/clientdata"
	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/config"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/modules/charts"
	"github.com/aristath/tickerdash/internal/modules/marketdata"
	"github.com/aristath/tickerdash/internal/modules/risk"
	"github.com/aristath/tickerdash/internal/scheduler"
	"github.com/aristath/tickerdash/internal/session"
	"github.com/rs/zerolog"
)

const redisConnectTimeout = 5 * time.Second

// InitializeServices builds the upstream client, the market data service and
// the session layer on top of the databases in container.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())
	container.YahooClient = yahoo.NewClient(container.ClientDataRepo, cfg.Market.UpstreamTimeout, log)

	container.MarketData = marketdata.NewService(container.YahooClient, marketdata.Config{
		Benchmark: cfg.Market.Benchmark,
		Period:    cfg.Market.DefaultPeriod,
		Interval:  cfg.Market.DefaultInterval,
	}, log)
	container.Risk = risk.NewService(container.YahooClient, risk.Config{
		Benchmark:    cfg.Market.Benchmark,
		Period:       cfg.Market.DefaultPeriod,
		RiskFreeRate: cfg.Market.RiskFreeRate,
	}, log)
	container.Charts = charts.NewService(container.YahooClient, log)

	store, err := newSessionStore(container, cfg, log)
	if err != nil {
		return err
	}
	container.SessionStore = store

	container.EventBus = events.NewBus(log)
	container.SessionManager = session.NewManager(
		container.MarketData,
		container.SessionStore,
		container.EventBus,
		cfg.Session.TTL,
		log,
	)
	container.Hub = session.NewHub(container.EventBus, cfg.AllowedOrigins, log)
	container.Scheduler = scheduler.New(log)

	log.Info().
		Str("session_backend", cfg.Session.Backend).
		Dur("session_ttl", cfg.Session.TTL).
		Str("benchmark", cfg.Market.Benchmark).
		Msg("Services initialized")

	return nil
}

func newSessionStore(container *Container, cfg *config.Config, log zerolog.Logger) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		defer cancel()

		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Session.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		return store, nil
	case config.SessionBackendMemory:
		return session.NewMemoryStore(cfg.Session.TTL), nil
	case config.SessionBackendSQLite, "":
		return session.NewSQLiteStore(container.SessionsDB, cfg.Session.TTL, log), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
