package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/config"
	"live-trivia-service/internal/gateway"
	"live-trivia-service/internal/infra/memory"
	"live-trivia-service/internal/infra/postgres"
	infraredis "live-trivia-service/internal/infra/redis"
	"live-trivia-service/internal/infra/storage"
	"live-trivia-service/internal/logger"
)

// services is the wired object graph shared by start and seed.
type services struct {
	store       app.Store
	lifecycle   *app.Lifecycle
	submissions *app.Submissions
	leaderboard *app.Leaderboard
	controller  *app.Controller
	media       *app.Media
	hub         *gateway.Hub
	watchdog    *app.Watchdog

	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks Postgres and Redis when configured and falls back to
// in-memory adapters otherwise.
func buildServices(ctx context.Context, cfg config.Config, log *logger.Logger) (*services, error) {
	log = logger.OrNop(log)
	s := &services{}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		p, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		pool = p
		s.closers = append(s.closers, pool.Close)
		s.store = postgres.NewStore(pool)
		log.Info("using postgres store")
	} else {
		s.store = memory.NewStore()
		log.Warn("postgres not configured, using in-memory store")
	}

	var (
		redisClient *goredis.Client
		lbCache     app.LeaderboardCache = memory.NewLeaderboardCache()
		mediaCache  app.MediaCache       = memory.NewMediaCache()
		bus         gateway.Bus          = gateway.NewLocalBus()
	)
	if cfg.Redis.Addr != "" {
		client, err := infraredis.Connect(ctx, infraredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		redisClient = client
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
		lbCache = infraredis.NewLeaderboardCache(redisClient, log)
		mediaCache = infraredis.NewMediaCache(redisClient, log)
		bus = infraredis.NewBus(redisClient, cfg.Redis.Channel, log)
		log.Info("using redis cache and event bus", "addr", cfg.Redis.Addr)
	}

	var resolver app.MediaResolver = storage.PassthroughResolver{}
	if cfg.Storage.Endpoint != "" {
		r, err := storage.NewObjectResolver(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			URLExpiry: config.Duration(cfg.Storage.URLExpiry, 15*time.Minute),
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		resolver = r
		log.Info("using object storage for media", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}

	s.lifecycle = app.NewLifecycle(s.store, log)
	s.submissions = app.NewSubmissions(s.store, s.store, app.NewIdentities(s.store, log), log)
	s.leaderboard = app.NewLeaderboard(s.store, s.store, lbCache,
		config.Duration(cfg.Leaderboard.CacheTTL, app.DefaultLeaderboardTTL), log)
	s.media = app.NewMedia(s.store, resolver, mediaCache, nil,
		config.Duration(cfg.Media.CacheTTL, app.DefaultMediaTTL), cfg.Media.MaxBytes, log)
	s.hub = gateway.NewHub(s.lifecycle, s.submissions, s.leaderboard, bus, log, gateway.Options{
		MediaPrefix:    cfg.Media.ProxyPrefix,
		ThrottleWindow: config.Duration(cfg.Leaderboard.ThrottleWindow, gateway.DefaultThrottleWindow),
	})
	s.controller = app.NewController(s.store, s.lifecycle, s.leaderboard, s.hub, log)
	s.watchdog = app.NewWatchdog(s.lifecycle, s.hub,
		config.Duration(cfg.Watchdog.Interval, app.DefaultWatchdogInterval), log)
	s.closers = append(s.closers, func() { _ = s.hub.Close() })
	return s, nil
}
