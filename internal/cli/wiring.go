package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/infra/file"
	"voice-quiz-service/internal/infra/memory"
	pginfra "voice-quiz-service/internal/infra/postgres"
	redisinfra "voice-quiz-service/internal/infra/redis"
	"voice-quiz-service/internal/infra/sqlite"
)

// runtime is the assembled service plus the resources to release.
type runtime struct {
	service *app.QuizService
	closers []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.WithField("path", path).Warn("config file not found, using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}
	fail := func(err error) (*runtime, error) {
		rt.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		bunDB = pginfra.OpenDB(cfg.Postgres.URL)
		rt.closers = append(rt.closers, func() { _ = bunDB.Close() })
		if _, err := pginfra.Migrate(ctx, bunDB); err != nil {
			return fail(fmt.Errorf("migrate: %w", err))
		}
	}

	var loader memory.CatalogLoader = file.NewCatalogLoader(cfg.Quiz.CatalogPath)
	if cfg.Postgres.URL != "" && cfg.Quiz.CatalogPath == "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		rt.closers = append(rt.closers, pool.Close)
		loader = pginfra.NewCatalogLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.BankSource
	if redisClient != nil {
		banks = redisinfra.NewBankCache(redisClient, loader, quizTTL)
	} else {
		banks = memory.NewBankCache(loader, quizTTL)
	}

	var store app.SessionStore
	switch backend := cfg.SessionBackend(); backend {
	case config.BackendMemory:
		store = memory.NewSessionStore()
	case config.BackendRedis:
		if redisClient == nil {
			return fail(fmt.Errorf("session backend redis requires redis.addr"))
		}
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0))
	case config.BackendPostgres:
		if bunDB == nil {
			return fail(fmt.Errorf("session backend postgres requires postgres.url"))
		}
		store = pginfra.NewSessionStore(bunDB)
	case config.BackendSQLite:
		if cfg.SQLite.Path == "" {
			return fail(fmt.Errorf("session backend sqlite requires sqlite.path"))
		}
		sqliteStore, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return fail(err)
		}
		rt.closers = append(rt.closers, func() { _ = sqliteStore.Close() })
		store = sqliteStore
	default:
		return fail(fmt.Errorf("unknown session backend %q", backend))
	}

	// Fail fast on a broken catalog instead of on the first turn.
	if _, err := banks.Bank(ctx); err != nil {
		return fail(fmt.Errorf("load question bank: %w", err))
	}

	rt.service = app.NewQuizService(store, banks, app.Settings{
		SessionLength: cfg.Quiz.SessionLength,
		Name:          cfg.Quiz.Name,
		SignOff:       cfg.Quiz.SignOff,
		Credits:       cfg.Quiz.Credits,
	}, logrus.StandardLogger())
	logrus.WithFields(logrus.Fields{
		"session_backend": cfg.SessionBackend(),
		"session_length":  cfg.Quiz.SessionLength,
	}).Info("quiz service ready")
	return rt, nil
}
