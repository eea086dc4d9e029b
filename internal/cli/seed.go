package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/infra/file"
	pginfra "voice-quiz-service/internal/infra/postgres"
	redisinfra "voice-quiz-service/internal/infra/redis"
)

// NewSeedCmd loads a YAML question catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML question catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			config.InitLogger(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			questions, err := file.NewCatalogLoader(catalogPath).LoadCatalog(ctx)
			if err != nil {
				return err
			}

			db := pginfra.OpenDB(cfg.Postgres.URL)
			defer db.Close()
			if _, err := pginfra.Migrate(ctx, db); err != nil {
				return err
			}
			if err := pginfra.SeedCatalog(ctx, db, questions); err != nil {
				return err
			}
			logrus.WithField("questions", len(questions)).Info("catalog seeded")
			return invalidateSharedCatalog(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog to load (default: built-in catalog)")
	return cmd
}

// invalidateSharedCatalog drops the catalog cached in Redis so running
// instances pick up the seeded questions without waiting for the TTL.
func invalidateSharedCatalog(ctx context.Context, cfg config.Config) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	cache := redisinfra.NewBankCache(client, nil, 0)
	if err := cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate shared catalog: %w", err)
	}
	logrus.Info("shared catalog cache invalidated")
	return nil
}
