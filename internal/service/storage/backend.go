package storage

import (
	"context"
	"fmt"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/repository"
	"camclassify/internal/repository/redis"
	"camclassify/internal/repository/sqlite"
)

// Opener opens the repository behind a PredictionStore.
type Opener func(ctx context.Context) (repository.PredictionRepository, error)

// NewOpener returns the Opener for the backend selected by cfg.StoreDriver.
func NewOpener(cfg *config.Config, logger *logger.Logger) Opener {
	switch cfg.StoreDriver {
	case "redis":
		return func(ctx context.Context) (repository.PredictionRepository, error) {
			return redis.New(ctx, cfg.RedisAddr, cfg.RedisKey, logger)
		}
	case "sqlite":
		return func(ctx context.Context) (repository.PredictionRepository, error) {
			db, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return nil, err
			}
			return sqlite.NewPredictionRepository(db), nil
		}
	default:
		return func(ctx context.Context) (repository.PredictionRepository, error) {
			return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
		}
	}
}
