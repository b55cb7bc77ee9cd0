package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"camclassify/internal/logger"
	"camclassify/internal/models"

	"github.com/redis/go-redis/v9"
)

const operationTimeout = 5 * time.Second

// storedPrediction is the JSON document kept in the list. The key travels with
// the record because list positions shift on delete.
type storedPrediction struct {
	ID int64 `json:"id"`
	models.Prediction
}

// PredictionRepository implements repository.PredictionRepository on a Redis
// list. Records are appended with RPUSH; keys come from an INCR counter that
// survives DeleteAll.
type PredictionRepository struct {
	client *redis.Client
	key    string
	seqKey string
	logger *logger.Logger
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr, key string, logger *logger.Logger) (*PredictionRepository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &PredictionRepository{
		client: client,
		key:    key,
		seqKey: key + ":seq",
		logger: logger,
	}, nil
}

// Insert appends a prediction and returns its key.
func (r *PredictionRepository) Insert(p *models.Prediction) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	id, err := r.client.Incr(ctx, r.seqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate prediction id: %w", err)
	}

	data, err := json.Marshal(storedPrediction{ID: id, Prediction: *p})
	if err != nil {
		return 0, fmt.Errorf("failed to encode prediction: %w", err)
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}

	p.ID = id
	return id, nil
}

// GetAll returns every prediction in insertion order. Items that no longer
// decode into a Prediction are logged and skipped.
func (r *PredictionRepository) GetAll() ([]models.Prediction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	items, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}

	predictions := make([]models.Prediction, 0, len(items))
	for i, item := range items {
		var p models.Prediction
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			r.logger.Warning("Skipping undecodable prediction at %s[%d]: %v", r.key, i, err)
			continue
		}
		var key struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal([]byte(item), &key); err != nil {
			r.logger.Warning("Skipping prediction with bad id at %s[%d]: %v", r.key, i, err)
			continue
		}
		p.ID = key.ID
		predictions = append(predictions, p)
	}

	return predictions, nil
}

// Count returns the list length.
func (r *PredictionRepository) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return int(n), nil
}

// DeleteAll removes the list. The id counter is kept.
func (r *PredictionRepository) DeleteAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *PredictionRepository) Close() error {
	return r.client.Close()
}
