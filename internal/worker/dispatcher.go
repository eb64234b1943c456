package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scholarwatch/scholarship-watcher/internal/engine"
)

// Dispatcher continuously polls the Redis digest queue and sends ready jobs
// to the worker pool.
type Dispatcher struct {
	redisClient  *redis.Client
	pool         *Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

// NewDispatcher creates a dispatcher that pulls from the Redis sorted set.
func NewDispatcher(redisClient *redis.Client, pool *Pool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		redisClient:  redisClient,
		pool:         pool,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		batchSize:    10,
	}
}

// Start begins the polling loop. It runs until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll fetches a batch of due jobs from Redis and hands them to workers.
// Jobs requeued with a future score stay untouched until their time comes.
func (d *Dispatcher) poll(ctx context.Context) {
	now := float64(time.Now().UnixMicro())

	results, err := d.redisClient.ZRangeByScoreWithScores(ctx, engine.DigestQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   formatFloat(now),
		Count: d.batchSize,
	}).Result()
	if err != nil {
		d.logger.Error("failed to poll digest queue", "error", err)
		return
	}

	if len(results) == 0 {
		return
	}

	for _, z := range results {
		member := z.Member.(string)

		// ZRem returning 0 means another dispatcher already claimed the job.
		removed, err := d.redisClient.ZRem(ctx, engine.DigestQueueKey, member).Result()
		if err != nil {
			d.logger.Error("failed to remove job from queue", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job engine.DigestJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("failed to unmarshal digest job", "error", err)
			continue
		}

		d.pool.Submit(job)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
