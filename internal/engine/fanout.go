// Package engine fans new scholarships out to subscribers as queued digest
// jobs in Redis.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
)

const DigestQueueKey = "digest_queue"

// DigestJob is one subscriber's pending digest email, queued in Redis.
type DigestJob struct {
	ID           string                          `json:"id"`
	Email        string                          `json:"email"`
	Scholarships map[string][]domain.Scholarship `json:"scholarships"`
	Attempt      int                             `json:"attempt"`
	MaxRetries   int                             `json:"max_retries"`
}

// FanOutEngine matches new scholarships against subscriber country
// preferences and queues one digest job per interested subscriber.
type FanOutEngine struct {
	subscribers store.SubscriberStore
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewFanOutEngine(subscribers store.SubscriberStore, redisClient *redis.Client, logger *slog.Logger) *FanOutEngine {
	return &FanOutEngine{
		subscribers: subscribers,
		redisClient: redisClient,
		logger:      logger,
	}
}

// NotifyNewScholarships queues digest jobs for every active subscriber whose
// countries intersect the batch. Subscribers with no overlap get nothing.
func (f *FanOutEngine) NotifyNewScholarships(ctx context.Context, byCountry map[string][]domain.Scholarship) error {
	subscribers, err := f.subscribers.Load(ctx, true)
	if err != nil {
		return fmt.Errorf("loading subscribers: %w", err)
	}

	if len(subscribers) == 0 {
		f.logger.Info("no active subscribers, skipping fan-out")
		return nil
	}

	pipe := f.redisClient.Pipeline()
	queued := 0

	for _, sub := range subscribers {
		relevant := intersect(byCountry, sub.Countries)
		if len(relevant) == 0 {
			continue
		}

		job := DigestJob{
			ID:           uuid.NewString(),
			Email:        sub.Email,
			Scholarships: relevant,
			Attempt:      1,
			MaxRetries:   3,
		}

		jobBytes, err := json.Marshal(job)
		if err != nil {
			f.logger.Error("failed to marshal digest job", "error", err, "email", sub.Email)
			continue
		}

		pipe.ZAdd(ctx, DigestQueueKey, redis.Z{
			Score:  float64(time.Now().UnixMicro()),
			Member: string(jobBytes),
		})
		queued++
	}

	if queued == 0 {
		f.logger.Info("no subscribers matched this batch")
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queuing digests to redis: %w", err)
	}

	f.logger.Info("fan-out complete",
		"subscribers", len(subscribers),
		"digests_queued", queued,
	)
	return nil
}

// QueueDepth returns the number of digests waiting in the queue.
func (f *FanOutEngine) QueueDepth(ctx context.Context) (int64, error) {
	return f.redisClient.ZCard(ctx, DigestQueueKey).Result()
}

// Requeue schedules a failed job for another attempt after the given delay.
func Requeue(ctx context.Context, client *redis.Client, job DigestJob, delay time.Duration) error {
	job.Attempt++

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling digest job: %w", err)
	}

	return client.ZAdd(ctx, DigestQueueKey, redis.Z{
		Score:  float64(time.Now().Add(delay).UnixMicro()),
		Member: string(jobBytes),
	}).Err()
}

func intersect(byCountry map[string][]domain.Scholarship, countries []string) map[string][]domain.Scholarship {
	out := make(map[string][]domain.Scholarship)
	for _, code := range countries {
		if items, ok := byCountry[code]; ok && len(items) > 0 {
			out[code] = items
		}
	}
	return out
}
