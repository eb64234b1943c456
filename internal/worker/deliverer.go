package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"github.com/scholarwatch/scholarship-watcher/internal/engine"
)

// Mailer sends a rendered digest to one subscriber.
type Mailer interface {
	SendDigest(ctx context.Context, email string, byCountry map[string][]domain.Scholarship) error
}

// Deliverer sends digest jobs through the mailer, requeueing failures with
// exponential backoff until the job runs out of retries.
type Deliverer struct {
	mailer      Mailer
	redisClient *redis.Client
	logger      *slog.Logger
	retryDelay  time.Duration
}

func NewDeliverer(mailer Mailer, redisClient *redis.Client, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		mailer:      mailer,
		redisClient: redisClient,
		logger:      logger,
		retryDelay:  time.Minute,
	}
}

// Deliver sends one digest. Failures are requeued, not returned; the worker
// pool has nothing useful to do with a delivery error.
func (d *Deliverer) Deliver(ctx context.Context, job engine.DigestJob) {
	start := time.Now()

	err := d.mailer.SendDigest(ctx, job.Email, job.Scholarships)
	elapsed := time.Since(start).Milliseconds()

	if err == nil {
		d.logger.Info("digest delivered",
			"job_id", job.ID,
			"email", job.Email,
			"attempt", job.Attempt,
			"elapsed_ms", elapsed,
		)
		return
	}

	if job.Attempt >= job.MaxRetries {
		d.logger.Error("digest dropped after max retries",
			"job_id", job.ID,
			"email", job.Email,
			"attempt", job.Attempt,
			"error", err,
		)
		return
	}

	delay := d.retryDelay * time.Duration(1<<(job.Attempt-1))
	if requeueErr := engine.Requeue(ctx, d.redisClient, job, delay); requeueErr != nil {
		d.logger.Error("failed to requeue digest",
			"job_id", job.ID,
			"email", job.Email,
			"error", requeueErr,
		)
		return
	}

	d.logger.Warn("digest delivery failed, requeued",
		"job_id", job.ID,
		"email", job.Email,
		"attempt", job.Attempt,
		"retry_in", delay.String(),
		"error", err,
	)
}
