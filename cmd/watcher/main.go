package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/config"
	"github.com/scholarwatch/scholarship-watcher/internal/engine"
	"github.com/scholarwatch/scholarship-watcher/internal/notify"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
	"github.com/scholarwatch/scholarship-watcher/internal/watcher"
	"github.com/scholarwatch/scholarship-watcher/internal/worker"
)

// defaultSourceURLs is used when SCHOLARSHIP_URLS is not set.
var defaultSourceURLs = []string{
	"https://www.scholarshipportal.com/scholarships",
	"https://www.mastersportal.com/articles/scholarships",
	"https://www.studyineurope.eu/scholarships",
}

func main() {
	once := flag.Bool("once", false, "run a single watch cycle and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subscribers, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open subscriber store", "error", err)
		os.Exit(1)
	}
	defer subscribers.Close()

	entries, err := catalog.NewLoader(cfg.CountriesPath).Entries(ctx)
	if err != nil {
		logger.Error("failed to load country catalog", "error", err)
		os.Exit(1)
	}
	countryNames := make(map[string]string, len(entries))
	for _, e := range entries {
		countryNames[e.Code] = e.Name
	}

	urls := cfg.SourceURLs
	if len(urls) == 0 {
		urls = defaultSourceURLs
	}

	pipeline := watcher.NewPipeline(
		watcher.NewFetcher(logger),
		watcher.NewParser(logger),
		watcher.NewFilter(entries, logger),
		watcher.NewResultsStore(cfg.ResultsPath),
		urls,
		logger,
	)

	// Email digests need both a queue and SES credentials.
	var fanout *engine.FanOutEngine
	stopDelivery := func() {}
	if cfg.RedisURL != "" && cfg.EmailEnabled() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		renderer, err := notify.NewRenderer(countryNames)
		if err != nil {
			logger.Error("failed to build digest renderer", "error", err)
			os.Exit(1)
		}
		mailer, err := notify.NewMailer(ctx, notify.MailerConfig{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      cfg.EmailFrom,
		}, renderer, logger)
		if err != nil {
			logger.Error("failed to build SES mailer", "error", err)
			os.Exit(1)
		}

		deliverer := worker.NewDeliverer(mailer, client, logger)
		pool := worker.NewPool(cfg.NumWorkers, deliverer, logger)
		pool.Start(ctx)

		// The dispatcher gets its own cancel and a join point: it must have
		// returned before the pool closes the jobs channel, or an in-flight
		// poll could submit to a closed channel.
		dispatchCtx, stopDispatch := context.WithCancel(context.Background())
		dispatchDone := make(chan struct{})
		go func() {
			defer close(dispatchDone)
			worker.NewDispatcher(client, pool, logger).Start(dispatchCtx)
		}()
		stopDelivery = func() {
			stopDispatch()
			<-dispatchDone
			pool.Stop()
		}

		fanout = engine.NewFanOutEngine(subscribers, client, logger)
		pipeline.AddNotifier(fanout)
		logger.Info("email digests enabled", "workers", cfg.NumWorkers)
	} else {
		logger.Info("email digests disabled")
	}

	if cfg.GitHubEnabled() {
		issues, err := notify.NewIssueNotifier(cfg.GitHubToken, cfg.GitHubRepository, countryNames, logger)
		if err != nil {
			logger.Error("failed to build GitHub notifier", "error", err)
			os.Exit(1)
		}
		pipeline.AddNotifier(issues)
		logger.Info("GitHub issue notifications enabled", "repo", cfg.GitHubRepository)
	}

	if *once {
		if _, err := pipeline.Run(ctx); err != nil {
			logger.Error("watch cycle failed", "error", err)
			os.Exit(1)
		}
		if fanout != nil {
			drainQueue(ctx, fanout, logger)
		}
		stopDelivery()
		return
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.WatchSchedule, func() {
		if _, err := pipeline.Run(ctx); err != nil {
			logger.Error("watch cycle failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid WATCH_SCHEDULE", "schedule", cfg.WatchSchedule, "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("watcher started", "schedule", cfg.WatchSchedule, "sources", len(urls))

	<-ctx.Done()
	logger.Info("shutting down watcher...")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	stopDelivery()

	logger.Info("watcher stopped")
}

// drainQueue waits for the digest queue to empty so a one-shot run sends
// everything before exiting. Requeued failures past the deadline are left
// for the next run.
func drainQueue(ctx context.Context, fanout *engine.FanOutEngine, logger *slog.Logger) {
	deadline := time.After(2 * time.Minute)
	for {
		depth, err := fanout.QueueDepth(ctx)
		if err != nil || depth == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			logger.Warn("digest queue not drained before exit", "remaining", depth)
			return
		case <-time.After(time.Second):
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.SubscriberStore, error) {
	if cfg.StoreBackend == config.BackendPostgres {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		return pg, nil
	}

	logger.Info("using JSON subscriber store", "path", cfg.SubscribersPath)
	return store.NewJSONStore(cfg.SubscribersPath), nil
}
