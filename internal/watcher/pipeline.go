package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// Notifier delivers new scholarships grouped by country code.
type Notifier interface {
	NotifyNewScholarships(ctx context.Context, byCountry map[string][]domain.Scholarship) error
}

// Pipeline runs one watch cycle: fetch sources, parse listings, filter by
// country, diff against previous results, notify, persist.
type Pipeline struct {
	fetcher   *Fetcher
	parser    *Parser
	filter    *Filter
	results   *ResultsStore
	notifiers []Notifier
	urls      []string
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipeline(fetcher *Fetcher, parser *Parser, filter *Filter, results *ResultsStore, urls []string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		parser:  parser,
		filter:  filter,
		results: results,
		urls:    urls,
		logger:  logger,
		now:     time.Now,
	}
}

// AddNotifier registers a notification channel. Notifier failures are logged
// but never fail the run.
func (p *Pipeline) AddNotifier(n Notifier) {
	p.notifiers = append(p.notifiers, n)
}

// Run executes a single watch cycle. It returns the new scholarships found,
// keyed by country code.
func (p *Pipeline) Run(ctx context.Context) (map[string][]domain.Scholarship, error) {
	start := p.now()
	p.logger.Info("watch cycle started", "sources", len(p.urls))

	previous, err := p.results.Load(ctx)
	if err != nil {
		return nil, err
	}

	fetched := p.fetcher.FetchAll(ctx, p.urls)
	scholarships := p.parser.ParseAll(fetched)
	p.stampDiscovered(scholarships)

	grouped := p.filter.GroupByCountry(scholarships)
	fresh := FindNew(grouped, previous)

	total := 0
	for _, items := range fresh {
		total += len(items)
	}

	// Persist before notifying. A failed save must abort the run here: once
	// announcements go out, re-diffing the same batch next run would send
	// them all again.
	if err := p.results.Save(ctx, Merge(previous, grouped)); err != nil {
		return nil, err
	}

	if total > 0 {
		for _, n := range p.notifiers {
			if err := n.NotifyNewScholarships(ctx, fresh); err != nil {
				p.logger.Error("notification failed", "error", err)
			}
		}
	}

	p.logger.Info("watch cycle finished",
		"new_scholarships", total,
		"countries", len(fresh),
		"duration", p.now().Sub(start).String(),
	)
	return fresh, nil
}

func (p *Pipeline) stampDiscovered(scholarships []domain.Scholarship) {
	ts := domain.Timestamp(p.now())
	for i := range scholarships {
		if scholarships[i].DiscoveredAt == "" {
			scholarships[i].DiscoveredAt = ts
		}
	}
}
