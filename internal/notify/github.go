package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

var issueLabels = []string{"scholarship", "automated"}

// IssueNotifier opens a GitHub issue summarizing each batch of new
// scholarships, giving the watcher run a public audit trail.
type IssueNotifier struct {
	client *github.Client
	owner  string
	repo   string
	names  map[string]string
	logger *slog.Logger
	now    func() time.Time
}

// NewIssueNotifier builds a notifier for "owner/repo". countryNames maps
// country codes to display names for the issue body.
func NewIssueNotifier(token, repository string, countryNames map[string]string, logger *slog.Logger) (*IssueNotifier, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q, want owner/repo", repository)
	}

	return &IssueNotifier{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		names:  countryNames,
		logger: logger,
		now:    time.Now,
	}, nil
}

// NotifyNewScholarships opens one issue covering the whole batch.
func (n *IssueNotifier) NotifyNewScholarships(ctx context.Context, byCountry map[string][]domain.Scholarship) error {
	total := 0
	for _, items := range byCountry {
		total += len(items)
	}
	if total == 0 {
		return nil
	}

	title := fmt.Sprintf("🎓 %d new scholarship%s found (%s)",
		total, plural(total), n.now().UTC().Format("2006-01-02"))
	body := n.issueBody(byCountry, total)
	labels := issueLabels

	issue, _, err := n.client.Issues.Create(ctx, n.owner, n.repo, &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	})
	if err != nil {
		return fmt.Errorf("creating issue in %s/%s: %w", n.owner, n.repo, err)
	}

	n.logger.Info("issue created",
		"repo", n.owner+"/"+n.repo,
		"issue", issue.GetNumber(),
		"scholarships", total,
	)
	return nil
}

func (n *IssueNotifier) issueBody(byCountry map[string][]domain.Scholarship, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found **%d** new scholarship%s.\n", total, plural(total))

	for _, code := range sortedCodes(byCountry) {
		name := code
		if display, ok := n.names[code]; ok {
			name = display
		}
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		for _, s := range byCountry[code] {
			fmt.Fprintf(&b, "- [%s](%s)\n", s.Title, s.URL)
		}
	}

	b.WriteString("\n---\n*Opened automatically by the scholarship watcher.*\n")
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
