package watcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fastFetcher() *Fetcher {
	f := NewFetcher(testLogger())
	f.requestDelay = 0
	f.backoff = 0
	return f
}

const listingHTML = `<html><body>
	<article>
		<h2><a href="/scholarships/ntnu-msc">NTNU Masters Scholarship in Computer Science, Norway</a></h2>
	</article>
	<article>
		<h2><a href="/scholarships/daad">DAAD Graduate Funding for Software Engineering in Germany</a></h2>
	</article>
	<article>
		<h2><a href="#">Newsletter signup</a></h2>
	</article>
</body></html>`

func TestFetcher_RetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	results := fastFetcher().FetchAll(context.Background(), []string{srv.URL})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, attempts)
}

func TestFetcher_GivesUpOnClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	results := fastFetcher().FetchAll(context.Background(), []string{srv.URL})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "HTTP 404", results[0].Error)
	assert.Equal(t, 1, attempts, "non-retryable status should not be retried")
}

func TestFetcher_RejectsInvalidURL(t *testing.T) {
	results := fastFetcher().FetchAll(context.Background(), []string{"not-a-url"})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "invalid URL format", results[0].Error)
}

func TestFetcher_SendsBrowserUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	fastFetcher().FetchAll(context.Background(), []string{srv.URL})
	assert.Contains(t, ua, "Mozilla/5.0")
}

func TestParser_SelectorLadder(t *testing.T) {
	p := NewParser(testLogger())

	items := p.ParseAll([]FetchResult{{
		SourceURL: "https://example.com/list",
		Content:   listingHTML,
		Success:   true,
	}})

	require.Len(t, items, 2)
	assert.Equal(t, "NTNU Masters Scholarship in Computer Science, Norway", items[0].Title)
	assert.Equal(t, "https://example.com/scholarships/ntnu-msc", items[0].URL)
	assert.Equal(t, "https://example.com/list", items[0].SourceURL)
}

func TestParser_KeywordFallback(t *testing.T) {
	p := NewParser(testLogger())

	html := `<html><body>
		<div><a href="/funding/eth-zurich">Fellowship Funding at ETH Zurich for doctoral study</a></div>
		<div><a href="/about">About this site and its mission</a></div>
	</body></html>`

	items := p.ParseAll([]FetchResult{{
		SourceURL: "https://example.com/",
		Content:   html,
		Success:   true,
	}})

	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/funding/eth-zurich", items[0].URL)
}

func TestParser_FeedSource(t *testing.T) {
	p := NewParser(testLogger())

	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel>
	<title>Scholarships</title>
	<item>
		<title>Erasmus Mundus Masters Grants</title>
		<link>https://example.com/erasmus</link>
	</item>
</channel></rss>`

	items := p.ParseAll([]FetchResult{{
		SourceURL: "https://example.com/feed.xml",
		Content:   feed,
		Success:   true,
	}})

	require.Len(t, items, 1)
	assert.Equal(t, "Erasmus Mundus Masters Grants", items[0].Title)
	assert.Equal(t, "https://example.com/erasmus", items[0].URL)
}

func TestParser_DeduplicatesAcrossSources(t *testing.T) {
	p := NewParser(testLogger())

	result := FetchResult{SourceURL: "https://example.com/list", Content: listingHTML, Success: true}
	items := p.ParseAll([]FetchResult{result, result})

	assert.Len(t, items, 2)
}

func TestFilter_GroupsByCountry(t *testing.T) {
	f := NewFilter(catalog.DefaultEntries(), testLogger())

	grouped := f.GroupByCountry([]domain.Scholarship{
		{Title: "NTNU Masters Scholarship in Computer Science, Norway", URL: "https://a.example/1"},
		{Title: "DAAD Software Engineering Grants, Germany", URL: "https://a.example/2"},
		{Title: "Scandinavia tech funding: Norway and Sweden PhD stipends", URL: "https://a.example/3"},
		{Title: "Cheap flights to Oslo", URL: "https://a.example/4"},
	})

	assert.Len(t, grouped["NO"], 2)
	assert.Len(t, grouped["DE"], 1)
	assert.Len(t, grouped["SE"], 1)
}

func TestFilter_FalsePositivesExcluded(t *testing.T) {
	f := NewFilter(catalog.DefaultEntries(), testLogger())

	codes := f.MatchingCountries(domain.Scholarship{
		Title: "Norway Computer Science Scholarship (deadline passed)",
		URL:   "https://a.example/old",
	})
	assert.Empty(t, codes)
}

func TestFilter_DomainPatternMatches(t *testing.T) {
	entries := []catalog.Entry{{
		Code:           "NO",
		Name:           "Norway",
		Enabled:        true,
		DomainPatterns: []string{"ntnu.no"},
	}}
	f := NewFilter(entries, testLogger())

	codes := f.MatchingCountries(domain.Scholarship{
		Title: "Fully funded PhD positions in machine learning",
		URL:   "https://www.ntnu.no/positions/phd-ml",
	})
	assert.Equal(t, []string{"NO"}, codes)
}

func TestResultsStore_MissingFileIsEmpty(t *testing.T) {
	rs := NewResultsStore(filepath.Join(t.TempDir(), "absent.json"))

	doc, err := rs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.ScholarshipsByCountry)
}

func TestResultsStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	rs := NewResultsStore(path)

	byCountry := map[string][]domain.Scholarship{
		"NO": {{Title: "A", URL: "https://a"}},
		"DE": {{Title: "B", URL: "https://b"}, {Title: "C", URL: "https://c"}},
	}
	require.NoError(t, rs.Save(context.Background(), byCountry))

	doc, err := rs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, doc.TotalCount)
	assert.Equal(t, 2, doc.CountryCounts["DE"])
	assert.NotEmpty(t, doc.LastUpdated)
	assert.Len(t, doc.ScholarshipsByCountry["DE"], 2)
}

func TestResultsStore_MigratesLegacyFlatList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	legacy := []domain.Scholarship{{Title: "Old", URL: "https://old"}}
	data, _ := json.Marshal(legacy)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	doc, err := NewResultsStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.ScholarshipsByCountry["NO"], 1)
	assert.Equal(t, 1, doc.TotalCount)
}

func TestResultsStore_MigratesLegacyWrappedList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	content := `{"scholarships": [{"title": "Old", "url": "https://old"}], "last_updated": "x"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := NewResultsStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.ScholarshipsByCountry["NO"], 1)
}

func TestFindNew_DiffsPerCountry(t *testing.T) {
	previous := &ResultsDocument{ScholarshipsByCountry: map[string][]domain.Scholarship{
		"NO": {{URL: "https://a"}},
	}}
	current := map[string][]domain.Scholarship{
		"NO": {{URL: "https://a"}, {URL: "https://b"}},
		"SE": {{URL: "https://a"}},
	}

	fresh := FindNew(current, previous)

	assert.Len(t, fresh["NO"], 1)
	assert.Equal(t, "https://b", fresh["NO"][0].URL)
	assert.Len(t, fresh["SE"], 1, "same URL under a new country is new for that country")
}

func TestMerge_KeepsDroppedListings(t *testing.T) {
	previous := &ResultsDocument{ScholarshipsByCountry: map[string][]domain.Scholarship{
		"NO": {{URL: "https://gone"}},
	}}
	current := map[string][]domain.Scholarship{
		"NO": {{URL: "https://new"}},
	}

	merged := Merge(previous, current)
	assert.Len(t, merged["NO"], 2)
}

type recordingNotifier struct {
	calls []map[string][]domain.Scholarship
}

func (r *recordingNotifier) NotifyNewScholarships(ctx context.Context, byCountry map[string][]domain.Scholarship) error {
	r.calls = append(r.calls, byCountry)
	return nil
}

func TestPipeline_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	resultsPath := filepath.Join(t.TempDir(), "results.json")
	notifier := &recordingNotifier{}

	pipeline := NewPipeline(
		fastFetcher(),
		NewParser(testLogger()),
		NewFilter(catalog.DefaultEntries(), testLogger()),
		NewResultsStore(resultsPath),
		[]string{srv.URL},
		testLogger(),
	)
	pipeline.AddNotifier(notifier)

	fresh, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	assert.Len(t, fresh["NO"], 1)
	assert.Len(t, fresh["DE"], 1)
	assert.NotEmpty(t, fresh["NO"][0].DiscoveredAt)

	// Second run sees nothing new and stays quiet.
	fresh, err = pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.Len(t, notifier.calls, 1)

	// Results persisted on disk.
	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	var doc ResultsDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotEmpty(t, doc.ScholarshipsByCountry["NO"])
}

// statNotifier records whether the results file was already on disk when the
// notification fired.
type statNotifier struct {
	path            string
	called          bool
	savedBeforeCall bool
}

func (n *statNotifier) NotifyNewScholarships(ctx context.Context, byCountry map[string][]domain.Scholarship) error {
	n.called = true
	if _, err := os.Stat(n.path); err == nil {
		n.savedBeforeCall = true
	}
	return nil
}

func TestPipeline_SavesResultsBeforeNotifying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	resultsPath := filepath.Join(t.TempDir(), "results.json")
	notifier := &statNotifier{path: resultsPath}

	pipeline := NewPipeline(
		fastFetcher(),
		NewParser(testLogger()),
		NewFilter(catalog.DefaultEntries(), testLogger()),
		NewResultsStore(resultsPath),
		[]string{srv.URL},
		testLogger(),
	)
	pipeline.AddNotifier(notifier)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.True(t, notifier.called)
	assert.True(t, notifier.savedBeforeCall,
		"results must be persisted before announcements so a failed save cannot re-announce the batch")
}

func TestResultsStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	rs := NewResultsStore(filepath.Join(dir, "results.json"))
	require.NoError(t, rs.Save(context.Background(), map[string][]domain.Scholarship{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
