package watcher

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// Container selectors commonly used by scholarship listing pages.
var listingSelectors = []string{
	"article",
	".scholarship",
	".scholarship-item",
	".scholarship-listing",
	".scholarship-card",
	".post",
	".entry",
	".listing-item",
	".result-item",
	".program-card",
	".opportunity",
	".funding-item",
	"table.scholarships tr",
	"ul.scholarships li",
	".scholarship-list li",
}

// Selectors for the listing's primary link, tried in order.
var linkSelectors = []string{
	"h1 a", "h2 a", "h3 a", "h4 a",
	".title a", ".scholarship-title a", ".entry-title a", ".post-title a",
	"a[href*='scholarship']",
}

var linkKeywords = []string{
	"scholarship", "scholarships", "grant", "grants",
	"fellowship", "fellowships", "funding", "bursary",
	"award", "stipend", "financial aid",
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Parser extracts scholarship listings from HTML pages and RSS/Atom feeds.
type Parser struct {
	logger *slog.Logger
	feed   *gofeed.Parser
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger, feed: gofeed.NewParser()}
}

// ParseAll extracts scholarships from every successful fetch, deduplicated
// by URL across sources.
func (p *Parser) ParseAll(results []FetchResult) []domain.Scholarship {
	var all []domain.Scholarship
	seen := make(map[string]struct{})

	for _, r := range results {
		if !r.Success || r.Content == "" {
			continue
		}

		var items []domain.Scholarship
		if IsFeedURL(r.SourceURL) {
			items = p.parseFeed(r.Content, r.SourceURL)
		} else {
			items = p.parsePage(r.Content, r.SourceURL)
		}

		for _, item := range items {
			if _, ok := seen[item.URL]; ok {
				continue
			}
			seen[item.URL] = struct{}{}
			all = append(all, item)
		}
	}

	p.logger.Info("parse complete", "unique_scholarships", len(all))
	return all
}

func (p *Parser) parseFeed(content, sourceURL string) []domain.Scholarship {
	feed, err := p.feed.ParseString(content)
	if err != nil {
		p.logger.Warn("failed to parse feed", "url", sourceURL, "error", err)
		return nil
	}

	var items []domain.Scholarship
	for _, item := range feed.Items {
		title := sanitizeText(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		items = append(items, domain.Scholarship{
			Title:     title,
			URL:       normalizeURL(item.Link, sourceURL),
			SourceURL: sourceURL,
		})
	}
	return items
}

// parsePage tries the structured selector ladder first, then falls back to
// keyword-matched links for pages with no recognizable layout.
func (p *Parser) parsePage(html, sourceURL string) []domain.Scholarship {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn("failed to parse HTML", "url", sourceURL, "error", err)
		return nil
	}

	items := p.parseWithSelectors(doc, sourceURL)
	if len(items) == 0 {
		p.logger.Debug("selector parse empty, trying keyword links", "url", sourceURL)
		items = p.parseKeywordLinks(doc, sourceURL)
	}

	p.logger.Info("parsed source", "url", sourceURL, "scholarships", len(items))
	return items
}

func (p *Parser) parseWithSelectors(doc *goquery.Document, sourceURL string) []domain.Scholarship {
	var items []domain.Scholarship
	seen := make(map[string]struct{})

	for _, selector := range listingSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			title := extractTitle(sel)
			link := extractLink(sel, sourceURL)
			if title == "" || link == "" {
				return
			}
			if _, ok := seen[link]; ok {
				return
			}
			seen[link] = struct{}{}
			items = append(items, domain.Scholarship{Title: title, URL: link, SourceURL: sourceURL})
		})
	}
	return items
}

func (p *Parser) parseKeywordLinks(doc *goquery.Document, sourceURL string) []domain.Scholarship {
	var items []domain.Scholarship
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if skipHref(href) {
			return
		}
		text := sanitizeText(sel.Text())
		if len(text) < 10 {
			return
		}

		combined := strings.ToLower(text + " " + href)
		for _, kw := range linkKeywords {
			if strings.Contains(combined, kw) {
				link := normalizeURL(href, sourceURL)
				if _, ok := seen[link]; !ok {
					seen[link] = struct{}{}
					items = append(items, domain.Scholarship{Title: text, URL: link, SourceURL: sourceURL})
				}
				return
			}
		}
	})
	return items
}

func extractTitle(sel *goquery.Selection) string {
	for _, tag := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		if text := sanitizeText(sel.Find(tag).First().Text()); len(text) > 5 {
			return text
		}
	}
	for _, class := range []string{".title", ".scholarship-title", ".entry-title", ".post-title"} {
		if text := sanitizeText(sel.Find(class).First().Text()); len(text) > 5 {
			return text
		}
	}
	if text := sanitizeText(sel.Find("a").First().Text()); len(text) > 10 {
		return text
	}
	return ""
}

func extractLink(sel *goquery.Selection, baseURL string) string {
	for _, selector := range linkSelectors {
		link := sel.Find(selector).First()
		if href, ok := link.Attr("href"); ok && !skipHref(href) {
			return normalizeURL(href, baseURL)
		}
	}

	var fallback string
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if skipHref(href) {
			return true
		}
		lower := strings.ToLower(href)
		for _, kw := range []string{"scholarship", "program", "grant", "funding", "apply"} {
			if strings.Contains(lower, kw) {
				fallback = normalizeURL(href, baseURL)
				return false
			}
		}
		if fallback == "" {
			fallback = normalizeURL(href, baseURL)
		}
		return true
	})
	return fallback
}

func skipHref(href string) bool {
	return href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:")
}

// normalizeURL resolves href against base and drops fragments.
func normalizeURL(href, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

func sanitizeText(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
