// Package crawler discovers same-site pages from internal links and
// sitemaps and runs the analyzer over them with politeness pacing.
package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ot-clark/llm-rank-diagnostic/analyzer"
	"github.com/ot-clark/llm-rank-diagnostic/fetch"
	"github.com/ot-clark/llm-rank-diagnostic/metrics"
)

// nonContentPatterns filters URLs that are unlikely to hold content worth
// scoring.
var nonContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/login`),
	regexp.MustCompile(`(?i)/signup`),
	regexp.MustCompile(`(?i)/cart`),
	regexp.MustCompile(`(?i)/checkout`),
	regexp.MustCompile(`(?i)/admin`),
	regexp.MustCompile(`(?i)/api/`),
	regexp.MustCompile(`(?i)\.(pdf|doc|docx|xls|xlsx|ppt|pptx|zip|rar)$`),
	regexp.MustCompile(`#`),
	regexp.MustCompile(`(?i)mailto:`),
	regexp.MustCompile(`(?i)tel:`),
}

// sitemapPaths are checked in order; the first one that responds wins.
var sitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap/sitemap.xml",
}

const maxSitemapBytes = 10 << 20

// PageAnalyzer is the per-page scoring collaborator.
type PageAnalyzer interface {
	AnalyzeWithContext(ctx context.Context, url string) *analyzer.Report
}

// Crawler walks a site starting from one page.
type Crawler struct {
	fetcher  *fetch.Fetcher
	pages    PageAnalyzer
	client   *http.Client
	maxPages int
	delay    time.Duration
	logger   *slog.Logger
	onPage   func()
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithMaxPages bounds the number of pages analyzed per crawl.
func WithMaxPages(n int) Option {
	return func(c *Crawler) { c.maxPages = n }
}

// WithDelay sets the pause between page analyses.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// WithPageHook registers a callback fired once per analyzed page.
func WithPageHook(fn func()) Option {
	return func(c *Crawler) { c.onPage = fn }
}

// New creates a Crawler. Defaults: 10 pages per crawl, 1s between pages.
func New(fetcher *fetch.Fetcher, pages PageAnalyzer, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:  fetcher,
		pages:    pages,
		maxPages: 10,
		delay:    time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = &http.Client{
		Transport: fetcher.Transport(),
		Timeout:   10 * time.Second,
	}
	return c
}

// Crawl analyzes the start page and up to maxPages-1 discovered pages,
// pausing between pages. Pages that cannot be fetched still yield their
// degraded report.
func (c *Crawler) Crawl(ctx context.Context, startURL string) ([]*analyzer.Report, error) {
	discovered, err := c.Discover(ctx, startURL)
	if err != nil {
		return nil, err
	}

	reports := []*analyzer.Report{c.analyzePage(ctx, startURL)}

	visited := map[string]bool{startURL: true}
	for _, link := range discovered {
		if len(reports) >= c.maxPages {
			break
		}
		if visited[link] {
			continue
		}
		visited[link] = true

		if err := sleepCtx(ctx, c.delay); err != nil {
			return reports, err
		}
		reports = append(reports, c.analyzePage(ctx, link))
	}

	c.logger.Info("crawl finished", "start", startURL, "pages", len(reports))
	return reports, nil
}

func (c *Crawler) analyzePage(ctx context.Context, pageURL string) *analyzer.Report {
	report := c.pages.AnalyzeWithContext(ctx, pageURL)
	metrics.RecordCrawledPage()
	if c.onPage != nil {
		c.onPage()
	}
	return report
}

// Discover returns same-host content URLs found on the start page and in the
// site's sitemap, deduplicated and sorted.
func (c *Crawler) Discover(ctx context.Context, startURL string) ([]string, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url: %w", err)
	}

	links := make(map[string]bool)

	page, err := c.fetcher.Fetch(ctx, startURL)
	if err != nil {
		return nil, fmt.Errorf("fetch start page: %w", err)
	}
	doc, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("parse start page: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Host != base.Host {
			return
		}
		abs := resolved.String()
		if !isNonContentURL(abs) {
			links[abs] = true
		}
	})

	for _, u := range c.sitemapLinks(ctx, base) {
		links[u] = true
	}

	out := make([]string, 0, len(links))
	for u := range links {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// sitemapLinks fetches the first responding sitemap and returns its
// same-host <loc> entries.
func (c *Crawler) sitemapLinks(ctx context.Context, base *url.URL) []string {
	for _, path := range sitemapPaths {
		sitemapURL := base.Scheme + "://" + base.Host + path
		locs, err := c.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			c.logger.Debug("sitemap unavailable", "url", sitemapURL, "error", err)
			continue
		}

		var links []string
		for _, loc := range locs {
			if u, err := url.Parse(loc); err == nil && u.Host == base.Host {
				links = append(links, loc)
			}
		}
		return links
	}
	return nil
}

// fetchSitemap collects every <loc> value in the document, covering both
// urlset and sitemapindex layouts.
func (c *Crawler) fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.fetcher.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap status %d", resp.StatusCode)
	}

	decoder := xml.NewDecoder(io.LimitReader(resp.Body, maxSitemapBytes))
	var locs []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode sitemap: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "loc" {
			continue
		}
		var loc string
		if err := decoder.DecodeElement(&loc, &start); err != nil {
			return nil, fmt.Errorf("decode sitemap loc: %w", err)
		}
		if loc = strings.TrimSpace(loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func isNonContentURL(u string) bool {
	for _, re := range nonContentPatterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
