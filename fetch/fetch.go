package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent identifies the diagnostic crawler to origin servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; LLMRankDiagnostic/1.0)"

// ErrorKind classifies fetch failures so callers can degrade uniformly
// without inspecting error strings.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindStatus     ErrorKind = "status"
	KindOther      ErrorKind = "other"
)

// Error is the typed failure returned by Fetcher.Fetch.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Document is a single fetched page: the raw response plus a lazily parsed
// HTML tree. Read-only once returned to callers.
type Document struct {
	URL           string        `json:"url"`
	RawHTML       string        `json:"-"`
	Header        http.Header   `json:"-"`
	StatusCode    int           `json:"statusCode"`
	RedirectChain []string      `json:"redirectChain,omitempty"`
	Elapsed       time.Duration `json:"-"`

	parseOnce sync.Once
	doc       *goquery.Document
	parseErr  error
}

// HTML parses the raw body once and returns the queryable tree.
func (d *Document) HTML() (*goquery.Document, error) {
	d.parseOnce.Do(func() {
		d.doc, d.parseErr = goquery.NewDocumentFromReader(bytes.NewReader([]byte(d.RawHTML)))
	})
	return d.doc, d.parseErr
}

// ElapsedSeconds reports the total fetch latency in seconds.
func (d *Document) ElapsedSeconds() float64 {
	return d.Elapsed.Seconds()
}

// Fetcher performs one-shot page fetches with a shared, pooled transport.
type Fetcher struct {
	transport *http.Transport
	timeout   time.Duration
	userAgent string
}

// NewFetcher creates a Fetcher with connection pooling and keep-alives.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  false,
		},
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Transport exposes the pooled transport for collaborators that need their
// own client configuration (redirect capture, bot headers).
func (f *Fetcher) Transport() http.RoundTripper { return f.transport }

// UserAgent returns the configured identification string.
func (f *Fetcher) UserAgent() string { return f.userAgent }

// Fetch retrieves a page, following redirects and recording the chain.
// A non-2xx/3xx status is a typed failure, not a Document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	var chain []string
	client := &http.Client{
		Transport: f.transport,
		Timeout:   f.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			chain = append(chain, req.URL.String())
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode >= 400 {
		return nil, &Error{Kind: KindStatus, URL: rawURL, StatusCode: resp.StatusCode}
	}

	return &Document{
		URL:           rawURL,
		RawHTML:       string(body),
		Header:        resp.Header,
		StatusCode:    resp.StatusCode,
		RedirectChain: chain,
		Elapsed:       elapsed,
	}, nil
}

func classify(rawURL string, err error) *Error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindConnection, URL: rawURL, Err: err}
}
