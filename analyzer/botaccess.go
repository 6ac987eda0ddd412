package analyzer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GPTBotAccessibilityTester replays requests with a bot-identifying header
// set and looks for blocking behavior (0-15). It does not emulate a real
// crawler beyond the headers.
type GPTBotAccessibilityTester struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewGPTBotAccessibilityTester creates a tester sharing the given transport.
func NewGPTBotAccessibilityTester(transport http.RoundTripper, timeout time.Duration) *GPTBotAccessibilityTester {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GPTBotAccessibilityTester{transport: transport, timeout: timeout}
}

// setBotHeaders applies the fixed GPTBot identification. Content encoding is
// left to the transport so the body arrives decoded.
func setBotHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "GPTBot")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// Analyze probes the URL with a HEAD request and, on a 200, a follow-up GET
// whose body is scanned for block signals. Transport failures become
// blocking findings, never errors.
func (t *GPTBotAccessibilityTester) Analyze(ctx context.Context, rawURL string) AccessibilityAnalysis {
	analysis := AccessibilityAnalysis{
		URL:       rawURL,
		Redirects: []string{},
		Blocks:    []string{},
	}

	var chain []string
	client := &http.Client{
		Transport: t.transport,
		Timeout:   t.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			chain = append(chain, req.URL.String())
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		analysis.Blocks = append(analysis.Blocks, "Error: "+err.Error())
		return analysis
	}
	setBotHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		analysis.Blocks = append(analysis.Blocks, transportBlock(err))
		return analysis
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	analysis.StatusCode = resp.StatusCode
	analysis.Redirects = append(analysis.Redirects, chain...)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		analysis.Blocks = append(analysis.Blocks, "403 Forbidden - Access denied")
	case resp.StatusCode == http.StatusTooManyRequests:
		analysis.Blocks = append(analysis.Blocks, "429 Too Many Requests - Rate limited")
	case resp.StatusCode >= 500:
		analysis.Blocks = append(analysis.Blocks, strconv.Itoa(resp.StatusCode)+" Server Error")
	}

	if resp.StatusCode == http.StatusOK {
		getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			analysis.Blocks = append(analysis.Blocks, "Error: "+err.Error())
			return analysis
		}
		setBotHeaders(getReq)

		start := time.Now()
		getResp, err := client.Do(getReq)
		if err != nil {
			analysis.Blocks = append(analysis.Blocks, transportBlock(err))
			return analysis
		}
		body, err := io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			analysis.Blocks = append(analysis.Blocks, transportBlock(err))
			return analysis
		}
		analysis.ResponseTime = time.Since(start).Seconds()

		content := strings.ToLower(string(body))
		if strings.Contains(content, "cloudflare") &&
			(strings.Contains(content, "block") || strings.Contains(content, "captcha")) {
			analysis.Blocks = append(analysis.Blocks, "Cloudflare protection detected")
		}
		if strings.Contains(content, "captcha") {
			analysis.Blocks = append(analysis.Blocks, "Captcha challenge detected")
		}
		if strings.Contains(content, "access denied") || strings.Contains(content, "blocked") {
			analysis.Blocks = append(analysis.Blocks, "Access denied message detected")
		}
		if len(body) < 1000 {
			analysis.Blocks = append(analysis.Blocks, "Insufficient content (less than 1000 characters)")
		}
	}

	analysis.Accessible = analysis.StatusCode == http.StatusOK && len(analysis.Blocks) == 0
	analysis.Score = t.calculateScore(&analysis)
	return analysis
}

func transportBlock(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return "Request timeout"
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "Request timeout"
	}
	return "Connection error"
}

func (t *GPTBotAccessibilityTester) calculateScore(analysis *AccessibilityAnalysis) int {
	score := 0

	switch analysis.StatusCode {
	case http.StatusOK:
		score += 10
	case http.StatusMovedPermanently, http.StatusFound:
		score += 8
	case http.StatusNotFound:
		score += 2
	}

	if analysis.ResponseTime < 2.0 {
		score += 3
	} else if analysis.ResponseTime < 5.0 {
		score += 1
	}

	if len(analysis.Redirects) == 0 {
		score += 2
	}

	score -= len(analysis.Blocks) * 2

	return clampInt(score, 0, 15)
}
