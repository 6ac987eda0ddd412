package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBotAccessOpenSite(t *testing.T) {
	var sawUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>" + strings.Repeat("content ", 200) + "</body></html>"))
	}))
	defer server.Close()

	tester := NewGPTBotAccessibilityTester(nil, 5*time.Second)
	analysis := tester.Analyze(context.Background(), server.URL)

	if sawUserAgent != "GPTBot" {
		t.Errorf("User-Agent = %q, want GPTBot", sawUserAgent)
	}
	if !analysis.Accessible {
		t.Errorf("expected accessible, blocks: %v", analysis.Blocks)
	}
	if analysis.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", analysis.StatusCode)
	}
	// 10 for the 200, +3 fast response, +2 no redirects.
	if analysis.Score != 15 {
		t.Errorf("score = %d, want 15", analysis.Score)
	}
}

func TestBotAccessForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	analysis := NewGPTBotAccessibilityTester(nil, 5*time.Second).Analyze(context.Background(), server.URL)

	if analysis.Accessible {
		t.Error("403 must not be accessible")
	}
	if len(analysis.Blocks) != 1 || analysis.Blocks[0] != "403 Forbidden - Access denied" {
		t.Errorf("Blocks = %v", analysis.Blocks)
	}
	// No status points, +3 fast, +2 no redirects, -2 for the block.
	if analysis.Score != 3 {
		t.Errorf("score = %d, want 3", analysis.Score)
	}
}

func TestBotAccessBlockSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>please solve this captcha</body></html>"))
	}))
	defer server.Close()

	analysis := NewGPTBotAccessibilityTester(nil, 5*time.Second).Analyze(context.Background(), server.URL)

	if analysis.Accessible {
		t.Error("captcha page must not be accessible")
	}

	wantCaptcha := false
	wantThin := false
	for _, b := range analysis.Blocks {
		if b == "Captcha challenge detected" {
			wantCaptcha = true
		}
		if b == "Insufficient content (less than 1000 characters)" {
			wantThin = true
		}
	}
	if !wantCaptcha || !wantThin {
		t.Errorf("Blocks = %v, want captcha and thin-content findings", analysis.Blocks)
	}
}

func TestBotAccessConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	analysis := NewGPTBotAccessibilityTester(nil, time.Second).Analyze(context.Background(), url)

	if analysis.Accessible {
		t.Error("unreachable site must not be accessible")
	}
	if len(analysis.Blocks) != 1 || analysis.Blocks[0] != "Connection error" {
		t.Errorf("Blocks = %v, want a single connection error", analysis.Blocks)
	}
	if analysis.Score != 0 {
		t.Errorf("score = %d, want 0", analysis.Score)
	}
}

func TestBotAccessRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("fine ", 300)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	analysis := NewGPTBotAccessibilityTester(nil, 5*time.Second).Analyze(context.Background(), server.URL+"/old")

	if len(analysis.Redirects) == 0 {
		t.Error("expected the redirect chain to be recorded")
	}
	if analysis.StatusCode != http.StatusOK {
		t.Errorf("final StatusCode = %d, want 200", analysis.StatusCode)
	}
}
