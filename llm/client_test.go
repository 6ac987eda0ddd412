package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteRoundTrip(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "graded reply"}},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(Config{BaseURL: server.URL, APIKey: "secret", Model: "gpt-4o"})

	reply, err := client.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "graded reply" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "user text" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Config{BaseURL: server.URL})

	_, err := client.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want the status code included", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Config{BaseURL: server.URL})
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected an error for an empty choices list")
	}
}

func TestConfigDefaults(t *testing.T) {
	client := NewHTTPClient(Config{})
	if client.cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("BaseURL = %q", client.cfg.BaseURL)
	}
	if client.cfg.Model != "gpt-4" || client.cfg.MaxTokens != 2000 {
		t.Errorf("model/tokens = %q/%d", client.cfg.Model, client.cfg.MaxTokens)
	}
}
