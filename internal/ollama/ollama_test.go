package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/himatts/LimePipeline-sub001/internal/providers"
)

func TestExtractText(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected /api/generate, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"stem\":\"Oak\"}"}`))
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL, HTTPClient: srv.Client()}
	text, err := o.ExtractText(context.Background(), providers.Config{Model: "m", Prompt: "p", JSON: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != `{"stem":"Oak"}` {
		t.Errorf("Expected JSON payload, got %q", text)
	}
	if got["format"] != "json" || got["model"] != "m" {
		t.Errorf("Unexpected request body: %v", got)
	}
}

func TestExtractTextNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL, HTTPClient: srv.Client()}
	if _, err := o.ExtractText(context.Background(), providers.Config{}); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	o := &Ollama{URL: srv.URL, HTTPClient: srv.Client()}
	if err := o.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	srv.Close()
	if err := o.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail once the server is gone")
	}
}
