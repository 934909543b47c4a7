package publish

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tracyhatemice/mailsentinel/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPPublisher_PostsPayload(t *testing.T) {
	var got httpPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer server.Close()

	pub := NewHTTP(config.HTTP{Endpoint: server.URL}, discardLogger())
	defer pub.Close()

	if err := pub.Publish("liveness/mom", "fresh"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got.Topic != "liveness/mom" || got.Label != "fresh" {
		t.Errorf("server received %+v", got)
	}
}

func TestHTTPPublisher_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pub := NewHTTP(config.HTTP{Endpoint: server.URL}, discardLogger())
	defer pub.Close()

	if err := pub.Publish("liveness/mom", "fresh"); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestHTTPPublisher_UnreachableEndpoint(t *testing.T) {
	pub := NewHTTP(config.HTTP{Endpoint: "http://127.0.0.1:1", TimeoutSeconds: 1}, discardLogger())
	defer pub.Close()

	if err := pub.Publish("liveness/mom", "fresh"); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}

func TestNoop(t *testing.T) {
	var pub Publisher = Noop{}
	if err := pub.Publish("any", "label"); err != nil {
		t.Errorf("Noop.Publish() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Noop.Close() error = %v", err)
	}
}
