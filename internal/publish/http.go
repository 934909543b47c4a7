package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tracyhatemice/mailsentinel/internal/config"
)

// HTTPPublisher POSTs labels to a webhook-style endpoint as a small JSON
// document, for targets that speak HTTP instead of MQTT.
type HTTPPublisher struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type httpPayload struct {
	Topic string `json:"topic"`
	Label string `json:"label"`
}

// NewHTTP creates a publisher for the configured endpoint.
func NewHTTP(cfg config.HTTP, logger *slog.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.GetTimeout()},
		logger:   logger,
	}
}

func (p *HTTPPublisher) Publish(topic, label string) error {
	body, err := json.Marshal(httpPayload{Topic: topic, Label: label})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	resp, err := p.client.Post(p.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post %s: %w", p.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: unexpected status %s", p.endpoint, resp.Status)
	}
	p.logger.Debug("published", "topic", topic, "label", label)
	return nil
}

func (p *HTTPPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
