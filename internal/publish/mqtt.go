package publish

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tracyhatemice/mailsentinel/internal/config"
)

const mqttWait = 10 * time.Second

// MQTTPublisher publishes labels to an MQTT broker, one topic per account.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
	retain bool
	logger *slog.Logger
}

// NewMQTT connects to the broker and returns a publisher over it.
func NewMQTT(cfg config.MQTT, logger *slog.Logger) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "mailsentinel"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetConnectTimeout(mqttWait).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttWait) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL, err)
	}

	logger.Info("mqtt connected", "broker", cfg.BrokerURL, "client_id", clientID)
	return &MQTTPublisher{
		client: client,
		qos:    byte(cfg.QoS),
		retain: cfg.Retain,
		logger: logger,
	}, nil
}

func (p *MQTTPublisher) Publish(topic, label string) error {
	token := p.client.Publish(topic, p.qos, p.retain, []byte(label))
	if !token.WaitTimeout(mqttWait) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	p.logger.Debug("published", "topic", topic, "label", label)
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
