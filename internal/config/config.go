package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel            string    `yaml:"log_level"`
	PollIntervalSeconds int       `yaml:"poll_interval_seconds"`
	StateFile           string    `yaml:"state_file"`
	Publisher           Publisher `yaml:"publisher"`
	Rating              []Rating  `yaml:"rating"`
	Accounts            []Account `yaml:"accounts"`
}

// Publisher selects and configures the outbound telemetry target.
type Publisher struct {
	Type string `yaml:"type"` // "mqtt", "http" or "none"
	MQTT MQTT   `yaml:"mqtt"`
	HTTP HTTP   `yaml:"http"`
}

// MQTT holds the broker connection settings.
type MQTT struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	QoS       int    `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
}

// HTTP holds the endpoint settings for the HTTP publisher.
type HTTP struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Rating is one age-threshold rule; rules are ordered ascending by threshold.
type Rating struct {
	MaxAgeDays int    `yaml:"max_age_days"`
	Label      string `yaml:"label"`
}

// Account describes one monitored mail source.
type Account struct {
	Name         string   `yaml:"name"`
	Protocol     string   `yaml:"protocol"` // "imap" or "pop3"
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	UseTLS       bool     `yaml:"use_tls"`
	IMAPFolder   string   `yaml:"imap_folder"`
	LookbackDays int      `yaml:"lookback_days"`
	SenderMatch  string   `yaml:"sender_match"`
	SubjectAny   []string `yaml:"subject_any"`
	Topic        string   `yaml:"topic"`
	MarkRead     bool     `yaml:"mark_read"`
	MoveToFolder string   `yaml:"move_to_folder"`
}

// PollInterval returns the cycle interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// GetLookbackDays returns the number of days to search back, defaulting to 7.
func (a *Account) GetLookbackDays() int {
	if a.LookbackDays <= 0 {
		return 7
	}
	return a.LookbackDays
}

// GetIMAPFolder returns the IMAP folder name, defaulting to "INBOX".
func (a *Account) GetIMAPFolder() string {
	if a.IMAPFolder == "" {
		return "INBOX"
	}
	return a.IMAPFolder
}

// GetTimeout returns the HTTP publisher timeout, defaulting to 10 seconds.
func (h *HTTP) GetTimeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		LogLevel:  "info",
		StateFile: "data/watermarks.json",
		// No publisher block means labels are computed and logged but
		// not delivered anywhere; a broker must be opted into.
		Publisher: Publisher{Type: "none"},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Publisher.Type {
	case "mqtt":
		if c.Publisher.MQTT.BrokerURL == "" {
			return fmt.Errorf("publisher.mqtt.broker_url is required")
		}
		if c.Publisher.MQTT.QoS < 0 || c.Publisher.MQTT.QoS > 2 {
			return fmt.Errorf("publisher.mqtt.qos must be 0, 1 or 2")
		}
	case "http":
		if c.Publisher.HTTP.Endpoint == "" {
			return fmt.Errorf("publisher.http.endpoint is required")
		}
	case "none":
	default:
		return fmt.Errorf("publisher.type must be mqtt, http or none")
	}

	prev := -1
	for i, r := range c.Rating {
		if r.MaxAgeDays < 0 {
			return fmt.Errorf("rating rule #%d: max_age_days must not be negative", i)
		}
		if r.MaxAgeDays <= prev {
			return fmt.Errorf("rating rule #%d: thresholds must be strictly ascending", i)
		}
		if r.Label == "" {
			return fmt.Errorf("rating rule #%d: label is required", i)
		}
		prev = r.MaxAgeDays
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	topics := make(map[string]string, len(c.Accounts))
	for i, a := range c.Accounts {
		label := a.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if a.Protocol != "imap" && a.Protocol != "pop3" {
			return fmt.Errorf("account %s: protocol must be imap or pop3", label)
		}
		if a.Host == "" {
			return fmt.Errorf("account %s: host is required", label)
		}
		if a.Port == 0 {
			return fmt.Errorf("account %s: port is required", label)
		}
		if a.SenderMatch == "" {
			return fmt.Errorf("account %s: sender_match is required", label)
		}
		if a.Topic == "" {
			return fmt.Errorf("account %s: topic is required", label)
		}
		if other, dup := topics[a.Topic]; dup {
			return fmt.Errorf("account %s: topic %q already used by account %s", label, a.Topic, other)
		}
		topics[a.Topic] = label
		if a.Protocol == "pop3" && (a.MarkRead || a.MoveToFolder != "") {
			return fmt.Errorf("account %s: mark_read and move_to_folder are not supported over pop3", label)
		}
	}
	return nil
}
