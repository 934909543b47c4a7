package publish

// Publisher delivers one freshness label per topic to a telemetry target.
// Delivery is best effort; callers log failures and move on.
type Publisher interface {
	Publish(topic, label string) error
	Close() error
}

// Noop discards everything. Used for "publisher: none" and in tests.
type Noop struct{}

func (Noop) Publish(topic, label string) error { return nil }

func (Noop) Close() error { return nil }
