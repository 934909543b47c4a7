package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TopicState is the durable watermark for one topic: the most recent
// timestamp ever confirmed by a live observation.
type TopicState struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// File is the full persisted watermark set. Entries are absolute timestamps;
// storing save-relative ages would lose the watermark across restarts.
type File struct {
	Topics []TopicState `json:"topics"`
}

// FindTopic returns a mutable reference to the entry for topic, or nil.
func (f *File) FindTopic(topic string) *TopicState {
	for i := range f.Topics {
		if f.Topics[i].Topic == topic {
			return &f.Topics[i]
		}
	}
	return nil
}

// Upsert updates the entry for topic in place, or appends a new one.
// Entries are never removed.
func (f *File) Upsert(topic string, ts time.Time) {
	if entry := f.FindTopic(topic); entry != nil {
		entry.Timestamp = ts
		return
	}
	f.Topics = append(f.Topics, TopicState{Topic: topic, Timestamp: ts})
}

// Store persists a watermark File at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store backed by path. The file is created on first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the watermark file. A missing file yields an empty File; an
// unreadable or malformed file is an error, and the caller decides whether
// to abort or continue empty.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return f, nil
}

// Save writes the full watermark file atomically via a temp file and rename.
func (s *Store) Save(f *File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
