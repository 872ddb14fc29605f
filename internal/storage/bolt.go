package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// controlBucket stores operator control settings
	controlBucket = "_control"

	// controlSettingsKey is the single record inside controlBucket
	controlSettingsKey = "settings"
)

// BoltStore is a bbolt implementation of the Store interface
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
// The database file will be created if it doesn't exist
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(controlBucket)); err != nil {
			return fmt.Errorf("failed to create control bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// ControlSettings returns the persisted settings. A missing record yields
// zero-value settings: export limiting stays off until the operator enables it.
func (s *BoltStore) ControlSettings() (ControlSettings, error) {
	var settings ControlSettings
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(controlBucket))
		if bucket == nil {
			return fmt.Errorf("control bucket not found")
		}

		data := bucket.Get([]byte(controlSettingsKey))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("failed to unmarshal control settings: %w", err)
		}
		return nil
	})
	return settings, err
}

// SetControlSettings persists the settings.
func (s *BoltStore) SetControlSettings(settings ControlSettings) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(controlBucket))
		if bucket == nil {
			return fmt.Errorf("control bucket not found")
		}

		data, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal control settings: %w", err)
		}

		return bucket.Put([]byte(controlSettingsKey), data)
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
