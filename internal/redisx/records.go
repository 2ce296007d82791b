package redisx

import (
	"context"
	"errors"
	"time"
)

const recordPrefix = "provision"

// Record is the outcome of the last successful provisioning of a database.
type Record struct {
	Name          string    `json:"name"`
	Created       bool      `json:"created"`
	ProvisionedAt time.Time `json:"provisionedAt"`
	RequestID     string    `json:"requestId,omitempty"`
}

// RecordStore keeps provisioning records keyed by database name.
type RecordStore struct {
	cache *Cache
}

func NewRecordStore(cache *Cache) *RecordStore {
	return &RecordStore{cache: cache}
}

// Save stores rec. A record with Created=false never replaces one that says the
// database was created, so the creation time survives later idempotent calls.
func (s *RecordStore) Save(ctx context.Context, rec Record) error {
	key := s.cache.GenerateKey(recordPrefix, rec.Name)

	if !rec.Created {
		var existing Record
		err := s.cache.Get(ctx, key, &existing)
		switch {
		case err == nil && existing.Created:
			return nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			return err
		}
	}

	return s.cache.Set(ctx, key, rec)
}

// Load returns ErrCacheMiss when no record is stored for name.
func (s *RecordStore) Load(ctx context.Context, name string) (Record, error) {
	var rec Record
	err := s.cache.Get(ctx, s.cache.GenerateKey(recordPrefix, name), &rec)
	return rec, err
}

// Ping checks the underlying Redis connection.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
