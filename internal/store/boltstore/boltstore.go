// Package boltstore implements store.Store as a single bucket in a
// single-file go.etcd.io/bbolt database — the "single-file hash DB"
// alternative Design Notes §9 calls out alongside the directory-per-key
// strategy (fsstore). bbolt's Update/View transactions give Set its
// required durability guarantee for free.
package boltstore

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a store.Store backed by one bbolt bucket.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open opens (creating if absent) a bbolt database at path and
// ensures bucket exists.
func Open(path, bucket string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	b := []byte(bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create bucket %s: %w", bucket, err)
	}
	return &Store{db: db, bucket: b}, nil
}

// Contains reports whether key is present in the bucket.
func (s *Store) Contains(_ context.Context, key string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(s.bucket).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Get returns the value stored at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			ok = true
			value = string(v)
		}
		return nil
	})
	return value, ok, err
}

// Set durably writes value at key; bbolt's Update commits and syncs
// before returning.
func (s *Store) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), []byte(value))
	})
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// IterateKeys walks every key currently in the bucket.
func (s *Store) IterateKeys(_ context.Context, fn func(key string) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			return fn(string(k))
		})
	})
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}
