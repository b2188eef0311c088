// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package cache stores fetched GenBank records in a local bbolt file so
// repeated runs over the same accession sets do not hit NCBI again.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/allista/GetIsolationSource/internal/genbank"
)

// ErrClosed indicates use of a cache after Close.
var ErrClosed = errors.New("cache is closed")

var recordsBucket = []byte("records")

// entry is the stored value: the record plus its fetch time.
type entry struct {
	Record    genbank.Record `json:"record"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Cache is a bbolt-backed record store keyed by versioned accession.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if needed) the cache file at path. Parent
// directories are created.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying file.
func (c *Cache) Close() error {
	if c.db == nil {
		return ErrClosed
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get returns the cached record for key, reporting whether it was present.
func (c *Cache) Get(key string) (genbank.Record, bool, error) {
	if c.db == nil {
		return genbank.Record{}, false, ErrClosed
	}
	var (
		rec   genbank.Record
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(recordsBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			// A corrupt entry behaves like a miss; it gets overwritten
			// on the next Put.
			return nil
		}
		rec, found = e.Record, true
		return nil
	})
	return rec, found, err
}

// Put stores records under both their versioned and bare accession keys,
// so either request form hits on the next run.
func (c *Cache) Put(records []genbank.Record) error {
	if c.db == nil {
		return ErrClosed
	}
	now := time.Now().UTC()
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		for _, rec := range records {
			raw, err := json.Marshal(entry{Record: rec, FetchedAt: now})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.Key()), raw); err != nil {
				return err
			}
			if rec.Key() != rec.Accession {
				if err := b.Put([]byte(rec.Accession), raw); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Stats reports the number of entries and the cache file size in bytes.
func (c *Cache) Stats() (entries int, size int64, err error) {
	if c.db == nil {
		return 0, 0, ErrClosed
	}
	err = c.db.View(func(tx *bolt.Tx) error {
		entries = tx.Bucket(recordsBucket).Stats().KeyN
		size = tx.Size()
		return nil
	})
	return entries, size, err
}

// Purge removes entries fetched more than olderThan ago; a zero olderThan
// removes everything. Returns the number of removed entries.
func (c *Cache) Purge(olderThan time.Duration) (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		cur := b.Cursor()
		var stale [][]byte
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if olderThan == 0 {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			var e entry
			if err := json.Unmarshal(v, &e); err != nil || e.FetchedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
