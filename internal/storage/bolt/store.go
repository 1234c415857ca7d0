// Package bolt stores battle host records in a BoltDB file.
package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
)

const hostBucket = "hosts"

// Store provides a BoltDB-backed game.HostStore.
type Store struct {
	db *bbolt.DB
}

// Open opens a store at path, creating the file and bucket when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists a host record under its battle id.
func (s *Store) Save(ctx context.Context, h *game.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if h == nil || strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("battle id is required")
	}

	payload, err := game.EncodeHost(h)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(hostBucket))
		if bucket == nil {
			return fmt.Errorf("host bucket is missing")
		}
		return bucket.Put([]byte(h.ID), payload)
	})
}

// Load fetches a host record by battle id.
func (s *Store) Load(ctx context.Context, id string) (*game.Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var h *game.Host
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(hostBucket))
		if bucket == nil {
			return fmt.Errorf("host bucket is missing")
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return fmt.Errorf("load %s: %w", id, game.ErrHostNotFound)
		}
		// payload is only valid inside the transaction; DecodeHost copies it.
		decoded, err := game.DecodeHost(payload)
		if err != nil {
			return err
		}
		h = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Delete removes a host record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(hostBucket))
		if bucket == nil {
			return fmt.Errorf("host bucket is missing")
		}
		return bucket.Delete([]byte(id))
	})
}

// IDs lists the stored battle ids in key order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(hostBucket))
		if bucket == nil {
			return fmt.Errorf("host bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(hostBucket)); err != nil {
			return fmt.Errorf("create host bucket: %w", err)
		}
		return nil
	})
}
