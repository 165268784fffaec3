package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketAudited = []byte("audited")

// CheckpointStore persists the audited set between scan runs. It is
// optional: the set loses no correctness when it stays memory-only, a
// checkpoint just spares re-auditing targets across restarts.
type CheckpointStore struct {
	db   *bolt.DB
	path string
}

// NewCheckpointStore opens (or creates) a BoltDB-backed checkpoint.
func NewCheckpointStore(path string) (*CheckpointStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAudited)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &CheckpointStore{db: db, path: path}, nil
}

// Save writes every marked ID to the checkpoint.
func (s *CheckpointStore) Save(set *Set) error {
	ids := set.IDs()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudited)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		for _, id := range ids {
			if err := b.Put([]byte(id), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load marks every checkpointed ID into the set.
func (s *CheckpointStore) Load(set *Set) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudited)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.ForEach(func(k, _ []byte) error {
			set.CheckAndMark(string(k))
			return nil
		})
	})
}

// Clear removes every checkpointed ID.
func (s *CheckpointStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketAudited); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketAudited)
		return err
	})
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
