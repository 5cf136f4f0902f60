package persist

import (
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketDocuments = []byte("documents")

// KeyspaceStore is a bbolt-backed durable key-space for the standalone
// CLI harness (spec §6.1's key-space facilities, realized concretely
// for cmd/jsondoc-bench): one bucket, keyed by document key, holding
// codec-encoded snapshot bytes.
type KeyspaceStore struct {
	db *bolt.DB
}

// NewKeyspaceStore opens (creating if necessary) a bbolt database under
// dataDir.
func NewKeyspaceStore(dataDir string) (*KeyspaceStore, error) {
	dbPath := filepath.Join(dataDir, "jsondoc.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open keyspace database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &KeyspaceStore{db: db}, nil
}

func (s *KeyspaceStore) Close() error { return s.db.Close() }

// Put stores the encoded snapshot bytes for key, overwriting any
// existing entry.
func (s *KeyspaceStore) Put(key string, snapshot []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		return b.Put([]byte(key), snapshot)
	})
}

// Get returns the encoded snapshot bytes for key, or (nil, false) if
// absent.
func (s *KeyspaceStore) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		out = make([]byte, len(data))
		copy(out, data)
		return nil
	})
	return out, out != nil, err
}

// Delete removes key, returning whether it existed.
func (s *KeyspaceStore) Delete(key string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b.Get([]byte(key)) != nil {
			existed = true
		}
		return b.Delete([]byte(key))
	})
	return existed, err
}

// Keys returns every key currently stored, in bbolt's natural
// (lexicographic) key order — used by Engine.LoadAll to load every
// stored document.
func (s *KeyspaceStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		return b.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
