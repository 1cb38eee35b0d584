package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	BucketSearches  = []byte("searches")  // lang:{lang}:page:{n}:q:{query}
	BucketMovies    = []byte("movies")    // movie:{id}
	BucketDetails   = []byte("details")   // movie:{id}
	BucketFavorites = []byte("favorites") // acct:{accountID}:movie:{id}
)

var allBuckets = [][]byte{BucketSearches, BucketMovies, BucketDetails, BucketFavorites}

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store is closed")

const (
	dbFileName = "marquee.db"

	// Hot tier entries are re-read from disk after this long
	defaultHotTTL = 10 * time.Minute
)

// Store is a key-indexed record store backed by BoltDB.
// Values are JSON encoded. Reads are promoted into an in-memory hot tier;
// writes go to disk first and update the hot tier after commit.
type Store struct {
	db *bolt.DB

	// mu orders hot tier promotion against writes so a read that raced a
	// write can never re-promote the value the write replaced.
	mu  sync.RWMutex
	hot *cache.Cache
}

// Open opens (or creates) the store under baseDir. When scope is set the
// database lives in a subdirectory derived from it, so caches for different
// API endpoints never mix.
func Open(baseDir, scope string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("store directory is required")
	}

	dir := baseDir
	if scope != "" {
		dir = filepath.Join(baseDir, hashScope(scope))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, dbFileName), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	// No janitor goroutine: expired hot entries are skipped on read and
	// dropped by Compact.
	return &Store{db: db, hot: cache.New(defaultHotTTL, 0)}, nil
}

func hashScope(scope string) string {
	normalized := strings.TrimRight(strings.ToLower(scope), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func hotKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

// === Single-record helpers ===

// Get decodes the record at bucket/key into dest. It reports false when the
// record does not exist.
func (s *Store) Get(bucket []byte, key string, dest any) (bool, error) {
	data, ok, err := s.getRaw(bucket, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", hotKey(bucket, key), err)
	}
	return true, nil
}

func (s *Store) getRaw(bucket []byte, key string) ([]byte, bool, error) {
	hk := hotKey(bucket, key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.hot.Get(hk); ok {
		return v.([]byte), true, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, translate(err)
	}
	if data == nil {
		return nil, false, nil
	}

	s.hot.SetDefault(hk, data)
	return data, true, nil
}

// Put replaces the record at bucket/key
func (s *Store) Put(bucket []byte, key string, value any) error {
	return s.Perform(func(tx *Tx) error {
		return tx.Put(bucket, key, value)
	})
}

// Delete removes the record at bucket/key. Deleting a missing key is not an error.
func (s *Store) Delete(bucket []byte, key string) error {
	return s.Perform(func(tx *Tx) error {
		return tx.Delete(bucket, key)
	})
}

// DeletePrefix removes every record in bucket whose key starts with prefix
func (s *Store) DeletePrefix(bucket []byte, prefix string) (int, error) {
	var deleted int
	err := s.Perform(func(tx *Tx) error {
		var keys []string
		err := tx.ForEachPrefix(bucket, prefix, func(key string, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(bucket, k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	return deleted, err
}

// === Transactions ===

// Perform runs fn inside a single read-write transaction. Writes become
// visible to other readers only if fn returns nil.
func (s *Store) Perform(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending map[string]hotUpdate
	err := s.db.Update(func(btx *bolt.Tx) error {
		tx := &Tx{tx: btx, pending: make(map[string]hotUpdate)}
		if err := fn(tx); err != nil {
			return err
		}
		pending = tx.pending
		return nil
	})
	if err != nil {
		return translate(err)
	}

	for hk, u := range pending {
		if u.deleted {
			s.hot.Delete(hk)
		} else {
			s.hot.SetDefault(hk, u.data)
		}
	}
	return nil
}

// View runs fn inside a read-only transaction
func (s *Store) View(fn func(tx *Tx) error) error {
	err := s.db.View(func(btx *bolt.Tx) error {
		return fn(&Tx{tx: btx, readOnly: true})
	})
	return translate(err)
}

// Purge deletes every record in every bucket
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	s.hot.Flush()
	return nil
}

// Compact drops expired entries from the hot tier
func (s *Store) Compact() {
	s.hot.DeleteExpired()
}

// Count returns the number of records in bucket
func (s *Store) Count(bucket []byte) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, translate(err)
}

func translate(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

// Decode unmarshals a raw record as handed to ForEach callbacks
func Decode(raw []byte, dest any) error {
	return json.Unmarshal(raw, dest)
}
