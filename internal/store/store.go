package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPlaylists = []byte("playlists")
	bucketMeta      = []byte("meta")
)

const (
	dbFile        = "tapedeck.db"
	schemaVersion = 1
)

var keySchema = []byte("schema")

// PlaylistStore implements domain.PlaylistStore using BoltDB.
type PlaylistStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// Encoded records by id, filled on first Snapshot and kept in step
	// with every Persist
	cache  map[int][]byte
	loaded bool
}

// NewPlaylistStore opens (or creates) the store under dir. An empty dir
// gives a memory-only store.
func NewPlaylistStore(dir string) (*PlaylistStore, error) {
	if dir == "" {
		return &PlaylistStore{cache: make(map[int][]byte), loaded: true}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPlaylists, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchema); v != nil {
			if got := binary.BigEndian.Uint64(v); got != schemaVersion {
				return fmt.Errorf("unsupported schema version %d", got)
			}
			return nil
		}
		return meta.Put(keySchema, itob(schemaVersion))
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &PlaylistStore{db: db, cache: make(map[int][]byte)}, nil
}

// Path returns the database file path, or "" in memory-only mode.
func (s *PlaylistStore) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

func (s *PlaylistStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Snapshot returns every stored record keyed by id.
func (s *PlaylistStore) Snapshot() (map[int]domain.PlaylistRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]domain.PlaylistRecord, len(s.cache))
	for id, data := range s.cache {
		var rec domain.PlaylistRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode playlist %d: %w", id, err)
		}
		out[id] = rec
	}
	return out, nil
}

// Persist replaces the stored records with snapshot in one transaction.
func (s *PlaylistStore) Persist(snapshot map[int]domain.PlaylistRecord) error {
	encoded := make(map[int][]byte, len(snapshot))
	for id, rec := range snapshot {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode playlist %d: %w", id, err)
		}
		encoded[id] = data
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketPlaylists)

			// Delete records absent from the snapshot
			var stale [][]byte
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if _, ok := encoded[btoi(k)]; !ok {
					stale = append(stale, slices.Clone(k))
				}
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			for id, data := range encoded {
				if err := b.Put(itob(uint64(id)), data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to persist playlists: %w", err)
		}
	}

	s.mu.Lock()
	s.cache = encoded
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// ensureLoaded promotes the bucket content into the memory cache once.
func (s *PlaylistStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded || s.db == nil {
		return nil
	}

	cache := make(map[int][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlaylists).ForEach(func(k, v []byte) error {
			data := make([]byte, len(v))
			copy(data, v)
			cache[btoi(k)] = data
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to read playlists: %w", err)
	}

	s.mu.Lock()
	if !s.loaded {
		s.cache = cache
		s.loaded = true
	}
	s.mu.Unlock()
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
