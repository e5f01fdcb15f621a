// Package storage persists small, frequently-updated per-resource state
// across process restarts: a producer/consumer's last-played position
// and per-service frame/error counters (SPEC_FULL.md domain stack).
package storage

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mltgo/mlt/internal/props"
)

const (
	bucketBookmarks  = "bookmarks"
	bucketCounters   = "counters"
	bucketAnimations = "animations"
)

// Store is a small embedded key-value store, grounded on the teacher's
// `pkg/log/db.go` bbolt usage (single-file db, bucket-per-concern,
// Open/Update/View) but applied to bookmarks and counters instead of
// log rows.
type Store struct {
	mu sync.Mutex
	db *bolt.DB
}

// Open opens (creating if needed) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketBookmarks, bucketCounters, bucketAnimations} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create storage buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetBookmark records position as resourceID's last-played position.
// A consumer/producer may consult this on connect/seek to resume
// where a previous run left off.
func (s *Store) SetBookmark(resourceID string, position int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBookmarks))
		return b.Put([]byte(resourceID), encodeInt64(position))
	})
}

// Bookmark returns resourceID's last recorded position, and whether one
// was found.
func (s *Store) Bookmark(resourceID string) (int64, bool, error) {
	var pos int64
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBookmarks))
		v := b.Get([]byte(resourceID))
		if v == nil {
			return nil
		}
		found = true
		pos = decodeInt64(v)
		return nil
	})
	return pos, found, err
}

// IncrCounter adds delta to serviceID's named counter (e.g. "frames",
// "errors") and returns the new total.
func (s *Store) IncrCounter(serviceID, name string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	key := []byte(serviceID + "\x00" + name)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCounters))
		if v := b.Get(key); v != nil {
			total = decodeInt64(v)
		}
		total += delta
		return b.Put(key, encodeInt64(total))
	})
	return total, err
}

// Counter returns serviceID's named counter value, 0 if never set.
func (s *Store) Counter(serviceID, name string) (int64, error) {
	var total int64
	key := []byte(serviceID + "\x00" + name)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCounters))
		if v := b.Get(key); v != nil {
			total = decodeInt64(v)
		}
		return nil
	})
	return total, err
}

// SaveAnimation bit-packs anim via props.SerialiseAnimation and stores it
// under key, used to snapshot an animated property (e.g. a fade curve or
// keyframed bookmark) across restarts instead of reparsing its string form.
func (s *Store) SaveAnimation(key string, anim *props.Animation) error {
	data, err := props.SerialiseAnimation(anim)
	if err != nil {
		return fmt.Errorf("serialise animation %q: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAnimations))
		return b.Put([]byte(key), data)
	})
}

// Animation returns the animation stored under key at the given nominal
// length, and whether one was found.
func (s *Store) Animation(key string, length int64) (*props.Animation, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAnimations))
		if v := b.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	anim, err := props.DeserialiseAnimation(data, length)
	if err != nil {
		return nil, false, fmt.Errorf("deserialise animation %q: %w", key, err)
	}
	return anim, true, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	return buf
}

func decodeInt64(buf []byte) int64 {
	var u uint64
	for _, b := range buf {
		u = u<<8 | uint64(b)
	}
	return int64(u)
}
