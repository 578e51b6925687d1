// Package profile persists per-device client state: the session record and
// the onboarding tour flag.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session") // token, expiry_ms
	bucketTour    = []byte("tour")    // seen

	keyToken  = []byte("token")
	keyExpiry = []byte("expiry_ms")
	keySeen   = []byte("seen")
)

// ErrLocked is returned by Open when another process holds the profile.
var ErrLocked = errors.New("profile is locked by another drive process")

// DB is the bbolt-backed device profile.
type DB struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the profile database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketSession); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketTour); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize profile: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database file.
func (p *DB) Close() error {
	return p.db.Close()
}

// LoadSession returns the stored token and the raw stored expiry.
// Both are empty when no session is stored.
func (p *DB) LoadSession() (token, expiry string, err error) {
	err = p.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		token = string(b.Get(keyToken))
		expiry = string(b.Get(keyExpiry))
		return nil
	})
	return token, expiry, err
}

// SaveSession writes token and expiry together.
func (p *DB) SaveSession(token string, expiryMillis int64) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyExpiry, []byte(strconv.FormatInt(expiryMillis, 10)))
	})
}

// ClearSession removes token and expiry together.
func (p *DB) ClearSession() error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Delete(keyToken); err != nil {
			return err
		}
		return b.Delete(keyExpiry)
	})
}

// TourSeen reports whether the onboarding tour was completed or skipped.
func (p *DB) TourSeen() (bool, error) {
	var seen bool
	err := p.db.View(func(tx *bbolt.Tx) error {
		seen = tx.Bucket(bucketTour).Get(keySeen) != nil
		return nil
	})
	return seen, err
}

// MarkTourSeen persists the tour flag.
func (p *DB) MarkTourSeen() error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTour).Put(keySeen, []byte("true"))
	})
}

// ResetTour forgets the tour flag so it is shown again.
func (p *DB) ResetTour() error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTour).Delete(keySeen)
	})
}

// Memory is an in-process profile for tests and ephemeral sessions.
type Memory struct {
	mu       sync.Mutex
	token    string
	expiry   string
	tourSeen bool
}

// NewMemory returns an empty in-memory profile.
func NewMemory() *Memory {
	return &Memory{}
}

// LoadSession returns the stored token and raw expiry.
func (m *Memory) LoadSession() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.expiry, nil
}

// SaveSession stores token and expiry together.
func (m *Memory) SaveSession(token string, expiryMillis int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiry = strconv.FormatInt(expiryMillis, 10)
	return nil
}

// SetRaw stores an arbitrary raw record, including malformed expiries.
func (m *Memory) SetRaw(token, expiry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiry = expiry
}

// ClearSession removes the session record.
func (m *Memory) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = ""
	return nil
}

// TourSeen reports the tour flag.
func (m *Memory) TourSeen() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tourSeen, nil
}

// MarkTourSeen sets the tour flag.
func (m *Memory) MarkTourSeen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tourSeen = true
	return nil
}

// ResetTour clears the tour flag.
func (m *Memory) ResetTour() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tourSeen = false
	return nil
}
