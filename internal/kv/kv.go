// Package kv provides a path-keyed document store with change notification.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("kv")

var (
	// ErrNotFound is returned when no value is stored at a path.
	ErrNotFound = errors.New("kv: path not found")
	// ErrLocked is returned when another process holds the database.
	ErrLocked = errors.New("kv: database is in use by another process")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kv: store is closed")
)

// Change is a value written at a path.
type Change struct {
	Path  string
	Value json.RawMessage
}

// Decode unmarshals the change value into v.
func (c Change) Decode(v any) error {
	return json.Unmarshal(c.Value, v)
}

// Store is a bbolt-backed key-value store. Paths are slash separated.
type Store struct {
	db *bolt.DB

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	var fileMode fs.FileMode = 0o600
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrLocked
		}
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on bucket setup failure.
			_ = cerr
		}
		return nil, err
	}
	return &Store{db: db, subs: map[uint64]*subscription{}}, nil
}

// Close stops every subscription and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		sub.stop()
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Get reads the value at path into v.
func (s *Store) Get(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(path))
		if data == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// List returns every value stored at prefix or below it.
func (s *Store) List(ctx context.Context, prefix string) ([]Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Change
	err := s.db.View(func(tx *bolt.Tx) error {
		out = scan(tx, prefix)
		return nil
	})
	return out, err
}

// Set writes v at path and notifies subscribers whose prefix covers it.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("kv: empty path")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(path), data)
	})
	if err != nil {
		return err
	}
	change := Change{Path: path, Value: data}
	for _, sub := range s.subs {
		if covers(sub.prefix, path) {
			sub.push(change)
		}
	}
	return nil
}

// Subscribe delivers the current values under prefix followed by every
// later write. The returned cancel func stops delivery and closes the
// channel.
func (s *Store) Subscribe(prefix string) (<-chan Change, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	sub := newSubscription(prefix)
	var snapshot []Change
	err := s.db.View(func(tx *bolt.Tx) error {
		snapshot = scan(tx, prefix)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for _, c := range snapshot {
		sub.push(c)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	go sub.run()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			sub.stop()
		}
	}
	return sub.out, cancel, nil
}

func scan(tx *bolt.Tx, prefix string) []Change {
	var out []Change
	c := tx.Bucket(bucketName).Cursor()
	p := []byte(prefix)
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		if !covers(prefix, string(k)) {
			continue
		}
		out = append(out, Change{Path: string(k), Value: append([]byte(nil), v...)})
	}
	return out
}

func covers(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}
