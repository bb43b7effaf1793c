// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

// Key prefix for archived events. Keys are event:<unix nanos, zero padded>:<event id>
// so lexical order is chronological order.
const eventKeyPrefix = "event:"

// DefaultGCInterval is how often RunWithContext reclaims value log space.
const DefaultGCInterval = 10 * time.Minute

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("archive store is closed")

// Config holds archive settings.
type Config struct {
	Path string

	// InMemory keeps everything in RAM; Path is ignored.
	InMemory bool

	// TTL expires archived events; zero keeps them forever.
	TTL time.Duration

	// GCInterval defaults to DefaultGCInterval.
	GCInterval time.Duration
}

// ConfigFromArchive maps the archive config section onto Config.
func ConfigFromArchive(cfg *config.ArchiveConfig) Config {
	return Config{
		Path:     cfg.Path,
		InMemory: cfg.InMemory,
		TTL:      cfg.TTL,
	}
}

// Store is a best-effort BadgerDB archive of alert events. It is a
// detection.Notifier; the in-memory event log stays the source for queries.
type Store struct {
	db     *badger.DB
	config Config
}

// Open opens (or creates) the archive.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("archive path required")
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultGCInterval
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Alerts are small JSON documents
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for archive: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("ttl", cfg.TTL).
		Msg("Event archive opened")

	return &Store{db: db, config: cfg}, nil
}

func eventKey(e *detection.SecurityEvent) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", eventKeyPrefix, e.Timestamp.UnixNano(), e.EventID))
}

// Put stores e as JSON.
func (s *Store) Put(_ context.Context, e *detection.SecurityEvent) error {
	if s.db.IsClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(eventKey(e), data)
		if s.config.TTL > 0 {
			entry = entry.WithTTL(s.config.TTL)
		}
		return txn.SetEntry(entry)
	})
	metrics.RecordArchiveWrite(err)
	if err != nil {
		return fmt.Errorf("archive event %s: %w", e.EventID, err)
	}
	return nil
}

// Recent returns up to limit archived events, newest first.
func (s *Store) Recent(limit int) ([]detection.SecurityEvent, error) {
	events := []detection.SecurityEvent{}
	if limit <= 0 {
		return events, nil
	}
	if s.db.IsClosed() {
		return nil, ErrClosed
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		seek := append([]byte(eventKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(events) < limit; it.Next() {
			var e detection.SecurityEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of archived events.
func (s *Store) Count() (int, error) {
	if s.db.IsClosed() {
		return 0, ErrClosed
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Name implements detection.Notifier.
func (s *Store) Name() string { return "archive" }

// Enabled implements detection.Notifier.
func (s *Store) Enabled() bool { return !s.db.IsClosed() }

// Send implements detection.Notifier.
func (s *Store) Send(ctx context.Context, e *detection.SecurityEvent) error {
	return s.Put(ctx, e)
}

// RunWithContext reclaims value log space periodically until ctx is done,
// then closes the store.
func (s *Store) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(s.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Close(); err != nil {
				logging.Error().Err(err).Msg("Failed to close event archive")
			}
			return ctx.Err()
		case <-ticker.C:
			s.collectGarbage()
		}
	}
}

func (s *Store) collectGarbage() {
	if s.config.InMemory {
		return
	}
	for {
		// Repeat until nothing is left to rewrite.
		if err := s.db.RunValueLogGC(0.5); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("Archive value log GC failed")
			}
			return
		}
	}
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
