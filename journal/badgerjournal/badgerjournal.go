// Package badgerjournal stores the content repository event stream in an
// embedded BadgerDB. Events are kept under "event/<20-digit sequence>" so a
// prefix iteration returns them in order.
package badgerjournal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/sitegeist/taxonomy/journal"
)

const keyPrefix = "event/"

// Config holds configuration for the journal database.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every append.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns durable settings for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns settings for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Journal is a journal.Journal backed by BadgerDB.
type Journal struct {
	db *badger.DB

	mu   sync.Mutex
	last uint64
}

var _ journal.Journal = (*Journal)(nil)

// Open opens (or creates) the journal database.
func Open(cfg Config) (*Journal, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent journal")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger journal: %w", err)
	}

	j := &Journal{db: db}
	last, err := j.lastSequence()
	if err != nil {
		db.Close()
		return nil, err
	}
	j.last = last
	return j, nil
}

func (j *Journal) lastSequence() (uint64, error) {
	var last uint64
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the largest key <= the seek key.
		it.Seek([]byte(keyPrefix + "~"))
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return nil
		}
		seq, err := strconv.ParseUint(strings.TrimPrefix(string(it.Item().Key()), keyPrefix), 10, 64)
		last = seq
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read last journal sequence: %w", err)
	}
	return last, nil
}

// Append implements journal.Journal. All events are written in one transaction.
func (j *Journal) Append(ctx context.Context, events ...Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := journal.CheckOrder(j.last, events); err != nil {
		return err
	}

	err := j.db.Update(func(txn *badger.Txn) error {
		for _, e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event %d: %w", e.Sequence, err)
			}
			if err := txn.Set([]byte(keyPrefix+journal.Key(e.Sequence)), data); err != nil {
				return fmt.Errorf("store event %d: %w", e.Sequence, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n := len(events); n > 0 {
		j.last = events[n-1].Sequence
	}
	return nil
}

// Load implements journal.Journal.
func (j *Journal) Load(ctx context.Context) ([]Event, error) {
	var events []Event
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var e Event
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("unmarshal event %s: %w", it.Item().Key(), err)
				}
				events = append(events, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load badger journal: %w", err)
	}
	return events, nil
}

// Close implements journal.Journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Event is an alias so callers of this package need not import journal.
type Event = journal.Event
